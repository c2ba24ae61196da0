package packetprotocols

/*------------------------------------------------------------------
 *
 * Purpose:   	Severity-classified console output.
 *
 * Description: The protocol modules classify everything they print by
 *		setting a "color" before printing.  Historically this drove
 *		ANSI escape sequences; here the colors map onto log levels
 *		of a charmbracelet logger so output can be filtered and
 *		timestamped uniformly.  Hex dumps bypass the logger because
 *		a multi-line dump with per-line prefixes is unreadable.
 *
 *------------------------------------------------------------------*/

import (
	"fmt"
	"os"
	"strings"
	"sync"

	"github.com/charmbracelet/log"
)

type dw_color_t int

const (
	DW_COLOR_INFO  dw_color_t = iota /* Ordinary progress messages. */
	DW_COLOR_ERROR                   /* Something went wrong. */
	DW_COLOR_REC                     /* Received frames. */
	DW_COLOR_XMIT                    /* Transmitted frames. */
	DW_COLOR_DEBUG                   /* Extra verbosity, normally off. */
)

var dw_logger = log.NewWithOptions(os.Stderr, log.Options{
	ReportTimestamp: true,
})

var dw_color = DW_COLOR_INFO
var dw_color_mu sync.Mutex

func text_color_set(c dw_color_t) {
	dw_color_mu.Lock()
	dw_color = c
	dw_color_mu.Unlock()
}

// Enable DW_COLOR_DEBUG output.  Off by default.
func text_debug_enable(enable bool) {
	if enable {
		dw_logger.SetLevel(log.DebugLevel)
	} else {
		dw_logger.SetLevel(log.InfoLevel)
	}
}

func dw_printf(format string, a ...any) {
	var msg = strings.TrimRight(fmt.Sprintf(format, a...), "\n")
	if msg == "" {
		return
	}

	dw_color_mu.Lock()
	var c = dw_color
	dw_color_mu.Unlock()

	switch c {
	case DW_COLOR_ERROR:
		dw_logger.Error(msg)
	case DW_COLOR_DEBUG:
		dw_logger.Debug(msg)
	default:
		dw_logger.Info(msg)
	}
}

// Hex dump, 16 bytes per line, with printable characters alongside.
// Used when dumping frames at high debug levels.
func hex_dump(p []byte) {
	var offset = 0

	for len(p) > 0 {
		var n = min(len(p), 16)

		var line strings.Builder
		fmt.Fprintf(&line, "  %03x: ", offset)
		for i := 0; i < n; i++ {
			fmt.Fprintf(&line, " %02x", p[i])
		}
		for i := n; i < 16; i++ {
			line.WriteString("   ")
		}
		line.WriteString("  ")
		for i := 0; i < n; i++ {
			if p[i] >= 0x20 && p[i] <= 0x7E {
				line.WriteByte(p[i])
			} else {
				line.WriteByte('.')
			}
		}
		fmt.Fprintln(os.Stdout, line.String())

		p = p[n:]
		offset += n
	}
}
