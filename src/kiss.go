package packetprotocols

/*------------------------------------------------------------------
 *
 * Purpose:   	KISS command processing, common to all transports.
 *
 * Description:	A kiss_tnc_t sits between the host transports (TCP,
 *		serial port, pseudo terminal) and the radio side.  It
 *		interprets the command byte of each KISS frame: data
 *		frames are handed to the transmit path, timing
 *		parameters are stored, and the vendor negotiation
 *		commands are forwarded to the negotiation engine.
 *
 *---------------------------------------------------------------*/

import (
	"fmt"
	"sync"
)

const MAX_KISS_CHANNELS = 16

type kiss_tnc_t struct {
	mu sync.Mutex

	// Transmit timing, settable per channel via KISS commands.
	// Times are in 10 mS units as they appear on the wire.

	txdelay    [MAX_KISS_CHANNELS]int
	persist    [MAX_KISS_CHANNELS]int
	slottime   [MAX_KISS_CHANNELS]int
	txtail     [MAX_KISS_CHANNELS]int
	fullduplex [MAX_KISS_CHANNELS]bool

	debug int

	// Data frames from the client go here, already parsed.
	transmit func(channel int, pp *packet_t)

	// Vendor negotiation commands (0x10-0x14) go here.
	negotiation *modulation_negotiation_t

	// Number of bytes waiting for transmission, for the TXBUF query.
	txbuf_count func() int
}

func kiss_tnc_init(transmit func(int, *packet_t), negotiation *modulation_negotiation_t) *kiss_tnc_t {
	var k = &kiss_tnc_t{
		transmit:    transmit,
		negotiation: negotiation,
	}

	for ch := 0; ch < MAX_KISS_CHANNELS; ch++ {
		k.txdelay[ch] = DEFAULT_TXDELAY
		k.persist[ch] = DEFAULT_PERSIST
		k.slottime[ch] = DEFAULT_SLOTTIME
		k.txtail[ch] = DEFAULT_TXTAIL
		k.fullduplex[ch] = DEFAULT_FULLDUP
	}

	return k
}

func (k *kiss_tnc_t) kiss_set_debug(debug int) {
	k.mu.Lock()
	k.debug = debug
	k.mu.Unlock()
}

func (k *kiss_tnc_t) kiss_get_txdelay(channel int) int {
	k.mu.Lock()
	defer k.mu.Unlock()
	return k.txdelay[channel]
}

func (k *kiss_tnc_t) kiss_get_persist(channel int) int {
	k.mu.Lock()
	defer k.mu.Unlock()
	return k.persist[channel]
}

func (k *kiss_tnc_t) kiss_get_slottime(channel int) int {
	k.mu.Lock()
	defer k.mu.Unlock()
	return k.slottime[channel]
}

func (k *kiss_tnc_t) kiss_get_txtail(channel int) int {
	k.mu.Lock()
	defer k.mu.Unlock()
	return k.txtail[channel]
}

func (k *kiss_tnc_t) kiss_get_fulldup(channel int) bool {
	k.mu.Lock()
	defer k.mu.Unlock()
	return k.fullduplex[channel]
}

/*-------------------------------------------------------------------
 *
 * Name:        kiss_process_msg
 *
 * Purpose:     Process a message from the KISS client.
 *
 * Inputs:	kiss_msg	- Kiss frame with FEND and escapes
 *				  removed.  The first byte contains
 *				  channel and command.
 *
 *		sendfun		- Function to send something back to the
 *				  client application.  "Set Hardware"
 *				  can send a response.
 *
 *-----------------------------------------------------------------*/

func (k *kiss_tnc_t) kiss_process_msg(kiss_msg []byte, sendfun kiss_sendfun) {
	if len(kiss_msg) == 0 {
		return
	}

	var channel = int(kiss_msg[0]>>4) & 0xf
	var cmd = kiss_msg[0] & 0xf

	// The vendor negotiation sub-protocol uses command values above
	// the low nybble range, so the full byte is checked first.

	switch kiss_msg[0] {
	case KISS_CMD_NEG_REQ, KISS_CMD_NEG_RESP, KISS_CMD_NEG_ACK,
		KISS_CMD_MODE_CHANGE, KISS_CMD_QUALITY_FB:
		if k.negotiation != nil {
			k.negotiation.handle_negotiation_frame(kiss_msg[0], kiss_msg[1:])
		} else {
			text_color_set(DW_COLOR_ERROR)
			dw_printf("KISS negotiation command 0x%02x but negotiation is not configured.\n", kiss_msg[0])
		}
		return

	case KISS_CMD_END_KISS:
		/* Ignore it. */
		text_color_set(DW_COLOR_INFO)
		dw_printf("KISS protocol end KISS mode - Ignored.\n")
		return
	}

	switch cmd {
	case KISS_CMD_DATA_FRAME: /* 0 = Data Frame */

		if channel < 0 || channel >= MAX_KISS_CHANNELS {
			text_color_set(DW_COLOR_ERROR)
			dw_printf("Invalid transmit channel %d from KISS client app.\n", channel)
			return
		}

		var pp = ax25_from_frame(kiss_msg[1:])
		if pp == nil {
			text_color_set(DW_COLOR_ERROR)
			dw_printf("ERROR - Invalid KISS data frame from client app.\n")
			return
		}
		if k.transmit != nil {
			k.transmit(channel, pp)
		}

	case KISS_CMD_TXDELAY: /* 1 = TXDELAY */

		if len(kiss_msg) < 2 {
			text_color_set(DW_COLOR_ERROR)
			dw_printf("KISS ERROR: Missing value for TXDELAY command.\n")
			return
		}
		text_color_set(DW_COLOR_INFO)
		dw_printf("KISS protocol set TXDELAY = %d (*10mS units = %d mS), channel %d\n", kiss_msg[1], int(kiss_msg[1])*10, channel)
		if kiss_msg[1] < 10 || kiss_msg[1] >= 100 {
			text_color_set(DW_COLOR_ERROR)
			dw_printf("Are you sure you want such an extreme value for TXDELAY?\n")
		}
		k.mu.Lock()
		k.txdelay[channel] = int(kiss_msg[1])
		k.mu.Unlock()

	case KISS_CMD_PERSISTENCE: /* 2 = Persistence */

		if len(kiss_msg) < 2 {
			text_color_set(DW_COLOR_ERROR)
			dw_printf("KISS ERROR: Missing value for PERSISTENCE command.\n")
			return
		}
		text_color_set(DW_COLOR_INFO)
		dw_printf("KISS protocol set Persistence = %d, channel %d\n", kiss_msg[1], channel)
		if kiss_msg[1] < 5 || kiss_msg[1] > 250 {
			text_color_set(DW_COLOR_ERROR)
			dw_printf("Are you sure you want such an extreme value for PERSIST?\n")
		}
		k.mu.Lock()
		k.persist[channel] = int(kiss_msg[1])
		k.mu.Unlock()

	case KISS_CMD_SLOTTIME: /* 3 = SlotTime */

		if len(kiss_msg) < 2 {
			text_color_set(DW_COLOR_ERROR)
			dw_printf("KISS ERROR: Missing value for SLOTTIME command.\n")
			return
		}
		text_color_set(DW_COLOR_INFO)
		dw_printf("KISS protocol set SlotTime = %d (*10mS units = %d mS), channel %d\n", kiss_msg[1], int(kiss_msg[1])*10, channel)
		k.mu.Lock()
		k.slottime[channel] = int(kiss_msg[1])
		k.mu.Unlock()

	case KISS_CMD_TXTAIL: /* 4 = TXtail */

		if len(kiss_msg) < 2 {
			text_color_set(DW_COLOR_ERROR)
			dw_printf("KISS ERROR: Missing value for TXTAIL command.\n")
			return
		}
		text_color_set(DW_COLOR_INFO)
		dw_printf("KISS protocol set TXtail = %d (*10mS units = %d mS), channel %d\n", kiss_msg[1], int(kiss_msg[1])*10, channel)
		if kiss_msg[1] < 5 {
			text_color_set(DW_COLOR_ERROR)
			dw_printf("Setting TXTAIL so low is asking for trouble.  You probably don't want to do this.\n")
		}
		k.mu.Lock()
		k.txtail[channel] = int(kiss_msg[1])
		k.mu.Unlock()

	case KISS_CMD_FULLDUPLEX: /* 5 = FullDuplex */

		if len(kiss_msg) < 2 {
			text_color_set(DW_COLOR_ERROR)
			dw_printf("KISS ERROR: Missing value for FULLDUPLEX command.\n")
			return
		}
		text_color_set(DW_COLOR_INFO)
		dw_printf("KISS protocol set FullDuplex = %d, channel %d\n", kiss_msg[1], channel)
		k.mu.Lock()
		k.fullduplex[channel] = kiss_msg[1] != 0
		k.mu.Unlock()

	case KISS_CMD_SET_HARDWARE: /* 6 = TNC specific */

		if len(kiss_msg) < 2 {
			text_color_set(DW_COLOR_ERROR)
			dw_printf("KISS ERROR: Missing value for SET HARDWARE command.\n")
			return
		}
		text_color_set(DW_COLOR_INFO)
		dw_printf("KISS protocol set hardware \"%s\", channel %d\n", kiss_msg[1:], channel)
		k.kiss_set_hardware(channel, kiss_msg[1:], sendfun)

	default:
		text_color_set(DW_COLOR_ERROR)
		dw_printf("KISS Invalid command %d\n", cmd)
		kiss_debug_print(FROM_CLIENT, "", kiss_msg)
	}
}

/*-------------------------------------------------------------------
 *
 * Name:        kiss_set_hardware
 *
 * Purpose:     Process the "set hardware" command.
 *
 * Inputs:	channel		- Channel, 0 - 15.
 *
 *		command		- All but the first byte.  e.g.  "TXBUF:"
 *				  Case sensitive.
 *
 *		sendfun		- Function to send the response to the
 *				  same place where the query came from.
 *
 * Description:	The original KISS protocol spec offers no guidance on
 *		what "Set Hardware" might look like.  This follows the
 *		human readable fldigi convention:
 *
 *			COMMAND: [ parameter [ , parameter ... ] ]
 *
 *		Lack of a parameter, in the client to TNC direction, is
 *		a query which generates a response in the same format.
 *
 * Queries:	Query		Response		Comment
 *		-----		--------		-------
 *		TNC:		TNC:PACKETPROTOCOLS 1.0	Software version.
 *		TXBUF:		TXBUF:999		Bytes in transmit queue.
 *
 *-----------------------------------------------------------------*/

func (k *kiss_tnc_t) kiss_set_hardware(channel int, command []byte, sendfun kiss_sendfun) {
	var cmd, value, found = cut_bytes(command, ':')

	if !found {
		text_color_set(DW_COLOR_ERROR)
		dw_printf("KISS Set Hardware \"%s\" expected the form COMMAND:[parameter[,parameter...]]\n", command)
		return
	}

	var reply = func(response string) {
		if sendfun == nil {
			return
		}
		var msg = make([]byte, 0, len(response)+1)
		msg = append(msg, byte(channel<<4)|KISS_CMD_SET_HARDWARE)
		msg = append(msg, response...)
		sendfun(kiss_encapsulate(msg))
	}

	switch string(cmd) {
	case "TNC": /* TNC - Identify software version. */
		if len(value) > 0 {
			text_color_set(DW_COLOR_ERROR)
			dw_printf("KISS Set Hardware TNC: Did not expect a parameter.\n")
		}
		reply(fmt.Sprintf("TNC:PACKETPROTOCOLS %d.%d", MAJOR_VERSION, MINOR_VERSION))

	case "TXBUF": /* TXBUF - Number of bytes in transmit queue. */
		if len(value) > 0 {
			text_color_set(DW_COLOR_ERROR)
			dw_printf("KISS Set Hardware TXBUF: Did not expect a parameter.\n")
		}
		var n = 0
		if k.txbuf_count != nil {
			n = k.txbuf_count()
		}
		reply(fmt.Sprintf("TXBUF:%d", n))

	default:
		text_color_set(DW_COLOR_ERROR)
		dw_printf("KISS Set Hardware unrecognized command: %s.\n", cmd)
	}
}

func cut_bytes(b []byte, sep byte) ([]byte, []byte, bool) {
	for i, c := range b {
		if c == sep {
			return b[:i], b[i+1:], true
		}
	}
	return b, nil, false
}
