package packetprotocols

import (
	"bytes"
	"fmt"
	"runtime"
)

// Because sometimes it's really convenient to have C's ternary ?:
func IfThenElse[T any](x bool, a T, b T) T { //nolint:ireturn
	if x {
		return a
	} else {
		return b
	}
}

// There are several places where we deal with fixed-width byte arrays
// containing a string.  Trailing nulls get dropped.
func ByteArrayToString(b []byte) string {
	return string(bytes.TrimRight(b, "\x00"))
}

func Assert(b bool) {
	if !b {
		var _, file, line, _ = runtime.Caller(1)
		panic(fmt.Sprintf("assertion failed at %s:%d", file, line))
	}
}

// Used for both KISS TCP and pseudo terminal clients.
const MAX_NET_CLIENTS = 3

// G_UNKNOWN means a numeric field was not specified.
const G_UNKNOWN = -999999
