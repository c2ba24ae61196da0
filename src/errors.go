package packetprotocols

import "errors"

// Error kinds surfaced by the protocol stack.  Wire-level failures are
// counted on the link quality monitor as well; these sentinels are what
// callers can test with errors.Is.

var (
	ErrMalformedFrame     = errors.New("malformed frame")
	ErrUncorrectableFEC   = errors.New("uncorrectable FEC block")
	ErrUnknownTag         = errors.New("no FX.25 correlation tag found")
	ErrNegotiationTimeout = errors.New("negotiation timed out")
	ErrStateViolation     = errors.New("operation not valid in this link state")
	ErrResourceExhausted  = errors.New("resource exhausted")
	ErrInvalidArgument    = errors.New("invalid argument")
)
