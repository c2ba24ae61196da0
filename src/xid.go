package packetprotocols

/*------------------------------------------------------------------
 *
 * Purpose:   	Encode and decode the info field of XID frames.
 *
 * Description:	If we originate the connection, and the other end is
 *		capable of AX.25 version 2.2,
 *
 *		 - We send an XID command frame with our capabilities.
 *		 - the other sends back an XID response, possibly
 *			reducing some values to be acceptable there.
 *		 - Both ends use the values in that response.
 *
 *		If the other end originates the connection,
 *
 *		  - It sends XID command frame with its capabilities.
 *		  - We might decrease some of them to be acceptable.
 *		  - Send XID response.
 *		  - Both ends use values in my response.
 *
 * References:	AX.25 Protocol Spec, sections 4.3.3.7 & 6.3.2.
 *
 *---------------------------------------------------------------*/

import (
	"fmt"
)

const FI_Format_Indicator = 0x82
const GI_Group_Identifier = 0x80

const PI_Classes_of_Procedures = 2
const PI_HDLC_Optional_Functions = 3
const PI_I_Field_Length_Rx = 6
const PI_Window_Size_Rx = 8
const PI_Ack_Timer = 9
const PI_Retries = 10

// The two byte "Classes of Procedures" processed most significant
// byte first, like the other multibyte numeric fields.

const PV_Classes_Procedures_Balanced_ABM = 0x0100
const PV_Classes_Procedures_Half_Duplex = 0x2000
const PV_Classes_Procedures_Full_Duplex = 0x4000

// The three byte "HDLC Optional Functions", same deal.

const PV_HDLC_Optional_Functions_REJ_cmd_resp = 0x020000
const PV_HDLC_Optional_Functions_SREJ_cmd_resp = 0x040000
const PV_HDLC_Optional_Functions_Extended_Address = 0x800000

const PV_HDLC_Optional_Functions_Modulo_8 = 0x000400
const PV_HDLC_Optional_Functions_Modulo_128 = 0x000800
const PV_HDLC_Optional_Functions_TEST_cmd_resp = 0x002000
const PV_HDLC_Optional_Functions_16_bit_FCS = 0x008000

const PV_HDLC_Optional_Functions_Multi_SREJ_cmd_resp = 0x000020
const PV_HDLC_Optional_Functions_Segmenter = 0x000040

const PV_HDLC_Optional_Functions_Synchronous_Tx = 0x000002

type srej_t int

const (
	srej_none srej_t = iota
	srej_single
	srej_multi
	srej_not_specified
)

type modulo_t int

const (
	modulo_unknown modulo_t = 0
	modulo_8       modulo_t = 8
	modulo_128     modulo_t = 128
)

type xid_param_s struct {
	full_duplex       int // 1, 0, or G_UNKNOWN.
	srej              srej_t
	modulo            modulo_t
	i_field_length_rx int // Max info bytes I can receive.  G_UNKNOWN to omit.
	window_size_rx    int
	ack_timer         int // Milliseconds.
	retries           int
}

/*-------------------------------------------------------------------
 *
 * Name:        xid_parse
 *
 * Purpose:    	Decode information part of XID frame into individual values.
 *
 * Inputs:	info	- Information part of the frame.  Could be empty.
 *
 * Returns:	Extracted values, a text description for troubleshooting,
 *		and an error when the layout is malformed.
 *		Fields not present keep G_UNKNOWN / not-specified values.
 *
 *--------------------------------------------------------------------*/

func xid_parse(info []byte) (*xid_param_s, string, error) {
	var result = &xid_param_s{
		full_duplex:       G_UNKNOWN,
		srej:              srej_not_specified,
		modulo:            modulo_unknown,
		i_field_length_rx: G_UNKNOWN,
		window_size_rx:    G_UNKNOWN,
		ack_timer:         G_UNKNOWN,
		retries:           G_UNKNOWN,
	}

	/* Information field is optional but that seems pretty lame. */

	if len(info) == 0 {
		return result, "", nil
	}

	if len(info) < 4 {
		return nil, "", fmt.Errorf("%w: XID info shorter than format header", ErrMalformedFrame)
	}

	var i = 0

	if info[i] != FI_Format_Indicator {
		return nil, "", fmt.Errorf("%w: first byte of XID should be Format Indicator 0x%02x", ErrMalformedFrame, FI_Format_Indicator)
	}
	i++

	if info[i] != GI_Group_Identifier {
		return nil, "", fmt.Errorf("%w: second byte of XID should be Group Identifier 0x%02x", ErrMalformedFrame, GI_Group_Identifier)
	}
	i++

	var group_len = int(info[i])<<8 + int(info[i+1])
	i += 2

	if 4+group_len > len(info) {
		return nil, "", fmt.Errorf("%w: XID group length %d overruns the frame", ErrMalformedFrame, group_len)
	}

	var desc string

	for i < 4+group_len {
		if i+2 > len(info) {
			return nil, "", fmt.Errorf("%w: XID parameter truncated", ErrMalformedFrame)
		}

		var pind = info[i]
		i++
		var plen = int(info[i])
		i++

		if plen < 1 || plen > 4 || i+plen > len(info) {
			return nil, "", fmt.Errorf("%w: XID parameter length %d", ErrMalformedFrame, plen)
		}

		var pval = 0
		for j := 0; j < plen; j++ {
			pval = pval<<8 + int(info[i])
			i++
		}

		switch pind {

		case PI_Classes_of_Procedures:

			if pval&PV_Classes_Procedures_Half_Duplex > 0 && pval&PV_Classes_Procedures_Full_Duplex == 0 {
				result.full_duplex = 0
				desc += "Half-Duplex "
			} else if pval&PV_Classes_Procedures_Full_Duplex > 0 && pval&PV_Classes_Procedures_Half_Duplex == 0 {
				result.full_duplex = 1
				desc += "Full-Duplex "
			} else {
				result.full_duplex = 0
			}

		case PI_HDLC_Optional_Functions:

			if pval&PV_HDLC_Optional_Functions_REJ_cmd_resp > 0 {
				desc += "REJ "
			}
			if pval&PV_HDLC_Optional_Functions_SREJ_cmd_resp > 0 {
				desc += "SREJ "
			}
			if pval&PV_HDLC_Optional_Functions_Multi_SREJ_cmd_resp > 0 {
				desc += "Multi-SREJ "
			}

			if pval&PV_HDLC_Optional_Functions_Multi_SREJ_cmd_resp > 0 {
				result.srej = srej_multi
			} else if pval&PV_HDLC_Optional_Functions_SREJ_cmd_resp > 0 {
				result.srej = srej_single
			} else {
				result.srej = srej_none
			}

			if pval&PV_HDLC_Optional_Functions_Modulo_8 > 0 && pval&PV_HDLC_Optional_Functions_Modulo_128 == 0 {
				result.modulo = modulo_8
				desc += "modulo-8 "
			} else if pval&PV_HDLC_Optional_Functions_Modulo_128 > 0 && pval&PV_HDLC_Optional_Functions_Modulo_8 == 0 {
				result.modulo = modulo_128
				desc += "modulo-128 "
			}

		case PI_I_Field_Length_Rx:

			result.i_field_length_rx = pval / 8

			desc += fmt.Sprintf("I-Field-Length-Rx=%d ", result.i_field_length_rx)

			if pval&0x7 > 0 {
				text_color_set(DW_COLOR_ERROR)
				dw_printf("XID: I Field Length Rx, %d, is not a whole number of bytes.\n", pval)
			}

		case PI_Window_Size_Rx:

			result.window_size_rx = pval

			desc += fmt.Sprintf("Window-Size-Rx=%d ", result.window_size_rx)

			if pval < 1 || pval > 127 {
				text_color_set(DW_COLOR_ERROR)
				dw_printf("XID: Window Size Rx, %d, is not in range of 1 thru 127.\n", pval)
				result.window_size_rx = 127
				// Let the caller deal with modulo 8 consideration.
			}

		case PI_Ack_Timer:
			result.ack_timer = pval

			desc += fmt.Sprintf("Ack-Timer=%d ", result.ack_timer)

		case PI_Retries:
			result.retries = pval

			desc += fmt.Sprintf("Retries=%d ", result.retries)

		default: // Ignore anything we don't recognize.
		}
	}

	if i != len(info) {
		text_color_set(DW_COLOR_ERROR)
		dw_printf("XID: Frame / Group Length mismatch.\n")
	}

	return result, desc, nil
}

/*-------------------------------------------------------------------
 *
 * Name:        xid_encode
 *
 * Purpose:    	Encode the information part of an XID frame.
 *
 * Inputs:	param	- Values to encode.  Numeric fields set to
 *			  G_UNKNOWN are omitted.
 *		cr	- A command offers a menu of acceptable choices;
 *			  a response picks exactly one.
 *
 * Returns:	Information part of XID frame, at most 27 bytes.
 *
 *--------------------------------------------------------------------*/

func xid_encode(param *xid_param_s, cr cmdres_t) []byte {
	var info = make([]byte, 0, 40)

	info = append(info, FI_Format_Indicator, GI_Group_Identifier, 0)

	var m byte = 4 // classes of procedures
	m += 5         // HDLC optional features
	if param.i_field_length_rx != G_UNKNOWN {
		m += 4
	}
	if param.window_size_rx != G_UNKNOWN {
		m += 3
	}
	if param.ack_timer != G_UNKNOWN {
		m += 4
	}
	if param.retries != G_UNKNOWN {
		m += 3
	}
	info = append(info, m) // 0x17 if all present.

	// "Classes of Procedures" has half / full duplex.  Always sent.

	var x = PV_Classes_Procedures_Balanced_ABM
	if param.full_duplex == 1 {
		x |= PV_Classes_Procedures_Full_Duplex
	} else { // includes G_UNKNOWN
		x |= PV_Classes_Procedures_Half_Duplex
	}

	info = append(info, PI_Classes_of_Procedures, 2, byte(x>>8), byte(x))

	// "HDLC Optional Functions" contains REJ/SREJ & modulo 8/128.
	// Always sent.

	x = PV_HDLC_Optional_Functions_Extended_Address |
		PV_HDLC_Optional_Functions_TEST_cmd_resp |
		PV_HDLC_Optional_Functions_16_bit_FCS |
		PV_HDLC_Optional_Functions_Synchronous_Tx

	if cr == cr_cmd {
		// Offer a "menu" of acceptable choices.
		switch param.srej {
		default: // Includes srej_none
			x |= PV_HDLC_Optional_Functions_REJ_cmd_resp
		case srej_single:
			x |= PV_HDLC_Optional_Functions_REJ_cmd_resp |
				PV_HDLC_Optional_Functions_SREJ_cmd_resp
		case srej_multi:
			x |= PV_HDLC_Optional_Functions_REJ_cmd_resp |
				PV_HDLC_Optional_Functions_SREJ_cmd_resp |
				PV_HDLC_Optional_Functions_Multi_SREJ_cmd_resp
		}
	} else {
		// For response, set only a single bit.
		switch param.srej {
		default:
			x |= PV_HDLC_Optional_Functions_REJ_cmd_resp
		case srej_single:
			x |= PV_HDLC_Optional_Functions_SREJ_cmd_resp
		case srej_multi:
			x |= PV_HDLC_Optional_Functions_Multi_SREJ_cmd_resp
		}
	}

	if param.modulo == modulo_128 {
		x |= PV_HDLC_Optional_Functions_Modulo_128
	} else { // includes modulo_8 and modulo_unknown
		x |= PV_HDLC_Optional_Functions_Modulo_8
	}

	info = append(info, PI_HDLC_Optional_Functions, 3, byte(x>>16), byte(x>>8), byte(x))

	// "I Field Length Rx" - max I field length acceptable to me, in bits.

	if param.i_field_length_rx != G_UNKNOWN {
		var v = param.i_field_length_rx * 8
		info = append(info, PI_I_Field_Length_Rx, 2, byte(v>>8), byte(v))
	}

	if param.window_size_rx != G_UNKNOWN {
		info = append(info, PI_Window_Size_Rx, 1, byte(param.window_size_rx))
	}

	// "Ack Timer" milliseconds.  We could handle up to 65535 here.

	if param.ack_timer != G_UNKNOWN {
		info = append(info, PI_Ack_Timer, 2, byte(param.ack_timer>>8), byte(param.ack_timer))
	}

	if param.retries != G_UNKNOWN {
		info = append(info, PI_Retries, 1, byte(param.retries))
	}

	return info
}
