package packetprotocols

/*------------------------------------------------------------------
 *
 * Name:	ax25_pad
 *
 * Purpose:	Packet assembler and disassembler.
 *
 *		We obtain AX.25 packets from different sources:
 *
 *		(a) from a received frame, after FEC and FCS checking.
 *		(b) built up piece by piece by the connected mode engine.
 *
 *		And we use them in different ways:
 *
 *		(a) transmit as an HDLC, FX.25 or IL2P frame.
 *		(b) take apart piece by piece.
 *
 * Description:	Each frame starts with 2-10 addresses (14-70 octets):
 *
 *		* Destination Address
 *		* Source Address
 *		* 0-8 Digipeater Addresses
 *
 *		Each address is composed of:
 *
 *		* 6 upper case letters or digits, blank padded,
 *		  shifted left one bit so the LSB is always 0.
 *
 *		* a 7th octet containing the SSID and flags:
 *
 *			C R R SSID E
 *
 *		  C is the command/response bit on destination and source,
 *		  or "has been repeated" on a digipeater.  R R are reserved
 *		  and set to 1.  E is set only on the last address.
 *
 *		Next is the one byte control field, a PID byte for I and
 *		UI frames, and 0-256 bytes of information.
 *
 *		The two byte FCS is not part of the packet object; it is
 *		appended and checked by the framing layers.
 *
 *------------------------------------------------------------------*/

import (
	"fmt"
	"strconv"
	"strings"
)

const AX25_MAX_REPEATERS = 8
const AX25_MIN_ADDRS = 2
const AX25_MAX_ADDRS = 10 /* Destination, Source, 8 digipeaters. */

const AX25_DESTINATION = 0 /* Address positions in frame. */
const AX25_SOURCE = 1
const AX25_REPEATER_1 = 2
const AX25_REPEATER_2 = 3
const AX25_REPEATER_3 = 4
const AX25_REPEATER_4 = 5
const AX25_REPEATER_5 = 6
const AX25_REPEATER_6 = 7
const AX25_REPEATER_7 = 8
const AX25_REPEATER_8 = 9

const AX25_MAX_ADDR_LEN = 12 /* In theory, 6 + dash + 2 for SSID. */

const AX25_MIN_INFO_LEN = 0
const AX25_MAX_INFO_LEN = 256

/* Address + control + PID + max info.  FCS is not stored. */
const AX25_MAX_PACKET_LEN = AX25_MAX_ADDRS*7 + 2 + 3 + AX25_MAX_INFO_LEN

const AX25_UI_FRAME = 3 /* Control field value for UI. */

const AX25_PID_NO_LAYER_3 = 0xf0
const AX25_PID_SEGMENTATION_FRAGMENT = 0x08
const AX25_PID_ESCAPE_CHARACTER = 0xff

/* The 7th octet of each address. */

const SSID_H_MASK = 0x80 /* Command/response or has-been-repeated. */
const SSID_RR_MASK = 0x60 /* Reserved, set to 1 1 when not used. */
const SSID_SSID_MASK = 0x1e
const SSID_SSID_SHIFT = 1
const SSID_LAST_MASK = 0x01 /* End of address field. */

type packet_t struct {
	frame_data []byte /* The whole frame, without FCS. */
	num_addr   int    /* Lazily derived from the E bits at parse time. */
}

type cmdres_t int

const (
	cr_res cmdres_t = 0 // Response: dest C = 0, source C = 1.
	cr_cmd cmdres_t = 1 // Command: dest C = 1, source C = 0.
	cr_00  cmdres_t = 2 // Both zero, seen from pre-2.0 stations.
	cr_11  cmdres_t = 3 // Both one, same deal.
)

type ax25_frame_type_t int

const (
	frame_type_I      ax25_frame_type_t = iota // Information
	frame_type_S_RR                            // Receive Ready - System Ready To Receive
	frame_type_S_RNR                           // Receive Not Ready - TNC Buffer Full
	frame_type_S_REJ                           // Reject Frame - Out of Sequence or Duplicate
	frame_type_S_SREJ                          // Selective Reject - Request single frame repeat
	frame_type_U_SABM                          // Set Async Balanced Mode
	frame_type_U_DISC                          // Disconnect
	frame_type_U_DM                            // Disconnect Mode
	frame_type_U_UA                            // Unnumbered Acknowledge
	frame_type_U_FRMR                          // Frame Reject
	frame_type_U_UI                            // Unnumbered Information
	frame_type_U_XID                           // Exchange Identification
	frame_type_U_TEST                          // Test
	frame_type_U                               // other Unnumbered, not used by AX.25.
	frame_not_AX25                             // Could not get control byte from frame.
)

/*------------------------------------------------------------------
 *
 * Function:	ax25_parse_addr
 *
 * Purpose:	Split a callsign of the form "W1AW-5" into the base
 *		callsign and the SSID.
 *
 * Returns:	Callsign (upper case, at most 6 characters), SSID 0-15,
 *		or an error for anything that can't go in an address field.
 *
 *------------------------------------------------------------------*/

func ax25_parse_addr(in string) (string, int, error) {
	var call, ssid_text, has_ssid = strings.Cut(strings.ToUpper(strings.TrimSpace(in)), "-")

	if len(call) == 0 || len(call) > 6 {
		return "", 0, fmt.Errorf("%w: callsign %q must be 1-6 characters", ErrInvalidArgument, in)
	}

	for _, c := range call {
		if (c < 'A' || c > 'Z') && (c < '0' || c > '9') {
			return "", 0, fmt.Errorf("%w: callsign %q may contain only letters and digits", ErrInvalidArgument, in)
		}
	}

	var ssid = 0
	if has_ssid {
		var n, err = strconv.Atoi(ssid_text)
		if err != nil || n < 0 || n > 15 {
			return "", 0, fmt.Errorf("%w: SSID in %q must be 0-15", ErrInvalidArgument, in)
		}
		ssid = n
	}

	return call, ssid, nil
}

// Write one encoded address into the frame at address position n.

func ax25_set_addr_field(frame []byte, n int, addr string) error {
	var call, ssid, err = ax25_parse_addr(addr)
	if err != nil {
		return err
	}

	for i := 0; i < 6; i++ {
		if i < len(call) {
			frame[n*7+i] = call[i] << 1
		} else {
			frame[n*7+i] = ' ' << 1
		}
	}
	frame[n*7+6] = byte(ssid)<<SSID_SSID_SHIFT | SSID_RR_MASK

	return nil
}

/*------------------------------------------------------------------
 *
 * Function:	ax25_from_frame
 *
 * Purpose:	Turn received bytes (FCS already checked and removed)
 *		into a packet object.
 *
 * Returns:	Packet object or nil if the frame is malformed:
 *		truncated address field, no end-of-address bit within
 *		ten addresses, missing control or PID, oversized info.
 *
 *------------------------------------------------------------------*/

func ax25_from_frame(fbuf []byte) *packet_t {
	// Shortest frame: two addresses and a control byte.
	if len(fbuf) < AX25_MIN_ADDRS*7+1 {
		return nil
	}
	if len(fbuf) > AX25_MAX_PACKET_LEN {
		return nil
	}

	// Count addresses by walking the E bits.

	var num_addr = 0
	for {
		if (num_addr+1)*7 > len(fbuf) {
			return nil // Ran out of bytes before the E bit.
		}
		num_addr++
		if fbuf[num_addr*7-1]&SSID_LAST_MASK != 0 {
			break
		}
		if num_addr >= AX25_MAX_ADDRS {
			return nil // No end in sight.
		}
	}

	if num_addr < AX25_MIN_ADDRS {
		return nil
	}

	// The LSB of every shifted callsign byte must be zero.

	for a := 0; a < num_addr; a++ {
		for i := 0; i < 6; i++ {
			if fbuf[a*7+i]&0x01 != 0 {
				return nil
			}
		}
	}

	if len(fbuf) < num_addr*7+1 {
		return nil // No control byte.
	}

	var pp = &packet_t{
		frame_data: append([]byte(nil), fbuf...),
		num_addr:   num_addr,
	}

	var control = pp.frame_data[num_addr*7]
	if control&0x01 == 0 || control == AX25_UI_FRAME || control&0xef == AX25_UI_FRAME {
		// I or UI frame must carry a PID.
		if len(fbuf) < num_addr*7+2 {
			return nil
		}
	}

	if len(ax25_get_info(pp)) > AX25_MAX_INFO_LEN {
		return nil
	}

	return pp
}

func ax25_dup(pp *packet_t) *packet_t {
	return &packet_t{
		frame_data: append([]byte(nil), pp.frame_data...),
		num_addr:   pp.num_addr,
	}
}

func ax25_get_frame_len(pp *packet_t) int {
	return len(pp.frame_data)
}

// The frame bytes, without FCS.  Shared, not a copy.
func ax25_get_frame_data(pp *packet_t) []byte {
	return pp.frame_data
}

func ax25_get_num_addr(pp *packet_t) int {
	return pp.num_addr
}

func ax25_get_num_repeaters(pp *packet_t) int {
	return pp.num_addr - 2
}

func ax25_get_addr_no_ssid(pp *packet_t, n int) string {
	Assert(n >= 0 && n < pp.num_addr)

	var call [6]byte
	for i := 0; i < 6; i++ {
		call[i] = pp.frame_data[n*7+i] >> 1
	}
	return strings.TrimRight(string(call[:]), " ")
}

func ax25_get_addr_with_ssid(pp *packet_t, n int) string {
	var call = ax25_get_addr_no_ssid(pp, n)
	var ssid = ax25_get_ssid(pp, n)
	if ssid == 0 {
		return call
	}
	return fmt.Sprintf("%s-%d", call, ssid)
}

func ax25_get_ssid(pp *packet_t, n int) int {
	Assert(n >= 0 && n < pp.num_addr)
	return int(pp.frame_data[n*7+6]&SSID_SSID_MASK) >> SSID_SSID_SHIFT
}

func ax25_set_ssid(pp *packet_t, n int, ssid int) {
	Assert(n >= 0 && n < pp.num_addr)
	pp.frame_data[n*7+6] = (pp.frame_data[n*7+6] &^ SSID_SSID_MASK) | (byte(ssid) << SSID_SSID_SHIFT & SSID_SSID_MASK)
}

// The H bit: command/response on destination and source positions,
// has-been-repeated on digipeater positions.

func ax25_get_h(pp *packet_t, n int) bool {
	Assert(n >= 0 && n < pp.num_addr)
	return pp.frame_data[n*7+6]&SSID_H_MASK != 0
}

func ax25_set_h(pp *packet_t, n int) {
	Assert(n >= 0 && n < pp.num_addr)
	pp.frame_data[n*7+6] |= SSID_H_MASK
}

// Index of the station we actually heard: the source, or the last
// digipeater with the has-been-repeated bit set.

func ax25_get_heard(pp *packet_t) int {
	var heard = AX25_SOURCE
	for n := AX25_REPEATER_1; n < pp.num_addr; n++ {
		if ax25_get_h(pp, n) {
			heard = n
		}
	}
	return heard
}

// Command or response, from the C bits of destination and source.

func ax25_get_cmdres(pp *packet_t) cmdres_t {
	var dst = ax25_get_h(pp, AX25_DESTINATION)
	var src = ax25_get_h(pp, AX25_SOURCE)

	switch {
	case dst && !src:
		return cr_cmd
	case !dst && src:
		return cr_res
	case dst && src:
		return cr_11
	default:
		return cr_00
	}
}

func ax25_get_control_offset(pp *packet_t) int {
	return pp.num_addr * 7
}

func ax25_get_control(pp *packet_t) int {
	return int(pp.frame_data[ax25_get_control_offset(pp)])
}

// Modulo 8 only; SABME / modulo 128 is not implemented.
func ax25_get_modulo(pp *packet_t) int {
	return 8
}

func ax25_has_pid(pp *packet_t) bool {
	var control = ax25_get_control(pp)
	return control&0x01 == 0 || control&0xef == AX25_UI_FRAME
}

func ax25_get_pid_offset(pp *packet_t) int {
	return ax25_get_control_offset(pp) + 1
}

func ax25_get_pid(pp *packet_t) int {
	if !ax25_has_pid(pp) {
		return -1
	}
	var off = ax25_get_pid_offset(pp)
	if off >= len(pp.frame_data) {
		return -1
	}
	return int(pp.frame_data[off])
}

func ax25_get_info_offset(pp *packet_t) int {
	var off = ax25_get_control_offset(pp) + 1
	if ax25_has_pid(pp) {
		off++
	}
	return off
}

// The information part.  Shared, not a copy.  Empty slice when absent.
func ax25_get_info(pp *packet_t) []byte {
	var off = ax25_get_info_offset(pp)
	if off >= len(pp.frame_data) {
		return []byte{}
	}
	return pp.frame_data[off:]
}

// Replace the information part.  Used when the payload arrives
// separately from the header, as in IL2P type 1 reception.
func ax25_set_info(pp *packet_t, info []byte) {
	var off = ax25_get_info_offset(pp)
	pp.frame_data = append(pp.frame_data[:off], info...)
}

/*------------------------------------------------------------------
 *
 * Function:	ax25_frame_type
 *
 * Purpose:	Classify a frame and extract the control field parts.
 *
 * Outputs:	cr	- Command or response.
 *		pf	- Poll/Final bit.
 *		nr, ns	- Sequence numbers where applicable, else -1.
 *
 * Returns:	The frame type and a short description for logging.
 *
 *------------------------------------------------------------------*/

func ax25_frame_type(pp *packet_t) (ax25_frame_type_t, cmdres_t, string, int, int, int) {
	var cr = ax25_get_cmdres(pp)

	var c = ax25_get_control(pp)
	if c < 0 {
		return frame_not_AX25, cr, "Not AX.25", -1, -1, -1
	}

	var pf = (c >> 4) & 1

	if c&1 == 0 {
		// I frame: N(R) P N(S) 0
		var nr = (c >> 5) & 7
		var ns = (c >> 1) & 7
		return frame_type_I, cr, fmt.Sprintf("I frame, n(s)=%d, n(r)=%d, p/f=%d", ns, nr, pf), pf, nr, ns
	}

	if c&2 == 0 {
		// S frame: N(R) P/F S S 0 1
		var nr = (c >> 5) & 7
		switch (c >> 2) & 3 {
		case 0:
			return frame_type_S_RR, cr, fmt.Sprintf("RR, n(r)=%d, p/f=%d", nr, pf), pf, nr, -1
		case 1:
			return frame_type_S_RNR, cr, fmt.Sprintf("RNR, n(r)=%d, p/f=%d", nr, pf), pf, nr, -1
		case 2:
			return frame_type_S_REJ, cr, fmt.Sprintf("REJ, n(r)=%d, p/f=%d", nr, pf), pf, nr, -1
		default:
			return frame_type_S_SREJ, cr, fmt.Sprintf("SREJ, n(r)=%d, p/f=%d", nr, pf), pf, nr, -1
		}
	}

	// U frame: M M M P/F M M 1 1
	switch c & 0xef {
	case 0x2f:
		return frame_type_U_SABM, cr, fmt.Sprintf("SABM, p=%d", pf), pf, -1, -1
	case 0x43:
		return frame_type_U_DISC, cr, fmt.Sprintf("DISC, p=%d", pf), pf, -1, -1
	case 0x0f:
		return frame_type_U_DM, cr, fmt.Sprintf("DM, f=%d", pf), pf, -1, -1
	case 0x63:
		return frame_type_U_UA, cr, fmt.Sprintf("UA, f=%d", pf), pf, -1, -1
	case 0x87:
		return frame_type_U_FRMR, cr, fmt.Sprintf("FRMR, f=%d", pf), pf, -1, -1
	case 0x03:
		return frame_type_U_UI, cr, fmt.Sprintf("UI, pid=0x%02x, p/f=%d", ax25_get_pid(pp), pf), pf, -1, -1
	case 0xaf:
		return frame_type_U_XID, cr, fmt.Sprintf("XID, p/f=%d", pf), pf, -1, -1
	case 0xe3:
		return frame_type_U_TEST, cr, fmt.Sprintf("TEST, p/f=%d", pf), pf, -1, -1
	default:
		return frame_type_U, cr, fmt.Sprintf("U frame, control=0x%02x", c), pf, -1, -1
	}
}

// Human readable address part for logging: SOURCE>DEST,DIGI*,DIGI:
// The info part is not included.

func ax25_format_addrs(pp *packet_t) string {
	var sb strings.Builder

	sb.WriteString(ax25_get_addr_with_ssid(pp, AX25_SOURCE))
	sb.WriteByte('>')
	sb.WriteString(ax25_get_addr_with_ssid(pp, AX25_DESTINATION))

	var heard = ax25_get_heard(pp)
	for n := AX25_REPEATER_1; n < pp.num_addr; n++ {
		sb.WriteByte(',')
		sb.WriteString(ax25_get_addr_with_ssid(pp, n))
		if n == heard && n >= AX25_REPEATER_1 {
			sb.WriteByte('*')
		}
	}
	sb.WriteByte(':')

	return sb.String()
}
