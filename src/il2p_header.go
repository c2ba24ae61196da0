package packetprotocols

/*--------------------------------------------------------------------------------
 *
 * Purpose:	Functions to deal with the IL2P header.
 *
 * Reference:	http://tarpn.net/t/il2p/il2p-specification0-4.pdf
 *
 *--------------------------------------------------------------------------------*/

import (
	"fmt"
	"strings"
)

// Convert ASCII to/from DEC SIXBIT as defined here:
// https://en.wikipedia.org/wiki/Six-bit_character_code#DEC_six-bit_code

func ascii_to_sixbit(a byte) byte {
	if a >= ' ' && a <= '_' {
		return a - ' '
	}
	return 31 // '?' for any invalid.
}

func sixbit_to_ascii(s byte) byte {
	return s + ' '
}

// Functions for setting the various header fields.
// It is assumed that it was zeroed first so only the '1' bits are set.
// Fields are vertical: bit bit_num of consecutive header bytes, with
// lsb_index the byte holding the least significant bit.

func set_il2p_field(hdr []byte, bit_num int, lsb_index int, width int, value int) {
	for width > 0 && value != 0 {
		Assert(lsb_index >= 0 && lsb_index <= 11)
		if value&1 != 0 {
			hdr[lsb_index] |= 1 << bit_num
		}
		value >>= 1
		lsb_index--
		width--
	}
	Assert(value == 0)
}

func SET_UI(hdr []byte, val int)                 { set_il2p_field(hdr, 6, 0, 1, val) }
func SET_PID(hdr []byte, val int)                { set_il2p_field(hdr, 6, 4, 4, val) }
func SET_CONTROL(hdr []byte, val int)            { set_il2p_field(hdr, 6, 11, 7, val) }
func SET_FEC_LEVEL(hdr []byte, val int)          { set_il2p_field(hdr, 7, 0, 1, val) }
func SET_HDR_TYPE(hdr []byte, val int)           { set_il2p_field(hdr, 7, 1, 1, val) }
func SET_PAYLOAD_BYTE_COUNT(hdr []byte, val int) { set_il2p_field(hdr, 7, 11, 10, val) }

// Extracting the fields.

func get_il2p_field(hdr []byte, bit_num int, lsb_index int, width int) int {
	var result = 0
	lsb_index -= width - 1
	for width > 0 {
		result <<= 1
		Assert(lsb_index >= 0 && lsb_index <= 11)
		if hdr[lsb_index]&(1<<bit_num) != 0 {
			result |= 1
		}
		lsb_index++
		width--
	}
	return result
}

func GET_UI(hdr []byte) int                 { return get_il2p_field(hdr, 6, 0, 1) }
func GET_PID(hdr []byte) int                { return get_il2p_field(hdr, 6, 4, 4) }
func GET_CONTROL(hdr []byte) int            { return get_il2p_field(hdr, 6, 11, 7) }
func GET_FEC_LEVEL(hdr []byte) int          { return get_il2p_field(hdr, 7, 0, 1) }
func GET_HDR_TYPE(hdr []byte) int           { return get_il2p_field(hdr, 7, 1, 1) }
func GET_PAYLOAD_BYTE_COUNT(hdr []byte) int { return get_il2p_field(hdr, 7, 11, 10) }

// AX.25 'I' and 'UI' frames have a protocol ID which determines how the
// information part should be interpreted.
// Here we squeeze the most common cases down to 4 bits.
// Return -1 if translation is not possible.  Fall back to type 0 header
// in this case.

func encode_pid(pp *packet_t) int {
	var pid = ax25_get_pid(pp)

	if pid&0x30 == 0x20 || pid&0x30 == 0x10 {
		return 0x2 // AX.25 Layer 3
	}
	switch pid {
	case 0x01:
		return 0x3 // ISO 8208 / CCIT X.25 PLP
	case 0x06:
		return 0x4 // Compressed TCP/IP
	case 0x07:
		return 0x5 // Uncompressed TCP/IP
	case 0x08:
		return 0x6 // Segmentation fragment
	case 0xcc:
		return 0xb // ARPA Internet Protocol
	case 0xcd:
		return 0xc // ARPA Address Resolution
	case 0xce:
		return 0xd // FlexNet
	case 0xcf:
		return 0xe // TheNET
	case 0xf0:
		return 0xf // No L3
	}
	return -1
}

// Convert IL2P 4 bit PID to AX.25 8 bit PID.

var il2p_axpid = [16]int{
	0xf0, // Should not happen. 0 is for 'S' frames.
	0xf0, // Should not happen. 1 is for 'U' frames (but not UI).
	0x20, // AX.25 Layer 3
	0x01, // ISO 8208 / CCIT X.25 PLP
	0x06, // Compressed TCP/IP
	0x07, // Uncompressed TCP/IP
	0x08, // Segmentation fragment
	0xf0, // Future
	0xf0, // Future
	0xf0, // Future
	0xf0, // Future
	0xcc, // ARPA Internet Protocol
	0xcd, // ARPA Address Resolution
	0xce, // FlexNet
	0xcf, // TheNET
	0xf0, // No L3
}

func decode_pid(pid int) int {
	Assert(pid >= 0 && pid <= 15)
	return il2p_axpid[pid]
}

/*--------------------------------------------------------------------------------
 *
 * Function:	il2p_type_1_header
 *
 * Purpose:	Attempt to create type 1 header from packet object.
 *
 * Inputs:	pp	- Packet object.
 *
 *		max_fec	- 1 to use maximum FEC symbols, 0 for automatic.
 *
 * Returns:	Header (IL2P_HEADER_SIZE bytes, no scrambling or parity)
 *		and the number of bytes for the information part, or a
 *		negative count for failure.  In case of -1, fall back to
 *		type 0 transparent encapsulation.
 *
 * Description:	Type 1 Headers do not support AX.25 repeater callsign
 *		addressing, Modulo-128 extended mode window sequence
 *		numbers, nor any callsign characters that cannot
 *		translate to DEC SIXBIT.
 *
 *--------------------------------------------------------------------------------*/

func il2p_type_1_header(pp *packet_t, max_fec int) ([]byte, int) {
	var hdr = make([]byte, IL2P_HEADER_SIZE)

	if ax25_get_num_addr(pp) != 2 {
		// Only two addresses are allowed for type 1 header.
		return hdr, -1
	}

	if ax25_get_modulo(pp) == 128 {
		return hdr, -1
	}

	// Destination and source addresses go into low bits 0-5 for bytes 0-11.

	var dst_addr = ax25_get_addr_no_ssid(pp, AX25_DESTINATION)
	var dst_ssid = ax25_get_ssid(pp, AX25_DESTINATION)

	var src_addr = ax25_get_addr_no_ssid(pp, AX25_SOURCE)
	var src_ssid = ax25_get_ssid(pp, AX25_SOURCE)

	for i := 0; i < len(dst_addr); i++ {
		if dst_addr[i] < ' ' || dst_addr[i] > '_' {
			// Shouldn't happen but follow the rule.
			return hdr, -1
		}
		hdr[i] = ascii_to_sixbit(dst_addr[i])
	}

	for i := 0; i < len(src_addr); i++ {
		if src_addr[i] < ' ' || src_addr[i] > '_' {
			return hdr, -1
		}
		hdr[6+i] = ascii_to_sixbit(src_addr[i])
	}

	// Byte 12 has DEST SSID in upper nybble and SRC SSID in lower nybble.
	hdr[12] = byte(dst_ssid<<4) | byte(src_ssid)

	var frame_type, cr, _, pf, nr, ns = ax25_frame_type(pp)

	switch frame_type {

	case frame_type_S_RR, frame_type_S_RNR, frame_type_S_REJ, frame_type_S_SREJ:

		// S frames (RR, RNR, REJ, SREJ), mod 8, have control N(R) P/F S S 0 1.
		// These are mapped into    P/F N(R) C S S.
		// C is copied from the C bit in the destination addr.
		// PID is set to 0, meaning none, for S frames.

		SET_UI(hdr, 0)
		SET_PID(hdr, 0)
		SET_CONTROL(hdr, (pf<<6)|(nr<<3)|((IfThenElse(cr == cr_cmd, 1, 0)|IfThenElse(cr == cr_11, 1, 0))<<2))

		// This gets OR'ed into the above.
		switch frame_type {
		case frame_type_S_RR:
			SET_CONTROL(hdr, 0)
		case frame_type_S_RNR:
			SET_CONTROL(hdr, 1)
		case frame_type_S_REJ:
			SET_CONTROL(hdr, 2)
		case frame_type_S_SREJ:
			SET_CONTROL(hdr, 3)
		default:
		}

	case frame_type_U_SABM, frame_type_U_DISC, frame_type_U_DM, frame_type_U_UA,
		frame_type_U_FRMR, frame_type_U_UI, frame_type_U_XID, frame_type_U_TEST:

		// The encoding allows only 3 bits for frame type and SABME got left out.
		// Control format:  P/F opcode[3] C n/a n/a
		// The header UI field must also be set for UI frames.
		// PID is set to 1 for all U frames other than UI.

		if frame_type == frame_type_U_UI {
			SET_UI(hdr, 1) // This is how we distinguish 'I' and 'UI' on receive.
			var pid = encode_pid(pp)
			if pid < 0 {
				return hdr, -1
			}
			SET_PID(hdr, pid)
		} else {
			SET_PID(hdr, 1) // 1 for 'U' other than 'UI'.
		}

		// IL2P has only a single bit for the two C bits.  Copy from
		// the C bit in the destination address.

		SET_CONTROL(hdr, (pf<<6)|((IfThenElse(cr == cr_cmd, 1, 0)|IfThenElse(cr == cr_11, 1, 0))<<2))

		// This gets OR'ed into the above.
		switch frame_type {
		case frame_type_U_SABM:
			SET_CONTROL(hdr, 0<<3)
		case frame_type_U_DISC:
			SET_CONTROL(hdr, 1<<3)
		case frame_type_U_DM:
			SET_CONTROL(hdr, 2<<3)
		case frame_type_U_UA:
			SET_CONTROL(hdr, 3<<3)
		case frame_type_U_FRMR:
			SET_CONTROL(hdr, 4<<3)
		case frame_type_U_UI:
			SET_CONTROL(hdr, 5<<3)
		case frame_type_U_XID:
			SET_CONTROL(hdr, 6<<3)
		case frame_type_U_TEST:
			SET_CONTROL(hdr, 7<<3)
		default:
		}

	case frame_type_I:

		// I frames (mod 8 only)
		// encoded control: P/F N(R) N(S)

		SET_UI(hdr, 0)

		var pid2 = encode_pid(pp)
		if pid2 < 0 {
			return hdr, -1
		}
		SET_PID(hdr, pid2)

		SET_CONTROL(hdr, (pf<<6)|(nr<<3)|ns)

	default:
		// Fall back to the header type 0 for these.
		return hdr, -1
	}

	// Common for all header type 1.

	// Bit 7 has [FEC Level:1], [HDR Type:1], [Payload byte Count:10]

	SET_FEC_LEVEL(hdr, max_fec)
	SET_HDR_TYPE(hdr, 1)

	var info_len = len(ax25_get_info(pp))
	if info_len > IL2P_MAX_PAYLOAD_SIZE {
		return hdr, -2
	}

	SET_PAYLOAD_BYTE_COUNT(hdr, info_len)
	return hdr, info_len
}

/*--------------------------------------------------------------------------------
 *
 * Function:	il2p_decode_header_type_1
 *
 * Purpose:	Attempt to convert type 1 header to a packet object.
 *
 * Inputs:	hdr - IL2P header with no scrambling or parity symbols.
 *
 *		num_sym_changed - Number of symbols changed by FEC in the
 *				header.  Should be 0 or 1.
 *
 * Returns:	Packet Object or nil for failure.
 *
 * Description:	A later step will process the payload for the
 *		information part.
 *
 *--------------------------------------------------------------------------------*/

func il2p_decode_header_type_1(hdr []byte, num_sym_changed int) *packet_t {
	if GET_HDR_TYPE(hdr) != 1 {
		text_color_set(DW_COLOR_ERROR)
		dw_printf("IL2P Internal error.  Should not be here: il2p_decode_header_type_1, when header type is 0.\n")
		return nil
	}

	// First get the addresses including SSID.

	// The IL2P header uses 2 parity symbols which means a single corrupted
	// symbol (byte) can always be corrected.  However, under a very high
	// error rate the RS decoder can think it found a valid code block by
	// changing one symbol but it was the wrong one, producing trash
	// address fields.  A sanity check catches characters other than upper
	// case letters and digits and rejects the frame.

	var dst = make([]byte, 0, 6)
	for i := 0; i <= 5; i++ {
		dst = append(dst, sixbit_to_ascii(hdr[i]&0x3f))
	}
	var dst_addr = strings.TrimRight(string(dst), " ")
	for i := 0; i < len(dst_addr); i++ {
		var c = dst_addr[i]
		if !(c >= 'A' && c <= 'Z') && !(c >= '0' && c <= '9') {
			return nil
		}
	}
	var dst_ssid = int(hdr[12]>>4) & 0xf

	var src = make([]byte, 0, 6)
	for i := 0; i <= 5; i++ {
		src = append(src, sixbit_to_ascii(hdr[i+6]&0x3f))
	}
	var src_addr = strings.TrimRight(string(src), " ")
	for i := 0; i < len(src_addr); i++ {
		var c = src_addr[i]
		if !(c >= 'A' && c <= 'Z') && !(c >= '0' && c <= '9') {
			return nil
		}
	}
	var src_ssid = int(hdr[12]) & 0xf

	if len(dst_addr) == 0 || len(src_addr) == 0 {
		return nil
	}

	var addrs = []string{
		fmt.Sprintf("%s-%d", dst_addr, dst_ssid),
		fmt.Sprintf("%s-%d", src_addr, src_ssid),
	}

	// The PID field gives us the general type.
	// 0 = 'S' frame.
	// 1 = 'U' frame other than UI.
	// others are either 'UI' or 'I' depending on the UI field.

	var pid = GET_PID(hdr)
	var ui = GET_UI(hdr)

	if pid == 0 {

		// 'S' frame.
		// The control field contains: P/F N(R) C S S

		var control = GET_CONTROL(hdr)
		var cr = IfThenElse(control&0x04 != 0, cr_cmd, cr_res)
		var ftype ax25_frame_type_t
		switch control & 0x03 {
		case 0:
			ftype = frame_type_S_RR
		case 1:
			ftype = frame_type_S_RNR
		case 2:
			ftype = frame_type_S_REJ
		default:
			ftype = frame_type_S_SREJ
		}
		var nr = (control >> 3) & 0x07
		var pf = (control >> 6) & 0x01
		var pp, _ = ax25_s_frame(addrs, cr, ftype, nr, pf)
		return pp
	} else if pid == 1 {

		// 'U' frame other than 'UI'.
		// The control field contains: P/F OPCODE{3} C x x

		var control = GET_CONTROL(hdr)
		var cr = IfThenElse(control&0x04 != 0, cr_cmd, cr_res)
		var axpid = 0 // unused for U other than UI.
		var ftype ax25_frame_type_t
		switch (control >> 3) & 0x7 {
		case 0:
			ftype = frame_type_U_SABM
		case 1:
			ftype = frame_type_U_DISC
		case 2:
			ftype = frame_type_U_DM
		case 3:
			ftype = frame_type_U_UA
		case 4:
			ftype = frame_type_U_FRMR
		case 5:
			ftype = frame_type_U_UI
			axpid = 0xf0
			// Should not happen with IL2P pid == 1.
		case 6:
			ftype = frame_type_U_XID
		default:
			ftype = frame_type_U_TEST
		}
		var pf = (control >> 6) & 0x01
		var pp, _ = ax25_u_frame(addrs, cr, ftype, pf, axpid, nil)
		return pp
	} else if ui != 0 {

		// 'UI' frame.
		// The control field contains: P/F OPCODE{3} C x x

		var control = GET_CONTROL(hdr)
		var cr = IfThenElse(control&0x04 != 0, cr_cmd, cr_res)
		var pf = (control >> 6) & 0x01
		var axpid = decode_pid(GET_PID(hdr))
		var pp, _ = ax25_u_frame(addrs, cr, frame_type_U_UI, pf, axpid, nil)
		return pp
	} else {

		// 'I' frame.
		// The control field contains: P/F N(R) N(S)

		var control = GET_CONTROL(hdr)
		var pf = (control >> 6) & 0x01
		var nr = (control >> 3) & 0x7
		var ns = control & 0x7
		var axpid = decode_pid(GET_PID(hdr))
		var pp, _ = ax25_i_frame(addrs, cr_cmd, nr, ns, pf, axpid, nil)
		return pp
	}
}

/*--------------------------------------------------------------------------------
 *
 * Function:	il2p_type_0_header
 *
 * Purpose:	Attempt to create type 0 header from packet object.
 *
 * Inputs:	pp	- Packet object.
 *
 *		max_fec	- 1 to use maximum FEC symbols, 0 for automatic.
 *
 * Returns:	Header and the number of bytes for the information part
 *		(the whole AX.25 frame), or a negative count for failure.
 *
 * Description:	The type 0 header is used when it is not one of the
 *		restricted cases covered by the type 1 header: more than
 *		one address, mod 128 sequences, etc.  The AX.25 frame is
 *		put in the payload.
 *
 *--------------------------------------------------------------------------------*/

func il2p_type_0_header(pp *packet_t, max_fec int) ([]byte, int) {
	var hdr = make([]byte, IL2P_HEADER_SIZE)

	// Bit 7 has [FEC Level:1], [HDR Type:1], [Payload byte Count:10]

	SET_FEC_LEVEL(hdr, max_fec)
	SET_HDR_TYPE(hdr, 0)

	var frame_len = ax25_get_frame_len(pp)

	if frame_len < MIN_FRAME_LEN-2 || frame_len > IL2P_MAX_PAYLOAD_SIZE {
		return hdr, -2
	}

	SET_PAYLOAD_BYTE_COUNT(hdr, frame_len)
	return hdr, frame_len
}

/***********************************************************************************
 *
 * Name:        il2p_get_header_attributes
 *
 * Purpose:     Extract a few attributes from an IL2P header.
 *
 * Inputs:      hdr	- Descrambled, corrected IL2P header.
 *
 * Returns:	Header type (0 or 1), max_fec (0 or 1), payload byte count.
 *
 ***********************************************************************************/

func il2p_get_header_attributes(hdr []byte) (int, int, int) {
	return GET_HDR_TYPE(hdr), GET_FEC_LEVEL(hdr), GET_PAYLOAD_BYTE_COUNT(hdr)
}

/***********************************************************************************
 *
 * Name:        il2p_clarify_header
 *
 * Purpose:     Convert received header to usable form.
 *		This involves RS FEC then descrambling.
 *
 * Inputs:      rec_hdr	- Header as received over the radio,
 *			  IL2P_HEADER_SIZE + IL2P_HEADER_PARITY bytes.
 *
 * Returns:	Corrected, descrambled header and the number of symbols
 *		that were corrected:
 *		 0 = No errors
 *		 1 = Single symbol corrected.
 *		 <0 = Unable to obtain good header.
 *
 ***********************************************************************************/

func il2p_clarify_header(rec_hdr []byte) ([]byte, int) {
	var corrected, e = il2p_decode_rs(rec_hdr, IL2P_HEADER_PARITY)
	return il2p_descramble_block(corrected), e
}
