package packetprotocols

// SPDX-FileCopyrightText: 2002 Phil Karn, KA9Q
// SPDX-FileCopyrightText: 2007 Jim McGuire KB3MPL

/*
 * Reference:	http://www.stensat.org/docs/FX-25_01_06.pdf
 *				FX.25
 *		Forward Error Correction Extension to
 *		AX.25 Link Protocol For Amateur Packet Radio
 *		Version: 0.01 DRAFT
 *		Date: 01 September 2006
 */

import (
	"math/bits"
)

const CTAG_MIN = 0x01
const CTAG_MAX = 0x0B

// Maximum sizes of "data" and "check" parts.

const FX25_MAX_DATA = 239   // i.e. RS(255,239)
const FX25_MAX_CHECK = 64   // e.g. RS(255, 191)
const FX25_BLOCK_SIZE = 255 // Block size always 255 for 8 bit symbols.

const FX25_NTAB = 3

var fx25Tab = [FX25_NTAB]struct {
	fcr    int   // First root of RS code generator polynomial, index form.
	nroots int   // RS code generator polynomial degree (number of roots).
	rs     *rs_t // RS codec control block.  Filled in at init time.
}{
	{1, 16, nil}, // RS(255,239)
	{1, 32, nil}, // RS(255,223)
	{1, 64, nil}, // RS(255,191)
}

type correlation_tag_s struct {
	value         uint64 // 64 bit value, send LSB first.
	n_block_radio int    // Size of transmitted block, all in bytes.
	k_data_radio  int    // Size of transmitted data part.
	n_block_rs    int    // Size of RS algorithm block.
	k_data_rs     int    // Size of RS algorithm data part.
	itab          int    // Index into fx25Tab array.
}

var fx25Tags = [16]correlation_tag_s{
	/* Tag_00 */ {0x566ED2717946107E, 0, 0, 0, 0, -1}, //  Reserved

	/* Tag_01 */ {0xB74DB7DF8A532F3E, 255, 239, 255, 239, 0}, //  RS(255, 239) 16-byte check value, 239 information bytes
	/* Tag_02 */ {0x26FF60A600CC8FDE, 144, 128, 255, 239, 0}, //  RS(144,128) - shortened RS(255, 239), 128 info bytes
	/* Tag_03 */ {0xC7DC0508F3D9B09E, 80, 64, 255, 239, 0}, //  RS(80,64) - shortened RS(255, 239), 64 info bytes
	/* Tag_04 */ {0x8F056EB4369660EE, 48, 32, 255, 239, 0}, //  RS(48,32) - shortened RS(255, 239), 32 info bytes

	/* Tag_05 */ {0x6E260B1AC5835FAE, 255, 223, 255, 223, 1}, //  RS(255, 223) 32-byte check value, 223 information bytes
	/* Tag_06 */ {0xFF94DC634F1CFF4E, 160, 128, 255, 223, 1}, //  RS(160,128) - shortened RS(255, 223), 128 info bytes
	/* Tag_07 */ {0x1EB7B9CDBC09C00E, 96, 64, 255, 223, 1}, //  RS(96,64) - shortened RS(255, 223), 64 info bytes
	/* Tag_08 */ {0xDBF869BD2DBB1776, 64, 32, 255, 223, 1}, //  RS(64,32) - shortened RS(255, 223), 32 info bytes

	/* Tag_09 */ {0x3ADB0C13DEAE2836, 255, 191, 255, 191, 2}, //  RS(255, 191) 64-byte check value, 191 information bytes
	/* Tag_0A */ {0xAB69DB6A543188D6, 192, 128, 255, 191, 2}, //  RS(192, 128) - shortened RS(255, 191), 128 info bytes
	/* Tag_0B */ {0x4A4ABEC4A724B796, 128, 64, 255, 191, 2}, //  RS(128, 64) - shortened RS(255, 191), 64 info bytes

	/* Tag_0C */ {0x0293D578626B67E6, 0, 0, 0, 0, -1}, //  Undefined
	/* Tag_0D */ {0xE3B0B0D6917E58A6, 0, 0, 0, 0, -1}, //  Undefined
	/* Tag_0E */ {0x720267AF1BE1F846, 0, 0, 0, 0, -1}, //  Undefined
	/* Tag_0F */ {0x93210201E8F4C706, 0, 0, 0, 0, -1}, //  Undefined
}

const CLOSE_ENOUGH = 8 // How many bits can be wrong in tag yet consider it a match?
// The Hamming distance between any two tags is 32 so this leaves
// a wide margin before false matches become a concern.

// Given a 64 bit correlation tag value, find acceptable match in table.
// Return index into table or -1 for no match.

func fx25_tag_find_match(t uint64) int {
	for c := CTAG_MIN; c <= CTAG_MAX; c++ {
		if bits.OnesCount64(t^fx25Tags[c].value) <= CLOSE_ENOUGH {
			return c
		}
	}
	return -1
}

var g_fx25_debug_level int

/*-------------------------------------------------------------
 *
 * Name:	fx25_init
 *
 * Purpose:	This must be called once before any of the other fx25
 *		functions.
 *
 * Inputs:	debug_level - Controls level of informational / debug
 *		messages.
 *
 *			0		Only errors.
 *			1 (default)	Transmitting ctag.
 *			2 		Receive tag detected, FEC complete.
 *			3		Dump data going in and out.
 *
 * Description:	Initialize 3 Reed-Solomon codecs, for 16, 32, and 64
 *		check bytes.
 *
 *--------------------------------------------------------------*/

func fx25_init(debug_level int) {
	g_fx25_debug_level = debug_level

	for i := 0; i < FX25_NTAB; i++ {
		fx25Tab[i].rs = init_rs_char(fx25Tab[i].fcr, fx25Tab[i].nroots)
		if fx25Tab[i].rs == nil {
			text_color_set(DW_COLOR_ERROR)
			dw_printf("FX.25 internal error: init_rs_char failed!\n")
			panic("fx25_init")
		}
	}

	// Verify integrity of tables and assumptions.

	for j := 0; j < 16; j++ {
		for k := 0; k < 16; k++ {
			if j == k {
				Assert(bits.OnesCount64(fx25Tags[j].value^fx25Tags[k].value) == 0)
			} else {
				Assert(bits.OnesCount64(fx25Tags[j].value^fx25Tags[k].value) == 32)
			}
		}
	}

	for j := CTAG_MIN; j <= CTAG_MAX; j++ {
		Assert(fx25Tags[j].n_block_radio-fx25Tags[j].k_data_radio == fx25Tab[fx25Tags[j].itab].nroots)
		Assert(fx25Tags[j].n_block_rs-fx25Tags[j].k_data_rs == fx25Tab[fx25Tags[j].itab].nroots)
		Assert(fx25Tags[j].n_block_rs == FX25_BLOCK_SIZE)
	}
}

// Get properties of specified CTAG number.

func fx25_get_rs(ctag_num int) *rs_t {
	Assert(ctag_num >= CTAG_MIN && ctag_num <= CTAG_MAX)
	Assert(fx25Tags[ctag_num].itab >= 0 && fx25Tags[ctag_num].itab < FX25_NTAB)
	Assert(fx25Tab[fx25Tags[ctag_num].itab].rs != nil)
	return fx25Tab[fx25Tags[ctag_num].itab].rs
}

func fx25_get_ctag_value(ctag_num int) uint64 {
	Assert(ctag_num >= CTAG_MIN && ctag_num <= CTAG_MAX)
	return fx25Tags[ctag_num].value
}

func fx25_get_k_data_radio(ctag_num int) int {
	Assert(ctag_num >= CTAG_MIN && ctag_num <= CTAG_MAX)
	return fx25Tags[ctag_num].k_data_radio
}

func fx25_get_k_data_rs(ctag_num int) int {
	Assert(ctag_num >= CTAG_MIN && ctag_num <= CTAG_MAX)
	return fx25Tags[ctag_num].k_data_rs
}

func fx25_get_nroots(ctag_num int) int {
	Assert(ctag_num >= CTAG_MIN && ctag_num <= CTAG_MAX)
	return fx25Tab[fx25Tags[ctag_num].itab].nroots
}

func fx25_get_debug() int {
	return g_fx25_debug_level
}

/*-------------------------------------------------------------
 *
 * Name:	fx25_pick_mode
 *
 * Purpose:	Pick suitable transmission format based on user preference
 *		and size of data part required.
 *
 * Inputs:	fx_mode	- 0 = none.
 *			1 = pick a tag automatically.
 *			16, 32, 64 = use this many check bytes.
 *			100 + n = use tag n.
 *
 *		dlen - 	Required size for transmitted "data" part, in bytes.
 *			This includes the AX.25 frame with bit stuffing and
 *			a flag pattern on each end.
 *
 * Returns:	Correlation tag number in range of CTAG_MIN thru CTAG_MAX.
 *		-1 is returned for failure.
 *		The caller should fall back to using plain old AX.25.
 *
 *--------------------------------------------------------------*/

func fx25_pick_mode(fx_mode int, dlen int) int {
	if fx_mode <= 0 {
		return -1
	}

	// Specify a specific tag by adding 100 to the number.
	// Fails if data won't fit.

	if fx_mode-100 >= CTAG_MIN && fx_mode-100 <= CTAG_MAX {
		if dlen <= fx25_get_k_data_radio(fx_mode-100) {
			return fx_mode - 100
		}
		return -1 // Assuming caller prints failure message.
	}

	// Specify number of check bytes.
	// Pick the shortest one that can handle the required data length.

	if fx_mode == 16 || fx_mode == 32 || fx_mode == 64 {
		for k := CTAG_MAX; k >= CTAG_MIN; k-- {
			if fx_mode == fx25_get_nroots(k) && dlen <= fx25_get_k_data_radio(k) {
				return k
			}
		}
		return -1
	}

	// For any other number try to come up with something reasonable.
	// For shorter frames, use smaller overhead.  For longer frames,
	// where an error is more probable, use more check bytes.  When
	// the data gets even larger, check bytes must be reduced to fit
	// in the block size.  When all else fails, fall back to normal
	// AX.25.

	var prefer = [6]int{0x04, 0x03, 0x06, 0x09, 0x05, 0x01}
	for k := 0; k < 6; k++ {
		var m = prefer[k]
		if dlen <= fx25_get_k_data_radio(m) {
			return m
		}
	}
	return -1
}
