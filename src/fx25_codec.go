package packetprotocols

/*-------------------------------------------------------------
 *
 * Purpose:	FX.25 encoding and decoding over octet streams.
 *
 * Description:	An FX.25 transmission wraps an ordinary bit stuffed
 *		AX.25 frame (flags and FCS included) inside an outer
 *		Reed-Solomon code.  The 8 byte correlation tag at the
 *		front identifies which (n,k) code follows.  A receiver
 *		that knows nothing of FX.25 can still recover the frame
 *		because the data part looks like a normal AX.25 frame.
 *
 *--------------------------------------------------------------*/

import "fmt"

// FEC type identifiers accepted by the encoder configuration.

const FX25_FEC_RS_255_239 = 0x01 // 16 parity bytes
const FX25_FEC_RS_255_223 = 0x02 // 32 parity bytes
const FX25_FEC_RS_255_191 = 0x03 // 64 parity bytes
const FX25_FEC_RS_255_159 = 0x04 // No correlation tag assigned.
const FX25_FEC_RS_255_127 = 0x05
const FX25_FEC_RS_255_95 = 0x06
const FX25_FEC_RS_255_63 = 0x07
const FX25_FEC_RS_255_31 = 0x08

type fx25_encoder_config_t struct {
	fec_type          int
	interleaver_depth int
	add_checksum      bool
}

/*-------------------------------------------------------------
 *
 * Name:	fx25_encoder_mode
 *
 * Purpose:	Validate an encoder configuration and translate the
 *		FEC type into the fx_mode check byte count.
 *
 * Errors:	The published correlation tag table only assigns tags to
 *		the 16, 32 and 64 check byte codes, so the deeper codes
 *		are rejected as unsupported.  Byte interleaving and an
 *		extra checksum have no representation in the tagged wire
 *		format either: the frame already ends in its FCS, so
 *		only depth <= 1 and add_checksum false are accepted.
 *
 *--------------------------------------------------------------*/

func fx25_encoder_mode(cfg fx25_encoder_config_t) (int, error) {
	if cfg.interleaver_depth > 1 {
		return 0, fmt.Errorf("%w: FX.25 interleaving is not part of the tagged wire format", ErrInvalidArgument)
	}
	if cfg.add_checksum {
		return 0, fmt.Errorf("%w: the AX.25 FCS already covers the FX.25 data part", ErrInvalidArgument)
	}

	switch cfg.fec_type {
	case FX25_FEC_RS_255_239:
		return 16, nil
	case FX25_FEC_RS_255_223:
		return 32, nil
	case FX25_FEC_RS_255_191:
		return 64, nil
	case FX25_FEC_RS_255_159, FX25_FEC_RS_255_127, FX25_FEC_RS_255_95,
		FX25_FEC_RS_255_63, FX25_FEC_RS_255_31:
		return 0, fmt.Errorf("%w: no FX.25 correlation tag is assigned to FEC type %d", ErrInvalidArgument, cfg.fec_type)
	}
	return 0, fmt.Errorf("%w: unknown FEC type %d", ErrInvalidArgument, cfg.fec_type)
}

/*-------------------------------------------------------------
 *
 * Name:	fx25_encode_frame
 *
 * Purpose:	Wrap an AX.25 frame inside an FX.25 code block.
 *
 * Inputs:	fbuf	- Frame buffer, without FCS.
 *
 *		fx_mode	- Normally 16, 32, or 64 for the desired number
 *			  of check bytes; the shortest format adequate
 *			  for the data length is picked automatically.
 *			  1 picks everything automatically.
 *			  100 + n forces correlation tag n.
 *
 * Returns:	Octets for transmission: correlation tag, data part
 *		(bit stuffed AX.25 frame padded with flag patterns),
 *		check bytes.  An error if the frame cannot fit.
 *
 *--------------------------------------------------------------*/

func fx25_encode_frame(fbuf []byte, fx_mode int) ([]byte, error) {
	if g_fx25_debug_level >= 3 {
		text_color_set(DW_COLOR_DEBUG)
		dw_printf("FX.25 send frame: FX.25 mode = %d\n", fx_mode)
		hex_dump(fbuf)
	}

	// Append the FCS.

	var fcs = fcs_calc(fbuf)
	var with_fcs = make([]byte, 0, len(fbuf)+2)
	with_fcs = append(with_fcs, fbuf...)
	with_fcs = append(with_fcs, byte(fcs&0xff), byte(fcs>>8))

	// Add bit-stuffing, filling to FX25_MAX_DATA bytes with flag patterns.

	var stuffed, meaningfulLen = bitStuff(with_fcs, FX25_MAX_DATA)

	// Pick suitable correlation tag depending on user's preference,
	// for number of check bytes, and the data size.

	var ctag_num = fx25_pick_mode(fx_mode, meaningfulLen)
	if ctag_num < CTAG_MIN || ctag_num > CTAG_MAX {
		return nil, fmt.Errorf("%w: no FX.25 format for mode %d and data length %d", ErrInvalidArgument, fx_mode, meaningfulLen)
	}

	var ctag_value = fx25_get_ctag_value(ctag_num)
	var k_data_radio = fx25_get_k_data_radio(ctag_num)
	var k_data_rs = fx25_get_k_data_rs(ctag_num)
	var rs = fx25_get_rs(ctag_num)

	// The RS code data part: transmitted bytes first, zero fill up
	// to the RS data size for shortened codes.

	var data = make([]byte, k_data_rs)
	copy(data, stuffed[:min(len(stuffed), k_data_radio)])

	var check = make([]byte, rs.nroots)
	Assert(k_data_rs+rs.nroots == rs.nn)
	encode_rs_char(rs, data, check)

	var out = make([]byte, 0, 8+k_data_radio+rs.nroots)
	for k := 0; k < 8; k++ {
		out = append(out, byte(ctag_value>>(k*8))) // Send LSB first.
	}
	out = append(out, data[:k_data_radio]...)
	out = append(out, check...)

	if g_fx25_debug_level >= 1 {
		text_color_set(DW_COLOR_INFO)
		dw_printf("FX.25: transmit %d data bytes, ctag number 0x%02x\n", k_data_radio, ctag_num)
	}

	return out, nil
}

/*-------------------------------------------------------------
 *
 * Name:	fx25_decode_frame
 *
 * Purpose:	Single-shot decode of a captured octet stream: search
 *		for any known correlation tag, RS decode the block,
 *		remove the bit stuffing and check the FCS.
 *
 * Returns:	The AX.25 frame without FCS and the number of symbols
 *		corrected.  ErrUnknownTag when the search exhausts the
 *		stream without a match; the caller resynchronizes on
 *		the next flag and falls back to plain AX.25.
 *
 *--------------------------------------------------------------*/

func fx25_decode_frame(stream []byte) ([]byte, int, error) {
	var result []byte
	var corrected int
	var got = false
	var decode_err error

	var F = fx25_rec_init(
		func(frame []byte, c int) {
			if !got {
				result = frame
				corrected = c
				got = true
			}
		},
		func(err error) {
			if decode_err == nil {
				decode_err = err
			}
		})

	F.fx25_rec_block(stream)

	if got {
		return result, corrected, nil
	}
	if decode_err != nil {
		return nil, 0, decode_err
	}
	return nil, 0, ErrUnknownTag
}

/*-------------------------------------------------------------
 *
 * Name:	fx25_rec_t
 *
 * Purpose:	Extract FX.25 codeblocks from a stream of bits.
 *		In a completely integrated receive system this sees the
 *		same bit stream as the HDLC receiver.
 *
 * Description:	A bit level state machine: hunt for a correlation tag
 *		(with a small Hamming distance tolerance), then collect
 *		the expected number of data and check bytes, RS decode,
 *		remove bit stuffing, verify FCS and deliver the frame.
 *
 *--------------------------------------------------------------*/

type fx25_rec_state_t int

const (
	FX_TAG fx25_rec_state_t = iota
	FX_DATA
	FX_CHECK
)

type fx25_rec_t struct {
	state        fx25_rec_state_t
	accum        uint64 // Accumulate bits for matching to correlation tag.
	ctag_num     int    // Tag number if an approximate match was found.
	k_data_radio int    // Expected size of "data" sent over radio.
	coffs        int    // Starting offset of the check part.
	nroots       int    // Expected number of check bytes.
	dlen         int    // Accumulated length in "data" below.
	clen         int    // Accumulated length in "check" below.
	imask        byte   // Mask for storing a bit.
	block        [FX25_BLOCK_SIZE]byte

	frame_callback func(frame []byte, corrected int) // Frame without FCS.
	error_callback func(err error)
}

func fx25_rec_init(frame_callback func([]byte, int), error_callback func(error)) *fx25_rec_t {
	return &fx25_rec_t{
		ctag_num:       -1,
		frame_callback: frame_callback,
		error_callback: error_callback,
	}
}

func (F *fx25_rec_t) report_error(err error) {
	if F.error_callback != nil {
		F.error_callback(err)
	}
}

func (F *fx25_rec_t) fx25_rec_bit(dbit int) {
	switch F.state {
	case FX_TAG:
		F.accum >>= 1
		if dbit != 0 {
			F.accum |= 1 << 63
		}

		var c = fx25_tag_find_match(F.accum)
		if c >= CTAG_MIN && c <= CTAG_MAX {
			F.ctag_num = c
			F.k_data_radio = fx25_get_k_data_radio(c)
			F.nroots = fx25_get_nroots(c)
			F.coffs = fx25_get_k_data_rs(c)
			Assert(F.coffs == FX25_BLOCK_SIZE-F.nroots)

			if g_fx25_debug_level >= 2 {
				text_color_set(DW_COLOR_INFO)
				dw_printf("FX.25: Matched correlation tag 0x%02x.  Expecting %d data & %d check bytes.\n",
					c, F.k_data_radio, F.nroots)
			}

			F.imask = 0x01
			F.dlen = 0
			F.clen = 0
			F.block = [FX25_BLOCK_SIZE]byte{}
			F.state = FX_DATA
		}

	case FX_DATA:
		if dbit != 0 {
			F.block[F.dlen] |= F.imask
		}

		F.imask <<= 1
		if F.imask == 0 {
			F.imask = 0x01
			F.dlen++
			if F.dlen >= F.k_data_radio {
				F.state = FX_CHECK
			}
		}

	case FX_CHECK:
		if dbit != 0 {
			F.block[F.coffs+F.clen] |= F.imask
		}

		F.imask <<= 1
		if F.imask == 0 {
			F.imask = 0x01
			F.clen++
			if F.clen >= F.nroots {
				F.process_rs_block()

				F.ctag_num = -1
				F.accum = 0
				F.state = FX_TAG
			}
		}
	}
}

// Feed a block of octets, LSB first.

func (F *fx25_rec_t) fx25_rec_block(data []byte) {
	for _, b := range data {
		for i := 0; i < 8; i++ {
			F.fx25_rec_bit(int(b>>i) & 1)
		}
	}
}

/*-------------------------------------------------------------
 *
 * Name:	process_rs_block
 *
 * Purpose:	After the correlation tag was detected and the
 *		appropriate number of data and check bytes are
 *		accumulated, decode and extract the AX.25 frame.
 *
 *		<- - - - - - - - - - - 255 bytes total - - - - - - - - ->
 *		+-----------------------+---------------+---------------+
 *		|  dlen bytes "data"    |  zero fill    |  check bytes  |
 *		+-----------------------+---------------+---------------+
 *
 *--------------------------------------------------------------*/

func (F *fx25_rec_t) process_rs_block() {
	if g_fx25_debug_level >= 3 {
		text_color_set(DW_COLOR_DEBUG)
		dw_printf("FX.25: Received RS codeblock.\n")
		hex_dump(F.block[:])
	}

	var derrlocs [FX25_MAX_CHECK]int
	var rs = fx25_get_rs(F.ctag_num)

	var derrors = decode_rs_char(rs, F.block[:], derrlocs[:], 0)

	if derrors < 0 {
		if g_fx25_debug_level >= 2 {
			text_color_set(DW_COLOR_ERROR)
			dw_printf("FX.25: FEC failed.  Too many errors.\n")
		}
		F.report_error(ErrUncorrectableFEC)
		return
	}

	if g_fx25_debug_level >= 2 {
		text_color_set(DW_COLOR_INFO)
		if derrors == 0 {
			dw_printf("FX.25: FEC complete with no errors.\n")
		} else {
			dw_printf("FX.25: FEC complete, fixed %2d errors.\n", derrors)
		}
	}

	var frame_buf, err = bitUnstuff(F.block[:F.dlen])
	if err != nil {
		text_color_set(DW_COLOR_ERROR)
		dw_printf("FX.25: %s\n", err)
		F.report_error(err)
		return
	}

	if len(frame_buf) < MIN_FRAME_LEN {
		F.report_error(fmt_malformed("AX.25 frame is shorter than minimum length"))
		return
	}

	if !fcs_check(frame_buf) {
		// Most likely cause is defective sender software.
		text_color_set(DW_COLOR_ERROR)
		dw_printf("FX.25: Bad FCS for AX.25 frame.\n")
		F.report_error(fmt_malformed("bad FCS"))
		return
	}

	if g_fx25_debug_level >= 3 {
		text_color_set(DW_COLOR_DEBUG)
		dw_printf("FX.25: Extracted AX.25 frame:\n")
		hex_dump(frame_buf)
	}

	F.frame_callback(frame_buf[:len(frame_buf)-2], derrors) /* len-2 to remove FCS. */
}
