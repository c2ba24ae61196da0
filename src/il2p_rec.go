package packetprotocols

/********************************************************************************
 *
 * Purpose:     Extract IL2P frames from a stream of bits and process them.
 *
 * References:	http://tarpn.net/t/il2p/il2p-specification0-4.pdf
 *
 *******************************************************************************/

import (
	"math/bits"
)

type il2p_rec_state_t int

const (
	IL2P_SEARCHING il2p_rec_state_t = iota // Looking for the sync word.
	IL2P_HEADER                            // Gathering the header.
	IL2P_PAYLOAD                           // Gathering the payload, if any.
	IL2P_CRC                               // Gathering 4 trailing CRC bytes.
	IL2P_DECODE
)

type il2p_rec_t struct {
	state il2p_rec_state_t

	acc uint // Accumulate most recent 24 bits for sync word matching.
	// Lower 8 bits also accumulate header and payload bytes.

	bc int // Bit counter so we know when a byte is complete.

	polarity bool // True if opposite of expected polarity.

	shdr [IL2P_HEADER_SIZE + IL2P_HEADER_PARITY]byte // Scrambled header as received.  Includes parity.
	hc   int

	uhdr []byte // Header after FEC and unscrambling.

	eplen int // Number of encoded payload bytes to gather.

	spayload [IL2P_MAX_ENCODED_PAYLOAD_SIZE]byte // Encoded payload as received.
	pc       int

	scrc [IL2P_CRC_ENCODED_SIZE]byte // Received Hamming-encoded CRC.
	cc   int

	corrected int // Number of symbols corrected by RS FEC.

	check_crc bool // Expect the trailing CRC on received frames.

	packet_callback func(pp *packet_t, corrected int)
	error_callback  func(err error)
}

func il2p_rec_init(check_crc bool, packet_callback func(*packet_t, int), error_callback func(error)) *il2p_rec_t {
	return &il2p_rec_t{
		check_crc:       check_crc,
		packet_callback: packet_callback,
		error_callback:  error_callback,
	}
}

func (F *il2p_rec_t) report_error(err error) {
	if F.error_callback != nil {
		F.error_callback(err)
	}
}

/***********************************************************************************
 *
 * Name:        il2p_rec_bit
 *
 * Purpose:     Extract IL2P packets from a stream of bits.
 *
 * Inputs:      dbit	- One bit from the received data stream.
 *
 * Description: This is called once for each received bit.  Processing
 *		is delayed by one bit after the last byte; send an extra
 *		bit to flush at the end when testing.
 *
 ***********************************************************************************/

func (F *il2p_rec_t) il2p_rec_bit(dbit int) {

	// Accumulate most recent 24 bits received.  Most recent is LSB.

	F.acc = ((F.acc << 1) | uint(dbit&1)) & 0x00ffffff

	switch F.state {

	case IL2P_SEARCHING:

		if bits.OnesCount(F.acc^IL2P_SYNC_WORD) <= 1 { // allow single bit mismatch
			F.polarity = false
			F.state = IL2P_HEADER
			F.bc = 0
			F.hc = 0
		} else if bits.OnesCount((^F.acc&0x00ffffff)^IL2P_SYNC_WORD) <= 1 {
			F.polarity = true
			F.state = IL2P_HEADER
			F.bc = 0
			F.hc = 0
		}

	case IL2P_HEADER:

		F.bc++
		if F.bc == 8 { // full byte has been collected.
			F.bc = 0
			if !F.polarity {
				F.shdr[F.hc] = byte(F.acc & 0xff)
			} else {
				F.shdr[F.hc] = byte(^F.acc) & 0xff
			}
			F.hc++

			if F.hc == IL2P_HEADER_SIZE+IL2P_HEADER_PARITY { // Have all of header

				if il2p_get_debug() >= 1 {
					text_color_set(DW_COLOR_DEBUG)
					dw_printf("IL2P header as received:\n")
					hex_dump(F.shdr[:])
				}

				// Fix any errors and descramble.
				var uhdr, corrected = il2p_clarify_header(F.shdr[:])
				F.uhdr = uhdr
				F.corrected = corrected

				if corrected < 0 {
					// Header failed FEC check.
					F.report_error(ErrUncorrectableFEC)
					F.state = IL2P_SEARCHING
					return
				}

				// How much payload is expected?
				var _, max_fec, length = il2p_get_header_attributes(F.uhdr)
				var _, eplen = il2p_payload_compute(length, max_fec)
				F.eplen = eplen

				if il2p_get_debug() >= 1 {
					text_color_set(DW_COLOR_DEBUG)
					dw_printf("IL2P header after correcting %d symbols and unscrambling:\n", F.corrected)
					hex_dump(F.uhdr)
					dw_printf("Need to collect %d encoded bytes for %d byte payload.\n", F.eplen, length)
				}

				if F.eplen >= 1 { // Need to gather payload.
					F.pc = 0
					F.state = IL2P_PAYLOAD
				} else if F.eplen == 0 { // No payload.
					F.pc = 0
					if F.check_crc {
						F.cc = 0
						F.state = IL2P_CRC
					} else {
						F.state = IL2P_DECODE
					}
				} else { // Invalid header.
					F.report_error(fmt_malformed("invalid IL2P header"))
					F.state = IL2P_SEARCHING
				}
			}
		}

	case IL2P_PAYLOAD:

		F.bc++
		if F.bc == 8 { // full byte has been collected.
			F.bc = 0
			if !F.polarity {
				F.spayload[F.pc] = byte(F.acc & 0xff)
			} else {
				F.spayload[F.pc] = byte(^F.acc) & 0xff
			}
			F.pc++
			if F.pc == F.eplen {
				if F.check_crc {
					F.cc = 0
					F.state = IL2P_CRC
				} else {
					F.state = IL2P_DECODE
				}
			}
		}

	case IL2P_CRC:

		F.bc++
		if F.bc == 8 { // full byte has been collected.
			F.bc = 0
			if !F.polarity {
				F.scrc[F.cc] = byte(F.acc & 0xff)
			} else {
				F.scrc[F.cc] = byte(^F.acc) & 0xff
			}
			F.cc++
			if F.cc == IL2P_CRC_ENCODED_SIZE {
				F.state = IL2P_DECODE
			}
		}

	case IL2P_DECODE:
		// We get here after a good header and any payload has been
		// collected.  Processing is delayed by one bit but it makes
		// the logic cleaner.

		var pp, corrected = il2p_decode_header_payload(F.uhdr, F.spayload[:F.pc], F.corrected)

		if pp == nil {
			F.report_error(ErrUncorrectableFEC)
		} else if F.check_crc && !il2p_crc_check(ax25_get_frame_data(pp), F.scrc[:]) {
			if il2p_get_debug() >= 1 {
				text_color_set(DW_COLOR_ERROR)
				dw_printf("IL2P trailing CRC mismatch.\n")
			}
			F.report_error(fmt_malformed("IL2P trailing CRC mismatch"))
		} else {
			F.packet_callback(pp, corrected)
		}

		F.state = IL2P_SEARCHING
	}
}

// Feed a block of octets, MSB first.  No flush bit is added: a frame that
// ends with the block is decoded on the next il2p_rec_bit call.

func (F *il2p_rec_t) il2p_rec_block(data []byte) {
	for _, b := range data {
		for i := 7; i >= 0; i-- {
			F.il2p_rec_bit(int(b>>i) & 1)
		}
	}
}
