package packetprotocols

/*-------------------------------------------------------------
 *
 * Purpose:	Convert between the IL2P encoded format and the
 *		internal packet format.
 *
 *--------------------------------------------------------------*/

import "fmt"

// FEC profiles accepted by the encoder configuration.

const IL2P_FEC_RS_255_223 = 0x01
const IL2P_FEC_RS_255_239 = 0x02
const IL2P_FEC_RS_255_247 = 0x03

type il2p_encoder_config_t struct {
	fec_type     int
	add_checksum bool
}

// Translate the FEC profile into the max_fec flag: the 239 and 223
// profiles use the fixed 16 symbol blocks, 247 uses automatic sizing.

func il2p_encoder_max_fec(cfg il2p_encoder_config_t) (int, error) {
	switch cfg.fec_type {
	case IL2P_FEC_RS_255_223, IL2P_FEC_RS_255_239:
		return 1, nil
	case IL2P_FEC_RS_255_247:
		return 0, nil
	}
	return 0, fmt.Errorf("%w: unknown IL2P FEC type %d", ErrInvalidArgument, cfg.fec_type)
}

/*-------------------------------------------------------------
 *
 * Name:	il2p_encode_frame
 *
 * Purpose:	Convert AX.25 frame to IL2P encoding.
 *
 * Inputs:	pp	- Packet object.
 *
 *		max_fec	- 1 to send maximum FEC size rather than automatic.
 *
 *		add_checksum - Append the Hamming-protected trailing CRC.
 *
 * Returns:	Encoded bytes for transmission, excluding the 3 byte
 *		sync word, and their count.  -1 is returned for failure.
 *
 * Errors:	Most likely reason is that the frame is too large.
 *		IL2P has a max payload size of 1023 bytes.  For a type 1
 *		header, this is the maximum AX.25 Information part size.
 *		For a type 0 header, this is the entire AX.25 frame.
 *
 *--------------------------------------------------------------*/

func il2p_encode_frame(pp *packet_t, max_fec int, add_checksum bool) ([]byte, int) {
	// Can a type 1 header be used?

	var hdr, e = il2p_type_1_header(pp, max_fec)
	var out []byte

	if e >= 0 {
		var scrambled = il2p_scramble_block(hdr)
		out = append(out, scrambled...)
		out = append(out, il2p_encode_rs(scrambled, IL2P_HEADER_PARITY)...)

		if e > 0 {
			// Payload is AX.25 info part.
			var epayload, k = il2p_encode_payload(ax25_get_info(pp), max_fec)
			if k <= 0 {
				return nil, -1
			}
			out = append(out, epayload...)
		}
	} else if e == -1 {

		// Could not use type 1 header for some reason.
		// e.g. More than 2 addresses, extended (mod 128) sequence numbers, etc.

		hdr, e = il2p_type_0_header(pp, max_fec)
		if e <= 0 {
			// Zero would be impossible: type 0 always has a payload.
			return nil, -1
		}

		var scrambled = il2p_scramble_block(hdr)
		out = append(out, scrambled...)
		out = append(out, il2p_encode_rs(scrambled, IL2P_HEADER_PARITY)...)

		// Payload is entire AX.25 frame.

		var epayload, k = il2p_encode_payload(ax25_get_frame_data(pp), max_fec)
		if k <= 0 {
			return nil, -1
		}
		out = append(out, epayload...)
	} else {
		// AX.25 Information part is too large.
		return nil, -1
	}

	if add_checksum {
		var crc = il2p_crc_encode(il2p_crc_calc(ax25_get_frame_data(pp)))
		out = append(out, crc[:]...)
	}

	return out, len(out)
}

/*-------------------------------------------------------------
 *
 * Name:	il2p_decode_frame
 *
 * Purpose:	Convert IL2P encoding to AX.25 frame.
 *		This is used with a whole encoded frame, e.g. in tests.
 *		During reception the header is clarified first so we
 *		know how much payload to collect.
 *
 * Inputs:	irec	- Received IL2P frame excluding the 3 byte
 *			  sync word (and any trailing CRC).
 *
 * Returns:	Packet and number of symbols corrected, or nil.
 *
 *--------------------------------------------------------------*/

func il2p_decode_frame(irec []byte) (*packet_t, int) {
	if len(irec) < IL2P_HEADER_SIZE+IL2P_HEADER_PARITY {
		return nil, -1
	}

	var uhdr, e = il2p_clarify_header(irec[:IL2P_HEADER_SIZE+IL2P_HEADER_PARITY])
	if e < 0 {
		return nil, e
	}

	return il2p_decode_header_payload(uhdr, irec[IL2P_HEADER_SIZE+IL2P_HEADER_PARITY:], e)
}

/*-------------------------------------------------------------
 *
 * Name:	il2p_decode_header_payload
 *
 * Purpose:	Convert IL2P encoding to AX.25 frame.
 *
 * Inputs:	uhdr 		- Received header after FEC and descrambling.
 *		epayload	- Encoded payload.
 *		corrected	- Symbols corrected in the header, 0 or 1.
 *
 * Returns:	Packet and total corrected symbol count, or nil.
 *		The header always decodes before the payload is
 *		interpreted; a header failure discards the frame.
 *
 *--------------------------------------------------------------*/

func il2p_decode_header_payload(uhdr []byte, epayload []byte, corrected int) (*packet_t, int) {
	var hdr_type, max_fec, payload_len = il2p_get_header_attributes(uhdr)

	if hdr_type == 1 {

		// Header type 1.  Any payload is the AX.25 Information part.

		var pp = il2p_decode_header_type_1(uhdr, corrected)
		if pp == nil {
			// Failed for some reason.
			return nil, corrected
		}

		if payload_len > 0 {
			var extracted, e = il2p_decode_payload(epayload, payload_len, max_fec, &corrected)

			// It is possible to have a good header but too many
			// errors in the payload.

			if e <= 0 {
				return nil, corrected
			}

			if e != payload_len {
				text_color_set(DW_COLOR_ERROR)
				dw_printf("IL2P Internal Error: il2p_decode_header_payload(): hdr_type=%d, max_fec=%d, payload_len=%d, e=%d.\n", hdr_type, max_fec, payload_len, e)
				return nil, corrected
			}

			ax25_set_info(pp, extracted)
		}
		return pp, corrected
	}

	// Header type 0.  The payload is the entire AX.25 frame.

	var extracted, e = il2p_decode_payload(epayload, payload_len, max_fec, &corrected)

	if e <= 0 { // Payload was not received correctly.
		return nil, corrected
	}

	if e != payload_len {
		text_color_set(DW_COLOR_ERROR)
		dw_printf("IL2P Internal Error: il2p_decode_header_payload(): hdr_type=%d, e=%d, payload_len=%d\n", hdr_type, e, payload_len)
		return nil, corrected
	}

	var pp = ax25_from_frame(extracted)
	return pp, corrected
}
