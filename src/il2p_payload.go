package packetprotocols

/*--------------------------------------------------------------------------------
 *
 * Purpose:	Functions dealing with the IL2P payload.
 *
 *--------------------------------------------------------------------------------*/

type il2p_payload_properties_t struct {
	payload_byte_count       int // Total size, 0 thru 1023
	payload_block_count      int
	small_block_size         int
	large_block_size         int
	large_block_count        int
	small_block_count        int
	parity_symbols_per_block int // 2, 4, 6, 8, 16
}

/*--------------------------------------------------------------------------------
 *
 * Function:	il2p_payload_compute
 *
 * Purpose:	Compute number and sizes of data blocks based on total size.
 *
 * Inputs:	payload_size	0 to 1023.  (IL2P_MAX_PAYLOAD_SIZE)
 *		max_fec		1 for 16 parity symbols, 0 for automatic.
 *
 * Returns:	Payload block sizes and counts, and the number of bytes
 *		in the encoded format:
 *		Could be 0 for no payload blocks.
 *		-1 for error (i.e. invalid unencoded size: <0 or >1023)
 *
 *--------------------------------------------------------------------------------*/

func il2p_payload_compute(payload_size int, max_fec int) (*il2p_payload_properties_t, int) {
	var p = new(il2p_payload_properties_t)

	if payload_size < 0 || payload_size > IL2P_MAX_PAYLOAD_SIZE {
		return p, -1
	}
	if payload_size == 0 {
		return p, 0
	}

	if max_fec != 0 {
		p.payload_byte_count = payload_size
		p.payload_block_count = (p.payload_byte_count + 238) / 239
		p.small_block_size = p.payload_byte_count / p.payload_block_count
		p.large_block_size = p.small_block_size + 1
		p.large_block_count = p.payload_byte_count - (p.payload_block_count * p.small_block_size)
		p.small_block_count = p.payload_block_count - p.large_block_count
		p.parity_symbols_per_block = 16
	} else {
		p.payload_byte_count = payload_size
		p.payload_block_count = (p.payload_byte_count + 246) / 247
		p.small_block_size = p.payload_byte_count / p.payload_block_count
		p.large_block_size = p.small_block_size + 1
		p.large_block_count = p.payload_byte_count - (p.payload_block_count * p.small_block_size)
		p.small_block_count = p.payload_block_count - p.large_block_count

		// The parity count is chosen from the small block size and used
		// for every block; a large block is one byte longer and still
		// fits in the 255 byte RS block.

		if p.small_block_size <= 61 {
			p.parity_symbols_per_block = 2
		} else if p.small_block_size <= 123 {
			p.parity_symbols_per_block = 4
		} else if p.small_block_size <= 185 {
			p.parity_symbols_per_block = 6
		} else if p.small_block_size <= 247 {
			p.parity_symbols_per_block = 8
		} else {
			// Should not happen.  But just in case...
			text_color_set(DW_COLOR_ERROR)
			dw_printf("IL2P parity symbol per payload block error.  small_block_size = %d\n", p.small_block_size)
			return p, -1
		}
	}

	// Return the total size for the encoded format.

	return p, p.small_block_count*(p.small_block_size+p.parity_symbols_per_block) +
		p.large_block_count*(p.large_block_size+p.parity_symbols_per_block)
}

/*--------------------------------------------------------------------------------
 *
 * Function:	il2p_encode_payload
 *
 * Purpose:	Split payload into multiple blocks such that each set
 *		of data and parity symbols fit into a 255 byte RS block.
 *
 * Inputs:	payload		Slice of bytes.
 *		max_fec		1 for 16 parity symbols, 0 for automatic.
 *
 * Returns:	Encoded payload for transmission and its length:
 *		-1 for error (i.e. invalid size)
 *		0 for no blocks.  (i.e. size zero)
 *		Number of bytes generated, maximum
 *		IL2P_MAX_ENCODED_PAYLOAD_SIZE, otherwise.
 *
 * Note:	The LFSR state is reset for each data block, not carried
 *		between blocks; found out the hard way during
 *		interoperability testing.
 *
 *--------------------------------------------------------------------------------*/

func il2p_encode_payload(payload []byte, max_fec int) ([]byte, int) {
	if len(payload) > IL2P_MAX_PAYLOAD_SIZE {
		return nil, -1
	}
	if len(payload) == 0 {
		return nil, 0
	}

	// Determine number of blocks and sizes.

	var ipp, e = il2p_payload_compute(len(payload), max_fec)
	if e <= 0 {
		return nil, e
	}

	var pin = payload
	var pout []byte
	var encoded_length = 0

	// First the large blocks.

	for b := 0; b < ipp.large_block_count; b++ {
		var scram = il2p_scramble_block(pin[:ipp.large_block_size])
		pout = append(pout, scram...)
		pin = pin[ipp.large_block_size:]
		encoded_length += ipp.large_block_size

		var parity = il2p_encode_rs(scram, ipp.parity_symbols_per_block)
		pout = append(pout, parity...)
		encoded_length += ipp.parity_symbols_per_block
	}

	// Then the small blocks.

	for b := 0; b < ipp.small_block_count; b++ {
		var scram = il2p_scramble_block(pin[:ipp.small_block_size])
		pout = append(pout, scram...)
		pin = pin[ipp.small_block_size:]
		encoded_length += ipp.small_block_size

		var parity = il2p_encode_rs(scram, ipp.parity_symbols_per_block)
		pout = append(pout, parity...)
		encoded_length += ipp.parity_symbols_per_block
	}

	return pout, encoded_length
}

/*--------------------------------------------------------------------------------
 *
 * Function:	il2p_decode_payload
 *
 * Purpose:	Extract original data from encoded payload.
 *
 * Inputs:	received	Encoded payload bytes.
 *		payload_size	0 to 1023.  Expected result size based
 *				on header.
 *		max_fec		1 for 16 parity symbols, 0 for automatic.
 *
 * In/Out:	symbols_corrected	Number of symbols corrected.
 *
 * Returns:	Recovered payload and a count:
 *		Number of bytes extracted (same as payload_size) on success.
 *		-3 for unexpected internal inconsistency.
 *		-2 for unable to recover from signal corruption.
 *		-1 for invalid size.
 *		0 for no blocks.  (i.e. size zero)
 *
 *--------------------------------------------------------------------------------*/

func il2p_decode_payload(received []byte, payload_size int, max_fec int, symbols_corrected *int) ([]byte, int) {
	// Determine number of blocks and sizes.

	var ipp, e = il2p_payload_compute(payload_size, max_fec)
	if e <= 0 {
		return nil, e
	}
	if len(received) < e {
		return nil, -1
	}

	var pin = received
	var payload_out []byte
	var decoded_length = 0
	var failed = false

	// First the large blocks.

	for b := 0; b < ipp.large_block_count; b++ {
		var corrected_block, e2 = il2p_decode_rs(pin[:ipp.large_block_size+ipp.parity_symbols_per_block], ipp.parity_symbols_per_block)
		if e2 < 0 {
			failed = true
		} else {
			*symbols_corrected += e2
		}

		var clear = il2p_descramble_block(corrected_block)
		payload_out = append(payload_out, clear...)

		if il2p_get_debug() >= 2 {
			text_color_set(DW_COLOR_DEBUG)
			dw_printf("Descrambled large payload block, %d bytes:\n", ipp.large_block_size)
			hex_dump(clear)
		}

		pin = pin[ipp.large_block_size+ipp.parity_symbols_per_block:]
		decoded_length += ipp.large_block_size
	}

	// Then the small blocks.

	for b := 0; b < ipp.small_block_count; b++ {
		var corrected_block, e2 = il2p_decode_rs(pin[:ipp.small_block_size+ipp.parity_symbols_per_block], ipp.parity_symbols_per_block)
		if e2 < 0 {
			failed = true
		} else {
			*symbols_corrected += e2
		}

		var clear = il2p_descramble_block(corrected_block)
		payload_out = append(payload_out, clear...)

		if il2p_get_debug() >= 2 {
			text_color_set(DW_COLOR_DEBUG)
			dw_printf("Descrambled small payload block, %d bytes:\n", ipp.small_block_size)
			hex_dump(clear)
		}

		pin = pin[ipp.small_block_size+ipp.parity_symbols_per_block:]
		decoded_length += ipp.small_block_size
	}

	if failed {
		return nil, -2
	}

	if decoded_length != payload_size {
		text_color_set(DW_COLOR_ERROR)
		dw_printf("IL2P Internal error: decoded_length = %d, payload_size = %d\n", decoded_length, payload_size)
		return nil, -3
	}

	return payload_out, decoded_length
}
