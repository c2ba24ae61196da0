package packetprotocols

/*--------------------------------------------------------------------------------
 *
 * Purpose:	IL2P constants and the Reed-Solomon codecs it uses.
 *
 * Reference:	http://tarpn.net/t/il2p/il2p-specification0-4.pdf
 *
 *--------------------------------------------------------------------------------*/

const IL2P_SYNC_WORD = 0xF15E48
const IL2P_SYNC_WORD_SIZE = 3
const IL2P_PREAMBLE = 0x55

const IL2P_HEADER_SIZE = 13
const IL2P_HEADER_PARITY = 2

const IL2P_MAX_PAYLOAD_SIZE = 1023
const IL2P_MAX_PAYLOAD_BLOCKS = 5
const IL2P_MAX_PARITY_SYMBOLS = 16
const IL2P_MAX_ENCODED_PAYLOAD_SIZE = IL2P_MAX_PAYLOAD_SIZE + IL2P_MAX_PAYLOAD_BLOCKS*IL2P_MAX_PARITY_SYMBOLS

const IL2P_MAX_PACKET_SIZE = IL2P_HEADER_SIZE + IL2P_HEADER_PARITY + IL2P_MAX_ENCODED_PAYLOAD_SIZE + IL2P_CRC_ENCODED_SIZE

const IL2P_CRC_ENCODED_SIZE = 4

const IL2P_NTAB = 5

var il2pTab = [IL2P_NTAB]struct {
	fcr    int   // First root.  FX.25 uses 1 but IL2P uses 0.
	nroots int   // Number of check bytes added.
	rs     *rs_t // Filled in at init time.
}{
	{0, 2, nil},  // 2 parity
	{0, 4, nil},  // 4 parity
	{0, 6, nil},  // 6 parity
	{0, 8, nil},  // 8 parity
	{0, 16, nil}, // 16 parity
}

var g_il2p_debug = 0

/*-------------------------------------------------------------
 *
 * Name:	il2p_init
 *
 * Purpose:	This must be called at application start up time.
 *		It sets up tables for the Reed-Solomon functions.
 *
 * Inputs:	debug	- Enable debug output.
 *
 *--------------------------------------------------------------*/

func il2p_init(il2p_debug int) {
	g_il2p_debug = il2p_debug

	for i := 0; i < IL2P_NTAB; i++ {
		Assert(il2pTab[i].nroots <= IL2P_MAX_PARITY_SYMBOLS)
		il2pTab[i].rs = init_rs_char(il2pTab[i].fcr, il2pTab[i].nroots)
		if il2pTab[i].rs == nil {
			text_color_set(DW_COLOR_ERROR)
			dw_printf("IL2P internal error: init_rs_char failed!\n")
			panic("il2p_init")
		}
	}
}

func il2p_get_debug() int {
	return g_il2p_debug
}

func il2p_set_debug(debug int) {
	g_il2p_debug = debug
}

// Find RS codec control block for specified number of parity symbols.

func il2p_find_rs(nparity int) *rs_t {
	for n := 0; n < IL2P_NTAB; n++ {
		if il2pTab[n].nroots == nparity {
			return il2pTab[n].rs
		}
	}
	text_color_set(DW_COLOR_ERROR)
	dw_printf("IL2P INTERNAL ERROR: il2p_find_rs: control block not found for nparity = %d.\n", nparity)
	return il2pTab[0].rs
}

/*-------------------------------------------------------------
 *
 * Name:	il2p_encode_rs
 *
 * Purpose:	Add parity symbols to a block of data.
 *
 * Inputs:	tx_data		Header or other data to transmit.
 *		num_parity	Number of parity symbols to add.
 *
 * Returns:	The parity symbols.
 *
 * Restriction:	len(tx_data) + num_parity <= 255 which is the RS
 *		block size.  The caller must ensure this.
 *
 *--------------------------------------------------------------*/

func il2p_encode_rs(tx_data []byte, num_parity int) []byte {
	var data_size = len(tx_data)

	Assert(data_size >= 1)
	Assert(num_parity == 2 || num_parity == 4 || num_parity == 6 || num_parity == 8 || num_parity == 16)
	Assert(data_size+num_parity <= FX25_BLOCK_SIZE)

	// Zero padding in front makes a shortened code.

	var rs_block [FX25_BLOCK_SIZE]byte
	copy(rs_block[len(rs_block)-data_size-num_parity:], tx_data)

	var parity_out = make([]byte, num_parity)
	encode_rs_char(il2p_find_rs(num_parity), rs_block[:], parity_out)

	return parity_out
}

/*-------------------------------------------------------------
 *
 * Name:	il2p_decode_rs
 *
 * Purpose:	Check and attempt to fix block with FEC.
 *
 * Inputs:	rec_block	Received block composed of data and parity.
 *		num_parity	Number of parity symbols (bytes) in above.
 *
 * Returns:	Data part with possible corrections applied, and
 *		-1 for unrecoverable or >= 0 number of symbols corrected.
 *
 *--------------------------------------------------------------*/

func il2p_decode_rs(rec_block []byte, num_parity int) ([]byte, int) {
	var data_size = len(rec_block) - num_parity
	var n = data_size + num_parity // total size in.

	var rs_block [FX25_BLOCK_SIZE]byte
	copy(rs_block[len(rs_block)-n:], rec_block)

	if il2p_get_debug() >= 3 {
		text_color_set(DW_COLOR_DEBUG)
		dw_printf("==============================  il2p_decode_rs  ==============================\n")
		dw_printf("%d filler zeros, %d data, %d parity\n", len(rs_block)-n, data_size, num_parity)
		hex_dump(rs_block[:])
	}

	var derrlocs [FX25_MAX_CHECK]int

	var derrors = decode_rs_char(il2p_find_rs(num_parity), rs_block[:], derrlocs[:], 0)
	var out = append([]byte(nil), rs_block[len(rs_block)-n:len(rs_block)-num_parity]...)

	// It is possible to have a situation where too many errors are
	// present but the algorithm could get a good code block by "fixing"
	// one of the padding bytes that should be 0.

	for i := 0; i < derrors; i++ {
		if derrlocs[i] < len(rs_block)-n {
			if il2p_get_debug() >= 3 {
				text_color_set(DW_COLOR_DEBUG)
				dw_printf("RS DECODE ERROR!  Padding position %d should be 0 but it was set to %02x.\n", derrlocs[i], rs_block[derrlocs[i]])
			}
			derrors = -1
			break
		}
	}

	if il2p_get_debug() >= 3 {
		text_color_set(DW_COLOR_DEBUG)
		dw_printf("==============================  il2p_decode_rs  returns %d  ==============================\n", derrors)
	}
	return out, derrors
}
