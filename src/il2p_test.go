package packetprotocols

import (
	"encoding/hex"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"pgregory.net/rapid"
)

func Test_il2p_scramble_descramble(t *testing.T) {
	il2p_init(0)

	rapid.Check(t, func(t *rapid.T) {
		var in = rapid.SliceOfN(rapid.Byte(), 1, 300).Draw(t, "in")

		var scrambled = il2p_scramble_block(in)
		require.Len(t, scrambled, len(in))

		var out = il2p_descramble_block(scrambled)
		assert.Equal(t, in, out)
	})
}

func Test_il2p_payload_compute(t *testing.T) {
	il2p_init(0)

	// One small block.
	var p, e = il2p_payload_compute(100, 0)
	require.Greater(t, e, 0)
	assert.Equal(t, 1, p.payload_block_count)
	assert.Equal(t, 4, p.parity_symbols_per_block)
	assert.Equal(t, 104, e)

	// Max FEC always uses 16 parity symbols.
	p, e = il2p_payload_compute(100, 1)
	require.Greater(t, e, 0)
	assert.Equal(t, 16, p.parity_symbols_per_block)
	assert.Equal(t, 116, e)

	// Out of range.
	_, e = il2p_payload_compute(IL2P_MAX_PAYLOAD_SIZE+1, 0)
	assert.Equal(t, -1, e)

	_, e = il2p_payload_compute(0, 0)
	assert.Equal(t, 0, e)
}

func Test_il2p_payload_roundtrip(t *testing.T) {
	il2p_init(0)

	rapid.Check(t, func(t *rapid.T) {
		var max_fec = rapid.IntRange(0, 1).Draw(t, "max_fec")
		var payload = rapid.SliceOfN(rapid.Byte(), 1, IL2P_MAX_PAYLOAD_SIZE).Draw(t, "payload")

		var encoded, elen = il2p_encode_payload(payload, max_fec)
		require.Greater(t, elen, 0)
		require.Len(t, encoded, elen)

		var corrected = 0
		var out, dlen = il2p_decode_payload(encoded, len(payload), max_fec, &corrected)
		require.Equal(t, len(payload), dlen)
		assert.Equal(t, payload, out)
		assert.Equal(t, 0, corrected)
	})
}

func Test_il2p_header_type_1_roundtrip(t *testing.T) {
	il2p_init(0)

	rapid.Check(t, func(t *rapid.T) {
		var addrs = []string{rapid_callsign.Draw(t, "dst"), rapid_callsign.Draw(t, "src")}
		var info = rapid.SliceOfN(rapid.Byte(), 0, 100).Draw(t, "info")

		var pp, err = ax25_u_frame(addrs, rapid.SampledFrom([]cmdres_t{cr_cmd, cr_res}).Draw(t, "cr"),
			frame_type_U_UI, rapid.IntRange(0, 1).Draw(t, "pf"), 0xf0, info)
		require.NoError(t, err)

		var hdr, e = il2p_type_1_header(pp, 0)
		require.Equal(t, len(info), e)

		var decoded = il2p_decode_header_type_1(hdr, 0)
		require.NotNil(t, decoded)

		assert.Equal(t, ax25_get_addr_with_ssid(pp, AX25_DESTINATION), ax25_get_addr_with_ssid(decoded, AX25_DESTINATION))
		assert.Equal(t, ax25_get_addr_with_ssid(pp, AX25_SOURCE), ax25_get_addr_with_ssid(decoded, AX25_SOURCE))

		var ftype, _, _, pf, _, _ = ax25_frame_type(pp)
		var dtype, _, _, dpf, _, _ = ax25_frame_type(decoded)
		assert.Equal(t, ftype, dtype)
		assert.Equal(t, pf, dpf)
		assert.Equal(t, 0xf0, ax25_get_pid(decoded))
	})
}

func Test_il2p_header_type_1_restrictions(t *testing.T) {
	il2p_init(0)

	// Digipeaters force a type 0 header.
	var pp, err = ax25_u_frame([]string{"N0CALL", "W1AW-5", "WIDE1-1"}, cr_cmd, frame_type_U_UI, 0, 0xf0, nil)
	require.NoError(t, err)

	var _, e = il2p_type_1_header(pp, 0)
	assert.Equal(t, -1, e)

	var hdr0, e0 = il2p_type_0_header(pp, 0)
	require.Greater(t, e0, 0)
	assert.Equal(t, ax25_get_frame_len(pp), e0)
	assert.Equal(t, 0, GET_HDR_TYPE(hdr0))
	assert.Equal(t, e0, GET_PAYLOAD_BYTE_COUNT(hdr0))
}

func Test_il2p_codec_roundtrip(t *testing.T) {
	il2p_init(0)

	rapid.Check(t, func(t *rapid.T) {
		var naddr = rapid.IntRange(2, 4).Draw(t, "naddr")
		var addrs = make([]string, naddr)
		for i := range addrs {
			addrs[i] = rapid_callsign.Draw(t, "addr")
		}
		var info = rapid.SliceOfN(rapid.Byte(), 1, 200).Draw(t, "info")
		var max_fec = rapid.IntRange(0, 1).Draw(t, "max_fec")

		var pp, err = ax25_u_frame(addrs, cr_cmd, frame_type_U_UI, 0, 0xf0, info)
		require.NoError(t, err)

		var encoded, elen = il2p_encode_frame(pp, max_fec, false)
		require.Greater(t, elen, 0)

		// A single corrupted byte must still decode.
		var nerr = rapid.IntRange(0, 1).Draw(t, "nerr")
		if nerr > 0 {
			var p = rapid.IntRange(0, len(encoded)-1).Draw(t, "p")
			encoded[p] ^= rapid.ByteRange(1, 255).Draw(t, "e")
		}

		var decoded, _ = il2p_decode_frame(encoded)
		require.NotNil(t, decoded)

		assert.Equal(t, ax25_get_frame_data(pp), ax25_get_frame_data(decoded))
	})
}

func Test_il2p_rec_stream(t *testing.T) {
	il2p_init(0)

	var pp, err = ax25_u_frame([]string{"KA2DEW-2", "KK4HEJ-7"}, cr_cmd, frame_type_U_UI, 0, 0xf0, []byte("The quick brown fox"))
	require.NoError(t, err)

	var stream = il2p_send_frame(pp, 1, true)
	require.NotNil(t, stream)

	var got []*packet_t
	var F = il2p_rec_init(true,
		func(p *packet_t, corrected int) { got = append(got, p) },
		nil)

	F.il2p_rec_block(stream)
	F.il2p_rec_bit(0) // Flush the delayed decode state.

	require.Len(t, got, 1)
	assert.Equal(t, ax25_get_frame_data(pp), ax25_get_frame_data(got[0]))
}

func Test_il2p_crc(t *testing.T) {
	var data = []byte("CRC me")
	var crc = il2p_crc_calc(data)
	var encoded = il2p_crc_encode(crc)

	assert.Equal(t, crc, il2p_crc_decode(encoded[:]))
	assert.True(t, il2p_crc_check(data, encoded[:]))

	// Single bit errors in the encoded CRC are corrected by the
	// Hamming code.
	var damaged = encoded
	damaged[1] ^= 0x01
	assert.True(t, il2p_crc_check(data, damaged[:]))

	// Wrong data fails.
	assert.False(t, il2p_crc_check([]byte("CRC you"), encoded[:]))
}

func Test_il2p_encoder_config(t *testing.T) {
	var max_fec, err = il2p_encoder_max_fec(il2p_encoder_config_t{fec_type: IL2P_FEC_RS_255_239})
	require.NoError(t, err)
	assert.Equal(t, 1, max_fec)

	max_fec, err = il2p_encoder_max_fec(il2p_encoder_config_t{fec_type: IL2P_FEC_RS_255_247})
	require.NoError(t, err)
	assert.Equal(t, 0, max_fec)

	_, err = il2p_encoder_max_fec(il2p_encoder_config_t{fec_type: 9})
	assert.ErrorIs(t, err, ErrInvalidArgument)
}

// Test examples found in the IL2P spec
// https://tarpn.net/t/il2p/il2p-specification_draft_v0-6.pdf

// Convenience function for turning example packets from the spec PDF
// into byte slices to work with.
func il2pDataStringToBytes(s string) []byte {
	var data, err = hex.DecodeString(strings.ReplaceAll(s, " ", ""))
	if err != nil {
		panic(err)
	}

	// From the spec PDF: "All IL2P data samples below include Trailing
	// CRC and lack Sync Word"

	return data
}

func TestIL2PSpec(t *testing.T) {
	il2p_init(0)

	var testData = []struct {
		inputData     string
		expectedAddrs string
		ax25Data      string
	}{
		{
			inputData:     "26 57 4D 57 F1 D2 A8 F0 6A F2 7B AD 23 BD C0 7F 00 1D 2B",
			expectedAddrs: "KK4HEJ-7>KA2DEW-2:",
			ax25Data:      "96 82 64 88 8A AE E4 96 96 68 90 8A 94 6F 81",
		},
		{
			inputData:     "6A EA 9C C2 01 11 FC 14 1F DA 6E F2 53 91 BD 47 6C 54 54",
			expectedAddrs: "KK4HEJ-15>CQ:",
			ax25Data:      "86 A2 40 40 40 40 60 96 96 68 90 8A 94 FF 03 F0",
		},
	}

	for _, testDatum := range testData {
		var b = il2pDataStringToBytes(testDatum.inputData)
		var pp, _ = il2p_decode_frame(b)

		// Did we actually decode a frame?
		require.NotNil(t, pp)

		// Does it have the data we expect?
		assert.Equal(t, testDatum.expectedAddrs, ax25_format_addrs(pp))

		// Does it match the AX.25 data in the spec?
		assert.Equal(t, il2pDataStringToBytes(testDatum.ax25Data), ax25_get_frame_data(pp))
	}
}
