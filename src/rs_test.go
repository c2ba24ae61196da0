package packetprotocols

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"pgregory.net/rapid"
)

// Data lengths of the (255,k) codes named by the FX.25 and IL2P FEC type
// constants.  The IL2P 2, 4 and 6 parity codes are covered by
// Test_rs_shortened_il2p.
var rs_supported_k = []int{247, 239, 223, 191, 159, 127, 95, 63, 31}

func rs_encode_block(rs *rs_t, data []byte) []byte {
	var block = make([]byte, rs.nn)
	copy(block, data)
	encode_rs_char(rs, block[:rs.nn-rs.nroots], block[rs.nn-rs.nroots:])
	return block
}

func Test_rs_encode_decode_clean(t *testing.T) {
	for _, k := range rs_supported_k {
		for _, fcr := range []int{0, 1} {
			var rs = init_rs_char(fcr, 255-k)
			require.NotNil(t, rs)

			var data = make([]byte, k)
			for i := range data {
				data[i] = byte(i * 7)
			}

			var block = rs_encode_block(rs, data)

			var derrlocs = make([]int, rs.nroots)
			var derrors = decode_rs_char(rs, block, derrlocs, 0)
			assert.Equal(t, 0, derrors, "clean codeword for k=%d fcr=%d", k, fcr)
			assert.Equal(t, data, block[:k])
		}
	}
}

// End-to-end scenario: RS(255,239), 8 errors corrected, 9 not.

func Test_rs_255_239_scenario(t *testing.T) {
	var rs = init_rs_char(1, 16)
	require.NotNil(t, rs)

	var data = make([]byte, 239)
	for i := range data {
		data[i] = byte(i % 256)
	}

	var block = rs_encode_block(rs, data)
	require.Len(t, block, 255)

	// Corrupt 8 positions, t = 8 for this code.

	var corrupted = append([]byte(nil), block...)
	var positions = []int{3, 17, 88, 202, 250, 254, 128, 0}
	for _, p := range positions {
		corrupted[p] ^= 0xA5
	}

	var derrlocs = make([]int, rs.nroots)
	var derrors = decode_rs_char(rs, corrupted, derrlocs, 0)
	require.Equal(t, 8, derrors)
	assert.Equal(t, data, corrupted[:239])
	assert.ElementsMatch(t, positions, derrlocs[:derrors])

	// One more error than the code can correct must be reported,
	// never silently miscorrected into different data.

	corrupted = append([]byte(nil), block...)
	for _, p := range append(positions, 60) {
		corrupted[p] ^= 0xA5
	}

	derrors = decode_rs_char(rs, corrupted, derrlocs, 0)
	assert.Equal(t, -1, derrors)
}

func Test_rs_random_errors(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		var k = rapid.SampledFrom(rs_supported_k).Draw(t, "k")
		var fcr = rapid.IntRange(0, 1).Draw(t, "fcr")
		var rs = init_rs_char(fcr, 255-k)
		require.NotNil(t, rs)

		var tcap = rs.nroots / 2

		var data = rapid.SliceOfN(rapid.Byte(), k, k).Draw(t, "data")
		var block = rs_encode_block(rs, data)

		var nerr = rapid.IntRange(0, tcap).Draw(t, "nerr")
		var positions = rapid.SliceOfNDistinct(rapid.IntRange(0, 254), nerr, nerr, rapid.ID).Draw(t, "positions")
		var corrupted = append([]byte(nil), block...)
		for _, p := range positions {
			var e = rapid.ByteRange(1, 255).Draw(t, "e")
			corrupted[p] ^= e
		}

		var derrlocs = make([]int, rs.nroots)
		var derrors = decode_rs_char(rs, corrupted, derrlocs, 0)

		require.Equal(t, nerr, derrors)
		assert.Equal(t, data, corrupted[:k])
	})
}

// Shortened code through the IL2P helpers: data at the tail of the
// block, zero fill in front.

func Test_rs_shortened_il2p(t *testing.T) {
	il2p_init(0)

	rapid.Check(t, func(t *rapid.T) {
		var nparity = rapid.SampledFrom([]int{2, 4, 6, 8, 16}).Draw(t, "nparity")
		var dlen = rapid.IntRange(1, 100).Draw(t, "dlen")
		var data = rapid.SliceOfN(rapid.Byte(), dlen, dlen).Draw(t, "data")

		var parity = il2p_encode_rs(data, nparity)
		require.Len(t, parity, nparity)

		var rec = append(append([]byte(nil), data...), parity...)

		// Corrupt up to nparity/2 symbols.
		var nerr = rapid.IntRange(0, nparity/2).Draw(t, "nerr")
		var positions = rapid.SliceOfNDistinct(rapid.IntRange(0, len(rec)-1), nerr, nerr, rapid.ID).Draw(t, "positions")
		for _, p := range positions {
			rec[p] ^= rapid.ByteRange(1, 255).Draw(t, "e")
		}

		var out, corrected = il2p_decode_rs(rec, nparity)
		require.Equal(t, nerr, corrected)
		assert.Equal(t, data, out)
	})
}
