package packetprotocols

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"pgregory.net/rapid"
)

func Test_bitStuff(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		var in = rapid.SliceOf(rapid.Byte()).Draw(t, "in")

		var out, _ = bitStuff(in, 0) // 0 means no padding

		assert.GreaterOrEqualf(t, len(out), 2, "There should always be at least two bytes of output - the start and end flags! Got %v", out)
		assert.Equal(t, HDLC_FLAG, out[0], "Missing start flag")
		assert.GreaterOrEqual(t, len(out)-2, len(in), "Somehow bits were lost in stuffing!")
	})
}

// End-to-end scenario: 24 one-bits in a row get a stuffed zero after
// every fifth one, and unstuffing brings the original back.

func Test_bitStuff_all_ones(t *testing.T) {
	var in = []byte{0xff, 0xff, 0xff}

	var stuffed, _ = bitStuff(in, 0)

	// 8 flag + 24 data + 4 stuffed + 8 flag = 44 bits -> 6 bytes.
	assert.Len(t, stuffed, 6)

	// No six consecutive ones anywhere between the flags.
	var ones = 0
	for bit := 8; bit < len(stuffed)*8-8; bit++ {
		if stuffed[bit/8]&(1<<(bit%8)) != 0 {
			ones++
			assert.Less(t, ones, 6, "six consecutive one bits inside the frame")
		} else {
			ones = 0
		}
	}

	var out, err = bitUnstuff(stuffed)
	require.NoError(t, err)
	assert.Equal(t, in, out)
}

func Test_bitStuff_unstuff_identity(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		var in = rapid.SliceOfN(rapid.Byte(), 1, 300).Draw(t, "in")

		var stuffed, _ = bitStuff(in, 0)
		var out, err = bitUnstuff(stuffed)

		require.NoError(t, err)
		assert.Equal(t, in, out)
	})
}

func Test_bitStuff_padding(t *testing.T) {
	var in = []byte{0x01, 0x02, 0x03}
	var out, meaningful = bitStuff(in, 64)

	assert.Len(t, out, 64)
	assert.LessOrEqual(t, meaningful, 64)

	// Still unstuffs despite the flag fill.
	var recovered, err = bitUnstuff(out)
	require.NoError(t, err)
	assert.Equal(t, in, recovered)
}

func Test_hdlc_rec_roundtrip(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		var pp, err = ax25_u_frame(
			[]string{rapid_callsign.Draw(t, "dst"), rapid_callsign.Draw(t, "src")},
			cr_cmd, frame_type_U_UI, 0, 0xf0,
			rapid.SliceOfN(rapid.Byte(), 1, 100).Draw(t, "info"))
		require.NoError(t, err)

		var fbuf = ax25_get_frame_data(pp)
		var stream = hdlc_send_frame(fbuf)

		var got [][]byte
		var H = hdlc_rec_init(func(frame []byte) {
			got = append(got, frame)
		}, nil)

		// A little idle time before and after, like a real channel.
		H.hdlc_rec_block([]byte{0x7e, 0x7e})
		H.hdlc_rec_block(stream)
		H.hdlc_rec_block([]byte{0x7e, 0x7e})

		require.Len(t, got, 1)
		assert.Equal(t, fbuf, got[0])
	})
}

func Test_hdlc_rec_bad_fcs(t *testing.T) {
	var pp, err = ax25_u_frame([]string{"N0CALL", "W1AW"}, cr_cmd, frame_type_U_UI, 0, 0xf0, []byte("x"))
	require.NoError(t, err)

	var fbuf = ax25_get_frame_data(pp)
	var fcs = fcs_calc(fbuf)
	var with_fcs = append(append([]byte(nil), fbuf...), byte(fcs&0xff)^0x01, byte(fcs>>8))
	var stream, _ = bitStuff(with_fcs, 0)

	var frames = 0
	var errors = 0
	var H = hdlc_rec_init(
		func(frame []byte) { frames++ },
		func(err error) { errors++ })

	H.hdlc_rec_block(stream)
	H.hdlc_rec_block([]byte{0x7e})

	assert.Equal(t, 0, frames)
	assert.Equal(t, 1, errors)
}
