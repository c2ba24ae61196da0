package packetprotocols

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"pgregory.net/rapid"
)

func Test_fx25_tag_table(t *testing.T) {
	fx25_init(0)

	// Exact values match.
	for c := CTAG_MIN; c <= CTAG_MAX; c++ {
		assert.Equal(t, c, fx25_tag_find_match(fx25_get_ctag_value(c)))
	}

	// A few flipped bits are tolerated.
	assert.Equal(t, 0x01, fx25_tag_find_match(fx25_get_ctag_value(0x01)^0x8001))

	// Random noise is not.
	assert.Equal(t, -1, fx25_tag_find_match(0x123456789abcdef0))
}

func Test_fx25_pick_mode(t *testing.T) {
	fx25_init(0)

	// Specific tag by number.
	assert.Equal(t, 1, fx25_pick_mode(100+1, 239))
	assert.Equal(t, -1, fx25_pick_mode(100+1, 240))

	// By number of check bytes: the shortest fitting format.
	assert.Equal(t, 4, fx25_pick_mode(16, 32))
	assert.Equal(t, 3, fx25_pick_mode(16, 64))
	assert.Equal(t, 2, fx25_pick_mode(16, 128))
	assert.Equal(t, 1, fx25_pick_mode(16, 239))
	assert.Equal(t, -1, fx25_pick_mode(16, 240))

	assert.Equal(t, 8, fx25_pick_mode(32, 32))
	assert.Equal(t, 5, fx25_pick_mode(32, 223))
	assert.Equal(t, -1, fx25_pick_mode(32, 234))

	assert.Equal(t, 11, fx25_pick_mode(64, 64))
	assert.Equal(t, 9, fx25_pick_mode(64, 191))
	assert.Equal(t, -1, fx25_pick_mode(64, 192))

	// Automatic.
	assert.Equal(t, 4, fx25_pick_mode(1, 32))
	assert.Equal(t, 3, fx25_pick_mode(1, 64))
	assert.Equal(t, 6, fx25_pick_mode(1, 128))
	assert.Equal(t, 9, fx25_pick_mode(1, 191))
	assert.Equal(t, 5, fx25_pick_mode(1, 223))
	assert.Equal(t, 1, fx25_pick_mode(1, 239))
	assert.Equal(t, -1, fx25_pick_mode(1, 240))

	// None.
	assert.Equal(t, -1, fx25_pick_mode(0, 10))
}

func fx25_test_frame(t rapid.TB, infolen int) *packet_t {
	var info = make([]byte, infolen)
	for i := range info {
		info[i] = byte(i)
	}
	var pp, err = ax25_u_frame([]string{"N0CALL-1", "W1AW-5"}, cr_cmd, frame_type_U_UI, 0, 0xf0, info)
	require.NoError(t, err)
	return pp
}

func Test_fx25_encode_decode_roundtrip(t *testing.T) {
	fx25_init(0)

	rapid.Check(t, func(t *rapid.T) {
		var fx_mode = rapid.SampledFrom([]int{1, 16, 32, 64}).Draw(t, "fx_mode")

		// The 64 check byte codes carry at most 191 data bytes, so
		// keep the stuffed frame within that for mode 64.
		var max_info = IfThenElse(fx_mode == 64, 160, 180)
		var pp = fx25_test_frame(t, rapid.IntRange(1, max_info).Draw(t, "infolen"))
		var fbuf = ax25_get_frame_data(pp)

		var encoded, err = fx25_encode_frame(fbuf, fx_mode)
		require.NoError(t, err)

		// Corrupt up to half the check capacity in the block after
		// the correlation tag.
		var nroots = len(encoded) - 8 - func() int {
			// data part length = total - tag - check; infer check from the tag.
			var ctag = fx25_tag_find_match(le64(encoded[:8]))
			require.GreaterOrEqual(t, ctag, CTAG_MIN)
			return fx25_get_k_data_radio(ctag)
		}()
		var nerr = rapid.IntRange(0, nroots/2).Draw(t, "nerr")
		var positions = rapid.SliceOfNDistinct(rapid.IntRange(8, len(encoded)-1), nerr, nerr, rapid.ID).Draw(t, "positions")
		for _, p := range positions {
			encoded[p] ^= rapid.ByteRange(1, 255).Draw(t, "e")
		}

		var got [][]byte
		var F = fx25_rec_init(func(frame []byte, corrected int) {
			got = append(got, frame)
		}, nil)

		F.fx25_rec_block(encoded)

		require.Len(t, got, 1)
		assert.Equal(t, fbuf, got[0])
	})
}

func Test_fx25_uncorrectable(t *testing.T) {
	fx25_init(0)

	var pp = fx25_test_frame(t, 50)
	var encoded, err = fx25_encode_frame(ax25_get_frame_data(pp), 16)
	require.NoError(t, err)

	// Twice the check capacity of errors, in the data part after the tag.
	for i := 0; i < 16; i++ {
		encoded[8+i*2] ^= 0xa5
	}

	var frames = 0
	var fecErrors = 0
	var F = fx25_rec_init(
		func(frame []byte, corrected int) { frames++ },
		func(err error) { fecErrors++ })

	F.fx25_rec_block(encoded)

	assert.Equal(t, 0, frames)
	assert.Equal(t, 1, fecErrors)
}

func Test_fx25_decode_frame(t *testing.T) {
	fx25_init(0)

	var pp = fx25_test_frame(t, 40)
	var fbuf = ax25_get_frame_data(pp)
	var encoded, err = fx25_encode_frame(fbuf, 32)
	require.NoError(t, err)

	var frame, corrected, derr = fx25_decode_frame(encoded)
	require.NoError(t, derr)
	assert.Equal(t, 0, corrected)
	assert.Equal(t, fbuf, frame)

	// A stream with no correlation tag anywhere.
	var _, _, uerr = fx25_decode_frame(make([]byte, 500))
	assert.ErrorIs(t, uerr, ErrUnknownTag)
}

func Test_fx25_encoder_config(t *testing.T) {
	var mode, err = fx25_encoder_mode(fx25_encoder_config_t{fec_type: FX25_FEC_RS_255_239, interleaver_depth: 1})
	require.NoError(t, err)
	assert.Equal(t, 16, mode)

	mode, err = fx25_encoder_mode(fx25_encoder_config_t{fec_type: FX25_FEC_RS_255_191})
	require.NoError(t, err)
	assert.Equal(t, 64, mode)

	// No correlation tag exists for the deep codes.
	_, err = fx25_encoder_mode(fx25_encoder_config_t{fec_type: FX25_FEC_RS_255_31})
	assert.ErrorIs(t, err, ErrInvalidArgument)

	// Interleaving and extra checksums have no wire representation.
	_, err = fx25_encoder_mode(fx25_encoder_config_t{fec_type: FX25_FEC_RS_255_239, interleaver_depth: 4})
	assert.ErrorIs(t, err, ErrInvalidArgument)
	_, err = fx25_encoder_mode(fx25_encoder_config_t{fec_type: FX25_FEC_RS_255_239, add_checksum: true})
	assert.ErrorIs(t, err, ErrInvalidArgument)
}

func le64(b []byte) uint64 {
	var v uint64
	for i := 7; i >= 0; i-- {
		v = v<<8 | uint64(b[i])
	}
	return v
}
