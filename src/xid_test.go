package packetprotocols

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"pgregory.net/rapid"
)

func Test_xid_encode_parse_roundtrip(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		var param = &xid_param_s{
			full_duplex:       rapid.IntRange(0, 1).Draw(t, "fd"),
			srej:              rapid.SampledFrom([]srej_t{srej_none, srej_single, srej_multi}).Draw(t, "srej"),
			modulo:            rapid.SampledFrom([]modulo_t{modulo_8, modulo_128}).Draw(t, "modulo"),
			i_field_length_rx: rapid.IntRange(1, 8191).Draw(t, "ifl"),
			window_size_rx:    rapid.IntRange(1, 127).Draw(t, "ws"),
			ack_timer:         rapid.IntRange(1, 65535).Draw(t, "at"),
			retries:           rapid.IntRange(0, 255).Draw(t, "rt"),
		}
		var cr = rapid.SampledFrom([]cmdres_t{cr_cmd, cr_res}).Draw(t, "cr")

		var info = xid_encode(param, cr)
		assert.LessOrEqual(t, len(info), 27)

		var result, _, err = xid_parse(info)
		require.NoError(t, err)

		assert.Equal(t, param.full_duplex, result.full_duplex)
		assert.Equal(t, param.modulo, result.modulo)
		assert.Equal(t, param.i_field_length_rx, result.i_field_length_rx)
		assert.Equal(t, param.window_size_rx, result.window_size_rx)
		assert.Equal(t, param.ack_timer, result.ack_timer)
		assert.Equal(t, param.retries, result.retries)

		// A response picks exactly the level offered; a command's menu
		// parses back as the highest offered level.
		assert.Equal(t, param.srej, result.srej)
	})
}

func Test_xid_omitted_fields(t *testing.T) {
	var param = &xid_param_s{
		full_duplex:       0,
		srej:              srej_single,
		modulo:            modulo_8,
		i_field_length_rx: G_UNKNOWN,
		window_size_rx:    G_UNKNOWN,
		ack_timer:         G_UNKNOWN,
		retries:           G_UNKNOWN,
	}

	var info = xid_encode(param, cr_res)

	// Just the header and the two always-present groups.
	assert.Len(t, info, 4+4+5)

	var result, _, err = xid_parse(info)
	require.NoError(t, err)
	assert.Equal(t, G_UNKNOWN, result.i_field_length_rx)
	assert.Equal(t, G_UNKNOWN, result.window_size_rx)
	assert.Equal(t, G_UNKNOWN, result.ack_timer)
	assert.Equal(t, G_UNKNOWN, result.retries)
}

func Test_xid_empty_info(t *testing.T) {
	var result, _, err = xid_parse(nil)
	require.NoError(t, err)
	assert.Equal(t, srej_not_specified, result.srej)
	assert.Equal(t, modulo_unknown, result.modulo)
}

func Test_xid_malformed(t *testing.T) {
	// Wrong format indicator.
	var _, _, err = xid_parse([]byte{0x00, GI_Group_Identifier, 0, 0})
	assert.ErrorIs(t, err, ErrMalformedFrame)

	// Group length overruns the frame.
	_, _, err = xid_parse([]byte{FI_Format_Indicator, GI_Group_Identifier, 0x10, 0x00})
	assert.ErrorIs(t, err, ErrMalformedFrame)

	// Truncated parameter value.
	var good = xid_encode(&xid_param_s{
		full_duplex: 0, srej: srej_none, modulo: modulo_8,
		i_field_length_rx: 256, window_size_rx: G_UNKNOWN,
		ack_timer: G_UNKNOWN, retries: G_UNKNOWN,
	}, cr_cmd)
	_, _, err = xid_parse(good[:len(good)-1])
	assert.ErrorIs(t, err, ErrMalformedFrame)
}
