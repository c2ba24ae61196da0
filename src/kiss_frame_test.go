package packetprotocols

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"pgregory.net/rapid"
)

// End-to-end scenario: tricky payload full of FEND and FESC bytes.

func Test_kiss_escape_scenario(t *testing.T) {
	var payload = []byte{0xC0, 0xDB, 0xC0, 0x00, 0xDB}

	var framed = kiss_encapsulate(payload)

	assert.EqualValues(t, FEND, framed[0])
	assert.EqualValues(t, FEND, framed[len(framed)-1])

	// No bare FEND anywhere in the middle.
	assert.NotContains(t, framed[1:len(framed)-1], byte(FEND))

	var unframed = kiss_unwrap(framed)
	assert.Equal(t, payload, unframed)
}

func Test_kiss_escape_unescape_identity(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		var payload = rapid.SliceOfN(rapid.Byte(), 1, 600).Draw(t, "payload")

		var framed = kiss_encapsulate(payload)
		assert.NotContains(t, framed[1:len(framed)-1], byte(FEND))

		assert.Equal(t, payload, kiss_unwrap(framed))
	})
}

func Test_kiss_rec_byte_state_machine(t *testing.T) {
	var kf kiss_frame_t
	var got [][]byte
	var process = func(msg []byte) { got = append(got, msg) }

	var feed = func(data []byte) {
		for _, ch := range data {
			kiss_rec_byte(&kf, ch, 0, nil, process)
		}
	}

	// Noise before the first FEND is discarded.
	feed([]byte("garbage"))
	// Empty frames (FEND FEND) are dropped.
	feed([]byte{FEND, FEND, FEND})
	assert.Empty(t, got)

	// A data frame with escapes in the payload.
	var payload = []byte{0x00, 0xC0, 0xDB, 0x7E}
	feed(kiss_encapsulate(payload))
	require.Len(t, got, 1)
	assert.Equal(t, payload, got[0])

	// Two frames back to back share the middle FEND.
	got = nil
	var f1 = kiss_encapsulate([]byte{0x00, 0x01})
	var f2 = kiss_encapsulate([]byte{0x00, 0x02})
	feed(append(f1, f2[1:]...))
	require.Len(t, got, 2)
	assert.Equal(t, []byte{0x00, 0x01}, got[0])
	assert.Equal(t, []byte{0x00, 0x02}, got[1])
}

func Test_kiss_process_msg_parameters(t *testing.T) {
	var tnc = kiss_tnc_init(nil, nil)

	assert.Equal(t, DEFAULT_TXDELAY, tnc.kiss_get_txdelay(2))

	tnc.kiss_process_msg([]byte{0x21, 40}, nil) // Channel 2, TXDELAY, 400 mS.
	assert.Equal(t, 40, tnc.kiss_get_txdelay(2))

	tnc.kiss_process_msg([]byte{0x02, 128}, nil) // Channel 0, PERSIST.
	assert.Equal(t, 128, tnc.kiss_get_persist(0))

	tnc.kiss_process_msg([]byte{0x03, 20}, nil) // SLOTTIME.
	assert.Equal(t, 20, tnc.kiss_get_slottime(0))

	tnc.kiss_process_msg([]byte{0x04, 5}, nil) // TXTAIL.
	assert.Equal(t, 5, tnc.kiss_get_txtail(0))

	tnc.kiss_process_msg([]byte{0x05, 1}, nil) // FULLDUPLEX on.
	assert.True(t, tnc.kiss_get_fulldup(0))

	// Truncated parameter is rejected, state unchanged.
	tnc.kiss_process_msg([]byte{0x01}, nil)
	assert.Equal(t, 40, tnc.kiss_get_txdelay(2))
}

func Test_kiss_data_frame_dispatch(t *testing.T) {
	var got_channel = -1
	var got_pp *packet_t

	var tnc = kiss_tnc_init(func(channel int, pp *packet_t) {
		got_channel = channel
		got_pp = pp
	}, nil)

	var pp, err = ax25_u_frame([]string{"N0CALL", "W1AW-5"}, cr_cmd, frame_type_U_UI, 0, 0xf0, []byte("hi"))
	require.NoError(t, err)

	var msg = append([]byte{0x30}, ax25_get_frame_data(pp)...) // Channel 3, data.
	tnc.kiss_process_msg(msg, nil)

	assert.Equal(t, 3, got_channel)
	require.NotNil(t, got_pp)
	assert.Equal(t, "W1AW-5", ax25_get_addr_with_ssid(got_pp, AX25_SOURCE))
}

func Test_kiss_set_hardware_queries(t *testing.T) {
	var tnc = kiss_tnc_init(nil, nil)
	tnc.txbuf_count = func() int { return 123 }

	var responses [][]byte
	var sendfun = func(data []byte) { responses = append(responses, data) }

	tnc.kiss_process_msg(append([]byte{0x06}, []byte("TNC:")...), sendfun)
	require.Len(t, responses, 1)
	assert.True(t, bytes.Contains(responses[0], []byte("PACKETPROTOCOLS")))

	tnc.kiss_process_msg(append([]byte{0x06}, []byte("TXBUF:")...), sendfun)
	require.Len(t, responses, 2)
	assert.True(t, bytes.Contains(responses[1], []byte("TXBUF:123")))
}

func Test_kiss_negotiation_dispatch(t *testing.T) {
	var neg = modulation_negotiation_init("W1AW", []modulation_mode_t{MODE_4FSK, MODE_QPSK, MODE_8PSK}, 5000)

	var sent []byte
	neg.set_kiss_frame_sender(func(cmd byte, data []byte) {
		sent = append([]byte{cmd}, data...)
	})

	var tnc = kiss_tnc_init(nil, neg)

	var req = encode_negotiation_request("K1ABC", MODE_QPSK, []modulation_mode_t{MODE_BPSK, MODE_QPSK})
	tnc.kiss_process_msg(append([]byte{KISS_CMD_NEG_REQ}, req...), nil)

	require.NotEmpty(t, sent)
	assert.EqualValues(t, KISS_CMD_NEG_RESP, sent[0])
	assert.Equal(t, MODE_QPSK, neg.get_negotiated_mode())
}
