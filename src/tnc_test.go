package packetprotocols

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const tnc_a_call = "W1AW-1"
const tnc_b_call = "N0CALL-2"

// Two TNCs wired back to back: one's modulator feeds the other's
// demodulator, as if through perfect radios.

func tnc_pair(t *testing.T, layer2 string) (*tnc_t, *tnc_t) {
	t.Helper()

	var cfg_a = config_defaults()
	cfg_a.Mycall = tnc_a_call
	cfg_a.Layer2 = layer2

	var cfg_b = config_defaults()
	cfg_b.Mycall = tnc_b_call
	cfg_b.Layer2 = layer2

	var a = tnc_init(cfg_a)
	var b = tnc_init(cfg_b)
	require.NotNil(t, a)
	require.NotNil(t, b)

	a.modulator_out = func(data []byte) {
		b.demod_bytes(data)
		b.demod_bytes([]byte{0x00}) // A breath of idle channel.
	}
	b.modulator_out = func(data []byte) {
		a.demod_bytes(data)
		a.demod_bytes([]byte{0x00})
	}

	return a, b
}

func Test_tnc_connected_mode_end_to_end(t *testing.T) {
	for _, layer2 := range []string{LAYER2_AX25, LAYER2_FX25, LAYER2_IL2P} {
		t.Run(layer2, func(t *testing.T) {
			var a, b = tnc_pair(t, layer2)

			require.NoError(t, a.link.connect(tnc_b_call))

			// The SABM/UA exchange happens synchronously through the
			// wired-together byte streams.
			assert.Equal(t, state_connected, a.link.connection_state(tnc_b_call))
			assert.Equal(t, state_connected, b.link.connection_state(tnc_a_call))

			require.NoError(t, a.link.send(tnc_b_call, []byte("hello over "+layer2)))

			var remote, data, ok = b.link.receive()
			require.True(t, ok)
			assert.Equal(t, tnc_a_call, remote)
			assert.Equal(t, []byte("hello over "+layer2), data)

			// And back the other way.
			require.NoError(t, b.link.send(tnc_a_call, []byte("likewise")))
			remote, data, ok = a.link.receive()
			require.True(t, ok)
			assert.Equal(t, tnc_b_call, remote)
			assert.Equal(t, []byte("likewise"), data)

			// Clean teardown.
			require.NoError(t, a.link.disconnect(tnc_b_call))
			assert.Equal(t, state_disconnected, a.link.connection_state(tnc_b_call))
		})
	}
}

func Test_tnc_quality_drives_rate_control(t *testing.T) {
	var a, _ = tnc_pair(t, LAYER2_AX25)

	assert.Equal(t, MODE_4FSK, a.get_modulation_mode())

	// A long stretch of excellent SNR walks the EMA up and the rate
	// control follows.
	for i := 0; i < 200; i++ {
		a.quality_sample(30.0, 0.0)
	}

	var m = a.get_modulation_mode()
	assert.Greater(t, mode_data_rates[m], mode_data_rates[MODE_4FSK])
}

func Test_tnc_negotiation_over_kiss(t *testing.T) {
	var a, b = tnc_pair(t, LAYER2_AX25)

	// The negotiation frames leave through the client output as KISS
	// byte streams; feed each side's output into the other's KISS
	// dispatch, as the in-band carriage would.
	var wire = func(from *tnc_t, to *tnc_t) func([]byte) {
		var kf kiss_frame_t
		return func(data []byte) {
			for _, ch := range data {
				kiss_rec_byte(&kf, ch, 0, nil, func(msg []byte) {
					to.kiss.kiss_process_msg(msg, nil)
				})
			}
		}
	}
	a.client_out = wire(a, b)
	b.client_out = wire(b, a)

	a.negotiation.initiate_negotiation(tnc_b_call, MODE_QPSK)

	// Request, response, and acknowledgement all flow synchronously.
	assert.False(t, a.negotiation.is_negotiating())
	assert.Equal(t, MODE_QPSK, a.negotiation.get_negotiated_mode())
	assert.Equal(t, MODE_QPSK, b.negotiation.get_negotiated_mode())
	assert.Equal(t, MODE_QPSK, a.get_modulation_mode())
	assert.Equal(t, MODE_QPSK, b.get_modulation_mode())
}

func Test_tnc_work_cycle_timers(t *testing.T) {
	var cfg = config_defaults()
	cfg.Mycall = tnc_a_call

	var a = tnc_init(cfg)
	require.NotNil(t, a)
	a.modulator_out = func(data []byte) {} // Nobody listening.

	require.NoError(t, a.link.connect(tnc_b_call))

	// Nobody answers; enough work cycles exhaust the retries.
	var now = time.Now()
	for i := 0; i < 10; i++ {
		now = now.Add(4 * time.Second)
		a.work(now)
	}

	assert.Equal(t, state_disconnected, a.link.connection_state(tnc_b_call))
}
