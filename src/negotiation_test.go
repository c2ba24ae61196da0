package packetprotocols

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"pgregory.net/rapid"
)

func Test_negotiation_frame_roundtrips(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		var station = rapid.StringMatching(`[A-Z0-9-]{1,12}`).Draw(t, "station")
		var mode = modulation_mode_t(rapid.IntRange(0, MODE_COUNT-1).Draw(t, "mode"))

		// NEG_REQ
		var nmodes = rapid.IntRange(0, NEG_MAX_SUPPORTED_MODES).Draw(t, "nmodes")
		var supported = make([]modulation_mode_t, nmodes)
		for i := range supported {
			supported[i] = modulation_mode_t(rapid.IntRange(0, MODE_COUNT-1).Draw(t, "sup"))
		}
		var sid, pm, sup, ok = decode_negotiation_request(encode_negotiation_request(station, mode, supported))
		require.True(t, ok)
		assert.Equal(t, station, sid)
		assert.Equal(t, mode, pm)
		assert.Equal(t, len(supported), len(sup))
		for i := range supported {
			assert.Equal(t, supported[i], sup[i])
		}

		// NEG_RESP
		var accepted = rapid.Bool().Draw(t, "accepted")
		var rid, racc, rmode, rok = decode_negotiation_response(encode_negotiation_response(station, accepted, mode))
		require.True(t, rok)
		assert.Equal(t, station, rid)
		assert.Equal(t, accepted, racc)
		assert.Equal(t, mode, rmode)

		// MODE_CHANGE
		var cid, cmode, cok = decode_mode_change(encode_mode_change(station, mode))
		require.True(t, cok)
		assert.Equal(t, station, cid)
		assert.Equal(t, mode, cmode)

		// QUALITY_FB
		var snr = float32(rapid.IntRange(-200, 400).Draw(t, "snr")) / 10
		var ber = float32(rapid.IntRange(0, 1000).Draw(t, "ber")) / 1000
		var score = float32(rapid.IntRange(0, 100).Draw(t, "score")) / 100
		var qid, qsnr, qber, qscore, qok = decode_quality_feedback(encode_quality_feedback(station, snr, ber, score))
		require.True(t, qok)
		assert.Equal(t, station, qid)
		assert.Equal(t, snr, qsnr)
		assert.Equal(t, ber, qber)
		assert.Equal(t, score, qscore)
	})
}

func Test_negotiation_decode_truncated(t *testing.T) {
	var _, _, _, ok = decode_negotiation_request([]byte{5, 'A'})
	assert.False(t, ok)

	var _, _, _, rok = decode_negotiation_response([]byte{1, 'A', 1})
	assert.False(t, rok)

	var _, _, cok = decode_mode_change([]byte{7})
	assert.False(t, cok)

	var _, _, _, _, qok = decode_quality_feedback(encode_quality_feedback("STATION", 1, 2, 3)[:10])
	assert.False(t, qok)
}

type captured_frame_t struct {
	cmd  byte
	data []byte
}

func negotiation_capture(n *modulation_negotiation_t) *[]captured_frame_t {
	var sent []captured_frame_t
	n.set_kiss_frame_sender(func(cmd byte, data []byte) {
		sent = append(sent, captured_frame_t{cmd, data})
	})
	return &sent
}

// End-to-end scenario: responder accepts the proposed common mode.

func Test_negotiation_responder_accepts_common_mode(t *testing.T) {
	var n = modulation_negotiation_init("LOCAL", []modulation_mode_t{MODE_4FSK, MODE_QPSK, MODE_8PSK}, 5000)
	var sent = negotiation_capture(n)

	var req = encode_negotiation_request("PEER", MODE_QPSK, []modulation_mode_t{MODE_BPSK, MODE_QPSK})
	n.handle_negotiation_frame(KISS_CMD_NEG_REQ, req)

	require.Len(t, *sent, 1)
	assert.EqualValues(t, KISS_CMD_NEG_RESP, (*sent)[0].cmd)

	var sid, accepted, mode, ok = decode_negotiation_response((*sent)[0].data)
	require.True(t, ok)
	assert.Equal(t, "LOCAL", sid)
	assert.True(t, accepted)
	assert.Equal(t, MODE_QPSK, mode)

	assert.Equal(t, MODE_QPSK, n.get_negotiated_mode())
}

func Test_negotiation_responder_picks_highest_common_rate(t *testing.T) {
	var n = modulation_negotiation_init("LOCAL", []modulation_mode_t{MODE_2FSK, MODE_QPSK, MODE_QAM16}, 5000)
	var sent = negotiation_capture(n)

	// Proposed mode is not supported locally; QPSK (2400) and QAM16
	// (4800) are common, QAM16 wins.
	var req = encode_negotiation_request("PEER", MODE_QAM64, []modulation_mode_t{MODE_QPSK, MODE_QAM16})
	n.handle_negotiation_frame(KISS_CMD_NEG_REQ, req)

	require.Len(t, *sent, 1)
	var _, accepted, mode, _ = decode_negotiation_response((*sent)[0].data)
	assert.True(t, accepted)
	assert.Equal(t, MODE_QAM16, mode)
}

func Test_negotiation_responder_rejects_no_common_mode(t *testing.T) {
	var n = modulation_negotiation_init("LOCAL", []modulation_mode_t{MODE_2FSK}, 5000)
	var sent = negotiation_capture(n)

	var before = n.get_negotiated_mode()

	var req = encode_negotiation_request("PEER", MODE_QAM64, []modulation_mode_t{MODE_QAM16})
	n.handle_negotiation_frame(KISS_CMD_NEG_REQ, req)

	require.Len(t, *sent, 1)
	var _, accepted, _, _ = decode_negotiation_response((*sent)[0].data)
	assert.False(t, accepted)
	assert.Equal(t, before, n.get_negotiated_mode())
}

func Test_negotiation_initiator_accept_flow(t *testing.T) {
	var rc = adaptive_rate_control_init(MODE_4FSK, true, 2.0, false)
	var n = modulation_negotiation_init("LOCAL", []modulation_mode_t{MODE_4FSK, MODE_8PSK}, 5000)
	n.set_auto_negotiation_enabled(false, rc)
	var sent = negotiation_capture(n)

	n.initiate_negotiation("PEER", MODE_8PSK)
	assert.True(t, n.is_negotiating())
	require.Len(t, *sent, 1)
	assert.EqualValues(t, KISS_CMD_NEG_REQ, (*sent)[0].cmd)

	n.handle_negotiation_frame(KISS_CMD_NEG_RESP, encode_negotiation_response("PEER", true, MODE_8PSK))

	assert.False(t, n.is_negotiating())
	assert.Equal(t, MODE_8PSK, n.get_negotiated_mode())
	assert.Equal(t, MODE_8PSK, rc.get_modulation_mode())

	// The confirmation went out.
	require.Len(t, *sent, 2)
	assert.EqualValues(t, KISS_CMD_NEG_ACK, (*sent)[1].cmd)
}

func Test_negotiation_initiator_reject_reverts(t *testing.T) {
	var n = modulation_negotiation_init("LOCAL", []modulation_mode_t{MODE_4FSK, MODE_8PSK}, 5000)
	negotiation_capture(n)

	var before = n.get_negotiated_mode()

	n.initiate_negotiation("PEER", MODE_8PSK)
	n.handle_negotiation_frame(KISS_CMD_NEG_RESP, encode_negotiation_response("PEER", false, MODE_8PSK))

	assert.False(t, n.is_negotiating())
	assert.Equal(t, before, n.get_negotiated_mode())
}

func Test_negotiation_timeout_reverts(t *testing.T) {
	var n = modulation_negotiation_init("LOCAL", []modulation_mode_t{MODE_4FSK, MODE_8PSK}, 100)
	negotiation_capture(n)

	var before = n.get_negotiated_mode()

	n.initiate_negotiation("PEER", MODE_8PSK)
	assert.True(t, n.is_negotiating())

	// Before the deadline nothing happens.
	n.work(time.Now())
	assert.True(t, n.is_negotiating())

	// After the deadline the pending mode reverts.
	n.work(time.Now().Add(200 * time.Millisecond))
	assert.False(t, n.is_negotiating())
	assert.Equal(t, before, n.get_negotiated_mode())
}

func Test_negotiation_auto_mode_change(t *testing.T) {
	var rc = adaptive_rate_control_init(MODE_4FSK, true, 2.0, false)
	var n = modulation_negotiation_init("LOCAL", []modulation_mode_t{MODE_4FSK, MODE_QPSK, MODE_QAM64}, 5000)
	var sent = negotiation_capture(n)

	n.set_auto_negotiation_enabled(true, rc)

	// Learn about a peer first.
	n.handle_negotiation_frame(KISS_CMD_NEG_REQ,
		encode_negotiation_request("PEER", MODE_4FSK, []modulation_mode_t{MODE_4FSK}))
	*sent = nil

	// Rate control moves; the next work cycle must announce it.
	rc.set_modulation_mode(MODE_QAM64)
	n.work(time.Now())

	require.NotEmpty(t, *sent)
	assert.EqualValues(t, KISS_CMD_MODE_CHANGE, (*sent)[0].cmd)
	var _, mode, ok = decode_mode_change((*sent)[0].data)
	require.True(t, ok)
	assert.Equal(t, MODE_QAM64, mode)

	// And a renegotiation with the primary peer follows.
	var last = (*sent)[len(*sent)-1]
	assert.EqualValues(t, KISS_CMD_NEG_REQ, last.cmd)
}

func Test_negotiation_quality_feedback_updates_monitor(t *testing.T) {
	var m = link_quality_monitor_init(0.5, 10)
	var n = modulation_negotiation_init("LOCAL", []modulation_mode_t{MODE_4FSK}, 5000)
	n.set_quality_monitor(m)

	n.handle_negotiation_frame(KISS_CMD_QUALITY_FB,
		encode_quality_feedback("PEER", 17.5, 0.001, 0.8))

	assert.InDelta(t, 17.5, m.get_snr(), 0.001)
	assert.InDelta(t, 0.001, m.get_ber(), 0.000001)
}
