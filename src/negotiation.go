package packetprotocols

/*-------------------------------------------------------------
 *
 * Purpose:	Modulation negotiation between peer TNCs, carried
 *		in-band over the KISS link.
 *
 * Description:	The initiator proposes a mode with NEG_REQ and starts
 *		a timeout.  The responder intersects the offered mode
 *		list with its own: the proposed mode wins if common,
 *		otherwise the highest rate common mode, otherwise the
 *		request is rejected.  NEG_RESP carries the verdict and
 *		the initiator confirms with NEG_ACK.  A timeout reverts
 *		the pending mode.
 *
 *		When bound to a rate control instance, the work cycle
 *		watches for local mode changes and announces them with
 *		MODE_CHANGE to every known peer, then renegotiates with
 *		the primary peer.
 *
 *		Outgoing frames leave through a single-slot callback,
 *		overwritable at runtime, which is always invoked with
 *		the engine's lock released.
 *
 *--------------------------------------------------------------*/

import (
	"sync"
	"time"
)

const DEFAULT_NEGOTIATION_TIMEOUT_MS = 5000

type kiss_frame_sender_t func(cmd byte, data []byte)

type modulation_negotiation_t struct {
	mu sync.Mutex

	station_id          string
	supported_modes     []modulation_mode_t
	negotiation_timeout time.Duration

	// Initiator state.
	negotiating          bool
	remote_station_id    string // Primary peer: the one we last negotiated with.
	negotiated_mode      modulation_mode_t
	pending_mode         modulation_mode_t
	negotiation_deadline time.Time

	// Mode agreed with each station we have talked to.
	negotiated_modes map[string]modulation_mode_t

	// Last mode each peer announced with MODE_CHANGE.
	peer_modes map[string]modulation_mode_t

	send_kiss_frame kiss_frame_sender_t

	// Automatic negotiation.
	auto_negotiation_enabled bool
	rate_control             *adaptive_rate_control_t // Borrowed; owner outlives us.
	last_monitored_mode      modulation_mode_t

	// Received quality feedback lands here when set.
	monitor *link_quality_monitor_t
}

func modulation_negotiation_init(station_id string, supported_modes []modulation_mode_t, negotiation_timeout_ms int) *modulation_negotiation_t {
	if negotiation_timeout_ms <= 0 {
		negotiation_timeout_ms = DEFAULT_NEGOTIATION_TIMEOUT_MS
	}

	var n = &modulation_negotiation_t{
		station_id:          station_id,
		supported_modes:     append([]modulation_mode_t(nil), supported_modes...),
		negotiation_timeout: time.Duration(negotiation_timeout_ms) * time.Millisecond,
		negotiated_mode:     MODE_4FSK,
		pending_mode:        MODE_4FSK,
		negotiated_modes:    make(map[string]modulation_mode_t),
		peer_modes:          make(map[string]modulation_mode_t),
	}

	// Default to first supported mode.
	if len(n.supported_modes) > 0 {
		n.negotiated_mode = n.supported_modes[0]
		n.pending_mode = n.supported_modes[0]
	}

	return n
}

// The callback is a single slot, overwritable at runtime.  It is never
// invoked with the lock held, so it may call back into this engine.

func (n *modulation_negotiation_t) set_kiss_frame_sender(cb kiss_frame_sender_t) {
	n.mu.Lock()
	n.send_kiss_frame = cb
	n.mu.Unlock()
}

func (n *modulation_negotiation_t) set_quality_monitor(m *link_quality_monitor_t) {
	n.mu.Lock()
	n.monitor = m
	n.mu.Unlock()
}

func (n *modulation_negotiation_t) get_negotiated_mode() modulation_mode_t {
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.negotiated_mode
}

func (n *modulation_negotiation_t) is_negotiating() bool {
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.negotiating
}

func (n *modulation_negotiation_t) get_supported_modes() []modulation_mode_t {
	n.mu.Lock()
	defer n.mu.Unlock()
	return append([]modulation_mode_t(nil), n.supported_modes...)
}

func (n *modulation_negotiation_t) supports_locked(mode modulation_mode_t) bool {
	for _, m := range n.supported_modes {
		if m == mode {
			return true
		}
	}
	return false
}

// An outgoing frame plus the callback to deliver it, captured under the
// lock, sent after release.

type queued_frame_t struct {
	cb   kiss_frame_sender_t
	cmd  byte
	data []byte
}

func (q *queued_frame_t) send() {
	if q != nil && q.cb != nil {
		q.cb(q.cmd, q.data)
	}
}

func (n *modulation_negotiation_t) queue_locked(cmd byte, data []byte) *queued_frame_t {
	if n.send_kiss_frame == nil {
		text_color_set(DW_COLOR_ERROR)
		dw_printf("Negotiation: no KISS frame sender installed, dropping command 0x%02x.\n", cmd)
		return nil
	}
	return &queued_frame_t{cb: n.send_kiss_frame, cmd: cmd, data: data}
}

/*-------------------------------------------------------------
 *
 * Name:	initiate_negotiation
 *
 * Purpose:	Propose a modulation mode to a peer.
 *
 * Inputs:	remote_station_id - Who to ask.
 *		proposed_mode	  - What we would like to run.  An
 *				    unsupported proposal degrades to the
 *				    currently negotiated mode.
 *
 *--------------------------------------------------------------*/

func (n *modulation_negotiation_t) initiate_negotiation(remote_station_id string, proposed_mode modulation_mode_t) {
	n.mu.Lock()

	if !n.supports_locked(proposed_mode) {
		proposed_mode = n.negotiated_mode
	}

	n.remote_station_id = remote_station_id
	n.pending_mode = proposed_mode
	n.negotiating = true
	n.negotiation_deadline = time.Now().Add(n.negotiation_timeout)

	var out = n.queue_locked(KISS_CMD_NEG_REQ,
		encode_negotiation_request(n.station_id, proposed_mode, n.supported_modes))

	n.mu.Unlock()

	out.send()
}

/*-------------------------------------------------------------
 *
 * Name:	handle_negotiation_frame
 *
 * Purpose:	Process a received negotiation command.  Called from
 *		the KISS dispatch.
 *
 * Inputs:	cmd	- KISS command byte, 0x10 - 0x14.
 *		data	- Message payload after the command byte.
 *
 *--------------------------------------------------------------*/

func (n *modulation_negotiation_t) handle_negotiation_frame(cmd byte, data []byte) {
	switch cmd {

	case KISS_CMD_NEG_REQ:
		var station_id, proposed, peer_supported, ok = decode_negotiation_request(data)
		if !ok {
			text_color_set(DW_COLOR_ERROR)
			dw_printf("Negotiation: malformed NEG_REQ.\n")
			return
		}
		n.respond_to_request(station_id, proposed, peer_supported)

	case KISS_CMD_NEG_RESP:
		var station_id, accepted, negotiated, ok = decode_negotiation_response(data)
		if !ok {
			text_color_set(DW_COLOR_ERROR)
			dw_printf("Negotiation: malformed NEG_RESP.\n")
			return
		}
		n.handle_response(station_id, accepted, negotiated)

	case KISS_CMD_NEG_ACK:
		var station_id, _, negotiated, ok = decode_negotiation_response(data)
		if !ok {
			// The ACK echoes the response layout; a bare station id
			// is tolerated too.
			return
		}
		n.mu.Lock()
		n.negotiated_modes[station_id] = negotiated
		n.mu.Unlock()

	case KISS_CMD_MODE_CHANGE:
		var station_id, new_mode, ok = decode_mode_change(data)
		if !ok {
			text_color_set(DW_COLOR_ERROR)
			dw_printf("Negotiation: malformed MODE_CHANGE.\n")
			return
		}
		n.mu.Lock()
		n.peer_modes[station_id] = new_mode
		n.mu.Unlock()
		text_color_set(DW_COLOR_INFO)
		dw_printf("Negotiation: %s changed mode to %s.\n", station_id, new_mode)

	case KISS_CMD_QUALITY_FB:
		var station_id, snr, ber, quality, ok = decode_quality_feedback(data)
		if !ok {
			text_color_set(DW_COLOR_ERROR)
			dw_printf("Negotiation: malformed QUALITY_FB.\n")
			return
		}
		n.mu.Lock()
		var monitor = n.monitor
		n.mu.Unlock()
		if monitor != nil {
			monitor.update_snr(snr)
			monitor.update_ber(ber)
		}
		text_color_set(DW_COLOR_DEBUG)
		dw_printf("Negotiation: quality feedback from %s: snr %.1f dB, ber %.2e, score %.2f\n", station_id, snr, ber, quality)

	default:
		text_color_set(DW_COLOR_ERROR)
		dw_printf("Negotiation: unexpected command 0x%02x.\n", cmd)
	}
}

/*-------------------------------------------------------------
 *
 * Name:	respond_to_request
 *
 * Purpose:	Responder side.  Stateless per request: intersect the
 *		peer's mode list with ours, prefer the proposed mode,
 *		else the highest rate common mode, else reject.
 *
 *--------------------------------------------------------------*/

func (n *modulation_negotiation_t) respond_to_request(station_id string, proposed modulation_mode_t, peer_supported []modulation_mode_t) {
	n.mu.Lock()

	var common = make(map[modulation_mode_t]bool)
	for _, m := range peer_supported {
		if n.supports_locked(m) {
			common[m] = true
		}
	}
	// The proposed mode counts as offered even if the peer left it
	// off its supported list.
	if n.supports_locked(proposed) {
		common[proposed] = true
	}

	var accepted = false
	var chosen = n.negotiated_mode

	if common[proposed] {
		accepted = true
		chosen = proposed
	} else if len(common) > 0 {
		// Highest rate mode both sides can do.
		var best_rate = -1
		for m := range common {
			if mode_is_valid(m) && mode_data_rates[m] > best_rate {
				best_rate = mode_data_rates[m]
				chosen = m
			}
		}
		accepted = true
	}

	if accepted {
		n.negotiated_mode = chosen
		n.negotiated_modes[station_id] = chosen
		n.remote_station_id = station_id
	}

	var out = n.queue_locked(KISS_CMD_NEG_RESP,
		encode_negotiation_response(n.station_id, accepted, chosen))

	var rc = n.rate_control
	n.mu.Unlock()

	if accepted && rc != nil {
		rc.set_modulation_mode(chosen)
	}

	text_color_set(DW_COLOR_INFO)
	if accepted {
		dw_printf("Negotiation: accepted %s from %s.\n", chosen, station_id)
	} else {
		dw_printf("Negotiation: rejected request from %s, no common mode.\n", station_id)
	}

	out.send()
}

// Initiator side: the peer's verdict arrived.

func (n *modulation_negotiation_t) handle_response(station_id string, accepted bool, negotiated modulation_mode_t) {
	n.mu.Lock()

	if !n.negotiating {
		n.mu.Unlock()
		text_color_set(DW_COLOR_DEBUG)
		dw_printf("Negotiation: NEG_RESP from %s while idle, ignored.\n", station_id)
		return
	}

	n.negotiating = false

	var out *queued_frame_t
	var rc = n.rate_control

	if accepted {
		n.negotiated_mode = negotiated
		n.pending_mode = negotiated
		n.negotiated_modes[station_id] = negotiated
		out = n.queue_locked(KISS_CMD_NEG_ACK,
			encode_negotiation_response(n.station_id, true, negotiated))
	} else {
		// Rejected: revert.
		n.pending_mode = n.negotiated_mode
	}

	n.mu.Unlock()

	if accepted && rc != nil {
		rc.set_modulation_mode(negotiated)
	}

	text_color_set(DW_COLOR_INFO)
	if accepted {
		dw_printf("Negotiation: %s accepted mode %s.\n", station_id, negotiated)
	} else {
		dw_printf("Negotiation: %s rejected the proposal.\n", station_id)
	}

	out.send()
}

/*-------------------------------------------------------------
 *
 * Name:	send_quality_feedback
 *
 * Purpose:	Report our receive quality to a peer.
 *
 *--------------------------------------------------------------*/

func (n *modulation_negotiation_t) send_quality_feedback(remote_station_id string, snr_db float32, ber float32, quality_score float32) {
	n.mu.Lock()
	var out = n.queue_locked(KISS_CMD_QUALITY_FB,
		encode_quality_feedback(n.station_id, snr_db, ber, quality_score))
	n.mu.Unlock()

	_ = remote_station_id // Single point-to-point link; id travels in the payload.
	out.send()
}

/*-------------------------------------------------------------
 *
 * Name:	set_auto_negotiation_enabled
 *
 * Purpose:	Bind to a rate control instance and renegotiate
 *		whenever it changes mode.
 *
 * Inputs:	enabled	- On or off.
 *		rate_control - Borrowed reference.  Must outlive this
 *			  block; pass nil when disabling.
 *
 *--------------------------------------------------------------*/

func (n *modulation_negotiation_t) set_auto_negotiation_enabled(enabled bool, rate_control *adaptive_rate_control_t) {
	n.mu.Lock()
	n.auto_negotiation_enabled = enabled
	n.rate_control = rate_control
	if rate_control != nil {
		n.last_monitored_mode = rate_control.get_modulation_mode()
	}
	n.mu.Unlock()
}

/*-------------------------------------------------------------
 *
 * Name:	work
 *
 * Purpose:	One scheduler tick: expire the negotiation timeout and
 *		run the automatic mode change check.  Called from the
 *		work cycle; there are no internal timers or sleeps.
 *
 *--------------------------------------------------------------*/

func (n *modulation_negotiation_t) work(now time.Time) {
	var outgoing []*queued_frame_t
	var initiate_peer = ""
	var initiate_mode modulation_mode_t

	n.mu.Lock()

	// Negotiation timeout: revert pending to negotiated.  No error
	// leaves the block; the link simply stays at the old mode.

	if n.negotiating && now.After(n.negotiation_deadline) {
		n.negotiating = false
		n.pending_mode = n.negotiated_mode
		text_color_set(DW_COLOR_INFO)
		dw_printf("Negotiation: timeout waiting for %s, reverting to %s.\n", n.remote_station_id, n.negotiated_mode)
	}

	// Automatic negotiation: compare the rate control's mode to the
	// one we last saw.  On a change, tell every known peer and
	// renegotiate with the primary peer.

	if n.auto_negotiation_enabled && n.rate_control != nil {
		var current = n.rate_control.get_modulation_mode()
		if current != n.last_monitored_mode {
			n.last_monitored_mode = current

			for peer := range n.negotiated_modes {
				_ = peer
				outgoing = append(outgoing, n.queue_locked(KISS_CMD_MODE_CHANGE,
					encode_mode_change(n.station_id, current)))
			}
			if n.remote_station_id != "" && !n.negotiating {
				initiate_peer = n.remote_station_id
				initiate_mode = current
			}
		}
	}

	n.mu.Unlock()

	for _, out := range outgoing {
		out.send()
	}
	if initiate_peer != "" {
		n.initiate_negotiation(initiate_peer, initiate_mode)
	}
}
