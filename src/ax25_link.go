package packetprotocols

/*------------------------------------------------------------------
 *
 * Purpose:   	Connected mode (LAPB subset) link state machine.
 *
 * Description:	One connection per (local, remote) address pair, at
 *		most 16 at a time.  Each connection carries the usual
 *		V(S) / V(R) / V(A) modulo 8 state variables, a send
 *		window, and the T1 / T2 / T3 timers:
 *
 *		T1 - Acknowledgement timer.  Started when something
 *		     needing a response goes out; expiry retransmits,
 *		     and after max_retries the link comes down.
 *		T2 - Response delay.  Receipt of an I frame does not
 *		     have to be acknowledged immediately; waiting a
 *		     little lets the ack ride on an outgoing I frame.
 *		T3 - Idle poll.  When nothing has happened for a while,
 *		     check that the other end is still there.
 *
 *		The timers are deadlines compared against the clock on
 *		each work cycle.  There are no OS sleeps and no timer
 *		goroutines in here.
 *
 * References:	AX.25 Protocol Spec v2.2, section 6.
 *
 *------------------------------------------------------------------*/

import (
	"fmt"
	"sync"
	"time"
)

type ax25_link_state_t int

const (
	state_disconnected ax25_link_state_t = iota
	state_connecting
	state_connected
	state_disconnecting
)

var link_state_names = []string{"Disconnected", "Connecting", "Connected", "Disconnecting"}

func (s ax25_link_state_t) String() string {
	return link_state_names[s]
}

const MAX_CONNECTIONS = 16

const DEFAULT_T1_MS = 3000
const DEFAULT_T2_MS = 1000
const DEFAULT_T3_MS = 30000
const DEFAULT_MAX_RETRIES = 3
const DEFAULT_WINDOW_SIZE = 4

type link_event_t int

const (
	link_event_connected link_event_t = iota
	link_event_connect_failed
	link_event_disconnected
)

type unacked_frame_t struct {
	pp *packet_t
	ns int
}

type ax25_connection_t struct {
	remote_addr string
	state       ax25_link_state_t

	vs int // Next send sequence number N(S).
	vr int // Next expected receive sequence number N(R).
	va int // Oldest unacknowledged send sequence number.

	window      int
	retry_count int

	t1_deadline time.Time // Zero value means stopped.
	t2_deadline time.Time
	t3_deadline time.Time

	unacked  []unacked_frame_t
	rx_queue [][]byte
}

type ax25_link_config_t struct {
	t1          time.Duration
	t2          time.Duration
	t3          time.Duration
	max_retries int
	window_size int
}

func ax25_link_default_config() ax25_link_config_t {
	return ax25_link_config_t{
		t1:          DEFAULT_T1_MS * time.Millisecond,
		t2:          DEFAULT_T2_MS * time.Millisecond,
		t3:          DEFAULT_T3_MS * time.Millisecond,
		max_retries: DEFAULT_MAX_RETRIES,
		window_size: DEFAULT_WINDOW_SIZE,
	}
}

type ax25_link_t struct {
	mu sync.Mutex

	mycall string
	config ax25_link_config_t

	connections []*ax25_connection_t

	// Frames out to the framing / modulator path.
	transmit func(pp *packet_t)

	// Connection lifecycle notifications.  Optional.
	event_callback func(remote string, event link_event_t)
}

func ax25_link_init(mycall string, config ax25_link_config_t, transmit func(*packet_t)) (*ax25_link_t, error) {
	var _, _, err = ax25_parse_addr(mycall)
	if err != nil {
		return nil, err
	}
	if config.window_size < 1 || config.window_size > 7 {
		return nil, fmt.Errorf("%w: window size %d, must be 1-7", ErrInvalidArgument, config.window_size)
	}

	return &ax25_link_t{
		mycall:   mycall,
		config:   config,
		transmit: transmit,
	}, nil
}

func (l *ax25_link_t) set_event_callback(cb func(string, link_event_t)) {
	l.mu.Lock()
	l.event_callback = cb
	l.mu.Unlock()
}

func (l *ax25_link_t) find_connection_locked(remote string) *ax25_connection_t {
	for _, c := range l.connections {
		if c.remote_addr == remote && c.state != state_disconnected {
			return c
		}
	}
	return nil
}

func (l *ax25_link_t) new_connection_locked(remote string) (*ax25_connection_t, error) {
	// Reuse a dead slot before growing the table.
	for _, c := range l.connections {
		if c.state == state_disconnected {
			*c = ax25_connection_t{
				remote_addr: remote,
				window:      l.config.window_size,
			}
			return c, nil
		}
	}
	if len(l.connections) >= MAX_CONNECTIONS {
		return nil, fmt.Errorf("%w: connection table full", ErrResourceExhausted)
	}
	var c = &ax25_connection_t{
		remote_addr: remote,
		window:      l.config.window_size,
	}
	l.connections = append(l.connections, c)
	return c, nil
}

// Number of connections not in Disconnected state.

func (l *ax25_link_t) active_connections() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	var n = 0
	for _, c := range l.connections {
		if c.state != state_disconnected {
			n++
		}
	}
	return n
}

func (l *ax25_link_t) connection_state(remote string) ax25_link_state_t {
	l.mu.Lock()
	defer l.mu.Unlock()
	var c = l.find_connection_locked(remote)
	if c == nil {
		return state_disconnected
	}
	return c.state
}

// Frame construction helpers.  Addresses are destination first.

func (l *ax25_link_t) u_frame_locked(remote string, ftype ax25_frame_type_t, cr cmdres_t, pf int) *packet_t {
	var pp, err = ax25_u_frame([]string{remote, l.mycall}, cr, ftype, pf, 0, nil)
	if err != nil {
		text_color_set(DW_COLOR_ERROR)
		dw_printf("Link: cannot build U frame: %s\n", err)
		return nil
	}
	return pp
}

func (l *ax25_link_t) s_frame_locked(remote string, ftype ax25_frame_type_t, cr cmdres_t, nr int, pf int) *packet_t {
	var pp, err = ax25_s_frame([]string{remote, l.mycall}, cr, ftype, nr, pf)
	if err != nil {
		text_color_set(DW_COLOR_ERROR)
		dw_printf("Link: cannot build S frame: %s\n", err)
		return nil
	}
	return pp
}

/*------------------------------------------------------------------
 *
 * Function:	connect
 *
 * Purpose:	Open a connection: transmit SABM, start T1, wait for UA.
 *
 *------------------------------------------------------------------*/

func (l *ax25_link_t) connect(remote string) error {
	var _, _, err = ax25_parse_addr(remote)
	if err != nil {
		return err
	}

	l.mu.Lock()

	var c = l.find_connection_locked(remote)
	if c != nil {
		// Already connected or in progress.
		l.mu.Unlock()
		return nil
	}

	c, err = l.new_connection_locked(remote)
	if err != nil {
		l.mu.Unlock()
		return err
	}

	c.state = state_connecting
	c.retry_count = 0
	c.t1_deadline = time.Now().Add(l.config.t1)

	var pp = l.u_frame_locked(remote, frame_type_U_SABM, cr_cmd, 1)
	var tx = l.transmit
	l.mu.Unlock()

	text_color_set(DW_COLOR_INFO)
	dw_printf("Link: connecting to %s.\n", remote)

	if pp != nil && tx != nil {
		tx(pp)
	}
	return nil
}

/*------------------------------------------------------------------
 *
 * Function:	disconnect
 *
 * Purpose:	Close a connection: transmit DISC, wait for UA.
 *
 *------------------------------------------------------------------*/

func (l *ax25_link_t) disconnect(remote string) error {
	l.mu.Lock()

	var c = l.find_connection_locked(remote)
	if c == nil {
		l.mu.Unlock()
		return fmt.Errorf("%w: not connected to %s", ErrStateViolation, remote)
	}

	c.state = state_disconnecting
	c.retry_count = 0
	c.t1_deadline = time.Now().Add(l.config.t1)
	c.t3_deadline = time.Time{}

	var pp = l.u_frame_locked(remote, frame_type_U_DISC, cr_cmd, 1)
	var tx = l.transmit
	l.mu.Unlock()

	if pp != nil && tx != nil {
		tx(pp)
	}
	return nil
}

/*------------------------------------------------------------------
 *
 * Function:	send
 *
 * Purpose:	Queue data on an established connection as one I frame.
 *
 * Errors:	state_violation when not connected,
 *		resource_exhausted when the window is full,
 *		invalid_argument for oversized data.
 *
 *------------------------------------------------------------------*/

func (l *ax25_link_t) send(remote string, data []byte) error {
	if len(data) == 0 || len(data) > AX25_MAX_INFO_LEN {
		return fmt.Errorf("%w: info length %d", ErrInvalidArgument, len(data))
	}

	l.mu.Lock()

	var c = l.find_connection_locked(remote)
	if c == nil || c.state != state_connected {
		l.mu.Unlock()
		return fmt.Errorf("%w: no established connection to %s", ErrStateViolation, remote)
	}

	if len(c.unacked) >= c.window {
		l.mu.Unlock()
		return fmt.Errorf("%w: send window full", ErrResourceExhausted)
	}

	var pp, err = ax25_i_frame([]string{remote, l.mycall}, cr_cmd, c.vr, c.vs, 0, AX25_PID_NO_LAYER_3, data)
	if err != nil {
		l.mu.Unlock()
		return err
	}

	c.unacked = append(c.unacked, unacked_frame_t{pp: ax25_dup(pp), ns: c.vs})
	c.vs = (c.vs + 1) % 8
	c.t1_deadline = time.Now().Add(l.config.t1)
	c.t2_deadline = time.Time{} // The N(R) in this frame acknowledges for us.
	c.t3_deadline = time.Now().Add(l.config.t3)

	var tx = l.transmit
	l.mu.Unlock()

	if tx != nil {
		tx(pp)
	}
	return nil
}

/*------------------------------------------------------------------
 *
 * Function:	receive
 *
 * Purpose:	Take the next in-order information field delivered by
 *		any connection.
 *
 * Returns:	Remote address, data, and true; or false when nothing
 *		is waiting.
 *
 *------------------------------------------------------------------*/

func (l *ax25_link_t) receive() (string, []byte, bool) {
	l.mu.Lock()
	defer l.mu.Unlock()

	for _, c := range l.connections {
		if len(c.rx_queue) > 0 {
			var data = c.rx_queue[0]
			c.rx_queue = c.rx_queue[1:]
			return c.remote_addr, data, true
		}
	}
	return "", nil, false
}

/*------------------------------------------------------------------
 *
 * Function:	packet_received
 *
 * Purpose:	Process one received frame addressed to us.  Called by
 *		the receive path after FCS / FEC checking.
 *
 *------------------------------------------------------------------*/

func (l *ax25_link_t) packet_received(pp *packet_t) {
	if ax25_get_addr_with_ssid(pp, AX25_DESTINATION) != l.mycall {
		return // Not for us.
	}

	var remote = ax25_get_addr_with_ssid(pp, AX25_SOURCE)
	var ftype, cr, desc, pf, nr, ns = ax25_frame_type(pp)

	text_color_set(DW_COLOR_DEBUG)
	dw_printf("Link: received from %s: %s\n", remote, desc)

	var outgoing []*packet_t
	var events []link_event_t

	l.mu.Lock()
	var c = l.find_connection_locked(remote)

	switch ftype {

	case frame_type_U_SABM:
		if c != nil && c.state == state_connected {
			// SABM on an existing connection resets it.
			c.vs, c.vr, c.va = 0, 0, 0
			c.unacked = nil
			outgoing = append(outgoing, l.u_frame_locked(remote, frame_type_U_UA, cr_res, pf))
			break
		}
		var cnew, err = l.new_connection_locked(remote)
		if err != nil {
			// Table full: tell them to go away.
			outgoing = append(outgoing, l.u_frame_locked(remote, frame_type_U_DM, cr_res, pf))
			break
		}
		cnew.state = state_connected
		cnew.t3_deadline = time.Now().Add(l.config.t3)
		outgoing = append(outgoing, l.u_frame_locked(remote, frame_type_U_UA, cr_res, pf))
		events = append(events, link_event_connected)

	case frame_type_U_UA:
		if c == nil {
			break
		}
		switch c.state {
		case state_connecting:
			c.state = state_connected
			c.vs, c.vr, c.va = 0, 0, 0
			c.retry_count = 0
			c.t1_deadline = time.Time{}
			c.t3_deadline = time.Now().Add(l.config.t3)
			events = append(events, link_event_connected)
		case state_disconnecting:
			c.state = state_disconnected
			c.t1_deadline = time.Time{}
			events = append(events, link_event_disconnected)
		default:
			// Unexpected UA; ignore.
		}

	case frame_type_U_DISC:
		if c != nil {
			c.state = state_disconnected
			c.unacked = nil
			c.t1_deadline = time.Time{}
			events = append(events, link_event_disconnected)
		}
		outgoing = append(outgoing, l.u_frame_locked(remote, frame_type_U_UA, cr_res, pf))

	case frame_type_U_DM, frame_type_U_FRMR:
		if c != nil {
			c.state = state_disconnected
			c.unacked = nil
			c.t1_deadline = time.Time{}
			events = append(events, link_event_disconnected)
		}

	case frame_type_I:
		if c == nil || c.state != state_connected {
			// I frame without a connection: DM response.
			outgoing = append(outgoing, l.u_frame_locked(remote, frame_type_U_DM, cr_res, pf))
			break
		}

		l.check_ack_locked(c, nr)

		if ns == c.vr {
			// In sequence: accept.
			c.vr = (c.vr + 1) % 8
			c.rx_queue = append(c.rx_queue, append([]byte(nil), ax25_get_info(pp)...))
			c.t3_deadline = time.Now().Add(l.config.t3)

			if pf == 1 && cr == cr_cmd {
				// Poll demands an immediate final.
				c.t2_deadline = time.Time{}
				outgoing = append(outgoing, l.s_frame_locked(remote, frame_type_S_RR, cr_res, c.vr, 1))
			} else {
				// Delay the ack a little; it may ride on an I frame.
				c.t2_deadline = time.Now().Add(l.config.t2)
			}
		} else {
			// Out of sequence: discard and ask for a repeat.
			outgoing = append(outgoing, l.s_frame_locked(remote, frame_type_S_REJ, cr_res, c.vr, pf))
		}

	case frame_type_S_RR, frame_type_S_RNR:
		if c == nil || c.state != state_connected {
			break
		}
		l.check_ack_locked(c, nr)
		if cr == cr_cmd && pf == 1 {
			// Poll: answer with our state.
			outgoing = append(outgoing, l.s_frame_locked(remote, frame_type_S_RR, cr_res, c.vr, 1))
		}

	case frame_type_S_REJ, frame_type_S_SREJ:
		if c == nil || c.state != state_connected {
			break
		}
		l.check_ack_locked(c, nr)
		// Retransmit everything still outstanding, oldest first,
		// with a current N(R).
		for _, u := range c.unacked {
			var re = ax25_dup(u.pp)
			update_i_frame_nr(re, c.vr)
			outgoing = append(outgoing, re)
		}
		if len(c.unacked) > 0 {
			c.t1_deadline = time.Now().Add(l.config.t1)
		}

	default:
		// UI, XID, TEST and the rest are not connection state
		// machine business.
	}

	var tx = l.transmit
	var evcb = l.event_callback
	l.mu.Unlock()

	for _, out := range outgoing {
		if out != nil && tx != nil {
			tx(out)
		}
	}
	if evcb != nil {
		for _, ev := range events {
			evcb(remote, ev)
		}
	}
}

// Advance V(A) up to the received N(R), dropping acknowledged frames
// from the unacked queue.  Stops T1 when everything is acknowledged.

func (l *ax25_link_t) check_ack_locked(c *ax25_connection_t, nr int) {
	if nr < 0 {
		return
	}

	for c.va != nr && len(c.unacked) > 0 {
		c.va = (c.va + 1) % 8
		c.unacked = c.unacked[1:]
		c.retry_count = 0
	}

	if len(c.unacked) == 0 {
		c.t1_deadline = time.Time{}
	} else {
		c.t1_deadline = time.Now().Add(l.config.t1)
	}
}

// Rewrite the N(R) bits of an I frame control byte for retransmission.

func update_i_frame_nr(pp *packet_t, nr int) {
	var off = ax25_get_control_offset(pp)
	pp.frame_data[off] = (pp.frame_data[off] & 0x1f) | byte(nr)<<5
}

/*------------------------------------------------------------------
 *
 * Function:	work
 *
 * Purpose:	One work cycle: evaluate all timer deadlines.
 *		Call this periodically; there are no internal timers.
 *
 *------------------------------------------------------------------*/

func (l *ax25_link_t) work(now time.Time) {
	var outgoing []*packet_t
	type pending_event_t struct {
		remote string
		event  link_event_t
	}
	var events []pending_event_t

	l.mu.Lock()

	for _, c := range l.connections {
		if c.state == state_disconnected {
			continue
		}

		// T1: acknowledgement timer.

		if !c.t1_deadline.IsZero() && now.After(c.t1_deadline) {
			switch c.state {

			case state_connecting:
				if c.retry_count >= l.config.max_retries {
					c.state = state_disconnected
					c.t1_deadline = time.Time{}
					text_color_set(DW_COLOR_ERROR)
					dw_printf("Link: connect to %s failed after %d tries.\n", c.remote_addr, c.retry_count+1)
					events = append(events, pending_event_t{c.remote_addr, link_event_connect_failed})
				} else {
					c.retry_count++
					c.t1_deadline = now.Add(l.config.t1)
					outgoing = append(outgoing, l.u_frame_locked(c.remote_addr, frame_type_U_SABM, cr_cmd, 1))
				}

			case state_connected:
				if c.retry_count >= l.config.max_retries {
					c.state = state_disconnected
					c.unacked = nil
					c.t1_deadline = time.Time{}
					text_color_set(DW_COLOR_ERROR)
					dw_printf("Link: %s not responding, link closed.\n", c.remote_addr)
					events = append(events, pending_event_t{c.remote_addr, link_event_disconnected})
				} else if len(c.unacked) > 0 {
					// Retransmit the oldest unacknowledged I frame.
					c.retry_count++
					c.t1_deadline = now.Add(l.config.t1)
					var re = ax25_dup(c.unacked[0].pp)
					update_i_frame_nr(re, c.vr)
					outgoing = append(outgoing, re)
				} else {
					// T1 with nothing outstanding: poll.
					c.retry_count++
					c.t1_deadline = now.Add(l.config.t1)
					outgoing = append(outgoing, l.s_frame_locked(c.remote_addr, frame_type_S_RR, cr_cmd, c.vr, 1))
				}

			case state_disconnecting:
				if c.retry_count >= l.config.max_retries {
					// Give up politely; we are gone either way.
					c.state = state_disconnected
					c.t1_deadline = time.Time{}
					events = append(events, pending_event_t{c.remote_addr, link_event_disconnected})
				} else {
					c.retry_count++
					c.t1_deadline = now.Add(l.config.t1)
					outgoing = append(outgoing, l.u_frame_locked(c.remote_addr, frame_type_U_DISC, cr_cmd, 1))
				}

			default:
			}
		}

		// T2: delayed acknowledgement.

		if c.state == state_connected && !c.t2_deadline.IsZero() && now.After(c.t2_deadline) {
			c.t2_deadline = time.Time{}
			outgoing = append(outgoing, l.s_frame_locked(c.remote_addr, frame_type_S_RR, cr_res, c.vr, 0))
		}

		// T3: idle link poll.

		if c.state == state_connected && !c.t3_deadline.IsZero() && now.After(c.t3_deadline) {
			c.t3_deadline = now.Add(l.config.t3)
			if c.t1_deadline.IsZero() {
				c.t1_deadline = now.Add(l.config.t1)
				outgoing = append(outgoing, l.s_frame_locked(c.remote_addr, frame_type_S_RR, cr_cmd, c.vr, 1))
			}
		}
	}

	var tx = l.transmit
	var evcb = l.event_callback
	l.mu.Unlock()

	for _, out := range outgoing {
		if out != nil && tx != nil {
			tx(out)
		}
	}
	if evcb != nil {
		for _, ev := range events {
			evcb(ev.remote, ev.event)
		}
	}
}
