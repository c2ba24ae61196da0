package packetprotocols

/*------------------------------------------------------------------
 *
 * Purpose:   	Glue all the pieces together into one TNC.
 *
 * Description:	The data paths:
 *
 *		transmit: KISS client or link state machine produces a
 *		packet, the selected layer 2 (AX.25 / FX.25 / IL2P)
 *		turns it into an octet stream for the modulator.
 *
 *		receive: the demodulator's octet stream feeds the three
 *		framers in parallel (each hunts for its own sync
 *		pattern), recovered frames go to the link state machine
 *		and out to the attached KISS clients.
 *
 *		control: quality samples from the demodulator update
 *		the monitor which drives the rate control; the
 *		negotiation engine watches the rate control and talks
 *		to the peer in-band over KISS.
 *
 *		The work() cycle evaluates every timer; no component
 *		sleeps on its own.
 *
 *------------------------------------------------------------------*/

import (
	"time"
)

const LAYER2_AX25 = "ax25"
const LAYER2_FX25 = "fx25"
const LAYER2_IL2P = "il2p"

type tnc_t struct {
	cfg *tnc_config_t

	rate_control *adaptive_rate_control_t
	monitor      *link_quality_monitor_t
	negotiation  *modulation_negotiation_t
	link         *ax25_link_t
	kiss         *kiss_tnc_t

	hdlc_rec *hdlc_rec_t
	fx25_rec *fx25_rec_t
	il2p_rec *il2p_rec_t

	// Octet stream to the modulator.  Installed by the host program.
	modulator_out func(data []byte)

	// Frames out to the attached KISS client applications.
	// Installed by the host program; usually fans out to the TCP,
	// serial, and pty endpoints.
	client_out func(data []byte)
}

func tnc_init(cfg *tnc_config_t) *tnc_t {
	fx25_init(0)
	il2p_init(0)

	var t = &tnc_t{cfg: cfg}

	t.monitor = link_quality_monitor_init(cfg.QualityAlpha, cfg.QualityUpdatePeriod)

	t.rate_control = adaptive_rate_control_init(
		cfg.initial_modulation_mode(), cfg.AdaptationEnabled, cfg.HysteresisDb, cfg.Tier4Enabled)

	t.negotiation = modulation_negotiation_init(
		cfg.Mycall, cfg.supported_modulation_modes(), cfg.NegotiationTimeoutMs)
	t.negotiation.set_quality_monitor(t.monitor)
	t.negotiation.set_auto_negotiation_enabled(cfg.AdaptationEnabled, t.rate_control)
	t.negotiation.set_kiss_frame_sender(func(cmd byte, data []byte) {
		var msg = make([]byte, 0, len(data)+1)
		msg = append(msg, cmd)
		msg = append(msg, data...)
		if t.client_out != nil {
			t.client_out(kiss_encapsulate(msg))
		}
	})

	var link, err = ax25_link_init(cfg.Mycall, cfg.link_config(), t.transmit_packet)
	if err != nil {
		text_color_set(DW_COLOR_ERROR)
		dw_printf("TNC: bad callsign configuration: %s\n", err)
		return nil
	}
	t.link = link

	t.kiss = kiss_tnc_init(func(channel int, pp *packet_t) {
		t.transmit_packet(pp)
	}, t.negotiation)

	t.hdlc_rec = hdlc_rec_init(
		func(frame []byte) { t.frame_received(frame, 0) },
		func(err error) { t.monitor.record_frame_error() })
	t.fx25_rec = fx25_rec_init(
		func(frame []byte, corrected int) { t.frame_received(frame, corrected) },
		func(err error) { t.monitor.record_frame_error() })
	t.il2p_rec = il2p_rec_init(cfg.Il2pAddChecksum,
		func(pp *packet_t, corrected int) { t.packet_received(pp) },
		func(err error) { t.monitor.record_frame_error() })

	return t
}

// The modulator reads its mode from here.

func (t *tnc_t) get_modulation_mode() modulation_mode_t {
	return t.rate_control.get_modulation_mode()
}

/*------------------------------------------------------------------
 *
 * Function:	transmit_packet
 *
 * Purpose:	Convert a packet into the octet stream for the
 *		modulator, through the configured layer 2.
 *
 *------------------------------------------------------------------*/

func (t *tnc_t) transmit_packet(pp *packet_t) {
	var out []byte

	switch t.cfg.Layer2 {

	case LAYER2_IL2P:
		out = il2p_send_frame(pp, IfThenElse(t.cfg.Il2pMaxFec, 1, 0), t.cfg.Il2pAddChecksum)
		if out == nil {
			text_color_set(DW_COLOR_ERROR)
			dw_printf("Unable to send IL2P frame.  Falling back to regular AX.25.\n")
			out = hdlc_send_frame(ax25_get_frame_data(pp))
		}

	case LAYER2_FX25:
		var encoded, err = fx25_encode_frame(ax25_get_frame_data(pp), t.cfg.Fx25Mode)
		if err != nil {
			text_color_set(DW_COLOR_ERROR)
			dw_printf("Unable to send FX.25.  Falling back to regular AX.25.\n")
			out = hdlc_send_frame(ax25_get_frame_data(pp))
		} else {
			out = encoded
		}

	default:
		out = hdlc_send_frame(ax25_get_frame_data(pp))
	}

	if t.modulator_out != nil {
		t.modulator_out(out)
	}
}

/*------------------------------------------------------------------
 *
 * Function:	demod_bytes
 *
 * Purpose:	Feed octets from the demodulator.  All three framers
 *		watch the stream; each synchronizes on its own pattern.
 *
 *------------------------------------------------------------------*/

func (t *tnc_t) demod_bytes(data []byte) {
	for _, b := range data {
		// AX.25 and FX.25 serialize LSB first.  The FX.25 data part
		// embeds a complete flag-delimited AX.25 frame, so the plain
		// HDLC receiver is held off while an FX.25 block is being
		// collected or every FX.25 frame would be delivered twice.
		for i := 0; i < 8; i++ {
			var dbit = int(b>>i) & 1
			t.fx25_rec.fx25_rec_bit(dbit)
			if t.fx25_rec.state == FX_TAG {
				t.hdlc_rec.hdlc_rec_bit(dbit)
			}
		}

		// IL2P serializes MSB first and synchronizes on its own word.
		for i := 7; i >= 0; i-- {
			t.il2p_rec.il2p_rec_bit(int(b>>i) & 1)
		}
	}
	t.monitor.count_samples(len(data))
}

// A good frame (FCS checked, FEC applied) came out of a framer.

func (t *tnc_t) frame_received(fbuf []byte, corrected int) {
	t.monitor.record_frame_success()

	var pp = ax25_from_frame(fbuf)
	if pp == nil {
		text_color_set(DW_COLOR_ERROR)
		dw_printf("Received frame has valid FCS but malformed addresses.\n")
		t.monitor.record_frame_error()
		return
	}

	t.packet_received(pp)
}

func (t *tnc_t) packet_received(pp *packet_t) {
	text_color_set(DW_COLOR_REC)
	dw_printf("%s\n", ax25_format_addrs(pp))

	t.link.packet_received(pp)

	// Also deliver to the host applications, raw.
	if t.client_out != nil {
		var msg = make([]byte, 0, ax25_get_frame_len(pp)+1)
		msg = append(msg, KISS_CMD_DATA_FRAME)
		msg = append(msg, ax25_get_frame_data(pp)...)
		t.client_out(kiss_encapsulate(msg))
	}
}

/*------------------------------------------------------------------
 *
 * Function:	quality_sample
 *
 * Purpose:	One {snr_db, ber} sample from the demodulator side
 *		channel.  Updates the monitor and lets the rate control
 *		react.
 *
 *------------------------------------------------------------------*/

func (t *tnc_t) quality_sample(snr_db float32, ber float32) {
	t.monitor.update_snr(snr_db)
	t.monitor.update_ber(ber)

	var score = t.monitor.refresh_quality_score()
	t.rate_control.update_quality(t.monitor.get_snr(), t.monitor.get_ber(), score)
}

/*------------------------------------------------------------------
 *
 * Function:	work
 *
 * Purpose:	One work cycle for everything with timers: the link
 *		state machine and the negotiation engine.  The host
 *		program calls this periodically.
 *
 *------------------------------------------------------------------*/

func (t *tnc_t) work(now time.Time) {
	t.link.work(now)
	t.negotiation.work(now)
}
