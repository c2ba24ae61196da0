package packetprotocols

/*-------------------------------------------------------------
 *
 * Purpose:	Link quality monitor: smoothed SNR and BER, frame
 *		error counters, and a composite quality score for the
 *		rate control policy.
 *
 * Description:	SNR and BER samples arrive from the demodulator side
 *		and are folded in with an exponential moving average.
 *		Frame successes and failures arrive from the FEC and
 *		FCS checking layers.  The composite score is recomputed
 *		every update_period samples on the work cycle, and also
 *		available on demand.
 *
 *--------------------------------------------------------------*/

import (
	"sync"
)

const QUALITY_MAX_HISTORY = 100

const DEFAULT_QUALITY_ALPHA = 0.1
const DEFAULT_QUALITY_UPDATE_PERIOD = 1000

type link_quality_monitor_t struct {
	mu sync.Mutex

	alpha         float32
	update_period int
	sample_count  int

	snr_db        float32
	ber           float32
	fer           float32
	quality_score float32

	total_frames int
	error_frames int

	snr_history []float32
	ber_history []float32
}

func link_quality_monitor_init(alpha float32, update_period int) *link_quality_monitor_t {
	// Clamp alpha to valid range.
	if alpha < 0 {
		alpha = 0
	}
	if alpha > 1 {
		alpha = 1
	}
	if update_period <= 0 {
		update_period = DEFAULT_QUALITY_UPDATE_PERIOD
	}

	return &link_quality_monitor_t{
		alpha:         alpha,
		update_period: update_period,
		quality_score: 0.5,
	}
}

func (m *link_quality_monitor_t) get_snr() float32 {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.snr_db
}

func (m *link_quality_monitor_t) get_ber() float32 {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.ber
}

func (m *link_quality_monitor_t) get_fer() float32 {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.fer
}

func (m *link_quality_monitor_t) get_quality_score() float32 {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.quality_score
}

// Fold in one SNR sample (dB) with the EMA.

func (m *link_quality_monitor_t) update_snr(snr_db float32) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if len(m.snr_history) == 0 {
		m.snr_db = snr_db
	} else {
		m.snr_db = m.alpha*snr_db + (1-m.alpha)*m.snr_db
	}

	m.snr_history = append(m.snr_history, snr_db)
	if len(m.snr_history) > QUALITY_MAX_HISTORY {
		m.snr_history = m.snr_history[1:]
	}
}

// Fold in one BER sample (0..1) with the EMA.

func (m *link_quality_monitor_t) update_ber(ber float32) {
	m.mu.Lock()
	defer m.mu.Unlock()

	ber = clip01(ber)

	if len(m.ber_history) == 0 {
		m.ber = ber
	} else {
		m.ber = m.alpha*ber + (1-m.alpha)*m.ber
	}

	m.ber_history = append(m.ber_history, ber)
	if len(m.ber_history) > QUALITY_MAX_HISTORY {
		m.ber_history = m.ber_history[1:]
	}
}

func (m *link_quality_monitor_t) record_frame_error() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.total_frames++
	m.error_frames++
	m.fer = float32(m.error_frames) / float32(m.total_frames)
}

func (m *link_quality_monitor_t) record_frame_success() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.total_frames++
	m.fer = float32(m.error_frames) / float32(m.total_frames)
}

// Called from the work cycle with the number of samples processed.
// Recomputes the composite score every update_period samples.

func (m *link_quality_monitor_t) count_samples(n int) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.sample_count += n
	if m.sample_count >= m.update_period {
		m.quality_score = calculate_quality_score(m.snr_db, m.ber, m.fer)
		m.sample_count = 0
	}
}

// Recompute the composite score immediately and return it.

func (m *link_quality_monitor_t) refresh_quality_score() float32 {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.quality_score = calculate_quality_score(m.snr_db, m.ber, m.fer)
	return m.quality_score
}

func (m *link_quality_monitor_t) reset() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.snr_db = 0
	m.ber = 0
	m.fer = 0
	m.quality_score = 0.5
	m.total_frames = 0
	m.error_frames = 0
	m.sample_count = 0
	m.snr_history = nil
	m.ber_history = nil
}

func clip01(x float32) float32 {
	if x < 0 {
		return 0
	}
	if x > 1 {
		return 1
	}
	return x
}

/*-------------------------------------------------------------
 *
 * Name:	calculate_quality_score
 *
 * Purpose:	Composite link quality in 0..1.
 *
 * Description:	SNR is normalized assuming a good link is > 10 dB and
 *		an excellent one > 20 dB.  BER assumes a good link is
 *		under 1e-3, FER under 0.1.  SNR carries the most weight.
 *		Every term is clamped to 0..1, as is the result.
 *
 *--------------------------------------------------------------*/

func calculate_quality_score(snr_db float32, ber float32, fer float32) float32 {
	var snr_score = clip01((snr_db + 10.0) / 30.0)
	var ber_score = clip01(1.0 - ber*1000.0)
	var fer_score = clip01(1.0 - fer*10.0)

	return clip01(0.5*snr_score + 0.3*ber_score + 0.2*fer_score)
}
