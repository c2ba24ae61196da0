package packetprotocols

/*-------------------------------------------------------------
 *
 * Purpose:	Adaptive rate control: pick a modulation mode from the
 *		catalog based on observed link quality, with hysteresis
 *		so a link hovering near a boundary does not oscillate.
 *
 * Description:	Lower order modulations are more robust but slower.
 *		Higher order modulations are faster but require better
 *		SNR.  The broadband SOQPSK tiers exceed standard channel
 *		bandwidth so they are fenced off behind an explicit
 *		enable and never recommended unless it is set.
 *
 *--------------------------------------------------------------*/

import (
	"sync"
)

type modulation_mode_t byte

// One canonical enumeration.  The baseline modes keep the values of the
// original catalog; the tier 4 broadband modes are appended after 64-QAM.

const (
	MODE_2FSK  modulation_mode_t = 0 // Binary FSK
	MODE_4FSK  modulation_mode_t = 1 // 4-level FSK
	MODE_8FSK  modulation_mode_t = 2 // 8-level FSK
	MODE_16FSK modulation_mode_t = 3 // 16-level FSK
	MODE_BPSK  modulation_mode_t = 4 // Binary PSK
	MODE_QPSK  modulation_mode_t = 5 // Quadrature PSK
	MODE_8PSK  modulation_mode_t = 6 // 8-PSK
	MODE_QAM16 modulation_mode_t = 7 // 16-QAM
	MODE_QAM64 modulation_mode_t = 8 // 64-QAM

	// Tier 4: broadband SOQPSK.

	MODE_SOQPSK_1M  modulation_mode_t = 9
	MODE_SOQPSK_5M  modulation_mode_t = 10
	MODE_SOQPSK_10M modulation_mode_t = 11
	MODE_SOQPSK_20M modulation_mode_t = 12
	MODE_SOQPSK_40M modulation_mode_t = 13

	MODE_COUNT = 14
)

var mode_names = [MODE_COUNT]string{
	"2FSK", "4FSK", "8FSK", "16FSK", "BPSK", "QPSK", "8PSK", "16-QAM", "64-QAM",
	"SOQPSK-1M", "SOQPSK-5M", "SOQPSK-10M", "SOQPSK-20M", "SOQPSK-40M",
}

func (m modulation_mode_t) String() string {
	if int(m) < MODE_COUNT {
		return mode_names[m]
	}
	return "invalid"
}

func mode_is_valid(m modulation_mode_t) bool {
	return int(m) < MODE_COUNT
}

func mode_is_tier4(m modulation_mode_t) bool {
	return m >= MODE_SOQPSK_1M && m <= MODE_SOQPSK_40M
}

type rate_thresholds_t struct {
	snr_min_db  float32
	snr_max_db  float32
	ber_max     float32
	quality_min float32
}

var mode_thresholds = [MODE_COUNT]rate_thresholds_t{
	MODE_2FSK:  {0.0, 15.0, 0.01, 0.3},
	MODE_4FSK:  {8.0, 20.0, 0.005, 0.5},
	MODE_8FSK:  {12.0, 25.0, 0.001, 0.7},
	MODE_16FSK: {18.0, 30.0, 0.0005, 0.8},
	MODE_BPSK:  {6.0, 18.0, 0.01, 0.4},
	MODE_QPSK:  {10.0, 22.0, 0.005, 0.6},
	MODE_8PSK:  {14.0, 26.0, 0.001, 0.75},
	MODE_QAM16: {16.0, 28.0, 0.0005, 0.8},
	MODE_QAM64: {22.0, 35.0, 0.0001, 0.9},

	MODE_SOQPSK_1M:  {24.0, 45.0, 0.0001, 0.85},
	MODE_SOQPSK_5M:  {26.0, 45.0, 0.0001, 0.87},
	MODE_SOQPSK_10M: {28.0, 45.0, 0.00005, 0.9},
	MODE_SOQPSK_20M: {30.0, 45.0, 0.00005, 0.92},
	MODE_SOQPSK_40M: {32.0, 45.0, 0.00001, 0.95},
}

var mode_data_rates = [MODE_COUNT]int{
	MODE_2FSK:  1200,
	MODE_4FSK:  2400,
	MODE_8FSK:  3600,
	MODE_16FSK: 4800,
	MODE_BPSK:  1200,
	MODE_QPSK:  2400,
	MODE_8PSK:  3600,
	MODE_QAM16: 4800,
	MODE_QAM64: 9600,

	MODE_SOQPSK_1M:  1000000,
	MODE_SOQPSK_5M:  5000000,
	MODE_SOQPSK_10M: 10000000,
	MODE_SOQPSK_20M: 20000000,
	MODE_SOQPSK_40M: 40000000,
}

// Baseline modes in order from highest to lowest data rate, for
// recommendation.  Tier 4 modes, highest first, go in front when enabled.

var baseline_rate_order = []modulation_mode_t{
	MODE_QAM64, MODE_QAM16, MODE_16FSK, MODE_8PSK, MODE_8FSK,
	MODE_QPSK, MODE_4FSK, MODE_BPSK, MODE_2FSK,
}

var tier4_rate_order = []modulation_mode_t{
	MODE_SOQPSK_40M, MODE_SOQPSK_20M, MODE_SOQPSK_10M, MODE_SOQPSK_5M, MODE_SOQPSK_1M,
}

const DEFAULT_HYSTERESIS_DB = 2.0

type adaptive_rate_control_t struct {
	mu sync.Mutex

	current_mode       modulation_mode_t
	last_mode          modulation_mode_t
	adaptation_enabled bool
	tier4_enabled      bool
	hysteresis_db      float32
	last_snr_db        float32
}

/*-------------------------------------------------------------
 *
 * Name:	adaptive_rate_control_init
 *
 * Purpose:	Create a rate control instance.
 *
 * Inputs:	initial_mode	- Starting modulation mode.  A tier 4
 *				  mode with enable_tier4 false silently
 *				  falls back to 2FSK.
 *		enable_adaptation - React to update_quality calls.
 *		hysteresis_db	- SNR margin before a mode boundary
 *				  triggers a change.
 *		enable_tier4	- Allow the broadband SOQPSK modes.
 *
 *--------------------------------------------------------------*/

func adaptive_rate_control_init(initial_mode modulation_mode_t, enable_adaptation bool, hysteresis_db float32, enable_tier4 bool) *adaptive_rate_control_t {
	if !mode_is_valid(initial_mode) {
		initial_mode = MODE_2FSK
	}
	if mode_is_tier4(initial_mode) && !enable_tier4 {
		initial_mode = MODE_2FSK
	}

	return &adaptive_rate_control_t{
		current_mode:       initial_mode,
		last_mode:          initial_mode,
		adaptation_enabled: enable_adaptation,
		tier4_enabled:      enable_tier4,
		hysteresis_db:      hysteresis_db,
	}
}

func (rc *adaptive_rate_control_t) get_modulation_mode() modulation_mode_t {
	rc.mu.Lock()
	defer rc.mu.Unlock()
	return rc.current_mode
}

// Attempting to enter a tier 4 mode with the flag off silently keeps
// the current mode.

func (rc *adaptive_rate_control_t) set_modulation_mode(mode modulation_mode_t) {
	rc.mu.Lock()
	defer rc.mu.Unlock()

	if !mode_is_valid(mode) {
		return
	}
	if mode_is_tier4(mode) && !rc.tier4_enabled {
		text_color_set(DW_COLOR_INFO)
		dw_printf("Rate control: tier 4 mode %s rejected, tier 4 is not enabled.\n", mode)
		return
	}
	rc.current_mode = mode
	rc.last_mode = mode
}

func (rc *adaptive_rate_control_t) set_adaptation_enabled(enabled bool) {
	rc.mu.Lock()
	defer rc.mu.Unlock()
	rc.adaptation_enabled = enabled
}

func (rc *adaptive_rate_control_t) get_tier4_enabled() bool {
	rc.mu.Lock()
	defer rc.mu.Unlock()
	return rc.tier4_enabled
}

// Disabling tier 4 while in a tier 4 mode falls back to last_mode when
// that is a narrowband mode, otherwise to 2FSK.  last_mode is the mode
// before the last automatic switch, or the mode last given to
// set_modulation_mode, so a narrowband mode used before a manual
// switch into tier 4 is not restored.

func (rc *adaptive_rate_control_t) set_tier4_enabled(enabled bool) {
	rc.mu.Lock()
	defer rc.mu.Unlock()

	rc.tier4_enabled = enabled
	if !enabled && mode_is_tier4(rc.current_mode) {
		if mode_is_tier4(rc.last_mode) {
			rc.current_mode = MODE_2FSK
		} else {
			rc.current_mode = rc.last_mode
		}
	}
}

/*-------------------------------------------------------------
 *
 * Name:	update_quality
 *
 * Purpose:	React to new link quality measurements.
 *
 * Inputs:	snr_db, ber, quality_score - From the link quality
 *			monitor or a peer's quality feedback.
 *
 * Description:	Switch up only when the SNR exceeds the current mode's
 *		upper bound by the hysteresis margin AND BER and quality
 *		are good; switch down when SNR falls below the lower
 *		bound by the margin OR BER / quality have gone bad.
 *
 *--------------------------------------------------------------*/

func (rc *adaptive_rate_control_t) update_quality(snr_db float32, ber float32, quality_score float32) {
	rc.mu.Lock()
	defer rc.mu.Unlock()

	if !rc.adaptation_enabled {
		return
	}

	rc.last_snr_db = snr_db

	var th = mode_thresholds[rc.current_mode]

	if snr_db > th.snr_max_db+rc.hysteresis_db &&
		ber < th.ber_max && quality_score > th.quality_min {
		// Try to find a higher rate mode.
		var recommended = rc.recommend_locked(snr_db, ber)
		if recommended != rc.current_mode {
			text_color_set(DW_COLOR_INFO)
			dw_printf("Rate control: %s -> %s (snr %.1f dB)\n", rc.current_mode, recommended, snr_db)
			rc.last_mode = rc.current_mode
			rc.current_mode = recommended
		}
	} else if snr_db < th.snr_min_db-rc.hysteresis_db ||
		ber > th.ber_max ||
		quality_score < th.quality_min-0.2 {
		// Try to find a more robust mode.
		var recommended = rc.recommend_locked(snr_db, ber)
		if recommended != rc.current_mode {
			text_color_set(DW_COLOR_INFO)
			dw_printf("Rate control: %s -> %s (snr %.1f dB)\n", rc.current_mode, recommended, snr_db)
			rc.last_mode = rc.current_mode
			rc.current_mode = recommended
		}
	}
}

/*-------------------------------------------------------------
 *
 * Name:	recommend_mode
 *
 * Purpose:	The highest rate mode whose thresholds admit the given
 *		measurements.  Monotone in SNR: improving SNR never
 *		reduces the recommended rate.  2FSK is the fallback.
 *
 *--------------------------------------------------------------*/

func (rc *adaptive_rate_control_t) recommend_mode(snr_db float32, ber float32) modulation_mode_t {
	rc.mu.Lock()
	defer rc.mu.Unlock()
	return rc.recommend_locked(snr_db, ber)
}

func (rc *adaptive_rate_control_t) recommend_locked(snr_db float32, ber float32) modulation_mode_t {
	var candidates []modulation_mode_t
	if rc.tier4_enabled {
		candidates = append(candidates, tier4_rate_order...)
	}
	candidates = append(candidates, baseline_rate_order...)

	var best_mode = MODE_2FSK
	var best_rate = 0

	for _, mode := range candidates {
		var th = mode_thresholds[mode]
		if snr_db >= th.snr_min_db && ber <= th.ber_max {
			if mode_data_rates[mode] > best_rate {
				best_mode = mode
				best_rate = mode_data_rates[mode]
			}
		}
	}

	return best_mode
}

func (rc *adaptive_rate_control_t) get_data_rate() int {
	rc.mu.Lock()
	defer rc.mu.Unlock()
	return mode_data_rates[rc.current_mode]
}

func (rc *adaptive_rate_control_t) get_thresholds(mode modulation_mode_t) rate_thresholds_t {
	if !mode_is_valid(mode) {
		return mode_thresholds[MODE_2FSK]
	}
	return mode_thresholds[mode]
}
