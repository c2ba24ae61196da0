package packetprotocols

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"pgregory.net/rapid"
)

func Test_tier4_disabled_by_default(t *testing.T) {
	var rc = adaptive_rate_control_init(MODE_2FSK, true, 2.0, false)

	var initial = rc.get_modulation_mode()

	// Trying to set a tier 4 mode is silently ignored.
	rc.set_modulation_mode(MODE_SOQPSK_1M)
	assert.Equal(t, initial, rc.get_modulation_mode())
}

func Test_tier4_can_be_enabled(t *testing.T) {
	var rc = adaptive_rate_control_init(MODE_2FSK, true, 2.0, true)

	rc.set_modulation_mode(MODE_SOQPSK_1M)
	assert.Equal(t, MODE_SOQPSK_1M, rc.get_modulation_mode())
}

func Test_tier4_data_rates(t *testing.T) {
	var rc = adaptive_rate_control_init(MODE_2FSK, true, 2.0, true)

	var cases = []struct {
		mode modulation_mode_t
		rate int
	}{
		{MODE_SOQPSK_1M, 1000000},
		{MODE_SOQPSK_5M, 5000000},
		{MODE_SOQPSK_10M, 10000000},
		{MODE_SOQPSK_20M, 20000000},
		{MODE_SOQPSK_40M, 40000000},
	}

	for _, c := range cases {
		rc.set_modulation_mode(c.mode)
		assert.Equal(t, c.rate, rc.get_data_rate(), "%s", c.mode)
	}
}

func Test_set_tier4_enabled(t *testing.T) {
	var rc = adaptive_rate_control_init(MODE_2FSK, true, 2.0, false)

	rc.set_modulation_mode(MODE_SOQPSK_1M)
	assert.NotEqual(t, MODE_SOQPSK_1M, rc.get_modulation_mode())

	rc.set_tier4_enabled(true)
	rc.set_modulation_mode(MODE_SOQPSK_1M)
	assert.Equal(t, MODE_SOQPSK_1M, rc.get_modulation_mode())

	// Disabling tier 4 while in a tier 4 mode falls back.
	rc.set_tier4_enabled(false)
	assert.False(t, mode_is_tier4(rc.get_modulation_mode()))
}

func Test_tier4_initial_mode_rejected(t *testing.T) {
	var rc = adaptive_rate_control_init(MODE_SOQPSK_1M, true, 2.0, false)
	assert.Equal(t, MODE_2FSK, rc.get_modulation_mode())
}

func Test_tier4_never_recommended_when_disabled(t *testing.T) {
	var rc = adaptive_rate_control_init(MODE_2FSK, true, 2.0, false)

	// Even with outrageous SNR the recommendation stays narrowband.
	var m = rc.recommend_mode(50.0, 0.0)
	assert.False(t, mode_is_tier4(m))
	assert.Equal(t, MODE_QAM64, m)
}

// End-to-end scenario: hysteresis around the 4FSK upper boundary.

func Test_hysteresis_scenario(t *testing.T) {
	var rc = adaptive_rate_control_init(MODE_4FSK, true, 2.0, false)

	// 4FSK has snr_max = 20.  21 dB is within the hysteresis band.
	rc.update_quality(21.0, 0.0, 0.9)
	assert.Equal(t, MODE_4FSK, rc.get_modulation_mode())

	// 22.1 dB crosses the margin and switches upward.
	rc.update_quality(22.1, 0.0, 0.9)
	var up = rc.get_modulation_mode()
	assert.NotEqual(t, MODE_4FSK, up)
	assert.Greater(t, mode_data_rates[up], mode_data_rates[MODE_4FSK])

	// Dropping back to 21 dB stays above the new mode's lower margin,
	// so there is no oscillation back down.
	rc.update_quality(21.0, 0.0, 0.9)
	assert.Equal(t, up, rc.get_modulation_mode())
}

func Test_no_oscillation_inside_band(t *testing.T) {
	var rc = adaptive_rate_control_init(MODE_QPSK, true, 2.0, false)

	var th = rc.get_thresholds(MODE_QPSK)

	rapid.Check(t, func(t *rapid.T) {
		// Any SNR within [snr_min - H, snr_max + H] must not change
		// the mode when BER and quality are fine.
		var snr = float32(rapid.IntRange(int(th.snr_min_db-2)*10, int(th.snr_max_db+2)*10).Draw(t, "snr")) / 10

		rc.update_quality(snr, 0.0, 0.9)
		assert.Equal(t, MODE_QPSK, rc.get_modulation_mode())
	})
}

func Test_recommend_monotone_in_snr(t *testing.T) {
	var rc = adaptive_rate_control_init(MODE_2FSK, true, 2.0, false)

	rapid.Check(t, func(t *rapid.T) {
		var snr1 = float32(rapid.IntRange(-100, 500).Draw(t, "snr1")) / 10
		var snr2 = float32(rapid.IntRange(-100, 500).Draw(t, "snr2")) / 10
		if snr2 < snr1 {
			snr1, snr2 = snr2, snr1
		}

		var r1 = rc.recommend_mode(snr1, 0.0)
		var r2 = rc.recommend_mode(snr2, 0.0)

		assert.LessOrEqual(t, mode_data_rates[r1], mode_data_rates[r2],
			"snr %.1f -> %s but %.1f -> %s", snr1, r1, snr2, r2)
	})
}

func Test_downswitch_on_bad_link(t *testing.T) {
	var rc = adaptive_rate_control_init(MODE_QAM64, true, 2.0, false)

	// SNR well below 64-QAM's floor forces a more robust mode.
	rc.update_quality(5.0, 0.0, 0.5)
	var m = rc.get_modulation_mode()
	assert.NotEqual(t, MODE_QAM64, m)
	assert.Less(t, mode_data_rates[m], mode_data_rates[MODE_QAM64])
}

func Test_adaptation_disabled(t *testing.T) {
	var rc = adaptive_rate_control_init(MODE_4FSK, false, 2.0, false)

	rc.update_quality(40.0, 0.0, 1.0)
	assert.Equal(t, MODE_4FSK, rc.get_modulation_mode())

	rc.set_adaptation_enabled(true)
	rc.update_quality(40.0, 0.0, 1.0)
	assert.NotEqual(t, MODE_4FSK, rc.get_modulation_mode())
}
