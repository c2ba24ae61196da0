package packetprotocols

/*------------------------------------------------------------------
 *
 * Purpose:   	TNC configuration.
 *
 * Description:	Settings come from three layers, later ones winning:
 *		built-in defaults, a YAML configuration file, and
 *		PACKETPROTOCOLS_* environment variables.
 *
 *------------------------------------------------------------------*/

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/kelseyhightower/envconfig"
	"gopkg.in/yaml.v3"
)

// KISS TNC defaults.  Times are in the 10 mS units used on the wire.

const DEFAULT_TXDELAY = 30  // 300 mS
const DEFAULT_PERSIST = 63  //
const DEFAULT_SLOTTIME = 10 // 100 mS
const DEFAULT_TXTAIL = 10   // 100 mS
const DEFAULT_FULLDUP = false

const DEFAULT_KISS_PORT = 8001

type tnc_config_t struct {
	Mycall string `yaml:"mycall" envconfig:"MYCALL"`

	KissPort     int    `yaml:"kiss_port" envconfig:"KISS_PORT"`
	SerialDevice string `yaml:"serial_device" envconfig:"SERIAL_DEVICE"`
	SerialBaud   int    `yaml:"serial_baud" envconfig:"SERIAL_BAUD"`
	HwFlow       bool   `yaml:"hw_flow" envconfig:"HW_FLOW"`
	EnablePtty   bool   `yaml:"enable_ptty" envconfig:"ENABLE_PTTY"`

	DnsSdEnabled bool   `yaml:"dns_sd_enabled" envconfig:"DNS_SD_ENABLED"`
	DnsSdName    string `yaml:"dns_sd_name" envconfig:"DNS_SD_NAME"`

	Txdelay    int  `yaml:"txdelay" envconfig:"TXDELAY"`
	Persist    int  `yaml:"persist" envconfig:"PERSIST"`
	Slottime   int  `yaml:"slottime" envconfig:"SLOTTIME"`
	Txtail     int  `yaml:"txtail" envconfig:"TXTAIL"`
	FullDuplex bool `yaml:"full_duplex" envconfig:"FULL_DUPLEX"`

	T1Ms       int `yaml:"t1_ms" envconfig:"T1_MS"`
	T2Ms       int `yaml:"t2_ms" envconfig:"T2_MS"`
	T3Ms       int `yaml:"t3_ms" envconfig:"T3_MS"`
	MaxRetries int `yaml:"max_retries" envconfig:"MAX_RETRIES"`
	WindowSize int `yaml:"window_size" envconfig:"WINDOW_SIZE"`

	Layer2          string `yaml:"layer2" envconfig:"LAYER2"` // ax25, fx25, il2p
	Fx25Mode        int    `yaml:"fx25_mode" envconfig:"FX25_MODE"`
	Il2pMaxFec      bool   `yaml:"il2p_max_fec" envconfig:"IL2P_MAX_FEC"`
	Il2pAddChecksum bool   `yaml:"il2p_add_checksum" envconfig:"IL2P_ADD_CHECKSUM"`

	SupportedModes    []string `yaml:"supported_modes" envconfig:"SUPPORTED_MODES"`
	InitialMode       string   `yaml:"initial_mode" envconfig:"INITIAL_MODE"`
	AdaptationEnabled bool     `yaml:"adaptation_enabled" envconfig:"ADAPTATION_ENABLED"`
	Tier4Enabled      bool     `yaml:"tier4_enabled" envconfig:"TIER4_ENABLED"`
	HysteresisDb      float32  `yaml:"hysteresis_db" envconfig:"HYSTERESIS_DB"`

	NegotiationTimeoutMs int `yaml:"negotiation_timeout_ms" envconfig:"NEGOTIATION_TIMEOUT_MS"`

	QualityAlpha        float32 `yaml:"quality_alpha" envconfig:"QUALITY_ALPHA"`
	QualityUpdatePeriod int     `yaml:"quality_update_period" envconfig:"QUALITY_UPDATE_PERIOD"`
}

func config_defaults() *tnc_config_t {
	return &tnc_config_t{
		Mycall:               "N0CALL",
		KissPort:             DEFAULT_KISS_PORT,
		SerialBaud:           9600,
		DnsSdEnabled:         true,
		Txdelay:              DEFAULT_TXDELAY,
		Persist:              DEFAULT_PERSIST,
		Slottime:             DEFAULT_SLOTTIME,
		Txtail:               DEFAULT_TXTAIL,
		FullDuplex:           DEFAULT_FULLDUP,
		T1Ms:                 DEFAULT_T1_MS,
		T2Ms:                 DEFAULT_T2_MS,
		T3Ms:                 DEFAULT_T3_MS,
		MaxRetries:           DEFAULT_MAX_RETRIES,
		WindowSize:           DEFAULT_WINDOW_SIZE,
		Layer2:               "ax25",
		Fx25Mode:             16,
		SupportedModes:       []string{"2FSK", "4FSK", "QPSK", "8PSK"},
		InitialMode:          "4FSK",
		AdaptationEnabled:    true,
		HysteresisDb:         DEFAULT_HYSTERESIS_DB,
		NegotiationTimeoutMs: DEFAULT_NEGOTIATION_TIMEOUT_MS,
		QualityAlpha:         DEFAULT_QUALITY_ALPHA,
		QualityUpdatePeriod:  DEFAULT_QUALITY_UPDATE_PERIOD,
	}
}

/*------------------------------------------------------------------
 *
 * Function:	config_load
 *
 * Purpose:	Read configuration: defaults, then the YAML file when
 *		present, then PACKETPROTOCOLS_* environment variables.
 *
 * Inputs:	path	- Configuration file name.  Empty string or a
 *			  missing file just means defaults.
 *
 *------------------------------------------------------------------*/

func config_load(path string) (*tnc_config_t, error) {
	var cfg = config_defaults()

	if path != "" {
		var raw, err = os.ReadFile(path)
		if err == nil {
			if yerr := yaml.Unmarshal(raw, cfg); yerr != nil {
				return nil, fmt.Errorf("config file %s: %w", path, yerr)
			}
			text_color_set(DW_COLOR_INFO)
			dw_printf("Reading config file %s\n", path)
		} else if !os.IsNotExist(err) {
			return nil, err
		}
	}

	if err := envconfig.Process("packetprotocols", cfg); err != nil {
		return nil, err
	}

	if _, _, err := ax25_parse_addr(cfg.Mycall); err != nil {
		return nil, err
	}
	if cfg.WindowSize < 1 || cfg.WindowSize > 7 {
		return nil, fmt.Errorf("%w: window_size %d", ErrInvalidArgument, cfg.WindowSize)
	}

	return cfg, nil
}

func (cfg *tnc_config_t) link_config() ax25_link_config_t {
	var lc = ax25_link_default_config()
	lc.t1 = duration_ms(cfg.T1Ms, DEFAULT_T1_MS)
	lc.t2 = duration_ms(cfg.T2Ms, DEFAULT_T2_MS)
	lc.t3 = duration_ms(cfg.T3Ms, DEFAULT_T3_MS)
	lc.max_retries = cfg.MaxRetries
	lc.window_size = cfg.WindowSize
	return lc
}

func (cfg *tnc_config_t) supported_modulation_modes() []modulation_mode_t {
	var modes []modulation_mode_t
	for _, name := range cfg.SupportedModes {
		var m, ok = mode_by_name(name)
		if !ok {
			text_color_set(DW_COLOR_ERROR)
			dw_printf("Config: unknown modulation mode \"%s\" ignored.\n", name)
			continue
		}
		modes = append(modes, m)
	}
	if len(modes) == 0 {
		modes = []modulation_mode_t{MODE_2FSK}
	}
	return modes
}

func (cfg *tnc_config_t) initial_modulation_mode() modulation_mode_t {
	var m, ok = mode_by_name(cfg.InitialMode)
	if !ok {
		return MODE_4FSK
	}
	return m
}

func mode_by_name(name string) (modulation_mode_t, bool) {
	name = strings.ToUpper(strings.TrimSpace(name))
	for i := 0; i < MODE_COUNT; i++ {
		if strings.ToUpper(mode_names[i]) == name {
			return modulation_mode_t(i), true
		}
	}
	return MODE_2FSK, false
}

func duration_ms(ms int, fallback int) time.Duration {
	if ms <= 0 {
		ms = fallback
	}
	return time.Duration(ms) * time.Millisecond
}
