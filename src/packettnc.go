package packetprotocols

/*------------------------------------------------------------------
 *
 * Purpose:   	Main program for the packet protocols TNC.
 *
 * Description:	Wires the protocol stack to the host-facing KISS
 *		endpoints: TCP (with DNS-SD announcement), an optional
 *		serial device, and an optional pseudo terminal.
 *
 *		The modulator and demodulator are external; until they
 *		are attached the TNC simply serves its host side and
 *		discards transmit octets.
 *
 *------------------------------------------------------------------*/

import (
	"context"
	"os"
	"time"

	"github.com/spf13/pflag"
)

// How often the timer deadlines get looked at.
const WORK_CYCLE_MS = 100

func Main(args []string) {
	var flags = pflag.NewFlagSet(args[0], pflag.ExitOnError)

	var configFileName = flags.StringP("config-file", "c", "packettnc.yaml", "Configuration file name.")
	var kissPort = flags.IntP("kiss-port", "k", 0, "KISS TCP port.  0 takes the configured value.")
	var serialDevice = flags.StringP("serial-device", "s", "", "Serial device for KISS, e.g. /dev/ttyUSB0.")
	var enablePtty = flags.BoolP("enable-ptty", "p", false, "Enable pseudo terminal for KISS protocol.")
	var kissDebug = flags.BoolP("kiss-debug", "K", false, "Dump KISS frames to/from client applications.")
	var debug = flags.BoolP("debug", "d", false, "Enable debug output.")

	flags.Parse(args[1:])

	text_debug_enable(*debug)

	var cfg, err = config_load(*configFileName)
	if err != nil {
		text_color_set(DW_COLOR_ERROR)
		dw_printf("%s\n", err)
		os.Exit(1)
	}

	if *kissPort != 0 {
		cfg.KissPort = *kissPort
	}
	if *serialDevice != "" {
		cfg.SerialDevice = *serialDevice
	}
	if *enablePtty {
		cfg.EnablePtty = true
	}

	text_color_set(DW_COLOR_INFO)
	dw_printf("Packet Protocols TNC version %d.%d\n", MAJOR_VERSION, MINOR_VERSION)
	dw_printf("Station %s, layer 2 = %s\n", cfg.Mycall, cfg.Layer2)

	var t = tnc_init(cfg)
	if t == nil {
		os.Exit(1)
	}

	var kdebug = 0
	if *kissDebug {
		kdebug = 1
	}

	// Host-facing endpoints.

	var kn = kissnet_init(t.kiss, cfg.KissPort, kdebug)

	var serial *kissserial_t
	if cfg.SerialDevice != "" {
		serial = kissserial_init(t.kiss, cfg.SerialDevice, cfg.SerialBaud, kdebug)
		if serial == nil {
			os.Exit(1)
		}
	}

	var pt *kissserial_t
	if cfg.EnablePtty {
		pt = kisspt_init(t.kiss, kdebug)
		if pt == nil {
			os.Exit(1)
		}
	}

	// Received frames and negotiation messages fan out to every
	// attached client.

	t.client_out = func(data []byte) {
		kn.send_raw(data)
		if serial != nil {
			serial.write(data)
		}
		if pt != nil {
			pt.write(data)
		}
	}

	if cfg.DnsSdEnabled {
		dns_sd_announce(cfg.DnsSdName, cfg.KissPort)
	}

	if serial != nil {
		go serial.serve()
	}
	if pt != nil {
		go pt.serve()
	}

	// Timer work cycle.  All deadlines in the core are evaluated
	// here; nothing else keeps time.

	go func() {
		var tick = time.NewTicker(WORK_CYCLE_MS * time.Millisecond)
		defer tick.Stop()
		for now := range tick.C {
			t.work(now)
		}
	}()

	if err := kn.serve(context.Background()); err != nil {
		text_color_set(DW_COLOR_ERROR)
		dw_printf("%s\n", err)
		os.Exit(1)
	}
}
