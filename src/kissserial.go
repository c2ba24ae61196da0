package packetprotocols

/*------------------------------------------------------------------
 *
 * Purpose:   	Provide the KISS protocol over a serial port or a
 *		pseudo terminal.
 *
 * Description:	Some client applications only know how to talk to a
 *		hardware TNC on a serial device.  The pseudo terminal
 *		flavor creates a pty pair and prints the slave side
 *		name for the client application to open.
 *
 *------------------------------------------------------------------*/

import (
	"io"

	"github.com/creack/pty"
	"github.com/pkg/term"
)

type kissserial_t struct {
	tnc   *kiss_tnc_t
	debug int

	port *term.Term // Serial flavor; nil for pty.
	pt   io.ReadWriteCloser // Pseudo terminal master; nil for serial.

	kf kiss_frame_t
}

/*-------------------------------------------------------------------
 *
 * Name:	kissserial_init
 *
 * Purpose:	Open the serial device for KISS.
 *
 * Inputs:	devicename, baud - Serial device to open.
 *
 *-----------------------------------------------------------------*/

func kissserial_init(tnc *kiss_tnc_t, devicename string, baud int, debug int) *kissserial_t {
	var port = serial_port_open(devicename, baud)
	if port == nil {
		return nil
	}

	text_color_set(DW_COLOR_INFO)
	dw_printf("Ready to accept KISS client application on %s ...\n", devicename)

	return &kissserial_t{
		tnc:   tnc,
		debug: debug,
		port:  port,
	}
}

/*-------------------------------------------------------------------
 *
 * Name:	kisspt_init
 *
 * Purpose:	Create a pseudo terminal KISS endpoint.
 *
 * Description:	The slave side name is printed; point the client
 *		application at it as if it were a serial TNC.
 *
 *-----------------------------------------------------------------*/

func kisspt_init(tnc *kiss_tnc_t, debug int) *kissserial_t {
	var master, slave, err = pty.Open()
	if err != nil {
		text_color_set(DW_COLOR_ERROR)
		dw_printf("ERROR - Could not create pseudo terminal: %s.\n", err)
		return nil
	}

	text_color_set(DW_COLOR_INFO)
	dw_printf("Virtual KISS TNC is available on %s\n", slave.Name())

	return &kissserial_t{
		tnc:   tnc,
		debug: debug,
		pt:    master,
	}
}

func (ks *kissserial_t) write(data []byte) {
	if ks.port != nil {
		serial_port_write(ks.port, data)
	} else if ks.pt != nil {
		ks.pt.Write(data)
	}
}

/*-------------------------------------------------------------------
 *
 * Name:	serve
 *
 * Purpose:	Read loop.  Runs until the device goes away.
 *
 *-----------------------------------------------------------------*/

func (ks *kissserial_t) serve() {
	var sendfun = func(data []byte) {
		ks.write(data)
	}

	for {
		var ch byte
		var err error

		if ks.port != nil {
			ch, err = serial_port_get1(ks.port)
		} else {
			var b [1]byte
			var n int
			n, err = ks.pt.Read(b[:])
			if err == nil && n != 1 {
				continue
			}
			ch = b[0]
		}

		if err != nil {
			text_color_set(DW_COLOR_ERROR)
			dw_printf("KISS serial device read error: %s\n", err)
			return
		}

		kiss_rec_byte(&ks.kf, ch, ks.debug, sendfun, func(msg []byte) {
			ks.tnc.kiss_process_msg(msg, sendfun)
		})
	}
}

/*-------------------------------------------------------------------
 *
 * Name:	kissserial_send_rec_packet
 *
 * Purpose:	Send a frame to the attached client application.
 *
 *-----------------------------------------------------------------*/

func (ks *kissserial_t) kissserial_send_rec_packet(channel int, cmd byte, fbuf []byte) {
	var msg = make([]byte, 0, len(fbuf)+1)
	msg = append(msg, byte(channel<<4)|cmd)
	msg = append(msg, fbuf...)

	if ks.debug > 0 {
		kiss_debug_print(TO_CLIENT, "", msg)
	}

	ks.write(kiss_encapsulate(msg))
}

func (ks *kissserial_t) close() {
	if ks.port != nil {
		serial_port_close(ks.port)
	}
	if ks.pt != nil {
		ks.pt.Close()
	}
}
