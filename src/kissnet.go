package packetprotocols

/*------------------------------------------------------------------
 *
 * Purpose:   	Provide the KISS protocol over a TCP socket.
 *
 * Description:	Each client gets its own KISS frame accumulator so the
 *		byte streams can interleave freely.  Frames received
 *		from the radio side go out to every connected client.
 *
 *------------------------------------------------------------------*/

import (
	"context"
	"fmt"
	"net"
	"sync"

	"golang.org/x/sync/errgroup"
)

type kissnet_t struct {
	tnc      *kiss_tnc_t
	tcp_port int
	debug    int

	listener net.Listener

	mu          sync.Mutex
	client_sock [MAX_NET_CLIENTS]net.Conn
	kf          [MAX_NET_CLIENTS]*kiss_frame_t
}

func kissnet_init(tnc *kiss_tnc_t, tcp_port int, debug int) *kissnet_t {
	return &kissnet_t{
		tnc:      tnc,
		tcp_port: tcp_port,
		debug:    debug,
	}
}

/*-------------------------------------------------------------------
 *
 * Name:        serve
 *
 * Purpose:     Listen for TCP connections and run the client read
 *		loops until the context is cancelled.
 *
 *-----------------------------------------------------------------*/

func (kn *kissnet_t) serve(ctx context.Context) error {
	var lc net.ListenConfig
	var listener, err = lc.Listen(ctx, "tcp", fmt.Sprintf(":%d", kn.tcp_port))
	if err != nil {
		text_color_set(DW_COLOR_ERROR)
		dw_printf("Could not open listening port %d for KISS TCP.\n", kn.tcp_port)
		return err
	}
	kn.listener = listener

	text_color_set(DW_COLOR_INFO)
	dw_printf("Ready to accept KISS TCP client application on port %d ...\n", kn.tcp_port)

	var g, gctx = errgroup.WithContext(ctx)

	g.Go(func() error {
		<-gctx.Done()
		return listener.Close()
	})

	g.Go(func() error {
		for {
			var conn, err = listener.Accept()
			if err != nil {
				if gctx.Err() != nil {
					return nil
				}
				return err
			}

			var slot = kn.attach_client(conn)
			if slot < 0 {
				text_color_set(DW_COLOR_ERROR)
				dw_printf("KISS TCP: client limit of %d reached, rejecting %s.\n", MAX_NET_CLIENTS, conn.RemoteAddr())
				conn.Close()
				continue
			}

			text_color_set(DW_COLOR_INFO)
			dw_printf("Connected to KISS TCP client application %d from %s ...\n", slot, conn.RemoteAddr())

			g.Go(func() error {
				kn.client_loop(slot, conn)
				return nil
			})
		}
	})

	return g.Wait()
}

func (kn *kissnet_t) attach_client(conn net.Conn) int {
	kn.mu.Lock()
	defer kn.mu.Unlock()
	for i := 0; i < MAX_NET_CLIENTS; i++ {
		if kn.client_sock[i] == nil {
			kn.client_sock[i] = conn
			kn.kf[i] = new(kiss_frame_t)
			return i
		}
	}
	return -1
}

func (kn *kissnet_t) client_loop(slot int, conn net.Conn) {
	defer func() {
		kn.mu.Lock()
		kn.client_sock[slot] = nil
		kn.kf[slot] = nil
		kn.mu.Unlock()
		conn.Close()

		text_color_set(DW_COLOR_INFO)
		dw_printf("KISS TCP client application %d has gone away.\n", slot)
	}()

	var sendfun = func(data []byte) {
		conn.Write(data)
	}

	var buf [1024]byte
	for {
		var n, err = conn.Read(buf[:])
		if err != nil {
			return
		}
		kn.mu.Lock()
		var kf = kn.kf[slot]
		kn.mu.Unlock()
		if kf == nil {
			return
		}
		for _, ch := range buf[:n] {
			kiss_rec_byte(kf, ch, kn.debug, sendfun, func(msg []byte) {
				kn.tnc.kiss_process_msg(msg, sendfun)
			})
		}
	}
}

/*-------------------------------------------------------------------
 *
 * Name:        kissnet_send_rec_packet
 *
 * Purpose:     Send a frame to all attached KISS TCP clients.
 *
 * Inputs:	channel	- Radio channel where it was received.
 *		cmd	- KISS command, usually KISS_CMD_DATA_FRAME.
 *		fbuf	- The frame, without FCS.
 *
 *-----------------------------------------------------------------*/

// Send pre-encapsulated bytes to every attached client.

func (kn *kissnet_t) send_raw(data []byte) {
	kn.mu.Lock()
	defer kn.mu.Unlock()
	for i := 0; i < MAX_NET_CLIENTS; i++ {
		if kn.client_sock[i] != nil {
			kn.client_sock[i].Write(data)
		}
	}
}

func (kn *kissnet_t) kissnet_send_rec_packet(channel int, cmd byte, fbuf []byte) {
	var msg = make([]byte, 0, len(fbuf)+1)
	msg = append(msg, byte(channel<<4)|cmd)
	msg = append(msg, fbuf...)
	var wrapped = kiss_encapsulate(msg)

	if kn.debug > 0 {
		kiss_debug_print(TO_CLIENT, "", msg)
	}

	kn.mu.Lock()
	defer kn.mu.Unlock()
	for i := 0; i < MAX_NET_CLIENTS; i++ {
		if kn.client_sock[i] != nil {
			kn.client_sock[i].Write(wrapped)
		}
	}
}
