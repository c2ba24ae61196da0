package packetprotocols

/*------------------------------------------------------------------
 *
 * Name:	ax25_pad2
 *
 * Purpose:	Construct the different types of frames besides UI.
 *		The original ax25_pad was written when only APRS
 *		mattered; the connected mode engine needs all of
 *		I, S and U frames.
 *
 *------------------------------------------------------------------*/

import "fmt"

// Control field values for U frames, P/F bit zero.

const ctrl_U_SABM = 0x2f
const ctrl_U_DISC = 0x43
const ctrl_U_DM = 0x0f
const ctrl_U_UA = 0x63
const ctrl_U_FRMR = 0x87
const ctrl_U_UI = 0x03
const ctrl_U_XID = 0xaf
const ctrl_U_TEST = 0xe3

const ctrl_PF_mask = 0x10

// Build the address block shared by all frame types and apply the
// command/response convention to the C bits.

func ax25_new_frame(addrs []string, cr cmdres_t) (*packet_t, error) {
	if len(addrs) < AX25_MIN_ADDRS || len(addrs) > AX25_MAX_ADDRS {
		return nil, fmt.Errorf("%w: %d addresses, need %d-%d", ErrInvalidArgument, len(addrs), AX25_MIN_ADDRS, AX25_MAX_ADDRS)
	}

	var pp = &packet_t{
		frame_data: make([]byte, len(addrs)*7),
		num_addr:   len(addrs),
	}

	for n, a := range addrs {
		if err := ax25_set_addr_field(pp.frame_data, n, a); err != nil {
			return nil, err
		}
	}
	pp.frame_data[len(addrs)*7-1] |= SSID_LAST_MASK

	switch cr {
	case cr_cmd:
		pp.frame_data[AX25_DESTINATION*7+6] |= SSID_H_MASK
	case cr_res:
		pp.frame_data[AX25_SOURCE*7+6] |= SSID_H_MASK
	case cr_11:
		pp.frame_data[AX25_DESTINATION*7+6] |= SSID_H_MASK
		pp.frame_data[AX25_SOURCE*7+6] |= SSID_H_MASK
	case cr_00:
		// Neither.
	}

	return pp, nil
}

/*------------------------------------------------------------------
 *
 * Function:	ax25_u_frame
 *
 * Purpose:	Construct a U frame.
 *
 * Inputs:	addrs	- Destination, source, optional digipeaters,
 *			  in "CALL-SSID" text form.
 *		cr	- Command or response.
 *		ftype	- One of the U frame types.
 *		pf	- Poll/Final bit, 0 or 1.
 *		pid	- Protocol ID, used only for UI.
 *		info	- Information part, only for UI, XID, TEST, FRMR.
 *
 * Returns:	Packet object or an error.
 *
 *------------------------------------------------------------------*/

func ax25_u_frame(addrs []string, cr cmdres_t, ftype ax25_frame_type_t, pf int, pid int, info []byte) (*packet_t, error) {
	var ctrl int
	var info_allowed = false

	switch ftype {
	case frame_type_U_SABM:
		ctrl = ctrl_U_SABM
	case frame_type_U_DISC:
		ctrl = ctrl_U_DISC
	case frame_type_U_DM:
		ctrl = ctrl_U_DM
	case frame_type_U_UA:
		ctrl = ctrl_U_UA
	case frame_type_U_FRMR:
		ctrl = ctrl_U_FRMR
		info_allowed = true
	case frame_type_U_UI:
		ctrl = ctrl_U_UI
		info_allowed = true
	case frame_type_U_XID:
		ctrl = ctrl_U_XID
		info_allowed = true
	case frame_type_U_TEST:
		ctrl = ctrl_U_TEST
		info_allowed = true
	default:
		return nil, fmt.Errorf("%w: not a U frame type", ErrInvalidArgument)
	}

	if !info_allowed && len(info) > 0 {
		return nil, fmt.Errorf("%w: this U frame type carries no info", ErrInvalidArgument)
	}
	if len(info) > AX25_MAX_INFO_LEN {
		return nil, fmt.Errorf("%w: info part over %d bytes", ErrInvalidArgument, AX25_MAX_INFO_LEN)
	}

	var pp, err = ax25_new_frame(addrs, cr)
	if err != nil {
		return nil, err
	}

	if pf != 0 {
		ctrl |= ctrl_PF_mask
	}
	pp.frame_data = append(pp.frame_data, byte(ctrl))

	if ftype == frame_type_U_UI {
		pp.frame_data = append(pp.frame_data, byte(pid))
	}

	pp.frame_data = append(pp.frame_data, info...)

	return pp, nil
}

/*------------------------------------------------------------------
 *
 * Function:	ax25_s_frame
 *
 * Purpose:	Construct an S frame: RR, RNR, REJ or SREJ.
 *
 *------------------------------------------------------------------*/

func ax25_s_frame(addrs []string, cr cmdres_t, ftype ax25_frame_type_t, nr int, pf int) (*packet_t, error) {
	if nr < 0 || nr > 7 {
		return nil, fmt.Errorf("%w: n(r) %d out of range", ErrInvalidArgument, nr)
	}

	var ss int
	switch ftype {
	case frame_type_S_RR:
		ss = 0
	case frame_type_S_RNR:
		ss = 1
	case frame_type_S_REJ:
		ss = 2
	case frame_type_S_SREJ:
		ss = 3
	default:
		return nil, fmt.Errorf("%w: not an S frame type", ErrInvalidArgument)
	}

	var pp, err = ax25_new_frame(addrs, cr)
	if err != nil {
		return nil, err
	}

	var ctrl = (nr << 5) | (pf << 4) | (ss << 2) | 0x01
	pp.frame_data = append(pp.frame_data, byte(ctrl))

	return pp, nil
}

/*------------------------------------------------------------------
 *
 * Function:	ax25_i_frame
 *
 * Purpose:	Construct an I frame.
 *
 * Inputs:	addrs	- As above.
 *		cr	- Should be cr_cmd per AX.25 2.x.
 *		nr, ns	- Sequence numbers, 0-7.
 *		pf	- Poll bit.
 *		pid	- Protocol ID, 0xf0 for no layer 3.
 *		info	- 0 to 256 bytes.
 *
 *------------------------------------------------------------------*/

func ax25_i_frame(addrs []string, cr cmdres_t, nr int, ns int, pf int, pid int, info []byte) (*packet_t, error) {
	if nr < 0 || nr > 7 || ns < 0 || ns > 7 {
		return nil, fmt.Errorf("%w: sequence numbers must be 0-7", ErrInvalidArgument)
	}
	if len(info) > AX25_MAX_INFO_LEN {
		return nil, fmt.Errorf("%w: info part over %d bytes", ErrInvalidArgument, AX25_MAX_INFO_LEN)
	}

	var pp, err = ax25_new_frame(addrs, cr)
	if err != nil {
		return nil, err
	}

	var ctrl = (nr << 5) | (pf << 4) | (ns << 1)
	pp.frame_data = append(pp.frame_data, byte(ctrl), byte(pid))
	pp.frame_data = append(pp.frame_data, info...)

	return pp, nil
}
