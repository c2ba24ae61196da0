package packetprotocols

/*-------------------------------------------------------------
 *
 * Purpose:	Wire format of the modulation negotiation messages
 *		carried in-band over KISS with the vendor command
 *		values 0x10 - 0x14.
 *
 * Description:	Every message starts with a length-prefixed station id.
 *		Multi-octet fields are little-endian.  The layouts:
 *
 *		NEG_REQ:     id_len(1) id proposed_mode(1)
 *		             num_supported(1) supported_modes(n)
 *		NEG_RESP:    id_len(1) id accepted(1) negotiated_mode(1)
 *		MODE_CHANGE: id_len(1) id new_mode(1)
 *		QUALITY_FB:  id_len(1) id snr_f32(4) ber_f32(4)
 *		             quality_f32(4)
 *
 *--------------------------------------------------------------*/

import (
	"encoding/binary"
	"math"
)

const NEG_MAX_SUPPORTED_MODES = 8

func encode_negotiation_request(station_id string, proposed_mode modulation_mode_t, supported_modes []modulation_mode_t) []byte {
	var id_len = min(len(station_id), 255)
	var num_modes = min(len(supported_modes), NEG_MAX_SUPPORTED_MODES)

	var frame = make([]byte, 0, 3+id_len+num_modes)
	frame = append(frame, byte(id_len))
	frame = append(frame, station_id[:id_len]...)
	frame = append(frame, byte(proposed_mode), byte(num_modes))
	for i := 0; i < num_modes; i++ {
		frame = append(frame, byte(supported_modes[i]))
	}

	return frame
}

func decode_negotiation_request(data []byte) (string, modulation_mode_t, []modulation_mode_t, bool) {
	if len(data) < 3 {
		return "", 0, nil, false // Need at least: id_len + proposed_mode + num_modes.
	}

	var pos = 0
	var id_len = int(data[pos])
	pos++
	if pos+id_len+2 > len(data) {
		return "", 0, nil, false
	}
	var station_id = string(data[pos : pos+id_len])
	pos += id_len

	var proposed_mode = modulation_mode_t(data[pos])
	pos++

	var num_modes = int(data[pos])
	pos++
	if pos+num_modes > len(data) {
		return "", 0, nil, false
	}

	var supported_modes = make([]modulation_mode_t, 0, num_modes)
	for i := 0; i < num_modes; i++ {
		supported_modes = append(supported_modes, modulation_mode_t(data[pos]))
		pos++
	}

	return station_id, proposed_mode, supported_modes, true
}

func encode_negotiation_response(station_id string, accepted bool, negotiated_mode modulation_mode_t) []byte {
	var id_len = min(len(station_id), 255)

	var frame = make([]byte, 0, 3+id_len)
	frame = append(frame, byte(id_len))
	frame = append(frame, station_id[:id_len]...)
	frame = append(frame, byte(IfThenElse(accepted, 1, 0)), byte(negotiated_mode))

	return frame
}

func decode_negotiation_response(data []byte) (string, bool, modulation_mode_t, bool) {
	if len(data) < 3 {
		return "", false, 0, false
	}

	var pos = 0
	var id_len = int(data[pos])
	pos++
	if pos+id_len+2 > len(data) {
		return "", false, 0, false
	}
	var station_id = string(data[pos : pos+id_len])
	pos += id_len

	var accepted = data[pos] != 0
	pos++
	var negotiated_mode = modulation_mode_t(data[pos])

	return station_id, accepted, negotiated_mode, true
}

func encode_mode_change(station_id string, new_mode modulation_mode_t) []byte {
	var id_len = min(len(station_id), 255)

	var frame = make([]byte, 0, 2+id_len)
	frame = append(frame, byte(id_len))
	frame = append(frame, station_id[:id_len]...)
	frame = append(frame, byte(new_mode))

	return frame
}

func decode_mode_change(data []byte) (string, modulation_mode_t, bool) {
	if len(data) < 2 {
		return "", 0, false
	}

	var pos = 0
	var id_len = int(data[pos])
	pos++
	if pos+id_len+1 > len(data) {
		return "", 0, false
	}
	var station_id = string(data[pos : pos+id_len])
	pos += id_len

	return station_id, modulation_mode_t(data[pos]), true
}

func encode_quality_feedback(station_id string, snr_db float32, ber float32, quality_score float32) []byte {
	var id_len = min(len(station_id), 255)

	var frame = make([]byte, 0, 13+id_len)
	frame = append(frame, byte(id_len))
	frame = append(frame, station_id[:id_len]...)
	frame = binary.LittleEndian.AppendUint32(frame, math.Float32bits(snr_db))
	frame = binary.LittleEndian.AppendUint32(frame, math.Float32bits(ber))
	frame = binary.LittleEndian.AppendUint32(frame, math.Float32bits(quality_score))

	return frame
}

func decode_quality_feedback(data []byte) (string, float32, float32, float32, bool) {
	if len(data) < 14 {
		return "", 0, 0, 0, false // id_len + id + 3 floats.
	}

	var pos = 0
	var id_len = int(data[pos])
	pos++
	if pos+id_len+12 > len(data) {
		return "", 0, 0, 0, false
	}
	var station_id = string(data[pos : pos+id_len])
	pos += id_len

	var snr_db = math.Float32frombits(binary.LittleEndian.Uint32(data[pos:]))
	pos += 4
	var ber = math.Float32frombits(binary.LittleEndian.Uint32(data[pos:]))
	pos += 4
	var quality_score = math.Float32frombits(binary.LittleEndian.Uint32(data[pos:]))

	return station_id, snr_db, ber, quality_score, true
}
