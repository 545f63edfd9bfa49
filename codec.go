package asic0x

import "net"

// DecodeInbound turns a frame received from the radio link into an Ethernet
// frame addressed between the local station and its link partner.
//
// Frames shorter than an Ethernet header are dropped and ok is false, as is
// any local address that is not 6 bytes long. buf is
// never modified; the returned frame is a new buffer 8 bytes longer than buf.
func DecodeInbound(buf []byte, local net.HardwareAddr) (frame EthernetFrame, ok bool) {
	return AppendInbound(nil, buf, local)
}

// AppendInbound is DecodeInbound writing into dst[:0], growing it as needed.
func AppendInbound(dst, buf []byte, local net.HardwareAddr) (EthernetFrame, bool) {
	if len(buf) < EthernetHeaderLen || len(local) != 6 {
		return nil, false
	}
	broadcast := buf[0]&BroadcastFlag != 0

	out := grow(dst, len(buf)+reframeLen)
	copy(out[reframeLen:], buf)

	// source overwrites the old length word, packet and check bytes.
	copy(out[6:12], local)
	if broadcast {
		copy(out[0:6], BroadcastAddr)
	} else {
		copy(out[0:6], local)
		out[5] ^= 0x01
	}
	return EthernetFrame(out), true
}

// EncodeOutbound turns an Ethernet frame from the host stack into a radio
// frame. The caller guarantees len(frame) >= EthernetHeaderLen.
func EncodeOutbound(frame EthernetFrame) RadioFrame {
	return AppendOutbound(nil, frame)
}

// AppendOutbound is EncodeOutbound writing into dst[:0], growing it as needed.
func AppendOutbound(dst []byte, frame EthernetFrame) RadioFrame {
	payloadLength := len(frame) - EthernetHeaderLen
	packetLength := payloadLength + RadioHeaderLen
	multicast := frame.Multicast()

	out := grow(dst, len(frame)-reframeLen)
	copy(out, frame[reframeLen:])

	out[0] = byte(packetLength >> 8)
	if multicast {
		out[0] |= BroadcastFlag
	}
	out[1] = byte(packetLength)
	out[2] = 0
	out[3] = byte(packetLength) ^ 0xFF
	return RadioFrame(out)
}

func grow(dst []byte, n int) []byte {
	if cap(dst) < n {
		return make([]byte, n)
	}
	return dst[:n]
}
