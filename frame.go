package asic0x

import (
	"encoding/binary"
	"fmt"
	"net"
	"strings"

	"github.com/fatih/color"
	"github.com/google/gopacket"
	"github.com/google/gopacket/layers"
)

const (
	// EthernetHeaderLen is dest[6] source[6] ethertype[2].
	EthernetHeaderLen = 14
	// RadioHeaderLen is the radio header size used for length accounting.
	RadioHeaderLen = 8
	// reframeLen is the number of leading bytes whose meaning differs between
	// the two framings. Everything after it is shared verbatim.
	reframeLen = 8

	// BroadcastFlag is bit 3 of the radio length word high byte.
	BroadcastFlag = 0x08
	lengthMask    = 0xFFFF &^ (BroadcastFlag << 8)
)

// BroadcastAddr is the all-ones Ethernet destination.
var BroadcastAddr = net.HardwareAddr{0xff, 0xff, 0xff, 0xff, 0xff, 0xff}

// EthernetFrame is a link-layer frame as exchanged with the host network stack.
type EthernetFrame []byte

func (f EthernetFrame) Dest() net.HardwareAddr   { return net.HardwareAddr(f[0:6]) }
func (f EthernetFrame) Source() net.HardwareAddr { return net.HardwareAddr(f[6:12]) }
func (f EthernetFrame) EtherType() uint16        { return binary.BigEndian.Uint16(f[12:14]) }
func (f EthernetFrame) Payload() []byte          { return f[EthernetHeaderLen:] }

// Multicast reports whether the group bit of the destination is set.
func (f EthernetFrame) Multicast() bool {
	return f[0]&0x01 != 0
}

func (f EthernetFrame) String() string {
	if len(f) < EthernetHeaderLen {
		return fmt.Sprintf("<short ethernet frame %d bytes>", len(f))
	}
	return fmt.Sprintf("%s > %s 0x%04X || %d || % X", f.Source(), f.Dest(), f.EtherType(), len(f.Payload()), f.Payload())
}

func (f EthernetFrame) ColorString() string {
	if len(f) < EthernetHeaderLen {
		return red("<short ethernet frame %d bytes>", len(f))
	}
	var out strings.Builder
	out.WriteString(green("%s", f.Source()) + " > " + green("%s", f.Dest()) + " || ")
	out.WriteString(yellow("0x%04X", f.EtherType()) + " || ")
	out.WriteString(fmt.Sprintf("%d || ", len(f.Payload())))
	out.WriteString(hexView(f.Payload()))
	return out.String()
}

// Describe returns a one line summary of the decoded layers, for display only.
func (f EthernetFrame) Describe() string {
	pkt := gopacket.NewPacket(f, layers.LayerTypeEthernet, gopacket.NoCopy)
	var names []string
	for _, l := range pkt.Layers() {
		names = append(names, l.LayerType().String())
	}
	if el := pkt.ErrorLayer(); el != nil {
		names = append(names, "error: "+el.Error().Error())
	}
	return strings.Join(names, "/")
}

// RadioFrame is a frame in the radio link wire format:
// lengthHigh lengthLow packetSeq checksum ethertype[2] payload.
type RadioFrame []byte

// LengthWord returns the raw big-endian length/flag word.
func (f RadioFrame) LengthWord() uint16 { return binary.BigEndian.Uint16(f[0:2]) }

// Length returns the length field with the broadcast flag masked off.
func (f RadioFrame) Length() int       { return int(f.LengthWord() & lengthMask) }
func (f RadioFrame) Broadcast() bool   { return f[0]&BroadcastFlag != 0 }
func (f RadioFrame) PacketSeq() byte   { return f[2] }
func (f RadioFrame) Checksum() byte    { return f[3] }
func (f RadioFrame) EtherType() uint16 { return binary.BigEndian.Uint16(f[4:6]) }
func (f RadioFrame) Payload() []byte   { return f[6:] }

// ChecksumValid reports whether checksum == lengthLow ^ 0xFF.
func (f RadioFrame) ChecksumValid() bool {
	return f[3] == f[1]^0xFF
}

func (f RadioFrame) String() string {
	if len(f) < 6 {
		return fmt.Sprintf("<short radio frame %d bytes>", len(f))
	}
	return fmt.Sprintf("len=%d bcast=%v seq=%d chk=%02X(%v) 0x%04X || % X",
		f.Length(), f.Broadcast(), f.PacketSeq(), f.Checksum(), f.ChecksumValid(), f.EtherType(), f.Payload())
}

func (f RadioFrame) ColorString() string {
	if len(f) < 6 {
		return red("<short radio frame %d bytes>", len(f))
	}
	chk := green("%02X", f.Checksum())
	if !f.ChecksumValid() {
		chk = red("%02X", f.Checksum())
	}
	var out strings.Builder
	out.WriteString(green("len=%d", f.Length()))
	if f.Broadcast() {
		out.WriteString(yellow(" bcast"))
	}
	out.WriteString(fmt.Sprintf(" seq=%d chk=", f.PacketSeq()) + chk + " || ")
	out.WriteString(yellow("0x%04X", f.EtherType()) + " || ")
	out.WriteString(hexView(f.Payload()))
	return out.String()
}

var (
	yellow = color.New(color.FgHiBlue).SprintfFunc()
	red    = color.New(color.FgRed).SprintfFunc()
	green  = color.New(color.FgGreen).SprintfFunc()
)

func hexView(data []byte) string {
	var out strings.Builder
	for i, b := range data {
		out.WriteString(fmt.Sprintf("%02X", b))
		if i != len(data)-1 {
			out.WriteString(" ")
		}
	}
	return out.String()
}
