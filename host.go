package asic0x

import (
	"net"
	"strings"
)

// HostFlags are the interface flags exposed to the host network stack.
type HostFlags uint32

const (
	FlagUp HostFlags = 1 << iota
	FlagBroadcast
	FlagNoARP
	FlagDynamic
	FlagPromisc
)

func (f HostFlags) String() string {
	var out []string
	for _, n := range []struct {
		flag HostFlags
		name string
	}{
		{FlagUp, "UP"},
		{FlagBroadcast, "BROADCAST"},
		{FlagNoARP, "NOARP"},
		{FlagDynamic, "DYNAMIC"},
		{FlagPromisc, "PROMISC"},
	} {
		if f&n.flag != 0 {
			out = append(out, n.name)
		}
	}
	return "<" + strings.Join(out, ",") + ">"
}

// HostInterface is the logical network device the adapter is presented as.
type HostInterface interface {
	Name() string
	SetHardwareAddr(net.HardwareAddr) error
	SetFlags(HostFlags) error
	SetCarrier(up bool) error
	ReadFrame([]byte) (int, error)
	WriteFrame([]byte) (int, error)
	Close() error
}
