//go:build linux

package tap

import (
	"testing"
	"unsafe"

	"github.com/lourenssteyn/asic0x"
	"golang.org/x/sys/unix"
)

func TestKernelFlags(t *testing.T) {
	tests := []struct {
		in   asic0x.HostFlags
		want uint16
	}{
		{0, 0},
		{asic0x.FlagUp, unix.IFF_UP},
		{asic0x.FlagBroadcast | asic0x.FlagNoARP | asic0x.FlagDynamic, unix.IFF_BROADCAST | unix.IFF_NOARP | unix.IFF_DYNAMIC},
		{asic0x.HostFlagsDefault, managedFlags},
	}
	for _, tt := range tests {
		if got := kernelFlags(tt.in); got != tt.want {
			t.Errorf("kernelFlags(%s) = 0x%04x, want 0x%04x", tt.in, got, tt.want)
		}
	}
}

func TestIfreqHwaddrSize(t *testing.T) {
	if got := unsafe.Sizeof(ifreqHwaddr{}); got != 40 {
		t.Errorf("sizeof(ifreq) = %d, want 40", got)
	}
}

func TestOpenNameTooLong(t *testing.T) {
	if _, err := Open("a-very-long-interface-name", 0); err == nil {
		t.Error("Open() accepted a name longer than IFNAMSIZ")
	}
}

// needs CAP_NET_ADMIN
func TestOpen(t *testing.T) {
	tp, err := Open("", 1500)
	if err != nil {
		t.Skipf("no tun access: %v", err)
	}
	defer tp.Close()
	if tp.Name() == "" || tp.MTU() != 1500 {
		t.Errorf("Open() = %s mtu %d", tp.Name(), tp.MTU())
	}
}
