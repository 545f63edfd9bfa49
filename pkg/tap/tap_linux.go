//go:build linux

// Package tap presents the adapter to the host network stack as a Linux TAP
// device.
package tap

import (
	"fmt"
	"net"
	"os"
	"sync"
	"unsafe"

	"github.com/lourenssteyn/asic0x"
	"golang.org/x/sys/unix"
)

// DefaultName lets the kernel pick the next free ibN name.
const DefaultName = "ib%d"

const managedFlags = unix.IFF_UP | unix.IFF_BROADCAST | unix.IFF_NOARP | unix.IFF_DYNAMIC | unix.IFF_PROMISC

// struct ifreq with the ifr_hwaddr member
type ifreqHwaddr struct {
	name   [unix.IFNAMSIZ]byte
	family uint16
	data   [14]byte
	_      [8]byte
}

// TAP is an asic0x.HostInterface backed by /dev/net/tun.
type TAP struct {
	fd   *os.File
	name string
	mtu  int

	closeOnce sync.Once
}

// Open creates the TAP device. The carrier starts off, the bridge raises it
// once the modem reports a link. mtu 0 keeps the kernel default.
func Open(name string, mtu int) (*TAP, error) {
	if name == "" {
		name = DefaultName
	}
	if len(name) >= unix.IFNAMSIZ {
		return nil, fmt.Errorf("interface name too long: %s", name)
	}
	fd, err := unix.Open("/dev/net/tun", unix.O_RDWR|unix.O_NONBLOCK|unix.O_CLOEXEC, 0)
	if err != nil {
		return nil, fmt.Errorf("open /dev/net/tun: %w", err)
	}
	ifr, err := unix.NewIfreq(name)
	if err != nil {
		unix.Close(fd)
		return nil, err
	}
	ifr.SetUint16(unix.IFF_TAP | unix.IFF_NO_PI)
	if err := unix.IoctlIfreq(fd, unix.TUNSETIFF, ifr); err != nil {
		unix.Close(fd)
		return nil, fmt.Errorf("TUNSETIFF: %w", err)
	}
	t := &TAP{
		// non-blocking so Close unblocks a pending read
		fd:   os.NewFile(uintptr(fd), "/dev/net/tun"),
		name: ifr.Name(),
		mtu:  mtu,
	}
	if err := t.SetCarrier(false); err != nil {
		t.Close()
		return nil, err
	}
	if mtu > 0 {
		if err := t.setMTU(uint32(mtu)); err != nil {
			t.Close()
			return nil, fmt.Errorf("set mtu: %w", err)
		}
	}
	return t, nil
}

func (t *TAP) Name() string {
	return t.name
}

func (t *TAP) MTU() int {
	return t.mtu
}

// ctl runs fn on a throwaway socket, interface ioctls need one.
func ctl(fn func(fd int) error) error {
	fd, err := unix.Socket(unix.AF_INET, unix.SOCK_DGRAM|unix.SOCK_CLOEXEC, 0)
	if err != nil {
		return err
	}
	defer unix.Close(fd)
	return fn(fd)
}

func (t *TAP) setMTU(n uint32) error {
	return ctl(func(fd int) error {
		ifr, err := unix.NewIfreq(t.name)
		if err != nil {
			return err
		}
		ifr.SetUint32(n)
		return unix.IoctlIfreq(fd, unix.SIOCSIFMTU, ifr)
	})
}

func (t *TAP) SetHardwareAddr(addr net.HardwareAddr) error {
	if len(addr) != 6 {
		return fmt.Errorf("invalid hardware address %s", addr)
	}
	var ifr ifreqHwaddr
	copy(ifr.name[:], t.name)
	ifr.family = unix.ARPHRD_ETHER
	copy(ifr.data[:], addr)
	return ctl(func(fd int) error {
		_, _, errno := unix.Syscall(unix.SYS_IOCTL, uintptr(fd), unix.SIOCSIFHWADDR, uintptr(unsafe.Pointer(&ifr)))
		if errno != 0 {
			return fmt.Errorf("SIOCSIFHWADDR: %w", errno)
		}
		return nil
	})
}

// SetFlags replaces the flags the adapter manages and keeps the others.
func (t *TAP) SetFlags(flags asic0x.HostFlags) error {
	return ctl(func(fd int) error {
		ifr, err := unix.NewIfreq(t.name)
		if err != nil {
			return err
		}
		if err := unix.IoctlIfreq(fd, unix.SIOCGIFFLAGS, ifr); err != nil {
			return fmt.Errorf("SIOCGIFFLAGS: %w", err)
		}
		ifr.SetUint16(ifr.Uint16()&^managedFlags | kernelFlags(flags))
		if err := unix.IoctlIfreq(fd, unix.SIOCSIFFLAGS, ifr); err != nil {
			return fmt.Errorf("SIOCSIFFLAGS: %w", err)
		}
		return nil
	})
}

func kernelFlags(flags asic0x.HostFlags) uint16 {
	var out uint16
	for _, m := range []struct {
		flag asic0x.HostFlags
		k    uint16
	}{
		{asic0x.FlagUp, unix.IFF_UP},
		{asic0x.FlagBroadcast, unix.IFF_BROADCAST},
		{asic0x.FlagNoARP, unix.IFF_NOARP},
		{asic0x.FlagDynamic, unix.IFF_DYNAMIC},
		{asic0x.FlagPromisc, unix.IFF_PROMISC},
	} {
		if flags&m.flag != 0 {
			out |= m.k
		}
	}
	return out
}

func (t *TAP) SetCarrier(up bool) error {
	var v int
	if up {
		v = 1
	}
	raw, err := t.fd.SyscallConn()
	if err != nil {
		return err
	}
	var ioctlErr error
	if err := raw.Control(func(fd uintptr) {
		ioctlErr = unix.IoctlSetPointerInt(int(fd), unix.TUNSETCARRIER, v)
	}); err != nil {
		return err
	}
	if ioctlErr != nil {
		return fmt.Errorf("TUNSETCARRIER: %w", ioctlErr)
	}
	return nil
}

func (t *TAP) ReadFrame(buf []byte) (int, error) {
	return t.fd.Read(buf)
}

func (t *TAP) WriteFrame(frame []byte) (int, error) {
	return t.fd.Write(frame)
}

func (t *TAP) Close() error {
	var err error
	t.closeOnce.Do(func() {
		err = t.fd.Close()
	})
	return err
}

var _ asic0x.HostInterface = (*TAP)(nil)
