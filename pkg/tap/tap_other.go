//go:build !linux

// Package tap presents the adapter to the host network stack as a Linux TAP
// device.
package tap

import (
	"errors"
	"net"

	"github.com/lourenssteyn/asic0x"
)

const DefaultName = "ib%d"

var ErrNotSupported = errors.New("tap devices are only available on linux")

type TAP struct{}

func Open(name string, mtu int) (*TAP, error) {
	return nil, ErrNotSupported
}

func (t *TAP) Name() string                           { return "" }
func (t *TAP) MTU() int                               { return 0 }
func (t *TAP) SetHardwareAddr(net.HardwareAddr) error { return ErrNotSupported }
func (t *TAP) SetFlags(asic0x.HostFlags) error        { return ErrNotSupported }
func (t *TAP) SetCarrier(bool) error                  { return ErrNotSupported }
func (t *TAP) ReadFrame([]byte) (int, error)          { return 0, ErrNotSupported }
func (t *TAP) WriteFrame([]byte) (int, error)         { return 0, ErrNotSupported }
func (t *TAP) Close() error                           { return nil }
