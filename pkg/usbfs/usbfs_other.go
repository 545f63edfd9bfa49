//go:build !linux

package usbfs

import (
	"context"
	"errors"
	"time"

	"github.com/lourenssteyn/asic0x"
)

const DefaultTimeout = 5 * time.Second

var ErrNotSupported = errors.New("usbfs is only available on linux")

type Device struct {
	Info      DeviceInfo
	Interface uint8
	Timeout   time.Duration
}

func Open(info DeviceInfo) (*Device, error) {
	return nil, ErrNotSupported
}

func (d *Device) ResetConfiguration(context.Context) error { return ErrNotSupported }

func (d *Device) DiscoverEndpoints(context.Context) (asic0x.Endpoints, error) {
	return asic0x.Endpoints{}, ErrNotSupported
}

func (d *Device) ControlTransfer(context.Context, asic0x.ControlRequest, []byte) (int, error) {
	return 0, ErrNotSupported
}

func (d *Device) BulkTransfer(context.Context, uint8, []byte) (int, error) {
	return 0, ErrNotSupported
}

func (d *Device) InterruptTransfer(context.Context, uint8, []byte) (int, error) {
	return 0, ErrNotSupported
}

func (d *Device) Release() error { return nil }

func (d *Device) Close() error { return nil }
