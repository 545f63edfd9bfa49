//go:build linux

package usbfs

import (
	"context"
	"errors"
	"fmt"
	"runtime"
	"sync"
	"time"
	"unsafe"

	"github.com/lourenssteyn/asic0x"
	"golang.org/x/sys/unix"
)

// DefaultTimeout bounds transfers whose context carries no deadline. usbfs
// transfers are synchronous and cannot be cancelled once submitted.
const DefaultTimeout = 5 * time.Second

const (
	iocNone  = 0
	iocWrite = 1
	iocRead  = 2
)

func ioc(dir, nr, size uintptr) uintptr {
	return dir<<30 | size<<16 | 'U'<<8 | nr
}

// struct usbdevfs_ctrltransfer
type ctrlTransfer struct {
	requestType uint8
	request     uint8
	value       uint16
	index       uint16
	length      uint16
	timeout     uint32
	data        uintptr
}

// struct usbdevfs_bulktransfer
type bulkTransfer struct {
	ep      uint32
	length  uint32
	timeout uint32
	data    uintptr
}

// struct usbdevfs_ioctl
type ifaceIoctl struct {
	ifno int32
	code int32
	data uintptr
}

var (
	usbdevfsControl          = ioc(iocRead|iocWrite, 0, unsafe.Sizeof(ctrlTransfer{}))
	usbdevfsBulk             = ioc(iocRead|iocWrite, 2, unsafe.Sizeof(bulkTransfer{}))
	usbdevfsSetConfiguration = ioc(iocRead, 5, 4)
	usbdevfsClaimInterface   = ioc(iocRead, 15, 4)
	usbdevfsReleaseInterface = ioc(iocRead, 16, 4)
	usbdevfsIoctl            = ioc(iocRead|iocWrite, 18, unsafe.Sizeof(ifaceIoctl{}))
	usbdevfsDisconnect       = ioc(iocNone, 22, 0)
)

// Device is a usb device opened through usbfs. It implements
// asic0x.Transport for a single interface.
type Device struct {
	Info      DeviceInfo
	Interface uint8
	Timeout   time.Duration

	mu      sync.Mutex
	fd      int
	claimed bool
	closed  bool
}

// Open opens the usbfs node of the device. Interface 0 is used.
func Open(info DeviceInfo) (*Device, error) {
	fd, err := unix.Open(info.DevPath(), unix.O_RDWR|unix.O_CLOEXEC, 0)
	if err != nil {
		return nil, fmt.Errorf("failed to open %s: %w", info.DevPath(), err)
	}
	return &Device{
		Info:    info,
		Timeout: DefaultTimeout,
		fd:      fd,
	}, nil
}

func (d *Device) ioctl(req uintptr, arg unsafe.Pointer) (int, error) {
	r, _, errno := unix.Syscall(unix.SYS_IOCTL, uintptr(d.fd), req, uintptr(arg))
	if errno != 0 {
		return int(r), errno
	}
	return int(r), nil
}

// ResetConfiguration detaches any kernel driver from the interface and
// re-selects the active configuration, resetting the device's endpoints.
func (d *Device) ResetConfiguration(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.closed {
		return asic0x.ErrClosed
	}
	if d.claimed {
		if err := d.release(); err != nil {
			return err
		}
	}

	disc := ifaceIoctl{ifno: int32(d.Interface), code: int32(usbdevfsDisconnect)}
	if _, err := d.ioctl(usbdevfsIoctl, unsafe.Pointer(&disc)); err != nil && !errors.Is(err, unix.ENODATA) {
		return fmt.Errorf("failed to detach kernel driver: %w", err)
	}

	cfg := uint32(d.Info.Configuration)
	if cfg == 0 {
		cfg = 1
	}
	if _, err := d.ioctl(usbdevfsSetConfiguration, unsafe.Pointer(&cfg)); err != nil {
		return fmt.Errorf("failed to set configuration %d: %w", cfg, err)
	}
	d.Info.Configuration = uint8(cfg)
	return nil
}

// DiscoverEndpoints reads the endpoint layout from sysfs and claims the
// interface.
func (d *Device) DiscoverEndpoints(ctx context.Context) (asic0x.Endpoints, error) {
	if err := ctx.Err(); err != nil {
		return asic0x.Endpoints{}, err
	}
	eps, err := InterfaceEndpoints(d.Info, d.Interface)
	if err != nil {
		return eps, err
	}
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.closed {
		return eps, asic0x.ErrClosed
	}
	if !d.claimed {
		iface := uint32(d.Interface)
		if _, err := d.ioctl(usbdevfsClaimInterface, unsafe.Pointer(&iface)); err != nil {
			return eps, fmt.Errorf("failed to claim interface %d: %w", iface, err)
		}
		d.claimed = true
	}
	return eps, nil
}

func (d *Device) ControlTransfer(ctx context.Context, req asic0x.ControlRequest, data []byte) (int, error) {
	timeout := d.timeout(ctx)
	if req.Timeout > 0 && req.Timeout < timeout {
		timeout = req.Timeout
	}
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	ctrl := ctrlTransfer{
		requestType: req.RequestType,
		request:     req.Request,
		value:       req.Value,
		index:       req.Index,
		length:      uint16(len(data)),
		timeout:     uint32(timeout.Milliseconds()),
	}
	if len(data) > 0 {
		ctrl.data = uintptr(unsafe.Pointer(&data[0]))
	}
	n, err := d.ioctl(usbdevfsControl, unsafe.Pointer(&ctrl))
	runtime.KeepAlive(data)
	return n, transferError("control", err)
}

func (d *Device) BulkTransfer(ctx context.Context, endpoint uint8, data []byte) (int, error) {
	return d.bulk(ctx, endpoint, data)
}

// InterruptTransfer uses the bulk ioctl, usbfs picks the transfer type from
// the endpoint descriptor.
func (d *Device) InterruptTransfer(ctx context.Context, endpoint uint8, data []byte) (int, error) {
	return d.bulk(ctx, endpoint, data)
}

func (d *Device) bulk(ctx context.Context, endpoint uint8, data []byte) (int, error) {
	timeout := d.timeout(ctx)
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	bulk := bulkTransfer{
		ep:      uint32(endpoint),
		length:  uint32(len(data)),
		timeout: uint32(timeout.Milliseconds()),
	}
	if len(data) > 0 {
		bulk.data = uintptr(unsafe.Pointer(&data[0]))
	}
	n, err := d.ioctl(usbdevfsBulk, unsafe.Pointer(&bulk))
	runtime.KeepAlive(data)
	return n, transferError(fmt.Sprintf("ep 0x%02x", endpoint), err)
}

// timeout derives the transfer timeout from the context deadline.
func (d *Device) timeout(ctx context.Context) time.Duration {
	timeout := d.Timeout
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	if deadline, ok := ctx.Deadline(); ok {
		if left := time.Until(deadline); left < timeout {
			timeout = left
		}
	}
	if timeout < time.Millisecond {
		timeout = time.Millisecond
	}
	return timeout
}

func transferError(what string, err error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, unix.ETIMEDOUT):
		return fmt.Errorf("%s: %w", what, asic0x.ErrTimeout)
	case errors.Is(err, unix.ENODEV):
		return fmt.Errorf("%s: device gone: %w", what, err)
	}
	return fmt.Errorf("%s: %w", what, err)
}

func (d *Device) Release() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.closed || !d.claimed {
		return nil
	}
	return d.release()
}

func (d *Device) release() error {
	iface := uint32(d.Interface)
	if _, err := d.ioctl(usbdevfsReleaseInterface, unsafe.Pointer(&iface)); err != nil {
		return fmt.Errorf("failed to release interface %d: %w", iface, err)
	}
	d.claimed = false
	return nil
}

func (d *Device) Close() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.closed {
		return nil
	}
	var relErr error
	if d.claimed {
		relErr = d.release()
	}
	d.closed = true
	if err := unix.Close(d.fd); err != nil {
		return err
	}
	return relErr
}
