package asic0x

import (
	"context"
	"errors"
	"fmt"
	"time"
)

// ErrTimeout is returned, possibly wrapped, by transports when a transfer
// timed out without moving data.
var ErrTimeout = errors.New("transfer timeout")

// bmRequestType bits.
const (
	RequestDirIn       = 0x80
	RequestTypeVendor  = 0x40
	RequestRecipDevice = 0x00
)

// ControlRequest is the setup stage of a control transfer. The data stage
// length is the length of the buffer handed to ControlTransfer.
type ControlRequest struct {
	RequestType uint8
	Request     uint8
	Value       uint16
	Index       uint16
	Timeout     time.Duration
}

// Endpoints are the pipes resolved during bring-up.
type Endpoints struct {
	In     uint8 // bulk IN
	Out    uint8 // bulk OUT
	Status uint8 // interrupt IN, 0 if the device has none
}

func (e Endpoints) String() string {
	return fmt.Sprintf("in: 0x%02X out: 0x%02X status: 0x%02X", e.In, e.Out, e.Status)
}

// Transport is the USB side of the adapter. Implementations own endpoint
// enumeration, transfer scheduling and timeouts.
type Transport interface {
	ResetConfiguration(ctx context.Context) error
	DiscoverEndpoints(ctx context.Context) (Endpoints, error)
	ControlTransfer(ctx context.Context, req ControlRequest, data []byte) (int, error)
	BulkTransfer(ctx context.Context, endpoint uint8, data []byte) (int, error)
	InterruptTransfer(ctx context.Context, endpoint uint8, data []byte) (int, error)
	// Release gives back any interface claimed during bring-up.
	Release() error
	Close() error
}
