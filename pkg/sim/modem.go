// Package sim provides an in-memory iBurst terminal and host interface, used
// by the tests and by the --sim flag of the command line tool.
package sim

import (
	"context"
	"errors"
	"fmt"
	"net"
	"sync"

	"github.com/lourenssteyn/asic0x"
)

const (
	EndpointIn     = 0x81
	EndpointOut    = 0x02
	EndpointStatus = 0x83
)

var ErrInjected = errors.New("injected failure")

type Option func(m *Modem)

// OptVariant sets the variant code the modem reports.
func OptVariant(code byte) Option {
	return func(m *Modem) {
		m.variant = code
	}
}

// OptAddr sets the hardware address the modem reports, unnormalized.
func OptAddr(addr net.HardwareAddr) Option {
	return func(m *Modem) {
		m.addr = append(net.HardwareAddr(nil), addr...)
	}
}

// OptFail makes the given bring-up step fail with ErrInjected.
func OptFail(step asic0x.Step) Option {
	return func(m *Modem) {
		m.fail[step] = true
	}
}

// OptShortIdentity makes the identity query return only n bytes.
func OptShortIdentity(n int) Option {
	return func(m *Modem) {
		m.identityLen = n
	}
}

// OptShortConfig makes the modem accept only n bytes of the configuration.
func OptShortConfig(n int) Option {
	return func(m *Modem) {
		m.configLen = n
	}
}

// OptNoStatus removes the interrupt endpoint.
func OptNoStatus() Option {
	return func(m *Modem) {
		m.noStatus = true
	}
}

// OptEcho makes every transmitted frame come back on the bulk IN pipe, as if
// the peer reflected it.
func OptEcho() Option {
	return func(m *Modem) {
		m.echo = true
	}
}

// Modem is a simulated terminal implementing asic0x.Transport.
type Modem struct {
	variant     byte
	addr        net.HardwareAddr
	fail        map[asic0x.Step]bool
	identityLen int
	configLen   int
	noStatus    bool
	echo        bool

	inbound  chan []byte
	outbound chan []byte
	status   chan struct{}

	mu         sync.Mutex
	resets     int
	released   int
	configured []byte
	closed     bool
}

func NewModem(opts ...Option) *Modem {
	m := &Modem{
		variant:     byte(asic0x.UT02ASIC01Modem),
		addr:        net.HardwareAddr{0x01, 0x02, 0x03, 0x04, 0x05, 0x06},
		fail:        make(map[asic0x.Step]bool),
		identityLen: 8,
		configLen:   -1,
		inbound:     make(chan []byte, 64),
		outbound:    make(chan []byte, 64),
		status:      make(chan struct{}, 8),
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

func (m *Modem) ResetConfiguration(ctx context.Context) error {
	if m.fail[asic0x.StepReset] {
		return ErrInjected
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.resets++
	m.configured = nil
	return nil
}

func (m *Modem) DiscoverEndpoints(ctx context.Context) (asic0x.Endpoints, error) {
	if m.fail[asic0x.StepEndpoints] {
		return asic0x.Endpoints{}, ErrInjected
	}
	eps := asic0x.Endpoints{In: EndpointIn, Out: EndpointOut, Status: EndpointStatus}
	if m.noStatus {
		eps.Status = 0
	}
	return eps, nil
}

func (m *Modem) ControlTransfer(ctx context.Context, req asic0x.ControlRequest, data []byte) (int, error) {
	if m.fail[asic0x.StepIdentity] {
		return 0, ErrInjected
	}
	if req.RequestType != asic0x.RequestDirIn|asic0x.RequestTypeVendor|asic0x.RequestRecipDevice {
		return 0, fmt.Errorf("unexpected request type 0x%02X", req.RequestType)
	}
	if req.Request != asic0x.VendorSetupRequest {
		return 0, fmt.Errorf("unexpected request 0x%02X", req.Request)
	}
	resp := make([]byte, 8)
	resp[1] = m.variant
	copy(resp[2:], m.addr)
	return copy(data, resp[:min(m.identityLen, len(resp))]), nil
}

func (m *Modem) BulkTransfer(ctx context.Context, endpoint uint8, data []byte) (int, error) {
	switch endpoint {
	case EndpointOut:
		return m.bulkOut(ctx, data)
	case EndpointIn:
		select {
		case <-ctx.Done():
			return 0, ctx.Err()
		case frame := <-m.inbound:
			return copy(data, frame), nil
		}
	default:
		return 0, fmt.Errorf("unknown endpoint 0x%02X", endpoint)
	}
}

func (m *Modem) bulkOut(ctx context.Context, data []byte) (int, error) {
	m.mu.Lock()
	configured := m.configured != nil
	m.mu.Unlock()
	if !configured {
		if m.fail[asic0x.StepConfigure] {
			return 0, ErrInjected
		}
		n := len(data)
		if m.configLen >= 0 && m.configLen < n {
			n = m.configLen
		}
		m.mu.Lock()
		m.configured = append([]byte{}, data[:n]...)
		m.mu.Unlock()
		return n, nil
	}
	frame := append([]byte(nil), data...)
	select {
	case m.outbound <- frame:
	case <-ctx.Done():
		return 0, ctx.Err()
	}
	if m.echo {
		select {
		case m.inbound <- frame:
		default:
		}
	}
	return len(data), nil
}

func (m *Modem) InterruptTransfer(ctx context.Context, endpoint uint8, data []byte) (int, error) {
	if endpoint != EndpointStatus || m.noStatus {
		return 0, fmt.Errorf("unknown endpoint 0x%02X", endpoint)
	}
	select {
	case <-ctx.Done():
		return 0, ctx.Err()
	case <-m.status:
		return 0, nil
	}
}

func (m *Modem) Release() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.released++
	return nil
}

func (m *Modem) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.closed = true
	return nil
}

// Deliver queues a radio frame for the bulk IN pipe.
func (m *Modem) Deliver(frame []byte) {
	m.inbound <- append([]byte(nil), frame...)
}

// Sent returns the radio frames written to the bulk OUT pipe after the
// configuration push.
func (m *Modem) Sent() <-chan []byte {
	return m.outbound
}

// Signal raises the status interrupt.
func (m *Modem) Signal() {
	select {
	case m.status <- struct{}{}:
	default:
	}
}

// Configuration returns the configuration payload received, nil if none.
func (m *Modem) Configuration() []byte {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]byte(nil), m.configured...)
}

func (m *Modem) Resets() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.resets
}

func (m *Modem) Released() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.released
}
