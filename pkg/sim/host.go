package sim

import (
	"io"
	"net"
	"sync"

	"github.com/lourenssteyn/asic0x"
)

// Host is an in-memory asic0x.HostInterface.
type Host struct {
	name string

	tx chan []byte // host stack -> adapter
	rx chan []byte // adapter -> host stack

	mu      sync.Mutex
	addr    net.HardwareAddr
	flags   asic0x.HostFlags
	carrier bool

	closeOnce sync.Once
	closed    chan struct{}
}

func NewHost(name string) *Host {
	return &Host{
		name:   name,
		tx:     make(chan []byte, 64),
		rx:     make(chan []byte, 64),
		closed: make(chan struct{}),
	}
}

func (h *Host) Name() string { return h.name }

func (h *Host) SetHardwareAddr(addr net.HardwareAddr) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.addr = append(net.HardwareAddr(nil), addr...)
	return nil
}

func (h *Host) SetFlags(flags asic0x.HostFlags) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.flags = flags
	return nil
}

func (h *Host) SetCarrier(up bool) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.carrier = up
	return nil
}

// ReadFrame blocks until the host stack transmits a frame.
func (h *Host) ReadFrame(buf []byte) (int, error) {
	select {
	case <-h.closed:
		return 0, io.EOF
	case frame := <-h.tx:
		return copy(buf, frame), nil
	}
}

func (h *Host) WriteFrame(frame []byte) (int, error) {
	select {
	case <-h.closed:
		return 0, io.ErrClosedPipe
	case h.rx <- append([]byte(nil), frame...):
		return len(frame), nil
	}
}

func (h *Host) Close() error {
	h.closeOnce.Do(func() {
		close(h.closed)
	})
	return nil
}

// Transmit queues a frame as if the host stack sent it.
func (h *Host) Transmit(frame []byte) {
	h.tx <- append([]byte(nil), frame...)
}

// Received returns the frames delivered to the host stack.
func (h *Host) Received() <-chan []byte {
	return h.rx
}

func (h *Host) HardwareAddr() net.HardwareAddr {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.addr
}

func (h *Host) Flags() asic0x.HostFlags {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.flags
}

func (h *Host) Carrier() bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.carrier
}
