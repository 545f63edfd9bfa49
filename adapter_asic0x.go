package asic0x

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
)

const (
	ArrayCommVendorID = 0x0482
	IBurstTerminalPID = 0x0204
	ASIC0xAdapterName = "ASIC0x"
	asic0xDescription = "iBurst Terminal"
)

func init() {
	if err := RegisterAdapter(&AdapterInfo{
		Name:        ASIC0xAdapterName,
		Description: asic0xDescription,
		VendorID:    ArrayCommVendorID,
		ProductID:   IBurstTerminalPID,
		New:         NewASIC0x,
	}); err != nil {
		panic(err)
	}
}

// ASIC0x drives the ArrayComm ASIC01/ASIC02 iBurst terminals.
type ASIC0x struct {
	*BaseAdapter

	bringingUp atomic.Bool

	mu        sync.RWMutex
	identity  Identity
	endpoints Endpoints
	ready     bool
}

func NewASIC0x(cfg *AdapterConfig) (Adapter, error) {
	if cfg == nil {
		cfg = DefaultAdapterConfig()
	}
	cfg.fillDefaults()
	return &ASIC0x{
		BaseAdapter: NewBaseAdapter(ASIC0xAdapterName, cfg),
	}, nil
}

func (a *ASIC0x) BringUp(ctx context.Context, t Transport) error {
	if !a.bringingUp.CompareAndSwap(false, true) {
		return ErrBringUpInProgress
	}
	defer a.bringingUp.Store(false)

	select {
	case <-a.closeChan:
		return ErrClosed
	default:
	}

	a.mu.Lock()
	a.ready = false
	a.identity = Identity{}
	a.mu.Unlock()

	id, eps, err := Handshake(ctx, t, a.cfg)
	if err != nil {
		// a recoverable failure is worth another attempt
		if IsRecoverable(err) {
			a.Warn(err.Error())
		} else {
			a.Error(err)
		}
		return err
	}
	a.Info(fmt.Sprintf("%s type detected.", id.Variant))

	a.mu.Lock()
	a.identity = id
	a.endpoints = eps
	a.ready = true
	a.mu.Unlock()

	a.Debug(fmt.Sprintf("bring-up done, address %s, %s", id.HardwareAddr, eps))
	return nil
}

func (a *ASIC0x) Identity() (Identity, error) {
	a.mu.RLock()
	defer a.mu.RUnlock()
	if !a.ready {
		return Identity{}, ErrNotReady
	}
	return a.identity.Clone(), nil
}

func (a *ASIC0x) Endpoints() Endpoints {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return a.endpoints
}

func (a *ASIC0x) localAddr() ([]byte, bool) {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return a.identity.HardwareAddr, a.ready
}

func (a *ASIC0x) Decode(buf []byte) (EthernetFrame, bool) {
	local, ready := a.localAddr()
	if !ready {
		a.stats.dropped.Add(1)
		return nil, false
	}
	frame, ok := DecodeInbound(buf, local)
	if !ok {
		a.stats.dropped.Add(1)
		a.Debug(fmt.Sprintf("dropped short frame, %d bytes", len(buf)))
		return nil, false
	}
	a.stats.rxFrames.Add(1)
	a.stats.rxBytes.Add(uint64(len(buf)))
	if a.cfg.Debug {
		a.cfg.OnMessage("<< " + frame.String())
	}
	return frame, true
}

func (a *ASIC0x) Encode(frame EthernetFrame) RadioFrame {
	out := EncodeOutbound(frame)
	a.stats.txFrames.Add(1)
	a.stats.txBytes.Add(uint64(len(out)))
	if a.cfg.Debug {
		a.cfg.OnMessage(">> " + out.String())
	}
	return out
}

// OnLinkSignal marks the link up. The signal carries no status payload.
func (a *ASIC0x) OnLinkSignal() {
	a.stats.linkSignal.Add(1)
	if a.link.up() {
		a.Info("link up")
	}
}

func (a *ASIC0x) Close() error {
	a.BaseAdapter.Close()
	a.mu.Lock()
	a.ready = false
	a.mu.Unlock()
	return nil
}
