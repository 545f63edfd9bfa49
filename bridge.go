package asic0x

import (
	"context"
	"errors"
	"fmt"
	"sync/atomic"
	"time"

	"golang.org/x/sync/errgroup"
)

type Direction int

const (
	Inbound Direction = iota
	Outbound
)

func (d Direction) String() string {
	if d == Inbound {
		return "<i>"
	}
	return "<o>"
}

// HostFlagsDefault are applied to the host interface before traffic starts.
// Decoded unicast frames are addressed to the synthetic partner address, so
// the host interface has to accept frames for a destination other than its own.
const HostFlagsDefault = FlagUp | FlagBroadcast | FlagNoARP | FlagDynamic | FlagPromisc

// Bridge moves frames between a brought up adapter and a host interface.
type Bridge struct {
	Adapter   Adapter
	Transport Transport
	Host      HostInterface
	MTU       int
	// PollTimeout bounds each bulk IN and interrupt wait so cancellation is
	// noticed.
	PollTimeout time.Duration
	// OnFrame, if set, sees every frame that crossed the bridge.
	OnFrame func(dir Direction, eth EthernetFrame, radio RadioFrame)

	carrier atomic.Bool
}

// Run blocks until ctx is cancelled, a transfer fails or the adapter is
// closed, the latter returning ErrClosed. Once traffic has started the host
// interface is closed when Run returns.
func (b *Bridge) Run(ctx context.Context) error {
	id, err := b.Adapter.Identity()
	if err != nil {
		return err
	}
	if b.MTU == 0 {
		b.MTU = DefaultMTU
	}
	if b.PollTimeout == 0 {
		b.PollTimeout = 500 * time.Millisecond
	}
	if err := b.Host.SetHardwareAddr(id.HardwareAddr); err != nil {
		return fmt.Errorf("failed to set hardware address: %w", err)
	}
	if err := b.Host.SetFlags(HostFlagsDefault); err != nil {
		return fmt.Errorf("failed to set interface flags: %w", err)
	}
	if err := b.Host.SetCarrier(b.Adapter.Link() == LinkUp); err != nil {
		return fmt.Errorf("failed to set carrier: %w", err)
	}

	eps := b.Adapter.Endpoints()
	errg, gctx := errgroup.WithContext(ctx)
	errg.Go(b.recvManager(gctx, eps.In))
	errg.Go(b.sendManager(gctx, eps.Out))
	if eps.Status != 0 {
		errg.Go(b.statusManager(gctx, eps.Status))
	}
	errg.Go(func() error {
		var err error
		select {
		case <-gctx.Done():
		case <-b.Adapter.Done():
			err = ErrClosed
		}
		// unblocks sendManager
		if cerr := b.Host.Close(); err == nil {
			err = cerr
		}
		return err
	})

	if err := errg.Wait(); err != nil && !errors.Is(err, context.Canceled) {
		return err
	}
	return nil
}

// radio -> host
func (b *Bridge) recvManager(ctx context.Context, ep uint8) func() error {
	return func() error {
		buf := make([]byte, b.MTU+EthernetHeaderLen)
		for ctx.Err() == nil {
			n, timedOut, err := b.transfer(ctx, func(tctx context.Context) (int, error) {
				return b.Transport.BulkTransfer(tctx, ep, buf)
			})
			if err != nil {
				return fmt.Errorf("bulk in: %w", err)
			}
			if timedOut || n == 0 {
				continue
			}
			frame, ok := b.Adapter.Decode(buf[:n])
			if !ok {
				continue
			}
			if b.OnFrame != nil {
				b.OnFrame(Inbound, frame, RadioFrame(buf[:n]))
			}
			if _, err := b.Host.WriteFrame(frame); err != nil {
				return fmt.Errorf("host write: %w", err)
			}
		}
		return ctx.Err()
	}
}

// host -> radio
func (b *Bridge) sendManager(ctx context.Context, ep uint8) func() error {
	return func() error {
		buf := make([]byte, b.MTU+EthernetHeaderLen)
		for ctx.Err() == nil {
			n, err := b.Host.ReadFrame(buf)
			if err != nil {
				if ctx.Err() != nil {
					return ctx.Err()
				}
				return fmt.Errorf("host read: %w", err)
			}
			if n < EthernetHeaderLen {
				continue
			}
			frame := EthernetFrame(buf[:n])
			out := b.Adapter.Encode(frame)
			if b.OnFrame != nil {
				b.OnFrame(Outbound, frame, out)
			}
			if _, err := b.Transport.BulkTransfer(ctx, ep, out); err != nil {
				if ctx.Err() != nil {
					return ctx.Err()
				}
				return fmt.Errorf("bulk out: %w", err)
			}
		}
		return ctx.Err()
	}
}

// device status -> link state -> host carrier
func (b *Bridge) statusManager(ctx context.Context, ep uint8) func() error {
	return func() error {
		buf := make([]byte, 64)
		for ctx.Err() == nil {
			_, timedOut, err := b.transfer(ctx, func(tctx context.Context) (int, error) {
				return b.Transport.InterruptTransfer(tctx, ep, buf)
			})
			if err != nil {
				return fmt.Errorf("status: %w", err)
			}
			if timedOut {
				continue
			}
			b.Adapter.OnLinkSignal()
			if b.Adapter.Link() == LinkUp && b.carrier.CompareAndSwap(false, true) {
				if err := b.Host.SetCarrier(true); err != nil {
					return fmt.Errorf("failed to set carrier: %w", err)
				}
			}
		}
		return ctx.Err()
	}
}

// transfer runs one polling transfer bounded by PollTimeout.
func (b *Bridge) transfer(ctx context.Context, fn func(context.Context) (int, error)) (n int, timedOut bool, err error) {
	tctx, cancel := context.WithTimeout(ctx, b.PollTimeout)
	defer cancel()
	n, err = fn(tctx)
	if err != nil {
		if ctx.Err() != nil {
			return 0, false, ctx.Err()
		}
		if errors.Is(err, ErrTimeout) || errors.Is(err, context.DeadlineExceeded) {
			return 0, true, nil
		}
		return 0, false, err
	}
	return n, false, nil
}
