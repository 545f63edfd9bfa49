package asic0x_test

import (
	"bytes"
	"context"
	"errors"
	"testing"
	"time"

	"github.com/lourenssteyn/asic0x"
	"github.com/lourenssteyn/asic0x/pkg/sim"
)

func startBridge(t *testing.T, m *sim.Modem) (*sim.Host, asic0x.Adapter, context.CancelFunc, <-chan error) {
	t.Helper()
	a := newTestAdapter(t)
	if err := a.BringUp(context.Background(), m); err != nil {
		t.Fatalf("BringUp() error = %v", err)
	}
	host := sim.NewHost("ib0")
	b := &asic0x.Bridge{
		Adapter:     a,
		Transport:   m,
		Host:        host,
		PollTimeout: 20 * time.Millisecond,
	}
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- b.Run(ctx) }()
	t.Cleanup(cancel)
	return host, a, cancel, done
}

func waitFrame(t *testing.T, ch <-chan []byte) []byte {
	t.Helper()
	select {
	case f := <-ch:
		return f
	case <-time.After(2 * time.Second):
		t.Fatal("timeout waiting for frame")
		return nil
	}
}

func TestBridge(t *testing.T) {
	m := sim.NewModem()
	host, a, cancel, done := startBridge(t, m)

	// host -> radio
	frame := make([]byte, 60)
	copy(frame, asic0x.BroadcastAddr)
	copy(frame[6:], []byte{0x00, 0x02, 0x03, 0x04, 0x05, 0x06})
	frame[12], frame[13] = 0x08, 0x06
	frame[59] = 0x5A
	host.Transmit(frame)

	radio := asic0x.RadioFrame(waitFrame(t, m.Sent()))
	if !radio.Broadcast() || !radio.ChecksumValid() || radio.EtherType() != 0x0806 {
		t.Errorf("sent radio frame %s", radio)
	}
	if !bytes.Equal(radio.Payload(), frame[14:]) {
		t.Errorf("sent payload mismatch")
	}

	// radio -> host
	m.Deliver([]byte{0x00, 0x10, 0x00, 0xEF, 0x08, 0x00, 1, 2, 3, 4, 5, 6, 7, 8})
	eth := asic0x.EthernetFrame(waitFrame(t, host.Received()))
	if eth.Dest().String() != "00:02:03:04:05:07" || eth.Source().String() != "00:02:03:04:05:06" {
		t.Errorf("received %s", eth)
	}
	if eth.EtherType() != 0x0800 || !bytes.Equal(eth.Payload(), []byte{1, 2, 3, 4, 5, 6, 7, 8}) {
		t.Errorf("received %s", eth)
	}

	// short frames are dropped, the bridge keeps running
	m.Deliver([]byte{0x00, 0x01})
	m.Deliver(make([]byte, 20))
	waitFrame(t, host.Received())
	if a.Stats().Dropped != 1 {
		t.Errorf("dropped = %d, want 1", a.Stats().Dropped)
	}

	if host.HardwareAddr().String() != "00:02:03:04:05:06" {
		t.Errorf("host address = %s", host.HardwareAddr())
	}
	if host.Flags() != asic0x.HostFlagsDefault {
		t.Errorf("host flags = %s", host.Flags())
	}

	cancel()
	select {
	case err := <-done:
		if err != nil {
			t.Errorf("Run() error = %v", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("Run() did not return after cancel")
	}
}

func TestBridgeCarrier(t *testing.T) {
	m := sim.NewModem()
	host, a, _, _ := startBridge(t, m)

	time.Sleep(50 * time.Millisecond)
	if host.Carrier() || a.Link() != asic0x.LinkDown {
		t.Fatal("carrier up before status signal")
	}
	m.Signal()
	deadline := time.Now().Add(2 * time.Second)
	for !host.Carrier() {
		if time.Now().After(deadline) {
			t.Fatal("carrier not raised after status signal")
		}
		time.Sleep(5 * time.Millisecond)
	}
	if a.Link() != asic0x.LinkUp {
		t.Errorf("link = %s", a.Link())
	}
}

func TestBridgeAdapterClosed(t *testing.T) {
	m := sim.NewModem()
	host, a, _, done := startBridge(t, m)

	time.Sleep(50 * time.Millisecond)
	a.Close()
	select {
	case err := <-done:
		if !errors.Is(err, asic0x.ErrClosed) {
			t.Errorf("Run() error = %v, want %v", err, asic0x.ErrClosed)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("Run() did not return after adapter Close()")
	}
	if _, err := host.ReadFrame(make([]byte, 64)); err == nil {
		t.Error("host interface still open")
	}
}

func TestBridgeNotReady(t *testing.T) {
	a := newTestAdapter(t)
	b := &asic0x.Bridge{Adapter: a, Transport: sim.NewModem(), Host: sim.NewHost("ib0")}
	if err := b.Run(context.Background()); !errors.Is(err, asic0x.ErrNotReady) {
		t.Errorf("Run() error = %v", err)
	}
}
