package asic0x_test

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"

	"github.com/lourenssteyn/asic0x"
	"github.com/lourenssteyn/asic0x/pkg/sim"
)

func newTestAdapter(t *testing.T) asic0x.Adapter {
	t.Helper()
	a, err := asic0x.NewAdapter(asic0x.ASIC0xAdapterName, asic0x.DefaultAdapterConfig())
	if err != nil {
		t.Fatalf("NewAdapter() error = %v", err)
	}
	t.Cleanup(func() { a.Close() })
	return a
}

func TestRegistry(t *testing.T) {
	info, ok := asic0x.LookupUSB(0x0482, 0x0204)
	if !ok {
		t.Fatal("LookupUSB(0482:0204) not found")
	}
	if info.Name != asic0x.ASIC0xAdapterName || info.Description != "iBurst Terminal" {
		t.Errorf("LookupUSB() = %s", info)
	}
	if _, ok := asic0x.LookupUSB(0x0482, 0x0205); ok {
		t.Error("LookupUSB(0482:0205) found")
	}
	if _, err := asic0x.NewAdapter("nope", nil); err == nil {
		t.Error("NewAdapter(nope) succeeded")
	}
	if err := asic0x.RegisterAdapter(info); err == nil {
		t.Error("RegisterAdapter() accepted a duplicate")
	}
	names := asic0x.ListAdapterNames()
	if len(names) == 0 || names[0] != asic0x.ASIC0xAdapterName {
		t.Errorf("ListAdapterNames() = %v", names)
	}
}

func TestBringUp(t *testing.T) {
	a := newTestAdapter(t)
	if _, err := a.Identity(); !errors.Is(err, asic0x.ErrNotReady) {
		t.Fatalf("Identity() before bring-up error = %v", err)
	}
	if _, ok := a.Decode(make([]byte, 64)); ok {
		t.Error("Decode() before bring-up produced a frame")
	}

	if err := a.BringUp(context.Background(), sim.NewModem(sim.OptVariant(0x4D))); err != nil {
		t.Fatalf("BringUp() error = %v", err)
	}
	id, err := a.Identity()
	if err != nil {
		t.Fatalf("Identity() error = %v", err)
	}
	if id.Variant != asic0x.UT04ASIC02Modem || id.HardwareAddr.String() != "00:02:03:04:05:06" {
		t.Errorf("Identity() = %s", id)
	}

	var detected bool
	for len(a.Event()) > 0 {
		if ev := <-a.Event(); strings.Contains(ev.Details, "UT04_ASIC02_MODEM type detected") {
			detected = true
		}
	}
	if !detected {
		t.Error("no variant detected event")
	}

	id.HardwareAddr[0] = 0xFF
	if again, _ := a.Identity(); again.HardwareAddr[0] == 0xFF {
		t.Error("Identity() shares the address with the adapter")
	}
}

func TestBringUpFailureLeavesAdapterUnusable(t *testing.T) {
	a := newTestAdapter(t)
	if err := a.BringUp(context.Background(), sim.NewModem()); err != nil {
		t.Fatal(err)
	}
	err := a.BringUp(context.Background(), sim.NewModem(sim.OptVariant(0x00)))
	if !errors.Is(err, asic0x.ErrInvalidModemType) {
		t.Fatalf("BringUp() error = %v", err)
	}
	if _, err := a.Identity(); !errors.Is(err, asic0x.ErrNotReady) {
		t.Errorf("Identity() after failed bring-up error = %v", err)
	}
	ev := <-a.Event()
	for ev.Type != asic0x.EventTypeError && len(a.Event()) > 0 {
		ev = <-a.Event()
	}
	if ev.Type != asic0x.EventTypeError || !strings.Contains(ev.Details, "invalid modem type 00") {
		t.Errorf("last event = %s", ev)
	}
}

func TestBringUpRecoverableFailureWarns(t *testing.T) {
	a := newTestAdapter(t)
	err := a.BringUp(context.Background(), sim.NewModem(sim.OptFail(asic0x.StepIdentity)))
	if !errors.Is(err, asic0x.ErrSetupRead) {
		t.Fatalf("BringUp() error = %v", err)
	}
	var warned bool
	for len(a.Event()) > 0 {
		ev := <-a.Event()
		if ev.Type == asic0x.EventTypeError {
			t.Errorf("unexpected error event %s", ev)
		}
		if ev.Type == asic0x.EventTypeWarning && strings.Contains(ev.Details, "identity") {
			warned = true
		}
	}
	if !warned {
		t.Error("no warning event for a recoverable failure")
	}
}

func TestDecodeShortFrameNoEvent(t *testing.T) {
	a := newTestAdapter(t)
	if err := a.BringUp(context.Background(), sim.NewModem()); err != nil {
		t.Fatal(err)
	}
	for len(a.Event()) > 0 {
		<-a.Event()
	}
	for i := 0; i < 200; i++ {
		if _, ok := a.Decode([]byte{0x00, 0x01}); ok {
			t.Fatal("short frame decoded")
		}
	}
	if n := len(a.Event()); n != 0 {
		t.Errorf("%d events for dropped frames, want 0", n)
	}
	if got := a.Stats().Dropped; got != 200 {
		t.Errorf("dropped = %d, want 200", got)
	}
}

func TestBringUpAfterClose(t *testing.T) {
	a := newTestAdapter(t)
	a.Close()
	if err := a.BringUp(context.Background(), sim.NewModem()); !errors.Is(err, asic0x.ErrClosed) {
		t.Errorf("BringUp() after Close() error = %v", err)
	}
}

func TestOnLinkSignal(t *testing.T) {
	a := newTestAdapter(t)
	if a.Link() != asic0x.LinkDown {
		t.Fatalf("initial link = %s", a.Link())
	}

	var wg sync.WaitGroup
	for i := 0; i < 16; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			a.OnLinkSignal()
			_ = a.Link()
		}()
	}
	wg.Wait()

	if a.Link() != asic0x.LinkUp {
		t.Errorf("link = %s, want up", a.Link())
	}
	if got := a.Stats().LinkSignals; got != 16 {
		t.Errorf("link signals = %d, want 16", got)
	}
	var ups int
	for len(a.Event()) > 0 {
		if ev := <-a.Event(); ev.Details == "link up" {
			ups++
		}
	}
	if ups != 1 {
		t.Errorf("link up events = %d, want 1", ups)
	}

	a.Close()
	if a.Link() != asic0x.LinkDown {
		t.Errorf("link after Close() = %s", a.Link())
	}
}

func TestAdapterStats(t *testing.T) {
	a := newTestAdapter(t)
	if err := a.BringUp(context.Background(), sim.NewModem()); err != nil {
		t.Fatal(err)
	}
	a.Decode(make([]byte, 3))
	a.Decode(make([]byte, 20))
	a.Encode(make(asic0x.EthernetFrame, 60))

	st := a.Stats()
	if st.Dropped != 1 || st.RxFrames != 1 || st.RxBytes != 20 || st.TxFrames != 1 || st.TxBytes != 52 {
		t.Errorf("Stats() = %s", st)
	}
}
