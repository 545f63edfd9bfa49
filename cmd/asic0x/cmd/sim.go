package cmd

import (
	"context"
	"encoding/binary"
	"time"

	"github.com/lourenssteyn/asic0x"
	"github.com/lourenssteyn/asic0x/pkg/sim"
)

// simTraffic plays the host stack and the radio peer for --sim: the link
// comes up after a second and a broadcast beacon is sent every second. The
// modem echoes it back.
func simTraffic(ctx context.Context, m *sim.Modem, h *sim.Host, a asic0x.Adapter) {
	id, err := a.Identity()
	if err != nil {
		return
	}
	beacon := make([]byte, 60)
	copy(beacon, asic0x.BroadcastAddr)
	copy(beacon[6:], id.HardwareAddr)
	binary.BigEndian.PutUint16(beacon[12:], 0x88b5) // local experimental
	t := time.NewTicker(time.Second)
	defer t.Stop()
	var seq uint32
	for {
		select {
		case <-ctx.Done():
			return
		case <-m.Sent():
		case <-h.Received():
		case <-t.C:
			if seq == 0 {
				m.Signal()
			}
			seq++
			binary.BigEndian.PutUint32(beacon[14:], seq)
			h.Transmit(beacon)
		}
	}
}
