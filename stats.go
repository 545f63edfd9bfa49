package asic0x

import (
	"fmt"
	"sync/atomic"
)

type Stats struct {
	RxFrames    uint64
	RxBytes     uint64
	TxFrames    uint64
	TxBytes     uint64
	Dropped     uint64
	LinkSignals uint64
}

func (st Stats) String() string {
	return fmt.Sprintf("rx: %d (%d bytes) tx: %d (%d bytes) dropped: %d link signals: %d",
		st.RxFrames, st.RxBytes, st.TxFrames, st.TxBytes, st.Dropped, st.LinkSignals)
}

type counters struct {
	rxFrames, rxBytes   atomic.Uint64
	txFrames, txBytes   atomic.Uint64
	dropped, linkSignal atomic.Uint64
}

func (c *counters) snapshot() Stats {
	return Stats{
		RxFrames:    c.rxFrames.Load(),
		RxBytes:     c.rxBytes.Load(),
		TxFrames:    c.txFrames.Load(),
		TxBytes:     c.txBytes.Load(),
		Dropped:     c.dropped.Load(),
		LinkSignals: c.linkSignal.Load(),
	}
}
