package asic0x

import "sync/atomic"

type LinkState int32

const (
	LinkDown LinkState = iota
	LinkUp
)

func (s LinkState) String() string {
	if s == LinkUp {
		return "up"
	}
	return "down"
}

// linkState is safe for concurrent use; readers may poll it at any time.
type linkState struct {
	v atomic.Int32
}

func (l *linkState) Load() LinkState {
	return LinkState(l.v.Load())
}

// up marks the link up and reports whether this was a transition.
func (l *linkState) up() bool {
	return l.v.Swap(int32(LinkUp)) != int32(LinkUp)
}

func (l *linkState) reset() {
	l.v.Store(int32(LinkDown))
}
