package asic0x

import (
	"context"
	"fmt"
	"log"
	"path/filepath"
	"runtime"
	"sort"
	"strings"
	"time"
)

// Adapter is a radio modem presented as an Ethernet link.
type Adapter interface {
	Name() string
	// BringUp runs the device handshake. The codec may only be used after it
	// returned nil.
	BringUp(context.Context, Transport) error
	// Decode converts a received radio frame, ok is false if it was dropped.
	Decode([]byte) (frame EthernetFrame, ok bool)
	// Encode converts an outgoing Ethernet frame of at least 14 bytes.
	Encode(EthernetFrame) RadioFrame
	// OnLinkSignal is called for every device status signal.
	OnLinkSignal()
	Identity() (Identity, error)
	Endpoints() Endpoints
	Link() LinkState
	Stats() Stats
	Event() <-chan Event
	// Done is closed once the adapter is closed.
	Done() <-chan struct{}
	Close() error
}

type AdapterInfo struct {
	Name        string
	Description string
	VendorID    uint16
	ProductID   uint16
	New         func(*AdapterConfig) (Adapter, error)
}

func (a *AdapterInfo) String() string {
	return fmt.Sprintf("%s | %s, usb id: %04x:%04x", a.Name, a.Description, a.VendorID, a.ProductID)
}

type AdapterConfig struct {
	Debug     bool
	OnMessage func(string)

	// SetupRequest is the vendor request code of the identity query.
	SetupRequest uint8
	// ControlTimeout bounds the identity query.
	ControlTimeout time.Duration
	// BulkTimeout bounds the configuration push.
	BulkTimeout time.Duration
	// ModemVariants lists the accepted identity variant codes.
	ModemVariants []ModemVariant
	// ConfigPayload is pushed to the bulk OUT endpoint once per bring-up.
	ConfigPayload []byte
	// MTU sizes the bridge buffers.
	MTU int
}

const (
	VendorSetupRequest    = 0x63
	DefaultControlTimeout = 5 * time.Second
	DefaultBulkTimeout    = 5 * time.Second
	DefaultMTU            = 1500
)

// DefaultConfigPayload is the link configuration every known terminal expects.
var DefaultConfigPayload = []byte{0x00, 0x08, 0x00, 0xf7, 0xac, 0x03, 0x00, 0x02}

func DefaultAdapterConfig() *AdapterConfig {
	return &AdapterConfig{
		SetupRequest:   VendorSetupRequest,
		ControlTimeout: DefaultControlTimeout,
		BulkTimeout:    DefaultBulkTimeout,
		ModemVariants:  []ModemVariant{UT02ASIC01Modem, UT04ASIC02Modem},
		ConfigPayload:  append([]byte(nil), DefaultConfigPayload...),
		MTU:            DefaultMTU,
	}
}

// fillDefaults sets every zero valued field to its default.
func (cfg *AdapterConfig) fillDefaults() {
	def := DefaultAdapterConfig()
	if cfg.OnMessage == nil {
		cfg.OnMessage = func(msg string) {
			_, file, no, ok := runtime.Caller(1)
			if ok {
				log.Printf("%s#%d %v\n", filepath.Base(file), no, msg)
			} else {
				log.Println(msg)
			}
		}
	}
	if cfg.SetupRequest == 0 {
		cfg.SetupRequest = def.SetupRequest
	}
	if cfg.ControlTimeout == 0 {
		cfg.ControlTimeout = def.ControlTimeout
	}
	if cfg.BulkTimeout == 0 {
		cfg.BulkTimeout = def.BulkTimeout
	}
	if len(cfg.ModemVariants) == 0 {
		cfg.ModemVariants = def.ModemVariants
	}
	if len(cfg.ConfigPayload) == 0 {
		cfg.ConfigPayload = def.ConfigPayload
	}
	if cfg.MTU == 0 {
		cfg.MTU = def.MTU
	}
}

var adapterMap = make(map[string]*AdapterInfo)

func NewAdapter(adapterName string, cfg *AdapterConfig) (Adapter, error) {
	if cfg == nil {
		cfg = DefaultAdapterConfig()
	}
	cfg.fillDefaults()
	if adapter, found := adapterMap[adapterName]; found {
		return adapter.New(cfg)
	}
	return nil, fmt.Errorf("unknown adapter %q", adapterName)
}

func RegisterAdapter(adapter *AdapterInfo) error {
	if _, found := adapterMap[adapter.Name]; !found {
		adapterMap[adapter.Name] = adapter
		return nil
	}
	return fmt.Errorf("adapter %s already registered", adapter.Name)
}

// LookupUSB returns the adapter registered for a USB vendor/product pair.
func LookupUSB(vid, pid uint16) (*AdapterInfo, bool) {
	for _, a := range adapterMap {
		if a.VendorID == vid && a.ProductID == pid {
			return a, true
		}
	}
	return nil, false
}

func ListAdapterNames() []string {
	var out []string
	for name := range adapterMap {
		out = append(out, name)
	}
	sort.Slice(out, func(i, j int) bool { return strings.ToLower(out[i]) < strings.ToLower(out[j]) })
	return out
}

func ListAdapters() []AdapterInfo {
	var out []AdapterInfo
	for _, adapter := range adapterMap {
		out = append(out, *adapter)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}
