package asic0x

import (
	"context"
	"fmt"
	"net"
)

// ModemVariant is the device sub-type reported in the identity response.
type ModemVariant byte

const (
	UT02ASIC01Modem ModemVariant = 0x63
	UT04ASIC02Modem ModemVariant = 0x4d
)

func (m ModemVariant) String() string {
	switch m {
	case UT02ASIC01Modem:
		return "UT02_ASIC01_MODEM"
	case UT04ASIC02Modem:
		return "UT04_ASIC02_MODEM"
	default:
		return fmt.Sprintf("UNKNOWN_MODEM_%02X", byte(m))
	}
}

// identityLen is the size of the vendor setup response:
// reserved, variant, hardware address[6].
const identityLen = 8

// Identity is what the device reported about itself during bring-up.
type Identity struct {
	HardwareAddr net.HardwareAddr
	Variant      ModemVariant
}

func (id Identity) String() string {
	return fmt.Sprintf("%s (%s)", id.HardwareAddr, id.Variant)
}

// Clone returns a copy that does not share the address backing array.
func (id Identity) Clone() Identity {
	return Identity{
		HardwareAddr: append(net.HardwareAddr(nil), id.HardwareAddr...),
		Variant:      id.Variant,
	}
}

// ParseIdentity validates an identity response against the accepted variants
// and normalizes the hardware address to a unicast address.
func ParseIdentity(resp []byte, accepted []ModemVariant) (Identity, error) {
	if len(resp) != identityLen {
		return Identity{}, fmt.Errorf("%w: got %d bytes, want %d", ErrSetupRead, len(resp), identityLen)
	}
	variant := ModemVariant(resp[1])
	if !variantAccepted(variant, accepted) {
		return Identity{}, &ModemTypeError{Code: resp[1]}
	}
	addr := make(net.HardwareAddr, 6)
	copy(addr, resp[2:8])
	addr[0] &^= 0x01
	return Identity{HardwareAddr: addr, Variant: variant}, nil
}

func variantAccepted(v ModemVariant, accepted []ModemVariant) bool {
	for _, a := range accepted {
		if a == v {
			return true
		}
	}
	return false
}

// Handshake brings the device from reset to ready for frame exchange. Every
// step runs once; the first failure aborts and the claimed interface is
// released.
func Handshake(ctx context.Context, t Transport, cfg *AdapterConfig) (Identity, Endpoints, error) {
	if t == nil {
		return Identity{}, Endpoints{}, ErrNilTransport
	}
	if cfg == nil {
		cfg = DefaultAdapterConfig()
	}
	id, eps, err := handshake(ctx, t, cfg)
	if err != nil {
		if rerr := t.Release(); rerr != nil && cfg.OnMessage != nil {
			cfg.OnMessage(fmt.Sprintf("failed to release interface: %v", rerr))
		}
		return Identity{}, Endpoints{}, err
	}
	return id, eps, nil
}

func handshake(ctx context.Context, t Transport, cfg *AdapterConfig) (Identity, Endpoints, error) {
	if err := t.ResetConfiguration(ctx); err != nil {
		return fail(StepReset, fmt.Errorf("%w: %v", ErrResetFailed, err))
	}

	eps, err := t.DiscoverEndpoints(ctx)
	if err != nil {
		return fail(StepEndpoints, fmt.Errorf("%w: %v", ErrEndpointDiscovery, err))
	}

	resp := make([]byte, identityLen)
	n, err := t.ControlTransfer(ctx, ControlRequest{
		RequestType: RequestDirIn | RequestTypeVendor | RequestRecipDevice,
		Request:     cfg.SetupRequest,
		Timeout:     cfg.ControlTimeout,
	}, resp)
	if err != nil {
		return fail(StepIdentity, fmt.Errorf("%w: %v", ErrSetupRead, err))
	}
	if n != identityLen {
		return fail(StepIdentity, fmt.Errorf("%w: got %d bytes, want %d", ErrSetupRead, n, identityLen))
	}

	id, err := ParseIdentity(resp, cfg.ModemVariants)
	if err != nil {
		return fail(StepModemType, Unrecoverable(err))
	}

	tctx, cancel := context.WithTimeout(ctx, cfg.BulkTimeout)
	defer cancel()
	payload := append([]byte(nil), cfg.ConfigPayload...)
	n, err = t.BulkTransfer(tctx, eps.Out, payload)
	if err != nil {
		return fail(StepConfigure, fmt.Errorf("%w: %v", ErrConfigSend, err))
	}
	if n < len(payload) {
		return fail(StepConfigure, fmt.Errorf("%w, count = %d", ErrIncompleteConfig, n))
	}
	return id, eps, nil
}

func fail(step Step, err error) (Identity, Endpoints, error) {
	return Identity{}, Endpoints{}, &HandshakeError{Step: step, Err: err}
}
