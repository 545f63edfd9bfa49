package cmd

import (
	"context"
	"errors"
	"fmt"
	"log"
	"math"
	"path/filepath"
	"strings"
	"time"

	"github.com/avast/retry-go"
	"github.com/fatih/color"
	"github.com/lourenssteyn/asic0x"
	"github.com/lourenssteyn/asic0x/pkg/sim"
	"github.com/lourenssteyn/asic0x/pkg/usbfs"
	"github.com/manifoldco/promptui"
	"github.com/spf13/cobra"
)

type device struct {
	info      *asic0x.AdapterInfo
	transport asic0x.Transport
	usb       usbfs.DeviceInfo
	sim       *sim.Modem
}

func (d *device) String() string {
	if d.sim != nil {
		return "simulated " + d.info.Description
	}
	return d.usb.String()
}

// candidates lists the usb devices some registered adapter can drive.
func candidates() ([]usbfs.DeviceInfo, map[string]*asic0x.AdapterInfo, error) {
	all, err := usbfs.Scan("")
	if err != nil {
		return nil, nil, err
	}
	var out []usbfs.DeviceInfo
	infos := make(map[string]*asic0x.AdapterInfo)
	for _, d := range all {
		if info, ok := asic0x.LookupUSB(d.VendorID, d.ProductID); ok {
			out = append(out, d)
			infos[d.SysfsPath] = info
		}
	}
	return out, infos, nil
}

// matchDevice reports whether sel names d, as bus:dev or sysfs name.
func matchDevice(d usbfs.DeviceInfo, sel string) bool {
	if sel == filepath.Base(d.SysfsPath) {
		return true
	}
	var bus, dev int
	if _, err := fmt.Sscanf(sel, "%d:%d", &bus, &dev); err == nil {
		return bus == int(d.Bus) && dev == int(d.Dev)
	}
	return false
}

func selectDevice(devs []usbfs.DeviceInfo) (usbfs.DeviceInfo, error) {
	items := make([]string, len(devs))
	for i, d := range devs {
		items[i] = d.String()
	}
	prompt := promptui.Select{
		Label: "Select terminal",
		Items: items,
	}
	idx, _, err := prompt.Run()
	if err != nil {
		return usbfs.DeviceInfo{}, fmt.Errorf("prompt failed: %w", err)
	}
	return devs[idx], nil
}

func openDevice(cmd *cobra.Command) (*device, error) {
	if useSim, _ := cmd.Flags().GetBool(flagSim); useSim {
		info, _ := asic0x.LookupUSB(asic0x.ArrayCommVendorID, asic0x.IBurstTerminalPID)
		m := sim.NewModem(sim.OptEcho())
		return &device{info: info, transport: m, sim: m}, nil
	}

	devs, infos, err := candidates()
	if err != nil {
		return nil, err
	}
	sel, _ := cmd.Flags().GetString(flagDevice)
	if sel != "" {
		var matched []usbfs.DeviceInfo
		for _, d := range devs {
			if matchDevice(d, sel) {
				matched = append(matched, d)
			}
		}
		devs = matched
	}

	var usb usbfs.DeviceInfo
	switch len(devs) {
	case 0:
		return nil, errors.New("no iBurst terminal found")
	case 1:
		usb = devs[0]
	default:
		if usb, err = selectDevice(devs); err != nil {
			return nil, err
		}
	}

	t, err := usbfs.Open(usb)
	if err != nil {
		return nil, err
	}
	return &device{info: infos[usb.SysfsPath], transport: t, usb: usb}, nil
}

// bringUp opens the terminal and runs the handshake, retrying failures that
// may go away. Adapter events are logged until ctx is done.
func bringUp(cmd *cobra.Command) (*device, asic0x.Adapter, error) {
	ctx := cmd.Context()
	dev, err := openDevice(cmd)
	if err != nil {
		return nil, nil, err
	}

	ac := cfg.AdapterConfig()
	ac.OnMessage = func(msg string) {
		log.Println(msg)
	}
	a, err := asic0x.NewAdapter(dev.info.Name, ac)
	if err != nil {
		dev.transport.Close()
		return nil, nil, err
	}
	go logEvents(ctx, a)

	log.Printf("bringing up %s", dev)
	start := time.Now()
	err = retry.Do(
		func() error {
			return a.BringUp(ctx, dev.transport)
		},
		retry.Context(ctx),
		retry.Attempts(attempts(cfg.Retries)),
		retry.Delay(500*time.Millisecond),
		retry.MaxDelay(10*time.Second),
		retry.LastErrorOnly(true),
		retry.RetryIf(asic0x.IsRecoverable),
		retry.OnRetry(func(n uint, err error) {
			log.Printf("bring-up attempt %d failed: %v", n+1, err)
		}),
	)
	if err != nil {
		a.Close()
		dev.transport.Close()
		return nil, nil, err
	}
	log.Println("took", time.Since(start).String())
	return dev, a, nil
}

// attempts maps the configured retry count to retry-go's, where 0 would
// skip the call altogether.
func attempts(n uint) uint {
	if n == 0 {
		return math.MaxUint32
	}
	return n
}

var eventHandlers = []asic0x.EventHandler{
	{Type: asic0x.EventTypeError, Handler: func(e asic0x.Event) { log.Println(color.RedString(e.String())) }},
	{Type: asic0x.EventTypeWarning, Handler: func(e asic0x.Event) { log.Println(color.YellowString(e.String())) }},
	{Type: asic0x.EventTypeInfo, Handler: func(e asic0x.Event) { log.Println(e.String()) }},
	{Type: asic0x.EventTypeDebug, Handler: func(e asic0x.Event) { log.Println(color.HiBlackString(e.String())) }},
}

func logEvents(ctx context.Context, a asic0x.Adapter) {
	for {
		select {
		case <-ctx.Done():
			return
		case e := <-a.Event():
			e.Dispatch(eventHandlers...)
		}
	}
}

func identityString(id asic0x.Identity) string {
	return strings.Join([]string{
		color.CyanString("address:") + " " + id.HardwareAddr.String(),
		color.CyanString("variant:") + " " + color.GreenString(id.Variant.String()),
	}, "\n")
}
