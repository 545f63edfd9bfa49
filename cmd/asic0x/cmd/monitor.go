package cmd

import (
	"context"
	"fmt"
	"io"
	"log"
	"strconv"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/jroimartin/gocui"
	"github.com/lourenssteyn/asic0x"
	"github.com/lourenssteyn/asic0x/cmd/asic0x/pkg/ui"
	"github.com/lourenssteyn/asic0x/pkg/sim"
	"github.com/spf13/cobra"
)

func init() {
	rootCmd.AddCommand(monitorCmd)
}

// maxLines caps the frame view until it is cleared with 'c'.
const maxLines = 50000

var bufferedLines int64

var filterInput = &ui.Input{
	Name:      "filter",
	Title:     "EtherType filter",
	X:         0,
	Y:         13,
	W:         30,
	MaxLength: 40,
	Accept:    ui.EtherTypeRune,
}

var (
	mu      sync.Mutex
	filters []uint16
)

func inFilters(etherType uint16) bool {
	mu.Lock()
	defer mu.Unlock()
	if len(filters) == 0 {
		return true
	}
	for _, f := range filters {
		if f == etherType {
			return true
		}
	}
	return false
}

// parseEtherTypes parses a comma separated list of ethertypes, hex with a 0x
// prefix or decimal.
func parseEtherTypes(s string) ([]uint16, error) {
	var out []uint16
	for _, p := range strings.Split(s, ",") {
		p = strings.TrimSpace(p)
		if p == "" {
			continue
		}
		v, err := strconv.ParseUint(p, 0, 16)
		if err != nil {
			return nil, fmt.Errorf("invalid ethertype %q", p)
		}
		out = append(out, uint16(v))
	}
	return out, nil
}

var monitorCmd = &cobra.Command{
	Use:   "monitor",
	Short: "bridge like up and show the frames crossing the link",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, cancel := context.WithCancel(cmd.Context())
		defer cancel()
		dev, a, err := bringUp(cmd)
		if err != nil {
			return err
		}
		defer dev.transport.Close()
		defer a.Close()

		host, err := openHost(dev)
		if err != nil {
			return err
		}

		g, err := gocui.NewGui(gocui.OutputNormal)
		if err != nil {
			return err
		}
		defer g.Close()
		g.SetManagerFunc(monitorLayout)
		if err := monitorKeybindings(g); err != nil {
			return err
		}

		// the terminal belongs to gocui from here
		var out io.Writer = &viewWriter{g: g, view: "events"}
		if logFile != nil {
			out = io.MultiWriter(out, logFile)
		}
		log.SetOutput(out)
		defer log.SetOutput(logOutput())

		b := newBridge(dev, a, host)
		b.OnFrame = func(dir asic0x.Direction, eth asic0x.EthernetFrame, radio asic0x.RadioFrame) {
			if atomic.LoadInt64(&bufferedLines) > maxLines || !inFilters(eth.EtherType()) {
				return
			}
			line := fmt.Sprintf(" %s %s %s || %s\n", time.Now().Format("15:04:05.00000"), dir, eth, eth.Describe())
			g.Update(func(g *gocui.Gui) error {
				v, err := g.View("frames")
				if err != nil {
					return err
				}
				fmt.Fprint(v, line)
				atomic.AddInt64(&bufferedLines, 1)
				return nil
			})
		}
		if dev.sim != nil {
			go simTraffic(ctx, dev.sim, host.(*sim.Host), a)
		}
		go updateInfo(ctx, g, a, host.Name())

		errc := make(chan error, 1)
		go func() {
			errc <- b.Run(ctx)
			g.Update(func(*gocui.Gui) error { return gocui.ErrQuit })
		}()

		if err := g.MainLoop(); err != nil && err != gocui.ErrQuit {
			return err
		}
		cancel()
		return <-errc
	},
}

func updateInfo(ctx context.Context, g *gocui.Gui, a asic0x.Adapter, iface string) {
	t := time.NewTicker(250 * time.Millisecond)
	defer t.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-t.C:
		}
		st := a.Stats()
		link := a.Link()
		id, _ := a.Identity()
		g.Update(func(g *gocui.Gui) error {
			v, err := g.View("info")
			if err != nil {
				return err
			}
			v.Clear()
			fmt.Fprintf(v, "iface: %s\n", iface)
			fmt.Fprintf(v, "addr: %s\n", id.HardwareAddr)
			fmt.Fprintf(v, "modem: %s\n", id.Variant)
			fmt.Fprintf(v, "link: %s\n", link)
			fmt.Fprintln(v)
			fmt.Fprintf(v, "rx: %d / %dB\n", st.RxFrames, st.RxBytes)
			fmt.Fprintf(v, "tx: %d / %dB\n", st.TxFrames, st.TxBytes)
			fmt.Fprintf(v, "dropped: %d\n", st.Dropped)
			fmt.Fprintf(v, "signals: %d\n", st.LinkSignals)
			fmt.Fprintf(v, "in buffer: %d\n", atomic.LoadInt64(&bufferedLines))
			return nil
		})
	}
}

// viewWriter appends log output to a gocui view.
type viewWriter struct {
	g    *gocui.Gui
	view string
}

func (w *viewWriter) Write(p []byte) (int, error) {
	line := string(p)
	w.g.Update(func(g *gocui.Gui) error {
		v, err := g.View(w.view)
		if err != nil {
			return err
		}
		fmt.Fprint(v, line)
		return nil
	})
	return len(p), nil
}

func monitorLayout(g *gocui.Gui) error {
	maxX, maxY := g.Size()

	if v, err := g.SetView("info", 0, 0, 30, 12); err != nil {
		if err != gocui.ErrUnknownView {
			return err
		}
		v.Title = "Link"
	}

	if err := filterInput.Layout(g); err != nil {
		return err
	}

	if v, err := g.SetView("help", 0, 16, 30, 22); err != nil {
		if err != gocui.ErrUnknownView {
			return err
		}
		v.Wrap = true
		v.Title = "Help"
		fmt.Fprintln(v, "<Q, Ctrl-C> Quit")
		fmt.Fprintln(v, "<Space> Autoscroll")
		fmt.Fprintln(v, "<C> Clear")
		fmt.Fprintln(v, "<Ctrl-F> Set filter")
	}

	if v, err := g.SetView("events", 0, 23, 30, maxY-1); err != nil {
		if err != gocui.ErrUnknownView {
			return err
		}
		v.Autoscroll = true
		v.Wrap = true
		v.Title = "Events"
	}

	if v, err := g.SetView("frames", 31, 0, maxX-1, maxY-1); err != nil {
		if err != gocui.ErrUnknownView {
			return err
		}
		v.SelFgColor = gocui.ColorCyan
		v.Autoscroll = true
		v.Highlight = true
		v.Title = "Frames"
		if _, err := g.SetCurrentView("frames"); err != nil {
			return err
		}
	}
	return nil
}

func monitorKeybindings(g *gocui.Gui) error {
	quit := func(g *gocui.Gui, v *gocui.View) error {
		return gocui.ErrQuit
	}
	if err := g.SetKeybinding("frames", 'q', gocui.ModNone, quit); err != nil {
		return err
	}
	if err := g.SetKeybinding("", gocui.KeyCtrlC, gocui.ModNone, quit); err != nil {
		return err
	}
	if err := g.SetKeybinding("frames", gocui.KeyCtrlF, gocui.ModNone,
		func(g *gocui.Gui, v *gocui.View) error {
			_, err := g.SetCurrentView("filter")
			return err
		}); err != nil {
		return err
	}
	if err := g.SetKeybinding("filter", gocui.KeyEnter, gocui.ModNone, setFilter); err != nil {
		return err
	}
	if err := g.SetKeybinding("frames", gocui.KeySpace, gocui.ModNone,
		func(g *gocui.Gui, v *gocui.View) error {
			v.Autoscroll = !v.Autoscroll
			return nil
		}); err != nil {
		return err
	}
	if err := g.SetKeybinding("frames", 'c', gocui.ModNone,
		func(g *gocui.Gui, v *gocui.View) error {
			atomic.StoreInt64(&bufferedLines, 0)
			v.Autoscroll = true
			v.Clear()
			v.SetOrigin(0, 0)
			return nil
		}); err != nil {
		return err
	}
	if err := g.SetKeybinding("frames", gocui.KeyArrowUp, gocui.ModNone,
		func(g *gocui.Gui, v *gocui.View) error {
			v.MoveCursor(0, -1, false)
			return nil
		}); err != nil {
		return err
	}
	if err := g.SetKeybinding("frames", gocui.KeyArrowDown, gocui.ModNone,
		func(g *gocui.Gui, v *gocui.View) error {
			v.MoveCursor(0, 1, false)
			return nil
		}); err != nil {
		return err
	}
	return nil
}

func setFilter(g *gocui.Gui, v *gocui.View) error {
	parsed, err := parseEtherTypes(filterInput.Value(g))
	filterInput.SetError(g, err)
	if err != nil {
		return nil
	}
	mu.Lock()
	filters = parsed
	mu.Unlock()
	_, err = g.SetCurrentView("frames")
	return err
}
