package cmd

import (
	"fmt"
	"log"

	"github.com/lourenssteyn/asic0x"
	"github.com/lourenssteyn/asic0x/pkg/bar"
	"github.com/lourenssteyn/asic0x/pkg/sim"
	"github.com/lourenssteyn/asic0x/pkg/tap"
	"github.com/spf13/cobra"
)

func init() {
	rootCmd.AddCommand(upCmd)
}

var upCmd = &cobra.Command{
	Use:   "up",
	Short: "bring up the terminal and bridge it to a tap interface until interrupted",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
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
		log.Printf("bridging %s <-> %s", dev, host.Name())

		pb := bar.NewTraffic("[cyan]" + host.Name() + "[reset]")
		b := newBridge(dev, a, host)
		b.OnFrame = func(_ asic0x.Direction, _ asic0x.EthernetFrame, radio asic0x.RadioFrame) {
			pb.Add(len(radio))
		}
		if dev.sim != nil {
			go simTraffic(ctx, dev.sim, host.(*sim.Host), a)
		}

		err = b.Run(ctx)
		pb.Finish()
		fmt.Println()
		log.Println(a.Stats())
		return err
	},
}

func openHost(dev *device) (asic0x.HostInterface, error) {
	if dev.sim != nil {
		return sim.NewHost("sim0"), nil
	}
	return tap.Open(cfg.Iface, cfg.MTU)
}

func newBridge(dev *device, a asic0x.Adapter, host asic0x.HostInterface) *asic0x.Bridge {
	return &asic0x.Bridge{
		Adapter:     a,
		Transport:   dev.transport,
		Host:        host,
		MTU:         cfg.MTU,
		PollTimeout: cfg.PollTimeout(),
	}
}
