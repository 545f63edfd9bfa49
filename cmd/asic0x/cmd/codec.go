package cmd

import (
	"encoding/hex"
	"fmt"
	"net"
	"strings"

	"github.com/lourenssteyn/asic0x"
	"github.com/spf13/cobra"
)

func init() {
	decodeCmd.Flags().String("local", "00:02:03:04:05:06", "terminal hardware address")
	rootCmd.AddCommand(decodeCmd, encodeCmd)
}

// parseHex accepts hex with optional whitespace, colons and 0x prefix.
func parseHex(args []string) ([]byte, error) {
	s := strings.Join(args, "")
	s = strings.TrimPrefix(strings.ToLower(s), "0x")
	s = strings.NewReplacer(" ", "", ":", "", "\n", "", "\t", "").Replace(s)
	b, err := hex.DecodeString(s)
	if err != nil {
		return nil, fmt.Errorf("invalid hex input: %w", err)
	}
	return b, nil
}

var decodeCmd = &cobra.Command{
	Use:   "decode <hex>",
	Short: "decode a radio frame to an ethernet frame",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		flag, _ := cmd.Flags().GetString("local")
		local, err := net.ParseMAC(flag)
		if err != nil || len(local) != 6 {
			return fmt.Errorf("invalid local address %q", flag)
		}
		in, err := parseHex(args)
		if err != nil {
			return err
		}
		fmt.Println("radio:", asic0x.RadioFrame(in).ColorString())
		out, ok := asic0x.DecodeInbound(in, local)
		if !ok {
			return fmt.Errorf("frame dropped, %d bytes is shorter than %d", len(in), asic0x.EthernetHeaderLen)
		}
		fmt.Println("eth:  ", out.ColorString())
		fmt.Println("       " + out.Describe())
		return nil
	},
}

var encodeCmd = &cobra.Command{
	Use:   "encode <hex>",
	Short: "encode an ethernet frame to a radio frame",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		in, err := parseHex(args)
		if err != nil {
			return err
		}
		if len(in) < asic0x.EthernetHeaderLen {
			return fmt.Errorf("frame too short, %d bytes", len(in))
		}
		eth := asic0x.EthernetFrame(in)
		fmt.Println("eth:  ", eth.ColorString())
		fmt.Println("       " + eth.Describe())
		fmt.Println("radio:", asic0x.EncodeOutbound(eth).ColorString())
		return nil
	},
}
