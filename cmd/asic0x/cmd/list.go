package cmd

import (
	"fmt"

	"github.com/fatih/color"
	"github.com/lourenssteyn/asic0x"
	"github.com/lourenssteyn/asic0x/pkg/usbfs"
	"github.com/spf13/cobra"
)

func init() {
	listCmd.Flags().BoolP("all", "A", false, "list every usb device")
	rootCmd.AddCommand(listCmd)
}

var listCmd = &cobra.Command{
	Use:   "list",
	Short: "list attached terminals",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		all, _ := cmd.Flags().GetBool("all")
		devs, err := usbfs.Scan("")
		if err != nil {
			return err
		}
		var found int
		for _, d := range devs {
			info, ok := asic0x.LookupUSB(d.VendorID, d.ProductID)
			switch {
			case ok:
				found++
				fmt.Printf("%s %s\n", d, color.GreenString("["+info.Name+"]"))
			case all:
				fmt.Println(d)
			}
		}
		if found == 0 {
			fmt.Println("no terminal found, known adapters:")
			for _, a := range asic0x.ListAdapters() {
				fmt.Println(" ", a.String())
			}
		}
		return nil
	},
}
