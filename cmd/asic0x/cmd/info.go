package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
)

func init() {
	rootCmd.AddCommand(infoCmd)
}

var infoCmd = &cobra.Command{
	Use:   "info",
	Short: "bring up the terminal and print its identity",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		dev, a, err := bringUp(cmd)
		if err != nil {
			return err
		}
		defer dev.transport.Close()
		defer a.Close()

		id, err := a.Identity()
		if err != nil {
			return err
		}
		fmt.Println(identityString(id))
		fmt.Println(a.Endpoints())
		return nil
	},
}
