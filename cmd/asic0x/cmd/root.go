package cmd

import (
	"context"
	"io"
	"log"
	"os"

	"github.com/lourenssteyn/asic0x/pkg/config"
	"github.com/spf13/cobra"
	"gopkg.in/natefinch/lumberjack.v2"
)

var rootCmd = &cobra.Command{
	Use:               "asic0x",
	Short:             "iBurst terminal to Ethernet bridge",
	Long:              `Brings up an ArrayComm iBurst USB terminal and bridges its radio link to a TAP interface`,
	SilenceUsage:      true,
	PersistentPreRunE: loadConfig,
}

// Execute adds all child commands to the root command and sets flags appropriately.
// This is called by main.main(). It only needs to happen once to the rootCmd.
func Execute(ctx context.Context) error {
	return rootCmd.ExecuteContext(ctx)
}

const (
	flagDevice  = "device"
	flagIface   = "iface"
	flagConfig  = "config"
	flagLogfile = "logfile"
	flagDebug   = "debug"
	flagSim     = "sim"
	flagRetries = "retries"
)

var (
	cfg *config.Config
	// logFile is the rotated log, nil without --logfile.
	logFile io.Writer
)

func logOutput() io.Writer {
	if logFile != nil {
		return io.MultiWriter(os.Stderr, logFile)
	}
	return os.Stderr
}

func init() {
	log.SetFlags(log.Lshortfile | log.LstdFlags)

	pf := rootCmd.PersistentFlags()
	pf.StringP(flagDevice, "D", "", "usb device as bus:dev or sysfs name, empty = search")
	pf.StringP(flagIface, "i", "", "tap interface name (default from config, ib%d)")
	pf.StringP(flagConfig, "c", "", "yaml config file, $"+config.EnvConfig+" if empty")
	pf.StringP(flagLogfile, "l", "", "also write the log to this file, rotated")
	pf.BoolP(flagDebug, "d", false, "debug mode")
	pf.Bool(flagSim, false, "use a simulated terminal instead of usb")
	pf.UintP(flagRetries, "r", 0, "bring-up attempts, 0 = until interrupted (default from config)")
}

// loadConfig merges the config file with the flags that were set.
func loadConfig(cmd *cobra.Command, args []string) error {
	pf := cmd.Flags()
	path, _ := pf.GetString(flagConfig)
	c, err := config.Load(path)
	if err != nil {
		return err
	}
	if pf.Changed(flagDebug) {
		c.Debug, _ = pf.GetBool(flagDebug)
	}
	if pf.Changed(flagIface) {
		c.Iface, _ = pf.GetString(flagIface)
	}
	if pf.Changed(flagRetries) {
		c.Retries, _ = pf.GetUint(flagRetries)
	}
	if pf.Changed(flagLogfile) {
		c.Log.File, _ = pf.GetString(flagLogfile)
	}
	if err := c.Validate(); err != nil {
		return err
	}
	if c.Log.File != "" {
		logFile = &lumberjack.Logger{
			Filename:   c.Log.File,
			MaxSize:    c.Log.MaxSizeMB,
			MaxBackups: c.Log.MaxBackups,
			MaxAge:     c.Log.MaxAgeDays,
			Compress:   c.Log.Compress,
		}
		log.SetOutput(logOutput())
	}
	cfg = c
	return nil
}
