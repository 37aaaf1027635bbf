package main

import (
	"github.com/mdlayher/wext/internal/config"
	log "github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	"gopkg.in/natefinch/lumberjack.v2"
)

var rootCmd = &cobra.Command{
	Use:               "wextctl",
	Short:             "Wireless-extension driver command tool",
	SilenceUsage:      true,
	SilenceErrors:     true,
	PersistentPreRunE: loadConfig,
}

var (
	configPath string
	ifname     string
	debug      bool

	cfg *config.Config
)

func init() {
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "", "YAML configuration file")
	rootCmd.PersistentFlags().StringVarP(&ifname, "interface", "i", "", "wireless interface, overrides the configuration")
	rootCmd.PersistentFlags().BoolVarP(&debug, "debug", "d", false, "debug logging")
}

func loadConfig(cmd *cobra.Command, _ []string) error {
	c, err := config.Load(configPath)
	if err != nil {
		return err
	}

	if cmd.Flags().Changed("interface") {
		c.Interface = ifname
	}
	if debug {
		c.Debug = true
	}

	setupLogging(c)
	log.WithField("ifname", c.Interface).Debug("loaded config")

	cfg = c
	return nil
}

func setupLogging(c *config.Config) {
	log.SetFormatter(&log.TextFormatter{FullTimestamp: true})

	log.SetLevel(log.InfoLevel)
	if c.Debug {
		log.SetLevel(log.DebugLevel)
	}

	if c.Log.File != "" {
		log.SetOutput(&lumberjack.Logger{
			Filename:   c.Log.File,
			MaxSize:    c.Log.MaxSizeMB,
			MaxBackups: c.Log.MaxBackups,
			MaxAge:     c.Log.MaxAgeDays,
			Compress:   c.Log.Compress,
		})
	}
}
