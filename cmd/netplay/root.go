package main

import (
	"github.com/appnet-org/netplay/internal/config"
	"github.com/spf13/cobra"
)

// version is set at build time with -ldflags "-X main.version=...".
var version = "dev"

type rootOptions struct {
	configFile string
}

func newRootCmd() *cobra.Command {
	opts := &rootOptions{}

	root := &cobra.Command{
		Use:   "netplay",
		Short: "Two-peer UDP netplay session",
		Long: `netplay connects to one peer over UDP, performs the connection handshake and
then exchanges batched player input at a fixed interval.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		Version:       version,
	}

	root.PersistentFlags().StringVarP(&opts.configFile, "config", "c", "",
		"config file path (defaults and NETPLAY_* environment when empty)")

	root.AddCommand(newPlayCmd(opts))
	root.AddCommand(newConfigCmd(opts))
	root.AddCommand(newVersionCmd())
	return root
}

func (o *rootOptions) load() (*config.Config, error) {
	return config.Load(o.configFile)
}
