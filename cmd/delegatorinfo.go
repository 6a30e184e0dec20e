package cmd

import (
	"github.com/spf13/cobra"

	"github.com/grtinfo/grtinfo/logger"
)

func init() {
	rootCmd.AddCommand(delegatorinfoCmd)
}

var delegatorinfoCmd = &cobra.Command{
	Use:   "delegatorinfo <address|ens>",
	Short: "Show a delegator's portfolio across indexers",
	Args:  cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		log := logger.New("delegatorinfo")
		ctx := cmd.Context()
		cfg := loadConfig(log, v)

		sources := newSources(ctx, log, cfg, cfg.RPCURLOrDefault())
		p := newPrinter()

		delegator, name, err := sources.ResolveDelegator(ctx, args[0])
		if err != nil {
			log.WithError(err).Fatal("could not resolve delegator")
		}
		info, err := sources.DelegatorInfo(ctx, delegator, name)
		if err != nil {
			fatal(log, err, "could not gather delegator data")
		}
		p.DelegatorInfo(info)
	},
}
