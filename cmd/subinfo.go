package cmd

import (
	"errors"

	"github.com/spf13/cobra"

	"github.com/grtinfo/grtinfo/logger"
	networksubgraph "github.com/grtinfo/grtinfo/networkSubgraph"
)

func init() {
	rootCmd.AddCommand(subinfoCmd)

	subinfoCmd.Flags().IntVar(&subinfoHours, "hours", hoursDefault, "look-back window in hours")
}

var subinfoCmd = &cobra.Command{
	Use:   "subinfo <ipfs_hash>",
	Short: "Show allocations, signal and sync status of a subgraph deployment",
	Args:  cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		log := logger.New("subinfo")
		ctx := cmd.Context()
		cfg := loadConfig(log, v)

		sources := newSources(ctx, log, cfg, cfg.RPCURL)
		p := newPrinter()

		info, err := sources.SubInfo(ctx, args[0], subinfoHours, cfg.MyIndexerID, p.Now)
		switch {
		case errors.Is(err, networksubgraph.ErrInvalidDeploymentHash):
			log.WithError(err).Fatal("invalid deployment hash")
		case errors.Is(err, networksubgraph.ErrNotNetworkSubgraph):
			log.WithField("url", cfg.NetworkSubgraphURL).Fatal("the configured URL does not serve the network subgraph")
		case err != nil:
			fatal(log, err, "could not gather subgraph data")
		}
		p.SubInfo(info)
	},
}
