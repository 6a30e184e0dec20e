package cmd

import (
	"context"
	"fmt"
	"os"

	goerrors "github.com/go-errors/errors"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/grtinfo/grtinfo/analytics"
	"github.com/grtinfo/grtinfo/config"
	ensclient "github.com/grtinfo/grtinfo/ensClient"
	"github.com/grtinfo/grtinfo/format"
	"github.com/grtinfo/grtinfo/logger"
	networksubgraph "github.com/grtinfo/grtinfo/networkSubgraph"
	"github.com/grtinfo/grtinfo/report"
	"github.com/grtinfo/grtinfo/rewards"
)

var v = config.NewViper()

var rootCmd = &cobra.Command{
	Use:     "grtinfo",
	Short:   "grtinfo inspects The Graph network",
	Long:    `Reports on subgraph deployments, indexers and delegators from the network subgraph, indexer status endpoints and Arbitrum contracts.`,
	Version: Version,
	Run: func(cmd *cobra.Command, args []string) {
		_ = cmd.Help()
	},
}

func init() {
	cobra.OnInitialize(initConfig)

	flags := rootCmd.PersistentFlags()
	flags.StringVar(&configPath, "config", configPathDefault, "config file (default ~/.grtinfo/config.json)")
	flags.StringVar(&networkSubgraphURL, "url", networkSubgraphURLDefault, "network subgraph URL")
	flags.StringVar(&ensSubgraphURL, "ens-url", ensSubgraphURLDefault, "ENS subgraph URL")
	flags.StringVar(&rpcURL, "rpc-url", rpcURLDefault, "Arbitrum JSON-RPC URL")
	flags.StringVar(&analyticsSubgraphURL, "analytics-url", analyticsSubgraphURLDefault, "analytics subgraph URL")
	flags.CountVarP(&verbosity, "verbose", "v", "log verbosity, repeat for more")
	flags.StringVar(&logFile, "log-file", logFileDefault, "write debug logs to this file")
	flags.BoolVar(&noColor, "no-color", noColorDefault, "disable colors")

	_ = v.BindPFlag(config.KeyNetworkSubgraphURL, flags.Lookup("url"))
	_ = v.BindPFlag(config.KeyENSSubgraphURL, flags.Lookup("ens-url"))
	_ = v.BindPFlag(config.KeyRPCURL, flags.Lookup("rpc-url"))
	_ = v.BindPFlag(config.KeyAnalyticsSubgraphURL, flags.Lookup("analytics-url"))
}

func initConfig() {
	if err := logger.Setup(verbosity, logFile, !noColor); err != nil {
		fmt.Fprintln(os.Stderr, "could not open log file:", err)
		os.Exit(1)
	}

	path, explicit := configPath, configPath != ""
	if !explicit {
		path = config.DefaultPath()
	}
	if err := config.ReadFile(v, path, explicit); err != nil {
		logger.New("cmd").WithError(err).Fatal("could not read config")
	}
}

func Execute() {
	if err := rootCmd.ExecuteContext(context.Background()); err != nil {
		fmt.Println(err)
		os.Exit(1)
	}
}

// loadConfig returns the merged configuration, exiting when the network
// subgraph is not configured.
func loadConfig(log *logrus.Entry, vp *viper.Viper) *config.Config {
	cfg, err := config.Load(vp)
	if err != nil {
		log.WithError(err).Fatal("invalid configuration")
	}
	if err := cfg.RequireNetworkURL(); err != nil {
		log.Fatal(err)
	}
	return cfg
}

// newSources wires the optional clients that are configured. rpc is the
// RPC URL to dial, empty to skip contract reads.
func newSources(ctx context.Context, log *logrus.Entry, cfg *config.Config, rpc string) *report.Sources {
	s := report.NewSources(networksubgraph.NewNetworkSubgraph(cfg.NetworkSubgraphURL))
	if cfg.ENSSubgraphURL != "" {
		s.ENS = ensclient.NewClient(cfg.ENSSubgraphURL)
	}
	if cfg.AnalyticsSubgraphURL != "" {
		s.Analytics = analytics.NewClient(cfg.AnalyticsSubgraphURL)
	}
	if rpc != "" {
		client, err := rewards.Dial(ctx, rpc)
		if err != nil {
			log.WithError(err).Info("contract reads disabled")
		} else {
			s.Rewards = client
		}
	}
	return s
}

func newPrinter() *report.Printer {
	return report.NewPrinter(os.Stdout, format.NewStyles(os.Stdout, !noColor))
}

// fatal logs err and, at debug level, its stack.
func fatal(log *logrus.Entry, err error, msg string) {
	log.Debug(goerrors.Wrap(err, 1).ErrorStack())
	log.WithError(err).Fatal(msg)
}
