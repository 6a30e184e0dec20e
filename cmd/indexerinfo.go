package cmd

import (
	"bufio"
	"context"
	"os"
	"strings"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/grtinfo/grtinfo/format"
	"github.com/grtinfo/grtinfo/logger"
	networksubgraph "github.com/grtinfo/grtinfo/networkSubgraph"
	"github.com/grtinfo/grtinfo/report"
)

func init() {
	rootCmd.AddCommand(indexerinfoCmd)

	indexerinfoCmd.Flags().IntVar(&indexerinfoHours, "hours", hoursDefault, "look-back window in hours")
	indexerinfoCmd.Flags().BoolVarP(&indexerinfoRewards, "rewards", "r", rewardsDefault, "read accrued rewards of every active allocation")
}

var indexerinfoCmd = &cobra.Command{
	Use:   "indexerinfo <search_term>",
	Short: "Show stake, rewards and recent activity of an indexer",
	Args:  cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		log := logger.New("indexerinfo")
		ctx := cmd.Context()
		cfg := loadConfig(log, v)

		sources := newSources(ctx, log, cfg, cfg.RPCURL)
		p := newPrinter()

		candidates, err := sources.FindIndexers(ctx, args[0])
		if err != nil {
			fatal(log, err, "indexer search failed")
		}
		indexer := chooseIndexer(ctx, log, sources, p, candidates)

		info, err := sources.IndexerInfo(ctx, indexer, indexerinfoHours, indexerinfoRewards, p.Now)
		if err != nil {
			fatal(log, err, "could not gather indexer data")
		}
		p.IndexerInfo(info)
	},
}

// chooseIndexer prompts when the search was ambiguous. Without a terminal
// on stdin the candidates are listed and the command fails.
func chooseIndexer(ctx context.Context, log *logrus.Entry, sources *report.Sources, p *report.Printer, candidates []networksubgraph.Indexer) *networksubgraph.Indexer {
	if len(candidates) == 1 {
		return &candidates[0]
	}

	ids := make([]string, 0, len(candidates))
	for _, c := range candidates {
		ids = append(ids, c.ID)
	}
	p.Candidates(candidates, sources.Names(ctx, ids))

	if !format.IsTerminal(os.Stdin) {
		log.Fatal("search is ambiguous; refine the search term")
	}

	n := len(candidates)
	p.Prompt(n)
	answer, err := bufio.NewReader(os.Stdin).ReadString('\n')
	if err != nil && strings.TrimSpace(answer) == "" {
		log.WithError(err).Fatal("no selection")
	}
	choice, err := report.ParseChoice(answer, n)
	if err != nil {
		log.WithError(err).Fatal("no indexer selected")
	}
	return &candidates[choice]
}
