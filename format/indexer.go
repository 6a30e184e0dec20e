package format

import (
	"fmt"
	"strings"

	indexerstatus "github.com/grtinfo/grtinfo/indexerStatus"
)

const DefaultIndexerWidth = 32

func prefix(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n]
}

// ShortAddress is the first ten characters of an address followed by "..".
func ShortAddress(id string) string {
	if len(id) <= 10 {
		return id
	}
	return id[:10] + ".."
}

// IndexerDisplay names an indexer within maxWidth cells: its ENS name, else
// the host of its service URL, else a shortened address.
func IndexerDisplay(id, ensName, url string, maxWidth int) string {
	if maxWidth <= 0 {
		maxWidth = DefaultIndexerWidth
	}
	suffix := fmt.Sprintf(" (%s..)", prefix(id, 6))
	room := maxWidth - len(suffix)

	if ensName != "" {
		return Truncate(ensName, room, "..") + suffix
	}

	if url != "" {
		host := url
		for _, p := range []string{"https://", "http://", "www."} {
			host = strings.TrimPrefix(host, p)
		}
		host = strings.SplitN(strings.TrimRight(host, "/"), "/", 2)[0]
		return TruncateLeft(host, room, "..") + suffix
	}

	return ShortAddress(id)
}

func behindString(behind int64) string {
	if behind > 10_000 {
		return fmt.Sprintf("%.0fk", float64(behind)/1000)
	}
	return Commas(float64(behind), 0)
}

// SyncStatus is the one-cell sync indicator. Blocks behind outrank the
// synced flag, which graph-node may report while lagging.
func (s Styles) SyncStatus(status *indexerstatus.Status) string {
	switch {
	case status == nil:
		return s.Dim.Render("?")
	case status.Failed():
		return s.Red.Render("✗ failed")
	case status.BlocksBehind > 100:
		return s.Yellow.Render("↻ -" + behindString(status.BlocksBehind))
	case status.Synced || status.BlocksBehind == 0:
		return s.Green.Render("✓ synced")
	case status.BlocksBehind > 0:
		return s.Yellow.Render(fmt.Sprintf("↻ -%d", status.BlocksBehind))
	}
	return s.Dim.Render("syncing")
}

// SyncStatusDetailed spells out the network and block heights.
func (s Styles) SyncStatusDetailed(status *indexerstatus.Status) string {
	if status == nil {
		return s.Dim.Render("No status available")
	}
	network := ""
	if status.Network != "" {
		network = " on " + status.Network
	}

	switch {
	case status.Failed():
		msg := ""
		if status.FatalError != "" {
			msg = ": " + status.FatalError
			if len(status.FatalError) > 50 {
				msg = ": " + status.FatalError[:50] + "..."
			}
		}
		return s.Red.Render("✗ Failed" + network + msg)
	case status.BlocksBehind > 100:
		return s.Yellow.Render(fmt.Sprintf("↻ Syncing%s (-%s blocks, at %s/%s)", network,
			behindString(status.BlocksBehind),
			Commas(float64(status.LatestBlock), 0), Commas(float64(status.ChainHeadBlock), 0)))
	case status.Synced || status.BlocksBehind == 0:
		return s.Green.Render(fmt.Sprintf("✓ Synced%s (block %s)", network, Commas(float64(status.LatestBlock), 0)))
	case status.BlocksBehind > 0:
		return s.Yellow.Render(fmt.Sprintf("↻ Syncing%s (-%d blocks)", network, status.BlocksBehind))
	}
	return s.Dim.Render("Unknown status" + network)
}
