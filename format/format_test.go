package format

import (
	"bytes"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	indexerstatus "github.com/grtinfo/grtinfo/indexerStatus"
)

func TestTokens(t *testing.T) {
	require.Equal(t, "0 GRT", Tokens("0"))
	require.Equal(t, "0 GRT", Tokens("garbage"))
	require.Equal(t, "1 GRT", Tokens("1000000000000000000"))
	require.Equal(t, "2 GRT", Tokens("1500000000000000000"))
	require.Equal(t, "1,234,567 GRT", Tokens("1234567000000000000000000"))
	require.Equal(t, "0.50 GRT", Tokens("500000000000000000"))
	require.Equal(t, "-1,000 GRT", GRT(-1000))
}

func TestCommas(t *testing.T) {
	require.Equal(t, "1,234", Commas(1234.4, 0))
	require.Equal(t, "1,234.50", Commas(1234.5, 2))
	require.Equal(t, "12.00", Commas(12, 2))
	require.Equal(t, "0.25", Commas(0.25, 2))
}

func TestTokensShort(t *testing.T) {
	require.Equal(t, "0", TokensShort("0"))
	require.Equal(t, "12", TokensShort("12000000000000000000"))
	require.Equal(t, "12.3K", TokensShort("12300000000000000000000"))
	require.Equal(t, "1.2M", TokensShort("1200000000000000000000000"))
}

func TestPercentage(t *testing.T) {
	require.Equal(t, "0.0%", Percentage(0))
	require.Equal(t, "10.0%", Percentage(100_000))
	require.Equal(t, "100.0%", Percentage(1_000_000))
}

func TestTimestamp(t *testing.T) {
	ts := time.Date(2024, 3, 5, 7, 8, 9, 0, time.Local).Unix()
	require.Equal(t, "2024-03-05 07:08:09", Timestamp(ts))
	require.Equal(t, "2024-03-05 07:08", ShortTimestamp(ts))
	require.Equal(t, "Unknown", Timestamp(-1))
}

func TestDuration(t *testing.T) {
	require.Equal(t, "0s", Duration(-5))
	require.Equal(t, "45s", Duration(45))
	require.Equal(t, "12m", Duration(12*60+5))
	require.Equal(t, "3h 20m", Duration(3*3600+20*60))
	require.Equal(t, "2d 4h", Duration(2*86400+4*3600+59))
}

func TestWidthHelpers(t *testing.T) {
	colored := "\x1b[92mHello\x1b[0m"
	require.Equal(t, "Hello", StripANSI(colored))
	require.Equal(t, 5, DisplayWidth(colored))
	require.Equal(t, 0, DisplayWidth(""))

	link := TerminalLink("https://example.com", "Example")
	require.Equal(t, "Example", StripANSI(link))
	require.Equal(t, 7, DisplayWidth(link))

	require.Equal(t, colored+"   ", PadRight(colored, 8))
	require.Equal(t, "   "+colored, PadLeft(colored, 8))
	require.Equal(t, "toolong", PadRight("toolong", 3))
}

func TestTruncate(t *testing.T) {
	require.Equal(t, "abc", Truncate("abc", 5, ".."))
	require.Equal(t, "abc..", Truncate("abcdefgh", 5, ".."))
	require.Equal(t, "..fgh", TruncateLeft("abcdefgh", 5, ".."))
}

func TestIndexerDisplay(t *testing.T) {
	id := "0x1234567890abcdef1234567890abcdef12345678"

	require.Equal(t, "pinax.eth (0x1234..)", IndexerDisplay(id, "pinax.eth", "https://ignored", 32))
	long := IndexerDisplay(id, "a-very-long-indexer-name-that-overflows.eth", "", 32)
	require.Equal(t, 32, len(long))
	require.True(t, strings.HasSuffix(long, ".. (0x1234..)"))

	require.Equal(t, "indexer.example.com (0x1234..)", IndexerDisplay(id, "", "https://www.indexer.example.com/path/", 32))
	fromURL := IndexerDisplay(id, "", "https://graph.mainnet.some-very-long-domain.io", 32)
	require.Equal(t, 32, len(fromURL))
	require.True(t, strings.HasPrefix(fromURL, ".."))
	require.True(t, strings.HasSuffix(fromURL, "domain.io (0x1234..)"))

	require.Equal(t, "0x12345678..", IndexerDisplay(id, "", "", 32))
	require.Equal(t, "0x1234", IndexerDisplay("0x1234", "", "", 32))
}

func TestDeploymentLink(t *testing.T) {
	var buf bytes.Buffer
	s := NewStyles(&buf, true)
	require.False(t, s.Hyperlinks)
	require.Equal(t, "QmHash", s.DeploymentLink("QmHash", "5xSub"))

	s.Hyperlinks = true
	link := s.DeploymentLink("QmHash", "5xSub")
	require.Contains(t, link, "https://thegraph.com/explorer/subgraphs/5xSub?view=Query&chain=arbitrum-one")
	require.Equal(t, "QmHash", StripANSI(link))
	require.Equal(t, "QmHash", s.DeploymentLink("QmHash", ""))
}

func TestSyncStatus(t *testing.T) {
	s := PlainStyles()
	render := func(st *indexerstatus.Status) string { return StripANSI(s.SyncStatus(st)) }

	require.Equal(t, "?", render(nil))
	require.Equal(t, "✗ failed", render(&indexerstatus.Status{Health: "failed", Synced: true}))
	require.Equal(t, "↻ -25k", render(&indexerstatus.Status{Synced: true, BlocksBehind: 25_400}))
	require.Equal(t, "↻ -5,000", render(&indexerstatus.Status{Synced: true, BlocksBehind: 5_000}))
	require.Equal(t, "✓ synced", render(&indexerstatus.Status{Synced: true, BlocksBehind: 40}))
	require.Equal(t, "✓ synced", render(&indexerstatus.Status{}))
	require.Equal(t, "↻ -40", render(&indexerstatus.Status{BlocksBehind: 40}))
}

func TestSyncStatusDetailed(t *testing.T) {
	s := PlainStyles()
	render := func(st *indexerstatus.Status) string { return StripANSI(s.SyncStatusDetailed(st)) }

	require.Equal(t, "No status available", render(nil))
	require.Equal(t, "✓ Synced on mainnet (block 1,000)", render(&indexerstatus.Status{Synced: true, Network: "mainnet", LatestBlock: 1000}))
	require.Equal(t, "↻ Syncing (-500 blocks, at 1,000/1,500)", render(&indexerstatus.Status{LatestBlock: 1000, ChainHeadBlock: 1500, BlocksBehind: 500}))
	require.Equal(t, "↻ Syncing on gnosis (-7 blocks)", render(&indexerstatus.Status{Network: "gnosis", BlocksBehind: 7}))

	failed := render(&indexerstatus.Status{Health: "failed", FatalError: strings.Repeat("x", 60)})
	require.Equal(t, "✗ Failed: "+strings.Repeat("x", 50)+"...", failed)
}

func TestSection(t *testing.T) {
	out := StripANSI(PlainStyles().Section("Curation Signal"))
	require.Equal(t, "\nCuration Signal\n"+strings.Repeat("─", 15), out)
}
