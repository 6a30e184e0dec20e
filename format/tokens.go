package format

import (
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/dustin/go-humanize"

	"github.com/grtinfo/grtinfo/utils"
)

// Commas renders a float with thousands separators and the given decimals.
func Commas(v float64, decimals int) string {
	if decimals <= 0 {
		return humanize.Comma(int64(math.Round(v)))
	}
	scale := math.Pow(10, float64(decimals))
	s := humanize.CommafWithDigits(math.Round(v*scale)/scale, decimals)
	// CommafWithDigits neither rounds nor pads.
	if i := strings.IndexByte(s, '.'); i < 0 {
		s += "." + strings.Repeat("0", decimals)
	} else if pad := decimals - (len(s) - i - 1); pad > 0 {
		s += strings.Repeat("0", pad)
	}
	return s
}

// Tokens renders a wei amount as GRT: whole units with separators, or two
// decimals below 1 GRT.
func Tokens(wei string) string {
	grt := utils.GRT(wei)
	if grt == 0 {
		return "0 GRT"
	}
	return GRT(grt)
}

// GRT renders an amount already in GRT the way Tokens does.
func GRT(grt float64) string {
	if math.Abs(grt) >= 1 {
		return Commas(grt, 0) + " GRT"
	}
	return fmt.Sprintf("%.2f GRT", grt)
}

// TokensShort renders a compact figure such as 1.2M or 12.3K.
func TokensShort(wei string) string {
	return Short(utils.GRT(wei))
}

func Short(grt float64) string {
	switch abs := math.Abs(grt); {
	case abs >= 1_000_000:
		return fmt.Sprintf("%.1fM", grt/1_000_000)
	case abs >= 1_000:
		return fmt.Sprintf("%.1fK", grt/1_000)
	}
	return fmt.Sprintf("%.0f", grt)
}

// Percentage renders a PPM value.
func Percentage(ppm int64) string {
	return fmt.Sprintf("%.1f%%", float64(ppm)/10_000)
}

const (
	timestampLayout      = "2006-01-02 15:04:05"
	shortTimestampLayout = "2006-01-02 15:04"
)

// Timestamp renders unix seconds in local time.
func Timestamp(unix int64) string {
	if unix < 0 {
		return "Unknown"
	}
	return time.Unix(unix, 0).Local().Format(timestampLayout)
}

// ShortTimestamp is Timestamp without seconds.
func ShortTimestamp(unix int64) string {
	if unix < 0 {
		return "Unknown"
	}
	return time.Unix(unix, 0).Local().Format(shortTimestampLayout)
}

// Duration renders a span in its two largest units.
func Duration(seconds int64) string {
	if seconds < 0 {
		seconds = 0
	}
	switch {
	case seconds < 60:
		return fmt.Sprintf("%ds", seconds)
	case seconds < 3600:
		return fmt.Sprintf("%dm", seconds/60)
	case seconds < 86400:
		return fmt.Sprintf("%dh %dm", seconds/3600, seconds%3600/60)
	}
	return fmt.Sprintf("%dd %dh", seconds/86400, seconds%86400/3600)
}
