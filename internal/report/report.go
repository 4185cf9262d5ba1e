// Package report renders heatmap payloads for the terminal and as SVG
// exports.
package report

import (
	"fmt"
	"math"
	"sort"
	"strconv"
	"strings"

	"github.com/finlens/heatlens/internal/heatmap"
)

var monthLabels = []string{"Jan", "Feb", "Mar", "Apr", "May", "Jun",
	"Jul", "Aug", "Sep", "Oct", "Nov", "Dec"}

// years returns the grid's year keys, newest first.
func years(grid heatmap.Grid) []string {
	ys := make([]string, 0, len(grid))
	for y := range grid {
		ys = append(ys, y)
	}
	sort.Sort(sort.Reverse(sort.StringSlice(ys)))
	return ys
}

// cell looks up the value for (year, month 1..12).
func cell(grid heatmap.Grid, year string, month int) *float64 {
	row, ok := grid[year]
	if !ok {
		return nil
	}
	return row[strconv.Itoa(month)]
}

// ════════════════════════════════════════════════════════════════════
// Terminal rendering
// ════════════════════════════════════════════════════════════════════

// RenderHeatmap formats a payload as a fixed-width table of monthly
// returns in percent, one row per year, newest first.
func RenderHeatmap(p *heatmap.Payload) string {
	var b strings.Builder

	b.WriteString("  Year ")
	for _, m := range monthLabels {
		fmt.Fprintf(&b, "%7s", m)
	}
	b.WriteByte('\n')

	for _, year := range years(p.Heatmap) {
		fmt.Fprintf(&b, "  %-4s ", year)
		for m := 1; m <= 12; m++ {
			v := cell(p.Heatmap, year, m)
			if v == nil {
				b.WriteString("      –")
				continue
			}
			fmt.Fprintf(&b, "%+7.2f", *v*100)
		}
		b.WriteByte('\n')
	}

	if p.AvgMonthlyProfits3Y != nil {
		fmt.Fprintf(&b, "\n  3Y avg monthly profit:   %+.2f%%\n", *p.AvgMonthlyProfits3Y*100)
	}
	if p.RankPercentile4Y != nil {
		fmt.Fprintf(&b, "  4Y rank percentile:      %.1f\n", *p.RankPercentile4Y)
	}
	if p.InverseRankPercentile != nil {
		fmt.Fprintf(&b, "  Inverse rank percentile: %.1f\n", *p.InverseRankPercentile)
	}

	return b.String()
}

// ════════════════════════════════════════════════════════════════════
// SVG rendering — Pure Go, Zero Dependencies
// ════════════════════════════════════════════════════════════════════

// SVGConfig holds rendering parameters for the SVG heatmap.
type SVGConfig struct {
	CellWidth  int    // cell width in pixels (default: 54)
	CellHeight int    // cell height in pixels (default: 24)
	MarginLeft int    // room for year labels (default: 50)
	MarginTop  int    // room for month labels (default: 40)
	BgColor    string // background color (default: "#ffffff")
	TextColor  string // label color (default: "#333333")
	FontSize   int    // label font size (default: 11)
	Title      string // chart title
}

// DefaultSVGConfig returns sensible defaults for SVG rendering.
func DefaultSVGConfig() SVGConfig {
	return SVGConfig{
		CellWidth:  54,
		CellHeight: 24,
		MarginLeft: 50,
		MarginTop:  40,
		BgColor:    "#ffffff",
		TextColor:  "#333333",
		FontSize:   11,
	}
}

// RenderHeatmapSVG draws the payload's return grid as an SVG heatmap.
// Positive returns shade green, negative red, missing cells grey. The
// color scale saturates at +/-10% so outliers stay readable.
func RenderHeatmapSVG(p *heatmap.Payload, cfg SVGConfig) string {
	ys := years(p.Heatmap)

	width := cfg.MarginLeft + 12*cfg.CellWidth + 10
	height := cfg.MarginTop + len(ys)*cfg.CellHeight + 10

	var b strings.Builder
	fmt.Fprintf(&b, `<svg xmlns="http://www.w3.org/2000/svg" width="%d" height="%d" viewBox="0 0 %d %d">`,
		width, height, width, height)
	fmt.Fprintf(&b, `<rect width="%d" height="%d" fill="%s"/>`, width, height, cfg.BgColor)

	if cfg.Title != "" {
		fmt.Fprintf(&b, `<text x="%d" y="%d" font-size="%d" font-weight="bold" fill="%s">%s</text>`,
			cfg.MarginLeft, cfg.FontSize+4, cfg.FontSize+3, cfg.TextColor, svgEscape(cfg.Title))
	}

	// Month labels
	for i, m := range monthLabels {
		x := cfg.MarginLeft + i*cfg.CellWidth + cfg.CellWidth/2
		fmt.Fprintf(&b, `<text x="%d" y="%d" font-size="%d" fill="%s" text-anchor="middle">%s</text>`,
			x, cfg.MarginTop-6, cfg.FontSize, cfg.TextColor, m)
	}

	for row, year := range ys {
		y := cfg.MarginTop + row*cfg.CellHeight

		fmt.Fprintf(&b, `<text x="%d" y="%d" font-size="%d" fill="%s" text-anchor="end">%s</text>`,
			cfg.MarginLeft-6, y+cfg.CellHeight/2+cfg.FontSize/2-1, cfg.FontSize, cfg.TextColor, year)

		for m := 1; m <= 12; m++ {
			x := cfg.MarginLeft + (m-1)*cfg.CellWidth
			v := cell(p.Heatmap, year, m)

			fill := "#f0f0f0"
			label := "–"
			if v != nil {
				fill = returnColor(*v)
				label = fmt.Sprintf("%+.1f", *v*100)
			}

			fmt.Fprintf(&b, `<rect x="%d" y="%d" width="%d" height="%d" fill="%s" stroke="#ffffff"/>`,
				x, y, cfg.CellWidth, cfg.CellHeight, fill)
			fmt.Fprintf(&b, `<text x="%d" y="%d" font-size="%d" fill="#111111" text-anchor="middle">%s</text>`,
				x+cfg.CellWidth/2, y+cfg.CellHeight/2+cfg.FontSize/2-1, cfg.FontSize-1, label)
		}
	}

	b.WriteString(`</svg>`)
	return b.String()
}

// returnColor maps a fractional return onto the green/red scale,
// saturating at +/-10%.
func returnColor(v float64) string {
	t := math.Min(math.Abs(v)/0.10, 1.0)
	if v >= 0 {
		// white → green
		r := int(255 - t*(255-22))
		g := int(255 - t*(255-163))
		bl := int(255 - t*(255-74))
		return fmt.Sprintf("#%02x%02x%02x", r, g, bl)
	}
	// white → red
	r := int(255 - t*(255-220))
	g := int(255 - t*(255-38))
	bl := int(255 - t*(255-38))
	return fmt.Sprintf("#%02x%02x%02x", r, g, bl)
}

func svgEscape(s string) string {
	s = strings.ReplaceAll(s, "&", "&amp;")
	s = strings.ReplaceAll(s, "<", "&lt;")
	s = strings.ReplaceAll(s, ">", "&gt;")
	return s
}
