// Package chart renders small standalone SVG charts of dashboard series.
package chart

import (
	"errors"
	"fmt"
	"html"
	"math"
	"strings"
)

// Defaults for dashboard charts.
const (
	DefaultWidth   = 720
	DefaultHeight  = 240
	DefaultPadding = 24.0
	DefaultTicks   = 6
)

// ErrViewport is returned when padding leaves no room to draw.
var ErrViewport = errors.New("chart: viewport too small")

// Style is shared by every chart kind.
type Style struct {
	Title       string
	Description string
	AxisColor   string
	GridColor   string
	Padding     float64
	TickCount   int
}

// frame is the plotting area and value scale of one chart.
type frame struct {
	width, height int
	pad           float64
	innerW        float64
	innerH        float64
	lo, hi        float64
	scale         float64
	ticks         int
	axis, grid    string
}

func newFrame(width, height int, style Style, values ...[]float64) (*frame, error) {
	if width <= 0 {
		width = DefaultWidth
	}
	if height <= 0 {
		height = DefaultHeight
	}
	f := &frame{
		width:  width,
		height: height,
		pad:    style.Padding,
		ticks:  style.TickCount,
		axis:   or(style.AxisColor, "#475569"),
		grid:   or(style.GridColor, "#cbd5f5"),
	}
	if f.pad <= 0 {
		f.pad = DefaultPadding
	}
	if f.ticks <= 0 {
		f.ticks = DefaultTicks
	}
	f.innerW = float64(width) - 2*f.pad
	f.innerH = float64(height) - 2*f.pad
	if f.innerW <= 0 || f.innerH <= 0 {
		return nil, ErrViewport
	}

	// the value axis always includes zero
	for _, series := range values {
		for _, v := range series {
			f.lo = math.Min(f.lo, v)
			f.hi = math.Max(f.hi, v)
		}
	}
	if math.Abs(f.hi-f.lo) < 1e-9 {
		f.hi = f.lo + 1
	}
	f.scale = f.innerH / (f.hi - f.lo)
	return f, nil
}

func (f *frame) bottom() float64 { return f.pad + f.innerH }

func (f *frame) y(v float64) float64 { return f.bottom() - (v-f.lo)*f.scale }

func (f *frame) open(b *strings.Builder, kind string, style Style, title, desc string) {
	titleID := elementID(style.Title, kind+"-title")
	descID := elementID(style.Title, kind+"-desc")
	fmt.Fprintf(b, `<svg xmlns="http://www.w3.org/2000/svg" viewBox="0 0 %d %d" role="img" aria-labelledby="%s %s">`, f.width, f.height, titleID, descID)
	fmt.Fprintf(b, `<title id="%s">%s</title>`, titleID, html.EscapeString(or(style.Title, title)))
	fmt.Fprintf(b, `<desc id="%s">%s</desc>`, descID, html.EscapeString(or(style.Description, desc)))
}

func (f *frame) gridLines(b *strings.Builder) {
	for i := 0; i <= f.ticks; i++ {
		ratio := float64(i) / float64(f.ticks)
		y := f.bottom() - ratio*f.innerH
		fmt.Fprintf(b, `<line x1="%.2f" y1="%.2f" x2="%.2f" y2="%.2f" stroke="%s" stroke-width="0.5" stroke-dasharray="2,4" aria-hidden="true"></line>`, f.pad, y, f.pad+f.innerW, y, f.grid)
		fmt.Fprintf(b, `<text x="%.2f" y="%.2f" fill="%s" font-size="10" text-anchor="end">%s</text>`, f.pad-6, y+4, f.axis, tick(f.lo+(f.hi-f.lo)*ratio))
	}
}

func (f *frame) axes(b *strings.Builder, baseline float64) {
	fmt.Fprintf(b, `<g stroke="%s" aria-label="Axes">`, f.axis)
	fmt.Fprintf(b, `<line x1="%.2f" y1="%.2f" x2="%.2f" y2="%.2f" stroke-width="1"></line>`, f.pad, f.pad, f.pad, f.bottom())
	fmt.Fprintf(b, `<line x1="%.2f" y1="%.2f" x2="%.2f" y2="%.2f" stroke-width="1"></line>`, f.pad, baseline, f.pad+f.innerW, baseline)
	b.WriteString("</g>")
}

func (f *frame) label(b *strings.Builder, x float64, text string) {
	fmt.Fprintf(b, `<text x="%.2f" y="%.2f" fill="%s" font-size="10" text-anchor="middle">%s</text>`, x, f.bottom()+14, f.axis, html.EscapeString(text))
}

func or(value, fallback string) string {
	if strings.TrimSpace(value) == "" {
		return fallback
	}
	return value
}

func elementID(base, suffix string) string {
	cleaned := strings.Map(func(r rune) rune {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9', r == '-', r == '_':
			return r
		}
		return '-'
	}, strings.ToLower(strings.TrimSpace(base)))
	cleaned = strings.Trim(cleaned, "-")
	if cleaned == "" {
		cleaned = "chart"
	}
	return cleaned + "-" + suffix
}

func tick(v float64) string {
	abs := math.Abs(v)
	switch {
	case abs >= 1e9:
		return fmt.Sprintf("%.1fB", v/1e9)
	case abs >= 1e6:
		return fmt.Sprintf("%.1fM", v/1e6)
	case abs >= 1e3:
		return fmt.Sprintf("%.1fk", v/1e3)
	case math.Abs(v-math.Round(v)) < 1e-9:
		return fmt.Sprintf("%.0f", v)
	default:
		return fmt.Sprintf("%.2f", v)
	}
}
