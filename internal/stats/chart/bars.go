package chart

import (
	"errors"
	"fmt"
	"html"
	"math"
	"strings"
)

// Series is one named bar series.
type Series struct {
	Label  string
	Color  string
	Values []float64
}

var palette = []string{"#0ea5e9", "#f97316", "#22c55e", "#a855f7"}

// Bars renders grouped bars, one group per label and one bar per series.
func Bars(width, height int, series []Series, labels []string, style Style) ([]byte, error) {
	if len(series) == 0 {
		return nil, errors.New("chart: at least one series required")
	}
	if len(labels) == 0 {
		return nil, errors.New("chart: labels required")
	}
	values := make([][]float64, len(series))
	for i, s := range series {
		if len(s.Values) != len(labels) {
			return nil, fmt.Errorf("chart: series %q length must match labels", s.Label)
		}
		values[i] = s.Values
	}
	f, err := newFrame(width, height, style, values...)
	if err != nil {
		return nil, err
	}
	zero := f.y(0)
	group := f.innerW / float64(len(labels))
	bar := group / float64(len(series)+1)

	var b strings.Builder
	f.open(&b, "bar", style, "Bar chart", "Grouped bar comparison")
	f.gridLines(&b)
	f.axes(&b, zero)
	for i, label := range labels {
		base := f.pad + float64(i)*group + bar/2
		for j, s := range series {
			y, h := f.barSpan(s.Values[i], zero)
			fmt.Fprintf(&b, `<rect x="%.2f" y="%.2f" width="%.2f" height="%.2f" fill="%s" aria-label="%s %s"></rect>`,
				base+float64(j)*bar, y, bar, h, colorOf(s, j), html.EscapeString(s.Label), html.EscapeString(label))
		}
		f.label(&b, f.pad+float64(i)*group+group/2, label)
	}

	legendY := math.Max(f.pad-12, 12)
	for j, s := range series {
		x := f.pad + float64(j)*90
		fmt.Fprintf(&b, `<rect x="%.2f" y="%.2f" width="10" height="10" fill="%s"></rect>`, x, legendY-8, colorOf(s, j))
		fmt.Fprintf(&b, `<text x="%.2f" y="%.2f" fill="%s" font-size="10" text-anchor="start">%s</text>`, x+14, legendY, f.axis, html.EscapeString(s.Label))
	}
	b.WriteString("</svg>")
	return []byte(b.String()), nil
}

// barSpan clamps a bar to the plotting area.
func (f *frame) barSpan(v, zero float64) (float64, float64) {
	h := math.Abs(v * f.scale)
	if v >= 0 {
		y := zero - h
		if y < f.pad {
			h -= f.pad - y
			y = f.pad
		}
		return y, math.Max(h, 0)
	}
	if zero+h > f.bottom() {
		h = f.bottom() - zero
	}
	return zero, math.Max(h, 0)
}

func colorOf(s Series, i int) string {
	return or(s.Color, palette[i%len(palette)])
}
