package chart

import (
	"errors"
	"fmt"
	"strings"
)

// LineStyle customises Line.
type LineStyle struct {
	Style
	Stroke   string
	Fill     string
	ShowDots bool
}

// Line renders a single series as an SVG line chart with a shaded area.
func Line(width, height int, series []float64, labels []string, style LineStyle) ([]byte, error) {
	if len(series) == 0 {
		return nil, errors.New("chart: series required")
	}
	if len(series) != len(labels) {
		return nil, errors.New("chart: labels length must match series")
	}
	f, err := newFrame(width, height, style.Style, series)
	if err != nil {
		return nil, err
	}
	stroke := or(style.Stroke, "#2563eb")
	fill := or(style.Fill, "rgba(37,99,235,0.12)")

	xs := make([]float64, len(series))
	for i := range series {
		if len(series) == 1 {
			xs[i] = f.pad + f.innerW/2
			continue
		}
		xs[i] = f.pad + float64(i)*f.innerW/float64(len(series)-1)
	}

	var path strings.Builder
	for i, v := range series {
		cmd := " L"
		if i == 0 {
			cmd = "M"
		}
		fmt.Fprintf(&path, "%s%.2f %.2f", cmd, xs[i], f.y(v))
	}

	var b strings.Builder
	f.open(&b, "line", style.Style, "Line chart", "Trend data")
	f.gridLines(&b)
	f.axes(&b, f.bottom())
	fmt.Fprintf(&b, `<path d="%s L%.2f %.2f L%.2f %.2f Z" fill="%s" stroke="none" aria-hidden="true"></path>`,
		path.String(), xs[len(xs)-1], f.bottom(), xs[0], f.bottom(), fill)
	fmt.Fprintf(&b, `<path d="%s" fill="none" stroke="%s" stroke-width="2" stroke-linejoin="round" stroke-linecap="round"></path>`, path.String(), stroke)
	if style.ShowDots {
		for i, v := range series {
			fmt.Fprintf(&b, `<circle cx="%.2f" cy="%.2f" r="3" fill="%s"></circle>`, xs[i], f.y(v), stroke)
		}
	}
	for i, label := range labels {
		f.label(&b, xs[i], label)
	}
	b.WriteString("</svg>")
	return []byte(b.String()), nil
}
