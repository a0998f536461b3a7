// Package export renders saved runs as standalone SVG plots.
package export

import (
	"fmt"
	"math"
	"strings"

	"github.com/san-kum/lyapsim/internal/lyapunov"
)

type point struct{ X, Y float64 }

type bounds struct{ minX, maxX, minY, maxY float64 }

// pad widens b by 10% on each side; a flat axis gets a unit range.
func (b bounds) pad() bounds {
	rx, ry := b.maxX-b.minX, b.maxY-b.minY
	if rx == 0 {
		rx = 1
	}
	if ry == 0 {
		ry = 1
	}
	return bounds{b.minX - rx*0.1, b.maxX + rx*0.1, b.minY - ry*0.1, b.maxY + ry*0.1}
}

func (b bounds) project(p point, width, height int) (float64, float64) {
	x := (p.X - b.minX) / (b.maxX - b.minX) * float64(width)
	y := float64(height) - (p.Y-b.minY)/(b.maxY-b.minY)*float64(height)
	return x, y
}

func finitePoints(xs, ys []float64) []point {
	pts := make([]point, 0, len(xs))
	for i := range xs {
		if i >= len(ys) {
			break
		}
		x, y := xs[i], ys[i]
		if math.IsNaN(x) || math.IsInf(x, 0) || math.IsNaN(y) || math.IsInf(y, 0) {
			continue
		}
		pts = append(pts, point{x, y})
	}
	return pts
}

func boundsOf(pts []point) bounds {
	b := bounds{pts[0].X, pts[0].X, pts[0].Y, pts[0].Y}
	for _, p := range pts {
		b.minX = math.Min(b.minX, p.X)
		b.maxX = math.Max(b.maxX, p.X)
		b.minY = math.Min(b.minY, p.Y)
		b.maxY = math.Max(b.maxY, p.Y)
	}
	return b
}

// SeriesToSVG plots ln d against t. When fit is given, its line is drawn
// dashed over the fit window. It returns "" for fewer than two finite points.
func SeriesToSVG(series lyapunov.Series, fit *lyapunov.FitResult, width, height int) string {
	pts := finitePoints(series.Times, series.LnDistances)
	if len(pts) < 2 || width <= 0 || height <= 0 {
		return ""
	}
	b := boundsOf(pts).pad()

	var sb strings.Builder
	fmt.Fprintf(&sb, `<?xml version="1.0" encoding="UTF-8"?>
<svg xmlns="http://www.w3.org/2000/svg" width="%d" height="%d" viewBox="0 0 %d %d">
<rect width="100%%" height="100%%" fill="#0a0a0a"/>
`, width, height, width, height)

	writePath(&sb, pts, b, width, height, `stroke="#00ff88" stroke-width="1.5"`)

	if fit != nil {
		line := []point{
			{fit.Window[0], fit.Intercept + fit.Slope*fit.Window[0]},
			{fit.Window[1], fit.Intercept + fit.Slope*fit.Window[1]},
		}
		writePath(&sb, line, b, width, height, `stroke="#ffaa00" stroke-width="1" stroke-dasharray="6 4"`)
		fmt.Fprintf(&sb, `<text x="8" y="16" fill="#cccccc" font-family="monospace" font-size="12">slope %.6f  R² %.4f</text>
`, fit.Slope, fit.RSquared)
	}

	sb.WriteString("</svg>\n")
	return sb.String()
}

func writePath(sb *strings.Builder, pts []point, b bounds, width, height int, attrs string) {
	fmt.Fprintf(sb, `<path fill="none" %s d="M`, attrs)
	for i, p := range pts {
		x, y := b.project(p, width, height)
		if i == 0 {
			fmt.Fprintf(sb, "%.1f,%.1f", x, y)
		} else {
			fmt.Fprintf(sb, " L%.1f,%.1f", x, y)
		}
	}
	sb.WriteString("\"/>\n")
}
