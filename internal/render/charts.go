package render

import (
	"fmt"
	"math"
	"os"
	"path/filepath"
	"regexp"
	"strconv"
	"strings"

	"github.com/usamaalam01/LabReportAI/internal/logger"
	"github.com/usamaalam01/LabReportAI/pkg/models"
)

// Chart color palette, matching the severity emoji in the markdown output.
var severityColor = map[string]string{
	models.SeverityNormal:     "#22c55e",
	models.SeverityBorderline: "#f59e0b",
	models.SeverityCritical:   "#ef4444",
}

// RangeBounds is a parsed numeric reference range.
type RangeBounds struct {
	Low  float64
	High float64
}

var (
	rangePattern   = regexp.MustCompile(`^([\d.]+)\s*[-–]\s*([\d.]+)`)
	lessPattern    = regexp.MustCompile(`^<\s*([\d.]+)`)
	greaterPattern = regexp.MustCompile(`^>\s*([\d.]+)`)
)

// ParseReferenceRange parses the reference ranges found on lab reports:
//
//	"13.0 - 17.0"  → (13.0, 17.0)
//	"< 200"        → (0, 200)
//	"> 40"         → (40, 120)   upper bound estimated at three times the floor
func ParseReferenceRange(ref string) (RangeBounds, bool) {
	ref = strings.TrimRight(strings.TrimSpace(ref), " *")
	if ref == "" || ref == "N/A" {
		return RangeBounds{}, false
	}

	if m := rangePattern.FindStringSubmatch(ref); m != nil {
		low, err1 := parseFloat(m[1])
		high, err2 := parseFloat(m[2])
		if err1 != nil || err2 != nil {
			return RangeBounds{}, false
		}
		return RangeBounds{Low: low, High: high}, true
	}
	if m := lessPattern.FindStringSubmatch(ref); m != nil {
		high, err := parseFloat(m[1])
		if err != nil {
			return RangeBounds{}, false
		}
		return RangeBounds{Low: 0, High: high}, true
	}
	if m := greaterPattern.FindStringSubmatch(ref); m != nil {
		low, err := parseFloat(m[1])
		if err != nil {
			return RangeBounds{}, false
		}
		return RangeBounds{Low: low, High: low * 3}, true
	}
	return RangeBounds{}, false
}

func parseFloat(s string) (float64, error) {
	return strconv.ParseFloat(s, 64)
}

// CategoryCharts holds the chart files generated for one category, in the
// same order as the category's tests.
type CategoryCharts struct {
	Bar    string
	Gauges []string
}

// Charts generates SVG charts for every category of the analysis into dir.
// A bar chart is produced per category with at least one numeric test, and a
// gauge per borderline or critical numeric test. Chart indices follow the
// analysis ordering so they line up with a translated copy of the structure.
func Charts(analysis *models.Analysis, dir string) (map[int]CategoryCharts, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create charts dir: %w", err)
	}

	log := logger.WithComponent("render")
	result := make(map[int]CategoryCharts)

	for idx, category := range analysis.Categories {
		var charts CategoryCharts

		if svg := barChartSVG(category); svg != "" {
			path := filepath.Join(dir, fmt.Sprintf("bar_%d.svg", idx))
			if err := os.WriteFile(path, []byte(svg), 0o644); err != nil {
				log.Warn().Err(err).Int("category", idx).Msg("Failed to write bar chart")
			} else {
				charts.Bar = path
			}
		}

		for testIdx, test := range category.Tests {
			if test.Severity != models.SeverityBorderline && test.Severity != models.SeverityCritical {
				continue
			}
			svg := gaugeChartSVG(test)
			if svg == "" {
				continue
			}
			path := filepath.Join(dir, fmt.Sprintf("gauge_%d_%d.svg", idx, testIdx))
			if err := os.WriteFile(path, []byte(svg), 0o644); err != nil {
				log.Warn().Err(err).Int("category", idx).Int("test", testIdx).Msg("Failed to write gauge chart")
				continue
			}
			charts.Gauges = append(charts.Gauges, path)
		}

		result[idx] = charts
	}

	log.Info().Int("categories", len(result)).Msg("Charts generated")
	return result, nil
}

type barDatum struct {
	name     string
	value    float64
	bounds   RangeBounds
	severity string
}

// barChartSVG draws each numeric test value against its reference range as
// horizontal bars. Returns "" when no test is chartable.
func barChartSVG(category models.Category) string {
	var data []barDatum
	for _, test := range category.Tests {
		value, ok := test.Value.Float()
		if !ok {
			continue
		}
		bounds, ok := ParseReferenceRange(test.ReferenceRange)
		if !ok {
			continue
		}
		data = append(data, barDatum{
			name:     orDefault(test.TestName, "Unknown"),
			value:    value,
			bounds:   bounds,
			severity: test.Severity,
		})
	}
	if len(data) == 0 {
		return ""
	}

	const (
		width     = 800
		rowHeight = 44
		topPad    = 40
		bottomPad = 30
		leftPad   = 190
		rightPad  = 70
	)
	height := topPad + bottomPad + rowHeight*len(data)
	plotWidth := float64(width - leftPad - rightPad)

	xMax := 0.0
	for _, d := range data {
		xMax = math.Max(xMax, math.Max(d.value, d.bounds.High))
	}
	xMax *= 1.2
	if xMax == 0 {
		xMax = 1
	}
	scale := func(v float64) float64 { return float64(leftPad) + v/xMax*plotWidth }

	var b strings.Builder
	fmt.Fprintf(&b, `<svg xmlns="http://www.w3.org/2000/svg" width="%d" height="%d" viewBox="0 0 %d %d">`+"\n", width, height, width, height)
	b.WriteString(`<rect width="100%" height="100%" fill="white"/>` + "\n")
	fmt.Fprintf(&b, `<text x="%d" y="24" font-family="sans-serif" font-size="15" font-weight="bold" fill="#1f2937">%s</text>`+"\n",
		leftPad, escapeXML(orDefault(category.Name, "Test Results")))

	for i, d := range data {
		y := float64(topPad + i*rowHeight)
		mid := y + rowHeight/2

		// Reference band
		fmt.Fprintf(&b, `<rect x="%.1f" y="%.1f" width="%.1f" height="%d" fill="#e5e7eb" stroke="#d1d5db" stroke-width="0.5"/>`+"\n",
			scale(d.bounds.Low), y+8, scale(d.bounds.High)-scale(d.bounds.Low), rowHeight-16)

		// Value bar
		color, ok := severityColor[d.severity]
		if !ok {
			color = severityColor[models.SeverityNormal]
		}
		fmt.Fprintf(&b, `<rect x="%d" y="%.1f" width="%.1f" height="%d" fill="%s" stroke="white" stroke-width="0.5"/>`+"\n",
			leftPad, y+14, scale(d.value)-float64(leftPad), rowHeight-28, color)

		// Test name and value label
		fmt.Fprintf(&b, `<text x="%d" y="%.1f" font-family="sans-serif" font-size="12" fill="#1f2937" text-anchor="end">%s</text>`+"\n",
			leftPad-8, mid+4, escapeXML(d.name))
		fmt.Fprintf(&b, `<text x="%.1f" y="%.1f" font-family="sans-serif" font-size="11" font-weight="bold" fill="#1f2937">%.1f</text>`+"\n",
			scale(d.value)+6, mid+4, d.value)
	}

	b.WriteString("</svg>\n")
	return b.String()
}

// gaugeChartSVG draws a speedometer gauge for one borderline or critical
// numeric test. Returns "" when the test has no numeric value or range.
func gaugeChartSVG(test models.Test) string {
	value, ok := test.Value.Float()
	if !ok {
		return ""
	}
	bounds, ok := ParseReferenceRange(test.ReferenceRange)
	if !ok {
		return ""
	}

	refRange := bounds.High - bounds.Low
	gaugeMin := math.Max(0, bounds.Low-refRange*0.5)
	gaugeMax := bounds.High + refRange*0.8
	if value > gaugeMax {
		gaugeMax = value * 1.2
	}
	if value < gaugeMin {
		gaugeMin = math.Max(0, value*0.8)
	}
	span := gaugeMax - gaugeMin
	if span <= 0 {
		return ""
	}

	// Gauge zones around the reference band. Borderline margins extend 15%
	// of the range on either side; anything past that is critical.
	margin := refRange * 0.15
	type zone struct {
		from, to float64
		color    string
	}
	var zones []zone
	if bounds.Low-margin > gaugeMin {
		zones = append(zones, zone{gaugeMin, bounds.Low - margin, severityColor[models.SeverityCritical]})
	}
	zones = append(zones,
		zone{math.Max(gaugeMin, bounds.Low-margin), bounds.Low, "#eab308"},
		zone{bounds.Low, bounds.High, severityColor[models.SeverityNormal]},
		zone{bounds.High, math.Min(gaugeMax, bounds.High+margin), "#eab308"},
	)
	if bounds.High+margin < gaugeMax {
		zones = append(zones, zone{bounds.High + margin, gaugeMax, severityColor[models.SeverityCritical]})
	}

	const (
		width  = 320
		height = 210
		cx     = 160.0
		cy     = 150.0
		rOuter = 110.0
		rInner = 76.0
	)

	// Map a gauge value to an angle on the upper semicircle: minimum on the
	// left (180°), maximum on the right (0°).
	angleFor := func(v float64) float64 {
		return math.Pi - (v-gaugeMin)/span*math.Pi
	}
	pointAt := func(r, angle float64) (float64, float64) {
		return cx + r*math.Cos(angle), cy - r*math.Sin(angle)
	}

	var b strings.Builder
	fmt.Fprintf(&b, `<svg xmlns="http://www.w3.org/2000/svg" width="%d" height="%d" viewBox="0 0 %d %d">`+"\n", width, height, width, height)
	b.WriteString(`<rect width="100%" height="100%" fill="white"/>` + "\n")

	for _, z := range zones {
		if z.to <= z.from {
			continue
		}
		a1 := angleFor(z.from)
		a2 := angleFor(z.to)
		ox1, oy1 := pointAt(rOuter, a1)
		ox2, oy2 := pointAt(rOuter, a2)
		ix1, iy1 := pointAt(rInner, a2)
		ix2, iy2 := pointAt(rInner, a1)
		fmt.Fprintf(&b, `<path d="M %.1f %.1f A %.1f %.1f 0 0 1 %.1f %.1f L %.1f %.1f A %.1f %.1f 0 0 0 %.1f %.1f Z" fill="%s" stroke="white" stroke-width="0.5"/>`+"\n",
			ox1, oy1, rOuter, rOuter, ox2, oy2, ix1, iy1, rInner, rInner, ix2, iy2, z.color)
	}

	// Needle
	needleAngle := angleFor(math.Min(math.Max(value, gaugeMin), gaugeMax))
	nx, ny := pointAt(rOuter*0.75, needleAngle)
	fmt.Fprintf(&b, `<line x1="%.1f" y1="%.1f" x2="%.1f" y2="%.1f" stroke="#1f2937" stroke-width="3"/>`+"\n", cx, cy, nx, ny)
	fmt.Fprintf(&b, `<circle cx="%.1f" cy="%.1f" r="6" fill="#1f2937"/>`+"\n", cx, cy)

	// Labels
	fmt.Fprintf(&b, `<text x="%.1f" y="26" font-family="sans-serif" font-size="13" font-weight="bold" fill="#1f2937" text-anchor="middle">%s</text>`+"\n",
		cx, escapeXML(test.TestName))
	fmt.Fprintf(&b, `<text x="%.1f" y="%.1f" font-family="sans-serif" font-size="18" font-weight="bold" fill="#1f2937" text-anchor="middle">%s</text>`+"\n",
		cx, cy+34, escapeXML(test.Value.String()))
	fmt.Fprintf(&b, `<text x="%.1f" y="%.1f" font-family="sans-serif" font-size="10" fill="#6b7280" text-anchor="middle">%s</text>`+"\n",
		cx, cy+50, escapeXML(test.Unit))
	fmt.Fprintf(&b, `<text x="%.1f" y="%.1f" font-family="sans-serif" font-size="9" fill="#9ca3af" text-anchor="middle">%.0f</text>`+"\n",
		cx-rOuter, cy+14, gaugeMin)
	fmt.Fprintf(&b, `<text x="%.1f" y="%.1f" font-family="sans-serif" font-size="9" fill="#9ca3af" text-anchor="middle">%.0f</text>`+"\n",
		cx+rOuter, cy+14, gaugeMax)

	b.WriteString("</svg>\n")
	return b.String()
}

func escapeXML(s string) string {
	r := strings.NewReplacer("&", "&amp;", "<", "&lt;", ">", "&gt;", `"`, "&quot;")
	return r.Replace(s)
}
