package dashboard

// Top-holders bar chart rendered to a PNG for Telegram.

import (
	"fmt"
	"image/color"
	"os"
	"path/filepath"

	"vybe-pulse/internal/clients_api/vybe"
	logging "vybe-pulse/internal/infra/log"

	"github.com/fogleman/gg"
	"go.uber.org/zap"
)

const (
	chartWidth  = 1200
	chartHeight = 700

	chartAreaLeft   = 100.0
	chartAreaRight  = 1100.0
	chartAreaTop    = 120.0
	chartAreaBottom = 600.0

	barSpacing    = 40.0
	labelOffsetY  = 30.0
	valueOffsetY  = 12.0
	titleX        = 100.0
	titleY        = 70.0
	chartFontSize = 22.0
)

// chartFontPaths lists candidate font files; DrawString falls back to
// the built-in bitmap face when none loads.
var chartFontPaths = []string{
	"etc/fonts/Inter-Regular.ttf",
	"/usr/share/fonts/truetype/dejavu/DejaVuSans.ttf",
	"/usr/share/fonts/truetype/liberation/LiberationSans-Regular.ttf",
	"/System/Library/Fonts/Supplemental/Arial.ttf",
}

// RenderHoldersChart draws a supply-share bar chart for the token's
// top holders and writes it under dataDir/charts. Returns the PNG
// path.
func RenderHoldersChart(dataDir, symbol string, holders []vybe.TokenHolder) (string, error) {
	if len(holders) == 0 {
		return "", fmt.Errorf("no holder data to chart")
	}

	dc := gg.NewContext(chartWidth, chartHeight)
	dc.SetColor(color.Black)
	dc.Clear()

	for _, fontPath := range chartFontPaths {
		if _, err := os.Stat(fontPath); err == nil {
			if err := dc.LoadFontFace(fontPath, chartFontSize); err == nil {
				break
			}
			logging.LogWarn("Font file exists but failed to load", zap.String("path", fontPath))
		}
	}

	dc.SetColor(color.White)
	dc.DrawString(fmt.Sprintf("Top %s holders — %% of supply", symbol), titleX, titleY)

	maxPct := holders[0].PercentageOfSupply
	for _, h := range holders {
		if h.PercentageOfSupply > maxPct {
			maxPct = h.PercentageOfSupply
		}
	}
	if maxPct <= 0 {
		maxPct = 1
	}

	areaWidth := chartAreaRight - chartAreaLeft
	areaHeight := chartAreaBottom - chartAreaTop
	barWidth := (areaWidth - barSpacing*float64(len(holders)-1)) / float64(len(holders))

	for i, h := range holders {
		barHeight := areaHeight * (h.PercentageOfSupply / maxPct)
		x := chartAreaLeft + float64(i)*(barWidth+barSpacing)
		y := chartAreaBottom - barHeight

		dc.SetColor(color.RGBA{R: 64, G: 156, B: 255, A: 255})
		dc.DrawRectangle(x, y, barWidth, barHeight)
		dc.Fill()

		dc.SetColor(color.White)
		dc.DrawStringAnchored(fmt.Sprintf("%.2f%%", h.PercentageOfSupply), x+barWidth/2, y-valueOffsetY, 0.5, 0)

		label := h.OwnerName
		if label == "" {
			label = ShortAddr(h.OwnerAddress)
		}
		dc.DrawStringAnchored(label, x+barWidth/2, chartAreaBottom+labelOffsetY, 0.5, 0)
	}

	chartsDir := filepath.Join(dataDir, "charts")
	if err := os.MkdirAll(chartsDir, 0755); err != nil {
		return "", fmt.Errorf("failed to create charts directory: %w", err)
	}
	outPath := filepath.Join(chartsDir, fmt.Sprintf("holders_%s.png", symbol))
	if err := dc.SavePNG(outPath); err != nil {
		return "", fmt.Errorf("failed to save holders chart: %w", err)
	}
	return outPath, nil
}
