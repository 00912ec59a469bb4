// Package chart renders price and equity charts to standalone HTML pages.
package chart

import (
	"bytes"
	"fmt"
	"io"
	"math"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/go-echarts/go-echarts/v2/charts"
	"github.com/go-echarts/go-echarts/v2/components"
	"github.com/go-echarts/go-echarts/v2/opts"
	"github.com/rxtech-lab/feedback-trader/internal/indicator"
	"github.com/rxtech-lab/feedback-trader/internal/types"
	"github.com/rxtech-lab/feedback-trader/pkg/errors"
)

const (
	chartWidthPx   = 1200
	klineHeightPx  = 520
	volumeHeightPx = 200
	equityHeightPx = 420

	colorBull = "#26a69a"
	colorBear = "#ef5350"
)

var maColors = []string{"#f6c85f", "#6f4e7c", "#0b84a5", "#9dd866", "#ca472f"}

// PriceOptions controls RenderPrice.
type PriceOptions struct {
	Title string
	// MAWindows adds one simple moving average line per window.
	MAWindows []int
	// Frame resamples the series before drawing. Empty keeps the original bars.
	Frame types.Frame
	// Marks are drawn as scatter points, one legend entry per mark title.
	Marks []types.Mark
}

// DefaultMAWindows are the moving averages drawn when none are requested.
var DefaultMAWindows = []int{5, 20}

// RenderPrice writes a candlestick chart with moving average overlays and a
// volume panel for series.
func RenderPrice(w io.Writer, series types.TimeSeries, options PriceOptions) error {
	series = series.Resample(options.Frame)
	if series.IsEmpty() {
		return errors.Newf(errors.ErrCodeDataNotFound, "no bars to plot for %s", series.Symbol())
	}

	title := options.Title
	if title == "" {
		title = strings.ToUpper(series.Symbol())
	}

	page := components.NewPage()
	page.PageTitle = title
	page.SetLayout(components.PageFlexLayout)

	xAxis := buildXAxis(series.Times())

	kline := charts.NewKLine()
	kline.SetGlobalOptions(
		charts.WithInitializationOpts(opts.Initialization{
			Width:  fmt.Sprintf("%dpx", chartWidthPx),
			Height: fmt.Sprintf("%dpx", klineHeightPx),
		}),
		charts.WithTitleOpts(opts.Title{Title: title, Subtitle: subtitle(series, options.Frame)}),
		charts.WithLegendOpts(opts.Legend{Show: opts.Bool(true), Top: "30"}),
		charts.WithTooltipOpts(opts.Tooltip{Show: opts.Bool(true), Trigger: "axis"}),
		charts.WithDataZoomOpts(opts.DataZoom{Type: "slider", XAxisIndex: []int{0}}),
		charts.WithXAxisOpts(opts.XAxis{Type: "category"}),
		charts.WithYAxisOpts(opts.YAxis{Scale: opts.Bool(true)}),
	)
	kline.SetSeriesOptions(
		charts.WithItemStyleOpts(opts.ItemStyle{
			Color:        colorBull,
			Color0:       colorBear,
			BorderColor:  colorBull,
			BorderColor0: colorBear,
		}),
	)
	kline.SetXAxis(xAxis)
	kline.AddSeries("Price", buildKlineSeries(series.Bars()))

	maLine, err := buildMALine(series, options.MAWindows)
	if err != nil {
		return err
	}

	if maLine != nil {
		maLine.SetXAxis(xAxis)
		kline.Overlap(maLine)
	}

	if scatter := buildMarkScatter(series.Times(), options.Marks); scatter != nil {
		scatter.SetXAxis(xAxis)
		kline.Overlap(scatter)
	}

	page.AddCharts(kline)

	if volume := buildVolumeChart(xAxis, series.Bars()); volume != nil {
		page.AddCharts(volume)
	}

	return page.Render(w)
}

// RenderEquity writes the equity curve as a line chart.
func RenderEquity(w io.Writer, title string, curve []types.EquityPoint) error {
	if len(curve) == 0 {
		return errors.New(errors.ErrCodeDataNotFound, "equity curve is empty")
	}

	times := make([]string, len(curve))
	values := make([]opts.LineData, len(curve))

	for i, point := range curve {
		times[i] = point.Time.UTC().Format("2006-01-02")
		values[i] = opts.LineData{Value: round(point.Equity, 2)}
	}

	line := charts.NewLine()
	line.SetGlobalOptions(
		charts.WithInitializationOpts(opts.Initialization{
			Width:  fmt.Sprintf("%dpx", chartWidthPx),
			Height: fmt.Sprintf("%dpx", equityHeightPx),
		}),
		charts.WithTitleOpts(opts.Title{
			Title:    title,
			Subtitle: fmt.Sprintf("start %.2f | end %.2f", curve[0].Equity, curve[len(curve)-1].Equity),
		}),
		charts.WithTooltipOpts(opts.Tooltip{Show: opts.Bool(true), Trigger: "axis"}),
		charts.WithDataZoomOpts(opts.DataZoom{Type: "slider", XAxisIndex: []int{0}}),
		charts.WithYAxisOpts(opts.YAxis{Scale: opts.Bool(true)}),
	)
	line.SetSeriesOptions(charts.WithLineChartOpts(opts.LineChart{ShowSymbol: opts.Bool(false)}))
	line.SetXAxis(times)
	line.AddSeries("Equity", values, charts.WithLineStyleOpts(opts.LineStyle{Width: 2}))

	page := components.NewPage()
	page.PageTitle = title
	page.AddCharts(line)

	return page.Render(w)
}

// SaveHTML renders into memory first so a failed render never leaves a
// truncated file behind.
func SaveHTML(path string, render func(io.Writer) error) error {
	var buf bytes.Buffer
	if err := render(&buf); err != nil {
		return err
	}

	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return errors.Wrap(errors.ErrCodeResultWriteFailed, "failed to create chart directory", err)
		}
	}

	if err := os.WriteFile(path, buf.Bytes(), 0o644); err != nil {
		return errors.Wrapf(errors.ErrCodeResultWriteFailed, err, "failed to write chart %s", path)
	}

	return nil
}

func subtitle(series types.TimeSeries, frame types.Frame) string {
	first := series.At(0)
	last, _ := series.Last()

	if frame == "" {
		frame = types.FrameDaily
	}

	return fmt.Sprintf("%s | %s to %s | last close %.2f",
		frame, first.Time.Format("2006-01-02"), last.Time.Format("2006-01-02"), last.Close)
}

func buildXAxis(times []time.Time) []string {
	x := make([]string, len(times))
	for i, t := range times {
		x[i] = t.UTC().Format("2006-01-02")
	}

	return x
}

func buildKlineSeries(bars []types.Bar) []opts.KlineData {
	data := make([]opts.KlineData, 0, len(bars))
	for _, b := range bars {
		data = append(data, opts.KlineData{Value: [4]float64{b.Open, b.Close, b.Low, b.High}})
	}

	return data
}

// buildMALine skips windows longer than the series instead of failing the whole chart.
func buildMALine(series types.TimeSeries, windows []int) (*charts.Line, error) {
	if len(windows) == 0 {
		return nil, nil
	}

	closes := series.Closes()
	line := charts.NewLine()
	line.SetSeriesOptions(charts.WithLineChartOpts(opts.LineChart{ShowSymbol: opts.Bool(false)}))

	added := 0

	for i, window := range windows {
		if window <= 0 {
			return nil, errors.Newf(errors.ErrCodeInvalidParameter, "moving average window must be positive, got %d", window)
		}

		if window > len(closes) {
			continue
		}

		values, err := indicator.SMA(closes, window)
		if err != nil {
			return nil, err
		}

		line.AddSeries(fmt.Sprintf("MA%d", window), toLineData(values),
			charts.WithLineStyleOpts(opts.LineStyle{Color: maColors[i%len(maColors)], Width: 2}))

		added++
	}

	if added == 0 {
		return nil, nil
	}

	return line, nil
}

// buildMarkScatter snaps every mark to the last bar at or before its time, so
// fills stay visible on resampled charts. Marks before the first bar are dropped.
func buildMarkScatter(times []time.Time, marks []types.Mark) *charts.Scatter {
	if len(marks) == 0 {
		return nil
	}

	scatter := charts.NewScatter()
	series := map[string][]opts.ScatterData{}
	colors := map[string]types.MarkColor{}
	order := []string{}

	for _, mark := range marks {
		idx := sort.Search(len(times), func(i int) bool { return times[i].After(mark.Time) }) - 1
		if idx < 0 {
			continue
		}

		data, ok := series[mark.Title]
		if !ok {
			data = make([]opts.ScatterData, len(times))
			for i := range data {
				data[i] = opts.ScatterData{Value: "-"}
			}

			order = append(order, mark.Title)
			colors[mark.Title] = mark.Color
		}

		shape := mark.Shape
		if shape == "" {
			shape = types.MarkShapeCircle
		}

		data[idx] = opts.ScatterData{
			Name:       mark.Message,
			Value:      round(mark.Price, 4),
			Symbol:     string(shape),
			SymbolSize: 14,
		}
		series[mark.Title] = data
	}

	if len(order) == 0 {
		return nil
	}

	for _, title := range order {
		scatter.AddSeries(title, series[title],
			charts.WithItemStyleOpts(opts.ItemStyle{Color: string(colors[title])}))
	}

	return scatter
}

func buildVolumeChart(xAxis []string, bars []types.Bar) *charts.Bar {
	hasVolume := false
	vols := make([]opts.BarData, len(bars))

	for i, b := range bars {
		color := colorBear
		if b.Close >= b.Open {
			color = colorBull
		}

		if b.Volume.IsSome() {
			hasVolume = true
		}

		vols[i] = opts.BarData{
			Value:     b.Volume.TakeOr(0),
			ItemStyle: &opts.ItemStyle{Color: color, Opacity: opts.Float(0.6)},
		}
	}

	if !hasVolume {
		return nil
	}

	bar := charts.NewBar()
	bar.SetGlobalOptions(
		charts.WithInitializationOpts(opts.Initialization{
			Width:  fmt.Sprintf("%dpx", chartWidthPx),
			Height: fmt.Sprintf("%dpx", volumeHeightPx),
		}),
		charts.WithTitleOpts(opts.Title{Title: "Volume"}),
		charts.WithLegendOpts(opts.Legend{Show: opts.Bool(false)}),
		charts.WithTooltipOpts(opts.Tooltip{Show: opts.Bool(true), Trigger: "axis"}),
	)
	bar.SetXAxis(xAxis)
	bar.AddSeries("Volume", vols)

	return bar
}

// toLineData leaves warmup positions empty so echarts draws a gap.
func toLineData(values []float64) []opts.LineData {
	data := make([]opts.LineData, len(values))
	for i, v := range values {
		if math.IsNaN(v) {
			data[i] = opts.LineData{Value: "-"}

			continue
		}

		data[i] = opts.LineData{Value: round(v, 4)}
	}

	return data
}

func round(v float64, places int) float64 {
	p := math.Pow(10, float64(places))

	return math.Round(v*p) / p
}
