package shell

import (
	"context"
	"fmt"
	"io"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/moznion/go-optional"
	"github.com/urfave/cli/v3"
	"go.uber.org/zap"

	"github.com/rxtech-lab/feedback-trader/internal/chart"
	"github.com/rxtech-lab/feedback-trader/internal/types"
	"github.com/rxtech-lab/feedback-trader/pkg/errors"
	"github.com/rxtech-lab/feedback-trader/pkg/marketdata"
	"github.com/rxtech-lab/feedback-trader/pkg/marketdata/provider"
)

const plotUsage = "Usage: plot SYMBOL [--start YYYY-MM-DD] [--end YYYY-MM-DD] [--frame daily|weekly] [--source csv|polygon|binance] [--refresh] [--output file.html] [--ma 5,20]"

// PlotOptions are the parsed arguments of the plot command.
type PlotOptions struct {
	Symbol  string
	Start   optional.Option[time.Time]
	End     optional.Option[time.Time]
	Frame   types.Frame
	Source  provider.Source
	Refresh bool
	Output  string
	MA      []int
}

// PlotFlags are shared by the shell's plot command and the plot CLI command.
func PlotFlags() []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{Name: "start", Aliases: []string{"s"}, Usage: "First date in `YYYY-MM-DD` or YYYYMMDD format"},
		&cli.StringFlag{Name: "end", Aliases: []string{"e"}, Usage: "Last date in `YYYY-MM-DD` or YYYYMMDD format"},
		&cli.StringFlag{Name: "frame", Aliases: []string{"f"}, Usage: "Bar frame: daily, weekly or monthly", Value: string(types.FrameDaily)},
		&cli.StringFlag{Name: "source", Usage: "Data source", Value: string(provider.SourceCSV)},
		&cli.BoolFlag{Name: "refresh", Usage: "Ignore the cache and fetch again"},
		&cli.StringFlag{Name: "output", Aliases: []string{"o"}, Usage: "Output HTML file"},
		&cli.StringFlag{Name: "ma", Usage: "Comma separated moving average windows", Value: "5,20"},
	}
}

// ParsePlotOptions reads the plot flags of cmd. symbol is the positional argument.
func ParsePlotOptions(cmd *cli.Command, symbol string) (PlotOptions, error) {
	opts := PlotOptions{
		Symbol:  symbol,
		Frame:   types.Frame(strings.ToLower(cmd.String("frame"))),
		Source:  provider.Source(strings.ToLower(cmd.String("source"))),
		Refresh: cmd.Bool("refresh"),
		Output:  cmd.String("output"),
	}

	switch opts.Frame {
	case types.FrameDaily, types.FrameWeekly, types.FrameMonthly:
	default:
		return opts, fmt.Errorf("invalid --frame value: %s", opts.Frame)
	}

	var err error
	if opts.Start, err = parsePlotDate(cmd.String("start")); err != nil {
		return opts, err
	}

	if opts.End, err = parsePlotDate(cmd.String("end")); err != nil {
		return opts, err
	}

	if opts.MA, err = parseMA(cmd.String("ma")); err != nil {
		return opts, err
	}

	return opts, nil
}

func (s *Shell) plot(ctx context.Context, args []string) {
	if len(args) == 0 {
		s.println(plotUsage)

		return
	}

	cmd := &cli.Command{
		Name:            "plot",
		Usage:           "Plot cached OHLC data",
		Flags:           PlotFlags(),
		Writer:          s.out,
		ErrWriter:       s.out,
		HideHelpCommand: true,
		ExitErrHandler:  func(context.Context, *cli.Command, error) {},
		Action: func(ctx context.Context, cmd *cli.Command) error {
			if cmd.NArg() == 0 {
				s.println(plotUsage)

				return nil
			}

			opts, err := ParsePlotOptions(cmd, cmd.Args().First())
			if err != nil {
				return err
			}

			path, err := Plot(ctx, s.history, opts, s.cfg.PlotsDir)
			if err != nil {
				return err
			}

			s.println("Saved chart to " + path)

			return nil
		},
	}

	if err := cmd.Run(ctx, append([]string{"plot"}, symbolLast(args)...)); err != nil {
		s.log.Error("Plot failed", zap.Strings("args", args), zap.Error(err))
		s.println(ErrorStyle.Render(err.Error()))
	}
}

// Plot fetches the history for opts and renders it to an HTML file. The file
// defaults to <plotsDir>/<symbol>_<frame>.html.
func Plot(ctx context.Context, history HistoryGetter, opts PlotOptions, plotsDir string) (string, error) {
	if history == nil {
		return "", errors.New(errors.ErrCodeMissingParameter, "no data source configured")
	}

	req := marketdata.DefaultHistoryRequest(opts.Symbol)
	req.Start = opts.Start
	req.End = opts.End
	req.Source = opts.Source
	req.Refresh = opts.Refresh

	series, err := history.GetHistory(ctx, req)
	if err != nil {
		return "", fmt.Errorf("failed to fetch data: %w", err)
	}

	if series.IsEmpty() {
		return "", errors.Newf(errors.ErrCodeDataNotFound, "no data to plot for %s", opts.Symbol)
	}

	path := opts.Output
	if path == "" {
		name := fmt.Sprintf("%s_%s.html", provider.SanitizeKey(filepath.Base(opts.Symbol)), opts.Frame)
		path = filepath.Join(plotsDir, name)
	}

	windows := opts.MA
	if windows == nil {
		windows = chart.DefaultMAWindows
	}

	err = chart.SaveHTML(path, func(w io.Writer) error {
		return chart.RenderPrice(w, series, chart.PriceOptions{
			Title:     fmt.Sprintf("%s (%s)", opts.Symbol, opts.Frame),
			MAWindows: windows,
			Frame:     opts.Frame,
		})
	})
	if err != nil {
		return "", fmt.Errorf("plot failed: %w", err)
	}

	return path, nil
}

// symbolLast moves a leading positional symbol behind the flags, since flag
// parsing stops at the first positional argument.
func symbolLast(args []string) []string {
	if len(args) == 0 || strings.HasPrefix(args[0], "-") {
		return args
	}

	out := append([]string{}, args[1:]...)

	return append(out, args[0])
}

func parsePlotDate(value string) (optional.Option[time.Time], error) {
	if value == "" {
		return optional.None[time.Time](), nil
	}

	if t, err := time.Parse("20060102", value); err == nil {
		return optional.Some(t), nil
	}

	t, err := marketdata.ParseDate(value)
	if err != nil {
		return optional.None[time.Time](), fmt.Errorf("invalid date: %s", value)
	}

	return optional.Some(t), nil
}

func parseMA(raw string) ([]int, error) {
	windows := []int{}

	for _, part := range strings.Split(raw, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}

		n, err := strconv.Atoi(part)
		if err != nil || n <= 0 {
			return nil, fmt.Errorf("invalid --ma value: %s", raw)
		}

		windows = append(windows, n)
	}

	return windows, nil
}
