// Command locate estimates positions and reconstructs tracks for one or
// more deployments stored in a radiotrack database.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"path/filepath"
	"strconv"
	"strings"
	"syscall"

	"github.com/banshee-data/radiotrack/internal/config"
	"github.com/banshee-data/radiotrack/internal/locate"
	"github.com/banshee-data/radiotrack/internal/locate/pipeline"
	"github.com/banshee-data/radiotrack/internal/locate/track"
	"github.com/banshee-data/radiotrack/internal/monitoring"
	"github.com/banshee-data/radiotrack/internal/report"
	"github.com/banshee-data/radiotrack/internal/store/sqlite"
	"github.com/banshee-data/radiotrack/internal/units"
	"github.com/banshee-data/radiotrack/internal/version"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, os.Args[1:], os.Stdout); err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return
		}
		fmt.Fprintf(os.Stderr, "locate: %v\n", err)
		os.Exit(1)
	}
}

type options struct {
	dbPath      string
	configPath  string
	deployments []int64
	start       float64
	end         float64
	plotDir     string
	htmlDir     string
	debug       bool
	version     bool
}

func parseFlags(args []string) (*options, error) {
	var (
		o           options
		deployments string
	)
	fs := flag.NewFlagSet("locate", flag.ContinueOnError)
	fs.StringVar(&o.dbPath, "db", "radiotrack.db", "path to sqlite db")
	fs.StringVar(&o.configPath, "config", "", "estimation config file (.json or .yaml); built-in defaults when empty")
	fs.StringVar(&deployments, "deployment", "", "comma-separated deployment IDs")
	fs.Float64Var(&o.start, "start", 0, "range start (unix seconds); 0 with -end 0 covers the whole deployment")
	fs.Float64Var(&o.end, "end", 0, "range end (unix seconds)")
	fs.StringVar(&o.plotDir, "plots", "", "write PNG plots under this directory")
	fs.StringVar(&o.htmlDir, "html", "", "write HTML charts under this directory")
	fs.BoolVar(&o.debug, "debug", false, "development logging")
	fs.BoolVar(&o.version, "version", false, "print version and exit")
	if err := fs.Parse(args); err != nil {
		return nil, err
	}
	if o.version {
		return &o, nil
	}

	ids, err := parseDeployments(deployments)
	if err != nil {
		return nil, err
	}
	o.deployments = ids
	return &o, nil
}

func parseDeployments(s string) ([]int64, error) {
	if strings.TrimSpace(s) == "" {
		return nil, errors.New("at least one -deployment is required")
	}
	var ids []int64
	for _, part := range strings.Split(s, ",") {
		id, err := strconv.ParseInt(strings.TrimSpace(part), 10, 64)
		if err != nil {
			return nil, fmt.Errorf("invalid deployment %q: %w", part, err)
		}
		ids = append(ids, id)
	}
	return ids, nil
}

func loadConfig(path string) (*config.EstimationConfig, error) {
	if path == "" {
		return config.DefaultEstimationConfig(), nil
	}
	return config.LoadEstimationConfig(path)
}

func run(ctx context.Context, args []string, out io.Writer) error {
	o, err := parseFlags(args)
	if err != nil {
		return err
	}
	if o.version {
		fmt.Fprintf(out, "locate %s\n", version.String())
		return nil
	}

	logger, err := monitoring.NewZapLogger(o.debug)
	if err != nil {
		return err
	}
	defer logger.Sync()
	monitoring.SetLogger(monitoring.ZapLogf(logger.Sugar()))

	cfg, err := loadConfig(o.configPath)
	if err != nil {
		return err
	}

	store, err := sqlite.Open(o.dbPath)
	if err != nil {
		return err
	}
	defer store.Close()

	runner, err := pipeline.NewRunner(store, store, store, cfg)
	if err != nil {
		return err
	}

	jobs := make([]pipeline.Job, len(o.deployments))
	for i, id := range o.deployments {
		jobs[i] = pipeline.Job{DeploymentID: id, Start: o.start, End: o.end}
	}

	var failed int
	for _, res := range runner.RunMany(ctx, jobs) {
		printResult(out, res, cfg.GetSpeedUnits())
		if res.Err != nil {
			failed++
			continue
		}
		if err := writeReports(ctx, o, runner, res); err != nil {
			return err
		}
	}
	if failed > 0 {
		return fmt.Errorf("%d of %d jobs failed", failed, len(jobs))
	}
	return nil
}

func printResult(w io.Writer, res *pipeline.Result, unit string) {
	r := res.Run
	fmt.Fprintf(w, "deployment %d run %s: %s\n", r.DeploymentID, r.RunID, r.Status)
	if res.Err != nil {
		fmt.Fprintf(w, "  error: %v\n", res.Err)
	}
	fmt.Fprintf(w, "  range %.0f-%.0f records %d (skipped %d) windows %d/%d gaps %d\n",
		r.Start, r.End, r.RecordsRead, r.RecordsSkipped, r.WindowsEstimated, r.WindowsTotal, len(res.Gaps))
	if res.Track == nil {
		return
	}
	s := track.SummaryIn(res.Track.Summary, unit)
	label := units.Label(unit)
	fmt.Fprintf(w, "  track %d points score %.3f duration %.0fs path %.1fm\n",
		s.PointCount, res.Track.Score, s.Duration, s.PathLength)
	fmt.Fprintf(w, "  speed mean %.2f %s (sd %.2f) max %.2f %s\n",
		s.MeanSpeed, label, s.StdDevSpeed, s.MaxSpeed, label)
}

func writeReports(ctx context.Context, o *options, runner *pipeline.Runner, res *pipeline.Result) error {
	if o.plotDir == "" && o.htmlDir == "" {
		return nil
	}
	sites, err := runner.Calibration.Sites(ctx)
	if err != nil {
		return err
	}
	name := fmt.Sprintf("deployment_%d", res.Run.DeploymentID)
	rep := report.Run{
		Title:     fmt.Sprintf("Deployment %d", res.Run.DeploymentID),
		Sites:     sites,
		Positions: res.Positions,
		Track:     res.Track,
	}

	if o.plotDir != "" {
		curves, err := firstPulseCurves(ctx, runner, res)
		if err != nil {
			return err
		}
		files, err := report.WritePlots(filepath.Join(o.plotDir, name), rep, curves)
		if err != nil && !errors.Is(err, report.ErrNothingToPlot) {
			return err
		}
		for _, f := range files {
			monitoring.Logf("wrote %s", f)
		}
	}
	if o.htmlDir != "" {
		if err := os.MkdirAll(o.htmlDir, 0755); err != nil {
			return fmt.Errorf("create html dir: %w", err)
		}
		path := filepath.Join(o.htmlDir, name+".html")
		if err := report.WriteHTML(path, rep); err != nil {
			return err
		}
		monitoring.Logf("wrote %s", path)
	}
	return nil
}

// firstPulseCurves scores the first usable record of each site in the run's
// range, giving one bearing likelihood curve per site.
func firstPulseCurves(ctx context.Context, runner *pipeline.Runner, res *pipeline.Result) ([]report.Curve, error) {
	recs, err := runner.Signals.SignalRecords(ctx, res.Run.DeploymentID, res.Run.Start, res.Run.End)
	if err != nil {
		return nil, err
	}
	src, _ := locate.ParseBearingSource(runner.Config.GetBearingSource())
	sigma := runner.Config.GetManualBearingSigmaDeg()

	seen := make(map[locate.SiteID]bool)
	var curves []report.Curve
	for i := range recs {
		rec := &recs[i]
		if seen[rec.SiteID] {
			continue
		}
		set, err := runner.Calibration.SteeringVectors(ctx, rec.SiteID)
		if err != nil && !errors.Is(err, locate.ErrCalibrationMissing) {
			return nil, err
		}
		l, err := runner.Engine.Record(rec, set, src, sigma)
		if err != nil {
			continue
		}
		seen[rec.SiteID] = true
		curves = append(curves, report.Curve{Label: string(rec.SiteID), Likelihood: &l})
	}
	return curves, nil
}
