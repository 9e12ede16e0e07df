// Command gen-synthetic seeds a radiotrack database with the triangle test
// sites, their calibration tables and signal records for a transmitter
// moving in a straight line between two points.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"log"
	"os"
	"strconv"
	"strings"

	"github.com/banshee-data/radiotrack/internal/locate"
	"github.com/banshee-data/radiotrack/internal/locate/synth"
	"github.com/banshee-data/radiotrack/internal/store/sqlite"
)

type options struct {
	dbPath        string
	deploymentID  int64
	transmitterID string
	calibrationID string
	start         float64
	duration      float64
	interval      float64
	noise         float64
	seed          uint64
	from          locate.Point
	to            locate.Point
	manual        bool
}

func parseFlags(args []string) (*options, error) {
	var (
		o        options
		from, to string
	)
	fs := flag.NewFlagSet("gen-synthetic", flag.ContinueOnError)
	fs.StringVar(&o.dbPath, "db", "radiotrack.db", "path to sqlite db")
	fs.Int64Var(&o.deploymentID, "deployment", 1, "deployment ID to create")
	fs.StringVar(&o.transmitterID, "transmitter", "tx-1", "transmitter ID")
	fs.StringVar(&o.calibrationID, "calibration", "default", "calibration ID for the steering vectors")
	fs.Float64Var(&o.start, "start", 0, "deployment start (unix seconds)")
	fs.Float64Var(&o.duration, "duration", 3600, "path duration in seconds")
	fs.Float64Var(&o.interval, "interval", 10, "seconds between pulses")
	fs.Float64Var(&o.noise, "noise", 0.05, "per-component complex noise standard deviation")
	fs.Uint64Var(&o.seed, "seed", 1, "noise seed")
	fs.StringVar(&from, "from", "40,30", "start position as easting,northing")
	fs.StringVar(&to, "to", "60,40", "end position as easting,northing")
	fs.BoolVar(&o.manual, "manual", false, "also store the true bearing as the manual bearing")
	if err := fs.Parse(args); err != nil {
		return nil, err
	}
	if o.duration <= 0 || o.interval <= 0 {
		return nil, errors.New("duration and interval must be positive")
	}

	var err error
	if o.from, err = parsePoint(from); err != nil {
		return nil, fmt.Errorf("-from: %w", err)
	}
	if o.to, err = parsePoint(to); err != nil {
		return nil, fmt.Errorf("-to: %w", err)
	}
	return &o, nil
}

func parsePoint(s string) (locate.Point, error) {
	parts := strings.Split(s, ",")
	if len(parts) != 2 {
		return locate.Point{}, fmt.Errorf("want easting,northing, got %q", s)
	}
	x, err := strconv.ParseFloat(strings.TrimSpace(parts[0]), 64)
	if err != nil {
		return locate.Point{}, err
	}
	y, err := strconv.ParseFloat(strings.TrimSpace(parts[1]), 64)
	if err != nil {
		return locate.Point{}, err
	}
	return locate.Point{X: x, Y: y}, nil
}

func (o *options) scenario() synth.Scenario {
	return synth.Scenario{
		Sites: synth.TriangleSites(),
		Path: []synth.Waypoint{
			{Time: o.start, Position: o.from},
			{Time: o.start + o.duration, Position: o.to},
		},
		PulseInterval: o.interval,
		NoiseStdDev:   o.noise,
		Seed:          o.seed,
	}
}

// seed writes sites, calibration, the deployment and its records. It
// returns the number of records written.
func seed(ctx context.Context, store *sqlite.Store, o *options) (int, error) {
	sc := o.scenario()
	for _, site := range sc.Sites {
		if err := store.InsertSite(ctx, site, "synthetic"); err != nil {
			return 0, err
		}
		set := synth.SteeringSet(site.ID, o.calibrationID, synth.DefaultChannels)
		if err := store.InsertSteeringVectors(ctx, set); err != nil {
			return 0, err
		}
	}

	d := locate.Deployment{
		ID:            o.deploymentID,
		TransmitterID: o.transmitterID,
		Start:         o.start,
		End:           o.start + o.duration,
	}
	if err := store.InsertDeployment(ctx, d); err != nil {
		return 0, err
	}

	recs := sc.Records()
	positions := make(map[locate.SiteID]locate.Point, len(sc.Sites))
	for _, s := range sc.Sites {
		positions[s.ID] = s.Position
	}
	for i := range recs {
		// IDs are assigned by the database so repeated runs append.
		recs[i].ID = 0
		if o.manual {
			b := positions[recs[i].SiteID].BearingTo(sc.PositionAt(recs[i].Timestamp))
			recs[i].ManualBearing = &b
		}
	}
	if err := store.InsertSignalRecords(ctx, o.transmitterID, recs); err != nil {
		return 0, err
	}
	return len(recs), nil
}

func run(ctx context.Context, args []string, out io.Writer) error {
	o, err := parseFlags(args)
	if err != nil {
		return err
	}
	store, err := sqlite.Open(o.dbPath)
	if err != nil {
		return err
	}
	defer store.Close()

	n, err := seed(ctx, store, o)
	if err != nil {
		return err
	}
	fmt.Fprintf(out, "deployment %d (%s): %d records over %.0fs at %s\n",
		o.deploymentID, o.transmitterID, n, o.duration, o.dbPath)
	return nil
}

func main() {
	if err := run(context.Background(), os.Args[1:], os.Stdout); err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return
		}
		log.Fatalf("gen-synthetic: %v", err)
	}
}
