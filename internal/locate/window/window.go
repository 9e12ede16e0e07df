// Package window slices a chronologically ordered record stream into
// overlapping fixed-length time windows.
package window

import (
	"errors"
	"fmt"
	"iter"
	"math"
	"sort"

	"github.com/banshee-data/radiotrack/internal/locate"
)

// DefaultMinSites is the site count below which a window cannot yield a fix.
const DefaultMinSites = 2

// Window is one time slice of the record stream. Records holds indexes into
// the slices passed to New.
type Window struct {
	Index        int
	Center       float64
	Start        float64 // Center - size/2, inclusive
	End          float64 // Center + size/2, inclusive
	Records      []int
	Sites        []locate.SiteID // distinct, sorted
	Insufficient bool            // fewer than the minimum distinct sites
}

// Scheduler produces windows over a fixed record stream.
type Scheduler struct {
	timestamps []float64
	siteIDs    []locate.SiteID
	size       float64
	step       float64
	minSites   int
}

// Option configures a Scheduler.
type Option func(*Scheduler)

// WithMinSites overrides DefaultMinSites.
func WithMinSites(n int) Option {
	return func(s *Scheduler) { s.minSites = n }
}

// New validates the stream and window parameters. timestamps must be
// non-decreasing and siteIDs must be parallel to it.
func New(timestamps []float64, siteIDs []locate.SiteID, size, step float64, opts ...Option) (*Scheduler, error) {
	if !(size > 0) || math.IsInf(size, 0) {
		return nil, fmt.Errorf("window size %v must be positive", size)
	}
	if !(step > 0) || math.IsInf(step, 0) {
		return nil, fmt.Errorf("step size %v must be positive", step)
	}
	if len(timestamps) != len(siteIDs) {
		return nil, fmt.Errorf("%d timestamps but %d site IDs", len(timestamps), len(siteIDs))
	}
	for i, ts := range timestamps {
		if math.IsNaN(ts) || math.IsInf(ts, 0) {
			return nil, fmt.Errorf("timestamp %d is not finite", i)
		}
		if i > 0 && ts < timestamps[i-1] {
			return nil, errors.New("timestamps are not in chronological order")
		}
	}

	s := &Scheduler{
		timestamps: timestamps,
		siteIDs:    siteIDs,
		size:       size,
		step:       step,
		minSites:   DefaultMinSites,
	}
	for _, o := range opts {
		o(s)
	}
	if s.minSites < 1 {
		return nil, fmt.Errorf("minimum sites %d must be at least 1", s.minSites)
	}
	return s, nil
}

// Count returns how many windows Windows yields.
func (s *Scheduler) Count() int {
	if len(s.timestamps) == 0 {
		return 0
	}
	span := s.timestamps[len(s.timestamps)-1] - s.timestamps[0]
	// A span that is an exact multiple of the step can divide to just
	// below the integer; the tolerance keeps the last timestamp's window.
	return int(math.Floor(span/s.step*(1+1e-12))) + 1
}

// Windows returns a lazy sequence of windows whose centres start at the
// first timestamp and advance by the step size up to and including the
// last timestamp. Windows without enough sites are still yielded, flagged
// Insufficient, so callers can record gaps. The sequence may be iterated
// more than once.
func (s *Scheduler) Windows() iter.Seq[Window] {
	return func(yield func(Window) bool) {
		n := len(s.timestamps)
		if n == 0 {
			return
		}
		first := s.timestamps[0]
		half := s.size / 2
		count := s.Count()

		lo, hi := 0, 0
		for k := 0; k < count; k++ {
			c := first + float64(k)*s.step
			start, end := c-half, c+half
			for lo < n && s.timestamps[lo] < start {
				lo++
			}
			if hi < lo {
				hi = lo
			}
			for hi < n && s.timestamps[hi] <= end {
				hi++
			}

			w := Window{Index: k, Center: c, Start: start, End: end}
			seen := make(map[locate.SiteID]struct{})
			for i := lo; i < hi; i++ {
				w.Records = append(w.Records, i)
				if _, ok := seen[s.siteIDs[i]]; !ok {
					seen[s.siteIDs[i]] = struct{}{}
					w.Sites = append(w.Sites, s.siteIDs[i])
				}
			}
			sort.Slice(w.Sites, func(i, j int) bool { return w.Sites[i] < w.Sites[j] })
			w.Insufficient = len(w.Sites) < s.minSites

			if !yield(w) {
				return
			}
		}
	}
}
