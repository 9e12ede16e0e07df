package window

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/banshee-data/radiotrack/internal/locate"
)

func collect(s *Scheduler) []Window {
	var out []Window
	for w := range s.Windows() {
		out = append(out, w)
	}
	return out
}

func TestOverlappingWindows(t *testing.T) {
	t.Parallel()
	ts := []float64{0, 0, 5, 10, 10, 20}
	sites := []locate.SiteID{"a", "b", "a", "b", "a", "c"}

	s, err := New(ts, sites, 10, 5)
	require.NoError(t, err)
	ws := collect(s)
	require.Len(t, ws, 5)
	assert.Equal(t, 5, s.Count())

	// Centre 0: [-5, 5]
	assert.Equal(t, 0.0, ws[0].Center)
	assert.Equal(t, []int{0, 1, 2}, ws[0].Records)
	assert.Equal(t, []locate.SiteID{"a", "b"}, ws[0].Sites)
	assert.False(t, ws[0].Insufficient)

	// Centre 5: [0, 10], both bounds inclusive
	assert.Equal(t, []int{0, 1, 2, 3, 4}, ws[1].Records)

	// Centre 15: [10, 20]
	assert.Equal(t, 15.0, ws[3].Center)
	assert.Equal(t, []int{3, 4, 5}, ws[3].Records)
	assert.Equal(t, []locate.SiteID{"a", "b", "c"}, ws[3].Sites)

	// Centre 20: [15, 25] holds only site c.
	assert.Equal(t, 20.0, ws[4].Center)
	assert.Equal(t, []int{5}, ws[4].Records)
	assert.True(t, ws[4].Insufficient)

	for i, w := range ws {
		assert.Equal(t, i, w.Index)
		assert.Equal(t, w.Center-5, w.Start)
		assert.Equal(t, w.Center+5, w.End)
	}
}

func TestGapWindowsAreFlagged(t *testing.T) {
	t.Parallel()
	ts := []float64{0, 0, 100, 100}
	sites := []locate.SiteID{"a", "b", "a", "b"}

	s, err := New(ts, sites, 10, 25)
	require.NoError(t, err)
	ws := collect(s)
	require.Len(t, ws, 5)
	assert.False(t, ws[0].Insufficient)
	for _, w := range ws[1:4] {
		assert.Empty(t, w.Records)
		assert.True(t, w.Insufficient)
	}
	assert.False(t, ws[4].Insufficient)
	assert.Equal(t, []int{2, 3}, ws[4].Records)
}

func TestStepLargerThanWindowSkipsRecords(t *testing.T) {
	t.Parallel()
	ts := []float64{0, 3, 6, 9, 12}
	sites := []locate.SiteID{"a", "b", "a", "b", "a"}

	s, err := New(ts, sites, 2, 6)
	require.NoError(t, err)
	ws := collect(s)
	require.Len(t, ws, 3)
	assert.Equal(t, []int{0}, ws[0].Records)
	assert.Equal(t, []int{2}, ws[1].Records)
	assert.Equal(t, []int{4}, ws[2].Records)
}

func TestLastTimestampKeepsItsWindow(t *testing.T) {
	t.Parallel()
	// 0.3/0.1 evaluates to 2.9999999999999996.
	s, err := New([]float64{0, 0.3}, []locate.SiteID{"a", "b"}, 0.05, 0.1)
	require.NoError(t, err)
	assert.Equal(t, 4, s.Count())

	ws := collect(s)
	require.Len(t, ws, 4)
	last := ws[len(ws)-1]
	assert.InDelta(t, 0.3, last.Center, 1e-9)
	assert.Equal(t, []int{1}, last.Records)
	assert.Equal(t, []locate.SiteID{"b"}, last.Sites)
	assert.True(t, last.Insufficient)
	assert.Empty(t, ws[1].Records)
}

func TestMinSitesOption(t *testing.T) {
	t.Parallel()
	ts := []float64{0, 0, 0}
	sites := []locate.SiteID{"a", "b", "b"}

	s, err := New(ts, sites, 1, 1, WithMinSites(3))
	require.NoError(t, err)
	ws := collect(s)
	require.Len(t, ws, 1)
	assert.True(t, ws[0].Insufficient)
	assert.Len(t, ws[0].Records, 3)

	_, err = New(ts, sites, 1, 1, WithMinSites(0))
	assert.Error(t, err)
}

func TestEmptyInput(t *testing.T) {
	t.Parallel()
	s, err := New(nil, nil, 10, 5)
	require.NoError(t, err)
	assert.Empty(t, collect(s))
	assert.Equal(t, 0, s.Count())
}

func TestRestartableAndEarlyStop(t *testing.T) {
	t.Parallel()
	ts := []float64{0, 1, 2, 3, 4, 5}
	sites := []locate.SiteID{"a", "b", "a", "b", "a", "b"}
	s, err := New(ts, sites, 2, 1)
	require.NoError(t, err)

	first := collect(s)
	second := collect(s)
	assert.Equal(t, first, second)

	n := 0
	for range s.Windows() {
		n++
		if n == 2 {
			break
		}
	}
	assert.Equal(t, 2, n)
}

func TestNewRejectsBadInput(t *testing.T) {
	t.Parallel()
	tests := []struct {
		name  string
		ts    []float64
		sites []locate.SiteID
		size  float64
		step  float64
	}{
		{"zero size", []float64{0}, []locate.SiteID{"a"}, 0, 1},
		{"negative step", []float64{0}, []locate.SiteID{"a"}, 1, -1},
		{"length mismatch", []float64{0, 1}, []locate.SiteID{"a"}, 1, 1},
		{"out of order", []float64{2, 1}, []locate.SiteID{"a", "b"}, 1, 1},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := New(tt.ts, tt.sites, tt.size, tt.step)
			assert.Error(t, err)
		})
	}
}
