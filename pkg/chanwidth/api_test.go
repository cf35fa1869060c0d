package chanwidth

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"chanwidth/internal/storage"
)

func writeFixture(t *testing.T, name, doc string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(doc), 0o644))
	return path
}

func fixtureArch(t *testing.T) string {
	return writeFixture(t, "arch.json", `{
		"name": "k4-bidir",
		"directionality": "bidir",
		"route_type": "detailed",
		"fs": 3,
		"chan_width": {
			"io_relative_width": 1,
			"x": {"kind": "uniform", "peak": 1},
			"y": {"kind": "uniform", "peak": 1}
		}
	}`)
}

// fixtureDevice is a 4x4 grid with 30 nets: the capacity oracle needs three
// tracks per channel to route it.
func fixtureDevice(t *testing.T) string {
	var b strings.Builder
	b.WriteString(`{"name": "grid4", "nx": 4, "ny": 4,
		"block_types": [{"name": "clb", "num_pins": 6, "num_classes": 2}],
		"blocks": [`)
	for i := 0; i < 16; i++ {
		if i > 0 {
			b.WriteString(",")
		}
		fmt.Fprintf(&b, `{"id": %d, "type": "clb"}`, i)
	}
	b.WriteString(`], "nets": [`)
	for i := 0; i < 30; i++ {
		if i > 0 {
			b.WriteString(",")
		}
		fmt.Fprintf(&b, `{"id": %d, "blocks": [%d, %d]}`, i, i%16, (i+1)%16)
	}
	b.WriteString(`]}`)
	return writeFixture(t, "device.json", b.String())
}

func newTestClient(t *testing.T) *Client {
	t.Helper()
	store := storage.NewMemoryStore()
	require.NoError(t, store.Init(context.Background()))
	return NewClientWithStore(store)
}

func TestSearchPersistsRunAndReport(t *testing.T) {
	ctx := context.Background()
	c := newTestClient(t)

	summary, err := c.Search(ctx, SearchRequest{
		RunID:      "run-1",
		ArchPath:   fixtureArch(t),
		DevicePath: fixtureDevice(t),
	})
	require.NoError(t, err)
	require.True(t, summary.Feasible)
	require.Equal(t, 3, summary.Final)
	require.Equal(t, "run-1", summary.RunID)
	require.NotZero(t, summary.Trials)

	runs, err := c.Runs(ctx)
	require.NoError(t, err)
	require.Len(t, runs, 1)
	require.Equal(t, 3, runs[0].Final)

	trials, err := c.TrialHistory(ctx, "run-1")
	require.NoError(t, err)
	require.Len(t, trials, summary.Trials)

	report, err := c.Report(ctx, "run-1")
	require.NoError(t, err)
	require.Equal(t, 3, report.Final)
	require.NotEmpty(t, report.Series)
	require.Equal(t, 3, report.XChannels.Min)
}

func TestSearchGeneratesRunID(t *testing.T) {
	c := newTestClient(t)

	summary, err := c.Search(context.Background(), SearchRequest{
		ArchPath:   fixtureArch(t),
		DevicePath: fixtureDevice(t),
	})
	require.NoError(t, err)
	require.NotEmpty(t, summary.RunID)
}

func TestSearchInfeasibleIsNormalNegative(t *testing.T) {
	ctx := context.Background()
	c := newTestClient(t)

	// Fs 18 needs at least six tracks, but the widest block has four pins,
	// so the seed width sits under the switch fan-out floor before any
	// trial succeeds. That is a normal negative result, not an error.
	archPath := writeFixture(t, "arch-fs18.json", `{
		"name": "k4-fs18",
		"directionality": "bidir",
		"fs": 18,
		"chan_width": {
			"io_relative_width": 1,
			"x": {"kind": "uniform", "peak": 1},
			"y": {"kind": "uniform", "peak": 1}
		}
	}`)
	devicePath := writeFixture(t, "device-smallpins.json", `{
		"name": "tiny", "nx": 2, "ny": 2,
		"block_types": [{"name": "io", "num_pins": 4, "num_classes": 1}],
		"blocks": [{"id": 0, "type": "io"}],
		"nets": [{"id": 0, "blocks": [0]}]
	}`)

	summary, err := c.Search(ctx, SearchRequest{
		RunID:      "run-heavy",
		ArchPath:   archPath,
		DevicePath: devicePath,
	})
	require.NoError(t, err)
	require.False(t, summary.Feasible)

	runs, err := c.Runs(ctx)
	require.NoError(t, err)
	require.Len(t, runs, 1)
	require.False(t, runs[0].Feasible)
}

func TestSearchFixedWidth(t *testing.T) {
	c := newTestClient(t)

	summary, err := c.Search(context.Background(), SearchRequest{
		RunID:      "run-fixed",
		ArchPath:   fixtureArch(t),
		DevicePath: fixtureDevice(t),
		FixedWidth: 5,
	})
	require.NoError(t, err)
	require.True(t, summary.Feasible)
	require.Equal(t, 5, summary.Final)
	require.Equal(t, 1, summary.Trials)
}

func TestSearchVerifiedWithFlakyOracle(t *testing.T) {
	c := newTestClient(t)

	summary, err := c.Search(context.Background(), SearchRequest{
		RunID:      "run-flaky",
		ArchPath:   fixtureArch(t),
		DevicePath: fixtureDevice(t),
		Verify:     true,
		Flakiness:  0.5,
		Seed:       7,
	})
	require.NoError(t, err)
	require.True(t, summary.Feasible)
	require.True(t, summary.Verified)
	// Flakiness reaches one track below the deterministic threshold.
	require.InDelta(t, 3, summary.Final, 1)
}

func TestWidthsMaterializesAssignment(t *testing.T) {
	c := newTestClient(t)

	assignment, err := c.Widths(context.Background(), 12, fixtureArch(t), fixtureDevice(t))
	require.NoError(t, err)
	require.Equal(t, 12, assignment.Factor)
	require.Len(t, assignment.XList, 5)
	require.Len(t, assignment.YList, 5)
	require.Equal(t, 12, assignment.Max)
}

func TestReportUnknownRun(t *testing.T) {
	c := newTestClient(t)

	_, err := c.Report(context.Background(), "nope")
	require.Error(t, err)
}

func TestResetDropsRuns(t *testing.T) {
	ctx := context.Background()
	c := newTestClient(t)

	_, err := c.Search(ctx, SearchRequest{
		RunID:      "run-1",
		ArchPath:   fixtureArch(t),
		DevicePath: fixtureDevice(t),
	})
	require.NoError(t, err)

	require.NoError(t, c.Reset(ctx))
	runs, err := c.Runs(ctx)
	require.NoError(t, err)
	require.Empty(t, runs)
}
