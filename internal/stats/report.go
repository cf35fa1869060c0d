// Package stats builds post-run reports over search telemetry and the final
// channel assignment.
package stats

import (
	"fmt"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"

	"chanwidth/internal/model"
)

// TrialPoint is one probe in the width-versus-trial series.
type TrialPoint struct {
	Index   int              `json:"index"`
	Width   int              `json:"width"`
	Success bool             `json:"success"`
	Phase   model.TrialPhase `json:"phase"`
}

// ChannelStats summarizes the track counts of the final assignment.
type ChannelStats struct {
	Min  int     `json:"min"`
	Max  int     `json:"max"`
	Mean float64 `json:"mean"`
	Std  float64 `json:"std"`
}

// SearchReport is the exportable summary of one search run.
type SearchReport struct {
	RunID         string       `json:"run_id"`
	Final         int          `json:"final"`
	Feasible      bool         `json:"feasible"`
	Clipped       bool         `json:"clipped"`
	Verified      bool         `json:"verified"`
	Trials        int          `json:"trials"`
	SearchTrials  int          `json:"search_trials"`
	VerifyTrials  int          `json:"verify_trials"`
	Successes     int          `json:"successes"`
	ClippedTrials int          `json:"clipped_trials"`
	MeanProbe     float64      `json:"mean_probe_width"`
	StdProbe      float64      `json:"std_probe_width"`
	Series        []TrialPoint `json:"series"`
	XChannels     ChannelStats `json:"x_channels"`
	YChannels     ChannelStats `json:"y_channels"`
}

// BuildSearchReport assembles the report from a run record, its trial
// history and the persisted final assignment.
func BuildSearchReport(run model.SearchRunRecord, trials []model.TrialRecord, assignment model.AssignmentRecord) (SearchReport, error) {
	if run.RunID == "" {
		return SearchReport{}, fmt.Errorf("search report requires a run id")
	}

	report := SearchReport{
		RunID:    run.RunID,
		Final:    run.Final,
		Feasible: run.Feasible,
		Clipped:  run.Clipped,
		Verified: run.Verified,
		Trials:   len(trials),
		Series:   make([]TrialPoint, 0, len(trials)),
	}

	widths := make([]float64, 0, len(trials))
	for _, t := range trials {
		report.Series = append(report.Series, TrialPoint{
			Index:   t.Index,
			Width:   t.Width,
			Success: t.Success,
			Phase:   t.Phase,
		})
		widths = append(widths, float64(t.Width))
		switch t.Phase {
		case model.PhaseVerify:
			report.VerifyTrials++
		default:
			report.SearchTrials++
		}
		if t.Success && !t.FcClipped {
			report.Successes++
		}
		if t.FcClipped {
			report.ClippedTrials++
		}
	}
	if len(widths) > 0 {
		report.MeanProbe = stat.Mean(widths, nil)
	}
	if len(widths) > 1 {
		report.StdProbe = stat.StdDev(widths, nil)
	}

	report.XChannels = channelStats(assignment.XList)
	report.YChannels = channelStats(assignment.YList)
	return report, nil
}

func channelStats(list []int) ChannelStats {
	if len(list) == 0 {
		return ChannelStats{}
	}
	values := make([]float64, len(list))
	for i, v := range list {
		values[i] = float64(v)
	}
	cs := ChannelStats{
		Min:  int(floats.Min(values)),
		Max:  int(floats.Max(values)),
		Mean: stat.Mean(values, nil),
	}
	if len(values) > 1 {
		cs.Std = stat.StdDev(values, nil)
	}
	return cs
}
