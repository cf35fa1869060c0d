package model

// VersionedRecord captures schema and codec evolution for persistent data.
type VersionedRecord struct {
	SchemaVersion int `json:"schema_version"`
	CodecVersion  int `json:"codec_version"`
}

// TrialPhase tells which part of the search issued a trial.
type TrialPhase string

const (
	PhaseSearch TrialPhase = "search"
	PhaseVerify TrialPhase = "verify"
	PhaseFixed  TrialPhase = "fixed"
)

// TrialRecord is one routing attempt at one channel width.
type TrialRecord struct {
	Index     int        `json:"index"`
	Width     int        `json:"width"`
	Success   bool       `json:"success"`
	FcClipped bool       `json:"fc_clipped"`
	Phase     TrialPhase `json:"phase"`
	Low       int        `json:"low"`
	High      int        `json:"high"`
}

// SearchRunRecord summarizes one minimum-width search invocation.
type SearchRunRecord struct {
	VersionedRecord
	RunID      string `json:"run_id"`
	ArchName   string `json:"arch_name"`
	DeviceName string `json:"device_name"`
	Final      int    `json:"final"`
	Feasible   bool   `json:"feasible"`
	Trials     int    `json:"trials"`
	Clipped    bool   `json:"clipped"`
	Verified   bool   `json:"verified"`
	Seed       int64  `json:"seed,omitempty"`
}

// AssignmentRecord persists the materialized track counts for a run's final
// width factor.
type AssignmentRecord struct {
	VersionedRecord
	RunID  string `json:"run_id"`
	Factor int    `json:"factor"`
	XList  []int  `json:"x_list"`
	YList  []int  `json:"y_list"`
	Max    int    `json:"max"`
}
