package storage

import (
	"encoding/json"
	"errors"

	"chanwidth/internal/model"
)

const (
	CurrentSchemaVersion = 1
	CurrentCodecVersion  = 1
)

var ErrVersionMismatch = errors.New("record version mismatch")

// Stamp fills the version fields a record is persisted with.
func Stamp() model.VersionedRecord {
	return model.VersionedRecord{
		SchemaVersion: CurrentSchemaVersion,
		CodecVersion:  CurrentCodecVersion,
	}
}

func EncodeSearchRun(r model.SearchRunRecord) ([]byte, error) {
	return json.Marshal(r)
}

func DecodeSearchRun(data []byte) (model.SearchRunRecord, error) {
	var run model.SearchRunRecord
	if err := json.Unmarshal(data, &run); err != nil {
		return model.SearchRunRecord{}, err
	}
	if err := checkVersion(run.VersionedRecord); err != nil {
		return model.SearchRunRecord{}, err
	}
	return run, nil
}

func EncodeTrialHistory(trials []model.TrialRecord) ([]byte, error) {
	return json.Marshal(trials)
}

func DecodeTrialHistory(data []byte) ([]model.TrialRecord, error) {
	var trials []model.TrialRecord
	if err := json.Unmarshal(data, &trials); err != nil {
		return nil, err
	}
	return trials, nil
}

func EncodeAssignment(rec model.AssignmentRecord) ([]byte, error) {
	return json.Marshal(rec)
}

func DecodeAssignment(data []byte) (model.AssignmentRecord, error) {
	var rec model.AssignmentRecord
	if err := json.Unmarshal(data, &rec); err != nil {
		return model.AssignmentRecord{}, err
	}
	if err := checkVersion(rec.VersionedRecord); err != nil {
		return model.AssignmentRecord{}, err
	}
	return rec, nil
}

func checkVersion(v model.VersionedRecord) error {
	if v.SchemaVersion != CurrentSchemaVersion || v.CodecVersion != CurrentCodecVersion {
		return ErrVersionMismatch
	}
	return nil
}
