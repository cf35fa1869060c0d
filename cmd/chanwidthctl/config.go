package main

import (
	"encoding/json"
	"fmt"
	"math"
	"os"

	api "chanwidth/pkg/chanwidth"
)

// loadSearchRequest reads a search request from a JSON config file, keyed
// the same way as the search subcommand flags.
func loadSearchRequest(path string) (api.SearchRequest, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return api.SearchRequest{}, err
	}
	var raw map[string]any
	if err := json.Unmarshal(data, &raw); err != nil {
		return api.SearchRequest{}, fmt.Errorf("parse config %s: %w", path, err)
	}

	var req api.SearchRequest
	if v, ok := asString(raw["run_id"]); ok {
		req.RunID = v
	}
	if v, ok := asString(raw["arch"]); ok {
		req.ArchPath = v
	}
	if v, ok := asString(raw["device"]); ok {
		req.DevicePath = v
	}
	if v, ok := asString(raw["place"]); ok {
		req.Policy = v
	}
	if v, ok := asInt(raw["fixed_width"]); ok {
		req.FixedWidth = v
	}
	if v, ok := asBool(raw["fs_search"]); ok {
		req.FsSearch = v
	}
	if v, ok := asInt(raw["hint"]); ok {
		req.Hint = v
	}
	if v, ok := asBool(raw["verify"]); ok {
		req.Verify = v
	}
	if v, ok := asBool(raw["no_route"]); ok {
		req.NoRoute = v
	}
	if v, ok := asInt64(raw["seed"]); ok {
		req.Seed = v
	}
	if v, ok := asFloat64(raw["flakiness"]); ok {
		req.Flakiness = v
	}
	if v, ok := asFloat64(raw["demand_per_net"]); ok {
		req.DemandPerNet = v
	}
	if v, ok := asInt(raw["fc_out"]); ok {
		req.FcOut = v
	}
	return req, nil
}

func asString(v any) (string, bool) {
	s, ok := v.(string)
	return s, ok
}

func asBool(v any) (bool, bool) {
	b, ok := v.(bool)
	return b, ok
}

func asFloat64(v any) (float64, bool) {
	f, ok := v.(float64)
	return f, ok
}

func asInt(v any) (int, bool) {
	f, ok := v.(float64)
	if !ok || f != math.Trunc(f) {
		return 0, false
	}
	return int(f), true
}

func asInt64(v any) (int64, bool) {
	f, ok := v.(float64)
	if !ok || f != math.Trunc(f) {
		return 0, false
	}
	return int64(f), true
}
