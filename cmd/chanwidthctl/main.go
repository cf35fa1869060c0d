package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"os"
	"path/filepath"

	"chanwidth/internal/storage"
	api "chanwidth/pkg/chanwidth"
)

const exportsDir = "exports"

func main() {
	if err := run(context.Background(), os.Args[1:]); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func run(ctx context.Context, args []string) error {
	if len(args) == 0 {
		return usageError("missing command")
	}

	switch args[0] {
	case "init":
		return runInit(ctx, args[1:])
	case "reset":
		return runReset(ctx, args[1:])
	case "search":
		return runSearch(ctx, args[1:])
	case "widths":
		return runWidths(ctx, args[1:])
	case "runs":
		return runRuns(ctx, args[1:])
	case "trials":
		return runTrials(ctx, args[1:])
	case "report":
		return runReport(ctx, args[1:])
	case "export":
		return runExport(ctx, args[1:])
	default:
		return usageError(fmt.Sprintf("unknown command: %s", args[0]))
	}
}

func storeFlags(fs *flag.FlagSet) (*string, *string) {
	kind := fs.String("store", storage.DefaultStoreKind(), "store backend: memory|sqlite")
	dbPath := fs.String("db-path", "chanwidth.db", "sqlite database path")
	return kind, dbPath
}

func openClient(ctx context.Context, kind, dbPath string) (*api.Client, error) {
	return api.NewClient(ctx, api.Options{StoreKind: kind, DBPath: dbPath})
}

func runInit(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("init", flag.ContinueOnError)
	kind, dbPath := storeFlags(fs)
	if err := fs.Parse(args); err != nil {
		return err
	}

	client, err := openClient(ctx, *kind, *dbPath)
	if err != nil {
		return err
	}
	defer func() { _ = client.Close() }()

	fmt.Printf("initialized %s store\n", *kind)
	return nil
}

func runReset(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("reset", flag.ContinueOnError)
	kind, dbPath := storeFlags(fs)
	if err := fs.Parse(args); err != nil {
		return err
	}

	client, err := openClient(ctx, *kind, *dbPath)
	if err != nil {
		return err
	}
	defer func() { _ = client.Close() }()

	if err := client.Reset(ctx); err != nil {
		return err
	}
	fmt.Println("store reset")
	return nil
}

func runSearch(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("search", flag.ContinueOnError)
	kind, dbPath := storeFlags(fs)
	configPath := fs.String("config", "", "JSON config file; flags override it")
	runID := fs.String("run-id", "", "run id (generated when empty)")
	archPath := fs.String("arch", "", "routing architecture JSON file")
	devicePath := fs.String("device", "", "mapped device JSON file")
	policy := fs.String("place", "once", "placement policy: never|once|always")
	fixed := fs.Int("fixed-width", 0, "route once at this channel width instead of searching")
	fsSearch := fs.Bool("fs-search", false, "with -fixed-width, search for the minimum width satisfying Fs")
	hint := fs.Int("hint", 0, "initial guess for the minimum channel width")
	verify := fs.Bool("verify", true, "verify the located minimum against router flukes")
	noRoute := fs.Bool("no-route", false, "stop after placement")
	seed := fs.Int64("seed", 0, "reference-router randomness seed")
	flakiness := fs.Float64("flakiness", 0, "reference-router spurious success probability")
	demand := fs.Float64("demand-per-net", 0, "reference-router demand model scale")
	fcOut := fs.Int("fc-out", 0, "requested output-pin connectivity in tracks")
	jsonOut := fs.Bool("json", false, "emit the summary as JSON")
	if err := fs.Parse(args); err != nil {
		return err
	}

	req := api.SearchRequest{
		RunID:        *runID,
		ArchPath:     *archPath,
		DevicePath:   *devicePath,
		Policy:       *policy,
		FixedWidth:   *fixed,
		FsSearch:     *fsSearch,
		Hint:         *hint,
		Verify:       *verify,
		NoRoute:      *noRoute,
		Seed:         *seed,
		Flakiness:    *flakiness,
		DemandPerNet: *demand,
		FcOut:        *fcOut,
	}
	if *configPath != "" {
		loaded, err := loadSearchRequest(*configPath)
		if err != nil {
			return err
		}
		// Explicit flags win over config-file values.
		applyFlag(fs, "run-id", func() { loaded.RunID = *runID })
		applyFlag(fs, "arch", func() { loaded.ArchPath = *archPath })
		applyFlag(fs, "device", func() { loaded.DevicePath = *devicePath })
		applyFlag(fs, "place", func() { loaded.Policy = *policy })
		applyFlag(fs, "fixed-width", func() { loaded.FixedWidth = *fixed })
		applyFlag(fs, "fs-search", func() { loaded.FsSearch = *fsSearch })
		applyFlag(fs, "hint", func() { loaded.Hint = *hint })
		applyFlag(fs, "verify", func() { loaded.Verify = *verify })
		applyFlag(fs, "no-route", func() { loaded.NoRoute = *noRoute })
		applyFlag(fs, "seed", func() { loaded.Seed = *seed })
		applyFlag(fs, "flakiness", func() { loaded.Flakiness = *flakiness })
		applyFlag(fs, "demand-per-net", func() { loaded.DemandPerNet = *demand })
		applyFlag(fs, "fc-out", func() { loaded.FcOut = *fcOut })
		req = loaded
	}
	if req.ArchPath == "" || req.DevicePath == "" {
		return errors.New("search requires -arch and -device")
	}
	req.Progress = os.Stderr

	client, err := openClient(ctx, *kind, *dbPath)
	if err != nil {
		return err
	}
	defer func() { _ = client.Close() }()

	summary, err := client.Search(ctx, req)
	if err != nil {
		return err
	}

	if *jsonOut {
		return printJSON(summary)
	}
	if !summary.Feasible {
		fmt.Printf("run %s: no feasible channel width found after %d trials\n", summary.RunID, summary.Trials)
		return nil
	}
	fmt.Printf("run %s: minimum channel width factor %d (%d trials", summary.RunID, summary.Final, summary.Trials)
	if summary.Verified {
		fmt.Printf(", verified")
	}
	fmt.Println(")")
	if summary.Clipped {
		fmt.Println("warning: output-pin connectivity was clipped during the search")
	}
	return nil
}

func runWidths(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("widths", flag.ContinueOnError)
	kind, dbPath := storeFlags(fs)
	archPath := fs.String("arch", "", "routing architecture JSON file")
	devicePath := fs.String("device", "", "mapped device JSON file")
	factor := fs.Int("factor", 0, "channel width factor to materialize")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if *archPath == "" || *devicePath == "" {
		return errors.New("widths requires -arch and -device")
	}
	if *factor <= 0 {
		return errors.New("factor must be > 0")
	}

	client, err := openClient(ctx, *kind, *dbPath)
	if err != nil {
		return err
	}
	defer func() { _ = client.Close() }()

	assignment, err := client.Widths(ctx, *factor, *archPath, *devicePath)
	if err != nil {
		return err
	}
	return printJSON(assignment)
}

func runRuns(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("runs", flag.ContinueOnError)
	kind, dbPath := storeFlags(fs)
	jsonOut := fs.Bool("json", false, "emit runs list as JSON")
	if err := fs.Parse(args); err != nil {
		return err
	}

	client, err := openClient(ctx, *kind, *dbPath)
	if err != nil {
		return err
	}
	defer func() { _ = client.Close() }()

	runs, err := client.Runs(ctx)
	if err != nil {
		return err
	}
	if len(runs) == 0 {
		fmt.Println("no runs found")
		return nil
	}
	if *jsonOut {
		return printJSON(runs)
	}
	for _, run := range runs {
		status := fmt.Sprintf("W=%d", run.Final)
		if !run.Feasible {
			status = "infeasible"
		}
		fmt.Printf("%s  %s  arch=%s device=%s trials=%d\n", run.RunID, status, run.ArchName, run.DeviceName, run.Trials)
	}
	return nil
}

func runTrials(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("trials", flag.ContinueOnError)
	kind, dbPath := storeFlags(fs)
	runID := fs.String("run-id", "", "run id")
	jsonOut := fs.Bool("json", false, "emit trials as JSON")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if *runID == "" {
		return errors.New("trials requires -run-id")
	}

	client, err := openClient(ctx, *kind, *dbPath)
	if err != nil {
		return err
	}
	defer func() { _ = client.Close() }()

	trials, err := client.TrialHistory(ctx, *runID)
	if err != nil {
		return err
	}
	if *jsonOut {
		return printJSON(trials)
	}
	for _, t := range trials {
		result := "fail"
		if t.Success && !t.FcClipped {
			result = "ok"
		} else if t.Success {
			result = "clipped"
		}
		fmt.Printf("%3d  %s  W=%-4d %s  bounds=[%d,%d]\n", t.Index, t.Phase, t.Width, result, t.Low, t.High)
	}
	return nil
}

func runReport(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("report", flag.ContinueOnError)
	kind, dbPath := storeFlags(fs)
	runID := fs.String("run-id", "", "run id")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if *runID == "" {
		return errors.New("report requires -run-id")
	}

	client, err := openClient(ctx, *kind, *dbPath)
	if err != nil {
		return err
	}
	defer func() { _ = client.Close() }()

	report, err := client.Report(ctx, *runID)
	if err != nil {
		return err
	}
	return printJSON(report)
}

func runExport(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("export", flag.ContinueOnError)
	kind, dbPath := storeFlags(fs)
	runID := fs.String("run-id", "", "run id")
	outDir := fs.String("out", exportsDir, "output directory")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if *runID == "" {
		return errors.New("export requires -run-id")
	}

	client, err := openClient(ctx, *kind, *dbPath)
	if err != nil {
		return err
	}
	defer func() { _ = client.Close() }()

	report, err := client.Report(ctx, *runID)
	if err != nil {
		return err
	}

	if err := os.MkdirAll(*outDir, 0o755); err != nil {
		return err
	}
	path := filepath.Join(*outDir, fmt.Sprintf("report_%s.json", *runID))
	data, err := json.MarshalIndent(report, "", "  ")
	if err != nil {
		return err
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return err
	}
	fmt.Printf("exported %s\n", path)
	return nil
}

// applyFlag runs apply only when the flag was set on the command line, so
// explicit flags override config-file values.
func applyFlag(fs *flag.FlagSet, name string, apply func()) {
	fs.Visit(func(f *flag.Flag) {
		if f.Name == name {
			apply()
		}
	})
}

func printJSON(v any) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return err
	}
	fmt.Println(string(data))
	return nil
}

func usageError(msg string) error {
	return fmt.Errorf("%s\nusage: chanwidthctl <init|reset|search|widths|runs|trials|report|export> [flags]", msg)
}
