// flowseed loads an interview script from a JSON file into the flow_steps
// table, replacing the active script atomically.
//
//	flowseed -file script.json [-dry-run]
package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"log/slog"
	"os"

	"github.com/wayfarer-app/visaflow/internal/config"
	"github.com/wayfarer-app/visaflow/internal/flow"
	"github.com/wayfarer-app/visaflow/internal/payload"
	"github.com/wayfarer-app/visaflow/internal/store"
)

func main() {
	var (
		file   = flag.String("file", "", "path to the JSON script file")
		dryRun = flag.Bool("dry-run", false, "validate the script without writing")
	)
	flag.Parse()

	handler := slog.NewJSONHandler(os.Stdout, nil)
	slog.SetDefault(slog.New(handler))

	if *file == "" {
		slog.Error("-file is required")
		os.Exit(1)
	}

	steps, err := loadScript(*file)
	if err != nil {
		slog.Error("invalid script", "file", *file, "error", err)
		os.Exit(1)
	}
	slog.Info("script parsed", "steps", len(steps))

	if *dryRun {
		slog.Info("dry run, nothing written")
		return
	}

	cfg := config.Load()
	if cfg.DatabaseURL == "" {
		slog.Error("DATABASE_URL is required")
		os.Exit(1)
	}
	ctx := context.Background()
	db, err := store.New(ctx, cfg.DatabaseURL)
	if err != nil {
		slog.Error("failed to connect to database", "error", err)
		os.Exit(1)
	}
	defer db.Close()

	if err := db.ReplaceFlow(ctx, steps); err != nil {
		slog.Error("failed to replace flow", "error", err)
		os.Exit(1)
	}
	slog.Info("flow replaced", "steps", len(steps))
}

// loadScript parses and sanity-checks a script file before anything touches
// the database.
func loadScript(path string) ([]flow.Step, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var steps []flow.Step
	if err := json.Unmarshal(data, &steps); err != nil {
		return nil, fmt.Errorf("parse: %w", err)
	}
	if len(steps) == 0 {
		return nil, fmt.Errorf("script has no steps")
	}

	seenID := make(map[string]bool)
	seenField := make(map[string]bool)
	for i, step := range steps {
		if step.ID == "" {
			return nil, fmt.Errorf("step %d: missing id", i)
		}
		if seenID[step.ID] {
			return nil, fmt.Errorf("step %s: duplicate id", step.ID)
		}
		seenID[step.ID] = true
		if step.FieldPath == "" {
			return nil, fmt.Errorf("step %s: missing field path", step.ID)
		}
		if !payload.ValidPath(step.FieldPath) {
			return nil, fmt.Errorf("step %s: field path %s is outside the document schema", step.ID, step.FieldPath)
		}
		if seenField[step.FieldPath] {
			return nil, fmt.Errorf("step %s: duplicate field path %s", step.ID, step.FieldPath)
		}
		seenField[step.FieldPath] = true
		if step.Prompt(flow.DefaultLocale) == "" {
			return nil, fmt.Errorf("step %s: no prompt text", step.ID)
		}
		if step.InputType == flow.InputSelect && len(step.Options) == 0 {
			return nil, fmt.Errorf("step %s: select step with no options", step.ID)
		}
		if step.Prereq != nil && !seenField[step.Prereq.Field] {
			return nil, fmt.Errorf("step %s: prerequisite on %s which is not an earlier step", step.ID, step.Prereq.Field)
		}
	}
	return steps, nil
}
