package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/fxamacker/cbor/v2"
	"github.com/urfave/cli/v2"

	"github.com/cloudx-io/openalloc/allocapi"
	"github.com/cloudx-io/openalloc/config"
	"github.com/cloudx-io/openalloc/core"
	"github.com/cloudx-io/openalloc/loader"
	"github.com/cloudx-io/openalloc/report"
)

const (
	formatText = "text"
	formatJSON = "json"
	formatCBOR = "cbor"
)

// searchSettings layers defaults, the config file, the environment and
// command-line flags, later sources winning.
func searchSettings(ctx *cli.Context) (config.Search, error) {
	settings := config.Default()
	if path := ctx.String("config"); path != "" {
		loaded, err := config.Load(path)
		if err != nil {
			return config.Search{}, err
		}
		settings = loaded
	}

	settings, err := settings.ApplyEnv(os.LookupEnv)
	if err != nil {
		return config.Search{}, err
	}

	if ctx.IsSet("max-iterations") {
		n := ctx.Int("max-iterations")
		if n < 1 {
			return config.Search{}, fmt.Errorf("--max-iterations must be at least 1, got %d", n)
		}
		settings.MaxIterations = n
	}
	if ctx.IsSet("baseline") {
		settings.Baseline = ctx.String("baseline")
	}
	if ctx.IsSet("workers") {
		settings.Workers = ctx.Int("workers")
	}
	return settings, settings.Validate()
}

func doSolve(w io.Writer, input string, settings config.Search, format string) error {
	switch format {
	case formatText, formatJSON, formatCBOR:
	default:
		return fmt.Errorf("unknown format %q (want %s, %s or %s)", format, formatText, formatJSON, formatCBOR)
	}

	opts, err := settings.Options()
	if err != nil {
		return err
	}

	catalog, err := loader.LoadFile(input)
	if err != nil {
		return err
	}

	result := core.Search(catalog, opts)

	switch format {
	case formatJSON:
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(allocapi.NewRunReport(catalog, result))
	case formatCBOR:
		data, err := cbor.Marshal(allocapi.NewRunReport(catalog, result))
		if err != nil {
			return fmt.Errorf("encode cbor report: %w", err)
		}
		_, err = w.Write(data)
		return err
	default:
		return report.WriteRun(w, catalog, result)
	}
}

func doBound(w io.Writer, input string) error {
	catalog, err := loader.LoadFile(input)
	if err != nil {
		return err
	}

	initial := core.Score(core.InitialState(catalog), catalog)
	goal := core.Score(core.GoalBound(catalog), catalog)

	_, err = fmt.Fprintf(w, "initial = %d\ngoal bound = %d\ninitial reaches %s of the bound\n",
		initial, goal, report.Percent(initial, goal))
	return err
}
