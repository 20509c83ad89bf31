package main

import (
	"fmt"
	"os"

	"github.com/urfave/cli/v2"
)

func newApp() *cli.App {
	return &cli.App{
		Name:  "hillclimb",
		Usage: "Allocate units to bidders by hill climbing over bid selections",
		Commands: []*cli.Command{
			solveCmd,
			boundCmd,
		},
	}
}

func main() {
	if err := newApp().Run(os.Args); err != nil {
		fmt.Fprintln(os.Stderr, "Error: ", err)
		os.Exit(1)
	}
}

var solveCmd = &cli.Command{
	Name:    "solve",
	Usage:   "Run the search over a catalog file and print the result",
	Aliases: []string{"s"},
	Flags: []cli.Flag{
		&cli.StringFlag{
			Name:     "input",
			Aliases:  []string{"i"},
			Required: true,
			Usage:    "specify the input catalog (text record format)",
		},
		&cli.StringFlag{
			Name:  "config",
			Usage: "specify a YAML search config",
		},
		&cli.IntFlag{
			Name:  "max-iterations",
			Usage: "cap on search steps, at least 1 (overrides config)",
		},
		&cli.StringFlag{
			Name:  "baseline",
			Usage: "move acceptance: current or zero (overrides config)",
		},
		&cli.IntFlag{
			Name:  "workers",
			Usage: "parallel neighbor scan workers (overrides config)",
		},
		&cli.StringFlag{
			Name:  "format",
			Value: formatText,
			Usage: "output format: text, json or cbor",
		},
	},
	Action: func(ctx *cli.Context) error {
		settings, err := searchSettings(ctx)
		if err != nil {
			return err
		}
		return doSolve(ctx.App.Writer, ctx.String("input"), settings, ctx.String("format"))
	},
}

var boundCmd = &cli.Command{
	Name:    "bound",
	Usage:   "Print the greedy initial score and the goal bound of a catalog",
	Aliases: []string{"b"},
	Flags: []cli.Flag{
		&cli.StringFlag{
			Name:     "input",
			Aliases:  []string{"i"},
			Required: true,
			Usage:    "specify the input catalog (text record format)",
		},
	},
	Action: func(ctx *cli.Context) error {
		return doBound(ctx.App.Writer, ctx.String("input"))
	},
}
