package main

import (
	"errors"
	"os"
	"runtime"
	"strings"

	"github.com/xplshn/typefighter/pkg/cli"
	"github.com/xplshn/typefighter/pkg/config"
	"github.com/xplshn/typefighter/pkg/util"
)

func main() {
	app := cli.NewApp("typefighter")
	app.Synopsis = "[options] <file.js> ..."
	app.Description = "Checks JavaScript call sites against the argument types declared in typefighter comment annotations."
	app.Authors = []string{"xplshn"}
	app.Repository = "<https://github.com/xplshn/typefighter>"
	app.Since = 2025

	var (
		opts        options
		wall, wnone bool
	)

	fs := app.FlagSet
	fs.String(&opts.frontend, "frontend", "", frontendNative, "Select the JavaScript front end (native, tree-sitter).", "name")
	fs.String(&opts.format, "format", "", formatText, "Select the diagnostic output format (text, json).", "format")
	fs.Int(&opts.jobs, "jobs", "j", runtime.NumCPU(), "Number of files to check in parallel.", "n")
	fs.Bool(&opts.verbose, "verbose", "v", false, "Print progress information to stderr.")
	fs.Bool(&opts.dumpAST, "dump-ast", "", false, "Print the syntax tree outline of every file.")
	fs.Bool(&opts.dumpAnnotations, "dump-annotations", "", false, "Print the signatures extracted from every file.")
	fs.Bool(&wall, "Wall", "", false, "Enable all warnings.")
	fs.Bool(&wnone, "Wno-all", "", false, "Disable all warnings.")

	cfg := config.NewConfig()
	cfg.SetupFlagGroups(fs)

	args := os.Args[1:]
	status := 0
	app.Action = func(inputFiles []string) error {
		// -W/-F flags are applied in command line order, -Wall/-Wno-all first
		cfg.ProcessFlags(func(fn func(name string)) {
			for _, arg := range args {
				if arg == "--" {
					return
				}
				if isGroupFlag(arg) && fs.Lookup(arg[1:]) != nil {
					fn(arg[1:])
				}
			}
		})

		if err := opts.validate(); err != nil {
			util.Fatalf(2, "%v", err)
		}
		if len(inputFiles) == 0 {
			util.Fatalf(2, "no input files")
		}

		status = run(opts, cfg, inputFiles, os.Stdout, os.Stderr, util.IsTerminal(os.Stderr))
		return nil
	}

	if err := app.Run(args); err != nil {
		if errors.Is(err, cli.ErrUsage) {
			os.Exit(2)
		}
		util.Fatalf(2, "%v", err)
	}
	os.Exit(status)
}

func isGroupFlag(arg string) bool {
	return strings.HasPrefix(arg, "-W") || strings.HasPrefix(arg, "-F")
}
