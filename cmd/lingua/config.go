package main

import (
	"fmt"
	"io"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/mattjoyce/lingua/internal/config"
	"github.com/mattjoyce/lingua/internal/doctor"
)

func runConfigNoun(args []string) int {
	if len(args) < 1 {
		printConfigNounHelp(os.Stderr)
		return 1
	}
	if isHelpToken(args[0]) {
		printConfigNounHelp(os.Stdout)
		return 0
	}

	action, actionArgs := args[0], args[1:]
	switch action {
	case "check":
		return runConfigCheck(actionArgs)
	case "lock":
		return runConfigLock(actionArgs)
	case "show":
		return runConfigShow(actionArgs)
	default:
		fmt.Fprintf(os.Stderr, "Unknown config action: %s\n", action)
		return 1
	}
}

func printConfigNounHelp(w io.Writer) {
	fmt.Fprintln(w, "Usage: lingua config <action> [flags]")
	fmt.Fprintln(w, "Actions: check, lock, show")
}

func runConfigCheck(args []string) int {
	fs := newFlagSet("check", "lingua config check [--config PATH] [--format human|json] [--strict]",
		"Validate the configuration and report risky settings.")
	configPath := addConfigFlag(fs)
	format := fs.String("format", "human", "Output format (human, json)")
	jsonOut := fs.Bool("json", false, "Shorthand for --format json")
	strict := fs.Bool("strict", false, "Exit 2 when there are warnings")
	if code, ok := parseFlags(fs, args); !ok {
		return code
	}
	if *jsonOut {
		*format = "json"
	}

	cfg, err := loadConfig(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Config load error: %v\n", err)
		return 1
	}

	result := doctor.New(cfg).Validate()
	switch *format {
	case "json":
		out, err := doctor.FormatJSON(result)
		if err != nil {
			fmt.Fprintf(os.Stderr, "JSON format error: %v\n", err)
			return 1
		}
		fmt.Println(out)
	case "human":
		fmt.Print(doctor.FormatHuman(result))
	default:
		fmt.Fprintf(os.Stderr, "Unknown format: %s\n", *format)
		return 1
	}

	if !result.Valid {
		return 1
	}
	if *strict && len(result.Warnings) > 0 {
		return 2
	}
	return 0
}

func runConfigLock(args []string) int {
	fs := newFlagSet("lock", "lingua config lock [--config PATH] [-v|--verbose] [--dry-run]",
		"Record BLAKE3 hashes of the config file and its seed script in .checksums.")
	configPath := addConfigFlag(fs)
	verbose := fs.BoolP("verbose", "v", false, "Print each hashed file")
	dryRun := fs.Bool("dry-run", false, "Compute hashes without writing .checksums")
	if code, ok := parseFlags(fs, args); !ok {
		return code
	}

	cfg, err := loadConfigWith(*configPath, config.LoadUnverified)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Config load error: %v\n", err)
		return 1
	}
	if cfg.SourcePath == "" {
		fmt.Fprintln(os.Stderr, "Error: no config file to lock. Use --config or "+configEnv+".")
		return 1
	}

	report, err := config.Lock(cfg, *dryRun)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to lock config: %v\n", err)
		return 1
	}

	if *verbose {
		fmt.Printf("Processing directory: %s\n", report.ConfigDir)
		for _, f := range report.Files {
			if f.Exists {
				fmt.Printf("  HASH %s: %s\n", f.Filename, f.Hash)
			} else {
				fmt.Printf("  SKIP %s: not found\n", f.Filename)
			}
		}
		if *dryRun {
			fmt.Printf("  DRY-RUN .checksums: %s (not written)\n", report.ChecksumPath)
		} else {
			fmt.Printf("  WROTE .checksums: %s\n", report.ChecksumPath)
		}
	}

	if *dryRun {
		fmt.Println("Dry run completed; no files written.")
	} else {
		fmt.Printf("Successfully locked configuration in %s\n", report.ConfigDir)
	}
	return 0
}

func runConfigShow(args []string) int {
	fs := newFlagSet("show", "lingua config show [path] [--config PATH] [--json]",
		"Show the resolved configuration, or the node at a dotted path such as engine.workers. Token secrets are redacted.")
	configPath := addConfigFlag(fs)
	jsonOut := fs.Bool("json", false, "Output in JSON")
	if code, ok := parseFlags(fs, args); !ok {
		return code
	}
	if fs.NArg() > 1 {
		fmt.Fprintln(os.Stderr, "Usage: lingua config show [path] [--json]")
		return 1
	}

	cfg, err := loadConfig(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Config load error: %v\n", err)
		return 1
	}

	result, err := cfg.GetPath(fs.Arg(0))
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return 1
	}

	if *jsonOut {
		return printJSON(result)
	}
	data, err := yaml.Marshal(result)
	if err != nil {
		fmt.Fprintf(os.Stderr, "YAML format error: %v\n", err)
		return 1
	}
	fmt.Print(string(data))
	return 0
}
