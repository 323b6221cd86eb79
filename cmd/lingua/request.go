package main

import (
	"context"
	"fmt"
	"io"
	"os"

	"github.com/mattjoyce/lingua/internal/inspect"
	"github.com/mattjoyce/lingua/internal/journal"
	"github.com/mattjoyce/lingua/internal/storage"
)

func runRequestNoun(args []string) int {
	if len(args) < 1 {
		printRequestNounHelp(os.Stderr)
		return 1
	}
	if isHelpToken(args[0]) {
		printRequestNounHelp(os.Stdout)
		return 0
	}

	action, actionArgs := args[0], args[1:]
	switch action {
	case "list":
		return runRequestList(actionArgs)
	case "inspect":
		return runRequestInspect(actionArgs)
	default:
		fmt.Fprintf(os.Stderr, "Unknown request action: %s\n", action)
		return 1
	}
}

func printRequestNounHelp(w io.Writer) {
	fmt.Fprintln(w, "Usage: lingua request <action> [flags]")
	fmt.Fprintln(w, "Actions: list, inspect")
}

// openJournal opens the dataset named by the config for reading the
// request journal. The caller closes the returned function.
func openJournal(configPath string) (*journal.Journal, func(), error) {
	cfg, err := loadConfig(configPath)
	if err != nil {
		return nil, nil, err
	}
	db, err := storage.OpenSQLite(context.Background(), cfg.ResolvePath(cfg.Dataset.Path))
	if err != nil {
		return nil, nil, err
	}
	return journal.New(db), func() { _ = db.Close() }, nil
}

func runRequestList(args []string) int {
	fs := newFlagSet("list", "lingua request list [--config PATH] [--limit N] [--json]",
		"List recently finished requests from the journal, newest first.")
	configPath := addConfigFlag(fs)
	limit := fs.IntP("limit", "n", 20, "Maximum number of requests")
	jsonOut := fs.Bool("json", false, "Output in JSON")
	if code, ok := parseFlags(fs, args); !ok {
		return code
	}
	if *limit <= 0 {
		fmt.Fprintln(os.Stderr, "Error: --limit must be positive")
		return 1
	}

	jr, closeDB, err := openJournal(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return 1
	}
	defer closeDB()

	listing, err := inspect.Gather(context.Background(), jr, *limit)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return 1
	}
	if *jsonOut {
		return printJSON(listing)
	}
	fmt.Print(inspect.FormatListing(listing))
	return 0
}

func runRequestInspect(args []string) int {
	fs := newFlagSet("inspect", "lingua request inspect <correlation> [--config PATH] [--json]",
		"Show the journal entry of one request.")
	configPath := addConfigFlag(fs)
	jsonOut := fs.Bool("json", false, "Output in JSON")
	if code, ok := parseFlags(fs, args); !ok {
		return code
	}
	if fs.NArg() != 1 {
		fmt.Fprintln(os.Stderr, "Usage: lingua request inspect <correlation> [--json]")
		return 1
	}

	jr, closeDB, err := openJournal(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return 1
	}
	defer closeDB()

	ctx := context.Background()
	if *jsonOut {
		data, err := inspect.BuildJSONReport(ctx, jr, fs.Arg(0))
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			return 1
		}
		fmt.Println(string(data))
		return 0
	}
	report, err := inspect.BuildReport(ctx, jr, fs.Arg(0))
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return 1
	}
	fmt.Print(report)
	return 0
}
