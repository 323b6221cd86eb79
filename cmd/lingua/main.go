package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"runtime/debug"
	"strings"
	"time"

	"github.com/spf13/pflag"

	"github.com/mattjoyce/lingua/internal/config"
)

var (
	version   = "0.1.0-dev"
	gitCommit = "unknown"
	buildDate = "unknown"
)

// configEnv names the config file when --config is not given.
const configEnv = "LINGUA_CONFIG"

func main() {
	os.Exit(runCLI(os.Args[1:]))
}

func runCLI(cliArgs []string) int {
	if len(cliArgs) < 1 {
		printUsage(os.Stderr)
		return 1
	}

	cmd := cliArgs[0]
	args := cliArgs[1:]

	switch cmd {
	case "system":
		return runSystemNoun(args)
	case "config":
		return runConfigNoun(args)
	case "request":
		return runRequestNoun(args)

	case "start":
		return runStart(args)
	case "version", "--version":
		return runVersion(args)
	case "help", "--help", "-h":
		printUsage(os.Stdout)
		return 0

	default:
		fmt.Fprintf(os.Stderr, "Unknown command: %s\n\n", cmd)
		printUsage(os.Stderr)
		return 1
	}
}

// newFlagSet returns a flag set that reports errors instead of exiting.
// --help prints usage and summary followed by the flag defaults to stdout.
func newFlagSet(name, usage, summary string) *pflag.FlagSet {
	fs := pflag.NewFlagSet(name, pflag.ContinueOnError)
	fs.SetOutput(os.Stderr)
	fs.SortFlags = false
	fs.Usage = func() {
		fmt.Fprintf(os.Stdout, "Usage: %s\n%s\n", usage, summary)
		if flags := fs.FlagUsages(); flags != "" {
			fmt.Fprintf(os.Stdout, "\nFlags:\n%s", flags)
		}
	}
	return fs
}

// parseFlags parses args and returns an exit code when the caller should
// stop: 0 after printing help, 1 on a flag error.
func parseFlags(fs *pflag.FlagSet, args []string) (int, bool) {
	if err := fs.Parse(args); err != nil {
		if errors.Is(err, pflag.ErrHelp) {
			return 0, false
		}
		fmt.Fprintf(os.Stderr, "Flag error: %v\n", err)
		return 1, false
	}
	return 0, true
}

func addConfigFlag(fs *pflag.FlagSet) *string {
	return fs.StringP("config", "c", "", "Path to configuration file or directory (or "+configEnv+")")
}

// loadConfig resolves the config location from the flag, then the
// environment, then ./config.yaml. With none present the defaults apply.
func loadConfig(path string) (*config.Config, error) {
	return loadConfigWith(path, config.Load)
}

func loadConfigWith(path string, load func(string) (*config.Config, error)) (*config.Config, error) {
	if path == "" {
		path = os.Getenv(configEnv)
	}
	if path == "" {
		if _, err := os.Stat("config.yaml"); err == nil {
			path = "config.yaml"
		}
	}
	if path == "" {
		return config.LoadOrDefault("")
	}
	return load(path)
}

type versionInfo struct {
	Version   string `json:"version"`
	Commit    string `json:"commit"`
	BuildTime string `json:"build_time"`
}

func runVersion(args []string) int {
	fs := newFlagSet("version", "lingua version [--json]", "Print build metadata.")
	jsonOut := fs.Bool("json", false, "Output version metadata as JSON")
	if code, ok := parseFlags(fs, args); !ok {
		return code
	}
	if fs.NArg() > 0 {
		fmt.Fprintln(os.Stderr, "Usage: lingua version [--json]")
		return 1
	}

	info := currentVersionInfo()
	if *jsonOut {
		data, err := json.MarshalIndent(info, "", "  ")
		if err != nil {
			fmt.Fprintf(os.Stderr, "Failed to render version JSON: %v\n", err)
			return 1
		}
		fmt.Println(string(data))
		return 0
	}

	fmt.Printf("lingua %s\n", info.Version)
	fmt.Printf("commit: %s\n", info.Commit)
	fmt.Printf("built_at: %s\n", info.BuildTime)
	return 0
}

func currentVersionInfo() versionInfo {
	info := versionInfo{
		Version:   strings.TrimSpace(version),
		Commit:    "unknown",
		BuildTime: "unknown",
	}
	if info.Version == "" {
		info.Version = "0.0.0-dev"
	}

	commit := strings.TrimSpace(gitCommit)
	if commit == "" || commit == "unknown" {
		commit = readBuildSetting("vcs.revision")
	}
	if commit != "" {
		info.Commit = shortenCommit(commit)
	}

	built := strings.TrimSpace(buildDate)
	if built == "" || built == "unknown" {
		built = readBuildSetting("vcs.time")
	}
	if t, err := time.Parse(time.RFC3339Nano, built); err == nil {
		info.BuildTime = t.UTC().Format(time.RFC3339)
	}
	return info
}

func shortenCommit(commit string) string {
	if len(commit) <= 12 {
		return commit
	}
	return commit[:12]
}

func readBuildSetting(key string) string {
	info, ok := debug.ReadBuildInfo()
	if !ok {
		return ""
	}
	for _, setting := range info.Settings {
		if setting.Key == key {
			return strings.TrimSpace(setting.Value)
		}
	}
	return ""
}

func isHelpToken(token string) bool {
	return token == "help" || token == "--help" || token == "-h"
}

func printUsage(w io.Writer) {
	fmt.Fprint(w, `lingua - query protocol gateway for SQL and SPARQL-style engines

Usage:
  lingua <noun> <action> [flags]

Nouns:
  system    start, status, watch
  config    check, lock, show
  request   list, inspect

Other:
  version   Print build metadata (--json)
  help      Show this message

Run 'lingua <noun> help' for the actions of a noun.
`)
}

func printJSON(v any) int {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		fmt.Fprintf(os.Stderr, "JSON format error: %v\n", err)
		return 1
	}
	fmt.Println(string(data))
	return 0
}
