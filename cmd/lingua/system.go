package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/mattjoyce/lingua/internal/lock"
	"github.com/mattjoyce/lingua/internal/log"
	"github.com/mattjoyce/lingua/internal/tracing"
	"github.com/mattjoyce/lingua/internal/tui/watch"
)

func runSystemNoun(args []string) int {
	if len(args) < 1 {
		printSystemNounHelp(os.Stderr)
		return 1
	}
	if isHelpToken(args[0]) {
		printSystemNounHelp(os.Stdout)
		return 0
	}

	action, actionArgs := args[0], args[1:]
	switch action {
	case "start":
		return runStart(actionArgs)
	case "status":
		return runSystemStatus(actionArgs)
	case "watch":
		return runWatch(actionArgs)
	default:
		fmt.Fprintf(os.Stderr, "Unknown system action: %s\n", action)
		return 1
	}
}

func printSystemNounHelp(w io.Writer) {
	fmt.Fprintln(w, "Usage: lingua system <action>")
	fmt.Fprintln(w, "Actions: start, status, watch")
}

func runStart(args []string) int {
	fs := newFlagSet("start", "lingua system start [--config PATH]", "Start the gateway in the foreground.")
	configPath := addConfigFlag(fs)
	if code, ok := parseFlags(fs, args); !ok {
		return code
	}

	cfg, err := loadConfig(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load config: %v\n", err)
		return 1
	}

	log.Setup(cfg.Service.LogLevel)
	logger := log.WithComponent("main")
	logger.Info("lingua starting", "version", version, "config", cfg.SourcePath)

	datasetPath := cfg.ResolvePath(cfg.Dataset.Path)
	datasetLock, err := lock.Acquire(datasetPath)
	if err != nil {
		logger.Error("failed to lock dataset (another instance may be running)", "dataset", datasetPath, "error", err)
		return 1
	}
	defer datasetLock.Release()
	logger.Info("acquired dataset lock", "path", datasetLock.Path())

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	shutdownTracing, err := tracing.Setup(ctx, tracing.Config{
		Enabled:     cfg.Tracing.Enabled,
		Endpoint:    cfg.Tracing.Endpoint,
		ServiceName: cfg.Service.Name,
		SampleRatio: cfg.Tracing.SampleRatio,
	})
	if err != nil {
		logger.Error("failed to set up tracing", "error", err)
		return 1
	}
	defer func() {
		tctx, tcancel := context.WithTimeout(context.Background(), cfg.API.ShutdownTimeout)
		defer tcancel()
		if err := shutdownTracing(tctx); err != nil {
			logger.Warn("flush traces", "error", err)
		}
	}()

	gw, err := newGateway(ctx, cfg)
	if err != nil {
		logger.Error("failed to build gateway", "error", err)
		return 1
	}
	defer gw.Close(cfg.API.ShutdownTimeout)

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(sigCh)

	errCh := make(chan error, 1)
	go func() {
		if err := gw.server.Start(ctx); err != nil && !errors.Is(err, context.Canceled) {
			errCh <- err
		}
		close(errCh)
	}()

	logger.Info("lingua running (press Ctrl+C to stop)",
		"listen", cfg.API.Listen,
		"languages", cfg.Engine.Languages,
		"workers", cfg.Engine.Workers,
		"queue", cfg.Engine.Queue)

	select {
	case sig := <-sigCh:
		logger.Info("received shutdown signal", "signal", sig.String())
		cancel()
		if err := <-errCh; err != nil {
			logger.Error("api shutdown", "error", err)
		}
	case err := <-errCh:
		if err != nil {
			logger.Error("api server failed", "error", err)
			return 1
		}
	}

	logger.Info("lingua stopped")
	return 0
}

// statusCheck is one line of `system status`.
type statusCheck struct {
	Name   string `json:"name"`
	OK     bool   `json:"ok"`
	Detail string `json:"detail"`
}

type statusReport struct {
	Healthy bool          `json:"healthy"`
	Running bool          `json:"running"`
	PID     int           `json:"pid,omitempty"`
	Checks  []statusCheck `json:"checks"`
}

func runSystemStatus(args []string) int {
	fs := newFlagSet("status", "lingua system status [--config PATH] [--json]",
		"Report config validity, dataset readiness and whether a gateway holds the dataset lock.")
	configPath := addConfigFlag(fs)
	jsonOut := fs.Bool("json", false, "Output in JSON")
	if code, ok := parseFlags(fs, args); !ok {
		return code
	}

	report := buildStatus(*configPath)
	if *jsonOut {
		data, _ := json.MarshalIndent(report, "", "  ")
		fmt.Println(string(data))
	} else {
		for _, c := range report.Checks {
			mark := "ok  "
			if !c.OK {
				mark = "FAIL"
			}
			fmt.Printf("%s %-8s %s\n", mark, c.Name, c.Detail)
		}
	}
	if !report.Healthy {
		return 1
	}
	return 0
}

func buildStatus(configPath string) statusReport {
	report := statusReport{Healthy: true}
	add := func(name string, ok bool, detail string) {
		report.Checks = append(report.Checks, statusCheck{Name: name, OK: ok, Detail: detail})
		report.Healthy = report.Healthy && ok
	}

	cfg, err := loadConfig(configPath)
	if err != nil {
		add("config", false, err.Error())
		return report
	}
	source := cfg.SourcePath
	if source == "" {
		source = "defaults"
	}
	add("config", true, source)

	datasetPath := cfg.ResolvePath(cfg.Dataset.Path)
	if info, err := os.Stat(datasetPath); err != nil {
		add("dataset", false, fmt.Sprintf("%s: %v", datasetPath, err))
	} else {
		add("dataset", true, fmt.Sprintf("%s (%d bytes)", datasetPath, info.Size()))
	}

	held, pid, err := lock.Probe(datasetPath)
	switch {
	case err != nil:
		add("lock", false, err.Error())
	case held:
		report.Running, report.PID = true, pid
		add("lock", true, fmt.Sprintf("held by pid %d", pid))
	default:
		add("lock", true, "not held (gateway stopped)")
	}
	return report
}

func runWatch(args []string) int {
	fs := newFlagSet("watch", "lingua system watch [--api-url URL] [--token TOKEN]",
		"Live request monitor over the gateway's event stream. Requires an admin token.\n"+
			"Keys: q quit, ↑/↓ select request.")
	apiURL := fs.String("api-url", "http://localhost:8080", "Gateway API URL")
	token := fs.String("token", os.Getenv("LINGUA_TOKEN"), "Admin bearer token (or LINGUA_TOKEN)")
	if code, ok := parseFlags(fs, args); !ok {
		return code
	}

	if *token == "" {
		fmt.Fprintln(os.Stderr, "Error: admin token required. Use --token or LINGUA_TOKEN.")
		return 1
	}

	p := tea.NewProgram(watch.New(*apiURL, *token), tea.WithAltScreen())
	if _, err := p.Run(); err != nil {
		fmt.Fprintf(os.Stderr, "TUI error: %v\n", err)
		return 1
	}
	return 0
}
