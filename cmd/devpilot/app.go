package main

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"devpilot/pkg/agent"
	"devpilot/pkg/artifact"
	"devpilot/pkg/collab"
	"devpilot/pkg/command"
	"devpilot/pkg/config"
	"devpilot/pkg/dispatch"
	"devpilot/pkg/eventlog"
	"devpilot/pkg/logx"
	"devpilot/pkg/manifest"
	"devpilot/pkg/metrics"
	"devpilot/pkg/persistence"
	"devpilot/pkg/session"
	"devpilot/pkg/tdd"
	"devpilot/pkg/testrun"
)

// app is everything one CLI invocation wires together.
type app struct {
	root       string
	cfg        *config.Config
	session    *session.Session
	dispatcher *dispatch.Dispatcher
	collab     collab.Collaborators
	recorder   *metrics.PrometheusRecorder
	store      *persistence.Store
	transcript *eventlog.Writer
	logFile    *os.File
	logger     *logx.Logger
}

// newApp loads configuration, unlocks secrets, opens the database, indexes the workspace and
// builds the dispatcher. A missing or misconfigured model is not fatal; commands that need
// the agent report it.
func newApp(ctx context.Context, projectDir string, verbose bool) (*app, error) {
	root, err := filepath.Abs(projectDir)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve project directory: %w", err)
	}

	a := &app{root: root, logger: logx.NewLogger("devpilot")}
	if !verbose {
		if err := a.redirectLogs(); err != nil {
			return nil, err
		}
	}

	a.cfg, err = config.Load(root)
	if err != nil {
		return nil, a.fail(err, "failed to load configuration")
	}

	vault, err := openVault(root, isInteractive())
	if err != nil {
		return nil, a.fail(err, "failed to open secrets")
	}

	a.recorder = metrics.NewPrometheusRecorder()

	a.store, err = persistence.Open(ctx, config.ResolvePath(root, a.cfg.Paths.DBPath))
	if err != nil {
		return nil, a.fail(err, "failed to open database")
	}

	writer, err := artifact.NewWriter(root)
	if err != nil {
		return nil, a.fail(err, "failed to prepare workspace writer")
	}

	executor := testrun.NewHostExecutor()
	runnerOpts := make([]testrun.Option, 0, len(a.cfg.TestCommands))
	for framework, argv := range a.cfg.TestCommands {
		runnerOpts = append(runnerOpts, testrun.WithCommand(framework, argv))
	}

	a.collab = collab.Collaborators{
		Runner:   testrun.NewRunner(executor, root, runnerOpts...),
		Writer:   writer,
		Prompter: decliningPrompter{},
		Glossary: a.store,
		Runs:     a.store,
	}
	if isInteractive() {
		a.collab.Prompter = huhPrompter{}
	}

	client, err := agent.New(a.cfg.Agent, vault, a.recorder)
	if err != nil {
		a.logger.Warn("agent unavailable: %v", err)
	} else {
		a.collab.Agent = client
	}

	a.session = session.New(session.Options{
		WorkspaceRoot:      root,
		AgentMode:          a.cfg.Session.AgentMode,
		TddMode:            a.cfg.Session.TddMode,
		UiTddMode:          a.cfg.Session.UiTddMode,
		HistoryLimit:       a.cfg.Session.HistoryLimit,
		HistoryTokenBudget: a.cfg.Session.HistoryTokenBudget,
	})
	if _, err := a.index(); err != nil {
		a.logger.Warn("workspace indexing failed: %v", err)
	}

	table, err := command.DefaultTable(command.Deps{
		Executor:     executor,
		Files:        writer,
		Stats:        a.recorder,
		Paths:        a.cfg.Paths,
		LintCommands: a.cfg.LintCommands,
	})
	if err != nil {
		return nil, a.fail(err, "failed to build command table")
	}

	workflow := tdd.NewOrchestrator(tdd.WithPaths(a.cfg.Paths), tdd.WithRecorder(a.recorder))
	opts := []dispatch.Option{dispatch.WithRecorder(a.recorder)}
	if a.transcript, err = eventlog.NewWriter(filepath.Join(config.Dir(root), "logs")); err != nil {
		a.logger.Warn("transcript disabled: %v", err)
	} else {
		opts = append(opts, dispatch.WithSink(a.transcript))
	}
	a.dispatcher = dispatch.New(table, workflow, opts...)
	return a, nil
}

// index scans the workspace for manifests and installs them on the session.
func (a *app) index() (manifest.Index, error) {
	ix, err := manifest.NewIndexer().Index(a.root)
	if err != nil {
		return nil, err
	}
	a.session.SetManifests(ix.AsLookup())
	return ix, nil
}

func (a *app) dispatch(ctx context.Context, message string) string {
	return a.dispatcher.Dispatch(ctx, message, a.session, a.collab)
}

func (a *app) redirectLogs() error {
	dir := config.Dir(a.root)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("failed to create %s: %w", dir, err)
	}
	f, err := os.OpenFile(filepath.Join(dir, "devpilot.log"), os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
	if err != nil {
		return fmt.Errorf("failed to open log file: %w", err)
	}
	logx.SetOutput(f)
	a.logFile = f
	return nil
}

// fail logs err into the session log, then releases whatever newApp opened so far.
func (a *app) fail(err error, msg string) error {
	wrapped := logx.Wrap(err, msg)
	a.Close()
	return wrapped
}

// Close releases the database, transcript and log file.
func (a *app) Close() {
	if a.transcript != nil {
		if err := a.transcript.Close(); err != nil {
			a.logger.Warn("failed to close transcript: %v", err)
		}
		a.transcript = nil
	}
	if a.store != nil {
		if err := a.store.Close(); err != nil {
			a.logger.Warn("failed to close database: %v", err)
		}
		a.store = nil
	}
	if a.logFile != nil {
		logx.SetOutput(os.Stderr)
		_ = a.logFile.Close()
		a.logFile = nil
	}
}

// openVault unlocks the secrets file when one exists. The password comes from the
// environment, or from the terminal when interactive.
func openVault(root string, interactive bool) (*config.Vault, error) {
	vault := config.NewVault(root)
	if !config.SecretsFileExists(root) {
		return vault, nil
	}

	password := os.Getenv(config.EnvPassword)
	if password == "" {
		if !interactive {
			return nil, fmt.Errorf("secrets file is locked: set %s", config.EnvPassword)
		}
		var err error
		password, err = readSecret("🔐 Secrets password: ")
		if err != nil {
			return nil, err
		}
	}
	if err := vault.Unlock(password); err != nil {
		return nil, fmt.Errorf("failed to unlock secrets: %w", err)
	}
	return vault, nil
}
