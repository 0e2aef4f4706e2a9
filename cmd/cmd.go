// Package cmd provides CLI command implementations for fluentgen.
package cmd

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"github.com/alecthomas/kong"
	"github.com/fatih/color"
	"gopkg.in/yaml.v3"

	"github.com/Benny93/fluentgen/internal/config"
	"github.com/Benny93/fluentgen/internal/description"
	"github.com/Benny93/fluentgen/internal/ingestion"
	"github.com/Benny93/fluentgen/internal/logger"
	"github.com/Benny93/fluentgen/internal/storage"
	"github.com/Benny93/fluentgen/mcp"
)

// Version is set at build time via ldflags.
var Version = "dev"

const (
	badgerDir = "badger"
	metaFile  = "meta.json"
)

// DescribeCmd prints descriptions of Java sources without storing them.
type DescribeCmd struct {
	Path   string `arg:"" help:"Java file or directory"`
	Class  string `help:"Only print the class with this simple or qualified name"`
	Format string `short:"f" enum:"text,json,yaml" default:"text" help:"Output format (text, json, yaml)"`
}

// Run executes the describe command.
func (c *DescribeCmd) Run(app *App) error {
	path, err := filepath.Abs(c.Path)
	if err != nil {
		return fmt.Errorf("resolving path: %w", err)
	}

	root := path
	if info, err := os.Stat(path); err == nil && !info.IsDir() {
		root = filepath.Dir(path)
	}

	ctx, cfg, err := app.setup(root)
	if err != nil {
		return err
	}
	opts, err := ingestion.OptionsFromConfig(cfg)
	if err != nil {
		return err
	}

	descs, failures, err := ingestion.Describe(ctx, path, opts)
	if err != nil {
		return fmt.Errorf("describing %s: %w", c.Path, err)
	}

	if c.Class != "" {
		descs = selectClass(descs, c.Class)
		if len(descs) == 0 {
			return fmt.Errorf("class %q not found in %s", c.Class, c.Path)
		}
	}

	if err := writeDescriptions(app.out, c.Format, descs); err != nil {
		return err
	}
	for _, f := range failures {
		color.New(color.FgYellow).Fprintf(app.errOut, "Skipped %s\n", f.Error())
	}
	return nil
}

// ScanCmd describes a repository into the description store.
type ScanCmd struct {
	Path string `arg:"" optional:"" default:"." help:"Path to repository"`
	Full bool   `help:"Re-convert every file, even unchanged ones"`
}

// Run executes the scan command.
func (c *ScanCmd) Run(app *App) error {
	repoPath, err := repoDir(c.Path)
	if err != nil {
		return err
	}

	ctx, cfg, err := app.setup(repoPath)
	if err != nil {
		return err
	}
	opts, err := ingestion.OptionsFromConfig(cfg)
	if err != nil {
		return err
	}
	opts.Full = c.Full
	opts.Progress = func(phase string, pct float64) {
		fmt.Fprintf(app.errOut, "\r\033[K%s (%.0f%%)", phase, pct*100)
	}

	color.New(color.FgGreen).Fprintf(app.out, "Scanning %s\n", repoPath)

	storeDir := cfg.StoragePath(repoPath)
	if err := os.MkdirAll(storeDir, 0o755); err != nil {
		return fmt.Errorf("creating %s: %w", storeDir, err)
	}

	store := storage.NewBadgerBackend()
	if err := store.Initialize(filepath.Join(storeDir, badgerDir), false); err != nil {
		return fmt.Errorf("initializing storage: %w", err)
	}
	defer func() { _ = store.Close() }()

	result, err := ingestion.RunPipeline(ctx, repoPath, store, opts)
	fmt.Fprintln(app.errOut) // Newline after progress
	if err != nil {
		return fmt.Errorf("running pipeline: %w", err)
	}

	if err := writeMeta(storeDir, repoPath, result); err != nil {
		return err
	}

	printSummary(app.out, "Scan complete", result)
	return nil
}

// ShowCmd prints a stored description.
type ShowCmd struct {
	Class  string `arg:"" help:"Simple or qualified class name"`
	Format string `short:"f" enum:"text,json,yaml" default:"text" help:"Output format (text, json, yaml)"`
}

// Run executes the show command.
func (c *ShowCmd) Run(app *App) error {
	ctx, _, store, err := app.openStore()
	if err != nil {
		return err
	}
	defer func() { _ = store.Close() }()

	rec, err := mcp.ResolveClass(ctx, store, c.Class)
	if err != nil {
		return err
	}
	if rec == nil {
		return fmt.Errorf("class %q not found. Run 'fluentgen scan' first", c.Class)
	}

	if c.Format == "text" {
		fmt.Fprintf(app.out, "File: %s\n", rec.FilePath)
	}
	return writeDescriptions(app.out, c.Format, []*description.ClassDescription{rec.Description})
}

// QueryCmd searches the description store.
type QueryCmd struct {
	Query string `arg:"" help:"Search query"`
	Limit int    `short:"n" default:"20" help:"Maximum results"`
}

// Run executes the query command.
func (c *QueryCmd) Run(app *App) error {
	ctx, _, store, err := app.openStore()
	if err != nil {
		return err
	}
	defer func() { _ = store.Close() }()

	results, err := store.Search(ctx, c.Query, c.Limit)
	if err != nil {
		return fmt.Errorf("searching: %w", err)
	}

	if len(results) == 0 {
		fmt.Fprintln(app.out, "No results found")
		return nil
	}

	bold := color.New(color.Bold)
	for i, r := range results {
		fmt.Fprintf(app.out, "\n%d. ", i+1)
		bold.Fprint(app.out, r.QualifiedName)
		fmt.Fprintln(app.out)
		fmt.Fprintf(app.out, "   File: %s\n", r.FilePath)
		fmt.Fprintf(app.out, "   Score: %.0f\n", r.Score)
		if len(r.Properties) > 0 {
			fmt.Fprintf(app.out, "   Properties: %s\n", strings.Join(r.Properties, ", "))
		}
	}

	return nil
}

// WatchCmd keeps the store in sync with the sources.
type WatchCmd struct {
	Path string `arg:"" optional:"" default:"." help:"Path to repository"`
}

// Run executes the watch command.
func (c *WatchCmd) Run(app *App) error {
	repoPath, err := repoDir(c.Path)
	if err != nil {
		return err
	}

	ctx, cfg, err := app.setup(repoPath)
	if err != nil {
		return err
	}
	opts, err := ingestion.OptionsFromConfig(cfg)
	if err != nil {
		return err
	}

	storeDir := cfg.StoragePath(repoPath)
	if err := os.MkdirAll(storeDir, 0o755); err != nil {
		return fmt.Errorf("creating %s: %w", storeDir, err)
	}
	store := storage.NewBadgerBackend()
	if err := store.Initialize(filepath.Join(storeDir, badgerDir), false); err != nil {
		return fmt.Errorf("initializing storage: %w", err)
	}
	defer func() { _ = store.Close() }()

	color.New(color.FgGreen).Fprintf(app.out, "Watching %s for changes (Ctrl+C to stop)\n", repoPath)

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	// Handle Ctrl+C
	go func() {
		select {
		case <-osSignalChannel():
			fmt.Fprintln(app.out, "\nStopping watch mode...")
			cancel()
		case <-ctx.Done():
		}
	}()

	err = ingestion.WatchRepo(ctx, repoPath, store, opts, func(result *ingestion.PipelineResult) {
		printSummary(app.out, "Synced", result)
	})
	if err != nil && !errors.Is(err, context.Canceled) {
		return fmt.Errorf("watch error: %w", err)
	}

	fmt.Fprintln(app.out, "Watch mode stopped.")
	return nil
}

// MCPCmd starts the MCP server.
type MCPCmd struct{}

// Run executes the mcp command.
func (c *MCPCmd) Run(app *App) error {
	ctx, cfg, store, err := app.openStore()
	if err != nil {
		return err
	}
	defer func() { _ = store.Close() }()

	opts, err := ingestion.OptionsFromConfig(cfg)
	if err != nil {
		return err
	}

	// Stdout carries MCP messages only; logs go to stderr.
	return mcp.NewServer(store, opts).Run(ctx, app.in, app.out)
}

// StatusCmd shows the store status for a repository.
type StatusCmd struct{}

// Run executes the status command.
func (c *StatusCmd) Run(app *App) error {
	root := app.root()
	_, cfg, err := app.setup(root)
	if err != nil {
		return err
	}

	metaPath := filepath.Join(cfg.StoragePath(root), metaFile)
	metaBytes, err := os.ReadFile(metaPath)
	if err != nil {
		if os.IsNotExist(err) {
			return fmt.Errorf("no descriptions found at %s. Run 'fluentgen scan' first", root)
		}
		return fmt.Errorf("reading %s: %w", metaFile, err)
	}

	var meta scanMeta
	if err := json.Unmarshal(metaBytes, &meta); err != nil {
		return fmt.Errorf("parsing %s: %w", metaFile, err)
	}

	fmt.Fprintf(app.out, "Status for %s\n", root)
	fmt.Fprintf(app.out, "  Version:        %s\n", meta.Version)
	fmt.Fprintf(app.out, "  Last scanned:   %s\n", meta.ScannedAt)
	fmt.Fprintf(app.out, "  Files:          %d\n", meta.Stats.Files)
	fmt.Fprintf(app.out, "  Classes:        %d\n", meta.Stats.Classes)
	fmt.Fprintf(app.out, "  Skipped:        %d\n", meta.Stats.Skipped)
	return nil
}

// CleanCmd deletes the description store of a repository.
type CleanCmd struct {
	Force bool `short:"f" help:"Skip confirmation"`
}

// Run executes the clean command.
func (c *CleanCmd) Run(app *App) error {
	root := app.root()
	_, cfg, err := app.setup(root)
	if err != nil {
		return err
	}

	storeDir := cfg.StoragePath(root)
	if _, err := os.Stat(storeDir); os.IsNotExist(err) {
		return fmt.Errorf("no descriptions found at %s. Nothing to clean", root)
	}

	if !c.Force {
		fmt.Fprintf(app.out, "Delete %s? [y/N] ", storeDir)
		var response string
		_, _ = fmt.Fscanln(app.in, &response)
		if response != "y" && response != "Y" {
			fmt.Fprintln(app.out, "Aborted")
			return nil
		}
	}

	if err := os.RemoveAll(storeDir); err != nil {
		return fmt.Errorf("deleting store: %w", err)
	}

	color.New(color.FgGreen).Fprintf(app.out, "Deleted %s\n", storeDir)
	return nil
}

// App carries the global flags and streams into every command.
type App struct {
	configPath string
	logLevel   string
	logJSON    bool
	repo       string

	in     io.Reader
	out    io.Writer
	errOut io.Writer
}

// root returns the absolute repository root.
func (a *App) root() string {
	if abs, err := filepath.Abs(a.repo); err == nil {
		return abs
	}
	return a.repo
}

// setup loads the configuration for root and returns a context carrying
// the configured logger. Flags override the configuration.
func (a *App) setup(root string) (context.Context, *config.Config, error) {
	path, required := a.configPath, true
	if path == "" {
		path, required = filepath.Join(root, config.FileName), false
	}

	cfg, err := config.Load(path, required)
	if err != nil {
		return nil, nil, err
	}
	if a.logLevel != "" {
		cfg.Log.Level = a.logLevel
	}
	if a.logJSON {
		cfg.Log.JSON = true
	}

	log := logger.NewLogger(&logger.Config{
		Level:      logger.ParseLevel(cfg.Log.Level),
		Output:     a.errOut,
		JSON:       cfg.Log.JSON,
		TimeFormat: logger.DefaultConfig().TimeFormat,
	})
	return logger.ContextWithLogger(context.Background(), log), cfg, nil
}

// openStore opens the description store of the repository read-only.
func (a *App) openStore() (context.Context, *config.Config, *storage.BadgerBackend, error) {
	root := a.root()
	ctx, cfg, err := a.setup(root)
	if err != nil {
		return nil, nil, nil, err
	}

	dbPath := filepath.Join(cfg.StoragePath(root), badgerDir)
	if _, err := os.Stat(dbPath); os.IsNotExist(err) {
		return nil, nil, nil, fmt.Errorf("no descriptions found at %s. Run 'fluentgen scan' first", root)
	}

	store := storage.NewBadgerBackend()
	if err := store.Initialize(dbPath, true); err != nil {
		return nil, nil, nil, fmt.Errorf("initializing storage: %w", err)
	}
	return ctx, cfg, store, nil
}

// Helper functions

// osSignalChannel returns a channel that receives OS signals for graceful shutdown.
func osSignalChannel() <-chan os.Signal {
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	return sigChan
}

func repoDir(path string) (string, error) {
	repoPath, err := filepath.Abs(path)
	if err != nil {
		return "", fmt.Errorf("resolving path: %w", err)
	}

	info, err := os.Stat(repoPath)
	if err != nil {
		return "", fmt.Errorf("accessing %s: %w", repoPath, err)
	}
	if !info.IsDir() {
		return "", fmt.Errorf("%s is not a directory", repoPath)
	}
	return repoPath, nil
}

// scanMeta is written next to the store after every scan.
type scanMeta struct {
	Version   string     `json:"version"`
	Name      string     `json:"name"`
	Path      string     `json:"path"`
	ScannedAt string     `json:"scanned_at"`
	Stats     scanCounts `json:"stats"`
}

type scanCounts struct {
	Files     int     `json:"files"`
	Classes   int     `json:"classes"`
	Converted int     `json:"converted"`
	Skipped   int     `json:"skipped"`
	Unchanged int     `json:"unchanged"`
	Removed   int     `json:"removed"`
	Duration  float64 `json:"duration_secs"`
}

func writeMeta(storeDir, repoPath string, result *ingestion.PipelineResult) error {
	meta := scanMeta{
		Version:   Version,
		Name:      filepath.Base(repoPath),
		Path:      repoPath,
		ScannedAt: time.Now().UTC().Format(time.RFC3339),
		Stats: scanCounts{
			Files:     result.Files,
			Classes:   result.Classes,
			Converted: result.Converted,
			Skipped:   result.Skipped,
			Unchanged: result.Unchanged,
			Removed:   result.Removed,
			Duration:  result.DurationSecs,
		},
	}

	metaJSON, err := json.MarshalIndent(meta, "", "  ")
	if err != nil {
		return err
	}
	if err := os.WriteFile(filepath.Join(storeDir, metaFile), metaJSON, 0o644); err != nil {
		return fmt.Errorf("writing %s: %w", metaFile, err)
	}
	return nil
}

func printSummary(w io.Writer, title string, result *ingestion.PipelineResult) {
	color.New(color.FgGreen).Fprintf(w, "\n✓ %s\n", title)
	fmt.Fprintf(w, "  Files:          %d\n", result.Files)
	fmt.Fprintf(w, "  Classes:        %d\n", result.Classes)
	fmt.Fprintf(w, "  Converted:      %d\n", result.Converted)
	fmt.Fprintf(w, "  Unchanged:      %d\n", result.Unchanged)
	fmt.Fprintf(w, "  Removed:        %d\n", result.Removed)
	fmt.Fprintf(w, "  Duration:       %.2fs\n", result.DurationSecs)

	if len(result.Failures) > 0 {
		warn := color.New(color.FgYellow)
		warn.Fprintf(w, "  Skipped:        %d\n", result.Skipped)
		for _, f := range result.Failures {
			warn.Fprintf(w, "    %s\n", f.Error())
		}
	}
}

func selectClass(descs []*description.ClassDescription, name string) []*description.ClassDescription {
	var out []*description.ClassDescription
	for _, d := range descs {
		if d.QualifiedName() == name || d.ClassType().Name == name ||
			strings.HasSuffix(d.QualifiedName(), "."+name) {
			out = append(out, d)
		}
	}
	return out
}

// writeDescriptions renders descs in the given format.
func writeDescriptions(w io.Writer, format string, descs []*description.ClassDescription) error {
	switch format {
	case "json":
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		if len(descs) == 1 {
			return enc.Encode(descs[0])
		}
		return enc.Encode(descs)
	case "yaml":
		enc := yaml.NewEncoder(w)
		enc.SetIndent(2)
		defer enc.Close()
		if len(descs) == 1 {
			return enc.Encode(descs[0])
		}
		return enc.Encode(descs)
	default:
		for i, d := range descs {
			if i > 0 {
				fmt.Fprintln(w)
			}
			writeText(w, d)
		}
		return nil
	}
}

func writeText(w io.Writer, d *description.ClassDescription) {
	color.New(color.Bold).Fprintln(w, d.QualifiedName())
	for _, g := range d.Getters() {
		fmt.Fprintf(w, "  %s: %s\n", g.PropertyName, g.Type)
	}
	if imports := d.Imports(); len(imports) > 0 {
		names := make([]string, len(imports))
		for i, imp := range imports {
			names[i] = imp.String()
		}
		fmt.Fprintf(w, "  imports: %s\n", strings.Join(names, ", "))
	}
}

// CLI is the command-line interface structure.
type CLI struct {
	Version  kong.VersionFlag `help:"Show version information"`
	Config   string           `short:"c" type:"path" help:"Path to fluentgen.yaml (default: <repo>/fluentgen.yaml)"`
	LogLevel string           `help:"Log level (debug, info, warn, error, disabled)"`
	LogJSON  bool             `name:"log-json" help:"Log as JSON"`
	Repo     string           `short:"C" type:"path" default:"." help:"Repository root for show, query, mcp, status and clean"`

	// Commands
	Describe DescribeCmd `cmd:"" help:"Describe Java classes without storing them"`
	Scan     ScanCmd     `cmd:"" help:"Describe a repository into the description store"`
	Show     ShowCmd     `cmd:"" help:"Show the stored description of a class"`
	Query    QueryCmd    `cmd:"" help:"Search stored descriptions"`
	Watch    WatchCmd    `cmd:"" help:"Watch mode with live re-description"`
	MCP      MCPCmd      `cmd:"" help:"Start MCP server (stdio transport)"`
	Status   StatusCmd   `cmd:"" help:"Show store status for the repository"`
	Clean    CleanCmd    `cmd:"" help:"Delete the description store of the repository"`

	in     io.Reader
	out    io.Writer
	errOut io.Writer
}

// NewCLI creates a new CLI instance.
func NewCLI() *CLI {
	return &CLI{in: os.Stdin, out: os.Stdout, errOut: os.Stderr}
}

// Execute parses command-line arguments and executes the selected command.
func (c *CLI) Execute(args []string) error {
	parser, err := kong.New(c,
		kong.Name("fluentgen"),
		kong.Description("Describe Java classes for fluent assertion generation"),
		kong.UsageOnError(),
		kong.Writers(c.out, c.errOut),
		kong.ConfigureHelp(kong.HelpOptions{
			Compact:             true,
			NoExpandSubcommands: true,
		}),
		kong.Vars{
			"version": Version,
		},
	)
	if err != nil {
		return err
	}

	kongCtx, err := parser.Parse(args)
	if err != nil {
		return err
	}

	return kongCtx.Run(&App{
		configPath: c.Config,
		logLevel:   c.LogLevel,
		logJSON:    c.LogJSON,
		repo:       c.Repo,
		in:         c.in,
		out:        c.out,
		errOut:     c.errOut,
	})
}
