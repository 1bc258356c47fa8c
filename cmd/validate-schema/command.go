package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/scott-cotton/cli"

	"github.com/agentflare-ai/xsdgate/internal/config"
	"github.com/agentflare-ai/xsdgate/internal/loader"
	"github.com/agentflare-ai/xsdgate/internal/logging"
	"github.com/agentflare-ai/xsdgate/internal/report"
	"github.com/agentflare-ai/xsdgate/internal/run"
	"github.com/agentflare-ai/xsdgate/xsd"
)

const description = `validate-schema checks XML documents against an XML Schema 1.1 definition.

Exit status:
  0  every document is valid
  1  at least one document is invalid, or the schema could not be loaded
  2  at least one document could not be validated, or bad usage

Settings are read from .xsdgate.yaml (or -config), then XSDGATE_* environment
variables, then flags.`

// errUsage marks invocations rejected before any validation starts.
var errUsage = errors.New("usage")

// Config holds the command-line options.
type Config struct {
	*cli.Command

	Silent     bool   `cli:"name=s aliases=silent desc='suppress all output; only the exit status is meaningful'"`
	Verbose    bool   `cli:"name=v aliases=verbose desc='print the schema and each document and full violation detail'"`
	Schema     string `cli:"name=schema desc='schema file (default: default.xsd next to the executable)'"`
	ConfigFile string `cli:"name=config desc='YAML configuration file (default: .xsdgate.yaml when present)'"`
	Strict     bool   `cli:"name=strict desc='reject schemas that break any XML Schema rule'"`
	Pretty     bool   `cli:"name=pretty desc='render violations with source context'"`

	// Timeout and Color are set by function options; nil/empty means unset.
	Timeout *time.Duration
	Color   string

	ctx    context.Context
	stderr io.Writer
}

// MainCommand returns the validate-schema command. ctx is cancelled on
// SIGINT or SIGTERM.
func MainCommand(ctx context.Context) *cli.Command {
	cfg := &Config{ctx: ctx, stderr: os.Stderr}
	opts, err := cli.StructOpts(cfg)
	if err != nil {
		panic(err)
	}
	opts = append(opts,
		&cli.Opt{
			Name:        "timeout",
			Description: "per-document deadline such as 5s; 0 disables it",
			Type:        cli.NamedFuncOpt(cfg.timeoutOpt, "(duration)"),
		},
		&cli.Opt{
			Name:        "color",
			Description: "color status lines: auto, always or never",
			Type:        cli.NamedFuncOpt(cfg.colorOpt, "(when)"),
		})

	return cli.NewCommandAt(&cfg.Command, "validate-schema").
		WithSynopsis("validate-schema [opts] FILE...").
		WithDescription(description).
		WithOpts(opts...).
		WithRun(cfg.run)
}

func (cfg *Config) timeoutOpt(_ *cli.Context, a string) (any, error) {
	d, err := time.ParseDuration(a)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", cli.ErrUsage, err)
	}
	if d < 0 {
		return nil, fmt.Errorf("%w: negative timeout %s", cli.ErrUsage, a)
	}
	cfg.Timeout = &d
	return d, nil
}

func (cfg *Config) colorOpt(_ *cli.Context, a string) (any, error) {
	mode, err := config.ParseColor(a)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", cli.ErrUsage, err)
	}
	cfg.Color = mode
	return mode, nil
}

func (cfg *Config) run(cc *cli.Context, args []string) error {
	args, err := cfg.Parse(cc, args)
	if err != nil {
		return err
	}
	code, err := cfg.execute(cfg.ctx, cc.Out, args)
	if err != nil {
		if errors.Is(err, errUsage) {
			fmt.Fprintf(cfg.stderr, "validate-schema: %s\n", strings.TrimPrefix(err.Error(), "usage: "))
			return cli.ExitCodeErr(run.ExitError)
		}
		return err
	}
	if code != run.ExitValid {
		return cli.ExitCodeErr(code)
	}
	return nil
}

// execute merges settings, checks the inputs exist and runs validation. It
// returns the exit status, or an error wrapping errUsage for a rejected
// invocation.
func (cfg *Config) execute(ctx context.Context, stdout io.Writer, docs []string) (int, error) {
	if len(docs) == 0 {
		return 0, fmt.Errorf("%w: no documents to validate", errUsage)
	}

	settings, err := config.Load(cfg.ConfigFile)
	if err != nil {
		return 0, fmt.Errorf("%w: %w", errUsage, err)
	}
	cfg.apply(settings)

	colorMode, err := config.ParseColor(settings.Color)
	if err != nil {
		return 0, fmt.Errorf("%w: %w", errUsage, err)
	}

	cleanup, err := logging.Setup(logging.Config{
		Level:      settings.LogLevel,
		FilePath:   settings.LogFile,
		MaxSizeMB:  settings.LogMaxSizeMB,
		MaxBackups: settings.LogMaxBackups,
		MaxAgeDays: settings.LogMaxAgeDays,
		Compress:   settings.LogCompress,
	})
	if err != nil {
		return 0, fmt.Errorf("failed to set up logging: %w", err)
	}
	defer cleanup()

	if !isRemote(settings.Schema) || !settings.AllowRemoteImports {
		if err := mustExist("schema", settings.Schema); err != nil {
			return 0, err
		}
	}
	for _, doc := range docs {
		if err := mustExist("document", doc); err != nil {
			return 0, err
		}
	}

	cache, err := xsd.NewSchemaCache(settings.SchemaCacheSize)
	if err != nil {
		return 0, fmt.Errorf("failed to create schema cache: %w", err)
	}

	controller := &run.Controller{
		Loader: &loader.Loader{
			Cache:   cache,
			Options: xsd.CompileOptions{Mode: settings.SchemaMode, AllowRemote: settings.AllowRemoteImports},
			Err:     cfg.stderr,
		},
		Options: run.Options{
			Silent:  cfg.Silent,
			Verbose: cfg.Verbose,
			Pretty:  cfg.Pretty,
			Timeout: settings.Timeout,
		},
		Printer: report.New(stdout, cfg.stderr, colorMode),
	}
	_, code := controller.Run(ctx, settings.Schema, docs)
	return code, nil
}

// apply lays the flags that were given over the loaded settings.
func (cfg *Config) apply(settings *config.Config) {
	if cfg.Schema != "" {
		settings.Schema = cfg.Schema
	}
	if cfg.Strict {
		settings.SchemaMode = xsd.Strict
	}
	if cfg.Timeout != nil {
		settings.Timeout = *cfg.Timeout
	}
	if cfg.Color != "" {
		settings.Color = cfg.Color
	}
}

func mustExist(what, path string) error {
	info, err := os.Stat(path)
	if err != nil {
		return fmt.Errorf("%w: %s %s does not exist", errUsage, what, path)
	}
	if info.IsDir() {
		return fmt.Errorf("%w: %s %s is a directory", errUsage, what, path)
	}
	return nil
}

func isRemote(path string) bool {
	return strings.HasPrefix(path, "http://") || strings.HasPrefix(path, "https://")
}
