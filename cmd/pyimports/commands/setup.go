package commands

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/Sumatoshi-tech/pyimports/pkg/config"
	"github.com/Sumatoshi-tech/pyimports/pkg/detect"
	"github.com/Sumatoshi-tech/pyimports/pkg/module"
	"github.com/Sumatoshi-tech/pyimports/pkg/observability"
	"github.com/Sumatoshi-tech/pyimports/pkg/pattern"
	"github.com/Sumatoshi-tech/pyimports/pkg/report"
	"github.com/Sumatoshi-tech/pyimports/pkg/version"
	"github.com/Sumatoshi-tech/pyimports/pkg/walk"
)

// ErrUnknownColorMode is returned for a --color value other than auto,
// always or never.
var ErrUnknownColorMode = errors.New("unknown color mode")

// scanFlags are the flags shared by find-imports and rename-imports.
type scanFlags struct {
	strategy       string
	format         string
	color          string
	workers        int
	include        []string
	exclude        []string
	followSymlinks bool
	tolerateErrors bool
}

func (f *scanFlags) register(cmd *cobra.Command) {
	cmd.Flags().StringVar(&f.strategy, "strategy", config.DefaultStrategy, "Detection strategy: pattern, structural")
	cmd.Flags().StringVar(&f.format, "format", config.DefaultFormat, "Output format: text, json, yaml, table")
	cmd.Flags().StringVar(&f.color, "color", config.DefaultColor, "Colorize text output: auto, always, never")
	cmd.Flags().IntVar(&f.workers, "workers", config.DefaultWorkers, "Files processed concurrently")
	cmd.Flags().StringSliceVar(&f.include, "include", nil, "Candidate file patterns (default: *.py, *.enaml, *.rst)")
	cmd.Flags().StringSliceVar(&f.exclude, "exclude", nil, "Extra gitignore-style exclusions")
	cmd.Flags().BoolVar(&f.followSymlinks, "follow-symlinks", config.DefaultFollowSymlinks, "Follow symlinked files and directories")
	cmd.Flags().BoolVar(&f.tolerateErrors, "tolerate-errors", config.DefaultTolerateErrors,
		"Structural strategy: inspect well-formed imports of files with syntax errors")
}

// apply copies explicitly set flags over the loaded configuration.
func (f *scanFlags) apply(cmd *cobra.Command, cfg *config.Config) {
	flags := cmd.Flags()

	if flags.Changed("strategy") {
		cfg.Strategy = f.strategy
	}

	if flags.Changed("format") {
		cfg.Output.Format = f.format
	}

	if flags.Changed("color") {
		cfg.Output.Color = f.color
	}

	if flags.Changed("workers") {
		cfg.Walk.Workers = f.workers
	}

	if flags.Changed("include") {
		cfg.Walk.Include = f.include
	}

	if flags.Changed("exclude") {
		cfg.Walk.Exclude = append(cfg.Walk.Exclude, f.exclude...)
	}

	if flags.Changed("follow-symlinks") {
		cfg.Walk.FollowSymlinks = f.followSymlinks
	}

	if flags.Changed("tolerate-errors") {
		cfg.Structural.TolerateErrors = f.tolerateErrors
	}
}

// session bundles what a command run needs: the effective configuration and
// the observability providers.
type session struct {
	cfg       *config.Config
	providers observability.Providers
	patterns  *pattern.Cache
	out       io.Writer
}

// openSession loads the configuration, lets override adjust it and starts
// observability. Close must be called when the run ends.
func openSession(cmd *cobra.Command, globals *GlobalOptions, override func(*config.Config)) (*session, error) {
	cfg, err := config.LoadConfig(globals.ConfigPath)
	if err != nil {
		return nil, err
	}

	override(cfg)

	err = cfg.Validate()
	if err != nil {
		return nil, fmt.Errorf("invalid options: %w", err)
	}

	err = report.ValidateFormat(cfg.Output.Format)
	if err != nil {
		return nil, err
	}

	providers, err := observability.Init(observabilityConfig(cmd, globals, cfg))
	if err != nil {
		return nil, fmt.Errorf("init observability: %w", err)
	}

	return &session{
		cfg:       cfg,
		providers: providers,
		patterns:  pattern.NewCache(0),
		out:       cmd.OutOrStdout(),
	}, nil
}

func observabilityConfig(cmd *cobra.Command, globals *GlobalOptions, cfg *config.Config) observability.Config {
	obsCfg := observability.DefaultConfig()
	obsCfg.ServiceVersion = version.Version
	obsCfg.Environment = cfg.Observability.Environment
	obsCfg.OTLPEndpoint = cfg.Observability.OTLPEndpoint
	obsCfg.OTLPHeaders = observability.ParseOTLPHeaders(cfg.Observability.OTLPHeaders)
	obsCfg.OTLPInsecure = cfg.Observability.OTLPInsecure
	obsCfg.SampleRatio = cfg.Observability.SampleRatio
	obsCfg.DebugTrace = cfg.Observability.DebugTrace
	obsCfg.LogJSON = cfg.Logging.JSON || globals.LogJSON
	obsCfg.LogWriter = cmd.ErrOrStderr()
	obsCfg.LogLevel = observability.LevelFromFlags(
		observability.ParseLevel(cfg.Logging.Level, slog.LevelWarn), globals.Verbose, globals.Quiet)

	return obsCfg
}

// Close flushes telemetry.
func (s *session) Close() {
	err := s.providers.Shutdown(context.Background())
	if err != nil {
		s.providers.Logger.Warn("observability shutdown failed", "error", err)
	}
}

func (s *session) walker() (*walk.Walker, error) {
	maxSize, err := s.cfg.Walk.MaxFileSizeBytes()
	if err != nil {
		return nil, err
	}

	include := s.cfg.Walk.Include
	if len(include) == 0 {
		include = walk.DefaultIncludes()
	}

	return &walk.Walker{
		Include:        include,
		Ignore:         s.cfg.Walk.Exclude,
		UseGitignore:   s.cfg.Walk.UseGitignore,
		SkipVendor:     s.cfg.Walk.SkipVendor,
		FollowSymlinks: s.cfg.Walk.FollowSymlinks,
		MaxFileSize:    maxSize,
	}, nil
}

func (s *session) detector(id module.Identifier) (detect.Detector, error) {
	det, err := detect.New(s.cfg.Strategy, id, detect.Options{
		Patterns: s.patterns,
		Structural: detect.StructuralOptions{
			Grammars:       s.cfg.Structural.Extensions(),
			TolerateErrors: s.cfg.Structural.TolerateErrors,
		},
	})
	if err != nil {
		return nil, fmt.Errorf("build detector: %w", err)
	}

	return det, nil
}

func (s *session) renderOptions(showDiff bool) (report.Options, error) {
	useColor, err := colorEnabled(s.cfg.Output.Color, s.out)
	if err != nil {
		return report.Options{}, err
	}

	return report.Options{
		Format:   s.cfg.Output.Format,
		Color:    useColor,
		ShowDiff: showDiff,
	}, nil
}

// colorEnabled resolves a color mode. Auto colors only a terminal stdout,
// following fatih/color's NO_COLOR and TERM detection.
func colorEnabled(mode string, w io.Writer) (bool, error) {
	switch mode {
	case config.ColorAlways:
		return true, nil
	case config.ColorNever:
		return false, nil
	case config.ColorAuto, "":
		return w == os.Stdout && !color.NoColor, nil
	default:
		return false, fmt.Errorf("%w: %q", ErrUnknownColorMode, mode)
	}
}

func parseIdentifier(role, raw string) (module.Identifier, error) {
	id, err := module.Parse(raw)
	if err != nil {
		return "", fmt.Errorf("%s module: %w", role, err)
	}

	return id, nil
}
