// Package config loads pyimports settings from defaults, a YAML file, a .env
// file and PYIMPORTS_* environment variables.
package config

import (
	_ "embed"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strings"

	"github.com/dustin/go-humanize"
	"github.com/joho/godotenv"
	"github.com/spf13/viper"
	"github.com/xeipuuv/gojsonschema"

	"github.com/Sumatoshi-tech/pyimports/pkg/detect"
	"github.com/Sumatoshi-tech/pyimports/pkg/walk"
)

// Sentinel validation errors.
var (
	ErrInvalidLineLength  = errors.New("max line length must be positive")
	ErrInvalidWorkers     = errors.New("workers must be positive")
	ErrInvalidStrategy    = errors.New("unknown detection strategy")
	ErrInvalidMaxFileSize = errors.New("invalid max file size")
	ErrSchema             = errors.New("configuration does not match schema")
)

const (
	envPrefix      = "PYIMPORTS"
	configName     = ".pyimports"
	configType     = "yaml"
	defaultEnvFile = ".env"
)

//go:embed schema.json
var schemaJSON []byte

// Config holds all pyimports settings.
type Config struct {
	Strategy      string              `json:"strategy" mapstructure:"strategy"`
	Walk          WalkConfig          `json:"walk" mapstructure:"walk"`
	Structural    StructuralConfig    `json:"structural" mapstructure:"structural"`
	Rename        RenameConfig        `json:"rename" mapstructure:"rename"`
	Output        OutputConfig        `json:"output" mapstructure:"output"`
	Logging       LoggingConfig       `json:"logging" mapstructure:"logging"`
	Observability ObservabilityConfig `json:"observability" mapstructure:"observability"`
}

// WalkConfig selects the candidate files.
type WalkConfig struct {
	Include        []string `json:"include" mapstructure:"include"`
	Exclude        []string `json:"exclude" mapstructure:"exclude"`
	UseGitignore   bool     `json:"use_gitignore" mapstructure:"use_gitignore"`
	SkipVendor     bool     `json:"skip_vendor" mapstructure:"skip_vendor"`
	FollowSymlinks bool     `json:"follow_symlinks" mapstructure:"follow_symlinks"`
	// MaxFileSize accepts humanized sizes such as "2MiB"; "0" disables it.
	MaxFileSize string `json:"max_file_size" mapstructure:"max_file_size"`
	Workers     int    `json:"workers" mapstructure:"workers"`
}

// StructuralConfig tunes the syntax-tree strategy.
type StructuralConfig struct {
	// Grammars maps extensions without the leading dot ("py") to grammar
	// names. Viper splits keys on dots, so the dot is added by Extensions.
	Grammars       map[string]string `json:"grammars" mapstructure:"grammars"`
	TolerateErrors bool              `json:"tolerate_errors" mapstructure:"tolerate_errors"`
}

// Extensions returns Grammars keyed by dotted extension, or nil when unset.
func (s StructuralConfig) Extensions() map[string]string {
	if len(s.Grammars) == 0 {
		return nil
	}

	out := make(map[string]string, len(s.Grammars))
	for ext, grammar := range s.Grammars {
		out["."+strings.TrimPrefix(ext, ".")] = grammar
	}

	return out
}

// RenameConfig tunes rename-imports.
type RenameConfig struct {
	MaxLineLength  int  `json:"max_line_length" mapstructure:"max_line_length"`
	FirstMatchOnly bool `json:"first_match_only" mapstructure:"first_match_only"`
}

// OutputConfig selects the report format.
type OutputConfig struct {
	Format string `json:"format" mapstructure:"format"`
	Color  string `json:"color" mapstructure:"color"`
}

// LoggingConfig holds logging-specific configuration.
type LoggingConfig struct {
	Level string `json:"level" mapstructure:"level"`
	JSON  bool   `json:"json" mapstructure:"json"`
}

// ObservabilityConfig configures OTLP export.
type ObservabilityConfig struct {
	OTLPEndpoint string  `json:"otlp_endpoint" mapstructure:"otlp_endpoint"`
	OTLPHeaders  string  `json:"otlp_headers" mapstructure:"otlp_headers"`
	OTLPInsecure bool    `json:"otlp_insecure" mapstructure:"otlp_insecure"`
	SampleRatio  float64 `json:"sample_ratio" mapstructure:"sample_ratio"`
	DebugTrace   bool    `json:"debug_trace" mapstructure:"debug_trace"`
	Environment  string  `json:"environment" mapstructure:"environment"`
}

// MaxFileSizeBytes parses MaxFileSize. Empty and "0" mean no limit.
func (w WalkConfig) MaxFileSizeBytes() (int64, error) {
	raw := strings.TrimSpace(w.MaxFileSize)
	if raw == "" || raw == "0" {
		return 0, nil
	}

	size, err := humanize.ParseBytes(raw)
	if err != nil {
		return 0, fmt.Errorf("%w: %q: %w", ErrInvalidMaxFileSize, w.MaxFileSize, err)
	}

	if size > uint64(1<<62) {
		return 0, fmt.Errorf("%w: %q is too large", ErrInvalidMaxFileSize, w.MaxFileSize)
	}

	return int64(size), nil
}

// LoadOptions locate the configuration sources.
type LoadOptions struct {
	// ConfigPath is an explicit YAML file. Empty searches SearchPaths for
	// .pyimports.yaml.
	ConfigPath  string
	SearchPaths []string
	// EnvFiles are dotenv files read for PYIMPORTS_* values. Missing files
	// are ignored; real environment variables win.
	EnvFiles []string
}

// LoadConfig loads configuration from path (or the default locations when
// empty), ./.env and the environment.
func LoadConfig(configPath string) (*Config, error) {
	searchPaths := []string{"."}

	home, err := os.UserHomeDir()
	if err == nil {
		searchPaths = append(searchPaths, home)
	}

	return LoadConfigFrom(LoadOptions{
		ConfigPath:  configPath,
		SearchPaths: searchPaths,
		EnvFiles:    []string{defaultEnvFile},
	})
}

// LoadConfigFrom loads configuration from the sources in opts.
func LoadConfigFrom(opts LoadOptions) (*Config, error) {
	viperCfg := viper.New()

	setDefaults(viperCfg)

	if opts.ConfigPath != "" {
		viperCfg.SetConfigFile(opts.ConfigPath)
	} else {
		viperCfg.SetConfigName(configName)
		viperCfg.SetConfigType(configType)

		for _, p := range opts.SearchPaths {
			viperCfg.AddConfigPath(p)
		}
	}

	viperCfg.SetEnvPrefix(envPrefix)
	viperCfg.AutomaticEnv()
	viperCfg.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	readErr := viperCfg.ReadInConfig()
	if readErr != nil {
		var notFoundErr viper.ConfigFileNotFoundError
		if !errors.As(readErr, &notFoundErr) {
			return nil, fmt.Errorf("failed to read config file: %w", readErr)
		}
	}

	dotenvErr := applyDotenv(viperCfg, opts.EnvFiles)
	if dotenvErr != nil {
		return nil, dotenvErr
	}

	var config Config

	unmarshalErr := viperCfg.Unmarshal(&config)
	if unmarshalErr != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", unmarshalErr)
	}

	validateErr := config.Validate()
	if validateErr != nil {
		return nil, fmt.Errorf("invalid configuration: %w", validateErr)
	}

	return &config, nil
}

// setDefaults sets default configuration values.
func setDefaults(viperCfg *viper.Viper) {
	viperCfg.SetDefault("strategy", DefaultStrategy)

	viperCfg.SetDefault("walk.include", walk.DefaultIncludes())
	viperCfg.SetDefault("walk.exclude", []string{})
	viperCfg.SetDefault("walk.use_gitignore", DefaultUseGitignore)
	viperCfg.SetDefault("walk.skip_vendor", DefaultSkipVendor)
	viperCfg.SetDefault("walk.follow_symlinks", DefaultFollowSymlinks)
	viperCfg.SetDefault("walk.max_file_size", DefaultMaxFileSize)
	viperCfg.SetDefault("walk.workers", DefaultWorkers)

	viperCfg.SetDefault("structural.grammars", defaultGrammars())
	viperCfg.SetDefault("structural.tolerate_errors", DefaultTolerateErrors)

	viperCfg.SetDefault("rename.max_line_length", DefaultMaxLineLength)
	viperCfg.SetDefault("rename.first_match_only", DefaultFirstMatchOnly)

	viperCfg.SetDefault("output.format", DefaultFormat)
	viperCfg.SetDefault("output.color", DefaultColor)

	viperCfg.SetDefault("logging.level", DefaultLogLevel)
	viperCfg.SetDefault("logging.json", DefaultLogJSON)

	viperCfg.SetDefault("observability.otlp_endpoint", "")
	viperCfg.SetDefault("observability.otlp_headers", "")
	viperCfg.SetDefault("observability.otlp_insecure", false)
	viperCfg.SetDefault("observability.sample_ratio", 0.0)
	viperCfg.SetDefault("observability.debug_trace", false)
	viperCfg.SetDefault("observability.environment", "")
}

func defaultGrammars() map[string]string {
	out := make(map[string]string)
	for ext, grammar := range detect.DefaultGrammars() {
		out[strings.TrimPrefix(ext, ".")] = grammar
	}

	return out
}

// applyDotenv maps PYIMPORTS_* entries of the dotenv files onto known keys.
// Variables already present in the process environment are left to viper.
func applyDotenv(viperCfg *viper.Viper, files []string) error {
	envToKey := make(map[string]string)
	for _, key := range viperCfg.AllKeys() {
		envToKey[envPrefix+"_"+strings.ToUpper(strings.ReplaceAll(key, ".", "_"))] = key
	}

	for _, file := range files {
		values, err := godotenv.Read(file)
		if errors.Is(err, fs.ErrNotExist) {
			continue
		}

		if err != nil {
			return fmt.Errorf("failed to read env file %s: %w", file, err)
		}

		for name, value := range values {
			key, known := envToKey[name]
			if !known {
				continue
			}

			if _, set := os.LookupEnv(name); set {
				continue
			}

			viperCfg.Set(key, value)
		}
	}

	return nil
}

// Validate checks the Go-side invariants, then the embedded schema. Callers
// that override loaded values run it again.
func (cfg *Config) Validate() error {
	if cfg.Rename.MaxLineLength <= 0 {
		return fmt.Errorf("%w: %d", ErrInvalidLineLength, cfg.Rename.MaxLineLength)
	}

	if cfg.Walk.Workers <= 0 {
		return fmt.Errorf("%w: %d", ErrInvalidWorkers, cfg.Walk.Workers)
	}

	switch cfg.Strategy {
	case detect.StrategyPattern, detect.StrategyStructural:
	default:
		return fmt.Errorf("%w: %q", ErrInvalidStrategy, cfg.Strategy)
	}

	_, sizeErr := cfg.Walk.MaxFileSizeBytes()
	if sizeErr != nil {
		return sizeErr
	}

	return validateSchema(cfg)
}

func validateSchema(cfg *Config) error {
	result, err := gojsonschema.Validate(
		gojsonschema.NewBytesLoader(schemaJSON),
		gojsonschema.NewGoLoader(cfg),
	)
	if err != nil {
		return fmt.Errorf("schema validation: %w", err)
	}

	if result.Valid() {
		return nil
	}

	problems := make([]string, 0, len(result.Errors()))
	for _, desc := range result.Errors() {
		problems = append(problems, desc.String())
	}

	return fmt.Errorf("%w: %s", ErrSchema, strings.Join(problems, "; "))
}
