package config

import (
	"bytes"
	"encoding/json"
	stderrors "errors"
	"io"
	"os"

	"github.com/go-playground/validator/v10"
	"github.com/invopop/jsonschema"
	"github.com/kelseyhightower/envconfig"
	"github.com/rxtech-lab/argo-pricefetch/internal/version"
	"github.com/rxtech-lab/argo-pricefetch/pkg/errors"
	"gopkg.in/yaml.v3"
)

// EnvPrefix is the prefix of every environment variable read by Load.
const EnvPrefix = "PRICEFETCH"

// Config holds the settings that can come from a file or the environment.
// Command-line flags are applied on top by the caller.
type Config struct {
	Version        string `yaml:"version,omitempty" json:"version,omitempty" ignored:"true" jsonschema:"title=Version,description=Binary version the file was written for"`
	Provider       string `yaml:"provider" json:"provider,omitempty" jsonschema:"title=Provider,enum=yahoo,enum=polygon,enum=binance,default=yahoo" validate:"required,oneof=yahoo polygon binance"`
	Format         string `yaml:"format" json:"format,omitempty" jsonschema:"title=Format,enum=csv,enum=json,enum=parquet,enum=duckdb,enum=xlsx,default=csv" validate:"required,oneof=csv json parquet duckdb xlsx"`
	Output         string `yaml:"output" json:"output,omitempty" jsonschema:"title=Output,description=Output file path,default=data/raw/prices.csv" validate:"required"`
	Interval       string `yaml:"interval" json:"interval,omitempty" jsonschema:"title=Interval,enum=1d,enum=1wk,enum=1mo,enum=1h,enum=5m,enum=15m,enum=30m,enum=60m,default=1d" validate:"required"`
	Precision      int    `yaml:"precision" json:"precision,omitempty" jsonschema:"title=Precision,description=Decimal places kept for prices; -1 keeps full precision,minimum=-1,default=-1" validate:"min=-1"`
	LogLevel       string `yaml:"log_level" json:"log_level,omitempty" split_words:"true" jsonschema:"title=Log Level,enum=debug,enum=info,enum=warn,enum=error,default=info" validate:"required,oneof=debug info warn error"`
	Progress       bool   `yaml:"progress" json:"progress,omitempty" jsonschema:"title=Progress,description=Show a progress bar on stderr"`
	PolygonApiKey  string `yaml:"polygon_api_key" json:"polygon_api_key,omitempty" split_words:"true" jsonschema:"title=Polygon API Key" validate:"required_if=Provider polygon"`
	YahooBaseURL   string `yaml:"yahoo_base_url" json:"yahoo_base_url,omitempty" split_words:"true" jsonschema:"title=Yahoo Base URL,format=uri" validate:"omitempty,url"`
	BinanceBaseURL string `yaml:"binance_base_url" json:"binance_base_url,omitempty" split_words:"true" jsonschema:"title=Binance Base URL,format=uri" validate:"omitempty,url"`
}

// Default returns the built-in settings.
func Default() Config {
	return Config{
		Version:        "",
		Provider:       "yahoo",
		Format:         "csv",
		Output:         "data/raw/prices.csv",
		Interval:       "1d",
		Precision:      -1,
		LogLevel:       "info",
		Progress:       false,
		PolygonApiKey:  "",
		YahooBaseURL:   "",
		BinanceBaseURL: "",
	}
}

// Load builds the configuration from the defaults, the YAML file at path (skipped when path is empty)
// and PRICEFETCH_* environment variables, in that order of precedence. It does not validate.
func Load(path string) (*Config, error) {
	cfg := Default()

	if path != "" {
		if err := cfg.loadFile(path); err != nil {
			return nil, err
		}
	}

	if err := envconfig.Process(EnvPrefix, &cfg); err != nil {
		return nil, errors.Wrap(errors.ErrCodeInvalidConfiguration, "failed to load config from env", err)
	}

	if cfg.Version != "" {
		if err := version.CheckConfigCompatibility(version.GetVersion(), cfg.Version); err != nil {
			return nil, errors.Wrap(errors.ErrCodeInvalidVersion, "incompatible config file", err)
		}
	}

	return &cfg, nil
}

func (c *Config) loadFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return errors.Wrap(errors.ErrCodeInvalidConfiguration, "failed to read config file", err)
	}

	decoder := yaml.NewDecoder(bytes.NewReader(data))
	decoder.KnownFields(true)

	if err := decoder.Decode(c); err != nil && !stderrors.Is(err, io.EOF) {
		return errors.Wrapf(errors.ErrCodeInvalidConfiguration, err, "failed to parse %s", path)
	}

	return nil
}

// Validate checks the configuration with its validate tags.
func (c *Config) Validate() error {
	if err := validator.New().Struct(c); err != nil {
		return errors.Wrap(errors.ErrCodeInvalidConfiguration, "config validation failed", err)
	}

	return nil
}

// Schema returns the JSON schema of the config file.
func Schema() (string, error) {
	r := new(jsonschema.Reflector)
	r.DoNotReference = true
	schema := r.Reflect(&Config{})

	jsonSchemaBytes, err := json.MarshalIndent(schema, "", "  ")
	if err != nil {
		return "", err
	}

	return string(jsonSchemaBytes), nil
}
