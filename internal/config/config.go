package config

import (
	"errors"
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// Defaults mirror the deployed stack in ap-south-1.
const (
	defaultRegion       = "ap-south-1"
	defaultStackName    = "BDAResumeStack"
	defaultLogGroup     = "/aws/lambda/bda-resume-processor"
	defaultResultsDir   = "results"
	defaultErrorPattern = "ERROR"
	defaultParamPrefix  = "/bda/resume-parser"
	defaultPollInterval = 5 * time.Second
	defaultTimeout      = 5 * time.Minute
	defaultLookBack     = 30 * time.Second
)

// Config carries every external coordinate the workflow needs. It is built
// once in main and passed down explicitly; nothing below main reads the
// environment.
type Config struct {
	Bucket       string
	Region       string
	StackName    string
	LogGroup     string
	ParamPrefix  string
	ResultsDir   string
	ErrorPattern string
	PollInterval time.Duration
	Timeout      time.Duration
	LookBack     time.Duration
}

// UnmarshalYAML overlays only the fields present in the document onto the
// current values. Durations are given as strings like "5s" or "5m".
func (c *Config) UnmarshalYAML(value *yaml.Node) error {
	var raw struct {
		Bucket       string `yaml:"bucket"`
		Region       string `yaml:"region"`
		StackName    string `yaml:"stack_name"`
		LogGroup     string `yaml:"log_group"`
		ParamPrefix  string `yaml:"param_prefix"`
		ResultsDir   string `yaml:"results_dir"`
		ErrorPattern string `yaml:"error_pattern"`
		PollInterval string `yaml:"poll_interval"`
		Timeout      string `yaml:"timeout"`
		LookBack     string `yaml:"look_back"`
	}
	if err := value.Decode(&raw); err != nil {
		return err
	}

	setString(&c.Bucket, raw.Bucket)
	setString(&c.Region, raw.Region)
	setString(&c.StackName, raw.StackName)
	setString(&c.LogGroup, raw.LogGroup)
	setString(&c.ParamPrefix, raw.ParamPrefix)
	setString(&c.ResultsDir, raw.ResultsDir)
	setString(&c.ErrorPattern, raw.ErrorPattern)
	if err := setDuration(&c.PollInterval, raw.PollInterval); err != nil {
		return fmt.Errorf("poll_interval: %w", err)
	}
	if err := setDuration(&c.Timeout, raw.Timeout); err != nil {
		return fmt.Errorf("timeout: %w", err)
	}
	if err := setDuration(&c.LookBack, raw.LookBack); err != nil {
		return fmt.Errorf("look_back: %w", err)
	}
	return nil
}

// Default returns a Config populated with the stock deployment values.
func Default() Config {
	return Config{
		Region:       defaultRegion,
		StackName:    defaultStackName,
		LogGroup:     defaultLogGroup,
		ParamPrefix:  defaultParamPrefix,
		ResultsDir:   defaultResultsDir,
		ErrorPattern: defaultErrorPattern,
		PollInterval: defaultPollInterval,
		Timeout:      defaultTimeout,
		LookBack:     defaultLookBack,
	}
}

// Load builds the effective configuration: defaults, then the optional YAML
// file at path, then environment overrides. An empty path skips the file.
func Load(path string) (Config, error) {
	cfg := Default()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return Config{}, fmt.Errorf("config: read %s: %w", path, err)
		}
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return Config{}, fmt.Errorf("config: parse %s: %w", path, err)
		}
	}

	applyEnv(&cfg)

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Validate checks the fields no run can proceed without.
func (c Config) Validate() error {
	if c.Bucket == "" {
		return errors.New("config: bucket must be set (BDA_BUCKET or config file)")
	}
	if c.Region == "" {
		return errors.New("config: region must not be empty")
	}
	if c.PollInterval <= 0 {
		return errors.New("config: poll interval must be positive")
	}
	if c.Timeout <= 0 {
		return errors.New("config: timeout must be positive")
	}
	return nil
}

func applyEnv(cfg *Config) {
	setEnvString(&cfg.Bucket, "BDA_BUCKET")
	setEnvString(&cfg.Region, "AWS_REGION")
	setEnvString(&cfg.StackName, "BDA_STACK_NAME")
	setEnvString(&cfg.LogGroup, "BDA_LOG_GROUP")
	setEnvString(&cfg.ParamPrefix, "BDA_PARAM_PREFIX")
	setEnvString(&cfg.ResultsDir, "BDA_RESULTS_DIR")
	setEnvString(&cfg.ErrorPattern, "BDA_ERROR_PATTERN")
	setEnvDuration(&cfg.PollInterval, "BDA_POLL_INTERVAL")
	setEnvDuration(&cfg.Timeout, "BDA_TIMEOUT")
	setEnvDuration(&cfg.LookBack, "BDA_LOOK_BACK")
}

func setString(dst *string, v string) {
	if v != "" {
		*dst = v
	}
}

func setDuration(dst *time.Duration, v string) error {
	if v == "" {
		return nil
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return err
	}
	*dst = d
	return nil
}

func setEnvString(dst *string, key string) {
	if v := os.Getenv(key); v != "" {
		*dst = v
	}
}

func setEnvDuration(dst *time.Duration, key string) {
	v := os.Getenv(key)
	if v == "" {
		return
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return
	}
	*dst = d
}
