package config

import (
	"fmt"
	"os"

	yaml "gopkg.in/yaml.v2"
)

// Config is the top-level solguard configuration loaded from a YAML file.
type Config struct {
	Logger     Logger     `yaml:"logger"`
	Pipeline   Pipeline   `yaml:"pipeline"`
	Engines    Engines    `yaml:"engines"`
	Checkpoint Checkpoint `yaml:"checkpoint"`
	Events     Events     `yaml:"events"`
	Sinks      Sinks      `yaml:"sinks"`
	HttpClient HttpClient `yaml:"http_client"`
}

type Logger struct {
	Level string `yaml:"level"`
}

// Pipeline holds orchestrator-level settings.
type Pipeline struct {
	// TenantConcurrency caps simultaneous adapter invocations per tenant.
	TenantConcurrency int `yaml:"tenant_concurrency"`
	// WorkDir is where stage working directories and raw outputs are placed.
	WorkDir string `yaml:"work_dir"`
}

// Engines selects where analysis engines come from.
type Engines struct {
	// External lists engine plugin binaries dispensed from the plugins
	// folder. They override the built-in adapter with the same name.
	External []string `yaml:"external"`
}

type Checkpoint struct {
	// Path to the SQLite checkpoint database. Empty means <home>/checkpoints.db.
	Path string `yaml:"path"`
}

type Events struct {
	// WebsocketURL, when set, enables the websocket progress publisher.
	WebsocketURL string `yaml:"websocket_url"`
}

type Sinks struct {
	// ResultsDir is where the JSON run record is written. Empty means <home>/results.
	ResultsDir string `yaml:"results_dir"`
	// ResultsAPI, when set, enables the HTTP finding sink.
	ResultsAPI  ResultsAPI `yaml:"results_api"`
	ArtifactsS3 S3         `yaml:"artifacts_s3"`
	ExportSarif bool       `yaml:"export_sarif"`
}

type ResultsAPI struct {
	URL   string `yaml:"url"`
	Token string `yaml:"token"`
}

type S3 struct {
	Bucket string `yaml:"bucket"`
	Region string `yaml:"region"`
	Prefix string `yaml:"prefix"`
}

type HttpClient struct {
	Debug            bool   `yaml:"debug"`
	RetryCount       int    `yaml:"retry_count"`
	RetryWaitTime    string `yaml:"retry_wait_time"`
	RetryMaxWaitTime string `yaml:"retry_max_wait_time"`
	Timeout          string `yaml:"timeout"`
}

// ValidateConfigPath checks that the path exists and is a regular file.
func ValidateConfigPath(path string) error {
	s, err := os.Stat(path)
	if err != nil {
		return err
	}
	if s.IsDir() {
		return fmt.Errorf("'%s' is a directory, not a file", path)
	}
	return nil
}

// LoadYAML decodes the YAML file at configPath into data.
func LoadYAML(configPath string, data interface{}) error {
	if err := ValidateConfigPath(configPath); err != nil {
		return err
	}

	file, err := os.Open(configPath)
	if err != nil {
		return err
	}
	defer file.Close()

	d := yaml.NewDecoder(file)
	if err := d.Decode(data); err != nil {
		return err
	}

	return nil
}

// LoadConfig reads the solguard configuration from configPath. A missing file
// yields the zero Config so the CLI works without any configuration.
func LoadConfig(configPath string) (*Config, error) {
	config := &Config{}

	if _, err := os.Stat(configPath); os.IsNotExist(err) {
		return config, nil
	}

	if err := LoadYAML(configPath, config); err != nil {
		return nil, err
	}

	return config, nil
}
