package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/ilyakaznacheev/cleanenv"
	"gopkg.in/yaml.v3"
)

// Config holds wsd configuration.
type Config struct {
	Words     []string        `yaml:"words" env:"WSD_WORDS" env-separator:","`
	Artifacts ArtifactsConfig `yaml:"artifacts"`
	Predictor PredictorConfig `yaml:"predictor"`
	Training  TrainingConfig  `yaml:"training"`
	Batch     BatchConfig     `yaml:"batch"`
	Server    ServerConfig    `yaml:"server"`
	Log       LogConfig       `yaml:"log"`
	Telemetry TelemetryConfig `yaml:"telemetry"`
	Audit     AuditConfig     `yaml:"audit"`
}

type ArtifactsConfig struct {
	Backend      string `yaml:"backend" env:"WSD_ARTIFACTS_BACKEND"` // dir | sqlite | memory
	Dir          string `yaml:"dir" env:"WSD_ARTIFACTS_DIR"`
	SQLitePath   string `yaml:"sqlite_path" env:"WSD_ARTIFACTS_SQLITE_PATH"`
	DisableCache bool   `yaml:"disable_cache" env:"WSD_ARTIFACTS_DISABLE_CACHE"`
}

type PredictorConfig struct {
	Workers int `yaml:"workers" env:"WSD_PREDICTOR_WORKERS"`
}

type TrainingConfig struct {
	DataDir     string  `yaml:"data_dir" env:"WSD_TRAINING_DATA_DIR"`
	NgramMin    int     `yaml:"ngram_min"`
	NgramMax    int     `yaml:"ngram_max"`
	MinDF       int     `yaml:"min_df"`
	MaxDF       float64 `yaml:"max_df"`
	SublinearTF bool    `yaml:"sublinear_tf"`
	C           float64 `yaml:"c"`
	MaxIter     int     `yaml:"max_iter"`
	Folds       int     `yaml:"folds" env:"WSD_TRAINING_FOLDS"`
	Seed        uint64  `yaml:"seed"`
	Workers     int     `yaml:"workers" env:"WSD_TRAINING_WORKERS"`
}

// BatchConfig holds file name patterns for the batch driver. "{word}" is
// replaced with the target word.
type BatchConfig struct {
	Input  string `yaml:"input" env:"WSD_BATCH_INPUT"`
	Output string `yaml:"output" env:"WSD_BATCH_OUTPUT"`
}

type ServerConfig struct {
	Addr            string        `yaml:"addr" env:"WSD_SERVER_ADDR"` // HTTP listen address, e.g. ":8080"
	MaxSentences    int           `yaml:"max_sentences" env:"WSD_SERVER_MAX_SENTENCES"`
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout"`
}

type LogConfig struct {
	Level  string `yaml:"level" env:"WSD_LOG_LEVEL"`   // debug | info | warn | error
	Format string `yaml:"format" env:"WSD_LOG_FORMAT"` // json | text
}

type TelemetryConfig struct {
	Enabled  bool   `yaml:"enabled" env:"WSD_TELEMETRY_ENABLED"`
	Endpoint string `yaml:"endpoint" env:"WSD_TELEMETRY_ENDPOINT"`
	Protocol string `yaml:"protocol" env:"WSD_TELEMETRY_PROTOCOL"` // grpc | http
	Service  string `yaml:"service"`
}

// AuditConfig enables per-request decision events from the server.
// Both sinks are optional; with neither set no events are produced.
// FilePath may contain "{word}" to keep one JSONL file per word.
type AuditConfig struct {
	FilePath        string        `yaml:"file_path" env:"WSD_AUDIT_FILE_PATH"`
	WebhookURL      string        `yaml:"webhook_url" env:"WSD_AUDIT_WEBHOOK_URL"`
	WebhookToken    string        `yaml:"webhook_token" env:"WSD_AUDIT_WEBHOOK_TOKEN"`
	WebhookTimeout  time.Duration `yaml:"webhook_timeout"`
	WebhookRetries  int           `yaml:"webhook_retries"`
	QueueSize       int           `yaml:"queue_size"`
	Workers         int           `yaml:"workers"`
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout"`
}

// Enabled reports whether any sink is configured.
func (a AuditConfig) Enabled() bool {
	return strings.TrimSpace(a.FilePath) != "" || strings.TrimSpace(a.WebhookURL) != ""
}

// Load reads configuration from a YAML file, then applies environment
// overrides and defaults. A missing file yields the defaults.
func Load(path string) (*Config, error) {
	cfg := &Config{}

	data, err := os.ReadFile(path)
	switch {
	case err == nil:
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("config: parse %s: %w", path, err)
		}
	case os.IsNotExist(err):
		cfg = defaultConfig()
	default:
		return nil, fmt.Errorf("config: read %s: %w", path, err)
	}

	if err := cleanenv.ReadEnv(cfg); err != nil {
		return nil, fmt.Errorf("config: read env: %w", err)
	}
	applyDefaults(cfg)
	return cfg, nil
}

// Default returns the configuration used when no file is present.
func Default() *Config {
	return defaultConfig()
}

func defaultConfig() *Config {
	cfg := &Config{}
	applyDefaults(cfg)
	return cfg
}

func applyDefaults(cfg *Config) {
	if len(cfg.Words) == 0 {
		cfg.Words = []string{"director", "overtime", "rubbish"}
	}
	for i, w := range cfg.Words {
		cfg.Words[i] = strings.ToLower(strings.TrimSpace(w))
	}

	if cfg.Artifacts.Backend == "" {
		cfg.Artifacts.Backend = "dir"
	}
	cfg.Artifacts.Backend = strings.ToLower(strings.TrimSpace(cfg.Artifacts.Backend))
	if cfg.Artifacts.Dir == "" {
		cfg.Artifacts.Dir = "models"
	}

	if cfg.Predictor.Workers <= 0 {
		cfg.Predictor.Workers = 1
	}

	if cfg.Training.DataDir == "" {
		cfg.Training.DataDir = "data"
	}
	if cfg.Training.NgramMin <= 0 {
		cfg.Training.NgramMin = 1
	}
	if cfg.Training.NgramMax <= 0 {
		cfg.Training.NgramMax = 2
	}
	if cfg.Training.MinDF <= 0 {
		cfg.Training.MinDF = 1
	}
	if cfg.Training.MaxDF == 0 {
		cfg.Training.MaxDF = 0.95
	}
	if cfg.Training.C == 0 {
		cfg.Training.C = 1.0
	}
	if cfg.Training.MaxIter <= 0 {
		cfg.Training.MaxIter = 1000
	}
	if cfg.Training.Workers <= 0 {
		cfg.Training.Workers = 1
	}

	if cfg.Batch.Input == "" {
		cfg.Batch.Input = "{word}_test.txt"
	}
	if cfg.Batch.Output == "" {
		cfg.Batch.Output = "result_{word}.txt"
	}

	if cfg.Server.Addr == "" {
		cfg.Server.Addr = ":8080"
	}
	if cfg.Server.MaxSentences <= 0 {
		cfg.Server.MaxSentences = 1000
	}
	if cfg.Server.ShutdownTimeout <= 0 {
		cfg.Server.ShutdownTimeout = 10 * time.Second
	}

	if cfg.Log.Level == "" {
		cfg.Log.Level = "info"
	}
	if cfg.Log.Format == "" {
		cfg.Log.Format = "text"
	}

	if cfg.Telemetry.Protocol == "" {
		cfg.Telemetry.Protocol = "grpc"
	}
	if cfg.Telemetry.Service == "" {
		cfg.Telemetry.Service = "wsd"
	}

	if cfg.Audit.QueueSize <= 0 {
		cfg.Audit.QueueSize = 1000
	}
	if cfg.Audit.Workers <= 0 {
		cfg.Audit.Workers = 1
	}
	if cfg.Audit.WebhookTimeout <= 0 {
		cfg.Audit.WebhookTimeout = 2 * time.Second
	}
	if cfg.Audit.WebhookRetries == 0 {
		cfg.Audit.WebhookRetries = 2
	}
	if cfg.Audit.ShutdownTimeout <= 0 {
		cfg.Audit.ShutdownTimeout = 5 * time.Second
	}
}

// Paths expands the batch patterns for word.
func (b BatchConfig) Paths(word string) (in, out string) {
	return strings.ReplaceAll(b.Input, "{word}", word), strings.ReplaceAll(b.Output, "{word}", word)
}
