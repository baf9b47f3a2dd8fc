package config

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"
)

// DefaultRegions is the full set of regions scanned when the config file
// does not narrow it down. Scans fan out across all of them; regions the
// account cannot see are skipped silently.
var DefaultRegions = []string{
	"us-east-1", "us-east-2", "us-west-1", "us-west-2",
	"eu-west-1", "eu-west-2", "eu-west-3", "eu-central-1", "eu-north-1",
	"ap-northeast-1", "ap-northeast-2", "ap-northeast-3",
	"ap-southeast-1", "ap-southeast-2", "ap-south-1",
	"ca-central-1", "sa-east-1", "me-south-1", "af-south-1", "ap-east-1",
}

// Duration wraps time.Duration so it can be written as "3s" / "20m" in YAML.
type Duration time.Duration

func (d *Duration) UnmarshalYAML(node *yaml.Node) error {
	var raw string
	if err := node.Decode(&raw); err != nil {
		return err
	}
	parsed, err := time.ParseDuration(raw)
	if err != nil {
		return fmt.Errorf("duration %q: %w", raw, err)
	}
	*d = Duration(parsed)
	return nil
}

func (d Duration) Std() time.Duration { return time.Duration(d) }

type ClusterConfig struct {
	Name     string `yaml:"name"`      // job/cluster name passed to sky launch
	TaskFile string `yaml:"task_file"` // sky task YAML, consumed as opaque text
	Prefix   string `yaml:"prefix"`    // naming convention for generated cluster names
}

type ContainerConfig struct {
	Name  string `yaml:"name"`
	Image string `yaml:"image"`
}

type MonitorConfig struct {
	Tick         Duration `yaml:"tick"`
	Ceiling      Duration `yaml:"ceiling"`
	RunningGrace Duration `yaml:"running_grace"`
}

type BundleConfig struct {
	Endpoint  string `yaml:"endpoint"`
	AccessKey string `yaml:"access_key"`
	SecretKey string `yaml:"secret_key"`
	Region    string `yaml:"region"`
	Bucket    string `yaml:"bucket"`
	UseSSL    bool   `yaml:"use_ssl"`
}

type Config struct {
	Cluster     ClusterConfig   `yaml:"cluster"`
	Container   ContainerConfig `yaml:"container"`
	Regions     []string        `yaml:"regions"`
	Parallelism int             `yaml:"parallelism"`
	Monitor     MonitorConfig   `yaml:"monitor"`
	Bundle      BundleConfig    `yaml:"bundle"`
	StateDir    string          `yaml:"state_dir"`
	LogFile     string          `yaml:"log_file"`
}

// Default returns the configuration used when no file is present.
func Default() *Config {
	home, _ := os.UserHomeDir()
	return &Config{
		Cluster: ClusterConfig{
			Name:     "strato-cluster",
			TaskFile: "cluster.yaml",
			Prefix:   "sky-",
		},
		Container: ContainerConfig{
			Name:  "strato-sky-deploy",
			Image: "berkeleyskypilot/skypilot",
		},
		Regions:     DefaultRegions,
		Parallelism: 10,
		Monitor: MonitorConfig{
			Tick:         Duration(3 * time.Second),
			Ceiling:      Duration(20 * time.Minute),
			RunningGrace: Duration(5 * time.Minute),
		},
		StateDir: filepath.Join(home, ".strato", "state"),
		LogFile:  "cluster-deploy.log",
	}
}

// Load reads path if it exists and overlays it on Default. A missing file is
// not an error; a malformed one is.
func Load(path string) (*Config, error) {
	cfg := Default()

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			applyEnv(cfg)
			return cfg, nil
		}
		return nil, fmt.Errorf("read config %s: %w", path, err)
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parse config %s: %w", path, err)
	}
	if len(cfg.Regions) == 0 {
		cfg.Regions = DefaultRegions
	}
	if cfg.Parallelism <= 0 {
		cfg.Parallelism = 10
	}
	if cfg.Monitor.Tick == 0 {
		cfg.Monitor.Tick = Duration(3 * time.Second)
	}
	if cfg.Monitor.Ceiling == 0 {
		cfg.Monitor.Ceiling = Duration(20 * time.Minute)
	}
	if cfg.Monitor.RunningGrace == 0 {
		cfg.Monitor.RunningGrace = Duration(5 * time.Minute)
	}
	applyEnv(cfg)
	return cfg, nil
}

func applyEnv(cfg *Config) {
	cfg.StateDir = envOr("STRATO_STATE_DIR", cfg.StateDir)
	cfg.LogFile = envOr("STRATO_LOG_FILE", cfg.LogFile)
	cfg.Container.Name = envOr("STRATO_CONTAINER", cfg.Container.Name)
	cfg.Container.Image = envOr("STRATO_IMAGE", cfg.Container.Image)
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
