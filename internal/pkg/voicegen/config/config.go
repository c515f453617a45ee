package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/pelletier/go-toml/v2"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"

	"voicegen/internal/pkg/voicegen/engine"
	"voicegen/internal/pkg/voicegen/output"
	"voicegen/internal/pkg/voicegen/voices"
)

const (
	configName = "voicegen"
	envPrefix  = "VOICEGEN"
)

type Config struct {
	LogLevel string `mapstructure:"log_level"`
	LogFile  string `mapstructure:"log_file"`
	Backend  string `mapstructure:"backend"`
	Device   string `mapstructure:"device"`
	Language string `mapstructure:"language"`

	Models    ModelsConfig    `mapstructure:"models"`
	Coqui     CoquiConfig     `mapstructure:"coqui"`
	Onnx      OnnxConfig      `mapstructure:"onnx"`
	Output    OutputConfig    `mapstructure:"output"`
	Progress  ProgressConfig  `mapstructure:"progress"`
	Playback  PlaybackConfig  `mapstructure:"playback"`
	Nats      NatsConfig      `mapstructure:"nats"`
	CloneDemo CloneDemoConfig `mapstructure:"clone_demo"`

	// File is the config file that was read, if any.
	File string `mapstructure:"-"`
}

type ModelsConfig struct {
	Female      string `mapstructure:"female"`
	Male        string `mapstructure:"male"`
	MaleSpeaker string `mapstructure:"male_speaker"`
	Fallback    string `mapstructure:"fallback"`
	Clone       string `mapstructure:"clone"`
}

type CoquiConfig struct {
	Binary    string        `mapstructure:"binary"`
	ServerURL string        `mapstructure:"server_url"`
	Timeout   time.Duration `mapstructure:"timeout"`
}

type OnnxConfig struct {
	ModelPath   string `mapstructure:"model_path"`
	LibraryPath string `mapstructure:"library_path"`
}

type OutputConfig struct {
	Dir          string        `mapstructure:"dir"`
	Final        string        `mapstructure:"final"`
	Raw          string        `mapstructure:"raw"`
	ReleaseGrace time.Duration `mapstructure:"release_grace"`
}

type ProgressConfig struct {
	Interval time.Duration `mapstructure:"interval"`
}

type PlaybackConfig struct {
	PollInterval time.Duration `mapstructure:"poll_interval"`
	Command      string        `mapstructure:"command"`
}

type NatsConfig struct {
	URL     string `mapstructure:"url"`
	Subject string `mapstructure:"subject"`
}

type CloneDemoConfig struct {
	Reference string `mapstructure:"reference"`
	Text      string `mapstructure:"text"`
}

// flagKeys maps command line flags onto config keys.
var flagKeys = map[string]string{
	"log-level":  "log_level",
	"log-file":   "log_file",
	"backend":    "backend",
	"device":     "device",
	"language":   "language",
	"output-dir": "output.dir",
	"nats-url":   "nats.url",
}

func setDefaults(v *viper.Viper) {
	catalog := voices.DefaultCatalog()

	v.SetDefault("log_level", "info")
	v.SetDefault("log_file", "")
	v.SetDefault("backend", "coqui")
	v.SetDefault("device", string(engine.DeviceAuto))
	v.SetDefault("language", "en")

	v.SetDefault("models.female", catalog.Female.Model)
	v.SetDefault("models.male", catalog.Male.Model)
	v.SetDefault("models.male_speaker", catalog.Male.Speaker)
	v.SetDefault("models.fallback", catalog.Fallback.Model)
	v.SetDefault("models.clone", catalog.Clone.Model)

	v.SetDefault("coqui.binary", "tts")
	v.SetDefault("coqui.server_url", "http://localhost:5002")
	v.SetDefault("coqui.timeout", "10m")

	v.SetDefault("onnx.model_path", "models")
	v.SetDefault("onnx.library_path", "")

	v.SetDefault("output.dir", ".")
	v.SetDefault("output.final", output.DefaultFinalName)
	v.SetDefault("output.raw", output.DefaultRawName)
	v.SetDefault("output.release_grace", "200ms")

	v.SetDefault("progress.interval", "100ms")
	v.SetDefault("playback.poll_interval", "100ms")
	v.SetDefault("playback.command", "ffplay -nodisp -autoexit -loglevel quiet")

	v.SetDefault("nats.url", "")
	v.SetDefault("nats.subject", "voicegen.jobs")

	v.SetDefault("clone_demo.reference", "voice_sample.wav")
	v.SetDefault("clone_demo.text", "Alright, it's February now. Why are you still waiting to have that better relationship?")
}

// Load reads defaults, an optional config file, a .env file, the environment
// and the given flags, in increasing order of precedence. configFile may be
// empty to search the usual locations.
func Load(configFile string, flags *pflag.FlagSet) (*Config, *viper.Viper, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		return nil, nil, fmt.Errorf("failed to load .env: %w", err)
	}

	v := viper.New()
	setDefaults(v)

	if flags != nil {
		for flag, key := range flagKeys {
			if f := flags.Lookup(flag); f != nil {
				if err := v.BindPFlag(key, f); err != nil {
					return nil, nil, err
				}
			}
		}
	}

	if configFile != "" {
		v.SetConfigFile(configFile)
	} else {
		v.SetConfigName(configName)
		v.SetConfigType("toml")
		v.AddConfigPath(".")
		v.AddConfigPath("configs")
		if home, err := os.UserHomeDir(); err == nil {
			v.AddConfigPath(filepath.Join(home, ".config", "voicegen"))
		}
	}

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, nil, fmt.Errorf("failed to read config: %w", err)
		}
	}

	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))
	v.AutomaticEnv()

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}
	cfg.File = v.ConfigFileUsed()

	if err := cfg.Validate(); err != nil {
		return nil, nil, err
	}
	return &cfg, v, nil
}

func (c *Config) Validate() error {
	switch strings.ToLower(c.Device) {
	case "auto", "cpu", "gpu", "cuda":
	default:
		return fmt.Errorf("device must be one of auto, cpu or gpu, got %q", c.Device)
	}
	if c.Backend == "" {
		return fmt.Errorf("backend is required")
	}
	if !engine.IsRegistered(c.Backend) {
		return fmt.Errorf("unknown backend %q, available: %s", c.Backend, strings.Join(engine.ListBackends(), ", "))
	}
	if strings.TrimSpace(c.Playback.Command) == "" {
		return fmt.Errorf("playback.command is required")
	}
	if c.Output.ReleaseGrace < 0 {
		return fmt.Errorf("output.release_grace cannot be negative")
	}
	return nil
}

func (c *Config) EngineConfig() engine.EngineConfig {
	return engine.EngineConfig{
		Backend:     c.Backend,
		Binary:      c.Coqui.Binary,
		ServerURL:   c.Coqui.ServerURL,
		Timeout:     c.Coqui.Timeout,
		ModelPath:   c.Onnx.ModelPath,
		LibraryPath: c.Onnx.LibraryPath,
	}
}

func (c *Config) Catalog() voices.Catalog {
	catalog := voices.DefaultCatalog()
	catalog.Female.Model = c.Models.Female
	catalog.Male.Model = c.Models.Male
	catalog.Male.Speaker = c.Models.MaleSpeaker
	catalog.Fallback.Model = c.Models.Fallback
	catalog.Clone.Model = c.Models.Clone
	return catalog
}

func (c *Config) OutputConfig() output.Config {
	return output.Config{
		Dir:          c.Output.Dir,
		FinalName:    c.Output.Final,
		RawName:      c.Output.Raw,
		ReleaseGrace: c.Output.ReleaseGrace,
	}
}

func (c *Config) PlayerCommand() []string {
	return strings.Fields(c.Playback.Command)
}

func (c *Config) DeviceValue() engine.Device {
	return engine.ParseDevice(c.Device)
}

// Dump renders the effective settings as TOML.
func Dump(v *viper.Viper) ([]byte, error) {
	data, err := toml.Marshal(v.AllSettings())
	if err != nil {
		return nil, fmt.Errorf("failed to render config: %w", err)
	}
	return data, nil
}
