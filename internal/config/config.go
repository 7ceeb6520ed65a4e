// Package config loads formctl settings from defaults, a TOML file,
// FORMCTL_* environment variables and command line flags, in increasing
// order of precedence.
package config

import (
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"codeberg.org/mutker/formctl/internal/errors"
	"codeberg.org/mutker/formctl/internal/exercise"
	"codeberg.org/mutker/formctl/internal/history"
	"codeberg.org/mutker/formctl/internal/smoothing"
	"codeberg.org/mutker/formctl/internal/telemetry"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

const (
	DefaultEnvPrefix = "FORMCTL"
	DefaultExercise  = "bicep curl"
	DefaultInput     = "-"
	DefaultInterval  = 33
	DefaultOutbox    = 64
	DefaultLogLevel  = LogLevelInfo

	configName = "formctl"
	configType = "toml"
)

type Config struct {
	Exercise exercise.Kind
	Input    string
	Interval time.Duration
	Buffer   int
	Outbox   int
	LogLevel LogLevel
	LogFile  string
	History  history.Config
	MQTT     telemetry.Config
	// Args holds the positional arguments left after flag parsing.
	Args []string
}

// flagKeys maps flag names onto viper keys where they differ.
var flagKeys = map[string]string{
	"log-level":      "log_level",
	"log-file":       "log_file",
	"history":        "history.enabled",
	"history-path":   "history.path",
	"history-retain": "history.retain",
	"backup-dir":     "history.backup_dir",
	"mqtt":           "mqtt.enabled",
	"mqtt-broker":    "mqtt.broker",
	"mqtt-topic":     "mqtt.topic",
	"mqtt-client-id": "mqtt.client_id",
	"mqtt-qos":       "mqtt.qos",
}

// NewFlagSet returns the command line flags understood by Load.
func NewFlagSet(name string) *pflag.FlagSet {
	fs := pflag.NewFlagSet(name, pflag.ContinueOnError)
	fs.SetOutput(io.Discard)

	fs.String("config", "", "Path to the configuration file")
	fs.StringP("exercise", "e", DefaultExercise, "Exercise to track (bicep curl, push-up, squat, shoulder press)")
	fs.StringP("input", "i", DefaultInput, "Pose frame stream as JSON lines, - for stdin")
	fs.Int("interval", DefaultInterval, "Minimum milliseconds between processed frames, 0 to disable")
	fs.Int("buffer", smoothing.DefaultWindowSize, "Smoothing window size in frames")
	fs.Int("outbox", DefaultOutbox, "Snapshot queue capacity")
	fs.String("log-level", string(DefaultLogLevel), "Log level (debug, info, warning, error)")
	fs.String("log-file", "", "Write logs to a rotated file instead of the console")
	fs.Bool("history", true, "Keep session history")
	fs.String("history-path", history.DefaultConfig().DBPath, "Session history database")
	fs.Int("history-retain", history.DefaultConfig().Retain, "Number of sessions to keep")
	fs.String("backup-dir", history.DefaultConfig().BackupDir, "Directory for database backups")
	fs.Bool("mqtt", false, "Publish snapshots to MQTT")
	fs.String("mqtt-broker", telemetry.DefaultConfig().Broker, "MQTT broker URL")
	fs.String("mqtt-topic", telemetry.DefaultConfig().Topic, "MQTT topic for snapshots")
	fs.String("mqtt-client-id", telemetry.DefaultConfig().ClientID, "MQTT client identifier")
	fs.Int("mqtt-qos", 0, "MQTT quality of service (0, 1, 2)")

	return fs
}

// Load reads the configuration for the given command line arguments.
func Load(args []string, opts ...Option) (*Config, error) {
	errFactory := errors.New()

	o := &options{envPrefix: DefaultEnvPrefix}
	if home, err := os.UserHomeDir(); err == nil {
		o.searchPaths = append(o.searchPaths, filepath.Join(home, ".config", configName))
	}
	o.searchPaths = append(o.searchPaths, "/etc")

	for _, opt := range opts {
		if err := opt(o); err != nil {
			return nil, errFactory.Wrap(errors.ErrInvalidConfig, err)
		}
	}

	fs := NewFlagSet(configName)
	if err := fs.Parse(args); err != nil {
		if errors.Is(err, pflag.ErrHelp) {
			return nil, err
		}
		return nil, errFactory.Wrap(errors.ErrBindFlags, err)
	}

	v := viper.New()
	setDefaults(v)

	v.SetEnvPrefix(o.envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))
	v.AutomaticEnv()

	var bindErr error
	fs.VisitAll(func(f *pflag.Flag) {
		key, ok := flagKeys[f.Name]
		if !ok {
			key = f.Name
		}
		if err := v.BindPFlag(key, f); err != nil && bindErr == nil {
			bindErr = err
		}
	})
	if bindErr != nil {
		return nil, errFactory.Wrap(errors.ErrBindFlags, bindErr)
	}

	if err := readConfigFile(v, o); err != nil {
		return nil, err
	}

	cfg, err := fromViper(v)
	if err != nil {
		return nil, err
	}
	cfg.Args = fs.Args()

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

func setDefaults(v *viper.Viper) {
	hist := history.DefaultConfig()
	mqtt := telemetry.DefaultConfig()

	v.SetDefault("exercise", DefaultExercise)
	v.SetDefault("input", DefaultInput)
	v.SetDefault("interval", DefaultInterval)
	v.SetDefault("buffer", smoothing.DefaultWindowSize)
	v.SetDefault("outbox", DefaultOutbox)
	v.SetDefault("log_level", string(DefaultLogLevel))
	v.SetDefault("log_file", "")
	v.SetDefault("history.enabled", hist.Enabled)
	v.SetDefault("history.path", hist.DBPath)
	v.SetDefault("history.retain", hist.Retain)
	v.SetDefault("history.backup_dir", hist.BackupDir)
	v.SetDefault("mqtt.enabled", mqtt.Enabled)
	v.SetDefault("mqtt.broker", mqtt.Broker)
	v.SetDefault("mqtt.topic", mqtt.Topic)
	v.SetDefault("mqtt.client_id", mqtt.ClientID)
	v.SetDefault("mqtt.qos", int(mqtt.QoS))
}

func readConfigFile(v *viper.Viper, o *options) error {
	errFactory := errors.New()

	path := v.GetString("config")
	if path == "" {
		path = o.configPath
	}

	v.SetConfigType(configType)
	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return errFactory.Wrap(errors.ErrReadConfig, err)
		}
		return nil
	}

	v.SetConfigName(configName)
	for _, dir := range o.searchPaths {
		v.AddConfigPath(dir)
	}
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return errFactory.Wrap(errors.ErrReadConfig, err)
		}
	}

	return nil
}

func fromViper(v *viper.Viper) (*Config, error) {
	errFactory := errors.New()

	kind, err := exercise.Parse(v.GetString("exercise"))
	if err != nil {
		return nil, err
	}

	qos := v.GetInt("mqtt.qos")
	if qos < 0 || qos > 2 {
		return nil, errFactory.WithData(telemetry.ErrInvalidQoS, qos)
	}

	interval := v.GetInt("interval")
	if interval < 0 {
		return nil, errFactory.WithData(errors.ErrInvalidInterval, interval)
	}

	mqtt := telemetry.DefaultConfig()
	mqtt.Enabled = v.GetBool("mqtt.enabled")
	mqtt.Broker = v.GetString("mqtt.broker")
	mqtt.Topic = v.GetString("mqtt.topic")
	mqtt.ClientID = v.GetString("mqtt.client_id")
	mqtt.QoS = byte(qos)

	return &Config{
		Exercise: kind,
		Input:    v.GetString("input"),
		Interval: time.Duration(interval) * time.Millisecond,
		Buffer:   v.GetInt("buffer"),
		Outbox:   v.GetInt("outbox"),
		LogLevel: LogLevel(strings.ToLower(v.GetString("log_level"))),
		LogFile:  v.GetString("log_file"),
		History: history.Config{
			Enabled:   v.GetBool("history.enabled"),
			DBPath:    v.GetString("history.path"),
			Retain:    v.GetInt("history.retain"),
			BackupDir: v.GetString("history.backup_dir"),
		},
		MQTT: mqtt,
	}, nil
}

// Validate checks the loaded values.
func (c *Config) Validate() error {
	errFactory := errors.New()

	if c.Interval < 0 {
		return errFactory.WithData(errors.ErrInvalidInterval, c.Interval)
	}
	if c.Buffer < 1 {
		return errFactory.WithData(errors.ErrInvalidBuffer, c.Buffer)
	}
	if c.Outbox < 1 {
		return errFactory.WithData(errors.ErrInvalidBuffer, c.Outbox)
	}
	if !c.LogLevel.IsValid() {
		return errFactory.WithData(errors.ErrInvalidLogLevel, c.LogLevel)
	}
	if err := c.History.Validate(); err != nil {
		return errFactory.Wrap(errors.ErrInvalidConfig, err)
	}
	if err := c.MQTT.Validate(); err != nil {
		return errFactory.Wrap(errors.ErrInvalidConfig, err)
	}

	return nil
}
