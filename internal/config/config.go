// Package config loads stexec configuration from a yaml file, STEXEC_ environment
// variables and command line flags.
package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/jzx17/goexecutor/internal/logging"
	"github.com/jzx17/goexecutor/pkg/executor"
	"github.com/jzx17/goexecutor/pkg/types"
	"github.com/spf13/viper"
)

const (
	defaultConfigName = ".stexec"
	envPrefix         = "STEXEC"
)

// defaults registers every key with viper, which is also what makes the keys visible to
// AutomaticEnv during Unmarshal
var defaults = map[string]interface{}{
	"executor.name":                    "stexec",
	"executor.queueCapacity":           0,
	"executor.saturationPolicy":        "reject",
	"executor.submitTimeout":           time.Duration(0),
	"executor.rejectWhileShuttingDown": false,
	"executor.idlePollInterval":        time.Duration(0),
	"executor.quietPeriod":             executor.DefaultQuietPeriod,
	"executor.shutdownTimeout":         executor.DefaultShutdownTimeout,
	"executor.lockOSThread":            false,
	"executor.priority":                executor.NormPriority,
	"executor.daemon":                  false,
	"workload.producers":               4,
	"workload.tasks":                   250,
	"workload.lazyEvery":               0,
	"workload.failEvery":               0,
	"workload.taskDuration":            time.Duration(0),
	"workload.batch":                   16,
	"workload.retryAttempts":           50,
	"workload.retryDelay":              time.Millisecond,
	"log.level":                        "info",
}

// Manager handles stexec configuration
type Manager struct {
	configPath string
	config     *Config
	viper      *viper.Viper
}

// NewManager creates a new configuration manager
func NewManager(configPath string) *Manager {
	v := viper.New()
	for key, value := range defaults {
		v.SetDefault(key, value)
	}
	return &Manager{
		configPath: configPath,
		viper:      v,
		config:     &Config{},
	}
}

// SetConfigPath changes the file Load reads
func (m *Manager) SetConfigPath(path string) {
	m.configPath = path
}

// Viper exposes the underlying viper instance, for binding flags
func (m *Manager) Viper() *viper.Viper {
	return m.viper
}

// Load loads the configuration from file, environment and bound flags
func (m *Manager) Load() (*Config, error) {
	if m.configPath != "" {
		m.viper.SetConfigFile(m.configPath)
	} else {
		// Check ./.stexec.yaml, then ~/.stexec.yaml
		m.viper.AddConfigPath(".")
		if home, err := os.UserHomeDir(); err == nil {
			m.viper.AddConfigPath(home)
		}
		m.viper.SetConfigName(defaultConfigName)
		m.viper.SetConfigType("yaml")
	}

	m.viper.SetEnvPrefix(envPrefix)
	m.viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	m.viper.AutomaticEnv()

	if err := m.viper.ReadInConfig(); err != nil {
		// It's okay if config file doesn't exist, we'll use defaults
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok && !os.IsNotExist(err) {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	config := &Config{}
	if err := m.viper.Unmarshal(config); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}
	if err := config.Validate(); err != nil {
		return nil, err
	}

	m.config = config
	return m.config, nil
}

// ConfigFileUsed returns the file Load read, empty when none was found
func (m *Manager) ConfigFileUsed() string {
	return m.viper.ConfigFileUsed()
}

// GetConfig returns the current configuration
func (m *Manager) GetConfig() *Config {
	return m.config
}

// Validate checks the configuration
func (c *Config) Validate() error {
	if _, err := executor.ParseSaturationPolicy(c.Executor.SaturationPolicy); err != nil {
		return fmt.Errorf("%w: %v", types.ErrInvalidConfig, err)
	}
	if c.Executor.QueueCapacity < 0 {
		return fmt.Errorf("%w: executor.queueCapacity must be non-negative", types.ErrInvalidConfig)
	}
	if c.Executor.QuietPeriod < 0 || c.Executor.ShutdownTimeout < 0 {
		return fmt.Errorf("%w: shutdown durations must be non-negative", types.ErrInvalidConfig)
	}
	if c.Workload.Producers < 0 || c.Workload.Tasks < 0 || c.Workload.Batch < 0 {
		return fmt.Errorf("%w: workload sizes must be non-negative", types.ErrInvalidConfig)
	}
	if c.Workload.RetryAttempts < 1 {
		return fmt.Errorf("%w: workload.retryAttempts must be at least 1", types.ErrInvalidConfig)
	}
	return nil
}

// ExecutorConfig converts the executor section into an executor configuration
func (c *Config) ExecutorConfig(logger *logging.Logger) (*executor.Config, error) {
	policy, err := executor.ParseSaturationPolicy(c.Executor.SaturationPolicy)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", types.ErrInvalidConfig, err)
	}

	config := executor.DefaultConfig()
	config.Name = c.Executor.Name
	config.QueueCapacity = c.Executor.QueueCapacity
	config.SaturationPolicy = policy
	config.SubmitTimeout = c.Executor.SubmitTimeout
	config.RejectWhileShuttingDown = c.Executor.RejectWhileShuttingDown
	config.IdlePollInterval = c.Executor.IdlePollInterval
	config.Logger = logger
	config.ThreadFactory = executor.NewDefaultThreadFactory(c.Executor.Name,
		executor.WithPriority(c.Executor.Priority),
		executor.WithDaemon(c.Executor.Daemon),
		executor.WithLockOSThread(c.Executor.LockOSThread),
	)
	return config, nil
}
