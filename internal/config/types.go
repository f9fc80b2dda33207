package config

import "time"

// Config represents the stexec configuration file structure
type Config struct {
	// Executor configures the event loop executor
	Executor ExecutorConfig `yaml:"executor" mapstructure:"executor"`

	// Workload configures the synthetic workload of the run command
	Workload WorkloadConfig `yaml:"workload" mapstructure:"workload"`

	// Log configures structured logging
	Log LogConfig `yaml:"log" mapstructure:"log"`
}

// ExecutorConfig holds executor settings
type ExecutorConfig struct {
	// Name identifies the executor and prefixes its thread name
	Name string `yaml:"name" mapstructure:"name"`

	// QueueCapacity bounds pending tasks, 0 means unbounded
	QueueCapacity int `yaml:"queueCapacity" mapstructure:"queueCapacity"`

	// SaturationPolicy is "reject" or "block"
	SaturationPolicy string `yaml:"saturationPolicy" mapstructure:"saturationPolicy"`

	// SubmitTimeout bounds a blocked submission
	SubmitTimeout time.Duration `yaml:"submitTimeout" mapstructure:"submitTimeout"`

	// RejectWhileShuttingDown refuses work once graceful shutdown starts
	RejectWhileShuttingDown bool `yaml:"rejectWhileShuttingDown" mapstructure:"rejectWhileShuttingDown"`

	// IdlePollInterval wakes an idle loop periodically, 0 disables
	IdlePollInterval time.Duration `yaml:"idlePollInterval" mapstructure:"idlePollInterval"`

	// QuietPeriod is the graceful shutdown quiet period
	QuietPeriod time.Duration `yaml:"quietPeriod" mapstructure:"quietPeriod"`

	// ShutdownTimeout is the graceful shutdown ceiling
	ShutdownTimeout time.Duration `yaml:"shutdownTimeout" mapstructure:"shutdownTimeout"`

	// LockOSThread pins the loop goroutine to its OS thread
	LockOSThread bool `yaml:"lockOSThread" mapstructure:"lockOSThread"`

	// Priority is reported in the thread properties
	Priority int `yaml:"priority" mapstructure:"priority"`

	// Daemon marks the loop thread as a daemon
	Daemon bool `yaml:"daemon" mapstructure:"daemon"`
}

// WorkloadConfig holds the settings of the synthetic workload
type WorkloadConfig struct {
	// Producers is the number of concurrent submitting goroutines
	Producers int `yaml:"producers" mapstructure:"producers"`

	// Tasks is the number of tasks each producer submits
	Tasks int `yaml:"tasks" mapstructure:"tasks"`

	// LazyEvery submits every n-th task lazily, 0 disables
	LazyEvery int `yaml:"lazyEvery" mapstructure:"lazyEvery"`

	// FailEvery makes every n-th task fail, 0 disables
	FailEvery int `yaml:"failEvery" mapstructure:"failEvery"`

	// TaskDuration is how long each task occupies the loop
	TaskDuration time.Duration `yaml:"taskDuration" mapstructure:"taskDuration"`

	// Batch is the number of callables run through InvokeAll after producing, 0 disables
	Batch int `yaml:"batch" mapstructure:"batch"`

	// RetryAttempts bounds submissions per task when the queue is full
	RetryAttempts int `yaml:"retryAttempts" mapstructure:"retryAttempts"`

	// RetryDelay is the initial backoff between attempts
	RetryDelay time.Duration `yaml:"retryDelay" mapstructure:"retryDelay"`
}

// LogConfig holds logging settings
type LogConfig struct {
	// Level is the minimum level written
	Level string `yaml:"level" mapstructure:"level"`
}
