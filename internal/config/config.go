package config

import (
	"os"
	"path/filepath"
)

const (
	DefaultConfigDir  = ".sudopolicy"
	DefaultPolicyFile = "sudoers"
	DefaultLogFile    = "audit.jsonl"

	// DefaultIncludeDepth bounds #include/#includedir recursion when no
	// positive depth is given; the value in Config.IncludeDepth is the only
	// limit the loader applies.
	DefaultIncludeDepth = 128
)

// Config is the resolved set of paths and tunables a CLI invocation runs
// with, after flags have been merged with on-disk defaults.
type Config struct {
	PolicyPath   string
	LogPath      string
	ConfigDir    string
	IncludeDepth int
}

func Load(policyPath, logPath string, includeDepth int) (*Config, error) {
	homeDir, err := os.UserHomeDir()
	if err != nil {
		return nil, err
	}

	configDir := filepath.Join(homeDir, DefaultConfigDir)
	if err := ensureDir(configDir); err != nil {
		return nil, err
	}

	cfg := &Config{ConfigDir: configDir, IncludeDepth: DefaultIncludeDepth}
	if includeDepth > 0 {
		cfg.IncludeDepth = includeDepth
	}

	if policyPath != "" {
		cfg.PolicyPath = policyPath
	} else {
		cfg.PolicyPath = filepath.Join(configDir, DefaultPolicyFile)
	}

	if logPath != "" {
		cfg.LogPath = logPath
	} else {
		cfg.LogPath = filepath.Join(configDir, DefaultLogFile)
	}

	return cfg, nil
}

func ensureDir(path string) error {
	if _, err := os.Stat(path); os.IsNotExist(err) {
		return os.MkdirAll(path, 0700)
	}
	return nil
}
