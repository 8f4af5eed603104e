package config

import (
	"crypto/rand"
	"encoding/hex"
	"encoding/json"
	stderrors "errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/hpungsan/autodocx/internal/errors"
)

// FileName is the preference file name, stored in the user's home directory.
const FileName = ".auto_docx_config.json"

// PathEnv overrides the preference file location.
const PathEnv = "AUTO_DOCX_CONFIG"

// Config holds the persisted user preferences.
type Config struct {
	// Env selects the interpreter environment by name or by index
	// into the --list-envs output. Empty means auto-detect.
	Env string `json:"env,omitempty"`

	// RollNo is printed under the document title. Empty omits the line.
	RollNo string `json:"roll_no,omitempty"`
}

// DefaultConfig returns the default configuration.
func DefaultConfig() *Config {
	return &Config{}
}

// DefaultPath returns the preference file location: $AUTO_DOCX_CONFIG if set,
// otherwise ~/.auto_docx_config.json.
func DefaultPath() (string, error) {
	if p := strings.TrimSpace(os.Getenv(PathEnv)); p != "" {
		return p, nil
	}
	homeDir, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("could not determine home directory: %w", err)
	}
	return filepath.Join(homeDir, FileName), nil
}

// Load loads configuration from path.
// Returns default config if the file doesn't exist. A malformed file also
// yields the default config, together with a CONFIG_ERROR the caller should
// report as a warning.
func Load(path string) (*Config, error) {
	cfg, err := loadFileRaw(path)
	if err != nil {
		return DefaultConfig(), errors.NewConfigError(path, err)
	}
	return Merge(DefaultConfig(), cfg), nil
}

// loadFileRaw loads configuration from a specific file path.
// Returns zero-valued config if the file doesn't exist.
func loadFileRaw(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if stderrors.Is(err, os.ErrNotExist) {
			return &Config{}, nil
		}
		return nil, err
	}

	cfg := &Config{}
	if err := json.Unmarshal(data, cfg); err != nil {
		return nil, err
	}

	return cfg, nil
}

// Save rewrites the preference file wholesale.
// The file is written to a temp file and renamed into place so a failed
// write never leaves a truncated file behind.
func Save(path string, cfg *Config) error {
	data, err := json.MarshalIndent(cfg, "", "  ")
	if err != nil {
		return errors.NewConfigError(path, err)
	}
	data = append(data, '\n')

	randBytes := make([]byte, 8)
	if _, err := rand.Read(randBytes); err != nil {
		return errors.NewConfigError(path, err)
	}
	tempPath := path + "." + hex.EncodeToString(randBytes) + ".tmp"

	if err := os.WriteFile(tempPath, data, 0600); err != nil {
		return errors.NewConfigError(path, err)
	}
	if err := os.Rename(tempPath, path); err != nil {
		os.Remove(tempPath)
		return errors.NewConfigError(path, err)
	}
	return nil
}

// Merge combines base and overlay configs.
// Overlay values take precedence when non-empty.
func Merge(base, overlay *Config) *Config {
	result := &Config{}

	result.Env = strings.TrimSpace(overlay.Env)
	if result.Env == "" {
		result.Env = strings.TrimSpace(base.Env)
	}

	result.RollNo = strings.TrimSpace(overlay.RollNo)
	if result.RollNo == "" {
		result.RollNo = strings.TrimSpace(base.RollNo)
	}

	return result
}
