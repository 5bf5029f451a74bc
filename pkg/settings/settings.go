// Package settings manages persistent user settings for the netaudit CLI.
package settings

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strconv"

	"github.com/newtron-network/netaudit/pkg/util"
)

// DefaultWorkers is the number of hosts audited concurrently when unset
const DefaultWorkers = 10

// Settings holds persistent user preferences. Command-line flags override
// every field.
type Settings struct {
	// RulesFile is the rule set used when --rules is not given
	RulesFile string `json:"rules_file,omitempty"`

	// InventoryFile is the inventory used when --inventory is not given
	InventoryFile string `json:"inventory_file,omitempty"`

	// LogFile is the compliance log path
	LogFile string `json:"log_file,omitempty"`

	// SnapshotDir is the root directory for file-sourced hosts
	SnapshotDir string `json:"snapshot_dir,omitempty"`

	Workers int `json:"workers,omitempty"`

	// TimeoutSeconds bounds each host's collection
	TimeoutSeconds int `json:"timeout_seconds,omitempty"`
}

// DefaultSettingsPath returns the default path for the settings file
func DefaultSettingsPath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return "netaudit_settings.json"
	}
	return filepath.Join(home, ".netaudit", "settings.json")
}

// Load reads settings from the default location
func Load() (*Settings, error) {
	return LoadFrom(DefaultSettingsPath())
}

// LoadFrom reads settings from a specific path. A missing file yields empty
// settings.
func LoadFrom(path string) (*Settings, error) {
	s := &Settings{}

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return s, nil
		}
		return nil, err
	}

	if err := json.Unmarshal(data, s); err != nil {
		return nil, fmt.Errorf("parsing %s: %w", path, err)
	}
	return s, nil
}

// Save writes settings to the default location
func (s *Settings) Save() error {
	return s.SaveTo(DefaultSettingsPath())
}

// SaveTo writes settings to a specific path
func (s *Settings) SaveTo(path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return err
	}

	data, err := json.MarshalIndent(s, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0644)
}

// GetRulesFile returns the rules file (with fallback)
func (s *Settings) GetRulesFile() string {
	if s.RulesFile != "" {
		return s.RulesFile
	}
	return "compliance_rules.yaml"
}

// GetInventoryFile returns the inventory file (with fallback)
func (s *Settings) GetInventoryFile() string {
	if s.InventoryFile != "" {
		return s.InventoryFile
	}
	return "inventory.yaml"
}

// GetLogFile returns the compliance log path (with fallback)
func (s *Settings) GetLogFile() string {
	if s.LogFile != "" {
		return s.LogFile
	}
	return "compliance.log"
}

// GetWorkers returns the worker count (with fallback)
func (s *Settings) GetWorkers() int {
	if s.Workers > 0 {
		return s.Workers
	}
	return DefaultWorkers
}

// setters maps settings keys to their parsers, for `settings set`
var setters = map[string]func(s *Settings, v string) error{
	"rules_file":     func(s *Settings, v string) error { s.RulesFile = v; return nil },
	"inventory_file": func(s *Settings, v string) error { s.InventoryFile = v; return nil },
	"log_file":       func(s *Settings, v string) error { s.LogFile = v; return nil },
	"snapshot_dir":   func(s *Settings, v string) error { s.SnapshotDir = v; return nil },
	"workers": func(s *Settings, v string) error {
		return setPositive(&s.Workers, "workers", v)
	},
	"timeout_seconds": func(s *Settings, v string) error {
		return setPositive(&s.TimeoutSeconds, "timeout_seconds", v)
	},
}

func setPositive(dst *int, key, v string) error {
	n, err := strconv.Atoi(v)
	if err != nil || n < 0 {
		return fmt.Errorf("%s must be a non-negative integer, got '%s': %w", key, v, util.ErrInvalidConfig)
	}
	*dst = n
	return nil
}

// Keys lists the settable keys in sorted order
func Keys() []string {
	keys := make([]string, 0, len(setters))
	for k := range setters {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// Set assigns a value by key. An empty value resets the key.
func (s *Settings) Set(key, value string) error {
	set, ok := setters[key]
	if !ok {
		return fmt.Errorf("unknown setting '%s' (valid: %v): %w", key, Keys(), util.ErrNotFound)
	}
	if value == "" {
		value = zeroValue(key)
	}
	return set(s, value)
}

// Get returns the stored value of key, or "" when unset
func (s *Settings) Get(key string) (string, error) {
	switch key {
	case "rules_file":
		return s.RulesFile, nil
	case "inventory_file":
		return s.InventoryFile, nil
	case "log_file":
		return s.LogFile, nil
	case "snapshot_dir":
		return s.SnapshotDir, nil
	case "workers":
		return intValue(s.Workers), nil
	case "timeout_seconds":
		return intValue(s.TimeoutSeconds), nil
	}
	return "", fmt.Errorf("unknown setting '%s' (valid: %v): %w", key, Keys(), util.ErrNotFound)
}

func intValue(n int) string {
	if n == 0 {
		return ""
	}
	return strconv.Itoa(n)
}

func zeroValue(key string) string {
	switch key {
	case "workers", "timeout_seconds":
		return "0"
	}
	return ""
}

// Clear resets all settings to defaults
func (s *Settings) Clear() {
	*s = Settings{}
}
