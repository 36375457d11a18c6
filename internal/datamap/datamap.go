// Package datamap describes a monitored region: which channels feed it,
// what languages its posts arrive in, and where its data lives on disk.
package datamap

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"
)

// Map is one region's configuration, loaded from datamap-config.yaml
// inside the datamap directory.
type Map struct {
	Name      string
	Region    string
	Languages []string
	Channels  []string
	Location  *time.Location

	root string
}

type mapConfig struct {
	Map struct {
		Region    string   `yaml:"region"`
		Languages []string `yaml:"languages"`
	} `yaml:"map"`
	Telegram struct {
		Channels []string `yaml:"channels"`
	} `yaml:"telegram"`
	Date struct {
		Timezone string `yaml:"timezone"`
	} `yaml:"date"`
}

const configFileName = "datamap-config.yaml"

// Load reads <root>/<name>/datamap-config.yaml.
func Load(root, name string) (*Map, error) {
	path := filepath.Join(root, name, configFileName)
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read datamap config %s: %w", path, err)
	}

	var cfg mapConfig
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse datamap config %s: %w", path, err)
	}

	loc := time.UTC
	if cfg.Date.Timezone != "" {
		loc, err = time.LoadLocation(cfg.Date.Timezone)
		if err != nil {
			return nil, fmt.Errorf("bad timezone %q in %s: %w", cfg.Date.Timezone, path, err)
		}
	}

	return &Map{
		Name:      name,
		Region:    cfg.Map.Region,
		Languages: cfg.Map.Languages,
		Channels:  cfg.Telegram.Channels,
		Location:  loc,
		root:      root,
	}, nil
}

// Dir is the datamap's directory under the data root.
func (m *Map) Dir() string {
	return filepath.Join(m.root, m.Name)
}

// BatchPath is the enriched batch file for one account.
func (m *Map) BatchPath(account string) string {
	return filepath.Join(m.Dir(), account, "gemini.json")
}

// ExportPath is the raw Telegram export for one account.
func (m *Map) ExportPath(account string) string {
	return filepath.Join(m.Dir(), account, "result.json")
}

// LivePath is the append-only JSONL file fed by the live pipeline.
func (m *Map) LivePath() string {
	return filepath.Join(m.Dir(), "telegram_gemini.jsonl")
}

// Accounts lists the account subdirectories that contain a raw export.
func (m *Map) Accounts() ([]string, error) {
	entries, err := os.ReadDir(m.Dir())
	if err != nil {
		return nil, fmt.Errorf("failed to list datamap %s: %w", m.Name, err)
	}

	var accounts []string
	for _, e := range entries {
		if !e.IsDir() {
			continue
		}
		if _, err := os.Stat(m.ExportPath(e.Name())); err == nil {
			accounts = append(accounts, e.Name())
		}
	}
	return accounts, nil
}
