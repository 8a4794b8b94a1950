// Package config loads service configuration from an optional YAML file with
// environment variable overrides.
package config

import (
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

type Config struct {
	Addr         string       `yaml:"addr"`
	DBPath       string       `yaml:"db_path"`
	OpenAIKey    string       `yaml:"openai_api_key"`
	OpenAIBase   string       `yaml:"openai_base_url"`
	GithubToken  string       `yaml:"github_token"`
	GithubAPIURL string       `yaml:"github_api_url"`
	Scraper      ScraperConfig `yaml:"scraper"`
}

type ScraperConfig struct {
	MaxPages   int `yaml:"max_pages"`
	TimeoutSec int `yaml:"timeout_sec"`
}

// Load reads the YAML file at path (missing file is fine, defaults apply) and
// then applies environment overrides.
func Load(path string) (*Config, error) {
	cfg := &Config{
		Addr:         "127.0.0.1:8080",
		OpenAIBase:   "https://api.openai.com/v1",
		GithubAPIURL: "https://api.github.com",
		Scraper:      ScraperConfig{MaxPages: 5, TimeoutSec: 30},
	}

	if path != "" {
		data, err := os.ReadFile(path)
		if err == nil {
			if err := yaml.Unmarshal(data, cfg); err != nil {
				return nil, fmt.Errorf("parsing config %s: %w", path, err)
			}
		} else if !os.IsNotExist(err) {
			return nil, fmt.Errorf("reading config %s: %w", path, err)
		}
	}

	if v := os.Getenv("BLOGFORGE_ADDR"); v != "" {
		cfg.Addr = v
	}
	if v := os.Getenv("BLOGFORGE_DB"); v != "" {
		cfg.DBPath = v
	}
	if v := os.Getenv("OPENAI_API_KEY"); v != "" {
		cfg.OpenAIKey = v
	}
	if v := os.Getenv("OPENAI_BASE_URL"); v != "" {
		cfg.OpenAIBase = v
	}
	if v := os.Getenv("GITHUB_TOKEN"); v != "" {
		cfg.GithubToken = v
	}

	if cfg.DBPath == "" {
		p, err := defaultDBPath()
		if err != nil {
			return nil, err
		}
		cfg.DBPath = p
	}

	return cfg, nil
}

func defaultDBPath() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("getting home directory: %w", err)
	}
	dir := filepath.Join(home, ".blogforge")
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("creating .blogforge directory: %w", err)
	}
	return filepath.Join(dir, "blogforge.db"), nil
}
