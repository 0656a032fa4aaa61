// Package config loads pipeline parameters from YAML.
package config

import (
	"bytes"

	yaml "gopkg.in/yaml.v3"
)

// Ranker selects and tunes the PageRank step. An empty Bin means the
// in-process power iteration.
type Ranker struct {
	Bin     string  `yaml:"bin"`
	Damping float64 `yaml:"damping"`
	Tol     float64 `yaml:"tol"`
	MaxIter int     `yaml:"max_iter"`
	TopK    int     `yaml:"top_k"`
}

type Config struct {
	Seed      string `yaml:"seed"`
	MaxPages  int    `yaml:"max_pages"`
	Workers   int    `yaml:"workers"`
	Lang      string `yaml:"lang"`
	UserAgent string `yaml:"user_agent"`
	// DataDir receives pages.json, edges.txt, and pagerank.json.
	DataDir string `yaml:"data_dir"`
	// Store optionally archives the artifacts, e.g.
	// "bbolt:corpus.db:webrank" or "s3:eu-central-1:my-bucket".
	Store  string `yaml:"store"`
	Ranker Ranker `yaml:"ranker"`
}

func Load(in []byte) (*Config, error) {
	out := Config{}
	d := yaml.NewDecoder(bytes.NewReader(in))
	d.KnownFields(true)
	if err := d.Decode(&out); err != nil {
		return &Config{}, err
	}
	out.applyDefaults()
	return &out, nil
}

// Default returns a config with all defaults applied.
func Default() *Config {
	c := &Config{}
	c.applyDefaults()
	return c
}

func (c *Config) applyDefaults() {
	if c.MaxPages <= 0 {
		c.MaxPages = 200
	}
	if c.Workers <= 0 {
		c.Workers = 5
	}
	if c.DataDir == "" {
		c.DataDir = "data"
	}
	if c.Ranker.Damping <= 0 || c.Ranker.Damping >= 1 {
		c.Ranker.Damping = 0.85
	}
	if c.Ranker.Tol <= 0 {
		c.Ranker.Tol = 1e-8
	}
	if c.Ranker.MaxIter <= 0 {
		c.Ranker.MaxIter = 100
	}
	if c.Ranker.TopK <= 0 {
		c.Ranker.TopK = 100000
	}
}
