// Package config - Verschachtelte Session-Konfiguration
//
// Liest eine oder mehrere YAML-Dateien ueber viper, spaetere Dateien
// ueberschreiben fruehere Schluessel. Umgebungsvariablen aus envconfig haben
// Vorrang vor den Dateien.
package config

import (
	"fmt"
	"io"
	"log/slog"
	"maps"
	"slices"

	"github.com/spf13/viper"

	"github.com/mayo-ml/mayo/envconfig"
)

// Config represents the complete session configuration
type Config struct {
	System SystemConfig `mapstructure:"system"`
	Model  Model        `mapstructure:"model"`

	v *viper.Viper
}

// SystemConfig controls placement and data paths
type SystemConfig struct {
	// NumGPUs is the number of replicas, one per GPU
	NumGPUs int `mapstructure:"num_gpus"`
	// BatchSizePerGPU is the batch size each replica consumes
	BatchSizePerGPU int `mapstructure:"batch_size_per_gpu"`
	// SearchPath lists where inputs and checkpoints are looked up
	SearchPath SearchPathConfig `mapstructure:"search_path"`
}

// SearchPathConfig groups search paths by purpose
type SearchPathConfig struct {
	Run        RunPaths `mapstructure:"run"`
	Checkpoint []string `mapstructure:"checkpoint"`
}

// RunPaths holds test-time input folders and output folders
type RunPaths struct {
	Inputs  []string `mapstructure:"inputs"`
	Outputs []string `mapstructure:"outputs"`
}

// Model ist die Modell-Spezifikation, die unveraendert an den Net-Builder geht.
type Model map[string]any

// Name liefert model.name oder einen leeren String.
func (m Model) Name() string {
	name, _ := m["name"].(string)
	return name
}

// Keys liefert die Schluessel sortiert.
func (m Model) Keys() []string {
	return slices.Sorted(maps.Keys(m))
}

// Default returns a Config with default values
func Default() *Config {
	return &Config{
		System: SystemConfig{
			NumGPUs:         1,
			BatchSizePerGPU: 1,
			SearchPath: SearchPathConfig{
				Run: RunPaths{Outputs: []string{"outputs"}},
			},
		},
		Model: Model{},
	}
}

// setDefaults registers default values with viper
func setDefaults(v *viper.Viper) {
	defaults := Default()

	v.SetDefault("system.num_gpus", defaults.System.NumGPUs)
	v.SetDefault("system.batch_size_per_gpu", defaults.System.BatchSizePerGPU)
	v.SetDefault("system.search_path.run.outputs", defaults.System.SearchPath.Run.Outputs)
}

// Load reads and merges the YAML files in order
func Load(paths ...string) (*Config, error) {
	v := viper.New()
	setDefaults(v)

	for i, path := range paths {
		v.SetConfigFile(path)

		read := v.MergeInConfig
		if i == 0 {
			read = v.ReadInConfig
		}

		if err := read(); err != nil {
			return nil, fmt.Errorf("config %s: %w", path, err)
		}
		slog.Debug("loaded config", "path", path)
	}

	return decode(v)
}

// Parse reads a single YAML document, mainly for tests and embedded configs
func Parse(r io.Reader) (*Config, error) {
	v := viper.New()
	setDefaults(v)
	v.SetConfigType("yaml")

	if err := v.ReadConfig(r); err != nil {
		return nil, fmt.Errorf("config: %w", err)
	}

	return decode(v)
}

func decode(v *viper.Viper) (*Config, error) {
	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("config: %w", err)
	}

	if cfg.Model == nil {
		cfg.Model = Model{}
	}

	cfg.v = v

	if n := envconfig.NumGPUs(); n > 0 {
		cfg.SetNumGPUs(int(n))
	}

	if inputs := envconfig.Inputs(); inputs != "" {
		cfg.System.SearchPath.Run.Inputs = []string{inputs}
		v.Set("system.search_path.run.inputs", cfg.System.SearchPath.Run.Inputs)
	}

	return &cfg, nil
}

// SetNumGPUs ueberschreibt system.num_gpus im Struct und im viper-Wert.
func (c *Config) SetNumGPUs(n int) {
	c.System.NumGPUs = n
	if c.v != nil {
		c.v.Set("system.num_gpus", n)
	}
}

// Get liefert einen Wert ueber seinen punktierten Pfad, z.B. "model.name".
func (c *Config) Get(key string) any {
	if c.v == nil {
		return nil
	}
	return c.v.Get(key)
}

// Input liefert den ersten Test-Eingabeordner.
func (c *Config) Input() (string, bool) {
	inputs := c.System.SearchPath.Run.Inputs
	if len(inputs) == 0 || inputs[0] == "" {
		return "", false
	}
	return inputs[0], true
}
