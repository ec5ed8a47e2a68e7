package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// Seed is a YAML document of course content loaded by `lulu seed`
type Seed struct {
	Topics []SeedTopic `yaml:"temas"`
}

// SeedTopic is one topic with its subtopics
type SeedTopic struct {
	ID        int64          `yaml:"id"`
	Name      string         `yaml:"nombre"`
	Subtopics []SeedSubtopic `yaml:"subtemas"`
}

// SeedSubtopic is one subtopic
type SeedSubtopic struct {
	ID          int64  `yaml:"id"`
	Name        string `yaml:"nombre"`
	Description string `yaml:"descripcion"`
	Detail      string `yaml:"contenido_detalle"`
}

// LoadSeed reads and checks a seed file
func LoadSeed(path string) (*Seed, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read seed: %w", err)
	}

	var seed Seed
	if err := yaml.Unmarshal(data, &seed); err != nil {
		return nil, fmt.Errorf("parse seed: %w", err)
	}

	for i, t := range seed.Topics {
		if t.Name == "" {
			return nil, fmt.Errorf("temas[%d]: nombre is required", i)
		}
		for j, s := range t.Subtopics {
			if s.Name == "" {
				return nil, fmt.Errorf("temas[%d].subtemas[%d]: nombre is required", i, j)
			}
		}
	}
	return &seed, nil
}
