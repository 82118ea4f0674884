package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// Profile represents the structure of a bot profile YAML file
type Profile struct {
	BotName             string   `yaml:"bot_name"`
	Persona             string   `yaml:"persona"`
	Greeting            string   `yaml:"greeting"`
	Farewell            string   `yaml:"farewell"`
	InterruptFarewell   string   `yaml:"interrupt_farewell"`
	FarewellMode        string   `yaml:"farewell_mode"`
	ExitPhrases         []string `yaml:"exit_phrases"`
	ClarifyingQuestions []string `yaml:"clarifying_questions"`
}

// LoadProfile loads a bot profile from a YAML file
func LoadProfile(path string) (*Profile, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("error reading profile file: %w", err)
	}

	var p Profile
	if err := yaml.Unmarshal(data, &p); err != nil {
		return nil, fmt.Errorf("error parsing profile YAML: %w", err)
	}
	return &p, nil
}
