package config

import "time"

const DefaultCompletionModel = "gpt-3.5-turbo"

// CompletionConfig describes the language-model API behind askAI.
type CompletionConfig struct {
	Provider     string        `yaml:"provider"`
	BaseURL      string        `yaml:"base_url"`
	APIKey       string        `yaml:"api_key"`
	Organization string        `yaml:"organization,omitempty"`
	Model        string        `yaml:"model"`
	Timeout      time.Duration `yaml:"timeout"`
}

func DefaultCompletionConfig() *CompletionConfig {
	return &CompletionConfig{
		Provider: "openai",
		Model:    DefaultCompletionModel,
	}
}
