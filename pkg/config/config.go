package config

import (
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

type Config struct {
	Anthropic struct {
		Model       string  `yaml:"model"`
		APIKey      string  `yaml:"api_key"`
		MaxTokens   int     `yaml:"max_tokens"`
		Temperature float64 `yaml:"temperature"`
	} `yaml:"anthropic"`

	Embeddings struct {
		BaseURL string `yaml:"base_url"`
		Model   string `yaml:"model"`
	} `yaml:"embeddings"`

	Database struct {
		URL          string  `yaml:"url"`
		CoursesTable string  `yaml:"courses_table"`
		ChunksTable  string  `yaml:"chunks_table"`
		VectorDim    int     `yaml:"vector_dim"`
		BatchSize    int     `yaml:"batch_size"`
		EmbedRate    float64 `yaml:"embed_rate"`
	} `yaml:"database"`

	Processor struct {
		ChunkSize    int `yaml:"chunk_size"`
		ChunkOverlap int `yaml:"chunk_overlap"`
	} `yaml:"processor"`

	Search struct {
		MaxResults int `yaml:"max_results"`
	} `yaml:"search"`

	Session struct {
		MaxHistory int `yaml:"max_history"`
	} `yaml:"session"`

	Server struct {
		Host string `yaml:"host"`
		Port int    `yaml:"port"`
	} `yaml:"server"`
}

func LoadConfig(path string) (*Config, error) {
	// If no path provided, try default locations
	if path == "" {
		locations := []string{
			"config.yaml",
			"config.yml",
			filepath.Join(os.Getenv("HOME"), ".config/coursechat/config.yaml"),
			"/etc/coursechat/config.yaml",
		}

		for _, loc := range locations {
			if _, err := os.Stat(loc); err == nil {
				path = loc
				break
			}
		}
	}

	if path == "" {
		return getDefaultConfig()
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("error reading config file: %v", err)
	}

	var config Config
	if err := yaml.Unmarshal(data, &config); err != nil {
		return nil, fmt.Errorf("error parsing config file: %v", err)
	}

	// Merge with environment variables
	mergeWithEnv(&config)

	// Apply defaults for unset values
	applyDefaults(&config)

	return &config, nil
}

func getDefaultConfig() (*Config, error) {
	config := &Config{}
	mergeWithEnv(config)
	applyDefaults(config)
	return config, nil
}

func applyDefaults(config *Config) {
	if config.Anthropic.Model == "" {
		config.Anthropic.Model = "claude-3-5-sonnet-20241022"
	}
	if config.Anthropic.MaxTokens == 0 {
		config.Anthropic.MaxTokens = 800
	}

	if config.Embeddings.BaseURL == "" {
		config.Embeddings.BaseURL = "http://localhost:11434"
	}
	if config.Embeddings.Model == "" {
		config.Embeddings.Model = "nomic-embed-text:latest"
	}

	if config.Database.CoursesTable == "" {
		config.Database.CoursesTable = "courses"
	}
	if config.Database.ChunksTable == "" {
		config.Database.ChunksTable = "course_chunks"
	}
	if config.Database.VectorDim == 0 {
		config.Database.VectorDim = 768
	}
	if config.Database.BatchSize == 0 {
		config.Database.BatchSize = 50
	}
	if config.Database.EmbedRate == 0 {
		config.Database.EmbedRate = 5.0
	}

	if config.Processor.ChunkSize == 0 {
		config.Processor.ChunkSize = 800
	}
	if config.Processor.ChunkOverlap == 0 {
		config.Processor.ChunkOverlap = 100
	}

	if config.Search.MaxResults == 0 {
		config.Search.MaxResults = 5
	}

	if config.Session.MaxHistory == 0 {
		config.Session.MaxHistory = 2
	}

	if config.Server.Host == "" {
		config.Server.Host = "0.0.0.0"
	}
	if config.Server.Port == 0 {
		config.Server.Port = 8000
	}
}

func mergeWithEnv(config *Config) {
	if apiKey := os.Getenv("ANTHROPIC_API_KEY"); apiKey != "" {
		config.Anthropic.APIKey = apiKey
	}
	if baseURL := os.Getenv("OLLAMA_BASE_URL"); baseURL != "" {
		config.Embeddings.BaseURL = baseURL
	}
	if dbURL := os.Getenv("DATABASE_URL"); dbURL != "" {
		config.Database.URL = dbURL
	}
}
