package config

import (
	"os"
	"os/user"
	"path/filepath"

	"github.com/m4xw311/machat/errors"
	"gopkg.in/yaml.v3"
)

// RetrievalSettings control the optional history-retrieval augmenter.
type RetrievalSettings struct {
	Enabled        bool   `yaml:"enabled"`
	TopK           int    `yaml:"top_k"`
	EmbeddingModel string `yaml:"embedding_model"`
	IngestGlob     string `yaml:"ingest_glob"`
}

// Settings hold application-level options that are not part of the agent
// definition set: where the conversation database lives, who the operator
// is, and how retrieval behaves.
type Settings struct {
	DatabasePath string            `yaml:"database_path"`
	UserID       string            `yaml:"user_id"`
	LogLevel     string            `yaml:"log_level"`
	LogFormat    string            `yaml:"log_format"`
	Retrieval    RetrievalSettings `yaml:"retrieval"`
}

// LoadSettings loads settings from the user's home directory and the current
// working directory, with the latter taking precedence.
func LoadSettings() (*Settings, error) {
	s := defaultSettings()

	// User-level settings first
	home, err := os.UserHomeDir()
	if err == nil {
		userPath := filepath.Join(home, ".machat", "config.yaml")
		if _, err := os.Stat(userPath); err == nil {
			if err := loadSettingsFile(userPath, s); err != nil {
				return nil, errors.Wrapf(err, "error loading user settings")
			}
		}
	}

	// Project-level settings override user-level
	wd, err := os.Getwd()
	if err != nil {
		return nil, errors.Wrapf(err, "could not get working directory")
	}
	projectPath := filepath.Join(wd, ".machat", "config.yaml")
	if _, err := os.Stat(projectPath); err == nil {
		if err := loadSettingsFile(projectPath, s); err != nil {
			return nil, errors.Wrapf(err, "error loading project settings")
		}
	}

	return s, nil
}

func defaultSettings() *Settings {
	return &Settings{
		DatabasePath: filepath.Join(".machat", "memory.db"),
		UserID:       defaultUserID(),
		LogLevel:     "info",
		LogFormat:    "text",
		Retrieval: RetrievalSettings{
			Enabled:        false,
			TopK:           5,
			EmbeddingModel: "gemini-embedding-001",
			IngestGlob:     "chat_history/**/*.txt",
		},
	}
}

func loadSettingsFile(path string, s *Settings) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	// Unmarshal overwrites fields present in the YAML, which gives the
	// simple project-over-user merge.
	return yaml.Unmarshal(data, s)
}

// defaultUserID scopes conversation history per OS account when no explicit
// user_id is configured.
func defaultUserID() string {
	if u, err := user.Current(); err == nil && u.Username != "" {
		return "user_" + filepath.Base(u.Username)
	}
	return "user_default"
}
