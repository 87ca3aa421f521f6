package llm

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/adalundhe/museswarm/core/storage"
	"gopkg.in/yaml.v3"
)

var credentialEnvKeys = map[string]string{
	"groq":            "GROQ_API_KEY",
	"groq_specialist": "GROQ_API_KEY_SPECIALIST",
	"openai":          "OPENAI_API_KEY",
	"anthropic":       "ANTHROPIC_API_KEY",
	"google":          "GOOGLE_API_KEY",
}

type credentialsFile struct {
	Credentials map[string]string `yaml:"credentials"`
}

// CredentialStore reads and writes the credentials file. Environment
// variables always take precedence over the file.
type CredentialStore struct {
	Path string
}

// DefaultCredentialStore returns the store backed by the user config dir.
func DefaultCredentialStore() *CredentialStore {
	return &CredentialStore{Path: DefaultCredentialsPath()}
}

func DefaultCredentialsPath() string {
	dirs, err := storage.ResolveDirs()
	if err != nil {
		return ""
	}
	return dirs.CredentialsFile()
}

// KnownCredentials lists the credential names with a registered env key.
func KnownCredentials() []string {
	names := make([]string, 0, len(credentialEnvKeys))
	for name := range credentialEnvKeys {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

func IsKnownCredential(name string) bool {
	_, ok := credentialEnvKeys[name]
	return ok
}

// Resolve returns the key for name from the environment or the file.
func (s *CredentialStore) Resolve(name string) (string, error) {
	if key := resolveFromEnv(name); key != "" {
		return key, nil
	}

	creds, err := s.Load()
	if err != nil {
		return "", err
	}
	if key := strings.TrimSpace(creds[name]); key != "" {
		return key, nil
	}

	if envKey := GetEnvKeyName(name); envKey != "" {
		return "", fmt.Errorf("no API key found for %q (set %s or run `museswarm auth set %s`)", name, envKey, name)
	}
	return "", fmt.Errorf("no API key found for %q", name)
}

func (s *CredentialStore) Has(name string) bool {
	key, err := s.Resolve(name)
	return err == nil && key != ""
}

// Source reports where a credential would be resolved from: "env", "file" or "".
func (s *CredentialStore) Source(name string) string {
	if resolveFromEnv(name) != "" {
		return "env"
	}
	creds, err := s.Load()
	if err == nil && strings.TrimSpace(creds[name]) != "" {
		return "file"
	}
	return ""
}

func (s *CredentialStore) Load() (map[string]string, error) {
	if s.Path == "" {
		return make(map[string]string), nil
	}

	data, err := os.ReadFile(s.Path)
	if os.IsNotExist(err) {
		return make(map[string]string), nil
	}
	if err != nil {
		return nil, fmt.Errorf("reading credentials: %w", err)
	}

	var file credentialsFile
	if err := yaml.Unmarshal(data, &file); err != nil {
		return nil, fmt.Errorf("parsing credentials: %w", err)
	}
	if file.Credentials == nil {
		return make(map[string]string), nil
	}
	return file.Credentials, nil
}

func (s *CredentialStore) save(creds map[string]string) error {
	if s.Path == "" {
		return fmt.Errorf("could not determine credentials path")
	}
	if err := storage.EnsureSensitiveDir(filepath.Dir(s.Path)); err != nil {
		return fmt.Errorf("creating config directory: %w", err)
	}

	data, err := yaml.Marshal(&credentialsFile{Credentials: creds})
	if err != nil {
		return fmt.Errorf("marshaling credentials: %w", err)
	}

	if err := os.WriteFile(s.Path, data, 0600); err != nil {
		return fmt.Errorf("writing credentials: %w", err)
	}
	return nil
}

// Set stores key under name in the credentials file.
func (s *CredentialStore) Set(name, key string) error {
	key = strings.TrimSpace(key)
	if key == "" {
		return fmt.Errorf("empty API key for %q", name)
	}
	creds, err := s.Load()
	if err != nil {
		return err
	}
	creds[name] = key
	return s.save(creds)
}

// Remove deletes name from the credentials file. It reports whether an
// entry existed.
func (s *CredentialStore) Remove(name string) (bool, error) {
	creds, err := s.Load()
	if err != nil {
		return false, err
	}
	if _, ok := creds[name]; !ok {
		return false, nil
	}
	delete(creds, name)
	return true, s.save(creds)
}

func resolveFromEnv(name string) string {
	envKey, ok := credentialEnvKeys[name]
	if !ok {
		return ""
	}
	return strings.TrimSpace(os.Getenv(envKey))
}

func GetEnvKeyName(name string) string {
	return credentialEnvKeys[name]
}

func RegisterEnvKey(name, envKey string) {
	credentialEnvKeys[name] = envKey
}
