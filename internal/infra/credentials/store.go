package credentials

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"sync"
)

const ProviderGemini = "gemini"

// Store resolves the Gemini API key for the session and remembers whether a
// usable credential has been selected. Resolution order: explicit value set
// by the user, then the environment, then an optional key file. The selected
// flag is cleared when the remote service rejects the credential so the next
// run re-prompts for a key instead of retrying a dead one.
type Store struct {
	mu       sync.Mutex
	envVar   string
	filePath string
	value    string
	selected bool
}

// Options configures credential resolution sources.
type Options struct {
	// EnvVar is the environment variable holding the key. Defaults to
	// GEMINI_API_KEY.
	EnvVar string
	// FilePath optionally names a file whose trimmed contents are the key.
	FilePath string
}

func NewStore(opts Options) *Store {
	envVar := opts.EnvVar
	if envVar == "" {
		envVar = "GEMINI_API_KEY"
	}
	return &Store{envVar: envVar, filePath: opts.FilePath}
}

// GeminiAPIKey returns the resolved key, or empty when none is configured.
func (s *Store) GeminiAPIKey() (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.value != "" {
		return s.value, nil
	}
	if v := strings.TrimSpace(os.Getenv(s.envVar)); v != "" {
		s.value = v
		s.selected = true
		return v, nil
	}
	if s.filePath != "" {
		raw, err := os.ReadFile(s.filePath)
		if err != nil {
			if os.IsNotExist(err) {
				return "", nil
			}
			return "", err
		}
		if v := strings.TrimSpace(string(raw)); v != "" {
			s.value = v
			s.selected = true
			return v, nil
		}
	}
	return "", nil
}

// SetGeminiAPIKey stores a user-supplied key for the session and persists it
// to the key file when one is configured.
func (s *Store) SetGeminiAPIKey(key string) error {
	key = strings.TrimSpace(key)
	if key == "" {
		return errors.New("gemini api key is required")
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.value = key
	s.selected = true

	if s.filePath == "" {
		return nil
	}
	if err := os.MkdirAll(filepath.Dir(s.filePath), 0o700); err != nil {
		return err
	}
	return os.WriteFile(s.filePath, []byte(key+"\n"), 0o600)
}

// Selected reports whether a credential is currently trusted for remote calls.
func (s *Store) Selected() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.selected
}

// Invalidate downgrades the selected flag after the remote service rejected
// the credential. The cached value is dropped so the next resolution re-reads
// the configured sources.
func (s *Store) Invalidate() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.value = ""
	s.selected = false
}
