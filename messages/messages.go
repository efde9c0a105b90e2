// Package messages resolves user-facing text by key from per-locale YAML
// files, so bot replies can be localized without touching handler code.
//
// A message tree lives in a directory (or any fs.FS, including an embedded
// one) as messages.yaml plus optional messages_<locale>.yaml overlays:
//
//	greeting:
//	  welcome: "Hi! How can I help?"
//	errors:
//	  generic: "Something went wrong. Please try again."
//
// Nested keys are addressed dotted, as in "greeting.welcome". Locale files
// override keys from the base file.
package messages

import (
	"fmt"
	"io/fs"
	"sync"

	"gopkg.in/yaml.v3"
)

// DefaultFile is the locale-independent fallback message file.
const DefaultFile = "messages.yaml"

// Manager loads and caches message files from one source.
type Manager struct {
	mu      sync.Mutex
	fsys    fs.FS
	locale  string
	locales map[string]map[string]string
}

// NewManager returns a manager reading from the given source. A nil source
// is allowed; lookups fail until SetSource is called.
func NewManager(fsys fs.FS) *Manager {
	return &Manager{fsys: fsys, locales: make(map[string]map[string]string)}
}

// SetSource replaces the message source and drops all cached locales.
func (m *Manager) SetSource(fsys fs.FS) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.fsys = fsys
	m.locales = make(map[string]map[string]string)
}

// SetLocale selects the locale for subsequent lookups and loads its file on
// first use. A locale without its own file is not an error; lookups then
// resolve against the base file alone.
func (m *Manager) SetLocale(locale string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.locale = locale
	_, err := m.loadLocked(locale)
	return err
}

// Get returns the message stored under the dotted key for the current
// locale.
func (m *Manager) Get(key string) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	msgs, err := m.loadLocked(m.locale)
	if err != nil {
		return "", err
	}
	if v, ok := msgs[key]; ok {
		return v, nil
	}
	return "", fmt.Errorf("messages: no message for key %q in locale %q", key, m.locale)
}

// GetOrDefault returns the message for the key, or the fallback when the
// key cannot be resolved. Passing the same string as key and fallback gives
// key-or-literal behavior for configuration values.
func (m *Manager) GetOrDefault(key string, fallback string) string {
	v, err := m.Get(key)
	if err != nil {
		return fallback
	}
	return v
}

func (m *Manager) loadLocked(locale string) (map[string]string, error) {
	if msgs, ok := m.locales[locale]; ok {
		return msgs, nil
	}
	if m.fsys == nil {
		return nil, fmt.Errorf("messages: no message source configured")
	}
	msgs := make(map[string]string)
	names := []string{DefaultFile}
	if locale != "" {
		names = append(names, "messages_"+locale+".yaml")
	}
	// Base file first so the locale overlay wins on shared keys.
	for _, name := range names {
		b, err := fs.ReadFile(m.fsys, name)
		if err != nil {
			continue
		}
		var root map[string]interface{}
		if err := yaml.Unmarshal(b, &root); err != nil {
			return nil, fmt.Errorf("messages: parse %s: %w", name, err)
		}
		flatten("", root, msgs)
	}
	m.locales[locale] = msgs
	return msgs, nil
}

func flatten(prefix string, node map[string]interface{}, out map[string]string) {
	for k, v := range node {
		key := k
		if prefix != "" {
			key = prefix + "." + k
		}
		switch child := v.(type) {
		case map[string]interface{}:
			flatten(key, child, out)
		case nil:
		default:
			out[key] = fmt.Sprintf("%v", child)
		}
	}
}

var std = NewManager(nil)

// SetSource points the package-level manager at a message file tree.
func SetSource(fsys fs.FS) { std.SetSource(fsys) }

// SetLocale selects the locale on the package-level manager.
func SetLocale(locale string) error { return std.SetLocale(locale) }

// Get resolves a key on the package-level manager.
func Get(key string) (string, error) { return std.Get(key) }

// GetOrDefault resolves a key on the package-level manager, falling back to
// the given string.
func GetOrDefault(key string, fallback string) string { return std.GetOrDefault(key, fallback) }
