// Package config resolves typed settings from a built-in default layer and
// an optional user configuration file, addressed by dotted key paths.
package config

import (
	"bytes"
	_ "embed"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/viper"
)

//go:embed default.yml
var defaultYAML []byte

var (
	// ErrMissing is returned when neither layer defines a key.
	ErrMissing = errors.New("config missing")

	// ErrTypeMismatch is returned when a value has an unexpected type.
	ErrTypeMismatch = errors.New("config type mismatch")

	// ErrInvalid is returned when a value has the right type but is out of
	// range.
	ErrInvalid = errors.New("config invalid")
)

// SecretStore looks up secrets that are not present in the config files.
type SecretStore interface {
	Get(key string) (string, error)
}

// Provider answers typed lookups against the layered configuration.
type Provider struct {
	defaults map[string]any
	user     map[string]any
	userPath string
	secrets  SecretStore
}

// SearchPaths returns the user config locations, in lookup order.
func SearchPaths() []string {
	paths := []string{
		"config.yml",
		filepath.Join(".config", "config.yml"),
	}
	if home, err := os.UserHomeDir(); err == nil {
		paths = append(paths, filepath.Join(home, ".config", "todosync", "config.yml"))
	}
	return paths
}

// Load builds a Provider from the embedded defaults and the user file at
// path. An empty path searches SearchPaths; finding nothing there is not
// an error and leaves only the defaults in effect.
func Load(path string, secrets SecretStore) (*Provider, error) {
	defaults, err := readYAML(bytes.NewReader(defaultYAML))
	if err != nil {
		return nil, fmt.Errorf("parsing default config: %w", err)
	}

	if path == "" {
		path = findUserConfig(SearchPaths())
	}

	p := &Provider{defaults: defaults, secrets: secrets}
	if path == "" {
		return p, nil
	}

	v := viper.New()
	v.SetConfigFile(path)
	v.SetConfigType("yaml")
	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("reading config %s: %w", path, err)
	}

	p.user = v.AllSettings()
	p.userPath = path
	return p, nil
}

// New returns a Provider over already-decoded layers. Either may be nil.
func New(defaults, user map[string]any, secrets SecretStore) *Provider {
	return &Provider{defaults: defaults, user: user, secrets: secrets}
}

func readYAML(r *bytes.Reader) (map[string]any, error) {
	v := viper.New()
	v.SetConfigType("yaml")
	if err := v.ReadConfig(r); err != nil {
		return nil, err
	}
	return v.AllSettings(), nil
}

func findUserConfig(paths []string) string {
	for _, p := range paths {
		if info, err := os.Stat(p); err == nil && !info.IsDir() {
			return p
		}
	}
	return ""
}

// UserPath returns the user config file in effect, or "" if none was found.
func (p *Provider) UserPath() string {
	return p.userPath
}

// Get resolves key and asserts its type. A user value overrides the
// default at the leaf; a missing or falsy user leaf yields the default
// leaf when one exists.
func Get[T any](p *Provider, key string) (T, error) {
	var zero T

	userVal, userOK := lookup(p.user, key)
	defVal, defOK := lookup(p.defaults, key)

	var val any
	switch {
	case userOK && !falsy(userVal):
		val = userVal
	case defOK:
		val = defVal
	case userOK:
		val = userVal
	}
	if val == nil {
		return zero, fmt.Errorf("%w for %s", ErrMissing, key)
	}

	typed, ok := normalize(val).(T)
	if !ok {
		return zero, fmt.Errorf("%w: %s: expected %T but got %T", ErrTypeMismatch, key, zero, val)
	}
	return typed, nil
}

// String resolves a text value.
func (p *Provider) String(key string) (string, error) {
	return Get[string](p, key)
}

// Int resolves an integer value.
func (p *Provider) Int(key string) (int, error) {
	return Get[int](p, key)
}

// Bool resolves a boolean value.
func (p *Provider) Bool(key string) (bool, error) {
	return Get[bool](p, key)
}

// Seconds resolves an integer number of seconds.
func (p *Provider) Seconds(key string) (time.Duration, error) {
	n, err := p.Int(key)
	if err != nil {
		return 0, err
	}
	return time.Duration(n) * time.Second, nil
}

// Days resolves an integer number of days.
func (p *Provider) Days(key string) (time.Duration, error) {
	n, err := p.Int(key)
	if err != nil {
		return 0, err
	}
	return time.Duration(n) * 24 * time.Hour, nil
}

// Secret resolves a text value, falling back to the secret store under
// credentialKey when the key is not configured or is blank.
func (p *Provider) Secret(key, credentialKey string) (string, error) {
	v, err := p.String(key)
	if err == nil && strings.TrimSpace(v) == "" {
		err = fmt.Errorf("%w: %s is empty", ErrMissing, key)
	}
	if err == nil || !errors.Is(err, ErrMissing) {
		return v, err
	}
	if p.secrets == nil || credentialKey == "" {
		return "", err
	}

	secret, serr := p.secrets.Get(credentialKey)
	if serr != nil {
		return "", fmt.Errorf("%w (keyring %q: %v)", err, credentialKey, serr)
	}
	return secret, nil
}

// Settings returns the effective configuration with user values merged
// over the defaults.
func (p *Provider) Settings() map[string]any {
	return merge(p.defaults, p.user)
}

// lookup walks the dotted key through nested maps and reports false as
// soon as a segment is absent.
func lookup(tree map[string]any, key string) (any, bool) {
	if tree == nil {
		return nil, false
	}

	var current any = tree
	for _, part := range strings.Split(strings.ToLower(key), ".") {
		m, ok := current.(map[string]any)
		if !ok {
			return nil, false
		}
		current, ok = m[part]
		if !ok {
			return nil, false
		}
	}
	return current, true
}

func falsy(v any) bool {
	switch x := v.(type) {
	case nil:
		return true
	case bool:
		return !x
	case string:
		return x == ""
	case int:
		return x == 0
	case int64:
		return x == 0
	case uint64:
		return x == 0
	case float64:
		return x == 0
	case map[string]any:
		return len(x) == 0
	case []any:
		return len(x) == 0
	}
	return false
}

// normalize maps the integer widths produced by YAML decoding onto int.
func normalize(v any) any {
	switch x := v.(type) {
	case int64:
		return int(x)
	case int32:
		return int(x)
	case uint64:
		return int(x)
	case uint32:
		return int(x)
	}
	return v
}

func merge(base, over map[string]any) map[string]any {
	out := make(map[string]any, len(base)+len(over))
	for k, v := range base {
		out[k] = v
	}
	for k, v := range over {
		bm, bok := out[k].(map[string]any)
		om, ook := v.(map[string]any)
		if bok && ook {
			out[k] = merge(bm, om)
			continue
		}
		if falsy(v) {
			if _, exists := out[k]; exists {
				continue
			}
		}
		out[k] = v
	}
	return out
}
