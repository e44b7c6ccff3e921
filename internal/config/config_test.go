package config

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"
)

func testProvider() *Provider {
	defaults := map[string]any{
		"loglevel": "info",
		"github": map[string]any{
			"notifications": map[string]any{
				"enabled":  true,
				"interval": 300,
				"last":     7,
			},
		},
	}
	user := map[string]any{
		"loglevel": "debug",
		"caldav": map[string]any{
			"url":      "https://dav.example.com",
			"calendar": "",
		},
		"github": map[string]any{
			"notifications": map[string]any{
				"interval": 60,
				"last":     0,
				"enabled":  "yes",
			},
		},
	}
	return New(defaults, user, nil)
}

func TestGetResolution(t *testing.T) {
	p := testProvider()

	if got, err := p.String("loglevel"); err != nil || got != "debug" {
		t.Errorf("loglevel = %q, %v; want user value", got, err)
	}
	if got, err := p.Int("github.notifications.interval"); err != nil || got != 60 {
		t.Errorf("interval = %d, %v; want 60", got, err)
	}
	// Falsy user leaf falls back to the default leaf.
	if got, err := p.Int("github.notifications.last"); err != nil || got != 7 {
		t.Errorf("last = %d, %v; want default 7", got, err)
	}
	if got, err := p.String("caldav.url"); err != nil || got != "https://dav.example.com" {
		t.Errorf("caldav.url = %q, %v", got, err)
	}
}

func TestGetFalsyWithoutDefault(t *testing.T) {
	p := testProvider()

	got, err := p.String("caldav.calendar")
	if err != nil {
		t.Fatalf("caldav.calendar: %v", err)
	}
	if got != "" {
		t.Errorf("caldav.calendar = %q; want empty user value", got)
	}
}

func TestGetMissing(t *testing.T) {
	p := testProvider()

	for _, key := range []string{
		"caldav.user",
		"nope",
		"caldav.url.deeper",
		"missing.intermediate.key",
	} {
		_, err := p.String(key)
		if !errors.Is(err, ErrMissing) {
			t.Errorf("%s: err = %v; want ErrMissing", key, err)
		}
	}
}

func TestGetTypeMismatch(t *testing.T) {
	p := testProvider()

	if _, err := p.Bool("github.notifications.enabled"); !errors.Is(err, ErrTypeMismatch) {
		t.Errorf("enabled: err = %v; want ErrTypeMismatch", err)
	}
	if _, err := p.Int("loglevel"); !errors.Is(err, ErrTypeMismatch) {
		t.Errorf("loglevel as int: err = %v; want ErrTypeMismatch", err)
	}
	if _, err := Get[map[string]any](p, "caldav"); err != nil {
		t.Errorf("caldav as map: %v", err)
	}
}

func TestDurations(t *testing.T) {
	p := testProvider()

	if got, err := p.Seconds("github.notifications.interval"); err != nil || got != time.Minute {
		t.Errorf("Seconds = %v, %v; want 1m", got, err)
	}
	if got, err := p.Days("github.notifications.last"); err != nil || got != 7*24*time.Hour {
		t.Errorf("Days = %v, %v; want 168h", got, err)
	}
}

type fakeSecrets map[string]string

func (f fakeSecrets) Get(key string) (string, error) {
	v, ok := f[key]
	if !ok {
		return "", errors.New("not found")
	}
	return v, nil
}

func TestSecretFallsBackToKeyring(t *testing.T) {
	p := New(nil, map[string]any{
		"caldav": map[string]any{"password": "from-file"},
	}, fakeSecrets{"caldav-password": "from-keyring", "github-token": "tok"})

	if got, err := p.Secret("caldav.password", "caldav-password"); err != nil || got != "from-file" {
		t.Errorf("configured secret = %q, %v; want file value", got, err)
	}
	if got, err := p.Secret("github.notifications.token", "github-token"); err != nil || got != "tok" {
		t.Errorf("keyring secret = %q, %v; want tok", got, err)
	}
	if _, err := p.Secret("caldav.user", "absent"); !errors.Is(err, ErrMissing) {
		t.Errorf("absent secret: err = %v; want ErrMissing", err)
	}
}

func TestSecretBlankValueUsesKeyring(t *testing.T) {
	p := New(nil, map[string]any{
		"caldav": map[string]any{"password": "", "user": "  "},
		"github": map[string]any{
			"notifications": map[string]any{"token": ""},
		},
	}, fakeSecrets{"caldav-password": "from-keyring"})

	if got, err := p.Secret("caldav.password", "caldav-password"); err != nil || got != "from-keyring" {
		t.Errorf("blank secret = %q, %v; want keyring value", got, err)
	}
	if _, err := p.Secret("github.notifications.token", "github-token"); !errors.Is(err, ErrMissing) {
		t.Errorf("blank secret without keyring entry: err = %v; want ErrMissing", err)
	}
	if _, err := p.Secret("caldav.user", ""); !errors.Is(err, ErrMissing) {
		t.Errorf("whitespace secret: err = %v; want ErrMissing", err)
	}
}

func TestSecretBlankValueWithoutStore(t *testing.T) {
	p := New(nil, map[string]any{
		"caldav": map[string]any{"password": ""},
	}, nil)

	if _, err := p.Secret("caldav.password", "caldav-password"); !errors.Is(err, ErrMissing) {
		t.Errorf("err = %v; want ErrMissing", err)
	}
}

func TestLoadLayers(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yml")
	data := []byte(`
caldav:
  url: https://dav.example.com
  calendar: Tasks
github:
  notifications:
    enabled: false
    interval: 120
`)
	if err := os.WriteFile(path, data, 0o600); err != nil {
		t.Fatal(err)
	}

	p, err := Load(path, nil)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if p.UserPath() != path {
		t.Errorf("UserPath = %q; want %q", p.UserPath(), path)
	}
	if got, _ := p.Int("github.notifications.interval"); got != 120 {
		t.Errorf("interval = %d; want 120", got)
	}
	if got, _ := p.Int("github.notifications.last"); got != 7 {
		t.Errorf("last = %d; want default 7", got)
	}
	if got, err := p.Bool("github.notifications.enabled"); err != nil || got {
		t.Errorf("enabled = %v, %v; want an explicit false to survive without a default", got, err)
	}
	if got, _ := p.String("caldav.calendar"); got != "Tasks" {
		t.Errorf("calendar = %q; want Tasks", got)
	}

	settings := p.Settings()
	gh := settings["github"].(map[string]any)["notifications"].(map[string]any)
	if gh["interval"] != 120 || gh["last"] != 7 {
		t.Errorf("merged settings = %v", gh)
	}
}

func TestLoadExplicitMissingFile(t *testing.T) {
	if _, err := Load(filepath.Join(t.TempDir(), "absent.yml"), nil); err == nil {
		t.Error("expected error for explicit missing config file")
	}
}

func TestLoadDefaultsOnly(t *testing.T) {
	t.Chdir(t.TempDir())
	t.Setenv("HOME", t.TempDir())

	p, err := Load("", nil)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if p.UserPath() != "" {
		t.Errorf("UserPath = %q; want none", p.UserPath())
	}
	if got, _ := p.String("loglevel"); got != "info" {
		t.Errorf("loglevel = %q; want info", got)
	}
	if _, err := p.String("caldav.url"); !errors.Is(err, ErrMissing) {
		t.Errorf("caldav.url: err = %v; want ErrMissing", err)
	}
}
