package cfg

import (
	"os"
	"path/filepath"
	"testing"
)

func TestValidateLanguage(t *testing.T) {
	if got := validateLanguage("en-US"); got != "en-US" {
		t.Errorf("Expected en-US, got %s", got)
	}
	if got := validateLanguage("de"); got != "de" {
		t.Errorf("Expected de, got %s", got)
	}
	if got := validateLanguage("not a tag"); got != "en-US" {
		t.Errorf("Expected fallback en-US, got %s", got)
	}
}

func TestApplyFileConfigFillsEmptyFields(t *testing.T) {
	path := writeConfigFile(t, `
username: fileuser
email: file@example.com
password: filepass
cookies: '[{"auth_token":"abc"}]'
`)

	raw := rawCfg{Mode: "credential", CookiesFile: "cookies.json", Username: "flaguser"}
	if err := applyFileConfig(&raw, path); err != nil {
		t.Fatalf("Expected success, got %v", err)
	}

	// Flags and environment win over the file for account fields.
	if raw.Username != "flaguser" {
		t.Errorf("Expected flag value to win, got %s", raw.Username)
	}
	if raw.Email != "file@example.com" {
		t.Errorf("Expected file value to fill empty field, got %s", raw.Email)
	}
	if raw.Password != "filepass" {
		t.Errorf("Expected file value to fill empty field, got %s", raw.Password)
	}
	if raw.Cookies != `[{"auth_token":"abc"}]` {
		t.Errorf("Unexpected cookies: %s", raw.Cookies)
	}
}

func TestApplyFileConfigOverridesDefaults(t *testing.T) {
	path := writeConfigFile(t, `
mode: cookies
cookies_file: /var/lib/birdgate/cookies.json
`)

	// Mode and cookies_file always carry flag defaults, so a file value
	// overrides them when present.
	raw := rawCfg{Mode: "credential", CookiesFile: "cookies.json"}
	if err := applyFileConfig(&raw, path); err != nil {
		t.Fatalf("Expected success, got %v", err)
	}

	if raw.Mode != "cookies" {
		t.Errorf("Expected file mode to override, got %s", raw.Mode)
	}
	if raw.CookiesFile != "/var/lib/birdgate/cookies.json" {
		t.Errorf("Expected file cookies_file to override, got %s", raw.CookiesFile)
	}
}

func TestApplyFileConfigRejectsInvalidMode(t *testing.T) {
	path := writeConfigFile(t, "mode: interactive\n")

	raw := rawCfg{Mode: "credential"}
	if err := applyFileConfig(&raw, path); err == nil {
		t.Error("Expected error for invalid mode")
	}
}

func TestApplyFileConfigMissingFile(t *testing.T) {
	raw := rawCfg{}
	if err := applyFileConfig(&raw, "/nonexistent/config.yml"); err == nil {
		t.Error("Expected error for missing file")
	}
}

func TestApplyFileConfigMalformedYAML(t *testing.T) {
	path := writeConfigFile(t, "username: [unclosed\n")

	raw := rawCfg{}
	if err := applyFileConfig(&raw, path); err == nil {
		t.Error("Expected error for malformed YAML")
	}
}

func writeConfigFile(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yml")
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("Failed to write config file: %v", err)
	}
	return path
}
