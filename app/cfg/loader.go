package cfg

import (
	"cmp"
	"fmt"
	"os"
	"time"

	"github.com/jessevdk/go-flags"
	"golang.org/x/text/language"
	"gopkg.in/yaml.v3"
)

// Version is set at build time via -ldflags
var Version = "dev"

func GetVersion() string {
	return cmp.Or(Version, "unknown")
}

type rawCfg struct {
	// Session bootstrap configuration
	Mode        string `long:"mode" env:"BOOTSTRAP_MODE" default:"credential" choice:"credential" choice:"cookies" description:"Session bootstrap strategy"`
	Username    string `long:"username" env:"ACCOUNT_USERNAME" description:"Account username (credential mode)"`
	Email       string `long:"email" env:"ACCOUNT_EMAIL" description:"Account email (credential mode)"`
	Password    string `long:"password" env:"ACCOUNT_PASSWORD" description:"Account password (credential mode)"`
	Cookies     string `long:"cookies" env:"SESSION_COOKIES" description:"Serialized session cookie blob (cookies mode)"`
	CookiesFile string `long:"cookies-file" env:"COOKIES_FILE" default:"cookies.json" description:"Path used to persist the session artifact across restarts"`

	// Application configuration
	Port         string `long:"port" env:"PORT" default:"8080" description:"HTTP server port"`
	APIAccessKey string `long:"api-key" env:"API_ACCESS_KEY" description:"API access key for the admin endpoints (optional)"`
	DBPath       string `long:"db-path" env:"DB_PATH" default:"./birdgate.db" description:"Path to the sqlite archive database"`
	DevMode      bool   `long:"dev" env:"DEV_MODE" description:"Enable dev-mode endpoints (manual relogin, failure diagnostics)"`
	ConfigFile   string `long:"config" env:"CONFIG_FILE" description:"Optional YAML file supplying account settings not set via flags or environment"`

	// Upstream client configuration
	Language  string `long:"language" env:"CLIENT_LANGUAGE" default:"en-US" description:"BCP-47 language tag sent to the upstream provider"`
	UserAgent string `long:"user-agent" env:"USER_AGENT" default:"birdgate/1.0" description:"User agent string for upstream HTTP requests"`

	// Application metadata
	Timezone string `long:"timezone" env:"TZ" default:"UTC" description:"Timezone for timestamps (e.g., UTC, America/New_York)"`
	Debug    bool   `long:"debug" env:"DEBUG" description:"Enable debug logging"`
}

// fileCfg is the shape of the optional YAML config file. Account fields only
// fill in when flags and environment left them empty; mode and cookies_file
// carry flag defaults, so a file value overrides them when present.
type fileCfg struct {
	Mode        string `yaml:"mode"`
	Username    string `yaml:"username"`
	Email       string `yaml:"email"`
	Password    string `yaml:"password"`
	Cookies     string `yaml:"cookies"`
	CookiesFile string `yaml:"cookies_file"`
}

var globalCfg *Cfg

func Load() (*Cfg, error) {
	var raw rawCfg

	parser := flags.NewParser(&raw, flags.Default)

	if _, err := parser.Parse(); err != nil {
		if flagsErr, ok := err.(*flags.Error); ok {
			if flagsErr.Type == flags.ErrHelp {
				return nil, nil
			}
		}
		return nil, fmt.Errorf("failed to parse configuration: %w", err)
	}

	if raw.ConfigFile != "" {
		if err := applyFileConfig(&raw, raw.ConfigFile); err != nil {
			return nil, err
		}
	}

	cfg := &Cfg{
		Mode:         raw.Mode,
		Username:     raw.Username,
		Email:        raw.Email,
		Password:     raw.Password,
		Cookies:      raw.Cookies,
		CookiesFile:  raw.CookiesFile,
		Port:         raw.Port,
		APIAccessKey: raw.APIAccessKey,
		DBPath:       raw.DBPath,
		DevMode:      raw.DevMode,
		Language:     validateLanguage(raw.Language),
		UserAgent:    raw.UserAgent,
		Timezone:     raw.Timezone,
		Debug:        raw.Debug,
		Version:      GetVersion(),
	}

	if err := applyTimezone(cfg.Timezone); err != nil {
		fmt.Printf("Warning: Invalid timezone '%s', using system default: %v\n", cfg.Timezone, err)
	}

	globalCfg = cfg

	return cfg, nil
}

func Get() *Cfg {
	if globalCfg == nil {
		panic("configuration not loaded - call cfg.Load() first")
	}
	return globalCfg
}

func applyFileConfig(raw *rawCfg, path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read config file: %w", err)
	}

	var file fileCfg
	if err := yaml.Unmarshal(data, &file); err != nil {
		return fmt.Errorf("failed to parse config file %s: %w", path, err)
	}

	raw.Username = cmp.Or(raw.Username, file.Username)
	raw.Email = cmp.Or(raw.Email, file.Email)
	raw.Password = cmp.Or(raw.Password, file.Password)
	raw.Cookies = cmp.Or(raw.Cookies, file.Cookies)
	if file.Mode != "" {
		if file.Mode != "credential" && file.Mode != "cookies" {
			return fmt.Errorf("invalid mode %q in config file %s", file.Mode, path)
		}
		raw.Mode = file.Mode
	}
	if file.CookiesFile != "" {
		raw.CookiesFile = file.CookiesFile
	}

	return nil
}

func validateLanguage(tag string) string {
	if _, err := language.Parse(tag); err != nil {
		fmt.Printf("Warning: Invalid language tag '%s', using en-US: %v\n", tag, err)
		return "en-US"
	}
	return tag
}

func applyTimezone(timezone string) error {
	if timezone != "" {
		if loc, err := time.LoadLocation(timezone); err != nil {
			return err
		} else {
			time.Local = loc
		}
	}
	return nil
}
