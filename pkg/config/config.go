// pkg/config/config.go
package config

import (
	"log"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// AzureSettings is the platform-wide default credential block. Field layout
// matches tenants.Credentials so the two convert directly.
type AzureSettings struct {
	ClientID        string `yaml:"client_id"`
	ClientSecret    string `yaml:"client_secret"`
	Tenant          string `yaml:"tenant"`
	RESTAPIEndpoint string `yaml:"rest_api_endpoint"`
}

type Config struct {
	Env      string
	HTTPAddr string

	// Inbound bearer validation (host-issued tokens). Empty JWKSURL in dev skips auth.
	Issuer   string
	Audience string
	JWKSURL  string

	// Redis & Postgres
	RedisURL    string
	DatabaseURL string

	// Optional YAML seed with the platform azure block, org settings, videos and blocks.
	SettingsFile  string
	EncryptionKey string

	AzureDefaults  AzureSettings
	AzureAuthority string

	// Outbound policy. Zero timeout keeps the transport defaults; zero retries is a single attempt.
	UpstreamTimeout  time.Duration
	UpstreamRetryMax int

	TranscriptRPM int
	PlayerVersion string
	Languages     []string

	Seed Seed
}

func Load() Config {
	_ = godotenv.Load()
	cfg := Config{
		Env:              env("AMS_ENV", "dev"),
		HTTPAddr:         env("AMS_HTTP_ADDR", ":8080"),
		Issuer:           env("OIDC_ISSUER", ""),
		Audience:         env("OIDC_AUDIENCE", "ams-player"),
		JWKSURL:          env("JWKS_URL", ""),
		RedisURL:         env("REDIS_URL", ""),
		DatabaseURL:      env("DATABASE_URL", ""),
		SettingsFile:     env("AMS_SETTINGS_FILE", ""),
		EncryptionKey:    env("ENCRYPTION_KEY", ""),
		AzureAuthority:   env("AZURE_AD_AUTHORITY", "https://login.microsoftonline.com"),
		UpstreamTimeout:  envDur("AMS_UPSTREAM_TIMEOUT_SEC", 0) * time.Second,
		UpstreamRetryMax: envInt("AMS_UPSTREAM_RETRY_MAX", 0),
		TranscriptRPM:    envInt("AMS_TRANSCRIPT_RPM", 0),
		PlayerVersion:    env("AMS_PLAYER_VERSION", "2.3.11"),
		Languages:        envList("AMS_LANGUAGES", []string{"en", "fr", "de", "es", "pt", "it", "ru", "zh", "ja", "ar"}),
	}
	if cfg.SettingsFile != "" {
		seed, err := LoadSeed(cfg.SettingsFile)
		if err != nil {
			log.Printf("[WARN] settings file %s not loaded: %v", cfg.SettingsFile, err)
		} else {
			cfg.Seed = seed
			cfg.AzureDefaults = seed.Azure
		}
	}
	cfg.AzureDefaults = overlayAzure(cfg.AzureDefaults)
	if cfg.DatabaseURL == "" {
		log.Println("[WARN] DATABASE_URL not set; using in-memory settings and catalog for dev")
	}
	return cfg
}

// overlayAzure lets AZURE_* variables override individual fields of the platform block.
func overlayAzure(a AzureSettings) AzureSettings {
	a.ClientID = env("AZURE_CLIENT_ID", a.ClientID)
	a.ClientSecret = env("AZURE_CLIENT_SECRET", a.ClientSecret)
	a.Tenant = env("AZURE_TENANT", a.Tenant)
	a.RESTAPIEndpoint = env("AZURE_REST_API_ENDPOINT", a.RESTAPIEndpoint)
	return a
}

func env(k, def string) string {
	if v := os.Getenv(k); v != "" {
		return v
	}
	return def
}
func envBool(k string, def bool) bool {
	if v := os.Getenv(k); v != "" {
		b, _ := strconv.ParseBool(v)
		return b
	}
	return def
}
func envInt(k string, def int) int {
	if v := os.Getenv(k); v != "" {
		i, err := strconv.Atoi(v)
		if err == nil {
			return i
		}
	}
	return def
}
func envDur(k string, def int) time.Duration {
	if v := os.Getenv(k); v != "" {
		i, _ := strconv.Atoi(v)
		return time.Duration(i)
	}
	return time.Duration(def)
}
func envList(k string, def []string) []string {
	v := os.Getenv(k)
	if strings.TrimSpace(v) == "" {
		return def
	}
	var out []string
	for _, p := range strings.Split(v, ",") {
		if s := strings.TrimSpace(p); s != "" {
			out = append(out, s)
		}
	}
	return out
}

// Dev reports whether the service runs with development relaxations (no inbound auth).
func (c Config) Dev() bool { return c.Env == "dev" || envBool("AMS_DEV_MODE", false) }
