package config

import (
	"fmt"
	"net/url"
	"os"
	"strconv"
	"strings"
	"time"
)

type EnvConfig struct {
	DiscordToken     string
	GuildID          string
	ConfigPath       string
	StatusConfigPath string
	FixesCachePath   string
	SettingsPath     string
	RunOnce          bool
	LogLevel         string
	MetricsAddr      string
	HTTP             HTTPEnvConfig
	Browser          BrowserEnvConfig
	OTel             OTelEnvConfig
}

type HTTPEnvConfig struct {
	Timeout   time.Duration
	UserAgent string
	Attempts  int
}

type BrowserEnvConfig struct {
	ExecPath        string
	ScrapeTimeout   time.Duration
	WaitTimeout     time.Duration
	ManifestTimeout time.Duration
}

type OTelEnvConfig struct {
	Enabled     bool
	ServiceName string
	Endpoint    string
	Protocol    string // "grpc" or "http/protobuf"
	Headers     map[string]string
	Insecure    bool
	SampleRatio float64
}

func LoadEnv() EnvConfig {
	otlpEndpoint := strings.TrimSpace(envString("OTEL_EXPORTER_OTLP_ENDPOINT", ""))

	return EnvConfig{
		DiscordToken:     envString("DISCORD_TOKEN", ""),
		GuildID:          envString("GUILD_ID", ""),
		ConfigPath:       envString("CONFIG_FILE", "game_config.json"),
		StatusConfigPath: envString("STATUS_CONFIG_FILE", "status_config.json"),
		FixesCachePath:   envString("FIXES_CACHE_FILE", "fixes_cache.json"),
		SettingsPath:     envString("SETTINGS_FILE", ""),
		RunOnce:          envBool("RUN_ONCE", false),
		LogLevel:         strings.ToLower(envString("LOG_LEVEL", "info")),
		MetricsAddr:      envString("METRICS_ADDR", ":8080"),
		HTTP: HTTPEnvConfig{
			Timeout:   envDuration("HTTP_TIMEOUT", 8*time.Second),
			UserAgent: envString("HTTP_USER_AGENT", "Mozilla/5.0 (compatible; manifest-watch/1.0)"),
			Attempts:  envInt("HTTP_ATTEMPTS", 2),
		},
		Browser: BrowserEnvConfig{
			ExecPath:        envString("CHROME_PATH", ""),
			ScrapeTimeout:   envDuration("SCRAPE_TIMEOUT", 45*time.Second),
			WaitTimeout:     envDuration("SCRAPE_WAIT_TIMEOUT", 30*time.Second),
			ManifestTimeout: envDuration("MANIFEST_TIMEOUT", 30*time.Second),
		},
		OTel: OTelEnvConfig{
			Enabled:     envBool("OTEL_ENABLED", false),
			ServiceName: strings.TrimSpace(envString("OTEL_SERVICE_NAME", "manifest-watch")),
			Endpoint:    otlpEndpoint,
			Protocol:    strings.ToLower(strings.TrimSpace(envString("OTEL_EXPORTER_OTLP_PROTOCOL", "grpc"))),
			Headers:     parseHeaders(envString("OTEL_EXPORTER_OTLP_HEADERS", "")),
			Insecure:    envBool("OTEL_EXPORTER_OTLP_INSECURE", defaultInsecure(otlpEndpoint)),
			SampleRatio: clamp01(envFloat("OTEL_TRACES_SAMPLE_RATIO", 1.0)),
		},
	}
}

// Validate checks the values the process cannot start without.
func (c EnvConfig) Validate() error {
	if c.DiscordToken == "" {
		return fmt.Errorf("DISCORD_TOKEN is required")
	}
	if c.GuildID == "" {
		return fmt.Errorf("GUILD_ID is required")
	}
	if _, err := strconv.ParseUint(c.GuildID, 10, 64); err != nil {
		return fmt.Errorf("GUILD_ID must be numeric: %w", err)
	}
	if c.ConfigPath == "" {
		return fmt.Errorf("CONFIG_FILE must not be empty")
	}
	return nil
}

func envString(key, fallback string) string {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		return v
	}
	return fallback
}

func envBool(key string, fallback bool) bool {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return fallback
	}
	switch strings.ToLower(v) {
	case "1", "true", "yes", "y", "on":
		return true
	default:
		return false
	}
}

func envInt(key string, fallback int) int {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return fallback
	}
	i, err := strconv.Atoi(v)
	if err != nil {
		return fallback
	}
	return i
}

func envFloat(key string, fallback float64) float64 {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return fallback
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil {
		return fallback
	}
	return f
}

// envDuration accepts Go durations and bare integers as seconds.
func envDuration(key string, fallback time.Duration) time.Duration {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return fallback
	}
	if secs, err := strconv.Atoi(v); err == nil {
		return time.Duration(secs) * time.Second
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return fallback
	}
	return d
}

func clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}

func parseHeaders(raw string) map[string]string {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil
	}
	out := map[string]string{}
	for _, part := range strings.Split(raw, ",") {
		k, v, ok := strings.Cut(strings.TrimSpace(part), "=")
		if !ok {
			continue
		}
		k = strings.TrimSpace(k)
		v = strings.TrimSpace(v)
		if k == "" || v == "" {
			continue
		}
		out[k] = v
	}
	return out
}

func defaultInsecure(endpoint string) bool {
	endpoint = strings.TrimSpace(endpoint)
	if endpoint == "" {
		return true
	}
	if strings.Contains(endpoint, "://") {
		u, err := url.Parse(endpoint)
		if err != nil {
			return false
		}
		return u.Scheme == "http"
	}
	return strings.HasPrefix(endpoint, "localhost:") ||
		strings.HasPrefix(endpoint, "127.0.0.1:") ||
		strings.HasPrefix(endpoint, "0.0.0.0:")
}
