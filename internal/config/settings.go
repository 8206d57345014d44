package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/robfig/cron/v3"
	"gopkg.in/yaml.v3"
)

// Settings is the optional YAML settings document. Every field has a default, so
// an absent file behaves like an empty one.
type Settings struct {
	Sources    SourceSettings     `yaml:"sources"`
	Schedule   ScheduleSettings   `yaml:"schedule"`
	Pagination PaginationSettings `yaml:"pagination"`
	Embeds     EmbedSettings      `yaml:"embeds"`
	Filters    []FilterRule       `yaml:"filters,omitempty"`
}

type SourceSettings struct {
	CatalogURL  string `yaml:"catalog_url"`
	FixesURL    string `yaml:"fixes_url"`
	StatusURL   string `yaml:"status_url"`
	SteamURL    string `yaml:"steam_url"`
	ManifestURL string `yaml:"manifest_url"`
}

type ScheduleSettings struct {
	Monitor  string `yaml:"monitor"`
	Status   string `yaml:"status"`
	Timezone string `yaml:"timezone,omitempty"`
}

type PaginationSettings struct {
	ListPageSize  int           `yaml:"list_page_size"`
	FixesPageSize int           `yaml:"fixes_page_size"`
	PageDelay     time.Duration `yaml:"page_delay"`
	ShowNewLimit  int           `yaml:"show_new_limit"`
}

type EmbedSettings struct {
	Footer       string `yaml:"footer"`
	AlertFooter  string `yaml:"alert_footer"`
	FixFooter    string `yaml:"fix_footer"`
	TestBanner   string `yaml:"test_banner,omitempty"`
	FixesBanner  string `yaml:"fixes_banner,omitempty"`
	StatusBanner string `yaml:"status_banner,omitempty"`
}

// FilterRule drops (or keeps) items matching an expr expression before change
// detection. Kind limits the rule to "game" or "fix" items; empty applies to both.
type FilterRule struct {
	Name   string `yaml:"name"`
	Kind   string `yaml:"kind,omitempty"`
	Rule   string `yaml:"rule"`
	Result string `yaml:"result"`
}

func DefaultSettings() Settings {
	return Settings{
		Sources: SourceSettings{
			CatalogURL:  "https://generator.ryuu.lol/files/games.json",
			FixesURL:    "https://generator.ryuu.lol/fixes",
			StatusURL:   "https://status.manifestor.cc/",
			SteamURL:    "https://store.steampowered.com/api/appdetails",
			ManifestURL: "https://manifestor.cc/",
		},
		Schedule: ScheduleSettings{
			Monitor: "@every 5m",
			Status:  "@every 5m",
		},
		Pagination: PaginationSettings{
			ListPageSize:  80,
			FixesPageSize: 25,
			PageDelay:     2 * time.Second,
			ShowNewLimit:  10,
		},
		Embeds: EmbedSettings{
			Footer:       "Steam Manifest Bot • XALVENGE D.",
			AlertFooter:  "Steam Manifest Bot • Powered by JAY CAPARIDA AKA XALVENGE D.",
			FixFooter:    "Fix posted by Steam Manifest Bot • XALVENGE D.",
			TestBanner:   "img/giphy (1).gif",
			FixesBanner:  "img/giphy.gif",
			StatusBanner: "img/SERVER STATUS.gif",
		},
	}
}

// LoadSettings reads the settings document at path over the defaults. An empty
// path returns the defaults; a missing or invalid file is an error.
func LoadSettings(path string) (Settings, error) {
	settings := DefaultSettings()
	if strings.TrimSpace(path) == "" {
		return settings, nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return Settings{}, fmt.Errorf("read settings: %w", err)
	}
	return ParseSettings(data)
}

func ParseSettings(data []byte) (Settings, error) {
	settings := DefaultSettings()
	if err := yaml.Unmarshal(data, &settings); err != nil {
		return Settings{}, fmt.Errorf("parse settings: %w", err)
	}
	if err := settings.Validate(); err != nil {
		return Settings{}, err
	}
	return settings, nil
}

func (s Settings) Validate() error {
	urls := map[string]string{
		"sources.catalog_url":  s.Sources.CatalogURL,
		"sources.fixes_url":    s.Sources.FixesURL,
		"sources.status_url":   s.Sources.StatusURL,
		"sources.steam_url":    s.Sources.SteamURL,
		"sources.manifest_url": s.Sources.ManifestURL,
	}
	for field, value := range urls {
		if strings.TrimSpace(value) == "" {
			return fmt.Errorf("%s is required", field)
		}
	}

	parser := cron.NewParser(cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow | cron.Descriptor)
	for field, spec := range map[string]string{"schedule.monitor": s.Schedule.Monitor, "schedule.status": s.Schedule.Status} {
		if _, err := parser.Parse(spec); err != nil {
			return fmt.Errorf("%s: invalid cron schedule %q: %w", field, spec, err)
		}
	}
	if s.Schedule.Timezone != "" {
		if _, err := time.LoadLocation(s.Schedule.Timezone); err != nil {
			return fmt.Errorf("schedule.timezone: %w", err)
		}
	}

	if s.Pagination.ListPageSize <= 0 || s.Pagination.FixesPageSize <= 0 {
		return fmt.Errorf("pagination page sizes must be positive")
	}
	if s.Pagination.PageDelay < 0 {
		return fmt.Errorf("pagination.page_delay must not be negative")
	}
	if s.Pagination.ShowNewLimit <= 0 {
		return fmt.Errorf("pagination.show_new_limit must be positive")
	}

	for i, rule := range s.Filters {
		if rule.Name == "" || rule.Rule == "" {
			return fmt.Errorf("filter %d: name and rule are required", i)
		}
		switch rule.Kind {
		case "", "game", "fix":
		default:
			return fmt.Errorf("filter %s: kind must be game or fix", rule.Name)
		}
		switch rule.Result {
		case "drop", "keep":
		default:
			return fmt.Errorf("filter %s: result must be drop or keep", rule.Name)
		}
	}
	return nil
}
