package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	appLog "papercal/internal/log"
	"papercal/internal/scan"
)

// LoadSettings reads a legacy settings file: one "key:content" pair per line,
// lines starting with "//" ignored. Unknown keys are ignored too.
//
//	iCalendarURL:https://example.com/basic.ics
//	holidayURL:https://example.com/holidays.ics
//	pemFileName:/root_ca.pem
//	timezone:9
//
// pemFileName is resolved against the directory holding the settings file.
// SSID and PASS are accepted for compatibility; network setup belongs to the
// host.
func LoadSettings(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("config: read settings: %w", err)
	}
	cfg := DefaultConfig()
	ParseSettings(string(data), cfg)

	if cfg.RootCAFile != "" {
		cfg.RootCAFile = filepath.Join(filepath.Dir(path), strings.TrimPrefix(cfg.RootCAFile, "/"))
	}
	cfg.Normalize()
	return cfg, nil
}

// ParseSettings applies the pairs in text to cfg.
func ParseSettings(text string, cfg *Config) {
	s := scan.New(text)
	for !s.AtEnd() {
		line := strings.TrimSuffix(s.UpTo("\n", true), "\r")
		if strings.HasPrefix(line, "//") {
			continue
		}
		ls := scan.New(line)
		key := ls.UpTo(":", false)
		if !ls.Skip(":") {
			continue
		}
		content := ls.Rest()

		switch key {
		case "SSID", "PASS":
		case "pemFileName":
			cfg.RootCAFile = content
		case "iCalendarURL":
			cfg.Calendars = append(cfg.Calendars, CalendarConfig{URL: content})
		case "holidayURL":
			cfg.HolidayURL = content
		case "timezone":
			cfg.Timezone = leadingFloat(content)
		default:
			appLog.Debug("settings: unknown key", "key", key)
		}
	}
}

// leadingFloat parses the longest numeric prefix of s, or 0.
func leadingFloat(s string) float64 {
	s = strings.TrimSpace(s)
	end := 0
	for end < len(s) {
		c := s[end]
		if (c >= '0' && c <= '9') || c == '.' || ((c == '-' || c == '+') && end == 0) {
			end++
			continue
		}
		break
	}
	for ; end > 0; end-- {
		if f, err := strconv.ParseFloat(s[:end], 64); err == nil {
			return f
		}
	}
	return 0
}
