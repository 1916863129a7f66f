// Package config resolves and validates the report configuration from the
// process environment, with an optional YAML tuning-file overlay.
package config

import (
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
	"time"

	"Meraki-Client-History-Report/pkg/filters"

	"gopkg.in/yaml.v3"
)

const (
	// DefaultTimespan is one day of client history, in seconds.
	DefaultTimespan = 86400
	// MaxTimespan is 31 days in seconds, the upstream ceiling for the
	// clients endpoints.
	MaxTimespan = 2678400
)

// Tuning holds the rate-limit and output knobs that rarely change between
// runs. Values come from defaults, optionally overlaid from a YAML file.
type Tuning struct {
	RateLimitPauseSeconds int      `yaml:"rate_limit_pause_seconds"`
	MaxRetries            int      `yaml:"max_retries"`
	PacingDelayMillis     int      `yaml:"pacing_delay_ms"`
	BurstAllowance        int      `yaml:"burst_allowance"`
	AllowedProductTypes   []string `yaml:"allowed_product_types"`
	ReportDir             string   `yaml:"report_dir"`
}

// RateLimitPause returns the pause between rate-limited retries.
func (t Tuning) RateLimitPause() time.Duration {
	return time.Duration(t.RateLimitPauseSeconds) * time.Second
}

// PacingDelay returns the pause inserted after successful calls once the
// burst allowance is spent.
func (t Tuning) PacingDelay() time.Duration {
	return time.Duration(t.PacingDelayMillis) * time.Millisecond
}

// Config is the validated run configuration. It is built once in Load and
// passed by parameter; nothing reads the environment after that.
type Config struct {
	APIKey          string
	OrgName         string
	ReportOrgWide   bool
	ReportByNetwork bool
	Excel           bool
	Timespan        int
	LogLevel        string
	LogFile         string
	BaseURL         string
	Tuning          Tuning
}

// Overrides carries command-line values that take precedence over the
// environment.
type Overrides struct {
	OrgName    string
	LogFile    string
	LogLevel   string
	TuningFile string
}

// ValidationError reports every missing or out-of-range setting at once.
type ValidationError struct {
	Problems []string
}

// Error implements the error interface.
func (e *ValidationError) Error() string {
	return "invalid configuration: " + strings.Join(e.Problems, "; ")
}

func defaultTuning() Tuning {
	return Tuning{
		RateLimitPauseSeconds: 1,
		MaxRetries:            3,
		PacingDelayMillis:     200,
		BurstAllowance:        5,
		AllowedProductTypes:   filters.DefaultAllowedProductTypes(),
		ReportDir:             "reports",
	}
}

// Load resolves the configuration from the environment and the optional
// tuning file, then validates it. Every violation is collected into a
// single *ValidationError rather than failing on the first.
func Load(ov Overrides) (*Config, error) {
	var problems []string

	cfg := &Config{
		APIKey:          strings.TrimSpace(os.Getenv("MERAKI_API_KEY")),
		OrgName:         strings.TrimSpace(firstNonEmpty(ov.OrgName, os.Getenv("MERAKI_ORG_NAME"))),
		ReportOrgWide:   envBool("REPORT_ORG_WIDE"),
		ReportByNetwork: envBool("REPORT_BY_NETWORK"),
		Excel:           envBool("EXCEL"),
		Timespan:        DefaultTimespan,
		LogLevel:        strings.TrimSpace(firstNonEmpty(ov.LogLevel, os.Getenv("LOGGER_LEVEL"), "CRITICAL")),
		LogFile:         strings.TrimSpace(firstNonEmpty(ov.LogFile, os.Getenv("LOG_FILE"), "meraki-client-history-report.log")),
		BaseURL:         strings.TrimSpace(firstNonEmpty(os.Getenv("MERAKI_BASE_URL"), "https://api.meraki.com/api/v1")),
		Tuning:          defaultTuning(),
	}

	if cfg.APIKey == "" {
		problems = append(problems, "MERAKI_API_KEY has not been set")
	}

	if raw := strings.TrimSpace(os.Getenv("TIMESPAN_IN_SECONDS")); raw != "" {
		timespan, err := strconv.Atoi(raw)
		switch {
		case err != nil:
			problems = append(problems, fmt.Sprintf("TIMESPAN_IN_SECONDS value %q is not a number", raw))
		case timespan < 1 || timespan > MaxTimespan:
			problems = append(problems, fmt.Sprintf("TIMESPAN_IN_SECONDS value (%d) out of range [1, %d]", timespan, MaxTimespan))
		default:
			cfg.Timespan = timespan
		}
	}

	if dir := strings.TrimSpace(os.Getenv("REPORT_DIR")); dir != "" {
		cfg.Tuning.ReportDir = dir
	}

	if ov.TuningFile != "" {
		if err := overlayTuningFile(&cfg.Tuning, ov.TuningFile); err != nil {
			problems = append(problems, err.Error())
		}
	}

	if len(problems) > 0 {
		return nil, &ValidationError{Problems: problems}
	}
	return cfg, nil
}

// overlayTuningFile merges a YAML tuning file over the defaults. Zero-value
// fields in the file leave the defaults in place.
func overlayTuningFile(t *Tuning, path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("tuning file %s could not be read: %v", path, err)
	}
	var file Tuning
	if err := yaml.Unmarshal(data, &file); err != nil {
		return fmt.Errorf("tuning file %s is not valid YAML: %v", path, err)
	}
	if file.RateLimitPauseSeconds > 0 {
		t.RateLimitPauseSeconds = file.RateLimitPauseSeconds
	}
	if file.MaxRetries > 0 {
		t.MaxRetries = file.MaxRetries
	}
	if file.PacingDelayMillis > 0 {
		t.PacingDelayMillis = file.PacingDelayMillis
	}
	if file.BurstAllowance > 0 {
		t.BurstAllowance = file.BurstAllowance
	}
	if len(file.AllowedProductTypes) > 0 {
		t.AllowedProductTypes = file.AllowedProductTypes
	}
	if strings.TrimSpace(file.ReportDir) != "" {
		t.ReportDir = file.ReportDir
	}
	return nil
}

// PrintTable writes the resolved settings as an aligned two-column table.
// The API key is never echoed; it renders as OK or Not Set.
func (c *Config) PrintTable(w io.Writer) {
	apiKey := "Not Set"
	if c.APIKey != "" {
		apiKey = "OK"
	}
	rows := [][2]string{
		{"MERAKI_API_KEY", apiKey},
		{"MERAKI_ORG_NAME", orNotSet(c.OrgName)},
		{"REPORT_ORG_WIDE", strconv.FormatBool(c.ReportOrgWide)},
		{"REPORT_BY_NETWORK", strconv.FormatBool(c.ReportByNetwork)},
		{"EXCEL", strconv.FormatBool(c.Excel)},
		{"TIMESPAN_IN_SECONDS", strconv.Itoa(c.Timespan)},
		{"LOGGER_LEVEL", c.LogLevel},
		{"LOG_FILE", c.LogFile},
		{"REPORT_DIR", c.Tuning.ReportDir},
	}

	fmt.Fprintln(w, "Resolved configuration:")
	for _, row := range rows {
		fmt.Fprintf(w, "  %-22s %s\n", row[0], row[1])
	}
}

func orNotSet(v string) string {
	if v == "" {
		return "Not Set"
	}
	return v
}

// envBool reads a boolean toggle: the string "true" in any case enables it,
// anything else (including absence) disables it.
func envBool(name string) bool {
	return strings.EqualFold(strings.TrimSpace(os.Getenv(name)), "true")
}

// firstNonEmpty returns the first non-empty string from the provided values.
func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if strings.TrimSpace(v) != "" {
			return v
		}
	}
	return ""
}
