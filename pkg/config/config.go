package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/joho/godotenv"
	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/rawbytes"
	"github.com/knadh/koanf/v2"
)

const (
	envPrefix         = "LEDGER_"
	maxConfigFileSize = 1024 * 1024 // 1MB
)

// Files read from the config directory, in load order.
var configFiles = []string{"rules.yaml", "sheets.yaml", "vendors.yaml"}

// Top-level keys that contain an underscore and must not be split into section.field.
var topLevelKeys = map[string]bool{
	"date_formats":     true,
	"currency_symbols": true,
	"strict_level":     true,
}

// Keys whose env value is a comma separated list.
var listKeys = map[string]bool{
	"date_formats":     true,
	"currency_symbols": true,
	"triage.reasons":   true,
}

var (
	ErrInvalidStrictLevel = errors.New("strict_level must be one of low, medium, high")
	ErrInvalidThreshold   = errors.New("threshold must be within [0, 1]")
)

// Config holds all ledger configuration
type Config struct {
	DateFormats     []string            `koanf:"date_formats"`
	CurrencySymbols []string            `koanf:"currency_symbols"`
	VendorMap       []VendorMapEntry    `koanf:"vendors"`
	CategorySchemas map[string][]string `koanf:"tabs"`
	Triage          TriageConfig        `koanf:"triage"`
	StrictLevel     string              `koanf:"strict_level"`
	OCR             OCRConfig           `koanf:"ocr"`
	Pipeline        PipelineConfig      `koanf:"pipeline"`
	Output          OutputConfig        `koanf:"output"`
	Database        DatabaseConfig      `koanf:"database"`
	Log             LogConfig           `koanf:"log"`
	Watch           WatchConfig         `koanf:"watch"`
}

// VendorMapEntry is one row of vendors.yaml. Exactly one of Match or MatchRegex is set.
type VendorMapEntry struct {
	Match      string            `koanf:"match"`
	MatchRegex string            `koanf:"match_regex"`
	Category   string            `koanf:"category"`
	Hints      map[string]string `koanf:"hints"`
}

type TriageConfig struct {
	OCRConfThreshold float64  `koanf:"ocr_conf_threshold"`
	AmountDeltaPct   float64  `koanf:"amount_delta_pct"`
	Reasons          []string `koanf:"reasons"`
}

type OCRConfig struct {
	Engine        string  `koanf:"engine"`
	Language      string  `koanf:"language"`
	RatePerSecond float64 `koanf:"rate_per_second"`
}

type PipelineConfig struct {
	Workers int `koanf:"workers"`
}

type OutputConfig struct {
	Target         string `koanf:"target"`
	HighlightColor string `koanf:"highlight_color"`
	CSVAnnotate    bool   `koanf:"csv_annotate"`
}

type DatabaseConfig struct {
	DSN      string `koanf:"dsn"`
	MaxConns int32  `koanf:"max_conns"`
}

type LogConfig struct {
	Level  string `koanf:"level"`
	Format string `koanf:"format"`
}

type WatchConfig struct {
	Schedule string `koanf:"schedule"`
}

// DefaultDateFormats are tried before the generic date patterns.
var DefaultDateFormats = []string{"%m/%d/%Y", "%Y-%m-%d", "%b %d, %Y"}

// DefaultCurrencySymbols are recognised as amount prefixes and suffixes.
var DefaultCurrencySymbols = []string{"$", "USD"}

// DefaultReasons lists the triage reason families reported in the run report.
var DefaultReasons = []string{
	"low_conf", "multi_candidates", "parse_error",
	"rule_violation", "category_conflict", "incomplete",
}

// DefaultCategorySchemas returns the built-in tab layout used when sheets.yaml is absent.
func DefaultCategorySchemas() map[string][]string {
	return map[string][]string{
		"Office Supplies":       {"Date", "Vendor", "Item/Description", "Amount", "Payment Method", "Business Purpose"},
		"Marketing":             {"Date", "Vendor/Platform", "Campaign/Description", "Marketing Type", "Amount", "Payment Method"},
		"COGS":                  {"Date", "Vendor/Supplier", "Item/Description", "Product Line", "Amount", "Payment Method"},
		"Insurance":             {"Date", "Insurance Company", "Policy Type", "Coverage Period", "Amount", "Payment Method"},
		"Professional Services": {"Date", "Vendor/Provider", "Service/Description", "Invoice #", "Amount", "Payment Method"},
		"R&D":                   {"Date", "Vendor", "Description", "Amount", "Business Purpose", "Payment Method"},
		"Transportation":        {"Date", "Description", "Miles", "Rate/Mile", "From", "To", "Amount", "Business Purpose"},
		"Bank Fees":             {"Date", "Financial Institution", "Fee Type", "Account", "Amount"},
		"Revenue":               {"Date", "Customer/Source", "Description", "Invoice #", "Amount", "Payment Method"},
		"Unclassified":          {"Date", "Vendor", "Description", "Amount"},
	}
}

// Default returns a configuration populated only with built-in defaults.
func Default() *Config {
	cfg := &Config{}
	applyDefaults(cfg, func(string) bool { return false })
	return cfg
}

// Load reads configuration from the YAML files in dir, then overrides with environment variables.
//
// Precedence (highest to lowest):
//  1. LEDGER_* environment variables (a .env file in the working directory is loaded first)
//  2. rules.yaml, sheets.yaml and vendors.yaml in dir
//  3. built-in defaults
//
// An empty dir skips the file layer. Missing files are not an error.
func Load(dir string) (*Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("failed to load .env: %w", err)
	}

	k := koanf.New(".")

	if dir != "" {
		for _, name := range configFiles {
			if err := loadFile(k, filepath.Join(dir, name)); err != nil {
				return nil, err
			}
		}
	}

	if err := k.Load(env.ProviderWithValue(envPrefix, ".", transformEnv), nil); err != nil {
		return nil, fmt.Errorf("failed to load environment variables: %w", err)
	}

	var cfg Config
	if err := k.Unmarshal("", &cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	applyDefaults(&cfg, k.Exists)

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return &cfg, nil
}

func loadFile(k *koanf.Koanf, path string) error {
	info, err := os.Stat(path)
	if errors.Is(err, fs.ErrNotExist) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("failed to stat config file %s: %w", path, err)
	}
	if info.Size() > maxConfigFileSize {
		return fmt.Errorf("config file %s exceeds %d bytes", path, maxConfigFileSize)
	}

	content, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read config file %s: %w", path, err)
	}

	if err := k.Load(rawbytes.Provider(content), yaml.Parser()); err != nil {
		return fmt.Errorf("failed to load config file %s: %w", path, err)
	}
	return nil
}

// transformEnv maps LEDGER_TRIAGE_OCR_CONF_THRESHOLD to triage.ocr_conf_threshold.
// Only the first underscore separates section from field.
func transformEnv(key, value string) (string, interface{}) {
	lower := strings.ToLower(strings.TrimPrefix(key, envPrefix))

	path := lower
	if !topLevelKeys[lower] {
		if parts := strings.SplitN(lower, "_", 2); len(parts) == 2 {
			path = parts[0] + "." + parts[1]
		}
	}

	if listKeys[path] {
		items := strings.Split(value, ",")
		out := make([]string, 0, len(items))
		for _, item := range items {
			if item = strings.TrimSpace(item); item != "" {
				out = append(out, item)
			}
		}
		return path, out
	}
	return path, value
}

// applyDefaults fills unset fields. Numeric fields where zero is a meaningful setting are
// only defaulted when isSet reports that their key was not given at all.
func applyDefaults(cfg *Config, isSet func(key string) bool) {
	if len(cfg.DateFormats) == 0 {
		cfg.DateFormats = append([]string(nil), DefaultDateFormats...)
	}
	if len(cfg.CurrencySymbols) == 0 {
		cfg.CurrencySymbols = append([]string(nil), DefaultCurrencySymbols...)
	}
	if len(cfg.CategorySchemas) == 0 {
		cfg.CategorySchemas = DefaultCategorySchemas()
	}
	if !isSet("triage.ocr_conf_threshold") {
		cfg.Triage.OCRConfThreshold = 0.80
	}
	if !isSet("triage.amount_delta_pct") {
		cfg.Triage.AmountDeltaPct = 0.05
	}
	if len(cfg.Triage.Reasons) == 0 {
		cfg.Triage.Reasons = append([]string(nil), DefaultReasons...)
	}
	if cfg.StrictLevel == "" {
		cfg.StrictLevel = "medium"
	}
	if cfg.OCR.Engine == "" {
		cfg.OCR.Engine = "sidecar"
	}
	if cfg.OCR.Language == "" {
		cfg.OCR.Language = "eng"
	}
	if cfg.Output.Target == "" {
		cfg.Output.Target = "csv"
	}
	if cfg.Output.HighlightColor == "" {
		cfg.Output.HighlightColor = "#FFF59D"
	}
	if cfg.Database.MaxConns == 0 {
		cfg.Database.MaxConns = 4
	}
	if cfg.Log.Level == "" {
		cfg.Log.Level = "info"
	}
	if cfg.Log.Format == "" {
		cfg.Log.Format = "json"
	}
	if cfg.Watch.Schedule == "" {
		cfg.Watch.Schedule = "@every 5m"
	}
}

// Validate checks value ranges and cross-field consistency.
func (c *Config) Validate() error {
	switch c.StrictLevel {
	case "low", "medium", "high":
	default:
		return fmt.Errorf("%w: %q", ErrInvalidStrictLevel, c.StrictLevel)
	}

	if c.Triage.OCRConfThreshold < 0 || c.Triage.OCRConfThreshold > 1 {
		return fmt.Errorf("triage.ocr_conf_threshold %v: %w", c.Triage.OCRConfThreshold, ErrInvalidThreshold)
	}
	if c.Triage.AmountDeltaPct < 0 {
		return fmt.Errorf("triage.amount_delta_pct must not be negative, got %v", c.Triage.AmountDeltaPct)
	}

	switch c.OCR.Engine {
	case "sidecar", "tesseract":
	default:
		return fmt.Errorf("unknown ocr.engine %q", c.OCR.Engine)
	}
	if c.OCR.RatePerSecond < 0 {
		return fmt.Errorf("ocr.rate_per_second must not be negative")
	}

	switch c.Output.Target {
	case "csv", "xlsx", "jsonl", "postgres":
	default:
		return fmt.Errorf("unknown output.target %q", c.Output.Target)
	}
	if c.Output.Target == "postgres" && c.Database.DSN == "" {
		return errors.New("database.dsn is required for the postgres target")
	}

	for category, columns := range c.CategorySchemas {
		if len(columns) == 0 {
			return fmt.Errorf("category schema %q has no columns", category)
		}
	}

	for i, entry := range c.VendorMap {
		if entry.Category == "" {
			return fmt.Errorf("vendors[%d]: category is required", i)
		}
		if entry.Match == "" && entry.MatchRegex == "" {
			return fmt.Errorf("vendors[%d]: one of match or match_regex is required", i)
		}
		if entry.MatchRegex != "" {
			if _, err := regexp.Compile(entry.MatchRegex); err != nil {
				return fmt.Errorf("vendors[%d]: invalid match_regex: %w", i, err)
			}
		}
	}

	return nil
}
