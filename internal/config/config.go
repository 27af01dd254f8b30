// Package config loads run configuration from defaults, environment
// variables, and an optional config file via viper, while keeping the
// simple accessor surface the teacher's hand-rolled env reader exposed.
package config

import (
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config holds every tunable the CLI exposes.
type Config struct {
	OutputDB     string
	OutputCSV    string
	CachePages   int
	Threads      int
	RefreshDelay time.Duration
	SkipFilters  bool
	Keep         bool
	Debug        bool
}

// defaults mirrors the original implementation's CLI defaults
// (output-db=addresses.db, cache-size=10000, refresh-delay=1000ms). The CSV
// output is written uncompressed, so its default is deduplicated.csv.
func defaults(v *viper.Viper) {
	v.SetDefault("output_db", "addresses.db")
	v.SetDefault("output_csv", "deduplicated.csv")
	v.SetDefault("cache_pages", 10_000)
	v.SetDefault("threads", 0) // 0 means "use runtime.NumCPU()"
	v.SetDefault("refresh_delay_ms", 1000)
	v.SetDefault("skip_filters", false)
	v.SetDefault("keep", false)
	v.SetDefault("debug", false)
}

// Load reads configuration from (in ascending priority) defaults, an
// optional config file, and environment variables prefixed DEDUP_.
func Load(configFile string) (*Config, error) {
	v := viper.New()
	defaults(v)

	v.SetEnvPrefix("dedup")
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	v.AutomaticEnv()

	if configFile != "" {
		v.SetConfigFile(configFile)
		if err := v.ReadInConfig(); err != nil {
			return nil, err
		}
	}

	return &Config{
		OutputDB:     v.GetString("output_db"),
		OutputCSV:    v.GetString("output_csv"),
		CachePages:   v.GetInt("cache_pages"),
		Threads:      v.GetInt("threads"),
		RefreshDelay: time.Duration(v.GetInt("refresh_delay_ms")) * time.Millisecond,
		SkipFilters:  v.GetBool("skip_filters"),
		Keep:         v.GetBool("keep"),
		Debug:        v.GetBool("debug"),
	}, nil
}
