package cmd

import (
	"time"

	"github.com/spf13/viper"
)

const (
	defaultFetchTimeoutSeconds = 10
	defaultStoreTimeoutSeconds = 5
	defaultConcurrency         = 4
	defaultRateLimit           = 2
	defaultUserAgent           = "Mozilla/5.0 (Linux; Android 11; Pixel 5) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/90.0.4430.91 Mobile Safari/537.36"
)

// ProfileRuntimeConfig consolidates flag- and config-driven settings for
// profiling runs.
type ProfileRuntimeConfig struct {
	TimeoutSecs      int
	StoreTimeoutSecs int
	Concurrency      int
	RateLimit        int
	UserAgent        string
	StoreLookup      bool
	TechFingerprint  bool
}

// ServeRuntimeConfig groups API server options.
type ServeRuntimeConfig struct {
	Addr      string
	AuthToken string
	RateLimit int
	RateBurst int
}

func loadProfileConfig() ProfileRuntimeConfig {
	cfg := ProfileRuntimeConfig{
		TimeoutSecs:      defaultFetchTimeoutSeconds,
		StoreTimeoutSecs: defaultStoreTimeoutSeconds,
		Concurrency:      defaultConcurrency,
		RateLimit:        defaultRateLimit,
		UserAgent:        defaultUserAgent,
		StoreLookup:      true,
		TechFingerprint:  true,
	}
	if v := viper.GetInt("profile.timeout_secs"); v > 0 {
		cfg.TimeoutSecs = v
	}
	if v := viper.GetInt("profile.store_timeout_secs"); v > 0 {
		cfg.StoreTimeoutSecs = v
	}
	if v := viper.GetInt("profile.concurrency"); v > 0 {
		cfg.Concurrency = v
	}
	if v := viper.GetInt("profile.rate_limit"); v > 0 {
		cfg.RateLimit = v
	}
	if v := viper.GetString("profile.user_agent"); v != "" {
		cfg.UserAgent = v
	}
	if viper.IsSet("profile.store_lookup") {
		cfg.StoreLookup = viper.GetBool("profile.store_lookup")
	}
	if viper.IsSet("profile.tech_fingerprint") {
		cfg.TechFingerprint = viper.GetBool("profile.tech_fingerprint")
	}
	return cfg
}

func loadServeConfig() ServeRuntimeConfig {
	cfg := ServeRuntimeConfig{
		Addr:      ":8087",
		RateLimit: 5,
		RateBurst: 10,
	}
	if v := viper.GetString("serve.addr"); v != "" {
		cfg.Addr = v
	}
	if v := viper.GetString("serve.auth_token"); v != "" {
		cfg.AuthToken = v
	}
	if v := viper.GetInt("serve.rate_limit"); v > 0 {
		cfg.RateLimit = v
	}
	if v := viper.GetInt("serve.rate_burst"); v > 0 {
		cfg.RateBurst = v
	}
	return cfg
}

func (c ProfileRuntimeConfig) fetchTimeout() time.Duration {
	return time.Duration(c.TimeoutSecs) * time.Second
}

func (c ProfileRuntimeConfig) storeTimeout() time.Duration {
	return time.Duration(c.StoreTimeoutSecs) * time.Second
}
