package cmd

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"sort"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/khanhnv2901/webprof-cli/internal/appstore"
	"github.com/khanhnv2901/webprof-cli/internal/fetch"
	"github.com/khanhnv2901/webprof-cli/internal/profiler"
	"github.com/khanhnv2901/webprof-cli/internal/sensor"
	"github.com/khanhnv2901/webprof-cli/internal/techfp"
)

// RunOutput is the on-disk shape of one profiling run.
type RunOutput struct {
	StartedAt   time.Time           `json:"started_at"`
	CompletedAt time.Time           `json:"completed_at"`
	Targets     int                 `json:"targets"`
	Profiles    []*profiler.Profile `json:"profiles"`
}

var profileCmd = &cobra.Command{
	Use:   "profile <url> [url...]",
	Short: "Profile one or more URLs for crawl restrictions and capability features",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		runtimeCfg := loadProfileConfig()
		applyProfileFlags(cmd, &runtimeCfg)

		output, _ := cmd.Flags().GetString("output")
		if output == "" {
			output = filepath.Join(resultsDir, "profiles.json")
		}

		p, err := buildProfiler(runtimeCfg)
		if err != nil {
			return err
		}

		ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		runner := &profiler.Runner{
			Concurrency: runtimeCfg.Concurrency,
			RateLimit:   runtimeCfg.RateLimit,
			Timeout:     runtimeCfg.fetchTimeout() + runtimeCfg.storeTimeout(),
		}

		startedAt := time.Now().UTC()
		profiles := runner.Run(ctx, args, p, nil)
		completedAt := time.Now().UTC()

		run := RunOutput{
			StartedAt:   startedAt,
			CompletedAt: completedAt,
			Targets:     len(args),
			Profiles:    profiles,
		}
		if err := writeRunOutput(output, run); err != nil {
			return err
		}

		for _, profile := range profiles {
			printProfileSummary(profile)
		}
		fmt.Println(colorSuccess("Run complete."))
		fmt.Printf("%s %s\n", colorInfo("Profiles:"), output)

		if err := recordTelemetry(resultsDir, "profile", profiles, completedAt.Sub(startedAt)); err != nil {
			logger.Sugar().Warnf("telemetry record failed: %v", err)
		}
		return nil
	},
}

func init() {
	profileCmd.Flags().Int("timeout", 0, "fetch timeout in seconds")
	profileCmd.Flags().Int("concurrency", 0, "maximum concurrent targets")
	profileCmd.Flags().Int("rate", 0, "global requests per second")
	profileCmd.Flags().String("output", "", "profiles output path (default <results_dir>/profiles.json)")
	profileCmd.Flags().Bool("no-store-lookup", false, "skip the app-store lookup in the mobile sensor")
	profileCmd.Flags().Bool("no-tech-fingerprint", false, "skip technology fingerprinting in the mobile sensor")
}

func applyProfileFlags(cmd *cobra.Command, cfg *ProfileRuntimeConfig) {
	if v, _ := cmd.Flags().GetInt("timeout"); v > 0 {
		cfg.TimeoutSecs = v
	}
	if v, _ := cmd.Flags().GetInt("concurrency"); v > 0 {
		cfg.Concurrency = v
	}
	if v, _ := cmd.Flags().GetInt("rate"); v > 0 {
		cfg.RateLimit = v
	}
	if v, _ := cmd.Flags().GetBool("no-store-lookup"); v {
		cfg.StoreLookup = false
	}
	if v, _ := cmd.Flags().GetBool("no-tech-fingerprint"); v {
		cfg.TechFingerprint = false
	}
}

// buildProfiler wires the fetcher, the mobile-sensor collaborators and the
// fixed sensor registry into a Profiler.
func buildProfiler(cfg ProfileRuntimeConfig) (*profiler.Profiler, error) {
	fetcher := &fetch.HTTPFetcher{
		Timeout:   cfg.fetchTimeout(),
		UserAgent: cfg.UserAgent,
	}

	var classifier sensor.TechnologyClassifier
	if cfg.TechFingerprint {
		client, err := techfp.New()
		if err != nil {
			// Classification is best-effort; profile without it.
			logger.Sugar().Warnf("technology fingerprinting unavailable: %v", err)
		} else {
			classifier = client
		}
	}

	var store sensor.AppStoreSearcher
	if cfg.StoreLookup {
		store = &appstore.Client{
			Timeout:   cfg.storeTimeout(),
			UserAgent: cfg.UserAgent,
		}
	}

	sensors, err := sensor.NewRegistry(sensor.RegistryOptions{
		Classifier:   classifier,
		Store:        store,
		StoreTimeout: cfg.storeTimeout(),
	})
	if err != nil {
		return nil, err
	}

	return profiler.New(fetcher, sensors, logger)
}

func writeRunOutput(path string, run RunOutput) error {
	data, err := json.MarshalIndent(run, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal profiles: %w", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("write profiles: %w", err)
	}
	return nil
}

func printProfileSummary(profile *profiler.Profile) {
	status := "no response"
	if profile.StatusCode != nil {
		status = fmt.Sprintf("%d", *profile.StatusCode)
	}
	fmt.Printf("%s %s (status %s, overall confidence %s)\n",
		colorInfo("→"), profile.URL, status, formatConfidence(profile.OverallConfidence))

	for _, key := range sortedResultKeys(profile.Restrictions) {
		res := profile.Restrictions[key]
		if !res.Flag {
			continue
		}
		fmt.Printf("    %s %s: confidence %s\n", colorWarn("restriction"), key, formatConfidence(res.Confidence))
	}
	for _, key := range sortedResultKeys(profile.Features) {
		res := profile.Features[key]
		if !res.Flag {
			continue
		}
		fmt.Printf("    %s %s: confidence %s\n", colorInfo("feature"), key, formatFloat(res.Confidence))
	}
}

func sortedResultKeys(results map[string]sensor.Result) []string {
	keys := make([]string, 0, len(results))
	for key := range results {
		keys = append(keys, key)
	}
	sort.Strings(keys)
	return keys
}

func formatFloat(v float64) string {
	return fmt.Sprintf("%.2f", v)
}
