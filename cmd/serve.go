package cmd

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/khanhnv2901/webprof-cli/internal/api"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the profiler as a REST API service",
	RunE: func(cmd *cobra.Command, args []string) error {
		serveCfg := loadServeConfig()
		if v, _ := cmd.Flags().GetString("addr"); v != "" {
			serveCfg.Addr = v
		}
		if v, _ := cmd.Flags().GetString("auth-token"); v != "" {
			serveCfg.AuthToken = v
		}
		if v, _ := cmd.Flags().GetInt("rate-limit"); cmd.Flags().Changed("rate-limit") {
			serveCfg.RateLimit = v
		}
		if v, _ := cmd.Flags().GetInt("rate-burst"); cmd.Flags().Changed("rate-burst") {
			serveCfg.RateBurst = v
		}
		shutdownTimeout, _ := cmd.Flags().GetDuration("shutdown-timeout")
		corsOrigins, _ := cmd.Flags().GetStringSlice("cors-origins")

		runtimeCfg := loadProfileConfig()
		p, err := buildProfiler(runtimeCfg)
		if err != nil {
			return err
		}

		server := api.NewServer(api.Config{
			Profiles:    p,
			AuthToken:   serveCfg.AuthToken,
			Logger:      logger,
			CORSOrigins: corsOrigins,
			RateLimit:   serveCfg.RateLimit,
			RateBurst:   serveCfg.RateBurst,
			Timeout:     runtimeCfg.fetchTimeout() + runtimeCfg.storeTimeout(),
		})

		httpServer := &http.Server{
			Addr:         serveCfg.Addr,
			Handler:      server,
			ReadTimeout:  15 * time.Second,
			WriteTimeout: 60 * time.Second,
			IdleTimeout:  120 * time.Second,
		}

		serverErrors := make(chan error, 1)

		go func() {
			fmt.Printf("%s API server listening on %s (results dir: %s)\n", colorInfo("→"), serveCfg.Addr, resultsDir)
			fmt.Printf("%s Press Ctrl+C to gracefully shutdown\n", colorInfo("→"))
			serverErrors <- httpServer.ListenAndServe()
		}()

		shutdown := make(chan os.Signal, 1)
		signal.Notify(shutdown, os.Interrupt, syscall.SIGTERM)

		select {
		case err := <-serverErrors:
			if !errors.Is(err, http.ErrServerClosed) {
				return fmt.Errorf("server error: %w", err)
			}
		case sig := <-shutdown:
			fmt.Printf("\n%s Received signal %v, initiating graceful shutdown...\n", colorInfo("→"), sig)

			ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
			defer cancel()

			if err := httpServer.Shutdown(ctx); err != nil {
				if closeErr := httpServer.Close(); closeErr != nil {
					return fmt.Errorf("failed to gracefully shutdown server: %w (close error: %v)", err, closeErr)
				}
				return fmt.Errorf("failed to gracefully shutdown server: %w", err)
			}

			fmt.Printf("%s Server shutdown complete\n", colorSuccess("✓"))
		}

		return nil
	},
}

func init() {
	serveCmd.Flags().String("addr", "", "Address for the API server (default from config, :8087)")
	serveCmd.Flags().String("auth-token", "", "Optional shared secret for API requests")
	serveCmd.Flags().Duration("shutdown-timeout", 30*time.Second, "Graceful shutdown timeout")
	serveCmd.Flags().StringSlice("cors-origins", []string{}, "Allowed CORS origins (empty = allow all)")
	serveCmd.Flags().Int("rate-limit", 5, "Rate limit per IP (requests/second, 0 = disabled)")
	serveCmd.Flags().Int("rate-burst", 10, "Rate limit burst size")
}
