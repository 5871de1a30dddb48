package cli

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/spf13/cobra"

	"github.com/SpaceC00kies/pranara-prototype-sub002/internal/config"
	"github.com/SpaceC00kies/pranara-prototype-sub002/internal/llm"
	"github.com/SpaceC00kies/pranara-prototype-sub002/internal/store"
	"github.com/SpaceC00kies/pranara-prototype-sub002/internal/version"
)

func newStatusCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Show paths and a configuration summary",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "Pranara %s (commit %s)\n\n", version.Version, version.Commit)

			fmt.Fprintf(out, "Config:  %s\n", paths.Config)
			fmt.Fprintf(out, "Data:    %s\n", paths.Data)
			fmt.Fprintf(out, "Logs:    %s\n", paths.Logs)
			fmt.Fprintln(out)

			cfg, err := config.Load(paths.Config)
			if err != nil {
				fmt.Fprintf(out, "Config:  error loading: %v\n", err)
				return nil
			}

			key := "set"
			if cfg.Provider.APIKey == "" {
				key = "missing"
			}
			fmt.Fprintf(out, "Provider:     %s model=%s apiKey=%s breaker=%v\n",
				cfg.Provider.Name, cfg.Provider.Model, key, cfg.Breaker.Enabled)
			fmt.Fprintf(out, "Retry:        retries=%d base=%dms max=%dms\n",
				cfg.Retry.Retries(), cfg.Retry.BaseDelayMs, cfg.Retry.MaxDelayMs)
			fmt.Fprintf(out, "Conversation: backend=%s maxTurns=%d idle=%s\n",
				cfg.Conversation.Backend, cfg.Conversation.MaxTurns, cfg.Conversation.IdleTTL())
			fmt.Fprintf(out, "Streaming:    pacing=%v\n", cfg.Streaming.PacingEnabled())
			fmt.Fprintf(out, "Store:        %s\n", paths.DatabasePath(cfg.Store))
			fmt.Fprintf(out, "Gateway:      port=%d bind=%s auth=%v\n",
				cfg.Gateway.Port, cfg.Gateway.Bind, cfg.Gateway.Token != "")

			if issues := config.Validate(&cfg); len(issues) > 0 {
				fmt.Fprintf(out, "\nValidation issues (%d):\n", len(issues))
				for _, issue := range issues {
					fmt.Fprintf(out, "  - %s\n", issue)
				}
			}
			return nil
		},
	}
}

func newCheckCmd() *cobra.Command {
	var timeout time.Duration

	cmd := &cobra.Command{
		Use:   "check",
		Short: "Check connectivity to the provider, redis and the database",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			ctx, cancel := context.WithTimeout(cmd.Context(), timeout)
			defer cancel()

			out := cmd.OutOrStdout()
			failed := 0
			report := func(name string, err error) {
				if err != nil {
					failed++
					fmt.Fprintf(out, "%-9s FAIL %v\n", name, err)
					return
				}
				fmt.Fprintf(out, "%-9s ok\n", name)
			}

			report("provider", checkProvider(ctx, cfg))
			if cfg.Conversation.Backend == "redis" {
				report("redis", checkRedis(ctx, cfg.Conversation.Redis))
			}
			report("database", checkDatabase(ctx, paths.DatabasePath(cfg.Store)))

			if failed > 0 {
				return fmt.Errorf("%d check(s) failed", failed)
			}
			return nil
		},
	}

	cmd.Flags().DurationVar(&timeout, "timeout", 15*time.Second, "overall timeout")
	return cmd
}

func checkProvider(ctx context.Context, cfg config.Config) error {
	reg, err := llm.NewRegistryFromConfig(cfg.Provider, cfg.Breaker, log)
	if err != nil {
		return err
	}
	client, err := reg.Resolve(cfg.Provider.Model)
	if err != nil {
		return err
	}
	return client.ValidateConnection(ctx)
}

func checkRedis(ctx context.Context, rc config.RedisConfig) error {
	client := redis.NewClient(&redis.Options{Addr: rc.Addr, Password: rc.Password, DB: rc.DB})
	defer client.Close()
	return client.Ping(ctx).Err()
}

func checkDatabase(ctx context.Context, path string) error {
	db, err := store.Open(ctx, path, log)
	if err != nil {
		return err
	}
	defer db.Close()
	return db.Ping(ctx)
}
