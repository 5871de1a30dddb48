package cli

import (
	"context"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/SpaceC00kies/pranara-prototype-sub002/internal/config"
	"github.com/SpaceC00kies/pranara-prototype-sub002/internal/gateway"
	"github.com/SpaceC00kies/pranara-prototype-sub002/internal/hooks"
)

func newServeCmd() *cobra.Command {
	var (
		port int
		bind string
	)

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the HTTP and WebSocket gateway",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(func(c *config.Config) {
				if port != 0 {
					c.Gateway.Port = port
				}
				if bind != "" {
					c.Gateway.Bind = bind
				}
			})
			if err != nil {
				return err
			}
			if err := paths.EnsureDirs(); err != nil {
				return err
			}

			// Block until SIGINT/SIGTERM
			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			p, err := buildPipeline(ctx, cfg)
			if err != nil {
				return err
			}
			defer p.Close()

			p.hooks.On(hooks.EventProviderFailed, "log", func(_ context.Context, pl hooks.Payload) error {
				log.Warn().
					Str("session", pl.Record.SessionID).
					Str("outcome", string(pl.Record.Outcome)).
					Msg("turn ended without a model reply")
				return nil
			})
			p.hooks.On(hooks.EventEmergencyDetected, "log", func(_ context.Context, pl hooks.Payload) error {
				log.Warn().Str("session", pl.Record.SessionID).Msg("emergency message answered with hotline")
				return nil
			})

			log.Info().
				Str("provider", p.client.Name()).
				Str("model", cfg.Provider.Model).
				Str("conversation", cfg.Conversation.Backend).
				Msg("pipeline ready")

			srv := gateway.New(cfg.Gateway, p.orch, log,
				gateway.WithHooks(p.hooks),
				gateway.WithRecords(p.records),
			)
			return srv.Start(ctx)
		},
	}

	cmd.Flags().IntVar(&port, "port", 0, "override gateway port")
	cmd.Flags().StringVar(&bind, "bind", "", "override bind mode (loopback, lan, custom)")

	return cmd
}
