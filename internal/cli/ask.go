package cli

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/SpaceC00kies/pranara-prototype-sub002/internal/domain"
	"github.com/SpaceC00kies/pranara-prototype-sub002/internal/orchestrator"
	"github.com/SpaceC00kies/pranara-prototype-sub002/internal/sanitize"
)

func newAskCmd() *cobra.Command {
	var (
		sessionID string
		mode      string
		lang      string
		stream    bool
	)

	cmd := &cobra.Command{
		Use:   "ask [message]",
		Short: "Ask one question and print the reply",
		Long: "Ask runs a single turn through the full pipeline. With no arguments the\n" +
			"message is read from stdin. Reuse --session to continue a conversation.",
		RunE: func(cmd *cobra.Command, args []string) error {
			message := strings.Join(args, " ")
			if message == "" {
				data, err := io.ReadAll(bufio.NewReader(cmd.InOrStdin()))
				if err != nil {
					return fmt.Errorf("reading stdin: %w", err)
				}
				message = string(data)
			}

			cfg, err := loadConfig()
			if err != nil {
				return err
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			p, err := buildPipeline(ctx, cfg)
			if err != nil {
				return err
			}
			defer p.Close()

			if sessionID == "" {
				sessionID = uuid.New().String()
				fmt.Fprintf(cmd.ErrOrStderr(), "session: %s\n", sessionID)
			}
			raw := domain.RawMessage{
				SessionID:  sessionID,
				Text:       message,
				Language:   domain.Language(lang),
				ReceivedAt: time.Now(),
			}
			opts := orchestrator.Options{Mode: domain.Mode(mode), Path: sanitize.PathBatch}

			if stream {
				opts.Path = sanitize.PathStream
				return askStream(ctx, cmd, p.orch, raw, opts)
			}

			res, err := p.orch.Handle(ctx, raw, opts)
			if res != nil {
				fmt.Fprintln(cmd.OutOrStdout(), res.Text)
				printHandoff(cmd.ErrOrStderr(), res)
			}
			return err
		},
	}

	cmd.Flags().StringVar(&sessionID, "session", "", "session id (default: a new session)")
	cmd.Flags().StringVar(&mode, "mode", "conversation", "response mode (conversation, intelligence)")
	cmd.Flags().StringVar(&lang, "lang", "th", "reply language (th, en)")
	cmd.Flags().BoolVar(&stream, "stream", false, "stream the reply as it is generated")

	return cmd
}

func askStream(ctx context.Context, cmd *cobra.Command, o *orchestrator.Orchestrator, raw domain.RawMessage, opts orchestrator.Options) error {
	events, err := o.HandleStream(ctx, raw, opts)
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	var last orchestrator.Event
	for ev := range events {
		if ev.Done {
			last = ev
			continue
		}
		fmt.Fprint(out, ev.Text)
	}
	fmt.Fprintln(out)

	if last.Result != nil {
		printHandoff(cmd.ErrOrStderr(), last.Result)
	}
	if last.Err != nil {
		return last.Err
	}
	return ctx.Err()
}

func printHandoff(w io.Writer, res *orchestrator.Result) {
	if !res.Handoff.ShouldRecommend {
		return
	}
	fmt.Fprintf(w, "\n[handoff: %s, urgency %s]\n", res.Handoff.Reason, res.Handoff.Urgency)
}
