package cli

import (
	"encoding/json"
	"fmt"
	"sort"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/SpaceC00kies/pranara-prototype-sub002/internal/config"
	"github.com/SpaceC00kies/pranara-prototype-sub002/internal/domain"
	"github.com/SpaceC00kies/pranara-prototype-sub002/internal/store"
)

// openStore opens the sqlite database named by the config file.
func openStore(cmd *cobra.Command) (*store.DB, error) {
	cfg, err := config.Load(paths.Config)
	if err != nil {
		return nil, err
	}
	return store.Open(cmd.Context(), paths.DatabasePath(cfg.Store), log)
}

func newRecordsCmd() *cobra.Command {
	var (
		q      store.Query
		asJSON bool
		stats  bool
	)

	cmd := &cobra.Command{
		Use:   "records",
		Short: "List recorded turns (redacted)",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			db, err := openStore(cmd)
			if err != nil {
				return err
			}
			defer db.Close()
			rs := store.NewRecordStore(db)
			out := cmd.OutOrStdout()

			if stats {
				counts, err := rs.CountByOutcome(cmd.Context())
				if err != nil {
					return err
				}
				outcomes := make([]string, 0, len(counts))
				for o := range counts {
					outcomes = append(outcomes, string(o))
				}
				sort.Strings(outcomes)
				for _, o := range outcomes {
					fmt.Fprintf(out, "%-12s %d\n", o, counts[domain.Outcome(o)])
				}
				return nil
			}

			recs, err := rs.List(cmd.Context(), q)
			if err != nil {
				return err
			}
			if asJSON {
				enc := json.NewEncoder(out)
				enc.SetIndent("", "  ")
				return enc.Encode(recs)
			}

			tw := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
			fmt.Fprintln(tw, "TIME\tSESSION\tOUTCOME\tTOPIC\tHANDOFF\tSNIPPET")
			for _, r := range recs {
				handoff := "-"
				if r.HandoffRecommended {
					handoff = string(r.HandoffReason)
				}
				fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\t%s\n",
					r.Timestamp.Local().Format(time.DateTime), r.SessionID, r.Outcome, r.Topic, handoff, r.RedactedSnippet)
			}
			return tw.Flush()
		},
	}

	cmd.Flags().StringVar(&q.SessionID, "session", "", "only this session")
	cmd.Flags().StringVar((*string)(&q.Outcome), "outcome", "", "only this outcome (answered, emergency, rejected, failed, interrupted)")
	cmd.Flags().IntVar(&q.Limit, "limit", 20, "maximum records to show")
	cmd.Flags().BoolVar(&asJSON, "json", false, "print JSON")
	cmd.Flags().BoolVar(&stats, "stats", false, "print counts per outcome instead")

	return cmd
}
