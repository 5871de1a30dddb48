package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/SpaceC00kies/pranara-prototype-sub002/internal/domain"
	"github.com/SpaceC00kies/pranara-prototype-sub002/internal/store"
)

func newProfileCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "profile",
		Short: "Manage the demographic hints stored for a session",
	}

	cmd.AddCommand(newProfileGetCmd())
	cmd.AddCommand(newProfileSetCmd())
	cmd.AddCommand(newProfileDeleteCmd())
	return cmd
}

func newProfileGetCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "get <session>",
		Short: "Show a session's profile",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			db, err := openStore(cmd)
			if err != nil {
				return err
			}
			defer db.Close()

			p, err := store.NewProfileStore(db).GetProfile(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			if p.Empty() {
				return fmt.Errorf("no profile for session %q", args[0])
			}
			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "age:    %s\n", p.AgeBracket)
			fmt.Fprintf(out, "gender: %s\n", p.Gender)
			fmt.Fprintf(out, "region: %s\n", p.Region)
			return nil
		},
	}
}

func newProfileSetCmd() *cobra.Command {
	var p domain.Profile

	cmd := &cobra.Command{
		Use:   "set <session>",
		Short: "Store a session's profile, replacing any previous one",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if p.Empty() {
				return fmt.Errorf("set at least one of --age, --gender, --region")
			}
			db, err := openStore(cmd)
			if err != nil {
				return err
			}
			defer db.Close()

			if err := store.NewProfileStore(db).PutProfile(cmd.Context(), args[0], p); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Saved profile for %s\n", args[0])
			return nil
		},
	}

	cmd.Flags().StringVar(&p.AgeBracket, "age", "", "age bracket, e.g. 70-79")
	cmd.Flags().StringVar(&p.Gender, "gender", "", "gender")
	cmd.Flags().StringVar(&p.Region, "region", "", "region or province")
	return cmd
}

func newProfileDeleteCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "delete <session>",
		Short: "Delete a session's profile",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			db, err := openStore(cmd)
			if err != nil {
				return err
			}
			defer db.Close()
			return store.NewProfileStore(db).DeleteProfile(cmd.Context(), args[0])
		},
	}
}
