package cli

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/fieldwork-io/fieldwork/internal/draft"
)

// NewSnapshotsCommand lists the autosaved draft snapshots of a session.
func NewSnapshotsCommand(opts *RootOptions) *cobra.Command {
	var dbPath, sessionToken string

	cmd := &cobra.Command{
		Use:   "snapshots",
		Short: "List draft snapshots saved for a session",
		RunE: func(cmd *cobra.Command, args []string) error {
			store, err := draft.Open(dbPath)
			if err != nil {
				return err
			}
			defer store.Close()

			snapshots, err := store.List(cmd.Context(), sessionToken)
			if err != nil {
				return err
			}

			if opts.Format == "json" {
				payload := make([]map[string]any, 0, len(snapshots))
				for _, snap := range snapshots {
					payload = append(payload, map[string]any{
						"id":         snap.ID,
						"seq":        snap.Seq,
						"instrument": snap.InstrumentID,
						"version":    snap.InstrumentV,
						"savedAt":    snap.SavedAt,
					})
				}
				data, err := json.MarshalIndent(payload, "", "  ")
				if err != nil {
					return err
				}
				fmt.Fprintln(cmd.OutOrStdout(), string(data))
				return nil
			}

			if len(snapshots) == 0 {
				fmt.Fprintln(cmd.OutOrStdout(), "no snapshots")
				return nil
			}
			for _, snap := range snapshots {
				fmt.Fprintf(cmd.OutOrStdout(), "%s  seq=%d  %s v%s  %s\n",
					snap.ID, snap.Seq, snap.InstrumentID, snap.InstrumentV, snap.SavedAt)
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&dbPath, "db", "", "sqlite database path (required)")
	cmd.Flags().StringVar(&sessionToken, "session", "", "session token (required)")
	cmd.MarkFlagRequired("db")
	cmd.MarkFlagRequired("session")
	return cmd
}
