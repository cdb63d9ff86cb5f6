package cli

import (
	"fmt"

	"github.com/ashureev/yieldchat/internal/store"
	"github.com/spf13/cobra"
)

func newHistoryCommand(e *env) *cobra.Command {
	var (
		userID string
		limit  int
	)
	cmd := &cobra.Command{
		Use:   "history",
		Short: "List stored predictions of a user",
		RunE: func(cmd *cobra.Command, args []string) error {
			if userID == "" {
				return fmt.Errorf("--user is required")
			}
			repo, err := store.NewSQLite(e.cfg.DBPath)
			if err != nil {
				return err
			}
			defer func() { _ = repo.Close() }()

			records, err := repo.ListPredictions(cmd.Context(), userID, limit)
			if err != nil {
				return err
			}
			if e.outputText {
				for _, r := range records {
					fmt.Fprintf(e.out, "%s  %s/%s  %.2f tons/hectare\n",
						r.CreatedAt.Format("2006-01-02 15:04"), r.CropType, r.SoilType, r.PredictedYield)
				}
				return nil
			}
			return e.outputResult(records)
		},
	}
	cmd.Flags().StringVar(&userID, "user", "", "user id (the yc_anon_id cookie, or \"cli\")")
	cmd.Flags().IntVar(&limit, "limit", 20, "maximum number of records")
	return cmd
}
