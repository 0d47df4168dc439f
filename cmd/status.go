package main

import (
	"github.com/spf13/cobra"
)

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "List persisted snapshot runs",
	RunE: func(cmd *cobra.Command, args []string) error {
		st, err := openStore(cmd.Context())
		if err != nil {
			return err
		}
		defer st.Close()

		runs, err := st.ListRuns(cmd.Context())
		if err != nil {
			return err
		}
		if len(runs) == 0 {
			cmd.Println("no runs persisted")
			return nil
		}

		for _, r := range runs {
			state := "complete"
			if !r.Complete {
				state = "incomplete"
			}
			cmd.Printf("%s  %s  %6d segments  %s\n",
				r.RunID, r.BuiltAt.Format("2006-01-02 15:04:05"), r.SegmentCount, state)
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(statusCmd)
}
