package main

import (
	"encoding/json"
	"time"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"

	"github.com/opencurb/curb-cli/internal/rules"
	"github.com/opencurb/curb-cli/internal/snapshot"
	"github.com/opencurb/curb-cli/pkg/geocode"
)

var checkCmd = &cobra.Command{
	Use:   "check",
	Short: "Check parking legality at a coordinate",
	Long:  "Loads the latest persisted snapshot and evaluates every segment near the given coordinate for the requested parking interval.",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		lng, _ := cmd.Flags().GetFloat64("lng")
		lat, _ := cmd.Flags().GetFloat64("lat")
		radius, _ := cmd.Flags().GetFloat64("radius")
		address, _ := cmd.Flags().GetString("address")
		if address != "" {
			res, err := geocode.NewClient(2).Geocode(ctx, address)
			if err != nil {
				return err
			}
			if res == nil {
				return eris.Errorf("check: no geocoder match for %q", address)
			}
			lng, lat = res.Longitude, res.Latitude
			cmd.Printf("geocoded %q to (%f, %f)\n", res.MatchedAddress, lng, lat)
		}
		if lng == 0 && lat == 0 {
			return eris.New("check: provide --address or --lng and --lat")
		}
		duration, _ := cmd.Flags().GetInt("duration")
		if duration <= 0 {
			return eris.New("check: --duration must be positive minutes")
		}

		when := time.Now()
		if ts, _ := cmd.Flags().GetString("time"); ts != "" {
			var err error
			when, err = time.Parse(time.RFC3339, ts)
			if err != nil {
				return eris.Wrap(err, "check: parse --time")
			}
		}

		st, err := openStore(ctx)
		if err != nil {
			return err
		}
		defer st.Close()

		segments, runID, err := st.LoadLatest(ctx)
		if err != nil {
			return err
		}
		if runID == "" {
			return eris.New("check: no snapshot persisted, run ingest first")
		}

		snap := snapshot.NewBuilder(segments).Build(runID)
		near := snap.Near(lng, lat, radius)
		if len(near) == 0 {
			return eris.Errorf("check: no street segment within %.0fm of (%f, %f)", radius, lng, lat)
		}

		type result struct {
			CenterlineID string `json:"centerline_id"`
			Side         string `json:"side"`
			StreetName   string `json:"street_name"`
			Status       string `json:"status"`
			Explanation  string `json:"explanation"`
			CostEstimate any    `json:"cost_estimate,omitempty"`
		}
		out := make([]result, 0, len(near))
		for _, seg := range near {
			r := rules.Evaluate(seg, when, duration)
			out = append(out, result{
				CenterlineID: seg.CenterlineID,
				Side:         string(seg.Side),
				StreetName:   seg.StreetName,
				Status:       string(r.Status),
				Explanation:  r.Explanation,
				CostEstimate: r.CostEstimate,
			})
		}

		enc := json.NewEncoder(cmd.OutOrStdout())
		enc.SetIndent("", "  ")
		return enc.Encode(out)
	},
}

func init() {
	checkCmd.Flags().Float64("lng", 0, "longitude")
	checkCmd.Flags().Float64("lat", 0, "latitude")
	checkCmd.Flags().String("address", "", "one-line street address (geocoded instead of lng/lat)")
	checkCmd.Flags().Float64("radius", 50, "search radius in meters")
	checkCmd.Flags().Int("duration", 60, "intended parking duration in minutes")
	checkCmd.Flags().String("time", "", "check time, RFC3339 (default now)")
	rootCmd.AddCommand(checkCmd)
}
