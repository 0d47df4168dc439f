package main

import (
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/opencurb/curb-cli/internal/ingest"
	"github.com/opencurb/curb-cli/internal/join"
	"github.com/opencurb/curb-cli/pkg/interpret"
)

var ingestCmd = &cobra.Command{
	Use:   "ingest",
	Short: "Run one ingestion pass over the municipal datasets",
	Long:  "Loads centerlines, regulations, parcels, and meter schedules, joins every regulation to its side-of-street segments, and persists the finished snapshot under a new run id.",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		cfg.Datasets.Centerlines = flagOr(cmd, "centerlines", cfg.Datasets.Centerlines)
		cfg.Datasets.Regulations = flagOr(cmd, "regulations", cfg.Datasets.Regulations)
		cfg.Datasets.Parcels = flagOr(cmd, "parcels", cfg.Datasets.Parcels)
		cfg.Datasets.Meters = flagOr(cmd, "meters", cfg.Datasets.Meters)
		if err := cfg.Validate("ingest"); err != nil {
			return err
		}

		st, err := openStore(ctx)
		if err != nil {
			return err
		}
		defer st.Close()

		opts := ingest.Options{
			CenterlinesPath: cfg.Datasets.Centerlines,
			RegulationsPath: cfg.Datasets.Regulations,
			ParcelsPath:     cfg.Datasets.Parcels,
			MetersPath:      cfg.Datasets.Meters,
			Thresholds: join.Thresholds{
				ClearMeters:        cfg.Ingest.ClearMeters,
				BoundaryMeters:     cfg.Ingest.BoundaryMeters,
				SearchRadiusMeters: cfg.Ingest.SearchRadiusMeters,
			},
			Concurrency: cfg.Ingest.Concurrency,
			ManifestDir: cfg.Ingest.ManifestDir,
		}

		annotate, _ := cmd.Flags().GetBool("annotate")
		if annotate && cfg.Interpret.Key != "" {
			opts.Annotator = interpret.NewAnthropicAnnotator(cfg.Interpret.Key, cfg.Interpret.Model, cfg.Interpret.RPS)
			opts.Cache = interpret.NewCache()
		}

		res, err := ingest.Run(ctx, opts, st)
		if err != nil {
			return err
		}

		zap.L().Info("run persisted",
			zap.String("run_id", res.RunID),
			zap.Int("segments", res.Segments),
			zap.Int64("attached", res.Attached),
			zap.Int64("unmatched", res.Unmatched),
		)
		cmd.Printf("run %s: %d segments, %d rules attached, %d regulations unmatched\n",
			res.RunID, res.Segments, res.Attached, res.Unmatched)
		return nil
	},
}

// flagOr returns the flag value when set, otherwise the config fallback.
func flagOr(cmd *cobra.Command, name, fallback string) string {
	if v, _ := cmd.Flags().GetString(name); v != "" {
		return v
	}
	return fallback
}

func init() {
	ingestCmd.Flags().String("centerlines", "", "centerline shapefile path (default from config)")
	ingestCmd.Flags().String("regulations", "", "regulation GeoJSON path (default from config)")
	ingestCmd.Flags().String("parcels", "", "parcel shapefile path (default from config)")
	ingestCmd.Flags().String("meters", "", "meter schedule xlsx/csv path (default from config)")
	ingestCmd.Flags().Bool("annotate", false, "warm the interpretation cache via the Anthropic API")
	rootCmd.AddCommand(ingestCmd)
}
