package main

import (
	"context"
	"net/url"
	"path"
	"path/filepath"
	"strings"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/opencurb/curb-cli/internal/fetcher"
)

var fetchCmd = &cobra.Command{
	Use:   "fetch",
	Short: "Download configured dataset exports",
	Long:  "Downloads every configured dataset URL into the data directory, extracting zip archives in place. Shapefile exports usually arrive zipped.",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		if err := cfg.Validate("fetch"); err != nil {
			return err
		}
		f := fetcher.New(fetcher.Options{})

		sources := map[string]string{
			"centerlines": cfg.Datasets.CenterlinesURL,
			"regulations": cfg.Datasets.RegulationsURL,
			"parcels":     cfg.Datasets.ParcelsURL,
			"meters":      cfg.Datasets.MetersURL,
		}

		fetched := 0
		for name, src := range sources {
			if src == "" {
				continue
			}
			if err := fetchOne(ctx, f, name, src); err != nil {
				return err
			}
			fetched++
		}
		if fetched == 0 {
			return eris.New("fetch: no dataset URLs configured (set datasets.*_url)")
		}
		cmd.Printf("fetched %d dataset(s) into %s\n", fetched, cfg.Datasets.DataDir)
		return nil
	},
}

func fetchOne(ctx context.Context, f *fetcher.Fetcher, name, src string) error {
	u, err := url.Parse(src)
	if err != nil {
		return eris.Wrapf(err, "fetch: parse %s url", name)
	}
	base := path.Base(u.Path)
	if base == "." || base == "/" {
		base = name
	}
	dest := filepath.Join(cfg.Datasets.DataDir, base)

	if err := f.Download(ctx, src, dest); err != nil {
		return err
	}

	if strings.EqualFold(filepath.Ext(dest), ".zip") {
		paths, err := fetcher.ExtractZIP(dest, filepath.Join(cfg.Datasets.DataDir, name))
		if err != nil {
			return err
		}
		zap.L().Info("fetch: extracted archive",
			zap.String("dataset", name), zap.Int("files", len(paths)))
		if shp, ok := fetcher.FindShapefile(paths); ok {
			zap.L().Info("fetch: shapefile ready",
				zap.String("dataset", name), zap.String("path", shp))
		}
	}
	return nil
}

func init() {
	rootCmd.AddCommand(fetchCmd)
}
