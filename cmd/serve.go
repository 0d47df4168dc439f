package main

import (
	"os/signal"
	"syscall"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/opencurb/curb-cli/internal/server"
	"github.com/opencurb/curb-cli/internal/snapshot"
	"github.com/opencurb/curb-cli/pkg/interpret"
)

var servePort int

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the parking legality query server",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

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
			return eris.New("serve: no snapshot persisted, run ingest first")
		}

		holder := &snapshot.Holder{}
		holder.Publish(snapshot.NewBuilder(segments).Build(runID))
		zap.L().Info("snapshot published",
			zap.String("run_id", runID), zap.Int("segments", len(segments)))

		port := servePort
		if port == 0 {
			port = cfg.Server.Port
		}
		cfg.Server.Port = port
		if err := cfg.Validate("serve"); err != nil {
			return err
		}

		cache := interpret.NewCache()
		entries, err := st.LoadInterpretations(ctx)
		if err != nil {
			return err
		}
		for key, in := range entries {
			cache.Put(key, in)
		}
		if cache.Len() > 0 {
			zap.L().Info("interpretations loaded", zap.Int("entries", cache.Len()))
		}

		srv := server.New(holder, st, cache)
		return srv.ListenAndServe(ctx, port)
	},
}

func init() {
	serveCmd.Flags().IntVar(&servePort, "port", 0, "server port (default from config)")
	rootCmd.AddCommand(serveCmd)
}
