package cmd

import (
	"context"
	"time"

	"github.com/spf13/cobra"

	"github.com/nguyentranbao-ct/livechat/internal/app"
	"github.com/nguyentranbao-ct/livechat/internal/repo/mongodb"
	"github.com/nguyentranbao-ct/livechat/pkg/logger/log"
)

var rootCmd = &cobra.Command{
	Use:           "livechat",
	Short:         "Live chat backend: REST API, socket.io gateway and event relay",
	SilenceUsage:  true,
	SilenceErrors: true,
	Run:           serve,
}

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the HTTP and socket.io server",
	Run:   serve,
}

var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Ensure indexes and backfill data, then exit",
	RunE: func(cmd *cobra.Command, args []string) error {
		var migrations mongodb.MigrationRepository
		a := app.Invoke(func(m mongodb.MigrationRepository) { migrations = m })
		if err := a.Err(); err != nil {
			return err
		}

		ctx, cancel := context.WithTimeout(cmd.Context(), 5*time.Minute)
		defer cancel()
		if err := a.Start(ctx); err != nil {
			return err
		}
		defer func() { _ = a.Stop(context.Background()) }()
		return migrations.Run(ctx)
	},
}

func serve(*cobra.Command, []string) {
	app.Invoke(app.Serve...).Run()
}

func init() {
	rootCmd.AddCommand(serveCmd, migrateCmd)
}

func Execute() {
	if err := rootCmd.Execute(); err != nil {
		log.Fatal(err)
	}
}
