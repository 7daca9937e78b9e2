package main

import (
	"context"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/i474232898/weather-sync/internal/app"
	"github.com/i474232898/weather-sync/internal/config"
	"github.com/i474232898/weather-sync/internal/slave"
)

func main() {
	if err := newRootCommand().ExecuteContext(context.Background()); err != nil {
		os.Exit(1)
	}
}

func newRootCommand() *cobra.Command {
	var (
		codeFile string
		storeURL string
		output   string
	)

	root := &cobra.Command{
		Use:   "weather-slave",
		Short: "Pull this object's weather record from the master store",
	}

	sync := &cobra.Command{
		Use:   "sync [site-id]",
		Short: "Fetch one store object and save it locally",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load()
			if err != nil {
				return err
			}
			if cmd.Flags().Changed("store-url") {
				cfg.Slave.StoreURL = storeURL
			}
			if cmd.Flags().Changed("code-file") {
				cfg.Slave.ObjectCodeFile = codeFile
			}
			if cmd.Flags().Changed("output") {
				cfg.Slave.TargetPath = output
			}
			if err := cfg.ValidateSlave(); err != nil {
				return err
			}

			rt, err := app.New(cfg, "slave")
			if err != nil {
				return err
			}
			defer rt.Log.Sync()

			siteID := ""
			if len(args) == 1 {
				siteID = args[0]
			} else if siteID, err = slave.ReadSiteID(cfg.Slave.ObjectCodeFile); err != nil {
				rt.Log.Error("cannot determine site", zap.Error(err))
				return err
			}
			rt.Log.Info("slave sync started", zap.String("site_id", siteID))

			res, err := slave.NewSyncer(rt).Sync(cmd.Context(), siteID)
			if err != nil {
				rt.Log.Error("slave sync failed", zap.String("site_id", siteID), zap.Error(err))
				return err
			}

			rt.Log.Info("slave sync completed", zap.String("site_id", siteID), zap.String("path", res.Path))
			cmd.Printf("%s saved to %s\n", siteID, res.Path)
			return nil
		},
	}

	sync.Flags().StringVar(&codeFile, "code-file", "", "file holding this object's site id (overrides OBJECT_CODE_FILE)")
	sync.Flags().StringVar(&storeURL, "store-url", "", "base URL of the master store (overrides MASTER_STORE_URL)")
	sync.Flags().StringVarP(&output, "output", "o", "", "local output path (overrides OBJECT_DATA_FILE)")

	root.AddCommand(sync)
	return root
}
