package main

import (
	"context"
	"fmt"
	"io"

	"github.com/go-extras/cobraflags"
	"github.com/spf13/cobra"

	"shopfront/internal/config"
	"shopfront/internal/repos"
	"shopfront/internal/services"
	"shopfront/internal/storage"
)

func newAssetsCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "assets",
		Short: "Maintain the asset directory",
	}
	cmd.AddCommand(newSweepCommand())
	return cmd
}

func newSweepCommand() *cobra.Command {
	flags := configFlags()
	var dryRun bool
	cmd := &cobra.Command{
		Use:   "sweep",
		Short: "Delete asset files that no asset row references",
		Long: `Delete files under ASSETS_DIR that no asset row references.

Such files are left behind when the process dies between writing an upload
and recording it. Run while uploads are quiet: an upload in flight looks
like an orphan until its row is written.`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return sweep(cmd.Context(), cmd.OutOrStdout(), flags[configFlag].GetString(), dryRun)
		},
	}
	cobraflags.RegisterMap(cmd, flags)
	cmd.Flags().BoolVar(&dryRun, "dry-run", false, "List orphaned files without deleting them")
	return cmd
}

func sweep(ctx context.Context, out io.Writer, configFile string, dryRun bool) error {
	cfg, err := config.Load(configFile)
	if err != nil {
		return err
	}
	db, err := repos.OpenDB(ctx, cfg.DBDriver, cfg.DBDSN, cfg.DBMaxConns)
	if err != nil {
		return err
	}
	defer db.Close()
	files, err := storage.NewFSStorage(cfg.AssetsDir, cfg.AcceptPNG)
	if err != nil {
		return err
	}

	svc := services.NewProductService(repos.NewProductStore(db), files)
	orphans, err := svc.SweepOrphans(ctx, dryRun)
	verb := "removed"
	if dryRun {
		verb = "orphan"
	}
	for _, name := range orphans {
		fmt.Fprintf(out, "%s %s\n", verb, name)
	}
	fmt.Fprintf(out, "%d orphaned file(s)\n", len(orphans))
	return err
}
