package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/go-extras/cobraflags"
	"github.com/spf13/cobra"

	"shopfront/internal/config"
	"shopfront/internal/http/handlers"
	applog "shopfront/internal/log"
	"shopfront/internal/repos"
	"shopfront/internal/storage"
)

func newServeCommand() *cobra.Command {
	flags := configFlags()
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP API",
		RunE: func(cmd *cobra.Command, _ []string) error {
			return serve(cmd.Context(), flags[configFlag].GetString())
		},
	}
	cobraflags.RegisterMap(cmd, flags)
	return cmd
}

func serve(ctx context.Context, configFile string) error {
	cfg, err := config.Load(configFile)
	if err != nil {
		return err
	}
	logFile, err := applog.Setup(cfg.LogFile)
	if err != nil {
		log.Printf("[warn] could not open log file %s: %v", cfg.LogFile, err)
	} else {
		defer logFile.Close()
	}

	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	db, err := repos.OpenDB(ctx, cfg.DBDriver, cfg.DBDSN, cfg.DBMaxConns)
	if err != nil {
		return err
	}
	defer db.Close()

	files, err := storage.NewFSStorage(cfg.AssetsDir, cfg.AcceptPNG)
	if err != nil {
		return err
	}
	if abs, err := filepath.Abs(cfg.AssetsDir); err == nil {
		log.Printf("[assets] %s", abs)
	}

	app := handlers.NewApp(cfg, handlers.NewDeps(db, files))
	go func() {
		<-ctx.Done()
		if err := app.ShutdownWithTimeout(10 * time.Second); err != nil {
			log.Printf("[warn] shutdown: %v", err)
		}
	}()

	log.Printf("[serve] listening on :%s", cfg.Port)
	return app.Listen(":" + cfg.Port)
}
