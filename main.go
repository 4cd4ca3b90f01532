package main

import (
	"context"
	"net/http"
	"os"
	"time"
)

func main() {
	cfg, err := LoadConfig()
	if err != nil {
		newLogger(AppConfig{LogLevel: "info"}).WithError(err).Fatal("load config")
	}
	log := newLogger(cfg.App)

	ctx := context.Background()
	db, err := openDB(cfg.Database.Path)
	if err != nil {
		log.WithError(err).Fatal("open database")
	}
	defer db.Close()

	if err := initSchema(ctx, db); err != nil {
		log.WithError(err).Fatal("init schema")
	}

	if len(os.Args) > 1 && os.Args[1] == "tool" {
		code := runTool(ctx, db, os.Args[2:], os.Stdout, os.Stderr)
		db.Close()
		os.Exit(code)
	}

	if cfg.Session.SecretKey == devSecretKey {
		log.Warn("using the built-in development session key; set CHAT_SECRET_KEY")
	}

	app, err := newApp(cfg, log, db)
	if err != nil {
		log.WithError(err).Fatal("load templates")
	}

	srv := &http.Server{
		Addr:         cfg.App.Addr,
		Handler:      app.router(),
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 10 * time.Second,
	}
	log.WithField("addr", cfg.App.Addr).Info("listening")
	if err := srv.ListenAndServe(); err != nil {
		log.WithError(err).Fatal("server stopped")
	}
}
