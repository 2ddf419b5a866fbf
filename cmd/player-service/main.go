// cmd/player-service/main.go
package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"amsplayer/internal/host"
	"amsplayer/pkg/config"
	"amsplayer/pkg/logger"
)

func main() {
	cfg := config.Load()
	log := logger.New(cfg.Env)
	defer func() { _ = log.Sync() }()

	app, err := host.Build(context.Background(), cfg, log)
	if err != nil {
		log.Fatalw("wiring", "err", err)
	}
	defer app.Close()

	r, err := host.NewRouter(cfg, log, app.Block)
	if err != nil {
		log.Fatalw("router", "err", err)
	}

	srv := &http.Server{Addr: cfg.HTTPAddr, Handler: r, ReadHeaderTimeout: 10 * time.Second}
	go func() {
		log.Infow("player-service listening", "addr", cfg.HTTPAddr, "dev", cfg.Dev())
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalw("ListenAndServe", "err", err)
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGTERM)
	<-stop
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	_ = srv.Shutdown(ctx)
	fmt.Println("player-service stopped")
}
