// @title                       TeamHub API
// @version                     1.0
// @description                 Projects, tasks, discussions and notifications for small teams.
// @BasePath                    /api
// @securityDefinitions.apikey  BearerAuth
// @in                          header
// @name                        Authorization
package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os"

	gfshutdown "github.com/gelmium/graceful-shutdown"

	"teamhub/internal/app"
	"teamhub/internal/config"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("[config][err] %v", err)
	}

	ctx := context.Background()
	a, err := app.New(ctx, cfg)
	if err != nil {
		log.Fatalf("[app][err] %v", err)
	}

	srv := &http.Server{
		Addr:    fmt.Sprintf(":%d", cfg.Server.Port),
		Handler: a.Router,
	}
	go func() {
		log.Printf("Сервер запущен на %s (env=%s)", srv.Addr, cfg.App.Env)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatalf("[http][err] %v", err)
		}
	}()

	wait := gfshutdown.GracefulShutdown(ctx, cfg.Server.ShutdownTimeout, map[string]gfshutdown.Operation{
		// рассылки ждём только после остановки сервера: новые запросы их уже не добавят
		"http": func(ctx context.Context) error {
			if err := srv.Shutdown(ctx); err != nil {
				return err
			}
			return a.Dispatcher.Drain(ctx)
		},
		"reaper": func(ctx context.Context) error {
			return a.Reaper.Stop(ctx)
		},
	})

	code := <-wait
	if err := a.Close(); err != nil {
		log.Printf("[shutdown][err] %v", err)
	}
	log.Printf("exited with code %d", code)
	os.Exit(code)
}
