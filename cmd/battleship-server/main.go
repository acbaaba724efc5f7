// Command battleship-server pairs players into two-player Battleship rooms
// and relays their turns over WebSockets.
package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/harryalloyd/battleship/internal/admin"
	"github.com/harryalloyd/battleship/internal/analytics"
	"github.com/harryalloyd/battleship/internal/config"
	"github.com/harryalloyd/battleship/internal/hub"
	"github.com/harryalloyd/battleship/internal/lobby"
	"github.com/harryalloyd/battleship/internal/server"
	"github.com/harryalloyd/battleship/internal/store"
	"github.com/joho/godotenv"
)

func main() {
	// .env is optional
	if err := godotenv.Load(); err != nil {
		if !os.IsNotExist(err) {
			log.Printf("Warning: Error loading .env file: %v", err)
		}
	} else {
		log.Println("Loaded environment variables from .env file")
	}

	cfg := config.Load()
	if cfg.Debug {
		log.SetFlags(log.LstdFlags | log.Lshortfile)
	} else {
		gin.SetMode(gin.ReleaseMode)
	}

	l := lobby.NewMatchmaker()
	h := hub.NewHub(cfg.SendBuffer)
	app := server.NewApp(l, h)

	var db *store.DB
	if cfg.PostgresDSN != "" {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		var err error
		db, err = store.OpenDB(ctx, cfg.PostgresDSN)
		if err == nil {
			err = db.AutoMigrate(ctx)
		}
		cancel()
		if err != nil {
			log.Printf("match history disabled: %v", err)
			db.Close()
			db = nil
		} else {
			app.Store = db
			log.Println("match history enabled")
		}
	}

	events := analytics.NewAnalytics(cfg.KafkaBrokers, cfg.KafkaTopic)
	if events != nil {
		app.Analytics = events
		log.Printf("analytics enabled: brokers=%v topic=%s", cfg.KafkaBrokers, cfg.KafkaTopic)
	}

	srv := &server.Server{
		App:       app,
		Hub:       h,
		Admin:     admin.New(l),
		StaticDir: cfg.StaticDir,
	}
	httpServer := &http.Server{
		Addr:              cfg.Addr(),
		Handler:           srv.Routes(),
		ReadHeaderTimeout: 15 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGTERM)

	go func() {
		log.Printf("battleship listening on %s", httpServer.Addr)
		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("HTTP server failed: %v", err)
		}
	}()

	<-stop
	log.Println("shutting down...")

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := httpServer.Shutdown(ctx); err != nil {
		log.Printf("HTTP shutdown err: %v", err)
	}
	if err := events.Close(); err != nil {
		log.Printf("kafka close err: %v", err)
	}
	db.Close()
	log.Println("bye")
}
