package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"

	"colorfulez-server/api"
	"colorfulez-server/assets"
	"colorfulez-server/config"
	"colorfulez-server/facility"
	"colorfulez-server/network_state"
	"colorfulez-server/server"
	"colorfulez-server/stripes"
)

func main() {
	cfg := config.Load()
	if err := cfg.Validate(); err != nil {
		log.Fatalf("config error: %v", err)
	}

	loader, err := assets.NewLoader(cfg.AssetsPath)
	if err != nil {
		log.Fatalf("assets error: %v", err)
	}

	var rooms *facility.Facility
	if cfg.LayoutPath != "" {
		rooms, err = facility.LoadLayout(cfg.LayoutPath)
	} else {
		rooms, err = facility.Generate(cfg.LayoutRows, cfg.LayoutCols, cfg.LayoutSeed)
	}
	if err != nil {
		log.Fatalf("facility error: %v", err)
	}
	log.Printf("Facility ready with %d rooms", len(rooms.Rooms()))

	admin, err := api.NewAdmin(cfg)
	if err != nil {
		log.Fatalf("admin account error: %v", err)
	}

	state := network_state.NewNetworkState()
	ws := server.NewServer(cfg.VerboseOutput)
	handler := stripes.NewHandler(cfg, state, rooms, loader, ws)
	ws.OnLeave(handler.PlayerLeft)

	if _, err := handler.RoundStart(); err != nil {
		log.Fatalf("round start error: %v", err)
	}

	r := chi.NewRouter()
	r.Mount("/api", api.NewRouter(cfg, admin, handler, ws))
	r.HandleFunc("/ws", ws.HandleConnections)

	srv := &http.Server{
		Addr:         cfg.Addr,
		Handler:      r,
		ReadTimeout:  cfg.ReadTimeout,
		WriteTimeout: cfg.WriteTimeout,
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	go func() {
		log.Printf("Server started on %s", cfg.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal("ListenAndServe:", err)
		}
	}()

	<-ctx.Done()
	log.Println("Shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Printf("HTTP shutdown error: %v", err)
	}
	handler.RoundEnd()
	ws.Shutdown()
}
