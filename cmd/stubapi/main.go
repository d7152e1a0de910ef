package main

import (
	"log/slog"
	"net/http"
	"os"

	"salon-portal/internal/logger"
	"salon-portal/internal/stubapi"
)

func main() {
	logHandler := logger.NewPrettyHandler(os.Stdout, &slog.HandlerOptions{
		Level: slog.LevelInfo,
	})
	slog.SetDefault(slog.New(logHandler))

	port := os.Getenv("STUB_PORT")
	if port == "" {
		port = "9000"
	}
	secret := os.Getenv("STUB_JWT_SECRET")
	if secret == "" {
		secret = "dev-only-secret"
	}

	server := stubapi.New(secret)
	slog.Info("stub booking API listening", "addr", ":"+port)
	if err := http.ListenAndServe(":"+port, server.Handler()); err != nil {
		slog.Error("stub booking API failed", "error", err)
		os.Exit(1)
	}
}
