// cmd/devserver/main.go
package main

import (
	"context"
	"database/sql"
	"log/slog"
	"net/http"
	"os"

	"bookhub/internal/devserver"
	"bookhub/internal/telemetry"

	_ "github.com/lib/pq"
)

func main() {
	logger := slog.New(slog.NewTextHandler(os.Stdout, nil))

	shutdown, err := telemetry.Setup(context.Background(), "bookhub-devserver")
	if err != nil {
		logger.Error("telemetry setup failed", "error", err)
		os.Exit(1)
	}
	defer shutdown(context.Background())

	var store devserver.Store
	if dsn := os.Getenv("DATABASE_URL"); dsn != "" {
		db, err := sql.Open("postgres", dsn)
		if err != nil {
			logger.Error("failed to open database", "error", err)
			os.Exit(1)
		}
		defer db.Close()

		pg := devserver.NewPgStore(db)
		if err := pg.Migrate(context.Background()); err != nil {
			logger.Error("migration failed", "error", err)
			os.Exit(1)
		}
		store = pg
		logger.Info("using postgres store")
	} else {
		mem := devserver.NewMemStore()
		mem.Seed()
		store = mem
		logger.Info("using in-memory store with seed catalog")
	}

	server := devserver.NewServer(store, devserver.NewUsers(), logger)

	port := getEnv("PORT", "8080")
	logger.Info("devserver listening", "port", port)
	if err := http.ListenAndServe(":"+port, server.Handler()); err != nil {
		logger.Error("server stopped", "error", err)
		os.Exit(1)
	}
}

func getEnv(key, defaultValue string) string {
	if value, exists := os.LookupEnv(key); exists {
		return value
	}
	return defaultValue
}
