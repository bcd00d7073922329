// Command gdprscan starts the scanner API server.
// Usage: go run . [-addr :8080] [-db scans.db] [-config config.yaml]
package main

import (
	"flag"
	"log"

	"github.com/gdprscanner/gdprscan/internal/config"
	"github.com/gdprscanner/gdprscan/internal/logging"
	"github.com/gdprscanner/gdprscan/internal/server"
)

func main() {
	var (
		addr       = flag.String("addr", "", "listen address (overrides config)")
		dbPath     = flag.String("db", "", "SQLite database path (overrides config)")
		configPath = flag.String("config", "", "path to YAML config file")
	)
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatalf("loading config: %v", err)
	}
	if *addr != "" {
		cfg.Addr = *addr
	}
	if *dbPath != "" {
		cfg.DatabasePath = *dbPath
	}

	logger := logging.NewStdoutLogger("gdprscan")

	srv, err := server.NewServer(server.Config{AppConfig: cfg, Logger: logger})
	if err != nil {
		log.Fatalf("creating server: %v", err)
	}
	defer srv.Close()

	logger.Info("listening", logging.Field{Key: "addr", Value: cfg.Addr})
	if err := srv.HTTPServer().ListenAndServe(); err != nil {
		log.Fatalf("server error: %v", err)
	}
}
