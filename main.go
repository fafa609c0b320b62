// Package main is the entry point for flowerboard (fbd).
// It selects a ledger backend, wires the board service and web server,
// and runs until interrupted.
package main

import (
	"context"
	"fmt"
	"log"
	"net"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"flowerboard.live/fbd/internal/config"
	"flowerboard.live/fbd/internal/ledger"
	"flowerboard.live/fbd/internal/ledger/sheets"
	"flowerboard.live/fbd/internal/ledger/sqlite"
	"flowerboard.live/fbd/internal/types"
	"flowerboard.live/fbd/internal/web"
)

func main() {
	log.Printf("flowerboard %s (built %s) starting...", types.Version, types.BuildTime)

	// .env is optional; real deployments set the environment directly.
	_ = godotenv.Load()

	cfg, err := config.LoadConfig(os.Getenv("CONFIG_FILE"))
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}
	applyEnvOverrides(cfg)

	store, closeStore, err := openStore(cfg)
	if err != nil {
		log.Fatalf("Failed to initialize %s ledger backend: %v", cfg.Backend, err)
	}
	log.Printf("Ledger backend initialized (%s)", cfg.Backend)

	if err := ensurePortAvailable(cfg.Port); err != nil {
		log.Fatalf("Port %d unavailable: %v", cfg.Port, err)
	}

	server := web.NewServer(store, cfg)
	serverErrors := server.Start()
	go func() {
		if err := <-serverErrors; err != nil {
			log.Fatalf("Web server exited: %v", err)
		}
	}()
	log.Printf("Board available at http://localhost:%d", cfg.Port)

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	<-sigChan

	log.Println("Shutting down...")
	if closeStore != nil {
		if err := closeStore(); err != nil {
			log.Printf("Warning: failed to close ledger store: %v", err)
		}
	}
}

// openStore builds the configured ledger backend. The sqlite backend is
// the default so a bare checkout runs without any credentials.
func openStore(cfg *config.Config) (ledger.Store, func() error, error) {
	switch cfg.Backend {
	case config.BackendSheets:
		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		s, err := sheets.NewStore(ctx, cfg.SpreadsheetID, cfg.CredentialsFile, cfg.SheetName)
		if err != nil {
			return nil, nil, err
		}
		return s, nil, nil
	case config.BackendSQLite:
		s, err := sqlite.NewStore(cfg.DBFile)
		if err != nil {
			return nil, nil, err
		}
		return s, s.Close, nil
	default:
		return nil, nil, fmt.Errorf("unknown ledger backend %q", cfg.Backend)
	}
}

// applyEnvOverrides lets environment variables win over the config file
// for the settings that differ per deployment.
func applyEnvOverrides(cfg *config.Config) {
	if portStr := os.Getenv("PORT"); portStr != "" {
		port, err := strconv.Atoi(portStr)
		if err != nil || port <= 0 || port > 65535 {
			log.Printf("Warning: invalid PORT value %q, using %d", portStr, cfg.Port)
		} else {
			cfg.Port = port
		}
	}
	if id := os.Getenv("SHEET_ID"); id != "" {
		cfg.SpreadsheetID = id
		cfg.Backend = config.BackendSheets
	}
	if creds := os.Getenv("GOOGLE_APPLICATION_CREDENTIALS"); creds != "" {
		cfg.CredentialsFile = creds
	}
	if root := os.Getenv("DOC_ROOT"); root != "" {
		cfg.DocRoot = root
	}
}

func ensurePortAvailable(port int) error {
	addr := fmt.Sprintf(":%d", port)
	listener, err := net.Listen("tcp", addr)
	if err != nil {
		return err
	}
	return listener.Close()
}
