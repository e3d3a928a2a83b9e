package main

import (
	"context"
	"flag"
	"log"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	_ "github.com/lib/pq"

	"github.com/hsagiv/pizza-orders-assignment/internal/api"
	"github.com/hsagiv/pizza-orders-assignment/internal/config"
	"github.com/hsagiv/pizza-orders-assignment/internal/database"
	"github.com/hsagiv/pizza-orders-assignment/internal/orders"
	"github.com/hsagiv/pizza-orders-assignment/internal/server"
	"github.com/hsagiv/pizza-orders-assignment/internal/stats"
)

const defaultSigningKey = "wT0phFUusHZIrDhL9bUKPUhwaxKhpi/SaI6PtgB+MgU="

type stringSliceFlag []string

func (s *stringSliceFlag) String() string {
	return strings.Join(*s, ",")
}

func (s *stringSliceFlag) Set(value string) error {
	*s = append(*s, strings.Split(value, ",")...)
	return nil
}

var (
	addr           string
	dsn            string
	signingKey     string
	userToken      string
	adminToken     string
	allowedOrigins stringSliceFlag
)

func main() {
	flag.StringVar(&addr, "addr", "localhost:8000", "server address")
	flag.StringVar(&dsn, "dsn", "host=localhost user=postgres password=postgres dbname=postgres sslmode=disable", "database connection string")
	flag.StringVar(&signingKey, "signing-key", defaultSigningKey, "base64 encoded signing key for session tokens")
	flag.StringVar(&userToken, "user-token", "pizza-user", "sentinel token granting the user role")
	flag.StringVar(&adminToken, "admin-token", "pizza-admin", "sentinel token granting the admin role")
	flag.Var(&allowedOrigins, "allowed-origins", "comma-separated list of allowed origins for CORS")
	flag.Parse()

	logger := log.New(os.Stderr, "[pizza-tracker] ", log.LstdFlags)

	cfg, err := config.NewConfig(addr, dsn, signingKey, userToken, adminToken, allowedOrigins)
	if err != nil {
		logger.Fatal("config:", err)
	}

	repo, err := database.NewPgOrderRepository(cfg.DatabaseDSN)
	if err != nil {
		logger.Fatal("db open:", err)
	}
	defer func() {
		if err := repo.Close(); err != nil {
			logger.Fatal("db close:", err)
		}
	}()

	if err := repo.Migrate(); err != nil {
		logger.Fatal("migrate:", err)
	}

	mux := http.NewServeMux()

	statsUpdater := stats.NewStatsUpdater(mux)

	svc := orders.NewService(logger, repo)

	registry := server.NewRoomRegistry()
	broadcaster := server.NewBroadcaster(logger, registry, statsUpdater)

	trackerServer, err := server.NewTrackerServer(logger, svc, registry, broadcaster, statsUpdater)
	if err != nil {
		logger.Fatal("new tracker server:", err)
	}

	creds, err := server.NewCredentials(cfg.UserToken, cfg.AdminToken, cfg.SigningKey)
	if err != nil {
		logger.Fatal("credentials:", err)
	}

	app := api.NewTrackerApp(mux, logger, trackerServer, svc, creds, cfg)

	statsUpdater.Run()
	defer statsUpdater.Stop()

	go broadcaster.Run()
	go trackerServer.Run()

	errCh := make(chan error, 1)
	go func() {
		errCh <- app.Start()
	}()

	sigs := make(chan os.Signal, 1)
	signal.Notify(sigs, syscall.SIGINT, syscall.SIGTERM)

	select {
	case sig := <-sigs:
		logger.Printf("received signal: %s\n", sig)
	case err := <-errCh:
		logger.Println("server:", err)
	}

	shutDownCtx, cancel := context.WithTimeout(
		context.Background(),
		10*time.Second,
	)
	defer cancel()

	if err := app.Shutdown(shutDownCtx); err != nil {
		logger.Fatalln("HTTP server shutdown:", err)
	}

	logger.Println("shutting down tracker server...")
	if err := trackerServer.Shutdown(shutDownCtx); err != nil {
		logger.Fatalln("tracker server shutdown:", err)
	}

	broadcaster.Shutdown()

	logger.Println("shutdown complete")
}
