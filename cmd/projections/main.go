// Command projections runs the projection subsystem as a standalone process.
//
// Configuration is read from ./projections.toml (or the file given with -config) and from
// PROJECTIONS_* environment variables, e.g.:
//
//	PROJECTIONS_RUN_MODE=all PROJECTIONS_WORKER_COUNT=4 \
//	PROJECTIONS_DATABASE_DRIVER=postgres PROJECTIONS_DATABASE_DSN=postgres://localhost/app \
//	go run github.com/getpup/pupsourcing-projections/cmd/projections
//
// Signals:
//
//	SIGINT, SIGTERM  shut down
//	SIGHUP           restart the subsystem
//	SIGUSR1          toggle the node role between leader and follower
package main

import (
	"context"
	"database/sql"
	"flag"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	_ "github.com/go-sql-driver/mysql"
	_ "github.com/lib/pq"
	_ "github.com/mattn/go-sqlite3"

	rootpkg "github.com/getpup/pupsourcing-projections"
	"github.com/getpup/pupsourcing-projections/bus"
	"github.com/getpup/pupsourcing-projections/internal/config"
	"github.com/getpup/pupsourcing-projections/internal/logging"
	"github.com/getpup/pupsourcing-projections/metrics"
	"github.com/getpup/pupsourcing-projections/pkg/projections"
	"github.com/getpup/pupsourcing-projections/store/sqlstore"
)

func main() {
	configPath := flag.String("config", "", "Path to a TOML or YAML config file")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	runMode, err := cfg.ParsedRunMode()
	if err != nil {
		log.Fatalf("Invalid run_mode: %v", err)
	}
	role, err := cfg.ParsedRole()
	if err != nil {
		log.Fatalf("Invalid node.role: %v", err)
	}

	logger := logging.New(log.New(os.Stderr, "", log.LstdFlags), cfg.Log.Debug)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	opts := []projections.Option{
		projections.WithRunMode(runMode),
		projections.WithWorkerCount(cfg.WorkerCount),
		projections.WithStandardProjections(cfg.StartStandardProjections),
		projections.WithTickInterval(cfg.TickInterval),
		projections.WithLogger(logger),
		projections.WithMetricsEnabled(cfg.Metrics.Enabled),
	}

	if cfg.Database.Driver != "" {
		dialect, err := sqlstore.ParseDialect(cfg.Database.Driver)
		if err != nil {
			log.Fatalf("Invalid database.driver: %v", err)
		}
		db, err := sql.Open(dialect.DriverName(), cfg.Database.DSN)
		if err != nil {
			log.Fatalf("Failed to connect to database: %v", err)
		}
		defer db.Close()

		journal, err := sqlstore.New(db, dialect)
		if err != nil {
			log.Fatalf("Failed to create transition store: %v", err)
		}
		if err := journal.Migrate(ctx); err != nil {
			log.Fatalf("Failed to run migrations: %v", err)
		}
		opts = append(opts, projections.WithTransitionStore(journal))
	}

	h, err := projections.New(opts...)
	if err != nil {
		log.Fatalf("Failed to create projection subsystem: %v", err)
	}

	h.Subscribe(rootpkg.TypeSubsystemInitialized, bus.HandlerFunc(func(msg rootpkg.Message) {
		log.Printf("Subsystem %s initialized", msg.(rootpkg.SubsystemInitialized).Name)
	}))

	var server *metrics.Server
	if cfg.Metrics.Enabled {
		server = metrics.NewServer(cfg.Metrics.Addr)
		server.Start()
		log.Printf("Serving metrics on %s", cfg.Metrics.Addr)
	}

	h.SystemReady()
	if role != rootpkg.NodeRoleUnknown {
		h.SetRole(role)
	}

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM, syscall.SIGHUP, syscall.SIGUSR1)

	go func() {
		for sig := range sigChan {
			switch sig {
			case syscall.SIGHUP:
				go func() {
					select {
					case reply := <-h.Restart():
						log.Printf("Restart requested: %s", reply.MessageType())
					case <-ctx.Done():
					}
				}()
			case syscall.SIGUSR1:
				if role == rootpkg.NodeRoleLeader {
					role = rootpkg.NodeRoleFollower
				} else {
					role = rootpkg.NodeRoleLeader
				}
				log.Printf("Switching node role to %s", role)
				h.SetRole(role)
			default:
				log.Println("Received shutdown signal, stopping projection subsystem...")
				cancel()
				return
			}
		}
	}()

	log.Printf("Running projection subsystem (run mode %s, %d worker(s))", runMode, h.WorkerCount())
	if err := h.Run(ctx); err != nil && err != context.Canceled {
		log.Fatalf("Projection subsystem error: %v", err)
	}

	if server != nil {
		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer shutdownCancel()
		if err := server.Shutdown(shutdownCtx); err != nil {
			log.Printf("Metrics server shutdown error: %v", err)
		}
	}

	log.Printf("Projection subsystem stopped in state %s", h.State())
}
