package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/perpfolio/reconciler-backend/internal/config"
	"github.com/perpfolio/reconciler-backend/internal/credentials"
	"github.com/perpfolio/reconciler-backend/internal/db"
	"github.com/perpfolio/reconciler-backend/internal/hyperliquid"
	"github.com/perpfolio/reconciler-backend/internal/ledger"
	"github.com/perpfolio/reconciler-backend/internal/matcher"
	"github.com/perpfolio/reconciler-backend/internal/notifications"
	"github.com/perpfolio/reconciler-backend/internal/reconcile"
	"github.com/perpfolio/reconciler-backend/internal/repository"
	"github.com/perpfolio/reconciler-backend/internal/scheduler"
)

const banner = `
╔══════════════════════════════════════╗
║   Hyperliquid Trade Reconciliation   ║
║                                      ║
╚══════════════════════════════════════╝
`

func main() {
	userID := flag.Int64("user", 0, "reconcile a single user id instead of all eligible users")
	daemon := flag.Bool("daemon", false, "keep running and reconcile on a fixed interval")
	flag.Parse()

	fmt.Print(banner)

	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "config load error: %v\n", err)
		os.Exit(1)
	}
	if err := cfg.Validate(); err != nil {
		fmt.Fprintf(os.Stderr, "%v\n", err)
		os.Exit(1)
	}
	cfg.Print()

	// Database
	fmt.Println("\n[DB] Connecting ...")
	pool, err := db.Connect(cfg.DSN())
	if err != nil {
		fmt.Fprintf(os.Stderr, "[DB] Connection failed: %v\n", err)
		os.Exit(1)
	}
	defer func() {
		pool.Close()
		fmt.Println("[DB] Connection pool closed")
	}()

	if err := db.TestConnection(pool); err != nil {
		fmt.Fprintf(os.Stderr, "[DB] Test query failed: %v\n", err)
		os.Exit(1)
	}

	// Repos
	userRepo := repository.NewFollowerUserRepo(pool)
	tradeRepo := repository.NewPortfolioTradeRepo(pool)

	// Collaborators
	baseURL := hyperliquid.MainnetAPIURL
	if cfg.UseTestnet {
		baseURL = hyperliquid.TestnetAPIURL
	}
	hl := hyperliquid.NewClient(baseURL)

	var dec *credentials.Decryptor
	if cfg.CredentialsEncryptionKey != "" {
		dec, err = credentials.NewDecryptor(cfg.CredentialsEncryptionKey)
		if err != nil {
			fmt.Fprintf(os.Stderr, "[CREDENTIALS] Invalid encryption key: %v\n", err)
			os.Exit(1)
		}
	}

	m, err := matcher.New(matcher.Options{})
	if err != nil {
		fmt.Fprintf(os.Stderr, "[MATCH] %v\n", err)
		os.Exit(1)
	}

	writer := ledger.NewWriter(tradeRepo, cfg.FeeTiers,
		time.Duration(cfg.DedupToleranceSeconds)*time.Second)
	notify := notifications.NewSender(cfg.WebhookURL, cfg.BotName)

	svc := reconcile.NewService(userRepo, hl, m, writer, dec, notify,
		time.Duration(cfg.LookbackDays)*24*time.Hour)

	// Graceful shutdown context
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	switch {
	case *userID > 0:
		if err := svc.RunUser(ctx, *userID); err != nil {
			fmt.Fprintf(os.Stderr, "[RECONCILE] %v\n", err)
			os.Exit(1)
		}

	case *daemon:
		sched := scheduler.New(svc, scheduler.Config{
			Interval: time.Duration(cfg.ReconcileIntervalHours) * time.Hour,
		})
		sched.Start()
		<-ctx.Done()
		fmt.Println("\nShutting down gracefully...")
		sched.Stop()

	default:
		if err := svc.RunAll(ctx); err != nil {
			fmt.Fprintf(os.Stderr, "[RECONCILE] %v\n", err)
			os.Exit(1)
		}
	}

	fmt.Println("Reconciliation complete")
}
