package main

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"sort"
	"syscall"
	"time"

	"eventcontrol/backend/internal/config"
	"eventcontrol/backend/internal/httpapi"
	"eventcontrol/backend/internal/recommendation"
	"eventcontrol/backend/internal/service"
	"eventcontrol/backend/internal/store"
	"eventcontrol/backend/internal/store/fallback"
	filestore "eventcontrol/backend/internal/store/file"
	"eventcontrol/backend/internal/store/memory"
	mysqlstore "eventcontrol/backend/internal/store/mysql"
	pgstore "eventcontrol/backend/internal/store/postgres"
	redisstore "eventcontrol/backend/internal/store/redis"
)

func main() {
	cfg := config.Load()
	if err := validateSecurityConfig(cfg); err != nil {
		log.Fatalf("invalid security configuration: %v", err)
	}
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	snapshots, closers := buildSnapshotStore(ctx, cfg)

	recommender := recommendation.NewEngine(cfg.DefaultMixWeight)
	svc := service.New(snapshots, recommender, cfg.UndoCapacity, cfg.DefaultAccountID)
	auth := httpapi.NewAuthManager(cfg.AuthSecret, time.Duration(cfg.AccessTokenTTLMinutes)*time.Minute, cfg.Accounts)
	api := httpapi.New(svc, auth, cfg.AllowedOrigin)
	log.Printf("accounts: %v", auth.Accounts())

	server := &http.Server{
		Addr:              cfg.Address(),
		Handler:           api.Handler(),
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       10 * time.Second,
		WriteTimeout:      15 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	go func() {
		log.Printf("event finance backend listening on %s", cfg.Address())
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("server error: %v", err)
		}
	}()

	sig := make(chan os.Signal, 1)
	signal.Notify(sig, syscall.SIGINT, syscall.SIGTERM)
	<-sig

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 8*time.Second)
	defer shutdownCancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Printf("shutdown error: %v", err)
	}

	for _, closeFn := range closers {
		if err := closeFn(); err != nil {
			log.Printf("close error: %v", err)
		}
	}

	log.Println("server stopped")
}

// buildSnapshotStore wires the remote primary (postgres, else mysql) in front
// of the local store (redis, else files, else memory). A primary that cannot
// be reached at startup is skipped rather than fatal.
func buildSnapshotStore(ctx context.Context, cfg config.Config) (store.SnapshotStore, []func() error) {
	closers := make([]func() error, 0, 2)

	var local store.SnapshotStore
	if cfg.RedisAddr != "" {
		rs := redisstore.NewStore(cfg.RedisAddr, cfg.RedisPassword, cfg.RedisDB, time.Duration(cfg.RedisTTLHours)*time.Hour)
		if err := rs.Ping(ctx); err != nil {
			log.Printf("redis unavailable (%v), using file store", err)
			_ = rs.Close()
		} else {
			local = rs
			closers = append(closers, rs.Close)
			log.Println("local store: redis")
		}
	}
	if local == nil {
		fs, err := filestore.New(cfg.LocalStoreDir)
		if err != nil {
			log.Printf("file store unavailable (%v), using in-memory store", err)
			local = memory.New()
			log.Println("local store: in-memory")
		} else {
			local = fs
			log.Printf("local store: files under %s", cfg.LocalStoreDir)
		}
	}

	var primary store.SnapshotStore
	switch {
	case cfg.DatabaseURL != "":
		pg, err := pgstore.New(ctx, cfg.DatabaseURL)
		if err != nil {
			log.Printf("[store] WARN: postgres unavailable (%v), running on the local store only", err)
		} else {
			primary = pg
			closers = append(closers, pg.Close)
			log.Println("primary store: postgres")
		}
	case cfg.MySQLDSN != "":
		my, err := mysqlstore.New(ctx, cfg.MySQLDSN)
		if err != nil {
			log.Printf("[store] WARN: mysql unavailable (%v), running on the local store only", err)
		} else {
			primary = my
			closers = append(closers, my.Close)
			log.Println("primary store: mysql")
		}
	}

	if primary == nil {
		return local, closers
	}
	return fallback.New(primary, local), closers
}

func validateSecurityConfig(cfg config.Config) error {
	if len(cfg.AuthSecret) < 32 {
		return fmt.Errorf("AUTH_SECRET must be set and at least 32 characters")
	}
	if len(cfg.Accounts) == 0 {
		return fmt.Errorf("ACCOUNTS must list at least one user:password pair")
	}

	usernames := make([]string, 0, len(cfg.Accounts))
	for username := range cfg.Accounts {
		usernames = append(usernames, username)
	}
	sort.Strings(usernames)
	for _, username := range usernames {
		if !store.ValidAccountID(username) {
			return fmt.Errorf("account %q has an unsupported name", username)
		}
		if err := validatePasswordStrength(cfg.Accounts[username]); err != nil {
			return fmt.Errorf("password for %q is too weak: %w", username, err)
		}
	}
	return nil
}

// validatePasswordStrength rejects short passwords, a single repeated
// character, straight runs like "12345678" and a few well-known choices.
func validatePasswordStrength(password string) error {
	if len(password) < 8 {
		return fmt.Errorf("at least 8 characters required")
	}

	known := map[string]bool{
		"password": true, "password1": true, "12345678": true, "123456789": true,
		"qwertyui": true, "qwerty123": true, "iloveyou": true, "admin123": true,
		"letmein1": true, "11111111": true, "abc12345": true,
	}
	if known[password] {
		return fmt.Errorf("common password not allowed")
	}

	allSame := true
	for i := 1; i < len(password); i++ {
		if password[i] != password[0] {
			allSame = false
			break
		}
	}
	if allSame {
		return fmt.Errorf("single repeated character not allowed")
	}

	ascending, descending := true, true
	for i := 1; i < len(password); i++ {
		diff := int(password[i]) - int(password[i-1])
		if diff != 1 {
			ascending = false
		}
		if diff != -1 {
			descending = false
		}
	}
	if ascending || descending {
		return fmt.Errorf("sequential password not allowed")
	}

	return nil
}
