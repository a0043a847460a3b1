// SPDX-FileCopyrightText: Copyright 2026 The Lantern Authors
// SPDX-License-Identifier: Apache-2.0

package app

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/lanternid/lantern/pkg/config"
	"github.com/lanternid/lantern/pkg/flows"
	"github.com/lanternid/lantern/pkg/keys"
	"github.com/lanternid/lantern/pkg/logger"
	"github.com/lanternid/lantern/pkg/server"
	"github.com/lanternid/lantern/pkg/session"
	"github.com/lanternid/lantern/pkg/storage"
	"github.com/lanternid/lantern/pkg/storage/sqlite"
)

const (
	defaultGracefulTimeout = 30 * time.Second
	serverReadTimeout      = 10 * time.Second
	serverWriteTimeout     = 15 * time.Second
	serverIdleTimeout      = 60 * time.Second
)

func newServeCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the authorization server",
		Long: `Start the HTTP server exposing the authorization endpoint, the
interactive flow executor and the JWKS document.`,
		RunE: runServe,
	}

	cmd.Flags().String("address", ":9000", "Address to listen on")
	cmd.Flags().String("issuer", "http://localhost:9000", "Issuer URL for ID tokens")
	cmd.Flags().String("config", "", "Path to a config file")
	cmd.Flags().String("seed", "", "Path to a YAML seed file with providers, applications and flows")

	for _, flag := range []string{"address", "issuer", "seed"} {
		if err := viper.BindPFlag(flag, cmd.Flags().Lookup(flag)); err != nil {
			logger.Errorf("Failed to bind %s flag: %v", flag, err)
		}
	}
	return cmd
}

func runServe(cmd *cobra.Command, _ []string) error {
	ctx := cmd.Context()

	configFile, err := cmd.Flags().GetString("config")
	if err != nil {
		return err
	}
	cfg, err := config.Load(configFile)
	if err != nil {
		return err
	}
	if seed := viper.GetString("seed"); seed != "" {
		cfg.SeedFile = seed
	}

	store, err := buildStore(ctx, cfg)
	if err != nil {
		return err
	}
	defer store.Close()

	sessionStore, err := buildSessionStore(ctx, cfg)
	if err != nil {
		return err
	}
	defer sessionStore.Close()

	keyManager, err := buildKeyManager(cfg)
	if err != nil {
		return err
	}

	planner := flows.NewPlanner()
	if cfg.SeedFile != "" {
		seed, err := config.LoadSeed(cfg.SeedFile)
		if err != nil {
			return err
		}
		if err := seed.Apply(ctx, store, planner); err != nil {
			return err
		}
	}

	sessions := session.NewManager(sessionStore)
	executor := flows.NewExecutor(sessions)
	srv := server.New(
		server.Config{Issuer: cfg.Issuer, LoginURL: cfg.LoginURL},
		store, keyManager, sessions, planner, executor, nil, nil,
	)

	httpServer := &http.Server{
		Addr:         cfg.Address,
		Handler:      srv.Routes(),
		ReadTimeout:  serverReadTimeout,
		WriteTimeout: serverWriteTimeout,
		IdleTimeout:  serverIdleTimeout,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Infof("Starting authorization server on %s", cfg.Address)
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	select {
	case err := <-errCh:
		return fmt.Errorf("server error: %w", err)
	case <-ctx.Done():
	}

	logger.Info("Shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), defaultGracefulTimeout)
	defer cancel()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("failed to shut down server: %w", err)
	}
	return nil
}

func buildStore(ctx context.Context, cfg *config.Config) (storage.Store, error) {
	switch cfg.Storage.Backend {
	case config.BackendSQLite:
		store, err := sqlite.Open(ctx, cfg.Storage.Path)
		if err != nil {
			return nil, fmt.Errorf("failed to open database: %w", err)
		}
		logger.Infof("Using sqlite storage at %s", cfg.Storage.Path)
		return store, nil
	default:
		logger.Info("Using in-memory storage")
		return storage.NewMemoryStore(), nil
	}
}

func buildSessionStore(ctx context.Context, cfg *config.Config) (session.Store, error) {
	switch cfg.Session.Backend {
	case config.BackendRedis:
		store, err := session.NewRedisStore(ctx, session.RedisConfig{
			Addr:     cfg.Session.RedisAddr,
			Username: cfg.Session.RedisUsername,
			Password: cfg.Session.RedisPassword,
			DB:       cfg.Session.RedisDB,
			TTL:      cfg.Session.TTL,
		})
		if err != nil {
			return nil, fmt.Errorf("failed to connect to redis: %w", err)
		}
		logger.Infof("Using redis sessions at %s", cfg.Session.RedisAddr)
		return store, nil
	default:
		logger.Info("Using in-memory sessions")
		return session.NewMemoryStore(session.WithTTL(cfg.Session.TTL)), nil
	}
}

func buildKeyManager(cfg *config.Config) (*keys.Manager, error) {
	if len(cfg.Keys) == 0 {
		logger.Warn("No signing keys configured, generating an ephemeral key")
		return keys.NewEphemeralManager()
	}
	return keys.NewManagerFromFiles(cfg.Keys)
}
