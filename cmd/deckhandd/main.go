// Copyright © 2026 Groups.io, Inc.
// SPDX-License-Identifier: Apache-2.0

package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"net/http"
	"net/url"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/mkrall/deckhand/internal/config"
	"github.com/mkrall/deckhand/internal/daemon"
)

var (
	version = "0.9"
)

func main() {
	var (
		configPath  string
		addr        string
		showVersion bool
	)

	flag.StringVar(&configPath, "config", "", "Path to config file (default: auto-detect)")
	flag.StringVar(&configPath, "c", "", "Path to config file (short)")
	flag.StringVar(&addr, "addr", "", "Listen address (overrides config)")
	flag.BoolVar(&showVersion, "version", false, "Show version")
	flag.BoolVar(&showVersion, "v", false, "Show version (short)")
	flag.Parse()

	if showVersion {
		fmt.Printf("deckhandd %s\n", version)
		os.Exit(0)
	}

	loader := config.NewLoader()
	var cfg *config.Config
	if configPath == "" {
		if found, err := loader.FindConfig(); err == nil {
			configPath = found
		}
	}
	if configPath != "" {
		log.Printf("Using config: %s", configPath)
		loaded, err := loader.LoadWithDefaults(context.Background(), configPath)
		if err != nil {
			log.Fatalf("Failed to load config: %v", err)
		}
		cfg = loaded
	} else {
		cfg = config.Default()
	}
	if err := config.Validate(cfg); err != nil {
		log.Fatalf("%v", err)
	}

	if addr == "" {
		addr = listenAddr(cfg.Backend.Address)
	}

	server, err := daemon.NewServer(daemon.ServerConfig{
		Addr:         addr,
		StatePath:    filepath.Join(cfg.StateDir, "registry.json"),
		DefaultShell: cfg.Terminal.DefaultShell,
		Scrollback:   cfg.Terminal.Scrollback,
	})
	if err != nil {
		log.Fatalf("Failed to create server: %v", err)
	}

	go func() {
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("Server error: %v", err)
		}
	}()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	sig := <-sigCh
	log.Printf("Received signal %v, shutting down...", sig)

	if err := server.Shutdown(context.Background()); err != nil {
		log.Printf("Error during shutdown: %v", err)
	}
}

// listenAddr derives the daemon's listen address from the configured
// backend URL.
func listenAddr(backendURL string) string {
	u, err := url.Parse(backendURL)
	if err != nil || u.Host == "" {
		return "127.0.0.1:7910"
	}
	return u.Host
}
