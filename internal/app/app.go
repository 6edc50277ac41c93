// Copyright © 2026 Groups.io, Inc.
// SPDX-License-Identifier: Apache-2.0

// Package app wires one deckhand window: the entity store, the drag
// controllers, the terminal views and the backend event feed.
package app

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"os"
	"os/signal"
	"path/filepath"
	"sync"
	"syscall"

	"github.com/mkrall/deckhand/internal/backend"
	"github.com/mkrall/deckhand/internal/config"
	"github.com/mkrall/deckhand/internal/events"
	"github.com/mkrall/deckhand/internal/reorder"
	"github.com/mkrall/deckhand/internal/store"
	"github.com/mkrall/deckhand/internal/surface"
	"github.com/mkrall/deckhand/internal/termview"
	"github.com/mkrall/deckhand/internal/transfer"
	"github.com/mkrall/deckhand/internal/watcher"
	"github.com/mkrall/deckhand/pkg/client"
)

// App is the per-window application container.
type App struct {
	mu sync.RWMutex

	configPath string
	config     *config.Config
	window     string
	main       bool

	eventBus      events.EventBus
	api           *client.Client
	remote        *backend.Remote
	store         *store.Store
	transfer      *transfer.Controller
	reorder       *reorder.Controller
	configWatcher *watcher.ConfigWatcher

	// views holds one mounted terminal view per open session.
	views map[string]*termview.Controller

	stream    *client.EventStream
	streamCtx context.CancelFunc

	done     chan struct{}
	stopOnce sync.Once
}

// Options holds configuration options for the app.
type Options struct {
	ConfigPath string

	// Window overrides the window label from the config. Auxiliary windows
	// are launched with their own labels.
	Window string

	// Address overrides the backend address from the config.
	Address string
}

// New creates a new App instance.
func New(opts Options) (*App, error) {
	app := &App{
		configPath: opts.ConfigPath,
		views:      make(map[string]*termview.Controller),
		done:       make(chan struct{}),
	}

	loader := config.NewLoader()
	var cfg *config.Config
	if opts.ConfigPath != "" {
		loaded, err := loader.LoadWithDefaults(context.Background(), opts.ConfigPath)
		if err != nil {
			return nil, fmt.Errorf("failed to load config: %w", err)
		}
		cfg = loaded
	} else if path, err := loader.FindConfig(); err == nil {
		loaded, err := loader.LoadWithDefaults(context.Background(), path)
		if err != nil {
			return nil, fmt.Errorf("failed to load config: %w", err)
		}
		app.configPath = path
		cfg = loaded
	} else {
		cfg = config.Default()
	}
	if err := config.Validate(cfg); err != nil {
		return nil, err
	}

	if opts.Address != "" {
		cfg.Backend.Address = opts.Address
	}
	app.config = cfg

	app.window = cfg.Window.Label
	app.main = cfg.Window.Main
	if opts.Window != "" && opts.Window != cfg.Window.Label {
		app.window = opts.Window
		app.main = false
	}

	app.eventBus = events.NewMemoryEventBus(events.MemoryBusConfig{
		HistoryMaxEvents: cfg.Events.History.MaxEvents,
		HistoryMaxAge:    cfg.EventHistoryMaxAge(),
	})
	app.eventBus.SetDefaultWindow(app.window)

	return app, nil
}

// Window returns this window's label.
func (app *App) Window() string {
	return app.window
}

// Store returns the window's entity store.
func (app *App) Store() *store.Store {
	return app.store
}

// Transfer returns the cross-window drag controller.
func (app *App) Transfer() *transfer.Controller {
	return app.transfer
}

// Reorder returns the in-window drag controller.
func (app *App) Reorder() *reorder.Controller {
	return app.reorder
}

// Bus returns the window's event bus.
func (app *App) Bus() events.EventBus {
	return app.eventBus
}

// Initialize sets up all components and loads the session inventory from
// the backend.
func (app *App) Initialize(ctx context.Context) error {
	cfg := app.config

	app.api = client.New(cfg.Backend.Address, client.WithTimeout(cfg.BackendTimeout()))
	app.remote = backend.NewRemote(app.api)

	statePath := ""
	if cfg.StateDir != "" {
		statePath = filepath.Join(cfg.StateDir, "sections.json")
	}
	app.store = store.New(app.remote, app.eventBus, store.Options{
		Window:    app.window,
		StatePath: statePath,
	})
	if err := app.store.Load(ctx); err != nil {
		return fmt.Errorf("failed to load session inventory: %w", err)
	}

	app.transfer = transfer.New(app.remote, app.store, app.eventBus, app.window)
	app.reorder = reorder.New(app.store, cfg.UI.DragActivationDistance)

	if err := app.subscribeBusHandlers(); err != nil {
		return err
	}

	if app.configPath != "" {
		cw, err := watcher.NewConfigWatcher(app.eventBus, app.configPath, 0)
		if err != nil {
			log.Printf("Warning: config watcher unavailable: %v", err)
		} else {
			app.configWatcher = cw
		}
	}

	return app.connectFeed(ctx)
}

// subscribeBusHandlers routes pushed backend events into the store and the
// transfer controller.
func (app *App) subscribeBusHandlers() error {
	subs := []struct {
		pattern string
		handler events.EventHandler
	}{
		{events.EventSessionStatus, app.handleSessionStatus},
		{events.EventSessionExit, app.handleSessionExit},
		{events.EventSessionRemoved, app.handleSessionRemoved},
		{events.EventSessionToolID, app.handleToolSessionID},
		{events.EventWindowRelay, app.handleWindowRelay},
		{events.EventWindowCloseRequested, app.handleCloseRequested},
	}
	for _, s := range subs {
		if _, err := app.eventBus.Subscribe(s.pattern, s.handler); err != nil {
			return fmt.Errorf("failed to subscribe to %s: %w", s.pattern, err)
		}
	}
	return nil
}

// connectFeed opens the window's backend event feed and pumps pushed
// events onto the local bus.
func (app *App) connectFeed(ctx context.Context) error {
	stream, err := app.api.Events(ctx, app.window)
	if err != nil {
		return fmt.Errorf("failed to open event feed: %w", err)
	}

	pumpCtx, cancel := context.WithCancel(context.Background())
	app.mu.Lock()
	app.stream = stream
	app.streamCtx = cancel
	app.mu.Unlock()

	go backend.Pump(pumpCtx, stream, app.eventBus)
	return nil
}

func (app *App) handleSessionStatus(ctx context.Context, event events.Event) error {
	id, _ := event.Payload["sessionId"].(string)
	status, _ := event.Payload["status"].(string)
	if id == "" || status == "" {
		return nil
	}
	app.store.ApplyStatus(id, client.SessionStatus(status))
	return nil
}

func (app *App) handleSessionExit(ctx context.Context, event events.Event) error {
	id, _ := event.Payload["sessionId"].(string)
	if id == "" {
		return nil
	}
	app.store.ApplyExit(id)
	return nil
}

// handleSessionRemoved detaches the mounted view for a session that left
// this window. The session may still be running under another window, so
// the view is detached rather than torn down and no stop is issued.
func (app *App) handleSessionRemoved(ctx context.Context, event events.Event) error {
	id, _ := event.Payload["sessionId"].(string)
	if id == "" {
		return nil
	}
	app.mu.Lock()
	view, ok := app.views[id]
	delete(app.views, id)
	app.mu.Unlock()
	if ok {
		view.Detach()
	}
	return nil
}

func (app *App) handleToolSessionID(ctx context.Context, event events.Event) error {
	id, _ := event.Payload["sessionId"].(string)
	tool, _ := event.Payload["tool"].(string)
	toolSessionID, _ := event.Payload["toolSessionId"].(string)
	if id == "" || tool == "" {
		return nil
	}
	app.store.ApplyToolSessionID(ctx, id, client.ToolKind(tool), toolSessionID)
	return nil
}

func (app *App) handleWindowRelay(ctx context.Context, event events.Event) error {
	name, _ := event.Payload["event"].(string)
	raw, _ := event.Payload["payload"].(json.RawMessage)
	app.transfer.HandleRelay(name, raw)
	return nil
}

// handleCloseRequested migrates this window's sessions to the main window
// and then asks the app to stop. The main window ignores close requests
// delivered over the feed; its lifetime is the app's lifetime.
func (app *App) handleCloseRequested(ctx context.Context, event events.Event) error {
	if app.main {
		return nil
	}
	if err := app.transfer.MigrateAll(ctx); err != nil {
		log.Printf("Warning: migrating sessions before close: %v", err)
	}
	if err := app.api.Windows.Delete(ctx, app.window); err != nil {
		log.Printf("Warning: failed to delete window record: %v", err)
	}
	app.Stop()
	return nil
}

// OpenSession creates a session, mounts a terminal view on the window's
// TTY and starts the process.
func (app *App) OpenSession(ctx context.Context, sectionID string, opts store.CreateOptions) (client.Session, error) {
	sess, err := app.store.CreateSession(ctx, sectionID, opts)
	if err != nil {
		return client.Session{}, err
	}
	if err := app.MountView(ctx, sess.ID); err != nil {
		return sess, err
	}
	return sess, nil
}

// MountView attaches a terminal view for the session to this process's
// TTY and starts the session's process.
func (app *App) MountView(ctx context.Context, sessionID string) error {
	surf, err := surface.NewTTY()
	if err != nil {
		return fmt.Errorf("failed to open terminal surface: %w", err)
	}

	view := termview.New(termview.Config{
		SessionID:      sessionID,
		Backend:        app.remote,
		Bus:            app.eventBus,
		Surface:        surf,
		ResizeDebounce: app.config.ResizeDebounce(),
	})
	if err := view.Mount(ctx); err != nil {
		return err
	}

	app.mu.Lock()
	if old, ok := app.views[sessionID]; ok {
		old.Detach()
	}
	app.views[sessionID] = view
	app.mu.Unlock()

	view.Activate(ctx)
	return nil
}

// View returns the mounted terminal view for a session, if any.
func (app *App) View(sessionID string) (*termview.Controller, bool) {
	app.mu.RLock()
	defer app.mu.RUnlock()
	view, ok := app.views[sessionID]
	return view, ok
}

// CloseView tears down the mounted terminal view for a session.
func (app *App) CloseView(sessionID string) {
	app.mu.Lock()
	view, ok := app.views[sessionID]
	delete(app.views, sessionID)
	app.mu.Unlock()
	if ok {
		view.Teardown()
	}
}

// Run starts the app and blocks until shutdown.
func (app *App) Run(ctx context.Context) error {
	if err := app.Initialize(ctx); err != nil {
		return err
	}

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(sigCh)

	select {
	case sig := <-sigCh:
		log.Printf("Received signal %v, shutting down...", sig)
	case <-ctx.Done():
		log.Printf("Context cancelled, shutting down...")
	case <-app.done:
		log.Printf("Shutdown requested...")
	}

	return app.Shutdown(context.Background())
}

// Stop requests shutdown. Safe to call more than once.
func (app *App) Stop() {
	app.stopOnce.Do(func() { close(app.done) })
}

// Shutdown tears down all components.
func (app *App) Shutdown(ctx context.Context) error {
	log.Println("Shutting down...")

	app.mu.Lock()
	views := make([]*termview.Controller, 0, len(app.views))
	for _, view := range app.views {
		views = append(views, view)
	}
	app.views = make(map[string]*termview.Controller)
	stream := app.stream
	cancel := app.streamCtx
	app.mu.Unlock()

	// Detach rather than tear down. The daemon owns process lifetime and
	// sessions persist across window restarts.
	for _, view := range views {
		view.Detach()
	}

	if cancel != nil {
		cancel()
	}
	if stream != nil {
		if err := stream.Close(); err != nil {
			log.Printf("Warning: closing event feed: %v", err)
		}
	}

	if app.configWatcher != nil {
		app.configWatcher.Close()
	}

	if app.eventBus != nil {
		app.eventBus.Close()
	}

	log.Println("Shutdown complete")
	return nil
}
