// Copyright © 2026 Groups.io, Inc.
// SPDX-License-Identifier: Apache-2.0

package main

import (
	"bufio"
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"strings"

	"github.com/mkrall/deckhand/internal/app"
)

var (
	version = "0.9"
)

func main() {
	// Check for subcommands before flag parsing
	if len(os.Args) > 1 && os.Args[1] == "init" {
		if err := runInit(); err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}
		os.Exit(0)
	}

	// Parse flags
	var (
		configPath  string
		window      string
		address     string
		showVersion bool
	)

	flag.StringVar(&configPath, "config", "", "Path to config file (default: auto-detect)")
	flag.StringVar(&configPath, "c", "", "Path to config file (short)")
	flag.StringVar(&window, "window", "", "Window label (overrides config)")
	flag.StringVar(&window, "w", "", "Window label (short)")
	flag.StringVar(&address, "address", "", "Backend address (overrides config)")
	flag.BoolVar(&showVersion, "version", false, "Show version")
	flag.BoolVar(&showVersion, "v", false, "Show version (short)")
	flag.Parse()

	if showVersion {
		fmt.Printf("deckhand %s\n", version)
		os.Exit(0)
	}

	application, err := app.New(app.Options{
		ConfigPath: configPath,
		Window:     window,
		Address:    address,
	})
	if err != nil {
		log.Fatalf("Failed to create app: %v", err)
	}

	ctx := context.Background()
	if err := application.Run(ctx); err != nil {
		log.Fatalf("App error: %v", err)
	}
}

// runInit handles the "deckhand init" command
func runInit() error {
	initFlags := flag.NewFlagSet("init", flag.ExitOnError)
	showHelp := initFlags.Bool("help", false, "Show help for init command")
	initFlags.BoolVar(showHelp, "h", false, "Show help for init command")
	initFlags.Parse(os.Args[2:])

	if *showHelp {
		fmt.Println(`Usage: deckhand init [options]

Create a new deckhand.hjson configuration file in the current directory.

Options:
  -h, -help    Show this help message

The command will ask about:
  - Backend address (defaults to http://127.0.0.1:7910)
  - Default shell (defaults to $SHELL)
  - Scrollback buffer size

After running init:
  1. Review and edit deckhand.hjson as needed
  2. Start the daemon: deckhandd
  3. Start a window: deckhand`)
		return nil
	}

	configFile := "deckhand.hjson"

	if _, err := os.Stat(configFile); err == nil {
		return fmt.Errorf("%s already exists; remove it first or use a different directory", configFile)
	}

	reader := bufio.NewReader(os.Stdin)

	fmt.Println("Deckhand Configuration Setup")
	fmt.Println("============================")
	fmt.Println()
	fmt.Println("This will create a deckhand.hjson configuration file in the current directory.")
	fmt.Println("Press Enter to accept defaults shown in [brackets].")
	fmt.Println()

	address := prompt(reader, "Backend address", "http://127.0.0.1:7910")

	defaultShell := os.Getenv("SHELL")
	if defaultShell == "" {
		defaultShell = "/bin/sh"
	}
	shell := prompt(reader, "Default shell", defaultShell)
	scrollback := prompt(reader, "Scrollback lines", "10000")

	configContent := generateConfig(address, shell, scrollback)

	if err := os.WriteFile(configFile, []byte(configContent), 0644); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	fmt.Println()
	fmt.Printf("Created %s\n", configFile)
	fmt.Println()
	fmt.Println("Next steps:")
	fmt.Println("  1. Review and edit deckhand.hjson as needed")
	fmt.Println("  2. Start the daemon: deckhandd")
	fmt.Println("  3. Start a window: deckhand")
	fmt.Println()

	return nil
}

func prompt(reader *bufio.Reader, question, defaultVal string) string {
	if defaultVal != "" {
		fmt.Printf("%s [%s]: ", question, defaultVal)
	} else {
		fmt.Printf("%s: ", question)
	}
	input, _ := reader.ReadString('\n')
	input = strings.TrimSpace(input)
	if input == "" {
		return defaultVal
	}
	return input
}

// escapeHJSONValue escapes a string for safe inclusion in an HJSON double-quoted value.
func escapeHJSONValue(s string) string {
	s = strings.ReplaceAll(s, `\`, `\\`)
	s = strings.ReplaceAll(s, `"`, `\"`)
	return s
}

func generateConfig(address, shell, scrollback string) string {
	var sb strings.Builder

	sb.WriteString(`{
  // ===========================================================================
  // Deckhand Configuration
  // ===========================================================================
  //
  // This is an HJSON file (JSON with comments and relaxed syntax).
  // Shared by the deckhand window front end and the deckhandd daemon.

  // ---------------------------------------------------------------------------
  // Backend Connection
  // ---------------------------------------------------------------------------
  backend: {
    // Address of the deckhandd daemon
    address: "`)
	sb.WriteString(escapeHJSONValue(address))
	sb.WriteString(`"

    // HTTP request timeout
    timeout: "30s"
  }

  // ---------------------------------------------------------------------------
  // Window Identity
  // ---------------------------------------------------------------------------
  //
  // Each deckhand process is one window. The main window adopts sessions when
  // auxiliary windows close.
  window: {
    label: "main"
    main: true
  }

  // ---------------------------------------------------------------------------
  // UI Settings
  // ---------------------------------------------------------------------------
  ui: {
    // Pointer travel in pixels before a press becomes a drag
    drag_activation_distance: 8

    // Quiet period before a burst of resizes reaches the backend
    resize_debounce: "250ms"
  }

  // ---------------------------------------------------------------------------
  // Terminal Settings
  // ---------------------------------------------------------------------------
  terminal: {
    // Shell started for sessions with no explicit command
    default_shell: "`)
	sb.WriteString(escapeHJSONValue(shell))
	sb.WriteString(`"

    scrollback: `)
	sb.WriteString(scrollback)
	sb.WriteString(`
  }

  // ---------------------------------------------------------------------------
  // Custom Tools
  // ---------------------------------------------------------------------------
  //
  // Extra session tools beyond the built-in shell/claude/codex/gemini.
  // tools: [
  //   { name: "aider", command: "aider", icon: "robot" }
  // ]

  // ---------------------------------------------------------------------------
  // Event History
  // ---------------------------------------------------------------------------
  events: {
    history: {
      max_events: 10000
      max_age: "1h"
    }
  }

  logging: {
    level: "info"
  }
}
`)

	return sb.String()
}
