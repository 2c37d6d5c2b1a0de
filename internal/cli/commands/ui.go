package commands

import (
	"encoding/hex"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"os/signal"
	"path/filepath"
	"runtime"
	"strings"
	"syscall"

	"github.com/gorilla/securecookie"
	"github.com/shaped-ai/playground/internal/ui"
	"github.com/spf13/cobra"
)

// sessionKeyFile holds the generated cookie secret next to the state file.
const sessionKeyFile = "session.key"

// UIOptions holds options for the ui command.
type UIOptions struct {
	Port      int
	NoBrowser bool
}

// NewUICommand creates the ui command.
func NewUICommand() *cobra.Command {
	opts := &UIOptions{}

	cmd := &cobra.Command{
		Use:   "ui",
		Short: "Start the workspace in the browser",
		Long: `Start a local web server with the multi-tab query workspace.

Every browser window keeps its own tabs, writes them to the same local
state file the CLI uses, and mirrors them into a shareable ?q= URL.
Back and forward navigate through switches, saves and runs.`,
		Example: `  # Start UI on default port
  playground ui

  # Start on custom port without opening a browser
  playground ui --port 3000 --no-browser`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runUI(cmd, opts)
		},
	}

	cmd.Flags().IntVar(&opts.Port, "port", 0, "Port to serve on (default: 8765)")
	cmd.Flags().BoolVar(&opts.NoBrowser, "no-browser", false, "Don't auto-open browser")

	return cmd
}

func runUI(cmd *cobra.Command, opts *UIOptions) error {
	c, cleanup, err := NewCommandContext(cmd)
	if err != nil {
		return err
	}
	defer cleanup()

	// CLI flags override config file
	uiCfg := c.Cfg.GetUIConfig()
	port := uiCfg.Port
	if opts.Port != 0 {
		port = opts.Port
	}
	autoOpen := uiCfg.AutoOpen && !opts.NoBrowser

	secret := uiCfg.SessionSecret
	if secret == "" {
		if secret, err = loadSessionSecret(filepath.Dir(c.Cfg.StatePath)); err != nil {
			return err
		}
	}

	server := ui.NewServer(ui.Config{
		Store:         c.Store,
		Port:          port,
		SessionSecret: secret,
		Defaults:      c.Cfg.TabDefaults(),
		Logger:        c.Logger,
	})

	if autoOpen {
		go openBrowser(server.URL())
	}

	c.Renderer.Printf("Starting UI server on %s\n", server.URL())
	c.Renderer.Muted("Press Ctrl+C to stop")

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	return server.Serve(ctx)
}

// loadSessionSecret reads the cookie secret from dir, generating one on
// first use so identity cookies survive restarts.
func loadSessionSecret(dir string) (string, error) {
	path := filepath.Join(dir, sessionKeyFile)
	data, err := os.ReadFile(path) //nolint:gosec // path is derived from the configured state file
	if err == nil {
		if secret := strings.TrimSpace(string(data)); secret != "" {
			return secret, nil
		}
	} else if !errors.Is(err, os.ErrNotExist) {
		return "", fmt.Errorf("failed to read session key: %w", err)
	}

	key := securecookie.GenerateRandomKey(32)
	if key == nil {
		return "", errors.New("failed to generate session key")
	}
	secret := hex.EncodeToString(key)
	if err := os.MkdirAll(dir, 0750); err != nil {
		return "", fmt.Errorf("failed to create state directory: %w", err)
	}
	if err := os.WriteFile(path, []byte(secret+"\n"), 0600); err != nil {
		return "", fmt.Errorf("failed to write session key: %w", err)
	}
	return secret, nil
}

// openBrowser opens the default browser to the specified URL.
func openBrowser(url string) {
	var cmd *exec.Cmd

	switch runtime.GOOS {
	case "darwin":
		cmd = exec.Command("open", url) //nolint:noctx
	case "linux":
		cmd = exec.Command("xdg-open", url) //nolint:noctx
	case "windows":
		cmd = exec.Command("rundll32", "url.dll,FileProtocolHandler", url) //nolint:noctx
	default:
		return
	}

	_ = cmd.Start()
}
