package commands

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"strconv"
	"strings"

	"github.com/shaped-ai/playground/internal/cli/config"
	"github.com/shaped-ai/playground/internal/cli/output"
	"github.com/shaped-ai/playground/internal/state"
	"github.com/shaped-ai/playground/internal/workspace"
	"github.com/shaped-ai/playground/pkg/core"
	"github.com/spf13/cobra"
)

// CommandContext holds common dependencies for CLI commands.
type CommandContext struct {
	Cfg      *config.Config
	Logger   *slog.Logger
	Store    *state.SQLiteStore
	Renderer *output.Renderer
}

// NewCommandContext creates a CommandContext with an open state store.
// Returns the context and a cleanup function that must be called (typically via defer).
func NewCommandContext(cmd *cobra.Command) (*CommandContext, func(), error) {
	cmdCtx := NewCommandContextWithoutStore(cmd)

	store, err := state.OpenAndMigrate(cmdCtx.Cfg.StatePath, cmdCtx.Logger)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to open state %s: %w", cmdCtx.Cfg.StatePath, err)
	}
	cmdCtx.Store = store

	cleanup := func() {
		_ = store.Close()
	}
	return cmdCtx, cleanup, nil
}

// NewCommandContextWithoutStore creates a CommandContext without a state store.
// Useful for commands that only transform tokens.
func NewCommandContextWithoutStore(cmd *cobra.Command) *CommandContext {
	cfg := getConfig()
	return &CommandContext{
		Cfg:      cfg,
		Logger:   config.GetLogger(cmd.Context()),
		Renderer: output.NewRenderer(cmd.OutOrStdout(), cmd.ErrOrStderr(), output.Mode(cfg.OutputFormat)),
	}
}

// Identity is the assumed identity from --assume-user.
func (c *CommandContext) Identity() workspace.IdentityProvider {
	return workspace.StaticIdentity{Persistent: c.Cfg.AssumeUser}
}

// OpenSession opens the workspace for the configured identity. A nil history
// starts a fresh in-memory one.
func (c *CommandContext) OpenSession(history workspace.History) *workspace.Session {
	var store core.PartitionStore = workspace.NewMemoryStore()
	if c.Store != nil {
		store = c.Store
	}
	return workspace.Open(workspace.Options{
		Store:    store,
		Identity: c.Identity(),
		History:  history,
		Defaults: c.Cfg.TabDefaults(),
		Logger:   c.Logger,
	})
}

// LoadSession opens and activates the stored workspace.
func (c *CommandContext) LoadSession() *workspace.Session {
	s := c.OpenSession(nil)
	s.Activate("")
	return s
}

// getConfig returns the loaded configuration, or defaults from the
// environment when commands run outside the root command.
func getConfig() *config.Config {
	if cfg := config.GetCurrentConfig(); cfg != nil {
		return cfg
	}
	return &config.Config{
		StatePath:    getEnvOrDefault(config.EnvPrefix+"STATE_PATH", config.DefaultStateFile),
		AssumeUser:   os.Getenv(config.EnvPrefix + "ASSUME_USER"),
		BaseURL:      getEnvOrDefault(config.EnvPrefix+"BASE_URL", config.DefaultBaseURL),
		OutputFormat: os.Getenv(config.EnvPrefix + "OUTPUT"),
	}
}

func getEnvOrDefault(key, defaultVal string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return defaultVal
}

// resolveTabRef finds a tab by exact id, then by 1-based position, then by
// unique id prefix. Digits outside the position range may still be a prefix.
func resolveTabRef(tabs []core.QueryTabState, ref string) (string, error) {
	ref = strings.TrimSpace(ref)
	for _, tab := range tabs {
		if tab.ID == ref {
			return tab.ID, nil
		}
	}

	var positionErr error
	if n, err := strconv.Atoi(ref); err == nil {
		if n >= 1 && n <= len(tabs) {
			return tabs[n-1].ID, nil
		}
		positionErr = fmt.Errorf("tab position %d out of range (1-%d)", n, len(tabs))
	}

	var match string
	for _, tab := range tabs {
		if ref != "" && strings.HasPrefix(tab.ID, ref) {
			if match != "" {
				return "", fmt.Errorf("tab reference %q is ambiguous", ref)
			}
			match = tab.ID
		}
	}
	switch {
	case match != "":
		return match, nil
	case positionErr != nil:
		return "", positionErr
	default:
		return "", fmt.Errorf("no tab matches %q", ref)
	}
}

// parseParams parses name=value pairs.
func parseParams(pairs []string) (map[string]core.ParamValue, error) {
	params := make(map[string]core.ParamValue, len(pairs))
	for _, pair := range pairs {
		name, value, ok := strings.Cut(pair, "=")
		name = strings.TrimSpace(name)
		if !ok || name == "" {
			return nil, fmt.Errorf("invalid parameter %q (want name=value)", pair)
		}
		params[name] = core.ParseParam(value)
	}
	return params, nil
}

// readInput reads a file, or stdin when path is "-" or empty.
func readInput(cmd *cobra.Command, path string) ([]byte, error) {
	if path == "" || path == "-" {
		if output.IsTerminal(cmd.InOrStdin()) {
			return nil, fmt.Errorf("no input: pass a file or pipe data on stdin")
		}
		data, err := io.ReadAll(cmd.InOrStdin())
		if err != nil {
			return nil, fmt.Errorf("failed to read stdin: %w", err)
		}
		return data, nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", path, err)
	}
	return data, nil
}
