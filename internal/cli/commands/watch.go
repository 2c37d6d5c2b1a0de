package commands

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/shaped-ai/playground/internal/workspace"
	"github.com/spf13/cobra"
)

const watchDebounce = 100 * time.Millisecond

// NewWatchCommand creates the watch command.
func NewWatchCommand() *cobra.Command {
	var tabRef string
	cmd := &cobra.Command{
		Use:   "watch <file>",
		Short: "Mirror a file into a tab's query text while you edit it",
		Long: `Watch a file and copy its contents into a tab every time it is saved,
so queries can be written in your own editor. Saves that do not change the
text leave the stored workspace untouched.

Runs until interrupted.`,
		Example: `  playground watch query.yaml
  playground watch ranking.sql --tab 2`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			path, err := filepath.Abs(args[0])
			if err != nil {
				return err
			}
			if _, err := os.Stat(path); err != nil {
				return fmt.Errorf("cannot watch %s: %w", args[0], err)
			}

			return withSession(cmd, func(c *CommandContext, s *workspace.Session) error {
				tabID := s.Tabs.ActiveTabID()
				if tabRef != "" {
					if tabID, err = resolveTabRef(s.Tabs.Tabs(), tabRef); err != nil {
						return err
					}
				}

				ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
				defer stop()

				c.Renderer.Printf("Watching %s into tab %s (Ctrl+C to stop)\n", args[0], tabID)
				m := &fileMirror{
					session: s,
					path:    path,
					tabID:   tabID,
					logger:  c.Logger,
					onApply: func(changed bool) {
						if changed {
							c.Renderer.Success(fmt.Sprintf("synced %s", filepath.Base(path)))
						}
					},
				}
				if err := m.sync(); err != nil {
					return err
				}
				return m.run(ctx)
			})
		},
	}
	cmd.Flags().StringVar(&tabRef, "tab", "", "Tab to update (default: the active tab)")
	return cmd
}

// fileMirror copies a file into one tab's content on every save.
type fileMirror struct {
	session *workspace.Session
	path    string
	tabID   string
	logger  *slog.Logger
	onApply func(changed bool)
}

// run blocks until ctx is cancelled.
func (m *fileMirror) run(ctx context.Context) error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	defer func() { _ = watcher.Close() }()

	// Editors often save by renaming a temp file over the target, which
	// drops a watch on the file itself.
	if err := watcher.Add(filepath.Dir(m.path)); err != nil {
		return fmt.Errorf("failed to watch %s: %w", m.path, err)
	}

	var debounceTimer *time.Timer
	defer func() {
		if debounceTimer != nil {
			debounceTimer.Stop()
		}
	}()

	for {
		select {
		case <-ctx.Done():
			return nil

		case event, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if filepath.Clean(event.Name) != m.path {
				continue
			}
			if event.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Rename) == 0 {
				continue
			}

			if debounceTimer != nil {
				debounceTimer.Stop()
			}
			debounceTimer = time.AfterFunc(watchDebounce, func() {
				m.logger.Debug("file changed", "file", event.Name, "op", event.Op.String())
				if err := m.sync(); err != nil {
					m.logger.Error("sync failed", "file", m.path, "error", err)
				}
			})

		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			m.logger.Error("watcher error", "error", err)
		}
	}
}

// sync copies the file into the tab.
func (m *fileMirror) sync() error {
	data, err := os.ReadFile(m.path)
	if err != nil {
		return fmt.Errorf("failed to read %s: %w", m.path, err)
	}
	content := string(data)

	changed := false
	m.session.Do(func(s *workspace.Session) {
		before := s.Tabs.State()
		s.Tabs.UpdateTab(m.tabID, workspace.TabPatch{Content: &content})
		changed = s.Tabs.State() != before
	})
	if m.onApply != nil {
		m.onApply(changed)
	}
	return nil
}
