package commands

import (
	"fmt"
	"maps"
	"slices"
	"strings"

	"github.com/shaped-ai/playground/internal/cli/output"
	"github.com/shaped-ai/playground/internal/workspace"
	"github.com/shaped-ai/playground/pkg/core"
	"github.com/spf13/cobra"
)

// NewTabsCommand creates the tabs command and its subcommands.
func NewTabsCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "tabs",
		Short: "Manage the tabs of the stored workspace",
		Long: `Inspect and edit the workspace stored for the current identity.

Tabs can be referenced by id, by a unique id prefix, or by their 1-based
position in the tab bar.`,
	}

	cmd.AddCommand(newTabsListCommand())
	cmd.AddCommand(newTabsAddCommand())
	cmd.AddCommand(newTabsCloseCommand())
	cmd.AddCommand(newTabsRenameCommand())
	cmd.AddCommand(newTabsUpdateCommand())
	cmd.AddCommand(newTabsSwitchCommand())
	return cmd
}

func newTabsListCommand() *cobra.Command {
	return &cobra.Command{
		Use:     "list",
		Aliases: []string{"ls"},
		Short:   "List tabs",
		Example: `  playground tabs list
  playground tabs list -o json`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return withSession(cmd, func(c *CommandContext, s *workspace.Session) error {
				return renderTabs(c.Renderer, s.Tabs.State())
			})
		},
	}
}

func newTabsAddCommand() *cobra.Command {
	var name string
	cmd := &cobra.Command{
		Use:   "add",
		Short: "Add a tab and make it active",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return withSession(cmd, func(c *CommandContext, s *workspace.Session) error {
				id := s.Tabs.AddTab()
				if name != "" {
					s.Tabs.RenameTab(id, name)
				}
				c.Renderer.Success(fmt.Sprintf("added tab %s", id))
				return nil
			})
		},
	}
	cmd.Flags().StringVar(&name, "name", "", "Name for the new tab")
	return cmd
}

func newTabsCloseCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "close <tab>",
		Short: "Close a tab",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withSession(cmd, func(c *CommandContext, s *workspace.Session) error {
				id, err := resolveTabRef(s.Tabs.Tabs(), args[0])
				if err != nil {
					return err
				}
				s.Tabs.CloseTab(id)
				c.Renderer.Success(fmt.Sprintf("closed tab %s", id))
				return nil
			})
		},
	}
}

func newTabsRenameCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "rename <tab> <name>",
		Short: "Rename a tab",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withSession(cmd, func(c *CommandContext, s *workspace.Session) error {
				id, err := resolveTabRef(s.Tabs.Tabs(), args[0])
				if err != nil {
					return err
				}
				s.Tabs.RenameTab(id, args[1])
				c.Renderer.Success(fmt.Sprintf("renamed tab %s", id))
				return nil
			})
		},
	}
}

func newTabsSwitchCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "switch <tab>",
		Short: "Make a tab active",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withSession(cmd, func(c *CommandContext, s *workspace.Session) error {
				id, err := resolveTabRef(s.Tabs.Tabs(), args[0])
				if err != nil {
					return err
				}
				s.Tabs.SetActiveTab(id)
				c.Renderer.Success(fmt.Sprintf("active tab is %s", id))
				return nil
			})
		},
	}
}

// TabsUpdateOptions holds flags for tabs update.
type TabsUpdateOptions struct {
	Content     string
	ContentFile string
	Language    string
	EditorMode  string
	Engine      string
	SavedQuery  string
	Preview     string
	Params      []string
	ClearParams bool
}

func newTabsUpdateCommand() *cobra.Command {
	opts := &TabsUpdateOptions{}
	cmd := &cobra.Command{
		Use:   "update <tab>",
		Short: "Edit fields of a tab",
		Long: `Edit fields of a tab. Only the flags you pass are changed; an update
that leaves every field as it was does not touch storage.`,
		Example: `  playground tabs update 1 --engine movies --param user_id=u-42 --param limit=20
  playground tabs update 2 --content-file query.yaml --preview cards`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			patch, err := buildTabPatch(cmd, opts)
			if err != nil {
				return err
			}
			return withSession(cmd, func(c *CommandContext, s *workspace.Session) error {
				id, err := resolveTabRef(s.Tabs.Tabs(), args[0])
				if err != nil {
					return err
				}
				before := s.Tabs.State()
				s.Tabs.UpdateTab(id, patch)
				if s.Tabs.State() == before {
					c.Renderer.Muted("no changes")
					return nil
				}
				c.Renderer.Success(fmt.Sprintf("updated tab %s", id))
				return nil
			})
		},
	}

	bindTabsUpdateFlags(cmd, opts)
	return cmd
}

func bindTabsUpdateFlags(cmd *cobra.Command, opts *TabsUpdateOptions) {
	f := cmd.Flags()
	f.StringVar(&opts.Content, "content", "", "Query text")
	f.StringVar(&opts.ContentFile, "content-file", "", "Read query text from a file (- for stdin)")
	f.StringVar(&opts.Language, "language", "", "Query language (yaml|sql)")
	f.StringVar(&opts.EditorMode, "editor-mode", "", "Editor highlighting (plain|yaml|sql)")
	f.StringVar(&opts.Engine, "engine", "", "Target engine")
	f.StringVar(&opts.SavedQuery, "saved-query", "", "Linked saved query id")
	f.StringVar(&opts.Preview, "preview", "", "Result layout (table|cards|json)")
	f.StringArrayVarP(&opts.Params, "param", "p", nil, "Parameter value as name=value (repeatable, replaces all parameters)")
	f.BoolVar(&opts.ClearParams, "clear-params", false, "Remove all parameter values")

	_ = cmd.RegisterFlagCompletionFunc("language", fixedCompletion("yaml", "sql"))
	_ = cmd.RegisterFlagCompletionFunc("editor-mode", fixedCompletion("plain", "yaml", "sql"))
	_ = cmd.RegisterFlagCompletionFunc("preview", fixedCompletion("table", "cards", "json"))
}

func buildTabPatch(cmd *cobra.Command, opts *TabsUpdateOptions) (workspace.TabPatch, error) {
	var patch workspace.TabPatch
	f := cmd.Flags()

	if f.Changed("content") && f.Changed("content-file") {
		return patch, fmt.Errorf("--content and --content-file are mutually exclusive")
	}
	if f.Changed("content") {
		patch.Content = &opts.Content
	}
	if f.Changed("content-file") {
		data, err := readInput(cmd, opts.ContentFile)
		if err != nil {
			return patch, err
		}
		content := string(data)
		patch.Content = &content
	}
	if f.Changed("language") {
		lang := core.Language(opts.Language)
		patch.Language = &lang
	}
	if f.Changed("editor-mode") {
		mode := core.EditorMode(opts.EditorMode)
		patch.EditorMode = &mode
	}
	if f.Changed("engine") {
		patch.Engine = &opts.Engine
	}
	if f.Changed("saved-query") {
		patch.SavedQueryID = &opts.SavedQuery
	}
	if f.Changed("preview") {
		preview := core.PreviewMode(opts.Preview)
		patch.PreviewMode = &preview
	}
	if opts.ClearParams && len(opts.Params) > 0 {
		return patch, fmt.Errorf("--param and --clear-params are mutually exclusive")
	}
	if opts.ClearParams {
		empty := map[string]core.ParamValue{}
		patch.ParameterValues = &empty
	}
	if len(opts.Params) > 0 {
		params, err := parseParams(opts.Params)
		if err != nil {
			return patch, err
		}
		patch.ParameterValues = &params
	}
	if err := patch.Validate(); err != nil {
		return patch, fmt.Errorf("invalid tab update: %w", err)
	}
	return patch, nil
}

// withSession loads the stored workspace, runs fn and closes everything.
func withSession(cmd *cobra.Command, fn func(*CommandContext, *workspace.Session) error) error {
	cmdCtx, cleanup, err := NewCommandContext(cmd)
	if err != nil {
		return err
	}
	defer cleanup()

	s := cmdCtx.LoadSession()
	defer s.Close()
	return fn(cmdCtx, s)
}

// renderTabs prints the workspace in the renderer's mode.
func renderTabs(r *output.Renderer, st *core.QueryPageState) error {
	if r.EffectiveMode() == output.ModeJSON {
		return r.JSON(st)
	}

	rows := make([][]string, 0, len(st.Tabs))
	for i, tab := range st.Tabs {
		marker := ""
		if tab.ID == st.ActiveTabID {
			marker = "*"
		}
		rows = append(rows, []string{
			fmt.Sprintf("%d", i+1),
			marker,
			tab.ID,
			tab.Name,
			string(tab.Language),
			tab.Engine,
			formatParams(tab.ParameterValues),
		})
	}
	r.Header(2, fmt.Sprintf("Tabs (%d)", len(st.Tabs)))
	r.Table([]string{"#", "Active", "ID", "Name", "Language", "Engine", "Parameters"}, rows)
	return nil
}

func formatParams(params map[string]core.ParamValue) string {
	if len(params) == 0 {
		return ""
	}
	parts := make([]string, 0, len(params))
	for _, name := range slices.Sorted(maps.Keys(params)) {
		parts = append(parts, name+"="+params[name].String())
	}
	return strings.Join(parts, " ")
}

func fixedCompletion(values ...string) func(*cobra.Command, []string, string) ([]string, cobra.ShellCompDirective) {
	return func(_ *cobra.Command, _ []string, _ string) ([]string, cobra.ShellCompDirective) {
		return values, cobra.ShellCompDirectiveNoFileComp
	}
}
