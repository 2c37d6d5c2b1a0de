package commands

import (
	"errors"
	"fmt"
	"io"
	"maps"
	"path/filepath"
	"strings"

	"github.com/chzyer/readline"
	"github.com/shaped-ai/playground/internal/cli/output"
	"github.com/shaped-ai/playground/internal/workspace"
	"github.com/shaped-ai/playground/pkg/core"
	"github.com/spf13/cobra"
)

const (
	shellPrompt     = "playground> "
	shellEditPrompt = "      ...> "
)

// NewShellCommand creates the shell command.
func NewShellCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "shell [url|token]",
		Short: "Edit the workspace interactively",
		Long: `Start an interactive shell over the workspace. Switching tabs, saving
and running record history entries that .back and .forward walk through,
the same way browser navigation does.

When given a shared link the shell opens that workspace; it is only written
to storage once you change something.`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cmdCtx, cleanup, err := NewCommandContext(cmd)
			if err != nil {
				return err
			}
			defer cleanup()

			token := ""
			if len(args) == 1 {
				token = tokenArg(args[0])
			}
			history := workspace.NewMemoryHistory(token)
			s := cmdCtx.OpenSession(history)
			defer s.Close()
			s.Activate(token)

			sh := &shell{
				session: s,
				history: history,
				out:     cmdCtx.Renderer,
				baseURL: cmdCtx.Cfg.BaseURL,
			}
			return sh.loop(cmd, filepath.Join(filepath.Dir(cmdCtx.Cfg.StatePath), "shell_history"))
		},
	}
	return cmd
}

// shell interprets dot-commands against one session.
type shell struct {
	session *workspace.Session
	history *workspace.MemoryHistory
	out     *output.Renderer
	baseURL string

	// editing collects lines for .edit until a lone ".".
	editing *strings.Builder
}

func (sh *shell) loop(cmd *cobra.Command, historyFile string) error {
	rl, err := readline.NewEx(&readline.Config{
		Prompt:          shellPrompt,
		HistoryFile:     historyFile,
		AutoComplete:    newShellCompleter(),
		InterruptPrompt: "^C",
		EOFPrompt:       ".quit",
		Stdin:           io.NopCloser(cmd.InOrStdin()),
		Stdout:          cmd.OutOrStdout(),
		Stderr:          cmd.ErrOrStderr(),
	})
	if err != nil {
		return fmt.Errorf("failed to initialize shell: %w", err)
	}
	defer func() { _ = rl.Close() }()

	sh.out.Printf("Playground shell (%s)\n", sh.session.Resolver.ResolveKey())
	sh.out.Println("Type .help for commands, .quit to exit")
	sh.out.Println()

	for {
		// The restoration window closes one turn after activation.
		sh.session.Tick()

		line, err := rl.Readline()
		if errors.Is(err, readline.ErrInterrupt) {
			sh.editing = nil
			rl.SetPrompt(shellPrompt)
			continue
		}
		if errors.Is(err, io.EOF) {
			return nil
		}

		if sh.exec(line) {
			return nil
		}
		if sh.editing != nil {
			rl.SetPrompt(shellEditPrompt)
		} else {
			rl.SetPrompt(shellPrompt)
		}
	}
}

// exec runs one input line and reports whether the shell should exit.
func (sh *shell) exec(line string) bool {
	if sh.editing != nil {
		if strings.TrimSpace(line) == "." {
			content := strings.TrimSuffix(sh.editing.String(), "\n")
			sh.editing = nil
			sh.patchActive(workspace.TabPatch{Content: &content})
			return false
		}
		sh.editing.WriteString(line)
		sh.editing.WriteString("\n")
		return false
	}

	line = strings.TrimSpace(line)
	if line == "" {
		return false
	}
	command, rest, _ := strings.Cut(line, " ")
	rest = strings.TrimSpace(rest)

	var err error
	switch strings.ToLower(command) {
	case ".quit", ".exit":
		return true
	case ".help":
		printShellHelp(sh.out)
	case ".tabs":
		err = renderTabs(sh.out, sh.session.Tabs.State())
	case ".show":
		sh.show()
	case ".add":
		id := sh.session.Tabs.AddTab()
		if rest != "" {
			sh.session.Tabs.RenameTab(id, rest)
		}
		sh.out.Success("added " + id)
	case ".close":
		err = sh.withTab(rest, func(id string) { sh.session.Tabs.CloseTab(id) })
	case ".switch":
		err = sh.withTab(rest, func(id string) { sh.session.Tabs.SetActiveTab(id) })
	case ".rename":
		sh.patchActive(workspace.TabPatch{Name: &rest})
	case ".set":
		err = sh.set(rest)
	case ".param":
		err = sh.param(rest)
	case ".unparam":
		sh.unparam(rest)
	case ".edit":
		sh.editing = &strings.Builder{}
		sh.out.Muted("enter query text, finish with a line containing only .")
	case ".back":
		sh.navigate(sh.history.Back)
	case ".forward":
		sh.navigate(sh.history.Forward)
	case ".save":
		err = sh.session.Save()
		if err == nil {
			sh.out.Success("saved")
		}
	case ".run":
		sh.session.Commit("run")
		sh.out.Muted("query execution is handled by the engine; recorded a history entry")
	case ".share":
		var url string
		if url, err = sh.session.ShareURL(sh.baseURL); err == nil {
			sh.out.Println(url)
		}
	case ".history":
		sh.out.Printf("entry %d of %d\n", sh.history.Index()+1, sh.history.Len())
	default:
		err = fmt.Errorf("unknown command: %s (type .help for commands)", command)
	}
	if err != nil {
		sh.out.Warning(err.Error())
	}
	return false
}

func (sh *shell) withTab(ref string, fn func(id string)) error {
	id, err := resolveTabRef(sh.session.Tabs.Tabs(), ref)
	if err != nil {
		return err
	}
	fn(id)
	return nil
}

func (sh *shell) patchActive(patch workspace.TabPatch) {
	if err := patch.Validate(); err != nil {
		sh.out.Warning(err.Error())
		return
	}
	sh.session.Tabs.UpdateTab(sh.session.Tabs.ActiveTabID(), patch)
}

func (sh *shell) set(args string) error {
	field, value, _ := strings.Cut(args, " ")
	value = strings.TrimSpace(value)

	var patch workspace.TabPatch
	switch field {
	case "content":
		patch.Content = &value
	case "engine":
		patch.Engine = &value
	case "language":
		lang := core.Language(value)
		patch.Language = &lang
	case "editor":
		mode := core.EditorMode(value)
		patch.EditorMode = &mode
	case "preview":
		mode := core.PreviewMode(value)
		patch.PreviewMode = &mode
	case "saved":
		patch.SavedQueryID = &value
	default:
		return fmt.Errorf("usage: .set content|engine|language|editor|preview|saved <value>")
	}
	sh.patchActive(patch)
	return nil
}

func (sh *shell) param(args string) error {
	params, err := parseParams(strings.Fields(args))
	if err != nil {
		return err
	}
	tab, _ := sh.session.Tabs.ActiveTab()
	merged := maps.Clone(tab.ParameterValues)
	if merged == nil {
		merged = make(map[string]core.ParamValue, len(params))
	}
	maps.Copy(merged, params)
	sh.patchActive(workspace.TabPatch{ParameterValues: &merged})
	return nil
}

func (sh *shell) unparam(names string) {
	tab, _ := sh.session.Tabs.ActiveTab()
	remaining := maps.Clone(tab.ParameterValues)
	for _, name := range strings.Fields(names) {
		delete(remaining, name)
	}
	sh.patchActive(workspace.TabPatch{ParameterValues: &remaining})
}

func (sh *shell) navigate(move func() (workspace.NavigationSource, bool)) {
	src, ok := move()
	if !ok {
		sh.out.Muted("no further history")
		return
	}
	if !sh.session.Navigate(src) {
		sh.out.Warning("history entry carries no usable workspace")
		return
	}
	tab, _ := sh.session.Tabs.ActiveTab()
	sh.out.Printf("now on %s (%s)\n", tab.Name, tab.ID)
}

func (sh *shell) show() {
	tab, ok := sh.session.Tabs.ActiveTab()
	if !ok {
		return
	}
	sh.out.Header(2, fmt.Sprintf("%s (%s)", tab.Name, tab.ID))
	sh.out.Println(output.FormatKeyValue("Language", string(tab.Language)))
	if tab.Engine != "" {
		sh.out.Println(output.FormatKeyValue("Engine", tab.Engine))
	}
	if p := formatParams(tab.ParameterValues); p != "" {
		sh.out.Println(output.FormatKeyValue("Parameters", p))
	}
	sh.out.Println()
	sh.out.Println(tab.Content)
}

func newShellCompleter() *readline.PrefixCompleter {
	return readline.NewPrefixCompleter(
		readline.PcItem(".help"),
		readline.PcItem(".tabs"),
		readline.PcItem(".show"),
		readline.PcItem(".add"),
		readline.PcItem(".close"),
		readline.PcItem(".switch"),
		readline.PcItem(".rename"),
		readline.PcItem(".set",
			readline.PcItem("content"),
			readline.PcItem("engine"),
			readline.PcItem("language", readline.PcItem("yaml"), readline.PcItem("sql")),
			readline.PcItem("editor", readline.PcItem("plain"), readline.PcItem("yaml"), readline.PcItem("sql")),
			readline.PcItem("preview", readline.PcItem("table"), readline.PcItem("cards"), readline.PcItem("json")),
			readline.PcItem("saved"),
		),
		readline.PcItem(".param"),
		readline.PcItem(".unparam"),
		readline.PcItem(".edit"),
		readline.PcItem(".back"),
		readline.PcItem(".forward"),
		readline.PcItem(".save"),
		readline.PcItem(".run"),
		readline.PcItem(".share"),
		readline.PcItem(".history"),
		readline.PcItem(".quit"),
	)
}

func printShellHelp(r *output.Renderer) {
	r.Println(`Commands:
  .tabs                    List tabs
  .show                    Show the active tab
  .add [name]              Add a tab and switch to it
  .close <tab>             Close a tab
  .switch <tab>            Switch tabs (recorded in history)
  .rename <name>           Rename the active tab
  .set <field> <value>     Set content, engine, language, editor, preview or saved
  .param name=value ...    Set parameter values on the active tab
  .unparam name ...        Remove parameter values
  .edit                    Enter multi-line query text, end with "."
  .back / .forward         Walk history
  .save                    Save and record a history entry
  .run                     Record a run in history
  .share                   Print a shareable URL
  .history                 Show the history position
  .quit                    Exit`)
}
