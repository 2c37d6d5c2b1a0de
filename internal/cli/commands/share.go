package commands

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/shaped-ai/playground/internal/cli/output"
	"github.com/shaped-ai/playground/internal/workspace"
	"github.com/spf13/cobra"
)

// NewShareCommand creates the share command.
func NewShareCommand() *cobra.Command {
	var tokenOnly bool
	cmd := &cobra.Command{
		Use:   "share",
		Short: "Print a shareable URL for the stored workspace",
		Long: `Print a URL that reproduces the stored workspace, including every tab,
its parameters and the active tab, for whoever opens it.`,
		Example: `  playground share
  playground share --token-only
  playground share --base-url https://playground.example.com/`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return withSession(cmd, func(c *CommandContext, s *workspace.Session) error {
				if tokenOnly {
					c.Renderer.Println(s.Bridge.Token())
					return nil
				}
				url, err := s.ShareURL(c.Cfg.BaseURL)
				if err != nil {
					return err
				}
				c.Renderer.Println(url)
				return nil
			})
		},
	}
	cmd.Flags().BoolVar(&tokenOnly, "token-only", false, "Print only the q token")
	return cmd
}

// NewOpenCommand creates the open command.
func NewOpenCommand() *cobra.Command {
	var save bool
	cmd := &cobra.Command{
		Use:   "open <url|token>",
		Short: "Show the workspace a shared URL carries",
		Long: `Decode a shared URL (or bare token) and show its tabs.

Opening a link never overwrites your stored workspace. Pass --save to adopt
the shared workspace as your own.`,
		Example: `  playground open 'http://localhost:8765/?q=...'
  playground open 'http://localhost:8765/?q=...' --save`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cmdCtx, cleanup, err := NewCommandContext(cmd)
			if err != nil {
				return err
			}
			defer cleanup()

			token := tokenArg(args[0])
			if st, ok := workspace.NewCodec(cmdCtx.Logger).Decode(token); !ok || len(st.Tabs) == 0 {
				return fmt.Errorf("link does not carry a workspace")
			}

			s := cmdCtx.OpenSession(workspace.NewMemoryHistory(token))
			defer s.Close()
			s.Activate(token)
			s.Tick()

			if save {
				if err := s.Save(); err != nil {
					return err
				}
			}
			if err := renderTabs(cmdCtx.Renderer, s.Tabs.State()); err != nil {
				return err
			}
			if save {
				cmdCtx.Renderer.Success(fmt.Sprintf("saved to %s", s.Resolver.ResolveKey()))
			}
			return nil
		},
	}
	cmd.Flags().BoolVar(&save, "save", false, "Replace the stored workspace with the shared one")
	return cmd
}

// NewEncodeCommand creates the encode command.
func NewEncodeCommand() *cobra.Command {
	var asURL bool
	cmd := &cobra.Command{
		Use:   "encode [file]",
		Short: "Encode a workspace JSON or YAML document as a q token",
		Example: `  playground export | playground encode
  playground encode workspace.yaml --url`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			c := NewCommandContextWithoutStore(cmd)
			path := ""
			if len(args) == 1 {
				path = args[0]
			}
			data, err := readInput(cmd, path)
			if err != nil {
				return err
			}

			format := workspace.FormatForPath(path)
			if path == "" || path == "-" {
				format = sniffFormat(data)
			}
			st, err := workspace.UnmarshalSnapshot(data, format)
			if err != nil {
				return err
			}

			token := workspace.NewCodec(c.Logger).Encode(st)
			if token == "" {
				return fmt.Errorf("workspace could not be encoded")
			}
			if !asURL {
				c.Renderer.Println(token)
				return nil
			}
			url, err := workspace.WithToken(c.Cfg.BaseURL, token)
			if err != nil {
				return err
			}
			c.Renderer.Println(url)
			return nil
		},
	}
	cmd.Flags().BoolVar(&asURL, "url", false, "Print a full URL instead of the bare token")
	return cmd
}

// NewDecodeCommand creates the decode command.
func NewDecodeCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "decode <url|token>",
		Short: "Decode a q token into workspace JSON",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			c := NewCommandContextWithoutStore(cmd)
			st, ok := workspace.NewCodec(c.Logger).Decode(tokenArg(args[0]))
			if !ok {
				return fmt.Errorf("not a valid workspace token")
			}
			if c.Renderer.EffectiveMode() == output.ModeText {
				return renderTabs(c.Renderer, st)
			}
			return c.Renderer.JSON(st)
		},
	}
	return cmd
}

// tokenArg accepts either a URL carrying q or a bare token.
func tokenArg(arg string) string {
	arg = strings.TrimSpace(arg)
	if strings.HasPrefix(arg, "q=") {
		arg = "?" + arg
	}
	if strings.Contains(arg, "://") || strings.HasPrefix(arg, "?") || strings.HasPrefix(arg, "/") {
		return workspace.TokenFromURL(arg)
	}
	return arg
}

// sniffFormat treats input that parses as JSON as JSON and anything else as YAML.
func sniffFormat(data []byte) workspace.SnapshotFormat {
	if json.Valid(data) {
		return workspace.FormatJSON
	}
	return workspace.FormatYAML
}
