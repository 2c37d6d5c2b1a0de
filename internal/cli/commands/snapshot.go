package commands

import (
	"fmt"
	"os"

	"github.com/shaped-ai/playground/internal/workspace"
	"github.com/spf13/cobra"
)

// NewExportCommand creates the export command.
func NewExportCommand() *cobra.Command {
	var format, file string
	cmd := &cobra.Command{
		Use:   "export",
		Short: "Write the stored workspace as JSON or YAML",
		Example: `  playground export > workspace.json
  playground export --format yaml --file workspace.yaml`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			f, err := exportFormat(format, file)
			if err != nil {
				return err
			}
			return withSession(cmd, func(c *CommandContext, s *workspace.Session) error {
				data, err := workspace.MarshalSnapshot(s.Tabs.State(), f)
				if err != nil {
					return err
				}
				if file == "" || file == "-" {
					_, err = cmd.OutOrStdout().Write(data)
					return err
				}
				if err := os.WriteFile(file, data, 0o600); err != nil {
					return fmt.Errorf("failed to write %s: %w", file, err)
				}
				c.Renderer.Success(fmt.Sprintf("exported %d tabs to %s", len(s.Tabs.State().Tabs), file))
				return nil
			})
		},
	}
	cmd.Flags().StringVar(&format, "format", "", "Output format (json|yaml); defaults from the file extension")
	cmd.Flags().StringVarP(&file, "file", "f", "", "Write to a file instead of stdout")
	_ = cmd.RegisterFlagCompletionFunc("format", fixedCompletion("json", "yaml"))
	return cmd
}

// NewImportCommand creates the import command.
func NewImportCommand() *cobra.Command {
	var format string
	cmd := &cobra.Command{
		Use:   "import [file]",
		Short: "Replace the stored workspace with a JSON or YAML document",
		Example: `  playground import workspace.yaml
  cat workspace.json | playground import`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			path := ""
			if len(args) == 1 {
				path = args[0]
			}
			data, err := readInput(cmd, path)
			if err != nil {
				return err
			}

			f := workspace.FormatForPath(path)
			switch {
			case format != "":
				if f, err = workspace.ParseSnapshotFormat(format); err != nil {
					return err
				}
			case path == "" || path == "-":
				f = sniffFormat(data)
			}
			st, err := workspace.UnmarshalSnapshot(data, f)
			if err != nil {
				return err
			}

			return withSession(cmd, func(c *CommandContext, s *workspace.Session) error {
				s.Tabs.Replace(st, workspace.ActionRestore)
				if err := s.Save(); err != nil {
					return err
				}
				c.Renderer.Success(fmt.Sprintf("imported %d tabs into %s", len(s.Tabs.State().Tabs), s.Resolver.ResolveKey()))
				return nil
			})
		},
	}
	cmd.Flags().StringVar(&format, "format", "", "Input format (json|yaml); defaults from the file extension")
	return cmd
}

func exportFormat(format, file string) (workspace.SnapshotFormat, error) {
	if format != "" {
		return workspace.ParseSnapshotFormat(format)
	}
	if file != "" && file != "-" {
		return workspace.FormatForPath(file), nil
	}
	return workspace.FormatJSON, nil
}
