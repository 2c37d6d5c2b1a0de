package commands

import (
	"fmt"
	"strings"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/shaped-ai/playground/internal/cli/output"
	"github.com/shaped-ai/playground/internal/state"
	"github.com/shaped-ai/playground/internal/workspace"
	"github.com/spf13/cobra"
)

// NewPartitionsCommand creates the partitions command.
func NewPartitionsCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "partitions",
		Short: "List or clear stored workspaces",
		Long: `Each assumed identity keeps its workspace in its own partition of the
state file. Without an identity the default partition is used.`,
		Example: `  playground partitions
  playground partitions clear --assume-user alice
  playground partitions clear --all`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			c, cleanup, err := NewCommandContext(cmd)
			if err != nil {
				return err
			}
			defer cleanup()

			infos, err := c.Store.Partitions()
			if err != nil {
				return err
			}
			return renderPartitions(c.Renderer, infos, time.Now())
		},
	}

	cmd.AddCommand(newPartitionsClearCommand())
	return cmd
}

func newPartitionsClearCommand() *cobra.Command {
	var all bool
	cmd := &cobra.Command{
		Use:   "clear",
		Short: "Delete the workspace of the current identity",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			c, cleanup, err := NewCommandContext(cmd)
			if err != nil {
				return err
			}
			defer cleanup()

			keys := []string{workspace.NewPartitionResolver(c.Identity()).ResolveKey()}
			if all {
				if keys, err = c.Store.Keys(); err != nil {
					return err
				}
			}
			for _, key := range keys {
				if err := c.Store.Delete(key); err != nil {
					return err
				}
				c.Logger.Debug("partition cleared", "partition", key)
			}
			c.Renderer.Success(fmt.Sprintf("Cleared %d partition(s)", len(keys)))
			return nil
		},
	}
	cmd.Flags().BoolVar(&all, "all", false, "Clear every partition")
	return cmd
}

func renderPartitions(r *output.Renderer, infos []state.PartitionInfo, now time.Time) error {
	if r.EffectiveMode() == output.ModeJSON {
		type partitionJSON struct {
			Key       string    `json:"key"`
			Identity  string    `json:"identity,omitempty"`
			Bytes     int       `json:"bytes"`
			UpdatedAt time.Time `json:"updatedAt"`
		}
		out := make([]partitionJSON, 0, len(infos))
		for _, info := range infos {
			out = append(out, partitionJSON{
				Key:       info.Key,
				Identity:  partitionIdentity(info.Key),
				Bytes:     info.Bytes,
				UpdatedAt: info.UpdatedAt,
			})
		}
		return r.JSON(out)
	}

	if len(infos) == 0 {
		r.Muted("No stored workspaces")
		return nil
	}

	rows := make([][]string, 0, len(infos))
	for _, info := range infos {
		identity := partitionIdentity(info.Key)
		if identity == "" {
			identity = "(none)"
		}
		rows = append(rows, []string{
			info.Key,
			identity,
			humanize.Bytes(uint64(max(info.Bytes, 0))),
			humanize.RelTime(info.UpdatedAt, now, "ago", "from now"),
		})
	}
	r.Header(2, fmt.Sprintf("Partitions (%d)", len(infos)))
	r.Table([]string{"Key", "Identity", "Size", "Updated"}, rows)
	return nil
}

// partitionIdentity returns the identity part of a partition key.
func partitionIdentity(key string) string {
	_, identity, _ := strings.Cut(key, workspace.DefaultPartitionKey+":")
	return identity
}
