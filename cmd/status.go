package cmd

import (
	"github.com/spf13/cobra"

	"coldstage.dev/pkg/coldstage/internal/controller"
	m "coldstage.dev/pkg/coldstage/internal/model"
)

// statusCmd represents the status command.
var statusCmd = newStatusCmd()

func newStatusCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "status [source]",
		Short: "Show staged sources and the state of their targets",
		Long: `Print every staged source with its hash status and a table of its targets.
With a source path or alias as argument, only that source is shown.`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			store, err := openStore()
			if err != nil {
				return err
			}

			state := store.Snapshot()

			if len(args) == 1 {
				src, err := store.ResolveSource(args[0])
				if err != nil {
					return err
				}

				state = &m.State{Version: state.Version, Sources: []*m.Source{src}}
			}

			ui := controller.NewWriterUI(cmd.OutOrStdout())
			ui.DisplayStatus(state)

			return nil
		},
	}
}

func init() {
	rootCmd.AddCommand(statusCmd)
}
