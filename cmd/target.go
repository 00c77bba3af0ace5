package cmd

import (
	"github.com/spf13/cobra"

	"coldstage.dev/pkg/coldstage/internal/adapter"
	"coldstage.dev/pkg/coldstage/internal/domain"
	m "coldstage.dev/pkg/coldstage/internal/model"
)

var targetAliasFlag string
var targetNoVerifyFlag bool

// addTargetCmd represents the add-target command.
var addTargetCmd = newAddTargetCmd()

func newAddTargetCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "add-target <source> <directory>",
		Short: "Register a backup destination for a staged source",
		Long: `Register a destination directory for an already-staged source. The source
may be given as its path or its alias. The directory does not have to
exist yet, but its disk must be reachable through an existing ancestor.`,
		Args: cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			store, err := openStore()
			if err != nil {
				return err
			}

			err = domain.RegisterTarget(store, adapter.NewDiskManager(), args[0], &m.Target{
				Path:   args[1],
				Alias:  targetAliasFlag,
				Verify: !targetNoVerifyFlag,
			})
			if err != nil {
				return err
			}

			cmd.Printf("Added target %s for %s\n", m.NormalizePath(args[1]), args[0])

			return nil
		},
	}

	configureAddTargetFlags(cmd)

	return cmd
}

func init() {
	rootCmd.AddCommand(addTargetCmd)
}

func configureAddTargetFlags(cmd *cobra.Command) {
	cmd.Flags().StringVarP(&targetAliasFlag, aliasFlagName, "a", "", "alias for addressing this target in later commands")
	cmd.Flags().BoolVar(&targetNoVerifyFlag, "no-verify", false, "skip checksum verification after transferring to this target")
}
