package cmd

import (
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"coldstage.dev/pkg/coldstage/internal/adapter"
	"coldstage.dev/pkg/coldstage/internal/domain"
	m "coldstage.dev/pkg/coldstage/internal/model"
)

var stageAliasFlag string
var stageAlgorithmFlag string
var stageAllowFlag []string
var stageBlockFlag []string

// stageCmd represents the stage command.
var stageCmd = newStageCmd()

func newStageCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "stage <directory>",
		Short: "Register a source directory for backup",
		Long: `Register a directory as a backup source. Staging only records the source
in the state file; hashing and transfers happen on the next run. The
optional alias can be used instead of the path in every other command.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			store, err := openStore()
			if err != nil {
				return err
			}

			err = domain.StageSource(store, adapter.NewDiskManager(), &m.Source{
				Path:          args[0],
				Alias:         stageAliasFlag,
				HashAlgorithm: stageAlgorithmFlag,
				Allowlist:     stageAllowFlag,
				Blocklist:     stageBlockFlag,
			})
			if err != nil {
				return err
			}

			cmd.Printf("Staged %s\n", m.NormalizePath(args[0]))

			return nil
		},
	}

	configureStageFlags(cmd)

	return cmd
}

func init() {
	rootCmd.AddCommand(stageCmd)
}

func configureStageFlags(cmd *cobra.Command) {
	cmd.Flags().StringVarP(&stageAliasFlag, aliasFlagName, "a", "", "alias for addressing this source in later commands")
	cmd.Flags().StringVar(&stageAlgorithmFlag, "hash-algorithm", viper.GetString(hashAlgorithmConfigKey), "checksum algorithm: md5, sha1, sha256 or sha512")
	cmd.Flags().StringSliceVar(&stageAllowFlag, "allow", nil, "glob pattern of files to include; wins over --block (repeatable)")
	cmd.Flags().StringSliceVar(&stageBlockFlag, "block", nil, "glob pattern of files to exclude from hashing and transfer (repeatable)")
}
