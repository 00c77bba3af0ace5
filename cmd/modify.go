package cmd

import (
	"github.com/spf13/cobra"

	"coldstage.dev/pkg/coldstage/internal/adapter"
	m "coldstage.dev/pkg/coldstage/internal/model"
)

var modifyAliasFlag string
var modifyAlgorithmFlag string
var modifyAllowFlag []string
var modifyBlockFlag []string
var modifyNoVerifyFlag bool

// modifyCmd represents the modify command.
var modifyCmd = newModifyCmd()

func newModifyCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "modify <source> [target]",
		Short: "Change settings of a staged source or one of its targets",
		Long: `Change the recorded settings of a staged source, or of one of its targets
when a target reference is given as well. Only settings passed as flags
are changed. The hash algorithm and filter lists of an already hashed
source cannot be changed, since the existing checksum file would no
longer match.`,
		Args: cobra.RangeArgs(1, 2),
		RunE: func(cmd *cobra.Command, args []string) error {
			store, err := openStore()
			if err != nil {
				return err
			}

			targetRef := ""
			if len(args) == 2 {
				targetRef = args[1]
			}

			return store.Modify(args[0], targetRef, func(src *m.Source, tgt *m.Target) error {
				if tgt != nil {
					return applyTargetChanges(cmd, tgt)
				}

				return applySourceChanges(cmd, src)
			})
		},
	}

	configureModifyFlags(cmd)

	return cmd
}

func applySourceChanges(cmd *cobra.Command, src *m.Source) error {
	// Validate every flag before touching the record, so a rejected call
	// leaves the source exactly as it was.
	rehashNeeded := cmd.Flags().Changed("hash-algorithm") ||
		cmd.Flags().Changed("allow") || cmd.Flags().Changed("block")

	if rehashNeeded && src.Status != m.Unhashed {
		return m.Conflictf("source %s is already %s; hash settings are fixed once hashing starts", src.Path, src.Status)
	}

	if cmd.Flags().Changed("hash-algorithm") {
		if _, err := adapter.NewDigest(modifyAlgorithmFlag); err != nil {
			return err
		}
	}

	if cmd.Flags().Changed(aliasFlagName) {
		src.Alias = modifyAliasFlag
	}

	if cmd.Flags().Changed("hash-algorithm") {
		src.HashAlgorithm = modifyAlgorithmFlag
	}

	if cmd.Flags().Changed("allow") {
		src.Allowlist = modifyAllowFlag
	}

	if cmd.Flags().Changed("block") {
		src.Blocklist = modifyBlockFlag
	}

	return nil
}

func applyTargetChanges(cmd *cobra.Command, tgt *m.Target) error {
	if cmd.Flags().Changed("hash-algorithm") || cmd.Flags().Changed("allow") || cmd.Flags().Changed("block") {
		return m.Conflictf("hash settings belong to the source, not target %s", tgt.Path)
	}

	if cmd.Flags().Changed(aliasFlagName) {
		tgt.Alias = modifyAliasFlag
	}

	if cmd.Flags().Changed("no-verify") {
		tgt.Verify = !modifyNoVerifyFlag
	}

	return nil
}

func init() {
	rootCmd.AddCommand(modifyCmd)
}

func configureModifyFlags(cmd *cobra.Command) {
	cmd.Flags().StringVarP(&modifyAliasFlag, aliasFlagName, "a", "", "new alias; pass an empty string to clear it")
	cmd.Flags().StringVar(&modifyAlgorithmFlag, "hash-algorithm", "", "new checksum algorithm for a not-yet-hashed source")
	cmd.Flags().StringSliceVar(&modifyAllowFlag, "allow", nil, "replace the allowlist of a not-yet-hashed source")
	cmd.Flags().StringSliceVar(&modifyBlockFlag, "block", nil, "replace the blocklist of a not-yet-hashed source")
	cmd.Flags().BoolVar(&modifyNoVerifyFlag, "no-verify", false, "skip (or with --no-verify=false re-enable) verification for a target")
}
