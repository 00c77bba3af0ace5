package cmd

import (
	"github.com/spf13/cobra"

	m "coldstage.dev/pkg/coldstage/internal/model"
)

// scopeFlags holds the --source/--target pair shared by every command that
// drives the pipeline.
type scopeFlags struct {
	source string
	target string
}

func (f *scopeFlags) register(cmd *cobra.Command) {
	cmd.Flags().StringVarP(&f.source, sourceFlagName, "s", "", "limit to one source, by path or alias")
	cmd.Flags().StringVarP(&f.target, targetFlagName, "t", "", "limit to one target, by path or alias")
}

var runReportFileFlag string

// runCmd represents the run command.
var runCmd = newRunCmd()

// hashCmd, transferCmd and verifyCmd run a single pipeline stage.
var hashCmd = newHashCmd()
var transferCmd = newTransferCmd()
var verifyCmd = newVerifyCmd()

func newHashCmd() *cobra.Command {
	return newStageBoundCmd(
		"hash", "Hash staged sources", m.OpHash,
		`Compute checksums for staged sources that have not been hashed yet and
write a checksum file into each source directory. Later stages are not
run.`,
	)
}

func newTransferCmd() *cobra.Command {
	return newStageBoundCmd(
		"transfer", "Copy hashed sources to their targets", m.OpTransfer,
		`Copy hashed sources to their registered targets, including the checksum
file. Sources that still need hashing are hashed first; verification is
not run.`,
	)
}

func newVerifyCmd() *cobra.Command {
	return newStageBoundCmd(
		"verify", "Verify transferred targets against their checksums", m.OpVerify,
		`Re-read every transferred target and compare it against the checksum file
copied with it. Earlier stages are run first where still outstanding.`,
	)
}

func newRunCmd() *cobra.Command {
	scope := &scopeFlags{}

	cmd := &cobra.Command{
		Use:   "run",
		Short: "Run the full hash, transfer and verify pipeline",
		Long: `Drive every staged source/target pair through hashing, transfer and
verification, running operations concurrently but never more than one per
physical disk. Interrupted work resumes from the recorded state. The exit
code is non-zero when any operation failed.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runScoped(cmd, m.OpVerify, scope.source, scope.target, runReportFileFlag)
		},
	}

	scope.register(cmd)
	cmd.Flags().StringVar(&runReportFileFlag, reportFileFlagName, "", "write a YAML run report to this file")

	return cmd
}

// newStageBoundCmd builds the hash/transfer/verify commands, which differ
// only in how far down the pipeline they go.
func newStageBoundCmd(use, short string, stage m.OpKind, long string) *cobra.Command {
	scope := &scopeFlags{}

	cmd := &cobra.Command{
		Use:   use,
		Short: short,
		Long:  long,
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runScoped(cmd, stage, scope.source, scope.target, "")
		},
	}

	scope.register(cmd)

	return cmd
}

func init() {
	rootCmd.AddCommand(runCmd)
	rootCmd.AddCommand(hashCmd)
	rootCmd.AddCommand(transferCmd)
	rootCmd.AddCommand(verifyCmd)
}
