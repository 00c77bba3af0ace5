// Package cmd provides the root command and CLI setup for coldstage.
package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

// stateFileFlag holds the --state-file value shared by every subcommand.
var stateFileFlag string

const rootLongDescription = `Coldstage orchestrates multi-target, multi-disk cold-storage backups:
stage source directories, register target locations, then drive every
source/target pair through hash, transfer and verify — never running more
than one operation per physical disk at a time.

State lives in a JSON file (default backup_status.json); log files are
written beside it. Sources and targets can be addressed by absolute path
or by alias in every command.`

// rootCmd represents the base command when called without any subcommands.
var rootCmd = newRootCmd()

func newRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "coldstage",
		Short: "Multi-disk cold-storage backup orchestrator",
		Long:  rootLongDescription,
		PersistentPreRun: func(_ *cobra.Command, _ []string) {
			configureLogger()
		},
		RunE: func(cmd *cobra.Command, _ []string) error {
			return cmd.Help()
		},
		SilenceUsage: true,
	}

	configureRootFlags(cmd)

	return cmd
}

func configureRootFlags(cmd *cobra.Command) {
	cmd.PersistentFlags().StringVar(
		&stateFileFlag, stateFileFlagName,
		viper.GetString(stateFileFlagName),
		"path to the JSON file holding the backup state",
	)
	bindFlagToConfig(cmd.PersistentFlags().Lookup(stateFileFlagName), stateFileFlagName)
}

// bindFlagToConfig wires a Cobra flag to a Viper key so config/env values feed the flag.
func bindFlagToConfig(flag *pflag.Flag, key string) {
	if flag == nil {
		cobra.CheckErr(fmt.Errorf("flag for config key %q not found", key))
		return
	}

	cobra.CheckErr(viper.BindPFlag(key, flag))
}

// Execute adds all child commands to the root command and sets flags appropriately.
// This is called by main.main(). It only needs to happen once to the rootCmd.
func Execute() {
	err := rootCmd.Execute()
	if err != nil {
		os.Exit(1)
	}
}
