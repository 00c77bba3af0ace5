package cmd

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"coldstage.dev/pkg/coldstage/internal/controller"
	"coldstage.dev/pkg/coldstage/internal/domain"
)

const sessionHelp = `Commands:
  stage <path> [alias]                stage a source directory
  add-target <source> <path> [alias]  register a destination for a source
  status                              show all sources and targets
  help                                show this help
  exit                                finish running operations and leave`

// interactiveCmd represents the interactive command.
var interactiveCmd = newInteractiveCmd()

func newInteractiveCmd() *cobra.Command {
	return &cobra.Command{
		Use:     "interactive",
		Aliases: []string{"shell"},
		Short:   "Run an interactive session that backs up work as it is staged",
		Long: `Open an interactive prompt. Sources and targets staged at the prompt are
picked up by the running pipeline immediately, so new work proceeds while
earlier transfers are still going. Exiting waits for running operations
and prints the session report.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			store, err := openStore()
			if err != nil {
				return err
			}

			// The shell needs the command executor and the scheduler needs
			// the shell as its UI, so the session is filled in after both
			// exist; the closure only runs once the shell does.
			var session *domain.Session

			shell := controller.NewShell(func(line string) (string, error) {
				return runSessionLine(session, line)
			})

			sched, disks := newLocalScheduler(store, shell, domain.WithLinger())
			session = domain.NewSession(store, disks, sched)
			session.Start(cmd.Context())

			if err := shell.Run(); err != nil {
				return err
			}

			report, runErr := session.Stop()
			if runErr != nil {
				return runErr
			}

			ui := controller.NewWriterUI(cmd.OutOrStdout())
			ui.DisplayReport(report)

			if report.HasFailures() {
				return fmt.Errorf("%d operation(s) failed", len(report.Failed))
			}

			return nil
		},
	}
}

func runSessionLine(session *domain.Session, line string) (string, error) {
	fields := strings.Fields(line)

	switch fields[0] {
	case "stage":
		if len(fields) < 2 || len(fields) > 3 {
			return "", fmt.Errorf("usage: stage <path> [alias]")
		}

		alias := ""
		if len(fields) == 3 {
			alias = fields[2]
		}

		err := session.AddSource(fields[1], alias, viper.GetString(hashAlgorithmConfigKey))
		if err != nil {
			return "", err
		}

		return "staged " + fields[1], nil

	case "add-target":
		if len(fields) < 3 || len(fields) > 4 {
			return "", fmt.Errorf("usage: add-target <source> <path> [alias]")
		}

		alias := ""
		if len(fields) == 4 {
			alias = fields[3]
		}

		err := session.AddTarget(fields[1], fields[2], alias, true)
		if err != nil {
			return "", err
		}

		return "added target " + fields[2], nil

	case "status":
		return controller.RenderStatus(session.Snapshot()), nil

	case "help":
		return sessionHelp, nil

	default:
		return "", fmt.Errorf("unknown command %q; try help", fields[0])
	}
}

func init() {
	rootCmd.AddCommand(interactiveCmd)
}
