package cmd

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"

	"coldstage.dev/pkg/coldstage/internal/adapter"
	"coldstage.dev/pkg/coldstage/internal/controller"
	"coldstage.dev/pkg/coldstage/internal/domain"
	m "coldstage.dev/pkg/coldstage/internal/model"
)

func statePath() string {
	return viper.GetString(stateFileFlagName)
}

func openStore() (*adapter.Store, error) {
	return adapter.LoadStore(statePath())
}

func newLocalScheduler(store *adapter.Store, ui controller.UI, options ...domain.SchedulerOption) (*domain.Scheduler, adapter.DiskArbiter) {
	disks := adapter.NewDiskManager()
	options = append(options, domain.WithUI(ui))

	sched := domain.NewScheduler(
		store,
		disks,
		adapter.NewLocalHasher(),
		adapter.NewLocalTransporter(),
		adapter.NewLocalVerifier(),
		options...,
	)

	return sched, disks
}

// resolveScope turns the --source/--target references into a plan scope of
// normalized paths. A bare --target is resolved across all sources.
func resolveScope(store *adapter.Store, stage m.OpKind, sourceRef, targetRef string) (domain.Scope, error) {
	scope := domain.Scope{Stage: stage}

	switch {
	case sourceRef == "" && targetRef == "":
		return scope, nil

	case sourceRef != "" && targetRef != "":
		src, tgt, err := store.ResolveTarget(sourceRef, targetRef)
		if err != nil {
			return scope, err
		}

		scope.Source, scope.Target = src.Path, tgt.Path

		return scope, nil

	case sourceRef != "":
		res := store.Resolve(sourceRef)
		if err := res.Err(sourceRef); err != nil {
			return scope, err
		}

		scope.Source = res.Source.Path
		if res.State == adapter.RefTarget {
			scope.Target = res.Target.Path
		}

		return scope, nil

	default: // bare --target
		res := store.Resolve(targetRef)
		if err := res.Err(targetRef); err != nil {
			return scope, err
		}

		if res.State != adapter.RefTarget {
			return scope, &m.NotFoundError{Ref: targetRef}
		}

		scope.Source, scope.Target = res.Source.Path, res.Target.Path

		return scope, nil
	}
}

// runScoped is the shared body of the hash/transfer/verify/run commands:
// load state, resolve the scope, run the scheduler, print the report. The
// returned error is non-nil — and the process exit non-zero — when any
// operation failed.
func runScoped(cmd *cobra.Command, stage m.OpKind, sourceRef, targetRef, reportFile string) error {
	store, err := openStore()
	if err != nil {
		return err
	}

	scope, err := resolveScope(store, stage, sourceRef, targetRef)
	if err != nil {
		return err
	}

	ui := controller.NewWriterUI(cmd.OutOrStdout())
	sched, _ := newLocalScheduler(store, ui)

	report, err := sched.Run(cmd.Context(), scope)
	if err != nil {
		// The run aborted before or between operations; keep a crash
		// copy of the state so nothing committed is lost with it.
		if crashPath, dumpErr := store.SaveCrashCopy(); dumpErr == nil {
			slog.Error("run aborted", "error", err, "state_copy", crashPath)
		}

		return err
	}

	ui.DisplayReport(report)

	if reportFile != "" {
		if err := writeReportFile(reportFile, report); err != nil {
			return err
		}
	}

	if report.HasFailures() {
		return fmt.Errorf("%d operation(s) failed", len(report.Failed))
	}

	return nil
}

func writeReportFile(path string, report *m.RunReport) error {
	raw, err := yaml.Marshal(report)
	if err != nil {
		return fmt.Errorf("encode report: %w", err)
	}

	if err := os.WriteFile(path, raw, 0o644); err != nil {
		return fmt.Errorf("write report: %w", err)
	}

	return nil
}
