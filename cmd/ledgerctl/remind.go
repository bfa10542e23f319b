package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/multierr"

	"github.com/ledgerly/ledgerly/internal/debt"
	"github.com/ledgerly/ledgerly/internal/notification"
	"github.com/ledgerly/ledgerly/internal/scheduler"
	"github.com/ledgerly/ledgerly/internal/storage/postgres"
)

func createRemindCmd() *cobra.Command {
	var r remindRunner
	c := &cobra.Command{
		Use:   "remind",
		Short: "run one reminder pass",
		Long:  `Sends due payment reminders once, for one owner or for every owner with open debt.`,
		Args:  cobra.NoArgs,
		Run:   r.run,
	}
	c.Flags().StringVar(&r.owner, "owner", "", "limit the pass to one owner")
	c.Flags().BoolVar(&r.dryRun, "dry-run", false, "log reminders instead of publishing them")
	return c
}

type remindRunner struct {
	owner  string
	dryRun bool
}

func (r *remindRunner) run(cmd *cobra.Command, args []string) {
	if err := r.execute(cmd); err != nil {
		fmt.Fprintln(cmd.ErrOrStderr(), err)
		os.Exit(1)
	}
}

func (r *remindRunner) execute(cmd *cobra.Command) (err error) {
	ctx := cmd.Context()
	e, err := openEnv(ctx, cmd.ErrOrStderr(), true)
	if err != nil {
		return err
	}
	defer func() { err = multierr.Append(err, e.close()) }()

	debts := debt.NewService(postgres.NewInstrumentStore(e.db), e.logger)
	prioritizer := scheduler.NewPrioritizer(debts, e.logger, e.cfg.ReminderLocale)

	var notifier notification.Notifier = notification.NewLoggerNotifier(e.logger)
	var claims notification.Claimer
	if !r.dryRun {
		if e.cache != nil {
			claims = notification.NewReminderStore(e.cache)
		}
		if e.cfg.AMQPURL != "" {
			amqpNotifier, closeFn, openErr := openAMQP(e)
			if openErr != nil {
				return openErr
			}
			defer func() { err = multierr.Append(err, closeFn()) }()
			notifier = amqpNotifier
		}
	}
	dispatcher := notification.NewDispatcher(prioritizer, claims, notifier, e.logger)

	var sent int
	if r.owner != "" {
		sent, err = dispatcher.Dispatch(ctx, r.owner)
	} else {
		sent, err = notification.NewWorker(debts, dispatcher, e.logger, e.cfg.ReminderConcurrency).RunOnce(ctx)
	}
	fmt.Fprintf(cmd.OutOrStdout(), "%d reminders sent\n", sent)
	return err
}
