package main

import (
	"errors"
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/fatih/color"
	"github.com/shopspring/decimal"
	"github.com/spf13/cobra"
	"go.uber.org/multierr"

	"github.com/ledgerly/ledgerly/internal/debt"
	"github.com/ledgerly/ledgerly/internal/errs"
	"github.com/ledgerly/ledgerly/internal/scheduler"
	"github.com/ledgerly/ledgerly/internal/storage/postgres"
)

func createAllocateCmd() *cobra.Command {
	var r allocateRunner
	c := &cobra.Command{
		Use:   "allocate",
		Short: "split a payment budget across an owner's debts",
		Long:  `Allocates the budget with the avalanche method: minimums first, then the highest interest rate.`,
		Args:  cobra.NoArgs,
		Run:   r.run,
	}
	r.setupFlags(c)
	return c
}

type allocateRunner struct {
	owner, total string
	color        bool
}

func (r *allocateRunner) setupFlags(c *cobra.Command) {
	c.Flags().StringVar(&r.owner, "owner", "", "owner whose debts are allocated")
	c.Flags().StringVar(&r.total, "total", "", "budget available for payments")
	c.Flags().BoolVar(&r.color, "color", true, "print output in color")
	_ = c.MarkFlagRequired("owner")
	_ = c.MarkFlagRequired("total")
}

func (r *allocateRunner) run(cmd *cobra.Command, args []string) {
	if err := r.execute(cmd); err != nil {
		fmt.Fprintln(cmd.ErrOrStderr(), err)
		os.Exit(1)
	}
}

func (r *allocateRunner) execute(cmd *cobra.Command) (err error) {
	total, err := decimal.NewFromString(r.total)
	if err != nil {
		return fmt.Errorf("invalid --total: %w", err)
	}
	e, err := openEnv(cmd.Context(), cmd.ErrOrStderr(), false)
	if err != nil {
		return err
	}
	defer func() { err = multierr.Append(err, e.close()) }()

	debts := debt.NewService(postgres.NewInstrumentStore(e.db), e.logger)
	dist, err := scheduler.NewPrioritizer(debts, e.logger, e.cfg.ReminderLocale).Distribute(cmd.Context(), r.owner, total)
	color.NoColor = !r.color
	var short *errs.ShortfallError
	if errors.As(err, &short) {
		color.New(color.FgRed).Fprintf(cmd.ErrOrStderr(), "budget %s is %s short of the minimum payments (%s)\n",
			short.Available.StringFixed(2), short.Shortfall.StringFixed(2), short.Required.StringFixed(2))
	}
	if err != nil {
		return err
	}
	return writeDistribution(cmd, dist)
}

func writeDistribution(cmd *cobra.Command, dist scheduler.Distribution) error {
	out := cmd.OutOrStdout()
	w := tabwriter.NewWriter(out, 0, 4, 2, ' ', tabwriter.AlignRight)
	fmt.Fprintln(w, "Debt\tRate\tRemaining\tMinimum\tExtra\tTotal\t")
	for _, a := range dist.Allocations {
		fmt.Fprintf(w, "%s\t%s%%\t%s\t%s\t%s\t%s\t\n", a.Name, a.InterestRate.String(),
			a.RemainingBalance.StringFixed(2), a.Minimum.StringFixed(2), a.Extra.StringFixed(2), a.Total.StringFixed(2))
	}
	if err := w.Flush(); err != nil {
		return err
	}
	s := dist.Summary
	color.New(color.FgGreen).Fprintf(out, "minimum %s + extra %s = %s of %s\n", s.TotalMinimum.StringFixed(2),
		s.TotalExtra.StringFixed(2), s.TotalMinimum.Add(s.TotalExtra).StringFixed(2), s.TotalAvailable.StringFixed(2))
	if s.Unallocated.IsPositive() {
		color.New(color.FgYellow).Fprintf(out, "unallocated %s\n", s.Unallocated.StringFixed(2))
	}
	return nil
}
