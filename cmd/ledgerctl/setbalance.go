package main

import (
	"fmt"
	"os"

	"github.com/fatih/color"
	"github.com/shopspring/decimal"
	"github.com/spf13/cobra"
	"go.uber.org/multierr"

	"github.com/ledgerly/ledgerly/internal/ledger"
	"github.com/ledgerly/ledgerly/internal/storage/postgres"
)

func createSetBalanceCmd() *cobra.Command {
	var r setBalanceRunner
	c := &cobra.Command{
		Use:   "set-balance",
		Short: "correct an account balance without a journal entry",
		Long: `Adds to, subtracts from or overwrites the balance of a standard account.
The change is not recorded in the transaction journal, so the history will no
longer add up to the balance. Use only to repair data.`,
		Args: cobra.NoArgs,
		Run:  r.run,
	}
	r.setupFlags(c)
	return c
}

type setBalanceRunner struct {
	owner, account, op, value string
	color                     bool
}

func (r *setBalanceRunner) setupFlags(c *cobra.Command) {
	c.Flags().StringVar(&r.owner, "owner", "", "owner of the account")
	c.Flags().StringVar(&r.account, "account", "", "account id")
	c.Flags().StringVar(&r.op, "op", string(ledger.BalanceSet), "add, subtract or set")
	c.Flags().StringVar(&r.value, "value", "", "amount")
	c.Flags().BoolVar(&r.color, "color", true, "print output in color")
	_ = c.MarkFlagRequired("account")
	_ = c.MarkFlagRequired("value")
}

func (r *setBalanceRunner) run(cmd *cobra.Command, args []string) {
	if err := r.execute(cmd); err != nil {
		fmt.Fprintln(cmd.ErrOrStderr(), err)
		os.Exit(1)
	}
}

func (r *setBalanceRunner) execute(cmd *cobra.Command) (err error) {
	value, err := decimal.NewFromString(r.value)
	if err != nil {
		return fmt.Errorf("invalid --value: %w", err)
	}
	e, err := openEnv(cmd.Context(), cmd.ErrOrStderr(), false)
	if err != nil {
		return err
	}
	defer func() { err = multierr.Append(err, e.close()) }()

	svc := ledger.NewService(postgres.NewAccountStore(e.db), e.logger, e.cfg.DefaultCurrency)
	acc, err := svc.SetBalance(cmd.Context(), ledger.SetBalanceInput{
		OwnerID:   r.owner,
		AccountID: r.account,
		Value:     value,
		Operation: ledger.BalanceOperation(r.op),
	})
	if err != nil {
		return err
	}

	color.NoColor = !r.color
	warn := color.New(color.FgRed, color.Bold)
	warn.Fprintln(cmd.ErrOrStderr(), "warning: balance changed without a journal entry; history no longer reconciles")
	fmt.Fprintf(cmd.OutOrStdout(), "%s\t%s\t%s %s\n", acc.ID, acc.Name, acc.Balance.StringFixed(2), acc.Currency)
	return nil
}
