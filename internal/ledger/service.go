package ledger

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/ledgerly/ledgerly/internal/errs"
	"github.com/ledgerly/ledgerly/internal/journal"
)

const (
	defaultTransferDescription = "Transfer between accounts"
	defaultAccountPageSize     = 50
)

// BalanceOperation selects how SetBalance applies its value.
type BalanceOperation string

const (
	BalanceAdd      BalanceOperation = "add"
	BalanceSubtract BalanceOperation = "subtract"
	BalanceSet      BalanceOperation = "set"
)

// Service implements the account ledger on top of a Store.
type Service struct {
	store    Store
	logger   *slog.Logger
	currency string
	now      func() time.Time
}

// NewService builds a ledger service. An empty currency falls back to
// DefaultCurrency.
func NewService(store Store, logger *slog.Logger, currency string) *Service {
	if currency == "" {
		currency = DefaultCurrency
	}
	return &Service{store: store, logger: logger, currency: strings.ToUpper(currency), now: time.Now}
}

// CreateAccountInput captures data required to open an account.
type CreateAccountInput struct {
	OwnerID        string
	Name           string
	Type           AccountType
	InitialBalance decimal.Decimal
	OverdraftLimit decimal.Decimal
	Currency       string
}

// CreateAccount opens an account. Overdraft accounts need a positive limit and
// must start without exposure.
func (s *Service) CreateAccount(ctx context.Context, in CreateAccountInput) (Account, error) {
	if strings.TrimSpace(in.OwnerID) == "" {
		return Account{}, errs.Invalid("owner_id", "is required")
	}
	if strings.TrimSpace(in.Name) == "" {
		return Account{}, errs.Invalid("name", "is required")
	}
	if !in.Type.Valid() {
		return Account{}, errs.Invalid("type", "unknown account type "+string(in.Type))
	}
	if in.Type == TypeOverdraft {
		if !in.OverdraftLimit.IsPositive() {
			return Account{}, errs.Invalid("overdraft_limit", "must be positive for overdraft accounts")
		}
		if !in.InitialBalance.IsZero() {
			return Account{}, errs.Invalid("initial_balance", "overdraft accounts must start at zero")
		}
	} else {
		if !in.OverdraftLimit.IsZero() {
			return Account{}, errs.Invalid("overdraft_limit", "only overdraft accounts carry a credit line")
		}
		if in.InitialBalance.IsNegative() {
			return Account{}, errs.Invalid("initial_balance", "must not be negative")
		}
	}

	if err := errs.CheckScale("initial_balance", in.InitialBalance); err != nil {
		return Account{}, err
	}
	if err := errs.CheckScale("overdraft_limit", in.OverdraftLimit); err != nil {
		return Account{}, err
	}

	currency, err := s.resolveCurrency(in.Currency)
	if err != nil {
		return Account{}, err
	}

	now := s.now().UTC()
	account := Account{
		ID:             uuid.NewString(),
		OwnerID:        in.OwnerID,
		Name:           strings.TrimSpace(in.Name),
		Type:           in.Type,
		Balance:        in.InitialBalance,
		OverdraftLimit: in.OverdraftLimit,
		OverdraftUsed:  decimal.Zero,
		Currency:       currency,
		Active:         true,
		Version:        1,
		CreatedAt:      now,
		UpdatedAt:      now,
	}

	err = s.store.WithinTx(ctx, func(ctx context.Context, tx Tx) error {
		return tx.InsertAccount(ctx, account)
	})
	if err != nil {
		return Account{}, s.fail("ledger.create_account", err)
	}
	return account, nil
}

// CreditInput describes money flowing into an account.
type CreditInput struct {
	OwnerID     string
	AccountID   string
	Amount      decimal.Decimal
	Description string
	Category    string
}

// Credit adds money to an account. On an overdraft account the credit repays
// the drawn line and may not exceed it.
func (s *Service) Credit(ctx context.Context, in CreditInput) (MutationResult, error) {
	if !in.Amount.IsPositive() {
		return MutationResult{}, errs.Invalid("amount", "must be positive")
	}
	if err := errs.CheckScale("amount", in.Amount); err != nil {
		return MutationResult{}, err
	}

	var res MutationResult
	err := s.store.WithinTx(ctx, func(ctx context.Context, tx Tx) error {
		acc, err := s.lockActive(ctx, tx, in.OwnerID, in.AccountID)
		if err != nil {
			return err
		}

		if acc.IsOverdraft() {
			if in.Amount.GreaterThan(acc.OverdraftUsed) {
				return errs.Overpayment("amount", acc.OverdraftUsed)
			}
			acc.OverdraftUsed = acc.OverdraftUsed.Sub(in.Amount)
			acc.Balance = decimal.Zero
		} else {
			acc.Balance = acc.Balance.Add(in.Amount)
		}

		now := s.now().UTC()
		acc.UpdatedAt = now
		updated, err := tx.UpdateAccount(ctx, acc)
		if err != nil {
			return err
		}
		entry := newEntry(updated, journal.TypeIncome, in.Amount, in.Description, in.Category, now)
		if err := tx.AppendTransaction(ctx, entry); err != nil {
			return err
		}
		res = MutationResult{Account: updated, Transaction: entry}
		return nil
	})
	if err != nil {
		return MutationResult{}, s.fail("ledger.credit", err)
	}
	return res, nil
}

// DebitInput describes money leaving an account.
type DebitInput struct {
	OwnerID       string
	AccountID     string
	Amount        decimal.Decimal
	Description   string
	Category      string
	AllowNegative bool
}

// Debit removes money from an account. Overdraft accounts draw on their
// credit line; standard accounts go negative only with AllowNegative.
func (s *Service) Debit(ctx context.Context, in DebitInput) (MutationResult, error) {
	if !in.Amount.IsPositive() {
		return MutationResult{}, errs.Invalid("amount", "must be positive")
	}
	if err := errs.CheckScale("amount", in.Amount); err != nil {
		return MutationResult{}, err
	}

	var res MutationResult
	err := s.store.WithinTx(ctx, func(ctx context.Context, tx Tx) error {
		acc, err := s.lockActive(ctx, tx, in.OwnerID, in.AccountID)
		if err != nil {
			return err
		}

		if acc.IsOverdraft() {
			available := acc.AvailableCredit()
			if in.Amount.GreaterThan(available) {
				return &errs.InsufficientCreditError{Available: available, Requested: in.Amount}
			}
			acc.OverdraftUsed = acc.OverdraftUsed.Add(in.Amount)
			acc.Balance = decimal.Zero
		} else {
			if in.Amount.GreaterThan(acc.Balance) && !in.AllowNegative {
				return &errs.InsufficientFundsError{Available: acc.Balance, Requested: in.Amount}
			}
			acc.Balance = acc.Balance.Sub(in.Amount)
		}

		now := s.now().UTC()
		acc.UpdatedAt = now
		updated, err := tx.UpdateAccount(ctx, acc)
		if err != nil {
			return err
		}
		entry := newEntry(updated, journal.TypeExpense, in.Amount, in.Description, in.Category, now)
		if err := tx.AppendTransaction(ctx, entry); err != nil {
			return err
		}
		res = MutationResult{Account: updated, Transaction: entry}
		return nil
	})
	if err != nil {
		return MutationResult{}, s.fail("ledger.debit", err)
	}
	return res, nil
}

// TransferInput captures a movement between two accounts. OwnerID, when set,
// must own the source account; the destination may belong to anyone.
type TransferInput struct {
	OwnerID       string
	SourceID      string
	DestinationID string
	Amount        decimal.Decimal
	Description   string
}

// Transfer moves money between two standard accounts. Both balance updates
// and both journal legs commit together or not at all.
func (s *Service) Transfer(ctx context.Context, in TransferInput) (TransferResult, error) {
	if in.SourceID == in.DestinationID {
		return TransferResult{}, errs.ErrSameAccount
	}
	if !in.Amount.IsPositive() {
		return TransferResult{}, errs.Invalid("amount", "must be positive")
	}
	if err := errs.CheckScale("amount", in.Amount); err != nil {
		return TransferResult{}, err
	}
	description := strings.TrimSpace(in.Description)
	if description == "" {
		description = defaultTransferDescription
	}

	var res TransferResult
	err := s.store.WithinTx(ctx, func(ctx context.Context, tx Tx) error {
		src, dst, err := lockPair(ctx, tx, in.SourceID, in.DestinationID)
		if err != nil {
			return err
		}
		if in.OwnerID != "" && src.OwnerID != in.OwnerID {
			return errs.NotFound("account", in.SourceID)
		}
		for _, acc := range []Account{src, dst} {
			if !acc.Active {
				return errs.Invalid("account_id", fmt.Sprintf("account %s is inactive", acc.ID))
			}
			if acc.IsOverdraft() {
				return errs.Invalid("account_id", "overdraft accounts move money through credit and debit only")
			}
		}
		if src.Balance.LessThan(in.Amount) {
			return &errs.InsufficientFundsError{Available: src.Balance, Requested: in.Amount}
		}

		now := s.now().UTC()
		src.Balance = src.Balance.Sub(in.Amount)
		src.UpdatedAt = now
		dst.Balance = dst.Balance.Add(in.Amount)
		dst.UpdatedAt = now

		if src, err = tx.UpdateAccount(ctx, src); err != nil {
			return err
		}
		if dst, err = tx.UpdateAccount(ctx, dst); err != nil {
			return err
		}

		out := newEntry(src, journal.TypeTransfer, in.Amount, fmt.Sprintf("%s (to %s)", description, dst.Name), "", now)
		out.Direction = journal.DirectionOutgoing
		inc := newEntry(dst, journal.TypeTransfer, in.Amount, fmt.Sprintf("%s (from %s)", description, src.Name), "", now)
		inc.Direction = journal.DirectionIncoming

		if err := tx.AppendTransaction(ctx, out); err != nil {
			return err
		}
		if err := tx.AppendTransaction(ctx, inc); err != nil {
			return err
		}
		res = TransferResult{Source: src, Destination: dst, Outgoing: out, Incoming: inc}
		return nil
	})
	if err != nil {
		return TransferResult{}, s.fail("ledger.transfer", err)
	}
	return res, nil
}

// SetBalanceInput describes an administrative balance correction.
type SetBalanceInput struct {
	OwnerID   string
	AccountID string
	Value     decimal.Decimal
	Operation BalanceOperation
}

// SetBalance corrects a balance directly. No journal entry is written; every
// call is logged at WARN level.
func (s *Service) SetBalance(ctx context.Context, in SetBalanceInput) (Account, error) {
	switch in.Operation {
	case BalanceAdd, BalanceSubtract:
		if in.Value.IsNegative() {
			return Account{}, errs.Invalid("value", "must not be negative")
		}
	case BalanceSet:
	default:
		return Account{}, errs.Invalid("operation", "must be add, subtract or set")
	}
	if err := errs.CheckScale("value", in.Value); err != nil {
		return Account{}, err
	}

	var before, after Account
	err := s.store.WithinTx(ctx, func(ctx context.Context, tx Tx) error {
		acc, err := s.lockOwned(ctx, tx, in.OwnerID, in.AccountID)
		if err != nil {
			return err
		}
		if acc.IsOverdraft() {
			return errs.Invalid("account_id", "overdraft balances are derived from the credit line")
		}
		before = acc

		switch in.Operation {
		case BalanceAdd:
			acc.Balance = acc.Balance.Add(in.Value)
		case BalanceSubtract:
			acc.Balance = acc.Balance.Sub(in.Value)
		case BalanceSet:
			acc.Balance = in.Value
		}
		acc.UpdatedAt = s.now().UTC()
		after, err = tx.UpdateAccount(ctx, acc)
		return err
	})
	if err != nil {
		return Account{}, s.fail("ledger.set_balance", err)
	}

	s.logger.Warn("balance corrected without journal entry",
		slog.String("account_id", after.ID),
		slog.String("operation", string(in.Operation)),
		slog.String("before", before.Balance.String()),
		slog.String("after", after.Balance.String()),
	)
	return after, nil
}

// UpdateAccountInput changes account settings. Nil fields are left as they
// are.
type UpdateAccountInput struct {
	OwnerID        string
	AccountID      string
	Name           *string
	Currency       *string
	OverdraftLimit *decimal.Decimal
}

// UpdateAccount renames an account, changes its currency or resizes an
// overdraft line. Balances are never touched here. The currency may only
// change while the account holds no money and no drawn credit.
func (s *Service) UpdateAccount(ctx context.Context, in UpdateAccountInput) (Account, error) {
	if in.Name == nil && in.Currency == nil && in.OverdraftLimit == nil {
		return Account{}, errs.Invalid("account", "nothing to update")
	}
	var name, currency string
	if in.Name != nil {
		if name = strings.TrimSpace(*in.Name); name == "" {
			return Account{}, errs.Invalid("name", "is required")
		}
	}
	if in.Currency != nil {
		var err error
		if currency, err = s.resolveCurrency(*in.Currency); err != nil {
			return Account{}, err
		}
	}
	if in.OverdraftLimit != nil {
		if err := errs.CheckScale("overdraft_limit", *in.OverdraftLimit); err != nil {
			return Account{}, err
		}
	}

	var res Account
	err := s.store.WithinTx(ctx, func(ctx context.Context, tx Tx) error {
		acc, err := s.lockActive(ctx, tx, in.OwnerID, in.AccountID)
		if err != nil {
			return err
		}
		if in.Name != nil {
			acc.Name = name
		}
		if in.Currency != nil && currency != acc.Currency {
			if !acc.Balance.IsZero() || !acc.OverdraftUsed.IsZero() {
				return errs.Invalid("currency", "can only change on an account without balance")
			}
			acc.Currency = currency
		}
		if in.OverdraftLimit != nil {
			limit := *in.OverdraftLimit
			switch {
			case !acc.IsOverdraft():
				return errs.Invalid("overdraft_limit", "only overdraft accounts carry a credit line")
			case !limit.IsPositive():
				return errs.Invalid("overdraft_limit", "must be positive for overdraft accounts")
			case limit.LessThan(acc.OverdraftUsed):
				return errs.Invalid("overdraft_limit", "must not be below the drawn amount "+acc.OverdraftUsed.String())
			}
			acc.OverdraftLimit = limit
		}
		acc.UpdatedAt = s.now().UTC()
		res, err = tx.UpdateAccount(ctx, acc)
		return err
	})
	if err != nil {
		return Account{}, s.fail("ledger.update_account", err)
	}
	return res, nil
}

// DeleteAccount removes an account without history and deactivates one with
// history.
func (s *Service) DeleteAccount(ctx context.Context, ownerID, accountID string) (DeleteResult, error) {
	var res DeleteResult
	err := s.store.WithinTx(ctx, func(ctx context.Context, tx Tx) error {
		acc, err := s.lockOwned(ctx, tx, ownerID, accountID)
		if err != nil {
			return err
		}
		count, err := tx.CountAccountTransactions(ctx, acc.ID)
		if err != nil {
			return err
		}
		if count == 0 {
			res = DeleteResult{Deleted: true}
			return tx.DeleteAccount(ctx, acc.ID)
		}
		res = DeleteResult{Deactivated: true}
		if !acc.Active {
			return nil
		}
		acc.Active = false
		acc.UpdatedAt = s.now().UTC()
		_, err = tx.UpdateAccount(ctx, acc)
		return err
	})
	if err != nil {
		return DeleteResult{}, s.fail("ledger.delete_account", err)
	}
	return res, nil
}

// Account returns a snapshot of one of the owner's accounts.
func (s *Service) Account(ctx context.Context, ownerID, accountID string) (Account, error) {
	acc, err := s.store.GetAccount(ctx, accountID)
	if err != nil {
		return Account{}, s.fail("ledger.get_account", err)
	}
	if ownerID != "" && acc.OwnerID != ownerID {
		return Account{}, errs.NotFound("account", accountID)
	}
	return acc, nil
}

// Accounts lists the owner's accounts, newest first.
func (s *Service) Accounts(ctx context.Context, ownerID string, f AccountFilter) ([]Account, error) {
	if ownerID == "" {
		return nil, errs.Invalid("owner_id", "is required")
	}
	if f.Page <= 0 {
		f.Page = 1
	}
	if f.Limit <= 0 {
		f.Limit = defaultAccountPageSize
	}
	accounts, err := s.store.ListAccounts(ctx, ownerID, f)
	if err != nil {
		return nil, s.fail("ledger.list_accounts", err)
	}
	return accounts, nil
}

// Summary reports the owner's active accounts: balance totals per currency,
// counts and totals per account type, and the accounts that need attention.
func (s *Service) Summary(ctx context.Context, ownerID string) (Summary, error) {
	if ownerID == "" {
		return Summary{}, errs.Invalid("owner_id", "is required")
	}
	accounts, err := s.store.ListAccounts(ctx, ownerID, AccountFilter{})
	if err != nil {
		return Summary{}, s.fail("ledger.summary", err)
	}
	return Summarize(accounts, LowBalanceThreshold), nil
}

func (s *Service) resolveCurrency(code string) (string, error) {
	code = strings.ToUpper(strings.TrimSpace(code))
	if code == "" {
		return s.currency, nil
	}
	if len(code) != 3 || strings.Trim(code, "ABCDEFGHIJKLMNOPQRSTUVWXYZ") != "" {
		return "", errs.Invalid("currency", "must be a three-letter ISO code")
	}
	return code, nil
}

func (s *Service) lockOwned(ctx context.Context, tx Tx, ownerID, accountID string) (Account, error) {
	acc, err := tx.LockAccount(ctx, accountID)
	if err != nil {
		return Account{}, err
	}
	if ownerID != "" && acc.OwnerID != ownerID {
		return Account{}, errs.NotFound("account", accountID)
	}
	return acc, nil
}

func (s *Service) lockActive(ctx context.Context, tx Tx, ownerID, accountID string) (Account, error) {
	acc, err := s.lockOwned(ctx, tx, ownerID, accountID)
	if err != nil {
		return Account{}, err
	}
	if !acc.Active {
		return Account{}, errs.Invalid("account_id", "account is inactive")
	}
	return acc, nil
}

// lockPair locks both accounts in a stable order so concurrent transfers in
// opposite directions cannot deadlock.
func lockPair(ctx context.Context, tx Tx, sourceID, destinationID string) (Account, Account, error) {
	first, second := sourceID, destinationID
	if first > second {
		first, second = second, first
	}
	a, err := tx.LockAccount(ctx, first)
	if err != nil {
		return Account{}, Account{}, err
	}
	b, err := tx.LockAccount(ctx, second)
	if err != nil {
		return Account{}, Account{}, err
	}
	if first != sourceID {
		a, b = b, a
	}
	return a, b, nil
}

func (s *Service) fail(op string, err error) error {
	if errs.IsBusiness(err) {
		return err
	}
	s.logger.Error("ledger storage failure", slog.String("op", op), slog.Any("error", err))
	return errs.Operation(op, err)
}

func newEntry(acc Account, typ journal.Type, amount decimal.Decimal, description, category string, now time.Time) journal.Transaction {
	return journal.Transaction{
		ID:          uuid.NewString(),
		OwnerID:     acc.OwnerID,
		AccountID:   acc.ID,
		Type:        typ,
		Amount:      amount,
		Description: description,
		Category:    category,
		Date:        journal.Day(now),
		CreatedAt:   now,
	}
}
