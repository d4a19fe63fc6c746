package sheets

import (
	"context"
	"errors"
	"time"

	"wallet/internal/core"
)

// LedgerRow is one exported transaction, in sheet column order.
type LedgerRow struct {
	Timestamp     time.Time
	Username      string
	Kind          core.Kind
	Category      string
	Amount        string
	Balance       string
	TransactionID string
}

func (r LedgerRow) Validate() error {
	if r.TransactionID == "" {
		return errors.New("row has no transaction id")
	}
	if r.Username == "" {
		return errors.New("row has no username")
	}
	if err := r.Kind.Validate(); err != nil {
		return err
	}
	return core.ValidateCategory(r.Category)
}

// Values returns the cells of the row as the sheet stores them.
func (r LedgerRow) Values() []any {
	return []any{
		r.Timestamp.UTC().Format("2006-01-02 15:04:05"),
		r.Username,
		string(r.Kind),
		r.Category,
		r.Amount,
		r.Balance,
		r.TransactionID,
	}
}

// Ports for outbound adapters.
type (
	RowWriter interface {
		AppendRow(ctx context.Context, row LedgerRow) (rowRef string, err error)
	}
)
