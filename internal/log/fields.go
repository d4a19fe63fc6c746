package log

import "github.com/shopspring/decimal"

// Common field names for structured logging
const (
	FieldComponent   = "component"
	FieldOperation   = "operation"
	FieldError       = "error"
	FieldErrorType   = "error_type"
	FieldUser        = "user"
	FieldTransaction = "transaction_id"
	FieldKind        = "kind"
	FieldAmount      = "amount"
	FieldCategory    = "category"
	FieldBalance     = "balance"
	FieldBackend     = "backend"
	FieldPath        = "path"
	FieldCount       = "count"
	FieldSheetsRef   = "sheets_ref"
	FieldMessageID   = "message_id"
	FieldDuration    = "duration_ms"
)

// Components defines standard component names
const (
	ComponentApp     = "app"
	ComponentAuth    = "auth"
	ComponentLedger  = "ledger"
	ComponentStorage = "storage"
	ComponentAMQP    = "amqp"
	ComponentWorker  = "worker"
	ComponentSheets  = "sheets"
	ComponentBackend = "backend"
	ComponentConsole = "console"
	ComponentReport  = "report"
)

// Operations defines standard operation names
const (
	OpRegister = "register"
	OpLogin    = "login"
	OpLogout   = "logout"
	OpIncome   = "add_income"
	OpExpense  = "add_expense"
	OpBudget   = "set_budget"
	OpPersist  = "persist"
	OpPublish  = "publish"
	OpAppend   = "append"
	OpSync     = "sync"
	OpRender   = "render"
	OpStartup  = "startup"
	OpShutdown = "shutdown"
)

// ErrorTypes defines standard error type categories
const (
	ErrorTypeValidation    = "validation_error"
	ErrorTypeConfiguration = "configuration_error"
	ErrorTypeDatabase      = "database_error"
	ErrorTypeNetwork       = "network_error"
	ErrorTypeAuth          = "auth_error"
	ErrorTypeFunds         = "insufficient_funds"
	ErrorTypeBudget        = "budget_exceeded"
	ErrorTypeConflict      = "conflict_error"
	ErrorTypeInternal      = "internal_error"
)

// LogFields provides a builder pattern for structured log fields
type LogFields map[string]any

// NewFields creates a new LogFields instance
func NewFields() LogFields {
	return make(LogFields)
}

// WithComponent adds component field
func (f LogFields) WithComponent(component string) LogFields {
	f[FieldComponent] = component
	return f
}

// WithOperation adds operation field
func (f LogFields) WithOperation(op string) LogFields {
	f[FieldOperation] = op
	return f
}

// WithError adds error field
func (f LogFields) WithError(err error) LogFields {
	if err != nil {
		f[FieldError] = err.Error()
	}
	return f
}

// WithErrorType adds the error category
func (f LogFields) WithErrorType(t string) LogFields {
	f[FieldErrorType] = t
	return f
}

// WithUser adds the username
func (f LogFields) WithUser(username string) LogFields {
	f[FieldUser] = username
	return f
}

// WithTransaction adds transaction fields
func (f LogFields) WithTransaction(id, kind string, amount decimal.Decimal, category string) LogFields {
	f[FieldTransaction] = id
	f[FieldKind] = kind
	f[FieldAmount] = amount.String()
	f[FieldCategory] = category
	return f
}

// WithBalance adds the resulting balance
func (f LogFields) WithBalance(balance decimal.Decimal) LogFields {
	f[FieldBalance] = balance.String()
	return f
}

// ToSlice converts LogFields to a slice for slog
func (f LogFields) ToSlice() []any {
	slice := make([]any, 0, len(f)*2)
	for k, v := range f {
		slice = append(slice, k, v)
	}
	return slice
}
