package log

// Component names used to tag log records by subsystem.
const (
	ComponentApp     = "app"
	ComponentHTTP    = "http"
	ComponentStorage = "storage"
	ComponentService = "service"
	ComponentAMQP    = "amqp"
	ComponentWorker  = "worker"
	ComponentExport  = "export"
	ComponentCache   = "cache"
	ComponentAuth    = "auth"
	ComponentCLI     = "cli"
)

// Shared field names. Keeping them in one place makes records greppable
// across components.
const (
	FieldComponent = "component"
	FieldError     = "error"
	FieldRequestID = "request_id"
	FieldMethod    = "method"
	FieldPath      = "path"
	FieldStatus    = "status"
	FieldDuration  = "duration_ms"
	FieldRemote    = "remote"

	FieldUserID      = "user_id"
	FieldExpenseID   = "expense_id"
	FieldCategoryID  = "category_id"
	FieldAmountCents = "amount_cents"
	FieldDate        = "date"

	FieldQueue    = "queue"
	FieldExchange = "exchange"
	FieldEvent    = "event"
	FieldAttempt  = "attempt"
	FieldCount    = "count"
	FieldSheetID  = "sheet_id"
)
