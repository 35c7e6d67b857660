package log

// Common field names for structured logging
const (
	FieldComponent  = "component"
	FieldRequestID  = "request_id"
	FieldClientIP   = "client_ip"
	FieldMethod     = "method"
	FieldPath       = "path"
	FieldStatusCode = "status_code"
	FieldDuration   = "duration_ms"
	FieldError      = "error"
	FieldOperation  = "operation"

	FieldSociety     = "society"
	FieldCategory    = "category"
	FieldAccount     = "account"
	FieldAmountPaise = "amount_paise"
	FieldSide        = "side"
	FieldEffect      = "effect"
	FieldDay         = "day"
	FieldBillID      = "bill_id"
	FieldRegisterRef = "register_ref"
)

// Components defines standard component names
const (
	ComponentApp     = "app"
	ComponentHTTP    = "http"
	ComponentLedger  = "ledger"
	ComponentStorage = "storage"
	ComponentAMQP    = "amqp"
	ComponentWorker  = "worker"
	ComponentSheets  = "sheets"
	ComponentBackend = "backend"
	ComponentPenalty = "penalty"
)
