package log

// Common field names for structured logging
const (
	FieldComponent  = "component"
	FieldRequestID  = "request_id"
	FieldMethod     = "method"
	FieldPath       = "path"
	FieldStatusCode = "status_code"
	FieldDuration   = "duration_ms"
	FieldError      = "error"
	FieldOperation  = "operation"
	FieldUserID     = "user_id"
	FieldReceiptID  = "receipt_id"
	FieldStoreName  = "store_name"
	FieldTotal      = "total_amount"
	FieldItemCount  = "item_count"
	FieldCategory   = "category"
	FieldEvent      = "event"
	FieldOnline     = "online"
)

// Components defines standard component names
const (
	ComponentApp     = "app"
	ComponentHTTP    = "http"
	ComponentCache   = "cache"
	ComponentRemote  = "remote"
	ComponentService = "service"
	ComponentExtract = "extract"
	ComponentAMQP    = "amqp"
	ComponentMonitor = "monitor"
	ComponentWorker  = "worker"
)

// Operations defines standard operation names
const (
	OpList    = "list"
	OpGet     = "get"
	OpAdd     = "add"
	OpUpdate  = "update"
	OpDelete  = "delete"
	OpScan    = "scan"
	OpSync    = "sync"
	OpProbe   = "probe"
	OpStartup = "startup"
)
