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
	FieldSuccess    = "success"
	FieldError      = "error"
	FieldCommand    = "command"
	FieldChatID     = "chat_id"
	FieldUsername   = "username"
	FieldAmount     = "amount"
	FieldCategory   = "category"
	FieldPeriod     = "period"
	FieldEventID    = "event_id"
	FieldEventKind  = "event_kind"
	FieldRowRef     = "row_ref"
)

// Components defines standard component names
const (
	ComponentApp      = "app"
	ComponentHTTP     = "http"
	ComponentBot      = "bot"
	ComponentExpense  = "expense"
	ComponentStorage  = "storage"
	ComponentAMQP     = "amqp"
	ComponentNotifier = "notifier"
	ComponentSheets   = "sheets"
	ComponentBackend  = "backend"
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

// WithHTTP adds HTTP request and response fields
func (f LogFields) WithHTTP(method, path string, statusCode int, durationMs int64) LogFields {
	f[FieldMethod] = method
	f[FieldPath] = path
	f[FieldStatusCode] = statusCode
	f[FieldDuration] = durationMs
	f[FieldSuccess] = statusCode < 400
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
