package log

// Common field names for structured logging.
const (
	FieldComponent = "component"
	FieldRequestID = "request_id"
	FieldClientIP  = "client_ip"
	FieldMethod    = "method"
	FieldURL       = "url"
	FieldStatus    = "status"
	FieldDuration  = "duration_ms"
	FieldError     = "error"
	FieldEntryID   = "entry_id"
	FieldMemberID  = "member_id"
	FieldProductID = "product_id"
)
