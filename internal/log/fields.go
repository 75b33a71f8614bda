// Package log defines the shared field names for structured logging so the
// same attribute is never spelled two ways across components.
package log

const (
	FieldRequestID     = "request_id"
	FieldClientIP      = "client_ip"
	FieldMethod        = "method"
	FieldPath          = "path"
	FieldQuery         = "query"
	FieldStatusCode    = "status_code"
	FieldDuration      = "duration_ms"
	FieldUserAgent     = "user_agent"
	FieldError         = "error"
	FieldUserID        = "user_id"
	FieldTransactionID = "transaction_id"
	FieldRowCount      = "row_count"
	FieldSheetsRef     = "sheets_ref"
)
