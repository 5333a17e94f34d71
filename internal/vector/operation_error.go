package vector

import "fmt"

// ErrorCode classifies a failed remote vector store call.
type ErrorCode string

const (
	CodeValidation ErrorCode = "validation_failed"
	CodeEncode     ErrorCode = "encode_failed"
	CodeDecode     ErrorCode = "decode_failed"
	CodeTransport  ErrorCode = "transport_failed"
	CodeTimeout    ErrorCode = "timeout"
	CodeRequest    ErrorCode = "request_failed"
)

// OperationError is returned by the Qdrant backend.
type OperationError struct {
	Code       ErrorCode
	Operation  string
	StatusCode int
	Message    string
	Cause      error
}

func (e *OperationError) Error() string {
	detail := e.Message
	if detail == "" && e.Cause != nil {
		detail = e.Cause.Error()
	}
	if detail == "" {
		return fmt.Sprintf("qdrant %s failed (code=%s status=%d)", e.Operation, e.Code, e.StatusCode)
	}
	return fmt.Sprintf("qdrant %s failed (code=%s status=%d): %s", e.Operation, e.Code, e.StatusCode, detail)
}

func (e *OperationError) Unwrap() error {
	return e.Cause
}

func opErr(op string, code ErrorCode, msg string, cause error) *OperationError {
	return &OperationError{Code: code, Operation: op, Message: msg, Cause: cause}
}
