package service

type ErrorCode string

const (
	ErrorCodeValidation  ErrorCode = "VALIDATION"
	ErrorCodeForbidden   ErrorCode = "FORBIDDEN"
	ErrorCodeNotFound    ErrorCode = "NOT_FOUND"
	ErrorCodeConflict    ErrorCode = "CONFLICT"
	ErrorCodeInvalidBody ErrorCode = "INVALID_BODY"
	ErrorCodeUnspecified ErrorCode = "UNSPECIFIED"
)

type Error struct {
	Code    ErrorCode `json:"code"`
	Message string    `json:"message"`
}

func NewError(code ErrorCode, message string) *Error {
	return &Error{
		Code:    code,
		Message: message,
	}
}

func (e *Error) Error() string {
	return e.Message
}
