package serverutils

import "atomics-registration-be/internal/pkg/apperror"

// BaseResponse is the envelope of every JSON response.
type BaseResponse[T any] struct {
	Success bool                  `json:"success"`
	Message string                `json:"message,omitempty"`
	Data    T                     `json:"data,omitempty"`
	Errors  []apperror.FieldError `json:"errors,omitempty"`
}

func SuccessResponse[T any](message string, data T) BaseResponse[T] {
	return BaseResponse[T]{
		Success: true,
		Message: message,
		Data:    data,
	}
}

func ErrorResponse(message string, errs ...apperror.FieldError) BaseResponse[any] {
	return BaseResponse[any]{
		Success: false,
		Message: message,
		Errors:  errs,
	}
}
