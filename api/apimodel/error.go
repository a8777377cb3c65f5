// Package apimodel holds types shared by the http apis
package apimodel

import (
	"github.com/gofiber/fiber/v2"
	"github.com/pkg/errors"

	"github.com/certkeeper/certkeeper/storage/model"
)

// Error codes
const (
	ErrorCodeInvalidRequest = "invalid_request"
	ErrorCodeNotFound       = "not_found"
	ErrorCodeConflict       = "conflict"
	ErrorCodeServerError    = "server_error"
)

// Error is the body of all error responses
type Error struct {
	Error            string `json:"error"`
	ErrorDescription string `json:"error_description,omitempty"`
}

// ErrorInvalidRequest creates an invalid_request Error
func ErrorInvalidRequest(description string) Error {
	return Error{
		Error:            ErrorCodeInvalidRequest,
		ErrorDescription: description,
	}
}

// ErrorNotFound creates a not_found Error
func ErrorNotFound(description string) Error {
	return Error{
		Error:            ErrorCodeNotFound,
		ErrorDescription: description,
	}
}

// ErrorConflict creates a conflict Error
func ErrorConflict(description string) Error {
	return Error{
		Error:            ErrorCodeConflict,
		ErrorDescription: description,
	}
}

// ErrorServerError creates a server_error Error
func ErrorServerError(description string) Error {
	return Error{
		Error:            ErrorCodeServerError,
		ErrorDescription: description,
	}
}

// SendError maps err to an http status and writes the matching Error
func SendError(c *fiber.Ctx, err error) error {
	var notFound model.NotFoundError
	if errors.As(err, &notFound) {
		return c.Status(fiber.StatusNotFound).JSON(ErrorNotFound(notFound.Error()))
	}
	var exists model.AlreadyExistsError
	if errors.As(err, &exists) {
		return c.Status(fiber.StatusConflict).JSON(ErrorConflict(exists.Error()))
	}
	var invalid model.InvalidArgumentError
	if errors.As(err, &invalid) {
		return c.Status(fiber.StatusBadRequest).JSON(ErrorInvalidRequest(invalid.Error()))
	}
	return c.Status(fiber.StatusInternalServerError).JSON(ErrorServerError(err.Error()))
}

// HandleError is a fiber.ErrorHandler that renders errors as Error
func HandleError(c *fiber.Ctx, err error) error {
	var e *fiber.Error
	if errors.As(err, &e) {
		code := ErrorCodeServerError
		switch {
		case e.Code == fiber.StatusNotFound:
			code = ErrorCodeNotFound
		case e.Code < fiber.StatusInternalServerError:
			code = ErrorCodeInvalidRequest
		}
		return c.Status(e.Code).JSON(
			Error{
				Error:            code,
				ErrorDescription: e.Message,
			},
		)
	}
	return SendError(c, err)
}
