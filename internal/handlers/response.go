package handlers

import (
	"errors"
	"sort"
	"strings"

	"github.com/gofiber/fiber/v2"
	"github.com/sirupsen/logrus"

	"storerate/internal/apperrors"
	"storerate/internal/models"
)

// FieldError is one field-level validation message.
type FieldError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

// Response is the envelope of every non-auth endpoint.
type Response struct {
	Success     bool                `json:"success"`
	Message     string              `json:"message,omitempty"`
	Data        interface{}         `json:"data,omitempty"`
	Errors      []FieldError        `json:"errors,omitempty"`
	Pagination  interface{}         `json:"pagination,omitempty"`
	RatingStats *models.RatingStats `json:"rating_stats,omitempty"`
}

// AuthResponse is the envelope of the /api/auth endpoints.
type AuthResponse struct {
	Message string             `json:"message"`
	Token   string             `json:"token,omitempty"`
	User    *models.PublicUser `json:"user,omitempty"`
	Errors  []FieldError       `json:"errors,omitempty"`
}

func ok(c *fiber.Ctx, status int, resp Response) error {
	resp.Success = true
	return c.Status(status).JSON(resp)
}

func fieldErrors(fields map[string]string) []FieldError {
	if len(fields) == 0 {
		return nil
	}
	out := make([]FieldError, 0, len(fields))
	for field, msg := range fields {
		out = append(out, FieldError{Field: field, Message: msg})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Field < out[j].Field })
	return out
}

func badBody(err error) error {
	return apperrors.New(apperrors.Validation, "Invalid request body", err)
}

// renderable converts any error into an AppError, logging the ones that
// hide detail from the client.
func renderable(c *fiber.Ctx, log logrus.FieldLogger, err error) *apperrors.AppError {
	var fe *fiber.Error
	if errors.As(err, &fe) {
		return fiberError(fe)
	}
	appErr := apperrors.From(err)
	if appErr.StatusCode() >= fiber.StatusInternalServerError {
		log.WithError(err).WithFields(logrus.Fields{
			"method": c.Method(),
			"path":   c.Path(),
			"kind":   appErr.Kind.String(),
		}).Error("request failed")
	}
	return appErr
}

func fiberError(fe *fiber.Error) *apperrors.AppError {
	switch {
	case fe.Code == fiber.StatusNotFound:
		return apperrors.NewNotFound("Route not found")
	case fe.Code == fiber.StatusRequestEntityTooLarge:
		return apperrors.NewValidation("Request body too large", nil)
	case fe.Code < fiber.StatusInternalServerError:
		return &apperrors.AppError{Kind: apperrors.Validation, Message: fe.Message}
	default:
		return apperrors.NewInternal("", fe)
	}
}

// ErrorHandler renders errors returned by handlers and middleware in the
// generic envelope, or in the auth envelope under AuthPathPrefix.
func ErrorHandler(log logrus.FieldLogger) fiber.ErrorHandler {
	return func(c *fiber.Ctx, err error) error {
		var fe *fiber.Error
		if errors.As(err, &fe) && fe.Code == fiber.StatusMethodNotAllowed {
			return c.Status(fe.Code).JSON(Response{Message: fe.Message})
		}
		if strings.HasPrefix(c.Path(), AuthPathPrefix) {
			return authError(c, log, err)
		}
		appErr := renderable(c, log, err)
		return c.Status(appErr.StatusCode()).JSON(Response{
			Success: false,
			Message: appErr.PublicMessage(),
			Errors:  fieldErrors(appErr.Fields),
		})
	}
}

// authError renders an error in the auth envelope.
func authError(c *fiber.Ctx, log logrus.FieldLogger, err error) error {
	appErr := renderable(c, log, err)
	return c.Status(appErr.StatusCode()).JSON(AuthResponse{
		Message: appErr.PublicMessage(),
		Errors:  fieldErrors(appErr.Fields),
	})
}
