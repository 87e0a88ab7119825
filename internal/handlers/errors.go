// Copyright 2025 Oliver Andrich
// Licensed under the EUPL-1.2

package handlers

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"

	"codeberg.org/oliverandrich/identity-recovery/internal/errs"
	"codeberg.org/oliverandrich/identity-recovery/internal/i18n"
	"github.com/labstack/echo/v4"
)

// ErrorResponse is the JSON body of every failed request.
type ErrorResponse struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// StatusCode maps an error kind to its HTTP status.
func StatusCode(kind errs.Kind) int {
	switch kind {
	case errs.NotFound:
		return http.StatusNotFound
	case errs.ExpiredCode, errs.ExpiredFlowID:
		return http.StatusGone
	case errs.ResendLimitExceeded, errs.FailedAttemptsExceeded:
		return http.StatusTooManyRequests
	}
	if kind.IsClient() {
		return http.StatusBadRequest
	}
	return http.StatusInternalServerError
}

// ErrorHandler renders errors as JSON. Recovery client errors carry their
// code and a localized message; server errors are reported without details.
func ErrorHandler(err error, c echo.Context) {
	if c.Response().Committed {
		return
	}

	status, body := errorResponse(c.Request().Context(), err)
	if status >= http.StatusInternalServerError {
		slog.Error("request failed", "method", c.Request().Method, "path", c.Request().URL.Path, "error", err)
	}

	var writeErr error
	if c.Request().Method == http.MethodHead {
		writeErr = c.NoContent(status)
	} else {
		writeErr = c.JSON(status, body)
	}
	if writeErr != nil {
		slog.Error("failed to write error response", "error", writeErr)
	}
}

func errorResponse(ctx context.Context, err error) (int, ErrorResponse) {
	if errs.IsClient(err) {
		kind := errs.KindOf(err)
		return StatusCode(kind), ErrorResponse{Code: kind.Code(), Message: i18n.ErrorMessage(ctx, err)}
	}

	var he *echo.HTTPError
	if errors.As(err, &he) && he.Code < http.StatusInternalServerError {
		msg := fmt.Sprint(he.Message)
		switch he.Code {
		case http.StatusUnauthorized:
			msg = i18n.T(ctx, "error_unauthorized")
		case http.StatusBadRequest:
			msg = i18n.T(ctx, "error_bad_request")
		}
		return he.Code, ErrorResponse{Code: statusCode(he.Code), Message: msg}
	}

	return http.StatusInternalServerError, ErrorResponse{
		Code:    errs.Unexpected.Code(),
		Message: i18n.T(ctx, i18n.MessageInternalError),
	}
}

// statusCode turns an HTTP status into a code like NOT_FOUND.
func statusCode(status int) string {
	text := http.StatusText(status)
	if text == "" {
		return fmt.Sprintf("HTTP_%d", status)
	}
	return strings.ToUpper(strings.ReplaceAll(text, " ", "_"))
}
