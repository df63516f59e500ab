package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"

	"github.com/go-playground/validator/v10"
	"github.com/rs/zerolog"

	"last-mile-planner/internal/domain"
)

const maxBodyBytes = 4 << 20

type errorBody struct {
	Code      domain.Code `json:"code"`
	Message   string      `json:"message"`
	Retryable bool        `json:"retryable"`
}

type errorResponse struct {
	Error errorBody `json:"error"`
}

func writeJSON(w http.ResponseWriter, r *http.Request, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		zerolog.Ctx(r.Context()).Warn().Err(err).Str("method", r.Method).Str("path", r.URL.Path).Msg("encode failed")
	}
}

func writeError(w http.ResponseWriter, r *http.Request, status int, code domain.Code, msg string) {
	writeJSON(w, r, status, errorResponse{Error: errorBody{
		Code:      code,
		Message:   msg,
		Retryable: status == http.StatusServiceUnavailable,
	}})
}

// statusFor maps a domain code onto an HTTP status.
func statusFor(code domain.Code) int {
	switch code {
	case domain.CodeInvalidK, domain.CodeEmptyInput, domain.CodeEmptyCluster, domain.CodeInvalidArgument,
		domain.CodeCoordOutOfRange, domain.CodeDuplicatePackage, domain.CodeStopMismatch, domain.CodeUngeocoded:
		return http.StatusBadRequest
	case domain.CodeWrongCourier:
		return http.StatusForbidden
	case domain.CodeUnknownSession, domain.CodeUnknownRoute, domain.CodeUnknownCourier,
		domain.CodeUnknownPackage, domain.CodeNotFound:
		return http.StatusNotFound
	case domain.CodeIllegalState, domain.CodeDuplicateBatchID, domain.CodeDuplicateCourier, domain.CodeDuplicateSession,
		domain.CodeCourierBusy, domain.CodeCourierInactive, domain.CodeCapacityExceeded, domain.CodeInactiveSeparator,
		domain.CodeAlreadyDelivered:
		return http.StatusConflict
	case domain.CodeProviderDown:
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

// writeDomainError reports err without leaking internals. Unclassified errors
// are logged and answered with a generic 500.
func writeDomainError(w http.ResponseWriter, r *http.Request, err error) {
	var de *domain.Error
	switch {
	case errors.As(err, &de):
		status := statusFor(de.Code)
		writeJSON(w, r, status, errorResponse{Error: errorBody{
			Code:      de.Code,
			Message:   err.Error(),
			Retryable: de.Retryable,
		}})
	case errors.Is(err, context.DeadlineExceeded):
		writeError(w, r, http.StatusServiceUnavailable, domain.CodeProviderDown, "request timed out")
	case errors.Is(err, context.Canceled):
		// The client went away; nobody reads the body.
		w.WriteHeader(http.StatusServiceUnavailable)
	default:
		zerolog.Ctx(r.Context()).Error().Err(err).Str("method", r.Method).Str("path", r.URL.Path).Msg("request failed")
		writeError(w, r, http.StatusInternalServerError, "INTERNAL", "internal server error")
	}
}

// decode reads exactly one JSON object into v and validates it.
func decode(w http.ResponseWriter, r *http.Request, v *validator.Validate, dst any) bool {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	defer r.Body.Close()
	dec.DisallowUnknownFields()

	if err := dec.Decode(dst); err != nil {
		writeError(w, r, http.StatusBadRequest, domain.CodeInvalidArgument, "invalid json body")
		return false
	}
	if err := dec.Decode(&struct{}{}); err != io.EOF {
		writeError(w, r, http.StatusBadRequest, domain.CodeInvalidArgument, "body must contain only one JSON object")
		return false
	}
	if err := v.Struct(dst); err != nil {
		writeError(w, r, http.StatusBadRequest, validationCode(err), validationMessage(err))
		return false
	}
	return true
}

// validationCode keeps the domain codes for bounds the handlers check through
// tags. Fields are named by their JSON keys.
func validationCode(err error) domain.Code {
	var ve validator.ValidationErrors
	if !errors.As(err, &ve) || len(ve) == 0 {
		return domain.CodeInvalidArgument
	}
	f := ve[0]
	if f.Tag() != "gte" && f.Tag() != "lte" {
		return domain.CodeInvalidArgument
	}
	switch f.Field() {
	case "k":
		return domain.CodeInvalidK
	case "lat", "lng":
		return domain.CodeCoordOutOfRange
	}
	return domain.CodeInvalidArgument
}

func validationMessage(err error) string {
	var ve validator.ValidationErrors
	if !errors.As(err, &ve) || len(ve) == 0 {
		return "validation failed"
	}
	f := ve[0]
	if f.Param() != "" {
		return "field " + f.Namespace() + " failed " + f.Tag() + "=" + f.Param()
	}
	return "field " + f.Namespace() + " failed " + f.Tag()
}
