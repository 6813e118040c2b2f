package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/xraph/paymarket"
)

// StatusFor maps a market error to an HTTP status code.
func StatusFor(err error) int {
	switch {
	case err == nil:
		return http.StatusOK
	case errors.Is(err, ErrNoCaller):
		return http.StatusUnauthorized
	case errors.Is(err, paymarket.ErrUnauthorized):
		return http.StatusForbidden
	case errors.Is(err, paymarket.ErrInvalidInput),
		errors.Is(err, paymarket.ErrInvalidAddress),
		errors.Is(err, paymarket.ErrInvalidFeeRate),
		errors.Is(err, paymarket.ErrZeroAmount):
		return http.StatusBadRequest
	case paymarket.IsNotFound(err):
		return http.StatusNotFound
	case errors.Is(err, paymarket.ErrContractPaused),
		errors.Is(err, paymarket.ErrNotPaused),
		errors.Is(err, paymarket.ErrReentrantCall):
		return http.StatusConflict
	case errors.Is(err, paymarket.ErrUnknownVendor),
		errors.Is(err, paymarket.ErrTokenNotWhitelisted),
		errors.Is(err, paymarket.ErrTransferFailed):
		return http.StatusUnprocessableEntity
	case errors.Is(err, paymarket.ErrNotInitialized):
		return http.StatusServiceUnavailable
	case errors.Is(err, context.DeadlineExceeded):
		return http.StatusGatewayTimeout
	default:
		return http.StatusInternalServerError
	}
}

func (s *Server) writeMarketError(w http.ResponseWriter, err error) {
	status := StatusFor(err)
	if status >= http.StatusInternalServerError {
		s.logger.Error("api: market call failed", "status", status, "error", err)
	}
	writeJSONError(w, status, err)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	payload, err := json.Marshal(v)
	if err != nil {
		writeJSONError(w, http.StatusInternalServerError, err)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_, _ = w.Write(payload)
}

func writeJSONError(w http.ResponseWriter, status int, err error) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	message := strings.TrimSpace(err.Error())
	if message == "" {
		message = http.StatusText(status)
	}
	payload, marshalErr := json.Marshal(map[string]string{"error": message})
	if marshalErr != nil {
		replacer := strings.NewReplacer(
			"\\", "\\\\",
			"\"", "\\\"",
			"\n", "\\n",
		)
		payload = []byte(fmt.Sprintf("{\"error\":\"%s\"}", replacer.Replace(message)))
	}
	_, _ = w.Write(payload)
}
