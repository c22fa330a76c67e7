// Playermap - Game Server Player Tracking and Map Visualization
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/playermap

package tracker

import (
	"errors"
	"fmt"
	"io"
	"net/http"

	"github.com/goccy/go-json"
)

// fallbackErrorMessage is used when neither the upstream payload nor the
// transport layer yields anything human-readable.
const fallbackErrorMessage = "tracking API request failed"

// UpstreamError is a failed tracking API call surfaced to callers of the
// coordinator. The message is extracted best-effort, in priority order:
// structured upstream error field, generic upstream message field,
// transport error message, hardcoded fallback.
type UpstreamError struct {
	Endpoint   string
	StatusCode int // 0 for transport-level failures
	Message    string
	cause      error
}

func (e *UpstreamError) Error() string {
	if e.StatusCode > 0 {
		return fmt.Sprintf("%s: %s (HTTP %d)", e.Endpoint, e.Message, e.StatusCode)
	}
	return fmt.Sprintf("%s: %s", e.Endpoint, e.Message)
}

func (e *UpstreamError) Unwrap() error {
	return e.cause
}

// IsUpstreamError reports whether err is (or wraps) an UpstreamError.
func IsUpstreamError(err error) bool {
	var ue *UpstreamError
	return errors.As(err, &ue)
}

// errorEnvelope is the tracking API's error body shape. Either the
// structured error object or the flat message field may be present.
type errorEnvelope struct {
	Error *struct {
		Code    string `json:"code"`
		Message string `json:"message"`
	} `json:"error"`
	Message string `json:"message"`
}

// errorFromResponse builds an UpstreamError from a non-200 response,
// extracting the most specific message available from the body.
func errorFromResponse(endpoint string, resp *http.Response) *UpstreamError {
	message := fallbackErrorMessage

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxErrorBodySize))
	if err == nil && len(body) > 0 {
		var envelope errorEnvelope
		if json.Unmarshal(body, &envelope) == nil {
			switch {
			case envelope.Error != nil && envelope.Error.Message != "":
				message = envelope.Error.Message
			case envelope.Message != "":
				message = envelope.Message
			}
		}
	}

	return &UpstreamError{
		Endpoint:   endpoint,
		StatusCode: resp.StatusCode,
		Message:    message,
	}
}

// wrapTransportError builds an UpstreamError from a transport-level failure
// (connection refused, timeout, context cancellation).
func wrapTransportError(endpoint string, err error) *UpstreamError {
	message := fallbackErrorMessage
	if err != nil && err.Error() != "" {
		message = err.Error()
	}
	return &UpstreamError{
		Endpoint: endpoint,
		Message:  message,
		cause:    err,
	}
}
