// Copyright (c) 2025, NVIDIA CORPORATION.  All rights reserved.
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package server

import (
	stderrors "errors"
	"net/http"
	"time"

	"github.com/google/uuid"

	apperrors "github.com/NVIDIA/stack-orchestrator/pkg/errors"
	"github.com/NVIDIA/stack-orchestrator/pkg/serializer"
)

// ErrorResponse is the JSON error envelope returned by all API endpoints.
type ErrorResponse struct {
	Code      string         `json:"code"`
	Message   string         `json:"message"`
	Details   map[string]any `json:"details,omitempty"`
	RequestID string         `json:"requestId"`
	Timestamp time.Time      `json:"timestamp"`
	Retryable bool           `json:"retryable"`
}

// writeError writes an error response in the standard envelope.
func (s *Server) writeError(w http.ResponseWriter, r *http.Request, statusCode int,
	code apperrors.ErrorCode, message string, retryable bool, details map[string]any) {

	requestID, _ := r.Context().Value(contextKeyRequestID).(string)
	if requestID == "" {
		requestID = uuid.New().String()
	}

	errResp := ErrorResponse{
		Code:      string(code),
		Message:   message,
		Details:   details,
		RequestID: requestID,
		Timestamp: time.Now().UTC(),
		Retryable: retryable,
	}

	serializer.RespondJSON(w, statusCode, errResp)
}

// writeStructuredError maps a domain error onto an HTTP response.
func (s *Server) writeStructuredError(w http.ResponseWriter, r *http.Request, err error) {
	code := apperrors.CodeOf(err)
	retryable := false
	var se *apperrors.StructuredError
	if stderrors.As(err, &se) {
		retryable = se.Retryable()
	}
	s.writeError(w, r, httpStatusFor(code), code, err.Error(), retryable, nil)
}

// httpStatusFor maps domain error codes to HTTP status codes.
func httpStatusFor(code apperrors.ErrorCode) int {
	switch code {
	case apperrors.ErrCodeNotFound:
		return http.StatusNotFound
	case apperrors.ErrCodeInvalidRequest, apperrors.ErrCodeConfigInvalid,
		apperrors.ErrCodeCyclicDependency:
		return http.StatusBadRequest
	case apperrors.ErrCodeMethodNotAllowed:
		return http.StatusMethodNotAllowed
	case apperrors.ErrCodeRateLimitExceeded:
		return http.StatusTooManyRequests
	case apperrors.ErrCodeUnavailable, apperrors.ErrCodeAuthorityUnreachable:
		return http.StatusServiceUnavailable
	case apperrors.ErrCodeTimeout, apperrors.ErrCodeReadinessTimeout:
		return http.StatusGatewayTimeout
	default:
		return http.StatusInternalServerError
	}
}
