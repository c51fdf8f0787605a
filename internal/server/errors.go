package server

import (
	"context"
	"errors"
	"net"
	"net/http"

	"google.golang.org/api/googleapi"

	"github.com/teemow/inboxvault/internal/archive"
	"github.com/teemow/inboxvault/internal/gmail"
	"github.com/teemow/inboxvault/internal/google"
)

// ErrorKind classifies a failed run for the caller.
type ErrorKind string

const (
	KindAuth     ErrorKind = "auth"
	KindUpstream ErrorKind = "upstream"
	KindDecode   ErrorKind = "decode"
	KindCanceled ErrorKind = "canceled"
	KindInternal ErrorKind = "internal"
)

// ErrorResponse is the body of a failed trigger request.
type ErrorResponse struct {
	Error string    `json:"error"`
	Kind  ErrorKind `json:"kind"`
	Stage string    `json:"stage,omitempty"`
}

// Classify maps a run error to its kind and HTTP status.
func Classify(err error) (ErrorKind, int) {
	var apiErr *googleapi.Error
	var netErr net.Error

	switch {
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return KindCanceled, http.StatusServiceUnavailable
	case google.IsAuthError(err):
		return KindAuth, http.StatusBadGateway
	case errors.As(err, &apiErr):
		if apiErr.Code == http.StatusUnauthorized || apiErr.Code == http.StatusForbidden {
			return KindAuth, http.StatusBadGateway
		}
		return KindUpstream, http.StatusBadGateway
	case errors.Is(err, gmail.ErrDecode):
		return KindDecode, http.StatusBadGateway
	case errors.As(err, &netErr):
		return KindUpstream, http.StatusBadGateway
	default:
		return KindInternal, http.StatusInternalServerError
	}
}

// NewErrorResponse builds the response body for err.
func NewErrorResponse(err error) (ErrorResponse, int) {
	kind, status := Classify(err)
	resp := ErrorResponse{Error: err.Error(), Kind: kind}

	var stageErr *archive.StageError
	if errors.As(err, &stageErr) {
		resp.Stage = string(stageErr.Stage)
	}
	return resp, status
}
