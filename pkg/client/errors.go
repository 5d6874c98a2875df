package client

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
)

var (
	// ErrNotFound is returned when the OSD or reservation is unknown to the scheduler.
	ErrNotFound = errors.New("not found")

	// ErrInsufficientResources is returned when a reservation does not fit.
	ErrInsufficientResources = errors.New("insufficient resources")

	// ErrDegraded is returned when the OSD is excluded from placement.
	ErrDegraded = errors.New("osd is degraded")
)

// maxErrorBody bounds how much of an error response is read.
const maxErrorBody = 4096

// StatusError is an unexpected response from the scheduler.
type StatusError struct {
	StatusCode int
	Message    string
}

func (e *StatusError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("scheduler returned status %d %s", e.StatusCode, http.StatusText(e.StatusCode))
	}
	return fmt.Sprintf("scheduler returned status %d: %s", e.StatusCode, e.Message)
}

// Unwrap maps well-known statuses to sentinel errors.
func (e *StatusError) Unwrap() error {
	switch e.StatusCode {
	case http.StatusNotFound:
		return ErrNotFound
	case http.StatusConflict:
		if e.Message == ErrInsufficientResources.Error() {
			return ErrInsufficientResources
		}
	case http.StatusServiceUnavailable:
		return ErrDegraded
	}
	return nil
}

func newStatusError(resp *http.Response) *StatusError {
	statusErr := &StatusError{StatusCode: resp.StatusCode}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
	if err != nil {
		return statusErr
	}

	var response struct {
		Error string `json:"error"`
	}
	if json.Unmarshal(body, &response) == nil {
		statusErr.Message = response.Error
	}
	return statusErr
}
