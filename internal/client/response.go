package client

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"

	"github.com/seedarr/seedarr/pkg/errors"
)

// APIError is a non-2xx reply from the daemon.
type APIError struct {
	StatusCode int
	Code       string
	Message    string
	Details    string
}

func (e *APIError) Error() string {
	msg := fmt.Sprintf("daemon returned %d", e.StatusCode)
	if e.Code != "" {
		msg += " " + e.Code
	}
	if e.Message != "" {
		msg += ": " + e.Message
	}
	if e.Details != "" {
		msg += " (" + e.Details + ")"
	}
	return msg
}

// Is maps status codes onto the shared error sentinels.
func (e *APIError) Is(target error) bool {
	switch e.StatusCode {
	case http.StatusNotFound:
		return target == errors.ErrNotFound
	case http.StatusBadRequest:
		return target == errors.ErrInvalidInput
	case http.StatusUnauthorized:
		return target == errors.ErrUnauthorized
	case http.StatusConflict:
		return target == errors.ErrAlreadyExists
	case http.StatusGatewayTimeout:
		return target == errors.ErrTimeout
	case http.StatusServiceUnavailable:
		return target == errors.ErrNotInitialized
	}
	return false
}

type envelope struct {
	Data  json.RawMessage `json:"data"`
	Error *struct {
		Code    string `json:"code"`
		Message string `json:"message"`
		Details string `json:"details"`
	} `json:"error"`
}

// DecodeResponse decodes the daemon's {data, error} envelope. A non-2xx
// status or a populated error object becomes an *APIError; otherwise data
// is unmarshaled into target when target is non-nil.
func DecodeResponse(resp *http.Response, target any) error {
	defer func() { _ = resp.Body.Close() }()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return errors.WrapResource("read", "response body", "", err)
	}

	var env envelope
	if err := json.Unmarshal(body, &env); err != nil {
		if resp.StatusCode >= 300 {
			return &APIError{StatusCode: resp.StatusCode, Message: string(body)}
		}
		return errors.WrapResource("decode", "response", "", err)
	}

	if resp.StatusCode >= 300 || env.Error != nil {
		apiErr := &APIError{StatusCode: resp.StatusCode}
		if env.Error != nil {
			apiErr.Code = env.Error.Code
			apiErr.Message = env.Error.Message
			apiErr.Details = env.Error.Details
		}
		return apiErr
	}

	if target == nil || len(env.Data) == 0 {
		return nil
	}
	if err := json.Unmarshal(env.Data, target); err != nil {
		return errors.WrapResource("decode", "response data", "", err)
	}
	return nil
}
