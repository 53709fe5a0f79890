package identitytoolkit

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"strconv"
	"strings"
)

const fallbackErrorMessage = "Authentication failed"

// Sentinel errors for upstream failures that are not credential problems.
var (
	ErrNoServiceAccount = errors.New("identity toolkit: service account not configured")
	ErrUpstream         = errors.New("identity toolkit: upstream request failed")
)

// errorPayload covers the error shapes the Google identity endpoints return:
// {"error":{"message":..}}, {"error":{"error":{"message":..}}}, {"message":..}
// and the OAuth {"error":"invalid_grant"} form.
type errorPayload struct {
	Error   json.RawMessage `json:"error"`
	Message string          `json:"message"`
}

type errorObject struct {
	Message string `json:"message"`
	Error   *struct {
		Message string `json:"message"`
	} `json:"error"`
}

// errorMessage picks one human-readable message out of an upstream failure.
// Order: error.message, error.error.message, message, the transport error
// text, then a fixed fallback.
func errorMessage(body []byte, transportErr error) string {
	var p errorPayload
	if len(body) > 0 && json.Unmarshal(body, &p) == nil {
		var obj errorObject
		if len(p.Error) > 0 && json.Unmarshal(p.Error, &obj) == nil {
			if obj.Message != "" {
				return obj.Message
			}
			if obj.Error != nil && obj.Error.Message != "" {
				return obj.Error.Message
			}
		}
		if p.Message != "" {
			return p.Message
		}
	}
	if transportErr != nil && transportErr.Error() != "" {
		return transportErr.Error()
	}
	return fallbackErrorMessage
}

// statusError stands in for the transport error when the upstream answered
// with a non-2xx status.
func statusError(status int) error {
	return fmt.Errorf("Request failed with status code %d", status)
}

// expiresIn accepts a lifetime encoded as a JSON number or a numeric string.
// Absent, null or unusable values fall back to the caller's default.
type expiresIn struct {
	n   int
	set bool
}

func (e *expiresIn) UnmarshalJSON(b []byte) error {
	s := strings.TrimSpace(string(b))
	if s == "null" {
		return nil
	}
	f, err := strconv.ParseFloat(strings.Trim(s, `"`), 64)
	if err != nil || f < 0 || math.IsInf(f, 0) || math.IsNaN(f) {
		slog.Warn("ignoring unparseable token lifetime", "expires_in", s)
		return nil
	}
	e.n, e.set = int(f), true
	return nil
}

func (e expiresIn) seconds(def int) int {
	if !e.set {
		return def
	}
	return e.n
}
