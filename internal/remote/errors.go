package remote

import (
	"fmt"
	"net/http"
	"slices"
	"strings"

	"github.com/goccy/go-json"
	"google.golang.org/api/googleapi"

	"github.com/unnipv/musync/internal/shared"
)

// quotaReasons are googleapi error reasons that mean the budget is gone rather than access denied.
var quotaReasons = []string{"quotaExceeded", "dailyLimitExceeded", "rateLimitExceeded", "userRateLimitExceeded"}

// StatusError is a non-2xx response that ended a call. It unwraps to the matching sentinel in [shared].
type StatusError struct {
	Platform   string
	StatusCode int
	Reason     string
	Message    string
	err        error
}

func (e *StatusError) Error() string {
	msg := fmt.Sprintf("%s: %v (status %d", e.Platform, e.err, e.StatusCode)
	if e.Reason != "" {
		msg += ", reason " + e.Reason
	}
	msg += ")"
	if e.Message != "" {
		msg += ": " + e.Message
	}
	return msg
}

func (e *StatusError) Unwrap() error { return e.err }

// envelope matches the Google API error body and, loosely, Spotify's {"error": {"status", "message"}}.
type envelope struct {
	Error *googleapi.Error `json:"error"`
}

type spotifyEnvelope struct {
	Error struct {
		Status  int    `json:"status"`
		Message string `json:"message"`
		Reason  string `json:"reason"`
	} `json:"error"`
}

// classify parses an error body into its reason and message.
func classify(body []byte) (reason, message string) {
	var env envelope
	if err := json.Unmarshal(body, &env); err == nil && env.Error != nil {
		message = env.Error.Message
		for _, item := range env.Error.Errors {
			if item.Reason != "" {
				return item.Reason, message
			}
		}
		if message != "" {
			return "", message
		}
	}

	var sp spotifyEnvelope
	if err := json.Unmarshal(body, &sp); err == nil {
		return sp.Error.Reason, sp.Error.Message
	}
	return "", strings.TrimSpace(string(body))
}

// isQuota reports whether a 403/429 body signals quota exhaustion specifically.
func isQuota(status int, reason, message string) bool {
	if status != http.StatusForbidden && status != http.StatusTooManyRequests {
		return false
	}
	if slices.Contains(quotaReasons, reason) {
		return true
	}
	return strings.Contains(strings.ToLower(message), "quota")
}

func newStatusError(platform string, status int, reason, message string, sentinel error) *StatusError {
	return &StatusError{Platform: platform, StatusCode: status, Reason: reason, Message: message, err: sentinel}
}

// sentinelFor maps a terminal status to its error kind.
func sentinelFor(status int) error {
	switch {
	case status == http.StatusUnauthorized || status == http.StatusForbidden:
		return shared.ErrAuthFailed
	case status == http.StatusNotFound:
		return shared.ErrPlaylistNotFound
	case status == http.StatusTooManyRequests || status >= 500:
		return shared.ErrTransientNetwork
	default:
		return shared.ErrAPIRequest
	}
}
