package shared

import "fmt"

// Configuration
var (
	ErrInvalidConfig      = fmt.Errorf("invalid configuration")
	ErrMissingCredentials = fmt.Errorf("missing credentials")
)

// Credentials
var (
	ErrAuthFailed       = fmt.Errorf("authentication failed")
	ErrNotAuthenticated = fmt.Errorf("not authenticated")
	ErrRefreshFailed    = fmt.Errorf("token refresh failed")
	ErrNoRefreshToken   = fmt.Errorf("no refresh token available")
	ErrTimeout          = fmt.Errorf("operation timed out")
)

// Remote platforms. [ErrQuotaExceeded] and [ErrTransientNetwork] are the two the remote client
// distinguishes for retry decisions; everything else is surfaced as-is.
var (
	ErrQuotaExceeded      = fmt.Errorf("quota exceeded")
	ErrTransientNetwork   = fmt.Errorf("transient network error")
	ErrAPIRequest         = fmt.Errorf("API request failed")
	ErrServiceUnavailable = fmt.Errorf("service unavailable")
	ErrPlaylistNotFound   = fmt.Errorf("playlist not found")
	ErrTrackNotFound      = fmt.Errorf("track unavailable")
)

// Reconciliation
var (
	ErrUnsafeBulkRemoval = fmt.Errorf("unsafe bulk removal")
	ErrPlatformNotLinked = fmt.Errorf("platform not configured")
)

// Input
var (
	ErrInvalidInput    = fmt.Errorf("invalid input")
	ErrMissingArgument = fmt.Errorf("missing required argument")
	ErrInvalidArgument = fmt.Errorf("invalid argument")
)
