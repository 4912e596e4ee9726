package server

import (
	"errors"
	"fmt"
	"html/template"
	"net/http"
	"sync"

	"golang.org/x/oauth2"

	"github.com/unnipv/musync/internal/auth"
	"github.com/unnipv/musync/internal/models"
	"github.com/unnipv/musync/internal/shared"
)

// ErrCallbackProcessed is sent for any callback after the first one.
var ErrCallbackProcessed = errors.New("callback already processed")

// OAuthResult is the outcome of one authorization code flow.
type OAuthResult struct {
	Platform models.Platform
	Token    *oauth2.Token
	err      error
}

func (o *OAuthResult) Error() error {
	return o.err
}

var callbackPage = template.Must(template.New("callback").Parse(`<!DOCTYPE html>
<html>
<head><title>musync</title></head>
<body style="font-family: sans-serif; text-align: center; margin-top: 4rem;">
<h1>{{.Title}}</h1>
<p>{{.Message}}</p>
</body>
</html>
`))

// OAuthHandler serves the authorization code callback for one platform.
type OAuthHandler struct {
	platform    models.Platform
	config      *oauth2.Config
	state       string
	verifier    string
	resultChan  chan OAuthResult
	once        sync.Once
	callbackHit bool
	mu          sync.Mutex
}

// NewOAuthHandler creates a handler for a single login attempt. state must be random; see [shared.GenerateState].
// A fresh PKCE verifier is generated per handler.
func NewOAuthHandler(platform models.Platform, config *oauth2.Config, state string) *OAuthHandler {
	return &OAuthHandler{
		platform:   platform,
		config:     config,
		state:      state,
		verifier:   oauth2.GenerateVerifier(),
		resultChan: make(chan OAuthResult, 1),
	}
}

func (h *OAuthHandler) Routes() []string {
	return []string{"/callback"}
}

// AuthCodeURL is the consent page the user should open, carrying the state and PKCE challenge.
func (h *OAuthHandler) AuthCodeURL() string {
	return auth.AuthCodeURL(h.config, h.state, oauth2.S256ChallengeOption(h.verifier))
}

func (h *OAuthHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	h.mu.Lock()
	if h.callbackHit {
		h.mu.Unlock()
		http.Error(w, ErrCallbackProcessed.Error(), http.StatusBadRequest)
		return
	}
	h.callbackHit = true
	h.mu.Unlock()

	q := r.URL.Query()
	if q.Get("state") != h.state {
		h.fail(w, http.StatusBadRequest, fmt.Errorf("%w: invalid state parameter", shared.ErrAuthFailed))
		return
	}

	code := q.Get("code")
	if code == "" {
		h.fail(w, http.StatusBadRequest,
			fmt.Errorf("%w: %s - %s", shared.ErrAuthFailed, q.Get("error"), q.Get("error_description")))
		return
	}

	token, err := h.config.Exchange(r.Context(), code, oauth2.VerifierOption(h.verifier))
	if err != nil {
		h.fail(w, http.StatusInternalServerError, fmt.Errorf("%w: token exchange: %v", shared.ErrAuthFailed, err))
		return
	}

	h.Send(OAuthResult{Platform: h.platform, Token: token})
	h.render(w, http.StatusOK, "Authorization successful",
		fmt.Sprintf("musync is now linked to %s. You can close this window.", h.platform))
}

func (h *OAuthHandler) fail(w http.ResponseWriter, status int, err error) {
	h.Send(OAuthResult{Platform: h.platform, err: err})
	h.render(w, status, "Authorization failed", err.Error())
}

func (h *OAuthHandler) render(w http.ResponseWriter, status int, title, message string) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	_ = callbackPage.Execute(w, struct{ Title, Message string }{title, message})
}

// Send delivers the result; only the first call has any effect.
func (h *OAuthHandler) Send(result OAuthResult) {
	h.once.Do(func() {
		h.resultChan <- result
		close(h.resultChan)
	})
}

// Result receives exactly one result and is then closed.
func (h *OAuthHandler) Result() <-chan OAuthResult {
	return h.resultChan
}
