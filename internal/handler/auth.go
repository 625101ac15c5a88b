package handler

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"net/url"

	"github.com/rs/xid"

	"github.com/amine-dev/localq/internal/auth"
	"github.com/amine-dev/localq/internal/service"
)

// stateCookie carries the OAuth CSRF state between the redirect to Google
// and the callback. HttpOnly and short-lived.
const stateCookie = "oauth_state"

// AuthHandler serves password login and the Google OAuth flow.
type AuthHandler struct {
	google      *auth.GoogleProvider
	authService *service.AuthService
	frontendURL string
	logger      *slog.Logger
}

func NewAuthHandler(
	google *auth.GoogleProvider,
	authService *service.AuthService,
	frontendURL string,
	logger *slog.Logger,
) *AuthHandler {
	return &AuthHandler{
		google:      google,
		authService: authService,
		frontendURL: frontendURL,
		logger:      logger,
	}
}

// HandleLogin authenticates an email/password pair.
//
// HTTP: POST /auth/login
//
// The service returns one indistinguishable rejection for unknown emails,
// wrong passwords, and Google-only accounts, so the response never reveals
// whether an email is registered.
func (h *AuthHandler) HandleLogin(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Email    string `json:"email"`
		Password string `json:"password"`
	}
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, err)
		return
	}

	result, err := h.authService.Login(r.Context(), req.Email, req.Password)
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, result)
}

// HandleGoogleLogin redirects the browser to Google's consent page.
//
// HTTP: GET /auth/google
//
// The random state lands in a cookie so the callback can verify the round
// trip started here and not on an attacker's page.
func (h *AuthHandler) HandleGoogleLogin(w http.ResponseWriter, r *http.Request) {
	state := xid.New().String()

	http.SetCookie(w, &http.Cookie{
		Name:     stateCookie,
		Value:    state,
		Path:     "/",
		MaxAge:   600, // 10 minutes
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	})

	http.Redirect(w, r, h.google.AuthURL(state), http.StatusTemporaryRedirect)
}

// HandleGoogleCallback completes the OAuth flow.
//
// HTTP: GET /auth/google/callback?code=xxx&state=yyy
//
// Every failure path redirects to the frontend login page with an error
// marker. A user halfway through a Google login is driving a browser, not an
// API client; a JSON 500 would strand them on a blank error page.
func (h *AuthHandler) HandleGoogleCallback(w http.ResponseWriter, r *http.Request) {
	cookie, err := r.Cookie(stateCookie)
	if err != nil || cookie.Value == "" {
		h.logger.Warn("google callback: missing state cookie")
		h.redirectFailure(w, r)
		return
	}
	if r.URL.Query().Get("state") != cookie.Value {
		h.logger.Warn("google callback: state mismatch")
		h.redirectFailure(w, r)
		return
	}

	// Single-use; clear it before anything else can fail.
	http.SetCookie(w, &http.Cookie{
		Name:   stateCookie,
		Value:  "",
		Path:   "/",
		MaxAge: -1,
	})

	if errParam := r.URL.Query().Get("error"); errParam != "" {
		h.logger.Info("google callback: user denied authorization",
			slog.String("error", errParam),
		)
		h.redirectFailure(w, r)
		return
	}

	code := r.URL.Query().Get("code")
	if code == "" {
		h.logger.Warn("google callback: missing code")
		h.redirectFailure(w, r)
		return
	}

	gUser, err := h.google.Exchange(r.Context(), code)
	if err != nil {
		h.logger.Error("google callback: exchange failed", slog.String("error", err.Error()))
		h.redirectFailure(w, r)
		return
	}

	result, err := h.authService.LoginOrRegisterGoogle(r.Context(), gUser)
	if err != nil {
		h.logger.Error("google callback: login failed", slog.String("error", err.Error()))
		h.redirectFailure(w, r)
		return
	}

	userJSON, err := json.Marshal(result.User)
	if err != nil {
		h.logger.Error("google callback: encoding user", slog.String("error", err.Error()))
		h.redirectFailure(w, r)
		return
	}

	q := url.Values{}
	q.Set("token", result.Token)
	q.Set("user", string(userJSON))
	http.Redirect(w, r, h.frontendURL+"/login?"+q.Encode(), http.StatusFound)
}

func (h *AuthHandler) redirectFailure(w http.ResponseWriter, r *http.Request) {
	http.Redirect(w, r, h.frontendURL+"/login?error=auth_failed", http.StatusFound)
}
