package pipeline

import (
	"context"
	"encoding/json"
	"io"
	"net"
	"net/http"
	"strconv"
	"strings"

	"contact-gateway/internal/common/config"
	"contact-gateway/internal/common/logger"

	"github.com/google/uuid"
)

// TokenIssuer issues the session-bound forgery token for the GET endpoint.
type TokenIssuer interface {
	IssueToken(ctx context.Context, sessionID string) (string, error)
}

// Handler adapts the pipeline to HTTP. POST runs a submission; GET hands the
// client its session cookie and forgery token.
type Handler struct {
	pipeline *Pipeline
	issuer   TokenIssuer
	forgery  config.ForgeryConfig
	logger   logger.Logger
}

func NewHandler(p *Pipeline, issuer TokenIssuer, forgery config.ForgeryConfig, log logger.Logger) *Handler {
	return &Handler{
		pipeline: p,
		issuer:   issuer,
		forgery:  forgery,
		logger:   log,
	}
}

func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		h.handleToken(w, r)
	case http.MethodPost:
		h.handleSubmit(w, r)
	default:
		w.Header().Set("Allow", "GET, POST")
		writeJSON(w, http.StatusMethodNotAllowed, map[string]interface{}{
			"success": false,
			"error":   "Method not allowed.",
		})
	}
}

// handleToken establishes the session cookie and returns the forgery token
// bound to it. Token generation is synchronous and stable per session.
func (h *Handler) handleToken(w http.ResponseWriter, r *http.Request) {
	sessionID := h.sessionID(r)
	if sessionID == "" {
		sessionID = uuid.New().String()
		http.SetCookie(w, &http.Cookie{
			Name:     h.forgery.CookieName,
			Value:    sessionID,
			Path:     "/",
			HttpOnly: true,
			SameSite: http.SameSiteLaxMode,
		})
	}

	token, err := h.issuer.IssueToken(r.Context(), sessionID)
	if err != nil {
		h.logger.Error("token issuance failed", map[string]interface{}{"error": err.Error()})
		writeJSON(w, http.StatusInternalServerError, map[string]interface{}{
			"success": false,
			"error":   "Could not issue a security token.",
		})
		return
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"success": true,
		"token":   token,
	})
}

func (h *Handler) handleSubmit(w http.ResponseWriter, r *http.Request) {
	body, err := io.ReadAll(io.LimitReader(r.Body, 1<<20))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]interface{}{
			"success": false,
			"error":   "Could not read request body.",
		})
		return
	}

	req := Request{
		Identifier:   clientIP(r),
		SessionID:    h.sessionID(r),
		ForgeryToken: r.Header.Get(h.forgery.HeaderName),
		Body:         body,
	}

	result := h.pipeline.Process(r.Context(), req)

	if result.Error != nil && result.Error.RetryAfter > 0 {
		w.Header().Set("Retry-After", strconv.Itoa(result.Error.RetryAfter))
	}

	if result.Success != nil {
		writeJSON(w, result.Status, result.Success)
		return
	}
	writeJSON(w, result.Status, result.Error)
}

func (h *Handler) sessionID(r *http.Request) string {
	cookie, err := r.Cookie(h.forgery.CookieName)
	if err != nil {
		return ""
	}
	return cookie.Value
}

// clientIP prefers the first X-Forwarded-For hop, falling back to the socket
// peer address.
func clientIP(r *http.Request) string {
	if fwd := r.Header.Get("X-Forwarded-For"); fwd != "" {
		parts := strings.Split(fwd, ",")
		return strings.TrimSpace(parts[0])
	}

	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}

func writeJSON(w http.ResponseWriter, status int, payload interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}
