package router

import (
	"encoding/json"
	"net/http"
	"strings"

	"contact-gateway/internal/common/config"
	"contact-gateway/internal/common/errors"
	"contact-gateway/internal/common/logger"
)

// Handler exposes the router over HTTP: GET renders a category's initial form
// state, POST runs the form-action submission. Mounted under the router's
// base path with the category slug as the trailing segment.
type Handler struct {
	router  *Router
	forgery config.ForgeryConfig
	logger  logger.Logger
}

func NewHandler(r *Router, forgery config.ForgeryConfig, log logger.Logger) *Handler {
	return &Handler{router: r, forgery: forgery, logger: log}
}

func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	slug := h.slugFrom(r.URL.Path)
	if slug == "" {
		http.Redirect(w, r, h.router.CategoryPath(h.router.forms.DefaultCategory), http.StatusFound)
		return
	}

	switch r.Method {
	case http.MethodGet:
		h.writeOutcome(w, r, h.router.Load(r.Context(), slug, r.URL.Query()))
	case http.MethodPost:
		h.handlePost(w, r, slug)
	default:
		w.Header().Set("Allow", "GET, POST")
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
	}
}

func (h *Handler) handlePost(w http.ResponseWriter, r *http.Request, slug string) {
	if err := r.ParseForm(); err != nil {
		http.Error(w, "malformed form data", http.StatusBadRequest)
		return
	}

	token := r.PostFormValue(h.forgery.FieldName)
	if token == "" {
		token = r.Header.Get(h.forgery.HeaderName)
	}

	req := SubmitRequest{
		Slug:         slug,
		SessionID:    h.sessionID(r),
		ForgeryToken: token,
		PostedFields: r.PostForm,
	}

	h.writeOutcome(w, r, h.router.HandleSubmission(r.Context(), req))
}

// writeOutcome translates the tagged result into an HTTP response. The
// redirect arm passes through verbatim.
func (h *Handler) writeOutcome(w http.ResponseWriter, r *http.Request, outcome Outcome) {
	switch outcome.Kind {
	case KindRedirect:
		http.Redirect(w, r, outcome.Location, outcome.Status)

	case KindNotFound:
		stdErr := errors.NewCategoryNotFoundError(h.slugFrom(r.URL.Path))
		writeJSON(w, errors.HTTPStatus(stdErr.Code), map[string]interface{}{
			"error": stdErr.Message + ".",
		})

	case KindThankYou:
		writeJSON(w, http.StatusOK, map[string]interface{}{
			"showThankYou": true,
			"categorySlug": outcome.CategorySlug,
		})

	case KindFailure:
		writeJSON(w, http.StatusOK, map[string]interface{}{
			"form": outcome.Form,
		})

	default: // KindLoaded
		payload := map[string]interface{}{
			"form":         outcome.Form,
			"categorySlug": outcome.CategorySlug,
		}
		if outcome.Category != nil {
			payload["category"] = outcome.Category
		}
		writeJSON(w, http.StatusOK, payload)
	}
}

func (h *Handler) sessionID(r *http.Request) string {
	cookie, err := r.Cookie(h.forgery.CookieName)
	if err != nil {
		return ""
	}
	return cookie.Value
}

// slugFrom extracts the trailing path segment below the base path.
func (h *Handler) slugFrom(path string) string {
	trimmed := strings.TrimPrefix(path, h.router.BasePath())
	return strings.Trim(trimmed, "/")
}

func writeJSON(w http.ResponseWriter, status int, payload interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}
