package app

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/mail"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"

	"github.com/verifyxo/engine/internal/observe"
	"github.com/verifyxo/engine/pkg/store"
	"github.com/verifyxo/engine/pkg/title"
)

// defaultLanguage is assumed when a request omits the language. Language
// auto-detection is an upstream concern.
const defaultLanguage = "English"

// titleSubmission is the /verify request body.
type titleSubmission struct {
	Title    string `json:"title"`
	Language string `json:"language"`
}

// officialApplication is the /submit_application request body.
type officialApplication struct {
	Title      string `json:"title"`
	Language   string `json:"language"`
	OwnerEmail string `json:"owner_email"`
}

// webhookPayload is the /webhook/prgi_sync request body.
type webhookPayload struct {
	Title                    string `json:"title"`
	GovernmentRegistrationID string `json:"government_registration_id"`
	Status                   string `json:"status"`
}

type errorResponse struct {
	Detail string `json:"detail"`
}

type messageResponse struct {
	Status  string `json:"status"`
	Message string `json:"message"`
}

func (a *App) handleVerify(w http.ResponseWriter, r *http.Request) {
	var sub titleSubmission
	if err := json.NewDecoder(r.Body).Decode(&sub); err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Detail: "invalid request body"})
		return
	}
	if sub.Language == "" {
		sub.Language = defaultLanguage
	}

	verdict := a.engine.Verify(r.Context(), sub.Title, sub.Language)
	observe.SetOutcome(r.Context(), verdict.Status)
	writeJSON(w, http.StatusOK, verdict)
}

func (a *App) handleSubmitApplication(w http.ResponseWriter, r *http.Request) {
	var appl officialApplication
	if err := json.NewDecoder(r.Body).Decode(&appl); err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Detail: "invalid request body"})
		return
	}
	if appl.OwnerEmail != "" {
		if _, err := mail.ParseAddress(appl.OwnerEmail); err != nil {
			writeJSON(w, http.StatusBadRequest, errorResponse{Detail: "owner_email is not a valid address"})
			return
		}
	}

	clean := title.Normalize(appl.Title)
	if clean == "" {
		writeJSON(w, http.StatusBadRequest, errorResponse{Detail: "Title cannot be empty."})
		return
	}

	// One application at a time: the duplicate check, the store write, and
	// the index insert must not interleave across requests.
	a.submitMu.Lock()
	defer a.submitMu.Unlock()

	if a.index.Contains(clean) {
		a.recordSubmission(r, "conflict")
		writeJSON(w, http.StatusConflict, errorResponse{Detail: "Title already exists."})
		return
	}

	// The store write comes first; a failed write must leave the index
	// untouched.
	if err := a.corpus.InsertPending(r.Context(), appl.Title, appl.Language); err != nil {
		if errors.Is(err, store.ErrTitleExists) {
			a.recordSubmission(r, "conflict")
			writeJSON(w, http.StatusConflict, errorResponse{Detail: "Title already exists."})
			return
		}
		a.recordSubmission(r, "error")
		observe.Logger(r.Context()).Error("failed to persist application", "err", err)
		writeJSON(w, http.StatusInternalServerError, errorResponse{Detail: "Failed to persist application."})
		return
	}

	a.index.Add(appl.Title)
	a.metrics.IndexedTitles.Add(r.Context(), 1)
	a.engine.InvalidateCache()
	a.recordSubmission(r, "accepted")

	observe.Logger(r.Context()).Info("official application submitted",
		"normalized", clean,
		"language", appl.Language,
		"owner_email", appl.OwnerEmail,
	)
	writeJSON(w, http.StatusOK, messageResponse{
		Status:  "success",
		Message: "Official application submitted to PRGI.",
	})
}

func (a *App) handleRegistrySync(w http.ResponseWriter, r *http.Request) {
	var payload webhookPayload
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Detail: "invalid request body"})
		return
	}

	err := a.corpus.SyncRegistration(r.Context(), payload.Title, payload.GovernmentRegistrationID, payload.Status)
	if err != nil {
		observe.Logger(r.Context()).Error("registry sync failed", "err", err)
		writeJSON(w, http.StatusInternalServerError, errorResponse{Detail: "Sync failed."})
		return
	}
	writeJSON(w, http.StatusOK, messageResponse{
		Status:  "success",
		Message: "Database synced with official PRGI records.",
	})
}

// recordSubmission counts the submission and tags the request's access-log
// line with its outcome.
func (a *App) recordSubmission(r *http.Request, status string) {
	observe.SetOutcome(r.Context(), status)
	a.metrics.Submissions.Add(r.Context(), 1,
		metric.WithAttributes(attribute.String("status", status)))
}

// metricsHandler serves the Prometheus scrape endpoint fed by the OTel
// exporter bridge.
func metricsHandler() http.Handler {
	return promhttp.Handler()
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		http.Error(w, `{"detail":"encoding error"}`, http.StatusInternalServerError)
	}
}
