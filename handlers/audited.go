package handlers

import (
	"bytes"
	"encoding/json"
	"io"
	"mime"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/upb/contact-directory/middleware"
	"github.com/upb/contact-directory/models"
	"github.com/upb/contact-directory/utils"
	"go.uber.org/zap"
)

// redactedFields are replaced wherever they appear in a payload before it is
// stored as audit details
var redactedFields = []string{"password"}

// AuditRecorder receives one entry per successful mutating request
type AuditRecorder interface {
	Record(actor *models.Principal, action models.AuditAction, entityType string, entityID *int64, details string)
}

// Outcome is the structured result of a mutating handler.
// Audited writes it as the response envelope and derives the audit entry from it.
type Outcome struct {
	// Status defaults to 200
	Status int
	Data   interface{}
	// EntityID overrides the {id} route parameter as the audited entity
	EntityID *int64
	// Details is used when the request payload is not JSON
	Details string
}

// MutationFunc performs a mutating action and reports its outcome
type MutationFunc func(r *http.Request) (*Outcome, error)

// Audited adapts fn into a handler that records exactly one audit entry
// when, and only when, fn returns a nil error.
func Audited(recorder AuditRecorder, logger *zap.Logger, action models.AuditAction, entityType string, fn MutationFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		payload := capturePayload(r)

		outcome, err := fn(r)
		if err != nil {
			HandleServiceError(w, err, logger)
			return
		}
		if outcome == nil {
			outcome = &Outcome{Status: http.StatusNoContent}
		}

		writeOutcome(w, outcome, logger)

		entityID := outcome.EntityID
		if entityID == nil {
			if id, err := utils.ParseID(chi.URLParam(r, "id")); err == nil {
				entityID = &id
			}
		}

		details := payload
		if details == "" {
			details = outcome.Details
		}

		recorder.Record(middleware.GetPrincipalFromContext(r.Context()), action, entityType, entityID, details)
	}
}

func writeOutcome(w http.ResponseWriter, o *Outcome, logger *zap.Logger) {
	status := o.Status
	if status == 0 {
		status = http.StatusOK
	}
	if status == http.StatusNoContent {
		utils.WriteNoContent(w)
		return
	}
	if err := utils.WriteJSON(w, status, utils.SuccessResponse{Data: o.Data}); err != nil {
		logger.Error("failed to write response", zap.Error(err))
	}
}

// capturePayload buffers a JSON request body so it can be both decoded by the
// handler and stored as audit details. Non-JSON bodies are left untouched.
func capturePayload(r *http.Request) string {
	if r.Body == nil || r.Body == http.NoBody {
		return ""
	}
	mediaType, _, _ := mime.ParseMediaType(r.Header.Get("Content-Type"))
	if mediaType != "" && mediaType != "application/json" {
		return ""
	}

	body, err := io.ReadAll(io.LimitReader(r.Body, utils.MaxJSONBodyBytes))
	_ = r.Body.Close()
	r.Body = io.NopCloser(bytes.NewReader(body))
	if err != nil || len(bytes.TrimSpace(body)) == 0 {
		return ""
	}

	return detailsFromJSON(body)
}

// detailsFromJSON renders a payload compactly with credential fields masked
// at any depth
func detailsFromJSON(body []byte) string {
	dec := json.NewDecoder(bytes.NewReader(body))
	dec.UseNumber()
	var v interface{}
	if err := dec.Decode(&v); err != nil {
		return ""
	}
	out, err := json.Marshal(redact(v))
	if err != nil {
		return ""
	}
	return string(out)
}

// redact masks redactedFields in nested objects and arrays in place
func redact(v interface{}) interface{} {
	switch t := v.(type) {
	case map[string]interface{}:
		for k, val := range t {
			if isRedactedField(k) {
				t[k] = "[REDACTED]"
				continue
			}
			t[k] = redact(val)
		}
	case []interface{}:
		for i := range t {
			t[i] = redact(t[i])
		}
	}
	return v
}

func isRedactedField(name string) bool {
	for _, field := range redactedFields {
		if name == field {
			return true
		}
	}
	return false
}
