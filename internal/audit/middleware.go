package audit

import (
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/noah-isme/backend-kasir/internal/common"
)

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (w *statusRecorder) WriteHeader(code int) {
	w.status = code
	w.ResponseWriter.WriteHeader(code)
}

// HTTPRecorder audits successful write requests. Reads are never recorded;
// the log exists to answer "who changed what", not "who looked".
func HTTPRecorder(svc Service, log zerolog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if !svc.Enabled || !isWrite(r.Method) {
				next.ServeHTTP(w, r)
				return
			}

			rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
			next.ServeHTTP(rec, r)

			if rec.status < 200 || rec.status >= 300 {
				return
			}

			route := r.URL.Path
			if rctx := chi.RouteContext(r.Context()); rctx != nil {
				if p := rctx.RoutePattern(); p != "" {
					route = p
				}
			}
			var actorID *uuid.UUID
			if raw, ok := common.UserID(r.Context()); ok {
				if id, err := uuid.Parse(raw); err == nil {
					actorID = &id
				}
			}
			err := svc.Record(r.Context(), actorID, r.Method+" "+route, entityFromPath(r.URL.Path), "", map[string]any{
				"status": rec.status,
			})
			if err != nil {
				log.Warn().Err(err).Str("route", route).Msg("audit record failed")
			}
		})
	}
}

func isWrite(method string) bool {
	switch method {
	case http.MethodPost, http.MethodPut, http.MethodPatch, http.MethodDelete:
		return true
	}
	return false
}

// entityFromPath picks the first meaningful path segment, e.g.
// /api/v1/bills/checkout becomes "bills".
func entityFromPath(path string) string {
	for _, seg := range strings.Split(strings.Trim(path, "/"), "/") {
		if seg == "" || seg == "api" || strings.HasPrefix(seg, "v") && len(seg) <= 3 {
			continue
		}
		return seg
	}
	return "unknown"
}
