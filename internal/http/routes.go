package httpx

import (
	"net/http"
	"time"

	"github.com/titulapp/thesis-api/internal/service"
)

// RouterServices holds all the services needed by the HTTP router.
type RouterServices struct {
	Export *service.ExportService
	// StreamInterval is the emission period of the progress push stream.
	StreamInterval time.Duration
}

// NewRouter creates and configures a new HTTP router.
func NewRouter(services RouterServices) http.Handler {
	mux := http.NewServeMux()

	exportHandlers := &ExportHandlers{
		Svc:            services.Export,
		StreamInterval: services.StreamInterval,
	}
	registerExportRoutes(mux, exportHandlers)

	mux.Handle("GET /healthz", http.HandlerFunc(healthHandler))
	mux.Handle("HEAD /healthz", http.HandlerFunc(healthHandler))

	return mux
}

func registerExportRoutes(mux *http.ServeMux, h *ExportHandlers) {
	mux.HandleFunc("POST /api/export", h.StartExport)
	mux.HandleFunc("GET /api/export/jobs/{id}", h.GetProgress)
	mux.HandleFunc("GET /api/export/jobs/{id}/events", h.StreamProgress)
	mux.HandleFunc("GET /api/export/jobs/{id}/download", h.GetResult)
}

func healthHandler(w http.ResponseWriter, r *http.Request) {
	if r.Method == http.MethodHead {
		w.WriteHeader(http.StatusOK)
		return
	}
	WriteJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}
