package api

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/onkernel/docclassify/cmd/api/config"
	"github.com/onkernel/docclassify/lib/documents"
	mw "github.com/onkernel/docclassify/lib/middleware"
)

// ApiService implements the HTTP handlers
type ApiService struct {
	Config          *config.Config
	DocumentManager documents.Manager
}

// New creates a new ApiService
func New(config *config.Config, documentManager documents.Manager) *ApiService {
	return &ApiService{
		Config:          config,
		DocumentManager: documentManager,
	}
}

// Routes mounts the API on r. /classify is guarded by JWT auth when a secret
// is configured and by the upload size limit.
func (s *ApiService) Routes(r chi.Router) {
	r.Get("/", s.Root)
	r.Get("/health", s.Health)
	r.Get("/spec.yaml", s.SpecYAML)
	r.Get("/spec.json", s.SpecJSON)

	r.Group(func(r chi.Router) {
		if s.Config.JwtSecret != "" {
			r.Use(mw.VerifyJWT(s.Config.JwtSecret))
		}
		r.Use(mw.LimitBody(int64(s.Config.MaxUploadSize.Bytes())))
		r.Post("/classify", s.Classify)
	})
}

type errorResponse struct {
	Detail string `json:"detail"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeDetail(w http.ResponseWriter, status int, detail string) {
	writeJSON(w, status, errorResponse{Detail: detail})
}
