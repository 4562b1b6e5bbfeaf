package api

import "net/http"

const serviceName = "Pregnancy Document Classifier"

// Root returns the service banner
func (s *ApiService) Root(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{
		"message": "Pregnancy Classifier API - Up and running",
	})
}

// Health reports liveness
func (s *ApiService) Health(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{
		"status":  "healthy",
		"service": serviceName,
	})
}
