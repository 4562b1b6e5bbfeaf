package api

import (
	"net/http"

	"github.com/ghodss/yaml"
	openapi "github.com/onkernel/docclassify"
	"github.com/onkernel/docclassify/lib/logger"
)

// SpecYAML serves the OpenAPI document
func (s *ApiService) SpecYAML(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/vnd.oai.openapi")
	_, _ = w.Write(openapi.OpenAPIYAML)
}

// SpecJSON serves the OpenAPI document converted to JSON
func (s *ApiService) SpecJSON(w http.ResponseWriter, r *http.Request) {
	jsonData, err := yaml.YAMLToJSON(openapi.OpenAPIYAML)
	if err != nil {
		logger.FromContext(r.Context()).ErrorContext(r.Context(), "failed to convert YAML to JSON", "error", err)
		http.Error(w, "Failed to convert YAML to JSON", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	_, _ = w.Write(jsonData)
}
