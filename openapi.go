// Package docclassify holds assets shared by the service binaries.
package docclassify

import _ "embed"

// OpenAPIYAML is the HTTP API description served at /spec.yaml.
//
//go:embed openapi.yaml
var OpenAPIYAML []byte
