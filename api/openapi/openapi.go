// Package openapi embeds the HTTP API description served at /api/openapi.yaml
// and the Swagger UI page served at /docs.
package openapi

import _ "embed"

// Spec is the OpenAPI 3 document in YAML.
//
//go:embed openapi.yaml
var Spec []byte

// Docs renders Spec with Swagger UI.
//
//go:embed docs.html
var Docs []byte
