// Package api holds the OpenAPI description of the HTTP surface.
package api

import _ "embed"

// OpenAPI is the OpenAPI 3 document served at /swagger/doc.json.
//
//go:embed openapi.json
var OpenAPI []byte
