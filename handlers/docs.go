package handlers

import (
	_ "embed"
	"net/http"

	httpSwagger "github.com/swaggo/http-swagger"
)

//go:embed docs/openapi.json
var openAPISpec []byte

func OpenAPI(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	_, _ = w.Write(openAPISpec)
}

// SwaggerUI serves the interactive docs for /api/openapi.json.
func SwaggerUI() http.HandlerFunc {
	return httpSwagger.Handler(httpSwagger.URL("/api/openapi.json"))
}
