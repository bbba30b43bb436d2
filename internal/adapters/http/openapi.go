package httpadapter

import (
	"context"
	_ "embed"
	"log/slog"
	"net/http"

	"github.com/getkin/kin-openapi/openapi3"
	"github.com/getkin/kin-openapi/openapi3filter"
	"github.com/getkin/kin-openapi/routers/gorillamux"
)

//go:embed openapi.yaml
var openapiSpec []byte

// validationMiddleware checks requests against the embedded OpenAPI
// document: path shape and parameter types. Bodies are excluded (uploads
// are multipart streams) and unknown paths fall through to the mux.
func validationMiddleware(next http.Handler) http.Handler {
	loader := openapi3.NewLoader()
	loader.Context = context.Background()
	doc, err := loader.LoadFromData(openapiSpec)
	if err != nil {
		slog.Error("openapi_spec_load_failed", "error", err)
		return next
	}
	if err := doc.Validate(loader.Context); err != nil {
		slog.Error("openapi_spec_invalid", "error", err)
		return next
	}
	router, err := gorillamux.NewRouter(doc)
	if err != nil {
		slog.Error("openapi_router_failed", "error", err)
		return next
	}

	options := &openapi3filter.Options{
		ExcludeRequestBody:  true,
		ExcludeResponseBody: true,
	}

	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		route, pathParams, err := router.FindRoute(r)
		if err != nil {
			next.ServeHTTP(w, r)
			return
		}

		input := &openapi3filter.RequestValidationInput{
			Request:    r,
			PathParams: pathParams,
			Route:      route,
			Options:    options,
		}
		if err := openapi3filter.ValidateRequest(context.Background(), input); err != nil {
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": err.Error()})
			return
		}
		next.ServeHTTP(w, r)
	})
}
