package middleware

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"

	"github.com/getkin/kin-openapi/openapi3"
	"github.com/getkin/kin-openapi/openapi3filter"
	"github.com/getkin/kin-openapi/routers"
	"github.com/getkin/kin-openapi/routers/gorillamux"

	"card-admin/api"
	"card-admin/internal/observability"
)

// OpenAPIValidatorConfig holds configuration for OpenAPI validation middleware
type OpenAPIValidatorConfig struct {
	// Enabled controls whether validation is active
	Enabled bool
	// Spec is the OpenAPI document; the embedded one is used when empty
	Spec []byte
	// PathPrefix limits validation to the JSON API
	PathPrefix string
	// ValidateResponses logs responses that drift from the document
	ValidateResponses bool
}

// DefaultOpenAPIValidatorConfig validates requests under /api/ against the
// embedded document.
func DefaultOpenAPIValidatorConfig(enabled bool) *OpenAPIValidatorConfig {
	return &OpenAPIValidatorConfig{
		Enabled:    enabled,
		Spec:       api.OpenAPISpec,
		PathPrefix: "/api/",
	}
}

// LoadOpenAPIRouter parses and validates an OpenAPI document and builds a
// router for matching requests to its operations.
func LoadOpenAPIRouter(spec []byte) (routers.Router, error) {
	loader := openapi3.NewLoader()
	doc, err := loader.LoadFromData(spec)
	if err != nil {
		return nil, fmt.Errorf("load openapi document: %w", err)
	}
	if err := doc.Validate(loader.Context); err != nil {
		return nil, fmt.Errorf("invalid openapi document: %w", err)
	}
	// Matching is by path only; the server URL list is irrelevant here.
	doc.Servers = nil
	router, err := gorillamux.NewRouter(doc)
	if err != nil {
		return nil, fmt.Errorf("build openapi router: %w", err)
	}
	return router, nil
}

// OpenAPIValidator rejects API requests whose shape does not match the
// OpenAPI document with 400 {"message": ...}. Field level card rules are
// left to the handlers.
func OpenAPIValidator(config *OpenAPIValidatorConfig) (func(http.Handler) http.Handler, error) {
	if config == nil {
		config = DefaultOpenAPIValidatorConfig(true)
	}

	if !config.Enabled {
		slog.Info("OpenAPI validation disabled")
		return passthrough, nil
	}

	spec := config.Spec
	if len(spec) == 0 {
		spec = api.OpenAPISpec
	}
	router, err := LoadOpenAPIRouter(spec)
	if err != nil {
		return nil, err
	}

	slog.Info("OpenAPI validation enabled",
		slog.String("path_prefix", config.PathPrefix),
		slog.Bool("validate_responses", config.ValidateResponses))

	options := &openapi3filter.Options{
		AuthenticationFunc: openapi3filter.NoopAuthenticationFunc,
		MultiError:         false,
	}

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if !strings.HasPrefix(r.URL.Path, config.PathPrefix) {
				next.ServeHTTP(w, r)
				return
			}

			logger := observability.FromContext(r.Context())

			route, pathParams, err := router.FindRoute(r)
			if err != nil {
				// Unknown routes fall through to the router's 404/405.
				next.ServeHTTP(w, r)
				return
			}

			input := &openapi3filter.RequestValidationInput{
				Request:    r,
				PathParams: pathParams,
				Route:      route,
				Options:    options,
			}
			if err := openapi3filter.ValidateRequest(r.Context(), input); err != nil {
				logger.Warn("request validation failed",
					slog.String("method", r.Method),
					slog.String("path", r.URL.Path),
					slog.String("error", err.Error()))
				writeError(w, http.StatusBadRequest, requestErrorMessage(err))
				return
			}

			if !config.ValidateResponses {
				next.ServeHTTP(w, r)
				return
			}

			recorder := &responseRecorder{ResponseWriter: w, statusCode: http.StatusOK}
			next.ServeHTTP(recorder, r)

			responseInput := &openapi3filter.ResponseValidationInput{
				RequestValidationInput: input,
				Status:                 recorder.statusCode,
				Header:                 recorder.Header(),
				Body:                   io.NopCloser(bytes.NewReader(recorder.body.Bytes())),
				Options:                options,
			}
			if err := openapi3filter.ValidateResponse(r.Context(), responseInput); err != nil {
				logger.Warn("response validation failed",
					slog.String("method", r.Method),
					slog.String("path", r.URL.Path),
					slog.Int("status", recorder.statusCode),
					slog.String("error", err.Error()))
			}
		})
	}, nil
}

func passthrough(next http.Handler) http.Handler { return next }

// requestErrorMessage keeps the client-facing text short; the full
// validation trace is logged.
func requestErrorMessage(err error) string {
	var reqErr *openapi3filter.RequestError
	if errors.As(err, &reqErr) {
		if reqErr.RequestBody != nil {
			return "Request body must be a JSON object"
		}
		if reqErr.Parameter != nil {
			return fmt.Sprintf("Invalid parameter %q", reqErr.Parameter.Name)
		}
	}
	return "Invalid request"
}

// responseRecorder wraps http.ResponseWriter to capture response data
type responseRecorder struct {
	http.ResponseWriter
	statusCode int
	body       bytes.Buffer
}

func (r *responseRecorder) WriteHeader(statusCode int) {
	r.statusCode = statusCode
	r.ResponseWriter.WriteHeader(statusCode)
}

func (r *responseRecorder) Write(b []byte) (int, error) {
	r.body.Write(b)
	return r.ResponseWriter.Write(b)
}
