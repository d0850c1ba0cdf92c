// Package api defines the HTTP contract of the spritesheet service and binds
// it to a chi router.
package api

import (
	"fmt"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/oapi-codegen/runtime"
)

// Defines values for HealthResponseStatus.
const (
	Healthy   HealthResponseStatus = "healthy"
	Unhealthy HealthResponseStatus = "unhealthy"
)

// Error codes returned in ErrorResponse.Error.
const (
	ErrInvalidForm       = "INVALID_FORM"
	ErrInvalidParameter  = "INVALID_PARAMETER"
	ErrNoImages          = "NO_IMAGES"
	ErrInconsistentSize  = "INCONSISTENT_SIZE"
	ErrUnsupportedFormat = "UNSUPPORTED_FORMAT"
	ErrTimeout           = "TIMEOUT"
	ErrUploadTooLarge    = "UPLOAD_TOO_LARGE"
	ErrInternal          = "INTERNAL_ERROR"
)

// TilesField is the multipart form field carrying tile files.
const TilesField = "tiles"

// HealthResponseStatus defines model for HealthResponse.Status.
type HealthResponseStatus string

// HealthResponse defines model for HealthResponse.
type HealthResponse struct {
	Status    HealthResponseStatus `json:"status"`
	Timestamp time.Time            `json:"timestamp"`
	Uptime    *int                 `json:"uptime,omitempty"`
	Version   *string              `json:"version,omitempty"`
}

// ErrorResponse defines model for ErrorResponse.
type ErrorResponse struct {
	Error     string                  `json:"error"`
	Message   string                  `json:"message"`
	RequestId *string                 `json:"request_id,omitempty"`
	Details   *map[string]interface{} `json:"details,omitempty"`
}

// CreateSpritesheetParams defines parameters for CreateSpritesheet.
type CreateSpritesheetParams struct {
	// Output file name, its extension selects the encoder. Defaults to out.png.
	Output *string `form:"output,omitempty" json:"output,omitempty"`
}

// ServerInterface represents all server handlers.
type ServerInterface interface {
	// Health check
	// (GET /health)
	GetHealth(w http.ResponseWriter, r *http.Request)
	// Assemble uploaded tiles into a spritesheet
	// (POST /spritesheet)
	CreateSpritesheet(w http.ResponseWriter, r *http.Request, params CreateSpritesheetParams)
}

// ServerInterfaceWrapper converts requests into handler calls.
type ServerInterfaceWrapper struct {
	Handler          ServerInterface
	ErrorHandlerFunc func(w http.ResponseWriter, r *http.Request, err error)
}

// GetHealth operation middleware
func (siw *ServerInterfaceWrapper) GetHealth(w http.ResponseWriter, r *http.Request) {
	siw.Handler.GetHealth(w, r)
}

// CreateSpritesheet operation middleware
func (siw *ServerInterfaceWrapper) CreateSpritesheet(w http.ResponseWriter, r *http.Request) {
	var params CreateSpritesheetParams

	err := runtime.BindQueryParameter("form", true, false, "output", r.URL.Query(), &params.Output)
	if err != nil {
		siw.ErrorHandlerFunc(w, r, &InvalidParamFormatError{ParamName: "output", Err: err})
		return
	}

	siw.Handler.CreateSpritesheet(w, r, params)
}

// InvalidParamFormatError reports a query parameter that could not be bound.
type InvalidParamFormatError struct {
	ParamName string
	Err       error
}

func (e *InvalidParamFormatError) Error() string {
	return fmt.Sprintf("Invalid format for parameter %s: %s", e.ParamName, e.Err.Error())
}

func (e *InvalidParamFormatError) Unwrap() error {
	return e.Err
}

// ChiServerOptions configures HandlerWithOptions.
type ChiServerOptions struct {
	BaseURL          string
	BaseRouter       chi.Router
	ErrorHandlerFunc func(w http.ResponseWriter, r *http.Request, err error)
}

// Handler creates http.Handler with routing matching the API.
func Handler(si ServerInterface) http.Handler {
	return HandlerWithOptions(si, ChiServerOptions{})
}

// HandlerWithOptions creates http.Handler with additional options
func HandlerWithOptions(si ServerInterface, options ChiServerOptions) http.Handler {
	r := options.BaseRouter

	if r == nil {
		r = chi.NewRouter()
	}
	if options.ErrorHandlerFunc == nil {
		options.ErrorHandlerFunc = func(w http.ResponseWriter, r *http.Request, err error) {
			http.Error(w, err.Error(), http.StatusBadRequest)
		}
	}
	wrapper := ServerInterfaceWrapper{
		Handler:          si,
		ErrorHandlerFunc: options.ErrorHandlerFunc,
	}

	r.Group(func(r chi.Router) {
		r.Get(options.BaseURL+"/health", wrapper.GetHealth)
	})
	r.Group(func(r chi.Router) {
		r.Post(options.BaseURL+"/spritesheet", wrapper.CreateSpritesheet)
	})

	return r
}
