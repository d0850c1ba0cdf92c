package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"path/filepath"
	"strconv"
	"time"

	"github.com/charmbracelet/log"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/google/uuid"
	"github.com/spf13/afero"

	"github.com/kiesman99/assembler/internal/api"
	"github.com/kiesman99/assembler/internal/assembler"
	"github.com/kiesman99/assembler/pkg/tile"
)

// maxMemory is the part of a multipart upload kept in memory before spilling to disk.
const maxMemory = 32 << 20

// DefaultMaxUpload caps the size of a spritesheet request body.
const DefaultMaxUpload = 64 << 20

// Server implements the ServerInterface from the api package
type Server struct {
	startTime time.Time
	version   string
	maxUpload int64
	logger    *log.Logger
}

// NewServer creates a new server instance
func NewServer(version string, logger *log.Logger) *Server {
	if logger == nil {
		logger = log.New(io.Discard)
	}
	return &Server{
		startTime: time.Now(),
		version:   version,
		maxUpload: DefaultMaxUpload,
		logger:    logger,
	}
}

// SetMaxUpload sets the largest accepted request body in bytes.
func (s *Server) SetMaxUpload(n int64) {
	if n > 0 {
		s.maxUpload = n
	}
}

// reqID returns the ID assigned by middleware.RequestID, or a new one
func reqID(r *http.Request) string {
	if id := middleware.GetReqID(r.Context()); id != "" {
		return id
	}
	return uuid.NewString()
}

// NewRouter mounts the API of s below /api/v1 with the usual middleware stack
func NewRouter(s *Server, timeout time.Duration) chi.Router {
	r := chi.NewRouter()

	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Timeout(timeout))

	// CORS middleware for API access
	r.Use(func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set("Access-Control-Allow-Origin", "*")
			w.Header().Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
			w.Header().Set("Access-Control-Allow-Headers", "Content-Type")

			if r.Method == "OPTIONS" {
				w.WriteHeader(http.StatusOK)
				return
			}

			next.ServeHTTP(w, r)
		})
	})

	r.Route("/api/v1", func(r chi.Router) {
		api.HandlerWithOptions(s, api.ChiServerOptions{
			BaseRouter: r,
			ErrorHandlerFunc: func(w http.ResponseWriter, r *http.Request, err error) {
				requestID := reqID(r)
				s.writeErrorResponse(w, http.StatusBadRequest, api.ErrInvalidParameter, err.Error(), &requestID)
			},
		})
	})

	// Unversioned health endpoint
	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		http.Redirect(w, r, "/api/v1/health", http.StatusMovedPermanently)
	})

	return r
}

// GetHealth implements the health check endpoint
func (s *Server) GetHealth(w http.ResponseWriter, r *http.Request) {
	uptime := int(time.Since(s.startTime).Seconds())

	response := api.HealthResponse{
		Status:    api.Healthy,
		Timestamp: time.Now(),
		Uptime:    &uptime,
		Version:   &s.version,
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)

	if err := json.NewEncoder(w).Encode(response); err != nil {
		s.logger.Error("encoding health response", "err", err)
	}
}

// CreateSpritesheet assembles the uploaded tiles and returns the encoded sheet
func (s *Server) CreateSpritesheet(w http.ResponseWriter, r *http.Request, params api.CreateSpritesheetParams) {
	requestID := reqID(r)

	r.Body = http.MaxBytesReader(w, r.Body, s.maxUpload)
	if err := r.ParseMultipartForm(maxMemory); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			s.writeErrorResponse(w, http.StatusRequestEntityTooLarge, api.ErrUploadTooLarge,
				fmt.Sprintf("Upload exceeds %d bytes", tooLarge.Limit), &requestID)
			return
		}
		s.writeErrorResponse(w, http.StatusBadRequest, api.ErrInvalidForm,
			fmt.Sprintf("Invalid multipart form: %v", err), &requestID)
		return
	}
	defer r.MultipartForm.RemoveAll()

	// Every request gets its own in-memory tree laid out like a tile root
	fs := afero.NewMemMapFs()
	root := "/" + uuid.NewString()
	if err := s.storeUploads(fs, root, r); err != nil {
		s.writeErrorResponse(w, http.StatusBadRequest, api.ErrInvalidForm, err.Error(), &requestID)
		return
	}

	output := tile.DefaultOutput
	if params.Output != nil && *params.Output != "" {
		output = filepath.Base(*params.Output)
	}

	result, err := assembler.New(fs, s.logger).Assemble(r.Context(), &assembler.Options{
		Root:   root,
		Output: output,
	})
	if err != nil {
		s.handleAssembleError(w, err, &requestID)
		return
	}

	w.Header().Set("Content-Type", tile.ContentTypes[result.Format])
	w.Header().Set("X-Request-ID", requestID)
	w.Header().Set("X-Grid-Columns", strconv.Itoa(result.Grid.Columns))
	w.Header().Set("X-Grid-Rows", strconv.Itoa(result.Grid.Rows))
	w.Header().Set("Content-Length", strconv.Itoa(len(result.ImageData)))

	w.WriteHeader(http.StatusOK)
	if _, err := w.Write(result.ImageData); err != nil {
		s.logger.Error("writing response", "request_id", requestID, "err", err)
	}
}

// storeUploads copies the uploaded tile files into root/TileDir on fs
func (s *Server) storeUploads(fs afero.Fs, root string, r *http.Request) error {
	dir := filepath.Join(root, tile.TileDir)
	if err := fs.MkdirAll(dir, 0o755); err != nil {
		return err
	}

	seen := make(map[string]bool)
	for _, fh := range r.MultipartForm.File[api.TilesField] {
		name := filepath.Base(filepath.Clean("/" + fh.Filename))
		if name == "/" || name == "." {
			continue
		}
		if seen[name] {
			return fmt.Errorf("duplicate tile name %s", name)
		}
		seen[name] = true

		src, err := fh.Open()
		if err != nil {
			return fmt.Errorf("failed to read upload %s: %w", fh.Filename, err)
		}
		dst, err := fs.Create(filepath.Join(dir, name))
		if err != nil {
			src.Close()
			return err
		}
		_, err = io.Copy(dst, src)
		src.Close()
		dst.Close()
		if err != nil {
			return fmt.Errorf("failed to store upload %s: %w", fh.Filename, err)
		}
	}

	return nil
}

// handleAssembleError maps pipeline errors to API error responses
func (s *Server) handleAssembleError(w http.ResponseWriter, err error, requestID *string) {
	var (
		sizeErr   *tile.InconsistentSizeError
		formatErr *tile.UnsupportedFormatError
	)

	switch {
	case errors.Is(err, tile.ErrNoImages):
		s.writeErrorResponse(w, http.StatusUnprocessableEntity, api.ErrNoImages,
			"No uploaded file is an 8-bit RGBA image", requestID)
	case errors.As(err, &sizeErr):
		s.writeErrorResponse(w, http.StatusUnprocessableEntity, api.ErrInconsistentSize,
			sizeErr.Error(), requestID)
	case errors.As(err, &formatErr):
		s.writeErrorResponse(w, http.StatusBadRequest, api.ErrUnsupportedFormat,
			formatErr.Error(), requestID)
	case errors.Is(err, context.DeadlineExceeded):
		s.writeErrorResponse(w, http.StatusGatewayTimeout, api.ErrTimeout,
			"Assembly timed out", requestID)
	default:
		s.logger.Error("assembly failed", "request_id", *requestID, "err", err)
		s.writeErrorResponse(w, http.StatusInternalServerError, api.ErrInternal,
			"Internal server error", requestID)
	}
}

// writeErrorResponse writes a standard error response
func (s *Server) writeErrorResponse(w http.ResponseWriter, statusCode int, errorCode, message string, requestID *string) {
	response := api.ErrorResponse{
		Error:     errorCode,
		Message:   message,
		RequestId: requestID,
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	json.NewEncoder(w).Encode(response)
}
