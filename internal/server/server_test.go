package server

import (
	"bytes"
	"encoding/json"
	"image"
	"image/color"
	"image/png"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/kiesman99/assembler/internal/api"
)

// Test server setup
func setupTestServer() *httptest.Server {
	return httptest.NewServer(NewRouter(NewServer("1.0.0-test", nil), 30*time.Second))
}

func pngTile(t *testing.T, w, h int, c color.NRGBA) []byte {
	t.Helper()
	img := image.NewNRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			img.SetNRGBA(x, y, c)
		}
	}
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		t.Fatalf("Failed to encode tile: %v", err)
	}
	return buf.Bytes()
}

type upload struct {
	name string
	data []byte
}

// tilesForm encodes files as a multipart form
func tilesForm(t *testing.T, files []upload) (*bytes.Buffer, string) {
	t.Helper()

	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	for _, f := range files {
		part, err := mw.CreateFormFile(api.TilesField, f.name)
		if err != nil {
			t.Fatalf("Failed to create form file: %v", err)
		}
		part.Write(f.data)
	}
	if err := mw.Close(); err != nil {
		t.Fatalf("Failed to close multipart writer: %v", err)
	}
	return &body, mw.FormDataContentType()
}

// postTiles sends files as a multipart form to the spritesheet endpoint
func postTiles(t *testing.T, url string, files []upload) *http.Response {
	t.Helper()

	body, contentType := tilesForm(t, files)
	resp, err := http.Post(url, contentType, body)
	if err != nil {
		t.Fatalf("Failed to make request: %v", err)
	}
	return resp
}

func decodeError(t *testing.T, resp *http.Response) api.ErrorResponse {
	t.Helper()
	var errResp api.ErrorResponse
	if err := json.NewDecoder(resp.Body).Decode(&errResp); err != nil {
		t.Fatalf("Failed to decode error response: %v", err)
	}
	return errResp
}

func TestHealthEndpoint(t *testing.T) {
	server := setupTestServer()
	defer server.Close()

	resp, err := http.Get(server.URL + "/api/v1/health")
	if err != nil {
		t.Fatalf("Failed to make request: %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		t.Errorf("Expected status 200, got %d", resp.StatusCode)
	}

	contentType := resp.Header.Get("Content-Type")
	if contentType != "application/json" {
		t.Errorf("Expected Content-Type application/json, got %s", contentType)
	}

	var healthResp api.HealthResponse
	if err := json.NewDecoder(resp.Body).Decode(&healthResp); err != nil {
		t.Fatalf("Failed to decode response: %v", err)
	}

	if healthResp.Status != api.Healthy {
		t.Errorf("Expected status 'healthy', got %s", healthResp.Status)
	}

	if healthResp.Version == nil || *healthResp.Version != "1.0.0-test" {
		t.Errorf("Expected version '1.0.0-test', got %v", healthResp.Version)
	}

	if healthResp.Uptime == nil || *healthResp.Uptime < 0 {
		t.Errorf("Expected valid uptime, got %v", healthResp.Uptime)
	}

	if time.Since(healthResp.Timestamp) > time.Minute {
		t.Errorf("Timestamp seems too old: %v", healthResp.Timestamp)
	}
}

func TestLegacyHealthRedirect(t *testing.T) {
	server := setupTestServer()
	defer server.Close()

	resp, err := http.Get(server.URL + "/health")
	if err != nil {
		t.Fatalf("Failed to make request: %v", err)
	}
	defer resp.Body.Close()

	// The client follows the redirect
	if resp.StatusCode != http.StatusOK {
		t.Errorf("Expected status 200 after redirect, got %d", resp.StatusCode)
	}
}

func TestSpritesheetEndpoint_Success(t *testing.T) {
	server := setupTestServer()
	defer server.Close()

	colors := []color.NRGBA{
		{R: 255, A: 200},
		{G: 255, A: 200},
		{B: 255, A: 200},
		{R: 255, G: 255, A: 200},
		{R: 255, B: 255, A: 200},
	}
	// Uploaded out of order; cells follow the file names.
	files := []upload{
		{"e.png", pngTile(t, 10, 10, colors[4])},
		{"c.png", pngTile(t, 10, 10, colors[2])},
		{"a.png", pngTile(t, 10, 10, colors[0])},
		{"readme.png", []byte("not an image")},
		{"d.png", pngTile(t, 10, 10, colors[3])},
		{"b.png", pngTile(t, 10, 10, colors[1])},
	}

	resp := postTiles(t, server.URL+"/api/v1/spritesheet", files)
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		t.Fatalf("Expected status 200, got %d. Body: %s", resp.StatusCode, string(body))
	}

	if ct := resp.Header.Get("Content-Type"); ct != "image/png" {
		t.Errorf("Expected Content-Type image/png, got %s", ct)
	}
	if resp.Header.Get("X-Request-ID") == "" {
		t.Error("Expected X-Request-ID header")
	}
	if resp.Header.Get("X-Grid-Columns") != "2" || resp.Header.Get("X-Grid-Rows") != "3" {
		t.Errorf("Expected 2x3 grid, got %sx%s", resp.Header.Get("X-Grid-Columns"), resp.Header.Get("X-Grid-Rows"))
	}

	img, err := png.Decode(resp.Body)
	if err != nil {
		t.Fatalf("Response is not a valid PNG: %v", err)
	}
	if img.Bounds().Dx() != 20 || img.Bounds().Dy() != 30 {
		t.Fatalf("Expected 20x30 image, got %v", img.Bounds())
	}

	for i, c := range colors {
		x := (i%2)*10 + 5
		y := (i/2)*10 + 5
		got := color.NRGBAModel.Convert(img.At(x, y)).(color.NRGBA)
		if got != c {
			t.Errorf("Cell %d: expected %v, got %v", i, c, got)
		}
	}
}

func TestSpritesheetEndpoint_OutputFormat(t *testing.T) {
	server := setupTestServer()
	defer server.Close()

	files := []upload{{"a.png", pngTile(t, 4, 4, color.NRGBA{R: 10, A: 200})}}

	resp := postTiles(t, server.URL+"/api/v1/spritesheet?output=sheet.bmp", files)
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		t.Fatalf("Expected status 200, got %d. Body: %s", resp.StatusCode, string(body))
	}
	if ct := resp.Header.Get("Content-Type"); ct != "image/bmp" {
		t.Errorf("Expected Content-Type image/bmp, got %s", ct)
	}
}

func TestSpritesheetEndpoint_Errors(t *testing.T) {
	server := setupTestServer()
	defer server.Close()

	testCases := []struct {
		name           string
		query          string
		files          []upload
		expectedStatus int
		expectedError  string
	}{
		{
			name:           "No files",
			expectedStatus: http.StatusUnprocessableEntity,
			expectedError:  api.ErrNoImages,
		},
		{
			name:           "Only unreadable files",
			files:          []upload{{"a.png", []byte("text")}, {"b.png", []byte("more text")}},
			expectedStatus: http.StatusUnprocessableEntity,
			expectedError:  api.ErrNoImages,
		},
		{
			name: "Inconsistent sizes",
			files: []upload{
				{"a.png", pngTile(t, 8, 8, color.NRGBA{A: 200})},
				{"b.png", pngTile(t, 8, 4, color.NRGBA{A: 200})},
			},
			expectedStatus: http.StatusUnprocessableEntity,
			expectedError:  api.ErrInconsistentSize,
		},
		{
			name: "Duplicate tile names",
			files: []upload{
				{"walk/1.png", pngTile(t, 8, 8, color.NRGBA{R: 1, A: 200})},
				{"run/1.png", pngTile(t, 8, 8, color.NRGBA{R: 2, A: 200})},
			},
			expectedStatus: http.StatusBadRequest,
			expectedError:  api.ErrInvalidForm,
		},
		{
			name:           "Unsupported output format",
			query:          "?output=sheet.svg",
			files:          []upload{{"a.png", pngTile(t, 8, 8, color.NRGBA{A: 200})}},
			expectedStatus: http.StatusBadRequest,
			expectedError:  api.ErrUnsupportedFormat,
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			resp := postTiles(t, server.URL+"/api/v1/spritesheet"+tc.query, tc.files)
			defer resp.Body.Close()

			if resp.StatusCode != tc.expectedStatus {
				body, _ := io.ReadAll(resp.Body)
				t.Fatalf("Expected status %d, got %d. Body: %s", tc.expectedStatus, resp.StatusCode, string(body))
			}

			errResp := decodeError(t, resp)
			if errResp.Error != tc.expectedError {
				t.Errorf("Expected error %s, got %s", tc.expectedError, errResp.Error)
			}
			if errResp.RequestId == nil || *errResp.RequestId == "" {
				t.Error("Expected request ID in error response")
			}
		})
	}
}

func TestSpritesheetEndpoint_NotMultipart(t *testing.T) {
	server := setupTestServer()
	defer server.Close()

	resp, err := http.Post(server.URL+"/api/v1/spritesheet", "application/json", bytes.NewBufferString(`{}`))
	if err != nil {
		t.Fatalf("Failed to make request: %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("Expected status 400, got %d", resp.StatusCode)
	}
	if errResp := decodeError(t, resp); errResp.Error != api.ErrInvalidForm {
		t.Errorf("Expected error %s, got %s", api.ErrInvalidForm, errResp.Error)
	}
}

func TestCORSPreflight(t *testing.T) {
	server := setupTestServer()
	defer server.Close()

	req, _ := http.NewRequest(http.MethodOptions, server.URL+"/api/v1/spritesheet", nil)
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("Failed to make request: %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		t.Errorf("Expected status 200, got %d", resp.StatusCode)
	}
	if resp.Header.Get("Access-Control-Allow-Origin") != "*" {
		t.Error("Expected CORS header")
	}
}

func TestSpritesheetEndpoint_RequestIDFromMiddleware(t *testing.T) {
	server := setupTestServer()
	defer server.Close()

	body, contentType := tilesForm(t, []upload{{"a.png", pngTile(t, 4, 4, color.NRGBA{B: 50, A: 200})}})
	req, err := http.NewRequest(http.MethodPost, server.URL+"/api/v1/spritesheet", body)
	if err != nil {
		t.Fatalf("Failed to create request: %v", err)
	}
	req.Header.Set("Content-Type", contentType)
	req.Header.Set("X-Request-Id", "sheet-42")

	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("Failed to make request: %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		t.Fatalf("Expected status 200, got %d", resp.StatusCode)
	}
	if got := resp.Header.Get("X-Request-ID"); got != "sheet-42" {
		t.Errorf("Expected X-Request-ID sheet-42, got %q", got)
	}
}

func TestSpritesheetEndpoint_UploadTooLarge(t *testing.T) {
	s := NewServer("1.0.0-test", nil)
	s.SetMaxUpload(1024)
	server := httptest.NewServer(NewRouter(s, 30*time.Second))
	defer server.Close()

	big := make([]byte, 4096)
	resp := postTiles(t, server.URL+"/api/v1/spritesheet", []upload{{"a.png", big}})
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusRequestEntityTooLarge {
		body, _ := io.ReadAll(resp.Body)
		t.Fatalf("Expected status 413, got %d. Body: %s", resp.StatusCode, string(body))
	}
	if errResp := decodeError(t, resp); errResp.Error != api.ErrUploadTooLarge {
		t.Errorf("Expected error %s, got %s", api.ErrUploadTooLarge, errResp.Error)
	}
}
