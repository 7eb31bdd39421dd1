package response

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	chimiddleware "github.com/go-chi/chi/v5/middleware"
)

func TestJSONWritesSuccessEnvelope(t *testing.T) {
	var rr *httptest.ResponseRecorder
	h := chimiddleware.RequestID(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		JSON(w, r, http.StatusCreated, map[string]string{"operation": "created"})
	}))
	rr = httptest.NewRecorder()
	h.ServeHTTP(rr, httptest.NewRequest(http.MethodPost, "/", nil))

	if rr.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d", rr.Code)
	}
	if ct := rr.Header().Get("Content-Type"); ct != "application/json" {
		t.Fatalf("unexpected content type %q", ct)
	}
	var env struct {
		Success bool              `json:"success"`
		Data    map[string]string `json:"data"`
		Meta    Meta              `json:"meta"`
	}
	if err := json.Unmarshal(rr.Body.Bytes(), &env); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if !env.Success || env.Data["operation"] != "created" {
		t.Fatalf("unexpected envelope %+v", env)
	}
	if env.Meta.RequestID == "" {
		t.Fatal("expected request id in meta")
	}
}

func TestErrorWritesErrorEnvelope(t *testing.T) {
	rr := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	Error(rr, req, http.StatusUnauthorized, "INVALID_CREDENTIALS", "invalid credentials", nil)

	if rr.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d", rr.Code)
	}
	var env Envelope
	if err := json.Unmarshal(rr.Body.Bytes(), &env); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if env.Success || env.Error == nil || env.Error.Code != "INVALID_CREDENTIALS" {
		t.Fatalf("unexpected envelope %+v", env)
	}
	if env.Data != nil {
		t.Fatalf("expected no data on error, got %v", env.Data)
	}
}
