package handlers

import (
	"bytes"
	"image/png"
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestAvatarHandler_Serve(t *testing.T) {
	handler := NewAvatarHandler()

	req := httptest.NewRequest(http.MethodGet, "/avatars/mika.png", nil)
	req.SetPathValue("seed", "mika.png")
	rr := httptest.NewRecorder()

	handler.Serve(rr, req)

	if rr.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d", rr.Code)
	}
	if got := rr.Header().Get("Content-Type"); got != "image/png" {
		t.Errorf("unexpected content type %q", got)
	}
	if got := rr.Header().Get("Cache-Control"); got == "" {
		t.Error("expected cache headers")
	}
	if _, err := png.Decode(bytes.NewReader(rr.Body.Bytes())); err != nil {
		t.Fatalf("expected valid png: %v", err)
	}
}

func TestAvatarHandler_Serve_CachesRenders(t *testing.T) {
	handler := NewAvatarHandler()

	first := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/avatars/mika.png", nil)
	req.SetPathValue("seed", "mika.png")
	handler.Serve(first, req)

	second := httptest.NewRecorder()
	req = httptest.NewRequest(http.MethodGet, "/avatars/mika.png", nil)
	req.SetPathValue("seed", "mika.png")
	handler.Serve(second, req)

	if !bytes.Equal(first.Body.Bytes(), second.Body.Bytes()) {
		t.Fatal("expected identical bytes for repeated seed")
	}
	if len(handler.cache) != 1 {
		t.Fatalf("expected one cached avatar, got %d", len(handler.cache))
	}
}

func TestAvatarHandler_Serve_EmptySeed(t *testing.T) {
	handler := NewAvatarHandler()

	req := httptest.NewRequest(http.MethodGet, "/avatars/.png", nil)
	req.SetPathValue("seed", ".png")
	rr := httptest.NewRecorder()

	handler.Serve(rr, req)

	if rr.Code != http.StatusNotFound {
		t.Errorf("expected status 404, got %d", rr.Code)
	}
}
