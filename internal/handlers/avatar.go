package handlers

import (
	"net/http"
	"strings"
	"sync"

	"github.com/linguapal/linguapal/internal/services"
)

const avatarCacheMax = 512

// AvatarHandler serves the generated default profile images. Rendered
// avatars are cached in memory since the output is deterministic per seed.
type AvatarHandler struct {
	mu    sync.Mutex
	cache map[string][]byte
}

func NewAvatarHandler() *AvatarHandler {
	return &AvatarHandler{cache: make(map[string][]byte)}
}

func (h *AvatarHandler) Serve(w http.ResponseWriter, r *http.Request) {
	seed := strings.TrimSuffix(r.PathValue("seed"), ".png")
	if seed == "" {
		http.NotFound(w, r)
		return
	}

	data, err := h.render(seed)
	if err != nil {
		http.Error(w, "Failed to render avatar", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "image/png")
	w.Header().Set("Cache-Control", "public, max-age=86400, immutable")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(data)
}

func (h *AvatarHandler) render(seed string) ([]byte, error) {
	h.mu.Lock()
	if data, ok := h.cache[seed]; ok {
		h.mu.Unlock()
		return data, nil
	}
	h.mu.Unlock()

	data, err := services.RenderAvatarPNG(seed)
	if err != nil {
		return nil, err
	}

	h.mu.Lock()
	if len(h.cache) >= avatarCacheMax {
		h.cache = make(map[string][]byte)
	}
	h.cache[seed] = data
	h.mu.Unlock()

	return data, nil
}
