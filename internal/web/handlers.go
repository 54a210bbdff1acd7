package web

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"log"
	"math"
	"net/http"
	"time"

	"github.com/mbi-berlin/bipolarpulse/internal/logic/motion"
	"github.com/mbi-berlin/bipolarpulse/internal/logic/pulse"
)

// maxBodyBytes caps POST bodies.
const maxBodyBytes = 1 << 20

// Axes is the part of the pseudo-axis controller the handlers drive.
type Axes interface {
	MovePseudo(ctx context.Context, target pulse.PseudoPosition) error
	Position() (pulse.PseudoPosition, pulse.PhysicalPosition, error)
	Fire() error
}

// PulseRequest is the body of POST /move and the form defaults of GET /config.
type PulseRequest struct {
	Delay     float64 `json:"delay"`
	Width     float64 `json:"width"`
	Amplitude float64 `json:"amplitude"`
}

// Pseudo converts the request to a pseudo position.
func (p PulseRequest) Pseudo() pulse.PseudoPosition {
	return pulse.NewPseudoPosition(p.Delay, p.Width, p.Amplitude)
}

// PositionResponse reports both sides of the transform, keyed by role name.
type PositionResponse struct {
	Pseudo   map[string]float64 `json:"pseudo"`
	Physical map[string]float64 `json:"physical"`
}

func newPositionResponse(pseudo pulse.PseudoPosition, physical pulse.PhysicalPosition) PositionResponse {
	resp := PositionResponse{
		Pseudo:   make(map[string]float64, pulse.NumPseudo),
		Physical: make(map[string]float64, pulse.NumPhysical),
	}
	for i, v := range pseudo {
		resp.Pseudo[pulse.PseudoRole(i).String()] = v
	}
	for i, v := range physical {
		resp.Physical[pulse.PhysicalRole(i).String()] = v
	}
	return resp
}

// ValidatePulse rejects non-finite values. Range limits are applied by the
// controller per physical axis.
func ValidatePulse(p PulseRequest) error {
	for _, f := range []struct {
		name string
		v    float64
	}{
		{"delay", p.Delay},
		{"width", p.Width},
		{"amplitude", p.Amplitude},
	} {
		if math.IsNaN(f.v) || math.IsInf(f.v, 0) {
			return fmt.Errorf("%s must be a finite number", f.name)
		}
	}
	return nil
}

// Handlers holds dependencies for HTTP handlers.
type Handlers struct {
	Broadcaster  *StatusBroadcaster
	Axes         Axes
	FormDefaults PulseRequest
	staticFS     fs.FS
}

// NewHandlers creates handlers with the given dependencies.
// If axes is nil, the move, position and fire endpoints return 503.
func NewHandlers(broadcaster *StatusBroadcaster, axes Axes, formDefaults PulseRequest, staticFS fs.FS) *Handlers {
	return &Handlers{
		Broadcaster:  broadcaster,
		Axes:         axes,
		FormDefaults: formDefaults,
		staticFS:     staticFS,
	}
}

func writeJSON(w http.ResponseWriter, code int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Printf("web: encode response: %v", err)
	}
}

// HandleConfig returns the form default values (from config) as JSON.
func (h *Handlers) HandleConfig(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, h.FormDefaults)
}

// ServeIndex serves the main HTML page (root path only).
func (h *Handlers) ServeIndex(w http.ResponseWriter, r *http.Request) {
	data, err := fs.ReadFile(h.staticFS, "index.html")
	if err != nil {
		http.Error(w, "not found", http.StatusNotFound)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.Write(data)
}

// HandleMove handles POST /move: sets a new pulse and returns the resulting
// position.
func (h *Handlers) HandleMove(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}

	var req PulseRequest
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes)).Decode(&req); err != nil {
		http.Error(w, "invalid JSON", http.StatusBadRequest)
		return
	}
	if err := ValidatePulse(req); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	if h.Axes == nil {
		http.Error(w, "controller not configured", http.StatusServiceUnavailable)
		return
	}

	if err := h.Axes.MovePseudo(r.Context(), req.Pseudo()); err != nil {
		h.Broadcaster.MoveFailed(err)
		code := http.StatusInternalServerError
		if errors.Is(err, motion.ErrLimit) {
			code = http.StatusUnprocessableEntity
		}
		http.Error(w, err.Error(), code)
		return
	}
	h.Broadcaster.PulseSet(req.Pseudo())
	h.writePosition(w)
}

// HandlePosition handles GET /position.
func (h *Handlers) HandlePosition(w http.ResponseWriter, r *http.Request) {
	if h.Axes == nil {
		http.Error(w, "controller not configured", http.StatusServiceUnavailable)
		return
	}
	h.writePosition(w)
}

func (h *Handlers) writePosition(w http.ResponseWriter) {
	pseudo, physical, err := h.Axes.Position()
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusOK, newPositionResponse(pseudo, physical))
}

// HandleFire handles POST /fire: emits one trigger shot.
func (h *Handlers) HandleFire(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	if h.Axes == nil {
		http.Error(w, "controller not configured", http.StatusServiceUnavailable)
		return
	}
	if err := h.Axes.Fire(); err != nil {
		code := http.StatusInternalServerError
		if errors.Is(err, motion.ErrNoTrigger) {
			code = http.StatusServiceUnavailable
		}
		http.Error(w, err.Error(), code)
		return
	}
	h.Broadcaster.TriggerFired()
	writeJSON(w, http.StatusOK, map[string]string{"status": "fired"})
}

// HandleStatusStream handles GET /status/stream for SSE.
func (h *Handlers) HandleStatusStream(w http.ResponseWriter, r *http.Request) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		http.Error(w, "streaming not supported", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.Header().Set("X-Accel-Buffering", "no") // nginx

	ch, unsub := h.Broadcaster.Subscribe()
	defer unsub()

	// Send initial comment to establish connection
	w.Write([]byte(": connected\n\n"))
	flusher.Flush()

	// Heartbeat while idle
	ticker := time.NewTicker(30 * time.Second)
	defer ticker.Stop()

	for {
		select {
		case msg, ok := <-ch:
			if !ok {
				return
			}
			w.Write([]byte("data: " + msg + "\n\n"))
			flusher.Flush()
		case <-ticker.C:
			w.Write([]byte(": heartbeat\n\n"))
			flusher.Flush()
		case <-r.Context().Done():
			return
		}
	}
}
