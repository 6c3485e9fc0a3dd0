package main

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"sync"
	"time"

	"github.com/rook-computer/fontcompare/internal/app"
	"github.com/rook-computer/fontcompare/internal/pointer"
	"github.com/rook-computer/fontcompare/internal/render"
	"github.com/rook-computer/fontcompare/internal/state"
	"golang.org/x/image/font"
)

var (
	errSimMeasure = errors.New("simulated measurement failure")
	errSimFace    = errors.New("simulated face failure")
)

type SimFaults struct {
	MeasureFail bool `json:"measureFail"`
	FaceFail    bool `json:"faceFail"`
}

// FlickRequest describes a synthetic drag: the pointer goes down at X,
// moves by DX over DtMs and is released.
type FlickRequest struct {
	X    float64 `json:"x"`
	DX   float64 `json:"dx"`
	DtMs int64   `json:"dtMs"`
}

type SimControl struct {
	app    *app.App
	store  *state.Store
	source *pointer.ChannelSource

	faults struct {
		mu sync.RWMutex
		v  SimFaults
	}
}

func NewSimControl(a *app.App, store *state.Store, source *pointer.ChannelSource) *SimControl {
	return &SimControl{app: a, store: store, source: source}
}

// WrapFonts returns a FontSource that fails on demand according to the
// current faults.
func (c *SimControl) WrapFonts(inner render.FontSource) render.FontSource {
	return faultyFonts{inner: inner, control: c}
}

func (c *SimControl) Reset() {
	c.SetFaults(SimFaults{})
	c.store.Reset()
}

func (c *SimControl) Faults() SimFaults {
	c.faults.mu.RLock()
	defer c.faults.mu.RUnlock()
	return c.faults.v
}

// SetFaults changes the injected faults and re-renders so they show at once.
func (c *SimControl) SetFaults(v SimFaults) {
	c.faults.mu.Lock()
	c.faults.v = v
	c.faults.mu.Unlock()
	if c.app != nil {
		c.app.Invalidate()
	}
}

func (c *SimControl) Flick(ctx context.Context, req FlickRequest) error {
	if req.DtMs <= 0 {
		req.DtMs = 16
	}
	now := time.Now().UnixMilli()
	for _, ev := range []pointer.Event{
		{Kind: pointer.Down, X: req.X, TimeMs: now},
		{Kind: pointer.Move, X: req.X + req.DX, TimeMs: now + req.DtMs},
		{Kind: pointer.Up, X: req.X + req.DX, TimeMs: now + req.DtMs},
	} {
		if err := c.source.Push(ctx, ev); err != nil {
			return err
		}
	}
	return nil
}

type faultyFonts struct {
	inner   render.FontSource
	control *SimControl
}

func (f faultyFonts) Advance(family string, sizePx float64, text string) (float64, error) {
	if f.control.Faults().MeasureFail {
		return 0, errSimMeasure
	}
	return f.inner.Advance(family, sizePx, text)
}

func (f faultyFonts) Has(family string) bool { return f.inner.Has(family) }

func (f faultyFonts) Face(family string, sizePx float64) (font.Face, error) {
	if f.control.Faults().FaceFail {
		return nil, errSimFace
	}
	return f.inner.Face(family, sizePx)
}

func registerSimEndpoints(handler http.Handler, control *SimControl) {
	mux, ok := handler.(*http.ServeMux)
	if !ok {
		// Only supported when the simulator uses the default mux.
		return
	}

	mux.HandleFunc("/sim/reset", func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			writeSimError(w, http.StatusMethodNotAllowed, "method not allowed")
			return
		}
		control.Reset()
		writeSimJSON(w, http.StatusOK, map[string]any{"ok": true})
	})

	mux.HandleFunc("/sim/flick", func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			writeSimError(w, http.StatusMethodNotAllowed, "method not allowed")
			return
		}
		req := FlickRequest{X: 500, DX: -200, DtMs: 16}
		if r.ContentLength != 0 {
			if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
				writeSimError(w, http.StatusBadRequest, "invalid json")
				return
			}
		}
		if err := control.Flick(r.Context(), req); err != nil {
			writeSimError(w, http.StatusServiceUnavailable, err.Error())
			return
		}
		writeSimJSON(w, http.StatusAccepted, map[string]any{"ok": true})
	})

	mux.HandleFunc("/sim/faults", func(w http.ResponseWriter, r *http.Request) {
		switch r.Method {
		case http.MethodGet:
			writeSimJSON(w, http.StatusOK, control.Faults())
			return
		case http.MethodPost:
			var patch struct {
				MeasureFail *bool `json:"measureFail"`
				FaceFail    *bool `json:"faceFail"`
			}
			if err := json.NewDecoder(r.Body).Decode(&patch); err != nil {
				writeSimError(w, http.StatusBadRequest, "invalid json")
				return
			}
			current := control.Faults()
			if patch.MeasureFail != nil {
				current.MeasureFail = *patch.MeasureFail
			}
			if patch.FaceFail != nil {
				current.FaceFail = *patch.FaceFail
			}
			control.SetFaults(current)
			writeSimJSON(w, http.StatusOK, current)
			return
		default:
			writeSimError(w, http.StatusMethodNotAllowed, "method not allowed")
			return
		}
	})
}

func writeSimJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeSimError(w http.ResponseWriter, status int, message string) {
	writeSimJSON(w, status, map[string]any{"error": message})
}
