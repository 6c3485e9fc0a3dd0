package web

import (
	"bytes"
	"encoding/json"
	"errors"
	"image/png"
	"io"
	"mime"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/rook-computer/fontcompare/internal/app"
	"github.com/rook-computer/fontcompare/internal/fonts"
	"github.com/rook-computer/fontcompare/internal/pointer"
	"github.com/rook-computer/fontcompare/internal/render"
	"github.com/rook-computer/fontcompare/internal/state"
)

// Uploads may carry multipart framing on top of the font itself.
const maxUploadBytes = app.MaxFontBytes + 1<<20

type apiError struct {
	Error   string `json:"error"`
	Message string `json:"message"`
}

type okResponse struct {
	OK bool `json:"ok"`
}

type fontRefResponse struct {
	Name  string `json:"name"`
	Ready bool   `json:"ready"`
}

type configResponse struct {
	Text           string          `json:"text"`
	FontSize       int             `json:"fontSize"`
	TopFontScale   float64         `json:"topFontScale"`
	BaselineOffset int             `json:"baselineOffset"`
	BottomFont     fontRefResponse `json:"bottomFont"`
	TopFont        fontRefResponse `json:"topFont"`
	Banner         string          `json:"banner"`
}

// inputValue accepts a JSON string or number, keeping the raw text so the
// control parsers see exactly what the user typed.
type inputValue struct{ raw *string }

func (v *inputValue) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if bytes.Equal(data, []byte("null")) {
		return nil
	}
	var s string
	if len(data) > 0 && data[0] == '"' {
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
	} else {
		var n json.Number
		if err := json.Unmarshal(data, &n); err != nil {
			return err
		}
		s = n.String()
	}
	v.raw = &s
	return nil
}

type configPatch struct {
	Text           inputValue `json:"text"`
	FontSize       inputValue `json:"fontSize"`
	TopFontScale   inputValue `json:"topFontScale"`
	BaselineOffset inputValue `json:"baselineOffset"`
}

type fontsResponse struct {
	Families []string `json:"families"`
	Bottom   string   `json:"bottom"`
	Top      string   `json:"top"`
}

type fontLoadResponse struct {
	Slot   string `json:"slot"`
	Family string `json:"family"`
}

type pointerRequest struct {
	Kind   string   `json:"kind"`
	X      *float64 `json:"x"`
	TimeMs *int64   `json:"timeMs"`
}

type viewportResponse struct {
	ScrollPosition   float64 `json:"scrollPosition"`
	Velocity         float64 `json:"velocity"`
	Dragging         bool    `json:"dragging"`
	Phase            string  `json:"phase"`
	MaxScroll        float64 `json:"maxScroll"`
	ViewWidth        float64 `json:"viewWidth"`
	ContentWidth     float64 `json:"contentWidth"`
	ContentHeight    float64 `json:"contentHeight"`
	DevicePixelRatio float64 `json:"devicePixelRatio"`
}

func apiV1Router(deps APIV1Deps) http.Handler {
	deps = deps.withDefaults()
	mux := http.NewServeMux()
	mux.HandleFunc("/config", func(w http.ResponseWriter, r *http.Request) { handleConfig(w, r, deps) })
	mux.HandleFunc("/fonts", func(w http.ResponseWriter, r *http.Request) { handleFonts(w, r, deps) })
	mux.HandleFunc("/fonts/", func(w http.ResponseWriter, r *http.Request) { handleFontUpload(w, r, deps) })
	mux.HandleFunc("/pointer", func(w http.ResponseWriter, r *http.Request) { handlePointer(w, r, deps) })
	mux.HandleFunc("/viewport", func(w http.ResponseWriter, r *http.Request) { handleViewport(w, r, deps) })
	mux.HandleFunc("/viewport.png", func(w http.ResponseWriter, r *http.Request) { handleViewportPNG(w, r, deps) })
	mux.HandleFunc("/render.png", func(w http.ResponseWriter, r *http.Request) { handleRenderPNG(w, r, deps) })
	mux.HandleFunc("/qrcode", func(w http.ResponseWriter, r *http.Request) { handleQRCode(w, r, deps) })
	return mux
}

func handleConfig(w http.ResponseWriter, r *http.Request, deps APIV1Deps) {
	switch r.Method {
	case http.MethodGet:
		writeJSON(w, http.StatusOK, newConfigResponse(deps.Config.Snapshot(), deps.Config.Banner()))
	case http.MethodPatch, http.MethodPost:
		var patch configPatch
		if err := json.NewDecoder(io.LimitReader(r.Body, 1<<20)).Decode(&patch); err != nil {
			writeAPIError(w, http.StatusBadRequest, "invalid_json", err.Error())
			return
		}
		cfg := deps.Config.Apply(state.ControlInput{
			Text:                patch.Text.raw,
			FontSize:            patch.FontSize.raw,
			TopFontScalePercent: patch.TopFontScale.raw,
			BaselineOffset:      patch.BaselineOffset.raw,
		})
		writeJSON(w, http.StatusOK, newConfigResponse(cfg, deps.Config.Banner()))
	case http.MethodDelete:
		deps.Config.Reset()
		writeJSON(w, http.StatusOK, newConfigResponse(deps.Config.Snapshot(), deps.Config.Banner()))
	default:
		writeAPIError(w, http.StatusMethodNotAllowed, "method_not_allowed", "method not allowed")
	}
}

func newConfigResponse(cfg state.RenderConfig, banner string) configResponse {
	return configResponse{
		Text:           cfg.Text,
		FontSize:       cfg.FontSize,
		TopFontScale:   cfg.TopFontScale,
		BaselineOffset: cfg.BaselineOffset,
		BottomFont:     fontRefResponse{Name: cfg.BottomFont.Name, Ready: cfg.BottomFont.Ready},
		TopFont:        fontRefResponse{Name: cfg.TopFont.Name, Ready: cfg.TopFont.Ready},
		Banner:         banner,
	}
}

func handleFonts(w http.ResponseWriter, r *http.Request, deps APIV1Deps) {
	if r.Method != http.MethodGet {
		writeAPIError(w, http.StatusMethodNotAllowed, "method_not_allowed", "method not allowed")
		return
	}
	cfg := deps.Config.Snapshot()
	families := deps.Fonts.FontNames()
	if families == nil {
		families = []string{}
	}
	writeJSON(w, http.StatusOK, fontsResponse{Families: families, Bottom: cfg.BottomFont.Name, Top: cfg.TopFont.Name})
}

// handleFontUpload serves POST /fonts/{bottom|top}. The body is either the
// raw font file (name in ?filename=) or a multipart form with a "file" part.
func handleFontUpload(w http.ResponseWriter, r *http.Request, deps APIV1Deps) {
	if r.Method != http.MethodPost {
		writeAPIError(w, http.StatusMethodNotAllowed, "method_not_allowed", "method not allowed")
		return
	}
	slot, err := state.ParseFontSlot(strings.Trim(strings.TrimPrefix(r.URL.Path, "/fonts/"), "/"))
	if err != nil {
		writeAPIError(w, http.StatusNotFound, "slot_not_found", err.Error())
		return
	}

	body := http.MaxBytesReader(w, r.Body, maxUploadBytes)
	fileName := r.URL.Query().Get("filename")
	var src io.Reader = body

	mediaType, _, _ := mime.ParseMediaType(r.Header.Get("Content-Type"))
	if mediaType == "multipart/form-data" {
		mr, err := r.MultipartReader()
		if err != nil {
			writeAPIError(w, http.StatusBadRequest, "invalid_multipart", err.Error())
			return
		}
		for {
			part, err := mr.NextPart()
			if err == io.EOF {
				writeAPIError(w, http.StatusBadRequest, "missing_file", "multipart field \"file\" is required")
				return
			}
			if err != nil {
				writeAPIError(w, http.StatusBadRequest, "invalid_multipart", err.Error())
				return
			}
			if part.FormName() != "file" {
				continue
			}
			if fileName == "" {
				fileName = part.FileName()
			}
			src = part
			break
		}
	}

	family, err := deps.Fonts.LoadFont(r.Context(), slot, fileName, src)
	if err != nil {
		status, code := fontErrorStatus(err)
		writeAPIError(w, status, code, app.BannerMessage(err))
		return
	}
	writeJSON(w, http.StatusOK, fontLoadResponse{Slot: slot.String(), Family: family})
}

func fontErrorStatus(err error) (int, string) {
	var maxErr *http.MaxBytesError
	switch {
	case errors.Is(err, fonts.ErrInvalidFileExtension):
		return http.StatusUnsupportedMediaType, "invalid_extension"
	case errors.Is(err, fonts.ErrFontDecode):
		return http.StatusUnprocessableEntity, "invalid_font"
	case errors.Is(err, app.ErrFontTooLarge), errors.As(err, &maxErr):
		return http.StatusRequestEntityTooLarge, "font_too_large"
	default:
		return http.StatusInternalServerError, "font_load_failed"
	}
}

// handlePointer accepts one sample or an array of samples. A missing
// timeMs is stamped with the server clock.
func handlePointer(w http.ResponseWriter, r *http.Request, deps APIV1Deps) {
	if r.Method != http.MethodPost {
		writeAPIError(w, http.StatusMethodNotAllowed, "method_not_allowed", "method not allowed")
		return
	}
	raw, err := io.ReadAll(io.LimitReader(r.Body, 1<<20))
	if err != nil {
		writeAPIError(w, http.StatusBadRequest, "invalid_body", err.Error())
		return
	}
	raw = bytes.TrimSpace(raw)
	var reqs []pointerRequest
	if len(raw) > 0 && raw[0] == '[' {
		err = json.Unmarshal(raw, &reqs)
	} else {
		var one pointerRequest
		err = json.Unmarshal(raw, &one)
		reqs = []pointerRequest{one}
	}
	if err != nil {
		writeAPIError(w, http.StatusBadRequest, "invalid_json", err.Error())
		return
	}

	events := make([]pointer.Event, 0, len(reqs))
	now := time.Now().UnixMilli()
	for _, req := range reqs {
		kind, err := pointer.ParseKind(req.Kind)
		if err != nil {
			writeAPIError(w, http.StatusBadRequest, "invalid_kind", err.Error())
			return
		}
		ev := pointer.Event{Kind: kind, TimeMs: now}
		if req.X != nil {
			ev.X = *req.X
		} else if kind == pointer.Down || kind == pointer.Move {
			writeAPIError(w, http.StatusBadRequest, "missing_x", "x is required for down and move")
			return
		}
		if req.TimeMs != nil {
			ev.TimeMs = *req.TimeMs
		}
		events = append(events, ev)
	}

	for _, ev := range events {
		if err := deps.Pointer.Push(r.Context(), ev); err != nil {
			writeAPIError(w, http.StatusServiceUnavailable, "pointer_busy", err.Error())
			return
		}
	}
	writeJSON(w, http.StatusAccepted, okResponse{OK: true})
}

func handleViewport(w http.ResponseWriter, r *http.Request, deps APIV1Deps) {
	if r.Method != http.MethodGet {
		writeAPIError(w, http.StatusMethodNotAllowed, "method_not_allowed", "method not allowed")
		return
	}
	view := deps.View.View()
	writeJSON(w, http.StatusOK, viewportResponse{
		ScrollPosition:   view.Viewport.ScrollPosition,
		Velocity:         view.Viewport.Velocity,
		Dragging:         view.Viewport.Dragging,
		Phase:            view.Phase.String(),
		MaxScroll:        view.MaxScroll,
		ViewWidth:        view.ViewWidth,
		ContentWidth:     view.Dimensions.LogicalWidth,
		ContentHeight:    view.Dimensions.LogicalHeight,
		DevicePixelRatio: view.Dimensions.DevicePixelRatio,
	})
}

func handleRenderPNG(w http.ResponseWriter, r *http.Request, deps APIV1Deps) {
	if r.Method != http.MethodGet {
		writeAPIError(w, http.StatusMethodNotAllowed, "method_not_allowed", "method not allowed")
		return
	}
	surface := deps.View.Surface()
	if surface.Bounds().Empty() {
		writeAPIError(w, http.StatusServiceUnavailable, "not_rendered", "nothing rendered yet")
		return
	}
	var buf bytes.Buffer
	if err := surface.WritePNG(&buf); err != nil {
		writeAPIError(w, http.StatusInternalServerError, "encode_failed", err.Error())
		return
	}
	writePNG(w, buf.Bytes())
}

func handleViewportPNG(w http.ResponseWriter, r *http.Request, deps APIV1Deps) {
	if r.Method != http.MethodGet {
		writeAPIError(w, http.StatusMethodNotAllowed, "method_not_allowed", "method not allowed")
		return
	}
	img := deps.View.ViewportImage()
	if img.Bounds().Empty() {
		writeAPIError(w, http.StatusServiceUnavailable, "not_rendered", "nothing rendered yet")
		return
	}
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		writeAPIError(w, http.StatusInternalServerError, "encode_failed", err.Error())
		return
	}
	writePNG(w, buf.Bytes())
}

func handleQRCode(w http.ResponseWriter, r *http.Request, deps APIV1Deps) {
	if r.Method != http.MethodGet {
		writeAPIError(w, http.StatusMethodNotAllowed, "method_not_allowed", "method not allowed")
		return
	}
	payload := deps.QRPayload
	if payload == "" {
		payload = "http://" + r.Host + "/"
	}
	size := 0
	if raw := r.URL.Query().Get("size"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed < 64 || parsed > 2048 {
			writeAPIError(w, http.StatusBadRequest, "invalid_size", "size must be between 64 and 2048")
			return
		}
		size = parsed
	}
	data, err := render.EncodeQRCodePNG(payload, size)
	if err != nil {
		writeAPIError(w, http.StatusInternalServerError, "encode_failed", err.Error())
		return
	}
	writePNG(w, data)
}

func writePNG(w http.ResponseWriter, data []byte) {
	w.Header().Set("Content-Type", "image/png")
	w.Header().Set("Cache-Control", "no-store")
	w.Header().Set("Content-Length", strconv.Itoa(len(data)))
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(data)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeAPIError(w http.ResponseWriter, status int, code, message string) {
	writeJSON(w, status, apiError{Error: code, Message: message})
}
