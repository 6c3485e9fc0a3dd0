package web

import (
	"bytes"
	"context"
	"encoding/json"
	"image/png"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/rook-computer/fontcompare/internal/app"
	"github.com/rook-computer/fontcompare/internal/fonts"
	"github.com/rook-computer/fontcompare/internal/pointer"
	"github.com/rook-computer/fontcompare/internal/render"
	"github.com/rook-computer/fontcompare/internal/state"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/image/font/gofont/gomono"
)

type testEnv struct {
	app    *app.App
	source *pointer.ChannelSource
	mux    http.Handler
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	registry := fonts.NewRegistry()
	store := state.NewStore()
	source := pointer.NewChannelSource(16)
	a := app.New(store, registry, render.NewComparisonRenderer(registry, fonts.FallbackFamily, 1), &render.HeadlessPresenter{Width: 800}, source)
	reg := prometheus.NewRegistry()
	a.Metrics = app.NewMetrics(reg)
	t.Cleanup(a.Close)

	mux := NewDefaultMux("", APIV1Config{
		Deps: APIV1Deps{
			Config:    store,
			Fonts:     a,
			Pointer:   source,
			View:      a,
			QRPayload: "http://fontcompare.local/",
		},
		Metrics: reg,
	})
	return &testEnv{app: a, source: source, mux: mux}
}

func (env *testEnv) do(t *testing.T, method, target string, body io.Reader, contentType string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, target, body)
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}
	rec := httptest.NewRecorder()
	env.mux.ServeHTTP(rec, req)
	return rec
}

func decode[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &v), rec.Body.String())
	return v
}

func TestGetConfigDefaults(t *testing.T) {
	env := newTestEnv(t)
	rec := env.do(t, http.MethodGet, "/api/v1/config", nil, "")
	require.Equal(t, http.StatusOK, rec.Code)

	cfg := decode[configResponse](t, rec)
	assert.Equal(t, "FontCompare", cfg.Text)
	assert.Equal(t, 64, cfg.FontSize)
	assert.Equal(t, 1.0, cfg.TopFontScale)
	assert.Equal(t, 0, cfg.BaselineOffset)
	assert.Equal(t, fontRefResponse{Name: "Go", Ready: true}, cfg.BottomFont)
	assert.Equal(t, fontRefResponse{Name: "Go Mono", Ready: true}, cfg.TopFont)
}

func TestPatchConfigParsesControlInputs(t *testing.T) {
	env := newTestEnv(t)
	body := `{"text":"Hamburgefonstiv","fontSize":"72px","topFontScale":"120","baselineOffset":"abc"}`
	rec := env.do(t, http.MethodPatch, "/api/v1/config", strings.NewReader(body), "application/json")
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	cfg := decode[configResponse](t, rec)
	assert.Equal(t, "Hamburgefonstiv", cfg.Text)
	assert.Equal(t, 72, cfg.FontSize)
	assert.InDelta(t, 1.2, cfg.TopFontScale, 1e-9)
	assert.Equal(t, 0, cfg.BaselineOffset, "non-numeric input leaves the previous value")
}

func TestPatchConfigAcceptsNumbersAndClamps(t *testing.T) {
	env := newTestEnv(t)
	body := `{"fontSize":500,"topFontScale":10,"baselineOffset":-80}`
	rec := env.do(t, http.MethodPatch, "/api/v1/config", strings.NewReader(body), "application/json")
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	cfg := decode[configResponse](t, rec)
	assert.Equal(t, 400, cfg.FontSize)
	assert.Equal(t, 0.5, cfg.TopFontScale)
	assert.Equal(t, -50, cfg.BaselineOffset)
}

func TestPatchConfigRejectsBadJSON(t *testing.T) {
	env := newTestEnv(t)
	rec := env.do(t, http.MethodPatch, "/api/v1/config", strings.NewReader(`{"fontSize":true}`), "application/json")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "invalid_json", decode[apiError](t, rec).Error)
}

func TestDeleteConfigResets(t *testing.T) {
	env := newTestEnv(t)
	env.app.Store.SetText("changed")
	env.app.Store.SetBanner("oops")

	rec := env.do(t, http.MethodDelete, "/api/v1/config", nil, "")
	require.Equal(t, http.StatusOK, rec.Code)
	cfg := decode[configResponse](t, rec)
	assert.Equal(t, "FontCompare", cfg.Text)
	assert.Empty(t, cfg.Banner)
}

func TestUploadRawFont(t *testing.T) {
	env := newTestEnv(t)
	rec := env.do(t, http.MethodPost, "/api/v1/fonts/top?filename=mono.ttf", bytes.NewReader(gomono.TTF), "font/ttf")
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Equal(t, fontLoadResponse{Slot: "top", Family: "mono"}, decode[fontLoadResponse](t, rec))
	assert.Equal(t, state.FontRef{Name: "mono", Ready: true}, env.app.Store.Snapshot().TopFont)

	rec = env.do(t, http.MethodGet, "/api/v1/fonts", nil, "")
	require.Equal(t, http.StatusOK, rec.Code)
	list := decode[fontsResponse](t, rec)
	assert.Subset(t, list.Families, []string{"Go", "Go Mono", "mono"})
	assert.Equal(t, "mono", list.Top)
	assert.Equal(t, "Go", list.Bottom)
}

func TestUploadMultipartFont(t *testing.T) {
	env := newTestEnv(t)

	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	require.NoError(t, mw.WriteField("note", "ignored"))
	fw, err := mw.CreateFormFile("file", "Specimen.OTF")
	require.NoError(t, err)
	_, err = fw.Write(gomono.TTF)
	require.NoError(t, err)
	require.NoError(t, mw.Close())

	rec := env.do(t, http.MethodPost, "/api/v1/fonts/bottom", &body, mw.FormDataContentType())
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Equal(t, "Specimen", decode[fontLoadResponse](t, rec).Family)
	assert.Equal(t, "Specimen", env.app.Store.Snapshot().BottomFont.Name)
}

func TestUploadMultipartWithoutFile(t *testing.T) {
	env := newTestEnv(t)
	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	require.NoError(t, mw.WriteField("note", "x"))
	require.NoError(t, mw.Close())

	rec := env.do(t, http.MethodPost, "/api/v1/fonts/bottom", &body, mw.FormDataContentType())
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "missing_file", decode[apiError](t, rec).Error)
}

func TestUploadRejectsWrongExtension(t *testing.T) {
	env := newTestEnv(t)
	before := env.app.Store.Snapshot()

	rec := env.do(t, http.MethodPost, "/api/v1/fonts/top?filename=font.woff2", bytes.NewReader(gomono.TTF), "")
	assert.Equal(t, http.StatusUnsupportedMediaType, rec.Code)
	resp := decode[apiError](t, rec)
	assert.Equal(t, "invalid_extension", resp.Error)
	assert.Equal(t, "Please upload a .ttf or .otf font file", resp.Message)
	assert.Equal(t, before, env.app.Store.Snapshot())
	assert.Equal(t, resp.Message, env.app.Store.Banner())
}

func TestUploadRejectsGarbage(t *testing.T) {
	env := newTestEnv(t)
	rec := env.do(t, http.MethodPost, "/api/v1/fonts/top?filename=junk.otf", strings.NewReader("definitely not a font"), "")
	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)
	resp := decode[apiError](t, rec)
	assert.Equal(t, "invalid_font", resp.Error)
	assert.Equal(t, "Invalid font file. Please try another.", resp.Message)
	assert.Equal(t, "Go Mono", env.app.Store.Snapshot().TopFont.Name)
}

func TestUploadUnknownSlot(t *testing.T) {
	env := newTestEnv(t)
	rec := env.do(t, http.MethodPost, "/api/v1/fonts/middle?filename=a.ttf", bytes.NewReader(gomono.TTF), "")
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestPointerEventsReachSource(t *testing.T) {
	env := newTestEnv(t)
	rec := env.do(t, http.MethodPost, "/api/v1/pointer", strings.NewReader(`{"kind":"down","x":120.5,"timeMs":10}`), "application/json")
	require.Equal(t, http.StatusAccepted, rec.Code, rec.Body.String())

	rec = env.do(t, http.MethodPost, "/api/v1/pointer", strings.NewReader(`[{"kind":"move","x":100,"timeMs":20},{"kind":"up"}]`), "application/json")
	require.Equal(t, http.StatusAccepted, rec.Code, rec.Body.String())

	events := env.source.Events()
	assert.Equal(t, pointer.Event{Kind: pointer.Down, X: 120.5, TimeMs: 10}, <-events)
	assert.Equal(t, pointer.Event{Kind: pointer.Move, X: 100, TimeMs: 20}, <-events)
	up := <-events
	assert.Equal(t, pointer.Up, up.Kind)
	assert.Positive(t, up.TimeMs, "missing timeMs is stamped")
}

func TestPointerValidation(t *testing.T) {
	env := newTestEnv(t)
	for body, code := range map[string]string{
		`{"kind":"wheel","x":1}`: "invalid_kind",
		`{"kind":"move"}`:        "missing_x",
		`not json`:               "invalid_json",
	} {
		rec := env.do(t, http.MethodPost, "/api/v1/pointer", strings.NewReader(body), "application/json")
		assert.Equal(t, http.StatusBadRequest, rec.Code, body)
		assert.Equal(t, code, decode[apiError](t, rec).Error, body)
	}
	select {
	case ev := <-env.source.Events():
		t.Fatalf("unexpected event %+v", ev)
	default:
	}
}

func TestViewportAndSnapshots(t *testing.T) {
	env := newTestEnv(t)

	rec := env.do(t, http.MethodGet, "/api/v1/render.png", nil, "")
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code, "nothing rendered before the first frame")

	env.app.Frame()

	rec = env.do(t, http.MethodGet, "/api/v1/viewport", nil, "")
	require.Equal(t, http.StatusOK, rec.Code)
	view := decode[viewportResponse](t, rec)
	assert.Equal(t, viewportResponse{
		Phase:            "idle",
		MaxScroll:        200,
		ViewWidth:        800,
		ContentWidth:     1000,
		ContentHeight:    400,
		DevicePixelRatio: 1,
	}, view)

	rec = env.do(t, http.MethodGet, "/api/v1/render.png", nil, "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "image/png", rec.Header().Get("Content-Type"))
	img, err := png.Decode(rec.Body)
	require.NoError(t, err)
	assert.Equal(t, 1000, img.Bounds().Dx())
	assert.Equal(t, 400, img.Bounds().Dy())

	rec = env.do(t, http.MethodGet, "/api/v1/viewport.png", nil, "")
	require.Equal(t, http.StatusOK, rec.Code)
	img, err = png.Decode(rec.Body)
	require.NoError(t, err)
	assert.Equal(t, 800, img.Bounds().Dx())
}

func TestQRCode(t *testing.T) {
	env := newTestEnv(t)
	rec := env.do(t, http.MethodGet, "/api/v1/qrcode?size=128", nil, "")
	require.Equal(t, http.StatusOK, rec.Code)
	img, err := png.Decode(rec.Body)
	require.NoError(t, err)
	assert.Equal(t, 128, img.Bounds().Dx())

	rec = env.do(t, http.MethodGet, "/api/v1/qrcode?size=5", nil, "")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestMethodNotAllowed(t *testing.T) {
	env := newTestEnv(t)
	for _, target := range []string{"/api/v1/viewport", "/api/v1/render.png", "/api/v1/fonts"} {
		rec := env.do(t, http.MethodPut, target, nil, "")
		assert.Equal(t, http.StatusMethodNotAllowed, rec.Code, target)
		assert.Equal(t, "method_not_allowed", decode[apiError](t, rec).Error, target)
	}
}

func TestMetricsEndpoint(t *testing.T) {
	env := newTestEnv(t)
	env.app.Frame()
	rec := env.do(t, http.MethodGet, "/metrics", nil, "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "fontcompare_renders_total 1")
}

func TestStaticUI(t *testing.T) {
	env := newTestEnv(t)
	rec := env.do(t, http.MethodGet, "/", nil, "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "<title>FontCompare</title>")
}

func TestDevCORS(t *testing.T) {
	h := WithDevCORS(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTeapot)
	}))
	req := httptest.NewRequest(http.MethodOptions, "/api/v1/config", nil)
	req.Header.Set("Origin", "http://localhost:5173")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusNoContent, rec.Code)
	assert.Equal(t, "http://localhost:5173", rec.Header().Get("Access-Control-Allow-Origin"))
}

func TestServerConfigFromEnv(t *testing.T) {
	t.Setenv(EnvListenAddr, "127.0.0.1:9999")
	t.Setenv(EnvDevMode, "true")
	cfg, err := DefaultServerConfigFromEnv(":80")
	require.NoError(t, err)
	assert.Equal(t, ServerConfig{ListenAddr: "127.0.0.1:9999", DevMode: true}, cfg)

	t.Setenv(EnvDevMode, "sometimes")
	_, err = DefaultServerConfigFromEnv(":80")
	assert.Error(t, err)
}

func TestHTTPServerLifecycle(t *testing.T) {
	env := newTestEnv(t)
	srv := NewHTTPServer(ServerConfig{ListenAddr: "127.0.0.1:0"})
	srv.Handler = env.mux

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	require.NoError(t, srv.Start(ctx))

	resp, err := http.Get("http://" + srv.Addr + "/api/v1/config")
	require.NoError(t, err)
	_ = resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	require.NoError(t, srv.Stop())
	assert.Error(t, srv.Start(ctx), "a stopped server cannot restart")
}
