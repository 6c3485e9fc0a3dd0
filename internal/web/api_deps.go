package web

import (
	"context"
	"errors"
	"image"
	"io"

	"github.com/rook-computer/fontcompare/internal/app"
	"github.com/rook-computer/fontcompare/internal/pointer"
	"github.com/rook-computer/fontcompare/internal/render"
	"github.com/rook-computer/fontcompare/internal/state"
)

// ConfigStore is the render config the control surface edits.
//
// The concrete implementation is *state.Store.
type ConfigStore interface {
	Snapshot() state.RenderConfig
	Banner() string
	Apply(in state.ControlInput) state.RenderConfig
	Reset()
}

// FontLoader registers uploaded fonts and points a slot at them.
type FontLoader interface {
	LoadFont(ctx context.Context, slot state.FontSlot, fileName string, r io.Reader) (string, error)
	FontNames() []string
}

// PointerSink receives pointer samples for the render loop.
type PointerSink interface {
	Push(ctx context.Context, ev pointer.Event) error
}

// ViewSource exposes what the render loop last produced.
type ViewSource interface {
	Surface() *render.Surface
	ViewportImage() image.Image
	View() app.ViewState
}

type APIV1Deps struct {
	Config  ConfigStore
	Fonts   FontLoader
	Pointer PointerSink
	View    ViewSource
	// QRPayload is encoded by /qrcode; when empty the request's own origin is used.
	QRPayload string
}

func (d APIV1Deps) withDefaults() APIV1Deps {
	out := d
	if out.Config == nil {
		out.Config = state.NewStore()
	}
	if out.Fonts == nil {
		out.Fonts = NoopFontLoader{Err: errors.New("font loading not configured")}
	}
	if out.Pointer == nil {
		out.Pointer = NoopPointerSink{}
	}
	if out.View == nil {
		out.View = NoopViewSource{}
	}
	return out
}

type NoopFontLoader struct{ Err error }

func (l NoopFontLoader) LoadFont(context.Context, state.FontSlot, string, io.Reader) (string, error) {
	if l.Err != nil {
		return "", l.Err
	}
	return "", errors.New("font loading not configured")
}

func (NoopFontLoader) FontNames() []string { return nil }

// NoopPointerSink drops every event.
type NoopPointerSink struct{}

func (NoopPointerSink) Push(context.Context, pointer.Event) error { return nil }

// NoopViewSource serves an empty surface.
type NoopViewSource struct{}

func (NoopViewSource) Surface() *render.Surface   { return render.NewSurface() }
func (NoopViewSource) ViewportImage() image.Image { return image.NewRGBA(image.Rect(0, 0, 0, 0)) }
func (NoopViewSource) View() app.ViewState        { return app.ViewState{} }
