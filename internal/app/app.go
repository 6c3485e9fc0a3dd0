package app

import (
	"context"
	"errors"
	"image"
	"sync"
	"sync/atomic"
	"time"

	"github.com/rook-computer/fontcompare/internal/fonts"
	"github.com/rook-computer/fontcompare/internal/pointer"
	"github.com/rook-computer/fontcompare/internal/render"
	"github.com/rook-computer/fontcompare/internal/render/layout"
	"github.com/rook-computer/fontcompare/internal/scroll"
	"github.com/rook-computer/fontcompare/internal/state"
	"github.com/rook-computer/fontcompare/internal/system"
)

const DefaultFrameInterval = 16 * time.Millisecond

// ViewState is what the render loop publishes after every frame.
type ViewState struct {
	Viewport   scroll.Viewport
	Phase      scroll.Phase
	MaxScroll  float64
	Dimensions render.Dimensions
	ViewWidth  float64
}

type App struct {
	Store         *state.Store
	Fonts         *fonts.Registry
	Renderer      *render.ComparisonRenderer
	Presenter     render.Presenter
	Pointer       pointer.Source
	Logger        Logger
	Metrics       *Metrics
	FrameInterval time.Duration
	// QRPayload is shown as a QR code on the device screen when set.
	QRPayload string
	Debug     bool

	surface   *render.Surface
	scheduler *scroll.FrameScheduler
	engine    *scroll.Engine
	dirty     atomic.Bool
	qr        image.Image

	// Loop-only bookkeeping for skipping idle presents.
	presentedBanner string
	needsPresent    bool

	viewMu sync.RWMutex
	view   ViewState

	unsubscribe func()
	closeOnce   sync.Once

	exitOnce atomic.Bool
	exitCh   chan error
}

func New(store *state.Store, registry *fonts.Registry, renderer *render.ComparisonRenderer, presenter render.Presenter, source pointer.Source) *App {
	scheduler := scroll.NewFrameScheduler()
	app := &App{
		Store:         store,
		Fonts:         registry,
		Renderer:      renderer,
		Presenter:     presenter,
		Pointer:       source,
		Logger:        NoopLogger{},
		FrameInterval: DefaultFrameInterval,
		surface:       render.NewSurface(),
		scheduler:     scheduler,
		engine:        scroll.NewEngine(scheduler),
		exitCh:        make(chan error, 1),
	}
	if app.Presenter == nil {
		app.Presenter = &render.HeadlessPresenter{}
	}
	app.dirty.Store(true)
	app.unsubscribe = store.Subscribe(func(state.RenderConfig) { app.dirty.Store(true) })
	return app
}

// Exit requests the app to stop running.
func (app *App) Exit(err error) {
	if app.exitCh == nil {
		return
	}
	if !app.exitOnce.CompareAndSwap(false, true) {
		return
	}
	select {
	case app.exitCh <- err:
	default:
	}
}

// Start runs the presenter and the render loop until ctx is done or Exit is
// called. It blocks.
func (app *App) Start(ctx context.Context) error {
	if app.exitCh == nil {
		app.exitCh = make(chan error, 1)
	}
	app.exitOnce.Store(false)
	defer app.Close()

	if fb, ok := app.Presenter.(*render.FBPresenter); ok {
		fb.Logger = app.Logger
		fb.Debug = app.Debug
	}
	if err := app.Presenter.Start(ctx); err != nil {
		app.Logger.Errorf("app", "presenter start error: %v", err)
		return err
	}
	defer app.Presenter.Stop()

	if _, ok := app.Presenter.(*render.FBPresenter); ok {
		restore := system.PrepareConsole(app.Logger)
		defer restore()
	}

	if app.QRPayload != "" {
		qr, err := render.GenerateQRCodeImage(app.QRPayload, 0)
		if err != nil {
			app.Logger.Errorf("app", "qr code: %v", err)
		} else {
			app.qr = qr
		}
	}

	if app.Pointer != nil {
		if err := app.Pointer.Start(ctx); err != nil {
			app.Logger.Errorf("app", "pointer start error: %v", err)
			return err
		}
		defer app.Pointer.Stop()
	}

	// First frame right away so the strip shows without waiting a tick.
	app.Frame()

	loopCtx, cancel := context.WithCancel(ctx)
	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		app.RunLoop(loopCtx)
	}()

	var err error
	select {
	case <-ctx.Done():
		err = ctx.Err()
	case err = <-app.exitCh:
	}
	cancel()
	wg.Wait()
	return err
}

// RunLoop steps Frame every FrameInterval until ctx is done. Only one
// goroutine may run the loop; it owns the engine and the surface writes.
func (app *App) RunLoop(ctx context.Context) {
	interval := app.FrameInterval
	if interval <= 0 {
		interval = DefaultFrameInterval
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			app.Frame()
		}
	}
}

// Frame runs one step of the loop: a re-render if the config changed, the
// momentum ticks queued by earlier frames, pending pointer events, then
// presentation.
func (app *App) Frame() {
	// Render before ticks so a tick always sees the bounds of the current surface.
	if app.dirty.Swap(false) {
		app.render()
		app.needsPresent = true
	}

	if ran := app.scheduler.RunFrame(); ran > 0 {
		app.needsPresent = true
		if app.Metrics != nil {
			app.Metrics.InertialFrames.Add(float64(ran))
		}
	}

	// Ticks scheduled by a release here first run on the next frame.
	app.drainPointer()

	app.publish()

	banner := app.Store.Banner()
	if banner != app.presentedBanner {
		app.needsPresent = true
	}
	if !app.needsPresent {
		return
	}
	app.needsPresent = false
	app.presentedBanner = banner
	app.Presenter.Present(render.Frame{
		Surface:  app.surface,
		Viewport: app.engine.Viewport(),
		Banner:   banner,
		QRCode:   app.qr,
		Caption:  app.QRPayload,
	})
}

func (app *App) drainPointer() {
	if app.Pointer == nil {
		return
	}
	events := app.Pointer.Events()
	for {
		select {
		case ev := <-events:
			app.applyPointer(ev)
			app.needsPresent = true
		default:
			return
		}
	}
}

func (app *App) applyPointer(ev pointer.Event) {
	switch ev.Kind {
	case pointer.Down:
		app.engine.PointerDown(ev.X, ev.TimeMs)
	case pointer.Move:
		app.engine.PointerMove(ev.X, ev.TimeMs)
	case pointer.Up:
		app.engine.PointerUp(ev.TimeMs)
	case pointer.Leave:
		app.engine.PointerLeave(ev.TimeMs)
	}
}

func (app *App) render() {
	cfg := app.Store.Snapshot()
	start := time.Now()
	dims, err := app.Renderer.Render(app.surface, cfg)
	if app.Metrics != nil {
		app.Metrics.Renders.Inc()
		app.Metrics.RenderDuration.Observe(time.Since(start).Seconds())
		if errors.Is(err, render.ErrMeasurement) {
			app.Metrics.MeasurementFailures.Inc()
		}
	}
	if err != nil {
		app.Logger.Errorf("render", "degraded render: %v", err)
	}
	app.engine.SetMaxScroll(layout.MaxScroll(dims.LogicalWidth, app.Presenter.ViewportWidth()))
}

func (app *App) publish() {
	view := ViewState{
		Viewport:   app.engine.Viewport(),
		Phase:      app.engine.Phase(),
		MaxScroll:  app.engine.MaxScroll(),
		Dimensions: app.surface.Dimensions(),
		ViewWidth:  app.Presenter.ViewportWidth(),
	}
	app.viewMu.Lock()
	app.view = view
	app.viewMu.Unlock()
	if app.Metrics != nil {
		app.Metrics.ScrollPosition.Set(view.Viewport.ScrollPosition)
	}
}

// Invalidate forces a re-render on the next frame.
func (app *App) Invalidate() { app.dirty.Store(true) }

// Surface is the comparison surface; readers must use its accessors.
func (app *App) Surface() *render.Surface { return app.surface }

// View returns the state published by the last frame.
func (app *App) View() ViewState {
	app.viewMu.RLock()
	defer app.viewMu.RUnlock()
	return app.view
}

// ViewportImage copies the currently visible window of the strip.
func (app *App) ViewportImage() image.Image {
	view := app.View()
	return app.surface.Window(view.Viewport.ScrollPosition, view.ViewWidth)
}

// Close tears the loop state down: pending momentum is cancelled and the
// store subscription removed. It must not run concurrently with Frame.
func (app *App) Close() {
	app.closeOnce.Do(func() {
		app.engine.Close()
		if app.unsubscribe != nil {
			app.unsubscribe()
		}
	})
}
