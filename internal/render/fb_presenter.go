package render

import (
	"context"
	"image"
	"image/color"
	"image/draw"
	"sync/atomic"

	fb "github.com/gonutz/framebuffer"
	"github.com/rook-computer/fontcompare/internal/render/layout"
	xdraw "golang.org/x/image/draw"
	"golang.org/x/image/font"
	"golang.org/x/image/font/basicfont"
	"golang.org/x/image/font/gofont/goregular"
	"golang.org/x/image/font/opentype"
	"golang.org/x/image/math/fixed"
)

const (
	screenMargin  = 60
	captionMargin = 40
	qrCodeSizePx  = 320
)

// DeviceBackground frames the strip on the device screen.
var DeviceBackground = color.RGBA{R: 0x18, G: 0x18, B: 0x1B, A: 0xFF}

// FBPresenter shows frames on the Linux framebuffer using an offscreen
// logical canvas.
type FBPresenter struct {
	Device string

	fbDev     *fb.Device
	canvas    *image.RGBA
	labelFace font.Face
	running   atomic.Bool
	Logger    interface {
		Infof(string, string, ...interface{})
		Errorf(string, string, ...interface{})
	}
	Debug bool
}

func NewFBPresenter(device string) *FBPresenter {
	if device == "" {
		device = "/dev/fb0"
	}
	return &FBPresenter{Device: device}
}

func (p *FBPresenter) Start(ctx context.Context) error {
	dev, err := fb.Open(p.Device)
	if err != nil {
		return err
	}
	p.fbDev = dev
	if p.Logger != nil {
		bounds := dev.Bounds()
		p.Logger.Infof("fb", "framebuffer %s open, bounds=%dx%d", p.Device, bounds.Dx(), bounds.Dy())
	}

	p.canvas = image.NewRGBA(image.Rect(0, 0, CanvasWidth, CanvasHeight))

	p.labelFace = basicfont.Face7x13
	if parsed, perr := opentype.Parse(goregular.TTF); perr != nil {
		if p.Logger != nil {
			p.Logger.Errorf("fb", "label font parse failed, using basicfont: %v", perr)
		}
	} else if face, ferr := opentype.NewFace(parsed, &opentype.FaceOptions{Size: 36, DPI: 72, Hinting: font.HintingFull}); ferr != nil {
		if p.Logger != nil {
			p.Logger.Errorf("fb", "label face create failed, using basicfont: %v", ferr)
		}
	} else {
		p.labelFace = face
	}

	p.running.Store(true)
	return nil
}

func (p *FBPresenter) Stop() error {
	p.running.Store(false)
	if p.fbDev != nil {
		p.fbDev.Close()
	}
	return nil
}

// ViewportWidth is the canvas width less the side margins.
func (p *FBPresenter) ViewportWidth() float64 {
	return float64(CanvasWidth - 2*screenMargin)
}

// Present composes the visible strip, banner and QR code and blits them.
func (p *FBPresenter) Present(frame Frame) {
	if !p.running.Load() || p.fbDev == nil || frame.Surface == nil {
		return
	}
	draw.Draw(p.canvas, p.canvas.Bounds(), &image.Uniform{C: DeviceBackground}, image.Point{}, draw.Src)

	screen := layout.Inset(p.canvas.Bounds(), screenMargin)
	stripArea, lower := layout.SplitHorizontal(screen, SurfaceHeight)
	textArea, qrArea := layout.SplitVertical(lower, lower.Dx()-qrCodeSizePx)

	window := frame.Surface.Window(frame.Viewport.ScrollPosition, p.ViewportWidth())
	xdraw.ApproxBiLinear.Scale(p.canvas, stripArea, window, window.Bounds(), xdraw.Src, nil)

	line := textArea.Min.Y + captionMargin + p.labelFace.Metrics().Ascent.Ceil()
	if frame.Banner != "" {
		drawLabel(p.canvas, frame.Banner, textArea.Min.X, line, BannerColor, p.labelFace)
		line += p.labelFace.Metrics().Height.Ceil() + captionMargin/2
	}
	if frame.Caption != "" {
		drawLabel(p.canvas, frame.Caption, textArea.Min.X, line, TopTextColor, p.labelFace)
	}

	if frame.QRCode != nil {
		target := layout.FitSquare(layout.Inset(qrArea, captionMargin/2))
		xdraw.NearestNeighbor.Scale(p.canvas, target, frame.QRCode, frame.QRCode.Bounds(), xdraw.Src, nil)
	}

	_ = blitToFB(p.fbDev, p.canvas)
	if p.Logger != nil && p.Debug {
		p.Logger.Infof("fb", "frame presented, scroll=%.1f", frame.Viewport.ScrollPosition)
	}
}

func drawLabel(img *image.RGBA, text string, x, baselineY int, fg color.Color, face font.Face) {
	drawer := &font.Drawer{Dst: img, Src: &image.Uniform{C: fg}, Face: face}
	drawer.Dot = fixed.P(x, baselineY)
	drawer.DrawString(text)
}

// blitToFB copies the canvas to the framebuffer via nearest-neighbor sampling.
func blitToFB(dev *fb.Device, canvas *image.RGBA) error {
	if dev == nil {
		return nil
	}
	bounds := dev.Bounds()
	fbWidth := bounds.Dx()
	fbHeight := bounds.Dy()
	for y := 0; y < fbHeight; y++ {
		sy := (y * CanvasHeight) / fbHeight
		for x := 0; x < fbWidth; x++ {
			sx := (x * CanvasWidth) / fbWidth
			pixel := canvas.RGBAAt(sx, sy)
			dev.Set(bounds.Min.X+x, bounds.Min.Y+y, color.RGBA{R: pixel.R, G: pixel.G, B: pixel.B, A: 0xFF})
		}
	}
	return nil
}
