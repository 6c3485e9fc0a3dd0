package render

import "image/color"

// Comparison strip palette.
var (
	Background      = color.RGBA{R: 0x2B, G: 0x2A, B: 0x2F, A: 0xFF} // #2b2a2f
	GuideColor      = color.RGBA{R: 0x65, G: 0x65, B: 0xB3, A: 0xFF} // #6565b3
	BottomTextColor = color.RGBA{R: 0x53, G: 0x53, B: 0x55, A: 0xFF} // #535355
	TopTextColor    = color.RGBA{R: 0xE8, G: 0xD5, B: 0xCD, A: 0xFF} // #e8d5cd
	BannerColor     = color.RGBA{R: 0xF2, G: 0x8B, B: 0x82, A: 0xFF}
)

// Strip geometry in logical pixels.
const (
	SurfaceHeight     = 400
	MinSurfaceWidth   = 1000
	HorizontalPadding = 100
	TextInset         = 20
	GuideWidth        = 2
	TopTextOpacity    = 0.64
)

// MaxPhysicalWidth caps the backing raster width in device pixels, like a
// browser canvas dimension limit. Text past it is not painted.
const MaxPhysicalWidth = 32767

// Logical device canvas; scaled to the framebuffer.
var (
	CanvasWidth  = 1920
	CanvasHeight = 1080
)
