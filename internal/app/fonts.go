package app

import (
	"context"
	"errors"
	"fmt"
	"io"

	"github.com/rook-computer/fontcompare/internal/fonts"
	"github.com/rook-computer/fontcompare/internal/state"
)

// MaxFontBytes bounds a single upload.
const MaxFontBytes = 32 << 20

var (
	ErrFontRead     = errors.New("font file could not be read")
	ErrFontTooLarge = errors.New("font file is too large")
)

const (
	bannerInvalidExtension = "Please upload a .ttf or .otf font file"
	bannerInvalidFont      = "Invalid font file. Please try another."
	bannerLoadFailed       = "Error loading font. Please try again."
)

// BannerMessage is the user-facing text for a LoadFont error.
func BannerMessage(err error) string {
	switch {
	case err == nil:
		return ""
	case errors.Is(err, fonts.ErrInvalidFileExtension):
		return bannerInvalidExtension
	case errors.Is(err, fonts.ErrFontDecode):
		return bannerInvalidFont
	default:
		return bannerLoadFailed
	}
}

// LoadFont reads, decodes and registers a font file, then points slot at
// it. Decoding happens on the caller's goroutine; the slot only changes
// once the family is registered. On failure the slot keeps its previous
// font and the banner explains why.
func (app *App) LoadFont(ctx context.Context, slot state.FontSlot, fileName string, r io.Reader) (string, error) {
	family, err := app.loadFont(ctx, slot, fileName, r)
	if app.Metrics != nil {
		result := "ok"
		if err != nil {
			result = "error"
		}
		app.Metrics.FontLoads.WithLabelValues(result).Inc()
	}
	if err != nil {
		app.Store.SetBanner(BannerMessage(err))
		app.Logger.Errorf("fonts", "load %s font %q: %v", slot, fileName, err)
		return "", err
	}
	app.Store.ClearBanner()
	app.Logger.Infof("fonts", "%s font is now %q", slot, family)
	return family, nil
}

func (app *App) loadFont(ctx context.Context, slot state.FontSlot, fileName string, r io.Reader) (string, error) {
	if err := fonts.ValidateFileName(fileName); err != nil {
		return "", err
	}
	if app.Fonts == nil {
		return "", errors.New("font registry not configured")
	}

	data, err := io.ReadAll(io.LimitReader(r, MaxFontBytes+1))
	if err != nil {
		return "", fmt.Errorf("%w: %w", ErrFontRead, err)
	}
	if len(data) > MaxFontBytes {
		return "", ErrFontTooLarge
	}
	if err := ctx.Err(); err != nil {
		return "", err
	}

	family, err := app.Fonts.Register(fonts.FamilyName(fileName), data)
	if err != nil {
		return "", err
	}
	app.Store.SetFont(slot, family)
	// Re-registering the family a slot already shows changes no config
	// field, so the store will not notify.
	app.Invalidate()
	return family, nil
}

// FontNames lists the registered families.
func (app *App) FontNames() []string {
	if app.Fonts == nil {
		return nil
	}
	return app.Fonts.Families()
}
