package main

import (
	"bytes"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/rook-computer/fontcompare/internal/fonts"
	"github.com/rook-computer/fontcompare/internal/render"
	"github.com/rook-computer/fontcompare/internal/state"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
)

type renderOptions struct {
	bottom   string
	top      string
	text     string
	size     string
	scale    string
	baseline string
	dpr      float64
	out      string
}

func newRenderCommand() *cobra.Command {
	opts := renderOptions{}
	cmd := &cobra.Command{
		Use:   "render",
		Short: "Render one comparison strip to a PNG file",
		RunE: func(cmd *cobra.Command, args []string) error {
			var buf bytes.Buffer
			dims, err := renderComparison(opts, &buf)
			if err != nil {
				return err
			}
			if opts.out == "-" {
				_, err = buf.WriteTo(cmd.OutOrStdout())
				return err
			}
			if err := os.WriteFile(opts.out, buf.Bytes(), 0o644); err != nil {
				return err
			}
			log.Info().Str("path", opts.out).Float64("width", dims.LogicalWidth).Float64("height", dims.LogicalHeight).Msg("comparison written")
			return nil
		},
	}
	flags := cmd.Flags()
	flags.StringVar(&opts.bottom, "bottom", "", "bottom font file (.ttf/.otf); built-in Go font when empty")
	flags.StringVar(&opts.top, "top", "", "top font file (.ttf/.otf); built-in Go Mono font when empty")
	flags.StringVar(&opts.text, "text", state.DefaultText, "comparison text")
	flags.StringVar(&opts.size, "size", "64", "bottom font size in px (64-400)")
	flags.StringVar(&opts.scale, "scale", "100", "top font scale in percent (50-150)")
	flags.StringVar(&opts.baseline, "baseline", "0", "top font baseline offset in px (-50 to 50)")
	flags.Float64Var(&opts.dpr, "dpr", 1, "device pixel ratio")
	flags.StringVarP(&opts.out, "out", "o", "comparison.png", "output PNG path, - for stdout")
	return cmd
}

// renderComparison paints one strip for opts and encodes it as PNG. Font
// errors are fatal here, unlike on the device where a bad upload keeps the
// previous font.
func renderComparison(opts renderOptions, out io.Writer) (render.Dimensions, error) {
	registry := fonts.NewRegistry()
	store := state.NewStore()

	text := opts.text
	store.Apply(state.ControlInput{
		Text:                &text,
		FontSize:            &opts.size,
		TopFontScalePercent: &opts.scale,
		BaselineOffset:      &opts.baseline,
	})

	for _, slot := range []state.FontSlot{state.BottomSlot, state.TopSlot} {
		path := opts.bottom
		if slot == state.TopSlot {
			path = opts.top
		}
		if path == "" {
			continue
		}
		family, err := registerFontFile(registry, path)
		if err != nil {
			return render.Dimensions{}, fmt.Errorf("%s font: %w", slot, err)
		}
		store.SetFont(slot, family)
	}

	surface := render.NewSurface()
	renderer := render.NewComparisonRenderer(registry, fonts.FallbackFamily, opts.dpr)
	dims, err := renderer.Render(surface, store.Snapshot())
	if err != nil {
		log.Warn().Err(err).Msg("degraded render")
	}
	if err := surface.WritePNG(out); err != nil {
		return dims, err
	}
	return dims, nil
}

func registerFontFile(registry *fonts.Registry, path string) (string, error) {
	name := filepath.Base(path)
	if err := fonts.ValidateFileName(name); err != nil {
		return "", err
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return "", err
	}
	return registry.Register(fonts.FamilyName(name), data)
}
