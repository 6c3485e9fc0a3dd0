package fonts

import (
	"errors"
	"fmt"
	"math"
	"path/filepath"
	"sort"
	"strings"
	"sync"

	"github.com/golang/freetype/truetype"
	"golang.org/x/image/font"
	"golang.org/x/image/font/gofont/gomono"
	"golang.org/x/image/font/gofont/goregular"
	"golang.org/x/image/font/opentype"
)

// Built-in families registered by NewRegistry.
const (
	DefaultBottomFamily = "Go"
	DefaultTopFamily    = "Go Mono"
	FallbackFamily      = DefaultBottomFamily
)

var (
	ErrInvalidFileExtension = errors.New("font file must have a .ttf or .otf extension")
	ErrFontDecode           = errors.New("font data could not be decoded")
	ErrUnknownFamily        = errors.New("font family is not registered")
)

// maxCachedFaces bounds the face cache; sizes change with every slider move.
const maxCachedFaces = 32

type entry struct {
	otf *opentype.Font
	ttf *truetype.Font
}

type faceKey struct {
	family string
	size   int64 // 26.6 fixed point pixels
}

// Registry is the process-lifetime set of loaded font families.
// Families are only ever added or replaced, never removed.
//
// Faces handed out by Face are cached and are not safe for concurrent use;
// callers draw and measure from a single goroutine.
type Registry struct {
	mu      sync.Mutex
	entries map[string]*entry
	faces   map[faceKey]font.Face
}

func NewRegistry() *Registry {
	reg := &Registry{
		entries: make(map[string]*entry),
		faces:   make(map[faceKey]font.Face),
	}
	reg.mustRegister(DefaultBottomFamily, goregular.TTF)
	reg.mustRegister(DefaultTopFamily, gomono.TTF)
	return reg
}

func (reg *Registry) mustRegister(family string, data []byte) {
	if _, err := reg.Register(family, data); err != nil {
		panic(fmt.Sprintf("fonts: built-in %q: %v", family, err))
	}
}

// ValidateFileName accepts .ttf and .otf files, case-insensitively.
func ValidateFileName(fileName string) error {
	switch strings.ToLower(filepath.Ext(strings.TrimSpace(fileName))) {
	case ".ttf", ".otf":
		return nil
	}
	return fmt.Errorf("%w: %q", ErrInvalidFileExtension, fileName)
}

// FamilyName derives the family a file is registered under: the base name
// up to its first dot.
func FamilyName(fileName string) string {
	base := filepath.Base(strings.ReplaceAll(strings.TrimSpace(fileName), "\\", "/"))
	if i := strings.Index(base, "."); i >= 0 {
		base = base[:i]
	}
	if base == "" || base == "/" {
		return "font"
	}
	return base
}

// Register decodes data and stores it under family, replacing any
// previous font of the same name.
func (reg *Registry) Register(family string, data []byte) (string, error) {
	family = strings.TrimSpace(family)
	if family == "" {
		return "", fmt.Errorf("%w: empty family name", ErrFontDecode)
	}
	e, err := decode(data)
	if err != nil {
		return "", err
	}

	reg.mu.Lock()
	defer reg.mu.Unlock()
	reg.entries[family] = e
	for key, face := range reg.faces {
		if key.family == family {
			_ = face.Close()
			delete(reg.faces, key)
		}
	}
	return family, nil
}

func decode(data []byte) (*entry, error) {
	if len(data) == 0 {
		return nil, fmt.Errorf("%w: empty file", ErrFontDecode)
	}
	otf, otfErr := opentype.Parse(data)
	if otfErr == nil {
		return &entry{otf: otf}, nil
	}
	// freetype is more lenient with some legacy TrueType tables.
	ttf, ttfErr := truetype.Parse(data)
	if ttfErr == nil {
		return &entry{ttf: ttf}, nil
	}
	return nil, fmt.Errorf("%w: %v", ErrFontDecode, otfErr)
}

// Has reports whether family is registered.
func (reg *Registry) Has(family string) bool {
	reg.mu.Lock()
	defer reg.mu.Unlock()
	_, ok := reg.entries[family]
	return ok
}

// Families returns the registered family names in sorted order.
func (reg *Registry) Families() []string {
	reg.mu.Lock()
	names := make([]string, 0, len(reg.entries))
	for name := range reg.entries {
		names = append(names, name)
	}
	reg.mu.Unlock()
	sort.Strings(names)
	return names
}

// Face returns a face of family at sizePx pixels per em.
func (reg *Registry) Face(family string, sizePx float64) (font.Face, error) {
	if !(sizePx > 0) || math.IsInf(sizePx, 0) {
		return nil, fmt.Errorf("invalid font size %v", sizePx)
	}
	key := faceKey{family: family, size: int64(math.Round(sizePx * 64))}

	reg.mu.Lock()
	defer reg.mu.Unlock()
	if face, ok := reg.faces[key]; ok {
		return face, nil
	}
	e, ok := reg.entries[family]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownFamily, family)
	}

	var face font.Face
	if e.otf != nil {
		f, err := opentype.NewFace(e.otf, &opentype.FaceOptions{Size: sizePx, DPI: 72, Hinting: font.HintingNone})
		if err != nil {
			return nil, fmt.Errorf("face %q at %.2fpx: %w", family, sizePx, err)
		}
		face = f
	} else {
		face = truetype.NewFace(e.ttf, &truetype.Options{Size: sizePx, DPI: 72, Hinting: font.HintingNone})
	}

	if len(reg.faces) >= maxCachedFaces {
		for k, cached := range reg.faces {
			_ = cached.Close()
			delete(reg.faces, k)
		}
	}
	reg.faces[key] = face
	return face, nil
}

// Advance measures the horizontal advance of text in logical pixels.
func (reg *Registry) Advance(family string, sizePx float64, text string) (float64, error) {
	if text == "" {
		return 0, nil
	}
	face, err := reg.Face(family, sizePx)
	if err != nil {
		return 0, err
	}
	reg.mu.Lock()
	defer reg.mu.Unlock()
	return measure(face, text), nil
}

// measure follows font.MeasureString but sums in float64, so very long
// text never wraps the 26.6 fixed-point range.
func measure(face font.Face, text string) float64 {
	var total float64
	prev := rune(-1)
	for _, c := range text {
		if prev >= 0 {
			total += float64(face.Kern(prev, c)) / 64
		}
		a, ok := face.GlyphAdvance(c)
		if !ok {
			continue
		}
		total += float64(a) / 64
		prev = c
	}
	return total
}
