package state

import (
	"fmt"
	"math"
	"strings"
	"sync"
)

// Ranges of the user-adjustable RenderConfig fields.
const (
	MinFontSize       = 64
	MaxFontSize       = 400
	MinTopFontScale   = 0.5
	MaxTopFontScale   = 1.5
	MinBaselineOffset = -50
	MaxBaselineOffset = 50
)

const (
	DefaultText           = "FontCompare"
	DefaultBottomFontName = "Go"
	DefaultTopFontName    = "Go Mono"
)

type FontSlot int

const (
	BottomSlot FontSlot = iota
	TopSlot
)

func (slot FontSlot) String() string {
	if slot == TopSlot {
		return "top"
	}
	return "bottom"
}

func ParseFontSlot(raw string) (FontSlot, error) {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "bottom":
		return BottomSlot, nil
	case "top":
		return TopSlot, nil
	}
	return BottomSlot, fmt.Errorf("unknown font slot %q", raw)
}

// FontRef names a registered font family. Ready is only true once the
// family can be measured and painted.
type FontRef struct {
	Name  string
	Ready bool
}

type RenderConfig struct {
	Text           string
	FontSize       int
	TopFontScale   float64
	BaselineOffset int
	BottomFont     FontRef
	TopFont        FontRef
}

func DefaultRenderConfig() RenderConfig {
	return RenderConfig{
		Text:         DefaultText,
		FontSize:     MinFontSize,
		TopFontScale: 1,
		BottomFont:   FontRef{Name: DefaultBottomFontName, Ready: true},
		TopFont:      FontRef{Name: DefaultTopFontName, Ready: true},
	}
}

// Font returns the reference held by slot.
func (cfg RenderConfig) Font(slot FontSlot) FontRef {
	if slot == TopSlot {
		return cfg.TopFont
	}
	return cfg.BottomFont
}

// Store holds the session's RenderConfig and the transient error banner.
// Subscribers run synchronously after every change, outside the lock.
type Store struct {
	mu          sync.RWMutex
	config      RenderConfig
	banner      string
	nextID      int
	subscribers map[int]func(RenderConfig)
}

func NewStore() *Store {
	return &Store{config: DefaultRenderConfig(), subscribers: make(map[int]func(RenderConfig))}
}

func (store *Store) Snapshot() RenderConfig {
	store.mu.RLock()
	defer store.mu.RUnlock()
	return store.config
}

func (store *Store) Banner() string {
	store.mu.RLock()
	defer store.mu.RUnlock()
	return store.banner
}

// Subscribe registers fn for config changes and returns a function that
// removes it again.
func (store *Store) Subscribe(fn func(RenderConfig)) (unsubscribe func()) {
	store.mu.Lock()
	id := store.nextID
	store.nextID++
	store.subscribers[id] = fn
	store.mu.Unlock()
	return func() {
		store.mu.Lock()
		delete(store.subscribers, id)
		store.mu.Unlock()
	}
}

// Update applies mutate to a copy of the config, normalizes it and, when
// anything changed, publishes the result in one step.
func (store *Store) Update(mutate func(cfg *RenderConfig)) RenderConfig {
	store.mu.Lock()
	next := store.config
	mutate(&next)
	next = normalize(next, store.config)
	if next == store.config {
		store.mu.Unlock()
		return next
	}
	store.config = next
	subs := make([]func(RenderConfig), 0, len(store.subscribers))
	for _, fn := range store.subscribers {
		subs = append(subs, fn)
	}
	store.mu.Unlock()

	for _, fn := range subs {
		fn(next)
	}
	return next
}

func (store *Store) SetText(text string) {
	store.Update(func(cfg *RenderConfig) { cfg.Text = text })
}

func (store *Store) SetFontSize(size int) {
	store.Update(func(cfg *RenderConfig) { cfg.FontSize = size })
}

func (store *Store) SetTopFontScale(scale float64) {
	store.Update(func(cfg *RenderConfig) { cfg.TopFontScale = scale })
}

func (store *Store) SetBaselineOffset(offset int) {
	store.Update(func(cfg *RenderConfig) { cfg.BaselineOffset = offset })
}

// SetFont points slot at a family that is already registered and ready.
func (store *Store) SetFont(slot FontSlot, family string) {
	store.Update(func(cfg *RenderConfig) {
		ref := FontRef{Name: family, Ready: true}
		if slot == TopSlot {
			cfg.TopFont = ref
		} else {
			cfg.BottomFont = ref
		}
	})
}

func (store *Store) SetBanner(message string) {
	store.mu.Lock()
	store.banner = message
	store.mu.Unlock()
}

func (store *Store) ClearBanner() { store.SetBanner("") }

// Reset restores the defaults and clears the banner.
func (store *Store) Reset() {
	store.SetBanner("")
	store.Update(func(cfg *RenderConfig) { *cfg = DefaultRenderConfig() })
}

func normalize(cfg, previous RenderConfig) RenderConfig {
	cfg.FontSize = clampInt(cfg.FontSize, MinFontSize, MaxFontSize)
	cfg.BaselineOffset = clampInt(cfg.BaselineOffset, MinBaselineOffset, MaxBaselineOffset)
	if math.IsNaN(cfg.TopFontScale) {
		cfg.TopFontScale = previous.TopFontScale
	}
	cfg.TopFontScale = math.Min(math.Max(cfg.TopFontScale, MinTopFontScale), MaxTopFontScale)
	// A slot never points at a font that is not ready.
	if !cfg.BottomFont.Ready || strings.TrimSpace(cfg.BottomFont.Name) == "" {
		cfg.BottomFont = previous.BottomFont
	}
	if !cfg.TopFont.Ready || strings.TrimSpace(cfg.TopFont.Name) == "" {
		cfg.TopFont = previous.TopFont
	}
	return cfg
}

func clampInt(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
