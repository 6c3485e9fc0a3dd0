package render

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHeadlessPresenterWidth(t *testing.T) {
	assert.Equal(t, 800.0, (&HeadlessPresenter{}).ViewportWidth())
	assert.Equal(t, 640.0, (&HeadlessPresenter{Width: 640}).ViewportWidth())
}

func TestFBPresenterIgnoresFramesBeforeStart(t *testing.T) {
	p := NewFBPresenter("")
	assert.Equal(t, "/dev/fb0", p.Device)
	assert.Equal(t, float64(CanvasWidth-2*screenMargin), p.ViewportWidth())
	// not started: must not touch any device
	p.Present(Frame{Surface: NewSurface(), Banner: "x"})
	require.NoError(t, p.Stop())
}

func TestFBPresenterStartFailsWithoutDevice(t *testing.T) {
	p := NewFBPresenter("/nonexistent/fb")
	assert.Error(t, p.Start(context.Background()))
}
