package decoration

import (
	"context"
	"math"
	"sync"
	"time"

	"colorfulez-server/network_state"
)

// ColorSetter applies one color to every decoration.
type ColorSetter interface {
	SetColor(c network_state.Color) bool
}

// Rainbow rotates the decoration hue at a fixed rate.
type Rainbow struct {
	lock     sync.Locker
	target   ColorSetter
	interval time.Duration
	step     float64

	mu  sync.Mutex
	hue float64
	wg  sync.WaitGroup
}

// NewRainbow creates a hue rotation starting at hue degrees.
func NewRainbow(lock sync.Locker, target ColorSetter, interval time.Duration, step, hue float64) *Rainbow {
	return &Rainbow{
		lock:     lock,
		target:   target,
		interval: interval,
		step:     step,
		hue:      NextHue(hue, 0),
	}
}

// NextHue advances h by step degrees, wrapping into [0, 360).
func NextHue(h, step float64) float64 {
	h = math.Mod(h+step, 360)
	if h < 0 {
		h += 360
	}
	return h
}

// Start rotates the hue until ctx is cancelled. Every tick holds the round lock.
func (rb *Rainbow) Start(ctx context.Context) {
	rb.wg.Add(1)
	go func() {
		defer rb.wg.Done()
		ticker := time.NewTicker(rb.interval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				rb.Tick()
			}
		}
	}()
}

// Wait blocks until the rotation goroutine has returned.
func (rb *Rainbow) Wait() {
	rb.wg.Wait()
}

// Tick advances the hue once and applies it.
func (rb *Rainbow) Tick() {
	rb.lock.Lock()
	defer rb.lock.Unlock()

	rb.mu.Lock()
	rb.hue = NextHue(rb.hue, rb.step)
	h := rb.hue
	rb.mu.Unlock()

	rb.target.SetColor(network_state.ColorFromHSV(h, 1, 1))
}

// Hue returns the current hue in degrees.
func (rb *Rainbow) Hue() float64 {
	rb.mu.Lock()
	defer rb.mu.Unlock()
	return rb.hue
}
