package tui

import (
	"fmt"
	"math"
	"os"
	"strings"
	"time"
)

// ShimmerConfig holds configuration for shimmer effects
type ShimmerConfig struct {
	Enabled      bool          // animations: on|off
	ReduceMotion bool          // if true, use a static highlight
	Speed        time.Duration // tick interval
	WidthRatio   float64       // width of the bright band relative to the text
	Cycle        time.Duration // time for one sweep
	PauseBetween time.Duration // pause between sweeps
}

// ShimmerState holds the current state of a shimmer effect
type ShimmerState struct {
	Center            float64
	LastUpdate        time.Time
	Active            bool
	Config            ShimmerConfig
	SupportsTrueColor bool
	IsPaused          bool
	PauseStartTime    time.Time
}

// DefaultShimmerConfig returns default shimmer configuration.
// RELAY_REDUCE_MOTION=1 turns the sweep into a static color.
func DefaultShimmerConfig() ShimmerConfig {
	return ShimmerConfig{
		Enabled:      true,
		ReduceMotion: os.Getenv("RELAY_REDUCE_MOTION") == "1",
		Speed:        100 * time.Millisecond,
		WidthRatio:   0.25,
		Cycle:        1800 * time.Millisecond,
		PauseBetween: 500 * time.Millisecond,
	}
}

// NewShimmerState creates a new shimmer state
func NewShimmerState(config ShimmerConfig) *ShimmerState {
	return &ShimmerState{
		LastUpdate:        time.Now(),
		Active:            config.Enabled && !config.ReduceMotion,
		Config:            config,
		SupportsTrueColor: os.Getenv("COLORTERM") == "truecolor",
	}
}

// Update advances the animation for text of visibleLen runes
func (s *ShimmerState) Update(visibleLen int) {
	if !s.Active || visibleLen <= 0 {
		return
	}

	now := time.Now()
	if now.Sub(s.LastUpdate) < s.Config.Speed {
		return
	}

	if s.IsPaused {
		if now.Sub(s.PauseStartTime) >= s.Config.PauseBetween {
			s.IsPaused = false
			s.Center = -float64(visibleLen) * s.Config.WidthRatio
		}
		s.LastUpdate = now
		return
	}

	ticksPerCycle := float64(s.Config.Cycle) / float64(s.Config.Speed)
	// The band travels from before the first rune to past the last one
	totalDistance := float64(visibleLen) * (1.0 + 2.0*s.Config.WidthRatio)
	s.Center += totalDistance / ticksPerCycle

	maxCenter := float64(visibleLen) * (1.0 + s.Config.WidthRatio)
	if s.Center >= maxCenter {
		s.IsPaused = true
		s.PauseStartTime = now
		s.Center = maxCenter
	}
	s.LastUpdate = now
}

// Reset restarts the sweep (call when the selection changes)
func (s *ShimmerState) Reset() {
	s.Center = 0
	s.LastUpdate = time.Now()
	s.IsPaused = false
	s.PauseStartTime = time.Time{}
}

// SetActive enables/disables shimmer
func (s *ShimmerState) SetActive(active bool) {
	s.Active = active && s.Config.Enabled && !s.Config.ReduceMotion
}

// RenderShimmerText renders text with the shimmer effect, truncated to maxWidth runes
func (s *ShimmerState) RenderShimmerText(text string, maxWidth int) string {
	runes := []rune(text)
	if maxWidth > 3 && len(runes) > maxWidth {
		runes = append(runes[:maxWidth-3], []rune("...")...)
	}
	if len(runes) == 0 {
		return ""
	}

	s.Update(len(runes))

	if !s.Active {
		return renderStaticShimmerText(string(runes))
	}
	if !s.SupportsTrueColor {
		return renderFallbackShimmerText(runes, s.Center, s.Config.WidthRatio)
	}
	return s.renderTrueColorShimmer(runes)
}

func (s *ShimmerState) renderTrueColorShimmer(runes []rune) string {
	var b strings.Builder

	// Base #A9BCC4, highlight #E0FFFA
	baseR, baseG, baseB := 169, 188, 196
	highR, highG, highB := 224, 255, 250

	sigma := math.Max(s.Config.WidthRatio*float64(len(runes))/2.0, 1.0)

	for i, r := range runes {
		dx := float64(i) - s.Center
		w := math.Exp(-(dx * dx) / (2 * sigma * sigma))

		fmt.Fprintf(&b, "\033[38;2;%d;%d;%dm%c",
			blend(baseR, highR, w), blend(baseG, highG, w), blend(baseB, highB, w), r)
	}
	b.WriteString("\033[0m")
	return b.String()
}

func blend(base, high int, w float64) int {
	return int(float64(base)*(1-w) + float64(high)*w)
}

func renderStaticShimmerText(text string) string {
	return fmt.Sprintf("\033[38;2;94;234;212m%s\033[0m", text) // ColorAccentBright
}

// renderHighlight colors each line of text the way a resting shimmer
// looks. Per-line escapes keep the color intact when the text is wrapped.
func renderHighlight(text string) string {
	lines := strings.Split(text, "\n")
	for i, line := range lines {
		if line != "" {
			lines[i] = fmt.Sprintf("\033[38;2;253;230;138;48;2;59;52;19m%s\033[0m", line) // ColorHighlightText on ColorHighlightBg
		}
	}
	return strings.Join(lines, "\n")
}

// renderFallbackShimmerText approximates the sweep with 256 colors
func renderFallbackShimmerText(runes []rune, center float64, widthRatio float64) string {
	width := max(int(widthRatio*float64(len(runes))), 1)
	start := int(center) - width/2
	end := start + width

	var b strings.Builder
	for i, r := range runes {
		if i >= start && i < end {
			fmt.Fprintf(&b, "\033[38;5;122m%c", r)
		} else {
			fmt.Fprintf(&b, "\033[38;5;250m%c", r)
		}
	}
	b.WriteString("\033[0m")
	return b.String()
}

// GetTickInterval returns the interval for tea.Tick commands
func (s *ShimmerState) GetTickInterval() time.Duration {
	if !s.Active {
		return 0
	}
	return s.Config.Speed
}

// ShouldTick returns true if shimmer should be ticking
func (s *ShimmerState) ShouldTick() bool {
	return s.Active
}
