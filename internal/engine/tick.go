// Package engine provides the tick-based simulation loop.
package engine

import (
	"context"
	"fmt"
	"math"
	"sync/atomic"
	"time"

	"go.uber.org/zap"

	"github.com/talgya/tradewinds/internal/logs"
)

// TickSchedule defines when each system runs relative to the tick counter.
const (
	TicksPerSimHour   = 60                     // 60 ticks = 1 sim-hour
	TicksPerSimDay    = 24 * TicksPerSimHour   // 1440
	TicksPerSimWeek   = 7 * TicksPerSimDay     // 10080
	TicksPerSimSeason = DaysPerSeason * TicksPerSimDay
	DaysPerSeason     = 90
)

// Engine drives the simulation forward.
type Engine struct {
	Interval time.Duration // Base tick interval (default 1 second)

	tick    atomic.Uint64 // Current tick counter (monotonic, never resets)
	speed   atomic.Uint64 // float64 bits; 1.0 = real-time, 0 = paused
	running atomic.Bool

	// Callbacks for each tick layer, populated during setup.
	OnTick   func(tick uint64) // Every tick (sim-minute)
	OnHour   func(tick uint64) // Every 60 ticks
	OnDay    func(tick uint64) // Every 1440 ticks
	OnWeek   func(tick uint64) // Every 10080 ticks
	OnSeason func(tick uint64) // Every 90 days
}

// NewEngine creates a simulation engine starting after the given tick.
func NewEngine(startTick uint64) *Engine {
	e := &Engine{Interval: time.Second}
	e.tick.Store(startTick)
	e.SetSpeed(1.0)
	return e
}

// Tick returns the most recently executed tick.
func (e *Engine) Tick() uint64 { return e.tick.Load() }

// Speed returns the current speed multiplier.
func (e *Engine) Speed() float64 { return math.Float64frombits(e.speed.Load()) }

// SetSpeed changes the speed multiplier. Negative values pause.
func (e *Engine) SetSpeed(speed float64) {
	if speed < 0 || math.IsNaN(speed) {
		speed = 0
	}
	e.speed.Store(math.Float64bits(speed))
}

// Running reports whether Run is active.
func (e *Engine) Running() bool { return e.running.Load() }

// Run starts the simulation loop. Blocks until ctx is cancelled.
func (e *Engine) Run(ctx context.Context) {
	e.running.Store(true)
	defer e.running.Store(false)
	logs.Info("simulation engine started", zap.Uint64("tick", e.Tick()), zap.Float64("speed", e.Speed()))

	timer := time.NewTimer(0)
	defer timer.Stop()
	for {
		select {
		case <-ctx.Done():
			logs.Info("simulation engine stopped", zap.Uint64("tick", e.Tick()))
			return
		case <-timer.C:
		}

		speed := e.Speed()
		if speed <= 0 {
			// Paused: check again shortly.
			timer.Reset(100 * time.Millisecond)
			continue
		}

		start := time.Now()
		e.Step()

		target := time.Duration(float64(e.Interval) / speed)
		timer.Reset(max(target-time.Since(start), 0))
	}
}

// Step advances the simulation by one tick and fires the due layers.
func (e *Engine) Step() {
	tick := e.tick.Add(1)

	if e.OnTick != nil {
		e.OnTick(tick)
	}
	if tick%TicksPerSimHour == 0 && e.OnHour != nil {
		e.OnHour(tick)
	}
	if tick%TicksPerSimDay == 0 && e.OnDay != nil {
		e.OnDay(tick)
	}
	if tick%TicksPerSimWeek == 0 && e.OnWeek != nil {
		e.OnWeek(tick)
	}
	if tick%TicksPerSimSeason == 0 && e.OnSeason != nil {
		e.OnSeason(tick)
	}
}

// GameHours converts a tick count into the trading system's clock.
func GameHours(tick uint64) float64 {
	return float64(tick) / TicksPerSimHour
}

// SeasonOf returns the season index (0 = Spring) a tick falls in.
func SeasonOf(tick uint64) uint8 {
	return uint8((tick / TicksPerSimSeason) % 4)
}

// SimTime returns a human-readable simulation time string from a tick number.
func SimTime(tick uint64) string {
	minutes := tick % 60
	totalHours := tick / 60
	hours := totalHours % 24
	totalDays := totalHours / 24
	day := totalDays%DaysPerSeason + 1
	seasons := totalDays / DaysPerSeason
	year := seasons/4 + 1

	return fmt.Sprintf("%s Day %d, %d:%02d Year %d",
		SeasonName(uint8(seasons%4)), day, hours, minutes, year)
}
