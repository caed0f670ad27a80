package controller

import (
	"context"
	"runtime"
	"sync"
	"time"

	"github.com/markusressel/fancond/internal/configuration"
	"github.com/markusressel/fancond/internal/devices"
	"github.com/markusressel/fancond/internal/ui"
)

const maxRecoverAttempts = 5

// wakeup is the tick sequence shared by all worker loops
type wakeup struct {
	mu       sync.Mutex
	at       time.Time
	interval time.Duration
}

func newWakeup(interval time.Duration, now time.Time) *wakeup {
	return &wakeup{at: now, interval: interval}
}

// Next returns the first tick after prev that is not in the past.
// Loops passing the same prev get the same tick, missed ticks are skipped.
func (w *wakeup) Next(prev time.Time, now time.Time) time.Time {
	w.mu.Lock()
	defer w.mu.Unlock()
	for !w.at.After(prev) || w.at.Before(now) {
		w.at = w.at.Add(w.interval)
	}
	return w.at
}

// sensorLead is how much earlier than fans sensors wake up within the same tick
func sensorLead(interval time.Duration) time.Duration {
	lead := interval / 4
	if lead > 100*time.Millisecond {
		lead = 100 * time.Millisecond
	}
	return lead
}

// partition distributes items round-robin over at most threads slices
func partition[T any](items []T, threads int) [][]T {
	n := threads
	if n <= 0 || n > runtime.NumCPU() {
		n = runtime.NumCPU()
	}
	if n > len(items) {
		n = len(items)
	}
	if n <= 0 {
		return nil
	}

	result := make([][]T, n)
	for i, item := range items {
		result[i%n] = append(result[i%n], item)
	}
	return result
}

func (c *Controller) startWorkersLocked() {
	ctx, cancel := context.WithCancel(c.ctx)
	c.cancelWorkers = cancel
	release := make(chan struct{})
	c.release = release
	params := c.params

	var sensorList []*devices.Sensor
	for _, sensor := range c.devices.SortedSensors() {
		if !sensor.Ignored() {
			sensorList = append(sensorList, sensor)
		}
	}
	var fanList []*devices.Fan
	for _, fan := range c.devices.SortedFans() {
		if !fan.Ignored() {
			fanList = append(fanList, fan)
		}
	}

	wake := newWakeup(params.UpdateInterval, time.Now())
	for _, slice := range partition(sensorList, c.options.Threads) {
		c.workers.Add(1)
		go func(slice []*devices.Sensor) {
			defer c.workers.Done()
			c.sensorLoop(ctx, release, wake, slice, params)
		}(slice)
	}
	for _, slice := range partition(fanList, c.options.Threads) {
		c.workers.Add(1)
		go func(slice []*devices.Fan) {
			defer c.workers.Done()
			c.fanLoop(ctx, release, wake, slice, params)
		}(slice)
	}
}

func (c *Controller) stopWorkersLocked() {
	if c.cancelWorkers != nil {
		c.cancelWorkers()
		c.cancelWorkers = nil
	}
	c.workers.Wait()
	c.release = nil
}

// sleepUntil returns false if ctx was cancelled before the deadline
func sleepUntil(ctx context.Context, deadline time.Time) bool {
	timer := time.NewTimer(time.Until(deadline))
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-timer.C:
		return true
	}
}

func waitForRelease(ctx context.Context, release <-chan struct{}) bool {
	select {
	case <-ctx.Done():
		return false
	case <-release:
		return true
	}
}

func (c *Controller) sensorLoop(ctx context.Context, release <-chan struct{}, wake *wakeup, sensorList []*devices.Sensor, params configuration.ControllerConfig) {
	// a first sample, so fans have a temperature on their first tick
	for _, sensor := range sensorList {
		if _, err := sensor.Update(params.TempAveragingIntervals); err != nil {
			ui.Debug("Unable to read sensor %s: %v", sensor.Label(), err)
		}
	}
	if !waitForRelease(ctx, release) {
		return
	}

	lead := sensorLead(params.UpdateInterval)
	var tick time.Time
	for {
		tick = wake.Next(tick, time.Now().Add(lead))
		if !sleepUntil(ctx, tick.Add(-lead)) {
			return
		}
		for _, sensor := range sensorList {
			if _, err := sensor.Update(params.TempAveragingIntervals); err != nil {
				ui.Debug("Unable to read sensor %s: %v", sensor.Label(), err)
			}
		}
	}
}

func (c *Controller) fanLoop(ctx context.Context, release <-chan struct{}, wake *wakeup, fanList []*devices.Fan, params configuration.ControllerConfig) {
	if !waitForRelease(ctx, release) {
		return
	}

	var tick time.Time
	for {
		tick = wake.Next(tick, time.Now())
		if !sleepUntil(ctx, tick) {
			return
		}
		now := time.Now()
		for _, fan := range fanList {
			task, ok := c.tasks.Get(fan.GetHwId())
			if !ok || task.Status != StatusEnabled || task.fan != fan {
				continue
			}
			if !fan.Due(now) {
				continue
			}
			c.step(task, params)
		}
	}
}

// step runs a single control iteration for the fan of the given task
func (c *Controller) step(task *Task, params configuration.ControllerConfig) {
	task.stepMu.Lock()
	defer task.stepMu.Unlock()
	if task.cancelled.Load() {
		return
	}

	fan := task.fan
	sensor := fan.Sensor()
	if sensor == nil {
		return
	}
	temp, ok := sensor.Average()
	if !ok {
		return
	}

	stopped := func() bool {
		rpm, err := fan.Driver.GetRpm()
		return err == nil && rpm == 0
	}
	evaluation := fan.Curve().Evaluate(fan.Smoothing, temp, stopped, params.CurveParams())

	if err := fan.Driver.SetPwm(evaluation.Pwm); err != nil {
		ui.Warning("Unable to set drive level of fan %s: %v", fan.Label(), err)
	}
	if actual, err := fan.Driver.GetPwm(); err != nil || actual != evaluation.Pwm {
		ui.Warning("Drive level of fan %s was changed by a third party, expected %d but is %d", fan.Label(), evaluation.Pwm, actual)
		fan.CountUnexpectedPwmValue()
		c.recoverFan(fan, evaluation.Pwm)
	}

	rpm, _ := fan.Driver.GetRpm()
	fan.SetTelemetry(devices.Telemetry{
		Temp:        temp,
		TargetRpm:   evaluation.TargetRpm,
		SmoothedRpm: evaluation.SmoothedRpm,
		Pwm:         evaluation.Pwm,
		Rpm:         rpm,
		UpdatedAt:   time.Now(),
	})
}

// recoverFan tries to regain control of a fan whose drive level was overridden
func (c *Controller) recoverFan(fan *devices.Fan, pwm int) bool {
	for attempt := 1; attempt <= maxRecoverAttempts; attempt++ {
		if err := fan.Driver.EnableControl(); err != nil {
			ui.Debug("Attempt %d to take control of fan %s failed: %v", attempt, fan.Label(), err)
		}
		if err := fan.Driver.SetPwm(pwm); err != nil {
			ui.Debug("Attempt %d to set drive level of fan %s failed: %v", attempt, fan.Label(), err)
		}
		if c.options.PwmSetDelay > 0 {
			time.Sleep(c.options.PwmSetDelay)
		}
		if actual, err := fan.Driver.GetPwm(); err == nil && actual == pwm {
			ui.Info("Regained control of fan %s", fan.Label())
			return true
		}
	}
	fan.CountLostControl()
	ui.WarningAndNotify("Lost control", "Unable to regain control of fan %s after %d attempts", fan.Label(), maxRecoverAttempts)
	return false
}

// Recover re-asserts control of every enabled fan, e.g. after the system resumed from sleep
func (c *Controller) Recover() {
	c.mu.Lock()
	defer c.mu.Unlock()
	for _, fan := range c.devices.SortedFans() {
		task, ok := c.tasks.Get(fan.GetHwId())
		if !ok || task.Status != StatusEnabled {
			continue
		}
		task.stepMu.Lock()
		pwm := fan.Curve().StartPwm
		if telemetry := fan.Telemetry(); !telemetry.UpdatedAt.IsZero() {
			pwm = telemetry.Pwm
		}
		c.recoverFan(fan, pwm)
		task.stepMu.Unlock()
	}
}
