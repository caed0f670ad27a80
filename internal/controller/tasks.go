package controller

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/markusressel/fancond/internal/calibration"
	"github.com/markusressel/fancond/internal/devices"
	"github.com/markusressel/fancond/internal/observable"
	"github.com/markusressel/fancond/internal/persistence"
	"github.com/markusressel/fancond/internal/ui"
)

type Status int

const (
	StatusDisabled Status = iota
	StatusEnabled
	StatusTesting
)

func (s Status) String() string {
	switch s {
	case StatusEnabled:
		return "enabled"
	case StatusTesting:
		return "testing"
	default:
		return "disabled"
	}
}

func (s Status) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

func (s *Status) UnmarshalText(text []byte) error {
	switch string(text) {
	case "enabled":
		*s = StatusEnabled
	case "testing":
		*s = StatusTesting
	case "disabled":
		*s = StatusDisabled
	default:
		return fmt.Errorf("unknown fan status: %q", text)
	}
	return nil
}

// Task binds a fan to either its control loop or a calibration run
type Task struct {
	HwId   string
	Status Status

	fan *devices.Fan

	// control
	cancelled atomic.Bool
	stepMu    sync.Mutex

	// test
	cancel   context.CancelFunc
	done     chan struct{}
	finished chan struct{}
	Progress *observable.Number
	err      error
	// next is the test that took over from this one, set before finished is closed
	next *Task
}

func newControlTask(fan *devices.Fan) *Task {
	return &Task{
		HwId:   fan.GetHwId(),
		Status: StatusEnabled,
		fan:    fan,
	}
}

func newTestTask(ctx context.Context, fan *devices.Fan, progress *observable.Number) (*Task, context.Context) {
	ctx, cancel := context.WithCancel(ctx)
	return &Task{
		HwId:     fan.GetHwId(),
		Status:   StatusTesting,
		fan:      fan,
		cancel:   cancel,
		done:     make(chan struct{}),
		finished: make(chan struct{}),
		Progress: progress,
	}, ctx
}

// stop cancels the task and waits until it no longer touches its fan
func (t *Task) stop() {
	switch t.Status {
	case StatusEnabled:
		t.cancelled.Store(true)
		// wait for an in-flight step
		t.stepMu.Lock()
		t.stepMu.Unlock()
	case StatusTesting:
		t.cancel()
		<-t.done
	}
}

// Wait blocks until a test task has finished and returns its error
func (t *Task) Wait() error {
	if t.finished == nil {
		return nil
	}
	<-t.finished
	if t.next != nil {
		return t.next.Wait()
	}
	return t.err
}

func (c *Controller) group(label string) []string {
	if group, ok := c.groups[label]; ok {
		return group
	}
	return []string{label}
}

// Enable starts controlling the given fan, and all fans coupled with it
func (c *Controller) Enable(label string) error {
	defer c.notifyStatus()
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.enableLocked(label)
}

func (c *Controller) enableLocked(label string) error {
	fan, ok := c.devices.Fans[label]
	if !ok {
		return fmt.Errorf("%w: %s", ErrNotFound, label)
	}
	if _, exists := c.tasks.Get(fan.GetHwId()); exists {
		return fmt.Errorf("%w: %s", ErrTaskExists, label)
	}

	var members []*devices.Fan
	for _, memberLabel := range c.group(label) {
		member, ok := c.devices.Fans[memberLabel]
		if !ok {
			continue
		}
		if _, exists := c.tasks.Get(member.GetHwId()); exists {
			continue
		}
		if err := checkEnable(member); err != nil {
			for _, claimed := range members {
				c.releaseControlLocked(claimed)
			}
			return err
		}
		members = append(members, member)
	}

	for _, member := range members {
		member.Smoothing.Reset()
		c.tasks.Set(member.GetHwId(), newControlTask(member))
		ui.Info("Enabled fan %s", member.Label())
	}
	return nil
}

func checkEnable(fan *devices.Fan) error {
	if fan.Ignored() {
		return fmt.Errorf("%w: %s", ErrIgnored, fan.Label())
	}
	if !fan.Calibrated() {
		return fmt.Errorf("%w: %s", ErrNotCalibrated, fan.Label())
	}
	if !fan.Configured() {
		return fmt.Errorf("%w: %s", ErrNotConfigured, fan.Label())
	}
	if err := fan.Driver.EnableControl(); err != nil {
		return fmt.Errorf("unable to take control of fan %s: %w", fan.Label(), err)
	}
	return nil
}

// Disable stops controlling the given fan, and all fans coupled with it, and releases control
func (c *Controller) Disable(label string) error {
	defer c.notifyStatus()
	c.mu.Lock()
	defer c.mu.Unlock()

	if _, ok := c.devices.Fans[label]; !ok {
		return fmt.Errorf("%w: %s", ErrNotFound, label)
	}
	for _, memberLabel := range c.group(label) {
		if member, ok := c.devices.Fans[memberLabel]; ok {
			c.disableFanLocked(member)
		}
	}
	return nil
}

// disableFanLocked stops the task of a single fan, if any, and releases control of it
func (c *Controller) disableFanLocked(fan *devices.Fan) {
	task, ok := c.tasks.Get(fan.GetHwId())
	if !ok {
		return
	}
	task.stop()
	c.tasks.Remove(task.HwId)
	c.releaseControlLocked(fan)
	ui.Info("Disabled fan %s", fan.Label())
}

// releaseControlLocked hands control back, unless a coupled fan still needs it
func (c *Controller) releaseControlLocked(fan *devices.Fan) {
	for _, memberLabel := range c.group(fan.Label()) {
		member, ok := c.devices.Fans[memberLabel]
		if !ok || member == fan {
			continue
		}
		if _, busy := c.tasks.Get(member.GetHwId()); busy {
			return
		}
	}
	if err := fan.Driver.DisableControl(); err != nil {
		ui.Warning("Unable to release control of fan %s: %v", fan.Label(), err)
	}
}

// EnableAll enables every fan that can be enabled and starts calibrating
// configured fans that have never been calibrated
func (c *Controller) EnableAll() {
	c.mu.Lock()
	fanList := c.devices.SortedFans()
	c.mu.Unlock()

	for _, fan := range fanList {
		if fan.Ignored() {
			continue
		}
		if !fan.Calibrated() {
			if len(fan.Config.Sensor) > 0 && len(fan.Config.TempToRpm) > 0 {
				ui.Info("Fan %s has never been calibrated, starting calibration...", fan.Label())
				if _, err := c.Test(fan.Label(), false, false, nil); err != nil {
					ui.Warning("Unable to calibrate fan %s: %v", fan.Label(), err)
				}
			}
			continue
		}
		if err := c.Enable(fan.Label()); err != nil && !errors.Is(err, ErrTaskExists) {
			ui.Debug("Not enabling fan %s: %v", fan.Label(), err)
		}
	}
}

// DisableAll stops every task and releases control of all fans
func (c *Controller) DisableAll() {
	defer c.notifyStatus()
	c.mu.Lock()
	defer c.mu.Unlock()
	for _, fan := range c.devices.SortedFans() {
		c.disableFanLocked(fan)
	}
}

// Test calibrates the given fan. If the fan is already being tested, the running test is
// joined unless forced is set, which restarts it. progress may be nil.
// If blocking is set, Test returns after the test finished, with its error.
func (c *Controller) Test(label string, forced bool, blocking bool, progress *observable.Number) (*observable.Number, error) {
	c.mu.Lock()
	fan, ok := c.devices.Fans[label]
	if !ok {
		c.mu.Unlock()
		return nil, fmt.Errorf("%w: %s", ErrNotFound, label)
	}
	if fan.Ignored() {
		c.mu.Unlock()
		return nil, fmt.Errorf("%w: %s", ErrIgnored, label)
	}

	existing, exists := c.tasks.Get(fan.GetHwId())
	var task *Task
	if exists && existing.Status == StatusTesting && !forced {
		task = existing
	} else {
		var previous *Task
		if exists {
			existing.stop()
			c.tasks.Remove(existing.HwId)
			if existing.Status == StatusTesting {
				previous = existing
				if progress == nil {
					progress = existing.Progress
				}
			}
		}
		task = c.startTestLocked(fan, progress, previous)
	}
	c.mu.Unlock()
	c.notifyStatus()

	if blocking {
		return task.Progress, task.Wait()
	}
	return task.Progress, nil
}

// startTestLocked starts calibrating the given fan. If the test replaces a running one,
// callers waiting for previous get the result of the new test.
func (c *Controller) startTestLocked(fan *devices.Fan, progress *observable.Number, previous *Task) *Task {
	if progress == nil {
		progress = observable.NewNumber(0)
	}
	task, ctx := newTestTask(c.ctx, fan, progress)
	if previous != nil {
		previous.next = task
	}
	c.tasks.Set(task.HwId, task)
	ui.Info("Calibrating fan %s...", fan.Label())
	go c.runTest(ctx, task, c.params.UpdateInterval)
	return task
}

func (c *Controller) runTest(ctx context.Context, task *Task, interval time.Duration) {
	prober := calibration.NewProber(c.options.Calibration, task.fan.Interval(interval))
	if c.options.Sleep != nil {
		prober.Sleep = c.options.Sleep
	}

	var result calibration.Result
	var err error
	for attempt := 0; attempt <= c.options.TestRetries; attempt++ {
		if attempt > 0 {
			ui.Warning("Calibration of fan %s failed: %v, retrying (%d/%d)...", task.fan.Label(), err, attempt, c.options.TestRetries)
		}
		result, err = prober.Run(ctx, task.fan.Driver, task.Progress)
		if err == nil || ctx.Err() != nil {
			break
		}
	}
	close(task.done)

	c.completeTest(task, result, err)
}

func (c *Controller) completeTest(task *Task, result calibration.Result, err error) {
	defer c.notifyStatus()
	c.mu.Lock()
	defer c.mu.Unlock()
	defer close(task.finished)

	fan := task.fan
	if current, ok := c.tasks.Get(task.HwId); !ok || current != task {
		// superseded or disabled while running
		task.err = context.Canceled
		return
	}
	c.tasks.Remove(task.HwId)

	if err != nil {
		task.err = err
		task.Progress.Set(calibration.ProgressFailed)
		c.releaseControlLocked(fan)
		ui.ErrorAndNotify("Calibration failed", "Calibration of fan %s failed: %v", fan.Label(), err)
		return
	}

	ui.Success("Calibrated fan %s, start pwm: %d", fan.Label(), result.StartPwm)
	fan.ApplyCalibration(result.StartPwm, result.RpmToPwm)
	if _, err := fan.Bind(c.devices.Sensors); err != nil {
		ui.Debug("%v", err)
	}

	if c.persistence != nil {
		record := persistence.CalibrationRecord{
			HwId:      task.HwId,
			Label:     fan.Label(),
			PwmToRpm:  result.PwmToRpm,
			RpmToPwm:  result.RpmToPwm,
			StartPwm:  result.StartPwm,
			Timestamp: time.Now(),
		}
		if err := c.persistence.SaveCalibration(record); err != nil {
			ui.Error("Unable to save calibration of fan %s: %v", fan.Label(), err)
		}
	}
	// the last test to finish writes the results of all of them
	if !c.testsRunningLocked() {
		c.writeDocumentLocked()
	}

	if err := c.enableLocked(fan.Label()); err != nil {
		ui.Warning("Not enabling fan %s after calibration: %v", fan.Label(), err)
		c.releaseControlLocked(fan)
	}
}

func (c *Controller) testsRunningLocked() bool {
	for _, task := range c.tasks.Items() {
		if task.Status == StatusTesting {
			return true
		}
	}
	return false
}
