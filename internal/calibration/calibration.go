package calibration

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/markusressel/fancond/internal/configuration"
	"github.com/markusressel/fancond/internal/curves"
	"github.com/markusressel/fancond/internal/fans"
	"github.com/markusressel/fancond/internal/observable"
	"github.com/markusressel/fancond/internal/ui"
	"github.com/markusressel/fancond/internal/util"
)

const (
	pwmStep = 2
	// settleWindow is the number of consecutive polls that have to be stable
	settleWindow = 3
	// droppedRunningMinSamples is the number of samples right before the fan stopped,
	// which are too close to the stop threshold to be reliable
	droppedRunningMinSamples = 2
)

const (
	progressStopped    = 20
	progressStart      = 50
	progressRunningMin = 75
	progressDone       = 100
	ProgressFailed     = -1
)

var (
	ErrClaimFailed   = errors.New("unable to take control of the fan")
	ErrNeverStarted  = errors.New("fan did not start spinning at any drive level")
	ErrInvalidResult = errors.New("calibration result is invalid")
)

// Result holds everything learned about a fan during a single calibration run
type Result struct {
	// PwmToRpm are the stabilised samples that were recorded
	PwmToRpm map[int]int
	// StartPwm is the lowest drive level that reliably starts the fan
	StartPwm int
	// RpmToPwm is the calibration table derived from PwmToRpm
	RpmToPwm map[int]int
}

func (r Result) Valid() bool {
	return r.StartPwm >= fans.MinPwmValue && r.StartPwm <= fans.MaxPwmValue &&
		len(r.RpmToPwm) >= 2 && curves.MaxRpm(r.RpmToPwm) > 0
}

// Sleeper waits for the given duration, or returns early with the context error
type Sleeper func(ctx context.Context, d time.Duration) error

func sleep(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

// Prober drives a single fan through the calibration sequence
type Prober struct {
	Config configuration.CalibrationConfig
	// Interval is the time between two polls of the fan
	Interval time.Duration
	Sleep    Sleeper
}

func NewProber(config configuration.CalibrationConfig, interval time.Duration) *Prober {
	return &Prober{
		Config:   config,
		Interval: interval,
		Sleep:    sleep,
	}
}

// Run calibrates the given fan, reporting progress from 0 to 100.
// The drive level the fan had before is restored afterwards, no matter the outcome.
// Control of the fan is not released, this is up to the caller.
func (p *Prober) Run(ctx context.Context, fan fans.Fan, progress *observable.Number) (result Result, err error) {
	setProgress := func(value int) {
		if progress != nil {
			progress.Set(value)
		}
	}
	setProgress(0)

	previousPwm, previousErr := fan.GetPwm()
	defer func() {
		if previousErr != nil {
			return
		}
		if restoreErr := fan.SetPwm(previousPwm); restoreErr != nil {
			ui.Warning("Unable to restore drive level of fan %s: %v", fan.GetId(), restoreErr)
		}
	}()

	if err = fan.EnableControl(); err != nil {
		return result, fmt.Errorf("%w: %v", ErrClaimFailed, err)
	}
	if err = p.claim(ctx, fan); err != nil {
		return result, err
	}

	samples := map[int]int{}

	ui.Debug("Measuring stopped speed of fan %s", fan.GetId())
	rpm, _, err := p.stabilise(ctx, fan, fans.MinPwmValue)
	if err != nil {
		return result, err
	}
	samples[fans.MinPwmValue] = rpm
	setProgress(progressStopped)

	ui.Debug("Measuring start level of fan %s", fan.GetId())
	startPwm, err := p.findStart(ctx, fan)
	if err != nil {
		return result, err
	}
	rpm, ok, err := p.stabilise(ctx, fan, startPwm)
	if err != nil {
		return result, err
	}
	if ok {
		samples[startPwm] = rpm
	}
	setProgress(progressStart)

	ui.Debug("Measuring running minimum of fan %s", fan.GetId())
	if err = p.measureRunningMin(ctx, fan, startPwm, samples); err != nil {
		return result, err
	}
	setProgress(progressRunningMin)

	ui.Debug("Mapping drive levels of fan %s", fan.GetId())
	if err = p.measureMapping(ctx, fan, startPwm, samples, setProgress); err != nil {
		return result, err
	}

	result = Result{
		PwmToRpm: samples,
		StartPwm: startPwm,
		RpmToPwm: curves.RpmToPwmFrom(samples),
	}
	if !result.Valid() {
		return result, fmt.Errorf("%w: start pwm %d, %d table entries, max rpm %d",
			ErrInvalidResult, result.StartPwm, len(result.RpmToPwm), curves.MaxRpm(result.RpmToPwm))
	}
	setProgress(progressDone)
	return result, nil
}

// claim verifies that a written drive level actually takes effect
func (p *Prober) claim(ctx context.Context, fan fans.Fan) error {
	target := fans.MinPwmValue
	if current, err := fan.GetPwm(); err == nil && current == fans.MinPwmValue {
		target = fans.MaxPwmValue
	}
	if err := fan.SetPwm(target); err != nil {
		return fmt.Errorf("%w: %v", ErrClaimFailed, err)
	}

	for i := 0; i < p.Config.MaxClaimPolls; i++ {
		if pwm, err := fan.GetPwm(); err == nil && pwm == target {
			return nil
		}
		if err := p.Sleep(ctx, p.Interval); err != nil {
			return err
		}
	}
	return fmt.Errorf("%w: drive level %d was not applied", ErrClaimFailed, target)
}

func (p *Prober) findStart(ctx context.Context, fan fans.Fan) (int, error) {
	for level := fans.MinPwmValue; level <= fans.MaxPwmValue; level += pwmStep {
		rpm, ok, err := p.stabilise(ctx, fan, level)
		if err != nil {
			return 0, err
		}
		if ok && rpm > 0 {
			return util.Coerce(level+p.Config.MarginPwm, fans.MinPwmValue, fans.MaxPwmValue), nil
		}
	}
	return 0, ErrNeverStarted
}

func (p *Prober) measureRunningMin(ctx context.Context, fan fans.Fan, startPwm int, samples map[int]int) error {
	type sample struct{ pwm, rpm int }
	var results []sample

	for level := startPwm; level >= fans.MinPwmValue; level -= pwmStep {
		rpm, ok, err := p.stabilise(ctx, fan, level)
		if err != nil {
			return err
		}
		if !ok {
			continue
		}
		if rpm <= 0 {
			break
		}
		results = append(results, sample{level, rpm})
	}

	for i := 0; i < len(results)-droppedRunningMinSamples; i++ {
		samples[results[i].pwm] = results[i].rpm
	}
	return nil
}

// measureMapping samples every even drive level above startPwm, plus MaxPwmValue
func (p *Prober) measureMapping(ctx context.Context, fan fans.Fan, startPwm int, samples map[int]int, setProgress func(int)) error {
	first := startPwm + pwmStep
	if startPwm%2 != 0 {
		first = startPwm + 1
	}
	first = util.Coerce(first, fans.MinPwmValue, fans.MaxPwmValue)

	for level := first; level <= fans.MaxPwmValue; {
		rpm, ok, err := p.stabilise(ctx, fan, level)
		if err != nil {
			return err
		}
		if ok {
			samples[level] = rpm
		}

		if first < fans.MaxPwmValue {
			span := progressDone - progressRunningMin
			setProgress(progressRunningMin + span*(level-first)/(fans.MaxPwmValue-first))
		}

		if level < fans.MaxPwmValue-1 {
			level += pwmStep
		} else {
			level++
		}
	}
	return nil
}

// stabilise writes the given drive level and polls the fan until its speed settled.
// ok is false if the fan did not settle in time or the drive level was overridden.
func (p *Prober) stabilise(ctx context.Context, fan fans.Fan, pwm int) (rpm int, ok bool, err error) {
	if err = fan.SetPwm(pwm); err != nil {
		ui.Warning("Unable to set drive level %d of fan %s: %v", pwm, fan.GetId(), err)
		return 0, false, nil
	}

	threshold := p.Config.StabilisedThreshold
	window := util.CreateRollingWindow(settleWindow)
	util.FillWindow(window, settleWindow, threshold+1)

	current, err := fan.GetRpm()
	if err != nil {
		return 0, false, err
	}
	for i := 0; i < p.Config.MaxPolls; i++ {
		if err = p.Sleep(ctx, p.Interval); err != nil {
			return current, false, err
		}

		if actual, pwmErr := fan.GetPwm(); pwmErr != nil || actual != pwm {
			ui.Debug("Fan %s: drive level %d was changed to %d", fan.GetId(), pwm, actual)
			return current, false, nil
		}

		previous := current
		current, err = fan.GetRpm()
		if err != nil {
			return 0, false, err
		}
		window.Append(relativeChange(previous, current))

		if util.GetWindowMax(window) <= threshold {
			return current, true, nil
		}
	}

	return current, false, nil
}

func relativeChange(previous int, current int) float64 {
	if current == 0 {
		if previous == 0 {
			return 0
		}
		return 1
	}
	return float64(util.Abs(current-previous)) / float64(current)
}
