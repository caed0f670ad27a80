package controller

import (
	"context"
	"errors"
	"reflect"
	"sync"
	"time"

	"github.com/markusressel/fancond/internal/calibration"
	"github.com/markusressel/fancond/internal/configuration"
	"github.com/markusressel/fancond/internal/devices"
	"github.com/markusressel/fancond/internal/observable"
	"github.com/markusressel/fancond/internal/persistence"
	"github.com/markusressel/fancond/internal/reconcile"
	"github.com/markusressel/fancond/internal/ui"
	cmap "github.com/orcaman/concurrent-map/v2"
)

type State int

const (
	// StateDeferredStart means worker loops exist but wait for the release barrier
	StateDeferredStart State = iota
	StateRunning
	StateReloading
	StateStopped
)

func (s State) String() string {
	switch s {
	case StateDeferredStart:
		return "DeferredStart"
	case StateRunning:
		return "Running"
	case StateReloading:
		return "Reloading"
	default:
		return "Stopped"
	}
}

var (
	ErrNotFound      = errors.New("fan not found")
	ErrTaskExists    = errors.New("fan is already enabled or being tested")
	ErrIgnored       = errors.New("fan is ignored")
	ErrNotCalibrated = errors.New("fan is not calibrated")
	ErrNotConfigured = errors.New("fan has no usable curve or sensor")
)

// Enumerator discovers the fans and sensors present on this machine
type Enumerator interface {
	Enumerate() ([]configuration.FanConfig, []configuration.SensorConfig)
}

type Options struct {
	// Threads limits the number of worker loops per device kind, 0 means one per CPU
	Threads     int
	TestRetries int
	PwmSetDelay time.Duration
	Calibration configuration.CalibrationConfig
	// DryRun marks every enumerated fan as ignored
	DryRun bool
	// Sleep replaces the sleep between calibration polls
	Sleep calibration.Sleeper
	// Factory creates the drivers of all devices, defaults to real hardware
	Factory *devices.Factory
}

func OptionsFrom(config configuration.Configuration) Options {
	return Options{
		Threads:     config.Threads,
		TestRetries: config.TestRetries,
		PwmSetDelay: config.PwmSetDelay,
		Calibration: config.Calibration,
	}
}

// Controller owns the device set and runs a Task for every fan that is enabled or being tested
type Controller struct {
	// mu serializes all operations that change the device set or the task map
	mu sync.Mutex

	options     Options
	store       *devices.Store
	persistence persistence.Persistence
	enumerator  Enumerator

	devices *devices.Devices
	params  configuration.ControllerConfig
	groups  map[string][]string
	// tasks are keyed by the hardware id of their fan
	tasks cmap.ConcurrentMap[string, *Task]

	state         State
	ctx           context.Context
	release       chan struct{}
	released      bool
	cancelWorkers context.CancelFunc
	workers       sync.WaitGroup

	// documentStamp is the modification time of the document when it was last read or written
	documentStamp time.Time

	statusObservers *observable.Registry[StatusSnapshot]
	deviceObservers *observable.Registry[devices.Document]
}

func New(store *devices.Store, p persistence.Persistence, enumerator Enumerator, options Options) *Controller {
	if options.Factory == nil {
		options.Factory = &devices.DefaultFactory
	}
	return &Controller{
		options:         options,
		store:           store,
		persistence:     p,
		enumerator:      enumerator,
		devices:         devices.New(),
		params:          configuration.DefaultControllerConfig(),
		groups:          map[string][]string{},
		tasks:           cmap.New[*Task](),
		state:           StateStopped,
		ctx:             context.Background(),
		statusObservers: observable.NewRegistry[StatusSnapshot](),
		deviceObservers: observable.NewRegistry[devices.Document](),
	}
}

// Run loads the device set, enables all fans and keeps controlling them until ctx is cancelled.
// On return, control of every fan has been released.
func (c *Controller) Run(ctx context.Context) error {
	c.mu.Lock()
	c.ctx = ctx
	c.state = StateDeferredStart
	err := c.reloadLocked()
	c.mu.Unlock()
	if err != nil {
		c.shutdown()
		return err
	}

	c.EnableAll()
	c.Release()

	for {
		timer := time.NewTimer(c.Params().UpdateInterval)
		select {
		case <-ctx.Done():
			timer.Stop()
			c.shutdown()
			return nil
		case <-timer.C:
			c.checkDocument()
			c.notifyStatus()
		}
	}
}

func (c *Controller) shutdown() {
	c.DisableAll()

	c.mu.Lock()
	defer c.mu.Unlock()
	c.stopWorkersLocked()
	c.state = StateStopped
	ui.Info("Controller stopped")
}

// Release lets worker loops waiting in DeferredStart begin their work
func (c *Controller) Release() {
	defer c.notifyStatus()
	c.mu.Lock()
	defer c.mu.Unlock()
	c.releaseLocked()
}

func (c *Controller) releaseLocked() {
	if c.state != StateDeferredStart || c.release == nil {
		return
	}
	close(c.release)
	c.released = true
	c.state = StateRunning
}

func (c *Controller) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// Params returns the currently active tunables
func (c *Controller) Params() configuration.ControllerConfig {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.params
}

// checkDocument reloads the device set if the document was modified by someone else
func (c *Controller) checkDocument() {
	modTime, err := c.store.ModTime()
	if err != nil {
		return
	}
	c.mu.Lock()
	changed := modTime.After(c.documentStamp)
	c.mu.Unlock()
	if !changed {
		return
	}

	ui.Info("Device set document changed, reloading...")
	if err = c.Reload(); err != nil {
		ui.Error("Reload failed: %v", err)
	}
}

// Reload enumerates the hardware, merges it with the device set document
// and publishes the result. Fans under control keep being controlled.
func (c *Controller) Reload() error {
	defer c.notifyStatus()
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.reloadLocked()
}

func (c *Controller) reloadLocked() error {
	restart := c.state == StateRunning || c.state == StateDeferredStart
	if restart {
		c.state = StateReloading
		c.stopWorkersLocked()
	}

	var enumeratedFans []*devices.Fan
	var enumeratedSensors []*devices.Sensor
	if c.enumerator != nil {
		fanConfigs, sensorConfigs := c.enumerator.Enumerate()
		for _, config := range fanConfigs {
			config.Ignore = config.Ignore || c.options.DryRun
			fan, err := c.options.Factory.NewFan(config)
			if err != nil {
				ui.Warning("Skipping enumerated fan %s: %v", config.Label, err)
				continue
			}
			enumeratedFans = append(enumeratedFans, fan)
		}
		for _, config := range sensorConfigs {
			sensor, err := c.options.Factory.NewSensor(config)
			if err != nil {
				ui.Warning("Skipping enumerated sensor %s: %v", config.Label, err)
				continue
			}
			enumeratedSensors = append(enumeratedSensors, sensor)
		}
	}

	doc, err := c.store.Read()
	if err != nil {
		// the stamp is kept, so the watcher retries until the document can be read
		ui.Error("Unable to read device set document %s: %v", c.store.Path, err)
		doc = c.devices.ToDocument(c.params)
	} else if modTime, err := c.store.ModTime(); err == nil {
		c.documentStamp = modTime
	}
	c.params = doc.Controller.Sanitized()
	documentFans, documentSensors := c.options.Factory.FromDocument(doc)

	c.restoreCalibrations(enumeratedFans)
	c.restoreCalibrations(documentFans)

	c.mergeSensors(enumeratedSensors, false)
	c.mergeSensors(documentSensors, true)
	var reenable []*Task
	reenable = append(reenable, c.mergeFans(enumeratedFans, false)...)
	reenable = append(reenable, c.mergeFans(documentFans, true)...)

	for _, label := range reconcile.Stale(c.devices.Sensors, enumeratedSensors, documentSensors) {
		ui.Info("Removing sensor %s", label)
		delete(c.devices.Sensors, label)
	}
	for _, label := range reconcile.Stale(c.devices.Fans, enumeratedFans, documentFans) {
		ui.Info("Removing fan %s", label)
		c.disableFanLocked(c.devices.Fans[label])
		delete(c.devices.Fans, label)
	}

	c.devices.Bind()
	c.groups = c.devices.CouplingGroups()
	c.disableUnconfiguredLocked()

	for _, previous := range reenable {
		fan, ok := c.devices.FanByHwId(previous.HwId)
		if !ok {
			continue
		}
		switch previous.Status {
		case StatusEnabled:
			if err := c.enableLocked(fan.Label()); err != nil && !errors.Is(err, ErrTaskExists) {
				ui.Warning("Unable to re-enable fan %s: %v", fan.Label(), err)
			}
		case StatusTesting:
			c.startTestLocked(fan, previous.Progress, previous)
		}
	}

	if restart {
		c.startWorkersLocked()
		c.state = StateDeferredStart
		// only the first start waits for an explicit release
		if c.released {
			c.releaseLocked()
		}
	}

	c.notifyDevicesLocked()
	return nil
}

// disableUnconfiguredLocked hands control back for enabled fans that lost their sensor or curve
func (c *Controller) disableUnconfiguredLocked() {
	for _, task := range c.tasks.Items() {
		if task.Status != StatusEnabled || task.fan.Configured() {
			continue
		}
		ui.Warning("Disabling fan %s, it has no sensor or curve anymore", task.fan.Label())
		c.disableFanLocked(task.fan)
	}
}

func sameSensorDefinition(old *devices.Sensor, new *devices.Sensor) bool {
	return reflect.DeepEqual(old.Config, new.Config)
}

func sameFanDefinition(old *devices.Fan, new *devices.Fan) bool {
	return reflect.DeepEqual(old.Config, new.Config)
}

func (c *Controller) mergeSensors(incoming []*devices.Sensor, replaceOnMatch bool) {
	plan := reconcile.Merge(c.devices.Sensors, incoming, replaceOnMatch, sameSensorDefinition)
	for _, duplicate := range plan.Duplicates {
		ui.Warning("Ignoring sensor %s, its hardware is already used by another sensor", duplicate.Label())
	}
	for _, replacement := range plan.Replaces {
		if _, exists := c.devices.Sensors[replacement.New.Label()]; exists && replacement.New.Label() != replacement.OldKey {
			ui.Warning("Ignoring sensor %s, its label is already in use", replacement.New.Label())
			continue
		}
		delete(c.devices.Sensors, replacement.OldKey)
		c.devices.Sensors[replacement.New.Label()] = replacement.New
	}
	for _, sensor := range plan.Inserts {
		if _, exists := c.devices.Sensors[sensor.Label()]; exists {
			ui.Warning("Ignoring sensor %s, its label is already in use", sensor.Label())
			continue
		}
		c.devices.Sensors[sensor.Label()] = sensor
	}
}

// mergeFans merges the incoming fans into the device set.
// Returns the tasks of replaced fans, which have to be restarted for the new fan.
func (c *Controller) mergeFans(incoming []*devices.Fan, replaceOnMatch bool) (restart []*Task) {
	plan := reconcile.Merge(c.devices.Fans, incoming, replaceOnMatch, sameFanDefinition)
	for _, duplicate := range plan.Duplicates {
		ui.Warning("Ignoring fan %s, its hardware is already used by another fan", duplicate.Label())
	}
	for _, replacement := range plan.Replaces {
		if _, exists := c.devices.Fans[replacement.New.Label()]; exists && replacement.New.Label() != replacement.OldKey {
			ui.Warning("Ignoring fan %s, its label is already in use", replacement.New.Label())
			continue
		}
		old := c.devices.Fans[replacement.OldKey]
		if task, ok := c.tasks.Get(old.GetHwId()); ok {
			restart = append(restart, task)
			c.disableFanLocked(old)
		}
		delete(c.devices.Fans, replacement.OldKey)
		c.devices.Fans[replacement.New.Label()] = replacement.New
	}
	for _, fan := range plan.Inserts {
		if _, exists := c.devices.Fans[fan.Label()]; exists {
			ui.Warning("Ignoring fan %s, its label is already in use", fan.Label())
			continue
		}
		c.devices.Fans[fan.Label()] = fan
	}
	return restart
}

// restoreCalibrations fills in stored calibration data for fans without a calibration table
func (c *Controller) restoreCalibrations(fanList []*devices.Fan) {
	if c.persistence == nil {
		return
	}
	for _, fan := range fanList {
		if len(fan.Config.RpmToPwm) > 0 {
			continue
		}
		record, err := c.persistence.LoadCalibration(fan.GetHwId())
		if err != nil {
			if !errors.Is(err, persistence.ErrNotFound) {
				ui.Warning("Unable to load calibration of fan %s: %v", fan.Label(), err)
			}
			continue
		}
		ui.Debug("Restored calibration of fan %s from %s", fan.Label(), record.Timestamp)
		fan.ApplyCalibration(record.StartPwm, record.RpmToPwm)
	}
}

// writeDocumentLocked persists the current device set
func (c *Controller) writeDocumentLocked() {
	if c.store == nil {
		return
	}
	if err := c.store.Write(c.devices.ToDocument(c.params)); err != nil {
		ui.Error("Unable to write device set document %s: %v", c.store.Path, err)
		return
	}
	if modTime, err := c.store.ModTime(); err == nil {
		c.documentStamp = modTime
	}
}
