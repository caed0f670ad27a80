package controller

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/markusressel/fancond/internal/calibration"
	"github.com/markusressel/fancond/internal/configuration"
	"github.com/markusressel/fancond/internal/devices"
	"github.com/markusressel/fancond/internal/fans"
	"github.com/markusressel/fancond/internal/persistence"
	"github.com/markusressel/fancond/internal/sensors"
	"github.com/markusressel/fancond/internal/testingutils"
	"github.com/stretchr/testify/assert"
)

var testCalibration = configuration.CalibrationConfig{
	MarginPwm:           6,
	StabilisedThreshold: 0.05,
	MaxPolls:            40,
	MaxClaimPolls:       10,
}

func noSleep(ctx context.Context, d time.Duration) error {
	return ctx.Err()
}

// hardware simulates the machine: it enumerates devices and creates drivers for device definitions
type hardware struct {
	fans    map[string]fans.Fan
	sensors map[string]sensors.Sensor

	enumeratedFans    []configuration.FanConfig
	enumeratedSensors []configuration.SensorConfig
}

func newHardware() *hardware {
	return &hardware{
		fans:    map[string]fans.Fan{},
		sensors: map[string]sensors.Sensor{},
	}
}

func (h *hardware) addFan(label string) *testingutils.SimulatedFan {
	fan := testingutils.NewSimulatedFan(label, 60, 40, 2550)
	h.fans[fan.Config.File.Path] = fan
	return fan
}

func (h *hardware) addCoupledFan(label string, key string) *testingutils.SimulatedFan {
	fan := testingutils.NewSimulatedFan(label, 60, 40, 2550)
	h.fans[fan.Config.File.Path] = &testingutils.CoupledSimulatedFan{SimulatedFan: fan, Key: key}
	return fan
}

func (h *hardware) addSensor(label string, value float64) *testingutils.SimulatedSensor {
	sensor := testingutils.NewSimulatedSensor(label, value)
	h.sensors[sensor.Config.File.Path] = sensor
	return sensor
}

func (h *hardware) Enumerate() ([]configuration.FanConfig, []configuration.SensorConfig) {
	return h.enumeratedFans, h.enumeratedSensors
}

func (h *hardware) factory() *devices.Factory {
	return &devices.Factory{
		Fan: func(config configuration.FanConfig) (fans.Fan, error) {
			if config.File != nil {
				if fan, ok := h.fans[config.File.Path]; ok {
					return fan, nil
				}
			}
			return nil, fmt.Errorf("no simulated fan for %s", config.Label)
		},
		Sensor: func(config configuration.SensorConfig) (sensors.Sensor, error) {
			if config.File != nil {
				if sensor, ok := h.sensors[config.File.Path]; ok {
					return sensor, nil
				}
			}
			return nil, fmt.Errorf("no simulated sensor for %s", config.Label)
		},
	}
}

func sensorConfig(label string) configuration.SensorConfig {
	return configuration.SensorConfig{
		Label: label,
		File:  &configuration.FileSensorConfig{Path: "/dev/null/" + label},
	}
}

func calibratedFanConfig(label string, sensor string) configuration.FanConfig {
	return configuration.FanConfig{
		Label:     label,
		Sensor:    sensor,
		TempToRpm: "40: 0, 80: 2550",
		RpmToPwm:  map[int]int{0: 0, 600: 60, 1200: 120, 2550: 255},
		StartPwm:  66,
		File:      &configuration.FileFanConfig{Path: "/dev/null/" + label},
	}
}

func uncalibratedFanConfig(label string, sensor string) configuration.FanConfig {
	config := calibratedFanConfig(label, sensor)
	config.RpmToPwm = nil
	config.StartPwm = 0
	return config
}

func testDocument(fanConfigs []configuration.FanConfig, sensorConfigs []configuration.SensorConfig) devices.Document {
	doc := devices.DefaultDocument()
	doc.Controller.UpdateInterval = 10 * time.Millisecond
	doc.Fans = fanConfigs
	doc.Sensors = sensorConfigs
	return doc
}

func createController(t *testing.T, h *hardware, doc devices.Document) (*Controller, *devices.Store) {
	store := devices.NewStore(filepath.Join(t.TempDir(), "devices.yaml"))
	assert.NoError(t, store.Write(doc))
	c := New(store, nil, h, Options{
		Calibration: testCalibration,
		Sleep:       noSleep,
		Factory:     h.factory(),
	})
	assert.NoError(t, c.Reload())
	return c, store
}

func TestController_Reload_LoadsDocument(t *testing.T) {
	// GIVEN
	h := newHardware()
	h.addFan("fan1")
	h.addSensor("cpu", 50)
	doc := testDocument(
		[]configuration.FanConfig{calibratedFanConfig("fan1", "cpu")},
		[]configuration.SensorConfig{sensorConfig("cpu")},
	)

	// WHEN
	c, _ := createController(t, h, doc)

	// THEN
	snapshot := c.Snapshot()
	assert.Equal(t, "Stopped", snapshot.State)
	assert.Len(t, snapshot.Fans, 1)
	assert.Equal(t, "fan1", snapshot.Fans[0].Label)
	assert.Equal(t, StatusDisabled, snapshot.Fans[0].Status)
	assert.True(t, snapshot.Fans[0].Calibrated)
	assert.Len(t, snapshot.Sensors, 1)
	assert.Equal(t, 10*time.Millisecond, c.Params().UpdateInterval)
}

func TestController_Reload_MergesEnumeratedDevices(t *testing.T) {
	// GIVEN
	h := newHardware()
	h.addFan("fan1")
	h.addFan("fan2")
	h.addSensor("cpu", 50)
	enumerated := uncalibratedFanConfig("fan2", "")
	enumerated.TempToRpm = ""
	h.enumeratedFans = []configuration.FanConfig{enumerated}
	h.enumeratedSensors = []configuration.SensorConfig{sensorConfig("cpu")}
	doc := testDocument([]configuration.FanConfig{calibratedFanConfig("fan1", "cpu")}, nil)

	// WHEN
	c, _ := createController(t, h, doc)

	// THEN
	devicesDoc := c.Devices()
	assert.Len(t, devicesDoc.Fans, 2)
	assert.Len(t, devicesDoc.Sensors, 1)
	_, err := c.Status("fan2")
	assert.NoError(t, err)
}

func TestController_Reload_DryRunIgnoresEnumeratedFans(t *testing.T) {
	// GIVEN
	h := newHardware()
	h.addFan("fan1")
	h.enumeratedFans = []configuration.FanConfig{calibratedFanConfig("fan1", "")}
	store := devices.NewStore(filepath.Join(t.TempDir(), "devices.yaml"))
	c := New(store, nil, h, Options{DryRun: true, Factory: h.factory()})

	// WHEN
	err := c.Reload()

	// THEN
	assert.NoError(t, err)
	status, err := c.Status("fan1")
	assert.NoError(t, err)
	assert.True(t, status.Ignored)
}

func TestController_Enable_Disable(t *testing.T) {
	// GIVEN
	h := newHardware()
	driver := h.addFan("fan1")
	h.addSensor("cpu", 50)
	doc := testDocument(
		[]configuration.FanConfig{calibratedFanConfig("fan1", "cpu")},
		[]configuration.SensorConfig{sensorConfig("cpu")},
	)
	c, _ := createController(t, h, doc)

	// WHEN
	err := c.Enable("fan1")

	// THEN
	assert.NoError(t, err)
	status, _ := c.Status("fan1")
	assert.Equal(t, StatusEnabled, status.Status)
	assert.True(t, driver.Controlled())

	// WHEN
	err = c.Enable("fan1")

	// THEN
	assert.ErrorIs(t, err, ErrTaskExists)

	// WHEN
	err = c.Disable("fan1")

	// THEN
	assert.NoError(t, err)
	status, _ = c.Status("fan1")
	assert.Equal(t, StatusDisabled, status.Status)
	assert.False(t, driver.Controlled())
}

func TestController_Enable_Rejected(t *testing.T) {
	// GIVEN
	h := newHardware()
	h.addFan("ignored")
	h.addFan("uncalibrated")
	h.addFan("unconfigured")
	h.addSensor("cpu", 50)
	ignored := calibratedFanConfig("ignored", "cpu")
	ignored.Ignore = true
	doc := testDocument(
		[]configuration.FanConfig{
			ignored,
			uncalibratedFanConfig("uncalibrated", "cpu"),
			calibratedFanConfig("unconfigured", "missing"),
		},
		[]configuration.SensorConfig{sensorConfig("cpu")},
	)
	c, _ := createController(t, h, doc)

	// WHEN / THEN
	assert.ErrorIs(t, c.Enable("unknown"), ErrNotFound)
	assert.ErrorIs(t, c.Enable("ignored"), ErrIgnored)
	assert.ErrorIs(t, c.Enable("uncalibrated"), ErrNotCalibrated)
	assert.ErrorIs(t, c.Enable("unconfigured"), ErrNotConfigured)
	for _, fan := range c.Snapshot().Fans {
		assert.Equal(t, StatusDisabled, fan.Status)
	}
}

func TestController_Enable_ClaimFails(t *testing.T) {
	// GIVEN
	h := newHardware()
	driver := h.addFan("fan1")
	driver.ControlErr = errors.New("permission denied")
	h.addSensor("cpu", 50)
	doc := testDocument(
		[]configuration.FanConfig{calibratedFanConfig("fan1", "cpu")},
		[]configuration.SensorConfig{sensorConfig("cpu")},
	)
	c, _ := createController(t, h, doc)

	// WHEN
	err := c.Enable("fan1")

	// THEN
	assert.Error(t, err)
	status, _ := c.Status("fan1")
	assert.Equal(t, StatusDisabled, status.Status)
}

func TestController_Enable_Concurrent(t *testing.T) {
	// GIVEN
	h := newHardware()
	h.addFan("fan1")
	h.addSensor("cpu", 50)
	doc := testDocument(
		[]configuration.FanConfig{calibratedFanConfig("fan1", "cpu")},
		[]configuration.SensorConfig{sensorConfig("cpu")},
	)
	c, _ := createController(t, h, doc)

	// WHEN
	var wg sync.WaitGroup
	var mu sync.Mutex
	succeeded := 0
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if err := c.Enable("fan1"); err == nil {
				mu.Lock()
				succeeded++
				mu.Unlock()
			} else {
				assert.ErrorIs(t, err, ErrTaskExists)
			}
		}()
	}
	wg.Wait()

	// THEN
	assert.Equal(t, 1, succeeded)
	assert.Equal(t, 1, c.tasks.Count())
}

func TestController_Enable_CoupledFans(t *testing.T) {
	// GIVEN
	h := newHardware()
	driver1 := h.addFan("fan1")
	driver2 := h.addFan("fan2")
	h.addSensor("cpu", 50)
	fan1 := calibratedFanConfig("fan1", "cpu")
	fan1.CoupledWith = []string{"fan2"}
	doc := testDocument(
		[]configuration.FanConfig{fan1, calibratedFanConfig("fan2", "cpu")},
		[]configuration.SensorConfig{sensorConfig("cpu")},
	)
	c, _ := createController(t, h, doc)

	// WHEN
	err := c.Enable("fan1")

	// THEN
	assert.NoError(t, err)
	status, _ := c.Status("fan2")
	assert.Equal(t, StatusEnabled, status.Status)
	assert.True(t, driver2.Controlled())

	// WHEN
	err = c.Disable("fan2")

	// THEN
	assert.NoError(t, err)
	status, _ = c.Status("fan1")
	assert.Equal(t, StatusDisabled, status.Status)
	assert.False(t, driver1.Controlled())
	assert.False(t, driver2.Controlled())
}

func TestController_Enable_CoupledFans_AllOrNothing(t *testing.T) {
	// GIVEN
	h := newHardware()
	driver1 := h.addCoupledFan("fan1", "dell:hwmon3")
	h.addCoupledFan("fan2", "dell:hwmon3")
	h.addSensor("cpu", 50)
	doc := testDocument(
		[]configuration.FanConfig{calibratedFanConfig("fan1", "cpu"), uncalibratedFanConfig("fan2", "cpu")},
		[]configuration.SensorConfig{sensorConfig("cpu")},
	)
	c, _ := createController(t, h, doc)

	// WHEN
	err := c.Enable("fan1")

	// THEN
	assert.ErrorIs(t, err, ErrNotCalibrated)
	assert.Equal(t, 0, c.tasks.Count())
	assert.False(t, driver1.Controlled())
}

func TestController_Reload_KeepsEnabledFans(t *testing.T) {
	// GIVEN
	h := newHardware()
	h.addFan("fan1")
	driver2 := h.addFan("fan2")
	h.addSensor("cpu", 50)
	doc := testDocument(
		[]configuration.FanConfig{calibratedFanConfig("fan1", "cpu"), calibratedFanConfig("fan2", "cpu")},
		[]configuration.SensorConfig{sensorConfig("cpu")},
	)
	c, store := createController(t, h, doc)
	assert.NoError(t, c.Enable("fan1"))
	assert.NoError(t, c.Enable("fan2"))

	changed := calibratedFanConfig("fan1", "cpu")
	changed.TempToRpm = "30: 600, 70: 2550"
	doc.Fans = []configuration.FanConfig{changed}
	assert.NoError(t, store.Write(doc))

	// WHEN
	err := c.Reload()

	// THEN
	assert.NoError(t, err)
	status, err := c.Status("fan1")
	assert.NoError(t, err)
	assert.Equal(t, StatusEnabled, status.Status)
	assert.Equal(t, "30: 600, 70: 2550", c.Devices().Fans[0].TempToRpm)

	_, err = c.Status("fan2")
	assert.ErrorIs(t, err, ErrNotFound)
	assert.False(t, driver2.Controlled())
}

func TestController_Reload_DisablesFanWithoutSensor(t *testing.T) {
	// GIVEN
	h := newHardware()
	driver := h.addFan("fan1")
	h.addSensor("cpu", 50)
	doc := testDocument(
		[]configuration.FanConfig{calibratedFanConfig("fan1", "cpu")},
		[]configuration.SensorConfig{sensorConfig("cpu")},
	)
	c, store := createController(t, h, doc)
	assert.NoError(t, c.Enable("fan1"))

	doc.Sensors = nil
	assert.NoError(t, store.Write(doc))

	// WHEN
	err := c.Reload()

	// THEN
	assert.NoError(t, err)
	status, err := c.Status("fan1")
	assert.NoError(t, err)
	assert.Equal(t, StatusDisabled, status.Status)
	assert.False(t, driver.Controlled())
	assert.Equal(t, 0, c.tasks.Count())
}

func TestController_Reload_RetriesUnreadableDocument(t *testing.T) {
	// GIVEN
	h := newHardware()
	h.addFan("fan1")
	h.addSensor("cpu", 50)
	doc := testDocument(
		[]configuration.FanConfig{calibratedFanConfig("fan1", "cpu")},
		[]configuration.SensorConfig{sensorConfig("cpu")},
	)
	c, store := createController(t, h, doc)
	stamp := c.documentStamp

	assert.NoError(t, os.WriteFile(store.Path, []byte("fans: [this is: not valid"), 0644))
	later := time.Now().Add(time.Minute)
	assert.NoError(t, os.Chtimes(store.Path, later, later))

	// WHEN
	err := c.Reload()

	// THEN
	assert.NoError(t, err)
	assert.Equal(t, stamp, c.documentStamp)
	_, err = c.Status("fan1")
	assert.NoError(t, err)

	// WHEN
	doc.Fans = append(doc.Fans, calibratedFanConfig("fan2", "cpu"))
	h.addFan("fan2")
	assert.NoError(t, store.Write(doc))
	assert.NoError(t, os.Chtimes(store.Path, later, later))
	c.checkDocument()

	// THEN
	assert.Equal(t, later.Unix(), c.documentStamp.Unix())
	_, err = c.Status("fan2")
	assert.NoError(t, err)
}

func TestController_Reload_RestoresCalibration(t *testing.T) {
	// GIVEN
	h := newHardware()
	h.addFan("fan1")
	h.addSensor("cpu", 50)
	doc := testDocument(
		[]configuration.FanConfig{uncalibratedFanConfig("fan1", "cpu")},
		[]configuration.SensorConfig{sensorConfig("cpu")},
	)
	dir := t.TempDir()
	store := devices.NewStore(filepath.Join(dir, "devices.yaml"))
	assert.NoError(t, store.Write(doc))
	p := persistence.NewPersistence(filepath.Join(dir, "fancond.db"))
	assert.NoError(t, p.Init())
	assert.NoError(t, p.SaveCalibration(persistence.CalibrationRecord{
		HwId:     "sim:fan1",
		Label:    "fan1",
		RpmToPwm: map[int]int{0: 0, 2550: 255},
		StartPwm: 70,
	}))
	c := New(store, p, h, Options{Factory: h.factory()})

	// WHEN
	err := c.Reload()

	// THEN
	assert.NoError(t, err)
	status, _ := c.Status("fan1")
	assert.True(t, status.Calibrated)
	assert.Equal(t, 70, c.Devices().Fans[0].StartPwm)
}

func TestController_CheckDocument_ReloadsOnlyOnChange(t *testing.T) {
	// GIVEN
	h := newHardware()
	h.addFan("fan1")
	h.addFan("fan2")
	h.addSensor("cpu", 50)
	doc := testDocument(
		[]configuration.FanConfig{calibratedFanConfig("fan1", "cpu")},
		[]configuration.SensorConfig{sensorConfig("cpu")},
	)
	c, store := createController(t, h, doc)
	reloads := 0
	c.SubscribeDevices(func(devices.Document) {
		reloads++
	})

	// WHEN
	c.checkDocument()

	// THEN
	assert.Equal(t, 0, reloads)

	// WHEN
	doc.Fans = append(doc.Fans, calibratedFanConfig("fan2", "cpu"))
	assert.NoError(t, store.Write(doc))
	later := time.Now().Add(time.Minute)
	assert.NoError(t, os.Chtimes(store.Path, later, later))
	c.checkDocument()

	// THEN
	assert.Equal(t, 1, reloads)
	_, err := c.Status("fan2")
	assert.NoError(t, err)

	// WHEN
	c.checkDocument()

	// THEN
	assert.Equal(t, 1, reloads)
}

func TestController_Test_CalibratesAndEnables(t *testing.T) {
	// GIVEN
	h := newHardware()
	h.addFan("fan1")
	h.addSensor("cpu", 50)
	doc := testDocument(
		[]configuration.FanConfig{uncalibratedFanConfig("fan1", "cpu")},
		[]configuration.SensorConfig{sensorConfig("cpu")},
	)
	c, store := createController(t, h, doc)

	// WHEN
	progress, err := c.Test("fan1", false, true, nil)

	// THEN
	assert.NoError(t, err)
	assert.Equal(t, 100, progress.Get())
	status, _ := c.Status("fan1")
	assert.True(t, status.Calibrated)
	assert.Equal(t, StatusEnabled, status.Status)

	stored, err := store.Read()
	assert.NoError(t, err)
	assert.Equal(t, 66, stored.Fans[0].StartPwm)
	assert.NotEmpty(t, stored.Fans[0].RpmToPwm)
}

func TestController_Test_Failure(t *testing.T) {
	// GIVEN
	h := newHardware()
	driver := h.addFan("fan1")
	driver.ControlErr = errors.New("permission denied")
	h.addSensor("cpu", 50)
	doc := testDocument(
		[]configuration.FanConfig{uncalibratedFanConfig("fan1", "cpu")},
		[]configuration.SensorConfig{sensorConfig("cpu")},
	)
	c, _ := createController(t, h, doc)

	// WHEN
	progress, err := c.Test("fan1", false, true, nil)

	// THEN
	assert.ErrorIs(t, err, calibration.ErrClaimFailed)
	assert.Equal(t, calibration.ProgressFailed, progress.Get())
	status, _ := c.Status("fan1")
	assert.Equal(t, StatusDisabled, status.Status)
	assert.False(t, status.Calibrated)
}

func gatedSleep(gate <-chan struct{}) calibration.Sleeper {
	return func(ctx context.Context, d time.Duration) error {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-gate:
			return nil
		}
	}
}

func TestController_Test_JoinsRunningTest(t *testing.T) {
	// GIVEN
	h := newHardware()
	h.addFan("fan1")
	h.addSensor("cpu", 50)
	doc := testDocument(
		[]configuration.FanConfig{uncalibratedFanConfig("fan1", "cpu")},
		[]configuration.SensorConfig{sensorConfig("cpu")},
	)
	c, _ := createController(t, h, doc)
	gate := make(chan struct{})
	c.options.Sleep = gatedSleep(gate)

	// WHEN
	first, err := c.Test("fan1", false, false, nil)
	assert.NoError(t, err)
	second, err := c.Test("fan1", false, false, nil)
	assert.NoError(t, err)

	// THEN
	assert.Same(t, first, second)
	status, _ := c.Status("fan1")
	assert.Equal(t, StatusTesting, status.Status)

	// WHEN
	close(gate)
	_, err = c.Test("fan1", false, true, nil)

	// THEN
	assert.NoError(t, err)
	status, _ = c.Status("fan1")
	assert.Equal(t, StatusEnabled, status.Status)
}

func TestController_Test_ForcedRestartKeepsProgress(t *testing.T) {
	// GIVEN
	h := newHardware()
	h.addFan("fan1")
	h.addSensor("cpu", 50)
	doc := testDocument(
		[]configuration.FanConfig{uncalibratedFanConfig("fan1", "cpu")},
		[]configuration.SensorConfig{sensorConfig("cpu")},
	)
	c, _ := createController(t, h, doc)
	gate := make(chan struct{})
	c.options.Sleep = gatedSleep(gate)
	first, err := c.Test("fan1", false, false, nil)
	assert.NoError(t, err)

	// WHEN
	second, err := c.Test("fan1", true, false, nil)

	// THEN
	assert.NoError(t, err)
	assert.Same(t, first, second)
	assert.Equal(t, 1, c.tasks.Count())

	close(gate)
	_, err = c.Test("fan1", false, true, nil)
	assert.NoError(t, err)
}

func TestController_Test_WaitFollowsForcedRestart(t *testing.T) {
	// GIVEN
	h := newHardware()
	h.addFan("fan1")
	h.addSensor("cpu", 50)
	doc := testDocument(
		[]configuration.FanConfig{uncalibratedFanConfig("fan1", "cpu")},
		[]configuration.SensorConfig{sensorConfig("cpu")},
	)
	c, _ := createController(t, h, doc)
	gate := make(chan struct{})
	c.options.Sleep = gatedSleep(gate)
	_, err := c.Test("fan1", false, false, nil)
	assert.NoError(t, err)
	first, _ := c.tasks.Get(c.devices.Fans["fan1"].GetHwId())
	result := make(chan error, 1)
	go func() {
		result <- first.Wait()
	}()

	// WHEN
	_, err = c.Test("fan1", true, false, nil)
	assert.NoError(t, err)
	close(gate)

	// THEN
	assert.NoError(t, <-result)
	status, _ := c.Status("fan1")
	assert.Equal(t, StatusEnabled, status.Status)
	assert.True(t, status.Calibrated)
}

func TestController_Reload_ResumesTest(t *testing.T) {
	// GIVEN
	h := newHardware()
	h.addFan("fan1")
	h.addSensor("cpu", 50)
	doc := testDocument(
		[]configuration.FanConfig{uncalibratedFanConfig("fan1", "cpu")},
		[]configuration.SensorConfig{sensorConfig("cpu")},
	)
	c, store := createController(t, h, doc)
	gate := make(chan struct{})
	c.options.Sleep = gatedSleep(gate)
	progress, err := c.Test("fan1", false, false, nil)
	assert.NoError(t, err)
	first, _ := c.tasks.Get(c.devices.Fans["fan1"].GetHwId())
	result := make(chan error, 1)
	go func() {
		result <- first.Wait()
	}()

	changed := uncalibratedFanConfig("fan1", "cpu")
	changed.TempToRpm = "30: 600, 70: 2550"
	doc.Fans = []configuration.FanConfig{changed}
	assert.NoError(t, store.Write(doc))

	// WHEN
	err = c.Reload()

	// THEN
	assert.NoError(t, err)
	status, _ := c.Status("fan1")
	assert.Equal(t, StatusTesting, status.Status)
	assert.Equal(t, 1, c.tasks.Count())
	resumed, err := c.TestProgress("fan1")
	assert.NoError(t, err)
	assert.Same(t, progress, resumed)

	// WHEN
	close(gate)

	// THEN
	assert.NoError(t, <-result)
	assert.Equal(t, 100, progress.Get())
	status, _ = c.Status("fan1")
	assert.Equal(t, StatusEnabled, status.Status)
	assert.Equal(t, "30: 600, 70: 2550", c.devices.Fans["fan1"].Config.TempToRpm)
}

func TestController_Disable_CancelsTest(t *testing.T) {
	// GIVEN
	h := newHardware()
	driver := h.addFan("fan1")
	h.addSensor("cpu", 50)
	doc := testDocument(
		[]configuration.FanConfig{uncalibratedFanConfig("fan1", "cpu")},
		[]configuration.SensorConfig{sensorConfig("cpu")},
	)
	c, _ := createController(t, h, doc)
	gate := make(chan struct{})
	defer close(gate)
	c.options.Sleep = gatedSleep(gate)
	_, err := c.Test("fan1", false, false, nil)
	assert.NoError(t, err)
	task, _ := c.tasks.Get("sim:fan1")

	// WHEN
	err = c.Disable("fan1")

	// THEN
	assert.NoError(t, err)
	assert.ErrorIs(t, task.Wait(), context.Canceled)
	status, _ := c.Status("fan1")
	assert.Equal(t, StatusDisabled, status.Status)
	assert.False(t, status.Calibrated)
	assert.False(t, driver.Controlled())
}

func TestController_Step(t *testing.T) {
	// GIVEN
	h := newHardware()
	driver := h.addFan("fan1")
	h.addSensor("cpu", 60)
	doc := testDocument(
		[]configuration.FanConfig{calibratedFanConfig("fan1", "cpu")},
		[]configuration.SensorConfig{sensorConfig("cpu")},
	)
	c, _ := createController(t, h, doc)
	assert.NoError(t, c.Enable("fan1"))
	fan := c.devices.Fans["fan1"]
	_, err := fan.Sensor().Update(1)
	assert.NoError(t, err)
	task, _ := c.tasks.Get(fan.GetHwId())

	// WHEN
	c.step(task, c.Params())

	// THEN
	telemetry := fan.Telemetry()
	assert.Equal(t, 60.0, telemetry.Temp)
	assert.Equal(t, 1275, telemetry.TargetRpm)
	assert.Equal(t, 120, telemetry.Pwm)
	pwm, _ := driver.GetPwm()
	assert.Equal(t, 120, pwm)
	assert.False(t, telemetry.UpdatedAt.IsZero())
}

func TestController_Step_Cancelled(t *testing.T) {
	// GIVEN
	h := newHardware()
	driver := h.addFan("fan1")
	h.addSensor("cpu", 60)
	doc := testDocument(
		[]configuration.FanConfig{calibratedFanConfig("fan1", "cpu")},
		[]configuration.SensorConfig{sensorConfig("cpu")},
	)
	c, _ := createController(t, h, doc)
	assert.NoError(t, c.Enable("fan1"))
	fan := c.devices.Fans["fan1"]
	_, _ = fan.Sensor().Update(1)
	task, _ := c.tasks.Get(fan.GetHwId())
	assert.NoError(t, c.Disable("fan1"))

	// WHEN
	c.step(task, c.Params())

	// THEN
	assert.Empty(t, driver.PwmWrites())
}

func TestController_Step_RecoversControl(t *testing.T) {
	// GIVEN
	h := newHardware()
	driver := h.addFan("fan1")
	h.addSensor("cpu", 60)
	doc := testDocument(
		[]configuration.FanConfig{calibratedFanConfig("fan1", "cpu")},
		[]configuration.SensorConfig{sensorConfig("cpu")},
	)
	c, _ := createController(t, h, doc)
	assert.NoError(t, c.Enable("fan1"))
	fan := c.devices.Fans["fan1"]
	_, _ = fan.Sensor().Update(1)
	task, _ := c.tasks.Get(fan.GetHwId())
	driver.SetLoseControl(true)

	// WHEN
	c.step(task, c.Params())

	// THEN
	assert.Len(t, driver.PwmWrites(), 1+maxRecoverAttempts)
	assert.Equal(t, 1+maxRecoverAttempts, driver.EnableCount())
	statistics := fan.Statistics()
	assert.Equal(t, 1, statistics.UnexpectedPwmValueCount)
	assert.Equal(t, 1, statistics.LostControlCount)
}

func TestController_Recover(t *testing.T) {
	// GIVEN
	h := newHardware()
	driver := h.addFan("fan1")
	h.addSensor("cpu", 60)
	doc := testDocument(
		[]configuration.FanConfig{calibratedFanConfig("fan1", "cpu")},
		[]configuration.SensorConfig{sensorConfig("cpu")},
	)
	c, _ := createController(t, h, doc)
	assert.NoError(t, c.Enable("fan1"))
	driver.ForcePwm(200)

	// WHEN
	c.Recover()

	// THEN
	pwm, _ := driver.GetPwm()
	assert.Equal(t, 66, pwm)
}

func TestController_Run(t *testing.T) {
	// GIVEN
	h := newHardware()
	driver := h.addFan("fan1")
	h.addSensor("cpu", 60)
	doc := testDocument(
		[]configuration.FanConfig{calibratedFanConfig("fan1", "cpu")},
		[]configuration.SensorConfig{sensorConfig("cpu")},
	)
	c, _ := createController(t, h, doc)
	var states []string
	var mu sync.Mutex
	c.SubscribeStatus(func(snapshot StatusSnapshot) {
		mu.Lock()
		defer mu.Unlock()
		states = append(states, snapshot.State)
	})
	ctx, cancel := context.WithCancel(context.Background())
	result := make(chan error)

	// WHEN
	go func() {
		result <- c.Run(ctx)
	}()

	// THEN
	assert.Eventually(t, func() bool {
		return !c.devices.Fans["fan1"].Telemetry().UpdatedAt.IsZero()
	}, 2*time.Second, 10*time.Millisecond)
	assert.Equal(t, StateRunning, c.State())
	assert.True(t, driver.Controlled())

	// WHEN
	cancel()

	// THEN
	assert.NoError(t, <-result)
	assert.Equal(t, StateStopped, c.State())
	assert.False(t, driver.Controlled())
	mu.Lock()
	defer mu.Unlock()
	assert.Contains(t, states, "Running")
}

func TestController_Unsubscribe(t *testing.T) {
	// GIVEN
	c := New(devices.NewStore(filepath.Join(t.TempDir(), "devices.yaml")), nil, nil, Options{})
	calls := 0
	handle := c.SubscribeStatus(func(StatusSnapshot) {
		calls++
	})

	// WHEN
	removed := c.Unsubscribe(handle)
	c.notifyStatus()

	// THEN
	assert.True(t, removed)
	assert.Equal(t, 0, calls)
}

func TestPartition(t *testing.T) {
	// GIVEN
	items := []int{1, 2, 3, 4, 5}

	// WHEN
	single := partition(items, 1)
	many := partition(items, 100)

	// THEN
	assert.Equal(t, [][]int{{1, 2, 3, 4, 5}}, single)
	assert.LessOrEqual(t, len(many), len(items))
	total := 0
	for _, slice := range many {
		assert.NotEmpty(t, slice)
		total += len(slice)
	}
	assert.Equal(t, len(items), total)
	assert.Nil(t, partition([]int{}, 4))
}

func TestWakeup_Next(t *testing.T) {
	// GIVEN
	base := time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC)
	wake := newWakeup(10*time.Millisecond, base)

	// WHEN
	first := wake.Next(time.Time{}, base)
	shared := wake.Next(time.Time{}, base)
	second := wake.Next(first, base)
	skipped := wake.Next(second, base.Add(35*time.Millisecond))

	// THEN
	assert.Equal(t, base, first)
	assert.Equal(t, first, shared)
	assert.Equal(t, base.Add(10*time.Millisecond), second)
	assert.Equal(t, base.Add(40*time.Millisecond), skipped)
}

func TestSensorLead(t *testing.T) {
	assert.Equal(t, 25*time.Millisecond, sensorLead(100*time.Millisecond))
	assert.Equal(t, 100*time.Millisecond, sensorLead(2*time.Second))
}
