package internal

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/labstack/echo-contrib/echoprometheus"
	"github.com/labstack/echo/v4"
	"github.com/markusressel/fancond/internal/api"
	"github.com/markusressel/fancond/internal/configuration"
	"github.com/markusressel/fancond/internal/controller"
	"github.com/markusressel/fancond/internal/devices"
	"github.com/markusressel/fancond/internal/hwmon"
	"github.com/markusressel/fancond/internal/influx"
	"github.com/markusressel/fancond/internal/mqtt"
	"github.com/markusressel/fancond/internal/persistence"
	"github.com/markusressel/fancond/internal/statistics"
	"github.com/markusressel/fancond/internal/ui"
	"github.com/oklog/run"
)

const shutdownTimeout = 5 * time.Second

// HwMonEnumerator discovers fans and sensors via lm-sensors
type HwMonEnumerator struct{}

func (HwMonEnumerator) Enumerate() ([]configuration.FanConfig, []configuration.SensorConfig) {
	return hwmon.Enumerate(hwmon.GetChips())
}

// CreateController sets up a controller for the current configuration, exiting on errors
func CreateController(dryRun bool) *controller.Controller {
	if !dryRun && os.Geteuid() != 0 {
		ui.Fatal("Fan control requires root permissions to be able to modify fan speeds, please run fancond as root")
	}

	config := configuration.CurrentConfig

	pers := persistence.NewPersistence(config.DbPath)
	if err := pers.Init(); err != nil {
		ui.Fatal("Unable to initialize calibration database: %v", err)
	}
	store := devices.NewStore(config.DevicesPath)

	options := controller.OptionsFrom(config)
	options.DryRun = dryRun
	return controller.New(store, pers, HwMonEnumerator{}, options)
}

func RunDaemon(dryRun bool) {
	config := configuration.CurrentConfig
	ctrl := CreateController(dryRun)

	registry := statistics.NewRegistry(ctrl)

	ctx, cancel := context.WithCancel(context.Background())

	var g run.Group
	{
		// === fan controller
		g.Add(func() error {
			return ctrl.Run(ctx)
		}, func(err error) {
			cancel()
		})
	}
	if config.Statistics.Enabled {
		// === Prometheus Exporter
		server := api.CreateWebserver()
		server.GET("/metrics", echoprometheus.NewHandlerWithConfig(echoprometheus.HandlerConfig{Gatherer: registry}))
		addr := fmt.Sprintf(":%d", config.Statistics.Port)
		g.Add(func() error {
			return serve(server, addr, "statistics")
		}, func(err error) {
			stopServer(server, "statistics")
		})
	}
	if config.Api.Enabled {
		// === REST api
		server := api.CreateRestService(ctrl, registry)
		addr := fmt.Sprintf("%s:%d", config.Api.Host, config.Api.Port)
		g.Add(func() error {
			return serve(server, addr, "api")
		}, func(err error) {
			stopServer(server, "api")
		})
	}
	if config.Mqtt.Enabled {
		// === mqtt
		publisher := mqtt.NewPublisher(mqtt.NewClient(config.Mqtt), config.Mqtt)
		g.Add(func() error {
			if err := publisher.Connect(); err != nil {
				return err
			}
			if err := publisher.SubscribeCommands(ctrl); err != nil {
				ui.Warning("Unable to subscribe to mqtt commands: %v", err)
			}
			statusHandle := ctrl.SubscribeStatus(publisher.OnStatus)
			devicesHandle := ctrl.SubscribeDevices(publisher.OnDevices)
			defer ctrl.Unsubscribe(statusHandle)
			defer ctrl.Unsubscribe(devicesHandle)
			return publisher.Start(ctx)
		}, func(err error) {
			cancel()
		})
	}
	if config.InfluxDb.Enabled {
		// === influxdb
		g.Add(func() error {
			writer, err := influx.Connect(config.InfluxDb)
			if err != nil {
				return err
			}
			defer writer.Close()
			handle := ctrl.SubscribeStatus(writer.OnStatus)
			defer ctrl.Unsubscribe(handle)
			<-ctx.Done()
			return nil
		}, func(err error) {
			cancel()
		})
	}
	{
		// === signals
		sig := make(chan os.Signal, 1)
		signal.Notify(sig, os.Interrupt, syscall.SIGTERM, syscall.SIGHUP)

		g.Add(func() error {
			for {
				select {
				case <-ctx.Done():
					return nil
				case s := <-sig:
					if s != syscall.SIGHUP {
						ui.Info("Received %s signal, exiting...", s)
						return nil
					}
					// sent after resuming from sleep, the firmware may have taken over again
					ui.Info("Received SIGHUP signal, reloading...")
					if err := ctrl.Reload(); err != nil {
						ui.Error("Reload failed: %v", err)
					}
					ctrl.Recover()
				}
			}
		}, func(err error) {
			signal.Stop(sig)
			cancel()
		})
	}

	if err := g.Run(); err != nil {
		ui.Error("%v", err)
		os.Exit(1)
	}
	ui.Info("Done.")
}

func serve(server *echo.Echo, addr string, name string) error {
	ui.Info("Starting %s server on %s", name, addr)
	if err := server.Start(addr); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("cannot start %s server: %w", name, err)
	}
	return nil
}

func stopServer(server *echo.Echo, name string) {
	ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := server.Shutdown(ctx); err != nil {
		ui.Warning("Error stopping %s server: %v", name, err)
	} else {
		ui.Info("Stopped %s server", name)
	}
}
