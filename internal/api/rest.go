package api

import (
	"github.com/labstack/echo-contrib/echoprometheus"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/markusressel/fancond/internal/controller"
	"github.com/markusressel/fancond/internal/curves"
	"github.com/markusressel/fancond/internal/devices"
	"github.com/markusressel/fancond/internal/observable"
	"github.com/prometheus/client_golang/prometheus"
)

const EndpointPathAlive = "/alive/"

// Controller is the part of the fan controller exposed via REST
type Controller interface {
	Snapshot() controller.StatusSnapshot
	Status(label string) (controller.FanStatus, error)
	Curve(label string) (curves.Curve, error)
	Devices() devices.Document

	Enable(label string) error
	Disable(label string) error
	Test(label string, forced bool, blocking bool, progress *observable.Number) (*observable.Number, error)
	TestProgress(label string) (*observable.Number, error)

	Reload() error
	Recover()
}

// CreateRestService creates the REST api for the given controller.
// Request metrics are registered with registerer, if given.
func CreateRestService(ctrl Controller, registerer prometheus.Registerer) *echo.Echo {
	echoRest := CreateWebserver()
	echoRest.Use(middleware.LoggerWithConfig(middleware.LoggerConfig{
		Skipper: func(c echo.Context) bool {
			return c.Path() == EndpointPathAlive
		},
	}))
	if registerer != nil {
		echoRest.Use(echoprometheus.NewMiddlewareWithConfig(echoprometheus.MiddlewareConfig{
			Namespace:  "fancond",
			Subsystem:  "api",
			Registerer: registerer,
		}))
	}

	echoRest.GET(EndpointPathAlive, isAlive)

	registerControllerEndpoints(echoRest, ctrl)
	registerFanEndpoints(echoRest, ctrl)
	registerSensorEndpoints(echoRest, ctrl)
	registerCurveEndpoints(echoRest, ctrl)

	return echoRest
}
