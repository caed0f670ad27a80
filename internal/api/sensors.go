package api

import (
	"net/http"

	"github.com/labstack/echo/v4"
)

func registerSensorEndpoints(rest *echo.Echo, ctrl Controller) {
	group := rest.Group("/sensor")

	group.GET("/", func(c echo.Context) error {
		return c.JSONPretty(http.StatusOK, ctrl.Snapshot().Sensors, indentationChar)
	})
	group.GET("/:"+urlParamId+"/", func(c echo.Context) error {
		id := c.Param(urlParamId)
		for _, sensor := range ctrl.Snapshot().Sensors {
			if sensor.Label == id {
				return c.JSONPretty(http.StatusOK, sensor, indentationChar)
			}
		}
		return returnNotFound(c, id)
	})
}
