package api

import (
	"net/http"

	"github.com/labstack/echo/v4"
)

func registerControllerEndpoints(rest *echo.Echo, ctrl Controller) {
	rest.GET("/status/", func(c echo.Context) error {
		return c.JSONPretty(http.StatusOK, ctrl.Snapshot(), indentationChar)
	})
	rest.GET("/devices/", func(c echo.Context) error {
		return c.JSONPretty(http.StatusOK, ctrl.Devices(), indentationChar)
	})
	rest.POST("/reload/", func(c echo.Context) error {
		if err := ctrl.Reload(); err != nil {
			return returnError(c, err)
		}
		return c.JSONPretty(http.StatusOK, ctrl.Snapshot(), indentationChar)
	})
	rest.POST("/recover/", func(c echo.Context) error {
		ctrl.Recover()
		return c.NoContent(http.StatusOK)
	})
}
