package api

import (
	"net/http"

	"github.com/labstack/echo/v4"
)

func registerCurveEndpoints(rest *echo.Echo, ctrl Controller) {
	group := rest.Group("/curve")

	group.GET("/:"+urlParamId+"/", func(c echo.Context) error {
		curve, err := ctrl.Curve(c.Param(urlParamId))
		if err != nil {
			return returnError(c, err)
		}
		return c.JSONPretty(http.StatusOK, curve, indentationChar)
	})
}
