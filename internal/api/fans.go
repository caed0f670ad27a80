package api

import (
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"
)

type TestProgress struct {
	Progress int `json:"progress"`
}

func registerFanEndpoints(rest *echo.Echo, ctrl Controller) {
	group := rest.Group("/fan")

	group.GET("/", func(c echo.Context) error {
		return c.JSONPretty(http.StatusOK, ctrl.Snapshot().Fans, indentationChar)
	})
	group.GET("/:"+urlParamId+"/", func(c echo.Context) error {
		return getFan(c, ctrl)
	})
	group.POST("/:"+urlParamId+"/enable/", func(c echo.Context) error {
		if err := ctrl.Enable(c.Param(urlParamId)); err != nil {
			return returnError(c, err)
		}
		return getFan(c, ctrl)
	})
	group.POST("/:"+urlParamId+"/disable/", func(c echo.Context) error {
		if err := ctrl.Disable(c.Param(urlParamId)); err != nil {
			return returnError(c, err)
		}
		return getFan(c, ctrl)
	})
	group.POST("/:"+urlParamId+"/test/", func(c echo.Context) error {
		return startTest(c, ctrl)
	})
	group.GET("/:"+urlParamId+"/test/", func(c echo.Context) error {
		progress, err := ctrl.TestProgress(c.Param(urlParamId))
		if err != nil {
			return returnNotFound(c, c.Param(urlParamId))
		}
		return c.JSONPretty(http.StatusOK, TestProgress{Progress: progress.Get()}, indentationChar)
	})
}

func getFan(c echo.Context, ctrl Controller) error {
	status, err := ctrl.Status(c.Param(urlParamId))
	if err != nil {
		return returnError(c, err)
	}
	return c.JSONPretty(http.StatusOK, status, indentationChar)
}

// startTest starts or joins the calibration of a fan.
// Query parameters: forced restarts a running test, blocking waits for the result.
func startTest(c echo.Context, ctrl Controller) error {
	forced, _ := strconv.ParseBool(c.QueryParam("forced"))
	blocking, _ := strconv.ParseBool(c.QueryParam("blocking"))

	progress, err := ctrl.Test(c.Param(urlParamId), forced, blocking, nil)
	if err != nil {
		return returnError(c, err)
	}
	status := http.StatusAccepted
	if blocking {
		status = http.StatusOK
	}
	return c.JSONPretty(status, TestProgress{Progress: progress.Get()}, indentationChar)
}
