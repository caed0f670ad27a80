package api

import (
	"errors"
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/markusressel/fancond/internal/controller"
)

const (
	urlParamId      = "id"
	indentationChar = "  "
)

type (
	Result struct {
		Name    string `json:"name"`
		Message string `json:"message"`
	}
)

func CreateWebserver() *echo.Echo {
	webserver := echo.New()
	webserver.HideBanner = true
	webserver.HidePort = true

	// Root level middleware
	webserver.Pre(middleware.AddTrailingSlash())

	webserver.Use(middleware.Secure())
	webserver.Use(middleware.Recover())

	return webserver
}

// returns an empty "ok" answer
func isAlive(c echo.Context) error {
	return c.NoContent(http.StatusOK)
}

// return a "not found" message
func returnNotFound(c echo.Context, id string) (err error) {
	return c.JSONPretty(http.StatusNotFound, &Result{
		Name:    "Not found",
		Message: "No item with id '" + id + "' found",
	}, indentationChar)
}

// return the error message of an error, with a status code matching its cause
func returnError(c echo.Context, e error) (err error) {
	status := http.StatusInternalServerError
	name := "Unknown Error"
	switch {
	case errors.Is(e, controller.ErrNotFound):
		return returnNotFound(c, c.Param(urlParamId))
	case errors.Is(e, controller.ErrTaskExists):
		status = http.StatusConflict
		name = "Conflict"
	case errors.Is(e, controller.ErrIgnored),
		errors.Is(e, controller.ErrNotCalibrated),
		errors.Is(e, controller.ErrNotConfigured):
		status = http.StatusUnprocessableEntity
		name = "Not possible"
	}
	return c.JSONPretty(status, &Result{
		Name:    name,
		Message: e.Error(),
	}, indentationChar)
}
