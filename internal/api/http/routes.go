package httpapi

import (
	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"

	"github.com/i474232898/local-forecast/internal/forecast"
	"github.com/i474232898/local-forecast/internal/location"
	"github.com/i474232898/local-forecast/internal/observable"
)

var validate = validator.New()

// Forecaster is the orchestrator surface the API needs.
type Forecaster interface {
	State() *observable.Value[forecast.PublishedState]
	Phase() forecast.Phase
	Start() (forecast.Run, bool)
	Refresh() (forecast.Run, bool)
}

// Permissions is the operator side of the location platform.
type Permissions interface {
	AuthorizationState() location.AuthorizationState
	Prompting() bool
	SetAuthorization(state location.AuthorizationState)
}

// RegisterRoutes wires the HTTP handlers into the Fiber app.
func RegisterRoutes(app *fiber.App, forecaster Forecaster, permissions Permissions) {
	v1 := app.Group("/api/v1")

	v1.Get("/forecast", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{
			"phase": forecaster.Phase(),
			"state": forecaster.State().Get(),
		})
	})

	v1.Post("/forecast/refresh", func(c *fiber.Ctx) error {
		var (
			run forecast.Run
			ok  bool
		)
		if c.QueryBool("force") {
			run, ok = forecaster.Refresh()
			if !ok {
				return fiber.NewError(fiber.StatusServiceUnavailable, "forecast pipeline is shut down")
			}
		} else {
			run, ok = forecaster.Start()
			if !ok {
				return fiber.NewError(fiber.StatusConflict, "a forecast run is already in progress")
			}
		}

		return c.Status(fiber.StatusAccepted).JSON(fiber.Map{
			"started": true,
			"run":     run,
		})
	})

	v1.Get("/location/authorization", func(c *fiber.Ctx) error {
		return c.JSON(authorizationResponse(permissions))
	})

	v1.Put("/location/authorization", func(c *fiber.Ctx) error {
		var req authorizationRequest
		if err := c.BodyParser(&req); err != nil {
			return fiber.NewError(fiber.StatusBadRequest, "invalid request body")
		}
		if err := validate.Struct(req); err != nil {
			return fiber.NewError(fiber.StatusBadRequest, err.Error())
		}

		state, err := location.ParseAuthorizationState(req.State)
		if err != nil {
			return fiber.NewError(fiber.StatusBadRequest, err.Error())
		}
		permissions.SetAuthorization(state)

		return c.JSON(authorizationResponse(permissions))
	})
}

// authorizationRequest is an operator's permission decision. State names are
// checked by location.ParseAuthorizationState.
type authorizationRequest struct {
	State string `json:"state" validate:"required"`
}

func authorizationResponse(p Permissions) fiber.Map {
	return fiber.Map{
		"state":     p.AuthorizationState(),
		"prompting": p.Prompting(),
	}
}
