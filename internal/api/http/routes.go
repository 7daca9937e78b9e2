package httpapi

import (
	"errors"
	"os"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/i474232898/weather-sync/internal/app"
	"github.com/i474232898/weather-sync/internal/store"
)

var validate = validator.New()

// siteQuery identifies one site in a request path.
type siteQuery struct {
	SiteID string `validate:"required,max=128,excludesall=/\\"`
}

// RegisterRoutes wires the HTTP handlers into the Fiber app.
//
// /store/<site>.json serves the published store objects slaves pull;
// /api/v1/observations exposes the aggregate result store read-only.
func RegisterRoutes(router *fiber.App, rt *app.Runtime, results *store.FileStore, publisher *store.Publisher) {
	router.Get("/health", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{
			"status":  "ok",
			"service": "weather-master",
		})
	})

	router.Get("/metrics", adaptor.HTTPHandler(promhttp.HandlerFor(rt.Metrics.Registry, promhttp.HandlerOpts{})))

	router.Get("/store/:object", func(c *fiber.Ctx) error {
		object := c.Params("object")
		if !strings.HasSuffix(object, store.ObjectExt) {
			return fiber.NewError(fiber.StatusNotFound, "no such store object")
		}
		q, err := parseSite(strings.TrimSuffix(object, store.ObjectExt))
		if err != nil {
			return fiber.NewError(fiber.StatusBadRequest, err.Error())
		}

		path, err := publisher.ObjectPath(q.SiteID)
		if err != nil {
			return fiber.NewError(fiber.StatusBadRequest, err.Error())
		}
		data, err := os.ReadFile(path)
		if err != nil {
			if errors.Is(err, os.ErrNotExist) {
				return fiber.NewError(fiber.StatusNotFound, "no such store object")
			}
			return fiber.NewError(fiber.StatusInternalServerError, "failed to read store object")
		}

		c.Type("json")
		return c.Send(data)
	})

	v1 := router.Group("/api/v1")

	v1.Get("/observations", func(c *fiber.Ctx) error {
		return c.JSON(results.Load())
	})

	v1.Get("/observations/:site", func(c *fiber.Ctx) error {
		q, err := parseSite(c.Params("site"))
		if err != nil {
			return fiber.NewError(fiber.StatusBadRequest, err.Error())
		}

		obs, err := results.Get(q.SiteID)
		if err != nil {
			if errors.Is(err, store.ErrNotFound) {
				return fiber.NewError(fiber.StatusNotFound, "no weather data for requested site")
			}
			return fiber.NewError(fiber.StatusInternalServerError, "failed to fetch weather data")
		}

		return c.JSON(obs)
	})
}

func parseSite(raw string) (siteQuery, error) {
	q := siteQuery{SiteID: raw}
	if err := validate.Struct(q); err != nil {
		return q, err
	}
	return q, nil
}
