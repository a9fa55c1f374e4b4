package handler

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/gofiber/fiber/v2"

	"vaultapi/internal/http/middleware"
	"vaultapi/internal/service"
)

var errInvalidBody = errors.New("invalid JSON body")

// Pinger reports whether the backing store is reachable.
type Pinger interface {
	Ping(ctx context.Context) error
}

// Services bundles the use cases exposed over HTTP.
type Services struct {
	Files       service.FileService
	Notes       service.NoteService
	Contacts    service.ContactService
	Projections service.ProjectionService
	Onboarding  service.OnboardingService
}

// RegisterRoutes attaches HTTP routes to the provided Fiber app.
// Every /api route runs behind auth, which must set the tenant (see middleware.Tenant).
func RegisterRoutes(app *fiber.App, store Pinger, svc Services, auth fiber.Handler) {
	app.Get("/health", HealthCheck(store))
	app.Get("/healthz", LivenessProbe())

	api := app.Group("/api", auth)

	files := api.Group("/files")
	files.Get("/list", ListFiles(svc.Files))
	files.Post("/presign", PresignUpload(svc.Files))
	files.Post("/upload", PresignUpload(svc.Files))
	files.Post("/presign-get", PresignDownload(svc.Files))
	files.Post("/delete", DeleteFile(svc.Files))

	notes := api.Group("/notes")
	notes.Get("/list", ListNotes(svc.Notes))
	notes.Get("/get", GetNote(svc.Notes))
	notes.Post("/save", SaveNote(svc.Notes))
	notes.Post("/delete", DeleteNote(svc.Notes))

	contacts := api.Group("/contacts")
	contacts.Get("/get", GetContacts(svc.Contacts))
	contacts.Post("/save", SaveContacts(svc.Contacts))

	projections := api.Group("/projections")
	projections.Post("/save", SaveProjection(svc.Projections))
	projections.Get("/list", ListProjections(svc.Projections))
	projections.Get("/get", GetProjection(svc.Projections))

	api.Get("/onboarding/tour", GetTour(svc.Onboarding))
	api.Post("/onboarding/tour", MarkTour(svc.Onboarding))
}

// HealthCheck checks bucket reachability.
//
// @Summary  Readiness probe
// @Tags     health
// @Produce  json
// @Success  200 {object} map[string]string
// @Failure  503 {object} errorPayload
// @Router   /health [get]
func HealthCheck(store Pinger) fiber.Handler {
	return func(c *fiber.Ctx) error {
		ctx, cancel := context.WithTimeout(c.UserContext(), 2*time.Second)
		defer cancel()
		if err := store.Ping(ctx); err != nil {
			return writeError(c, fiber.StatusServiceUnavailable, codeServiceUnavailable, "dependency unavailable")
		}
		return c.Status(fiber.StatusOK).JSON(fiber.Map{"status": "healthy"})
	}
}

// LivenessProbe always answers 200.
func LivenessProbe() fiber.Handler {
	return func(c *fiber.Ctx) error {
		return c.SendStatus(fiber.StatusOK)
	}
}

// decodeBody unmarshals a JSON request body into v. An empty body leaves v untouched.
// Content-Type is not checked: browser clients post with text/plain to skip preflight.
func decodeBody(c *fiber.Ctx, v any) error {
	b := c.Body()
	if len(b) == 0 {
		return nil
	}
	if err := json.Unmarshal(b, v); err != nil {
		return errInvalidBody
	}
	return nil
}

func tenantOf(c *fiber.Ctx) string {
	return middleware.TenantFromCtx(c)
}
