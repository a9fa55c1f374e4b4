package handler

import (
	"encoding/json"

	"github.com/gofiber/fiber/v2"

	"vaultapi/internal/service"
)

type saveContactsRequest struct {
	Contacts json.RawMessage `json:"contacts"`
}

type tourRequest struct {
	Action string `json:"action"`
}

// GetContacts returns the tenant's contact book, empty when none was saved yet.
//
// @Summary  Get contacts
// @Tags     contacts
// @Produce  json
// @Success  200 {object} map[string]any
// @Router   /api/contacts/get [get]
func GetContacts(svc service.ContactService) fiber.Handler {
	return func(c *fiber.Ctx) error {
		key, doc, err := svc.Get(c.UserContext(), tenantOf(c))
		if err != nil {
			return writeServiceError(c, err)
		}
		return c.JSON(fiber.Map{
			"ok":        true,
			"key":       key,
			"updatedAt": doc.UpdatedAt,
			"contacts":  doc.Contacts,
		})
	}
}

// SaveContacts replaces the contact book.
//
// @Summary  Save contacts
// @Tags     contacts
// @Accept   json
// @Produce  json
// @Param    body body saveContactsRequest true "contacts array"
// @Success  200 {object} map[string]any
// @Failure  400 {object} errorPayload
// @Failure  413 {object} errorPayload
// @Router   /api/contacts/save [post]
func SaveContacts(svc service.ContactService) fiber.Handler {
	return func(c *fiber.Ctx) error {
		var req saveContactsRequest
		if err := decodeBody(c, &req); err != nil {
			return writeServiceError(c, err)
		}
		key, doc, err := svc.Save(c.UserContext(), tenantOf(c), req.Contacts)
		if err != nil {
			return writeServiceError(c, err)
		}
		return c.JSON(fiber.Map{
			"ok":        true,
			"key":       key,
			"updatedAt": doc.UpdatedAt,
			"count":     len(doc.Contacts),
		})
	}
}

// SaveProjection stores a calculator projection. Omit id to create a new one.
//
// @Summary  Save projection
// @Tags     projections
// @Accept   json
// @Produce  json
// @Param    body body service.ProjectionInput true "projection"
// @Success  200 {object} map[string]any
// @Failure  400 {object} errorPayload
// @Router   /api/projections/save [post]
func SaveProjection(svc service.ProjectionService) fiber.Handler {
	return func(c *fiber.Ctx) error {
		var in service.ProjectionInput
		if err := decodeBody(c, &in); err != nil {
			return writeServiceError(c, err)
		}
		key, p, err := svc.Save(c.UserContext(), tenantOf(c), in)
		if err != nil {
			return writeServiceError(c, err)
		}
		return c.JSON(fiber.Map{"ok": true, "id": p.ID, "key": key})
	}
}

// ListProjections returns the tenant's projections, newest first.
//
// @Summary  List projections
// @Tags     projections
// @Produce  json
// @Success  200 {object} map[string][]model.Projection
// @Router   /api/projections/list [get]
func ListProjections(svc service.ProjectionService) fiber.Handler {
	return func(c *fiber.Ctx) error {
		list, err := svc.List(c.UserContext(), tenantOf(c))
		if err != nil {
			return writeServiceError(c, err)
		}
		return c.JSON(fiber.Map{"projections": list})
	}
}

// GetProjection returns one projection.
//
// @Summary  Get projection
// @Tags     projections
// @Produce  json
// @Param    id query string true "projection id"
// @Success  200 {object} map[string]model.Projection
// @Failure  404 {object} errorPayload
// @Router   /api/projections/get [get]
func GetProjection(svc service.ProjectionService) fiber.Handler {
	return func(c *fiber.Ctx) error {
		p, err := svc.Get(c.UserContext(), tenantOf(c), c.Query("id"))
		if err != nil {
			return writeServiceError(c, err)
		}
		return c.JSON(fiber.Map{"projection": p})
	}
}

// GetTour reports whether the tenant has seen the welcome tour.
//
// @Summary  Tour status
// @Tags     onboarding
// @Produce  json
// @Success  200 {object} map[string]any
// @Router   /api/onboarding/tour [get]
func GetTour(svc service.OnboardingService) fiber.Handler {
	return func(c *fiber.Ctx) error {
		st, err := svc.TourStatus(c.UserContext(), tenantOf(c))
		if err != nil {
			return writeServiceError(c, err)
		}
		return c.JSON(fiber.Map{
			"ok":              true,
			"seen":            st.Seen,
			"version":         st.Version,
			"requiredVersion": st.RequiredVersion,
			"completedAt":     st.CompletedAt,
		})
	}
}

// MarkTour records the tour as completed or skipped.
//
// @Summary  Mark tour
// @Tags     onboarding
// @Accept   json
// @Produce  json
// @Param    body body tourRequest false "action: completed (default) or skipped"
// @Success  200 {object} map[string]any
// @Router   /api/onboarding/tour [post]
func MarkTour(svc service.OnboardingService) fiber.Handler {
	return func(c *fiber.Ctx) error {
		var req tourRequest
		if err := decodeBody(c, &req); err != nil {
			return writeServiceError(c, err)
		}
		st, err := svc.MarkTour(c.UserContext(), tenantOf(c), req.Action)
		if err != nil {
			return writeServiceError(c, err)
		}
		return c.JSON(fiber.Map{
			"ok":          true,
			"seen":        st.Seen,
			"version":     st.Version,
			"completedAt": st.CompletedAt,
		})
	}
}
