package handler

import (
	"strings"

	"github.com/gofiber/fiber/v2"

	"vaultapi/internal/service"
)

type saveNoteRequest struct {
	ID      string `json:"id"`
	Content string `json:"content"`
}

type idRequest struct {
	ID string `json:"id"`
}

// ListNotes returns the tenant's notes, newest first.
//
// @Summary  List notes
// @Tags     notes
// @Produce  json
// @Success  200 {object} map[string][]model.NoteSummary
// @Router   /api/notes/list [get]
func ListNotes(svc service.NoteService) fiber.Handler {
	return func(c *fiber.Ctx) error {
		notes, err := svc.List(c.UserContext(), tenantOf(c))
		if err != nil {
			return writeServiceError(c, err)
		}
		return c.JSON(fiber.Map{"notes": notes})
	}
}

// GetNote returns one note.
//
// @Summary  Get note
// @Tags     notes
// @Produce  json
// @Param    id query string true "note id"
// @Success  200 {object} map[string]model.Note
// @Failure  400 {object} errorPayload
// @Failure  404 {object} errorPayload
// @Router   /api/notes/get [get]
func GetNote(svc service.NoteService) fiber.Handler {
	return func(c *fiber.Ctx) error {
		note, err := svc.Get(c.UserContext(), tenantOf(c), c.Query("id"))
		if err != nil {
			return writeServiceError(c, err)
		}
		return c.JSON(fiber.Map{"note": note})
	}
}

// SaveNote overwrites a note with new content.
//
// @Summary  Save note
// @Tags     notes
// @Accept   json
// @Produce  json
// @Param    body body saveNoteRequest true "note"
// @Success  200 {object} map[string]any
// @Failure  400 {object} errorPayload
// @Router   /api/notes/save [post]
func SaveNote(svc service.NoteService) fiber.Handler {
	return func(c *fiber.Ctx) error {
		var req saveNoteRequest
		if err := decodeBody(c, &req); err != nil {
			return writeServiceError(c, err)
		}
		key, note, err := svc.Save(c.UserContext(), tenantOf(c), req.ID, req.Content)
		if err != nil {
			return writeServiceError(c, err)
		}
		return c.JSON(fiber.Map{"ok": true, "key": key, "note": note})
	}
}

// DeleteNote removes a note. Deleting a missing note succeeds.
//
// @Summary  Delete note
// @Tags     notes
// @Accept   json
// @Produce  json
// @Param    body body idRequest true "note id"
// @Success  200 {object} map[string]any
// @Failure  400 {object} errorPayload
// @Router   /api/notes/delete [post]
func DeleteNote(svc service.NoteService) fiber.Handler {
	return func(c *fiber.Ctx) error {
		var req idRequest
		if err := decodeBody(c, &req); err != nil {
			return writeServiceError(c, err)
		}
		id := strings.TrimSpace(req.ID)
		key, err := svc.Delete(c.UserContext(), tenantOf(c), id)
		if err != nil {
			return writeServiceError(c, err)
		}
		return c.JSON(fiber.Map{"ok": true, "id": id, "key": key})
	}
}
