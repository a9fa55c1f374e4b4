package handler

import (
	"github.com/gofiber/fiber/v2"

	"vaultapi/internal/listing"
	"vaultapi/internal/model"
	"vaultapi/internal/service"
	"vaultapi/internal/transfer"
)

type fileListResponse struct {
	Folder    string               `json:"folder"`
	Prefix    string               `json:"prefix"`
	Folders   []model.FolderNode   `json:"folders,omitempty"`
	Items     []model.ListedObject `json:"items"`
	Truncated bool                 `json:"truncated"`
}

type presignUploadRequest struct {
	Folder      string `json:"folder"`
	FileName    string `json:"fileName"`
	ContentType string `json:"contentType"`
}

type presignDownloadRequest struct {
	Key         string `json:"key"`
	Disposition string `json:"disposition"`
}

type keyRequest struct {
	Key string `json:"key"`
}

// ListFiles lists one folder, or every user file when folder is __all__. Tenant documents are never listed.
//
// @Summary  List files
// @Tags     files
// @Produce  json
// @Param    folder query string false "folder name or __all__"
// @Success  200 {object} fileListResponse
// @Router   /api/files/list [get]
func ListFiles(svc service.FileService) fiber.Handler {
	return func(c *fiber.Ctx) error {
		name, res, err := svc.List(c.UserContext(), c.Query("folder"))
		if err != nil {
			return writeServiceError(c, err)
		}
		out := fileListResponse{
			Folder:    name,
			Prefix:    res.Prefix,
			Items:     res.Files,
			Truncated: res.Truncated,
		}
		if name != listing.AllFolders {
			out.Folders = res.Folders
		}
		return c.JSON(out)
	}
}

// PresignUpload issues a presigned PUT URL for a new file.
//
// @Summary  Presign upload
// @Tags     files
// @Accept   json
// @Produce  json
// @Param    body body presignUploadRequest true "target"
// @Success  200 {object} transfer.UploadTicket
// @Router   /api/files/presign [post]
func PresignUpload(svc service.FileService) fiber.Handler {
	return func(c *fiber.Ctx) error {
		var req presignUploadRequest
		if err := decodeBody(c, &req); err != nil {
			return writeServiceError(c, err)
		}
		tk, err := svc.PresignUpload(c.UserContext(), req.Folder, req.FileName, req.ContentType)
		if err != nil {
			return writeServiceError(c, err)
		}
		return c.JSON(tk)
	}
}

// PresignDownload issues a presigned GET URL for an existing key.
//
// @Summary  Presign download
// @Tags     files
// @Accept   json
// @Produce  json
// @Param    body body presignDownloadRequest true "key and disposition"
// @Success  200 {object} transfer.DownloadTicket
// @Failure  400 {object} errorPayload
// @Router   /api/files/presign-get [post]
func PresignDownload(svc service.FileService) fiber.Handler {
	return func(c *fiber.Ctx) error {
		var req presignDownloadRequest
		if err := decodeBody(c, &req); err != nil {
			return writeServiceError(c, err)
		}
		tk, err := svc.PresignDownload(c.UserContext(), req.Key, transfer.ParseDisposition(req.Disposition))
		if err != nil {
			return writeServiceError(c, err)
		}
		return c.JSON(tk)
	}
}

// DeleteFile removes a file by key.
//
// @Summary  Delete file
// @Tags     files
// @Accept   json
// @Produce  json
// @Param    body body keyRequest true "key"
// @Success  200 {object} map[string]any
// @Failure  400 {object} errorPayload
// @Router   /api/files/delete [post]
func DeleteFile(svc service.FileService) fiber.Handler {
	return func(c *fiber.Ctx) error {
		var req keyRequest
		if err := decodeBody(c, &req); err != nil {
			return writeServiceError(c, err)
		}
		key, err := svc.Delete(c.UserContext(), req.Key)
		if err != nil {
			return writeServiceError(c, err)
		}
		return c.JSON(fiber.Map{"ok": true, "key": key})
	}
}
