package handler

import (
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/utils"
	"github.com/sirupsen/logrus"

	"pdfgate/internal/model"
	"pdfgate/internal/service"
)

// ListFilesLimit is the number of entries /list-files returns at most.
const ListFilesLimit = 10

// RegisterRoutes attaches the gateway routes to r (usually the /api group).
func RegisterRoutes(r fiber.Router, docSvc service.DocumentService, log logrus.FieldLogger) {
	r.Get("/health", HealthCheck())
	r.Get("/test-pdf", TestPDF())
	r.Get("/list-files", ListFiles(docSvc, log))
	r.Post("/upload", UploadFile(docSvc, log))
	r.Get("/pdf/*", ServePDF(docSvc, log))
	r.Get("/file/:key", GetFileURL(docSvc, log))
	r.Delete("/file/*", DeleteFile(docSvc, log))
}

// RegisterProbes mounts the health check at the root paths used by load
// balancers and orchestrators.
func RegisterProbes(r fiber.Router) {
	r.Get("/health", HealthCheck())
	r.Get("/healthz", HealthCheck())
}

// HealthCheck godoc
// @Summary Liveness probe
// @Tags health
// @Produce json
// @Success 200 {object} map[string]string
// @Router /api/health [get]
func HealthCheck() fiber.Handler {
	return func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{"status": "OK", "message": "Server is running"})
	}
}

// TestPDF answers with PDF headers and a plain body so clients can check their viewer wiring.
func TestPDF() fiber.Handler {
	return func(c *fiber.Ctx) error {
		setPDFHeaders(c)
		return c.SendString("PDF test endpoint working")
	}
}

// ListFiles godoc
// @Summary List stored files (first page only)
// @Tags files
// @Produce json
// @Success 200 {object} listResponse
// @Failure 500 {object} errorPayload
// @Router /api/list-files [get]
func ListFiles(docSvc service.DocumentService, log logrus.FieldLogger) fiber.Handler {
	return func(c *fiber.Ctx) error {
		files, err := docSvc.List(c.UserContext(), ListFilesLimit)
		if err != nil {
			return writeServiceError(c, log, "Failed to list files", err)
		}
		if files == nil {
			files = []model.ObjectEntry{}
		}
		return c.JSON(listResponse{Success: true, Files: files})
	}
}

// GetFileURL godoc
// @Summary Issue a signed download URL valid for one hour
// @Tags files
// @Produce json
// @Param key path string true "URL-encoded object key"
// @Success 200 {object} map[string]string
// @Failure 500 {object} errorPayload
// @Router /api/file/{key} [get]
func GetFileURL(docSvc service.DocumentService, log logrus.FieldLogger) fiber.Handler {
	return func(c *fiber.Ctx) error {
		key, err := service.DecodeKey(c.Params("key"))
		if err != nil {
			return writeServiceError(c, log, "Failed to get file URL", err)
		}
		key = utils.CopyString(key)

		url, err := docSvc.SignURL(c.UserContext(), key)
		if err != nil {
			return writeServiceError(c, log, "Failed to get file URL", err)
		}
		return c.JSON(fiber.Map{"url": url})
	}
}

// DeleteFile godoc
// @Summary Delete a stored file
// @Tags files
// @Produce json
// @Param key path string true "Object key, optionally URL-encoded"
// @Success 200 {object} map[string]any
// @Failure 400 {object} errorPayload
// @Failure 500 {object} errorPayload
// @Router /api/file/{key} [delete]
func DeleteFile(docSvc service.DocumentService, log logrus.FieldLogger) fiber.Handler {
	return func(c *fiber.Ctx) error {
		key, err := service.DecodeKey(c.Params("*"))
		if err != nil {
			return writeServiceError(c, log, "No file key provided", err)
		}
		key = utils.CopyString(key)

		if err := docSvc.Delete(c.UserContext(), key); err != nil {
			return writeServiceError(c, log, "Failed to delete file from storage", err)
		}
		return c.JSON(fiber.Map{"success": true, "message": "File deleted successfully"})
	}
}

type listResponse struct {
	Success bool                `json:"success"`
	Files   []model.ObjectEntry `json:"files"`
}

type uploadResponse struct {
	Success bool                  `json:"success"`
	File    *model.StoredDocument `json:"file"`
}
