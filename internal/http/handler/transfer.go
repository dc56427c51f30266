package handler

import (
	"bytes"
	"errors"
	"io"
	"mime"
	"mime/multipart"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/utils"
	"github.com/sirupsen/logrus"

	"pdfgate/internal/model"
	"pdfgate/internal/service"
)

// UploadFieldName is the multipart field carrying the document.
const UploadFieldName = "file"

var errNoFile = errors.New("no file uploaded")

// UploadFile godoc
// @Summary Upload a PDF (multipart/form-data, field "file", max 10 MiB)
// @Tags files
// @Accept multipart/form-data
// @Produce json
// @Param file formData file true "PDF document"
// @Success 200 {object} uploadResponse
// @Failure 400 {object} errorPayload
// @Failure 413 {object} errorPayload
// @Failure 415 {object} errorPayload
// @Failure 500 {object} errorPayload
// @Router /api/upload [post]
//
// The multipart body is read part by part straight from the request stream;
// the file part is handed to the service as a reader and never buffered whole.
func UploadFile(docSvc service.DocumentService, log logrus.FieldLogger) fiber.Handler {
	return func(c *fiber.Ctx) error {
		_, params, err := mime.ParseMediaType(c.Get(fiber.HeaderContentType))
		if err != nil || params["boundary"] == "" {
			return writeError(c, fiber.StatusBadRequest, "No file uploaded", errNoFile.Error(), "")
		}

		mr := multipart.NewReader(requestBody(c), params["boundary"])
		for {
			part, err := mr.NextPart()
			if errors.Is(err, io.EOF) {
				return writeError(c, fiber.StatusBadRequest, "No file uploaded", errNoFile.Error(), "")
			}
			if err != nil {
				return writeError(c, fiber.StatusBadRequest, "No file uploaded", err.Error(), "")
			}
			name := originalFilename(part)
			if part.FormName() != UploadFieldName || name == "" {
				continue
			}

			doc, err := docSvc.Upload(c.UserContext(), part, part.FormName(), name, part.Header.Get(fiber.HeaderContentType))
			_ = part.Close()
			if err != nil {
				return writeServiceError(c, log, "Upload failed", err)
			}
			return c.JSON(uploadResponse{Success: true, File: doc})
		}
	}
}

// ServePDF godoc
// @Summary Stream a stored PDF inline
// @Tags files
// @Produce application/pdf
// @Param key path string true "Object key, optionally URL-encoded"
// @Success 200 {file} file
// @Failure 400 {object} errorPayload
// @Failure 404 {object} errorPayload
// @Failure 500 {object} errorPayload
// @Router /api/pdf/{key} [get]
//
// Headers are committed when the stream is attached. A store error after that
// point can only cut the body short; the status stays 200.
func ServePDF(docSvc service.DocumentService, log logrus.FieldLogger) fiber.Handler {
	return func(c *fiber.Ctx) error {
		key, err := service.DecodeKey(c.Params("*"))
		if err != nil {
			return writeServiceError(c, log, "No file key provided", err)
		}
		key = utils.CopyString(key)

		rc, entry, err := docSvc.Open(c.UserContext(), key)
		if err != nil {
			if errors.Is(err, service.ErrNotFound) {
				return writeServiceError(c, log, "PDF not found", err)
			}
			return writeServiceError(c, log, "Failed to serve PDF", err)
		}

		setPDFHeaders(c)
		size := -1
		if entry != nil && entry.Size >= 0 {
			size = int(entry.Size)
		}
		// fasthttp closes rc once the body has been written or the client went away.
		return c.SendStream(rc, size)
	}
}

func setPDFHeaders(c *fiber.Ctx) {
	c.Set(fiber.HeaderContentType, model.ContentTypePDF)
	c.Set(fiber.HeaderContentDisposition, "inline")
}

// requestBody returns the request body as a stream. Bodies larger than the
// server's read buffer arrive through RequestBodyStream; smaller ones are
// already in memory.
func requestBody(c *fiber.Ctx) io.Reader {
	if s := c.Context().RequestBodyStream(); s != nil {
		return s
	}
	return bytes.NewReader(c.Body())
}

// originalFilename returns the filename parameter exactly as sent.
// multipart.Part.FileName strips directory components, which would alter the key suffix.
func originalFilename(part *multipart.Part) string {
	_, params, err := mime.ParseMediaType(part.Header.Get(fiber.HeaderContentDisposition))
	if err != nil {
		return part.FileName()
	}
	return params["filename"]
}
