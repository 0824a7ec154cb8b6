package handlers

import (
	"bytes"
	"encoding/json"
	"io"
	"log"
	"strconv"
	"strings"

	"github.com/gofiber/fiber/v3"

	"plan-modeler/internal/modeler/models"
	"plan-modeler/internal/modeler/service"
)

// ModelHandler exposes the model service over HTTP.
type ModelHandler struct {
	svc service.ModelService
}

func NewModelHandler(svc service.ModelService) *ModelHandler {
	return &ModelHandler{svc: svc}
}

// ============================================================
// Reconstruct Handler
// ============================================================

// Reconstruct accepts an entity document either as the raw JSON body or as
// the "file" field of a multipart form.
func (h *ModelHandler) Reconstruct(c fiber.Ctx) error {
	log.Printf("[MODELER] Reconstruct: content-type=%s length=%d", c.Get(fiber.HeaderContentType), len(c.Body()))

	var r io.Reader
	if strings.HasPrefix(c.Get(fiber.HeaderContentType), fiber.MIMEMultipartForm) {
		fh, err := c.FormFile("file")
		if err != nil {
			return writeError(c, fiber.StatusBadRequest, "FILE_REQUIRED", "file is required")
		}
		f, err := fh.Open()
		if err != nil {
			return writeError(c, fiber.StatusBadRequest, "FILE_OPEN_ERROR", "cannot open uploaded file")
		}
		defer f.Close()

		log.Printf("[MODELER] File received: %s, size: %d", fh.Filename, fh.Size)
		r = f
	} else {
		if len(c.Body()) == 0 {
			return writeError(c, fiber.StatusBadRequest, "BODY_REQUIRED", "body required")
		}
		r = bytes.NewReader(c.Body())
	}

	m, err := h.svc.Reconstruct(c.Context(), r)
	if err != nil {
		log.Printf("[MODELER] Reconstruct error: %v", err)
		return writeServiceError(c, err)
	}

	log.Printf("[MODELER] Model %s: %d floors, %d openings, %d skipped entities",
		m.ID, len(m.Floors), len(m.Openings), m.Diagnostics.SkippedEntities)
	return c.Status(fiber.StatusCreated).JSON(m)
}

// ============================================================
// Model Handlers
// ============================================================

func (h *ModelHandler) Get(c fiber.Ctx) error {
	m, err := h.svc.Get(c.Context(), c.Params("id"))
	if err != nil {
		return writeServiceError(c, err)
	}
	return c.JSON(m)
}

func (h *ModelHandler) Delete(c fiber.Ctx) error {
	if err := h.svc.Delete(c.Context(), c.Params("id")); err != nil {
		return writeServiceError(c, err)
	}
	return c.SendStatus(fiber.StatusNoContent)
}

// ============================================================
// Build Handlers
// ============================================================

// Build runs a solid backend on a stored model. The backend comes from the
// "backend" query parameter and defaults to scad.
func (h *ModelHandler) Build(c fiber.Ctx) error {
	backend, err := service.ParseBackend(c.Query("backend"))
	if err != nil {
		return writeServiceError(c, err)
	}

	res, err := h.svc.Build(c.Context(), c.Params("id"), backend)
	if err != nil {
		log.Printf("[MODELER] Build %s error: %v", backend, err)
		return writeServiceError(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(res)
}

// Artifact streams the stored output of a backend.
func (h *ModelHandler) Artifact(c fiber.Ctx) error {
	backend, err := service.ParseBackend(c.Params("backend"))
	if err != nil {
		return writeServiceError(c, err)
	}

	rc, info, err := h.svc.Artifact(c.Context(), c.Params("id"), backend)
	if err != nil {
		return writeServiceError(c, err)
	}

	contentType := info.ContentType
	if contentType == "" {
		contentType = fiber.MIMEOctetStream
	}
	c.Set(fiber.HeaderContentType, contentType)
	return c.SendStream(rc, int(info.Size))
}

// ============================================================
// Render Handlers
// ============================================================

// RenderStored draws one floor of a stored model.
func (h *ModelHandler) RenderStored(c fiber.Ctx) error {
	opts, err := renderOptions(c)
	if err != nil {
		return writeError(c, fiber.StatusBadRequest, "INVALID_QUERY", err.Error())
	}

	m, err := h.svc.Get(c.Context(), c.Params("id"))
	if err != nil {
		return writeServiceError(c, err)
	}
	return h.render(c, m, opts)
}

// Render draws one floor of a model posted as JSON.
func (h *ModelHandler) Render(c fiber.Ctx) error {
	log.Printf("[RENDER] Received request, length=%d", len(c.Body()))

	if len(c.Body()) == 0 {
		return writeError(c, fiber.StatusBadRequest, "BODY_REQUIRED", "body required")
	}

	opts, err := renderOptions(c)
	if err != nil {
		return writeError(c, fiber.StatusBadRequest, "INVALID_QUERY", err.Error())
	}

	var m models.Model
	if err := json.Unmarshal(c.Body(), &m); err != nil {
		log.Printf("[RENDER] Decode error: %v", err)
		return writeError(c, fiber.StatusBadRequest, "INVALID_JSON", "invalid JSON payload")
	}
	return h.render(c, &m, opts)
}

func (h *ModelHandler) render(c fiber.Ctx, m *models.Model, opts service.RenderOptions) error {
	data, contentType, err := h.svc.Render(c.Context(), m, opts)
	if err != nil {
		log.Printf("[RENDER] Render error: %v", err)
		return writeServiceError(c, err)
	}
	c.Set(fiber.HeaderContentType, contentType)
	return c.Send(data)
}

func renderOptions(c fiber.Ctx) (service.RenderOptions, error) {
	opts := service.RenderOptions{Format: c.Query("format")}

	if v := c.Query("level"); v != "" {
		level, err := strconv.Atoi(v)
		if err != nil {
			return opts, errInvalidParam("level")
		}
		opts.Level = level
	}
	if v := c.Query("width"); v != "" {
		width, err := strconv.Atoi(v)
		if err != nil || width < 0 {
			return opts, errInvalidParam("width")
		}
		opts.Width = width
	}
	return opts, nil
}

type errInvalidParam string

func (e errInvalidParam) Error() string {
	return "invalid " + string(e)
}
