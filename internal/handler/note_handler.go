package handler

import (
	"io"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/maraakiz/maraakiz-api/internal/service"
	appErrors "github.com/maraakiz/maraakiz-api/pkg/errors"
	"github.com/maraakiz/maraakiz-api/pkg/response"
)

// NoteHandler wires HTTP endpoints to the note service.
type NoteHandler struct {
	service *service.NoteService
}

// NewNoteHandler creates a new handler.
func NewNoteHandler(svc *service.NoteService) *NoteHandler {
	return &NoteHandler{service: svc}
}

// Get godoc
// @Summary Get a session's note
// @Description Returns the note and its attachments with signed download links
// @Tags Notes
// @Produce json
// @Param id path string true "Session ID"
// @Success 200 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /sessions/{id}/note [get]
func (h *NoteHandler) Get(c *gin.Context) {
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}

	note, files, err := h.service.Get(c.Request.Context(), c.Param("id"), claims.UserID)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.JSON(c, http.StatusOK, gin.H{"note": note, "files": files}, nil)
}

// Upsert godoc
// @Summary Create or update a session's note
// @Tags Notes
// @Accept json
// @Produce json
// @Param id path string true "Session ID"
// @Param payload body service.UpsertNoteRequest true "Note payload"
// @Success 200 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Router /sessions/{id}/note [put]
func (h *NoteHandler) Upsert(c *gin.Context) {
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}

	var req service.UpsertNoteRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid note payload"))
		return
	}

	note, err := h.service.Upsert(c.Request.Context(), c.Param("id"), claims.UserID, req)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.JSON(c, http.StatusOK, note, nil)
}

// AddFile godoc
// @Summary Attach a file to a session's note
// @Tags Notes
// @Accept multipart/form-data
// @Produce json
// @Param id path string true "Session ID"
// @Param file formData file true "Attachment"
// @Success 201 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Failure 413 {object} response.Envelope
// @Router /sessions/{id}/note/files [post]
func (h *NoteHandler) AddFile(c *gin.Context) {
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}

	header, err := c.FormFile("file")
	if err != nil {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "file is required"))
		return
	}

	src, err := header.Open()
	if err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to open upload"))
		return
	}
	defer src.Close()

	data, err := io.ReadAll(src)
	if err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to read upload"))
		return
	}

	file, err := h.service.AddFile(c.Request.Context(), c.Param("id"), claims.UserID, service.AddNoteFileRequest{
		Name:     header.Filename,
		MIMEType: header.Header.Get("Content-Type"),
		Data:     data,
	})
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Created(c, file)
}

// RemoveFile godoc
// @Summary Remove an attachment from a session's note
// @Tags Notes
// @Produce json
// @Param id path string true "Session ID"
// @Param fileId path string true "File ID"
// @Success 204 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /sessions/{id}/note/files/{fileId} [delete]
func (h *NoteHandler) RemoveFile(c *gin.Context) {
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}

	if err := h.service.RemoveFile(c.Request.Context(), c.Param("id"), claims.UserID, c.Param("fileId")); err != nil {
		response.Error(c, err)
		return
	}

	response.NoContent(c)
}

// StudentReport godoc
// @Summary Export a student's progress report as PDF
// @Description Renders every note of the student's sessions, oldest first
// @Tags Notes
// @Produce application/pdf
// @Param id path string true "Student ID"
// @Success 200 {file} binary
// @Failure 404 {object} response.Envelope
// @Router /students/{id}/report [get]
func (h *NoteHandler) StudentReport(c *gin.Context) {
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}

	data, filename, err := h.service.StudentReport(c.Request.Context(), c.Param("id"), claims.UserID)
	if err != nil {
		response.Error(c, err)
		return
	}

	c.Header("Content-Disposition", `attachment; filename="`+filename+`"`)
	c.Data(http.StatusOK, "application/pdf", data)
}
