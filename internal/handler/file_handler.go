package handler

import (
	"github.com/gin-gonic/gin"

	"github.com/maraakiz/maraakiz-api/internal/service"
	appErrors "github.com/maraakiz/maraakiz-api/pkg/errors"
	"github.com/maraakiz/maraakiz-api/pkg/response"
)

// FileHandler serves signed download links. Note attachments, message
// attachments and library resources all share the /files/:token route;
// the token's file ID decides which store holds the bytes.
type FileHandler struct {
	notes     *service.NoteService
	messages  *service.MessageService
	resources *service.ResourceService
}

// NewFileHandler creates a new handler.
func NewFileHandler(notes *service.NoteService, messages *service.MessageService, resources *service.ResourceService) *FileHandler {
	return &FileHandler{notes: notes, messages: messages, resources: resources}
}

// Download godoc
// @Summary Download a file via a signed token
// @Description Resolves note attachments, message attachments and library resources
// @Tags Files
// @Produce octet-stream
// @Param token path string true "Signed download token"
// @Success 200 {file} binary
// @Failure 401 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /files/{token} [get]
func (h *FileHandler) Download(c *gin.Context) {
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}
	token := c.Param("token")
	ctx := c.Request.Context()

	if h.notes != nil {
		if file, path, err := h.notes.ResolveDownload(ctx, claims.UserID, token); err == nil {
			c.FileAttachment(path, file.Name)
			return
		}
	}
	if h.messages != nil {
		if message, path, err := h.messages.ResolveDownload(ctx, claims.UserID, token); err == nil {
			c.FileAttachment(path, message.FileName)
			return
		}
	}
	if h.resources != nil {
		if resource, path, err := h.resources.ResolveDownload(ctx, claims.UserID, token); err == nil {
			c.FileAttachment(path, resource.FileName)
			return
		}
	}

	response.Error(c, appErrors.Clone(appErrors.ErrNotFound, "file not found"))
}
