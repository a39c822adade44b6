package handler

import (
	"io"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/maraakiz/maraakiz-api/internal/models"
	"github.com/maraakiz/maraakiz-api/internal/service"
	appErrors "github.com/maraakiz/maraakiz-api/pkg/errors"
	"github.com/maraakiz/maraakiz-api/pkg/response"
)

// ResourceHandler wires HTTP endpoints to the teaching-library service.
type ResourceHandler struct {
	service *service.ResourceService
}

// NewResourceHandler creates a new handler.
func NewResourceHandler(svc *service.ResourceService) *ResourceHandler {
	return &ResourceHandler{service: svc}
}

// List godoc
// @Summary List the library
// @Description Returns the caller's resources, optionally filtered by category and folder
// @Tags Resources
// @Produce json
// @Param category query string false "Category (video, audio, image, document)"
// @Param folder query string false "Folder name"
// @Success 200 {object} response.Envelope
// @Router /resources [get]
func (h *ResourceHandler) List(c *gin.Context) {
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}

	resources, err := h.service.List(c.Request.Context(), claims.UserID, c.Query("category"), c.Query("folder"))
	if err != nil {
		response.Error(c, err)
		return
	}

	response.JSON(c, http.StatusOK, resources, nil)
}

// Folders godoc
// @Summary List library folders
// @Tags Resources
// @Produce json
// @Success 200 {object} response.Envelope
// @Router /resources/folders [get]
func (h *ResourceHandler) Folders(c *gin.Context) {
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}

	folders, err := h.service.Folders(c.Request.Context(), claims.UserID)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.JSON(c, http.StatusOK, folders, nil)
}

// Upload godoc
// @Summary Upload a library resource
// @Tags Resources
// @Accept multipart/form-data
// @Produce json
// @Param file formData file true "Resource file"
// @Param title formData string true "Title"
// @Param description formData string false "Description"
// @Param access formData string false "Access scope (private, public, students, specific)"
// @Param folder formData string false "Folder name"
// @Success 201 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Failure 413 {object} response.Envelope
// @Router /resources [post]
func (h *ResourceHandler) Upload(c *gin.Context) {
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

	resource, err := h.service.Upload(c.Request.Context(), claims.UserID, service.UploadResourceRequest{
		Title:             c.PostForm("title"),
		Description:       c.PostForm("description"),
		Access:            models.ResourceAccess(c.PostForm("access")),
		AllowedStudentIDs: c.PostFormArray("allowed_student_ids"),
		Tags:              c.PostFormArray("tags"),
		Folder:            c.PostForm("folder"),
		FileName:          header.Filename,
		MIMEType:          header.Header.Get("Content-Type"),
		Data:              data,
	})
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Created(c, resource)
}

// Get godoc
// @Summary Get a library resource
// @Description Returns the resource and counts the view
// @Tags Resources
// @Produce json
// @Param id path string true "Resource ID"
// @Success 200 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /resources/{id} [get]
func (h *ResourceHandler) Get(c *gin.Context) {
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}

	resource, err := h.service.Get(c.Request.Context(), c.Param("id"), claims.UserID)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.JSON(c, http.StatusOK, resource, nil)
}

// Update godoc
// @Summary Update a library resource
// @Tags Resources
// @Accept json
// @Produce json
// @Param id path string true "Resource ID"
// @Param payload body service.UpdateResourceRequest true "Resource payload"
// @Success 200 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /resources/{id} [put]
func (h *ResourceHandler) Update(c *gin.Context) {
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}

	var req service.UpdateResourceRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid resource payload"))
		return
	}

	resource, err := h.service.Update(c.Request.Context(), c.Param("id"), claims.UserID, req)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.JSON(c, http.StatusOK, resource, nil)
}

// Delete godoc
// @Summary Delete a library resource
// @Tags Resources
// @Produce json
// @Param id path string true "Resource ID"
// @Success 204 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /resources/{id} [delete]
func (h *ResourceHandler) Delete(c *gin.Context) {
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}

	if err := h.service.Delete(c.Request.Context(), c.Param("id"), claims.UserID); err != nil {
		response.Error(c, err)
		return
	}

	response.NoContent(c)
}

// StudentList godoc
// @Summary List resources visible to one student
// @Description Returns public and all-students resources plus the student's specific grants
// @Tags Resources
// @Produce json
// @Param studentId path string true "Student ID"
// @Success 200 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /resources/student/{studentId} [get]
func (h *ResourceHandler) StudentList(c *gin.Context) {
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}

	resources, err := h.service.StudentResources(c.Request.Context(), claims.UserID, c.Param("studentId"))
	if err != nil {
		response.Error(c, err)
		return
	}

	response.JSON(c, http.StatusOK, resources, nil)
}

// PublicList godoc
// @Summary List a profile's public resources
// @Description No authentication required; only approved profiles are served
// @Tags Resources
// @Produce json
// @Param id path string true "Profile ID"
// @Success 200 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /directory/{id}/resources [get]
func (h *ResourceHandler) PublicList(c *gin.Context) {
	resources, err := h.service.PublicList(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}

	response.JSON(c, http.StatusOK, resources, nil)
}
