package handler

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/maraakiz/maraakiz-api/internal/models"
	"github.com/maraakiz/maraakiz-api/internal/service"
	"github.com/maraakiz/maraakiz-api/pkg/response"
)

// DirectoryHandler serves the public tutor directory.
type DirectoryHandler struct {
	service *service.DirectoryService
}

// NewDirectoryHandler creates a new handler.
func NewDirectoryHandler(svc *service.DirectoryService) *DirectoryHandler {
	return &DirectoryHandler{service: svc}
}

// Search godoc
// @Summary Search the directory
// @Description List approved profiles matching the active tag filters. Repeating a query key ORs its values; different keys are ANDed.
// @Tags Directory
// @Produce json
// @Param type query string false "PROFESSOR or INSTITUTE"
// @Param subject query []string false "Subject tags"
// @Param format query []string false "Format tags"
// @Param mode query []string false "Mode tags"
// @Param level query []string false "Level tags"
// @Param language query []string false "Language tags"
// @Param audience query []string false "Audience tags"
// @Param page query int false "Page number"
// @Param page_size query int false "Page size"
// @Success 200 {object} response.Envelope
// @Router /directory [get]
func (h *DirectoryHandler) Search(c *gin.Context) {
	page, _ := strconv.Atoi(c.DefaultQuery("page", "1"))
	size, _ := strconv.Atoi(c.DefaultQuery("page_size", "0"))

	filter := models.ProfileFilter{
		Subjects:  c.QueryArray("subject"),
		Formats:   c.QueryArray("format"),
		Modes:     c.QueryArray("mode"),
		Levels:    c.QueryArray("level"),
		Languages: c.QueryArray("language"),
		Audiences: c.QueryArray("audience"),
		Type:      c.Query("type"),
		Page:      page,
		PageSize:  size,
	}

	profiles, pagination, err := h.service.Search(c.Request.Context(), filter)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.JSON(c, http.StatusOK, profiles, pagination)
}

// Get godoc
// @Summary Get a public profile
// @Description Fetch one approved profile by ID
// @Tags Directory
// @Produce json
// @Param id path string true "Profile ID"
// @Success 200 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /directory/{id} [get]
func (h *DirectoryHandler) Get(c *gin.Context) {
	profile, err := h.service.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}

	response.JSON(c, http.StatusOK, profile, nil)
}
