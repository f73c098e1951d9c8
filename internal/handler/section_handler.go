package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/college-enroll-api/internal/models"
	"github.com/noah-isme/college-enroll-api/internal/service"
	"github.com/noah-isme/college-enroll-api/pkg/response"
)

// SectionHandler exposes read-only section registry endpoints.
type SectionHandler struct {
	sections *service.SectionService
}

// NewSectionHandler constructs SectionHandler.
func NewSectionHandler(sections *service.SectionService) *SectionHandler {
	return &SectionHandler{sections: sections}
}

// ListAvailable godoc
// @Summary List sections with seats remaining
// @Tags Sections
// @Produce json
// @Param academicYear query string false "Filter by academic year"
// @Param semester query string false "Filter by semester"
// @Param subjectId query string false "Filter by subject"
// @Success 200 {object} response.Envelope
// @Router /sections [get]
func (h *SectionHandler) ListAvailable(c *gin.Context) {
	filter := models.SectionFilter{
		AcademicYear: c.Query("academicYear"),
		Semester:     c.Query("semester"),
		SubjectID:    c.Query("subjectId"),
	}
	sections, err := h.sections.ListAvailable(c.Request.Context(), filter)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, sections, nil)
}

// Get godoc
// @Summary Get a section with derived seat counts
// @Tags Sections
// @Produce json
// @Param id path string true "Section ID"
// @Success 200 {object} response.Envelope
// @Router /sections/{id} [get]
func (h *SectionHandler) Get(c *gin.Context) {
	section, err := h.sections.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, section, nil)
}

// Capacity godoc
// @Summary Get the current capacity snapshot for a section
// @Tags Sections
// @Produce json
// @Param id path string true "Section ID"
// @Success 200 {object} response.Envelope
// @Router /sections/{id}/capacity [get]
func (h *SectionHandler) Capacity(c *gin.Context) {
	snapshot, err := h.sections.Capacity(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, snapshot, nil)
}
