package handler

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/sgacad/sgacad-api/internal/models"
	"github.com/sgacad/sgacad-api/internal/service"
	appErrors "github.com/sgacad/sgacad-api/pkg/errors"
	"github.com/sgacad/sgacad-api/pkg/response"
)

// SectionHandler wires HTTP endpoints to the section service.
type SectionHandler struct {
	service *service.SectionService
	catalog *service.CatalogService
	exports *service.ExportService
}

// NewSectionHandler creates a new handler.
func NewSectionHandler(svc *service.SectionService, catalog *service.CatalogService, exports *service.ExportService) *SectionHandler {
	return &SectionHandler{service: svc, catalog: catalog, exports: exports}
}

// List godoc
// @Summary List sections
// @Description List sections with catalog data and live seat counts
// @Tags Sections
// @Produce json
// @Param discipline_id query string false "Filter by discipline"
// @Param professor_id query string false "Filter by professor"
// @Param day query int false "Filter by day (1-7)"
// @Param shift query int false "Filter by shift (1-3)"
// @Param available query bool false "Only sections with remaining seats"
// @Success 200 {object} response.Envelope
// @Router /sections [get]
func (h *SectionHandler) List(c *gin.Context) {
	filter := models.SectionFilter{
		DisciplineID: c.Query("discipline_id"),
		ProfessorID:  c.Query("professor_id"),
	}
	if raw := c.Query("day"); raw != "" {
		day, err := strconv.Atoi(raw)
		if err != nil {
			response.Error(c, appErrors.Clone(appErrors.ErrValidation, "day must be an integer"))
			return
		}
		filter.Day = &day
	}
	if raw := c.Query("shift"); raw != "" {
		shift, err := strconv.Atoi(raw)
		if err != nil {
			response.Error(c, appErrors.Clone(appErrors.ErrValidation, "shift must be an integer"))
			return
		}
		filter.Shift = &shift
	}
	filter.OnlyAvailable = c.Query("available") == "true"

	sections, err := h.catalog.Sections(c.Request.Context(), filter)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.List(c, sections, len(sections))
}

// Get godoc
// @Summary Get section
// @Description Get a section with catalog data and live seat counts
// @Tags Sections
// @Produce json
// @Param id path string true "Section id"
// @Success 200 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /sections/{id} [get]
func (h *SectionHandler) Get(c *gin.Context) {
	section, err := h.service.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}

	response.JSON(c, http.StatusOK, section)
}

// Create godoc
// @Summary Create section
// @Description Open a section; the code is derived from day and shift
// @Tags Sections
// @Accept json
// @Produce json
// @Param payload body models.CreateSectionRequest true "Section payload"
// @Success 201 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Failure 409 {object} response.Envelope
// @Router /sections [post]
func (h *SectionHandler) Create(c *gin.Context) {
	var req models.CreateSectionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid section payload"))
		return
	}

	section, err := h.service.Create(c.Request.Context(), req)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Created(c, section, "section created")
}

// Update godoc
// @Summary Update section
// @Description Update a section; seats cannot drop below active enrollments
// @Tags Sections
// @Accept json
// @Produce json
// @Param id path string true "Section id"
// @Param payload body models.UpdateSectionRequest true "Update payload"
// @Success 200 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Failure 409 {object} response.Envelope
// @Router /sections/{id} [put]
func (h *SectionHandler) Update(c *gin.Context) {
	var req models.UpdateSectionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid section payload"))
		return
	}

	section, err := h.service.Update(c.Request.Context(), c.Param("id"), req)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.JSON(c, http.StatusOK, section)
}

// Delete godoc
// @Summary Delete section
// @Description Remove a section without active enrollments
// @Tags Sections
// @Produce json
// @Param id path string true "Section id"
// @Success 200 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Failure 409 {object} response.Envelope
// @Router /sections/{id} [delete]
func (h *SectionHandler) Delete(c *gin.Context) {
	if err := h.service.Delete(c.Request.Context(), c.Param("id")); err != nil {
		response.Error(c, err)
		return
	}

	response.Message(c, "section deleted")
}

// Roster godoc
// @Summary Get section roster
// @Description List enrolled students; admins or the section's professor only
// @Tags Sections
// @Produce json
// @Param id path string true "Section id"
// @Success 200 {object} response.Envelope
// @Failure 403 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /sections/{id}/students [get]
func (h *SectionHandler) Roster(c *gin.Context) {
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}

	roster, err := h.service.Roster(c.Request.Context(), claims, c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}

	response.List(c, roster, len(roster))
}

// ExportRoster godoc
// @Summary Export section roster
// @Description Download the roster as CSV or PDF
// @Tags Sections
// @Produce text/csv
// @Produce application/pdf
// @Param id path string true "Section id"
// @Param format query string false "Export format (csv or pdf)" default(csv)
// @Success 200 {file} file
// @Failure 403 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /sections/{id}/roster/export [get]
func (h *SectionHandler) ExportRoster(c *gin.Context) {
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}

	format := service.ExportFormat(c.DefaultQuery("format", "csv"))
	result, err := h.exports.Roster(c.Request.Context(), claims, c.Param("id"), format)
	if err != nil {
		response.Error(c, err)
		return
	}

	c.Header("Content-Disposition", `attachment; filename="`+result.Filename+`"`)
	c.Data(http.StatusOK, result.ContentType, result.Payload)
}
