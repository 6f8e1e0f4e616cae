package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/sgacad/sgacad-api/internal/models"
	"github.com/sgacad/sgacad-api/internal/service"
	appErrors "github.com/sgacad/sgacad-api/pkg/errors"
	"github.com/sgacad/sgacad-api/pkg/response"
)

// DisciplineHandler wires HTTP endpoints to the discipline service.
type DisciplineHandler struct {
	service *service.DisciplineService
	catalog *service.CatalogService
}

// NewDisciplineHandler creates a new handler.
func NewDisciplineHandler(svc *service.DisciplineService, catalog *service.CatalogService) *DisciplineHandler {
	return &DisciplineHandler{service: svc, catalog: catalog}
}

// List godoc
// @Summary List disciplines
// @Description List all disciplines with their prerequisites
// @Tags Disciplines
// @Produce json
// @Success 200 {object} response.Envelope
// @Router /disciplines [get]
func (h *DisciplineHandler) List(c *gin.Context) {
	disciplines, err := h.catalog.Disciplines(c.Request.Context())
	if err != nil {
		response.Error(c, err)
		return
	}

	response.List(c, disciplines, len(disciplines))
}

// Get godoc
// @Summary Get discipline
// @Description Get a discipline with its prerequisites
// @Tags Disciplines
// @Produce json
// @Param id path string true "Discipline id"
// @Success 200 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /disciplines/{id} [get]
func (h *DisciplineHandler) Get(c *gin.Context) {
	discipline, err := h.service.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}

	response.JSON(c, http.StatusOK, discipline)
}

// Sections godoc
// @Summary List discipline sections
// @Description List the sections offered for a discipline
// @Tags Disciplines
// @Produce json
// @Param id path string true "Discipline id"
// @Success 200 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /disciplines/{id}/sections [get]
func (h *DisciplineHandler) Sections(c *gin.Context) {
	id := c.Param("id")
	if _, err := h.service.Get(c.Request.Context(), id); err != nil {
		response.Error(c, err)
		return
	}

	sections, err := h.catalog.Sections(c.Request.Context(), models.SectionFilter{DisciplineID: id})
	if err != nil {
		response.Error(c, err)
		return
	}

	response.List(c, sections, len(sections))
}

// Create godoc
// @Summary Create discipline
// @Description Create a discipline with optional prerequisites
// @Tags Disciplines
// @Accept json
// @Produce json
// @Param payload body models.CreateDisciplineRequest true "Discipline payload"
// @Success 201 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Failure 409 {object} response.Envelope
// @Router /disciplines [post]
func (h *DisciplineHandler) Create(c *gin.Context) {
	var req models.CreateDisciplineRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid discipline payload"))
		return
	}

	discipline, err := h.service.Create(c.Request.Context(), req)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Created(c, discipline, "discipline created")
}

// Update godoc
// @Summary Update discipline
// @Description Update a discipline; a prerequisites array replaces the whole set
// @Tags Disciplines
// @Accept json
// @Produce json
// @Param id path string true "Discipline id"
// @Param payload body models.UpdateDisciplineRequest true "Update payload"
// @Success 200 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Failure 409 {object} response.Envelope
// @Router /disciplines/{id} [put]
func (h *DisciplineHandler) Update(c *gin.Context) {
	var req models.UpdateDisciplineRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid discipline payload"))
		return
	}

	discipline, err := h.service.Update(c.Request.Context(), c.Param("id"), req)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.JSON(c, http.StatusOK, discipline)
}

// Delete godoc
// @Summary Delete discipline
// @Description Remove a discipline not referenced by sections or prerequisites
// @Tags Disciplines
// @Produce json
// @Param id path string true "Discipline id"
// @Success 200 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Failure 409 {object} response.Envelope
// @Router /disciplines/{id} [delete]
func (h *DisciplineHandler) Delete(c *gin.Context) {
	if err := h.service.Delete(c.Request.Context(), c.Param("id")); err != nil {
		response.Error(c, err)
		return
	}

	response.Message(c, "discipline deleted")
}
