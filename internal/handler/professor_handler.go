package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/sgacad/sgacad-api/internal/models"
	"github.com/sgacad/sgacad-api/internal/service"
	appErrors "github.com/sgacad/sgacad-api/pkg/errors"
	"github.com/sgacad/sgacad-api/pkg/response"
)

// ProfessorHandler wires HTTP endpoints to the professor service.
type ProfessorHandler struct {
	service  *service.ProfessorService
	sections *service.SectionService
}

// NewProfessorHandler creates a new handler.
func NewProfessorHandler(svc *service.ProfessorService, sections *service.SectionService) *ProfessorHandler {
	return &ProfessorHandler{service: svc, sections: sections}
}

// List godoc
// @Summary List professors
// @Description List professors with optional search
// @Tags Professors
// @Produce json
// @Param search query string false "Search by name, email or SIAPE"
// @Success 200 {object} response.Envelope
// @Router /professors [get]
func (h *ProfessorHandler) List(c *gin.Context) {
	filter := models.ProfessorFilter{Search: c.Query("search")}

	professors, err := h.service.List(c.Request.Context(), filter)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.List(c, professors, len(professors))
}

// Get godoc
// @Summary Get professor
// @Description Get a professor by id
// @Tags Professors
// @Produce json
// @Param id path string true "Professor id"
// @Success 200 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /professors/{id} [get]
func (h *ProfessorHandler) Get(c *gin.Context) {
	professor, err := h.service.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}

	response.JSON(c, http.StatusOK, professor)
}

// Update godoc
// @Summary Update professor
// @Description Update a professor's profile or SIAPE
// @Tags Professors
// @Accept json
// @Produce json
// @Param id path string true "Professor id"
// @Param payload body models.UpdateProfessorRequest true "Update payload"
// @Success 200 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Failure 409 {object} response.Envelope
// @Router /professors/{id} [put]
func (h *ProfessorHandler) Update(c *gin.Context) {
	var req models.UpdateProfessorRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid professor payload"))
		return
	}

	professor, err := h.service.Update(c.Request.Context(), c.Param("id"), req)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.JSON(c, http.StatusOK, professor)
}

// Delete godoc
// @Summary Delete professor
// @Description Remove a professor with no assigned sections
// @Tags Professors
// @Produce json
// @Param id path string true "Professor id"
// @Success 200 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Failure 409 {object} response.Envelope
// @Router /professors/{id} [delete]
func (h *ProfessorHandler) Delete(c *gin.Context) {
	if err := h.service.Delete(c.Request.Context(), c.Param("id")); err != nil {
		response.Error(c, err)
		return
	}

	response.Message(c, "professor deleted")
}

// Sections godoc
// @Summary List professor sections
// @Description List sections taught by a professor
// @Tags Professors
// @Produce json
// @Param id path string true "Professor id"
// @Success 200 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /professors/{id}/sections [get]
func (h *ProfessorHandler) Sections(c *gin.Context) {
	id := c.Param("id")
	if _, err := h.service.Get(c.Request.Context(), id); err != nil {
		response.Error(c, err)
		return
	}

	sections, err := h.sections.List(c.Request.Context(), models.SectionFilter{ProfessorID: id})
	if err != nil {
		response.Error(c, err)
		return
	}

	response.List(c, sections, len(sections))
}
