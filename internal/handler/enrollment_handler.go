package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/sgacad/sgacad-api/internal/models"
	"github.com/sgacad/sgacad-api/internal/service"
	appErrors "github.com/sgacad/sgacad-api/pkg/errors"
	"github.com/sgacad/sgacad-api/pkg/response"
)

// EnrollmentHandler wires HTTP endpoints to the enrollment service.
type EnrollmentHandler struct {
	service *service.EnrollmentService
}

// NewEnrollmentHandler creates a new handler.
func NewEnrollmentHandler(svc *service.EnrollmentService) *EnrollmentHandler {
	return &EnrollmentHandler{service: svc}
}

// CreateEnrollmentRequest is the payload for requesting an enrollment.
type CreateEnrollmentRequest struct {
	StudentID string `json:"student_id" binding:"required,uuid"`
	SectionID string `json:"section_id" binding:"required,uuid"`
}

// Create godoc
// @Summary Request enrollment
// @Description Admit a student into a section when a seat is available
// @Tags Enrollments
// @Accept json
// @Produce json
// @Param payload body CreateEnrollmentRequest true "Enrollment payload"
// @Success 201 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Failure 403 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Failure 409 {object} response.Envelope
// @Router /enrollments [post]
func (h *EnrollmentHandler) Create(c *gin.Context) {
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}

	var req CreateEnrollmentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid enrollment payload"))
		return
	}

	enrollment, err := h.service.Enroll(c.Request.Context(), claims, req.StudentID, req.SectionID)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Created(c, enrollment, "enrollment created")
}

// List godoc
// @Summary List enrollments
// @Description List enrollments; non-admins see only their own
// @Tags Enrollments
// @Produce json
// @Param student_id query string false "Filter by student"
// @Param section_id query string false "Filter by section"
// @Param discipline_id query string false "Filter by discipline"
// @Param status query string false "Filter by status (ACTIVE, CANCELLED, COMPLETED)"
// @Success 200 {object} response.Envelope
// @Router /enrollments [get]
func (h *EnrollmentHandler) List(c *gin.Context) {
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}

	filter := models.EnrollmentFilter{
		StudentID:    c.Query("student_id"),
		SectionID:    c.Query("section_id"),
		DisciplineID: c.Query("discipline_id"),
		Status:       models.EnrollmentStatus(c.Query("status")),
	}

	enrollments, err := h.service.List(c.Request.Context(), claims, filter)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.List(c, enrollments, len(enrollments))
}

// Available godoc
// @Summary List available sections
// @Description List sections with free seats the calling student is not actively enrolled in
// @Tags Enrollments
// @Produce json
// @Success 200 {object} response.Envelope
// @Failure 403 {object} response.Envelope
// @Router /enrollments/available [get]
func (h *EnrollmentHandler) Available(c *gin.Context) {
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}

	sections, err := h.service.AvailableSections(c.Request.Context(), claims, claims.UserID)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.List(c, sections, len(sections))
}

// Get godoc
// @Summary Get enrollment
// @Description Get an enrollment with joined student and section data
// @Tags Enrollments
// @Produce json
// @Param id path string true "Enrollment id"
// @Success 200 {object} response.Envelope
// @Failure 403 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /enrollments/{id} [get]
func (h *EnrollmentHandler) Get(c *gin.Context) {
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}

	enrollment, err := h.service.Get(c.Request.Context(), claims, c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}

	response.JSON(c, http.StatusOK, enrollment)
}

// Cancel godoc
// @Summary Cancel enrollment
// @Description Mark an ACTIVE enrollment as CANCELLED, freeing its seat
// @Tags Enrollments
// @Produce json
// @Param id path string true "Enrollment id"
// @Success 200 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Failure 403 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /enrollments/{id} [delete]
func (h *EnrollmentHandler) Cancel(c *gin.Context) {
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}

	if err := h.service.Cancel(c.Request.Context(), claims, c.Param("id")); err != nil {
		response.Error(c, err)
		return
	}

	response.Message(c, "enrollment cancelled")
}
