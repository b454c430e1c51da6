package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/campus-hq/timetable-api/internal/service"
	appErrors "github.com/campus-hq/timetable-api/pkg/errors"
	"github.com/campus-hq/timetable-api/pkg/response"
)

// ReferenceHandler manages supporting entities: time slots, faculty, batches,
// subjects and the academic calendar.
type ReferenceHandler struct {
	service *service.ReferenceService
}

// NewReferenceHandler constructs handler.
func NewReferenceHandler(svc *service.ReferenceService) *ReferenceHandler {
	return &ReferenceHandler{service: svc}
}

// ListTimeSlots godoc
// @Summary List time slots
// @Tags Reference
// @Produce json
// @Success 200 {object} response.Envelope
// @Router /time-slots [get]
func (h *ReferenceHandler) ListTimeSlots(c *gin.Context) {
	slots, err := h.service.ListTimeSlots(c.Request.Context())
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, slots, nil)
}

// CreateTimeSlot godoc
// @Summary Create time slot
// @Tags Reference
// @Accept json
// @Produce json
// @Param payload body service.TimeSlotRequest true "Slot payload"
// @Success 201 {object} response.Envelope
// @Router /time-slots [post]
func (h *ReferenceHandler) CreateTimeSlot(c *gin.Context) {
	var req service.TimeSlotRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid payload"))
		return
	}
	slot, err := h.service.CreateTimeSlot(c.Request.Context(), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, slot)
}

// UpdateTimeSlot godoc
// @Summary Update time slot
// @Tags Reference
// @Accept json
// @Produce json
// @Param id path string true "Slot ID"
// @Param payload body service.TimeSlotRequest true "Slot payload"
// @Success 200 {object} response.Envelope
// @Router /time-slots/{id} [put]
func (h *ReferenceHandler) UpdateTimeSlot(c *gin.Context) {
	var req service.TimeSlotRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid payload"))
		return
	}
	slot, err := h.service.UpdateTimeSlot(c.Request.Context(), c.Param("id"), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, slot, nil)
}

// DeleteTimeSlot godoc
// @Summary Delete time slot
// @Tags Reference
// @Param id path string true "Slot ID"
// @Success 204
// @Router /time-slots/{id} [delete]
func (h *ReferenceHandler) DeleteTimeSlot(c *gin.Context) {
	if err := h.service.DeleteTimeSlot(c.Request.Context(), c.Param("id")); err != nil {
		response.Error(c, err)
		return
	}
	response.NoContent(c)
}

// ListFaculty godoc
// @Summary List active faculty
// @Tags Reference
// @Produce json
// @Success 200 {object} response.Envelope
// @Router /faculty [get]
func (h *ReferenceHandler) ListFaculty(c *gin.Context) {
	list, err := h.service.ListFaculty(c.Request.Context())
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, list, nil)
}

// CreateFaculty godoc
// @Summary Create faculty member
// @Tags Reference
// @Accept json
// @Produce json
// @Param payload body service.FacultyRequest true "Faculty payload"
// @Success 201 {object} response.Envelope
// @Router /faculty [post]
func (h *ReferenceHandler) CreateFaculty(c *gin.Context) {
	var req service.FacultyRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid payload"))
		return
	}
	member, err := h.service.CreateFaculty(c.Request.Context(), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, member)
}

// UpdateFaculty godoc
// @Summary Update faculty member
// @Tags Reference
// @Accept json
// @Produce json
// @Param id path string true "Faculty ID"
// @Param payload body service.FacultyRequest true "Faculty payload"
// @Success 200 {object} response.Envelope
// @Router /faculty/{id} [put]
func (h *ReferenceHandler) UpdateFaculty(c *gin.Context) {
	var req service.FacultyRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid payload"))
		return
	}
	member, err := h.service.UpdateFaculty(c.Request.Context(), c.Param("id"), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, member, nil)
}

// ListBatches godoc
// @Summary List batches
// @Tags Reference
// @Produce json
// @Success 200 {object} response.Envelope
// @Router /batches [get]
func (h *ReferenceHandler) ListBatches(c *gin.Context) {
	list, err := h.service.ListBatches(c.Request.Context())
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, list, nil)
}

// CreateBatch godoc
// @Summary Create batch
// @Tags Reference
// @Accept json
// @Produce json
// @Param payload body service.BatchRequest true "Batch payload"
// @Success 201 {object} response.Envelope
// @Router /batches [post]
func (h *ReferenceHandler) CreateBatch(c *gin.Context) {
	var req service.BatchRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid payload"))
		return
	}
	batch, err := h.service.CreateBatch(c.Request.Context(), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, batch)
}

// ListSubjects godoc
// @Summary List subjects
// @Tags Reference
// @Produce json
// @Success 200 {object} response.Envelope
// @Router /subjects [get]
func (h *ReferenceHandler) ListSubjects(c *gin.Context) {
	list, err := h.service.ListSubjects(c.Request.Context())
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, list, nil)
}

// CreateSubject godoc
// @Summary Create subject
// @Tags Reference
// @Accept json
// @Produce json
// @Param payload body service.SubjectRequest true "Subject payload"
// @Success 201 {object} response.Envelope
// @Router /subjects [post]
func (h *ReferenceHandler) CreateSubject(c *gin.Context) {
	var req service.SubjectRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid payload"))
		return
	}
	subject, err := h.service.CreateSubject(c.Request.Context(), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, subject)
}

// Calendar godoc
// @Summary Get the academic calendar
// @Tags Calendar
// @Produce json
// @Success 200 {object} response.Envelope
// @Router /calendar [get]
func (h *ReferenceHandler) Calendar(c *gin.Context) {
	calendar, err := h.service.Calendar(c.Request.Context())
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, calendar, nil)
}

// CreateHoliday godoc
// @Summary Declare a holiday
// @Tags Calendar
// @Accept json
// @Produce json
// @Param payload body service.HolidayRequest true "Holiday payload"
// @Success 201 {object} response.Envelope
// @Router /calendar/holidays [post]
func (h *ReferenceHandler) CreateHoliday(c *gin.Context) {
	var req service.HolidayRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid payload"))
		return
	}
	holiday, err := h.service.CreateHoliday(c.Request.Context(), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, holiday)
}

// DeleteHoliday godoc
// @Summary Remove a holiday
// @Tags Calendar
// @Param id path string true "Holiday ID"
// @Success 204
// @Router /calendar/holidays/{id} [delete]
func (h *ReferenceHandler) DeleteHoliday(c *gin.Context) {
	if err := h.service.DeleteHoliday(c.Request.Context(), c.Param("id")); err != nil {
		response.Error(c, err)
		return
	}
	response.NoContent(c)
}

// CreateExamPeriod godoc
// @Summary Declare an exam period
// @Tags Calendar
// @Accept json
// @Produce json
// @Param payload body service.ExamPeriodRequest true "Exam period payload"
// @Success 201 {object} response.Envelope
// @Router /calendar/exam-periods [post]
func (h *ReferenceHandler) CreateExamPeriod(c *gin.Context) {
	var req service.ExamPeriodRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid payload"))
		return
	}
	period, err := h.service.CreateExamPeriod(c.Request.Context(), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, period)
}

// DeleteExamPeriod godoc
// @Summary Remove an exam period
// @Tags Calendar
// @Param id path string true "Exam period ID"
// @Success 204
// @Router /calendar/exam-periods/{id} [delete]
func (h *ReferenceHandler) DeleteExamPeriod(c *gin.Context) {
	if err := h.service.DeleteExamPeriod(c.Request.Context(), c.Param("id")); err != nil {
		response.Error(c, err)
		return
	}
	response.NoContent(c)
}
