package handler

import (
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/campus-hq/timetable-api/internal/dto"
	"github.com/campus-hq/timetable-api/internal/models"
	"github.com/campus-hq/timetable-api/internal/service"
	appErrors "github.com/campus-hq/timetable-api/pkg/errors"
	"github.com/campus-hq/timetable-api/pkg/response"
)

// ScheduleHandler manages the scheduling pipeline endpoints.
type ScheduleHandler struct {
	service *service.ScheduleService
}

// NewScheduleHandler constructs handler.
func NewScheduleHandler(svc *service.ScheduleService) *ScheduleHandler {
	return &ScheduleHandler{service: svc}
}

// List godoc
// @Summary List scheduled entries
// @Tags Schedule
// @Produce json
// @Param batchId query string false "Filter by batch"
// @Param facultyId query string false "Filter by faculty"
// @Param subjectId query string false "Filter by subject"
// @Param dayOfWeek query string false "Filter by day"
// @Param timeSlotId query string false "Filter by time slot"
// @Param activeOnly query bool false "Only active entries"
// @Param page query int false "Page"
// @Param limit query int false "Page size"
// @Success 200 {object} response.Envelope
// @Router /schedule/entries [get]
func (h *ScheduleHandler) List(c *gin.Context) {
	var filter models.EntryFilter
	filter.BatchID = c.Query("batchId")
	filter.FacultyID = c.Query("facultyId")
	filter.SubjectID = c.Query("subjectId")
	filter.DayOfWeek = strings.ToUpper(c.Query("dayOfWeek"))
	filter.TimeSlotID = c.Query("timeSlotId")
	filter.ActiveOnly = c.DefaultQuery("activeOnly", "true") == "true"
	if page, err := strconv.Atoi(c.DefaultQuery("page", "1")); err == nil {
		filter.Page = page
	}
	if limit, err := strconv.Atoi(c.DefaultQuery("limit", "20")); err == nil {
		filter.PageSize = limit
	}
	filter.SortBy = c.Query("sort")
	filter.SortOrder = c.Query("order")

	entries, pagination, err := h.service.List(c.Request.Context(), filter)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, entries, pagination)
}

// Check godoc
// @Summary Check a candidate entry for conflicts
// @Tags Schedule
// @Accept json
// @Produce json
// @Param payload body dto.CheckConflictsRequest true "Candidate payload"
// @Success 200 {object} response.Envelope
// @Router /schedule/check [post]
func (h *ScheduleHandler) Check(c *gin.Context) {
	var req dto.CheckConflictsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid payload"))
		return
	}
	conflicts, err := h.service.CheckConflicts(c.Request.Context(), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, dto.CheckConflictsResponse{Conflicts: conflicts}, nil)
}

// Expand godoc
// @Summary Expand a recurrence rule into dated occurrences
// @Tags Schedule
// @Accept json
// @Produce json
// @Param payload body dto.ExpandRequest true "Rule payload"
// @Success 200 {object} response.Envelope
// @Router /schedule/expand [post]
func (h *ScheduleHandler) Expand(c *gin.Context) {
	var req dto.ExpandRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid payload"))
		return
	}
	occurrences, err := h.service.Expand(c.Request.Context(), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, dto.ExpandResponse{Occurrences: occurrences}, nil)
}

// Resolve godoc
// @Summary Suggest conflict-free placements for a candidate
// @Tags Schedule
// @Accept json
// @Produce json
// @Param payload body dto.ResolveRequest true "Resolve payload"
// @Success 200 {object} response.Envelope
// @Router /schedule/resolve [post]
func (h *ScheduleHandler) Resolve(c *gin.Context) {
	var req dto.ResolveRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid payload"))
		return
	}
	solutions, err := h.service.Resolve(c.Request.Context(), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, dto.ResolveResponse{Solutions: solutions}, nil)
}

// Commit godoc
// @Summary Commit candidate entries, optionally expanding a recurrence rule
// @Tags Schedule
// @Accept json
// @Produce json
// @Param payload body dto.CommitRequest true "Commit payload"
// @Success 201 {object} response.Envelope
// @Router /schedule/commit [post]
func (h *ScheduleHandler) Commit(c *gin.Context) {
	var req dto.CommitRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid payload"))
		return
	}
	result, err := h.service.Commit(c.Request.Context(), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, result)
}

// Update godoc
// @Summary Update a scheduled entry
// @Tags Schedule
// @Accept json
// @Produce json
// @Param id path string true "Entry ID"
// @Param force query bool false "Commit despite conflicts"
// @Param payload body service.UpdateEntryRequest true "Entry payload"
// @Success 200 {object} response.Envelope
// @Router /schedule/entries/{id} [put]
func (h *ScheduleHandler) Update(c *gin.Context) {
	var req service.UpdateEntryRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid payload"))
		return
	}
	force := c.Query("force") == "true"
	entry, err := h.service.Update(c.Request.Context(), c.Param("id"), req, force)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, entry, nil)
}

// Delete godoc
// @Summary Soft-delete a scheduled entry
// @Tags Schedule
// @Produce json
// @Param id path string true "Entry ID"
// @Success 200 {object} response.Envelope
// @Router /schedule/entries/{id} [delete]
func (h *ScheduleHandler) Delete(c *gin.Context) {
	undoID, err := h.service.Delete(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, gin.H{"undoOperationId": undoID}, nil)
}
