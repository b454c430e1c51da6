package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/campus-hq/timetable-api/internal/service"
	"github.com/campus-hq/timetable-api/pkg/response"
)

// UndoHandler exposes the time-bounded undo endpoints.
type UndoHandler struct {
	service *service.ScheduleService
}

// NewUndoHandler constructs handler.
func NewUndoHandler(svc *service.ScheduleService) *UndoHandler {
	return &UndoHandler{service: svc}
}

// Execute godoc
// @Summary Execute a pending undo operation
// @Tags Undo
// @Produce json
// @Param id path string true "Undo operation ID"
// @Success 200 {object} response.Envelope
// @Router /undo/{id} [post]
func (h *UndoHandler) Execute(c *gin.Context) {
	result, err := h.service.Undo(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, result, nil)
}

// Status godoc
// @Summary Report the remaining countdown for a pending undo operation
// @Tags Undo
// @Produce json
// @Param id path string true "Undo operation ID"
// @Success 200 {object} response.Envelope
// @Router /undo/{id} [get]
func (h *UndoHandler) Status(c *gin.Context) {
	status, err := h.service.UndoStatus(c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, status, nil)
}
