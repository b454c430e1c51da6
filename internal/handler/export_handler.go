package handler

import (
	"github.com/gin-gonic/gin"

	"github.com/campus-hq/timetable-api/internal/service"
	"github.com/campus-hq/timetable-api/pkg/response"
)

// ExportHandler streams rendered timetable files.
type ExportHandler struct {
	service *service.ExportService
}

// NewExportHandler constructs handler.
func NewExportHandler(svc *service.ExportService) *ExportHandler {
	return &ExportHandler{service: svc}
}

// WeeklyTimetable godoc
// @Summary Download the weekly timetable grid for a batch
// @Tags Export
// @Produce text/csv,application/pdf
// @Param id path string true "Batch ID"
// @Param format query string false "csv or pdf" default(csv)
// @Success 200 {file} file
// @Router /batches/{id}/timetable [get]
func (h *ExportHandler) WeeklyTimetable(c *gin.Context) {
	format := service.ExportFormat(c.DefaultQuery("format", "csv"))
	result, err := h.service.WeeklyTimetable(c.Request.Context(), c.Param("id"), format)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Download(c, result.Payload, result.Filename, result.ContentType)
}
