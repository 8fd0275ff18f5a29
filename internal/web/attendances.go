package web

import (
	"bytes"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"rushweb/internal/attendance"
	"rushweb/internal/notify"
)

const xlsxContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"

func (h *Handler) loadMatrix(c *gin.Context) (attendance.Matrix, bool) {
	half, err := h.backend.GetHalfYearAttendances(h.backendContext(c))
	if err != nil {
		h.fail(c, err,
			"Attendance records are restricted to authenticated users",
			"Failed to load attendance records. Contact the dev.")
		return attendance.Matrix{}, false
	}
	return attendance.BuildMatrix(half.Users, half.Sessions, half.Attendances), true
}

func (h *Handler) halfYear(c *gin.Context) {
	m, ok := h.loadMatrix(c)
	if !ok {
		h.redirect(c, "/sessions")
		return
	}
	h.render(c, pageAttendances, "Attendance", gin.H{"Matrix": m})
}

func (h *Handler) exportHalfYear(c *gin.Context) {
	m, ok := h.loadMatrix(c)
	if !ok {
		h.redirect(c, "/attendances")
		return
	}
	var buf bytes.Buffer
	if err := attendance.ExportXLSX(&buf, m, h.dates); err != nil {
		h.logger.Error("attendance export failed", zap.Error(err))
		h.toast(c, notify.Error("Failed to export attendance. Contact the dev."))
		h.redirect(c, "/attendances")
		return
	}
	attachment(c, attendance.ExportFileName(h.now(), h.dates), xlsxContentType, buf.Bytes())
}
