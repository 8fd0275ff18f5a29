package web

import (
	"context"
	"errors"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"rushweb/internal/auth"
	"rushweb/internal/notify"
	"rushweb/internal/qrcode"
	"rushweb/internal/rushclient"
)

// startsAtLayout is the value format of <input type="datetime-local">.
const startsAtLayout = "2006-01-02T15:04"

func (h *Handler) sessionList(c *gin.Context) {
	h.renderSessionList(c, false)
}

func (h *Handler) adminSessionList(c *gin.Context) {
	h.renderSessionList(c, true)
}

func (h *Handler) renderSessionList(c *gin.Context, admin bool) {
	page := pageParam(c)
	result, err := h.backend.ListSessions(h.backendContext(c), rushclient.PageOffset(page, h.pageSize), h.pageSize)
	if err != nil {
		h.fail(c, err,
			"Session list is restricted to authenticated users",
			"Failed to retrieve sessions. Contact the dev.")
		result = rushclient.Page[rushclient.Session]{IsEnd: true}
	}

	detailBase := "/sessions/"
	if admin {
		detailBase = "/admin/sessions/"
	}
	h.render(c, pageSessions, "Sessions", gin.H{
		"Admin":      admin,
		"Sessions":   result.Items,
		"DetailBase": detailBase,
		"Pager":      newPager(c.Request.URL.Path, page, result.IsEnd, result.TotalCount),
		"Now":        h.now().In(h.dates.Location()).Format(startsAtLayout),
	})
}

func (h *Handler) listPath(c *gin.Context) string {
	if auth.StateFrom(c).IsAdmin() {
		return "/admin/sessions"
	}
	return "/sessions"
}

func (h *Handler) detailPath(c *gin.Context, id string) string {
	return h.listPath(c) + "/" + id
}

// failSession reports a failed session load. A deleted session is not an outage.
func (h *Handler) failSession(c *gin.Context, err error) {
	if rushclient.IsNotFound(err) {
		h.toast(c, notify.Warning("Session not found."))
		return
	}
	h.fail(c, err,
		"Session retrieval is restricted to authenticated users",
		"Failed to retrieve the session. Contact the dev.")
}

// qrPanel is the attendance QR section of a session page.
type qrPanel struct {
	Shown       bool
	HasForm     bool
	ImageURL    string
	EditURL     string
	FormURL     string
	DownloadURL string
}

func (h *Handler) sessionDetail(c *gin.Context) {
	id := strings.TrimSpace(c.Param("id"))
	if id == "" {
		h.toast(c, notify.Warning("Session not found."))
		h.redirect(c, h.listPath(c))
		return
	}

	ctx := h.backendContext(c)
	session, err := h.backend.GetSession(ctx, id)
	if err != nil {
		h.failSession(c, err)
		h.redirect(c, h.listPath(c))
		return
	}

	state := auth.StateFrom(c)
	data := gin.H{
		"Session":  session,
		"ListPath": h.listPath(c),
		"Admin":    state.IsAdmin(),
	}

	if state.Authenticated {
		attendances, err := h.backend.GetSessionAttendances(ctx, id)
		if err != nil {
			h.fail(c, err, "Requires login.", "Failed to load attendance list. Contact the dev.")
		}
		sortState := parseSort(c.Request.URL.Query())
		data["Attendances"] = sortState.Sort(attendances)
		data["SortHeaders"] = sortHeaders(c.Request.URL.Path, sortState)
	}

	if state.IsAdmin() {
		users, err := h.backend.ListAllUsers(ctx)
		if err != nil {
			h.fail(c, err, "Failed to fetch users. Contact the dev.", "Failed to fetch users. Contact the dev.")
		}
		data["Users"] = users
		data["ActionBase"] = "/admin/sessions/" + id
		data["LateApply"] = session.AttendanceStatus == rushclient.AttendanceStatusApplied
	}

	data["QR"] = h.qrPanel(session, state.IsAdmin())
	h.render(c, pageSession, session.Name, data)
}

func (h *Handler) qrPanel(session rushclient.Session, admin bool) qrPanel {
	panel := qrPanel{Shown: session.UsesForm(), HasForm: session.HasForm()}
	if !panel.Shown || !panel.HasForm {
		return panel
	}
	panel.FormURL = session.GoogleFormURI
	if admin {
		panel.EditURL = session.FormEditURL()
		panel.DownloadURL = "/admin/sessions/" + session.ID + "/qr.png"
	}
	// The caption is only drawn on the printable download.
	png, err := qrcode.Render(session.GoogleFormURI, qrcode.DisplaySize)
	if err != nil {
		h.logger.Warn("qr not rendered", zap.String("session", session.ID), zap.Error(err))
		return panel
	}
	panel.ImageURL = qrcode.DataURL(png)
	return panel
}

func (h *Handler) downloadQR(c *gin.Context) {
	id := c.Param("id")
	session, err := h.backend.GetSession(h.backendContext(c), id)
	if err != nil {
		h.failSession(c, err)
		h.redirect(c, "/admin/sessions")
		return
	}
	if !session.HasForm() {
		h.toast(c, notify.Warning("Create the attendance form first."))
		h.redirect(c, "/admin/sessions/"+id)
		return
	}
	img, err := qrcode.Compose(session.GoogleFormURI, qrcode.DownloadSize, h.dates.MonthOrdinal(session.StartsAt))
	if err != nil {
		h.logger.Error("qr not rendered", zap.String("session", id), zap.Error(err))
		h.toast(c, notify.Error("Failed to draw the QR code. Contact the dev."))
		h.redirect(c, "/admin/sessions/"+id)
		return
	}
	attachment(c, img.FileName, "image/png", img.PNG)
}

type newSessionForm struct {
	Name        string `form:"name" binding:"required,max=100"`
	Description string `form:"description"`
	StartsAt    string `form:"starts_at" binding:"required"`
	// Score may be negative for penalty sessions.
	Score       string `form:"score"`
}

var errBadScore = errors.New("score is not a whole number")

func (f newSessionForm) score() (int, error) {
	v := strings.TrimSpace(f.Score)
	if v == "" {
		return 0, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0, errBadScore
	}
	return n, nil
}

func (h *Handler) createSession(c *gin.Context) {
	var form newSessionForm
	if err := c.ShouldBind(&form); err != nil {
		h.toast(c, notify.Warning("Name and start time are required."))
		h.redirect(c, "/admin/sessions")
		return
	}
	startsAt, err := time.ParseInLocation(startsAtLayout, form.StartsAt, h.dates.Location())
	if err != nil {
		h.toast(c, notify.Warning("Invalid start time."))
		h.redirect(c, "/admin/sessions")
		return
	}
	score, err := form.score()
	if err != nil {
		h.toast(c, notify.Warning("Score must be a whole number."))
		h.redirect(c, "/admin/sessions")
		return
	}

	id, err := h.backend.CreateSession(h.backendContext(c), rushclient.NewSession{
		Name:        strings.TrimSpace(form.Name),
		Description: form.Description,
		StartsAt:    startsAt,
		Score:       score,
	})
	if err != nil {
		h.fail(c, err,
			"Session creation is restricted to admin users",
			"Failed to create the session. Contact the dev.")
		h.redirect(c, "/admin/sessions")
		return
	}
	h.toast(c, notify.Success("Session created."))
	h.redirect(c, "/admin/sessions/"+id)
}

func (h *Handler) deleteSession(c *gin.Context) {
	id := c.Param("id")
	if err := h.backend.DeleteSession(h.backendContext(c), id); err != nil {
		h.fail(c, err,
			"Session deletion is restricted to admin users",
			"Failed to delete the session. Contact the dev.")
		h.redirect(c, "/admin/sessions/"+id)
		return
	}
	h.toast(c, notify.Success("Session deleted."))
	h.redirect(c, "/admin/sessions")
}

func (h *Handler) createForm(c *gin.Context) {
	id := c.Param("id")
	if _, err := h.backend.CreateAttendanceForm(h.backendContext(c), id); err != nil {
		h.fail(c, err,
			"Form creation is restricted to authenticated users",
			"Failed to create a form. Contact the dev.")
	}
	h.redirect(c, "/admin/sessions/"+id)
}

func (h *Handler) applyByForm(c *gin.Context) {
	id := c.Param("id")
	if err := h.backend.ApplyAttendanceByForm(h.backendContext(c), id); err != nil {
		h.fail(c, err,
			"Closing attendance is restricted to admin users",
			"Failed to apply the form attendance. Contact the dev.")
	} else {
		h.toast(c, notify.Success("Attendance applied from the form."))
	}
	h.redirect(c, "/admin/sessions/"+id)
}

var errNoUsersSelected = errors.New("no users selected")

func selectedUsers(c *gin.Context) ([]string, error) {
	var ids []string
	for _, id := range c.PostFormArray("user_id") {
		if id = strings.TrimSpace(id); id != "" {
			ids = append(ids, id)
		}
	}
	if len(ids) == 0 {
		return nil, errNoUsersSelected
	}
	return ids, nil
}

func (h *Handler) markPresent(c *gin.Context) {
	h.applyUsers(c, h.backend.MarkUsersAsPresent, "Attendances added.")
}

func (h *Handler) lateApply(c *gin.Context) {
	h.applyUsers(c, h.backend.LateApplyAttendance, "Late attendances applied.")
}

func (h *Handler) applyUsers(c *gin.Context, apply func(ctx context.Context, id string, userIDs []string) error, done string) {
	id := c.Param("id")
	back := "/admin/sessions/" + id

	userIDs, err := selectedUsers(c)
	if err != nil {
		h.toast(c, notify.Warning("Select at least one user."))
		h.redirect(c, back)
		return
	}
	if err := apply(h.backendContext(c), id, userIDs); err != nil {
		h.fail(c, err,
			"Manual attendance application is restricted to admins.",
			"Failed to apply attendances. Contact the dev.")
		h.redirect(c, back)
		return
	}
	h.toast(c, notify.Success(done))
	h.redirect(c, back)
}
