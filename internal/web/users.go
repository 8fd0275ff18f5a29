package web

import (
	"strings"

	"github.com/gin-gonic/gin"

	"rushweb/internal/attendance"
	"rushweb/internal/auth"
	"rushweb/internal/notify"
	"rushweb/internal/rushclient"
)

func (h *Handler) userList(c *gin.Context) {
	h.renderUserList(c, false)
}

func (h *Handler) adminUserList(c *gin.Context) {
	h.renderUserList(c, true)
}

func (h *Handler) renderUserList(c *gin.Context, admin bool) {
	page := pageParam(c)
	result, err := h.backend.ListUsers(h.backendContext(c), rushclient.PageOffset(page, h.pageSize), h.pageSize)
	if err != nil {
		h.fail(c, err,
			"User list is restricted to authenticated users",
			"Failed to retrieve users. Contact the dev.")
		result = rushclient.Page[rushclient.User]{IsEnd: true}
	}
	h.render(c, pageUsers, "Users", gin.H{
		"Admin": admin,
		"Users": result.Items,
		"Pager": newPager(c.Request.URL.Path, page, result.IsEnd, result.TotalCount),
	})
}

type newUserForm struct {
	Name       string  `form:"name" binding:"required,max=50"`
	Generation float64 `form:"generation" binding:"gt=0"`
	Email      string  `form:"email" binding:"omitempty,email"`
	IsActive   bool    `form:"is_active"`
}

func (h *Handler) addUser(c *gin.Context) {
	var form newUserForm
	if err := c.ShouldBind(&form); err != nil {
		h.toast(c, notify.Warning("Name and generation are required."))
		h.redirect(c, "/admin/users")
		return
	}
	err := h.backend.AddUser(h.backendContext(c), rushclient.NewUser{
		Name:       strings.TrimSpace(form.Name),
		Generation: form.Generation,
		IsActive:   form.IsActive,
		Email:      strings.TrimSpace(form.Email),
	})
	if err != nil {
		h.fail(c, err,
			"Adding users is restricted to admin users",
			"Failed to add the user. Contact the dev.")
	} else {
		h.toast(c, notify.Success("User added."))
	}
	h.redirect(c, "/admin/users")
}

func (h *Handler) myPage(c *gin.Context) {
	userID := auth.StateFrom(c).UserID
	ctx := h.backendContext(c)

	user, err := h.backend.GetUser(ctx, userID)
	if err != nil {
		h.fail(c, err, "Requires login.", "Failed to load your profile. Contact the dev.")
		h.redirect(c, "/sessions")
		return
	}
	attendances, err := h.backend.GetUserAttendances(ctx, userID)
	if err != nil {
		h.fail(c, err, "Requires login.", "Failed to load your attendances. Contact the dev.")
		h.redirect(c, "/sessions")
		return
	}

	h.render(c, pageMe, "My page", gin.H{
		"User":        user,
		"Attendances": attendances,
		"TotalScore":  attendance.TotalScore(attendances),
	})
}
