package web

import (
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"rushweb/internal/auth"
	"rushweb/internal/notify"
	"rushweb/internal/route"
)

// returnPath resolves the signed redirect state, falling back to home.
func (h *Handler) returnPath(state string) string {
	if state == "" {
		return route.HomePath
	}
	from, err := auth.ParseRedirect(state, h.state.Key, h.state.Issuer)
	if err != nil {
		h.logger.Debug("redirect state rejected", zap.Error(err))
		return route.HomePath
	}
	return from
}

func (h *Handler) signInPage(c *gin.Context) {
	state := c.Query("from")
	if auth.StateFrom(c).Authenticated {
		h.redirect(c, h.returnPath(state))
		return
	}
	h.render(c, pageSignIn, "Sign in", gin.H{
		"RedirectState": state,
		"Firebase":      h.firebase,
	})
}

type signInForm struct {
	IDToken string `form:"id_token" binding:"required"`
	State   string `form:"state"`
}

func (h *Handler) signIn(c *gin.Context) {
	var form signInForm
	if err := c.ShouldBind(&form); err != nil {
		h.toast(c, notify.Warning("Google sign-in did not complete."))
		h.redirect(c, route.SignInURL(c.PostForm("state")))
		return
	}

	session, err := h.sessions.SignIn(c.Request.Context(), form.IDToken)
	if err != nil {
		h.fail(c, err, "Sign-in was rejected.", "Failed to sign in. Contact the dev.")
		h.redirect(c, route.SignInURL(form.State))
		return
	}
	h.cookie.Write(c, session.Token())
	h.logger.Info("signed in", zap.String("user", session.State().UserID))
	h.toast(c, notify.Success("Signed in."))
	h.redirect(c, h.returnPath(form.State))
}

func (h *Handler) signOut(c *gin.Context) {
	if session := auth.SessionFrom(c); session != nil {
		token := session.Token()
		_ = session.Dispatch(c.Request.Context(), auth.SignOut{})
		if token != "" {
			h.sessions.Forget(token)
		}
	}
	if token := h.cookie.Read(c); token != "" {
		h.sessions.Forget(token)
	}
	h.cookie.Clear(c)
	h.toast(c, notify.Info("Signed out."))
	h.redirect(c, route.HomePath)
}
