package http

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/aibekov/fitplanner/internal/domain"
	"github.com/aibekov/fitplanner/internal/log"
	"github.com/aibekov/fitplanner/internal/queue"
)

// OAuthStart godoc
// @Summary Redirect to the identity provider
// @Tags auth
// @Param provider path string true "google or github"
// @Success 302
// @Failure 404 {object} map[string]string
// @Router /api/auth/oauth/{provider} [get]
func (h *Handler) OAuthStart(c *gin.Context) {
	p, ok := h.Providers[c.Param("provider")]
	if !ok {
		c.JSON(http.StatusNotFound, gin.H{"error": "unknown provider"})
		return
	}
	state := h.State.Make(uuid.NewString())
	c.Redirect(http.StatusFound, p.AuthURL(state))
}

// OAuthCallback godoc
// @Summary Complete federated sign-in
// @Tags auth
// @Param provider path string true "google or github"
// @Param state query string true "signed state"
// @Param code query string true "authorization code"
// @Success 200 {object} map[string]any
// @Failure 400 {object} map[string]string
// @Failure 401 {object} map[string]string
// @Router /api/auth/oauth/{provider}/callback [get]
func (h *Handler) OAuthCallback(c *gin.Context) {
	name := c.Param("provider")
	p, ok := h.Providers[name]
	if !ok {
		c.JSON(http.StatusNotFound, gin.H{"error": "unknown provider"})
		return
	}
	if !h.State.Verify(c.Query("state")) {
		c.JSON(http.StatusBadRequest, gin.H{"error": "bad state"})
		return
	}
	code := c.Query("code")
	if code == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "missing code"})
		return
	}

	prof, err := p.ExchangeAndVerify(c.Request.Context(), code)
	if err != nil {
		log.WithDD(c.Request.Context(), zap.Error(err), zap.String("provider", name)).Warn("oauth exchange")
		c.JSON(http.StatusUnauthorized, gin.H{"error": "sign-in failed"})
		return
	}
	email := normEmail(prof.Email)

	// first sign-in auto-provisions: pre-verified, no password
	u, err := h.Store.FindUserByEmail(c.Request.Context(), email)
	if err != nil || u == nil {
		avatar := prof.Picture
		if avatar == "" {
			avatar = domain.DefaultAvatar
		}
		u = &domain.User{
			Name:          prof.Name,
			Email:         email,
			Provider:      name,
			EmailVerified: true,
			Avatar:        avatar,
		}
		if err := h.Store.CreateUser(c.Request.Context(), u); err != nil {
			// lost a race with a concurrent first sign-in; reread
			if u, err = h.Store.FindUserByEmail(c.Request.Context(), email); err != nil || u == nil {
				c.JSON(http.StatusInternalServerError, gin.H{"error": "sign-in failed"})
				return
			}
		} else {
			h.publish(c.Request.Context(), "user.registered",
				queue.UserRegistered{UserID: u.ID, Email: u.Email, Name: u.Name},
				requestID(c))
		}
	}

	h.issueSession(c, u)
}
