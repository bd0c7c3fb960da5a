package http

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/aibekov/fitplanner/internal/log"
	"github.com/aibekov/fitplanner/internal/mail"
	"github.com/aibekov/fitplanner/internal/security"
)

// RequestResetOTP godoc
// @Summary Send password-reset OTP
// @Tags reset
// @Accept json
// @Produce json
// @Param payload body emailReq true "email"
// @Success 200 {object} map[string]string
// @Failure 404 {object} map[string]string
// @Router /api/auth/forgot-password/request-otp [post]
func (h *Handler) RequestResetOTP(c *gin.Context) {
	var in emailReq
	if err := c.ShouldBindJSON(&in); err != nil || in.Email == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Email is required."})
		return
	}
	email := normEmail(in.Email)

	u, err := h.Store.FindUserByEmail(c.Request.Context(), email)
	if err != nil || u == nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "User not found."})
		return
	}

	code, err := h.issueOTP(c.Request.Context(), email, "reset")
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to send OTP email"})
		return
	}
	subj, body := mail.ResetOTPEmail(u.Name, code, int(h.OTPTTL.Minutes()))
	if err := h.Mail.Send(c.Request.Context(), email, subj, body); err != nil {
		log.WithDD(c.Request.Context(), zap.Error(err)).Error("reset otp mail")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to send OTP email"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "OTP sent to email."})
}

// VerifyResetOTP godoc
// @Summary Verify password-reset OTP
// @Tags reset
// @Accept json
// @Produce json
// @Param payload body verifyOTPReq true "verify"
// @Success 200 {object} map[string]string
// @Failure 400 {object} map[string]string
// @Failure 404 {object} map[string]string
// @Router /api/auth/forgot-password/verify-otp [post]
func (h *Handler) VerifyResetOTP(c *gin.Context) {
	var in verifyOTPReq
	if err := c.ShouldBindJSON(&in); err != nil || in.Email == "" || in.OTP == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Email and OTP are required."})
		return
	}
	email := normEmail(in.Email)

	u, err := h.Store.FindUserByEmail(c.Request.Context(), email)
	if err != nil || u == nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "User not found."})
		return
	}
	if status, msg := h.checkOTP(u, in.OTP); status != 0 {
		c.JSON(status, gin.H{"error": msg})
		return
	}

	if err := h.Store.MarkResetVerified(c.Request.Context(), email); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "update failed"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "OTP verified. You can now reset your password."})
}

type resetReq struct {
	Email           string `json:"email"`
	NewPassword     string `json:"newPassword"`
	ConfirmPassword string `json:"confirmPassword"`
}

// ResetPassword godoc
// @Summary Set a new password after OTP verification
// @Tags reset
// @Accept json
// @Produce json
// @Param payload body resetReq true "reset"
// @Success 200 {object} map[string]string
// @Failure 400 {object} map[string]string
// @Failure 403 {object} map[string]string
// @Failure 404 {object} map[string]string
// @Router /api/auth/forgot-password/reset [post]
func (h *Handler) ResetPassword(c *gin.Context) {
	var in resetReq
	if err := c.ShouldBindJSON(&in); err != nil || in.Email == "" || in.NewPassword == "" || in.ConfirmPassword == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "All fields are required."})
		return
	}
	if in.NewPassword != in.ConfirmPassword {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Passwords do not match."})
		return
	}
	if len(in.NewPassword) < 6 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Password must be at least 6 characters."})
		return
	}
	email := normEmail(in.Email)

	u, err := h.Store.FindUserByEmail(c.Request.Context(), email)
	if err != nil || u == nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "User not found."})
		return
	}
	if !u.PasswordResetVerified {
		c.JSON(http.StatusForbidden, gin.H{"error": "OTP not verified. Cannot reset password."})
		return
	}

	hash, err := security.HashPassword(in.NewPassword)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "hash failed"})
		return
	}
	if err := h.Store.UpdatePassword(c.Request.Context(), email, hash); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "update failed"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Password reset successfully."})
}

// RequestResetLink godoc
// @Summary Email a signed password-reset link
// @Tags reset
// @Accept json
// @Produce json
// @Param payload body emailReq true "email"
// @Success 200 {object} map[string]string
// @Failure 404 {object} map[string]string
// @Router /api/auth/request-reset [post]
func (h *Handler) RequestResetLink(c *gin.Context) {
	var in emailReq
	if err := c.ShouldBindJSON(&in); err != nil || in.Email == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Email is required."})
		return
	}
	email := normEmail(in.Email)

	if u, err := h.Store.FindUserByEmail(c.Request.Context(), email); err != nil || u == nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "User not found"})
		return
	}

	tok, err := security.MakeResetToken(h.ResetSecret, email, 10*time.Minute)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "token error"})
		return
	}
	subj, body := mail.ResetLinkEmail(h.RedirectBase + "/reset-password?token=" + tok)
	if err := h.Mail.Send(c.Request.Context(), email, subj, body); err != nil {
		log.WithDD(c.Request.Context(), zap.Error(err)).Error("reset link mail")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to send reset email"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Reset link sent"})
}

type tokenResetReq struct {
	Token       string `json:"token"`
	NewPassword string `json:"newPassword"`
}

// ResetPasswordWithToken godoc
// @Summary Set a new password via signed reset token
// @Tags reset
// @Accept json
// @Produce json
// @Param payload body tokenResetReq true "reset"
// @Success 200 {object} map[string]string
// @Failure 400 {object} map[string]string
// @Failure 401 {object} map[string]string
// @Router /api/auth/reset-password [post]
func (h *Handler) ResetPasswordWithToken(c *gin.Context) {
	var in tokenResetReq
	if err := c.ShouldBindJSON(&in); err != nil || in.Token == "" || in.NewPassword == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Token and new password are required."})
		return
	}
	if len(in.NewPassword) < 6 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Password must be at least 6 characters."})
		return
	}

	claims, err := security.ParseResetToken(h.ResetSecret, in.Token)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Expired or invalid token"})
		return
	}
	email := normEmail(claims.Email)

	if u, err := h.Store.FindUserByEmail(c.Request.Context(), email); err != nil || u == nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Invalid token"})
		return
	}

	hash, err := security.HashPassword(in.NewPassword)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "hash failed"})
		return
	}
	if err := h.Store.UpdatePassword(c.Request.Context(), email, hash); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "update failed"})
		return
	}

	subj, body := mail.PasswordChangedEmail()
	if err := h.Mail.Send(c.Request.Context(), email, subj, body); err != nil {
		// password already changed; the confirmation mail is best effort
		log.WithDD(c.Request.Context(), zap.Error(err)).Warn("password changed mail")
	}
	c.JSON(http.StatusOK, gin.H{"message": "Password reset successful"})
}
