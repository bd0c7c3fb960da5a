package http

import (
	"context"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/aibekov/fitplanner/internal/config"
	"github.com/aibekov/fitplanner/internal/domain"
	"github.com/aibekov/fitplanner/internal/log"
	"github.com/aibekov/fitplanner/internal/mail"
	"github.com/aibekov/fitplanner/internal/metrics"
	"github.com/aibekov/fitplanner/internal/oauth"
	"github.com/aibekov/fitplanner/internal/queue"
	"github.com/aibekov/fitplanner/internal/repo"
	"github.com/aibekov/fitplanner/internal/security"

	"go.uber.org/zap"
)

// UserStore is the slice of the Mongo store the handlers need.
type UserStore interface {
	CreateUser(ctx context.Context, u *domain.User) error
	FindUserByEmail(ctx context.Context, email string) (*domain.User, error)
	SetOTP(ctx context.Context, email, code string, issuedAt time.Time) error
	MarkEmailVerified(ctx context.Context, email string) error
	MarkResetVerified(ctx context.Context, email string) error
	UpdatePassword(ctx context.Context, email, hash string) error
	SetWorkoutData(ctx context.Context, email string, wd domain.WorkoutData) error
	SetWorkoutPlan(ctx context.Context, email, plan string) error
	SetAvatar(ctx context.Context, email, url string) error
	Ping(ctx context.Context) error
}

type Mailer interface {
	Send(ctx context.Context, to, subject, html string) error
}

type PlanGenerator interface {
	GeneratePlan(ctx context.Context, wd domain.WorkoutData) (string, error)
}

type AvatarUploader interface {
	Upload(ctx context.Context, dataURL string) (string, error)
}

type Provider interface {
	AuthURL(state string) string
	ExchangeAndVerify(ctx context.Context, code string) (*oauth.Profile, error)
}

type Handler struct {
	Store   UserStore
	Mail    Mailer
	AI      PlanGenerator
	Avatars AvatarUploader
	Events  queue.Publisher
	Redis   *repo.Redis

	State     *oauth.State
	Providers map[string]Provider

	SessionSecret   string
	SessionTTL      time.Duration
	ResetSecret     string
	OTPTTL          time.Duration
	RateLimitPerMin int
	RedirectBase    string
	Exchange        string
}

func NewHandler(store UserStore, mailer Mailer, ai PlanGenerator, av AvatarUploader, pub queue.Publisher, cfg config.Config) *Handler {
	return &Handler{
		Store:           store,
		Mail:            mailer,
		AI:              ai,
		Avatars:         av,
		Events:          pub,
		State:           oauth.NewState(cfg.OAuthStateSecret),
		Providers:       map[string]Provider{},
		SessionSecret:   cfg.SessionSecret,
		SessionTTL:      time.Duration(cfg.SessionTTLMin) * time.Minute,
		ResetSecret:     cfg.ResetSecret,
		OTPTTL:          time.Duration(cfg.OTPTTLMin) * time.Minute,
		RateLimitPerMin: cfg.RateLimitPerMin,
		RedirectBase:    cfg.OAuthRedirectBase,
		Exchange:        cfg.RabbitExchange,
	}
}

type registerReq struct {
	Name     string `json:"name"`
	Email    string `json:"email"`
	Password string `json:"password"`
}

// Register godoc
// @Summary Register user and send verification OTP
// @Tags auth
// @Accept json
// @Produce json
// @Param payload body registerReq true "register"
// @Success 200 {object} map[string]string
// @Failure 400 {object} map[string]string
// @Router /api/auth/register [post]
func (h *Handler) Register(c *gin.Context) {
	var in registerReq
	if err := c.ShouldBindJSON(&in); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid json"})
		return
	}
	email := normEmail(in.Email)
	if in.Name == "" || !strings.Contains(email, "@") {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Name and a valid email are required"})
		return
	}
	if len(in.Password) < 6 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Password must be at least 6 characters."})
		return
	}
	if u, _ := h.Store.FindUserByEmail(c.Request.Context(), email); u != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "User already exists"})
		return
	}

	hash, err := security.HashPassword(in.Password)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "hash failed"})
		return
	}
	code, err := security.NewOTP()
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "otp generation failed"})
		return
	}

	now := time.Now().UTC()
	u := &domain.User{
		Name:         strings.TrimSpace(in.Name),
		Email:        email,
		PasswordHash: hash,
		Provider:     "local",
		OTP:          code,
		OTPCreatedAt: &now,
	}
	if err := h.Store.CreateUser(c.Request.Context(), u); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "User already exists"})
		return
	}
	metrics.OTPIssued.WithLabelValues("register").Inc()

	subj, body := mail.VerifyOTPEmail(code)
	if err := h.Mail.Send(c.Request.Context(), email, subj, body); err != nil {
		log.WithDD(c.Request.Context(), zap.Error(err)).Error("send verify otp")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to send OTP email"})
		return
	}

	h.publish(c.Request.Context(), "user.registered",
		queue.UserRegistered{UserID: u.ID, Email: u.Email, Name: u.Name},
		requestID(c))

	c.JSON(http.StatusOK, gin.H{"message": "User created. OTP sent to email"})
}

type verifyOTPReq struct {
	Email string `json:"email"`
	OTP   string `json:"otp"`
}

// VerifyOTP godoc
// @Summary Verify registration OTP
// @Tags auth
// @Accept json
// @Produce json
// @Param payload body verifyOTPReq true "verify"
// @Success 200 {object} map[string]string
// @Failure 400 {object} map[string]string
// @Failure 404 {object} map[string]string
// @Router /api/auth/verify-otp [post]
func (h *Handler) VerifyOTP(c *gin.Context) {
	var in verifyOTPReq
	if err := c.ShouldBindJSON(&in); err != nil || in.Email == "" || in.OTP == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Email and OTP are required"})
		return
	}
	email := normEmail(in.Email)

	u, err := h.Store.FindUserByEmail(c.Request.Context(), email)
	if err != nil || u == nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "User not found"})
		return
	}
	if u.EmailVerified {
		c.JSON(http.StatusOK, gin.H{"message": "Email already verified"})
		return
	}
	if status, msg := h.checkOTP(u, in.OTP); status != 0 {
		c.JSON(status, gin.H{"error": msg})
		return
	}

	if err := h.Store.MarkEmailVerified(c.Request.Context(), email); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "update failed"})
		return
	}

	h.publish(c.Request.Context(), "user.verified",
		queue.UserVerified{Email: email}, requestID(c))

	c.JSON(http.StatusOK, gin.H{"message": "Email verified successfully"})
}

// checkOTP runs the shared validation ladder: code issued → unexpired →
// exact match. Returns 0 when the code is good.
func (h *Handler) checkOTP(u *domain.User, submitted string) (int, string) {
	if u.OTP == "" || u.OTPCreatedAt == nil {
		return http.StatusBadRequest, "OTP not found or expired, please request a new one"
	}
	if time.Since(*u.OTPCreatedAt) > h.OTPTTL {
		return http.StatusBadRequest, "OTP expired, please request a new one"
	}
	if u.OTP != submitted {
		return http.StatusBadRequest, "Invalid OTP"
	}
	return 0, ""
}

type emailReq struct {
	Email string `json:"email"`
}

// ResendOTP godoc
// @Summary Resend registration OTP
// @Tags auth
// @Accept json
// @Produce json
// @Param payload body emailReq true "email"
// @Success 200 {object} map[string]string
// @Failure 404 {object} map[string]string
// @Router /api/auth/resend-otp [post]
func (h *Handler) ResendOTP(c *gin.Context) {
	var in emailReq
	if err := c.ShouldBindJSON(&in); err != nil || in.Email == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Email is required."})
		return
	}
	email := normEmail(in.Email)

	u, err := h.Store.FindUserByEmail(c.Request.Context(), email)
	if err != nil || u == nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "User not found"})
		return
	}
	if u.EmailVerified {
		c.JSON(http.StatusOK, gin.H{"message": "Email already verified"})
		return
	}

	code, err := h.issueOTP(c.Request.Context(), email, "resend")
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to send OTP email"})
		return
	}
	subj, body := mail.ResendOTPEmail(code)
	if err := h.Mail.Send(c.Request.Context(), email, subj, body); err != nil {
		log.WithDD(c.Request.Context(), zap.Error(err)).Error("resend otp mail")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to send OTP email"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "OTP resent successfully"})
}

// publish emits a domain event without holding the response up. The
// request context is detached first: the server cancels it as soon as
// the handler returns, and the in-flight publish must survive that.
func (h *Handler) publish(ctx context.Context, key string, event any, reqID string) {
	ctx = context.WithoutCancel(ctx)
	go func() {
		if err := h.Events.Publish(ctx, h.Exchange, key, event, reqID); err != nil {
			log.WithDD(ctx, zap.Error(err), zap.String("event", key)).Warn("event publish")
		}
	}()
}

// issueOTP generates and persists a fresh code, invalidating whatever
// was outstanding (including a half-done reset flow).
func (h *Handler) issueOTP(ctx context.Context, email, flow string) (string, error) {
	code, err := security.NewOTP()
	if err != nil {
		return "", err
	}
	if err := h.Store.SetOTP(ctx, email, code, time.Now().UTC()); err != nil {
		return "", err
	}
	metrics.OTPIssued.WithLabelValues(flow).Inc()
	return code, nil
}

type loginReq struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// Login godoc
// @Summary Credential login
// @Tags auth
// @Accept json
// @Produce json
// @Param payload body loginReq true "login"
// @Success 200 {object} map[string]any
// @Failure 400 {object} map[string]string
// @Failure 401 {object} map[string]string
// @Router /api/auth/login [post]
func (h *Handler) Login(c *gin.Context) {
	var in loginReq
	if err := c.ShouldBindJSON(&in); err != nil || in.Email == "" || in.Password == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Email and password are required"})
		return
	}
	email := normEmail(in.Email)

	u, err := h.Store.FindUserByEmail(c.Request.Context(), email)
	if err != nil || u == nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "invalid credentials"})
		return
	}
	if !u.EmailVerified {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Email not verified"})
		return
	}
	if u.PasswordHash == "" || !security.CheckPassword(u.PasswordHash, in.Password) {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "invalid credentials"})
		return
	}

	h.issueSession(c, u)
}

// issueSession mints the bearer token and writes the login response.
func (h *Handler) issueSession(c *gin.Context, u *domain.User) {
	avatar := u.Avatar
	if avatar == "" {
		avatar = domain.DefaultAvatar
	}
	tok, err := security.MakeSession(h.SessionSecret, u.ID.Hex(), u.Email, u.Name, avatar, h.SessionTTL)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "token error"})
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"token": tok,
		"user": gin.H{
			"id": u.ID.Hex(), "name": u.Name, "email": u.Email, "avatar": avatar,
		},
	})
}

// Me godoc
// @Summary Current user
// @Tags auth
// @Security BearerAuth
// @Produce json
// @Success 200 {object} map[string]any
// @Failure 404 {object} map[string]string
// @Router /api/auth/me [get]
func (h *Handler) Me(c *gin.Context) {
	au := currentUser(c)

	u, err := h.Store.FindUserByEmail(c.Request.Context(), au.Email)
	if err != nil || u == nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "User not found"})
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"id": u.ID.Hex(), "name": u.Name, "email": u.Email,
		"avatar": u.Avatar, "bio": u.Bio, "created_at": u.CreatedAt,
	})
}

func (h *Handler) Healthz(c *gin.Context) {
	if err := h.Store.Ping(c.Request.Context()); err != nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"status": "degraded", "error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

func normEmail(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}
