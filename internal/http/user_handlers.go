package http

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/aibekov/fitplanner/internal/domain"
	"github.com/aibekov/fitplanner/internal/log"
	"github.com/aibekov/fitplanner/internal/mail"
	"github.com/aibekov/fitplanner/internal/metrics"
	"github.com/aibekov/fitplanner/internal/queue"
)

// GetWorkoutData godoc
// @Summary Stored workout preferences and plan
// @Tags user
// @Security BearerAuth
// @Produce json
// @Success 200 {object} map[string]any
// @Failure 404 {object} map[string]string
// @Router /api/user/workout-data [get]
func (h *Handler) GetWorkoutData(c *gin.Context) {
	au := currentUser(c)

	u, err := h.Store.FindUserByEmail(c.Request.Context(), au.Email)
	if err != nil || u == nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "User not found"})
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"workoutData": u.WorkoutData,
		"workoutPlan": u.WorkoutPlan,
	})
}

// PatchWorkoutData godoc
// @Summary Merge workout preferences
// @Tags user
// @Security BearerAuth
// @Accept json
// @Produce json
// @Success 200 {object} map[string]any
// @Failure 400 {object} map[string]string
// @Router /api/user/workout-data [patch]
func (h *Handler) PatchWorkoutData(c *gin.Context) {
	au := currentUser(c)

	var body map[string]any
	if err := c.ShouldBindJSON(&body); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid json"})
		return
	}

	u, err := h.Store.FindUserByEmail(c.Request.Context(), au.Email)
	if err != nil || u == nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "User not found"})
		return
	}

	merged := mergeWorkoutData(u.WorkoutData, body)
	if err := h.Store.SetWorkoutData(c.Request.Context(), au.Email, merged); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "update failed"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"workoutData": merged})
}

// mergeWorkoutData applies only keys the sub-record schema knows, and
// only string values for them; unknown keys and non-string values are
// dropped silently.
func mergeWorkoutData(wd domain.WorkoutData, body map[string]any) domain.WorkoutData {
	set := func(dst **string, key string) {
		if v, ok := body[key]; ok {
			if s, ok := v.(string); ok {
				*dst = &s
			}
		}
	}
	set(&wd.Goal, "goal")
	set(&wd.PlanType, "planType")
	set(&wd.Height, "height")
	set(&wd.Weight, "weight")
	set(&wd.Allergy, "allergy")
	set(&wd.Gender, "gender")
	set(&wd.Injuries, "injuries")
	return wd
}

// GetWorkoutPlan godoc
// @Summary Stored workout plan
// @Tags user
// @Security BearerAuth
// @Produce json
// @Success 200 {object} map[string]string
// @Router /api/user/workout-plan [get]
func (h *Handler) GetWorkoutPlan(c *gin.Context) {
	au := currentUser(c)

	u, err := h.Store.FindUserByEmail(c.Request.Context(), au.Email)
	if err != nil || u == nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "User not found"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"workoutPlan": u.WorkoutPlan})
}

// GeneratePlan godoc
// @Summary Generate a workout plan from stored preferences
// @Tags user
// @Security BearerAuth
// @Produce json
// @Success 200 {object} map[string]string
// @Failure 400 {object} map[string]string
// @Failure 500 {object} map[string]string
// @Router /api/user/generate-plan [post]
func (h *Handler) GeneratePlan(c *gin.Context) {
	au := currentUser(c)

	u, err := h.Store.FindUserByEmail(c.Request.Context(), au.Email)
	if err != nil || u == nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "User not found"})
		return
	}

	wd := u.WorkoutData
	// allergy only has to be answered; it may be blank
	if empty(wd.Goal) || empty(wd.PlanType) || empty(wd.Height) || empty(wd.Weight) ||
		empty(wd.Gender) || empty(wd.Injuries) || wd.Allergy == nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Please fill all required fields before generating a plan."})
		return
	}

	plan, err := h.AI.GeneratePlan(c.Request.Context(), wd)
	if err != nil {
		log.WithDD(c.Request.Context(), zap.Error(err)).Error("generate plan")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to generate workout plan."})
		return
	}
	if err := h.Store.SetWorkoutPlan(c.Request.Context(), au.Email, plan); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to generate workout plan."})
		return
	}
	metrics.PlansGenerated.Inc()

	h.publish(c.Request.Context(), "plan.generated",
		queue.PlanGenerated{Email: au.Email, Chars: len(plan)}, requestID(c))

	c.JSON(http.StatusOK, gin.H{"workoutPlan": plan})
}

func empty(p *string) bool { return p == nil || *p == "" }

type sendPlanReq struct {
	Email string `json:"email"`
	Plan  string `json:"plan"`
}

// SendPlan godoc
// @Summary Email the generated plan to the account owner
// @Tags user
// @Security BearerAuth
// @Accept json
// @Produce json
// @Param payload body sendPlanReq true "plan"
// @Success 200 {object} map[string]string
// @Failure 400 {object} map[string]string
// @Failure 403 {object} map[string]string
// @Router /api/user/send-plan [post]
func (h *Handler) SendPlan(c *gin.Context) {
	au := currentUser(c)

	var in sendPlanReq
	if err := c.ShouldBindJSON(&in); err != nil || in.Email == "" || in.Plan == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Email and plan are required"})
		return
	}
	if normEmail(in.Email) != au.Email {
		c.JSON(http.StatusForbidden, gin.H{"error": "Forbidden: Email mismatch"})
		return
	}

	subj, body := mail.WorkoutPlanEmail(in.Plan)
	if err := h.Mail.Send(c.Request.Context(), au.Email, subj, body); err != nil {
		log.WithDD(c.Request.Context(), zap.Error(err)).Error("send plan mail")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to send workout plan. Please try again."})
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Workout plan sent successfully!"})
}

type avatarReq struct {
	Avatar string `json:"avatar"`
}

// UploadAvatar godoc
// @Summary Upload a profile image
// @Tags user
// @Security BearerAuth
// @Accept json
// @Produce json
// @Param payload body avatarReq true "data url"
// @Success 200 {object} map[string]string
// @Failure 400 {object} map[string]string
// @Router /api/user/avatar [post]
func (h *Handler) UploadAvatar(c *gin.Context) {
	au := currentUser(c)

	var in avatarReq
	if err := c.ShouldBindJSON(&in); err != nil || in.Avatar == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "No avatar provided"})
		return
	}
	if h.Avatars == nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "avatar storage is not configured"})
		return
	}

	url, err := h.Avatars.Upload(c.Request.Context(), in.Avatar)
	if err != nil {
		log.WithDD(c.Request.Context(), zap.Error(err)).Error("avatar upload")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Avatar upload failed"})
		return
	}
	if err := h.Store.SetAvatar(c.Request.Context(), au.Email, url); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "update failed"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Avatar updated", "imageUrl": url})
}
