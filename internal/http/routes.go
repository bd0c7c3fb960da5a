package http

import (
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
)

func NewRouter(h *Handler) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(RequestID())
	r.Use(Trace())
	r.Use(Metrics())

	r.GET("/healthz", h.Healthz)
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))
	r.GET("/docs/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))

	auth := r.Group("/api/auth")
	{
		auth.POST("/register", h.Register)
		auth.POST("/verify-otp", h.VerifyOTP)
		auth.POST("/resend-otp", h.RateLimitOTP("resend"), h.ResendOTP)
		auth.POST("/login", h.Login)
		auth.GET("/me", AuthJWT(h.SessionSecret), h.Me)

		auth.GET("/oauth/:provider", h.OAuthStart)
		auth.GET("/oauth/:provider/callback", h.OAuthCallback)

		auth.POST("/forgot-password/request-otp", h.RateLimitOTP("reset"), h.RequestResetOTP)
		auth.POST("/forgot-password/verify-otp", h.VerifyResetOTP)
		auth.POST("/forgot-password/reset", h.ResetPassword)

		auth.POST("/request-reset", h.RateLimitOTP("reset-link"), h.RequestResetLink)
		auth.POST("/reset-password", h.ResetPasswordWithToken)
	}

	user := r.Group("/api/user", AuthJWT(h.SessionSecret))
	{
		user.GET("/workout-data", h.GetWorkoutData)
		user.PATCH("/workout-data", h.PatchWorkoutData)
		user.GET("/workout-plan", h.GetWorkoutPlan)
		user.POST("/generate-plan", h.GeneratePlan)
		user.POST("/send-plan", h.SendPlan)
		user.POST("/avatar", h.UploadAvatar)
	}

	return r
}
