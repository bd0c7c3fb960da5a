package mail

import (
	"fmt"
	"html"
)

func VerifyOTPEmail(code string) (subject, body string) {
	return "Verify your email",
		fmt.Sprintf("<p>Your OTP is <b>%s</b></p>", html.EscapeString(code))
}

func ResendOTPEmail(code string) (subject, body string) {
	return "Your New OTP Code",
		fmt.Sprintf("<p>Your new OTP is <b>%s</b></p>", html.EscapeString(code))
}

func ResetOTPEmail(name, code string, ttlMinutes int) (subject, body string) {
	return "Your OTP for Password Reset", fmt.Sprintf(`
      <p>Hello %s,</p>
      <p>Your OTP for password reset is:</p>
      <h2>%s</h2>
      <p>It expires in %d minutes.</p>
    `, html.EscapeString(name), html.EscapeString(code), ttlMinutes)
}

func ResetLinkEmail(link string) (subject, body string) {
	return "Reset your password",
		fmt.Sprintf(`<p>Click <a href="%s">here</a> to reset password.</p>`, link)
}

func PasswordChangedEmail() (subject, body string) {
	return "Password Changed Successfully",
		"<p>Your password has been changed successfully. If this wasn't you, please contact support immediately.</p>"
}

// WorkoutPlanEmail embeds the generated plan verbatim (escaped) inside
// the fixed template the product ships.
func WorkoutPlanEmail(plan string) (subject, body string) {
	return "Your Workout Plan from Workout Planner", fmt.Sprintf(`
    <div style="font-family: Arial, sans-serif; padding: 20px; color: #333; background-color: #f4f4f4;">
      <div style="max-width: 600px; margin: auto; background-color: #ffffff; padding: 30px; border-radius: 10px; box-shadow: 0 5px 10px rgba(0,0,0,0.1);">
        <h2 style="color: #4caf50;">Your Personalized Workout Plan 💪</h2>
        <p>Hi there,</p>
        <p>Here's the workout plan you generated:</p>
        <pre style="white-space: pre-wrap; background-color: #f0f0f0; padding: 15px; border-radius: 5px; border: 1px solid #ccc;">%s</pre>
        <p>Stay consistent and smash your fitness goals! 🏋️‍♂️</p>
        <p style="margin-top: 20px;">– The Workout Planner Team</p>
      </div>
    </div>
  `, html.EscapeString(plan))
}
