package mail_test

import (
	"strings"
	"testing"

	"github.com/aibekov/fitplanner/internal/mail"
)

func TestWorkoutPlanEmail_EmbedsAndEscapes(t *testing.T) {
	subj, body := mail.WorkoutPlanEmail("Day 1: <b>squats</b>")
	if subj == "" {
		t.Fatal("empty subject")
	}
	if !strings.Contains(body, "Day 1: &lt;b&gt;squats&lt;/b&gt;") {
		t.Fatalf("plan not escaped into body: %s", body)
	}
}

func TestOTPTemplates_CarryCode(t *testing.T) {
	for name, fn := range map[string]func() (string, string){
		"verify": func() (string, string) { return mail.VerifyOTPEmail("123456") },
		"resend": func() (string, string) { return mail.ResendOTPEmail("123456") },
		"reset":  func() (string, string) { return mail.ResetOTPEmail("John", "123456", 10) },
	} {
		_, body := fn()
		if !strings.Contains(body, "123456") {
			t.Fatalf("%s template lost the code: %s", name, body)
		}
	}
}
