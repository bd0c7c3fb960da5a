package http_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"regexp"
	"strings"
	"testing"
	"time"
)

var otpRe = regexp.MustCompile(`\b(\d{6})\b`)

func register(t *testing.T, env *testEnv, email string) {
	t.Helper()
	w := env.do("POST", "/api/auth/register",
		`{"name":"John","email":"`+email+`","password":"StrongP@ss1"}`, nil)
	if w.Code != http.StatusOK {
		t.Fatalf("register code=%d body=%s", w.Code, w.Body.String())
	}
}

func verify(t *testing.T, env *testEnv, email string) {
	t.Helper()
	w := env.do("POST", "/api/auth/verify-otp",
		`{"email":"`+email+`","otp":"`+env.Store.otp(email)+`"}`, nil)
	if w.Code != http.StatusOK {
		t.Fatalf("verify code=%d body=%s", w.Code, w.Body.String())
	}
}

func login(t *testing.T, env *testEnv, email, password string) string {
	t.Helper()
	w := env.do("POST", "/api/auth/login",
		`{"email":"`+email+`","password":"`+password+`"}`, nil)
	if w.Code != http.StatusOK {
		t.Fatalf("login code=%d body=%s", w.Code, w.Body.String())
	}
	var resp struct {
		Token string `json:"token"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil || resp.Token == "" {
		t.Fatalf("login resp parse: %v; body=%s", err, w.Body.String())
	}
	return resp.Token
}

func Test_Register_Verify_Login_Me(t *testing.T) {
	env := newTestEnv(t)
	register(t, env, "john@example.com")

	// OTP went out by mail
	m := env.Mail.last(t)
	if m.To != "john@example.com" {
		t.Fatalf("mail to=%s", m.To)
	}
	code := otpRe.FindString(m.Body)
	if code == "" || code != env.Store.otp("john@example.com") {
		t.Fatalf("mailed code %q does not match stored", code)
	}

	// credential login is gated on verification
	w := env.do("POST", "/api/auth/login", `{"email":"john@example.com","password":"StrongP@ss1"}`, nil)
	if w.Code != http.StatusUnauthorized {
		t.Fatalf("unverified login expected 401, got %d", w.Code)
	}

	// wrong code
	w = env.do("POST", "/api/auth/verify-otp", `{"email":"john@example.com","otp":"000000"}`, nil)
	if w.Code != http.StatusBadRequest {
		t.Fatalf("wrong otp expected 400, got %d: %s", w.Code, w.Body.String())
	}

	w = env.do("POST", "/api/auth/verify-otp", `{"email":"john@example.com","otp":"`+code+`"}`, nil)
	if w.Code != http.StatusOK {
		t.Fatalf("verify: %d %s", w.Code, w.Body.String())
	}

	// a verified code is consumed; replaying it is refused
	w = env.do("POST", "/api/auth/verify-otp", `{"email":"john@example.com","otp":"`+code+`"}`, nil)
	var resp map[string]string
	_ = json.Unmarshal(w.Body.Bytes(), &resp)
	if resp["message"] != "Email already verified" {
		t.Fatalf("replay after verify: %d %s", w.Code, w.Body.String())
	}

	tok := login(t, env, "john@example.com", "StrongP@ss1")

	w = env.do("GET", "/api/auth/me", "", bearer(tok))
	if w.Code != http.StatusOK {
		t.Fatalf("me: %d %s", w.Code, w.Body.String())
	}

	w = env.do("GET", "/api/auth/me", "", bearer("not-a-token"))
	if w.Code != http.StatusUnauthorized {
		t.Fatalf("garbage token expected 401, got %d", w.Code)
	}
}

func Test_Events_SurviveRequestTeardown(t *testing.T) {
	env := newTestEnv(t)

	// the server cancels the request context the moment the handler
	// returns; the event publish runs after that and must not inherit
	// the cancellation
	ctx, cancel := context.WithCancel(context.Background())
	req := httptest.NewRequest("POST", "/api/auth/register",
		strings.NewReader(`{"name":"Eve","email":"ev@example.com","password":"StrongP@ss1"}`))
	req = req.WithContext(ctx)
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	env.Router.ServeHTTP(w, req)
	cancel()
	if w.Code != http.StatusOK {
		t.Fatalf("register: %d %s", w.Code, w.Body.String())
	}

	e := env.Events.wait(t, "user.registered")
	if e.CtxErr != nil {
		t.Fatalf("publish ran on a dead context: %v", e.CtxErr)
	}
	if e.ReqID == "" {
		t.Fatal("event lost the request id")
	}

	verify(t, env, "ev@example.com")
	if e := env.Events.wait(t, "user.verified"); e.CtxErr != nil {
		t.Fatalf("verified event on a dead context: %v", e.CtxErr)
	}
}

func Test_Register_DuplicateEmail(t *testing.T) {
	env := newTestEnv(t)
	register(t, env, "dup@example.com")

	w := env.do("POST", "/api/auth/register",
		`{"name":"Other","email":"dup@example.com","password":"different1"}`, nil)
	if w.Code != http.StatusBadRequest {
		t.Fatalf("duplicate expected 400, got %d: %s", w.Code, w.Body.String())
	}
	if len(env.Store.users) != 1 {
		t.Fatalf("duplicate register created a second document")
	}
}

func Test_VerifyOTP_Expiry(t *testing.T) {
	env := newTestEnv(t)
	register(t, env, "exp@example.com")
	code := env.Store.otp("exp@example.com")

	// just inside the window still passes
	env.Store.age("exp@example.com", 9*time.Minute)
	w := env.do("POST", "/api/auth/verify-otp", `{"email":"exp@example.com","otp":"`+code+`"}`, nil)
	if w.Code != http.StatusOK {
		t.Fatalf("in-window verify: %d %s", w.Code, w.Body.String())
	}
}

func Test_VerifyOTP_Expired(t *testing.T) {
	env := newTestEnv(t)
	register(t, env, "late@example.com")
	code := env.Store.otp("late@example.com")

	env.Store.age("late@example.com", 11*time.Minute)
	w := env.do("POST", "/api/auth/verify-otp", `{"email":"late@example.com","otp":"`+code+`"}`, nil)
	if w.Code != http.StatusBadRequest {
		t.Fatalf("expired verify expected 400, got %d: %s", w.Code, w.Body.String())
	}

	w = env.do("POST", "/api/auth/verify-otp", `{"email":"nobody@example.com","otp":"123456"}`, nil)
	if w.Code != http.StatusNotFound {
		t.Fatalf("unknown user expected 404, got %d", w.Code)
	}
}

func Test_ResendOTP_InvalidatesOldCode(t *testing.T) {
	env := newTestEnv(t)
	register(t, env, "re@example.com")
	old := env.Store.otp("re@example.com")

	w := env.do("POST", "/api/auth/resend-otp", `{"email":"re@example.com"}`, nil)
	if w.Code != http.StatusOK {
		t.Fatalf("resend: %d %s", w.Code, w.Body.String())
	}
	fresh := env.Store.otp("re@example.com")
	if fresh == old {
		t.Fatal("resend did not rotate the code")
	}

	w = env.do("POST", "/api/auth/verify-otp", `{"email":"re@example.com","otp":"`+old+`"}`, nil)
	if w.Code != http.StatusBadRequest {
		t.Fatalf("stale code expected 400, got %d", w.Code)
	}
	verify(t, env, "re@example.com")
}

func Test_ForgotPassword_Flow(t *testing.T) {
	env := newTestEnv(t)
	register(t, env, "fp@example.com")
	verify(t, env, "fp@example.com")

	// reset without a verified OTP is refused
	w := env.do("POST", "/api/auth/forgot-password/reset",
		`{"email":"fp@example.com","newPassword":"newpass1","confirmPassword":"newpass1"}`, nil)
	if w.Code != http.StatusForbidden {
		t.Fatalf("unverified reset expected 403, got %d: %s", w.Code, w.Body.String())
	}

	w = env.do("POST", "/api/auth/forgot-password/request-otp", `{"email":"fp@example.com"}`, nil)
	if w.Code != http.StatusOK {
		t.Fatalf("request-otp: %d %s", w.Code, w.Body.String())
	}
	code := env.Store.otp("fp@example.com")

	w = env.do("POST", "/api/auth/forgot-password/verify-otp",
		`{"email":"fp@example.com","otp":"`+code+`"}`, nil)
	if w.Code != http.StatusOK {
		t.Fatalf("verify-otp: %d %s", w.Code, w.Body.String())
	}

	// validation before the flag check
	w = env.do("POST", "/api/auth/forgot-password/reset",
		`{"email":"fp@example.com","newPassword":"newpass1","confirmPassword":"other"}`, nil)
	if w.Code != http.StatusBadRequest {
		t.Fatalf("mismatch expected 400, got %d", w.Code)
	}
	w = env.do("POST", "/api/auth/forgot-password/reset",
		`{"email":"fp@example.com","newPassword":"short","confirmPassword":"short"}`, nil)
	if w.Code != http.StatusBadRequest {
		t.Fatalf("short password expected 400, got %d", w.Code)
	}

	w = env.do("POST", "/api/auth/forgot-password/reset",
		`{"email":"fp@example.com","newPassword":"newpass1","confirmPassword":"newpass1"}`, nil)
	if w.Code != http.StatusOK {
		t.Fatalf("reset: %d %s", w.Code, w.Body.String())
	}

	// flow state is fully torn down: flag false, code gone
	u, _ := env.Store.FindUserByEmail(nil, "fp@example.com")
	if u.PasswordResetVerified || u.OTP != "" || u.OTPCreatedAt != nil {
		t.Fatalf("reset left flow state behind: %+v", u)
	}
	w = env.do("POST", "/api/auth/forgot-password/verify-otp",
		`{"email":"fp@example.com","otp":"`+code+`"}`, nil)
	if w.Code != http.StatusBadRequest {
		t.Fatalf("replayed otp expected 400, got %d", w.Code)
	}

	login(t, env, "fp@example.com", "newpass1")
	w = env.do("POST", "/api/auth/login", `{"email":"fp@example.com","password":"StrongP@ss1"}`, nil)
	if w.Code != http.StatusUnauthorized {
		t.Fatalf("old password expected 401, got %d", w.Code)
	}
}

var tokenRe = regexp.MustCompile(`token=([A-Za-z0-9_.\-]+)`)

func Test_ResetLink_Flow(t *testing.T) {
	env := newTestEnv(t)

	w := env.do("POST", "/api/auth/request-reset", `{"email":"ghost@example.com"}`, nil)
	if w.Code != http.StatusNotFound {
		t.Fatalf("unknown email expected 404, got %d", w.Code)
	}

	register(t, env, "link@example.com")
	verify(t, env, "link@example.com")

	w = env.do("POST", "/api/auth/request-reset", `{"email":"link@example.com"}`, nil)
	if w.Code != http.StatusOK {
		t.Fatalf("request-reset: %d %s", w.Code, w.Body.String())
	}
	m := tokenRe.FindStringSubmatch(env.Mail.last(t).Body)
	if m == nil {
		t.Fatalf("no token in reset mail: %s", env.Mail.last(t).Body)
	}

	w = env.do("POST", "/api/auth/reset-password",
		`{"token":"bogus","newPassword":"linkpass1"}`, nil)
	if w.Code != http.StatusBadRequest {
		t.Fatalf("bogus token expected 400, got %d", w.Code)
	}

	w = env.do("POST", "/api/auth/reset-password",
		`{"token":"`+m[1]+`","newPassword":"linkpass1"}`, nil)
	if w.Code != http.StatusOK {
		t.Fatalf("reset-password: %d %s", w.Code, w.Body.String())
	}
	login(t, env, "link@example.com", "linkpass1")
}

func Test_WorkoutData_Patch_Whitelist(t *testing.T) {
	env := newTestEnv(t)
	register(t, env, "wd@example.com")
	verify(t, env, "wd@example.com")
	tok := login(t, env, "wd@example.com", "StrongP@ss1")

	w := env.do("PATCH", "/api/user/workout-data",
		`{"goal":"bulking","planType":"home","bogus":"x","weight":"80"}`, bearer(tok))
	if w.Code != http.StatusOK {
		t.Fatalf("patch: %d %s", w.Code, w.Body.String())
	}
	var resp struct {
		WorkoutData map[string]string `json:"workoutData"`
	}
	_ = json.Unmarshal(w.Body.Bytes(), &resp)
	if resp.WorkoutData["goal"] != "bulking" || resp.WorkoutData["weight"] != "80" {
		t.Fatalf("patch did not merge: %v", resp.WorkoutData)
	}
	if _, ok := resp.WorkoutData["bogus"]; ok {
		t.Fatal("unknown key leaked into the sub-record")
	}

	// a known key with a non-string value is dropped, not coerced
	w = env.do("PATCH", "/api/user/workout-data", `{"weight": 90}`, bearer(tok))
	if w.Code != http.StatusOK {
		t.Fatalf("numeric patch: %d %s", w.Code, w.Body.String())
	}
	_ = json.Unmarshal(w.Body.Bytes(), &resp)
	if resp.WorkoutData["weight"] != "80" {
		t.Fatalf("non-string value overwrote weight: %v", resp.WorkoutData)
	}

	// second patch only touches what it names
	w = env.do("PATCH", "/api/user/workout-data", `{"height":"180"}`, bearer(tok))
	if w.Code != http.StatusOK {
		t.Fatalf("patch2: %d %s", w.Code, w.Body.String())
	}
	w = env.do("GET", "/api/user/workout-data", "", bearer(tok))
	_ = json.Unmarshal(w.Body.Bytes(), &resp)
	if resp.WorkoutData["goal"] != "bulking" || resp.WorkoutData["height"] != "180" {
		t.Fatalf("get after patches: %v", resp.WorkoutData)
	}

	// the whole group is session-gated
	w = env.do("GET", "/api/user/workout-data", "", nil)
	if w.Code != http.StatusUnauthorized {
		t.Fatalf("no token expected 401, got %d", w.Code)
	}
}

func Test_GeneratePlan(t *testing.T) {
	env := newTestEnv(t)
	register(t, env, "gp@example.com")
	verify(t, env, "gp@example.com")
	tok := login(t, env, "gp@example.com", "StrongP@ss1")

	// incomplete preferences: refused before the API is touched
	w := env.do("POST", "/api/user/generate-plan", "", bearer(tok))
	if w.Code != http.StatusBadRequest {
		t.Fatalf("incomplete expected 400, got %d: %s", w.Code, w.Body.String())
	}
	if env.AI.calls != 0 {
		t.Fatal("text API was called with incomplete preferences")
	}

	// allergy may be blank, but it must be present
	w = env.do("PATCH", "/api/user/workout-data",
		`{"goal":"cutting","planType":"gym","height":"180","weight":"80","gender":"m","injuries":"none"}`, bearer(tok))
	if w.Code != http.StatusOK {
		t.Fatalf("patch: %d", w.Code)
	}
	w = env.do("POST", "/api/user/generate-plan", "", bearer(tok))
	if w.Code != http.StatusBadRequest || env.AI.calls != 0 {
		t.Fatalf("missing allergy expected 400/no call, got %d calls=%d", w.Code, env.AI.calls)
	}

	w = env.do("PATCH", "/api/user/workout-data", `{"allergy":""}`, bearer(tok))
	if w.Code != http.StatusOK {
		t.Fatalf("patch allergy: %d", w.Code)
	}
	w = env.do("POST", "/api/user/generate-plan", "", bearer(tok))
	if w.Code != http.StatusOK {
		t.Fatalf("generate: %d %s", w.Code, w.Body.String())
	}
	var resp map[string]string
	_ = json.Unmarshal(w.Body.Bytes(), &resp)
	if resp["workoutPlan"] != "Day 1: push-ups" {
		t.Fatalf("plan resp: %v", resp)
	}

	w = env.do("GET", "/api/user/workout-plan", "", bearer(tok))
	_ = json.Unmarshal(w.Body.Bytes(), &resp)
	if resp["workoutPlan"] != "Day 1: push-ups" {
		t.Fatalf("plan was not persisted: %v", resp)
	}
}

func Test_SendPlan_EmailMismatch(t *testing.T) {
	env := newTestEnv(t)
	register(t, env, "sp@example.com")
	verify(t, env, "sp@example.com")
	tok := login(t, env, "sp@example.com", "StrongP@ss1")
	before := env.Mail.count()

	w := env.do("POST", "/api/user/send-plan",
		`{"email":"attacker@example.com","plan":"whatever"}`, bearer(tok))
	if w.Code != http.StatusForbidden {
		t.Fatalf("mismatch expected 403, got %d: %s", w.Code, w.Body.String())
	}
	if env.Mail.count() != before {
		t.Fatal("mail went out despite the mismatch")
	}

	w = env.do("POST", "/api/user/send-plan",
		`{"email":"sp@example.com","plan":"Day 1: squats"}`, bearer(tok))
	if w.Code != http.StatusOK {
		t.Fatalf("send-plan: %d %s", w.Code, w.Body.String())
	}
	m := env.Mail.last(t)
	if m.To != "sp@example.com" || !regexp.MustCompile(`Day 1: squats`).MatchString(m.Body) {
		t.Fatalf("plan mail wrong: to=%s body=%s", m.To, m.Body)
	}
}

func Test_UploadAvatar(t *testing.T) {
	env := newTestEnv(t)
	register(t, env, "av@example.com")
	verify(t, env, "av@example.com")
	tok := login(t, env, "av@example.com", "StrongP@ss1")

	w := env.do("POST", "/api/user/avatar", `{"avatar":""}`, bearer(tok))
	if w.Code != http.StatusBadRequest {
		t.Fatalf("empty avatar expected 400, got %d", w.Code)
	}

	w = env.do("POST", "/api/user/avatar", `{"avatar":"data:image/png;base64,AAAA"}`, bearer(tok))
	if w.Code != http.StatusOK {
		t.Fatalf("avatar: %d %s", w.Code, w.Body.String())
	}
	var resp map[string]string
	_ = json.Unmarshal(w.Body.Bytes(), &resp)
	if resp["imageUrl"] != "https://cdn.example.com/a.png" {
		t.Fatalf("avatar resp: %v", resp)
	}
	u, _ := env.Store.FindUserByEmail(nil, "av@example.com")
	if u.Avatar != "https://cdn.example.com/a.png" {
		t.Fatalf("avatar not persisted: %s", u.Avatar)
	}
}
