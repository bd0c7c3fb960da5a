package http_test

import (
	"bytes"
	"context"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/aibekov/fitplanner/internal/config"
	"github.com/aibekov/fitplanner/internal/domain"
	api "github.com/aibekov/fitplanner/internal/http"
	"github.com/aibekov/fitplanner/internal/repo"
)

// fakeStore mirrors the Mongo repo's contract in memory so the workflow
// tests stay hermetic.
type fakeStore struct {
	mu    sync.Mutex
	users map[string]*domain.User
}

func newFakeStore() *fakeStore {
	return &fakeStore{users: map[string]*domain.User{}}
}

func (f *fakeStore) CreateUser(_ context.Context, u *domain.User) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.users[u.Email]; ok {
		return repo.ErrDuplicateEmail
	}
	now := time.Now().UTC()
	u.CreatedAt, u.UpdatedAt = now, now
	if u.Avatar == "" {
		u.Avatar = domain.DefaultAvatar
	}
	cp := *u
	f.users[u.Email] = &cp
	return nil
}

func (f *fakeStore) FindUserByEmail(_ context.Context, email string) (*domain.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	u, ok := f.users[email]
	if !ok {
		return nil, repo.ErrNotFound
	}
	cp := *u
	return &cp, nil
}

func (f *fakeStore) SetOTP(_ context.Context, email, code string, issuedAt time.Time) error {
	return f.mutate(email, func(u *domain.User) {
		t := issuedAt.UTC()
		u.OTP, u.OTPCreatedAt = code, &t
		u.PasswordResetVerified = false
	})
}

func (f *fakeStore) MarkEmailVerified(_ context.Context, email string) error {
	return f.mutate(email, func(u *domain.User) {
		u.EmailVerified = true
		u.OTP, u.OTPCreatedAt = "", nil
	})
}

func (f *fakeStore) MarkResetVerified(_ context.Context, email string) error {
	return f.mutate(email, func(u *domain.User) {
		u.PasswordResetVerified = true
		u.OTP, u.OTPCreatedAt = "", nil
	})
}

func (f *fakeStore) UpdatePassword(_ context.Context, email, hash string) error {
	return f.mutate(email, func(u *domain.User) {
		u.PasswordHash = hash
		u.PasswordResetVerified = false
		u.OTP, u.OTPCreatedAt = "", nil
	})
}

func (f *fakeStore) SetWorkoutData(_ context.Context, email string, wd domain.WorkoutData) error {
	return f.mutate(email, func(u *domain.User) { u.WorkoutData = wd })
}

func (f *fakeStore) SetWorkoutPlan(_ context.Context, email, plan string) error {
	return f.mutate(email, func(u *domain.User) { u.WorkoutPlan = plan })
}

func (f *fakeStore) SetAvatar(_ context.Context, email, url string) error {
	return f.mutate(email, func(u *domain.User) { u.Avatar = url })
}

func (f *fakeStore) Ping(context.Context) error { return nil }

func (f *fakeStore) mutate(email string, fn func(*domain.User)) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	u, ok := f.users[email]
	if !ok {
		return repo.ErrNotFound
	}
	fn(u)
	u.UpdatedAt = time.Now().UTC()
	return nil
}

// age rewinds the OTP issuance timestamp for expiry tests.
func (f *fakeStore) age(email string, by time.Duration) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if u, ok := f.users[email]; ok && u.OTPCreatedAt != nil {
		t := u.OTPCreatedAt.Add(-by)
		u.OTPCreatedAt = &t
	}
}

func (f *fakeStore) otp(email string) string {
	f.mu.Lock()
	defer f.mu.Unlock()
	if u, ok := f.users[email]; ok {
		return u.OTP
	}
	return ""
}

type sentMail struct {
	To, Subject, Body string
}

type stubMailer struct {
	mu   sync.Mutex
	sent []sentMail
	fail error
}

func (m *stubMailer) Send(_ context.Context, to, subject, html string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.fail != nil {
		return m.fail
	}
	m.sent = append(m.sent, sentMail{To: to, Subject: subject, Body: html})
	return nil
}

func (m *stubMailer) last(t *testing.T) sentMail {
	t.Helper()
	m.mu.Lock()
	defer m.mu.Unlock()
	if len(m.sent) == 0 {
		t.Fatal("no mail sent")
	}
	return m.sent[len(m.sent)-1]
}

func (m *stubMailer) count() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.sent)
}

type stubAI struct {
	mu    sync.Mutex
	calls int
	plan  string
	fail  error
}

func (a *stubAI) GeneratePlan(_ context.Context, _ domain.WorkoutData) (string, error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.calls++
	if a.fail != nil {
		return "", a.fail
	}
	return a.plan, nil
}

// pubEvent is what the recording publisher captures per emitted event,
// including the context state the publish ran under.
type pubEvent struct {
	Key    string
	ReqID  string
	CtxErr error
}

type recordPub struct {
	ch chan pubEvent
}

func newRecordPub() *recordPub {
	return &recordPub{ch: make(chan pubEvent, 32)}
}

func (p *recordPub) Publish(ctx context.Context, exchange, key string, event any, reqID string) error {
	p.ch <- pubEvent{Key: key, ReqID: reqID, CtxErr: ctx.Err()}
	return nil
}

func (p *recordPub) Close() error { return nil }

// wait blocks until an event with the given key comes through; events
// are emitted off the request goroutine, so tests have to sync here.
func (p *recordPub) wait(t *testing.T, key string) pubEvent {
	t.Helper()
	deadline := time.After(2 * time.Second)
	for {
		select {
		case e := <-p.ch:
			if e.Key == key {
				return e
			}
		case <-deadline:
			t.Fatalf("no %s event published", key)
		}
	}
}

type stubUploader struct{ url string }

func (u *stubUploader) Upload(context.Context, string) (string, error) { return u.url, nil }

type testEnv struct {
	Store  *fakeStore
	Mail   *stubMailer
	AI     *stubAI
	Events *recordPub
	H      *api.Handler
	Router *gin.Engine
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	gin.SetMode(gin.TestMode)

	store := newFakeStore()
	mailer := &stubMailer{}
	brain := &stubAI{plan: "Day 1: push-ups"}
	events := newRecordPub()

	cfg := config.Config{
		SessionSecret:     "test-session-secret",
		SessionTTLMin:     60,
		ResetSecret:       "test-reset-secret",
		OTPTTLMin:         10,
		OAuthStateSecret:  "test-state-secret",
		OAuthRedirectBase: "http://localhost:8080",
		RabbitExchange:    "fitplanner.events",
	}
	h := api.NewHandler(store, mailer, brain, &stubUploader{url: "https://cdn.example.com/a.png"}, events, cfg)

	return &testEnv{Store: store, Mail: mailer, AI: brain, Events: events, H: h, Router: api.NewRouter(h)}
}

func (e *testEnv) do(method, path, body string, hdr map[string]string) *httptest.ResponseRecorder {
	w := httptest.NewRecorder()
	req := httptest.NewRequest(method, path, bytes.NewBufferString(body))
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	for k, v := range hdr {
		req.Header.Set(k, v)
	}
	e.Router.ServeHTTP(w, req)
	return w
}

func bearer(token string) map[string]string {
	return map[string]string{"Authorization": "Bearer " + token}
}
