package app

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/steinfletcher/apitest"
	jsonpath "github.com/steinfletcher/apitest-jsonpath"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/Git-me-Harish/Video-KYC/internal/auth"
	"github.com/Git-me-Harish/Video-KYC/internal/launcher"
	"github.com/Git-me-Harish/Video-KYC/internal/observability"
	"github.com/Git-me-Harish/Video-KYC/internal/proxy"
	"github.com/Git-me-Harish/Video-KYC/internal/shared"
	"github.com/Git-me-Harish/Video-KYC/internal/view"
	"github.com/Git-me-Harish/Video-KYC/jobs"
	_ "github.com/Git-me-Harish/Video-KYC/testing"
)

const cookieName = "kyc_session"

type routerFixture struct {
	handler http.Handler
	mr      *miniredis.Miniredis
}

func newTestRouter(t *testing.T, cfg *Config) http.Handler {
	t.Helper()
	return newRouterFixture(t, cfg, "echo ok\n").handler
}

func newRouterFixture(t *testing.T, cfg *Config, script string) *routerFixture {
	t.Helper()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	ctx := context.Background()

	if cfg == nil {
		cfg = &Config{AppEnv: "test", RateLimitAuth: 100}
	}
	cfg.StoreDriver = StoreDriverSQLite
	cfg.SQLitePath = filepath.Join(t.TempDir(), "users.db")
	repo, closeRepo, err := OpenUserStore(ctx, cfg, logger, true)
	require.NoError(t, err)
	t.Cleanup(closeRepo)

	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	sessions := shared.NewSessionManager(shared.NewRedisSessionStore(client), cookieName, time.Hour, false)

	hasher, err := auth.NewBcryptHasher(bcrypt.MinCost)
	require.NoError(t, err)
	templates, err := view.NewEngine()
	require.NoError(t, err)
	metrics := observability.NewMetrics()

	upstream := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("X-Seen-Cookie", r.Header.Get("Cookie"))
		_, _ = fmt.Fprintf(w, "chat:%s", r.URL.Path)
	}))
	t.Cleanup(upstream.Close)
	forwarder, err := proxy.NewForwarder(upstream.URL, cookieName, logger)
	require.NoError(t, err)

	scriptPath := filepath.Join(t.TempDir(), "verify.sh")
	require.NoError(t, os.WriteFile(scriptPath, []byte(script), 0o600))
	runner := launcher.ScriptRunner{Interpreter: "sh", ScriptPath: scriptPath, Timeout: 5 * time.Second}

	handler := NewRouter(RouterParams{
		Logger:         logger,
		Config:         cfg,
		Templates:      templates,
		SessionManager: sessions,
		AuthHandler:    auth.NewHandler(logger, auth.NewService(repo, hasher), templates, sessions, metrics),
		ChatProxy:      forwarder,
		LaunchHandler:  launcher.NewHandler(logger, runner, nil, metrics),
		JobHandler:     jobs.NewHandler(nil, logger),
		Metrics:        metrics,
	})
	return &routerFixture{handler: handler, mr: mr}
}

func headerEquals(name, want string) func(*http.Response, *http.Request) error {
	return func(res *http.Response, _ *http.Request) error {
		if got := res.Header.Get(name); got != want {
			return fmt.Errorf("header %s = %q, want %q", name, got, want)
		}
		return nil
	}
}

func bodyContains(substr string) func(*http.Response, *http.Request) error {
	return func(res *http.Response, _ *http.Request) error {
		data, err := io.ReadAll(res.Body)
		if err != nil {
			return err
		}
		if !strings.Contains(string(data), substr) {
			return fmt.Errorf("body %q does not contain %q", string(data), substr)
		}
		return nil
	}
}

func sessionCookie(t *testing.T, res *http.Response) string {
	t.Helper()
	for _, c := range res.Cookies() {
		if c.Name == cookieName {
			return c.Value
		}
	}
	t.Fatal("no session cookie set")
	return ""
}

func TestEndToEndScenario(t *testing.T) {
	router := newTestRouter(t, nil)

	apitest.New().Handler(router).
		Get("/").
		Expect(t).
		Status(http.StatusSeeOther).
		Header("Location", "/login").
		End()

	apitest.New().Handler(router).
		Post("/register").
		JSON(`{"fullName":"Alice A","email":"a@x.com","password":"secret1"}`).
		Expect(t).
		Status(http.StatusCreated).
		Assert(jsonpath.Equal("$.message", "Registration successful")).
		End()

	apitest.New().Handler(router).
		Post("/register").
		JSON(`{"fullName":"Alice B","email":"a@x.com","password":"secret2"}`).
		Expect(t).
		Status(http.StatusBadRequest).
		Assert(jsonpath.Equal("$.message", "User already exists")).
		End()

	apitest.New().Handler(router).
		Post("/login").
		JSON(`{"email":"a@x.com","password":"nope!!"}`).
		Expect(t).
		Status(http.StatusBadRequest).
		Assert(jsonpath.Equal("$.message", "Invalid email or password")).
		End()

	res := apitest.New().Handler(router).
		Post("/login").
		JSON(`{"email":"a@x.com","password":"secret1"}`).
		Expect(t).
		Status(http.StatusOK).
		Assert(jsonpath.Equal("$.redirect", "/")).
		End()
	sid := sessionCookie(t, res.Response)

	apitest.New().Handler(router).
		Get("/").
		Cookie(cookieName, sid).
		Expect(t).
		Status(http.StatusOK).
		Assert(bodyContains("a@x.com")).
		End()

	apitest.New().Handler(router).
		Get("/login").
		Cookie(cookieName, sid).
		Expect(t).
		Status(http.StatusSeeOther).
		Header("Location", "/").
		End()

	apitest.New().Handler(router).
		Post("/logout").
		Cookie(cookieName, sid).
		Expect(t).
		Status(http.StatusOK).
		Assert(jsonpath.Equal("$.message", "Logout successful")).
		End()

	apitest.New().Handler(router).
		Get("/").
		Cookie(cookieName, sid).
		Expect(t).
		Status(http.StatusSeeOther).
		Header("Location", "/login").
		End()

	apitest.New().Handler(router).
		Get("/metrics").
		Expect(t).
		Status(http.StatusOK).
		Assert(bodyContains(`kycgate_auth_events_total{event="login",outcome="success"} 1`)).
		End()
}

func TestSideRoutes(t *testing.T) {
	router := newTestRouter(t, nil)

	apitest.New().Handler(router).
		Get("/healthz").
		Expect(t).
		Status(http.StatusOK).
		Body(`{"status":"ok"}`).
		End()

	apitest.New().Handler(router).
		Get("/chat/api/ping").
		Expect(t).
		Status(http.StatusOK).
		Body("chat:/api/ping").
		End()

	apitest.New().Handler(router).
		Get("/launch-kyc").
		Expect(t).
		Status(http.StatusOK).
		Body("KYC Verification App Launched").
		End()

	apitest.New().Handler(router).
		Get("/jobs/health").
		Expect(t).
		Status(http.StatusOK).
		Assert(jsonpath.Equal("$.queue", "default")).
		End()

	apitest.New().Handler(router).
		Get("/static/css/app.css").
		Expect(t).
		Status(http.StatusOK).
		Header("Cache-Control", "public, max-age=3600").
		End()

	apitest.New().Handler(router).
		Get("/static/missing.js").
		Expect(t).
		Status(http.StatusNotFound).
		End()
}

func TestSecurityHeaders(t *testing.T) {
	router := newTestRouter(t, nil)
	apitest.New().Handler(router).
		Get("/login").
		Expect(t).
		Status(http.StatusOK).
		Header("X-Frame-Options", "DENY").
		Header("X-Content-Type-Options", "nosniff").
		End()
}

func TestAuthRateLimit(t *testing.T) {
	router := newTestRouter(t, &Config{AppEnv: "test", RateLimitAuth: 2})

	for i := 0; i < 2; i++ {
		apitest.New().Handler(router).
			Post("/login").
			JSON(`{"email":"a@x.com","password":"secret1"}`).
			Expect(t).
			Status(http.StatusBadRequest).
			End()
	}
	apitest.New().Handler(router).
		Post("/login").
		JSON(`{"email":"a@x.com","password":"secret1"}`).
		Expect(t).
		Status(http.StatusTooManyRequests).
		End()

	// Page loads are not throttled by the credential limiter.
	apitest.New().Handler(router).
		Get("/login").
		Expect(t).
		Status(http.StatusOK).
		End()
}

func TestLaunchOutlivesRequestTimeout(t *testing.T) {
	f := newRouterFixture(t, &Config{AppEnv: "test", RateLimitAuth: 100, AppRequestTimeout: 100 * time.Millisecond}, "sleep 1\necho ok\n")

	apitest.New().Handler(f.handler).
		Get("/launch-kyc").
		Expect(t).
		Status(http.StatusOK).
		Body("KYC Verification App Launched").
		End()
}

func TestSideRoutesIgnoreSessionState(t *testing.T) {
	f := newRouterFixture(t, nil, "echo ok\n")

	apitest.New().Handler(f.handler).
		Get("/chat/rooms").
		Cookie(cookieName, "abc").
		Cookie("theme", "dark").
		Expect(t).
		Status(http.StatusOK).
		Body("chat:/rooms").
		Assert(headerEquals("X-Seen-Cookie", "theme=dark")).
		End()

	f.mr.Close()

	apitest.New().Handler(f.handler).
		Get("/chat/x").
		Cookie(cookieName, "abc").
		Expect(t).
		Status(http.StatusOK).
		Body("chat:/x").
		End()

	apitest.New().Handler(f.handler).
		Get("/launch-kyc").
		Cookie(cookieName, "abc").
		Expect(t).
		Status(http.StatusOK).
		Body("KYC Verification App Launched").
		End()

	// Session-backed pages still refuse to guess.
	apitest.New().Handler(f.handler).
		Get("/").
		Cookie(cookieName, "abc").
		Expect(t).
		Status(http.StatusInternalServerError).
		End()
}

func TestLogoutIsNotRateLimited(t *testing.T) {
	f := newRouterFixture(t, &Config{AppEnv: "test", RateLimitAuth: 1}, "echo ok\n")

	for i := 0; i < 3; i++ {
		apitest.New().Handler(f.handler).
			Post("/logout").
			Expect(t).
			Status(http.StatusOK).
			Assert(jsonpath.Equal("$.message", "Logout successful")).
			End()
	}

	f.mr.SetError("server down")
	apitest.New().Handler(f.handler).
		Post("/logout").
		Cookie(cookieName, "abc").
		Expect(t).
		Status(http.StatusInternalServerError).
		Assert(jsonpath.Equal("$.message", "Logout failed")).
		End()
}
