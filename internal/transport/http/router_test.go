package httptransport

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"net/url"
	"sync"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"profreg/internal/platform/metrics"
	"profreg/internal/registrant/handler"
	"profreg/internal/registrant/service"
	"profreg/internal/registrant/store"
	"profreg/internal/session"
	"profreg/pkg/testutil"
)

// outbox records every verification code instead of mailing it.
type outbox struct {
	mu    sync.Mutex
	codes map[string]string
	fail  error
}

func (o *outbox) SendVerification(_ context.Context, to, _, code string) error {
	o.mu.Lock()
	defer o.mu.Unlock()
	if o.codes == nil {
		o.codes = make(map[string]string)
	}
	o.codes[to] = code
	return o.fail
}

func (o *outbox) code(to string) string {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.codes[to]
}

type flakyPinger struct{ err error }

func (p flakyPinger) Ping(context.Context) error { return p.err }

type app struct {
	router http.Handler
	outbox *outbox
}

func newApp(t *testing.T, health Pinger) *app {
	t.Helper()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	reg := prometheus.NewRegistry()
	m := metrics.New(reg)
	box := &outbox{}

	svc := service.New(store.NewInMemory(), session.NewInMemoryStore(time.Hour), box,
		service.WithSeed([]string{"Pilot"}),
		service.WithMetrics(m),
		service.WithLogger(logger),
	)
	router := NewRouter(Deps{
		Logger:         logger,
		Metrics:        m,
		Gatherer:       reg,
		Registrants:    handler.New(svc, logger),
		Cookies:        session.NewCookieCodec([]byte("test-secret-test-secret-test-sec"), time.Hour),
		Cookie:         session.CookieConfig{TTL: time.Hour},
		RequestTimeout: 5 * time.Second,
		Health:         health,
	})
	return &app{router: router, outbox: box}
}

// browser carries cookies between requests the way a real one would.
type browser struct {
	t       *testing.T
	app     *app
	cookies map[string]*http.Cookie
}

func (a *app) browser(t *testing.T) *browser {
	return &browser{t: t, app: a, cookies: make(map[string]*http.Cookie)}
}

func (b *browser) do(req *http.Request) *httptest.ResponseRecorder {
	for _, c := range b.cookies {
		req.AddCookie(c)
	}
	rr := testutil.DoRequest(b.app.router, req)
	for _, c := range rr.Result().Cookies() {
		b.cookies[c.Name] = c
	}
	return rr
}

func (b *browser) get(path string) *httptest.ResponseRecorder {
	return b.do(testutil.NewRequest(b.t, http.MethodGet, path))
}

func (b *browser) post(path string, form url.Values) *httptest.ResponseRecorder {
	return b.do(testutil.NewFormRequest(b.t, path, form))
}

func registration(email, phone, profession string) url.Values {
	return url.Values{
		"name":       {"Ann"},
		"surname":    {"Lee"},
		"phone":      {phone},
		"email":      {email},
		"profession": {profession},
	}
}

func TestRegistrationJourney(t *testing.T) {
	a := newApp(t, nil)
	ann := a.browser(t)

	rr := ann.get("/")
	testutil.AssertStatus(t, rr, http.StatusOK)
	require.Contains(t, ann.cookies, session.CookieName)

	rr = ann.post("/upload", registration("ann@example.com", "+12025550123", "Engineer, Pilot"))
	testutil.AssertStatus(t, rr, http.StatusFound)
	assert.Equal(t, "/verify", rr.Header().Get("Location"))
	code := a.outbox.code("ann@example.com")
	require.Len(t, code, 6)

	rr = ann.post("/verify", url.Values{"code": {"000000"}})
	testutil.AssertStatusAndBody(t, rr, http.StatusUnprocessableEntity, service.MsgIncorrectCode)

	rr = ann.post("/verify", url.Values{"code": {code}})
	testutil.AssertStatusAndBody(t, rr, http.StatusOK, service.MsgVerified)

	rr = ann.get("/view-data")
	testutil.AssertStatusAndBody(t, rr, http.StatusOK, "<td>ann@example.com</td>")

	rr = ann.get("/most-common-profession")
	testutil.AssertStatusAndBody(t, rr, http.StatusOK, "<td>Pilot</td><td>2</td>", "<td>Engineer</td><td>1</td>")

	// the code is spent once the registrant is saved
	rr = ann.post("/verify", url.Values{"code": {code}})
	testutil.AssertStatus(t, rr, http.StatusUnprocessableEntity)

	rr = a.browser(t).post("/upload", registration("ann@example.com", "+4479460000", "Nurse"))
	testutil.AssertStatusAndBody(t, rr, http.StatusConflict, service.MsgDuplicate)

	rr = a.browser(t).post("/upload", registration("bo@example.com", "+12025550123", "Nurse"))
	testutil.AssertStatusAndBody(t, rr, http.StatusConflict, service.MsgDuplicate)
}

func TestSessionsAreIsolated(t *testing.T) {
	a := newApp(t, nil)
	ann := a.browser(t)
	other := a.browser(t)

	testutil.AssertStatus(t, ann.post("/upload", registration("ann@example.com", "+12025550123", "Engineer")), http.StatusFound)
	code := a.outbox.code("ann@example.com")

	rr := other.post("/verify", url.Values{"code": {code}})
	testutil.AssertStatusAndBody(t, rr, http.StatusUnprocessableEntity, service.MsgIncorrectCode)
}

func TestSendFailureKeepsPendingRegistration(t *testing.T) {
	a := newApp(t, nil)
	a.outbox.fail = errors.New("relay down")
	ann := a.browser(t)

	rr := ann.post("/upload", registration("ann@example.com", "+12025550123", "Engineer"))
	testutil.AssertStatusAndBody(t, rr, http.StatusBadGateway, service.MsgEmailFailed)

	rr = ann.post("/verify", url.Values{"code": {a.outbox.code("ann@example.com")}})
	testutil.AssertStatusAndBody(t, rr, http.StatusOK, service.MsgVerified)
}

func TestValidationEchoesSubmittedValues(t *testing.T) {
	a := newApp(t, nil)

	rr := a.browser(t).post("/upload", registration("ann@invalid", "+12025550123", "Engineer"))
	testutil.AssertStatusAndBody(t, rr, http.StatusUnprocessableEntity,
		service.MsgInvalidEmail, `value="ann@invalid"`, `value="`+testutil.HTMLEscaped("+12025550123")+`"`)
}

func TestOperationalEndpoints(t *testing.T) {
	t.Run("healthz reports ok", func(t *testing.T) {
		a := newApp(t, store.NewInMemory())
		rr := a.browser(t).get("/healthz")
		testutil.AssertStatusAndBody(t, rr, http.StatusOK, "ok")
		assert.Empty(t, rr.Result().Cookies())
	})

	t.Run("healthz reports an unreachable database", func(t *testing.T) {
		a := newApp(t, flakyPinger{err: errors.New("dial tcp: refused")})
		rr := a.browser(t).get("/healthz")
		testutil.AssertStatus(t, rr, http.StatusServiceUnavailable)
	})

	t.Run("metrics exposes flow counters", func(t *testing.T) {
		a := newApp(t, nil)
		b := a.browser(t)
		b.post("/upload", registration("ann@invalid", "+12025550123", "Engineer"))

		rr := b.get("/metrics")
		testutil.AssertStatusAndBody(t, rr, http.StatusOK,
			`profreg_registrations_total{outcome="invalid"} 1`,
			"profreg_http_request_duration_seconds",
		)
	})

	t.Run("request id is echoed", func(t *testing.T) {
		a := newApp(t, nil)
		rr := a.browser(t).get("/")
		assert.NotEmpty(t, rr.Header().Get("X-Request-ID"))
	})

	t.Run("unknown route", func(t *testing.T) {
		a := newApp(t, nil)
		testutil.AssertStatus(t, a.browser(t).get("/nope"), http.StatusNotFound)
	})
}
