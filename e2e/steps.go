// Package e2e drives the full HTTP stack in process through Gherkin
// scenarios. Outgoing mail is captured so scenarios can read the codes.
package e2e

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"net/url"
	"regexp"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/cucumber/godog"
	"github.com/prometheus/client_golang/prometheus"

	"profreg/internal/platform/metrics"
	"profreg/internal/registrant/handler"
	"profreg/internal/registrant/service"
	"profreg/internal/registrant/store"
	"profreg/internal/session"
	httptransport "profreg/internal/transport/http"
	stringutil "profreg/pkg/platform/strings"
	"profreg/pkg/testutil"
)

var errRelayDown = errors.New("relay down")

// capturingDispatcher stands in for the mail relay.
type capturingDispatcher struct {
	mu    sync.Mutex
	codes map[string]string
	down  bool
}

func (d *capturingDispatcher) SendVerification(_ context.Context, to, _, code string) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.codes[to] = code
	if d.down {
		return errRelayDown
	}
	return nil
}

func (d *capturingDispatcher) codeFor(to string) (string, bool) {
	d.mu.Lock()
	defer d.mu.Unlock()
	code, ok := d.codes[to]
	return code, ok
}

// TestContext is the per-scenario world: one app, one browser cookie jar and
// the last response.
type TestContext struct {
	seed       []string
	dispatcher *capturingDispatcher
	router     http.Handler
	cookies    map[string]*http.Cookie
	last       *httptest.ResponseRecorder
}

func newTestContext() *TestContext {
	return &TestContext{
		dispatcher: &capturingDispatcher{codes: make(map[string]string)},
		cookies:    make(map[string]*http.Cookie),
	}
}

func (tc *TestContext) app() http.Handler {
	if tc.router != nil {
		return tc.router
	}
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	m := metrics.New(prometheus.NewRegistry())
	svc := service.New(store.NewInMemory(), session.NewInMemoryStore(time.Hour), tc.dispatcher,
		service.WithSeed(tc.seed),
		service.WithMetrics(m),
		service.WithLogger(logger),
	)
	tc.router = httptransport.NewRouter(httptransport.Deps{
		Logger:         logger,
		Metrics:        m,
		Registrants:    handler.New(svc, logger),
		Cookies:        session.NewCookieCodec([]byte("e2e-secret-e2e-secret-e2e-secret"), time.Hour),
		Cookie:         session.CookieConfig{TTL: time.Hour},
		RequestTimeout: 5 * time.Second,
	})
	return tc.router
}

func (tc *TestContext) do(req *http.Request) {
	for _, c := range tc.cookies {
		req.AddCookie(c)
	}
	rr := httptest.NewRecorder()
	tc.app().ServeHTTP(rr, req)
	for _, c := range rr.Result().Cookies() {
		tc.cookies[c.Name] = c
	}
	tc.last = rr
}

func (tc *TestContext) post(path string, form url.Values) {
	req := httptest.NewRequest(http.MethodPost, path, strings.NewReader(form.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	tc.do(req)
}

// RegisterSteps registers all step definitions on ctx.
func RegisterSteps(ctx *godog.ScenarioContext, tc *TestContext) {
	ctx.Step(`^the profession seed is "([^"]*)"$`, tc.professionSeed)
	ctx.Step(`^the mail relay is down$`, tc.relayDown)
	ctx.Step(`^"([^"]*)" "([^"]*)" registers with email "([^"]*)", phone "([^"]*)" and profession "([^"]*)"$`, tc.register)
	ctx.Step(`^a new visitor registers "([^"]*)" "([^"]*)" with email "([^"]*)", phone "([^"]*)" and profession "([^"]*)"$`, tc.registerAsNewVisitor)
	ctx.Step(`^"([^"]*)" "([^"]*)" is registered with email "([^"]*)" and phone "([^"]*)"$`, tc.alreadyRegistered)
	ctx.Step(`^I submit the code sent to "([^"]*)"$`, tc.submitSentCode)
	ctx.Step(`^I submit the code "([^"]*)"$`, tc.submitCode)
	ctx.Step(`^I open "([^"]*)"$`, tc.open)
	ctx.Step(`^the response status should be (\d+)$`, tc.statusShouldBe)
	ctx.Step(`^the page should contain "([^"]*)"$`, tc.pageShouldContain)
	ctx.Step(`^the form should still hold "([^"]*)"$`, tc.formShouldHold)
	ctx.Step(`^a verification code should have been sent to "([^"]*)"$`, tc.codeShouldBeSent)
	ctx.Step(`^the profession counts should be:$`, tc.professionCountsShouldBe)
}

func (tc *TestContext) professionSeed(seed string) error {
	tc.seed = stringutil.SplitAndTrim(seed, ",")
	return nil
}

func (tc *TestContext) relayDown() error {
	tc.dispatcher.mu.Lock()
	defer tc.dispatcher.mu.Unlock()
	tc.dispatcher.down = true
	return nil
}

func (tc *TestContext) register(name, surname, email, phone, profession string) error {
	tc.post("/upload", url.Values{
		"name":       {name},
		"surname":    {surname},
		"phone":      {phone},
		"email":      {email},
		"profession": {profession},
	})
	return nil
}

func (tc *TestContext) registerAsNewVisitor(name, surname, email, phone, profession string) error {
	tc.cookies = make(map[string]*http.Cookie)
	return tc.register(name, surname, email, phone, profession)
}

func (tc *TestContext) alreadyRegistered(name, surname, email, phone string) error {
	if err := tc.register(name, surname, email, phone, "Engineer"); err != nil {
		return err
	}
	if err := tc.submitSentCode(email); err != nil {
		return err
	}
	return tc.statusShouldBe(http.StatusOK)
}

func (tc *TestContext) submitSentCode(email string) error {
	code, ok := tc.dispatcher.codeFor(email)
	if !ok {
		return fmt.Errorf("no code was sent to %s", email)
	}
	return tc.submitCode(code)
}

func (tc *TestContext) submitCode(code string) error {
	tc.post("/verify", url.Values{"code": {code}})
	return nil
}

func (tc *TestContext) open(path string) error {
	tc.do(httptest.NewRequest(http.MethodGet, path, nil))
	return nil
}

func (tc *TestContext) statusShouldBe(status int) error {
	if tc.last == nil {
		return errors.New("no request has been made")
	}
	if tc.last.Code != status {
		return fmt.Errorf("expected status %d, got %d", status, tc.last.Code)
	}
	return nil
}

func (tc *TestContext) pageShouldContain(text string) error {
	if tc.last == nil {
		return errors.New("no request has been made")
	}
	if !strings.Contains(tc.last.Body.String(), testutil.HTMLEscaped(text)) {
		return fmt.Errorf("page does not contain %q", text)
	}
	return nil
}

func (tc *TestContext) formShouldHold(value string) error {
	if tc.last == nil {
		return errors.New("no request has been made")
	}
	if !strings.Contains(tc.last.Body.String(), `value="`+testutil.HTMLEscaped(value)+`"`) {
		return fmt.Errorf("form does not hold %q", value)
	}
	return nil
}

func (tc *TestContext) codeShouldBeSent(email string) error {
	code, ok := tc.dispatcher.codeFor(email)
	if !ok {
		return fmt.Errorf("no code was sent to %s", email)
	}
	if n, err := strconv.Atoi(code); err != nil || len(code) != 6 || n < 100000 {
		return fmt.Errorf("code %q is not six digits", code)
	}
	return nil
}

var countRow = regexp.MustCompile(`<tr><td>([^<]*)</td><td>(\d+)</td></tr>`)

func (tc *TestContext) professionCountsShouldBe(table *godog.Table) error {
	if tc.last == nil {
		return errors.New("no request has been made")
	}
	rows := countRow.FindAllStringSubmatch(tc.last.Body.String(), -1)
	want := table.Rows[1:]
	if len(rows) != len(want) {
		return fmt.Errorf("expected %d profession rows, got %d", len(want), len(rows))
	}
	for i, row := range want {
		profession, count := row.Cells[0].Value, row.Cells[1].Value
		if rows[i][1] != testutil.HTMLEscaped(profession) || rows[i][2] != count {
			return fmt.Errorf("row %d: expected %s=%s, got %s=%s", i, profession, count, rows[i][1], rows[i][2])
		}
	}
	return nil
}
