package httptransport

import (
	"net/http"
	"net/url"
	"testing"

	"profreg/pkg/testutil"
)

func TestRouterScaffold(t *testing.T) {
	testutil.Given(t, "the HTTP router", func(t *testing.T) {
		a := newApp(t, nil)

		testutil.When(t, "calling GET /", func(t *testing.T) {
			rec := a.browser(t).get("/")

			testutil.Then(t, "it should render the registration form", func(t *testing.T) {
				if rec.Code != http.StatusOK {
					t.Fatalf("expected status %d, got %d", http.StatusOK, rec.Code)
				}
			})
		})

		testutil.When(t, "calling POST /verify without a pending registration", func(t *testing.T) {
			rec := a.browser(t).post("/verify", url.Values{"code": {"123456"}})

			testutil.Then(t, "it should refuse the code", func(t *testing.T) {
				if rec.Code != http.StatusUnprocessableEntity {
					t.Fatalf("expected status %d, got %d", http.StatusUnprocessableEntity, rec.Code)
				}
			})
		})

		testutil.When(t, "calling an unknown route", func(t *testing.T) {
			rec := a.browser(t).get("/auth/authorize")

			testutil.Then(t, "it should respond with not found", func(t *testing.T) {
				if rec.Code != http.StatusNotFound {
					t.Fatalf("expected status %d, got %d", http.StatusNotFound, rec.Code)
				}
			})
		})
	})
}
