package server_test

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/amine-dev/localq/internal/model"
	"github.com/amine-dev/localq/internal/server"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelError}))
}

// newTestServer builds a full server over an in-memory database. These tests
// go through the real router, so they cover routing, middleware, handlers,
// services, and storage together.
func newTestServer(t *testing.T, mutate func(*server.Config)) http.Handler {
	t.Helper()

	cfg := server.Config{
		Port:        0,
		DBPath:      ":memory:",
		JWTSecret:   "test-secret-at-least-16-chars!!",
		FrontendURL: "http://localhost:5173",
	}
	if mutate != nil {
		mutate(&cfg)
	}

	srv, err := server.New(cfg, testLogger())
	if err != nil {
		t.Fatalf("server.New: %v", err)
	}
	t.Cleanup(func() { srv.Close() })
	return srv.Handler()
}

func doJSON(t *testing.T, h http.Handler, method, path, token, body string) *httptest.ResponseRecorder {
	t.Helper()
	var req *http.Request
	if body != "" {
		req = httptest.NewRequest(method, path, strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
	} else {
		req = httptest.NewRequest(method, path, nil)
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, req)
	return rr
}

func register(t *testing.T, h http.Handler, email string) {
	t.Helper()
	body := fmt.Sprintf(`{"email":%q,"password":"password123","firstName":"Test","lastName":"User"}`, email)
	rr := doJSON(t, h, http.MethodPost, "/users", "", body)
	if rr.Code != http.StatusCreated {
		t.Fatalf("register %s: status %d, body %s", email, rr.Code, rr.Body.String())
	}
}

func login(t *testing.T, h http.Handler, email string) string {
	t.Helper()
	body := fmt.Sprintf(`{"email":%q,"password":"password123"}`, email)
	rr := doJSON(t, h, http.MethodPost, "/auth/login", "", body)
	if rr.Code != http.StatusOK {
		t.Fatalf("login %s: status %d, body %s", email, rr.Code, rr.Body.String())
	}
	var result struct {
		Token string `json:"token"`
	}
	if err := json.NewDecoder(rr.Body).Decode(&result); err != nil {
		t.Fatalf("decoding login response: %v", err)
	}
	return result.Token
}

func createQuestion(t *testing.T, h http.Handler, token, title, city string) model.Question {
	t.Helper()
	body := fmt.Sprintf(`{"title":%q,"content":"some content","city":%q}`, title, city)
	rr := doJSON(t, h, http.MethodPost, "/questions", token, body)
	if rr.Code != http.StatusCreated {
		t.Fatalf("create question: status %d, body %s", rr.Code, rr.Body.String())
	}
	var q model.Question
	if err := json.NewDecoder(rr.Body).Decode(&q); err != nil {
		t.Fatalf("decoding question: %v", err)
	}
	return q
}

func TestRegisterAndLogin(t *testing.T) {
	h := newTestServer(t, nil)

	rr := doJSON(t, h, http.MethodPost, "/users",
		"", `{"email":"amine@localq.com","password":"password123","firstName":"Amine","lastName":"Patient"}`)
	assert.Equal(t, http.StatusCreated, rr.Code)
	assert.NotContains(t, rr.Body.String(), "password", "hash must never serialize")

	t.Run("duplicate email conflicts", func(t *testing.T) {
		rr := doJSON(t, h, http.MethodPost, "/users",
			"", `{"email":"amine@localq.com","password":"other","firstName":"A","lastName":"B"}`)
		assert.Equal(t, http.StatusConflict, rr.Code)
	})

	t.Run("malformed email rejected", func(t *testing.T) {
		rr := doJSON(t, h, http.MethodPost, "/users",
			"", `{"email":"not-an-email","password":"pw","firstName":"A","lastName":"B"}`)
		assert.Equal(t, http.StatusBadRequest, rr.Code)
	})

	t.Run("login issues a working token", func(t *testing.T) {
		token := login(t, h, "amine@localq.com")

		rr := doJSON(t, h, http.MethodGet, "/users/me", token, "")
		assert.Equal(t, http.StatusOK, rr.Code)
		assert.Contains(t, rr.Body.String(), "amine@localq.com")
	})

	t.Run("wrong password rejected", func(t *testing.T) {
		rr := doJSON(t, h, http.MethodPost, "/auth/login",
			"", `{"email":"amine@localq.com","password":"nope"}`)
		assert.Equal(t, http.StatusUnauthorized, rr.Code)
	})

	t.Run("unknown email gets the same rejection", func(t *testing.T) {
		rr := doJSON(t, h, http.MethodPost, "/auth/login",
			"", `{"email":"ghost@localq.com","password":"password123"}`)
		assert.Equal(t, http.StatusUnauthorized, rr.Code)
		assert.Contains(t, rr.Body.String(), "invalid email or password")
	})

	t.Run("me without token", func(t *testing.T) {
		rr := doJSON(t, h, http.MethodGet, "/users/me", "", "")
		assert.Equal(t, http.StatusUnauthorized, rr.Code)
	})
}

func TestQuestionLifecycle(t *testing.T) {
	h := newTestServer(t, nil)
	register(t, h, "author@localq.com")
	register(t, h, "reader@localq.com")
	author := login(t, h, "author@localq.com")
	reader := login(t, h, "reader@localq.com")

	t.Run("create requires auth", func(t *testing.T) {
		rr := doJSON(t, h, http.MethodPost, "/questions",
			"", `{"title":"t","content":"c","city":"Lyon"}`)
		assert.Equal(t, http.StatusUnauthorized, rr.Code)
	})

	q := createQuestion(t, h, author, "Where to register a newborn?", "Lyon")
	createQuestion(t, h, reader, "Best boulangerie near Bellecour?", "Lyon")
	createQuestion(t, h, author, "Navigo refund after a strike?", "Paris")

	t.Run("list newest first", func(t *testing.T) {
		rr := doJSON(t, h, http.MethodGet, "/questions", "", "")
		assert.Equal(t, http.StatusOK, rr.Code)

		var list []model.Question
		assert.NoError(t, json.NewDecoder(rr.Body).Decode(&list))
		assert.Len(t, list, 3)
		assert.Equal(t, "Navigo refund after a strike?", list[0].Title)
	})

	t.Run("city filter is case-insensitive", func(t *testing.T) {
		rr := doJSON(t, h, http.MethodGet, "/questions?city=lyon", "", "")
		var list []model.Question
		assert.NoError(t, json.NewDecoder(rr.Body).Decode(&list))
		assert.Len(t, list, 2)
	})

	t.Run("search over title and content", func(t *testing.T) {
		rr := doJSON(t, h, http.MethodGet, "/questions?search=boulangerie", "", "")
		var list []model.Question
		assert.NoError(t, json.NewDecoder(rr.Body).Decode(&list))
		assert.Len(t, list, 1)
	})

	t.Run("get increments views", func(t *testing.T) {
		for want := 1; want <= 2; want++ {
			rr := doJSON(t, h, http.MethodGet, "/questions/"+q.ID, "", "")
			assert.Equal(t, http.StatusOK, rr.Code)

			var got model.Question
			assert.NoError(t, json.NewDecoder(rr.Body).Decode(&got))
			assert.Equal(t, want, got.Views)
			assert.Equal(t, "Test", got.Author.FirstName)
		}
	})

	t.Run("get missing question", func(t *testing.T) {
		rr := doJSON(t, h, http.MethodGet, "/questions/nope", "", "")
		assert.Equal(t, http.StatusNotFound, rr.Code)
	})

	t.Run("vote toggles", func(t *testing.T) {
		rr := doJSON(t, h, http.MethodPatch, "/questions/"+q.ID+"/vote", reader, "")
		assert.Equal(t, http.StatusOK, rr.Code)

		var res struct {
			Upvotes []string `json:"upvotes"`
		}
		assert.NoError(t, json.NewDecoder(rr.Body).Decode(&res))
		assert.Len(t, res.Upvotes, 1)

		rr = doJSON(t, h, http.MethodPatch, "/questions/"+q.ID+"/vote", reader, "")
		assert.NoError(t, json.NewDecoder(rr.Body).Decode(&res))
		assert.Empty(t, res.Upvotes)
	})

	t.Run("mine and liked", func(t *testing.T) {
		rr := doJSON(t, h, http.MethodPatch, "/questions/"+q.ID+"/vote", reader, "")
		assert.Equal(t, http.StatusOK, rr.Code)

		rr = doJSON(t, h, http.MethodGet, "/questions/mine", author, "")
		var mine []model.Question
		assert.NoError(t, json.NewDecoder(rr.Body).Decode(&mine))
		assert.Len(t, mine, 2)

		rr = doJSON(t, h, http.MethodGet, "/questions/liked", reader, "")
		var liked []model.Question
		assert.NoError(t, json.NewDecoder(rr.Body).Decode(&liked))
		assert.Len(t, liked, 1)
		assert.Equal(t, q.ID, liked[0].ID)
	})

	t.Run("delete is owner-only and cascades", func(t *testing.T) {
		body := fmt.Sprintf(`{"content":"try the mairie","questionId":%q}`, q.ID)
		rr := doJSON(t, h, http.MethodPost, "/answers", reader, body)
		assert.Equal(t, http.StatusCreated, rr.Code)

		rr = doJSON(t, h, http.MethodDelete, "/questions/"+q.ID, reader, "")
		assert.Equal(t, http.StatusForbidden, rr.Code)

		rr = doJSON(t, h, http.MethodDelete, "/questions/"+q.ID, author, "")
		assert.Equal(t, http.StatusNoContent, rr.Code)

		rr = doJSON(t, h, http.MethodGet, "/questions/"+q.ID, "", "")
		assert.Equal(t, http.StatusNotFound, rr.Code)

		rr = doJSON(t, h, http.MethodGet, "/answers/question/"+q.ID, "", "")
		assert.Equal(t, http.StatusOK, rr.Code)
		var answers []model.Answer
		assert.NoError(t, json.NewDecoder(rr.Body).Decode(&answers))
		assert.Empty(t, answers)
	})
}

func TestAnswerEndpoints(t *testing.T) {
	h := newTestServer(t, nil)
	register(t, h, "author@localq.com")
	register(t, h, "other@localq.com")
	author := login(t, h, "author@localq.com")
	other := login(t, h, "other@localq.com")

	q := createQuestion(t, h, author, "Where is the prefecture?", "Lyon")

	t.Run("answering a missing question", func(t *testing.T) {
		rr := doJSON(t, h, http.MethodPost, "/answers",
			other, `{"content":"hello","questionId":"nope"}`)
		assert.Equal(t, http.StatusNotFound, rr.Code)
	})

	body := fmt.Sprintf(`{"content":"Rue du Lac, near Part-Dieu","questionId":%q}`, q.ID)
	rr := doJSON(t, h, http.MethodPost, "/answers", other, body)
	assert.Equal(t, http.StatusCreated, rr.Code)

	var a model.Answer
	assert.NoError(t, json.NewDecoder(rr.Body).Decode(&a))
	assert.Equal(t, q.ID, a.QuestionID)

	t.Run("list by question", func(t *testing.T) {
		rr := doJSON(t, h, http.MethodGet, "/answers/question/"+q.ID, "", "")
		assert.Equal(t, http.StatusOK, rr.Code)

		var answers []model.Answer
		assert.NoError(t, json.NewDecoder(rr.Body).Decode(&answers))
		assert.Len(t, answers, 1)
	})

	t.Run("vote toggles", func(t *testing.T) {
		rr := doJSON(t, h, http.MethodPatch, "/answers/"+a.ID+"/vote", author, "")
		assert.Equal(t, http.StatusOK, rr.Code)

		var res struct {
			Upvotes []string `json:"upvotes"`
		}
		assert.NoError(t, json.NewDecoder(rr.Body).Decode(&res))
		assert.Len(t, res.Upvotes, 1)
	})

	t.Run("delete is owner-only", func(t *testing.T) {
		rr := doJSON(t, h, http.MethodDelete, "/answers/"+a.ID, author, "")
		assert.Equal(t, http.StatusForbidden, rr.Code)

		rr = doJSON(t, h, http.MethodDelete, "/answers/"+a.ID, other, "")
		assert.Equal(t, http.StatusNoContent, rr.Code)
	})
}

func TestGoogleRoutes(t *testing.T) {
	t.Run("absent without client ID", func(t *testing.T) {
		h := newTestServer(t, nil)
		rr := doJSON(t, h, http.MethodGet, "/auth/google", "", "")
		assert.Equal(t, http.StatusNotFound, rr.Code)
	})

	t.Run("redirects to Google with a state cookie", func(t *testing.T) {
		h := newTestServer(t, func(cfg *server.Config) {
			cfg.GoogleClientID = "client-id"
			cfg.GoogleClientSecret = "client-secret"
			cfg.GoogleCallbackURL = "http://localhost:8080/auth/google/callback"
		})

		rr := doJSON(t, h, http.MethodGet, "/auth/google", "", "")
		assert.Equal(t, http.StatusTemporaryRedirect, rr.Code)
		assert.Contains(t, rr.Header().Get("Location"), "accounts.google.com")

		cookies := rr.Result().Cookies()
		var found bool
		for _, c := range cookies {
			if c.Name == "oauth_state" && c.Value != "" {
				found = true
			}
		}
		assert.True(t, found, "state cookie must be set")
	})

	t.Run("callback failures redirect to the frontend", func(t *testing.T) {
		h := newTestServer(t, func(cfg *server.Config) {
			cfg.GoogleClientID = "client-id"
			cfg.GoogleClientSecret = "client-secret"
			cfg.GoogleCallbackURL = "http://localhost:8080/auth/google/callback"
		})

		// No state cookie at all.
		rr := doJSON(t, h, http.MethodGet, "/auth/google/callback?code=x&state=y", "", "")
		assert.Equal(t, http.StatusFound, rr.Code)
		assert.Equal(t, "http://localhost:5173/login?error=auth_failed", rr.Header().Get("Location"))

		// State mismatch.
		req := httptest.NewRequest(http.MethodGet, "/auth/google/callback?code=x&state=wrong", nil)
		req.AddCookie(&http.Cookie{Name: "oauth_state", Value: "right"})
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, req)
		assert.Equal(t, http.StatusFound, rec.Code)
		assert.Equal(t, "http://localhost:5173/login?error=auth_failed", rec.Header().Get("Location"))
	})
}

func TestSeededUsers(t *testing.T) {
	h := newTestServer(t, func(cfg *server.Config) {
		cfg.SeedUsers = true
	})

	rr := doJSON(t, h, http.MethodPost, "/auth/login",
		"", `{"email":"admin@localq.com","password":"password123"}`)
	assert.Equal(t, http.StatusOK, rr.Code)
	assert.Contains(t, rr.Body.String(), `"admin"`)
}

func TestRateLimit(t *testing.T) {
	h := newTestServer(t, func(cfg *server.Config) {
		cfg.RateLimitRequests = 2
		cfg.RateLimitWindow = time.Minute
	})

	for i := 0; i < 2; i++ {
		rr := doJSON(t, h, http.MethodGet, "/questions", "", "")
		assert.Equal(t, http.StatusOK, rr.Code)
	}
	rr := doJSON(t, h, http.MethodGet, "/questions", "", "")
	assert.Equal(t, http.StatusTooManyRequests, rr.Code)
}
