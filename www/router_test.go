package www

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"sync/atomic"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/require"

	"tally/engine"
	"tally/engine/config"
	"tally/engine/db"
)

const testAdminCode = "LETMEIN"

var testCodeCounter atomic.Uint64

// setupRouter builds a handler backed by a fresh sqlite store.
func setupRouter(t *testing.T) *gin.Engine {
	t.Helper()
	db.Connect("sqlite:" + filepath.Join(t.TempDir(), "tally_test.db"))
	require.NoError(t, db.SeedSettings(db.Settings{PointsPerTick: 100, TickInterval: 60}))

	conf := &config.ConfigSettings{}
	conf.RequiredSettings.EventName = "Test Event"
	conf.RequiredSettings.AdminCode = testAdminCode
	conf.RequiredSettings.SessionSecret = "test-secret"
	conf.MiscSettings.PointsPerTick = 100
	conf.MiscSettings.TickInterval = 60
	conf.SpendSettings.Options = []int{5, 10, 25, 50}
	conf.SpendSettings.Named = []config.SpendItem{
		{Name: "Coffee", Cost: 25},
		{Name: "Pizza", Cost: 50},
	}

	router := &Router{Config: conf, Engine: engine.NewEngine(conf)}
	return router.handler()
}

func createTestTeam(t *testing.T, name string, points int) db.TeamSchema {
	t.Helper()
	team, err := db.CreateTeam(db.TeamSchema{
		Name:   name,
		Code:   fmt.Sprintf("W%05d", testCodeCounter.Add(1)),
		Points: points,
	})
	require.NoError(t, err)
	return team
}

// doJSON performs one request, optionally with session cookies.
func doJSON(mux *gin.Engine, method, path, body string, cookies []*http.Cookie) *httptest.ResponseRecorder {
	var req *http.Request
	if body != "" {
		req = httptest.NewRequest(method, path, strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
	} else {
		req = httptest.NewRequest(method, path, nil)
	}
	for _, cookie := range cookies {
		req.AddCookie(cookie)
	}
	w := httptest.NewRecorder()
	mux.ServeHTTP(w, req)
	return w
}

// loginAs logs in with a join code and returns the session cookies.
func loginAs(t *testing.T, mux *gin.Engine, code string) []*http.Cookie {
	t.Helper()
	w := doJSON(mux, "POST", "/api/login", fmt.Sprintf(`{"code":%q}`, code), nil)
	require.Equal(t, http.StatusOK, w.Code)
	cookies := w.Result().Cookies()
	require.NotEmpty(t, cookies)
	return cookies
}

func decodeBody(t *testing.T, w *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var body map[string]any
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	return body
}
