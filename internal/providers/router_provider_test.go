package providers

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func dummyHandler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})
}

func TestRouterProvider_RecordsMethodAndUrl(t *testing.T) {
	rp := NewRouterProvider()
	rp.Get("/holder", dummyHandler())
	rp.Post("/backup", dummyHandler())

	routes := rp.GetRoutes()
	require.Len(t, routes, 2)
	assert.Equal(t, http.MethodGet, routes[0].Method)
	assert.Equal(t, "/holder", routes[0].Url)
	assert.Equal(t, http.MethodPost, routes[1].Method)
	assert.Equal(t, "/backup", routes[1].Url)
}

func TestRouterProvider_Endpoint(t *testing.T) {
	rp := statusRouter()

	assert.Equal(t, "/leaderboard", rp.Endpoint("/leaderboard"))
	assert.Equal(t, "/backup", rp.Endpoint("/backup"))
	assert.Equal(t, UnmatchedEndpoint, rp.Endpoint("/leaderboard/"))
	assert.Equal(t, UnmatchedEndpoint, rp.Endpoint("/"))
	assert.Equal(t, UnmatchedEndpoint, rp.Endpoint(""))
}

func TestMethodHandler_CorrectMethod(t *testing.T) {
	handler := methodHandler(http.MethodGet, dummyHandler())

	rr := httptest.NewRecorder()
	handler.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/holder", nil))

	assert.Equal(t, http.StatusOK, rr.Code)
	assert.Equal(t, "ok", rr.Body.String())
}

func TestRouterProvider_WrongMethodAdvertisesAllowed(t *testing.T) {
	rp := statusRouter()

	for _, route := range rp.GetRoutes() {
		wrong := http.MethodPost
		if route.Method == http.MethodPost {
			wrong = http.MethodGet
		}
		rr := httptest.NewRecorder()
		route.Handler.ServeHTTP(rr, httptest.NewRequest(wrong, route.Url, nil))

		assert.Equal(t, http.StatusMethodNotAllowed, rr.Code, route.Url)
		assert.Equal(t, route.Method, rr.Header().Get("Allow"), route.Url)
	}
}
