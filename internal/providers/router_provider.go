package providers

import (
	"amuletbot/internal/structures"
	"net/http"
)

// UnmatchedEndpoint labels requests for paths no route is registered for.
const UnmatchedEndpoint = "unmatched"

type RouterProviderInterface interface {
	Get(url string, handler http.Handler)
	Post(url string, handler http.Handler)
	GetRoutes() []structures.Route
	Endpoint(path string) string
}

// RouterProvider keeps one method per URL; the status API never serves two verbs on a path.
type RouterProvider struct {
	routes []structures.Route
	urls   map[string]struct{}
}

func (rp *RouterProvider) Get(url string, handler http.Handler) {
	rp.add(http.MethodGet, url, handler)
}

func (rp *RouterProvider) Post(url string, handler http.Handler) {
	rp.add(http.MethodPost, url, handler)
}

func (rp *RouterProvider) add(method, url string, handler http.Handler) {
	rp.routes = append(rp.routes, structures.Route{
		Method:  method,
		Url:     url,
		Handler: methodHandler(method, handler),
	})
	rp.urls[url] = struct{}{}
}

func (rp *RouterProvider) GetRoutes() []structures.Route {
	return rp.routes
}

// Endpoint maps a request path to the registered URL serving it, or UnmatchedEndpoint.
// Metrics are labelled with it so arbitrary paths cannot create new series.
func (rp *RouterProvider) Endpoint(path string) string {
	if _, ok := rp.urls[path]; ok {
		return path
	}
	return UnmatchedEndpoint
}

func NewRouterProvider() RouterProviderInterface {
	return &RouterProvider{urls: make(map[string]struct{})}
}

func methodHandler(method string, handler http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != method {
			w.Header().Set("Allow", method)
			http.Error(w, "Method Not Allowed", http.StatusMethodNotAllowed)
			return
		}
		handler.ServeHTTP(w, r)
	})
}
