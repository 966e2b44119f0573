package client

import "net/http"

// testMux routes "METHOD /path" patterns, mirroring the net/http.ServeMux
// method patterns introduced in Go 1.22, which the local toolchain lacks.
type testMux struct {
	routes map[string]http.HandlerFunc
}

func newTestMux() *testMux {
	return &testMux{routes: map[string]http.HandlerFunc{}}
}

func (m *testMux) HandleFunc(pattern string, fn func(http.ResponseWriter, *http.Request)) {
	m.routes[pattern] = fn
}

func (m *testMux) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if fn, ok := m.routes[r.Method+" "+r.URL.Path]; ok {
		fn(w, r)
		return
	}
	http.NotFound(w, r)
}
