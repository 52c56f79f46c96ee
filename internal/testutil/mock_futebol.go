// Package testutil provides testing utilities for the Brasileirão proxy.
package testutil

import (
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"time"
)

// MockResponse defines the behavior for a mock api-futebol endpoint response.
type MockResponse struct {
	StatusCode int
	Body       string
	Headers    map[string]string
	Delay      time.Duration
}

// MockFutebol is a configurable mock api-futebol server for testing.
// Paths are registered relative to the API root, e.g. "campeonatos/10".
type MockFutebol struct {
	server   *httptest.Server
	mu       sync.RWMutex
	handlers map[string]http.HandlerFunc
	counts   map[string]int

	// Tracking
	requestCount      int
	lastRequestHeader http.Header
}

// NewMockFutebol creates a new mock api-futebol server serving under /v1/.
func NewMockFutebol() *MockFutebol {
	mock := &MockFutebol{
		handlers: make(map[string]http.HandlerFunc),
		counts:   make(map[string]int),
	}

	mock.server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		path := strings.Trim(strings.TrimPrefix(r.URL.Path, "/v1"), "/")

		mock.mu.Lock()
		mock.requestCount++
		mock.counts[path]++
		mock.lastRequestHeader = r.Header.Clone()
		handler, exists := mock.handlers[path]
		mock.mu.Unlock()

		if exists {
			handler(w, r)
			return
		}

		w.Header().Set("Content-Type", "application/json; charset=utf-8")
		w.WriteHeader(http.StatusNotFound)
		fmt.Fprintf(w, `{"code":"recurso_nao_encontrado","message":"Recurso %s não encontrado"}`, path)
	}))

	return mock
}

// URL returns the API root of the mock server, including the /v1/ prefix.
func (m *MockFutebol) URL() string {
	return m.server.URL + "/v1/"
}

// Close shuts down the mock server.
func (m *MockFutebol) Close() {
	m.server.Close()
}

// Reset clears all tracking counters.
func (m *MockFutebol) Reset() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.requestCount = 0
	m.counts = make(map[string]int)
	m.lastRequestHeader = nil
}

// SetHandler sets a custom handler for a specific path.
func (m *MockFutebol) SetHandler(path string, handler http.HandlerFunc) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.handlers[strings.Trim(path, "/")] = handler
}

// SetResponse configures a simple response for a path.
func (m *MockFutebol) SetResponse(path string, resp MockResponse) {
	m.SetHandler(path, func(w http.ResponseWriter, r *http.Request) {
		if resp.Delay > 0 {
			select {
			case <-time.After(resp.Delay):
			case <-r.Context().Done():
				return
			}
		}

		for key, value := range resp.Headers {
			w.Header().Set(key, value)
		}

		w.WriteHeader(resp.StatusCode)
		if resp.Body != "" {
			w.Write([]byte(resp.Body))
		}
	})
}

// SetSequence answers path with responses in order, repeating the last one.
func (m *MockFutebol) SetSequence(path string, responses ...MockResponse) {
	var (
		mu   sync.Mutex
		next int
	)
	m.SetHandler(path, func(w http.ResponseWriter, r *http.Request) {
		mu.Lock()
		resp := responses[next]
		if next < len(responses)-1 {
			next++
		}
		mu.Unlock()

		for key, value := range resp.Headers {
			w.Header().Set(key, value)
		}
		w.WriteHeader(resp.StatusCode)
		if resp.Body != "" {
			w.Write([]byte(resp.Body))
		}
	})
}

// RequestCount returns the number of requests made to the server.
func (m *MockFutebol) RequestCount() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.requestCount
}

// PathCount returns the number of requests made to path.
func (m *MockFutebol) PathCount(path string) int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.counts[strings.Trim(path, "/")]
}

// LastRequestHeader returns the headers of the most recent request.
func (m *MockFutebol) LastRequestHeader() http.Header {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.lastRequestHeader
}

// NewJSONResponse creates a 200 OK response with a JSON body.
func NewJSONResponse(data string) MockResponse {
	return MockResponse{
		StatusCode: http.StatusOK,
		Body:       data,
		Headers: map[string]string{
			"Content-Type": "application/json; charset=utf-8",
		},
	}
}

// NewErrorResponse creates an api-futebol style error response.
func NewErrorResponse(status int, message string) MockResponse {
	return MockResponse{
		StatusCode: status,
		Body:       fmt.Sprintf(`{"code":"erro","message":%q}`, message),
		Headers: map[string]string{
			"Content-Type": "application/json; charset=utf-8",
		},
	}
}

// NewRateLimitResponse creates a 429 Too Many Requests response.
func NewRateLimitResponse() MockResponse {
	return NewErrorResponse(http.StatusTooManyRequests, "Limite de requisições atingido")
}

// NewServerErrorResponse creates a 500 Internal Server Error response.
func NewServerErrorResponse() MockResponse {
	return NewErrorResponse(http.StatusInternalServerError, "Erro interno")
}

// SampleTabela is a two-row standings payload in the api-futebol format.
const SampleTabela = `[
  {"posicao":1,"pontos":70,"time":{"time_id":56,"nome_popular":"Palmeiras","sigla":"PAL","escudo":"https://example.com/pal.svg"},
   "jogos":34,"vitorias":21,"empates":7,"derrotas":6,"gols_pro":58,"gols_contra":27,"saldo_gols":31,"aproveitamento":68.6,
   "variacao_posicao":0,"ultimos_jogos":["v","v","e","d","v"]},
  {"posicao":2,"pontos":65,"time":{"time_id":18,"nome_popular":"Botafogo","sigla":"BOT","escudo":"https://example.com/bot.svg"},
   "jogos":34,"vitorias":19,"empates":8,"derrotas":7,"gols_pro":52,"gols_contra":30,"saldo_gols":22,"aproveitamento":63.7,
   "variacao_posicao":1,"ultimos_jogos":["d","v","v","v","e"]}
]`
