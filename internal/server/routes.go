package server

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/Sternrassler/brasileirao-proxy/pkg/cache"
	"github.com/Sternrassler/brasileirao-proxy/pkg/futebol"
	"github.com/Sternrassler/brasileirao-proxy/pkg/httpcache"
	"github.com/Sternrassler/brasileirao-proxy/pkg/metrics"
)

// ErrInvalidRodada is returned for a round number that is not a positive integer.
var ErrInvalidRodada = errors.New("invalid round number")

const msgRodadaInvalida = "Número da rodada inválido."

const (
	resourceRodada  = "brasileirao-rodada"
	timestampFormat = "2006-01-02T15:04:05.000Z07:00"
)

// Cache keys for the fixed routes.
var (
	keyHealth      = cache.Key{Resource: "health"}
	keyCampeonatos = cache.Key{Resource: "campeonatos"}
	keyBrasileirao = cache.Key{Resource: "brasileirao", ID: futebol.BrasileiraoID}
	keyTabela      = cache.Key{Resource: "brasileirao-tabela", ID: futebol.BrasileiraoID}
	keyTabelaTexto = cache.Key{Resource: "brasileirao-tabela-texto", ID: futebol.BrasileiraoID}
	keyRodadas     = cache.Key{Resource: "brasileirao-rodadas", ID: futebol.BrasileiraoID}
)

func (s *Server) routes() {
	ic := s.interceptor

	s.mux.Handle("GET /api/health", ic.JSON(httpcache.StaticKey(keyHealth.String()), s.handleHealth))
	s.mux.Handle("GET /api/campeonatos", ic.JSON(httpcache.StaticKey(keyCampeonatos.String()), s.handleCampeonatos))
	s.mux.Handle("GET /api/brasileirao", ic.JSON(httpcache.StaticKey(keyBrasileirao.String()), s.handleBrasileirao))
	s.mux.Handle("GET /api/brasileirao/tabela", ic.JSON(httpcache.StaticKey(keyTabela.String()), s.handleTabela))
	s.mux.Handle("GET /api/brasileirao/tabela.txt", ic.Text(httpcache.StaticKey(keyTabelaTexto.String()), s.config.TextTTL, s.handleTabelaTexto))
	s.mux.Handle("GET /api/brasileirao/rodadas", ic.JSON(httpcache.StaticKey(keyRodadas.String()), s.handleRodadas))
	s.mux.Handle("GET /api/brasileirao/rodadas/{numero}", ic.JSON(rodadaKey, s.handleRodada))

	s.mux.HandleFunc("GET /healthz", s.handleLiveness)
	s.mux.HandleFunc("GET /readyz", s.handleReadiness)
	s.mux.Handle("GET /metrics", metrics.Handler())
}

func (s *Server) handleHealth(*http.Request) (int, any, error) {
	s.logger.Debug().Msg("Executing health handler")
	return http.StatusOK, map[string]string{
		"status":    "UP",
		"timestamp": s.now().UTC().Format(timestampFormat),
	}, nil
}

func (s *Server) handleCampeonatos(r *http.Request) (int, any, error) {
	body, err := s.upstream.Campeonatos(r.Context())
	if err != nil {
		return 0, nil, upstreamError(err, "Erro ao buscar campeonatos da API externa.")
	}
	return http.StatusOK, body, nil
}

func (s *Server) handleBrasileirao(r *http.Request) (int, any, error) {
	body, err := s.upstream.Campeonato(r.Context(), futebol.BrasileiraoID)
	if err != nil {
		return 0, nil, upstreamError(err, "Erro ao buscar detalhes do Brasileirão.")
	}
	return http.StatusOK, body, nil
}

func (s *Server) handleTabela(r *http.Request) (int, any, error) {
	body, err := s.upstream.Tabela(r.Context(), futebol.BrasileiraoID)
	if err != nil {
		return 0, nil, upstreamError(err, "Erro ao buscar tabela do Brasileirão.")
	}
	return http.StatusOK, body, nil
}

func (s *Server) handleTabelaTexto(r *http.Request) (int, string, error) {
	entries, err := s.upstream.TabelaEntries(r.Context(), futebol.BrasileiraoID)
	if err != nil {
		return 0, "", upstreamError(err, "Erro ao buscar tabela do Brasileirão.")
	}
	return http.StatusOK, RenderTabela(entries), nil
}

func (s *Server) handleRodadas(r *http.Request) (int, any, error) {
	body, err := s.upstream.Rodadas(r.Context(), futebol.BrasileiraoID)
	if err != nil {
		return 0, nil, upstreamError(err, "Erro ao buscar rodadas do Brasileirão.")
	}
	return http.StatusOK, body, nil
}

func (s *Server) handleRodada(r *http.Request) (int, any, error) {
	numero, err := parseRodada(r.PathValue("numero"))
	if err != nil {
		return 0, nil, httpcache.NewError(http.StatusBadRequest, msgRodadaInvalida, err)
	}

	body, err := s.upstream.Rodada(r.Context(), futebol.BrasileiraoID, numero)
	if err != nil {
		return 0, nil, upstreamError(err, fmt.Sprintf("Erro ao buscar rodada %d do Brasileirão.", numero))
	}
	return http.StatusOK, body, nil
}

func (s *Server) handleLiveness(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	fmt.Fprint(w, "OK")
}

// handleReadiness always answers 200; the fallback store still serves.
func (s *Server) handleReadiness(w http.ResponseWriter, _ *http.Request) {
	status := s.store.Status()

	body, err := json.Marshal(struct {
		Status string       `json:"status"`
		Time   string       `json:"timestamp"`
		Cache  cache.Status `json:"cache"`
	}{
		Status: "UP",
		Time:   s.now().UTC().Format(time.RFC3339),
		Cache:  status,
	})
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	w.Write(body)
}

// rodadaKey derives the per-round cache key from the path.
func rodadaKey(r *http.Request) (string, error) {
	numero, err := parseRodada(r.PathValue("numero"))
	if err != nil {
		return "", err
	}
	return cache.Key{
		Resource: resourceRodada,
		ID:       futebol.BrasileiraoID,
		Params:   []string{strconv.Itoa(numero)},
	}.String(), nil
}

func parseRodada(raw string) (int, error) {
	n, err := strconv.Atoi(strings.TrimSpace(raw))
	if err != nil || n < 1 {
		return 0, fmt.Errorf("%w: %q", ErrInvalidRodada, raw)
	}
	return n, nil
}

// upstreamError maps an upstream failure to the status it carried, 500 when
// there was none.
func upstreamError(err error, message string) error {
	status := futebol.StatusOf(err)
	if status < http.StatusBadRequest {
		status = http.StatusInternalServerError
	}
	return httpcache.NewError(status, message, err)
}
