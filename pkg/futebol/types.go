package futebol

// BrasileiraoID is the api-futebol championship id of the Brasileirão Série A.
const BrasileiraoID = 10

// TimeInfo identifies a team in the standings feed.
type TimeInfo struct {
	ID          int    `json:"time_id"`
	NomePopular string `json:"nome_popular"`
	Sigla       string `json:"sigla"`
	Escudo      string `json:"escudo"`
}

// TabelaEntry is one row of a championship standings table.
type TabelaEntry struct {
	Posicao         int      `json:"posicao"`
	Pontos          int      `json:"pontos"`
	Time            TimeInfo `json:"time"`
	Jogos           int      `json:"jogos"`
	Vitorias        int      `json:"vitorias"`
	Empates         int      `json:"empates"`
	Derrotas        int      `json:"derrotas"`
	GolsPro         int      `json:"gols_pro"`
	GolsContra      int      `json:"gols_contra"`
	SaldoGols       int      `json:"saldo_gols"`
	Aproveitamento  float64  `json:"aproveitamento"`
	VariacaoPosicao int      `json:"variacao_posicao"`
	UltimosJogos    []string `json:"ultimos_jogos"`
}
