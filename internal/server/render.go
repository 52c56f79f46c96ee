package server

import (
	"fmt"
	"strings"
	"text/tabwriter"

	"github.com/Sternrassler/brasileirao-proxy/pkg/futebol"
)

// RenderTabela renders the standings as a plain-text table.
func RenderTabela(entries []futebol.TabelaEntry) string {
	var b strings.Builder

	w := tabwriter.NewWriter(&b, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "#\tTime\tP\tJ\tV\tE\tD\tGP\tGC\tSG\t%\tÚltimos")
	for _, e := range entries {
		name := e.Time.NomePopular
		if name == "" {
			name = e.Time.Sigla
		}
		fmt.Fprintf(w, "%d\t%s\t%d\t%d\t%d\t%d\t%d\t%d\t%d\t%d\t%.1f\t%s\n",
			e.Posicao, name, e.Pontos, e.Jogos, e.Vitorias, e.Empates, e.Derrotas,
			e.GolsPro, e.GolsContra, e.SaldoGols, e.Aproveitamento,
			strings.ToUpper(strings.Join(e.UltimosJogos, "")))
	}
	w.Flush()

	return b.String()
}
