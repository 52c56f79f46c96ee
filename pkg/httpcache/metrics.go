package httpcache

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	lookupsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "brasileirao_http_cache_lookups_total",
		Help: "Total response cache lookups by route and result",
	}, []string{"route", "result"}) // result: "hit", "miss", "invalid", "key_error"

	writesTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "brasileirao_http_cache_writes_total",
		Help: "Total response cache writes by route and result",
	}, []string{"route", "result"}) // result: "stored", "skipped"
)
