// Package metrics owns the Prometheus registry served on /metrics. Init
// wires the service collectors from observability into it, so one Provider
// is all main needs.
package metrics

import (
	"net/http"
	"strconv"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/mohammed-shakir/geobuffer/internal/core/observability"
)

type BuildInfo struct {
	Version   string
	Revision  string
	Branch    string
	BuildDate string
}

// RuntimeInfo describes how this instance was configured at startup.
type RuntimeInfo struct {
	DefaultH3Res       int
	CoverageCellBudget int
	ExportCache        bool
	Events             bool
}

type Config struct {
	Build   BuildInfo
	Runtime RuntimeInfo
}

type Provider struct {
	reg *prometheus.Registry
}

func Init(cfg Config) *Provider {
	reg := prometheus.NewRegistry()

	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	build := prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "geobuffer_build_info",
			Help: "Build info for this binary (value is always 1).",
		},
		[]string{"version", "revision", "branch", "build_date"},
	)
	v := cfg.Build
	if v.Version == "" {
		v.Version = "dev"
	}
	build.WithLabelValues(v.Version, v.Revision, v.Branch, v.BuildDate).Set(1)

	rt := cfg.Runtime
	runtime := prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "geobuffer_runtime_info",
			Help: "Startup configuration of this instance (value is always 1).",
		},
		[]string{"default_h3_res", "export_cache", "events"},
	)
	runtime.WithLabelValues(
		strconv.Itoa(rt.DefaultH3Res),
		strconv.FormatBool(rt.ExportCache),
		strconv.FormatBool(rt.Events),
	).Set(1)

	budget := prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "geobuffer_coverage_cell_budget",
		Help: "Largest buffer coverage, in H3 cells, served by /cells. 0 means unbounded.",
	})
	budget.Set(float64(rt.CoverageCellBudget))

	reg.MustRegister(build, runtime, budget)
	observability.Init(reg)

	return &Provider{reg: reg}
}

func (p *Provider) Handler() http.Handler {
	return promhttp.HandlerFor(p.reg, promhttp.HandlerOpts{Registry: p.reg})
}

func (p *Provider) Register(cs ...prometheus.Collector) {
	for _, c := range cs {
		p.reg.MustRegister(c)
	}
}

func (p *Provider) Registerer() prometheus.Registerer { return p.reg }
