package prometheus

import (
	"fmt"
	"net/http"
	"strings"

	goAuthFlow "github.com/MrEthical07/goAuthFlow"
	"github.com/MrEthical07/goAuthFlow/metrics/export/internaldefs"
)

// Source is anything that can snapshot goAuthFlow metrics: a
// *goAuthFlow.Engine on the client side or an *authserver.Service.
type Source interface {
	MetricsSnapshot() goAuthFlow.MetricsSnapshot
	AuditDropped() uint64
}

// Exporter renders metrics in the Prometheus text exposition format.
type Exporter struct {
	sources []Source
}

// New returns an exporter summing the snapshots of every source.
func New(sources ...Source) *Exporter {
	out := make([]Source, 0, len(sources))
	for _, s := range sources {
		if s != nil {
			out = append(out, s)
		}
	}
	return &Exporter{sources: out}
}

func (e *Exporter) Handler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "text/plain; version=0.0.4; charset=utf-8")
		_, _ = w.Write([]byte(e.Render()))
	})
}

// Render returns the current exposition text, or "" when every source has
// metrics disabled.
func (e *Exporter) Render() string {
	if e == nil || len(e.sources) == 0 {
		return ""
	}

	counters := make(map[goAuthFlow.MetricID]uint64)
	hists := make(map[goAuthFlow.MetricID][8]uint64)
	var dropped uint64
	for _, src := range e.sources {
		snap := src.MetricsSnapshot()
		for id, v := range snap.Counters {
			counters[id] += v
		}
		for id, raw := range snap.Histograms {
			sum := hists[id]
			for i, v := range internaldefs.NormalizeBuckets(raw) {
				sum[i] += v
			}
			hists[id] = sum
		}
		dropped += src.AuditDropped()
	}
	if len(counters) == 0 && len(hists) == 0 && dropped == 0 {
		return ""
	}

	var b strings.Builder
	b.Grow(4096)
	for _, def := range internaldefs.CounterDefs {
		writeCounter(&b, def.Name, def.Help, counters[def.ID])
	}
	for _, def := range internaldefs.HistogramDefs {
		writeHistogram(&b, def.Name, def.Help, internaldefs.CumulativeBuckets(hists[def.ID]))
	}
	writeCounter(&b, internaldefs.AuditDroppedName, "Audit events dropped under backpressure.", dropped)
	return b.String()
}

func writeHeader(b *strings.Builder, name, help, kind string) {
	fmt.Fprintf(b, "# HELP %s %s\n# TYPE %s %s\n", name, escapeHelp(help), name, kind)
}

func writeCounter(b *strings.Builder, name, help string, value uint64) {
	writeHeader(b, name, help, "counter")
	fmt.Fprintf(b, "%s %d\n", name, value)
}

func writeHistogram(b *strings.Builder, name, help string, cumulative [8]uint64) {
	writeHeader(b, name, help, "histogram")
	for i, le := range internaldefs.HistogramBounds {
		fmt.Fprintf(b, "%s_bucket{le=%q} %d\n", name, le, cumulative[i])
	}
	fmt.Fprintf(b, "%s_count %d\n", name, cumulative[len(cumulative)-1])
	// Snapshots carry bucket counts only.
	fmt.Fprintf(b, "%s_sum 0\n", name)
}

func escapeHelp(help string) string {
	help = strings.ReplaceAll(help, `\`, `\\`)
	return strings.ReplaceAll(help, "\n", `\n`)
}
