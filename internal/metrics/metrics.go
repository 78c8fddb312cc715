package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// NewRegistry creates a registry with the Go runtime and process collectors.
func NewRegistry() *prometheus.Registry {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return reg
}

func Handler(reg *prometheus.Registry) http.Handler {
	return promhttp.HandlerFor(reg, promhttp.HandlerOpts{Registry: reg})
}

// AppMetrics implements ports.Recorder.
type AppMetrics struct {
	Commands   *prometheus.CounterVec // labels: op, result=ok|error
	Brightness *prometheus.GaugeVec   // labels: light
	Logins     *prometheus.CounterVec // labels: result=ok|rejected
}

func NewAppMetrics(reg prometheus.Registerer) *AppMetrics {
	m := &AppMetrics{
		Commands: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "awesomelights_light_commands_total",
			Help: "Light commands issued, by operation and result.",
		}, []string{"op", "result"}),
		Brightness: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Name: "awesomelights_light_brightness",
			Help: "Last known brightness per light, 0 when off.",
		}, []string{"light"}),
		Logins: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "awesomelights_hub_logins_total",
			Help: "Hub login checks by result.",
		}, []string{"result"}),
	}
	reg.MustRegister(m.Commands, m.Brightness, m.Logins)
	return m
}

func (m *AppMetrics) LightCommand(op string, err error) {
	result := "ok"
	if err != nil {
		result = "error"
	}
	m.Commands.WithLabelValues(op, result).Inc()
}

func (m *AppMetrics) LightBrightness(name string, brightness int) {
	m.Brightness.WithLabelValues(name).Set(float64(brightness))
}

func (m *AppMetrics) HubLogin(valid bool) {
	result := "ok"
	if !valid {
		result = "rejected"
	}
	m.Logins.WithLabelValues(result).Inc()
}
