// Package metrics expone contadores prometheus del flujo de autenticacion.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "admin_panel"

// Recorder implementa service.Recorder sobre un registro prometheus.
type Recorder struct {
	issuance     *prometheus.CounterVec
	verification *prometheus.CounterVec
	transitions  *prometheus.CounterVec
}

// NewRecorder registra los contadores en reg.
func NewRecorder(reg prometheus.Registerer) *Recorder {
	factory := promauto.With(reg)
	return &Recorder{
		issuance: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "otp_issuance_total",
				Help:      "OTP send and resend requests by result",
			},
			[]string{"result"},
		),
		verification: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "otp_verification_total",
				Help:      "OTP verification attempts by result",
			},
			[]string{"result"},
		),
		transitions: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "session_transitions_total",
				Help:      "Session restores, logins and logouts",
			},
			[]string{"event"},
		),
	}
}

func (r *Recorder) OTPIssuance(result string) {
	r.issuance.WithLabelValues(result).Inc()
}

func (r *Recorder) OTPVerification(result string) {
	r.verification.WithLabelValues(result).Inc()
}

func (r *Recorder) SessionTransition(event string) {
	r.transitions.WithLabelValues(event).Inc()
}

// Handler sirve el registro en formato de exposicion prometheus.
func Handler(g prometheus.Gatherer) http.Handler {
	return promhttp.HandlerFor(g, promhttp.HandlerOpts{})
}
