package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

var (
	TurnsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "nobat_turns_total",
			Help: "Turn lifecycle counter by action",
		},
		[]string{"action"}, // created|updated|deleted
	)

	SurveySMSTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "nobat_survey_sms_total",
			Help: "Comment-survey SMS counter by stage",
		},
		[]string{"stage"}, // queued|sent|failed
	)
)

func MustRegister(r prometheus.Registerer) {
	r.MustRegister(
		TurnsTotal,
		SurveySMSTotal,
	)
}
