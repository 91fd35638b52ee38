package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	ModerationActions = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "localtv",
		Name:      "moderation_actions_total",
		Help:      "Moderation transitions applied, by queue and action.",
	}, []string{"queue", "action"})

	ApprovalEmails = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "localtv",
		Name:      "approval_emails_total",
		Help:      "Approval notification attempts, by result.",
	}, []string{"result"})

	Submissions = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "localtv",
		Name:      "video_submissions_total",
		Help:      "Video submissions accepted, by submission path.",
	}, []string{"path"})
)

func Handler() http.Handler {
	return promhttp.Handler()
}
