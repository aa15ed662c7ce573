package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "tastereview"

var (
	SubmissionsCreated = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "submissions_created_total",
		Help:      "Submissions created on a visitor's first answer",
	})

	SubmissionsCompleted = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "submissions_completed_total",
		Help:      "Submissions marked complete",
	})

	// AnswersSaved is labelled by write kind: insert, update, skip or preview.
	AnswersSaved = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "answers_saved_total",
		Help:      "Answers recorded by the feedback flow",
	}, []string{"kind"})

	// FlowErrors is labelled by error class: validation, persistence or verification.
	FlowErrors = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "flow_errors_total",
		Help:      "Errors returned to visitors by the feedback flow",
	}, []string{"class"})

	// Rewards is labelled by the branch shown: review or social.
	Rewards = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "rewards_shown_total",
		Help:      "Reward screens resolved",
	}, []string{"branch"})
)
