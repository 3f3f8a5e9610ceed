package processor

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var messagesTotal = promauto.NewCounterVec(prometheus.CounterOpts{
	Name: "ride_messages_total",
	Help: "Total number of ride messages by processing outcome",
}, []string{"outcome"})

const (
	outcomeSaved     = "saved"
	outcomeInvalid   = "invalid"
	outcomeRejected  = "rejected"
	outcomeFailed    = "failed"
	outcomeMalformed = "malformed"
)
