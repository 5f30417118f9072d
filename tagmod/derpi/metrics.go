package derpi

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var derpiAPIDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
	Name: "tagmod_derpi_api_duration_sec",
	Help: "Duration of Derpibooru API calls",
}, []string{"op"})

var derpiAPICount = promauto.NewCounterVec(prometheus.CounterOpts{
	Name: "tagmod_derpi_api_count",
	Help: "Number of Derpibooru API calls, by operation and HTTP status code",
}, []string{"op", "status"})
