package handlers

import (
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/sirupsen/logrus"
)

// MetricsHandler exposes the default Prometheus registry.
type MetricsHandler struct {
	logger  *logrus.Logger
	handler gin.HandlerFunc
}

func NewMetricsHandler(logger *logrus.Logger) *MetricsHandler {
	return &MetricsHandler{
		logger: logger,
		handler: gin.WrapH(promhttp.InstrumentMetricHandler(
			prometheus.DefaultRegisterer,
			promhttp.HandlerFor(prometheus.DefaultGatherer, promhttp.HandlerOpts{
				ErrorLog:      logger,
				ErrorHandling: promhttp.ContinueOnError,
			}),
		)),
	}
}

func (h *MetricsHandler) Prometheus(c *gin.Context) {
	h.handler(c)
}
