package services

import (
	"context"
	"fmt"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/sirupsen/logrus"
)

// Pinger is a backend the service cannot serve without.
type Pinger interface {
	Ping(ctx context.Context) error
}

type dependency struct {
	name   string
	pinger Pinger
}

type HealthService struct {
	serviceName  string
	logger       *logrus.Logger
	dependencies []dependency
	timeout      time.Duration

	healthCheckStatus *prometheus.GaugeVec
	lastHealthCheck   *prometheus.GaugeVec
}

type HealthStatus struct {
	Status    string            `json:"status"`
	Service   string            `json:"service"`
	Timestamp time.Time         `json:"timestamp"`
	Checks    map[string]string `json:"checks,omitempty"`
}

func NewHealthService(serviceName string, logger *logrus.Logger) *HealthService {
	hs := &HealthService{
		serviceName: serviceName,
		logger:      logger,
		timeout:     5 * time.Second,
	}

	hs.healthCheckStatus = prometheus.NewGaugeVec(prometheus.GaugeOpts{
		Name: "health_check_status",
		Help: "Health check status (1 = healthy, 0 = unhealthy)",
	}, []string{"service"})

	hs.lastHealthCheck = prometheus.NewGaugeVec(prometheus.GaugeOpts{
		Name: "health_check_timestamp",
		Help: "Timestamp of last health check",
	}, []string{"service"})

	// Tests build several health services in one process; reuse whatever is registered.
	hs.healthCheckStatus = registerGaugeVec(hs.healthCheckStatus, logger)
	hs.lastHealthCheck = registerGaugeVec(hs.lastHealthCheck, logger)

	return hs
}

// AddDependency registers a backend checked by Ready.
func (s *HealthService) AddDependency(name string, pinger Pinger) *HealthService {
	s.dependencies = append(s.dependencies, dependency{name: name, pinger: pinger})
	return s
}

// Health reports liveness only; it never touches a backend.
func (s *HealthService) Health() *HealthStatus {
	return &HealthStatus{
		Status:    "healthy",
		Service:   s.serviceName,
		Timestamp: time.Now().UTC(),
	}
}

// Ready pings every dependency. The returned error names the first failing
// one; the status always lists every check.
func (s *HealthService) Ready(ctx context.Context) (*HealthStatus, error) {
	status := &HealthStatus{
		Status:    "ready",
		Service:   s.serviceName,
		Timestamp: time.Now().UTC(),
		Checks:    make(map[string]string, len(s.dependencies)),
	}

	var firstErr error
	for _, dep := range s.dependencies {
		checkCtx, cancel := context.WithTimeout(ctx, s.timeout)
		err := dep.pinger.Ping(checkCtx)
		cancel()

		if err != nil {
			status.Checks[dep.name] = "unhealthy"
			s.logger.WithError(err).Errorf("Readiness check failed for %s", dep.name)
			s.UpdateHealthMetrics(dep.name, false)
			if firstErr == nil {
				firstErr = fmt.Errorf("%s unreachable: %w", dep.name, err)
			}
			continue
		}

		status.Checks[dep.name] = "healthy"
		s.UpdateHealthMetrics(dep.name, true)
	}

	if firstErr != nil {
		status.Status = "not ready"
		return status, firstErr
	}
	return status, nil
}

// UpdateHealthMetrics updates health check metrics
func (s *HealthService) UpdateHealthMetrics(serviceName string, healthy bool) {
	if healthy {
		s.healthCheckStatus.WithLabelValues(serviceName).Set(1)
	} else {
		s.healthCheckStatus.WithLabelValues(serviceName).Set(0)
	}
	s.lastHealthCheck.WithLabelValues(serviceName).Set(float64(time.Now().Unix()))
}

func registerGaugeVec(vec *prometheus.GaugeVec, logger *logrus.Logger) *prometheus.GaugeVec {
	if err := prometheus.Register(vec); err != nil {
		if are, ok := err.(prometheus.AlreadyRegisteredError); ok {
			if existing, ok := are.ExistingCollector.(*prometheus.GaugeVec); ok {
				return existing
			}
		}
		logger.WithError(err).Warn("Failed to register health metric")
	}
	return vec
}
