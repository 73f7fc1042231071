// Package metrics exposes the Prometheus collectors shared by the todo platform services.
// A nil *Metrics is valid and records nothing.
package metrics

import (
	"context"
	"encoding/json"
	"errors"
	"net"
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	domainauth "github.com/target/todo-platform/internal/domain/auth"
	apperrors "github.com/target/todo-platform/internal/errors"
)

const namespace = "todo"

// Result constants for metric labels.
const (
	ResultSuccess = "success"
	ResultError   = "error"
	ResultInvalid = "invalid"
	ResultDemo    = "demo"
)

// Metrics groups the collectors for identity resolution and the edge relay.
type Metrics struct {
	LoginAttempts   *prometheus.CounterVec
	RoleLookups     *prometheus.CounterVec
	RoleMutations   *prometheus.CounterVec
	TokenOperations *prometheus.CounterVec
	GatewayRequests *prometheus.HistogramVec

	gatherer prometheus.Gatherer
}

// New builds the collectors and registers them with reg.
// Collectors already registered with reg are reused.
func New(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		LoginAttempts: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "session",
			Name:      "login_attempts_total",
			Help:      "Login attempts by result.",
		}, []string{"result"}),
		RoleLookups: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "roles",
			Name:      "lookups_total",
			Help:      "Admin role lookups by verdict source and failure class.",
		}, []string{"source", "error_class"}),
		RoleMutations: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "roles",
			Name:      "mutations_total",
			Help:      "Admin role grants and revocations by result.",
		}, []string{"op", "result"}),
		TokenOperations: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "token",
			Name:      "operations_total",
			Help:      "Token issue/validate/extract calls by result.",
		}, []string{"op", "result"}),
		GatewayRequests: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "gateway",
			Name:      "request_duration_seconds",
			Help:      "Duration of relayed requests in seconds.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"upstream", "method", "status"}),
	}

	if reg != nil {
		m.LoginAttempts = register(reg, m.LoginAttempts)
		m.RoleLookups = register(reg, m.RoleLookups)
		m.RoleMutations = register(reg, m.RoleMutations)
		m.TokenOperations = register(reg, m.TokenOperations)
		m.GatewayRequests = register(reg, m.GatewayRequests)
		if g, ok := reg.(prometheus.Gatherer); ok {
			m.gatherer = g
		}
	}
	return m
}

func register[C prometheus.Collector](reg prometheus.Registerer, c C) C {
	if err := reg.Register(c); err != nil {
		var are prometheus.AlreadyRegisteredError
		if errors.As(err, &are) {
			if existing, ok := are.ExistingCollector.(C); ok {
				return existing
			}
		}
		panic(err)
	}
	return c
}

// Handler serves the registered collectors in the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	if m == nil || m.gatherer == nil {
		return promhttp.Handler()
	}
	return promhttp.HandlerFor(m.gatherer, promhttp.HandlerOpts{})
}

// ObserveLogin counts a login attempt.
func (m *Metrics) ObserveLogin(result string) {
	if m == nil {
		return
	}
	m.LoginAttempts.WithLabelValues(result).Inc()
}

// Error classes used as the error_class label.
const (
	ClassTimeout           = "timeout"
	ClassCanceled          = "canceled"
	ClassNetwork           = "network"
	ClassMalformed         = "malformed_body"
	ClassNotFound          = "not_found"
	ClassTokenInvalid      = "token_invalid"
	ClassRemoteUnavailable = "remote_unavailable"
	ClassOther             = "other"
)

// ObserveRoleLookup counts a role lookup; err is nil for remote verdicts.
func (m *Metrics) ObserveRoleLookup(source string, err error) {
	if m == nil {
		return
	}
	class := "none"
	if err != nil {
		class = Classify(err)
	}
	m.RoleLookups.WithLabelValues(source, class).Inc()
}

// ObserveRoleMutation counts an admin grant or revoke.
func (m *Metrics) ObserveRoleMutation(op string, err error) {
	if m == nil {
		return
	}
	m.RoleMutations.WithLabelValues(op, resultOf(err)).Inc()
}

// ObserveToken counts a token operation.
func (m *Metrics) ObserveToken(op string, err error) {
	if m == nil {
		return
	}
	m.TokenOperations.WithLabelValues(op, resultOf(err)).Inc()
}

// ObserveGateway records the duration of a relayed request.
func (m *Metrics) ObserveGateway(upstream, method string, status int, d time.Duration) {
	if m == nil {
		return
	}
	m.GatewayRequests.WithLabelValues(upstream, method, strconv.Itoa(status)).Observe(d.Seconds())
}

func resultOf(err error) string {
	if err != nil {
		return ResultError
	}
	return ResultSuccess
}

// Classify maps err to a small fixed set of metric labels. The whole error
// tree is searched, so errors joined with several %w verbs classify by cause.
func Classify(err error) string {
	if err == nil {
		return ""
	}
	var (
		netErr    net.Error
		syntaxErr *json.SyntaxError
		typeErr   *json.UnmarshalTypeError
	)
	switch {
	case errors.Is(err, context.DeadlineExceeded):
		return ClassTimeout
	case errors.Is(err, context.Canceled):
		return ClassCanceled
	case errors.As(err, &netErr):
		if netErr.Timeout() {
			return ClassTimeout
		}
		return ClassNetwork
	case errors.As(err, &syntaxErr), errors.As(err, &typeErr):
		return ClassMalformed
	case errors.Is(err, domainauth.ErrNotFound):
		return ClassNotFound
	case errors.Is(err, domainauth.ErrTokenInvalid):
		return ClassTokenInvalid
	case errors.Is(err, domainauth.ErrRemoteUnavailable):
		return ClassRemoteUnavailable
	}
	if code := apperrors.GetCode(err); code != "" {
		return string(code)
	}
	return ClassOther
}
