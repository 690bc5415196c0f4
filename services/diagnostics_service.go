package services

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/fasttech-foods/backoffice-api/clients"
	"github.com/fasttech-foods/backoffice-api/models"
	"golang.org/x/sync/errgroup"
)

// ProbeTimeout bounds each upstream health check
const ProbeTimeout = 5 * time.Second

// Probe is one upstream health check
type Probe struct {
	Name  string
	Check func(ctx context.Context) (string, error)
}

// ProbeResult is the outcome of a Probe
type ProbeResult struct {
	Name      string `json:"name"`
	Healthy   bool   `json:"healthy"`
	Detail    string `json:"detail,omitempty"`
	Error     string `json:"error,omitempty"`
	LatencyMS int64  `json:"latency_ms"`
}

// IdentityDiagnostics is the part of the identity service the API tester calls
type IdentityDiagnostics interface {
	InstanceInfo(ctx context.Context) (*clients.InstanceInfo, error)
	CheckAdminAccess(ctx context.Context) (*clients.AdminAccess, error)
}

// CategoryLister is satisfied by the catalog client
type CategoryLister interface {
	ListCategories(ctx context.Context) ([]models.Category, error)
}

// CatalogProbe checks the catalog service by listing categories
func CatalogProbe(api CategoryLister) Probe {
	return Probe{Name: "catalog", Check: func(ctx context.Context) (string, error) {
		categories, err := api.ListCategories(ctx)
		if err != nil {
			return "", err
		}
		return fmt.Sprintf("%d categories", len(categories)), nil
	}}
}

// PingProbe checks a backing connection that only reports reachability
func PingProbe(name string, ping func(ctx context.Context) error) Probe {
	return Probe{Name: name, Check: func(ctx context.Context) (string, error) {
		if err := ping(ctx); err != nil {
			return "", err
		}
		return "reachable", nil
	}}
}

// DiagnosticsService backs the API tester page
type DiagnosticsService struct {
	identity IdentityDiagnostics
	probes   []Probe
	clock    Clock
	logger   *slog.Logger
}

// NewDiagnosticsService creates a diagnostics service running the given probes
func NewDiagnosticsService(identity IdentityDiagnostics, clock Clock, logger *slog.Logger, probes ...Probe) *DiagnosticsService {
	return &DiagnosticsService{identity: identity, probes: probes, clock: clock, logger: logger}
}

// Upstreams runs every probe in parallel. A failing probe is reported, not returned.
func (s *DiagnosticsService) Upstreams(ctx context.Context) []ProbeResult {
	results := make([]ProbeResult, len(s.probes))

	var g errgroup.Group
	for i, probe := range s.probes {
		g.Go(func() error {
			pctx, cancel := context.WithTimeout(ctx, ProbeTimeout)
			defer cancel()

			start := s.clock.Now()
			detail, err := probe.Check(pctx)
			result := ProbeResult{
				Name:      probe.Name,
				Healthy:   err == nil,
				Detail:    detail,
				LatencyMS: s.clock.Now().Sub(start).Milliseconds(),
			}
			if err != nil {
				result.Error = err.Error()
				s.logger.Warn("upstream probe failed", "probe", probe.Name, "error", err)
			}
			results[i] = result
			return nil
		})
	}
	_ = g.Wait()
	return results
}

// Instance returns the identity service's pod metadata
func (s *DiagnosticsService) Instance(ctx context.Context) (*clients.InstanceInfo, error) {
	return s.identity.InstanceInfo(ctx)
}

// AdminAccess runs the identity service's admin-only probe with the caller's token
func (s *DiagnosticsService) AdminAccess(ctx context.Context) (*clients.AdminAccess, error) {
	return s.identity.CheckAdminAccess(ctx)
}
