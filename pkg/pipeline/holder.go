package pipeline

import (
	"sync/atomic"

	"github.com/Gobusters/ectologger"

	"github.com/Ramsey-B/clover/pkg/catalog"
	"github.com/Ramsey-B/clover/pkg/metrics"
)

// Holder hands out the service for the active catalog. Requests in flight keep the service
// they started with when the catalog is swapped.
type Holder struct {
	current atomic.Pointer[Service]
	logger  ectologger.Logger
	workers int
}

func NewHolder(svc *Service, logger ectologger.Logger, workers int) *Holder {
	h := &Holder{logger: logger, workers: workers}
	h.current.Store(svc)
	return h
}

// Service returns the service for the active catalog
func (h *Holder) Service() *Service {
	return h.current.Load()
}

// Swap rebuilds the service for a reloaded catalog. A catalog the service rejects leaves the
// previous one in place.
func (h *Holder) Swap(c *catalog.Catalog) {
	svc, err := NewService(c, h.logger, h.workers)
	if err != nil {
		metrics.CatalogReloads.WithLabelValues("failed").Inc()
		h.logger.WithError(err).Error("Failed to rebuild pipeline for reloaded catalog")
		return
	}
	h.current.Store(svc)
	metrics.CatalogReloads.WithLabelValues("succeeded").Inc()
	h.logger.WithField("version", c.Version).Info("Pipeline switched to reloaded catalog")
}
