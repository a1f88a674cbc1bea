package splits

import (
	"context"
	"net/http"
	"strings"

	"github.com/Gobusters/ectoerror/httperror"
	"github.com/Gobusters/ectologger"
	"github.com/labstack/echo/v4"

	"github.com/Ramsey-B/clover/internal/repositories/commission"
	"github.com/Ramsey-B/clover/pkg/cache"
	"github.com/Ramsey-B/clover/pkg/metrics"
	"github.com/Ramsey-B/clover/pkg/models"
	"github.com/Ramsey-B/clover/pkg/pipeline"
)

// SplitReader loads stored splits
type SplitReader interface {
	LatestSplit(ctx context.Context, companyID string) (*commission.StoredSplit, error)
}

// Handler serves commission splits
type Handler struct {
	services *pipeline.Holder
	cache    *cache.ReportCache
	outputs  *pipeline.Outputs
	reader   SplitReader
	logger   ectologger.Logger
}

// NewHandler creates a splits handler. cache, outputs and reader are optional.
func NewHandler(services *pipeline.Holder, reportCache *cache.ReportCache, outputs *pipeline.Outputs, reader SplitReader, logger ectologger.Logger) *Handler {
	return &Handler{
		services: services,
		cache:    reportCache,
		outputs:  outputs,
		reader:   reader,
		logger:   logger,
	}
}

// Register registers split routes
func (h *Handler) Register(g *echo.Group) {
	g.POST("/splits", h.Compute)
	g.GET("/splits/:company", h.Latest)
}

// Compute attributes the posted record set and returns the report
func (h *Handler) Compute(c echo.Context) error {
	ctx := c.Request().Context()

	var records models.RecordSet
	if err := c.Bind(&records); err != nil {
		return httperror.NewHTTPError(http.StatusBadRequest, "invalid record set")
	}
	if records.IsEmpty() {
		return httperror.NewHTTPError(http.StatusBadRequest, "record set is empty")
	}

	svc := h.services.Service()
	report, cached, err := h.compute(ctx, svc, records)
	if err != nil {
		h.logger.WithContext(ctx).WithError(err).Error("Failed to compute commission table")
		return httperror.NewHTTPError(http.StatusInternalServerError, "failed to compute commission table")
	}

	if !cached {
		// delivery failures are logged by the outputs and do not fail the request
		_ = h.outputs.Deliver(ctx, report, svc.Catalog())
	}

	c.Response().Header().Set("X-Cache", cacheHeader(cached))
	return c.JSON(http.StatusOK, report)
}

func (h *Handler) compute(ctx context.Context, svc *pipeline.Service, records models.RecordSet) (*models.Report, bool, error) {
	if h.cache == nil {
		report, err := svc.ComputeTable(ctx, records)
		return report, false, err
	}

	fingerprint, err := svc.Fingerprint(records)
	if err != nil {
		return nil, false, err
	}
	report, cached, err := h.cache.GetOrCompute(ctx, fingerprint, func(ctx context.Context) (*models.Report, error) {
		return svc.ComputeTable(ctx, records)
	})
	if err == nil {
		metrics.ObserveCache(cached)
	}
	return report, cached, err
}

// Latest returns the most recently stored split of a company
func (h *Handler) Latest(c echo.Context) error {
	companyID := strings.TrimSpace(c.Param("company"))
	if companyID == "" {
		return httperror.NewHTTPError(http.StatusBadRequest, "company is required")
	}
	if _, ok := h.services.Service().Catalog().Company(companyID); !ok {
		return httperror.NewHTTPError(http.StatusNotFound, "unknown company")
	}
	if h.reader == nil {
		return httperror.NewHTTPError(http.StatusServiceUnavailable, "split storage is not configured")
	}

	stored, err := h.reader.LatestSplit(c.Request().Context(), companyID)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, stored)
}

func cacheHeader(cached bool) string {
	if cached {
		return "HIT"
	}
	return "MISS"
}
