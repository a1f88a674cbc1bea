// Package analysis exposes the matcher and stage detector for ad hoc checks
package analysis

import (
	"net/http"
	"strings"

	"github.com/Gobusters/ectoerror/httperror"
	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"

	"github.com/Ramsey-B/clover/pkg/models"
	"github.com/Ramsey-B/clover/pkg/normalizers"
	"github.com/Ramsey-B/clover/pkg/pipeline"
)

var validate = validator.New()

// MatchRequest compares a company against a conversation name. Either CompanyID or
// CompanyName must be set.
type MatchRequest struct {
	CompanyID   string            `json:"company_id"`
	CompanyName string            `json:"company_name" validate:"required_without=CompanyID"`
	ChannelName string            `json:"channel_name" validate:"required"`
	SourceType  models.SourceType `json:"source_type" validate:"omitempty,oneof=channel dm telegram_chat"`
}

type MatchResponse struct {
	Match             bool    `json:"match"`
	Confidence        float64 `json:"confidence"`
	NormalizedCompany string  `json:"normalized_company"`
	NormalizedChannel string  `json:"normalized_channel"`
}

type DetectRequest struct {
	Text string `json:"text" validate:"required"`
}

type DetectResponse struct {
	Hits []models.StageHit `json:"hits"`
}

type StagesResponse struct {
	CatalogVersion string                   `json:"catalog_version"`
	Stages         []models.StageDefinition `json:"stages"`
}

// Handler serves matcher and detector endpoints
type Handler struct {
	services *pipeline.Holder
}

func NewHandler(services *pipeline.Holder) *Handler {
	return &Handler{services: services}
}

// Register registers analysis routes
func (h *Handler) Register(g *echo.Group) {
	g.POST("/match", h.Match)
	g.POST("/detect", h.Detect)
	g.GET("/catalog/stages", h.Stages)
}

// Match reports whether a channel name belongs to a company
func (h *Handler) Match(c echo.Context) error {
	var req MatchRequest
	if err := c.Bind(&req); err != nil {
		return httperror.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}
	if err := validate.Struct(req); err != nil {
		return httperror.NewHTTPError(http.StatusBadRequest, err.Error())
	}

	svc := h.services.Service()
	company := &models.Company{ID: "adhoc", DisplayName: strings.TrimSpace(req.CompanyName)}
	if req.CompanyID != "" {
		known, ok := svc.Catalog().Company(req.CompanyID)
		if !ok {
			return httperror.NewHTTPError(http.StatusNotFound, "unknown company")
		}
		company = known
	}

	matcher := svc.Matcher()
	resp := MatchResponse{
		Match:             matcher.MatchCompanyToChannel(company, req.ChannelName, req.SourceType),
		NormalizedCompany: normalizers.NormalizeCompanyName(company.DisplayName),
		NormalizedChannel: normalizers.NormalizeCompanyName(req.ChannelName),
	}
	if resp.Match {
		resp.Confidence = matcher.CalculateConfidence(company, req.ChannelName)
	}
	return c.JSON(http.StatusOK, resp)
}

// Detect returns the sales stages mentioned in a text
func (h *Handler) Detect(c echo.Context) error {
	var req DetectRequest
	if err := c.Bind(&req); err != nil {
		return httperror.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}
	if err := validate.Struct(req); err != nil {
		return httperror.NewHTTPError(http.StatusBadRequest, "text is required")
	}

	hits := h.services.Service().Detector().Detect(req.Text)
	if hits == nil {
		hits = []models.StageHit{}
	}
	return c.JSON(http.StatusOK, DetectResponse{Hits: hits})
}

// Stages lists the stage definitions of the active catalog
func (h *Handler) Stages(c echo.Context) error {
	cat := h.services.Service().Catalog()
	return c.JSON(http.StatusOK, StagesResponse{CatalogVersion: cat.Version, Stages: cat.Stages})
}
