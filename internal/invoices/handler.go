package invoices

import (
	"bytes"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"go.uber.org/zap"

	"github.com/atrium-workspace/backend/internal/auth"
	"github.com/atrium-workspace/backend/internal/middleware"
	"github.com/atrium-workspace/backend/internal/models"
	"github.com/atrium-workspace/backend/internal/organizations"
	"github.com/atrium-workspace/backend/pkg/response"
	"github.com/atrium-workspace/backend/pkg/storage"
)

// Handler serves monthly organization statements.
type Handler struct {
	agg      *Aggregator
	orgRepo  *organizations.Repository
	userRepo *auth.Repository
	s3       *storage.S3
	logger   *zap.Logger
}

// NewHandler creates a statements handler. s3 may be nil; archiving is then
// skipped.
func NewHandler(agg *Aggregator, orgRepo *organizations.Repository, userRepo *auth.Repository, s3 *storage.S3, logger *zap.Logger) *Handler {
	return &Handler{agg: agg, orgRepo: orgRepo, userRepo: userRepo, s3: s3, logger: logger}
}

// Statement handles GET /organizations/:id/statement?year=2026&month=8.
// Responds with the statement PDF; ?format=json returns the line items
// instead. The rendered PDF is archived to S3 when storage is configured.
func (h *Handler) Statement(c *gin.Context) {
	org, ok := h.loadAuthorized(c)
	if !ok {
		return
	}

	year, err := strconv.Atoi(c.Query("year"))
	if err != nil {
		response.BadRequest(c, "year is required")
		return
	}
	monthNum, err := strconv.Atoi(c.Query("month"))
	if err != nil {
		response.BadRequest(c, "month is required")
		return
	}

	st, err := h.agg.Build(c.Request.Context(), org, year, time.Month(monthNum))
	if err != nil {
		if errors.Is(err, ErrInvalidPeriod) {
			response.BadRequestCode(c, response.CodeInvalidRange, "invalid statement period")
			return
		}
		h.logger.Error("build statement", zap.Error(err), zap.String("org_id", org.ID.String()))
		response.Internal(c, "failed to build statement")
		return
	}

	if c.Query("format") == "json" {
		response.OK(c, st)
		return
	}

	pdfBytes, err := RenderPDF(st)
	if err != nil {
		h.logger.Error("render statement", zap.Error(err), zap.String("org_id", org.ID.String()))
		response.Internal(c, "failed to render statement")
		return
	}

	if h.s3 != nil {
		key := storage.StatementKey(org.ID.String(), st.Year, int(st.Month))
		if _, err := h.s3.Upload(c.Request.Context(), h.s3.StatementsBucket(), key,
			"application/pdf", bytes.NewReader(pdfBytes), int64(len(pdfBytes)), false); err != nil {
			h.logger.Warn("archive statement", zap.Error(err), zap.String("key", key))
		}
	}

	filename := fmt.Sprintf("statement-%s-%04d-%02d.pdf", org.ID, st.Year, int(st.Month))
	c.Header("Content-Disposition", `attachment; filename="`+filename+`"`)
	c.Data(200, "application/pdf", pdfBytes)
}

// loadAuthorized parses :id and verifies the caller is a platform admin or a
// manager of this organization.
func (h *Handler) loadAuthorized(c *gin.Context) (*models.Organization, bool) {
	orgID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		response.BadRequest(c, "invalid organization id")
		return nil, false
	}
	org, err := h.orgRepo.GetByID(c.Request.Context(), orgID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			response.NotFound(c, "organization not found")
			return nil, false
		}
		response.Internal(c, "failed to load organization")
		return nil, false
	}

	role := models.Role(c.GetString(middleware.ContextUserRole))
	if models.RoleCan(role, models.CapViewAdmin) {
		return org, true
	}
	if !models.RoleCan(role, models.CapManageOrg) {
		response.Forbidden(c, "not permitted")
		return nil, false
	}
	userID := c.MustGet(middleware.ContextUserID).(uuid.UUID)
	actor, err := h.userRepo.GetByID(c.Request.Context(), userID)
	if err != nil || actor.OrganizationID == nil || *actor.OrganizationID != org.ID {
		response.Forbidden(c, "not a manager of this organization")
		return nil, false
	}
	return org, true
}
