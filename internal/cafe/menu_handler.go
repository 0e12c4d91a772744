package cafe

import (
	"errors"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"go.uber.org/zap"

	"github.com/atrium-workspace/backend/internal/models"
	"github.com/atrium-workspace/backend/pkg/response"
	"github.com/atrium-workspace/backend/pkg/storage"
)

// MenuHandler handles menu item HTTP endpoints.
type MenuHandler struct {
	repo   *MenuRepository
	s3     *storage.S3
	logger *zap.Logger
}

// NewMenuHandler creates a menu handler. s3 may be nil when image uploads are
// disabled.
func NewMenuHandler(repo *MenuRepository, s3 *storage.S3, logger *zap.Logger) *MenuHandler {
	return &MenuHandler{repo: repo, s3: s3, logger: logger}
}

// CreateMenuItemRequest is the body for POST /cafe/menu.
type CreateMenuItemRequest struct {
	Name        string `json:"name" binding:"required"`
	Description string `json:"description"`
	Category    string `json:"category"`
	PriceCents  int    `json:"price_cents" binding:"required,gt=0"`
	Site        string `json:"site" binding:"required"`
}

// UpdateMenuItemRequest is the body for PATCH /cafe/menu/:id. Only supplied
// fields are changed.
type UpdateMenuItemRequest struct {
	Name        *string `json:"name"`
	Description *string `json:"description"`
	Category    *string `json:"category"`
	PriceCents  *int    `json:"price_cents"`
	IsAvailable *bool   `json:"is_available"`
}

// List handles GET /cafe/menu?site=X&available=true.
func (h *MenuHandler) List(c *gin.Context) {
	site := c.Query("site")
	availableOnly := c.Query("available") == "true"

	items, err := h.repo.List(c.Request.Context(), site, availableOnly)
	if err != nil {
		response.Internal(c, "failed to list menu items")
		return
	}
	response.OK(c, items)
}

// Create handles POST /cafe/menu (café manager/admin).
func (h *MenuHandler) Create(c *gin.Context) {
	var req CreateMenuItemRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "invalid request: "+err.Error())
		return
	}

	item := &models.MenuItem{
		Name:        req.Name,
		Description: req.Description,
		Category:    req.Category,
		PriceCents:  req.PriceCents,
		IsAvailable: true,
		Site:        req.Site,
	}
	if err := h.repo.Create(c.Request.Context(), item); err != nil {
		response.Internal(c, "failed to create menu item")
		return
	}
	response.Created(c, item)
}

// Update handles PATCH /cafe/menu/:id (café manager/admin). Toggling
// is_available is how items go off the menu; orders are never deleted.
func (h *MenuHandler) Update(c *gin.Context) {
	itemID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		response.BadRequest(c, "invalid menu item id")
		return
	}
	var req UpdateMenuItemRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "invalid request: "+err.Error())
		return
	}

	item, err := h.repo.GetByID(c.Request.Context(), itemID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			response.NotFound(c, "menu item not found")
			return
		}
		response.Internal(c, "failed to load menu item")
		return
	}

	if req.Name != nil {
		item.Name = *req.Name
	}
	if req.Description != nil {
		item.Description = *req.Description
	}
	if req.Category != nil {
		item.Category = *req.Category
	}
	if req.PriceCents != nil {
		if *req.PriceCents <= 0 {
			response.BadRequest(c, "price_cents must be positive")
			return
		}
		item.PriceCents = *req.PriceCents
	}
	if req.IsAvailable != nil {
		item.IsAvailable = *req.IsAvailable
	}

	if err := h.repo.Update(c.Request.Context(), item); err != nil {
		response.Internal(c, "failed to update menu item")
		return
	}
	response.OK(c, item)
}

// UploadImage handles POST /cafe/menu/:id/image (café manager/admin,
// multipart form field "file").
func (h *MenuHandler) UploadImage(c *gin.Context) {
	if h.s3 == nil {
		response.Internal(c, "image storage not configured")
		return
	}
	itemID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		response.BadRequest(c, "invalid menu item id")
		return
	}
	item, err := h.repo.GetByID(c.Request.Context(), itemID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			response.NotFound(c, "menu item not found")
			return
		}
		response.Internal(c, "failed to load menu item")
		return
	}

	file, err := c.FormFile("file")
	if err != nil {
		response.BadRequest(c, "file is required")
		return
	}
	if file.Size > storage.MaxImageFileSize {
		response.BadRequest(c, "file too large (max 5MB)")
		return
	}
	if !storage.ValidateImageFileType(file.Header.Get("Content-Type"), file.Filename) {
		response.BadRequest(c, "unsupported file type (jpg, png, webp)")
		return
	}

	src, err := file.Open()
	if err != nil {
		response.Internal(c, "failed to read upload")
		return
	}
	defer src.Close()

	contentType := storage.ContentTypeForFilename(file.Filename)
	key := storage.MenuImageKey(item.ID.String(), file.Filename)
	url, err := h.s3.Upload(c.Request.Context(), h.s3.MenuImagesBucket(), key, contentType, src, file.Size, true)
	if err != nil {
		h.logger.Error("upload menu image", zap.Error(err), zap.String("item_id", item.ID.String()))
		response.Internal(c, "failed to upload image")
		return
	}

	if err := h.repo.SetImageURL(c.Request.Context(), item.ID, url); err != nil {
		response.Internal(c, "failed to save image url")
		return
	}
	item.ImageURL = url
	response.OK(c, item)
}
