package handler

import (
	"context"
	"fmt"
	"net/http"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"librarium/internal/api/dto"
	"librarium/internal/api/middleware"
	"librarium/internal/api/repository"
	"librarium/internal/api/service"
	"librarium/internal/config"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

// maxCoverSize bounds uploaded cover images (2MB).
const maxCoverSize = 2 << 20

var allowedCoverExts = map[string]bool{
	".jpg":  true,
	".jpeg": true,
	".png":  true,
	".gif":  true,
}

type BookHandler struct {
	svc      service.CatalogService
	audit    service.AuditService
	stats    service.StatsService
	coverDir string
	pageSize int
}

func NewBookHandler(svc service.CatalogService, audit service.AuditService, stats service.StatsService, cfg *config.Config) *BookHandler {
	return &BookHandler{
		svc:      svc,
		audit:    audit,
		stats:    stats,
		coverDir: cfg.CoverDataPath,
		pageSize: cfg.ItemsPerPage,
	}
}

// RegisterRoutes wires the public book routes; RegisterAdminRoutes the
// librarian-only ones.
func (h *BookHandler) RegisterRoutes(rg *gin.RouterGroup) {
	rg.GET("/", h.List)
	rg.GET("/search", h.Search)
	rg.GET("/:id", h.Show)
}

func (h *BookHandler) RegisterAdminRoutes(rg *gin.RouterGroup) {
	rg.POST("/", middleware.RequireLibrarian(), h.Create)
	rg.PUT("/:id", middleware.RequireLibrarian(), h.Update)
	rg.DELETE("/:id", middleware.RequireLibrarian(), h.Delete)
}

func (h *BookHandler) List(c *gin.Context) {
	page, _ := strconv.Atoi(c.DefaultQuery("page", "1"))
	filters := repository.BookFilters{
		Category:     c.Query("category"),
		Query:        c.Query("query"),
		Availability: c.DefaultQuery("availability", "all"),
	}

	ctx, cancel := context.WithTimeout(c.Request.Context(), 5*time.Second)
	defer cancel()

	books, total, err := h.svc.List(ctx, filters, page)
	if err != nil {
		respondServiceError(c, err)
		return
	}

	categories, err := h.svc.Categories(ctx)
	if err != nil {
		respondServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, dto.BookListResponse{
		Items:      books,
		Pagination: dto.NewPagination(page, h.pageSize, total),
		Categories: categories,
	})
}

func (h *BookHandler) Search(c *gin.Context) {
	query := c.Query("query")
	if query == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "query parameter is required"})
		return
	}
	page, _ := strconv.Atoi(c.DefaultQuery("page", "1"))
	availableOnly, _ := strconv.ParseBool(c.DefaultQuery("available_only", "false"))

	ctx, cancel := context.WithTimeout(c.Request.Context(), 5*time.Second)
	defer cancel()

	books, total, err := h.svc.Search(ctx, query, c.Query("category"), availableOnly, page)
	if err != nil {
		respondServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, dto.BookListResponse{
		Items:      books,
		Pagination: dto.NewPagination(page, h.pageSize, total),
	})
}

func (h *BookHandler) Show(c *gin.Context) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid book id"})
		return
	}

	ctx, cancel := context.WithTimeout(c.Request.Context(), 5*time.Second)
	defer cancel()

	book, err := h.svc.GetBook(ctx, id)
	if err != nil {
		respondServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, book)
}

func (h *BookHandler) Create(c *gin.Context) {
	var req dto.BookRequest
	if err := c.ShouldBind(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	cover, err := h.saveCover(c)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	ctx, cancel := context.WithTimeout(c.Request.Context(), 10*time.Second)
	defer cancel()

	book, err := h.svc.CreateBook(ctx, bookInputFrom(req, cover))
	if err != nil {
		respondServiceError(c, err)
		return
	}

	h.audit.Log(ctx, actorFrom(c), "Book Added", fmt.Sprintf("Added book: %s (ID: %d)", book.Title, book.ID))
	h.stats.InvalidateSystemStats(ctx)
	c.JSON(http.StatusCreated, book)
}

func (h *BookHandler) Update(c *gin.Context) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid book id"})
		return
	}

	var req dto.BookRequest
	if err := c.ShouldBind(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	cover, err := h.saveCover(c)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	ctx, cancel := context.WithTimeout(c.Request.Context(), 10*time.Second)
	defer cancel()

	book, err := h.svc.UpdateBook(ctx, id, bookInputFrom(req, cover))
	if err != nil {
		respondServiceError(c, err)
		return
	}

	h.audit.Log(ctx, actorFrom(c), "Book Updated", fmt.Sprintf("Updated book: %s (ID: %d)", book.Title, book.ID))
	h.stats.InvalidateSystemStats(ctx)
	c.JSON(http.StatusOK, book)
}

func (h *BookHandler) Delete(c *gin.Context) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid book id"})
		return
	}

	ctx, cancel := context.WithTimeout(c.Request.Context(), 5*time.Second)
	defer cancel()

	if err := h.svc.DeleteBook(ctx, id); err != nil {
		respondServiceError(c, err)
		return
	}

	h.audit.Log(ctx, actorFrom(c), "Book Deleted", fmt.Sprintf("Deleted book ID: %d", id))
	h.stats.InvalidateSystemStats(ctx)
	c.Status(http.StatusNoContent)
}

// saveCover stores an uploaded cover image, if present, and returns its stored
// filename. Missing file is not an error; a nil result keeps any current cover.
func (h *BookHandler) saveCover(c *gin.Context) (*string, error) {
	file, err := c.FormFile("cover_image")
	if err != nil {
		return nil, nil
	}

	if file.Size > maxCoverSize {
		return nil, fmt.Errorf("image size exceeds the maximum allowed size (2MB)")
	}
	ext := strings.ToLower(filepath.Ext(file.Filename))
	if !allowedCoverExts[ext] {
		return nil, fmt.Errorf("invalid image format, please upload JPG, PNG or GIF")
	}

	name := fmt.Sprintf("book_%d_%s%s", time.Now().Unix(), uuid.New().String()[:8], ext)
	if err := c.SaveUploadedFile(file, filepath.Join(h.coverDir, name)); err != nil {
		return nil, fmt.Errorf("failed to store cover image")
	}
	return &name, nil
}

func bookInputFrom(req dto.BookRequest, cover *string) service.BookInput {
	return service.BookInput{
		Title:         req.Title,
		Author:        req.Author,
		ISBN:          req.ISBN,
		PublishedYear: req.PublishedYear,
		Category:      req.Category,
		Description:   req.Description,
		ShelfLocation: req.ShelfLocation,
		CoverImage:    cover,
		TotalCopies:   req.TotalCopies,
	}
}
