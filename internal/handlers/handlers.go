package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"librarydesk/internal/auth"
	"librarydesk/internal/models"
	"librarydesk/internal/services"
)

type LibraryHandler struct {
	svc        services.LibraryService
	tokens     *auth.TokenManager
	production bool
}

// RegisterRoutes mounts the full HTTP surface. Routes outside the protected
// set (category browsing, registration, token issuance, liveness) are public;
// everything else goes through the token gate, and Admin checks happen inside
// the service operations.
func RegisterRoutes(r *gin.Engine, svc services.LibraryService, tokens *auth.TokenManager, production bool) {
	h := &LibraryHandler{svc: svc, tokens: tokens, production: production}
	authRequired := auth.RequireAuth(tokens)

	// Session endpoints
	r.POST("/jwt", h.issueToken)
	r.POST("/logout", h.logout)

	// User directory
	r.POST("/users", h.registerUser)
	r.GET("/users/admin/:email", authRequired, h.checkAdmin)

	// Book catalogue
	r.GET("/allBooks", authRequired, h.listBooks)
	r.GET("/allBooks/:id", authRequired, h.getBook)
	r.GET("/allBooks/category/:type", h.listBooksByCategory)
	r.GET("/categories", h.listCategories)
	r.POST("/allBooks", authRequired, h.createBook)
	r.PUT("/allBooks/:id", authRequired, h.updateBook)
	r.PUT("/allBooks/borrowed/:id", authRequired, h.markBorrowed)
	r.PUT("/allBooks/returned/:id", authRequired, h.markReturned)

	// Borrow ledger
	r.POST("/allBorrowed", authRequired, h.recordBorrow)
	r.GET("/allBorrowed/email/:email", authRequired, h.listBorrowsByEmail)
	r.GET("/allBorrowed/orphaned", authRequired, h.listOrphanedBorrows)
	r.DELETE("/allBorrowed/:id", authRequired, h.removeBorrow)

	// Liveness
	r.GET("/", h.liveness)
}

// respondServiceError maps domain sentinels to their statuses; anything
// unexpected becomes a clean 500 with a safe message instead of leaking
// driver internals.
func respondServiceError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, services.ErrForbidden):
		c.JSON(http.StatusForbidden, gin.H{"message": "Forbidden access."})
	case errors.Is(err, services.ErrNotOwner):
		c.JSON(http.StatusUnauthorized, gin.H{"message": "Unauthorized access."})
	default:
		logrus.Errorf("handler: unexpected service error: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"message": "Internal server error."})
	}
}

// ─── Session ──────────────────────────────────────────────────────────────────

type issueTokenRequest struct {
	Email string `json:"email" binding:"required,email"`
}

func (h *LibraryHandler) issueToken(c *gin.Context) {
	var req issueTokenRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"message": "email is required"})
		return
	}

	token, err := h.tokens.Issue(req.Email)
	if err != nil {
		respondServiceError(c, err)
		return
	}

	auth.SetTokenCookie(c.Writer, token, h.production)
	c.JSON(http.StatusOK, gin.H{"success": true})
}

func (h *LibraryHandler) logout(c *gin.Context) {
	auth.ClearTokenCookie(c.Writer, h.production)
	c.JSON(http.StatusOK, gin.H{"success": true})
}

// ─── User Directory ───────────────────────────────────────────────────────────

type registerUserRequest struct {
	Name     string          `json:"name"`
	Email    string          `json:"email" binding:"required,email"`
	Role     models.UserRole `json:"role"`
	PhotoURL string          `json:"photoURL"`
}

func (h *LibraryHandler) registerUser(c *gin.Context) {
	var req registerUserRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"message": err.Error()})
		return
	}

	result, err := h.svc.RegisterUser(&models.User{
		Name:     req.Name,
		Email:    req.Email,
		Role:     req.Role,
		PhotoURL: req.PhotoURL,
	})
	if err != nil {
		respondServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, result)
}

func (h *LibraryHandler) checkAdmin(c *gin.Context) {
	admin, err := h.svc.IsAdmin(c.Param("email"))
	if err != nil {
		respondServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"admin": admin})
}

// ─── Book Catalogue ───────────────────────────────────────────────────────────

func (h *LibraryHandler) listBooks(c *gin.Context) {
	books, err := h.svc.ListBooks()
	if err != nil {
		respondServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, books)
}

func (h *LibraryHandler) getBook(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"message": "invalid book id"})
		return
	}

	book, err := h.svc.GetBook(id)
	if err != nil {
		if errors.Is(err, services.ErrBookNotFound) {
			// Upstream contract: a miss is null with 200, not an explicit 404.
			c.JSON(http.StatusOK, nil)
			return
		}
		respondServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, book)
}

func (h *LibraryHandler) listBooksByCategory(c *gin.Context) {
	books, err := h.svc.ListBooksByCategory(c.Param("type"))
	if err != nil {
		respondServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, books)
}

func (h *LibraryHandler) listCategories(c *gin.Context) {
	categories, err := h.svc.ListCategories()
	if err != nil {
		respondServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, categories)
}

type createBookRequest struct {
	Title       string         `json:"title" binding:"required"`
	Author      string         `json:"author"`
	Category    string         `json:"category"`
	Description string         `json:"description"`
	Image       string         `json:"image"`
	Rating      float64        `json:"rating"`
	Quantity    models.FlexInt `json:"quantity"`
}

func (h *LibraryHandler) createBook(c *gin.Context) {
	var req createBookRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"message": err.Error()})
		return
	}

	book, err := h.svc.CreateBook(&models.Book{
		Title:       req.Title,
		Author:      req.Author,
		Category:    req.Category,
		Description: req.Description,
		Image:       req.Image,
		Rating:      req.Rating,
		Quantity:    req.Quantity.Int(),
	}, auth.PrincipalEmail(c))
	if err != nil {
		respondServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"insertedId": book.ID})
}

func (h *LibraryHandler) updateBook(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"message": "invalid book id"})
		return
	}

	var fields map[string]interface{}
	if err := c.ShouldBindJSON(&fields); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"message": err.Error()})
		return
	}
	// The document id is never part of the merge.
	delete(fields, "id")
	delete(fields, "_id")

	result, err := h.svc.UpdateBook(id, fields, auth.PrincipalEmail(c))
	if err != nil {
		respondServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, result)
}

func (h *LibraryHandler) markBorrowed(c *gin.Context) {
	h.adjustQuantity(c, h.svc.MarkBorrowed)
}

func (h *LibraryHandler) markReturned(c *gin.Context) {
	h.adjustQuantity(c, h.svc.MarkReturned)
}

func (h *LibraryHandler) adjustQuantity(c *gin.Context, op func(uuid.UUID) (*services.WriteResult, error)) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"message": "invalid book id"})
		return
	}

	result, err := op(id)
	if err != nil {
		respondServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, result)
}

// ─── Borrow Ledger ────────────────────────────────────────────────────────────

type recordBorrowRequest struct {
	BookID     string `json:"bookId" binding:"required,uuid"`
	Email      string `json:"email" binding:"required,email"`
	Name       string `json:"name"`
	ReturnDate string `json:"returnDate"`
}

func (h *LibraryHandler) recordBorrow(c *gin.Context) {
	var req recordBorrowRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"message": err.Error()})
		return
	}
	bookID, err := uuid.Parse(req.BookID)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"message": "invalid book id"})
		return
	}

	record, err := h.svc.RecordBorrow(&models.BorrowedBook{
		BookID:     bookID,
		Email:      req.Email,
		Name:       req.Name,
		ReturnDate: req.ReturnDate,
	})
	if err != nil {
		respondServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"insertedId": record.ID})
}

func (h *LibraryHandler) listBorrowsByEmail(c *gin.Context) {
	records, err := h.svc.ListBorrowsByEmail(c.Param("email"), auth.PrincipalEmail(c))
	if err != nil {
		respondServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, records)
}

func (h *LibraryHandler) listOrphanedBorrows(c *gin.Context) {
	records, err := h.svc.ListOrphanedBorrows(auth.PrincipalEmail(c))
	if err != nil {
		respondServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, records)
}

func (h *LibraryHandler) removeBorrow(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"message": "invalid record id"})
		return
	}

	deleted, err := h.svc.RemoveBorrow(id)
	if err != nil {
		respondServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"message":      "Borrowed book removed successfully.",
		"deletedCount": deleted,
	})
}

// ─── Liveness ─────────────────────────────────────────────────────────────────

func (h *LibraryHandler) liveness(c *gin.Context) {
	c.String(http.StatusOK, "Server is RUNNING...")
}
