package services

import (
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"gorm.io/gorm"

	"librarydesk/internal/models"
	"librarydesk/internal/repositories"
)

// ─── Sentinel Errors ──────────────────────────────────────────────────────────

var (
	// ErrForbidden is returned when a book write is attempted by a principal
	// that is not an Admin (or does not exist in the user directory at all).
	ErrForbidden = errors.New("forbidden: admin role required")

	// ErrNotOwner is returned when a principal asks for another user's borrow
	// history. Borrow records are readable only by the email they belong to.
	ErrNotOwner = errors.New("borrow history is only visible to its owner")

	// ErrBookNotFound is returned when the requested book does not exist.
	ErrBookNotFound = errors.New("book not found")
)

// ─── Service Interface ────────────────────────────────────────────────────────

// RegistrationResult reports the outcome of an idempotent registration.
// InsertedID is nil when the email was already registered.
type RegistrationResult struct {
	Message    string     `json:"message"`
	InsertedID *uuid.UUID `json:"insertedId"`
}

// WriteResult mirrors the matched/modified counts the upstream API exposes
// for update-style operations.
type WriteResult struct {
	MatchedCount  int64 `json:"matchedCount"`
	ModifiedCount int64 `json:"modifiedCount"`
}

// LibraryService defines the application-level operations of the library system.
type LibraryService interface {
	RegisterUser(user *models.User) (*RegistrationResult, error)
	IsAdmin(email string) (bool, error)

	ListBooks() ([]models.Book, error)
	GetBook(id uuid.UUID) (*models.Book, error)
	ListBooksByCategory(category string) ([]models.Book, error)
	ListCategories() ([]string, error)
	CreateBook(book *models.Book, requester string) (*models.Book, error)
	UpdateBook(id uuid.UUID, fields map[string]interface{}, requester string) (*WriteResult, error)
	MarkBorrowed(id uuid.UUID) (*WriteResult, error)
	MarkReturned(id uuid.UUID) (*WriteResult, error)

	RecordBorrow(record *models.BorrowedBook) (*models.BorrowedBook, error)
	ListBorrowsByEmail(email, requester string) ([]models.BorrowedBook, error)
	RemoveBorrow(id uuid.UUID) (int64, error)
	ListOrphanedBorrows(requester string) ([]models.BorrowedBook, error)
}

// ─── Implementation ───────────────────────────────────────────────────────────

type libraryService struct {
	db         *gorm.DB
	userRepo   repositories.UserRepository
	bookRepo   repositories.BookRepository
	borrowRepo repositories.BorrowRepository
}

// NewLibraryService wires up all dependencies and returns a LibraryService.
func NewLibraryService(
	db *gorm.DB,
	userRepo repositories.UserRepository,
	bookRepo repositories.BookRepository,
	borrowRepo repositories.BorrowRepository,
) LibraryService {
	return &libraryService{
		db:         db,
		userRepo:   userRepo,
		bookRepo:   bookRepo,
		borrowRepo: borrowRepo,
	}
}

// ─── User Directory ───────────────────────────────────────────────────────────

// RegisterUser registers a user keyed by email. Registration is idempotent: a
// second call with a known email is a no-op that reports the existing state
// rather than an error. The lookup and insert run in one transaction so two
// concurrent registrations cannot both insert.
func (s *libraryService) RegisterUser(user *models.User) (*RegistrationResult, error) {
	var result *RegistrationResult

	err := s.db.Transaction(func(tx *gorm.DB) error {
		existing, err := s.userRepo.GetByEmail(tx, user.Email)
		if err != nil && !errors.Is(err, gorm.ErrRecordNotFound) {
			logrus.Errorf("RegisterUser: lookup failed for %s: %v", user.Email, err)
			return err
		}
		if existing != nil {
			logrus.Warnf("RegisterUser: user %s already exists", user.Email)
			result = &RegistrationResult{Message: "User already exists.", InsertedID: nil}
			return nil
		}

		if user.Role == "" {
			user.Role = models.UserRoleMember
		}
		if err := s.userRepo.Create(tx, user); err != nil {
			logrus.Errorf("RegisterUser: failed to create user %s: %v", user.Email, err)
			return err
		}
		logrus.Infof("RegisterUser: registered %s (id=%s, role=%s)", user.Email, user.ID, user.Role)
		result = &RegistrationResult{Message: "User registered successfully.", InsertedID: &user.ID}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}

// IsAdmin reports whether the user with the given email holds the Admin role.
// A missing user is simply not an admin, never an error.
func (s *libraryService) IsAdmin(email string) (bool, error) {
	user, err := s.userRepo.GetByEmail(nil, email)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return false, nil
		}
		return false, err
	}
	return user.Role == models.UserRoleAdmin, nil
}

// requireAdmin re-fetches the requester from the user directory and verifies
// the Admin role at call time. The role claim inside a token is never trusted
// for writes — only the current directory row counts.
func (s *libraryService) requireAdmin(requester string) error {
	admin, err := s.IsAdmin(requester)
	if err != nil {
		return err
	}
	if !admin {
		logrus.Warnf("requireAdmin: %s attempted an admin-only operation", requester)
		return ErrForbidden
	}
	return nil
}

// ─── Book Catalogue ───────────────────────────────────────────────────────────

// ListBooks returns the whole catalogue, unfiltered and unpaginated.
func (s *libraryService) ListBooks() ([]models.Book, error) {
	return s.bookRepo.List(nil)
}

// GetBook returns the book or ErrBookNotFound.
func (s *libraryService) GetBook(id uuid.UUID) (*models.Book, error) {
	book, err := s.bookRepo.GetByID(nil, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrBookNotFound
		}
		return nil, err
	}
	return book, nil
}

// ListBooksByCategory returns all books whose category matches exactly.
func (s *libraryService) ListBooksByCategory(category string) ([]models.Book, error) {
	return s.bookRepo.ListByCategory(nil, category)
}

// ListCategories returns each distinct category once.
func (s *libraryService) ListCategories() ([]string, error) {
	return s.bookRepo.DistinctCategories(nil)
}

// CreateBook inserts a book on behalf of an Admin. Quantity and CreatedAt are
// stamped by the server regardless of what the caller supplied.
func (s *libraryService) CreateBook(book *models.Book, requester string) (*models.Book, error) {
	if err := s.requireAdmin(requester); err != nil {
		return nil, err
	}

	book.ID = uuid.Nil // never accept a caller-chosen id
	book.CreatedAt = time.Now().UTC()

	if err := s.bookRepo.Create(nil, book); err != nil {
		logrus.Errorf("CreateBook: failed to create book record: %v", err)
		return nil, err
	}
	logrus.Infof("CreateBook: created book %q (id=%s) with quantity %d", book.Title, book.ID, book.Quantity)
	return book, nil
}

// updatableBookColumns maps the JSON field names accepted by UpdateBook to
// their columns. Anything else in the payload — including any id field — is
// dropped before the merge.
var updatableBookColumns = map[string]string{
	"title":       "title",
	"author":      "author",
	"category":    "category",
	"description": "description",
	"image":       "image",
	"rating":      "rating",
	"quantity":    "quantity",
}

// UpdateBook merges the supplied fields into an existing book on behalf of an
// Admin. Fields absent from the payload are left untouched.
func (s *libraryService) UpdateBook(id uuid.UUID, fields map[string]interface{}, requester string) (*WriteResult, error) {
	if err := s.requireAdmin(requester); err != nil {
		return nil, err
	}

	updates := make(map[string]interface{}, len(fields))
	for key, value := range fields {
		column, ok := updatableBookColumns[key]
		if !ok {
			continue
		}
		updates[column] = value
	}

	if len(updates) == 0 {
		logrus.Warnf("UpdateBook: no recognized fields in payload for book %s", id)
		return &WriteResult{}, nil
	}

	affected, err := s.bookRepo.UpdateFields(nil, id, updates)
	if err != nil {
		logrus.Errorf("UpdateBook: failed to update book %s: %v", id, err)
		return nil, err
	}
	logrus.Infof("UpdateBook: updated book %s (%d field(s), %d row(s))", id, len(updates), affected)
	return &WriteResult{MatchedCount: affected, ModifiedCount: affected}, nil
}

// MarkBorrowed decrements the book's quantity by one. The matching ledger
// append arrives as a separate request; the two writes are independent.
func (s *libraryService) MarkBorrowed(id uuid.UUID) (*WriteResult, error) {
	affected, err := s.bookRepo.AdjustQuantity(nil, id, -1)
	if err != nil {
		logrus.Errorf("MarkBorrowed: failed to decrement quantity for book %s: %v", id, err)
		return nil, err
	}
	logrus.Infof("MarkBorrowed: decremented quantity for book %s (%d row(s))", id, affected)
	return &WriteResult{MatchedCount: affected, ModifiedCount: affected}, nil
}

// MarkReturned increments the book's quantity by one.
func (s *libraryService) MarkReturned(id uuid.UUID) (*WriteResult, error) {
	affected, err := s.bookRepo.AdjustQuantity(nil, id, 1)
	if err != nil {
		logrus.Errorf("MarkReturned: failed to increment quantity for book %s: %v", id, err)
		return nil, err
	}
	logrus.Infof("MarkReturned: incremented quantity for book %s (%d row(s))", id, affected)
	return &WriteResult{MatchedCount: affected, ModifiedCount: affected}, nil
}

// ─── Borrow Ledger ────────────────────────────────────────────────────────────

// RecordBorrow appends a row to the borrow ledger. CreatedAt is stamped
// server-side; the referenced book is deliberately not validated.
func (s *libraryService) RecordBorrow(record *models.BorrowedBook) (*models.BorrowedBook, error) {
	record.ID = uuid.Nil
	record.CreatedAt = time.Now().UTC()

	if err := s.borrowRepo.Create(nil, record); err != nil {
		logrus.Errorf("RecordBorrow: failed to append ledger row for %s: %v", record.Email, err)
		return nil, err
	}
	logrus.Infof("RecordBorrow: ledger row %s created for %s (book=%s)", record.ID, record.Email, record.BookID)
	return record, nil
}

// ListBorrowsByEmail returns the borrow history for an email. Only the owner
// may read it: a requester/email mismatch is rejected before any query runs.
func (s *libraryService) ListBorrowsByEmail(email, requester string) ([]models.BorrowedBook, error) {
	if requester != email {
		logrus.Warnf("ListBorrowsByEmail: %s attempted to read history of %s", requester, email)
		return nil, ErrNotOwner
	}
	return s.borrowRepo.ListByEmail(nil, email)
}

// RemoveBorrow deletes a ledger row by id. There is no ownership check — the
// upstream contract lets any authenticated user clear a returned record.
func (s *libraryService) RemoveBorrow(id uuid.UUID) (int64, error) {
	deleted, err := s.borrowRepo.DeleteByID(nil, id)
	if err != nil {
		logrus.Errorf("RemoveBorrow: failed to delete ledger row %s: %v", id, err)
		return 0, err
	}
	logrus.Infof("RemoveBorrow: deleted ledger row %s (%d row(s))", id, deleted)
	return deleted, nil
}

// ListOrphanedBorrows is the read-repair path for the non-atomic borrow flow:
// it lists ledger rows whose book reference no longer resolves, so an Admin
// can reconcile stock counts against the ledger by hand.
func (s *libraryService) ListOrphanedBorrows(requester string) ([]models.BorrowedBook, error) {
	if err := s.requireAdmin(requester); err != nil {
		return nil, err
	}
	return s.borrowRepo.ListOrphaned(nil)
}
