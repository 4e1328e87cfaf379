package repositories

import (
	"github.com/google/uuid"
	"gorm.io/gorm"

	"librarydesk/internal/models"
)

type UserRepository interface {
	Create(db *gorm.DB, user *models.User) error
	GetByEmail(db *gorm.DB, email string) (*models.User, error)
}

type BookRepository interface {
	Create(db *gorm.DB, book *models.Book) error
	List(db *gorm.DB) ([]models.Book, error)
	GetByID(db *gorm.DB, id uuid.UUID) (*models.Book, error)
	ListByCategory(db *gorm.DB, category string) ([]models.Book, error)
	DistinctCategories(db *gorm.DB) ([]string, error)
	UpdateFields(db *gorm.DB, id uuid.UUID, fields map[string]interface{}) (int64, error)
	AdjustQuantity(db *gorm.DB, id uuid.UUID, delta int) (int64, error)
}

type BorrowRepository interface {
	Create(db *gorm.DB, record *models.BorrowedBook) error
	ListByEmail(db *gorm.DB, email string) ([]models.BorrowedBook, error)
	DeleteByID(db *gorm.DB, id uuid.UUID) (int64, error)
	ListOrphaned(db *gorm.DB) ([]models.BorrowedBook, error)
}

// concrete implementations

type userRepository struct {
	db *gorm.DB
}

func NewUserRepository(db *gorm.DB) UserRepository {
	return &userRepository{db: db}
}

func (r *userRepository) Create(db *gorm.DB, user *models.User) error {
	if db == nil {
		db = r.db
	}
	return db.Create(user).Error
}

func (r *userRepository) GetByEmail(db *gorm.DB, email string) (*models.User, error) {
	if db == nil {
		db = r.db
	}
	var user models.User
	if err := db.First(&user, "email = ?", email).Error; err != nil {
		return nil, err
	}
	return &user, nil
}

type bookRepository struct {
	db *gorm.DB
}

func NewBookRepository(db *gorm.DB) BookRepository {
	return &bookRepository{db: db}
}

func (r *bookRepository) Create(db *gorm.DB, book *models.Book) error {
	if db == nil {
		db = r.db
	}
	return db.Create(book).Error
}

func (r *bookRepository) List(db *gorm.DB) ([]models.Book, error) {
	if db == nil {
		db = r.db
	}
	var books []models.Book
	if err := db.Find(&books).Error; err != nil {
		return nil, err
	}
	return books, nil
}

func (r *bookRepository) GetByID(db *gorm.DB, id uuid.UUID) (*models.Book, error) {
	if db == nil {
		db = r.db
	}
	var book models.Book
	if err := db.First(&book, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &book, nil
}

func (r *bookRepository) ListByCategory(db *gorm.DB, category string) ([]models.Book, error) {
	if db == nil {
		db = r.db
	}
	var books []models.Book
	if err := db.Where("category = ?", category).Find(&books).Error; err != nil {
		return nil, err
	}
	return books, nil
}

// DistinctCategories returns each category value exactly once, regardless of
// how many books share it.
func (r *bookRepository) DistinctCategories(db *gorm.DB) ([]string, error) {
	if db == nil {
		db = r.db
	}
	var categories []string
	if err := db.Model(&models.Book{}).
		Distinct().
		Order("category").
		Pluck("category", &categories).Error; err != nil {
		return nil, err
	}
	return categories, nil
}

func (r *bookRepository) UpdateFields(db *gorm.DB, id uuid.UUID, fields map[string]interface{}) (int64, error) {
	if db == nil {
		db = r.db
	}
	res := db.Model(&models.Book{}).
		Where("id = ?", id).
		Updates(fields)
	return res.RowsAffected, res.Error
}

// AdjustQuantity applies a single atomic quantity += delta. No bounds check:
// the write site trusts its callers, matching the upstream contract.
func (r *bookRepository) AdjustQuantity(db *gorm.DB, id uuid.UUID, delta int) (int64, error) {
	if db == nil {
		db = r.db
	}
	res := db.Model(&models.Book{}).
		Where("id = ?", id).
		UpdateColumn("quantity", gorm.Expr("quantity + ?", delta))
	return res.RowsAffected, res.Error
}

type borrowRepository struct {
	db *gorm.DB
}

func NewBorrowRepository(db *gorm.DB) BorrowRepository {
	return &borrowRepository{db: db}
}

func (r *borrowRepository) Create(db *gorm.DB, record *models.BorrowedBook) error {
	if db == nil {
		db = r.db
	}
	return db.Create(record).Error
}

func (r *borrowRepository) ListByEmail(db *gorm.DB, email string) ([]models.BorrowedBook, error) {
	if db == nil {
		db = r.db
	}
	var records []models.BorrowedBook
	if err := db.Where("email = ?", email).Find(&records).Error; err != nil {
		return nil, err
	}
	return records, nil
}

func (r *borrowRepository) DeleteByID(db *gorm.DB, id uuid.UUID) (int64, error) {
	if db == nil {
		db = r.db
	}
	res := db.Delete(&models.BorrowedBook{}, "id = ?", id)
	return res.RowsAffected, res.Error
}

// ListOrphaned returns ledger rows whose book reference no longer resolves.
// Borrow/return touch two tables over two independent requests, so dangling
// rows can accumulate; this is the read-repair query behind the admin surface.
func (r *borrowRepository) ListOrphaned(db *gorm.DB) ([]models.BorrowedBook, error) {
	if db == nil {
		db = r.db
	}
	var records []models.BorrowedBook
	if err := db.
		Where("book_id NOT IN (?)", db.Session(&gorm.Session{NewDB: true}).Model(&models.Book{}).Select("id")).
		Find(&records).Error; err != nil {
		return nil, err
	}
	return records, nil
}
