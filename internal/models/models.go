package models

import (
	"bytes"
	"fmt"
	"strconv"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type UserRole string

const (
	UserRoleAdmin  UserRole = "Admin"
	UserRoleMember UserRole = "Member"
)

type User struct {
	ID        uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`
	Name      string    `gorm:"size:255" json:"name"`
	Email     string    `gorm:"size:255;not null;uniqueIndex" json:"email"`
	Role      UserRole  `gorm:"size:32;not null;default:'Member'" json:"role"`
	PhotoURL  string    `gorm:"size:1024" json:"photoURL,omitempty"`
	CreatedAt time.Time `json:"createdAt"`
}

type Book struct {
	ID          uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`
	Title       string    `gorm:"size:255;not null" json:"title"`
	Author      string    `gorm:"size:255" json:"author"`
	Category    string    `gorm:"size:255;index" json:"category"`
	Description string    `gorm:"type:text" json:"description,omitempty"`
	Image       string    `gorm:"size:1024" json:"image,omitempty"`
	Rating      float64   `json:"rating,omitempty"`
	Quantity    int       `gorm:"not null;default:0" json:"quantity"`
	CreatedAt   time.Time `json:"createdAt"`
}

// BorrowedBook is one row of the borrow ledger. BookID is a plain column on
// purpose: the upstream contract has no referential enforcement, so a ledger
// row may outlive (or precede) the book it points at.
type BorrowedBook struct {
	ID         uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`
	BookID     uuid.UUID `gorm:"type:uuid;index" json:"bookId"`
	Email      string    `gorm:"size:255;not null;index" json:"email"`
	Name       string    `gorm:"size:255" json:"name,omitempty"`
	ReturnDate string    `gorm:"size:64" json:"returnDate,omitempty"`
	CreatedAt  time.Time `json:"createdAt"`
}

// IDs are assigned application-side so the models behave identically on
// PostgreSQL and on the in-memory engine the tests run against.

func (u *User) BeforeCreate(tx *gorm.DB) error {
	if u.ID == uuid.Nil {
		u.ID = uuid.New()
	}
	return nil
}

func (b *Book) BeforeCreate(tx *gorm.DB) error {
	if b.ID == uuid.Nil {
		b.ID = uuid.New()
	}
	return nil
}

func (b *BorrowedBook) BeforeCreate(tx *gorm.DB) error {
	if b.ID == uuid.Nil {
		b.ID = uuid.New()
	}
	return nil
}

// FlexInt decodes a JSON number or a numeric string into an int. Upstream
// clients send quantity both ways ("3" and 3), and the server is the one
// responsible for storing a real integer.
type FlexInt int

func (f *FlexInt) UnmarshalJSON(data []byte) error {
	data = bytes.Trim(data, `"`)
	if len(data) == 0 || bytes.Equal(data, []byte("null")) {
		*f = 0
		return nil
	}
	n, err := strconv.ParseFloat(string(data), 64)
	if err != nil {
		return fmt.Errorf("quantity must be numeric: %w", err)
	}
	*f = FlexInt(int(n))
	return nil
}

func (f FlexInt) Int() int { return int(f) }
