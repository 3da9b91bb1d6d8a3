package models

import "time"

// TrackedPerson is someone whose medical documents a user keeps.
type TrackedPerson struct {
	ID        string
	UserID    string
	Name      string
	CreatedAt time.Time
}

// DocumentCategory classifies medical documents.
type DocumentCategory string

const (
	CategoryBill         DocumentCategory = "bill"
	CategoryPrescription DocumentCategory = "prescription"
	CategoryProvider     DocumentCategory = "provider"
	CategoryDocument     DocumentCategory = "document"
)

// Valid reports whether c is a known category.
func (c DocumentCategory) Valid() bool {
	switch c {
	case CategoryBill, CategoryPrescription, CategoryProvider, CategoryDocument:
		return true
	}
	return false
}

type MedicalDocument struct {
	ID               string
	UserID           string
	PersonID         string
	Category         DocumentCategory
	Title            string
	FileName         string
	ContentType      string
	SizeBytes        int64
	StorageKey       string
	Encrypted        bool
	EncryptedFileKey []byte
	Nonce            []byte
	CreatedAt        time.Time
}
