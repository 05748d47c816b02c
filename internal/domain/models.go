// Package domain defines the persistence models for authors, quotes, and
// listeners. These types are mapped with GORM and form the core data layer
// of the quote store.
//
// Quotes and listeners are content-addressed: each row carries a fingerprint
// (see package fingerprint) guarded by a unique index, so two submissions of
// the same normalized content map to one logical record regardless of any
// caller-supplied metadata. Rows are immutable once created and are never
// deleted by the application.
package domain

import "time"

// Author is the attributed originator of one or more quotes. Authors are
// created lazily the first time a quote references an unseen name.
//
// Fields:
//   - ID: auto-increment primary key.
//   - Name: display name, unique (exact match).
//   - CreatedAt: timestamp managed by GORM.
type Author struct {
	ID        uint      `json:"id"   gorm:"primaryKey"`
	Name      string    `json:"name" gorm:"type:varchar(255);not null;uniqueIndex:ux_authors_name"`
	CreatedAt time.Time `json:"-"`
}

// TableName returns the database table name for Author.
func (Author) TableName() string { return "authors" }

// Quote is a piece of broadcastable content.
//
// Fields:
//   - ID: auto-increment primary key assigned by the store.
//   - AuthorID: foreign key to the attributed author (indexed).
//   - Text: the text as submitted (surrounding whitespace trimmed).
//   - HashedText: fingerprint of the normalized text; unique.
//   - Reference: free-form source reference (book, speech, year...).
//   - Author: FK association, loaded on reads.
type Quote struct {
	ID         uint      `json:"id"        gorm:"primaryKey"`
	AuthorID   uint      `json:"-"         gorm:"not null;index"`
	Text       string    `json:"text"      gorm:"type:text;not null"`
	HashedText string    `json:"-"         gorm:"type:char(64);not null;uniqueIndex:ux_quotes_hashed_text"`
	Reference  string    `json:"reference" gorm:"type:varchar(512)"`
	CreatedAt  time.Time `json:"-"`

	Author Author `json:"author" gorm:"foreignKey:AuthorID;references:ID;constraint:OnUpdate:CASCADE,OnDelete:RESTRICT"`
}

// TableName returns the database table name for Quote.
func (Quote) TableName() string { return "quotes" }

// Listener is a registered recipient identity. PhoneNumber holds the raw
// contact value and HashedPhoneNumber its fingerprint.
type Listener struct {
	ID                uint      `json:"id"           gorm:"primaryKey"`
	PhoneNumber       string    `json:"phone_number" gorm:"type:varchar(15);not null;uniqueIndex:ux_listeners_phone_number"`
	HashedPhoneNumber string    `json:"-"            gorm:"type:char(64);not null;uniqueIndex:ux_listeners_hashed_phone_number"`
	CreatedAt         time.Time `json:"-"`
}

// TableName returns the database table name for Listener.
func (Listener) TableName() string { return "listeners" }

// PageResult is one page of the listener collection as served by the store
// and consumed by the broadcaster's cursor.
//
// TotalPages is computed from the live record count at request time:
// ceil(TotalRecords / PageSize). Results are ordered by ascending ID.
type PageResult struct {
	Page         int        `json:"page"`
	PageSize     int        `json:"page_size"`
	TotalRecords int64      `json:"total_records"`
	TotalPages   int        `json:"total_pages"`
	Results      []Listener `json:"results"`
}
