package domain

import (
	"encoding/json"
	"strings"
	"testing"

	sqlite "github.com/glebarez/sqlite" // pure-Go SQLite (no CGO)
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

func newDomainDB(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := gorm.Open(sqlite.Open("file:domain_models?mode=memory&cache=shared"), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	db.Exec("PRAGMA foreign_keys=ON;")
	return db
}

func TestTableNames(t *testing.T) {
	if (Author{}).TableName() != "authors" {
		t.Fatalf("Author.TableName() = %q; want %q", (Author{}).TableName(), "authors")
	}
	if (Quote{}).TableName() != "quotes" {
		t.Fatalf("Quote.TableName() = %q; want %q", (Quote{}).TableName(), "quotes")
	}
	if (Listener{}).TableName() != "listeners" {
		t.Fatalf("Listener.TableName() = %q; want %q", (Listener{}).TableName(), "listeners")
	}
}

func TestMigrations_UniqueIndexes(t *testing.T) {
	db := newDomainDB(t)

	if err := db.AutoMigrate(&Author{}, &Quote{}, &Listener{}); err != nil {
		t.Fatalf("automigrate: %v", err)
	}
	m := db.Migrator()

	for _, tbl := range []any{&Author{}, &Quote{}, &Listener{}} {
		if !m.HasTable(tbl) {
			t.Fatalf("expected table for %T to exist", tbl)
		}
	}
	if !m.HasIndex(&Author{}, "ux_authors_name") {
		t.Fatalf("expected index ux_authors_name on authors")
	}
	if !m.HasIndex(&Quote{}, "ux_quotes_hashed_text") {
		t.Fatalf("expected index ux_quotes_hashed_text on quotes")
	}
	if !m.HasIndex(&Listener{}, "ux_listeners_hashed_phone_number") {
		t.Fatalf("expected index ux_listeners_hashed_phone_number on listeners")
	}

	// Same fingerprint twice must be rejected by the database itself.
	a := Author{Name: "Anon"}
	if err := db.Create(&a).Error; err != nil {
		t.Fatalf("create author: %v", err)
	}
	q1 := Quote{AuthorID: a.ID, Text: "x", HashedText: strings.Repeat("a", 64)}
	if err := db.Create(&q1).Error; err != nil {
		t.Fatalf("create quote: %v", err)
	}
	q2 := Quote{AuthorID: a.ID, Text: "x ", HashedText: strings.Repeat("a", 64)}
	if err := db.Create(&q2).Error; err == nil {
		t.Fatalf("expected unique violation on duplicate hashed_text")
	}
}

func TestJSONShapes(t *testing.T) {
	q := Quote{ID: 7, Text: "Stay curious.", HashedText: "h", Reference: "Anon", Author: Author{ID: 2, Name: "Anon"}}
	b, err := json.Marshal(q)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	got := string(b)
	want := `{"id":7,"text":"Stay curious.","reference":"Anon","author":{"id":2,"name":"Anon"}}`
	if got != want {
		t.Fatalf("quote json = %s; want %s", got, want)
	}

	l := Listener{ID: 3, PhoneNumber: "12025550101", HashedPhoneNumber: "h"}
	b, _ = json.Marshal(l)
	if string(b) != `{"id":3,"phone_number":"12025550101"}` {
		t.Fatalf("listener json = %s", b)
	}
}
