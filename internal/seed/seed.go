// Package seed imports quotes from a CSV dataset into the store. Each record
// is "text,reference" with an optional third "author" column; a header row
// whose first field is "text" is skipped.
//
// Records go through the same submission path as the HTTP API, so duplicates
// are detected by fingerprint and counted rather than treated as failures.
package seed

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/tbourn/quote-broadcaster/internal/domain"
	"github.com/tbourn/quote-broadcaster/internal/services"
)

// Row is one parsed dataset record.
type Row struct {
	Line      int
	Text      string
	Reference string
	Author    string
}

// Submitter stores one quote. *services.QuoteService implements it.
type Submitter interface {
	Submit(ctx context.Context, text, authorName, reference string) (*domain.Quote, error)
}

// Result counts the outcome of an import.
type Result struct {
	Created    int
	Duplicates int
	Invalid    int
}

type Option func(*config)

type config struct {
	defaultAuthor string
	maxRows       int
}

func defaultConfig() config {
	return config{defaultAuthor: "Anonymous"}
}

// WithDefaultAuthor sets the author used when a record has no third column.
func WithDefaultAuthor(name string) Option {
	return func(c *config) {
		if strings.TrimSpace(name) != "" {
			c.defaultAuthor = name
		}
	}
}

// WithMaxRows caps the number of records read (0 = unlimited).
func WithMaxRows(n int) Option {
	return func(c *config) {
		if n >= 0 {
			c.maxRows = n
		}
	}
}

// ReadFile parses the dataset at path.
func ReadFile(path string, opts ...Option) ([]Row, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return Read(f, opts...)
}

// Read parses a CSV dataset from r.
func Read(r io.Reader, opts ...Option) ([]Row, error) {
	cfg := defaultConfig()
	for _, o := range opts {
		o(&cfg)
	}

	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1
	cr.TrimLeadingSpace = true

	var rows []Row
	for {
		rec, err := cr.Read()
		if errors.Is(err, io.EOF) {
			return rows, nil
		}
		if err != nil {
			return nil, fmt.Errorf("read dataset: %w", err)
		}
		line, _ := cr.FieldPos(0)
		if line == 1 && strings.EqualFold(strings.TrimSpace(rec[0]), "text") {
			continue
		}

		row := Row{Line: line, Text: rec[0], Author: cfg.defaultAuthor}
		if len(rec) > 1 {
			row.Reference = strings.TrimSpace(rec[1])
		}
		if len(rec) > 2 && strings.TrimSpace(rec[2]) != "" {
			row.Author = rec[2]
		}
		rows = append(rows, row)
		if cfg.maxRows > 0 && len(rows) == cfg.maxRows {
			return rows, nil
		}
	}
}

// Import submits rows in order. Duplicates and rows with empty text or author
// are counted and skipped; any other error stops the import.
func Import(ctx context.Context, s Submitter, rows []Row) (Result, error) {
	var res Result
	for _, row := range rows {
		_, err := s.Submit(ctx, row.Text, row.Author, row.Reference)
		switch {
		case err == nil:
			res.Created++
		case errors.Is(err, services.ErrAlreadyExists):
			res.Duplicates++
		case errors.Is(err, services.ErrEmptyText), errors.Is(err, services.ErrEmptyAuthor):
			res.Invalid++
		default:
			return res, fmt.Errorf("line %d: %w", row.Line, err)
		}
	}
	return res, nil
}
