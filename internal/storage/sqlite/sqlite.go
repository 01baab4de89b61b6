// Package sqlite persists documents, chunks and the query log in a SQLite
// database via GORM.
package sqlite

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"docqa/internal/domain"
)

type documentRow struct {
	ID         string `gorm:"primaryKey"`
	Filename   string
	Source     string
	SizeBytes  int64
	Status     string `gorm:"index"`
	Error      string
	ChunkCount int
	CreatedAt  time.Time
}

func (documentRow) TableName() string { return "documents" }

type chunkRow struct {
	ID           string `gorm:"primaryKey"`
	DocumentID   string `gorm:"index"`
	Idx          int    `gorm:"column:idx"`
	Text         string
	SemanticType string
	Page         int
	Categories   string // JSON array
	WordCount    int
	Position     float64
}

func (chunkRow) TableName() string { return "chunks" }

type queryRow struct {
	ID             string `gorm:"primaryKey"`
	Query          string
	QueryType      string
	Answer         string
	Confidence     float64
	SourceChunkIDs string // JSON array
	DurationMS     int64
	CreatedAt      time.Time
}

func (queryRow) TableName() string { return "query_log" }

// Store implements domain.Store over a SQLite file.
type Store struct {
	db *gorm.DB
}

// Open opens (or creates) the database at path and migrates the schema.
func Open(path string) (*Store, error) {
	db, err := gorm.Open(sqlite.Open(path), &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Silent),
	})
	if err != nil {
		return nil, fmt.Errorf("open sqlite at %s: %w", path, err)
	}
	if err := db.AutoMigrate(&documentRow{}, &chunkRow{}, &queryRow{}); err != nil {
		return nil, fmt.Errorf("migrate schema: %w", err)
	}
	return &Store{db: db}, nil
}

// SaveDocument upserts the document row, so status transitions reuse it.
func (s *Store) SaveDocument(ctx context.Context, doc *domain.Document) error {
	row := documentRow{
		ID:         doc.ID,
		Filename:   doc.Filename,
		Source:     string(doc.Source),
		SizeBytes:  doc.SizeBytes,
		Status:     string(doc.Status),
		Error:      doc.Error,
		ChunkCount: doc.ChunkCount,
		CreatedAt:  doc.CreatedAt,
	}
	return s.db.WithContext(ctx).Save(&row).Error
}

func (s *Store) SaveChunks(ctx context.Context, chunks []domain.Chunk) error {
	if len(chunks) == 0 {
		return nil
	}
	rows := make([]chunkRow, len(chunks))
	for i, ch := range chunks {
		cats, err := json.Marshal(ch.Categories)
		if err != nil {
			return fmt.Errorf("marshal categories for chunk %s: %w", ch.ID, err)
		}
		rows[i] = chunkRow{
			ID:           ch.ID,
			DocumentID:   ch.DocumentID,
			Idx:          ch.Index,
			Text:         ch.Text,
			SemanticType: string(ch.SemanticType),
			Page:         ch.Page,
			Categories:   string(cats),
			WordCount:    ch.WordCount,
			Position:     ch.Position,
		}
	}
	return s.db.WithContext(ctx).Save(&rows).Error
}

func (s *Store) SaveQueryRecord(ctx context.Context, rec *domain.QueryRecord) error {
	ids, err := json.Marshal(rec.SourceChunkIDs)
	if err != nil {
		return fmt.Errorf("marshal source chunk ids: %w", err)
	}
	row := queryRow{
		ID:             rec.ID,
		Query:          rec.Query,
		QueryType:      string(rec.QueryType),
		Answer:         rec.Answer,
		Confidence:     rec.Confidence,
		SourceChunkIDs: string(ids),
		DurationMS:     rec.Duration.Milliseconds(),
		CreatedAt:      rec.CreatedAt,
	}
	return s.db.WithContext(ctx).Create(&row).Error
}

func (s *Store) Document(ctx context.Context, id string) (*domain.Document, error) {
	var row documentRow
	if err := s.db.WithContext(ctx).First(&row, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &domain.Document{
		ID:         row.ID,
		Filename:   row.Filename,
		Source:     domain.Source(row.Source),
		SizeBytes:  row.SizeBytes,
		Status:     domain.Status(row.Status),
		Error:      row.Error,
		ChunkCount: row.ChunkCount,
		CreatedAt:  row.CreatedAt,
	}, nil
}

func (s *Store) Counts(ctx context.Context) (documents, chunks, queries int64, err error) {
	db := s.db.WithContext(ctx)
	if err = db.Model(&documentRow{}).Count(&documents).Error; err != nil {
		return
	}
	if err = db.Model(&chunkRow{}).Count(&chunks).Error; err != nil {
		return
	}
	err = db.Model(&queryRow{}).Count(&queries).Error
	return
}
