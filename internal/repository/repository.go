package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/Marcelixoo/b-ro-buddy/internal/models"
	"github.com/Marcelixoo/b-ro-buddy/internal/utils"
	"github.com/jmoiron/sqlx"
)

type Repository interface {
	CreateDocument(ctx context.Context, doc *models.Document) error
	GetDocument(ctx context.Context, id string) (*models.Document, error)
	ListDocuments(ctx context.Context) ([]models.Document, error)
	UpdateDocumentStatus(ctx context.Context, id, status string) error
	DeleteDocument(ctx context.Context, id string) error
	DeleteAllDocuments(ctx context.Context) error

	UpsertText(ctx context.Context, text *models.DocumentText) error
	GetText(ctx context.Context, documentID string) (*models.DocumentText, error)

	CreateAnalysis(ctx context.Context, record *models.AnalysisRecord) error
	GetLatestAnalysis(ctx context.Context, documentID string) (*models.AnalysisRecord, error)
	ListAnalyses(ctx context.Context, documentID string) ([]models.AnalysisRecord, error)

	AppendMessagePair(ctx context.Context, documentID, userContent, assistantContent string) (*models.ChatMessage, error)
	ListMessages(ctx context.Context, documentID string) ([]models.ChatMessage, error)
}

type repository struct {
	db *sqlx.DB
}

func NewRepository(db *sqlx.DB) Repository {
	return &repository{db: db}
}

func (r *repository) CreateDocument(ctx context.Context, doc *models.Document) error {
	query := `
		INSERT INTO documents (id, filename, mimetype, storage_key, status, created_at)
		VALUES ($1, $2, $3, $4, $5, $6)
	`

	_, err := r.db.ExecContext(ctx, query,
		doc.ID,
		doc.Filename,
		doc.Mimetype,
		doc.StorageKey,
		doc.Status,
		doc.CreatedAt,
	)

	return err
}

func (r *repository) GetDocument(ctx context.Context, id string) (*models.Document, error) {
	var doc models.Document

	query := `
		SELECT id, filename, mimetype, storage_key, status, created_at
		FROM documents
		WHERE id = $1
	`

	err := r.db.GetContext(ctx, &doc, query, id)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	return &doc, nil
}

func (r *repository) ListDocuments(ctx context.Context) ([]models.Document, error) {
	docs := []models.Document{}

	query := `
		SELECT id, filename, mimetype, storage_key, status, created_at
		FROM documents
		ORDER BY created_at DESC
	`

	if err := r.db.SelectContext(ctx, &docs, query); err != nil {
		return nil, err
	}

	return docs, nil
}

func (r *repository) UpdateDocumentStatus(ctx context.Context, id, status string) error {
	query := `UPDATE documents SET status = $2 WHERE id = $1`

	_, err := r.db.ExecContext(ctx, query, id, status)
	return err
}

// DeleteDocument removes the document and all derived records. Children
// go first so the row never outlives its document.
func (r *repository) DeleteDocument(ctx context.Context, id string) error {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	for _, query := range []string{
		`DELETE FROM document_messages WHERE document_id = $1`,
		`DELETE FROM document_analysis WHERE document_id = $1`,
		`DELETE FROM document_text WHERE document_id = $1`,
		`DELETE FROM documents WHERE id = $1`,
	} {
		if _, err := tx.ExecContext(ctx, query, id); err != nil {
			return err
		}
	}

	return tx.Commit()
}

func (r *repository) DeleteAllDocuments(ctx context.Context) error {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	for _, query := range []string{
		`DELETE FROM document_messages`,
		`DELETE FROM document_analysis`,
		`DELETE FROM document_text`,
		`DELETE FROM documents`,
	} {
		if _, err := tx.ExecContext(ctx, query); err != nil {
			return err
		}
	}

	return tx.Commit()
}

// UpsertText overwrites the single text slot for the document. One
// statement, so a concurrent extract never observes a half-written slot.
func (r *repository) UpsertText(ctx context.Context, text *models.DocumentText) error {
	query := `
		INSERT INTO document_text (document_id, text, language, extraction_method, updated_at)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT(document_id) DO UPDATE SET
			text = excluded.text,
			language = excluded.language,
			extraction_method = excluded.extraction_method,
			updated_at = excluded.updated_at
	`

	_, err := r.db.ExecContext(ctx, query,
		text.DocumentID,
		text.Text,
		text.Language,
		text.ExtractionMethod,
		time.Now().UTC(),
	)

	return err
}

func (r *repository) GetText(ctx context.Context, documentID string) (*models.DocumentText, error) {
	var text models.DocumentText

	query := `
		SELECT document_id, text, language, extraction_method, updated_at
		FROM document_text
		WHERE document_id = $1
	`

	err := r.db.GetContext(ctx, &text, query, documentID)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	return &text, nil
}

func (r *repository) CreateAnalysis(ctx context.Context, record *models.AnalysisRecord) error {
	payload, err := json.Marshal(record.Analysis)
	if err != nil {
		return fmt.Errorf("failed to marshal analysis payload: %w", err)
	}

	query := `
		INSERT INTO document_analysis (id, document_id, payload, model, created_at)
		VALUES ($1, $2, $3, $4, $5)
	`

	_, err = r.db.ExecContext(ctx, query,
		record.ID,
		record.DocumentID,
		string(payload),
		record.Model,
		record.CreatedAt,
	)

	return err
}

func (r *repository) GetLatestAnalysis(ctx context.Context, documentID string) (*models.AnalysisRecord, error) {
	query := `
		SELECT id, document_id, payload, model, created_at
		FROM document_analysis
		WHERE document_id = $1
		ORDER BY created_at DESC
		LIMIT 1
	`

	row := r.db.QueryRowxContext(ctx, query, documentID)

	record, err := scanAnalysis(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	return record, nil
}

func (r *repository) ListAnalyses(ctx context.Context, documentID string) ([]models.AnalysisRecord, error) {
	query := `
		SELECT id, document_id, payload, model, created_at
		FROM document_analysis
		WHERE document_id = $1
		ORDER BY created_at DESC
	`

	rows, err := r.db.QueryxContext(ctx, query, documentID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	records := []models.AnalysisRecord{}
	for rows.Next() {
		record, err := scanAnalysis(rows)
		if err != nil {
			return nil, err
		}
		records = append(records, *record)
	}

	return records, rows.Err()
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanAnalysis(row rowScanner) (*models.AnalysisRecord, error) {
	var record models.AnalysisRecord
	var payload string

	if err := row.Scan(
		&record.ID,
		&record.DocumentID,
		&payload,
		&record.Model,
		&record.CreatedAt,
	); err != nil {
		return nil, err
	}

	if err := json.Unmarshal([]byte(payload), &record.Analysis); err != nil {
		return nil, fmt.Errorf("failed to unmarshal analysis payload: %w", err)
	}

	return &record, nil
}

// AppendMessagePair records the user message and the assistant reply in
// one transaction; either both turns exist or neither does.
func (r *repository) AppendMessagePair(ctx context.Context, documentID, userContent, assistantContent string) (*models.ChatMessage, error) {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback()

	query := `
		INSERT INTO document_messages (id, document_id, role, content, created_at)
		VALUES ($1, $2, $3, $4, $5)
	`

	now := time.Now().UTC()

	userMsg := models.ChatMessage{
		ID:         utils.GenerateID(),
		DocumentID: documentID,
		Role:       models.RoleUser,
		Content:    userContent,
		CreatedAt:  now,
	}
	if _, err := tx.ExecContext(ctx, query, userMsg.ID, userMsg.DocumentID, userMsg.Role, userMsg.Content, userMsg.CreatedAt); err != nil {
		return nil, err
	}

	// Assistant turn is strictly after the user turn it answers.
	assistantMsg := models.ChatMessage{
		ID:         utils.GenerateID(),
		DocumentID: documentID,
		Role:       models.RoleAssistant,
		Content:    assistantContent,
		CreatedAt:  now.Add(time.Microsecond),
	}
	if _, err := tx.ExecContext(ctx, query, assistantMsg.ID, assistantMsg.DocumentID, assistantMsg.Role, assistantMsg.Content, assistantMsg.CreatedAt); err != nil {
		return nil, err
	}

	if err := tx.Commit(); err != nil {
		return nil, err
	}

	return &assistantMsg, nil
}

func (r *repository) ListMessages(ctx context.Context, documentID string) ([]models.ChatMessage, error) {
	messages := []models.ChatMessage{}

	query := `
		SELECT id, document_id, role, content, created_at
		FROM document_messages
		WHERE document_id = $1
		ORDER BY created_at ASC
	`

	if err := r.db.SelectContext(ctx, &messages, query, documentID); err != nil {
		return nil, err
	}

	return messages, nil
}
