package models

import (
	"time"
)

// Document lifecycle statuses.
const (
	StatusUploaded      = "uploaded"
	StatusTextExtracted = "text_extracted"
	StatusAnalyzed      = "analyzed"
)

// Chat message roles.
const (
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

type Document struct {
	ID         string    `json:"id" db:"id"`
	Filename   string    `json:"filename" db:"filename"`
	Mimetype   string    `json:"mimetype" db:"mimetype"`
	StorageKey string    `json:"-" db:"storage_key"`
	Status     string    `json:"status" db:"status"`
	CreatedAt  time.Time `json:"created_at" db:"created_at"`
}

// DocumentText is the single extracted-text slot for a document.
// Re-extraction overwrites; there is never more than one row per document.
type DocumentText struct {
	DocumentID       string    `json:"document_id" db:"document_id"`
	Text             string    `json:"text" db:"text"`
	Language         *string   `json:"language,omitempty" db:"language"`
	ExtractionMethod string    `json:"extraction_method" db:"extraction_method"`
	UpdatedAt        time.Time `json:"-" db:"updated_at"`
}

// AnalysisRecord is one analysis run. A document accumulates records over
// time; the latest is the one with the greatest CreatedAt.
type AnalysisRecord struct {
	ID         string           `json:"-" db:"id"`
	DocumentID string           `json:"document_id" db:"document_id"`
	Analysis   DocumentAnalysis `json:"analysis" db:"-"`
	Model      string           `json:"model" db:"model"`
	CreatedAt  time.Time        `json:"created_at" db:"created_at"`
}

type ChatMessage struct {
	ID         string    `json:"-" db:"id"`
	DocumentID string    `json:"-" db:"document_id"`
	Role       string    `json:"role" db:"role"`
	Content    string    `json:"content" db:"content"`
	CreatedAt  time.Time `json:"created_at" db:"created_at"`
}

type UploadRequest struct {
	File     []byte
	Filename string
	Mimetype string
}

type DocumentDetail struct {
	Document
	HasText     bool `json:"has_text"`
	HasAnalysis bool `json:"has_analysis"`
}

type ExtractTextResponse struct {
	DocumentID       string  `json:"document_id"`
	Text             string  `json:"text"`
	Language         *string `json:"language,omitempty"`
	ExtractionMethod string  `json:"extraction_method"`
}

type ChatRequest struct {
	Content string `json:"content"`
}
