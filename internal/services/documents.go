package services

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/Marcelixoo/b-ro-buddy/internal/analyzer"
	"github.com/Marcelixoo/b-ro-buddy/internal/chat"
	"github.com/Marcelixoo/b-ro-buddy/internal/extractor"
	"github.com/Marcelixoo/b-ro-buddy/internal/models"
	"github.com/Marcelixoo/b-ro-buddy/internal/repository"
	"github.com/Marcelixoo/b-ro-buddy/internal/storage"
	"github.com/Marcelixoo/b-ro-buddy/internal/utils"
)

// DocumentService sequences the pipeline per document: extraction must
// precede analysis and chat; analysis appends, extraction overwrites.
type DocumentService interface {
	UploadDocument(ctx context.Context, req *models.UploadRequest) (*models.Document, error)
	ListDocuments(ctx context.Context) ([]models.Document, error)
	GetDocument(ctx context.Context, id string) (*models.DocumentDetail, error)
	DeleteDocument(ctx context.Context, id string) error
	DeleteAllDocuments(ctx context.Context) error

	ExtractText(ctx context.Context, id string) (*models.ExtractTextResponse, error)
	GetText(ctx context.Context, id string) (*models.ExtractTextResponse, error)

	AnalyzeDocument(ctx context.Context, id string) (*models.AnalysisRecord, error)
	GetLatestAnalysis(ctx context.Context, id string) (*models.AnalysisRecord, error)

	Chat(ctx context.Context, id, userMessage string) (*models.ChatMessage, error)
	ListMessages(ctx context.Context, id string) ([]models.ChatMessage, error)
}

// AllowedMimetypes are the declared media types accepted at upload.
// Anything else is rejected before it can reach the pipeline.
var AllowedMimetypes = map[string]bool{
	"application/pdf": true,
	"image/jpeg":      true,
	"image/png":       true,
	"image/jpg":       true,
}

type documentService struct {
	repo      repository.Repository
	storage   storage.Storage
	extractor *extractor.Extractor
	analyzer  *analyzer.Analyzer
	chat      *chat.Chat
	model     string
	logger    *utils.Logger
}

func NewService(
	repo repository.Repository,
	store storage.Storage,
	ext *extractor.Extractor,
	an *analyzer.Analyzer,
	ch *chat.Chat,
	model string,
	logger *utils.Logger,
) DocumentService {
	return &documentService{
		repo:      repo,
		storage:   store,
		extractor: ext,
		analyzer:  an,
		chat:      ch,
		model:     model,
		logger:    logger,
	}
}

func (s *documentService) UploadDocument(ctx context.Context, req *models.UploadRequest) (*models.Document, error) {
	if !AllowedMimetypes[req.Mimetype] {
		s.logger.Warn("Unsupported mimetype", "mimetype", req.Mimetype, "filename", req.Filename)
		return nil, utils.NewBadRequestError(fmt.Sprintf("Unsupported type: %s", req.Mimetype))
	}

	docID := utils.GenerateID()
	storageKey := fmt.Sprintf("documents/%s/%s", docID, req.Filename)

	if err := s.storage.Upload(ctx, storageKey, req.File, req.Mimetype); err != nil {
		s.logger.Error("Failed to store file", "error", err, "storage_key", storageKey)
		return nil, utils.NewInternalError("Failed to store document")
	}

	doc := &models.Document{
		ID:         docID,
		Filename:   req.Filename,
		Mimetype:   req.Mimetype,
		StorageKey: storageKey,
		Status:     models.StatusUploaded,
		CreatedAt:  time.Now().UTC(),
	}

	if err := s.repo.CreateDocument(ctx, doc); err != nil {
		s.logger.Error("Failed to save document", "error", err, "doc_id", docID)
		// Attempt to cleanup storage
		_ = s.storage.Delete(ctx, storageKey)
		return nil, utils.NewInternalError("Failed to save document metadata")
	}

	s.logger.Info("Document uploaded",
		"id", docID,
		"filename", req.Filename,
		"mimetype", req.Mimetype,
		"size", len(req.File))

	return doc, nil
}

func (s *documentService) ListDocuments(ctx context.Context) ([]models.Document, error) {
	docs, err := s.repo.ListDocuments(ctx)
	if err != nil {
		s.logger.Error("Failed to list documents", "error", err)
		return nil, utils.NewInternalError("Failed to list documents")
	}
	return docs, nil
}

func (s *documentService) GetDocument(ctx context.Context, id string) (*models.DocumentDetail, error) {
	doc, err := s.getDocument(ctx, id)
	if err != nil {
		return nil, err
	}

	text, err := s.repo.GetText(ctx, id)
	if err != nil {
		return nil, utils.NewInternalError("Failed to retrieve document text")
	}

	analysis, err := s.repo.GetLatestAnalysis(ctx, id)
	if err != nil {
		return nil, utils.NewInternalError("Failed to retrieve document analysis")
	}

	return &models.DocumentDetail{
		Document:    *doc,
		HasText:     text != nil,
		HasAnalysis: analysis != nil,
	}, nil
}

func (s *documentService) DeleteDocument(ctx context.Context, id string) error {
	doc, err := s.getDocument(ctx, id)
	if err != nil {
		return err
	}

	// File removal is best-effort; the records go regardless.
	if err := s.storage.Delete(ctx, doc.StorageKey); err != nil {
		s.logger.Warn("Failed to delete stored file", "error", err, "storage_key", doc.StorageKey)
	}

	if err := s.repo.DeleteDocument(ctx, id); err != nil {
		s.logger.Error("Failed to delete document", "error", err, "id", id)
		return utils.NewInternalError("Failed to delete document")
	}

	s.logger.Info("Document deleted", "id", id)
	return nil
}

func (s *documentService) DeleteAllDocuments(ctx context.Context) error {
	docs, err := s.repo.ListDocuments(ctx)
	if err != nil {
		return utils.NewInternalError("Failed to list documents")
	}

	for _, doc := range docs {
		if err := s.storage.Delete(ctx, doc.StorageKey); err != nil {
			s.logger.Warn("Failed to delete stored file", "error", err, "storage_key", doc.StorageKey)
		}
	}

	if err := s.repo.DeleteAllDocuments(ctx); err != nil {
		s.logger.Error("Failed to delete documents", "error", err)
		return utils.NewInternalError("Failed to delete documents")
	}

	s.logger.Info("All documents deleted", "count", len(docs))
	return nil
}

func (s *documentService) ExtractText(ctx context.Context, id string) (*models.ExtractTextResponse, error) {
	doc, err := s.getDocument(ctx, id)
	if err != nil {
		return nil, err
	}

	text, err := s.runExtraction(ctx, doc)
	if err != nil {
		return nil, err
	}

	return &models.ExtractTextResponse{
		DocumentID:       id,
		Text:             text.Text,
		Language:         text.Language,
		ExtractionMethod: text.ExtractionMethod,
	}, nil
}

// runExtraction reads the stored file, extracts, and overwrites the text
// slot. The write happens only after extraction fully completes, so a
// cancelled request leaves no partial slot.
func (s *documentService) runExtraction(ctx context.Context, doc *models.Document) (*models.DocumentText, error) {
	data, err := s.storage.Download(ctx, doc.StorageKey)
	if err != nil {
		s.logger.Error("Failed to read stored file", "error", err, "storage_key", doc.StorageKey)
		return nil, utils.NewNotFoundError("File not found in storage")
	}

	extracted, method := s.extractor.Extract(ctx, data, doc.Mimetype)

	if err := ctx.Err(); err != nil {
		return nil, err
	}

	text := &models.DocumentText{
		DocumentID:       doc.ID,
		Text:             extracted,
		ExtractionMethod: string(method),
	}

	if err := s.repo.UpsertText(ctx, text); err != nil {
		s.logger.Error("Failed to save extracted text", "error", err, "id", doc.ID)
		return nil, utils.NewInternalError("Failed to save extracted text")
	}

	if err := s.repo.UpdateDocumentStatus(ctx, doc.ID, models.StatusTextExtracted); err != nil {
		s.logger.Error("Failed to update document status", "error", err, "id", doc.ID)
	}

	s.logger.Info("Text extracted",
		"id", doc.ID,
		"method", method,
		"text_length", len(extracted))

	return text, nil
}

func (s *documentService) GetText(ctx context.Context, id string) (*models.ExtractTextResponse, error) {
	text, err := s.repo.GetText(ctx, id)
	if err != nil {
		return nil, utils.NewInternalError("Failed to retrieve text")
	}
	if text == nil {
		return nil, utils.NewNotFoundError("Text not extracted. Call POST /extract-text first.")
	}

	return &models.ExtractTextResponse{
		DocumentID:       id,
		Text:             text.Text,
		Language:         text.Language,
		ExtractionMethod: text.ExtractionMethod,
	}, nil
}

// AnalyzeDocument appends a new analysis record; earlier records stay.
// When no text exists yet it extracts first, matching the lifecycle
// rule that extraction precedes analysis.
func (s *documentService) AnalyzeDocument(ctx context.Context, id string) (*models.AnalysisRecord, error) {
	doc, err := s.getDocument(ctx, id)
	if err != nil {
		return nil, err
	}

	text, err := s.repo.GetText(ctx, id)
	if err != nil {
		return nil, utils.NewInternalError("Failed to retrieve text")
	}
	if text == nil {
		extracted, extractErr := s.runExtraction(ctx, doc)
		if extractErr != nil {
			return nil, utils.NewBadRequestError("Extract text first or file missing")
		}
		text = extracted
	}

	s.logger.Info("Starting analysis", "id", id, "text_length", len(text.Text))

	analysis, err := s.analyzer.Analyze(ctx, text.Text)
	if err != nil {
		s.logger.Error("Analysis attempt failed", "error", err, "id", id)
		return nil, utils.NewInternalError("Failed to analyze document")
	}

	record := &models.AnalysisRecord{
		ID:         utils.GenerateID(),
		DocumentID: id,
		Analysis:   *analysis,
		Model:      s.model,
		CreatedAt:  time.Now().UTC(),
	}

	if err := s.repo.CreateAnalysis(ctx, record); err != nil {
		s.logger.Error("Failed to save analysis", "error", err, "id", id)
		return nil, utils.NewInternalError("Failed to save analysis")
	}

	if err := s.repo.UpdateDocumentStatus(ctx, id, models.StatusAnalyzed); err != nil {
		s.logger.Error("Failed to update document status", "error", err, "id", id)
	}

	s.logger.Info("Document analyzed",
		"id", id,
		"risk", analysis.OverallRisk,
		"actions", len(analysis.Actions),
		"deadlines", len(analysis.Deadlines))

	return record, nil
}

func (s *documentService) GetLatestAnalysis(ctx context.Context, id string) (*models.AnalysisRecord, error) {
	record, err := s.repo.GetLatestAnalysis(ctx, id)
	if err != nil {
		s.logger.Error("Failed to get analysis", "error", err, "id", id)
		return nil, utils.NewInternalError("Failed to retrieve analysis")
	}
	if record == nil {
		return nil, utils.NewNotFoundError("No analysis yet")
	}

	return record, nil
}

// Chat grounds the reply in the extracted text plus the latest analysis
// summary and persists both turns atomically after the reply completes.
func (s *documentService) Chat(ctx context.Context, id, userMessage string) (*models.ChatMessage, error) {
	if strings.TrimSpace(userMessage) == "" {
		return nil, utils.NewBadRequestError("Message content is required")
	}

	if _, err := s.getDocument(ctx, id); err != nil {
		return nil, err
	}

	text, err := s.repo.GetText(ctx, id)
	if err != nil {
		return nil, utils.NewInternalError("Failed to retrieve text")
	}
	if text == nil {
		return nil, utils.NewBadRequestError("Extract text first")
	}

	var summary string
	if latest, err := s.repo.GetLatestAnalysis(ctx, id); err == nil && latest != nil {
		summary = latest.Analysis.SummaryEN
	}

	history, err := s.repo.ListMessages(ctx, id)
	if err != nil {
		return nil, utils.NewInternalError("Failed to load chat history")
	}

	reply, err := s.chat.Reply(ctx, text.Text, summary, history, userMessage)
	if err != nil {
		s.logger.Error("Chat reply failed", "error", err, "id", id)
		return nil, utils.NewInternalError("Failed to generate reply")
	}

	if err := ctx.Err(); err != nil {
		return nil, err
	}

	assistantMsg, err := s.repo.AppendMessagePair(ctx, id, userMessage, reply)
	if err != nil {
		s.logger.Error("Failed to save chat turns", "error", err, "id", id)
		return nil, utils.NewInternalError("Failed to save chat messages")
	}

	return assistantMsg, nil
}

func (s *documentService) ListMessages(ctx context.Context, id string) ([]models.ChatMessage, error) {
	if _, err := s.getDocument(ctx, id); err != nil {
		return nil, err
	}

	messages, err := s.repo.ListMessages(ctx, id)
	if err != nil {
		return nil, utils.NewInternalError("Failed to load chat history")
	}

	return messages, nil
}

func (s *documentService) getDocument(ctx context.Context, id string) (*models.Document, error) {
	doc, err := s.repo.GetDocument(ctx, id)
	if err != nil {
		s.logger.Error("Failed to get document", "error", err, "id", id)
		return nil, utils.NewInternalError("Failed to retrieve document")
	}
	if doc == nil {
		return nil, utils.NewNotFoundError("Document not found")
	}

	return doc, nil
}
