package services

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/Marcelixoo/b-ro-buddy/internal/analyzer"
	"github.com/Marcelixoo/b-ro-buddy/internal/chat"
	"github.com/Marcelixoo/b-ro-buddy/internal/extractor"
	"github.com/Marcelixoo/b-ro-buddy/internal/llm"
	"github.com/Marcelixoo/b-ro-buddy/internal/models"
	"github.com/Marcelixoo/b-ro-buddy/internal/utils"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeRepo is an in-memory Repository for orchestration tests.
type fakeRepo struct {
	mu       sync.Mutex
	docs     map[string]models.Document
	texts    map[string]models.DocumentText
	analyses []models.AnalysisRecord
	messages []models.ChatMessage
}

func newFakeRepo() *fakeRepo {
	return &fakeRepo{
		docs:  map[string]models.Document{},
		texts: map[string]models.DocumentText{},
	}
}

func (f *fakeRepo) CreateDocument(ctx context.Context, doc *models.Document) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.docs[doc.ID] = *doc
	return nil
}

func (f *fakeRepo) GetDocument(ctx context.Context, id string) (*models.Document, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if doc, ok := f.docs[id]; ok {
		return &doc, nil
	}
	return nil, nil
}

func (f *fakeRepo) ListDocuments(ctx context.Context) ([]models.Document, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]models.Document, 0, len(f.docs))
	for _, doc := range f.docs {
		out = append(out, doc)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out, nil
}

func (f *fakeRepo) UpdateDocumentStatus(ctx context.Context, id, status string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if doc, ok := f.docs[id]; ok {
		doc.Status = status
		f.docs[id] = doc
	}
	return nil
}

func (f *fakeRepo) DeleteDocument(ctx context.Context, id string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.docs, id)
	delete(f.texts, id)
	return nil
}

func (f *fakeRepo) DeleteAllDocuments(ctx context.Context) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.docs = map[string]models.Document{}
	f.texts = map[string]models.DocumentText{}
	f.analyses = nil
	f.messages = nil
	return nil
}

func (f *fakeRepo) UpsertText(ctx context.Context, text *models.DocumentText) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.texts[text.DocumentID] = *text
	return nil
}

func (f *fakeRepo) GetText(ctx context.Context, documentID string) (*models.DocumentText, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if text, ok := f.texts[documentID]; ok {
		return &text, nil
	}
	return nil, nil
}

func (f *fakeRepo) CreateAnalysis(ctx context.Context, record *models.AnalysisRecord) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.analyses = append(f.analyses, *record)
	return nil
}

func (f *fakeRepo) GetLatestAnalysis(ctx context.Context, documentID string) (*models.AnalysisRecord, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var latest *models.AnalysisRecord
	for i := range f.analyses {
		record := f.analyses[i]
		if record.DocumentID != documentID {
			continue
		}
		if latest == nil || record.CreatedAt.After(latest.CreatedAt) {
			latest = &record
		}
	}
	return latest, nil
}

func (f *fakeRepo) ListAnalyses(ctx context.Context, documentID string) ([]models.AnalysisRecord, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []models.AnalysisRecord
	for _, record := range f.analyses {
		if record.DocumentID == documentID {
			out = append(out, record)
		}
	}
	return out, nil
}

func (f *fakeRepo) AppendMessagePair(ctx context.Context, documentID, userContent, assistantContent string) (*models.ChatMessage, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	now := time.Now().UTC()
	f.messages = append(f.messages,
		models.ChatMessage{ID: utils.GenerateID(), DocumentID: documentID, Role: models.RoleUser, Content: userContent, CreatedAt: now},
		models.ChatMessage{ID: utils.GenerateID(), DocumentID: documentID, Role: models.RoleAssistant, Content: assistantContent, CreatedAt: now.Add(time.Microsecond)},
	)
	assistant := f.messages[len(f.messages)-1]
	return &assistant, nil
}

func (f *fakeRepo) ListMessages(ctx context.Context, documentID string) ([]models.ChatMessage, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []models.ChatMessage
	for _, m := range f.messages {
		if m.DocumentID == documentID {
			out = append(out, m)
		}
	}
	return out, nil
}

// fakeStorage is an in-memory object store.
type fakeStorage struct {
	mu      sync.Mutex
	objects map[string][]byte
}

func newFakeStorage() *fakeStorage {
	return &fakeStorage{objects: map[string][]byte{}}
}

func (f *fakeStorage) Upload(ctx context.Context, key string, data []byte, contentType string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.objects[key] = data
	return nil
}

func (f *fakeStorage) Download(ctx context.Context, key string) ([]byte, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if data, ok := f.objects[key]; ok {
		return data, nil
	}
	return nil, fmt.Errorf("object not found: %s", key)
}

func (f *fakeStorage) Delete(ctx context.Context, key string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.objects, key)
	return nil
}

type fakeOCR struct {
	text string
}

func (f *fakeOCR) Recognize(ctx context.Context, image []byte) (string, error) {
	return f.text, nil
}

// newDegradedService wires the pipeline with an in-memory repo/storage,
// a fake OCR engine and no LLM credentials.
func newDegradedService(t *testing.T, ocr extractor.OCREngine) (DocumentService, *fakeRepo, *fakeStorage) {
	t.Helper()

	logger := utils.NewLogger("error")
	provider := llm.NewOpenAIProvider("", "gpt-4o-mini", logger)

	repo := newFakeRepo()
	store := newFakeStorage()

	svc := NewService(
		repo,
		store,
		extractor.New(ocr, logger),
		analyzer.New(provider, logger),
		chat.New(provider, logger),
		"gpt-4o-mini",
		logger,
	)
	return svc, repo, store
}

func uploadScan(t *testing.T, svc DocumentService) *models.Document {
	t.Helper()
	doc, err := svc.UploadDocument(context.Background(), &models.UploadRequest{
		File:     []byte{0x89, 0x50, 0x4E, 0x47},
		Filename: "letter.png",
		Mimetype: "image/png",
	})
	require.NoError(t, err)
	return doc
}

func TestUploadRejectsUnsupportedType(t *testing.T) {
	svc, _, _ := newDegradedService(t, nil)

	_, err := svc.UploadDocument(context.Background(), &models.UploadRequest{
		File:     []byte("plain text"),
		Filename: "notes.txt",
		Mimetype: "text/plain",
	})

	var appErr *utils.AppError
	require.ErrorAs(t, err, &appErr)
	assert.Equal(t, 400, appErr.StatusCode)
}

func TestScanPipelineWithoutCredentials(t *testing.T) {
	svc, _, _ := newDegradedService(t, &fakeOCR{text: "Zahlen Sie 250 EUR bis zum 15.09.2026"})
	ctx := context.Background()

	doc := uploadScan(t, svc)
	assert.Equal(t, models.StatusUploaded, doc.Status)

	// Extraction runs OCR for images.
	extracted, err := svc.ExtractText(ctx, doc.ID)
	require.NoError(t, err)
	assert.Equal(t, string(extractor.MethodOCR), extracted.ExtractionMethod)
	assert.Equal(t, "Zahlen Sie 250 EUR bis zum 15.09.2026", extracted.Text)

	detail, err := svc.GetDocument(ctx, doc.ID)
	require.NoError(t, err)
	assert.Equal(t, models.StatusTextExtracted, detail.Status)
	assert.True(t, detail.HasText)
	assert.False(t, detail.HasAnalysis)

	// Analysis degrades to the stub without credentials.
	record, err := svc.AnalyzeDocument(ctx, doc.ID)
	require.NoError(t, err)
	assert.Equal(t, models.RiskLow, record.Analysis.OverallRisk)
	assert.True(t, strings.HasPrefix(record.Analysis.SummaryEN, "Sample summary"))
	assert.Empty(t, record.Analysis.Actions)

	latest, err := svc.GetLatestAnalysis(ctx, doc.ID)
	require.NoError(t, err)
	assert.Equal(t, record.ID, latest.ID)

	// Chat degrades to the disabled notice but still records both turns.
	msg, err := svc.Chat(ctx, doc.ID, "How much do I owe?")
	require.NoError(t, err)
	assert.Equal(t, models.RoleAssistant, msg.Role)
	assert.Equal(t, chat.DisabledMessage, msg.Content)

	history, err := svc.ListMessages(ctx, doc.ID)
	require.NoError(t, err)
	require.Len(t, history, 2)
	assert.Equal(t, models.RoleUser, history[0].Role)
	assert.Equal(t, "How much do I owe?", history[0].Content)
	assert.Equal(t, chat.DisabledMessage, history[1].Content)
}

func TestExtractionOverwritesSlot(t *testing.T) {
	ocr := &fakeOCR{text: "first"}
	svc, repo, _ := newDegradedService(t, ocr)
	ctx := context.Background()

	doc := uploadScan(t, svc)

	_, err := svc.ExtractText(ctx, doc.ID)
	require.NoError(t, err)

	ocr.text = "second"
	extracted, err := svc.ExtractText(ctx, doc.ID)
	require.NoError(t, err)
	assert.Equal(t, "second", extracted.Text)

	text, err := repo.GetText(ctx, doc.ID)
	require.NoError(t, err)
	assert.Equal(t, "second", text.Text)
}

func TestAnalyzeExtractsFirstWhenTextMissing(t *testing.T) {
	svc, repo, _ := newDegradedService(t, &fakeOCR{text: "Bescheid"})
	ctx := context.Background()

	doc := uploadScan(t, svc)

	record, err := svc.AnalyzeDocument(ctx, doc.ID)
	require.NoError(t, err)
	assert.Equal(t, models.RiskLow, record.Analysis.OverallRisk)

	text, err := repo.GetText(ctx, doc.ID)
	require.NoError(t, err)
	require.NotNil(t, text)
	assert.Equal(t, "Bescheid", text.Text)
}

func TestAnalyzeFailsWhenFileMissing(t *testing.T) {
	svc, _, store := newDegradedService(t, &fakeOCR{text: "x"})
	ctx := context.Background()

	doc := uploadScan(t, svc)
	require.NoError(t, store.Delete(ctx, doc.StorageKey))

	_, err := svc.AnalyzeDocument(ctx, doc.ID)

	var appErr *utils.AppError
	require.ErrorAs(t, err, &appErr)
	assert.Equal(t, 400, appErr.StatusCode)
}

func TestConcurrentAnalyzeRetainsAllRuns(t *testing.T) {
	svc, repo, _ := newDegradedService(t, &fakeOCR{text: "Bescheid"})
	ctx := context.Background()

	doc := uploadScan(t, svc)
	_, err := svc.ExtractText(ctx, doc.ID)
	require.NoError(t, err)

	const workers = 5
	var wg sync.WaitGroup
	errs := make(chan error, workers)
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := svc.AnalyzeDocument(ctx, doc.ID)
			errs <- err
		}()
	}
	wg.Wait()
	close(errs)

	for err := range errs {
		require.NoError(t, err)
	}

	all, err := repo.ListAnalyses(ctx, doc.ID)
	require.NoError(t, err)
	assert.Len(t, all, workers)
}

func TestChatRequiresExtractedText(t *testing.T) {
	svc, _, _ := newDegradedService(t, &fakeOCR{text: "x"})
	ctx := context.Background()

	doc := uploadScan(t, svc)

	_, err := svc.Chat(ctx, doc.ID, "Hello?")

	var appErr *utils.AppError
	require.ErrorAs(t, err, &appErr)
	assert.Equal(t, 400, appErr.StatusCode)
}

func TestDeleteDocument(t *testing.T) {
	svc, _, store := newDegradedService(t, nil)
	ctx := context.Background()

	doc := uploadScan(t, svc)
	require.NoError(t, svc.DeleteDocument(ctx, doc.ID))

	_, err := svc.GetDocument(ctx, doc.ID)
	var appErr *utils.AppError
	require.ErrorAs(t, err, &appErr)
	assert.Equal(t, 404, appErr.StatusCode)

	_, err = store.Download(ctx, doc.StorageKey)
	assert.Error(t, err, "stored file must be removed with the document")

	// Deleting everything on an empty set succeeds.
	require.NoError(t, svc.DeleteAllDocuments(ctx))
	require.NoError(t, svc.DeleteAllDocuments(ctx))
}

func TestGetTextBeforeExtraction(t *testing.T) {
	svc, _, _ := newDegradedService(t, nil)
	ctx := context.Background()

	doc := uploadScan(t, svc)

	_, err := svc.GetText(ctx, doc.ID)
	var appErr *utils.AppError
	require.ErrorAs(t, err, &appErr)
	assert.Equal(t, 404, appErr.StatusCode)

	_, err = svc.GetLatestAnalysis(ctx, doc.ID)
	require.ErrorAs(t, err, &appErr)
	assert.Equal(t, 404, appErr.StatusCode)
}
