package router

import (
	"net/http"

	"github.com/Marcelixoo/b-ro-buddy/internal/handlers"
	"github.com/Marcelixoo/b-ro-buddy/internal/middleware"
	"github.com/Marcelixoo/b-ro-buddy/internal/services"
	"github.com/Marcelixoo/b-ro-buddy/internal/utils"

	"github.com/gorilla/mux"
)

func NewRouter(docService services.DocumentService, corsOrigins []string, logger *utils.Logger) http.Handler {
	r := mux.NewRouter()

	// Middlewares
	r.Use(middleware.Logger(logger))
	r.Use(middleware.CORS(corsOrigins))
	r.Use(middleware.Recovery(logger))

	docHandler := handlers.NewDocumentHandler(docService, logger)

	api := r.PathPrefix("/api/v1").Subrouter()

	// Health check
	api.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		w.Write([]byte(`{"status":"ok"}`))
	}).Methods(http.MethodGet)

	// Document lifecycle
	api.HandleFunc("/documents", docHandler.UploadDocument).Methods(http.MethodPost)
	api.HandleFunc("/documents", docHandler.ListDocuments).Methods(http.MethodGet)
	api.HandleFunc("/documents", docHandler.DeleteAllDocuments).Methods(http.MethodDelete)
	api.HandleFunc("/documents/{id}", docHandler.GetDocument).Methods(http.MethodGet)
	api.HandleFunc("/documents/{id}", docHandler.DeleteDocument).Methods(http.MethodDelete)

	// Pipeline stages
	api.HandleFunc("/documents/{id}/extract-text", docHandler.ExtractText).Methods(http.MethodPost)
	api.HandleFunc("/documents/{id}/text", docHandler.GetText).Methods(http.MethodGet)
	api.HandleFunc("/documents/{id}/analyze", docHandler.AnalyzeDocument).Methods(http.MethodPost)
	api.HandleFunc("/documents/{id}/analysis", docHandler.GetLatestAnalysis).Methods(http.MethodGet)

	// Grounded Q&A
	api.HandleFunc("/documents/{id}/chat", docHandler.Chat).Methods(http.MethodPost)
	api.HandleFunc("/documents/{id}/messages", docHandler.ListMessages).Methods(http.MethodGet)

	return r
}
