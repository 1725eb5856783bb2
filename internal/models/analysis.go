package models

// Risk levels for DocumentAnalysis.OverallRisk.
const (
	RiskLow    = "low"
	RiskMedium = "medium"
	RiskHigh   = "high"
)

// Evidence is a verbatim quote backing an action or deadline, with an
// optional 1-based page reference.
type Evidence struct {
	QuoteDE string `json:"quote_de"`
	Page    *int   `json:"page,omitempty"`
}

// Action is something the recipient of the letter has to do.
type Action struct {
	TitleEN    string   `json:"title_en"`
	DetailsEN  string   `json:"details_en"`
	DueDate    *string  `json:"due_date"` // YYYY-MM-DD or null
	Confidence float64  `json:"confidence"`
	Category   string   `json:"category"`
	Evidence   Evidence `json:"evidence"`
}

type Deadline struct {
	Date       string   `json:"date"` // YYYY-MM-DD
	MeaningEN  string   `json:"meaning_en"`
	Confidence float64  `json:"confidence"`
	Evidence   Evidence `json:"evidence"`
}

// Entities extracted from the letter. Every field is independently
// nullable; absence means the model did not find it.
type Entities struct {
	Sender          *string  `json:"sender"`
	AmountEUR       *float64 `json:"amount_eur"`
	IBAN            *string  `json:"iban"`
	ReferenceNumber *string  `json:"reference_number"`
	ContactPhone    *string  `json:"contact_phone"`
	Address         *string  `json:"address"`
}

// DocumentAnalysis is the structured interpretation of one letter. The
// JSON keys are the exact schema the model is instructed to produce.
type DocumentAnalysis struct {
	LanguageDetected string     `json:"language_detected"`
	SummaryEN        string     `json:"summary_en"`
	OverallRisk      string     `json:"overall_risk"`
	Actions          []Action   `json:"actions"`
	Deadlines        []Deadline `json:"deadlines"`
	Entities         Entities   `json:"entities"`
}
