package scanning

import (
	"encoding/json"
	"fmt"
	"strings"
)

// expenseAnalysisPrompt asks a vision model to report what it reads in the
// same typed-field shape an expense analysis service returns.
const expenseAnalysisPrompt = `You are analyzing a receipt or invoice document. Read all text in the image and report every field you detect.

Return ONLY valid JSON in this exact format:
{
  "summary_fields": [
    {"type": "VENDOR_NAME", "text": "Store name as printed"},
    {"type": "INVOICE_RECEIPT_DATE", "text": "Date as printed"},
    {"type": "TOTAL", "text": "12.50"}
  ],
  "line_items": [
    {"fields": [
      {"type": "ITEM", "text": "Item description"},
      {"type": "PRICE", "text": "3.00"},
      {"type": "QUANTITY", "text": "1"}
    ]}
  ]
}

Rules:
- Use only these types for summary fields: VENDOR_NAME, INVOICE_RECEIPT_DATE, TOTAL. Other summary information may use a descriptive upper-case type.
- Use only ITEM, PRICE and QUANTITY inside line item fields.
- Copy text exactly as printed; do not convert currencies or dates.
- Omit any field you cannot find instead of inventing a value.
- Do not include any text before or after the JSON
- Do not use markdown code blocks`

// llmExpenseDocument is the JSON shape requested from LLM scanners
type llmExpenseDocument struct {
	SummaryFields []RawField `json:"summary_fields"`
	LineItems     []LineItem `json:"line_items"`
}

// parseAnalysisJSON parses a model response into an expense analysis
func parseAnalysisJSON(text string) (*ExpenseAnalysis, error) {
	text = strings.TrimSpace(text)
	text = strings.TrimPrefix(text, "```json")
	text = strings.TrimPrefix(text, "```")
	text = strings.TrimSpace(text)

	startIdx := strings.Index(text, "{")
	if startIdx == -1 {
		return nil, fmt.Errorf("no JSON object found in response")
	}
	endIdx := strings.LastIndex(text, "}")
	if endIdx < startIdx {
		return nil, fmt.Errorf("invalid JSON object in response")
	}
	text = text[startIdx : endIdx+1]

	var doc llmExpenseDocument
	if err := json.Unmarshal([]byte(text), &doc); err != nil {
		return nil, fmt.Errorf("unmarshaling json: %w", err)
	}

	expense := ExpenseDocument{SummaryFields: doc.SummaryFields}
	if doc.LineItems != nil {
		expense.LineItemGroups = []LineItemGroup{{LineItems: doc.LineItems}}
	}

	return &ExpenseAnalysis{ExpenseDocuments: []ExpenseDocument{expense}}, nil
}
