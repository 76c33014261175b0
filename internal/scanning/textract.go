package scanning

import (
	"context"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/textract"
	"github.com/aws/aws-sdk-go-v2/service/textract/types"
)

// TextractAPI is the subset of the Textract client used by the scanner.
type TextractAPI interface {
	AnalyzeExpense(ctx context.Context, params *textract.AnalyzeExpenseInput, optFns ...func(*textract.Options)) (*textract.AnalyzeExpenseOutput, error)
}

// Textract implements the Scanner interface using AWS Textract AnalyzeExpense.
// Textract reads the object straight from S3, so no DocumentSource is needed.
type Textract struct {
	client TextractAPI
}

// NewTextract creates a new Textract scanner
func NewTextract(client TextractAPI) (*Textract, error) {
	if client == nil {
		return nil, fmt.Errorf("textract client is required")
	}
	return &Textract{client: client}, nil
}

// NewTextractFromConfig creates a Textract scanner from an AWS config
func NewTextractFromConfig(cfg aws.Config) *Textract {
	return &Textract{client: textract.NewFromConfig(cfg)}
}

// AnalyzeExpense runs AnalyzeExpense against the S3 object
func (t *Textract) AnalyzeExpense(ctx context.Context, ref DocumentRef) (*ExpenseAnalysis, error) {
	out, err := t.client.AnalyzeExpense(ctx, &textract.AnalyzeExpenseInput{
		Document: &types.Document{
			S3Object: &types.S3Object{
				Bucket: aws.String(ref.Bucket),
				Name:   aws.String(ref.Key),
			},
		},
	})
	if err != nil {
		return nil, fmt.Errorf("calling textract analyze expense: %w", err)
	}

	analysis := &ExpenseAnalysis{
		ExpenseDocuments: make([]ExpenseDocument, 0, len(out.ExpenseDocuments)),
	}
	for _, doc := range out.ExpenseDocuments {
		analysis.ExpenseDocuments = append(analysis.ExpenseDocuments, convertExpenseDocument(doc))
	}
	return analysis, nil
}

// Close is a no-op; the AWS client holds no resources.
func (t *Textract) Close() error {
	return nil
}

func convertExpenseDocument(doc types.ExpenseDocument) ExpenseDocument {
	var out ExpenseDocument
	if doc.SummaryFields != nil {
		out.SummaryFields = convertFields(doc.SummaryFields)
	}
	if doc.LineItemGroups != nil {
		out.LineItemGroups = make([]LineItemGroup, 0, len(doc.LineItemGroups))
		for _, group := range doc.LineItemGroups {
			var g LineItemGroup
			for _, line := range group.LineItems {
				g.LineItems = append(g.LineItems, LineItem{Fields: convertFields(line.LineItemExpenseFields)})
			}
			out.LineItemGroups = append(out.LineItemGroups, g)
		}
	}
	return out
}

// convertFields mirrors Textract's shape: a missing type or value detection
// becomes the empty string.
func convertFields(fields []types.ExpenseField) []RawField {
	out := make([]RawField, 0, len(fields))
	for _, field := range fields {
		var raw RawField
		if field.Type != nil {
			raw.Type = aws.ToString(field.Type.Text)
		}
		if field.ValueDetection != nil {
			raw.Text = aws.ToString(field.ValueDetection.Text)
			raw.Confidence = aws.ToFloat32(field.ValueDetection.Confidence)
		}
		out = append(out, raw)
	}
	return out
}
