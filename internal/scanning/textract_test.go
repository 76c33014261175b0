package scanning

import (
	"context"
	"errors"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/textract"
	"github.com/aws/aws-sdk-go-v2/service/textract/types"
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
)

type mockTextract struct {
	input  *textract.AnalyzeExpenseInput
	output *textract.AnalyzeExpenseOutput
	err    error
}

func (m *mockTextract) AnalyzeExpense(ctx context.Context, params *textract.AnalyzeExpenseInput, optFns ...func(*textract.Options)) (*textract.AnalyzeExpenseOutput, error) {
	m.input = params
	if m.err != nil {
		return nil, m.err
	}
	return m.output, nil
}

func expenseField(fieldType, text string) types.ExpenseField {
	return types.ExpenseField{
		Type:           &types.ExpenseType{Text: aws.String(fieldType)},
		ValueDetection: &types.ExpenseDetection{Text: aws.String(text), Confidence: aws.Float32(99.1)},
	}
}

var _ = Describe("Textract", func() {
	var (
		client   *mockTextract
		scanner  *Textract
		ref      DocumentRef
		analysis *ExpenseAnalysis
		err      error
	)

	BeforeEach(func() {
		client = &mockTextract{output: &textract.AnalyzeExpenseOutput{}}
		scanner, err = NewTextract(client)
		Expect(err).NotTo(HaveOccurred())
		ref = DocumentRef{Bucket: "receipts", Key: "cafe.jpg"}
	})

	JustBeforeEach(func() {
		analysis, err = scanner.AnalyzeExpense(context.Background(), ref)
	})

	It("should point textract at the S3 object", func() {
		Expect(aws.ToString(client.input.Document.S3Object.Bucket)).To(Equal("receipts"))
		Expect(aws.ToString(client.input.Document.S3Object.Name)).To(Equal("cafe.jpg"))
	})

	When("textract detects fields", func() {
		BeforeEach(func() {
			client.output = &textract.AnalyzeExpenseOutput{
				ExpenseDocuments: []types.ExpenseDocument{{
					SummaryFields: []types.ExpenseField{
						expenseField("TOTAL", "12.50"),
						{Type: &types.ExpenseType{Text: aws.String("VENDOR_NAME")}},
					},
					LineItemGroups: []types.LineItemGroup{{
						LineItems: []types.LineItemFields{{
							LineItemExpenseFields: []types.ExpenseField{
								expenseField("ITEM", "Coffee"),
								expenseField("PRICE", "3.00"),
							},
						}},
					}},
				}},
			}
		})

		It("should not return an error", func() {
			Expect(err).NotTo(HaveOccurred())
		})

		It("should convert summary fields", func() {
			Expect(analysis.Primary().SummaryFields[0]).To(Equal(RawField{Type: "TOTAL", Text: "12.50", Confidence: 99.1}))
		})

		It("should treat a missing value detection as empty text", func() {
			Expect(analysis.Primary().SummaryFields[1]).To(Equal(RawField{Type: "VENDOR_NAME"}))
		})

		It("should convert line items", func() {
			items := analysis.Primary().LineItems()
			Expect(items).To(HaveLen(1))
			Expect(items[0].Fields).To(HaveLen(2))
			Expect(items[0].Fields[0].Text).To(Equal("Coffee"))
		})
	})

	When("textract detects no documents", func() {
		It("should return an empty analysis", func() {
			Expect(err).NotTo(HaveOccurred())
			Expect(analysis.Primary()).To(BeNil())
		})
	})

	When("textract fails", func() {
		var setupErr error

		BeforeEach(func() {
			setupErr = errors.New("throttled")
			client.err = setupErr
		})

		It("returns the error", func() {
			Expect(err).To(MatchError(setupErr))
		})
	})

	It("rejects a nil client", func() {
		_, newErr := NewTextract(nil)
		Expect(newErr).To(HaveOccurred())
	})
})
