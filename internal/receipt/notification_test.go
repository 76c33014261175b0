package receipt

import (
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
)

var _ = Describe("Formatter", func() {
	var (
		formatter *Formatter
		receipt   *Receipt
		body      string
		doc       *goquery.Document
	)

	str := func(s string) *string { return &s }

	BeforeEach(func() {
		formatter = NewFormatter()
		receipt = &Receipt{
			ID:            "4f1c",
			Date:          "2024-03-09",
			Vendor:        "Cafe X",
			Total:         "12.50",
			Items:         []Item{},
			SourceLocator: "s3://inbox/cafe.jpg",
			ProcessedAt:   time.Date(2024, 3, 9, 0, 0, 0, 0, time.UTC),
		}
	})

	JustBeforeEach(func() {
		var err error
		body, err = formatter.Body(receipt)
		Expect(err).NotTo(HaveOccurred())
		doc, err = goquery.NewDocumentFromReader(strings.NewReader(body))
		Expect(err).NotTo(HaveOccurred())
	})

	Describe("Body", func() {
		It("renders the header fields verbatim", func() {
			text := doc.Find("body").Text()
			Expect(text).To(ContainSubstring("Receipt ID: 4f1c"))
			Expect(text).To(ContainSubstring("Vendor: Cafe X"))
			Expect(text).To(ContainSubstring("Date: 2024-03-09"))
			Expect(text).To(ContainSubstring("Total Amount: $12.50"))
			Expect(text).To(ContainSubstring("S3 Location: s3://inbox/cafe.jpg"))
		})

		When("there are no items", func() {
			It("renders the placeholder and no bullets", func() {
				Expect(body).To(ContainSubstring("No items detected"))
				Expect(doc.Find("li").Length()).To(Equal(0))
			})
		})

		When("items have missing values", func() {
			BeforeEach(func() {
				receipt.Items = []Item{
					{Name: "Coffee", Price: str("3.00")},
					{Name: "", Quantity: str("2")},
					{Name: "Bagel", Price: str("2.25"), Quantity: str("3")},
				}
			})

			It("renders one bullet per item in order", func() {
				Expect(doc.Find("li").Length()).To(Equal(3))
				Expect(body).NotTo(ContainSubstring("No items detected"))
			})

			It("substitutes display defaults", func() {
				lis := doc.Find("li")
				Expect(lis.Eq(0).Text()).To(Equal("Coffee - $3.00 x 1"))
				Expect(lis.Eq(1).Text()).To(Equal("Unknown Item - $N/A x 2"))
				Expect(lis.Eq(2).Text()).To(Equal("Bagel - $2.25 x 3"))
			})

			It("leaves the receipt unchanged", func() {
				Expect(receipt.Items[0].Quantity).To(BeNil())
				Expect(receipt.Items[1].Name).To(BeEmpty())
			})
		})

		When("values contain markup", func() {
			BeforeEach(func() {
				receipt.Vendor = "<b>Bob's</b>"
			})

			It("escapes them", func() {
				Expect(body).NotTo(ContainSubstring("<b>"))
				Expect(doc.Find("b").Length()).To(Equal(0))
				Expect(doc.Find("body").Text()).To(ContainSubstring("<b>Bob's</b>"))
			})
		})

		When("a header field contains an ampersand", func() {
			BeforeEach(func() {
				receipt.Vendor = "AT&T"
			})

			It("entity-encodes it in the markup", func() {
				Expect(body).To(ContainSubstring("<p><strong>Vendor:</strong> AT&amp;T</p>"))
			})

			It("reads back as the original text", func() {
				Expect(doc.Find("p").Eq(1).Text()).To(Equal("Vendor: AT&T"))
			})
		})
	})

	Describe("Subject", func() {
		It("names vendor and total", func() {
			Expect(formatter.Subject(receipt)).To(Equal("Receipt Processed: Cafe X - $12.50"))
		})
	})

	Describe("Message", func() {
		It("addresses the notification", func() {
			msg, err := formatter.Message(receipt, "from@example.com", []string{"to@example.com"})
			Expect(err).NotTo(HaveOccurred())
			Expect(msg.From).To(Equal("from@example.com"))
			Expect(msg.To).To(ConsistOf("to@example.com"))
			Expect(msg.Subject).To(Equal("Receipt Processed: Cafe X - $12.50"))
			Expect(msg.HTML).To(Equal(body))
			Expect(msg.Validate()).To(Succeed())
		})
	})
})
