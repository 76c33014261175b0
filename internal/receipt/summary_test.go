package receipt

import (
	"context"
	"errors"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
)

var _ = Describe("SpendByVendor", func() {
	var (
		db      *mockDB
		service *Service
		summary *SpendSummary
		err     error
	)

	BeforeEach(func() {
		db = newMockDB()
		service = NewService(db, newMockScanner(), nil, nil, Addressing{})
	})

	JustBeforeEach(func() {
		summary, err = service.SpendByVendor(context.Background())
	})

	When("receipts exist", func() {
		BeforeEach(func() {
			db.receipts["1"] = &Receipt{ID: "1", Vendor: "Grocer", Total: "$1,204.10"}
			db.receipts["2"] = &Receipt{ID: "2", Vendor: "Grocer", Total: "10.00"}
			db.receipts["3"] = &Receipt{ID: "3", Vendor: "Cafe", Total: "USD 3.50"}
			db.receipts["4"] = &Receipt{ID: "4", Vendor: "Cafe", Total: "three fifty"}
			db.receipts["5"] = &Receipt{ID: "5", Vendor: "Unknown", Total: "0.00"}
		})

		It("sums totals per vendor, largest first", func() {
			Expect(err).NotTo(HaveOccurred())
			Expect(summary.Vendors).To(HaveLen(3))
			Expect(summary.Vendors[0].Vendor).To(Equal("Grocer"))
			Expect(summary.Vendors[0].Total.StringFixed(2)).To(Equal("1214.10"))
			Expect(summary.Vendors[0].Receipts).To(Equal(2))
			Expect(summary.Vendors[1].Vendor).To(Equal("Cafe"))
			Expect(summary.Vendors[1].Receipts).To(Equal(1))
			Expect(summary.Vendors[2].Vendor).To(Equal("Unknown"))
		})

		It("counts totals it cannot parse", func() {
			Expect(summary.Skipped).To(Equal(1))
			Expect(summary.Total.StringFixed(2)).To(Equal("1217.60"))
		})
	})

	When("no receipts exist", func() {
		It("returns an empty summary", func() {
			Expect(err).NotTo(HaveOccurred())
			Expect(summary.Vendors).To(BeEmpty())
			Expect(summary.Total.IsZero()).To(BeTrue())
		})
	})

	When("the database fails", func() {
		BeforeEach(func() {
			db.listErr = errors.New("database error")
		})

		It("returns the error", func() {
			Expect(err).To(HaveOccurred())
		})
	})
})

var _ = DescribeTable("parseAmount",
	func(text, want string, ok bool) {
		got, parsed := parseAmount(text)
		Expect(parsed).To(Equal(ok))
		if ok {
			Expect(got.StringFixed(2)).To(Equal(want))
		}
	},
	Entry("plain", "12.50", "12.50", true),
	Entry("dollar sign and comma", "$1,204.00", "1204.00", true),
	Entry("currency code", "USD 3", "3.00", true),
	Entry("empty", "", "", false),
	Entry("words", "twelve", "", false),
)
