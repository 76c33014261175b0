package scanning

import (
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
)

var _ = Describe("ParseS3Event", func() {
	var (
		payload string
		ref     DocumentRef
		err     error
	)

	JustBeforeEach(func() {
		ref, err = ParseS3Event([]byte(payload))
	})

	When("the key is URL encoded", func() {
		BeforeEach(func() {
			payload = `{"Records":[{"s3":{"bucket":{"name":"receipts"},"object":{"key":"uploads/my+receipt%281%29.jpg"}}}]}`
		})

		It("should not return an error", func() {
			Expect(err).NotTo(HaveOccurred())
		})

		It("should decode plus signs and escapes", func() {
			Expect(ref).To(Equal(DocumentRef{Bucket: "receipts", Key: "uploads/my receipt(1).jpg"}))
		})
	})

	When("the key has an invalid percent escape", func() {
		BeforeEach(func() {
			payload = `{"Records":[{"s3":{"bucket":{"name":"receipts"},"object":{"key":"100%25+off%zz.jpg"}}}]}`
		})

		It("rejects the event", func() {
			Expect(err).To(MatchError(ContainSubstring(`invalid URL escape "%zz"`)))
			Expect(ref).To(BeZero())
		})
	})

	When("the event has no records", func() {
		BeforeEach(func() {
			payload = `{"Records":[]}`
		})

		It("returns ErrNoRecords", func() {
			Expect(err).To(MatchError(ErrNoRecords))
		})
	})

	When("the record has no key", func() {
		BeforeEach(func() {
			payload = `{"Records":[{"s3":{"bucket":{"name":"receipts"},"object":{}}}]}`
		})

		It("returns an error", func() {
			Expect(err).To(HaveOccurred())
		})
	})

	When("the payload is not JSON", func() {
		BeforeEach(func() {
			payload = `not json`
		})

		It("returns an error", func() {
			Expect(err).To(HaveOccurred())
		})
	})
})
