package scanning

import (
	"bytes"
	"image"
	"image/jpeg"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
)

var _ = Describe("toPNG", func() {
	It("should pass PNG data through unchanged", func() {
		data := tinyPNG()
		out, err := toPNG(data, "image/png")
		Expect(err).NotTo(HaveOccurred())
		Expect(out).To(Equal(data))
	})

	It("should re-encode JPEG data as PNG", func() {
		var buf bytes.Buffer
		Expect(jpeg.Encode(&buf, image.NewRGBA(image.Rect(0, 0, 4, 4)), nil)).To(Succeed())

		out, err := toPNG(buf.Bytes(), "IMAGE/JPEG; charset=binary")
		Expect(err).NotTo(HaveOccurred())
		_, format, err := image.Decode(bytes.NewReader(out))
		Expect(err).NotTo(HaveOccurred())
		Expect(format).To(Equal("png"))
	})

	It("should reject data that is not an image", func() {
		_, err := toPNG([]byte("plain text"), "text/plain")
		Expect(err).To(HaveOccurred())
	})
})

var _ = Describe("isHEIC", func() {
	It("should detect HEIC by declared type", func() {
		Expect(isHEIC(nil, "image/heic")).To(BeTrue())
	})

	It("should detect HEIC by ftyp brand", func() {
		data := append([]byte{0, 0, 0, 24}, []byte("ftypheic0000")...)
		Expect(isHEIC(data, "application/octet-stream")).To(BeTrue())
	})

	It("should not flag short data", func() {
		Expect(isHEIC([]byte("abc"), "image/jpeg")).To(BeFalse())
	})
})
