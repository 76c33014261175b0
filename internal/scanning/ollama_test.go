package scanning

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"image"
	"image/color"
	"image/png"
	"net/http"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"github.com/onsi/gomega/ghttp"
)

type mockSource struct {
	data        []byte
	contentType string
	err         error
}

func (m *mockSource) Fetch(ctx context.Context, ref DocumentRef) ([]byte, string, error) {
	if m.err != nil {
		return nil, "", m.err
	}
	return m.data, m.contentType, nil
}

func tinyPNG() []byte {
	img := image.NewRGBA(image.Rect(0, 0, 2, 2))
	img.Set(0, 0, color.White)
	var buf bytes.Buffer
	Expect(png.Encode(&buf, img)).To(Succeed())
	return buf.Bytes()
}

var _ = Describe("Ollama", func() {
	var (
		server   *ghttp.Server
		source   *mockSource
		scanner  *Ollama
		analysis *ExpenseAnalysis
		err      error
	)

	BeforeEach(func() {
		server = ghttp.NewServer()
		source = &mockSource{data: tinyPNG(), contentType: "image/png"}
		scanner, err = NewOllama(server.URL(), "llava", source)
		Expect(err).NotTo(HaveOccurred())
	})

	AfterEach(func() {
		server.Close()
	})

	JustBeforeEach(func() {
		analysis, err = scanner.AnalyzeExpense(context.Background(), DocumentRef{Bucket: "b", Key: "k.png"})
	})

	When("the model answers with fields", func() {
		BeforeEach(func() {
			content := `{"summary_fields":[{"type":"TOTAL","text":"4.20"}]}`
			server.AppendHandlers(ghttp.CombineHandlers(
				ghttp.VerifyRequest(http.MethodPost, "/api/chat"),
				ghttp.VerifyContentType("application/json"),
				func(w http.ResponseWriter, r *http.Request) {
					var req ollamaChatRequest
					Expect(json.NewDecoder(r.Body).Decode(&req)).To(Succeed())
					Expect(req.Model).To(Equal("llava"))
					Expect(req.Messages[1].Images).To(HaveLen(1))
				},
				ghttp.RespondWithJSONEncoded(http.StatusOK, ollamaChatResponse{
					Message: ollamaMessage{Role: "assistant", Content: content},
					Done:    true,
				}),
			))
		})

		It("should not return an error", func() {
			Expect(err).NotTo(HaveOccurred())
		})

		It("should return the parsed fields", func() {
			Expect(analysis.Primary().SummaryFields).To(Equal([]RawField{{Type: "TOTAL", Text: "4.20"}}))
		})
	})

	When("the API returns an error status", func() {
		BeforeEach(func() {
			server.AppendHandlers(ghttp.RespondWith(http.StatusInternalServerError, "model not loaded"))
		})

		It("returns an error naming the status", func() {
			Expect(err).To(MatchError(ContainSubstring("status 500")))
		})
	})

	When("the document cannot be fetched", func() {
		var setupErr error

		BeforeEach(func() {
			setupErr = errors.New("no such key")
			source.err = setupErr
		})

		It("returns the error", func() {
			Expect(err).To(MatchError(setupErr))
		})

		It("should not call the API", func() {
			Expect(server.ReceivedRequests()).To(BeEmpty())
		})
	})
})
