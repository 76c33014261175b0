package receipt

import (
	"context"
	"errors"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	. "github.com/onsi/gomega/gstruct"
)

// mockDynamoDB keeps items in memory and pages scans one item at a time
type mockDynamoDB struct {
	items   map[string]map[string]types.AttributeValue
	order   []string
	tables  []string
	putErr  error
	scanErr error
}

func newMockDynamoDB() *mockDynamoDB {
	return &mockDynamoDB{items: make(map[string]map[string]types.AttributeValue)}
}

func keyOf(item map[string]types.AttributeValue) string {
	if v, ok := item["receipt_id"].(*types.AttributeValueMemberS); ok {
		return v.Value
	}
	return ""
}

func (m *mockDynamoDB) PutItem(ctx context.Context, params *dynamodb.PutItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.PutItemOutput, error) {
	m.tables = append(m.tables, aws.ToString(params.TableName))
	if m.putErr != nil {
		return nil, m.putErr
	}
	id := keyOf(params.Item)
	if _, exists := m.items[id]; !exists {
		m.order = append(m.order, id)
	}
	m.items[id] = params.Item
	return &dynamodb.PutItemOutput{}, nil
}

func (m *mockDynamoDB) GetItem(ctx context.Context, params *dynamodb.GetItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.GetItemOutput, error) {
	return &dynamodb.GetItemOutput{Item: m.items[keyOf(params.Key)]}, nil
}

func (m *mockDynamoDB) DeleteItem(ctx context.Context, params *dynamodb.DeleteItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.DeleteItemOutput, error) {
	id := keyOf(params.Key)
	if _, ok := m.items[id]; !ok {
		return nil, &types.ConditionalCheckFailedException{Message: aws.String("The conditional request failed")}
	}
	delete(m.items, id)
	for i, existing := range m.order {
		if existing == id {
			m.order = append(m.order[:i], m.order[i+1:]...)
			break
		}
	}
	return &dynamodb.DeleteItemOutput{}, nil
}

func (m *mockDynamoDB) Scan(ctx context.Context, params *dynamodb.ScanInput, optFns ...func(*dynamodb.Options)) (*dynamodb.ScanOutput, error) {
	if m.scanErr != nil {
		return nil, m.scanErr
	}
	start := 0
	if params.ExclusiveStartKey != nil {
		after := keyOf(params.ExclusiveStartKey)
		for i, id := range m.order {
			if id == after {
				start = i + 1
			}
		}
	}
	out := &dynamodb.ScanOutput{Items: []map[string]types.AttributeValue{}}
	if start < len(m.order) {
		id := m.order[start]
		out.Items = append(out.Items, m.items[id])
		if start+1 < len(m.order) {
			out.LastEvaluatedKey = receiptKey(id)
		}
	}
	return out, nil
}

var _ = Describe("DynamoDB", func() {
	var (
		client *mockDynamoDB
		db     *DynamoDB
		ctx    context.Context
		now    time.Time
	)

	str := func(s string) *string { return &s }

	BeforeEach(func() {
		client = newMockDynamoDB()
		ctx = context.Background()
		now = time.Date(2024, 5, 1, 8, 0, 0, 42, time.UTC)
		var err error
		db, err = NewDynamoDB(client, "Receipts")
		Expect(err).NotTo(HaveOccurred())
	})

	It("requires a table name", func() {
		_, err := NewDynamoDB(client, "")
		Expect(err).To(HaveOccurred())
	})

	Describe("SaveReceipt", func() {
		var err error

		JustBeforeEach(func() {
			err = db.SaveReceipt(ctx, &Receipt{
				ID:            "r1",
				Date:          "2024-05-01",
				Vendor:        "Hardware Co",
				Total:         "19.00",
				Items:         []Item{{Name: "Nails"}, {Name: "Hammer", Price: str("15.00"), Quantity: str("1")}},
				SourceLocator: "s3://inbox/r1.jpg",
				ProcessedAt:   now,
			})
		})

		It("writes the table layout", func() {
			Expect(err).NotTo(HaveOccurred())
			Expect(client.tables).To(ConsistOf("Receipts"))
			item := client.items["r1"]
			Expect(item).To(HaveKeyWithValue("vendor", &types.AttributeValueMemberS{Value: "Hardware Co"}))
			Expect(item).To(HaveKeyWithValue("s3_path", &types.AttributeValueMemberS{Value: "s3://inbox/r1.jpg"}))
			Expect(item).To(HaveKeyWithValue("processed_timestamp", &types.AttributeValueMemberS{Value: now.Format(time.RFC3339Nano)}))
		})

		It("fills missing item attributes", func() {
			items, ok := client.items["r1"]["items"].(*types.AttributeValueMemberL)
			Expect(ok).To(BeTrue())
			Expect(items.Value).To(HaveLen(2))
			nails, ok := items.Value[0].(*types.AttributeValueMemberM)
			Expect(ok).To(BeTrue())
			Expect(nails.Value).To(HaveKeyWithValue("name", &types.AttributeValueMemberS{Value: "Nails"}))
			Expect(nails.Value).To(HaveKeyWithValue("price", &types.AttributeValueMemberS{Value: "0.00"}))
			Expect(nails.Value).To(HaveKeyWithValue("quantity", &types.AttributeValueMemberS{Value: "1"}))
		})

		It("reads back the receipt", func() {
			saved, getErr := db.GetReceipt(ctx, "r1")
			Expect(getErr).NotTo(HaveOccurred())
			Expect(saved.Vendor).To(Equal("Hardware Co"))
			Expect(saved.SourceLocator).To(Equal("s3://inbox/r1.jpg"))
			Expect(saved.ProcessedAt).To(BeTemporally("==", now))
			Expect(saved.Items[1].Price).To(PointTo(Equal("15.00")))
		})

		It("reads a missing price back as the stored default", func() {
			saved, getErr := db.GetReceipt(ctx, "r1")
			Expect(getErr).NotTo(HaveOccurred())
			Expect(saved.Items[0].Price).To(PointTo(Equal("0.00")))
			Expect(saved.Items[0].Quantity).To(PointTo(Equal("1")))

			body, bodyErr := NewFormatter().Body(saved)
			Expect(bodyErr).NotTo(HaveOccurred())
			Expect(body).To(ContainSubstring("<li>Nails - $0.00 x 1</li>"))
			Expect(body).NotTo(ContainSubstring("N/A"))
		})

		When("the put fails", func() {
			BeforeEach(func() {
				client.putErr = errors.New("ProvisionedThroughputExceededException")
			})

			It("returns the error", func() {
				Expect(err).To(MatchError(ContainSubstring("putting receipt r1")))
			})
		})
	})

	Describe("GetReceipt", func() {
		It("returns ErrNotFound for an unknown id", func() {
			_, err := db.GetReceipt(ctx, "missing")
			Expect(err).To(MatchError(ErrNotFound))
		})
	})

	Describe("ListReceipts", func() {
		BeforeEach(func() {
			for _, id := range []string{"a", "b", "c"} {
				Expect(db.SaveReceipt(ctx, &Receipt{ID: id, Items: []Item{}, ProcessedAt: now})).To(Succeed())
			}
		})

		It("follows every scan page", func() {
			receipts, err := db.ListReceipts(ctx)
			Expect(err).NotTo(HaveOccurred())
			Expect(receipts).To(HaveLen(3))
		})

		When("the scan fails", func() {
			BeforeEach(func() {
				client.scanErr = errors.New("boom")
			})

			It("returns the error", func() {
				_, err := db.ListReceipts(ctx)
				Expect(err).To(MatchError(ContainSubstring("scanning receipts")))
			})
		})
	})

	Describe("DeleteReceipt", func() {
		BeforeEach(func() {
			Expect(db.SaveReceipt(ctx, &Receipt{ID: "r1", ProcessedAt: now})).To(Succeed())
		})

		It("removes the item", func() {
			Expect(db.DeleteReceipt(ctx, "r1")).To(Succeed())
			Expect(client.items).To(BeEmpty())
		})

		It("maps a failed condition to ErrNotFound", func() {
			Expect(db.DeleteReceipt(ctx, "missing")).To(MatchError(ErrNotFound))
		})
	})
})
