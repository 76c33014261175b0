package receipt

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
)

// DynamoDBAPI is the subset of the DynamoDB client used by DynamoDB
type DynamoDBAPI interface {
	PutItem(ctx context.Context, params *dynamodb.PutItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.PutItemOutput, error)
	GetItem(ctx context.Context, params *dynamodb.GetItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.GetItemOutput, error)
	DeleteItem(ctx context.Context, params *dynamodb.DeleteItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.DeleteItemOutput, error)
	Scan(ctx context.Context, params *dynamodb.ScanInput, optFns ...func(*dynamodb.Options)) (*dynamodb.ScanOutput, error)
}

// Stored line items are fully populated; readers of the table never see
// missing attributes.
const (
	storedUnknownItem = "Unknown Item"
	storedNoPrice     = "0.00"
	storedQuantity    = "1"
)

// dynamoReceipt is the table layout, keyed by receipt_id
type dynamoReceipt struct {
	ReceiptID          string           `dynamodbav:"receipt_id"`
	Date               string           `dynamodbav:"date"`
	Vendor             string           `dynamodbav:"vendor"`
	Total              string           `dynamodbav:"total"`
	Items              []dynamoLineItem `dynamodbav:"items"`
	S3Path             string           `dynamodbav:"s3_path"`
	ProcessedTimestamp string           `dynamodbav:"processed_timestamp"`
}

type dynamoLineItem struct {
	Name     string `dynamodbav:"name"`
	Price    string `dynamodbav:"price"`
	Quantity string `dynamodbav:"quantity"`
}

// DynamoDB implements the DB interface on an Amazon DynamoDB table
type DynamoDB struct {
	client DynamoDBAPI
	table  string
}

// NewDynamoDB creates a DynamoDB store for the table
func NewDynamoDB(client DynamoDBAPI, table string) (*DynamoDB, error) {
	if table == "" {
		return nil, fmt.Errorf("dynamodb table name is required")
	}
	return &DynamoDB{client: client, table: table}, nil
}

// NewDynamoDBFromConfig creates a DynamoDB store from an AWS config
func NewDynamoDBFromConfig(cfg aws.Config, table string) (*DynamoDB, error) {
	return NewDynamoDB(dynamodb.NewFromConfig(cfg), table)
}

// SaveReceipt puts the receipt item
func (d *DynamoDB) SaveReceipt(ctx context.Context, receipt *Receipt) error {
	item, err := attributevalue.MarshalMap(toDynamo(receipt))
	if err != nil {
		return fmt.Errorf("marshaling receipt: %w", err)
	}

	if _, err := d.client.PutItem(ctx, &dynamodb.PutItemInput{
		TableName: aws.String(d.table),
		Item:      item,
	}); err != nil {
		return fmt.Errorf("putting receipt %s: %w", receipt.ID, err)
	}

	slog.Info("Receipt stored in DynamoDB", "table", d.table, "receipt_id", receipt.ID)
	return nil
}

// GetReceipt retrieves a receipt by ID
func (d *DynamoDB) GetReceipt(ctx context.Context, id string) (*Receipt, error) {
	out, err := d.client.GetItem(ctx, &dynamodb.GetItemInput{
		TableName: aws.String(d.table),
		Key:       receiptKey(id),
	})
	if err != nil {
		return nil, fmt.Errorf("getting receipt %s: %w", id, err)
	}
	if len(out.Item) == 0 {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	return unmarshalReceipt(out.Item)
}

// ListReceipts scans the whole table
func (d *DynamoDB) ListReceipts(ctx context.Context) ([]*Receipt, error) {
	receipts := make([]*Receipt, 0)
	paginator := dynamodb.NewScanPaginator(d.client, &dynamodb.ScanInput{
		TableName: aws.String(d.table),
	})
	for paginator.HasMorePages() {
		page, err := paginator.NextPage(ctx)
		if err != nil {
			return nil, fmt.Errorf("scanning receipts: %w", err)
		}
		for _, item := range page.Items {
			receipt, err := unmarshalReceipt(item)
			if err != nil {
				return nil, err
			}
			receipts = append(receipts, receipt)
		}
	}
	return receipts, nil
}

// DeleteReceipt removes a receipt, failing with ErrNotFound if it is absent
func (d *DynamoDB) DeleteReceipt(ctx context.Context, id string) error {
	_, err := d.client.DeleteItem(ctx, &dynamodb.DeleteItemInput{
		TableName:           aws.String(d.table),
		Key:                 receiptKey(id),
		ConditionExpression: aws.String("attribute_exists(receipt_id)"),
	})
	if err != nil {
		var condErr *types.ConditionalCheckFailedException
		if errors.As(err, &condErr) {
			return fmt.Errorf("%w: %s", ErrNotFound, id)
		}
		return fmt.Errorf("deleting receipt %s: %w", id, err)
	}
	return nil
}

// Close is a no-op; the AWS client holds no resources
func (d *DynamoDB) Close() error {
	return nil
}

func receiptKey(id string) map[string]types.AttributeValue {
	return map[string]types.AttributeValue{
		"receipt_id": &types.AttributeValueMemberS{Value: id},
	}
}

func toDynamo(r *Receipt) dynamoReceipt {
	items := make([]dynamoLineItem, 0, len(r.Items))
	for _, item := range r.Items {
		items = append(items, dynamoLineItem{
			Name:     displayOr(&item.Name, storedUnknownItem),
			Price:    displayOr(item.Price, storedNoPrice),
			Quantity: displayOr(item.Quantity, storedQuantity),
		})
	}
	return dynamoReceipt{
		ReceiptID:          r.ID,
		Date:               r.Date,
		Vendor:             r.Vendor,
		Total:              r.Total,
		Items:              items,
		S3Path:             r.SourceLocator,
		ProcessedTimestamp: r.ProcessedAt.Format(time.RFC3339Nano),
	}
}

func unmarshalReceipt(item map[string]types.AttributeValue) (*Receipt, error) {
	var stored dynamoReceipt
	if err := attributevalue.UnmarshalMap(item, &stored); err != nil {
		return nil, fmt.Errorf("unmarshaling receipt: %w", err)
	}

	processedAt, err := time.Parse(time.RFC3339Nano, stored.ProcessedTimestamp)
	if err != nil {
		return nil, fmt.Errorf("parsing processed_timestamp of %s: %w", stored.ReceiptID, err)
	}

	items := make([]Item, 0, len(stored.Items))
	// Stored defaults are indistinguishable from detected values
	for _, li := range stored.Items {
		price, quantity := li.Price, li.Quantity
		items = append(items, Item{Name: li.Name, Price: &price, Quantity: &quantity})
	}

	return &Receipt{
		ID:            stored.ReceiptID,
		Date:          stored.Date,
		Vendor:        stored.Vendor,
		Total:         stored.Total,
		Items:         items,
		SourceLocator: stored.S3Path,
		ProcessedAt:   processedAt,
	}, nil
}
