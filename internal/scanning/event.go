package scanning

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/url"

	"github.com/aws/aws-lambda-go/events"
)

// ErrNoRecords is returned for an event envelope without any S3 record.
var ErrNoRecords = errors.New("event contains no s3 records")

// ParseS3Event decodes an S3 event notification and returns the document it names.
// events.S3Object decodes the key while unmarshaling, so a key holding an
// invalid percent escape such as "%zz" fails here. S3 never emits one.
func ParseS3Event(data []byte) (DocumentRef, error) {
	var evt events.S3Event
	if err := json.Unmarshal(data, &evt); err != nil {
		return DocumentRef{}, fmt.Errorf("unmarshaling s3 event: %w", err)
	}
	return RefFromS3Event(evt)
}

// RefFromS3Event returns the document named by the first record of the event.
// Object keys arrive form-encoded, so "+" decodes to a space.
func RefFromS3Event(evt events.S3Event) (DocumentRef, error) {
	if len(evt.Records) == 0 {
		return DocumentRef{}, ErrNoRecords
	}
	entity := evt.Records[0].S3
	if entity.Bucket.Name == "" || entity.Object.Key == "" {
		return DocumentRef{}, fmt.Errorf("s3 record missing bucket or key")
	}

	key, err := url.QueryUnescape(entity.Object.Key)
	if err != nil {
		return DocumentRef{}, fmt.Errorf("decoding object key %q: %w", entity.Object.Key, err)
	}

	return DocumentRef{Bucket: entity.Bucket.Name, Key: key}, nil
}
