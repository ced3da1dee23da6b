package models

import (
	"github.com/google/uuid"
)

// Batch is an ordered group of records shipped in one delivery attempt.
// It is built by the delivery worker and owned by it exclusively until a
// terminal outcome (delivered or dropped).
type Batch struct {
	// Unique identifier for the batch, echoed by the collector
	ID string `json:"batch_id"`

	// Application this shipper reports as
	AppName string `json:"app_name"`

	// Handler-level metadata, computed once per batch by the metadata
	// hook and shared by every record in the batch. Record-level fields
	// take precedence over these on key collision.
	CommonMetadata map[string]any `json:"metadata,omitempty"`

	// Number of records dropped since the last delivered batch. Lets the
	// collector account for gaps in serial numbers.
	Lost uint64 `json:"lost"`

	// Records in enqueue order
	Records []LogRecord `json:"records"`
}

// NewBatch creates a batch around drained records
func NewBatch(appName string, records []LogRecord, commonMetadata map[string]any, lost uint64) *Batch {
	return &Batch{
		ID:             uuid.New().String(),
		AppName:        appName,
		CommonMetadata: commonMetadata,
		Lost:           lost,
		Records:        records,
	}
}

// Len returns the number of records in the batch
func (b *Batch) Len() int {
	return len(b.Records)
}
