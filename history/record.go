package history

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"
)

// TimestampLayout is fixed width so that the lexicographic order of
// formatted timestamps equals their chronological order.
const TimestampLayout = "2006-01-02T15:04:05.000000000Z"

var (
	minTimestamp = time.Date(1, time.January, 1, 0, 0, 0, 0, time.UTC)
	maxTimestamp = time.Date(9999, time.December, 31, 23, 59, 59, 999999999, time.UTC)
)

// Record is one status change of an entity. Seq orders records that share
// a timestamp by the time they were appended.
type Record struct {
	EntityID  string
	Status    string
	Timestamp time.Time
	Seq       int64
}

// NewRecord validates the input and returns a record with the timestamp
// normalized to UTC.
func NewRecord(entityID, status string, ts time.Time) (Record, error) {
	if strings.TrimSpace(entityID) == "" {
		return Record{}, fmt.Errorf("%w: entity id is required", ErrInvalidRecord)
	}
	if strings.TrimSpace(status) == "" {
		return Record{}, fmt.Errorf("%w: status is required", ErrInvalidRecord)
	}
	if ts.IsZero() {
		return Record{}, fmt.Errorf("%w: timestamp is required", ErrInvalidRecord)
	}
	ts = ts.UTC()
	if ts.Before(minTimestamp) || ts.After(maxTimestamp) {
		return Record{}, fmt.Errorf("%w: timestamp %s out of range", ErrInvalidRecord, ts)
	}

	return Record{EntityID: entityID, Status: status, Timestamp: ts}, nil
}

// ID is the deterministic document id of the record.
func (r Record) ID() string {
	return r.EntityID + "_" + FormatTimestamp(r.Timestamp)
}

// Entry returns the record without its identifiers.
func (r Record) Entry() Entry {
	return Entry{Timestamp: r.Timestamp, Status: r.Status}
}

// Entry is one line of an entity history.
type Entry struct {
	Timestamp time.Time `json:"timestamp"`
	Status    string    `json:"status"`
}

// MarshalJSON writes the timestamp in TimestampLayout like the other output formats.
func (e Entry) MarshalJSON() ([]byte, error) {
	return json.Marshal(struct {
		Timestamp string `json:"timestamp"`
		Status    string `json:"status"`
	}{FormatTimestamp(e.Timestamp), e.Status})
}

func FormatTimestamp(t time.Time) string {
	return t.UTC().Format(TimestampLayout)
}

func ParseTimestamp(s string) (time.Time, error) {
	t, err := time.Parse(TimestampLayout, s)
	if err != nil {
		return time.Time{}, fmt.Errorf("%w: %v", ErrInvalidRecord, err)
	}
	return t, nil
}

// document is the stored form of a record.
type document struct {
	EntityID  string `json:"entityId"`
	Status    string `json:"status"`
	Timestamp string `json:"timestamp"`
	Seq       int64  `json:"seq"`
}

func toDocument(r Record) document {
	return document{
		EntityID:  r.EntityID,
		Status:    r.Status,
		Timestamp: FormatTimestamp(r.Timestamp),
		Seq:       r.Seq,
	}
}

func (d document) record() (Record, error) {
	ts, err := ParseTimestamp(d.Timestamp)
	if err != nil {
		return Record{}, err
	}
	return Record{EntityID: d.EntityID, Status: d.Status, Timestamp: ts, Seq: d.Seq}, nil
}
