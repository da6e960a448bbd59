package history

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestResolve(t *testing.T) {
	t1 := time.Date(2025, 4, 1, 10, 0, 0, 0, time.UTC)
	t2 := time.Date(2025, 4, 3, 15, 30, 0, 0, time.UTC)
	t3 := time.Date(2025, 4, 8, 9, 15, 0, 0, time.UTC)

	records := []Record{
		{EntityID: "1", Status: "S1", Timestamp: t1, Seq: 1},
		{EntityID: "1", Status: "S2", Timestamp: t2, Seq: 2},
		{EntityID: "1", Status: "S3", Timestamp: t3, Seq: 3},
	}

	tests := []struct {
		name      string
		at        time.Time
		want      string
		wantFound bool
	}{
		{"before first", t1.Add(-time.Nanosecond), "", false},
		{"at first", t1, "S1", true},
		{"between first and second", t2.Add(-time.Second), "S1", true},
		{"at second", t2, "S2", true},
		{"between second and third", t3.Add(-time.Nanosecond), "S2", true},
		{"at third", t3, "S3", true},
		{"long after", t3.AddDate(10, 0, 0), "S3", true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, found := Resolve(records, tt.at)
			assert.Equal(t, tt.wantFound, found)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestResolveEmpty(t *testing.T) {
	got, found := Resolve(nil, time.Now())
	assert.False(t, found)
	assert.Empty(t, got)
}

func TestResolveSameTimestampLastAppendedWins(t *testing.T) {
	ts := time.Date(2025, 4, 1, 10, 0, 0, 0, time.UTC)
	records := []Record{
		{Status: "first", Timestamp: ts, Seq: 10},
		{Status: "second", Timestamp: ts, Seq: 11},
		{Status: "later", Timestamp: ts.Add(time.Hour), Seq: 5},
	}

	got, found := Resolve(records, ts.Add(time.Minute))
	assert.True(t, found)
	assert.Equal(t, "second", got)
}
