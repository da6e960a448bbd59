package scenario

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pteich/elastic-status-history/elastic/sqlite"
	"github.com/pteich/elastic-status-history/history"
)

func newService(t *testing.T) *history.Service {
	t.Helper()

	client, err := sqlite.Open(":memory:")
	require.NoError(t, err)
	t.Cleanup(client.Stop)

	store := history.NewStore(client)
	require.NoError(t, store.EnsureIndex(context.Background()))
	return history.NewService(store)
}

func TestDefaultScenarioPasses(t *testing.T) {
	report, err := Runner{Service: newService(t)}.Run(context.Background(), Default())
	require.NoError(t, err)

	assert.Equal(t, 4, report.Recorded)
	require.Len(t, report.Results, 4)
	assert.True(t, report.Passed(), "%+v", report.Results)
	assert.Equal(t, "Old", report.Results[0].Got)
}

func TestLoadAndRun(t *testing.T) {
	sc, err := Load("testdata/products.yaml")
	require.NoError(t, err)
	assert.Equal(t, "two products", sc.Name)
	require.Len(t, sc.Events, 5)
	assert.Equal(t, time.Date(2025, time.April, 3, 15, 30, 0, 0, time.UTC), sc.Events[1].At)

	report, err := Runner{Service: newService(t)}.Run(context.Background(), sc)
	require.NoError(t, err)
	assert.True(t, report.Passed(), "%+v", report.Results)
	assert.False(t, report.Results[3].Found)
}

func TestFailingCheckIsReported(t *testing.T) {
	sc := Default()
	sc.Checks = append(sc.Checks, Check{Entity: "1", At: time.Date(2025, time.March, 1, 0, 0, 0, 0, time.UTC), Want: "New"})

	report, err := Runner{Service: newService(t)}.Run(context.Background(), sc)
	require.NoError(t, err)
	assert.False(t, report.Passed())
	assert.Equal(t, 1, report.Failed())
}

func TestLoadErrors(t *testing.T) {
	_, err := Load("testdata/missing.yaml")
	assert.Error(t, err)

	_, err = Load("testdata/invalid.yaml")
	assert.ErrorContains(t, err, "event 0")
}

func TestLive(t *testing.T) {
	ctx := context.Background()
	svc := newService(t)

	stamps, err := Live(ctx, svc, "42", []string{"ACTIVE", "INACTIVE", "ACTIVE"}, time.Millisecond)
	require.NoError(t, err)
	require.Len(t, stamps, 3)
	assert.True(t, stamps[1].After(stamps[0]))

	status, found, err := svc.StatusAt(ctx, "42", stamps[1])
	require.NoError(t, err)
	assert.True(t, found)
	assert.Equal(t, "INACTIVE", status)

	entries, err := svc.FullHistory(ctx, "42")
	require.NoError(t, err)
	assert.Len(t, entries, 3)
}
