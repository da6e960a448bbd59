package app

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/modules/elasticsearch"
	"github.com/testcontainers/testcontainers-go/modules/opensearch"

	"github.com/pteich/elastic-status-history/flags"
)

func TestStatusHistoryE2E(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping E2E test in short mode")
	}

	tests := []struct {
		version int
		image   string
	}{
		{version: 7, image: "docker.elastic.co/elasticsearch/elasticsearch:7.17.10"},
		{version: 8, image: "docker.elastic.co/elasticsearch/elasticsearch:8.17.0"},
		{version: 9, image: "docker.elastic.co/elasticsearch/elasticsearch:9.2.3"},
	}

	for _, tt := range tests {
		t.Run(fmt.Sprintf("Elasticsearch_v%d", tt.version), func(t *testing.T) {
			ctx := context.Background()

			esContainer, err := elasticsearch.Run(ctx, tt.image,
				testcontainers.CustomizeRequest(testcontainers.GenericContainerRequest{
					ContainerRequest: testcontainers.ContainerRequest{
						Env: map[string]string{
							"discovery.type":         "single-node",
							"xpack.security.enabled": "false",
						},
					},
				}),
			)
			require.NoError(t, err, "failed to start container")
			defer func() {
				if err := esContainer.Terminate(ctx); err != nil {
					t.Fatalf("failed to terminate container: %s", err)
				}
			}()

			runScenarioAgainst(t, esContainer.Settings.Address, tt.version)
		})
	}
}

func TestStatusHistoryOpenSearchE2E(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping E2E test in short mode")
	}

	ctx := context.Background()
	osContainer, err := opensearch.Run(ctx, "opensearchproject/opensearch:2.11.1")
	require.NoError(t, err, "failed to start container")
	defer func() {
		if err := osContainer.Terminate(ctx); err != nil {
			t.Fatalf("failed to terminate container: %s", err)
		}
	}()

	address, err := osContainer.Address(ctx)
	require.NoError(t, err)

	runScenarioAgainst(t, address, 7)
}

func runScenarioAgainst(t *testing.T, endpoint string, version int) {
	t.Helper()
	ctx := context.Background()

	outFileName := filepath.Join(t.TempDir(), fmt.Sprintf("test_output_v%d.csv", version))

	conf := flags.Defaults()
	conf.ElasticURL = endpoint
	conf.ElasticVersion = version
	conf.Index = "status-history-e2e"
	conf.Outfile = outFileName
	conf.PageSize = 2
	conf.Reset = true

	conf.Action = flags.ActionScenario
	require.NoError(t, Run(ctx, &conf, nil))

	conf.Reset = false
	conf.Action = flags.ActionHistory
	conf.Entity = "1"
	require.NoError(t, Run(ctx, &conf, nil))

	data, err := os.ReadFile(outFileName)
	require.NoError(t, err)
	assert.Equal(t,
		"timestamp,status\n"+
			"2025-04-01T10:00:00.000000000Z,New\n"+
			"2025-04-03T15:30:00.000000000Z,Trending\n"+
			"2025-04-08T09:15:00.000000000Z,Old\n"+
			"2025-05-01T00:00:00.000000000Z,Trending\n",
		string(data))

	conf.Action = flags.ActionStatus
	conf.At = "2025-04-03T15:30:00Z"
	require.NoError(t, Run(ctx, &conf, nil))
	data, err = os.ReadFile(outFileName)
	require.NoError(t, err)
	assert.Equal(t, "1: Trending\n", string(data))
}
