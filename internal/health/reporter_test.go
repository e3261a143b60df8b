package health

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"dstack-health-agent/internal/dstack"
	"dstack-health-agent/internal/model"
)

type fakeClient struct {
	inventory *model.InventoryResponse
	err       error
}

func (c *fakeClient) ProbeInventory(context.Context) (*model.InventoryResponse, error) {
	if c.err != nil {
		return nil, c.err
	}
	return c.inventory, nil
}

func (c *fakeClient) Target() string { return "test" }

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

const testPubkey = "aabbccddeeff00112233445566778899aabbccddeeff00112233445566778899"

func TestReportAvailable(t *testing.T) {
	client := &fakeClient{inventory: &model.InventoryResponse{
		Gpus: []model.GpuInfo{
			{Slot: "0", ProductID: "2330", Description: "NVIDIA H100", IsFree: true},
			{Slot: "1", ProductID: "2330", Description: "NVIDIA H100", IsFree: false},
		},
		AllowAttachAll: true,
	}}
	r := NewReporter(client, testPubkey, "192.168.1.10", testLogger())

	report := r.Report(context.Background())

	assert.Equal(t, model.ReportVersion, report.Version)
	assert.Equal(t, model.ReportTopic, report.Topic)
	assert.Equal(t, model.StatusAvailable, report.Status)
	assert.Equal(t, []string{testPubkey}, report.Pubkeys)
	require.NotNil(t, report.IPAddress)
	assert.Equal(t, "192.168.1.10", *report.IPAddress)

	require.NotNil(t, report.Metadata)
	var meta model.InventoryMetadata
	require.NoError(t, json.Unmarshal([]byte(*report.Metadata), &meta))
	assert.Equal(t, 2, meta.GpuCount)
	assert.Len(t, meta.Gpus, 2)
	assert.True(t, meta.AllowAttachAll)
	assert.Contains(t, *report.Metadata, `"gpu_count":2`)
}

func TestReportUnavailable(t *testing.T) {
	cases := []struct {
		name        string
		err         error
		wantMessage string
	}{
		{"HTTP status failure", &dstack.StatusError{Code: 503}, "HTTP error: 503"},
		{"Connection failure", &dstack.ConnectionError{Err: assert.AnError}, "Connection error: " + assert.AnError.Error()},
		{"Decode failure", &dstack.DecodeError{Err: assert.AnError}, "Parse error: " + assert.AnError.Error()},
	}

	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			r := NewReporter(&fakeClient{err: c.err}, testPubkey, "", testLogger())

			report := r.Report(context.Background())

			assert.Equal(t, model.StatusUnavailable, report.Status)
			require.NotNil(t, report.Metadata)
			assert.Equal(t, c.wantMessage, *report.Metadata)
			assert.Nil(t, report.IPAddress)
		})
	}
}

func TestReportIdentityIsAlwaysPresent(t *testing.T) {
	for _, client := range []*fakeClient{
		{inventory: &model.InventoryResponse{}},
		{err: &dstack.ConnectionError{Err: assert.AnError}},
	} {
		report := NewReporter(client, testPubkey, "", testLogger()).Report(context.Background())
		require.Len(t, report.Pubkeys, 1)
		assert.Equal(t, testPubkey, report.Pubkeys[0])
	}
}

func TestReportProbesFreshlyEachCall(t *testing.T) {
	client := &fakeClient{err: &dstack.ConnectionError{Err: assert.AnError}}
	r := NewReporter(client, testPubkey, "", testLogger())

	first := r.Report(context.Background())
	assert.Equal(t, model.StatusUnavailable, first.Status)

	client.err = nil
	client.inventory = &model.InventoryResponse{}
	second := r.Report(context.Background())
	assert.Equal(t, model.StatusAvailable, second.Status)
}
