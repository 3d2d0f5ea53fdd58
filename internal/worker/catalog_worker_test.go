package worker

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/MeDjb10/recruitment-platform-backend/internal/broker"
	"github.com/MeDjb10/recruitment-platform-backend/internal/models"
)

type fakeCatalogService struct {
	tests []models.TestSummary
	err   error
}

func (f *fakeCatalogService) ListTests(ctx context.Context, filter models.TestFilter) ([]models.TestSummary, error) {
	if f.err != nil {
		return nil, f.err
	}
	return f.tests, nil
}

func startCatalogWorker(t *testing.T, svc *fakeCatalogService) *broker.MemoryTransport {
	t.Helper()

	transport := broker.NewMemoryTransport()
	publisher, err := broker.NewPublisher(transport, zerolog.Nop(), broker.EventTestListResponse)
	require.NoError(t, err)

	w := NewCatalogWorker(transport, publisher, svc, zerolog.Nop())
	require.NoError(t, w.Start(context.Background()))

	return transport
}

func publishRequest(t *testing.T, transport *broker.MemoryTransport, env models.Envelope) {
	t.Helper()

	b, err := broker.LookupBinding(broker.EventTestListRequest)
	require.NoError(t, err)

	body, err := json.Marshal(env)
	require.NoError(t, err)
	require.NoError(t, transport.Publish(context.Background(), b.Exchange, b.RoutingKey, body))
}

func lastResponse(t *testing.T, transport *broker.MemoryTransport) models.Envelope {
	t.Helper()

	published := transport.Published()
	require.NotEmpty(t, published)

	var env models.Envelope
	require.NoError(t, json.Unmarshal(published[len(published)-1].Body, &env))
	return env
}

func TestCatalogWorkerAnswersRequest(t *testing.T) {
	svc := &fakeCatalogService{tests: []models.TestSummary{{TestID: "test-d70", Name: "D-70"}}}
	transport := startCatalogWorker(t, svc)

	req, err := models.NewRequest(broker.EventTestListRequest, models.TestListRequest{}, "corr-1", broker.EventTestListResponse)
	require.NoError(t, err)
	publishRequest(t, transport, req)

	resp := lastResponse(t, transport)
	assert.Equal(t, broker.EventTestListResponse, resp.EventName)
	assert.Equal(t, "corr-1", resp.CorrelationID)
	assert.Empty(t, resp.Error)

	var payload models.TestListResponse
	require.NoError(t, json.Unmarshal(resp.Payload, &payload))
	require.Len(t, payload.Tests, 1)
	assert.Equal(t, "test-d70", payload.Tests[0].TestID)
}

func TestCatalogWorkerDefaultsReplyEvent(t *testing.T) {
	svc := &fakeCatalogService{}
	transport := startCatalogWorker(t, svc)

	req, err := models.NewRequest(broker.EventTestListRequest, models.TestListRequest{}, "corr-2", "")
	require.NoError(t, err)
	publishRequest(t, transport, req)

	resp := lastResponse(t, transport)
	assert.Equal(t, broker.EventTestListResponse, resp.EventName)
}

func TestCatalogWorkerReturnsErrorEnvelope(t *testing.T) {
	svc := &fakeCatalogService{err: errors.New("catalog database down")}
	transport := startCatalogWorker(t, svc)

	req, err := models.NewRequest(broker.EventTestListRequest, models.TestListRequest{}, "corr-3", broker.EventTestListResponse)
	require.NoError(t, err)
	publishRequest(t, transport, req)

	resp := lastResponse(t, transport)
	assert.Equal(t, "corr-3", resp.CorrelationID)
	assert.Contains(t, resp.Error, "catalog database down")
}

func TestCatalogWorkerDiscardsRequestWithoutCorrelationID(t *testing.T) {
	svc := &fakeCatalogService{}
	transport := startCatalogWorker(t, svc)

	env, err := models.NewEvent(broker.EventTestListRequest, models.TestListRequest{})
	require.NoError(t, err)
	publishRequest(t, transport, env)

	// Only the request itself was published, never a response.
	assert.Len(t, transport.Published(), 1)
}

func TestCatalogWorkerDiscardsUnroutableReply(t *testing.T) {
	svc := &fakeCatalogService{}
	transport := startCatalogWorker(t, svc)

	req, err := models.NewRequest(broker.EventTestListRequest, models.TestListRequest{}, "corr-4", "no.such.event")
	require.NoError(t, err)
	publishRequest(t, transport, req)

	assert.Len(t, transport.Published(), 1)
}
