package broker

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/MeDjb10/recruitment-platform-backend/internal/models"
)

// respond wires a synchronous responder onto the request queue, the way
// the catalog service answers in production.
func respond(t *testing.T, transport *MemoryTransport, publisher Publisher, answer func(env models.Envelope) (interface{}, error)) {
	t.Helper()

	queue, err := QueueFor(EventTestListRequest)
	require.NoError(t, err)

	err = transport.Subscribe(context.Background(), queue, func(ctx context.Context, body []byte) error {
		var env models.Envelope
		require.NoError(t, json.Unmarshal(body, &env))

		payload, respErr := answer(env)
		resp, err := models.NewResponse(env.ReplyTo, env.CorrelationID, payload, respErr)
		require.NoError(t, err)
		return publisher.Publish(ctx, resp)
	})
	require.NoError(t, err)
}

func newCorrelationFixture(t *testing.T) (*MemoryTransport, *TopologyPublisher, *CorrelationClient) {
	t.Helper()

	transport := NewMemoryTransport()
	publisher, err := NewPublisher(transport, testLogger(), EventTestListRequest, EventTestListResponse)
	require.NoError(t, err)

	client, err := NewCorrelationClient(publisher, EventTestListRequest, EventTestListResponse, testLogger())
	require.NoError(t, err)

	queue, err := QueueFor(EventTestListResponse)
	require.NoError(t, err)
	require.NoError(t, transport.Subscribe(context.Background(), queue, client.HandleResponse))

	return transport, publisher, client
}

func TestRequestRoundTrip(t *testing.T) {
	transport, publisher, client := newCorrelationFixture(t)

	respond(t, transport, publisher, func(env models.Envelope) (interface{}, error) {
		return models.TestListResponse{
			Tests: []models.TestSummary{{TestID: "test-d70", Name: "D-70"}},
		}, nil
	})

	raw, err := client.Request(context.Background(), models.TestListRequest{}, time.Second)
	require.NoError(t, err)

	var resp models.TestListResponse
	require.NoError(t, json.Unmarshal(raw, &resp))
	require.Len(t, resp.Tests, 1)
	assert.Equal(t, "test-d70", resp.Tests[0].TestID)

	assert.Zero(t, client.PendingCount())
}

func TestRequestResponderError(t *testing.T) {
	transport, publisher, client := newCorrelationFixture(t)

	respond(t, transport, publisher, func(env models.Envelope) (interface{}, error) {
		return nil, errors.New("catalog database down")
	})

	_, err := client.Request(context.Background(), models.TestListRequest{}, time.Second)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "catalog database down")
	assert.Zero(t, client.PendingCount())
}

func TestRequestTimesOutWithoutResponder(t *testing.T) {
	_, _, client := newCorrelationFixture(t)

	_, err := client.Request(context.Background(), models.TestListRequest{}, 20*time.Millisecond)
	assert.ErrorIs(t, err, ErrRequestTimeout)
	assert.Zero(t, client.PendingCount())
}

func TestRequestHonorsContextCancellation(t *testing.T) {
	_, _, client := newCorrelationFixture(t)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := client.Request(ctx, models.TestListRequest{}, time.Second)
	assert.ErrorIs(t, err, context.Canceled)
	assert.Zero(t, client.PendingCount())
}

func TestLateResponseIsDiscarded(t *testing.T) {
	_, _, client := newCorrelationFixture(t)

	// A response for a waiter that already timed out must be dropped
	// without error so the consumer acks it.
	resp, err := models.NewResponse(EventTestListResponse, "gone-correlation-id", models.TestListResponse{}, nil)
	require.NoError(t, err)
	body, err := json.Marshal(resp)
	require.NoError(t, err)

	assert.NoError(t, client.HandleResponse(context.Background(), body))
	assert.Zero(t, client.PendingCount())
}

func TestMalformedResponseIsDiscarded(t *testing.T) {
	_, _, client := newCorrelationFixture(t)

	assert.NoError(t, client.HandleResponse(context.Background(), []byte("not json")))
}

func TestResponseWithoutCorrelationIDIsDiscarded(t *testing.T) {
	_, _, client := newCorrelationFixture(t)

	resp, err := models.NewResponse(EventTestListResponse, "", models.TestListResponse{}, nil)
	require.NoError(t, err)
	body, err := json.Marshal(resp)
	require.NoError(t, err)

	assert.NoError(t, client.HandleResponse(context.Background(), body))
}

func TestDuplicateCorrelationRegistration(t *testing.T) {
	_, _, client := newCorrelationFixture(t)

	waiter := make(chan models.Envelope, 1)
	require.NoError(t, client.register("corr-1", waiter))
	assert.ErrorIs(t, client.register("corr-1", waiter), ErrDuplicateCorrelation)

	client.unregister("corr-1")
	assert.Zero(t, client.PendingCount())
}

func TestConcurrentRequestsPairByCorrelationID(t *testing.T) {
	transport, publisher, client := newCorrelationFixture(t)

	// Every response is unique to its request, so a mispaired delivery
	// would surface as a decode mismatch or a stuck waiter.
	respond(t, transport, publisher, func(env models.Envelope) (interface{}, error) {
		return models.TestListResponse{
			Tests: []models.TestSummary{{TestID: env.CorrelationID}},
		}, nil
	})

	const requests = 16

	results := make(chan error, requests)
	for i := 0; i < requests; i++ {
		go func() {
			raw, err := client.Request(context.Background(), models.TestListRequest{}, time.Second)
			if err != nil {
				results <- err
				return
			}

			var resp models.TestListResponse
			if err := json.Unmarshal(raw, &resp); err != nil {
				results <- err
				return
			}
			if len(resp.Tests) != 1 {
				results <- errors.New("unexpected test count")
				return
			}
			results <- nil
		}()
	}

	for i := 0; i < requests; i++ {
		assert.NoError(t, <-results)
	}
	assert.Zero(t, client.PendingCount())
}
