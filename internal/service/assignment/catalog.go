package assignment

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/MeDjb10/recruitment-platform-backend/internal/broker"
	"github.com/MeDjb10/recruitment-platform-backend/internal/models"
)

// Catalog resolves eligible tests for a candidate. The production
// implementation goes through the broker's request/response pair.
type Catalog interface {
	ListTests(ctx context.Context, filter models.TestFilter) ([]models.TestSummary, error)
}

type brokerCatalog struct {
	client  *broker.CorrelationClient
	timeout time.Duration
}

func NewBrokerCatalog(client *broker.CorrelationClient, timeout time.Duration) Catalog {
	return &brokerCatalog{
		client:  client,
		timeout: timeout,
	}
}

func (c *brokerCatalog) ListTests(ctx context.Context, filter models.TestFilter) ([]models.TestSummary, error) {
	payload := models.TestListRequest{Filter: filter}

	raw, err := c.client.Request(ctx, payload, c.timeout)
	if err != nil {
		return nil, err
	}

	var resp models.TestListResponse
	if err := json.Unmarshal(raw, &resp); err != nil {
		return nil, fmt.Errorf("failed to decode test list response: %w", err)
	}

	return resp.Tests, nil
}
