package broker

import (
	"testing"

	"github.com/rs/zerolog"

	"github.com/MeDjb10/recruitment-platform-backend/internal/models"
)

func testLogger() zerolog.Logger {
	return zerolog.Nop()
}

func envelope(t *testing.T, event string, payload interface{}) models.Envelope {
	t.Helper()

	env, err := models.NewEvent(event, payload)
	if err != nil {
		t.Fatalf("failed to build envelope: %v", err)
	}
	return env
}
