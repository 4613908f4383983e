package auth_test

import (
	"context"
	"testing"
	"time"

	"github.com/skfsd/go-auth"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
)

func TestLoggingActivitySink(t *testing.T) {
	logger := new(MockLogger)
	logger.On("Info", "activity", mock.MatchedBy(func(args []any) bool {
		return len(args) == 8 &&
			args[0] == "event" && args[1] == "user.deleted" &&
			args[3] == "u-1" && args[5] == "a-1" &&
			args[6] == "reason" && args[7] == "cleanup"
	})).Once()

	sink := auth.LoggingActivitySink(logger)
	err := sink.Record(context.Background(), auth.ActivityEvent{
		EventType:  auth.ActivityEventUserDeleted,
		UserID:     "u-1",
		ActorID:    "a-1",
		Metadata:   map[string]any{"reason": "cleanup"},
		OccurredAt: time.Now(),
	})

	assert.NoError(t, err)
	logger.AssertExpectations(t)
}

func TestActivitySinkFuncNil(t *testing.T) {
	var fn auth.ActivitySinkFunc
	assert.NoError(t, fn.Record(context.Background(), auth.ActivityEvent{}))
}
