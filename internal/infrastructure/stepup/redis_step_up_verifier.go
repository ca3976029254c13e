// File: backend/services/impersonation-service/internal/infrastructure/stepup/redis_step_up_verifier.go
package stepup

import (
	"context"
	"fmt"
	"time"

	"github.com/go-redis/redis/v8"

	"github.com/solstice-labs/crm_platform/backend/services/impersonation-service/internal/domain/interfaces"
)

const keyPrefix = "stepup:"

// redisStepUpVerifier reads step-up verification marks from redis. The general
// auth flow writes "stepup:{adminId}" with the verification timestamp after a
// successful MFA re-prompt; this subsystem only checks the mark is recent
// enough.
type redisStepUpVerifier struct {
	client *redis.Client
	window time.Duration
}

// NewRedisStepUpVerifier creates a StepUpVerifier over the given redis client.
// window is the maximum age of an acceptable verification.
func NewRedisStepUpVerifier(client *redis.Client, window time.Duration) interfaces.StepUpVerifier {
	return &redisStepUpVerifier{client: client, window: window}
}

func (v *redisStepUpVerifier) IsVerified(ctx context.Context, adminID string) (bool, error) {
	raw, err := v.client.Get(ctx, keyPrefix+adminID).Result()
	if err != nil {
		if err == redis.Nil {
			return false, nil
		}
		return false, fmt.Errorf("failed to read step-up mark: %w", err)
	}

	verifiedAt, err := time.Parse(time.RFC3339, raw)
	if err != nil {
		// An unparseable mark is treated as absent rather than trusted.
		return false, nil
	}

	return time.Since(verifiedAt) <= v.window, nil
}

var _ interfaces.StepUpVerifier = (*redisStepUpVerifier)(nil)
