// File: backend/services/impersonation-service/internal/domain/interfaces/stepup_verifier.go
package interfaces

import "context"

// StepUpVerifier checks whether a principal completed a recent step-up
// verification. The verification itself (MFA re-prompt) is performed by the
// general auth flow; this subsystem only consults the resulting mark before
// allowing an impersonation session to start.
type StepUpVerifier interface {
	// IsVerified reports whether adminID holds a step-up mark that is still
	// inside the allowed window.
	IsVerified(ctx context.Context, adminID string) (bool, error)
}
