package entitlement

import (
	"time"

	"github.com/KizitoNaanma/MS-VAS-sub001/app/models"
	"github.com/KizitoNaanma/MS-VAS-sub001/internal/pkg/usercontext"
)

// DecisionKind tags the outcome of an entitlement check. Callers inspect it
// explicitly; there is no error-typed control flow.
type DecisionKind int

const (
	Allowed DecisionKind = iota
	DeniedUnauthenticated
	DeniedNoSubscription
	DeniedExhausted
	Bypassed
)

// Decision is the result of checking a caller against their subscription
// state.
type Decision struct {
	Kind         DecisionKind
	Subscription *models.Subscription
}

// Guard checks and consumes per-subscription access entitlement.
type Guard struct {
	Repo Repository
}

// NewGuard wires the guard with its repository.
func NewGuard(repo Repository) *Guard {
	return &Guard{Repo: repo}
}

// Check resolves the caller's entitlement without consuming it. Privileged
// roles bypass the subscription lookup entirely. Missing and exhausted
// subscriptions are distinct outcomes; they surface as different messages.
func (g *Guard) Check(uc usercontext.UserContext) (Decision, error) {
	if uc.IsPrivileged() {
		return Decision{Kind: Bypassed}, nil
	}
	if !uc.IsLoggedIn || uc.PhoneNumber == "" {
		return Decision{Kind: DeniedUnauthenticated}, nil
	}

	sub, err := g.Repo.FindCurrentSubscription(uc.PhoneNumber, time.Now())
	if err != nil {
		return Decision{}, err
	}
	if sub == nil {
		return Decision{Kind: DeniedNoSubscription}, nil
	}
	if sub.AccessCount >= sub.MaxAccess {
		return Decision{Kind: DeniedExhausted, Subscription: sub}, nil
	}
	return Decision{Kind: Allowed, Subscription: sub}, nil
}

// Consume charges one access against the subscription after the protected
// content was delivered. The increment is an atomic, ceiling-bounded update
// at the storage layer: reaching the ceiling flips the row to EXHAUSTED in
// the same statement, and a concurrent request that loses the race consumes
// nothing.
func (g *Guard) Consume(sub *models.Subscription) (bool, error) {
	return g.Repo.ConsumeAccess(sub.ID)
}
