package daw

import (
	"context"

	"github.com/cgcardona/maestro/pkg/merrors"
)

// BudgetService is the collaborator-in port gating variation proposals
// on a user's remaining budget. Billing bookkeeping itself lives outside
// this module.
type BudgetService interface {
	// CheckBudget returns merrors.BudgetExhaustedError when userID has
	// insufficient budget to run a proposal.
	CheckBudget(ctx context.Context, userID string) error
}

// UnlimitedBudget is a BudgetService that always succeeds, used when no
// billing integration is wired in.
type UnlimitedBudget struct{}

// CheckBudget always succeeds.
func (UnlimitedBudget) CheckBudget(context.Context, string) error {
	return nil
}

var _ BudgetService = UnlimitedBudget{}
var _ error = merrors.BudgetExhaustedError{}
