// Package credits implements the user credit ledger: available-balance
// arithmetic and used-credit mutation. Policy (overdraft allow/reject,
// refunds) belongs to callers; this package only refuses negative amounts.
package credits

import (
	"errors"

	"github.com/atrium-workspace/backend/internal/models"
)

var (
	// ErrInvalidAmount is returned for negative credit operations.
	ErrInvalidAmount = errors.New("credit amount must be non-negative")
)

// Available returns the user's available credit balance. The balance is not
// clamped: overdraft shows as a negative number.
func Available(u *models.User) int {
	return u.Credits - u.UsedCredits
}

// Deduct increments the user's used credits by amount, in memory. The caller
// decides whether a resulting negative balance is acceptable before calling.
func Deduct(u *models.User, amount int) error {
	if amount < 0 {
		return ErrInvalidAmount
	}
	u.UsedCredits += amount
	return nil
}

// Refund decrements the user's used credits by amount, in memory, flooring
// used credits at zero so a refund can never manufacture balance beyond the
// monthly allotment.
func Refund(u *models.User, amount int) error {
	if amount < 0 {
		return ErrInvalidAmount
	}
	u.UsedCredits -= amount
	if u.UsedCredits < 0 {
		u.UsedCredits = 0
	}
	return nil
}
