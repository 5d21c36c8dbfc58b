package models

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
)

func TestSignedAppliesUniformConvention(t *testing.T) {
	amount := decimal.RequireFromString("42.50")

	debit := LedgerEntry{Amount: amount, Direction: DirectionDebit}
	assert.True(t, debit.Signed().Equal(amount))

	credit := LedgerEntry{Amount: amount, Direction: DirectionCredit}
	assert.True(t, credit.Signed().Equal(amount.Neg()))
}

func TestAccountTypeValid(t *testing.T) {
	for _, accountType := range []AccountType{
		AccountTypeAsset, AccountTypeLiability, AccountTypeEquity,
		AccountTypeRevenue, AccountTypeExpense,
	} {
		assert.True(t, accountType.Valid(), "%s", accountType)
	}
	assert.False(t, AccountType("SAVINGS").Valid())
	assert.False(t, AccountType("").Valid())
}

func TestDirectionValid(t *testing.T) {
	assert.True(t, DirectionDebit.Valid())
	assert.True(t, DirectionCredit.Valid())
	assert.False(t, Direction("SIDEWAYS").Valid())
}
