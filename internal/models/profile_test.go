package models

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestEnumLabels(t *testing.T) {
	assert.Equal(t, "Retirement Planning", GoalRetirementPlanning.Label())
	assert.Equal(t, "$55,001 - $89,000", Income55To89k.Label())
	assert.Equal(t, "$150,001+", Income150kOrMore.Label())
	assert.Equal(t, "Moderate", RiskModerate.Label())
	assert.Equal(t, "Yes", DependentsYes.Label())
	assert.Equal(t, "12 months", Savings12Months.Label())
	assert.Equal(t, "Not specified", RiskTolerance("").Label())
	assert.Len(t, FinancialGoals(), 8)
}

func TestAge(t *testing.T) {
	dob := time.Date(1990, time.June, 15, 0, 0, 0, 0, time.UTC)
	p := &UserProfile{DateOfBirth: &dob}

	assert.Equal(t, 34, p.Age(time.Date(2025, time.June, 14, 12, 0, 0, 0, time.UTC)))
	assert.Equal(t, 35, p.Age(time.Date(2025, time.June, 15, 0, 0, 0, 0, time.UTC)))
	assert.Equal(t, -1, (&UserProfile{}).Age(time.Now()))
}

func TestProfileUpdate(t *testing.T) {
	city := "Austin"
	risk := RiskAggressive
	p := &UserProfile{City: "Boston", State: "MA", IncomeLevel: Income89To150k}

	u := ProfileUpdate{City: &city, RiskTolerance: &risk}
	assert.NoError(t, u.Validate())
	u.Apply(p)

	assert.Equal(t, "Austin", p.City)
	assert.Equal(t, "MA", p.State)
	assert.Equal(t, RiskAggressive, p.RiskTolerance)
	assert.Equal(t, Income89To150k, p.IncomeLevel)

	bad := IncomeLevel("1_million")
	assert.Error(t, ProfileUpdate{IncomeLevel: &bad}.Validate())
}
