package models

import (
	"fmt"
	"time"
)

type FinancialGoal string

const (
	GoalBudgeting            FinancialGoal = "budgeting"
	GoalDebtManagement       FinancialGoal = "debt_management"
	GoalInsurancePlanning    FinancialGoal = "insurance_planning"
	GoalInvestmentManagement FinancialGoal = "investment_management"
	GoalRetirementPlanning   FinancialGoal = "retirement_planning"
	GoalTaxPlanning          FinancialGoal = "tax_planning"
	GoalEstatePlanning       FinancialGoal = "estate_planning"
	GoalWealthManagement     FinancialGoal = "wealth_management"
)

var financialGoalLabels = map[FinancialGoal]string{
	GoalBudgeting:            "Budgeting",
	GoalDebtManagement:       "Debt Management",
	GoalInsurancePlanning:    "Insurance Planning",
	GoalInvestmentManagement: "Investment Management",
	GoalRetirementPlanning:   "Retirement Planning",
	GoalTaxPlanning:          "Tax Planning",
	GoalEstatePlanning:       "Estate Planning",
	GoalWealthManagement:     "Wealth Management",
}

func (g FinancialGoal) Label() string { return label(financialGoalLabels, g) }
func (g FinancialGoal) Valid() bool { _, ok := financialGoalLabels[g]; return ok }
func FinancialGoals() []FinancialGoal {
	return []FinancialGoal{
		GoalBudgeting, GoalDebtManagement, GoalInsurancePlanning, GoalInvestmentManagement,
		GoalRetirementPlanning, GoalTaxPlanning, GoalEstatePlanning, GoalWealthManagement,
	}
}

type RiskTolerance string

const (
	RiskAggressive   RiskTolerance = "aggressive"
	RiskModerate     RiskTolerance = "moderate"
	RiskConservative RiskTolerance = "conservative"
)

var riskToleranceLabels = map[RiskTolerance]string{
	RiskAggressive:   "Aggressive",
	RiskModerate:     "Moderate",
	RiskConservative: "Conservative",
}

func (r RiskTolerance) Label() string { return label(riskToleranceLabels, r) }
func (r RiskTolerance) Valid() bool { _, ok := riskToleranceLabels[r]; return ok }
func RiskTolerances() []RiskTolerance {
	return []RiskTolerance{RiskAggressive, RiskModerate, RiskConservative}
}

type IncomeLevel string

const (
	Income55To89k    IncomeLevel = "55001_89000"
	Income89To150k   IncomeLevel = "89001_150000"
	Income150kOrMore IncomeLevel = "150001_plus"
)

var incomeLevelLabels = map[IncomeLevel]string{
	Income55To89k:    "$55,001 - $89,000",
	Income89To150k:   "$89,001 - $150,000",
	Income150kOrMore: "$150,001+",
}

func (i IncomeLevel) Label() string { return label(incomeLevelLabels, i) }
func (i IncomeLevel) Valid() bool { _, ok := incomeLevelLabels[i]; return ok }
func IncomeLevels() []IncomeLevel {
	return []IncomeLevel{Income55To89k, Income89To150k, Income150kOrMore}
}

type Dependents string

const (
	DependentsYes Dependents = "yes"
	DependentsNo  Dependents = "no"
)

var dependentsLabels = map[Dependents]string{
	DependentsYes: "Yes",
	DependentsNo:  "No",
}

func (d Dependents) Label() string { return label(dependentsLabels, d) }
func (d Dependents) Valid() bool { _, ok := dependentsLabels[d]; return ok }

type SavingsMonths string

const (
	Savings3Months  SavingsMonths = "3_months"
	Savings6Months  SavingsMonths = "6_months"
	Savings9Months  SavingsMonths = "9_months"
	Savings12Months SavingsMonths = "12_months"
)

var savingsMonthsLabels = map[SavingsMonths]string{
	Savings3Months:  "3 months",
	Savings6Months:  "6 months",
	Savings9Months:  "9 months",
	Savings12Months: "12 months",
}

func (s SavingsMonths) Label() string { return label(savingsMonthsLabels, s) }
func (s SavingsMonths) Valid() bool { _, ok := savingsMonthsLabels[s]; return ok }
func SavingsBuckets() []SavingsMonths {
	return []SavingsMonths{Savings3Months, Savings6Months, Savings9Months, Savings12Months}
}

// UserProfile is the one-to-one financial profile of an account. Optional
// enum fields are empty strings when the user has not filled them in.
type UserProfile struct {
	AccountID     int64         `json:"-"`
	DateOfBirth   *time.Time    `json:"date_of_birth,omitempty"`
	City          string        `json:"city"`
	State         string        `json:"state"`
	FinancialGoal FinancialGoal `json:"financial_goal"`
	RiskTolerance RiskTolerance `json:"risk_tolerance"`
	IncomeLevel   IncomeLevel   `json:"income_level"`
	Dependents    Dependents    `json:"dependents"`
	SavingsMonths SavingsMonths `json:"savings_months"`
	UpdatedAt     time.Time     `json:"updated_at"`
}

// Age returns the whole years between the date of birth and now, or -1 when
// no date of birth is recorded.
func (p *UserProfile) Age(now time.Time) int {
	if p == nil || p.DateOfBirth == nil {
		return -1
	}
	dob := *p.DateOfBirth
	age := now.Year() - dob.Year()
	if now.Month() < dob.Month() || (now.Month() == dob.Month() && now.Day() < dob.Day()) {
		age--
	}
	return age
}

// ProfileUpdate carries the fields a user may change. Nil fields are left as is.
type ProfileUpdate struct {
	City          *string        `json:"city,omitempty"`
	State         *string        `json:"state,omitempty"`
	FinancialGoal *FinancialGoal `json:"financial_goal,omitempty"`
	RiskTolerance *RiskTolerance `json:"risk_tolerance,omitempty"`
	IncomeLevel   *IncomeLevel   `json:"income_level,omitempty"`
	Dependents    *Dependents    `json:"dependents,omitempty"`
	SavingsMonths *SavingsMonths `json:"savings_months,omitempty"`
}

// Validate rejects codes outside the closed enum sets.
func (u ProfileUpdate) Validate() error {
	if u.FinancialGoal != nil && !u.FinancialGoal.Valid() {
		return fmt.Errorf("invalid financial goal %q", *u.FinancialGoal)
	}
	if u.RiskTolerance != nil && !u.RiskTolerance.Valid() {
		return fmt.Errorf("invalid risk tolerance %q", *u.RiskTolerance)
	}
	if u.IncomeLevel != nil && !u.IncomeLevel.Valid() {
		return fmt.Errorf("invalid income level %q", *u.IncomeLevel)
	}
	if u.Dependents != nil && !u.Dependents.Valid() {
		return fmt.Errorf("invalid dependents value %q", *u.Dependents)
	}
	if u.SavingsMonths != nil && !u.SavingsMonths.Valid() {
		return fmt.Errorf("invalid savings months %q", *u.SavingsMonths)
	}
	return nil
}

// Apply copies the non-nil fields onto p.
func (u ProfileUpdate) Apply(p *UserProfile) {
	if u.City != nil {
		p.City = *u.City
	}
	if u.State != nil {
		p.State = *u.State
	}
	if u.FinancialGoal != nil {
		p.FinancialGoal = *u.FinancialGoal
	}
	if u.RiskTolerance != nil {
		p.RiskTolerance = *u.RiskTolerance
	}
	if u.IncomeLevel != nil {
		p.IncomeLevel = *u.IncomeLevel
	}
	if u.Dependents != nil {
		p.Dependents = *u.Dependents
	}
	if u.SavingsMonths != nil {
		p.SavingsMonths = *u.SavingsMonths
	}
}

func label[K ~string](labels map[K]string, k K) string {
	if l, ok := labels[k]; ok {
		return l
	}
	return "Not specified"
}
