// Package accounts holds the fixed chart of accounts used by the finance
// contract books and the rules for picking a revenue account from a
// project description.
package accounts

import "strings"

// Account identifies an entry in the chart of accounts.
type Account struct {
	Code string `json:"code"`
	Name string `json:"name"`
}

var (
	Cash                      = Account{Code: "1010", Name: "Checking Account - Operating"}
	NotesReceivable           = Account{Code: "1650", Name: "Notes Receivable - Finance Contracts"}
	AccruedInterestReceivable = Account{Code: "1670", Name: "Accrued Interest Receivable"}
	InterestIncome            = Account{Code: "4110", Name: "Interest Income - Finance Contracts"}
	LateFeeIncome             = Account{Code: "4120", Name: "Late Payment Fees - Finance Contracts"}

	RevenueResidential = Account{Code: "4010", Name: "Roofing Revenue - Residential"}
	RevenueCommercial  = Account{Code: "4020", Name: "Roofing Revenue - Commercial"}
	RevenueRepair      = Account{Code: "4030", Name: "Roof Repair Revenue"}
	RevenueMetal       = Account{Code: "4090", Name: "Metal Roofing Revenue"}
	RevenueShingle     = Account{Code: "4091", Name: "Shingle Roofing Revenue"}
	RevenueTPO         = Account{Code: "4092", Name: "TPO Roofing Revenue"}
	RevenueTile        = Account{Code: "4093", Name: "Tile Roofing Revenue"}
)

// revenueRules maps project-description keywords to revenue accounts.
// First match wins; order matters.
var revenueRules = []struct {
	keyword string
	account Account
}{
	{"metal", RevenueMetal},
	{"shingle", RevenueShingle},
	{"tpo", RevenueTPO},
	{"tile", RevenueTile},
	{"commercial", RevenueCommercial},
	{"repair", RevenueRepair},
}

// ResolveRevenue selects the revenue account for a project by
// case-insensitive substring match on the description. Descriptions with
// no matching keyword fall through to the residential default.
func ResolveRevenue(projectDescription string) Account {
	description := strings.ToLower(projectDescription)
	for _, rule := range revenueRules {
		if strings.Contains(description, rule.keyword) {
			return rule.account
		}
	}
	return RevenueResidential
}
