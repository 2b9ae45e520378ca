package catalog

// LoanType 贷款方案
type LoanType struct {
	Key          string `json:"key"`
	Name         string `json:"name"`
	InterestRate string `json:"interest_rate"`
	Eligibility  string `json:"eligibility"`
	Purpose      string `json:"purpose"`
}

var loanTypes = []LoanType{
	{
		Key:          "crop_loan",
		Name:         "Crop Loan",
		InterestRate: "6.5%",
		Eligibility:  "Farmers with land ownership documents",
		Purpose:      "For seasonal agricultural operations",
	},
	{
		Key:          "kisan_credit_card",
		Name:         "Kisan Credit Card (KCC)",
		InterestRate: "7.0%",
		Eligibility:  "All farmers with land records",
		Purpose:      "For cultivation expenses and allied agricultural activities",
	},
	{
		Key:          "dairy_loan",
		Name:         "Dairy Loan",
		InterestRate: "8.5%",
		Eligibility:  "Farmers engaged in dairy farming",
		Purpose:      "For purchase of milch animals and dairy equipment",
	},
	{
		Key:          "farm_mechanization_loan",
		Name:         "Farm Mechanization Loan",
		InterestRate: "9.0%",
		Eligibility:  "Farmers with regular income",
		Purpose:      "For purchase of tractors and farm equipment",
	},
	{
		Key:          "self_help_group_loan",
		Name:         "Self Help Group (SHG) Loan",
		InterestRate: "10.0%",
		Eligibility:  "Members of registered SHGs",
		Purpose:      "For group-based income generation activities",
	},
	{
		Key:          "microfinance_loan",
		Name:         "Microfinance Loan",
		InterestRate: "12.0%",
		Eligibility:  "Low-income individuals",
		Purpose:      "For small business and income generation",
	},
}

// LoanTypes 返回贷款方案列表（副本）
func LoanTypes() []LoanType {
	out := make([]LoanType, len(loanTypes))
	copy(out, loanTypes)
	return out
}
