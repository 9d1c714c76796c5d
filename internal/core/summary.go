package core

// Summary aggregates the whole ledger.
type Summary struct {
	Income  Amount `json:"income"`
	Expense Amount `json:"expense"`
	Balance Amount `json:"balance"`
}

// Summarize totals income and expense amounts. Empty inputs sum to zero.
func Summarize(income, expense []Amount) Summary {
	in, out := Zero, Zero
	for _, a := range income {
		in = in.Add(a)
	}
	for _, a := range expense {
		out = out.Add(a)
	}
	return Summary{Income: in, Expense: out, Balance: in.Sub(out)}
}
