package query

// Collection names served from the finance-records database. An external
// aggregation process populates these; this service only reads them.
const (
	ContributionsCollection = "contributions"
	LoansCollection         = "loans"
	ExpendituresCollection  = "expenditures"
)

// DefaultWhitelist returns the field whitelist for the TRACER collections.
// Range parameters (min/max amount and date) share a DBField so that both
// bounds merge into a single constraint.
func DefaultWhitelist() Whitelist {
	return Whitelist{
		ContributionsCollection: {
			"committeeID":      {DBField: "committeeID"},
			"firstName":        {DBField: "firstName"},
			"lastName":         {DBField: "lastName"},
			"contributionType": {DBField: "contributionType"},
			"minAmount":        {DBField: "amount", QueryOp: "$gte"},
			"maxAmount":        {DBField: "amount", QueryOp: "$lte"},
			"minDate":          {DBField: "recordDate", QueryOp: "$gte"},
			"maxDate":          {DBField: "recordDate", QueryOp: "$lte"},
		},
		LoansCollection: {
			"committeeID": {DBField: "committeeID"},
			"lastName":    {DBField: "lastName"},
			"loanSource":  {DBField: "loanSource"},
			"minAmount":   {DBField: "amount", QueryOp: "$gte"},
			"maxAmount":   {DBField: "amount", QueryOp: "$lte"},
			"minDate":     {DBField: "recordDate", QueryOp: "$gte"},
			"maxDate":     {DBField: "recordDate", QueryOp: "$lte"},
		},
		ExpendituresCollection: {
			"committeeID":     {DBField: "committeeID"},
			"lastName":        {DBField: "lastName"},
			"expenditureType": {DBField: "expenditureType"},
			"minAmount":       {DBField: "amount", QueryOp: "$gte"},
			"maxAmount":       {DBField: "amount", QueryOp: "$lte"},
			"minDate":         {DBField: "recordDate", QueryOp: "$gte"},
			"maxDate":         {DBField: "recordDate", QueryOp: "$lte"},
		},
	}
}

// DefaultDateFields lists the document fields rewritten to ISO-8601 when
// records are returned. Legacy imports left some of these malformed, which
// is why the record service drops unparseable values instead of failing.
func DefaultDateFields() []string {
	return []string{"recordDate", "filedDate"}
}
