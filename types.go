package defclean

// Status classifies a probed symbol.
type Status string

const (
	StatusActive     Status = "active"
	StatusDeprecated Status = "deprecated"
)

// StatusForCount is the default classification: any textual reference keeps
// a symbol active.
func StatusForCount(count int) Status {
	if count > 0 {
		return StatusActive
	}
	return StatusDeprecated
}

// SymbolMatch is one CONFIG_ occurrence found on a defconfig line.
type SymbolMatch struct {
	Line string // raw line the symbol was found on
	Name string // identifier without the CONFIG_ prefix
}

// UsageResult is the outcome of probing one symbol occurrence.
type UsageResult struct {
	Ordinal int    // 0-based position among all occurrences in the defconfig
	LineNo  int    // 1-based defconfig line number
	Symbol  string
	Count   int
	Status  Status
}

// Report is the result of analyzing one defconfig. Active and Deprecated are
// independent slices; appending to one never affects the other.
type Report struct {
	Defconfig  string
	SourceRoot string
	Results    []UsageResult
	Active     []string
	Deprecated []string
}

func (r *Report) add(res UsageResult) {
	r.Results = append(r.Results, res)
	switch res.Status {
	case StatusActive:
		r.Active = append(r.Active, res.Symbol)
	default:
		r.Deprecated = append(r.Deprecated, res.Symbol)
	}
}
