package model

// StepStatus is the outcome of one update step for one instrument.
type StepStatus string

const (
	StepUpdated  StepStatus = "UPDATED"
	StepNoChange StepStatus = "NO_CHANGE"
	StepSkipped  StepStatus = "SKIPPED"
	StepFailed   StepStatus = "FAILED"
)

// Symbol is the compact marker used in summary tables.
func (s StepStatus) Symbol() string {
	switch s {
	case StepUpdated:
		return "✓"
	case StepSkipped:
		return "-"
	default:
		return "×"
	}
}

// StatusReport records the independent outcome of the price, HV and VIX steps.
type StatusReport struct {
	Code  string
	Name  string
	Price StepStatus
	HV    StepStatus
	VIX   StepStatus

	NewPrices int
	NewVix    int
	Errors    []string
}

func (r StatusReport) PriceUpdated() bool { return r.Price == StepUpdated }
func (r StatusReport) HVUpdated() bool    { return r.HV == StepUpdated }
func (r StatusReport) VixUpdated() bool   { return r.VIX == StepUpdated }

// Failed reports whether any step failed.
func (r StatusReport) Failed() bool {
	return r.Price == StepFailed || r.HV == StepFailed || r.VIX == StepFailed
}
