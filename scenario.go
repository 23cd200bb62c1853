package roundtrip

// Outcome is how a configuration behaved on the reference setup.
type Outcome string

// Observed outcomes.
const (
	OutcomeWorks        Outcome = "works"
	OutcomeFails        Outcome = "fails"
	OutcomeInconsistent Outcome = "inconsistent"
)

// Scenario is one (iterations, entries) pair together with how it behaved
// in debug and release builds of the reference setup when relying on
// submission order alone.
type Scenario struct {
	Iterations int
	Entries    int
	Debug      Outcome
	Release    Outcome
}

// Config returns DefaultConfig adjusted to the scenario.
func (s Scenario) Config() Config {
	cfg := DefaultConfig()
	cfg.Iterations = s.Iterations
	cfg.Entries = s.Entries
	return cfg
}

// Scenarios returns the documented threshold pairs. They depend on the
// driver and machine and only illustrate where failures began.
func Scenarios() []Scenario {
	return []Scenario{
		{Iterations: 10, Entries: 200_000, Debug: OutcomeWorks, Release: OutcomeWorks},
		{Iterations: 100, Entries: 200_000, Debug: OutcomeWorks, Release: OutcomeFails},
		{Iterations: 1000, Entries: 200_000, Debug: OutcomeInconsistent, Release: OutcomeFails},
		{Iterations: 10, Entries: 1_000_000, Debug: OutcomeWorks, Release: OutcomeWorks},
		{Iterations: 75, Entries: 1_000_000, Debug: OutcomeWorks, Release: OutcomeFails},
		{Iterations: 100, Entries: 1_000_000, Debug: OutcomeFails, Release: OutcomeFails},
	}
}
