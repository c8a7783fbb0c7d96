package search

import "fmt"

// Strategy is the closed set of retrieval algorithms.
type Strategy int

const (
	// StrategySemantic ranks purely by vector similarity to the query.
	StrategySemantic Strategy = iota
	// StrategyDeterministic ranks purely by relational constraints and
	// never touches the embedding provider or vector index.
	StrategyDeterministic
	// StrategyHybrid applies hard constraints as filters and the mood
	// query as a similarity rank.
	StrategyHybrid
)

// String returns the wire name of the strategy.
func (s Strategy) String() string {
	switch s {
	case StrategySemantic:
		return "semantic"
	case StrategyDeterministic:
		return "deterministic"
	case StrategyHybrid:
		return "hybrid"
	}
	return fmt.Sprintf("strategy(%d)", int(s))
}

// ParseStrategy maps a classifier strategy name to a Strategy.
func ParseStrategy(name string) (Strategy, error) {
	switch name {
	case "semantic":
		return StrategySemantic, nil
	case "deterministic":
		return StrategyDeterministic, nil
	case "hybrid":
		return StrategyHybrid, nil
	}
	return 0, fmt.Errorf("unknown strategy %q", name)
}
