package usecase

// State is a stage of the run state machine.
type State int32

const (
	StateIdle State = iota
	StateCatalogScan
	StateSubscriptionScan
	StateAggregating
	StateDispatching
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateCatalogScan:
		return "catalog_scan"
	case StateSubscriptionScan:
		return "subscription_scan"
	case StateAggregating:
		return "aggregating"
	case StateDispatching:
		return "dispatching"
	default:
		return "unknown"
	}
}
