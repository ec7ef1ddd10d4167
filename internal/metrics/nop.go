package metrics

import (
	"CatalogNotifier/internal/domain"
	"CatalogNotifier/internal/ports"
)

// Nop discards every observation.
type Nop struct{}

var _ ports.Metrics = Nop{}

func (Nop) RunFinished(domain.RunReport)           {}
func (Nop) DispatchFinished(domain.DispatchOutcome) {}
func (Nop) MatchedPairs(int)                        {}
func (Nop) MalformedSubscription()                  {}
