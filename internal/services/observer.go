package services

// Observer receives domain outcomes that are otherwise invisible to the
// caller, such as a degraded report or a dropped event.
type Observer interface {
	ReportDegraded()
	LedgerWrite(kind string, succeeded bool)
	EventPublished(kind string, succeeded bool)
	AnalyzerOutcome(outcome string)
}

type NopObserver struct{}

func (NopObserver) ReportDegraded() {}

func (NopObserver) LedgerWrite(string, bool) {}

func (NopObserver) EventPublished(string, bool) {}

func (NopObserver) AnalyzerOutcome(string) {}
