package watchdog

import (
	"context"

	"github.com/rs/zerolog"
)

// Orchestrator drains the shared event channel, evaluates each event against the rule engine,
// and for every triggered result records it in AppState and forwards it to the dispatcher.
// Events are processed one at a time — this is a deliberate choice to keep rule-hit recording
// and alert-history ordering coherent with delivery order.
type Orchestrator struct {
	log        zerolog.Logger
	state      *AppState
	rules      *RuleEngine
	dispatcher *AlertDispatcher
}

// NewOrchestrator builds an Orchestrator over the given state, rule engine and dispatcher.
func NewOrchestrator(log zerolog.Logger, state *AppState, rules *RuleEngine, dispatcher *AlertDispatcher) *Orchestrator {
	return &Orchestrator{
		log:        log.With().Str("component", "orchestrator").Logger(),
		state:      state,
		rules:      rules,
		dispatcher: dispatcher,
	}
}

// Run drains events until the channel is closed or ctx is canceled.
func (o *Orchestrator) Run(ctx context.Context, events <-chan NormalizedEvent) error {
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case e, ok := <-events:
			if !ok {
				return nil
			}
			o.handle(ctx, e)
		}
	}
}

func (o *Orchestrator) handle(ctx context.Context, e NormalizedEvent) {
	for _, result := range o.rules.Process(e) {
		o.log.Debug().
			Str("rule", result.RuleName).
			Str("chain", e.ChainName).
			Str("severity", result.Severity.String()).
			Msg("rule triggered")

		o.state.RecordRuleHit(result.RuleName)
		o.state.AddAlert(result.Severity, e.ChainName, result.Message)
		o.dispatcher.SendAlert(ctx, result.Severity, e.ChainName, result.Message)
	}
}
