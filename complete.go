package apegears

import "github.com/posener/complete"

// Completions returns flag predictors for every visible flag form,
// defaulting to PredictNothing so flag names themselves still complete.
// Declared predictors overlay the defaults, hidden forms included.
func (p *Parser) Completions() complete.Flags {
	out := complete.Flags{}
	for _, a := range p.args {
		if a.positional() || a.Hidden {
			continue
		}
		for _, form := range a.Flags {
			out[form] = complete.PredictNothing
		}
	}
	for form, pred := range p.completions {
		out[form] = pred
	}
	return out
}

// argPredictor folds the positional predictors into one alternation. Any
// positional may be the one under the cursor, so all of them apply.
func (p *Parser) argPredictor() complete.Predictor {
	var preds []complete.Predictor
	for _, a := range p.positionals {
		if a.Completion != nil {
			preds = append(preds, a.Completion)
		}
	}
	switch len(preds) {
	case 0:
		return complete.PredictNothing
	case 1:
		return preds[0]
	}
	return complete.PredictOr(preds...)
}

// Autocomplete answers a shell completion request when one is in flight.
// It reports whether it acted; entry points should exit without parsing
// when it did. MustParse calls this automatically.
func (p *Parser) Autocomplete() bool {
	cmd := complete.Command{
		Flags: p.Completions(),
		Args:  p.argPredictor(),
	}
	return complete.New(p.name, cmd).Complete()
}
