package registry

import "github.com/rafaeljc/verdandi/internal/engine"

// DefaultFlags returns the bootstrap flag definitions loaded at process
// start when no backing store is configured. They double as a living example
// of the condition and variant shapes.
func DefaultFlags() []engine.Flag {
	return []engine.Flag{
		{
			Key:               "new-checkout-flow",
			Name:              "New checkout flow",
			Description:       "Reworked single-page checkout, gated to paying tiers.",
			Enabled:           true,
			RolloutPercentage: 25,
			Conditions: []engine.Condition{
				{
					Type:     engine.ConditionSubscription,
					Operator: engine.OpIn,
					Value:    []string{"pro", "enterprise"},
				},
			},
			Environment: engine.EnvProduction,
		},
		{
			Key:               "search-ranking-experiment",
			Name:              "Search ranking A/B test",
			Description:       "Compares the BM25 ranker against the learned ranker.",
			Enabled:           true,
			RolloutPercentage: 100,
			Variants: []engine.Variant{
				{
					Key:        "control",
					Name:       "BM25 ranker",
					Percentage: 50,
					Config:     map[string]any{"ranker": "bm25", "boost_recent": false},
				},
				{
					Key:        "treatment",
					Name:       "Learned ranker",
					Percentage: 50,
					Config:     map[string]any{"ranker": "ltr", "boost_recent": true},
				},
			},
			Environment: engine.EnvProduction,
		},
		{
			Key:               "dark-mode",
			Name:              "Dark mode",
			Description:       "Client theme toggle, fully rolled out.",
			Enabled:           true,
			RolloutPercentage: 100,
			Environment:       engine.EnvProduction,
		},
		{
			Key:               "maintenance-banner",
			Name:              "Maintenance banner",
			Description:       "Emergency banner; kept registered but off.",
			Enabled:           false,
			RolloutPercentage: 100,
			Environment:       engine.EnvProduction,
		},
	}
}

// Seed inserts the given flags, skipping keys that already exist. It is safe
// to call after a syncer hydration.
func (r *Registry) Seed(flags []engine.Flag) error {
	for _, f := range flags {
		if _, ok := r.Lookup(f.Key); ok {
			continue
		}
		if _, err := r.Create(f); err != nil {
			return err
		}
	}
	return nil
}
