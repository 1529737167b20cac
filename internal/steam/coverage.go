package steam

import "net/url"

// Coverage controls how much of the owned catalog GetOwnedGames returns.
type Coverage struct {
	// Max forces the widest result: played free games and free subs
	// included, unvetted apps not skipped.
	Max               bool `yaml:"max" json:"max"`
	IncludePlayedFree bool `yaml:"include_played_free_games" json:"include_played_free_games"`
	IncludeFreeSub    bool `yaml:"include_free_sub" json:"include_free_sub"`
	SkipUnvetted      bool `yaml:"skip_unvetted_apps" json:"skip_unvetted_apps"`
}

// DefaultCoverage is the widest setting.
func DefaultCoverage() Coverage {
	return Coverage{Max: true, IncludePlayedFree: true, IncludeFreeSub: true}
}

// Effective returns the flags actually sent.
func (c Coverage) Effective() Coverage {
	if c.Max {
		return Coverage{Max: true, IncludePlayedFree: true, IncludeFreeSub: true, SkipUnvetted: false}
	}
	return c
}

func (c Coverage) apply(q url.Values) {
	e := c.Effective()
	q.Set("include_played_free_games", flag01(e.IncludePlayedFree))
	q.Set("include_free_sub", flag01(e.IncludeFreeSub))
	if e.SkipUnvetted {
		q.Set("skip_unvetted_apps", "true")
	} else {
		q.Set("skip_unvetted_apps", "false")
	}
}

func flag01(b bool) string {
	if b {
		return "1"
	}
	return "0"
}
