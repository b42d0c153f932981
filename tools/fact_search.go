package tools

import (
	"context"
	"encoding/json"
	"errors"
	"time"
)

// FactSearchInput is the search_fact_database argument set.
type FactSearchInput struct {
	Claim string `json:"claim" jsonschema_description:"A single claim to look up in previously completed analyses."`
}

// RelatedAnalysis is a prior analysis matching the claim.
type RelatedAnalysis struct {
	ID          string    `json:"id"`
	Verdict     string    `json:"verdict"`
	Explanation string    `json:"explanation"`
	CreatedAt   time.Time `json:"createdAt"`
}

// FactSearch is the search_fact_database result.
type FactSearch struct {
	RelatedAnalyses []RelatedAnalysis `json:"relatedAnalyses"`
	Found           bool              `json:"found"`
	MatchCount      int               `json:"matchCount"`
}

// ErrNoHistory is returned by history tools when no store is configured.
var ErrNoHistory = errors.New("history store unavailable")

const (
	factSearchKeywords = 3
	factSearchPerQuery = 3
	factSearchMax      = 3
)

// FactSearchDefinition binds search_fact_database to h.
func FactSearchDefinition(h HistoryQuerier) Definition {
	return Definition{
		Name:        "search_fact_database",
		Description: "Search previously completed analyses whose explanations mention keywords from a claim.",
		InputSchema: GenerateSchema[FactSearchInput](),
		Function: func(ctx context.Context, input json.RawMessage) (any, error) {
			in, err := decode[FactSearchInput](input)
			if err != nil {
				return nil, err
			}
			if err := requireString("claim", in.Claim); err != nil {
				return nil, err
			}
			return SearchFactDatabase(ctx, h, in.Claim)
		},
	}
}

// SearchFactDatabase queries explanations for the first three claim keywords.
// A failed keyword query is skipped; an error is returned only when every
// query failed.
func SearchFactDatabase(ctx context.Context, h HistoryQuerier, claim string) (FactSearch, error) {
	res := FactSearch{RelatedAnalyses: []RelatedAnalysis{}}
	kws := keywords(claim, 4)
	if len(kws) == 0 {
		return res, nil
	}
	if h == nil {
		return res, ErrNoHistory
	}
	if len(kws) > factSearchKeywords {
		kws = kws[:factSearchKeywords]
	}

	seen := make(map[string]struct{})
	var errs []error
	for _, kw := range kws {
		recs, err := h.FindByKeyword(ctx, FieldExplanation, kw, factSearchPerQuery)
		if err != nil {
			errs = append(errs, err)
			continue
		}
		for _, r := range recs {
			if _, dup := seen[r.AnalysisID]; dup {
				continue
			}
			seen[r.AnalysisID] = struct{}{}
			res.RelatedAnalyses = append(res.RelatedAnalyses, RelatedAnalysis{
				ID:          r.AnalysisID,
				Verdict:     string(r.Verdict),
				Explanation: r.Explanation,
				CreatedAt:   r.CreatedAt,
			})
		}
	}
	if len(errs) == len(kws) {
		return res, errors.Join(errs...)
	}
	if len(res.RelatedAnalyses) > factSearchMax {
		res.RelatedAnalyses = res.RelatedAnalyses[:factSearchMax]
	}
	res.MatchCount = len(res.RelatedAnalyses)
	res.Found = res.MatchCount > 0
	return res, nil
}
