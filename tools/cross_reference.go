package tools

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"sort"
)

// CrossReferenceInput is the cross_reference_sources argument set.
type CrossReferenceInput struct {
	Headline string `json:"headline" jsonschema_description:"Headline or lead sentence to compare with previously analysed articles."`
}

// Source is a previously analysed article.
type Source struct {
	Title   string `json:"title"`
	Verdict string `json:"verdict"`
	URL     string `json:"url,omitempty"`
}

// CrossReference is the cross_reference_sources result.
type CrossReference struct {
	Corroborated   bool     `json:"corroborated"`
	Sources        []Source `json:"sources"`
	Contradictions []string `json:"contradictions"`
	Confidence     int      `json:"confidence"`
}

const (
	crossRefPerQuery = 5
	crossRefSources  = 5
)

// CrossReferenceDefinition binds cross_reference_sources to h.
func CrossReferenceDefinition(h HistoryQuerier) Definition {
	return Definition{
		Name:        "cross_reference_sources",
		Description: "Find previously analysed articles about the same topic and report whether their verdicts agree.",
		InputSchema: GenerateSchema[CrossReferenceInput](),
		Function: func(ctx context.Context, input json.RawMessage) (any, error) {
			in, err := decode[CrossReferenceInput](input)
			if err != nil {
				return nil, err
			}
			if err := requireString("headline", in.Headline); err != nil {
				return nil, err
			}
			return CrossReferenceSources(ctx, h, in.Headline)
		},
	}
}

// CrossReferenceSources tallies verdicts over the first five distinct
// articles matching headline keywords. The tally counts each article once,
// so Confidence never exceeds 100.
func CrossReferenceSources(ctx context.Context, h HistoryQuerier, headline string) (CrossReference, error) {
	res := CrossReference{Sources: []Source{}, Contradictions: []string{}}
	kws := keywords(headline, 4)
	if len(kws) == 0 {
		return res, nil
	}
	if h == nil {
		return res, ErrNoHistory
	}

	seen := make(map[string]struct{})
	var errs []error
	for _, kw := range kws {
		recs, err := h.FindByKeyword(ctx, FieldTitleOrText, kw, crossRefPerQuery)
		if err != nil {
			errs = append(errs, err)
			continue
		}
		for _, r := range recs {
			key := r.ArticleID
			if key == "" {
				key = "title:" + r.Title
			}
			if _, dup := seen[key]; dup {
				continue
			}
			seen[key] = struct{}{}
			title := r.Title
			if title == "" {
				title = "Untitled"
			}
			res.Sources = append(res.Sources, Source{Title: title, Verdict: string(r.Verdict), URL: r.URL})
		}
	}
	if len(errs) == len(kws) {
		return res, errors.Join(errs...)
	}
	if len(res.Sources) > crossRefSources {
		res.Sources = res.Sources[:crossRefSources]
	}
	total := len(res.Sources)
	if total == 0 {
		return res, nil
	}

	type tally struct {
		verdict string
		count   int
	}
	var tallies []tally
	index := make(map[string]int)
	for _, s := range res.Sources {
		i, ok := index[s.Verdict]
		if !ok {
			i = len(tallies)
			index[s.Verdict] = i
			tallies = append(tallies, tally{verdict: s.Verdict})
		}
		tallies[i].count++
	}
	sort.SliceStable(tallies, func(i, j int) bool { return tallies[i].count > tallies[j].count })

	top := tallies[0]
	res.Corroborated = float64(top.count) > float64(total)/2
	res.Confidence = int(math.Floor(float64(top.count)/float64(total)*100 + 0.5))
	for _, t := range tallies[1:] {
		res.Contradictions = append(res.Contradictions, fmt.Sprintf("%d source(s) say %s", t.count, t.verdict))
	}
	return res, nil
}
