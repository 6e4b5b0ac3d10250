package quiz

import (
	"math/rand"

	"DailyBias/internal/model"
)

// Submission maps an item's original index to the user's answer.
// Absent indices count as incorrect.
type Submission map[int]model.Sentiment

// ItemResult is the per-item outcome shown on the results page.
type ItemResult struct {
	Index       int
	Submitted   model.Sentiment
	Answered    bool
	Correct     bool
	Label       model.Sentiment
	SetupPath   string
	OutcomePath string
}

// Result is the scored outcome of one quiz attempt.
type Result struct {
	Score int
	Total int
	Items []ItemResult
}

// Present returns a freshly shuffled copy of the set's items for
// display. The shuffle is per call and never persisted, so each page
// load gets a new order; Index still identifies the original item.
func Present(set *Set, rng *rand.Rand) []Item {
	view := make([]Item, len(set.Items))
	copy(view, set.Items)
	rng.Shuffle(len(view), func(i, j int) {
		view[i], view[j] = view[j], view[i]
	})
	return view
}

// Score compares a submission against the set's stored labels.
// Scoring is stateless and order-independent: answers are matched by
// original item index, so presentation order never changes the score.
func Score(set *Set, sub Submission) *Result {
	res := &Result{Total: len(set.Items)}
	for _, item := range set.Items {
		answer, answered := sub[item.Index]
		correct := answered && answer == item.Label
		if correct {
			res.Score++
		}
		res.Items = append(res.Items, ItemResult{
			Index:       item.Index,
			Submitted:   answer,
			Answered:    answered,
			Correct:     correct,
			Label:       item.Label,
			SetupPath:   item.SetupPath,
			OutcomePath: item.OutcomePath,
		})
	}
	return res
}
