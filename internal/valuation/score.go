package valuation

import (
	"fmt"
	"log/slog"
	"sort"

	"carscout/internal/pipeline"
)

// Recommendation labels derived from the error-scaled price difference.
const (
	RecommendGoodDeal     = "good deal"
	RecommendFairPrice    = "fair price"
	RecommendOverpriced   = "overpriced"
	RecommendInsufficient = "insufficient data"
)

// EvaluatedListing is a cleaned row with its model verdict attached.
type EvaluatedListing struct {
	Row *pipeline.Row

	PredictedPrice float64

	// PriceDiffPct is how far the asking price sits from the prediction,
	// in percent. Negative means cheaper than predicted.
	PriceDiffPct float64

	// PriceDiffVsError rescales the difference by the title's historical
	// error spread. Nil when the spread is unknown or zero.
	PriceDiffVsError *float64

	// VFMScore is the negated error-scaled difference: higher is a
	// better deal. Nil whenever PriceDiffVsError is.
	VFMScore *float64

	Recommendation string
}

// Evaluator scores cleaned rows and ranks them.
type Evaluator struct {
	predictor *Predictor
	logger    *slog.Logger
}

// NewEvaluator creates an Evaluator.
func NewEvaluator(predictor *Predictor, logger *slog.Logger) *Evaluator {
	return &Evaluator{
		predictor: predictor,
		logger:    logger.With("component", "evaluator"),
	}
}

// Evaluate predicts and scores every row. A prediction failure is fatal:
// it means the artifacts disagree with the pipeline, not bad listing data.
func (e *Evaluator) Evaluate(rows []*pipeline.Row) ([]*EvaluatedListing, error) {
	out := make([]*EvaluatedListing, 0, len(rows))
	for _, row := range rows {
		pred, err := e.predictor.Predict(row.Features())
		if err != nil {
			return nil, fmt.Errorf("predict %s: %w", row.URL, err)
		}
		out = append(out, Score(row, pred))
	}
	e.logger.Info("listings evaluated", "count", len(out))
	return out, nil
}

// Score derives the verdict for one row from its predicted price.
func Score(row *pipeline.Row, predicted float64) *EvaluatedListing {
	ev := &EvaluatedListing{
		Row:            row,
		PredictedPrice: predicted,
		Recommendation: RecommendInsufficient,
	}
	if predicted <= 0 {
		return ev
	}

	ev.PriceDiffPct = 100 * (row.Price - predicted) / predicted

	spread := row.Agg.StdErrorPct
	if spread == nil || *spread == 0 {
		return ev
	}

	pdve := ev.PriceDiffPct / *spread
	vfm := -pdve
	ev.PriceDiffVsError = &pdve
	ev.VFMScore = &vfm

	switch {
	case pdve < -1:
		ev.Recommendation = RecommendGoodDeal
	case pdve > 1:
		ev.Recommendation = RecommendOverpriced
	default:
		ev.Recommendation = RecommendFairPrice
	}
	return ev
}

// Rank orders listings by VFM score, best first. Listings without a score
// sort after every scored one, keeping their relative order.
func Rank(listings []*EvaluatedListing) {
	sort.SliceStable(listings, func(i, j int) bool {
		a, b := listings[i].VFMScore, listings[j].VFMScore
		switch {
		case a == nil:
			return false
		case b == nil:
			return true
		default:
			return *a > *b
		}
	})
}
