package valuation

import (
	"log/slog"
	"math"
	"os"
	"testing"

	"carscout/internal/pipeline"
	"carscout/internal/refdata"
)

var testLogger = slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelError}))

// testPredictor builds a two-feature bundle with a single stump tree:
// mileage < 50000 predicts 100000, otherwise 80000. NaN mileage follows
// the default-left branch.
func testPredictor() *Predictor {
	pre := &Preprocessor{
		Features:    []string{"mileage", "color"},
		NumFeatures: []string{"mileage"},
		CatFeatures: []string{"color"},
		NumImpute:   map[string]float64{},
		CatImpute:   map[string]string{"color": "לבן"},
		CatCodes:    map[string]map[string]int{"color": {"לבן": 0, "שחור": 1}},
	}
	model := &Model{
		BaseScore: 0,
		Trees: []Tree{{
			Nodes: []Node{
				{Feature: 0, Threshold: 50000, Left: 1, Right: 2, DefaultLeft: true},
				{Left: -1, Right: -1, Value: 100000},
				{Left: -1, Right: -1, Value: 80000},
			},
		}},
	}
	return NewPredictor(pre, model, testLogger)
}

func TestPredictSplits(t *testing.T) {
	p := testPredictor()

	tests := []struct {
		name    string
		mileage any
		want    float64
	}{
		{"below threshold", 30000.0, 100000},
		{"above threshold", 90000.0, 80000},
		{"at threshold goes right", 50000.0, 80000},
		{"missing follows default left", nil, 100000},
		{"string coerced", "30,000", 100000},
		{"infinity treated as missing", math.Inf(1), 100000},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := p.Predict(map[string]any{"mileage": tt.mileage, "color": "לבן"})
			if err != nil {
				t.Fatalf("predict: %v", err)
			}
			if got != tt.want {
				t.Errorf("predict = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestPredictMissingFeatureIsFatal(t *testing.T) {
	p := testPredictor()

	if _, err := p.Predict(map[string]any{"mileage": 30000.0}); err == nil {
		t.Fatal("expected error when a bundle feature is absent from the map")
	}
}

func TestCategoryEncoding(t *testing.T) {
	p := testPredictor()

	tests := []struct {
		name  string
		value any
		want  float64
	}{
		{"known category", "שחור", 1},
		{"unknown category", "אדום", unknownCategory},
		{"nil imputed to לבן", nil, 0},
		{"blank imputed to לבן", "  ", 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := p.categoryCode("color", tt.value); got != tt.want {
				t.Errorf("categoryCode = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestNumericImputation(t *testing.T) {
	pre := &Preprocessor{
		Features:    []string{"mileage"},
		NumFeatures: []string{"mileage"},
		NumImpute:   map[string]float64{"mileage": 61000},
	}
	model := &Model{Trees: []Tree{{Nodes: []Node{{Left: -1, Right: -1, Value: 1}}}}}
	p := NewPredictor(pre, model, testLogger)

	if got := p.numericValue("mileage", nil); got != 61000 {
		t.Errorf("nil should impute to 61000, got %v", got)
	}
	if got := p.numericValue("mileage", "garbage"); got != 61000 {
		t.Errorf("unparseable should impute to 61000, got %v", got)
	}
	if got := p.numericValue("mileage", 42.0); got != 42 {
		t.Errorf("present value should pass through, got %v", got)
	}
}

func scoredRow(price float64, errPct *float64) *pipeline.Row {
	return &pipeline.Row{
		Price: price,
		Agg:   &refdata.TitleAggregate{AvgPrice: 10000, StdErrorPct: errPct},
	}
}

func TestScoreRecommendationBoundaries(t *testing.T) {
	ten := 10.0

	tests := []struct {
		name  string
		price float64
		err   *float64
		want  string
	}{
		// predicted 10000, spread 10%: pdve = (price-10000)/1000.
		{"well under prediction", 8500, &ten, RecommendGoodDeal},
		{"exactly -1 is fair", 9000, &ten, RecommendFairPrice},
		{"exactly +1 is fair", 11000, &ten, RecommendFairPrice},
		{"just past +1 overpriced", 11500, &ten, RecommendOverpriced},
		{"no spread", 8500, nil, RecommendInsufficient},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ev := Score(scoredRow(tt.price, tt.err), 10000)
			if ev.Recommendation != tt.want {
				t.Errorf("recommendation = %q, want %q", ev.Recommendation, tt.want)
			}
		})
	}
}

func TestScoreValues(t *testing.T) {
	ten := 10.0
	ev := Score(scoredRow(8500, &ten), 10000)

	if ev.PriceDiffPct != -15 {
		t.Errorf("price_diff_pct = %v, want -15", ev.PriceDiffPct)
	}
	if ev.PriceDiffVsError == nil || *ev.PriceDiffVsError != -1.5 {
		t.Errorf("price_diff_vs_error = %v, want -1.5", ev.PriceDiffVsError)
	}
	if ev.VFMScore == nil || *ev.VFMScore != 1.5 {
		t.Errorf("vfm = %v, want 1.5", ev.VFMScore)
	}
}

func TestScoreZeroSpreadIsInsufficient(t *testing.T) {
	zero := 0.0
	ev := Score(scoredRow(8500, &zero), 10000)
	if ev.Recommendation != RecommendInsufficient || ev.VFMScore != nil {
		t.Errorf("zero spread should yield insufficient data, got %q", ev.Recommendation)
	}
}

func TestRankOrdersBestFirst(t *testing.T) {
	ten := 10.0
	listings := []*EvaluatedListing{
		Score(scoredRow(11500, &ten), 10000), // vfm -1.5
		Score(scoredRow(8500, nil), 10000),   // unscored
		Score(scoredRow(8500, &ten), 10000),  // vfm 1.5, best
		Score(scoredRow(10000, &ten), 10000), // vfm 0
	}

	Rank(listings)

	if listings[0].Row.Price != 8500 || listings[0].VFMScore == nil {
		t.Errorf("best deal should rank first, got price %v", listings[0].Row.Price)
	}
	if listings[1].Row.Price != 10000 {
		t.Errorf("fair price should rank second, got %v", listings[1].Row.Price)
	}
	if listings[2].Row.Price != 11500 {
		t.Errorf("overpriced should rank third, got %v", listings[2].Row.Price)
	}
	if listings[3].VFMScore != nil {
		t.Error("unscored listing should rank last")
	}
}

// Evaluate ties predictor and scorer together end to end: a single-leaf
// model prices everything at 10000, so an 8500 ask is a good deal and an
// 11500 ask is overpriced.
func TestEvaluateEndToEnd(t *testing.T) {
	pre := &Preprocessor{
		Features:    []string{"mileage"},
		NumFeatures: []string{"mileage"},
	}
	model := &Model{Trees: []Tree{{Nodes: []Node{{Left: -1, Right: -1, Value: 10000}}}}}
	e := NewEvaluator(NewPredictor(pre, model, testLogger), testLogger)

	ten := 10.0
	cheap := scoredRow(8500, &ten)
	pricey := scoredRow(11500, &ten)

	evaluated, err := e.Evaluate([]*pipeline.Row{pricey, cheap})
	if err != nil {
		t.Fatalf("evaluate: %v", err)
	}
	Rank(evaluated)

	if evaluated[0].Row != cheap || evaluated[0].Recommendation != RecommendGoodDeal {
		t.Errorf("cheap listing should rank first as a good deal, got %q", evaluated[0].Recommendation)
	}
	if evaluated[1].Row != pricey || evaluated[1].Recommendation != RecommendOverpriced {
		t.Errorf("pricey listing should rank last as overpriced, got %q", evaluated[1].Recommendation)
	}
}
