package valuation

import (
	"fmt"
	"log/slog"
	"math"
	"strconv"
	"strings"
)

// unknownCategory is the code for category values absent from the
// training codebook.
const unknownCategory = -1

// Predictor applies the preprocessing bundle and the tree ensemble to a
// listing's feature map.
type Predictor struct {
	pre     *Preprocessor
	model   *Model
	numeric map[string]bool
	logger  *slog.Logger
}

// NewPredictor pairs a preprocessor with a model. The model addresses
// features by position in the preprocessor's feature list.
func NewPredictor(pre *Preprocessor, model *Model, logger *slog.Logger) *Predictor {
	numeric := make(map[string]bool, len(pre.NumFeatures))
	for _, f := range pre.NumFeatures {
		numeric[f] = true
	}
	return &Predictor{
		pre:     pre,
		model:   model,
		numeric: numeric,
		logger:  logger.With("component", "predictor"),
	}
}

// LoadPredictor reads both artifacts and builds a Predictor.
func LoadPredictor(preprocessorPath, modelPath string, logger *slog.Logger) (*Predictor, error) {
	pre, err := LoadPreprocessor(preprocessorPath)
	if err != nil {
		return nil, err
	}
	model, err := LoadModel(modelPath)
	if err != nil {
		return nil, err
	}
	return NewPredictor(pre, model, logger), nil
}

// Predict returns the ensemble's price estimate for one feature map. A
// feature the bundle names but the map does not carry at all is a
// configuration mismatch and fails the run; a nil value is ordinary
// missing data and goes through imputation.
func (p *Predictor) Predict(features map[string]any) (float64, error) {
	vec := make([]float64, len(p.pre.Features))
	for i, name := range p.pre.Features {
		raw, present := features[name]
		if !present {
			return 0, fmt.Errorf("feature %q not produced by the pipeline", name)
		}
		if p.numeric[name] {
			vec[i] = p.numericValue(name, raw)
		} else {
			vec[i] = p.categoryCode(name, raw)
		}
	}

	score := p.model.BaseScore
	for _, tree := range p.model.Trees {
		score += traverse(&tree, vec)
	}
	return score, nil
}

// numericValue coerces and imputes one numeric feature. Infinities are
// treated as missing, matching the training-time handling.
func (p *Predictor) numericValue(name string, raw any) float64 {
	v := math.NaN()
	switch t := raw.(type) {
	case nil:
	case float64:
		v = t
	case int:
		v = float64(t)
	case string:
		if parsed, err := strconv.ParseFloat(strings.TrimSpace(strings.ReplaceAll(t, ",", "")), 64); err == nil {
			v = parsed
		}
	default:
		p.logger.Debug("unexpected numeric feature type", "feature", name, "value", raw)
	}
	if math.IsInf(v, 0) {
		v = math.NaN()
	}
	if math.IsNaN(v) {
		if imputed, ok := p.pre.NumImpute[name]; ok {
			return imputed
		}
	}
	return v
}

// categoryCode encodes one categorical feature through the codebook.
func (p *Predictor) categoryCode(name string, raw any) float64 {
	value, _ := raw.(string)
	if raw == nil || strings.TrimSpace(value) == "" {
		if imputed, ok := p.pre.CatImpute[name]; ok {
			value = imputed
		} else {
			return unknownCategory
		}
	}
	if code, ok := p.pre.CatCodes[name][value]; ok {
		return float64(code)
	}
	return unknownCategory
}

// traverse walks one tree to a leaf. NaN features follow the node's
// default direction.
func traverse(tree *Tree, vec []float64) float64 {
	node := &tree.Nodes[0]
	for !node.IsLeaf() {
		x := math.NaN()
		if node.Feature >= 0 && node.Feature < len(vec) {
			x = vec[node.Feature]
		}
		switch {
		case math.IsNaN(x):
			if node.DefaultLeft {
				node = &tree.Nodes[node.Left]
			} else {
				node = &tree.Nodes[node.Right]
			}
		case x < node.Threshold:
			node = &tree.Nodes[node.Left]
		default:
			node = &tree.Nodes[node.Right]
		}
	}
	return node.Value
}
