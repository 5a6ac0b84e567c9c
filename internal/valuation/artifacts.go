// Package valuation prices listings with a trained regression-tree
// ensemble and ranks them by value for money.
package valuation

import (
	"encoding/json"
	"fmt"
	"os"
)

// Preprocessor mirrors the exported training-time preprocessing bundle:
// the ordered feature list, imputation values, and category codebooks.
type Preprocessor struct {
	Features    []string `json:"features"`
	NumFeatures []string `json:"numeric_features"`
	CatFeatures []string `json:"categorical_features"`

	NumImpute map[string]float64        `json:"numeric_impute"`
	CatImpute map[string]string         `json:"categorical_impute"`
	CatCodes  map[string]map[string]int `json:"categorical_codes"`
}

// Node is one split or leaf in a regression tree, addressed by index
// within its tree. Left/Right of -1 marks a leaf.
type Node struct {
	Feature     int     `json:"feature"`
	Threshold   float64 `json:"threshold"`
	Left        int     `json:"left"`
	Right       int     `json:"right"`
	DefaultLeft bool    `json:"default_left"`
	Value       float64 `json:"value"`
}

// IsLeaf reports whether the node terminates traversal.
func (n *Node) IsLeaf() bool { return n.Left < 0 && n.Right < 0 }

// Tree is a flat node array; index 0 is the root.
type Tree struct {
	Nodes []Node `json:"nodes"`
}

// Model is an additive ensemble: prediction = base score plus the leaf
// value of every tree.
type Model struct {
	BaseScore float64 `json:"base_score"`
	Trees     []Tree  `json:"trees"`
}

// LoadPreprocessor reads and validates a preprocessing bundle.
func LoadPreprocessor(path string) (*Preprocessor, error) {
	var p Preprocessor
	if err := loadJSON(path, &p); err != nil {
		return nil, err
	}
	if len(p.Features) == 0 {
		return nil, fmt.Errorf("preprocessor %s: empty feature list", path)
	}
	kinds := make(map[string]bool, len(p.NumFeatures)+len(p.CatFeatures))
	for _, f := range p.NumFeatures {
		kinds[f] = true
	}
	for _, f := range p.CatFeatures {
		if kinds[f] {
			return nil, fmt.Errorf("preprocessor %s: feature %q is both numeric and categorical", path, f)
		}
		kinds[f] = true
	}
	for _, f := range p.Features {
		if !kinds[f] {
			return nil, fmt.Errorf("preprocessor %s: feature %q has no declared kind", path, f)
		}
	}
	return &p, nil
}

// LoadModel reads and validates a tree-ensemble model.
func LoadModel(path string) (*Model, error) {
	var m Model
	if err := loadJSON(path, &m); err != nil {
		return nil, err
	}
	if len(m.Trees) == 0 {
		return nil, fmt.Errorf("model %s: no trees", path)
	}
	for ti, tree := range m.Trees {
		if len(tree.Nodes) == 0 {
			return nil, fmt.Errorf("model %s: tree %d has no nodes", path, ti)
		}
		for ni, node := range tree.Nodes {
			if node.IsLeaf() {
				continue
			}
			if node.Left < 0 || node.Left >= len(tree.Nodes) ||
				node.Right < 0 || node.Right >= len(tree.Nodes) {
				return nil, fmt.Errorf("model %s: tree %d node %d has out-of-range children", path, ti, ni)
			}
		}
	}
	return &m, nil
}

func loadJSON(path string, v any) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read artifact: %w", err)
	}
	if err := json.Unmarshal(data, v); err != nil {
		return fmt.Errorf("decode artifact %s: %w", path, err)
	}
	return nil
}
