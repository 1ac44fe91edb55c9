// Package gbm implements a gradient-boosted binary classifier built from
// oblivious (symmetric) decision trees, in the style of CatBoost.
//
// Every tree applies the same (feature, border) split on all nodes of a
// level, so a tree of depth d is a list of d splits and 2^d leaf values.
// The leaf for a row is found by setting bit i of the leaf index when the
// row's feature value is strictly greater than the border of split i.
//
// # Basic Usage
//
//	clf := gbm.NewClassifier(gbm.WithIterations(50), gbm.WithDepth(3))
//	if err := clf.Fit(X, y); err != nil {
//	    return err
//	}
//	labels, _ := clf.Predict(X)
//
// # Model Files
//
// Models are persisted with SaveModel and restored with LoadModel. Two
// formats are supported:
//
//	clf.SaveModel("model.json", gbm.FormatJSON) // human readable document
//	clf.SaveModel("model.cbm", gbm.FormatCBM)   // compact msgpack encoding
//
// LoadModel must be called on a classifier created with NewClassifier.
package gbm
