package ports

// ModelLibrary is a model library that can back a classifier artifact.
// Implementations register themselves with the artifact library registry.
type ModelLibrary interface {
	// Name is the registry key artifacts resolve the library by.
	Name() string

	// Package is the runtime dependency declared to the bundle environment.
	Package() string

	// NewClassifier returns an empty classifier ready for LoadModel.
	NewClassifier() any

	// IsClassifier reports whether model is this library's classifier type.
	IsClassifier(model any) bool

	// SaveModel writes model to path using the library's own format.
	SaveModel(model any, path, format string) error

	// LoadModel restores model in place from path.
	LoadModel(model any, path, format string) error
}

// Classifier is the prediction surface used by the bundle service.
type Classifier interface {
	Predict(X [][]float64) ([]int, error)
	PredictProba(X [][]float64) ([]float64, error)
}
