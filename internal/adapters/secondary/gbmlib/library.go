package gbmlib

import (
	"fmt"

	"bento-registry/internal/artifact"
	"bento-registry/internal/core/ports/output"
	"bento-registry/pkg/gbm"
)

const (
	Name    = "catboost"
	Package = "catboost"
)

type library struct{}

// New returns the gbm-backed model library. Importing this package also
// registers it with the default artifact registry.
func New() ports.ModelLibrary {
	return library{}
}

func init() {
	artifact.Register(New())
}

func (library) Name() string { return Name }

func (library) Package() string { return Package }

func (library) NewClassifier() any { return gbm.NewClassifier() }

func (library) IsClassifier(model any) bool {
	clf, ok := model.(*gbm.Classifier)
	return ok && clf != nil
}

func (l library) SaveModel(model any, path, format string) error {
	clf, err := l.classifier(model)
	if err != nil {
		return err
	}
	return clf.SaveModel(path, format)
}

func (l library) LoadModel(model any, path, format string) error {
	clf, err := l.classifier(model)
	if err != nil {
		return err
	}
	return clf.LoadModel(path, format)
}

func (l library) classifier(model any) (*gbm.Classifier, error) {
	if !l.IsClassifier(model) {
		return nil, fmt.Errorf("gbmlib: unsupported model type %T", model)
	}
	return model.(*gbm.Classifier), nil
}

// Ensure interface compliance
var _ ports.ModelLibrary = library{}
var _ ports.Classifier = (*gbm.Classifier)(nil)
