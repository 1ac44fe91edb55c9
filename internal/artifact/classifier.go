// Package artifact binds in-memory models to named bundle artifacts and
// persists them with the owning model library's own file format.
package artifact

import (
	"fmt"
	"path/filepath"
	"strings"

	"bento-registry/internal/core/domain"
	"bento-registry/internal/core/ports/output"
)

const (
	DefaultModelExtension = ".json"
	DefaultLibrary        = "catboost"
)

// ClassifierArtifact holds at most one gradient-boosting classifier and saves
// it as <dir>/<name><extension>.
type ClassifierArtifact struct {
	name      string
	extension string
	library   string
	registry  *Registry
	model     any
}

type Option func(*ClassifierArtifact)

func WithModelExtension(ext string) Option {
	return func(a *ClassifierArtifact) {
		if ext != "" && !strings.HasPrefix(ext, ".") {
			ext = "." + ext
		}
		a.extension = ext
	}
}

func WithLibrary(name string) Option {
	return func(a *ClassifierArtifact) { a.library = name }
}

func WithRegistry(r *Registry) Option {
	return func(a *ClassifierArtifact) { a.registry = r }
}

func NewClassifierArtifact(name string, opts ...Option) *ClassifierArtifact {
	a := &ClassifierArtifact{
		name:      name,
		extension: DefaultModelExtension,
		library:   DefaultLibrary,
		registry:  defaultRegistry,
	}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

func (a *ClassifierArtifact) Name() string { return a.name }

func (a *ClassifierArtifact) Extension() string { return a.extension }

// Type identifies the artifact kind in bundle manifests.
func (a *ClassifierArtifact) Type() string { return a.library + "-classifier" }

// FileName is the artifact file name inside a bundle's artifact directory.
func (a *ClassifierArtifact) FileName() string { return a.name + a.extension }

// ModelFilePath returns <base>/<name><extension>. Save and Load both use it.
func (a *ClassifierArtifact) ModelFilePath(base string) string {
	return filepath.Join(base, a.FileName())
}

// Pack stores model after checking it is the library's classifier type.
// A rejected model leaves the previously packed one in place.
func (a *ClassifierArtifact) Pack(model any) (*ClassifierArtifact, error) {
	lib, err := a.resolve()
	if err != nil {
		return nil, err
	}
	if model == nil || !lib.IsClassifier(model) {
		return nil, fmt.Errorf("%w: expected a %s classifier, got %T", domain.ErrInvalidArgument, a.library, model)
	}
	a.model = model
	return a, nil
}

// Load restores the classifier saved under path and packs it.
func (a *ClassifierArtifact) Load(path string) (*ClassifierArtifact, error) {
	lib, err := a.resolve()
	if err != nil {
		return nil, err
	}
	clf := lib.NewClassifier()
	if err := lib.LoadModel(clf, a.ModelFilePath(path), a.format()); err != nil {
		return nil, err
	}
	return a.Pack(clf)
}

// Save writes the packed classifier under path. Library errors are returned
// as is.
func (a *ClassifierArtifact) Save(path string) error {
	lib, err := a.resolve()
	if err != nil {
		return err
	}
	if a.model == nil {
		return fmt.Errorf("%w: artifact %q has no packed model", domain.ErrInvalidArgument, a.name)
	}
	return lib.SaveModel(a.model, a.ModelFilePath(path), a.format())
}

// Get returns the packed model or nil.
func (a *ClassifierArtifact) Get() any { return a.model }

func (a *ClassifierArtifact) SetDependencies(env *domain.ServiceEnv) {
	pkg := a.library
	if lib, ok := a.registry.Lookup(a.library); ok {
		pkg = lib.Package()
	}
	env.AddPackages(pkg)
}

// PackModel and LoadFrom adapt the fluent methods to bundle.Artifact.

func (a *ClassifierArtifact) PackModel(model any) error {
	_, err := a.Pack(model)
	return err
}

func (a *ClassifierArtifact) LoadFrom(dir string) error {
	_, err := a.Load(dir)
	return err
}

func (a *ClassifierArtifact) resolve() (ports.ModelLibrary, error) {
	lib, ok := a.registry.Lookup(a.library)
	if !ok {
		return nil, fmt.Errorf("%w: %s package is required to use %s artifact %q",
			domain.ErrMissingDependency, a.library, a.Type(), a.name)
	}
	return lib, nil
}

// format maps the file extension to the library format name.
func (a *ClassifierArtifact) format() string {
	switch strings.ToLower(a.extension) {
	case ".cbm", ".bin":
		return "cbm"
	default:
		return "json"
	}
}
