package bundle

import "bento-registry/internal/core/domain"

// Artifact is a named unit of a bundle that can persist itself into the
// bundle's artifact directory.
type Artifact interface {
	Name() string
	Type() string
	FileName() string
	PackModel(model any) error
	LoadFrom(dir string) error
	Save(dir string) error
	Get() any
	SetDependencies(env *domain.ServiceEnv)
}
