package domain

// ServiceEnv records the packages a bundle needs at runtime. Artifacts declare
// their library through SetDependencies while the bundle is assembled.
type ServiceEnv struct {
	packages []string
}

func NewServiceEnv() *ServiceEnv {
	return &ServiceEnv{}
}

// AddPackages appends packages that are not already declared, keeping the
// declaration order.
func (e *ServiceEnv) AddPackages(packages ...string) {
	for _, p := range packages {
		if p == "" || e.has(p) {
			continue
		}
		e.packages = append(e.packages, p)
	}
}

func (e *ServiceEnv) Packages() []string {
	out := make([]string, len(e.packages))
	copy(out, e.packages)
	return out
}

func (e *ServiceEnv) has(p string) bool {
	for _, existing := range e.packages {
		if existing == p {
			return true
		}
	}
	return false
}
