// Package lockfile models the fully resolved lock graph embedded in a recipe.
package lockfile

import (
	"fmt"
	"io"
	"sort"
)

// Lockfile Interface for general operations that work across lock graph
// representations.
type Lockfile interface {
	// ResolvePackage Given a package name and version requirement returns the
	// matching lock entry. Found is false when no entry satisfies the
	// requirement.
	ResolvePackage(name string, req string) (Package, error)
	// AllDependencies Given a lockfile key return the dependency references
	// of that entry in declaration order. An entry may reference several
	// versions of the same name, every reference is reported.
	AllDependencies(key string) ([]DependencyRef, bool)
	// Keys returns every entry key in the lock graph.
	Keys() []string
	// Subgraph Given a list of lockfile keys returns a Lockfile based off the
	// original one that only contains the entries given.
	Subgraph(packages []string) (Lockfile, error)
	// Encode the lockfile representation and write it to the given writer.
	Encode(w io.Writer) error
}

// DependencyRef is one dependency reference of a lock entry. Version is
// empty when the lock graph holds a single version of the name.
type DependencyRef struct {
	Name    string
	Version string
}

// Package a lockfile entry resolved from a name and version requirement.
type Package struct {
	// Key is the entry key in the lock graph
	Key string
	// Version is the resolved version
	Version string
	// Found was the entry present in the lock graph
	Found bool
}

// ByKey sort packages by key
type ByKey []Package

func (p ByKey) Len() int { return len(p) }

func (p ByKey) Swap(i, j int) { p[i], p[j] = p[j], p[i] }

func (p ByKey) Less(i, j int) bool {
	return p[i].Key+p[i].Version < p[j].Key+p[j].Version
}

var _ (sort.Interface) = (*ByKey)(nil)

// UnresolvedDependencyError a declared dependency has no entry in the lock
// graph satisfying its requirement. The input violates the fully resolved
// precondition and cannot be reduced.
type UnresolvedDependencyError struct {
	// Name of the unresolved dependency
	Name string
	// Requirement the declared version requirement, empty when unconstrained
	Requirement string
	// Dependent names the manifest or lock entry declaring the dependency
	Dependent string
}

func (e *UnresolvedDependencyError) Error() string {
	req := e.Requirement
	if req == "" {
		req = "*"
	}
	return fmt.Sprintf("unresolved dependency: %s@%s required by %s has no lock entry", e.Name, req, e.Dependent)
}
