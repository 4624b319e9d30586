package lockfile

import (
	"io"
	"sort"
	"strings"

	"github.com/BurntSushi/toml"
	"github.com/Masterminds/semver"
	"github.com/pkg/errors"

	"github.com/preiter93/cargo-reduce-recipe/internal/manifest"
)

const cargoLockfileHeader = "# This file is automatically @generated by Cargo.\n# It is not intended for manual editing.\n"

// CargoLockfile Go representation of the contents of 'Cargo.lock'.
// Reference https://doc.rust-lang.org/cargo/guide/cargo-toml-vs-cargo-lock.html
type CargoLockfile struct {
	Version  int               `toml:"version,omitempty"`
	Packages []PackageEntry    `toml:"package"`
	Patch    *PatchSection     `toml:"patch,omitempty"`
	Metadata map[string]string `toml:"metadata,omitempty"`

	byKey  map[string]*PackageEntry
	byName map[string][]*PackageEntry
}

// PackageEntry is a single [[package]] table.
type PackageEntry struct {
	Name     string `toml:"name"`
	Version  string `toml:"version"`
	Source   string `toml:"source,omitempty"`
	Checksum string `toml:"checksum,omitempty"`
	// Dependencies references are "name", "name version" or
	// "name version (source)" strings.
	Dependencies []string `toml:"dependencies,omitempty"`
}

// PatchSection carries [[patch.unused]] entries through unmodified.
type PatchSection struct {
	Unused []PackageEntry `toml:"unused,omitempty"`
}

var _ Lockfile = (*CargoLockfile)(nil)

// Key returns the lock graph key of the entry.
func (e *PackageEntry) Key() string {
	return e.Name + "@" + e.Version
}

// DecodeCargoLockfile Takes the contents of a Cargo lock file and returns a
// struct representation.
func DecodeCargoLockfile(contents []byte) (*CargoLockfile, error) {
	var lockfile CargoLockfile
	if _, err := toml.Decode(string(contents), &lockfile); err != nil {
		return nil, errors.Wrap(err, "unable to decode Cargo.lock")
	}
	lockfile.index()
	return &lockfile, nil
}

func (l *CargoLockfile) index() {
	l.byKey = make(map[string]*PackageEntry, len(l.Packages))
	l.byName = make(map[string][]*PackageEntry)
	for i := range l.Packages {
		entry := &l.Packages[i]
		l.byKey[entry.Key()] = entry
		l.byName[entry.Name] = append(l.byName[entry.Name], entry)
	}
}

// ResolvePackage Given a package name and version requirement returns the
// matching lock entry. An exact version wins, otherwise the highest version
// satisfying the requirement is chosen.
func (l *CargoLockfile) ResolvePackage(name string, req string) (Package, error) {
	candidates := l.byName[name]
	if len(candidates) == 0 {
		return Package{}, nil
	}
	for _, entry := range candidates {
		if entry.Version == req {
			return Package{Key: entry.Key(), Version: entry.Version, Found: true}, nil
		}
	}
	if req == "" && len(candidates) == 1 {
		entry := candidates[0]
		return Package{Key: entry.Key(), Version: entry.Version, Found: true}, nil
	}

	var best *PackageEntry
	for _, entry := range candidates {
		ok, err := manifest.MatchesRequirement(entry.Version, req)
		if err != nil || !ok {
			continue
		}
		if best == nil || versionLess(best.Version, entry.Version) {
			best = entry
		}
	}
	if best == nil {
		return Package{}, nil
	}
	return Package{Key: best.Key(), Version: best.Version, Found: true}, nil
}

// AllDependencies Given a lockfile key return the dependency references of
// that entry, one per declaration. References are not collapsed by name: an
// entry may legally depend on two versions of the same crate through renames.
func (l *CargoLockfile) AllDependencies(key string) ([]DependencyRef, bool) {
	entry, ok := l.byKey[key]
	if !ok {
		return nil, false
	}
	deps := make([]DependencyRef, 0, len(entry.Dependencies))
	for _, ref := range entry.Dependencies {
		name, version := parseDependencyRef(ref)
		deps = append(deps, DependencyRef{Name: name, Version: version})
	}
	return deps, true
}

// Keys returns every entry key in the lock graph.
func (l *CargoLockfile) Keys() []string {
	keys := make([]string, 0, len(l.Packages))
	for i := range l.Packages {
		keys = append(keys, l.Packages[i].Key())
	}
	return keys
}

// Subgraph Given a list of lockfile keys returns a Lockfile based off the
// original one that only contains the entries given. Entry order of the
// original lock file is preserved.
func (l *CargoLockfile) Subgraph(packages []string) (Lockfile, error) {
	keep := make(map[string]bool, len(packages))
	for _, key := range packages {
		if _, ok := l.byKey[key]; !ok {
			return nil, errors.Errorf("unable to find lockfile entry for %s", key)
		}
		keep[key] = true
	}

	entries := make([]PackageEntry, 0, len(packages))
	for i := range l.Packages {
		if keep[l.Packages[i].Key()] {
			entries = append(entries, l.Packages[i])
		}
	}

	lockfile := &CargoLockfile{
		Version:  l.Version,
		Packages: entries,
		Patch:    l.Patch,
		Metadata: l.Metadata,
	}
	lockfile.index()
	return lockfile, nil
}

// Encode the lockfile representation and write it to the given writer.
func (l *CargoLockfile) Encode(w io.Writer) error {
	if _, err := io.WriteString(w, cargoLockfileHeader); err != nil {
		return errors.Wrap(err, "unable to encode Cargo.lock")
	}
	if err := toml.NewEncoder(w).Encode(l); err != nil {
		return errors.Wrap(err, "unable to encode Cargo.lock")
	}
	return nil
}

// parseDependencyRef splits a lock dependency reference into name and
// version. The trailing "(source)" qualifier is dropped.
func parseDependencyRef(ref string) (string, string) {
	fields := strings.Fields(ref)
	switch len(fields) {
	case 0:
		return "", ""
	case 1:
		return fields[0], ""
	default:
		return fields[0], fields[1]
	}
}

func versionLess(a string, b string) bool {
	va, errA := semver.NewVersion(a)
	vb, errB := semver.NewVersion(b)
	if errA != nil || errB != nil {
		return a < b
	}
	return va.LessThan(vb)
}

// SortedKeys is a convenience for deterministic diagnostics.
func SortedKeys(l Lockfile) []string {
	keys := l.Keys()
	sort.Strings(keys)
	return keys
}
