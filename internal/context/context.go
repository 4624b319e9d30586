// Package context derives the in-memory dependency graphs for a parsed
// recipe. Everything is built from the recipe's embedded manifests and lock
// file, never from the filesystem.
package context

import (
	"fmt"
	"sort"
	"strings"
	"sync"

	"github.com/pyr-sh/dag"
	"golang.org/x/sync/errgroup"

	"github.com/preiter93/cargo-reduce-recipe/internal/lockfile"
	"github.com/preiter93/cargo-reduce-recipe/internal/manifest"
	"github.com/preiter93/cargo-reduce-recipe/internal/recipe"
)

// RootManifestPath is the workspace root manifest location inside a recipe.
const RootManifestPath = "Cargo.toml"

// ExternalDep is one external requirement a member declares. Renames let a
// member require several versions of the same name, so these are never
// collapsed by name.
type ExternalDep struct {
	Name string
	Req  string
}

// MemberInfo carries the dependency-relevant data of one workspace member.
type MemberInfo struct {
	Name    string
	Version string
	// ManifestPath is the member manifest's relative path inside the recipe.
	ManifestPath string
	// InternalDeps names the workspace members this member depends on.
	InternalDeps []string
	// UnresolvedExternalDeps lists the external requirements of the member,
	// deduplicated and sorted.
	UnresolvedExternalDeps []ExternalDep
}

// Context holds the state inferred from one recipe.
type Context struct {
	// MemberInfos stores parsed member data by member name.
	MemberInfos map[string]*MemberInfo
	// MemberNames is sorted for deterministic diagnostics.
	MemberNames []string
	// WorkspaceGraph expresses "member depends on member" edges.
	WorkspaceGraph dag.AcyclicGraph
	// PackageGraph expresses "lock entry depends on lock entry" edges.
	PackageGraph dag.AcyclicGraph
	// RootInfo is the parsed root manifest.
	RootInfo *manifest.Info
	// Lockfile is nil when the recipe carries no lock file.
	Lockfile lockfile.Lockfile

	memberManifests []memberManifest

	// Guards the shared maps during parallel manifest parsing.
	mutex sync.Mutex
}

// Build parses every embedded manifest and derives the workspace and package
// graphs for the recipe.
func Build(r *recipe.Recipe) (*Context, error) {
	c := &Context{MemberInfos: map[string]*MemberInfo{}}

	root, err := rootManifest(r)
	if err != nil {
		return nil, err
	}
	rootInfo, err := manifest.Parse(root.Contents)
	if err != nil {
		return nil, &recipe.MalformedRecipeError{Section: RootManifestPath, Err: err}
	}
	c.RootInfo = rootInfo

	// a root manifest with a [package] section is itself a workspace member
	if rootInfo.Name != "" {
		c.MemberInfos[rootInfo.Name] = &MemberInfo{
			Name:         rootInfo.Name,
			Version:      rootInfo.Version,
			ManifestPath: RootManifestPath,
		}
		c.WorkspaceGraph.Add(rootInfo.Name)
		c.memberManifests = append(c.memberManifests, memberManifest{name: rootInfo.Name, info: rootInfo})
	}

	if err := c.parseMembers(r); err != nil {
		return nil, err
	}
	if err := c.checkDeclaredMembers(); err != nil {
		return nil, err
	}
	c.populateWorkspaceGraph()

	if lock := r.Skeleton.LockFile; lock != nil {
		decoded, err := lockfile.DecodeCargoLockfile([]byte(*lock))
		if err != nil {
			return nil, &recipe.MalformedRecipeError{Section: "skeleton.lock_file", Err: err}
		}
		c.Lockfile = decoded
		if err := c.populatePackageGraph(); err != nil {
			return nil, err
		}
	}

	return c, nil
}

func rootManifest(r *recipe.Recipe) (*recipe.Manifest, error) {
	for i := range r.Skeleton.Manifests {
		if r.Skeleton.Manifests[i].RelativePath == RootManifestPath {
			return &r.Skeleton.Manifests[i], nil
		}
	}
	return nil, &recipe.MalformedRecipeError{
		Section: "skeleton.manifests",
		Err:     fmt.Errorf("no root %s found", RootManifestPath),
	}
}

// parseMembers decodes every non-root manifest. Parsing fans out across
// manifests with the shared maps guarded by the context mutex.
func (c *Context) parseMembers(r *recipe.Recipe) error {
	parseWaitGroup := &errgroup.Group{}
	for i := range r.Skeleton.Manifests {
		m := &r.Skeleton.Manifests[i]
		if m.RelativePath == RootManifestPath {
			continue
		}
		parseWaitGroup.Go(func() error {
			return c.parseMemberManifest(m)
		})
	}
	if err := parseWaitGroup.Wait(); err != nil {
		return err
	}

	c.MemberNames = make([]string, 0, len(c.MemberInfos))
	for name := range c.MemberInfos {
		c.MemberNames = append(c.MemberNames, name)
	}
	sort.Strings(c.MemberNames)
	return nil
}

func (c *Context) parseMemberManifest(m *recipe.Manifest) error {
	info, err := manifest.Parse(m.Contents)
	if err != nil {
		return &recipe.MalformedRecipeError{Section: m.RelativePath, Err: err}
	}
	if info.Name == "" {
		return &recipe.MalformedRecipeError{
			Section: m.RelativePath,
			Err:     fmt.Errorf("manifest has no [package] name"),
		}
	}

	c.mutex.Lock()
	defer c.mutex.Unlock()
	c.MemberInfos[info.Name] = &MemberInfo{
		Name:         info.Name,
		Version:      info.Version,
		ManifestPath: m.RelativePath,
	}
	c.WorkspaceGraph.Add(info.Name)
	c.memberManifests = append(c.memberManifests, memberManifest{name: info.Name, info: info})
	return nil
}

// checkDeclaredMembers verifies that every member path listed in the root
// [workspace] members table has a manifest in the recipe. Glob entries cannot
// be checked without a filesystem and are skipped.
func (c *Context) checkDeclaredMembers() error {
	manifestPaths := make(map[string]bool, len(c.MemberInfos))
	for _, info := range c.MemberInfos {
		manifestPaths[manifest.MemberPathOf(info.ManifestPath)] = true
	}
	for _, member := range c.RootInfo.WorkspaceMembers {
		if strings.Contains(member, "*") {
			continue
		}
		if !manifestPaths[member] {
			return &recipe.MalformedRecipeError{
				Section: RootManifestPath,
				Err:     fmt.Errorf("workspace member %q has no manifest in the recipe", member),
			}
		}
	}
	return nil
}

// populateWorkspaceGraph fills in the edges for the dependencies of every
// member that are within the workspace, and collects the dependencies that
// are not as unresolved external requirements.
func (c *Context) populateWorkspaceGraph() {
	for _, mm := range c.memberManifests {
		info := c.MemberInfos[mm.name]
		internalDepsSet := make(dag.Set)
		externalSeen := make(map[ExternalDep]bool)

		for _, dep := range mm.info.Dependencies {
			dep := c.inheritWorkspaceDep(dep)
			if dep.Name == mm.name {
				// self references carry no information, drop them
				continue
			}
			if other, ok := c.MemberInfos[dep.Name]; ok && isMemberReference(other.Version, dep) {
				internalDepsSet.Add(dep.Name)
				c.WorkspaceGraph.Connect(dag.BasicEdge(mm.name, dep.Name))
			} else {
				external := ExternalDep{Name: dep.Name, Req: dep.Req}
				if !externalSeen[external] {
					externalSeen[external] = true
					info.UnresolvedExternalDeps = append(info.UnresolvedExternalDeps, external)
				}
			}
		}

		sort.Slice(info.UnresolvedExternalDeps, func(i, j int) bool {
			a, b := info.UnresolvedExternalDeps[i], info.UnresolvedExternalDeps[j]
			if a.Name != b.Name {
				return a.Name < b.Name
			}
			return a.Req < b.Req
		})

		info.InternalDeps = make([]string, 0, internalDepsSet.Len())
		for _, v := range internalDepsSet.List() {
			info.InternalDeps = append(info.InternalDeps, v.(string))
		}
		sort.Strings(info.InternalDeps)
	}
}

// inheritWorkspaceDep substitutes the root [workspace.dependencies]
// requirement into a `workspace = true` entry.
func (c *Context) inheritWorkspaceDep(dep manifest.Dependency) manifest.Dependency {
	if !dep.Workspace || c.RootInfo.WorkspaceDeps == nil {
		return dep
	}
	inherited, ok := c.RootInfo.WorkspaceDeps[dep.Name]
	if !ok {
		return dep
	}
	if dep.Req == "" {
		dep.Req = inherited.Req
	}
	if dep.Path == "" {
		dep.Path = inherited.Path
	}
	return dep
}

// isMemberReference decides whether a dependency whose name matches a
// workspace member actually refers to that member. Path and workspace
// entries always do; versioned entries only when the member's version
// satisfies the requirement. Requirements we cannot parse count as internal
// for backwards compatibility with name-only matching.
func isMemberReference(memberVersion string, dep manifest.Dependency) bool {
	if dep.Path != "" || dep.Workspace || dep.Req == "" {
		return true
	}
	matches, err := manifest.MatchesRequirement(memberVersion, dep.Req)
	if err != nil {
		return true
	}
	return matches
}

// populatePackageGraph builds the lock entry graph. Every dependency
// reference must resolve to an entry, the lock graph is closed by contract.
func (c *Context) populatePackageGraph() error {
	for _, key := range lockfile.SortedKeys(c.Lockfile) {
		c.PackageGraph.Add(key)
	}
	for _, key := range lockfile.SortedKeys(c.Lockfile) {
		deps, _ := c.Lockfile.AllDependencies(key)
		for _, ref := range deps {
			resolved, err := c.Lockfile.ResolvePackage(ref.Name, ref.Version)
			if err != nil {
				return err
			}
			if !resolved.Found {
				return &lockfile.UnresolvedDependencyError{
					Name:        ref.Name,
					Requirement: ref.Version,
					Dependent:   key,
				}
			}
			if resolved.Key == key {
				continue
			}
			c.PackageGraph.Connect(dag.BasicEdge(key, resolved.Key))
		}
	}
	return nil
}

type memberManifest struct {
	name string
	info *manifest.Info
}
