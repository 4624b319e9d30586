// Package reduce implements the recipe reduction engine: closure computation
// over the workspace and package graphs and the snapshot rewrite.
package reduce

import (
	"bytes"
	"sort"
	"strings"

	mapset "github.com/deckarep/golang-set"
	"github.com/pkg/errors"

	"github.com/preiter93/cargo-reduce-recipe/internal/context"
	"github.com/preiter93/cargo-reduce-recipe/internal/graph"
	"github.com/preiter93/cargo-reduce-recipe/internal/lockfile"
	"github.com/preiter93/cargo-reduce-recipe/internal/manifest"
	"github.com/preiter93/cargo-reduce-recipe/internal/recipe"
)

// Result is a reduced recipe together with the retained identity sets.
type Result struct {
	Recipe *recipe.Recipe
	// RetainedMembers is sorted, root member included.
	RetainedMembers []string
	// RetainedPackages is sorted lock entry keys, empty when the recipe
	// carries no lock file.
	RetainedPackages []string
}

// ReduceBytes decodes recipe bytes, reduces them for rootMember and encodes
// the result. This is the single operation the surrounding CLI consumes.
func ReduceBytes(contents []byte, rootMember string) ([]byte, error) {
	r, err := recipe.Decode(contents)
	if err != nil {
		return nil, err
	}
	result, err := Reduce(r, rootMember)
	if err != nil {
		return nil, err
	}
	var buf bytes.Buffer
	if err := result.Recipe.Encode(&buf); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// Reduce filters the recipe down to the closure of rootMember: the reachable
// workspace members, plus every lock entry those members transitively
// require. The input recipe is never mutated.
func Reduce(r *recipe.Recipe, rootMember string) (*Result, error) {
	ctx, err := context.Build(r)
	if err != nil {
		return nil, err
	}
	if _, ok := ctx.MemberInfos[rootMember]; !ok {
		return nil, &context.UnknownMemberError{Member: rootMember, Known: ctx.MemberNames}
	}

	reachable, err := graph.Reachable(&ctx.WorkspaceGraph, rootMember)
	if err != nil {
		return nil, errors.Wrap(err, "could not traverse the workspace dependency graph")
	}
	retainedMembers := mapset.NewSet()
	for _, member := range reachable.List() {
		retainedMembers.Add(member)
	}

	// the root manifest is always emitted, so when it defines a package that
	// package and its dependencies stay part of the workspace
	if rootPkg := ctx.RootInfo.Name; rootPkg != "" && !retainedMembers.Contains(rootPkg) {
		rootReachable, err := graph.Reachable(&ctx.WorkspaceGraph, rootPkg)
		if err != nil {
			return nil, errors.Wrap(err, "could not traverse the workspace dependency graph")
		}
		for _, member := range rootReachable.List() {
			retainedMembers.Add(member)
		}
	}

	var retainedPackages mapset.Set
	if ctx.Lockfile != nil {
		retainedPackages, err = retainedPackageSet(ctx, retainedMembers)
		if err != nil {
			return nil, err
		}
	}

	if err := checkClosure(ctx, retainedMembers, retainedPackages); err != nil {
		return nil, err
	}

	reduced := r.Clone()
	if err := filterManifests(reduced, ctx, retainedMembers); err != nil {
		return nil, err
	}
	if ctx.Lockfile != nil {
		if err := rewriteLockfile(reduced, ctx.Lockfile, retainedPackages); err != nil {
			return nil, err
		}
	}

	return &Result{
		Recipe:           reduced,
		RetainedMembers:  setStrings(retainedMembers),
		RetainedPackages: setStrings(retainedPackages),
	}, nil
}

// retainedPackageSet computes the lock entries the retained members need:
// the members' own entries, every external dependency they declare directly,
// and the transitive closure of those over the package graph.
func retainedPackageSet(ctx *context.Context, retainedMembers mapset.Set) (mapset.Set, error) {
	var seeds []lockfile.Package
	seen := mapset.NewSet()
	for _, member := range retainedMembers.ToSlice() {
		info := ctx.MemberInfos[member.(string)]

		// members usually have their own lock entry, keeping it keeps the
		// emitted lock file closed
		own, err := ctx.Lockfile.ResolvePackage(info.Name, info.Version)
		if err != nil {
			return nil, err
		}
		if own.Found && seen.Add(own.Key) {
			seeds = append(seeds, own)
		}

		for _, dep := range info.UnresolvedExternalDeps {
			resolved, err := ctx.Lockfile.ResolvePackage(dep.Name, dep.Req)
			if err != nil {
				return nil, err
			}
			if !resolved.Found {
				return nil, &lockfile.UnresolvedDependencyError{
					Name:        dep.Name,
					Requirement: dep.Req,
					Dependent:   info.Name,
				}
			}
			if seen.Add(resolved.Key) {
				seeds = append(seeds, resolved)
			}
		}
	}
	sort.Sort(lockfile.ByKey(seeds))

	retained := mapset.NewSet()
	for _, seed := range seeds {
		reached, err := graph.Reachable(&ctx.PackageGraph, seed.Key)
		if err != nil {
			return nil, errors.Wrap(err, "could not traverse the package dependency graph")
		}
		for _, key := range reached.List() {
			retained.Add(key)
		}
	}
	return retained, nil
}

// checkClosure is the post-condition guard: every dependency edge inside a
// retained entity must point at another retained entity. A violation means
// the closure computation leaked and the snapshot must not be emitted.
func checkClosure(ctx *context.Context, retainedMembers mapset.Set, retainedPackages mapset.Set) error {
	for _, member := range retainedMembers.ToSlice() {
		info := ctx.MemberInfos[member.(string)]
		for _, dep := range info.InternalDeps {
			if !retainedMembers.Contains(dep) {
				return &InternalConsistencyError{
					Reference: "member " + info.Name + " references pruned member " + dep,
				}
			}
		}
	}
	if retainedPackages == nil {
		return nil
	}
	for _, key := range retainedPackages.ToSlice() {
		deps, ok := ctx.Lockfile.AllDependencies(key.(string))
		if !ok {
			return &InternalConsistencyError{
				Reference: "lock entry " + key.(string) + " missing from the lock graph",
			}
		}
		for _, ref := range deps {
			resolved, err := ctx.Lockfile.ResolvePackage(ref.Name, ref.Version)
			if err != nil || !resolved.Found {
				return &InternalConsistencyError{
					Reference: "lock entry " + key.(string) + " references unresolvable " + ref.Name,
				}
			}
			if !retainedPackages.Contains(resolved.Key) {
				return &InternalConsistencyError{
					Reference: "lock entry " + key.(string) + " references pruned entry " + resolved.Key,
				}
			}
		}
	}
	return nil
}

// filterManifests keeps the root manifest and the manifests of retained
// members, preserving the original manifest order. Manifests that never
// mapped to a member pass through untouched. The root manifest's
// [workspace] members list is rewritten to the retained member paths so the
// reduced snapshot stays self-consistent and reducible again.
func filterManifests(r *recipe.Recipe, ctx *context.Context, retainedMembers mapset.Set) error {
	memberByPath := make(map[string]string, len(ctx.MemberInfos))
	for name, info := range ctx.MemberInfos {
		memberByPath[info.ManifestPath] = name
	}
	retainedPaths := make(map[string]bool, retainedMembers.Cardinality())
	for _, member := range retainedMembers.ToSlice() {
		info := ctx.MemberInfos[member.(string)]
		retainedPaths[manifest.MemberPathOf(info.ManifestPath)] = true
	}

	manifests := make([]recipe.Manifest, 0, len(r.Skeleton.Manifests))
	for _, m := range r.Skeleton.Manifests {
		name, isMember := memberByPath[m.RelativePath]
		if !isMember || retainedMembers.Contains(name) {
			manifests = append(manifests, m)
		}
	}
	r.Skeleton.Manifests = manifests

	for i := range r.Skeleton.Manifests {
		m := &r.Skeleton.Manifests[i]
		if m.RelativePath != context.RootManifestPath {
			continue
		}
		rewritten, err := manifest.FilterWorkspaceMembers(m.Contents, func(member string) bool {
			// glob entries cannot be resolved against embedded paths, they
			// narrow on their own once the pruned manifests are gone
			return strings.Contains(member, "*") || retainedPaths[member]
		})
		if err != nil {
			return &recipe.MalformedRecipeError{Section: context.RootManifestPath, Err: err}
		}
		m.Contents = rewritten
	}
	return nil
}

// rewriteLockfile replaces the embedded lock file with the subgraph of the
// retained entries.
func rewriteLockfile(r *recipe.Recipe, lock lockfile.Lockfile, retainedPackages mapset.Set) error {
	sub, err := lock.Subgraph(setStrings(retainedPackages))
	if err != nil {
		return errors.Wrap(err, "failed creating reduced lockfile")
	}
	var buf bytes.Buffer
	if err := sub.Encode(&buf); err != nil {
		return errors.Wrap(err, "failed to encode reduced lockfile")
	}
	contents := buf.String()
	r.Skeleton.LockFile = &contents
	return nil
}

func setStrings(set mapset.Set) []string {
	if set == nil {
		return nil
	}
	out := make([]string, 0, set.Cardinality())
	for _, v := range set.ToSlice() {
		out = append(out, v.(string))
	}
	sort.Strings(out)
	return out
}
