package reduce

import (
	stderrors "errors"
	"os"
	"sort"
	"testing"

	"gotest.tools/v3/assert"

	"github.com/preiter93/cargo-reduce-recipe/internal/context"
	"github.com/preiter93/cargo-reduce-recipe/internal/lockfile"
	"github.com/preiter93/cargo-reduce-recipe/internal/recipe"
)

func getFixture(t *testing.T, name string) []byte {
	t.Helper()
	content, err := os.ReadFile("testdata/" + name)
	if err != nil {
		t.Fatal(err)
	}
	return content
}

func reduceFixture(t *testing.T, name string, member string) *Result {
	t.Helper()
	r, err := recipe.Decode(getFixture(t, name))
	assert.NilError(t, err)
	result, err := Reduce(r, member)
	assert.NilError(t, err)
	return result
}

func manifestPaths(r *recipe.Recipe) []string {
	paths := make([]string, 0, len(r.Skeleton.Manifests))
	for _, m := range r.Skeleton.Manifests {
		paths = append(paths, m.RelativePath)
	}
	sort.Strings(paths)
	return paths
}

func lockKeys(t *testing.T, r *recipe.Recipe) []string {
	t.Helper()
	assert.Assert(t, r.Skeleton.LockFile != nil)
	lock, err := lockfile.DecodeCargoLockfile([]byte(*r.Skeleton.LockFile))
	assert.NilError(t, err)
	return lockfile.SortedKeys(lock)
}

// A member without workspace dependencies keeps only itself: the sibling and
// the sibling's external dependencies must disappear from the snapshot.
func TestReduceRecipeWithoutMemberDependency(t *testing.T) {
	result := reduceFixture(t, "recipe.json", "bar")

	assert.DeepEqual(t, result.RetainedMembers, []string{"bar"})
	assert.DeepEqual(t, manifestPaths(result.Recipe), []string{"Cargo.toml", "bar/Cargo.toml"})
	assert.DeepEqual(t, lockKeys(t, result.Recipe), []string{
		"bar@0.1.0",
		"rand@0.8.5",
		"rand_core@0.6.4",
	})

	// pruned members disappear from the root members list too
	assert.Equal(t, result.Recipe.Skeleton.Manifests[0].Contents, "[workspace]\nmembers = [\"bar\"]\n")
}

func TestReduceKeepsTransitiveMembers(t *testing.T) {
	result := reduceFixture(t, "chain-recipe.json", "app")

	assert.DeepEqual(t, result.RetainedMembers, []string{"app", "liba", "libb"})
	assert.DeepEqual(t, lockKeys(t, result.Recipe), []string{
		"app@0.1.0",
		"itoa@1.0.9",
		"liba@0.1.0",
		"libb@0.1.0",
	})
}

func TestReduceChainLeaf(t *testing.T) {
	result := reduceFixture(t, "chain-recipe.json", "libb")

	assert.DeepEqual(t, result.RetainedMembers, []string{"libb"})
	assert.DeepEqual(t, lockKeys(t, result.Recipe), []string{
		"itoa@1.0.9",
		"libb@0.1.0",
	})
}

func TestReduceUnknownMember(t *testing.T) {
	r, err := recipe.Decode(getFixture(t, "recipe.json"))
	assert.NilError(t, err)

	_, err = Reduce(r, "baz")
	var unknown *context.UnknownMemberError
	assert.Assert(t, stderrors.As(err, &unknown), "expected UnknownMemberError, got %v", err)
	assert.Equal(t, unknown.Member, "baz")
	assert.DeepEqual(t, unknown.Known, []string{"bar", "foo"})
}

func TestReduceDoesNotMutateInput(t *testing.T) {
	r, err := recipe.Decode(getFixture(t, "recipe.json"))
	assert.NilError(t, err)

	_, err = Reduce(r, "bar")
	assert.NilError(t, err)

	assert.Equal(t, len(r.Skeleton.Manifests), 3)
}

// Reducing an already-reduced snapshot for the same root is a fixpoint.
func TestReduceIsIdempotent(t *testing.T) {
	first, err := ReduceBytes(getFixture(t, "recipe.json"), "bar")
	assert.NilError(t, err)

	second, err := ReduceBytes(first, "bar")
	assert.NilError(t, err)

	assert.DeepEqual(t, string(first), string(second))
}

// Every dependency reference inside the reduced snapshot must resolve inside
// that same snapshot.
func TestReducedSnapshotIsClosed(t *testing.T) {
	for _, tc := range []struct {
		fixture string
		member  string
	}{
		{"recipe.json", "bar"},
		{"recipe.json", "foo"},
		{"chain-recipe.json", "app"},
		{"chain-recipe.json", "liba"},
	} {
		result := reduceFixture(t, tc.fixture, tc.member)

		ctx, err := context.Build(result.Recipe)
		assert.NilError(t, err, "%s/%s", tc.fixture, tc.member)

		members := make(map[string]bool, len(ctx.MemberNames))
		for _, name := range ctx.MemberNames {
			members[name] = true
		}
		for _, name := range ctx.MemberNames {
			for _, dep := range ctx.MemberInfos[name].InternalDeps {
				assert.Assert(t, members[dep], "%s references pruned member %s", name, dep)
			}
		}
	}
}

func TestReduceRecipeWithoutLockfile(t *testing.T) {
	r := &recipe.Recipe{}
	r.Skeleton.Manifests = []recipe.Manifest{
		{RelativePath: "Cargo.toml", Contents: "[workspace]\nmembers = [\"foo\"]\n"},
		{RelativePath: "foo/Cargo.toml", Contents: "[package]\nname = \"foo\"\nversion = \"0.1.0\"\n"},
	}

	result, err := Reduce(r, "foo")
	assert.NilError(t, err)
	assert.DeepEqual(t, result.RetainedMembers, []string{"foo"})
	assert.Assert(t, result.Recipe.Skeleton.LockFile == nil)
	assert.Equal(t, len(result.RetainedPackages), 0)
}

// Renames let one crate depend on two versions of the same name. Both lock
// entries must survive the reduction, every run.
func TestReduceKeepsEveryVersionOfDuplicatedDependency(t *testing.T) {
	lock := `version = 3

[[package]]
name = "base64"
version = "0.13.1"

[[package]]
name = "base64"
version = "0.21.0"

[[package]]
name = "foo"
version = "0.1.0"
dependencies = ["base64 0.13.1", "base64 0.21.0"]
`
	r := &recipe.Recipe{}
	r.Skeleton.Manifests = []recipe.Manifest{
		{RelativePath: "Cargo.toml", Contents: "[workspace]\nmembers = [\"foo\"]\n"},
		{RelativePath: "foo/Cargo.toml", Contents: `[package]
name = "foo"
version = "0.1.0"

[dependencies]
base64 = "0.21"
base64_old = { package = "base64", version = "0.13" }
`},
	}
	r.Skeleton.LockFile = &lock

	result, err := Reduce(r, "foo")
	assert.NilError(t, err)
	assert.DeepEqual(t, lockKeys(t, result.Recipe), []string{
		"base64@0.13.1",
		"base64@0.21.0",
		"foo@0.1.0",
	})
}

// A root manifest that defines a package is itself a workspace member: it is
// selectable as the reduction root, and since its manifest is always emitted
// its dependencies stay in the snapshot for any root.
func TestReduceRootPackageWorkspace(t *testing.T) {
	lock := `version = 3

[[package]]
name = "itoa"
version = "1.0.9"

[[package]]
name = "leaf"
version = "0.1.0"

[[package]]
name = "root"
version = "0.1.0"
dependencies = ["itoa"]
`
	r := &recipe.Recipe{}
	r.Skeleton.Manifests = []recipe.Manifest{
		{RelativePath: "Cargo.toml", Contents: `[package]
name = "root"
version = "0.1.0"

[workspace]
members = ["leaf"]

[dependencies]
itoa = "1.0"
`},
		{RelativePath: "leaf/Cargo.toml", Contents: "[package]\nname = \"leaf\"\nversion = \"0.1.0\"\n"},
	}
	r.Skeleton.LockFile = &lock

	result, err := Reduce(r.Clone(), "root")
	assert.NilError(t, err)
	assert.DeepEqual(t, result.RetainedMembers, []string{"root"})
	assert.DeepEqual(t, lockKeys(t, result.Recipe), []string{"itoa@1.0.9", "root@0.1.0"})

	result, err = Reduce(r, "leaf")
	assert.NilError(t, err)
	assert.DeepEqual(t, result.RetainedMembers, []string{"leaf", "root"})
	assert.DeepEqual(t, lockKeys(t, result.Recipe), []string{
		"itoa@1.0.9",
		"leaf@0.1.0",
		"root@0.1.0",
	})
}

func TestReduceUnresolvedExternalDependency(t *testing.T) {
	lock := "version = 3\n\n[[package]]\nname = \"foo\"\nversion = \"0.1.0\"\n"
	r := &recipe.Recipe{}
	r.Skeleton.Manifests = []recipe.Manifest{
		{RelativePath: "Cargo.toml", Contents: "[workspace]\nmembers = [\"foo\"]\n"},
		{RelativePath: "foo/Cargo.toml", Contents: "[package]\nname = \"foo\"\nversion = \"0.1.0\"\n\n[dependencies]\nserde = \"1.0\"\n"},
	}
	r.Skeleton.LockFile = &lock

	_, err := Reduce(r, "foo")
	var unresolved *lockfile.UnresolvedDependencyError
	assert.Assert(t, stderrors.As(err, &unresolved), "expected UnresolvedDependencyError, got %v", err)
	assert.Equal(t, unresolved.Name, "serde")
	assert.Equal(t, unresolved.Dependent, "foo")
}
