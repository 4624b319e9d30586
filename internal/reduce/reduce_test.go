package reduce

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/hashicorp/go-hclog"
	"github.com/mitchellh/cli"
	"gotest.tools/v3/assert"

	"github.com/preiter93/cargo-reduce-recipe/internal/cmdutil"
)

func testHelper() *cmdutil.Helper {
	return &cmdutil.Helper{
		Logger: hclog.NewNullLogger(),
		UI:     &cli.BasicUi{Writer: os.Stderr, ErrorWriter: os.Stderr},
	}
}

func TestReduceRunWritesOutput(t *testing.T) {
	dir := t.TempDir()
	outputPath := filepath.Join(dir, "reduced-recipe.json")

	r := &reduceRun{base: testHelper()}
	err := r.run(&opts{
		member:     "bar",
		recipePath: "testdata/recipe.json",
		outputPath: outputPath,
	})
	assert.NilError(t, err)

	reduced, err := os.ReadFile(outputPath)
	assert.NilError(t, err)

	again, err := ReduceBytes(reduced, "bar")
	assert.NilError(t, err)
	assert.DeepEqual(t, string(reduced), string(again))
}

func TestReduceRunUnknownMemberLeavesNoOutput(t *testing.T) {
	dir := t.TempDir()
	outputPath := filepath.Join(dir, "reduced-recipe.json")

	r := &reduceRun{base: testHelper()}
	err := r.run(&opts{
		member:     "does-not-exist",
		recipePath: "testdata/recipe.json",
		outputPath: outputPath,
	})
	assert.ErrorContains(t, err, "does-not-exist")

	_, statErr := os.Stat(outputPath)
	assert.Assert(t, os.IsNotExist(statErr))
}

func TestReduceRunMissingRecipeFile(t *testing.T) {
	r := &reduceRun{base: testHelper()}
	err := r.run(&opts{
		member:     "bar",
		recipePath: filepath.Join(t.TempDir(), "missing.json"),
		outputPath: filepath.Join(t.TempDir(), "out.json"),
	})
	assert.ErrorContains(t, err, "failed to read")
}
