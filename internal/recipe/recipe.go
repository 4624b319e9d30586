// Package recipe models the serialized snapshot produced by the upstream
// recipe generator. The model is deliberately shallow: only the fields the
// reduction engine inspects are typed, everything else is carried through
// decode and encode as raw bytes so the downstream consumer never loses data
// this engine does not understand.
package recipe

import (
	"encoding/json"
	"io"

	"github.com/pkg/errors"
)

// Manifest is one embedded workspace manifest.
type Manifest struct {
	// RelativePath locates the manifest within the workspace, e.g.
	// "Cargo.toml" for the root manifest or "crates/foo/Cargo.toml".
	RelativePath string
	// Contents is the full manifest text.
	Contents string

	extra fieldSet
}

// Skeleton is the manifest and lockfile collection inside a recipe.
type Skeleton struct {
	Manifests []Manifest
	// LockFile is the embedded lock file text, nil when the workspace has
	// never been resolved.
	LockFile *string

	extra fieldSet
}

// Recipe is the top level snapshot container.
type Recipe struct {
	Skeleton Skeleton

	extra fieldSet
}

// fieldSet holds the JSON fields of an object that the engine does not
// inspect. They are re-emitted verbatim on encode.
type fieldSet map[string]json.RawMessage

func (f fieldSet) clone() fieldSet {
	if f == nil {
		return nil
	}
	out := make(fieldSet, len(f))
	for k, v := range f {
		out[k] = append(json.RawMessage(nil), v...)
	}
	return out
}

// pop decodes and removes a known field, leaving the remainder as
// pass-through data. Missing fields leave out untouched.
func (f fieldSet) pop(key string, out interface{}) error {
	raw, ok := f[key]
	if !ok {
		return nil
	}
	delete(f, key)
	if err := json.Unmarshal(raw, out); err != nil {
		return errors.Wrapf(err, "field %q", key)
	}
	return nil
}

func (f fieldSet) put(key string, value interface{}) error {
	raw, err := json.Marshal(value)
	if err != nil {
		return errors.Wrapf(err, "field %q", key)
	}
	f[key] = raw
	return nil
}

// UnmarshalJSON decodes a manifest, keeping unknown fields.
func (m *Manifest) UnmarshalJSON(data []byte) error {
	fields := fieldSet{}
	if err := json.Unmarshal(data, &fields); err != nil {
		return err
	}
	if err := fields.pop("relative_path", &m.RelativePath); err != nil {
		return err
	}
	if err := fields.pop("contents", &m.Contents); err != nil {
		return err
	}
	m.extra = fields
	return nil
}

// MarshalJSON re-assembles the manifest, unknown fields included.
func (m Manifest) MarshalJSON() ([]byte, error) {
	fields := m.extra.clone()
	if fields == nil {
		fields = fieldSet{}
	}
	if err := fields.put("relative_path", m.RelativePath); err != nil {
		return nil, err
	}
	if err := fields.put("contents", m.Contents); err != nil {
		return nil, err
	}
	return json.Marshal(fields)
}

// UnmarshalJSON decodes a skeleton, keeping unknown fields.
func (s *Skeleton) UnmarshalJSON(data []byte) error {
	fields := fieldSet{}
	if err := json.Unmarshal(data, &fields); err != nil {
		return err
	}
	if err := fields.pop("manifests", &s.Manifests); err != nil {
		return err
	}
	if err := fields.pop("lock_file", &s.LockFile); err != nil {
		return err
	}
	s.extra = fields
	return nil
}

// MarshalJSON re-assembles the skeleton, unknown fields included.
func (s Skeleton) MarshalJSON() ([]byte, error) {
	fields := s.extra.clone()
	if fields == nil {
		fields = fieldSet{}
	}
	manifests := s.Manifests
	if manifests == nil {
		manifests = []Manifest{}
	}
	if err := fields.put("manifests", manifests); err != nil {
		return nil, err
	}
	if err := fields.put("lock_file", s.LockFile); err != nil {
		return nil, err
	}
	return json.Marshal(fields)
}

// UnmarshalJSON decodes a recipe, keeping unknown fields.
func (r *Recipe) UnmarshalJSON(data []byte) error {
	fields := fieldSet{}
	if err := json.Unmarshal(data, &fields); err != nil {
		return err
	}
	if _, ok := fields["skeleton"]; !ok {
		return errors.New("missing field \"skeleton\"")
	}
	if err := fields.pop("skeleton", &r.Skeleton); err != nil {
		return err
	}
	r.extra = fields
	return nil
}

// MarshalJSON re-assembles the recipe, unknown fields included.
func (r Recipe) MarshalJSON() ([]byte, error) {
	fields := r.extra.clone()
	if fields == nil {
		fields = fieldSet{}
	}
	if err := fields.put("skeleton", r.Skeleton); err != nil {
		return nil, err
	}
	return json.Marshal(fields)
}

// Clone returns a deep copy of the recipe. The reducer derives its output
// from a clone so the input model is never mutated.
func (r *Recipe) Clone() *Recipe {
	out := &Recipe{extra: r.extra.clone()}
	out.Skeleton.extra = r.Skeleton.extra.clone()
	if r.Skeleton.LockFile != nil {
		lock := *r.Skeleton.LockFile
		out.Skeleton.LockFile = &lock
	}
	if r.Skeleton.Manifests != nil {
		out.Skeleton.Manifests = make([]Manifest, len(r.Skeleton.Manifests))
		for i, m := range r.Skeleton.Manifests {
			out.Skeleton.Manifests[i] = Manifest{
				RelativePath: m.RelativePath,
				Contents:     m.Contents,
				extra:        m.extra.clone(),
			}
		}
	}
	return out
}

// Decode parses snapshot bytes into a Recipe.
func Decode(contents []byte) (*Recipe, error) {
	var r Recipe
	if err := json.Unmarshal(contents, &r); err != nil {
		return nil, &MalformedRecipeError{Section: "recipe", Err: err}
	}
	for _, m := range r.Skeleton.Manifests {
		if m.RelativePath == "" {
			return nil, &MalformedRecipeError{
				Section: "skeleton.manifests",
				Err:     errors.New("manifest without a relative_path"),
			}
		}
	}
	return &r, nil
}

// Encode renders the recipe back to the exchange format.
func (r *Recipe) Encode(w io.Writer) error {
	out, err := json.Marshal(r)
	if err != nil {
		return &SerializationError{Err: err}
	}
	if _, err := w.Write(out); err != nil {
		return &SerializationError{Err: err}
	}
	return nil
}
