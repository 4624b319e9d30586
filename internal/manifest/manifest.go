// Package manifest parses the Cargo manifests embedded in a recipe. Only the
// dependency-relevant slice of a manifest is modeled: package identity,
// workspace membership and the dependency tables. Build scripts, features and
// publishing metadata stay in the raw manifest text and are never touched.
package manifest

import (
	"strings"

	"github.com/BurntSushi/toml"
	"github.com/pkg/errors"
)

// Dependency is a single requirement declared by a dependency table entry.
type Dependency struct {
	// Name is the crate name as it resolves in the registry. When the entry
	// uses `package = "..."` the rename target is the name, not the table key.
	Name string
	// Req is the declared version requirement. Empty for path-only entries
	// and for workspace-inherited entries the root never pins.
	Req string
	// Path is set for path dependencies.
	Path string
	// Workspace is set for `workspace = true` entries whose requirement is
	// inherited from the root [workspace.dependencies] table.
	Workspace bool
}

// Info is the parsed, dependency-relevant view of one manifest.
type Info struct {
	// Name is empty for a virtual root manifest.
	Name    string
	Version string
	// WorkspaceMembers holds the [workspace] members paths of a root manifest.
	WorkspaceMembers []string
	// WorkspaceDeps holds the root [workspace.dependencies] table, keyed by
	// the table key (pre-rename name).
	WorkspaceDeps map[string]Dependency
	// Dependencies is the union of [dependencies], [dev-dependencies],
	// [build-dependencies] and every [target.<cfg>.*] variant.
	Dependencies []Dependency
}

type rawDependencyTables struct {
	Dependencies      map[string]toml.Primitive `toml:"dependencies"`
	DevDependencies   map[string]toml.Primitive `toml:"dev-dependencies"`
	BuildDependencies map[string]toml.Primitive `toml:"build-dependencies"`
}

type rawManifest struct {
	Package *struct {
		Name    string `toml:"name"`
		Version string `toml:"version"`
	} `toml:"package"`
	Workspace *struct {
		Members      []string                  `toml:"members"`
		Dependencies map[string]toml.Primitive `toml:"dependencies"`
	} `toml:"workspace"`
	rawDependencyTables
	Target map[string]rawDependencyTables `toml:"target"`
}

type rawDependencyDetail struct {
	Version   string `toml:"version"`
	Path      string `toml:"path"`
	Package   string `toml:"package"`
	Workspace bool   `toml:"workspace"`
}

// Parse decodes one manifest's text.
func Parse(contents string) (*Info, error) {
	var raw rawManifest
	md, err := toml.Decode(contents, &raw)
	if err != nil {
		return nil, errors.Wrap(err, "invalid toml")
	}

	info := &Info{}
	if raw.Package != nil {
		info.Name = raw.Package.Name
		info.Version = raw.Package.Version
	}
	if raw.Workspace != nil {
		info.WorkspaceMembers = raw.Workspace.Members
		if len(raw.Workspace.Dependencies) > 0 {
			info.WorkspaceDeps = make(map[string]Dependency, len(raw.Workspace.Dependencies))
			for name, prim := range raw.Workspace.Dependencies {
				dep, err := decodeDependency(md, name, prim)
				if err != nil {
					return nil, err
				}
				info.WorkspaceDeps[name] = dep
			}
		}
	}

	tables := []rawDependencyTables{raw.rawDependencyTables}
	for _, target := range raw.Target {
		tables = append(tables, target)
	}
	for _, t := range tables {
		for _, deps := range []map[string]toml.Primitive{t.Dependencies, t.DevDependencies, t.BuildDependencies} {
			for name, prim := range deps {
				dep, err := decodeDependency(md, name, prim)
				if err != nil {
					return nil, err
				}
				info.Dependencies = append(info.Dependencies, dep)
			}
		}
	}

	return info, nil
}

// decodeDependency handles both entry shapes: a bare requirement string
// (`serde = "1.0"`) and a detail table (`serde = { version = "1.0" }`).
func decodeDependency(md toml.MetaData, name string, prim toml.Primitive) (Dependency, error) {
	var req string
	if err := md.PrimitiveDecode(prim, &req); err == nil {
		return Dependency{Name: name, Req: req}, nil
	}

	var detail rawDependencyDetail
	if err := md.PrimitiveDecode(prim, &detail); err != nil {
		return Dependency{}, errors.Wrapf(err, "dependency %q", name)
	}
	dep := Dependency{
		Name:      name,
		Req:       detail.Version,
		Path:      detail.Path,
		Workspace: detail.Workspace,
	}
	if detail.Package != "" {
		dep.Name = detail.Package
	}
	return dep, nil
}

// FilterWorkspaceMembers rewrites the [workspace] members array of a root
// manifest, keeping only the entries keep approves. Everything outside the
// array brackets is left byte for byte as it was, and the contents are
// returned unchanged when no entry gets dropped.
func FilterWorkspaceMembers(contents string, keep func(member string) bool) (string, error) {
	start, ok := workspaceMembersStart(contents)
	if !ok {
		return contents, nil
	}
	end, err := matchArrayEnd(contents, start)
	if err != nil {
		return "", err
	}

	kept := make([]string, 0, 4)
	dropped := false
	for _, member := range arrayStrings(contents[start+1 : end]) {
		if keep(member) {
			kept = append(kept, member)
		} else {
			dropped = true
		}
	}
	if !dropped {
		return contents, nil
	}

	quoted := make([]string, len(kept))
	for i, member := range kept {
		quoted[i] = `"` + member + `"`
	}
	return contents[:start+1] + strings.Join(quoted, ", ") + contents[end:], nil
}

// workspaceMembersStart locates the opening bracket of the members array
// inside the [workspace] table. Line based: a TOML table only changes at a
// header line, and the members key always starts its own line.
func workspaceMembersStart(contents string) (int, bool) {
	table := ""
	offset := 0
	for offset <= len(contents) {
		line := contents[offset:]
		if idx := strings.IndexByte(line, '\n'); idx >= 0 {
			line = line[:idx]
		}
		trimmed := strings.TrimSpace(line)

		if strings.HasPrefix(trimmed, "[") {
			table = strings.Trim(trimmed, "[]")
		} else if key, _, found := strings.Cut(trimmed, "="); found {
			key = strings.TrimSpace(key)
			inWorkspace := table == "workspace" && key == "members"
			dotted := table == "" && key == "workspace.members"
			if inWorkspace || dotted {
				eq := strings.IndexByte(line, '=')
				if bracket := strings.IndexByte(line[eq:], '['); bracket >= 0 {
					return offset + eq + bracket, true
				}
				return 0, false
			}
		}

		offset += len(line) + 1
	}
	return 0, false
}

// matchArrayEnd scans from an opening bracket to its matching close,
// skipping over strings and comments.
func matchArrayEnd(contents string, start int) (int, error) {
	depth := 0
	for i := start; i < len(contents); i++ {
		switch contents[i] {
		case '[':
			depth++
		case ']':
			depth--
			if depth == 0 {
				return i, nil
			}
		case '"', '\'':
			end, err := skipString(contents, i)
			if err != nil {
				return 0, err
			}
			i = end
		case '#':
			for i < len(contents) && contents[i] != '\n' {
				i++
			}
		}
	}
	return 0, errors.New("unterminated members array")
}

// arrayStrings collects the string elements of an array body, ignoring
// commas, whitespace and comments.
func arrayStrings(body string) []string {
	var out []string
	for i := 0; i < len(body); i++ {
		switch body[i] {
		case '"', '\'':
			end, err := skipString(body, i)
			if err != nil {
				return out
			}
			out = append(out, body[i+1:end])
			i = end
		case '#':
			for i < len(body) && body[i] != '\n' {
				i++
			}
		}
	}
	return out
}

// skipString returns the index of the closing quote of the string starting
// at i. Basic strings honor backslash escapes, literal strings do not.
func skipString(s string, i int) (int, error) {
	quote := s[i]
	for j := i + 1; j < len(s); j++ {
		switch s[j] {
		case '\\':
			if quote == '"' {
				j++
			}
		case quote:
			return j, nil
		}
	}
	return 0, errors.New("unterminated string")
}

// MemberPathOf returns the workspace-relative directory of a manifest path,
// e.g. "crates/foo" for "crates/foo/Cargo.toml". The root manifest maps to "".
func MemberPathOf(manifestPath string) string {
	normalized := strings.ReplaceAll(manifestPath, "\\", "/")
	if idx := strings.LastIndex(normalized, "/"); idx >= 0 {
		return normalized[:idx]
	}
	return ""
}
