package context

import (
	"fmt"
	"strings"
)

// UnknownMemberError the requested root member is not part of the workspace.
// Known carries the sorted member names to aid the caller.
type UnknownMemberError struct {
	Member string
	Known  []string
}

func (e *UnknownMemberError) Error() string {
	if len(e.Known) == 0 {
		return fmt.Sprintf("unknown workspace member %q: the recipe contains no members", e.Member)
	}
	return fmt.Sprintf("unknown workspace member %q: known members are %s", e.Member, strings.Join(e.Known, ", "))
}
