package control

import (
	"strings"

	"github.com/matzehuels/debsrc/pkg/errors"
	"github.com/matzehuels/debsrc/pkg/ledger"
)

// VcsReference points at a repository or repository browser.
type VcsReference struct {
	System      VcsSystem
	Kind        VcsKind
	Description string // usually a URL
}

// VcsFieldNames returns every spelling of the VCS field for (system, kind).
// The accepted forms are Vcs-<System>, <Kind>-Vcs-<System> and
// Vcs-<Kind>-<System>.
func VcsFieldNames(system VcsSystem, kind VcsKind) []string {
	var names []string
	for _, sys := range vcsSystemTokens[system] {
		if kind == VcsKindVcs {
			names = append(names, "Vcs-"+sys)
			continue
		}
		for _, k := range vcsKindTokens[kind] {
			names = append(names, k+"-Vcs-"+sys, "Vcs-"+k+"-"+sys)
		}
	}
	return names
}

// CollectVcs consumes every VCS field from l. The result holds at most one
// reference per (system, kind), ordered by system then kind.
//
// All spellings are consumed even when empty. Two spellings with values for
// the same (system, kind) fail with DUPLICATE_FIELD.
func CollectVcs(l *ledger.Ledger) ([]VcsReference, error) {
	var refs []VcsReference
	for sys := VcsSystem(0); sys < vcsSystemCount; sys++ {
		for kind := VcsKind(0); kind < vcsKindCount; kind++ {
			var (
				found string
				from  string
			)
			for _, name := range VcsFieldNames(sys, kind) {
				val, ok, err := l.TakeOptional(name)
				if err != nil {
					return nil, err
				}
				val = strings.TrimSpace(val)
				if !ok || val == "" {
					continue
				}
				if from != "" {
					return nil, errors.ForField(errors.ErrCodeDuplicateField, name,
						"%s and %s both describe %s %s", from, name, kind, sys)
				}
				found, from = val, name
			}
			if from != "" {
				refs = append(refs, VcsReference{System: sys, Kind: kind, Description: found})
			}
		}
	}
	return refs, nil
}
