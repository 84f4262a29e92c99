package control

import (
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/matzehuels/debsrc/pkg/errors"
	"github.com/matzehuels/debsrc/pkg/ledger"
	"github.com/matzehuels/debsrc/pkg/stanza"
)

func newLedger(t *testing.T, fields ...stanza.Field) *ledger.Ledger {
	t.Helper()
	st, err := stanza.New(fields...)
	if err != nil {
		t.Fatal(err)
	}
	return ledger.New(st)
}

func TestCollectVcs(t *testing.T) {
	l := newLedger(t,
		stanza.Field{Name: "Vcs-Git", Value: "https://salsa.debian.org/hello.git"},
		stanza.Field{Name: "Vcs-Browse", Value: " https://salsa.debian.org/hello "},
		stanza.Field{Name: "Vcs-Upstream-Bzr", Value: "lp:hello"},
		stanza.Field{Name: "Original-Vcs-Git", Value: "git://example.org/hello"},
		stanza.Field{Name: "Vcs-Svn", Value: ""},
		stanza.Field{Name: "Homepage", Value: "https://example.org"},
	)

	got, err := CollectVcs(l)
	if err != nil {
		t.Fatalf("CollectVcs() error: %v", err)
	}

	want := []VcsReference{
		{System: VcsBrowser, Kind: VcsKindVcs, Description: "https://salsa.debian.org/hello"},
		{System: VcsBzr, Kind: VcsKindUpstream, Description: "lp:hello"},
		{System: VcsGit, Kind: VcsKindVcs, Description: "https://salsa.debian.org/hello.git"},
		{System: VcsGit, Kind: VcsKindOrig, Description: "git://example.org/hello"},
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("mismatch (-want +got):\n%s", diff)
	}

	if diff := cmp.Diff([]string{"Homepage"}, l.Leftovers()); diff != "" {
		t.Errorf("Leftovers() mismatch (-want +got):\n%s", diff)
	}
}

func TestCollectVcsAliasConflict(t *testing.T) {
	l := newLedger(t,
		stanza.Field{Name: "Vcs-Browser", Value: "https://a"},
		stanza.Field{Name: "Vcs-Browse", Value: "https://b"},
	)
	_, err := CollectVcs(l)
	if !errors.Is(err, errors.ErrCodeDuplicateField) {
		t.Fatalf("expected DUPLICATE_FIELD, got %v", err)
	}
}

func TestCollectVcsRepeatedField(t *testing.T) {
	l := newLedger(t,
		stanza.Field{Name: "Vcs-Git", Value: "https://a"},
		stanza.Field{Name: "Vcs-Git", Value: "https://b"},
	)
	_, err := CollectVcs(l)
	if !errors.Is(err, errors.ErrCodeDuplicateField) {
		t.Fatalf("expected DUPLICATE_FIELD, got %v", err)
	}
}

func TestVcsFieldNames(t *testing.T) {
	got := VcsFieldNames(VcsGit, VcsKindOrig)
	want := []string{"Orig-Vcs-Git", "Vcs-Orig-Git", "Original-Vcs-Git", "Vcs-Original-Git"}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("mismatch (-want +got):\n%s", diff)
	}
}
