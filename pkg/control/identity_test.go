package control

import (
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/matzehuels/debsrc/pkg/errors"
)

func TestParseIdentities(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  []Identity
	}{
		{"single", "foo <bar>", []Identity{{"foo", "bar"}}},
		{"two", "foo <bar>, baz <quux>", []Identity{{"foo", "bar"}, {"baz", "quux"}}},
		{"trailing comma", "foo <bar>,", []Identity{{"foo", "bar"}}},
		{"folded", "Jane Doe <jane@example.org>,\nDebian Go Team <team+go@tracker.debian.org>", []Identity{
			{"Jane Doe", "jane@example.org"},
			{"Debian Go Team", "team+go@tracker.debian.org"},
		}},
		{"escaped quote", `O\'Brien <ob@example.org>`, []Identity{{"O'Brien", "ob@example.org"}}},
		{"hex escape", `\x61bc <a@b>`, []Identity{{"abc", "a@b"}}},
		{"empty", "", nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParseIdentities("Maintainer", tt.input)
			if err != nil {
				t.Fatalf("ParseIdentities(%q) error: %v", tt.input, err)
			}
			if diff := cmp.Diff(tt.want, got); diff != "" {
				t.Errorf("mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

func TestParseIdentitiesErrors(t *testing.T) {
	for _, input := range []string{
		"just@email.com",
		"foo <bar",
		"foo <bar> baz <quux>",
		`fo\ <bar>`,
		`fo\a <bar>`,
		`fo\xZZ <bar>`,
	} {
		t.Run(input, func(t *testing.T) {
			_, err := ParseIdentities("Uploaders", input)
			if !errors.Is(err, errors.ErrCodeMalformedListEntry) {
				t.Fatalf("expected MALFORMED_LIST_ENTRY, got %v", err)
			}
			if errors.FieldOf(err) != "Uploaders" {
				t.Errorf("FieldOf() = %q", errors.FieldOf(err))
			}
		})
	}
}

func TestIdentityString(t *testing.T) {
	id := Identity{Name: "Jane Doe", Email: "jane@example.org"}
	if got := id.String(); got != "Jane Doe <jane@example.org>" {
		t.Errorf("String() = %q", got)
	}
}
