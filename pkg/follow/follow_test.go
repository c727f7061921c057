package follow

import (
	"context"
	"errors"
	"reflect"
	"strings"
	"testing"
)

func TestDiff(t *testing.T) {
	tests := []struct {
		name      string
		a, b      Set
		wantBNotA []string
		wantANotB []string
	}{
		{
			name:      "overlap",
			a:         NewSet("a", "b", "c"),
			b:         NewSet("b", "c", "d"),
			wantBNotA: []string{"d"},
			wantANotB: []string{"a"},
		},
		{
			name:      "identical",
			a:         NewSet("x", "y"),
			b:         NewSet("y", "x"),
			wantBNotA: []string{},
			wantANotB: []string{},
		},
		{
			name:      "disjoint",
			a:         NewSet("a"),
			b:         NewSet("b"),
			wantBNotA: []string{"b"},
			wantANotB: []string{"a"},
		},
		{
			name:      "empty a",
			a:         NewSet(),
			b:         NewSet("b", "c"),
			wantBNotA: []string{"b", "c"},
			wantANotB: []string{},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Diff(tt.a, tt.b)
			if !reflect.DeepEqual(got.InBNotA.Sorted(), tt.wantBNotA) {
				t.Errorf("InBNotA = %v, want %v", got.InBNotA.Sorted(), tt.wantBNotA)
			}
			if !reflect.DeepEqual(got.InANotB.Sorted(), tt.wantANotB) {
				t.Errorf("InANotB = %v, want %v", got.InANotB.Sorted(), tt.wantANotB)
			}
		})
	}
}

func TestDiff_DoesNotModifyInputs(t *testing.T) {
	a := NewSet("a", "b")
	b := NewSet("b", "c")
	Diff(a, b)
	if a.Len() != 2 || b.Len() != 2 {
		t.Errorf("inputs changed: a=%v b=%v", a.Sorted(), b.Sorted())
	}
}

func TestSet(t *testing.T) {
	s := NewSet("octocat", "octocat", "hubot")
	if s.Len() != 2 {
		t.Errorf("Len() = %d, want 2", s.Len())
	}
	if !s.Has("hubot") || s.Has("ghost") {
		t.Error("Has() mismatch")
	}
	if got := s.Sorted(); !reflect.DeepEqual(got, []string{"hubot", "octocat"}) {
		t.Errorf("Sorted() = %v", got)
	}
}

type stubSource map[Kind]struct {
	set Set
	err error
}

func (s stubSource) Users(_ context.Context, kind Kind) (Set, error) {
	r := s[kind]
	return r.set, r.err
}

func TestCheck(t *testing.T) {
	src := stubSource{
		Followers: {set: NewSet("alice", "bob", "carol")},
		Following: {set: NewSet("bob", "carol", "dave")},
	}

	status, err := Check(context.Background(), src)
	if err != nil {
		t.Fatalf("Check() error = %v", err)
	}
	if got := status.NotFollowingBack.Sorted(); !reflect.DeepEqual(got, []string{"dave"}) {
		t.Errorf("NotFollowingBack = %v, want [dave]", got)
	}
	if got := status.UniqueFollowers.Sorted(); !reflect.DeepEqual(got, []string{"alice"}) {
		t.Errorf("UniqueFollowers = %v, want [alice]", got)
	}
}

func TestCheck_SourceFailure(t *testing.T) {
	boom := errors.New("boom")
	src := stubSource{
		Followers: {set: NewSet("alice")},
		Following: {err: boom},
	}

	status, err := Check(context.Background(), src)
	if !errors.Is(err, boom) {
		t.Fatalf("Check() error = %v, want wrapped boom", err)
	}
	if !strings.Contains(err.Error(), "following") {
		t.Errorf("error %q does not name the failed list", err)
	}
	if got := status.UniqueFollowers.Sorted(); len(got) != 1 || got[0] != "alice" {
		t.Errorf("UniqueFollowers = %v, want [alice] from the list that succeeded", got)
	}
	if status.NotFollowingBack.Len() != 0 {
		t.Errorf("NotFollowingBack = %v, want empty", status.NotFollowingBack.Sorted())
	}
}
