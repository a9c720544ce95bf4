package repo

import (
	"errors"
	"strings"
	"testing"

	"github.com/keelvcs/keel/pkg/object"
)

func TestCreateTag_LightweightRoundtrip(t *testing.T) {
	r := initRepoWithFile(t, "a.txt", []byte("v1\n"))
	head := mustCommit(t, r, "first")

	if err := r.CreateTag("v1.0", head, false); err != nil {
		t.Fatalf("CreateTag: %v", err)
	}

	got, err := r.ResolveTag("v1.0")
	if err != nil {
		t.Fatalf("ResolveTag: %v", err)
	}
	if got != head {
		t.Errorf("v1.0 = %s, want %s", got, head)
	}

	// Duplicate without force fails; with force succeeds.
	if err := r.CreateTag("v1.0", head, false); !errors.Is(err, ErrRefAlreadyExists) {
		t.Errorf("duplicate CreateTag = %v, want ErrRefAlreadyExists", err)
	}
	if err := r.CreateTag("v1.0", head, true); err != nil {
		t.Errorf("CreateTag(force): %v", err)
	}
}

func TestCreateAnnotatedTag_PeelsToCommit(t *testing.T) {
	r := initRepoWithFile(t, "a.txt", []byte("v1\n"))
	head := mustCommit(t, r, "first")

	tagHash, err := r.CreateAnnotatedTag("v2.0", head, "test-tagger", "the release", false)
	if err != nil {
		t.Fatalf("CreateAnnotatedTag: %v", err)
	}

	// The ref points at the tag object, not the commit.
	refTarget, err := r.ResolveTag("v2.0")
	if err != nil {
		t.Fatalf("ResolveTag: %v", err)
	}
	if refTarget != tagHash {
		t.Errorf("ref target = %s, want tag object %s", refTarget, tagHash)
	}

	tag, err := r.Store.ReadTag(tagHash)
	if err != nil {
		t.Fatalf("ReadTag: %v", err)
	}
	if tag.TargetHash != head {
		t.Errorf("tag target = %s, want %s", tag.TargetHash, head)
	}
	payload := string(tag.Data)
	for _, want := range []string{"object " + string(head), "type commit", "tag v2.0", "tagger test-tagger", "the release"} {
		if !strings.Contains(payload, want) {
			t.Errorf("tag payload missing %q:\n%s", want, payload)
		}
	}

	// Commitish resolution peels the annotated tag down to the commit.
	peeled, err := r.ResolveCommitish("v2.0")
	if err != nil {
		t.Fatalf("ResolveCommitish(v2.0): %v", err)
	}
	if peeled != head {
		t.Errorf("peeled = %s, want %s", peeled, head)
	}
}

func TestDeleteTag(t *testing.T) {
	r := initRepoWithFile(t, "a.txt", []byte("v1\n"))
	head := mustCommit(t, r, "first")

	if err := r.CreateTag("gone", head, false); err != nil {
		t.Fatalf("CreateTag: %v", err)
	}
	if err := r.DeleteTag("gone"); err != nil {
		t.Fatalf("DeleteTag: %v", err)
	}
	if _, err := r.ResolveTag("gone"); !errors.Is(err, ErrUnresolvableReference) {
		t.Errorf("ResolveTag after delete = %v, want ErrUnresolvableReference", err)
	}
	if err := r.DeleteTag("gone"); !errors.Is(err, ErrUnresolvableReference) {
		t.Errorf("double DeleteTag = %v, want ErrUnresolvableReference", err)
	}
}

func TestListTags_Sorted(t *testing.T) {
	r := initRepoWithFile(t, "a.txt", []byte("v1\n"))
	head := mustCommit(t, r, "first")

	for _, name := range []string{"v2", "v1", "beta/v3"} {
		if err := r.CreateTag(name, head, false); err != nil {
			t.Fatalf("CreateTag(%s): %v", name, err)
		}
	}

	names, err := r.ListTags()
	if err != nil {
		t.Fatalf("ListTags: %v", err)
	}
	want := []string{"beta/v3", "v1", "v2"}
	if len(names) != len(want) {
		t.Fatalf("tags = %v, want %v", names, want)
	}
	for i := range want {
		if names[i] != want[i] {
			t.Errorf("tags[%d] = %q, want %q", i, names[i], want[i])
		}
	}
}

func TestCreateTag_InvalidNames(t *testing.T) {
	r, err := Init(t.TempDir())
	if err != nil {
		t.Fatalf("Init: %v", err)
	}
	h := object.HashBytes([]byte("x"))
	for _, bad := range []string{"", "/v1", "v1/", "a..b", "has space"} {
		if err := r.CreateTag(bad, h, false); err == nil {
			t.Errorf("CreateTag(%q) succeeded, want error", bad)
		}
	}
}
