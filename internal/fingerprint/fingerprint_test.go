package fingerprint

import "testing"

func TestComputeIsStable(t *testing.T) {
	content := []byte("the party of the first part")
	got := Compute(content, "user-1")
	if got != Compute(content, "user-1") {
		t.Fatalf("expected stable fingerprint, got %s", got)
	}
	if len(got) != 64 {
		t.Fatalf("expected 64 hex characters, got %d", len(got))
	}
	for _, ch := range got {
		if !((ch >= 'a' && ch <= 'f') || (ch >= '0' && ch <= '9')) {
			t.Fatalf("fingerprint contains non-hex character: %c", ch)
		}
	}
}

func TestComputeSeparatesOwners(t *testing.T) {
	content := []byte("identical bytes")
	if Compute(content, "user-1") == Compute(content, "user-2") {
		t.Fatal("different owners must not share a fingerprint")
	}
}

func TestComputeSeparatesContent(t *testing.T) {
	if Compute([]byte("a"), "user-1") == Compute([]byte("b"), "user-1") {
		t.Fatal("different content must not share a fingerprint")
	}
}
