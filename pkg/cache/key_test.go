package cache

import (
	"path/filepath"
	"strings"
	"testing"
)

func TestKey_Fingerprint(t *testing.T) {
	t.Run("order independent", func(t *testing.T) {
		a := Key{Entity: "molecule", Identifiers: []string{"CHEMBL25", "CHEMBL59", "CHEMBL112"}}
		b := Key{Entity: "molecule", Identifiers: []string{"CHEMBL112", "CHEMBL25", "CHEMBL59"}}

		if a.Fingerprint() != b.Fingerprint() {
			t.Errorf("fingerprint must not depend on identifier order: %s != %s",
				a.Fingerprint(), b.Fingerprint())
		}
	})

	t.Run("distinct sets differ", func(t *testing.T) {
		a := Key{Identifiers: []string{"CHEMBL25"}}
		b := Key{Identifiers: []string{"CHEMBL59"}}

		if a.Fingerprint() == b.Fingerprint() {
			t.Error("different identifier sets produced the same fingerprint")
		}
	})

	t.Run("length and charset", func(t *testing.T) {
		fp := Key{Identifiers: []string{"CHEMBL25"}}.Fingerprint()
		if len(fp) != 16 {
			t.Errorf("fingerprint length = %d, want 16", len(fp))
		}
		if strings.ToLower(fp) != fp {
			t.Errorf("fingerprint %q is not lowercase hex", fp)
		}
	})
}

func TestKey_Path(t *testing.T) {
	key := Key{Entity: "activity", Release: "ChEMBL_34", Identifiers: []string{"CHEMBL25"}}

	got := key.Path("/var/cache/chembl")
	want := filepath.Join("/var/cache/chembl", "activity", "ChEMBL_34", key.Fingerprint()+".json")
	if got != want {
		t.Errorf("Path = %q, want %q", got, want)
	}
}

func TestKey_Path_UnknownRelease(t *testing.T) {
	key := Key{Entity: "activity", Identifiers: []string{"CHEMBL25"}}

	got := key.Path("/var/cache/chembl")
	if !strings.Contains(got, filepath.Join("activity", "unknown")) {
		t.Errorf("empty release must map to the unknown partition, got %q", got)
	}
}
