package domain

import "testing"

func TestParseCategoryNormalizesModelReply(t *testing.T) {
	cases := map[string]Category{
		"pdf":          CategoryPDF,
		"  Notebook\n": CategoryNotebook,
		"SPREADSHEET":  CategorySpreadsheet,
	}
	for raw, want := range cases {
		got, ok := ParseCategory(raw)
		if !ok || got != want {
			t.Fatalf("ParseCategory(%q) = %q, %v; want %q", raw, got, ok, want)
		}
	}

	for _, raw := range []string{"banana", "", "unknown", "pdf."} {
		if _, ok := ParseCategory(raw); ok {
			t.Fatalf("ParseCategory(%q) should not be a taxonomy member", raw)
		}
	}
}

func TestStorableAcceptsTaxonomyAndUnknownOnly(t *testing.T) {
	for _, c := range Categories {
		if !c.Storable() {
			t.Fatalf("expected %q to be storable", c)
		}
	}
	if !CategoryUnknown.Storable() {
		t.Fatalf("expected unknown to be storable")
	}
	if Category("banana").Storable() || Category("PDF").Storable() {
		t.Fatalf("arbitrary model strings must not be storable")
	}
}

func TestMetadataIndexCloneIsIndependent(t *testing.T) {
	idx := MetadataIndex{"a.pdf": {Tag: CategoryPDF}}
	clone := idx.Clone()
	clone["b.txt"] = FileEntry{Tag: CategoryText}
	clone["a.pdf"] = FileEntry{Tag: CategoryUnknown}

	if len(idx) != 1 || idx["a.pdf"].Tag != CategoryPDF {
		t.Fatalf("original index mutated: %+v", idx)
	}
}
