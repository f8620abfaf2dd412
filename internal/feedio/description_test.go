package feedio

import (
	"strings"
	"testing"

	"PubMedCurator/internal/domain"
)

func TestDescriptionRoundTrip(t *testing.T) {
	t.Parallel()

	rec := domain.Record{
		Journal:  "Head & Neck",
		DOI:      "10.1002/hed.2026",
		Abstract: "Outcomes of <2 cm tumors were favorable.",
	}

	journal, doi, abstract := MineDescription(BuildDescription(rec))

	if journal != rec.Journal {
		t.Fatalf("journal mismatch: got %q", journal)
	}
	if doi != rec.DOI {
		t.Fatalf("doi mismatch: got %q", doi)
	}
	if abstract != rec.Abstract {
		t.Fatalf("abstract mismatch: got %q", abstract)
	}
}

func TestDescriptionWithoutDOI(t *testing.T) {
	t.Parallel()

	rec := domain.Record{Journal: "Unknown", Abstract: "Short abstract."}
	desc := BuildDescription(rec)

	if strings.Contains(desc, "DOI") {
		t.Fatal("empty DOI must not be rendered")
	}

	journal, doi, abstract := MineDescription(desc)
	if journal != "Unknown" || doi != "" || abstract != "Short abstract." {
		t.Fatalf("unexpected mining result: %q %q %q", journal, doi, abstract)
	}
}

func TestMineDescriptionOnForeignMarkup(t *testing.T) {
	t.Parallel()

	journal, doi, abstract := MineDescription("<p>Plain upstream description</p>")
	if journal != "" || doi != "" || abstract != "" {
		t.Fatalf("foreign markup must mine to empty fields, got %q %q %q", journal, doi, abstract)
	}
}

func TestBuildRankedDescriptionCarriesBadgeAndMetadata(t *testing.T) {
	t.Parallel()

	rec := domain.Record{Journal: "JCO", Abstract: "A."}
	desc := BuildRankedDescription(rec, domain.Score{Value: 81, Rationale: "Strong evidence."})

	for _, want := range []string{domain.BadgeHighImpact, "Score: 81/100", "Why this matters:", "Strong evidence.", "<b>Journal:</b> JCO"} {
		if !strings.Contains(desc, want) {
			t.Fatalf("ranked description missing %q:\n%s", want, desc)
		}
	}
}
