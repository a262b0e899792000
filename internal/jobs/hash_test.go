package jobs

import "testing"

func TestHashNormalization(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		companyA, titleA string
		companyB, titleB string
		equal   bool
	}{
		{
			name:     "punctuation and case collapse",
			companyA: "Acme Inc.", titleA: "Python Intern",
			companyB: "acme inc", titleB: "python intern",
			equal: true,
		},
		{
			name:     "extra whitespace collapses",
			companyA: "Acme   Inc", titleA: "  Python\tIntern ",
			companyB: "acme inc", titleB: "python intern",
			equal: true,
		},
		{
			name:     "different titles differ",
			companyA: "Acme", titleA: "Python Intern",
			companyB: "Acme", titleB: "Sales Intern",
			equal: false,
		},
		{
			name:     "different companies differ",
			companyA: "Acme", titleA: "Python Intern",
			companyB: "Globex", titleB: "Python Intern",
			equal: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			a := Hash(tt.companyA, tt.titleA)
			b := Hash(tt.companyB, tt.titleB)
			if (a == b) != tt.equal {
				t.Fatalf("Hash(%q,%q)=%q vs Hash(%q,%q)=%q, equal=%v, want %v",
					tt.companyA, tt.titleA, a, tt.companyB, tt.titleB, b, a == b, tt.equal)
			}
		})
	}
}

func TestHashLength(t *testing.T) {
	t.Parallel()

	if got := Hash("Acme", "Engineer"); len(got) != hashLen {
		t.Fatalf("expected %d hex chars, got %d (%q)", hashLen, len(got), got)
	}
}

func TestHashFieldSeparation(t *testing.T) {
	t.Parallel()

	// The separator must keep (company, title) boundaries stable.
	if Hash("ab", "c") == Hash("a", "bc") {
		t.Fatalf("expected field boundary to affect the hash")
	}
}
