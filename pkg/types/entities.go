package types

import (
	"strings"
	"time"
)

// Class identifies one of the three mirrored entity kinds. Each class has
// its own listing category, table, pagination cursor, and counter.
type Class string

const (
	ClassSNP      Class = "snp"
	ClassGenotype Class = "genotype"
	ClassGenoset  Class = "genoset"
)

// ClassOrder is the fixed order in which the ingestion driver processes
// classes. A class is only started after the previous one completes.
var ClassOrder = []Class{ClassSNP, ClassGenotype, ClassGenoset}

// Valid reports whether c is a known entity class.
func (c Class) Valid() bool {
	switch c {
	case ClassSNP, ClassGenotype, ClassGenoset:
		return true
	}
	return false
}

// Record is one mirrored entity: a stable identifier, the raw page content,
// and the capture time. SNPID and Genotype are populated only for
// ClassGenotype records, derived from the composite identifier.
type Record struct {
	ID        string    `json:"id"`
	SNPID     string    `json:"snp_id,omitempty"`
	Genotype  string    `json:"genotype,omitempty"`
	Content   string    `json:"content"`
	ScrapedAt time.Time `json:"scraped_at"`
}

// SplitGenotypeID decomposes a composite genotype identifier of the form
// "<snp>(<variant>)" into its SNP reference and variant value, e.g.
// "Rs53576(A;A)" yields ("Rs53576", "A;A"). The split is at the first "(";
// one trailing ")" is stripped from the variant. Identifiers that do not
// match the pattern yield ("", "", false) so malformed composites never
// leak a bogus SNP reference into the store.
func SplitGenotypeID(id string) (snpID, genotype string, ok bool) {
	i := strings.Index(id, "(")
	if i <= 0 {
		return "", "", false
	}
	snpID = id[:i]
	genotype = strings.TrimSuffix(id[i+1:], ")")
	if genotype == "" {
		return "", "", false
	}
	return snpID, genotype, true
}
