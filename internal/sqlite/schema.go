// Package sqlite implements the durable entity store and progress ledger for
// snpmirror on a single SQLite database file.
package sqlite

// Schema DDL. The store reopens existing mirror databases, so every
// statement is idempotent.
const (
	createSNPs = `CREATE TABLE IF NOT EXISTS snps (
    rsid TEXT PRIMARY KEY,
    content TEXT,
    scraped_at TEXT
);`

	createGenotypes = `CREATE TABLE IF NOT EXISTS genotypes (
    id TEXT PRIMARY KEY,
    snp_id TEXT,
    genotype TEXT,
    content TEXT,
    scraped_at TEXT
);`

	createGenosets = `CREATE TABLE IF NOT EXISTS genosets (
    id TEXT PRIMARY KEY,
    content TEXT,
    scraped_at TEXT
);`

	createProgress = `CREATE TABLE IF NOT EXISTS progress (
    key TEXT PRIMARY KEY,
    value TEXT
);`
)

// Index DDL for the genotype-by-SNP query path.
const (
	idxGenotypesSNP = `CREATE INDEX IF NOT EXISTS idx_genotypes_snp ON genotypes(snp_id);`
)

// schemaDDL lists all CREATE statements in execution order.
var schemaDDL = []string{
	createSNPs,
	createGenotypes,
	createGenosets,
	createProgress,
	idxGenotypesSNP,
}
