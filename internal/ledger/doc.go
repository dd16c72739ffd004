// Package ledger persists build history in a local SQLite database.
//
// Every build records the recipe digest it ran from and the digest of the
// archive it produced, so repeated builds of the same recipe can be checked
// for reproducibility after the fact.
package ledger
