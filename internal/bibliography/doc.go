// Package bibliography normalizes parsed entries and indexes them by key.
//
// A Store is built wholesale from a list of entries, either parsed from
// BibTeX (FromBibtex) or decoded from a structured file (LoadStructured),
// and is never mutated afterwards. Replacing a bibliography means building
// a new Store.
package bibliography
