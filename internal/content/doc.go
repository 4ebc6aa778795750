// Package content is the system of record: post directories under
// content/blog and the projects and skills JSON files.
//
// Store methods do not lock. Callers that read, decide and then write (the
// admin service) hold the matching key from Lock for the whole sequence.
package content
