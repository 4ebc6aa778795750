// Package admin sequences content mutations: normalize identifiers, validate
// the payload, persist through the content store, rebuild the generated tree
// and mirror the change. A failure in any phase stops the later ones; earlier
// phases are never undone.
package admin
