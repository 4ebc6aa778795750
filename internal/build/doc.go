// Package build turns the source content tree into the generated JSON tree.
//
// A build is a full, idempotent rebuild executed as a fixed sequence of
// stages:
//
//	prepare -> posts -> index -> static -> sitemap -> report -> promote
//
// Every stage writes into a staging directory next to the generated
// directory. Only the promote stage touches the live tree: the generated
// path is a symbolic link to a versioned build directory, and promotion
// renames a new link over it, so readers see either the previous build or
// the new one and never a partial state. When a fatal
// stage error occurs the staging directory is removed and the previous
// output stays in place.
//
// A single malformed post never fails the build: it is logged, recorded as
// an issue in the build report and skipped (or included with defaults when
// only frontmatter fields are missing).
package build
