// Package errors provides the classified error primitives used across the
// portfolio service.
//
// Every failure that crosses a package boundary is a ClassifiedError carrying
// a category (not_found, already_exists, validation, rebuild, sync, ...), a
// severity, a retry hint and structured context. The HTTP and CLI adapters
// turn categories into status codes and exit codes.
//
//	err := errors.ConflictError("post already exists").
//		WithContext("slug", slug).
//		Build()
package errors
