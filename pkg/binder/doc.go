// Package binder decodes request bodies into typed values for the handler
// package.
package binder
