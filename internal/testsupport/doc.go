// Package testsupport provides helpers for constructing configs, stores, and
// queues in tests without repeating setup boilerplate.
package testsupport
