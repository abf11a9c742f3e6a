// Package testsupport builds temp-dir configs, stores and sample events for
// package tests.
package testsupport
