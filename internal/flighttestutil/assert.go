// Package flighttestutil holds shared test helpers: plain assertion
// wrappers and a synthetic flight-profile generator used to build the
// literal scenario inputs (clean jump, spike-only, missing takeoff,
// hop-and-pop, plane landing, backtrack correctness).
package flighttestutil

import "testing"

// AssertNoError fails the test immediately if err is non-nil.
func AssertNoError(t *testing.T, err error) {
	t.Helper()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

// AssertError fails the test immediately if err is nil.
func AssertError(t *testing.T, err error) {
	t.Helper()
	if err == nil {
		t.Fatal("expected an error, got nil")
	}
}
