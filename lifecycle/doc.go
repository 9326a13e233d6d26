// Package lifecycle executes one test unit: setup, body, optional assert
// hook, teardown and mock verification, and classifies the result as an
// Outcome.
//
// Teardown, mock verification and view release run on every path out of
// the unit, including setup failures and panics.
package lifecycle
