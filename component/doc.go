// Package component defines lifecycle-managed resources of a run.
//
// The snapshot store and any fake external services a suite needs implement
// Component. A Registry starts them in registration order before the first
// unit executes and stops them in reverse order after the last one.
package component
