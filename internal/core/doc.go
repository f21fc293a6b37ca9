// Package core provides the domain models for the task runtime.
//
// # Design Principles
//
// All structures in this package adhere to the following constraints:
//
//  1. Pure data and validation; no locks, no goroutines
//  2. All fields are explicit and observable
//  3. The graph engine owns all mutable runtime state; core types describe
//     a task exactly as the submitter declared it
//
// # Core Types
//
// Task: a deferred unit of work with declared data effects.
// Tag: a declared data effect (in/out/inout) on a named resource.
// SubmitOptions: everything a submitter states about a new task.
package core
