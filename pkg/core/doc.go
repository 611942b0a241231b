// Package core defines the domain model and ports of marl: records and
// collections, version tokens, the Connector interface backends implement,
// the error kinds operations fail with, and the uniform result envelope.
//
// The core is agnostic to where collections actually live. Adhering to the
// Connector interface allows the object store to run against a local git
// clone, DynamoDB, or an in-memory fake without changes.
package core
