// Package tools defines the analysis tools the agent may call.
//
// Includes:
//   - Definition: name, description, JSON input schema, handler.
//   - GenerateSchema[T](): derive JSON Schema from Go input structs.
//   - Registry: name -> Definition map built once; unknown names resolve to a
//     not-found handler instead of falling through.
//   - Analyzers: domain credibility, claim extraction, sentiment/bias, fact
//     database search, cross-reference, person statement verification.
//
// Handlers are deterministic over their input except the two history lookups
// (read-only) and the person verifier (network).
package tools
