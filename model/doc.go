// Package model defines the provider-agnostic abstractions and concrete
// helpers for calling text-completion services from GoalMesh.
//
// Core goals:
//   - Keep request/response shapes minimal and transport independent
//   - Normalize provider failures into a small typed taxonomy (Error)
//   - Enforce per-call timeouts so a hung provider never stalls a goal
//   - Facilitate lightweight mocking for tests (MockClient)
//
// Providers (e.g. OpenAI, Anthropic) implement the CompletionClient interface
// from this package so higher layers (planner, executor, verifier) remain
// decoupled from vendor SDKs.
package model
