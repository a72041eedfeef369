// Package domain implements the paper review lifecycle: claim slots, review
// intake, the verdict-driven status engine, reputation scoring, and the vote
// ledger. All state lives behind the storage contracts; the only concurrency
// primitive the package relies on is store-level atomic increments.
package domain
