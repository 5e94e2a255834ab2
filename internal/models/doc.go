// Package models defines domain entities and persistence interfaces for the set summarizer.
//
// The package contains two categories of types:
//
// 1. Data Transfer Objects (DTOs): Lightweight structs representing remote spreadsheet data
//   - [Table] : An ordered grid of cells, header row first
//   - [File] : Drive file metadata used by the orchestration layer
//   - [SheetInfo] : A single tab inside a spreadsheet
//
// 2. Persistent Entities: Database-backed models with full lifecycle management
//   - [Run] : One task invocation (dedupe, summarize, intake, collection) with row counts and outcome
//
// Persistent entities implement the Model interface providing ID generation, timestamps, and validation.
// The Repository[T] interface defines standard operations for database access.
package models
