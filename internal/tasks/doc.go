// Package tasks orchestrates the spreadsheet pipeline with real-time progress reporting.
//
// # Core Operations
//
// The [Engine] interface defines four operations:
//
//  1. [Engine.DedupeSpreadsheet] : Deduplicate every tab of one spreadsheet
//     - Reads each tab, merges duplicate entries, rewrites the tab in place
//     - Tabs without data rows are left untouched
//
//  2. [Engine.GenerateSummaries] : Build missing year summaries
//     - Scans year folders under the sets folder
//     - Combines every spreadsheet tab into one sorted summary per year
//     - Deduplicates the published summary
//
//  3. [Engine.Intake] : Process newly dropped files in the source folder
//     - Normalizes leftover status prefixes
//     - Uploads CSVs as spreadsheets into their year folder, archives originals
//     - Moves year-prefixed non-CSV files and flags duplicates
//
//  4. [Engine.BuildCollection] : Rebuild the collection index spreadsheet
//     - One tab per year folder with date, name, and link columns
//     - A summary tab linking every published year summary
//
// # Progress Reporting
//
// All operations use non-blocking channels for progress updates.
//
// The [ProgressUpdate] struct contains phase, step counters, and messages for
// display. Updates use select with default to prevent blocking.
//
// # Run Recording
//
// The optional [RunRecorder] interface persists a run log row per operation
// (repositories.RunRepository). Recording failures are logged and ignored so
// bookkeeping never disrupts the pipeline.
//
// # Implementation
//
// [SummaryEngine] implements [Engine] with dependencies on:
//   - [sheets.Service] and [sheets.Drive] : remote table and file store
//   - [dedupe.Engine] : the merge logic
//   - [retry.Classifier] : transient-failure policy for every remote call
package tasks
