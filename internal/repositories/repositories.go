// package repositories provides the persistence layer for the summarizer's
// run log.
//
// Every top-level task (dedupe, summarize, intake, collection) records one
// [models.Run] per target it touches, giving an auditable history of what was
// processed, how many rows went in and out, and how each run ended.
package repositories
