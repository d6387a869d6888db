// Package tasks runs the long-lived operations of thumbx with real-time progress reporting.
//
// # Core Operations
//
//  1. [StudioEngine.Run] : submit a paid action (thumbnail, analysis, A/B test, video)
//     - Validates required inputs before any network call
//     - Checks the credit balance and plan tier
//     - Posts to the configured webhook and parses the result
//     - Charges credits optimistically and records the job locally
//
//  2. [JobPoller] : watch the newest job for a user until it completes or fails
//     - Queries once on start, then on a fixed interval
//     - Stops before scheduling another query once a terminal status is seen
//     - Treats query errors and missing rows as "no news" and keeps going
//
//  3. [DownloadResults] : fetch the result images of finished jobs
//     - Worker pool with a shared rate limiter
//     - Writes a JSON manifest of what was saved
//
// # Progress Reporting
//
// All operations use non-blocking channels for progress updates.
//
// The [ProgressUpdate] struct contains phase, step counters, messages, and optional data for advanced UI rendering.
// Updates use select with default to prevent blocking.
package tasks
