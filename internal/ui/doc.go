// Package ui implements the thumbx dashboard using bubbletea's Elm architecture.
//
// The dashboard has these views:
//  1. [HomeView] : account summary and feature menu
//  2. [LabView] : thumbnail generation, behind a soft gate (dimmed with a sign-in overlay)
//  3. [VideoView] : video generation, behind a hard gate (full paywall unless Pro)
//  4. [HistoryView] : local job history, redirecting to [LoginView] when signed out
//  5. [LoginView] : sign-in instructions
//
// Submitting a video opens a status modal backed by a [tasks.JobPoller]. Closing the modal stops polling;
// the job keeps running remotely.
//
// The (view) [Model] implements the Init/Update/View pattern. Auth changes arrive through a subscription on
// the [auth.Manager]; job progress flows through channels from the tasks package.
//
// Keyboard navigation uses vim-style bindings (j/k, enter, esc, q) with contextual help displayed via charmbracelet/bubbles/help.
package ui
