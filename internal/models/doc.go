// Package models defines domain entities and persistence interfaces for thumbx.
//
// The package contains two categories of types:
//
// 1. Projections of remote data: values read from the identity provider or the project database
//   - [Session] and [User] : the signed-in identity and its tokens
//   - [Profile] : billing record holding credits and the subscription [Plan]
//   - [Job] : the latest asynchronous job row for a user
//
// 2. Persistent Entities: records stored in the local SQLite database
//   - [JobRecord] : a paid action submitted from this client
//
// Plan tiers are never stored. [Plan.IsPro] and [Plan.IsPremium] derive them on every read.
package models
