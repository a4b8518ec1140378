// Package models defines the domain entities of the DóndeTú directory.
//
// # Entities
//
//   - [Place]: a listed establishment with its map location, category and the
//     denormalized array of links to its social networks
//   - [SocialNetwork]: one social media profile, stored in its own collection and
//     referenced from places
//   - [Event]: something happening at a place during a time window
//
// # Typed IDs
//
// [PlaceID], [SocialNetworkID] and [EventID] wrap opaque document identifiers.
// Firestore generates 20-character IDs, SurrealDB and PostgreSQL get UUID strings
// from the New* constructors; all of them are accepted by the Parse* functions.
// In SurrealDB the IDs marshal to RecordIDs through CBOR tag 8, in SQL stores they
// are plain strings, and in JSON they are strings.
//
// # Social network references
//
// [Place.SocialNetworks] is a [RawRefs] value: whatever the backend stored,
// untouched. Older documents hold plain ID strings, newer ones hold document
// handles or record IDs. Nothing in this package interprets them; the loader runs
// them through [github.com/dondetu/dondetu/pkg/ref] before fetching the linked
// documents.
package models
