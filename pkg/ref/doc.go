// Package ref resolves the denormalized references stored on place documents into
// canonical document identifiers.
//
// Places link to their social-network documents through an array field whose
// elements have accumulated in several shapes over time:
//
//   - a plain identifier string, written by older code paths,
//   - an object carrying an explicit id (a Firestore document handle, a SurrealDB
//     record ID or a decoded JSON object with an "id" key),
//   - an object carrying a slash-delimited path such as "socialNetworks/mno345",
//     whose last segment is the identifier,
//   - a single-element sequence wrapping any of the above.
//
// [Parse] turns a raw value into a [Ref], a closed set of shapes that [Resolve]
// matches exhaustively. [Resolver] combines both steps and reports failures
// through [Result] and [Batch] values, never through panics or errors, so a place
// with a stale link still loads with its remaining links.
//
//	r := ref.NewResolver(ref.WithLogger(logger))
//	batch := r.Many(place.SocialNetworks)
//	for _, id := range batch.IDs {
//		// fetch social network id
//	}
package ref
