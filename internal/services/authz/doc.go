// Package authz implements the permission resolver.
//
// Starting from a user it walks direct role assignments and the transitive
// closure of group memberships (including nested subgroups), ranks every
// candidate rule by a multi-dimensional specificity, and picks one winner per
// right. Results are served through a two-level cache validated against the
// global permissions version counter.
//
// Components:
//
//   - Candidate enumeration: user-source and group-source assignment queries
//     joined through roles and rights, with NULL-aware context predicates.
//     A direct user assignment bound to the queried context shadows every
//     Global rule for that user in that context. Group sources carry the hop
//     distance computed by the recursive group closure query (capped at
//     MaxGroupDepth).
//   - Specificity ranking: a lexicographic (context, source, distance) key;
//     smaller is stronger. Ties on range rights go to the greater value,
//     ties on boolean rights to a deterministic (source, role) order.
//   - Fast path: Resolve produces the right→value map that is cached.
//   - Explain path: Explain annotates every candidate for one right with
//     APPLIED or OVERRIDDEN and cites the winning rule.
//
// Cache protocol: the request-scoped cache (carried on context.Context via
// WithRequestCache) is consulted first and trusted for the remainder of the
// request. The process-wide Store is consulted next; its entries carry the
// permissions version observed at write time and are discarded when the
// current version differs. Store failures silently degrade to recomputation.
package authz
