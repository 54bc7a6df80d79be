// Package harness runs query scenarios against a fresh in-memory store.
//
// A scenario names a schema file, SQL seed files, one query and a list of
// assertions over the hydrated result:
//
//	name: blog_nested
//	description: Posts with their comments and comment authors
//	schema: ../schemas/blog.yaml
//	seed: [../seed/blog.sql]
//	query:
//	  model: posts
//	  with: [comments, comments.author]
//	assertions:
//	  - type: count
//	    count: 3
//	  - type: related
//	    key: 1
//	    path: comments
//	    count: 2
//
// Paths in schema and seed are relative to the scenario file. A query
// narrows its rows with where (field: literal entries) and filter (an
// expression in queryir.ParseFilter syntax); both are ANDed.
//
// A query may set raw_sql to replace the compiled SQL while keeping the
// compiled column layout. This is how scenarios feed the hydrator rows in an
// order the compiler would never produce.
//
// Golden files (testdata/golden/{name}.golden) hold the canonical JSON of
// the hydrated entities; see RunWithGolden.
package harness
