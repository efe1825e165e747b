// Package harness runs search scenarios for tagstorm.
//
// A scenario is a YAML file holding a small image collection, a list of
// searches with expected outcomes, and optional tag reference data with
// mapping assertions:
//
//	name: cats
//	description: tag search over a seeded collection
//	images:
//	  - hash: a1
//	    tags: [cat, animal]
//	searches:
//	  - name: by_tag
//	    request: {select: [id], operator: {tag: 1}}
//	    expect: {ids: [1]}
//
// Each scenario runs against a fresh in-memory SQLite store through the
// same engine the CLI uses. Searches that fail are recorded with their
// error code rather than aborting the run, so error cases can be
// expected like any other outcome.
//
// Golden files (testdata/golden/<name>.golden) capture the records each
// search returned. See RunWithGolden.
package harness
