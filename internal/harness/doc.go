// Package harness runs scripted timer scenarios against a real engine.
//
// # Scenario Format
//
// Scenarios are YAML files with the following structure:
//
//	name: scenario_name
//	description: "What this scenario validates"
//	storage: sqlite            # optional: sqlite (default), json or cbor
//	steps:
//	  - create: {ref: ana, student: Ana, exam: Math, minutes: 1}
//	  - start: ana
//	  - tick: {ref: ana, count: 60}
//	  - tick: {count: 5}       # every live binding
//	  - pause: ana
//	  - ack: {ref: ana, kind: end}
//	  - delete: ana
//	    expect_error: not_found
//	  - clear: {}
//	  - restart: {}            # close, reload from storage, reconcile
//	assertions:
//	  - type: timer_state
//	    ref: ana
//	    remaining: 0
//	    running: false
//	    five_min: pending
//	    end: fired
//	  - type: cue_count
//	    ref: ana
//	    kind: end
//	    count: 1
//	  - type: timer_count
//	    count: 0
//	  - type: bound_count
//	    count: 0
//	  - type: timer_absent
//	    ref: ana
//
// Each step holds exactly one command. Refs are scenario-local names bound
// to timer ids by create.
//
// # Deterministic Execution
//
// Every run uses:
//   - engine.ManualTickSource, so a tick step advances time synchronously
//   - testutil.SequentialIDs, so ids are t1, t2, ... in creation order
//   - a private in-memory SQLite store (or a temp file for json/cbor)
//   - a fixed save timestamp
//
// The resulting text trace is identical across runs and is compared with
// testdata/golden/<name>.golden by RunWithGolden.
package harness
