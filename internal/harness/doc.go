// Package harness runs sync scenarios end to end against real stores.
//
// A scenario seeds a primary store and a graph store from a YAML fixture,
// runs a list of engine operations against them, and checks the outcome
// of each step and the final graph state.
//
// # Scenario Format
//
//	name: scenario_name
//	description: "What this scenario validates"
//	run_id: test-run-0001
//	primary:
//	  users:
//	    - id: a
//	      username: alice
//	      friendships:
//	        - { friend: b, status: regular, interaction_count: 3 }
//	  neighbors:
//	    a: [b]
//	graph:
//	  nodes:
//	    - { id: a, username: alice }
//	  edges:
//	    - { owner: a, friend: b, status: regular }
//	steps:
//	  - op: sync_users
//	    expect: { attempted: 1, succeeded: 1 }
//	  - op: validate_edges
//	    expect: { consistent: true }
//	assertions:
//	  - type: row_count
//	    table: edges
//	    count: 1
//	  - type: final_state
//	    table: edges
//	    where: { lo: a, hi: b }
//	    expect: { status: regular }
//
// The primary and graph sections on their own form a fixture, which the
// CLI seed command loads with LoadFixture.
//
// # Deterministic Testing
//
// Every scenario runs against fresh in-memory SQLite databases with a
// stopped wall clock (testutil.FixedClock) and a constant run ID
// (testutil.FixedRunIDGenerator). Defaulted timestamps and run IDs are
// therefore identical across runs, and RunWithGolden can compare the
// step outcomes and final graph state byte for byte.
package harness
