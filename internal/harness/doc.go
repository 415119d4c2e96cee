// Package harness runs replay scenarios against the real queue, replay
// engine and sync trigger, with scripted server responses.
//
// # Scenario Format
//
// Scenarios are YAML files:
//
//	name: mixed_outcomes
//	description: "A network failure stops the pass"
//	retry_statuses: [429]          # optional, see replay.WithRetryStatuses
//	online: false                  # initial connectivity, default offline
//	queue:                         # records queued before the first step
//	  - id: A
//	    method: POST
//	    url: https://api.example.com/A
//	    headers: { Content-Type: application/json }
//	    body: '{"status":"present"}'
//	responses:                     # per URL, consumed in order, last repeats
//	  https://api.example.com/A: [200]
//	  https://api.example.com/C: [network]
//	steps:
//	  - replay:                    # run one pass directly
//	      expect: { delivered: 1, halted: true }
//	  - enqueue: { id: E, method: PUT, url: https://api.example.com/E }
//	  - offline: true
//	  - online:                    # reconnect; the trigger runs a pass
//	      expect: { delivered: 1 }
//	assertions:
//	  - type: pending
//	    ids: [B, C, D]
//	  - type: requests
//	    urls: [https://api.example.com/A]
//	  - type: delivered_total
//	    count: 1
//	  - type: never_attempted
//	    ids: [D]
//
// URLs without a scripted response answer 200. The word "network" scripts a
// transport failure.
//
// # Deterministic Testing
//
// Every scenario runs on a fresh in-memory backend with scripted ids and a
// frozen clock, so traces are byte-for-byte reproducible and can be compared
// against golden files with RunWithGolden.
package harness
