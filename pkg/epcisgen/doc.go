/*
Package epcisgen generates EPCIS events from a template graph.

# Overview

A Template declares event nodes and identifier nodes. Identifier nodes
describe how GS1 (and a few non-GS1) identifiers are encoded and how their
serials are allocated. Event nodes describe the events to emit and pull
identifiers in, either freshly allocated from an identifier node or
inherited from the events of an upstream event node.

Compile validates a template and wires it into an immutable Graph. Each
Run of a Graph is an independent, pull-driven evaluation with its own
seeded allocator.

# Basic Usage

	tmpl := &epcisgen.Template{
	    Identifiers: []identifier.Node{{
	        ID:       1,
	        Syntax:   identifier.WebURI,
	        Instance: &identifier.Spec{Kind: identifier.SGTIN, Value: "09521987654327", GCPLength: 6, Policy: serial.Range(1)},
	    }},
	    Events: []epcisgen.EventNode{{
	        NodeID:                1,
	        EventType:             epcis.ObjectEvent,
	        EventCount:            2,
	        ReferencedIdentifiers: []epcisgen.Reference{epcisgen.FromIdentifier(1, 4, 0)},
	    }},
	}

	graph, err := epcisgen.Compile(tmpl)
	if err != nil {
	    log.Fatal(err)
	}
	events, err := graph.Generate(ctx, epcisgen.WithSeed(42))

# Pull-based Consumption

Generate collects the whole stream. For large templates attach a
Subscription and pull:

	run, _ := graph.NewRun(epcisgen.WithSeed(42))
	sub := run.Subscribe()
	for e, err := range sub.All(ctx) {
	    if err != nil {
	        return err
	    }
	    write(e)
	}

Several subscriptions may attach to one run. Events are produced once and
queued for each of them; identifiers are never allocated twice.

# Fan-out and Joins

A node that references an upstream node with parentNodeId waits for that
upstream's events. When it references several upstreams it waits until
each has delivered one event, then emits its full eventCount batch.

Children of the same upstream event slice its identifier lists in turn.
When a list runs short the slice restarts from the front, so later
children may repeat identifiers given to earlier ones.

# Determinism

Runs with the same seed produce the same serials, event ids and random
event times. Event times taken from the clock differ unless WithClock
fixes them.

# Error Handling

Compile returns joined *ConfigError values. During a run, a failing
production step returns a *ProductionError wrapped with ErrRunFailed, and
the run stops. A cancelled context returns a *CancellationError without
affecting the run.
*/
package epcisgen
