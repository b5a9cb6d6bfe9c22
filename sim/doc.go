/*
Package sim contains the replica and network simulation engine: a set of
replicas exchanging variant operations over a simulated delayed broadcast
network, advanced by a tick-driven scheduler.

The engine is parametric over the variant's state and operation types and
drives the variant through a single pure apply function, so the same loop
serves every member of package crdt. Time is an explicit parameter to Step,
which keeps simulation time decoupled from wall-clock time; only the
Scheduler touches real clocks.

One tick performs, in order: poll every replica (drain its inbound buffer
through apply, then emit at most one backlogged operation), enqueue each
emission with a due time of now plus the emitter's configured delay, flush
all due in-flight messages in queue order to the inbound buffer of every
other replica, advance the simulation clock, and invoke the render callback
with read-only snapshots.

All engine mutation happens inside one tick or one control-surface call;
both are serialized on the simulator's lock, so an adapter only ever
observes tick boundaries.
*/
package sim
