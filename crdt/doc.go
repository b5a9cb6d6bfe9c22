/*
Package crdt implements the family of replicated data type variants the
simulation engine drives. Each variant consists of a pure apply function
mapping an (operation, state) pair to a successor state, plus the source-side
prepare helpers a presentation adapter uses to construct operations.

The variants are deliberately uneven in quality:

* Counter is a correct operation-based CRDT (commutative integer addition).
* GuardedCounter looks like Counter but guards decrements only at the source,
  which breaks convergence. The divergence is the point and must not be fixed.
* Grid converges for writes to distinct cells but resolves concurrent writes
  to the same cell by local delivery order alone.
* NaiveText addresses characters by absolute position and corrupts content
  under concurrent editing. Also intentionally broken.
* SequenceText is an RGA-style sequence with tombstoned deletions and a
  deterministic tie-break for concurrent inserts sharing an anchor. It is the
  only variant with real merge semantics.

CAUTION! Consider these two requirements:
* Apply functions never inspect state other than the one passed in and never
  perform their own synchronization. Callers (package sim) are expected to
  serialize access if concurrent access is possible.
* The broadcast layer is expected to deliver a single origin's operations in
  FIFO order. SequenceText tolerates a genuinely out-of-order arrival by
  reporting ErrMissingAnchor or ErrMissingTarget, which the replica layer
  answers with deferred redelivery.

The operation-based design of this package follows the CmRDT specification by
Shapiro, Preguiça, Baquero and Zawirski, available under:
https://hal.inria.fr/inria-00555588/document
*/
package crdt
