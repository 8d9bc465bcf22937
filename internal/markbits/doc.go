// Package markbits provides the per-cycle mark bitset used by the collector's
// mark phase.
//
// One bit is kept per handle table slot. The set is cleared at the start of
// every cycle and grown in lockstep with the table, so IsMarked is defined for
// every allocated index. Marking doubles as the visited set of the traversal:
// Mark reports whether the bit was newly set, which is what makes the mark
// phase terminate on reference cycles.
package markbits
