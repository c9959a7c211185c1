// Package cache stores decoded mixin sources so a render does not decode
// and resample the same file twice.
//
// Entries live in an in-memory LRU (L1) for the lifetime of the process and
// in a zstd-compressed directory (L2) shared across renders. The cache is
// an accelerator only: every fault degrades to a miss.
package cache
