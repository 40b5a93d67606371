// Package snapshot deep-copies watched values and process metrics at the
// moment a failure is reported.
//
// Copies are depth bounded and cycle safe. Values that cannot be represented
// as data become fixed placeholder strings:
//
//	"[Max Depth Exceeded]"  nesting beyond SnapshotConfig.MaxDepth
//	"[Circular]"            a pointer, map or slice already on the current path
//	"[Function]"            func values
//	"[Channel]"             chan values
//	"[Unsafe Pointer]"      unsafe.Pointer values
//	"[Capture Error: ...]"  copying the value panicked
//
// Capture never fails. A value that panics while being copied is replaced by
// an error marker for its key only.
package snapshot
