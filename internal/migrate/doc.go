// Package migrate transfers locally-stored cases to a backend in one
// sequential batch with observable per-case progress.
//
// One create call is in flight at a time, both to bound resource use for
// video-bearing payloads and to keep the progress counters monotonic. A
// single case's failure never aborts the batch; the final report is a
// complete partition of the snapshot into uploaded and failed.
//
// Only case metadata transfers. A locally created case holds a transient
// local-only video reference that cannot be serialized back into a file for
// re-upload, so the clip stays behind; this is a documented limitation of
// migrating after the fact, not a bug.
package migrate
