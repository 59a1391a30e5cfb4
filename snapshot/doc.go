/*
package snapshot records the state of a task's input and output files.

A FileCollectionSnapshot maps absolute paths to FileSnapshots (a content hash,
a directory marker or a missing marker) and can be diffed against an older
snapshot to find what was added, removed or changed.

An OutputFilesSnapshot additionally remembers an identity per declared output
root, so a directory that was deleted and recreated is reported as changed even
when its contents look the same. Files that merely appear under an unchanged
output root are not reported, since tasks add files to their own outputs.

Both kinds share one binary encoding, prefixed by a kind discriminator, which
the task history stores in the fileSnapshots cache.
*/
package snapshot
