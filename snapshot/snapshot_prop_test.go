package snapshot

import (
	"reflect"
	"testing"

	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/prop"
)

func Test_SnapshotRoundTrip(t *testing.T) {
	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 500
	properties := gopter.NewProperties(parameters)

	properties.Property("Decode(Encode(s)) == s for file collections", prop.ForAll(
		func(s *FileCollectionSnapshot) bool {
			data, err := Encode(s)
			if err != nil {
				return false
			}
			decoded, err := Decode(data)
			return err == nil && reflect.DeepEqual(decoded, s)
		},
		GopterGenSnapshot(),
	))

	properties.Property("Decode(Encode(s)) == s for output snapshots", prop.ForAll(
		func(s *OutputFilesSnapshot) bool {
			data, err := Encode(s)
			if err != nil {
				return false
			}
			decoded, err := Decode(data)
			return err == nil && reflect.DeepEqual(decoded, s)
		},
		GopterGenOutputSnapshot(),
	))

	properties.TestingRun(t)
}

func Test_SnapshotDiff(t *testing.T) {
	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 500
	properties := gopter.NewProperties(parameters)

	properties.Property("A snapshot has no changes since itself", prop.ForAll(
		func(s *FileCollectionSnapshot) bool {
			return len(AllChanges(s.ChangesSince(s))) == 0
		},
		GopterGenSnapshot(),
	))

	properties.Property("An output snapshot has no changes since itself", prop.ForAll(
		func(s *OutputFilesSnapshot) bool {
			return len(AllChanges(s.ChangesSince(s))) == 0
		},
		GopterGenOutputSnapshot(),
	))

	properties.Property("Adding a file is reported as added one way and removed the other", prop.ForAll(
		func(a *FileCollectionSnapshot) bool {
			const added = "/proj/new/F.txt"
			files := map[string]FileSnapshot{added: Hashed([]byte{1, 2, 3}, nil)}
			for _, p := range a.Paths() {
				files[p], _ = a.Get(p)
			}
			b := NewFileCollectionSnapshot(files)

			forward := AllChanges(b.ChangesSince(a))
			backward := AllChanges(a.ChangesSince(b))
			return reflect.DeepEqual(forward, []Change{{added, Added}}) &&
				reflect.DeepEqual(backward, []Change{{added, Removed}})
		},
		GopterGenSnapshot(),
	))

	properties.Property("Files added under unchanged output roots are not reported", prop.ForAll(
		func(old *OutputFilesSnapshot) bool {
			files := map[string]FileSnapshot{"/proj/a/generated.txt": Hashed([]byte{9}, nil)}
			for _, p := range old.Files().Paths() {
				files[p], _ = old.Files().Get(p)
			}
			roots := map[string]*int64{}
			for _, r := range old.Roots() {
				roots[r], _ = old.RootID(r)
			}
			current := NewOutputFilesSnapshot(roots, NewFileCollectionSnapshot(files))
			return len(AllChanges(current.ChangesSince(old))) == 0
		},
		GopterGenOutputSnapshot(),
	))

	properties.Property("Applying all changes since old to old reproduces the snapshot", prop.ForAll(
		func(old, current *FileCollectionSnapshot) bool {
			return reflect.DeepEqual(current.ApplyAllChangesSince(old, old), current)
		},
		GopterGenSnapshot(),
		GopterGenSnapshot(),
	))

	properties.Property("UpdateFrom keeps exactly the shared paths with the newer values", prop.ForAll(
		func(s, newer *FileCollectionSnapshot) bool {
			updated := s.UpdateFrom(newer).Files()
			if s.IsEmpty() {
				return updated == s
			}
			if newer.IsEmpty() {
				return updated == newer
			}
			for _, p := range s.Paths() {
				want, inNewer := newer.Get(p)
				got, inUpdated := updated.Get(p)
				if inNewer != inUpdated || (inNewer && !reflect.DeepEqual(want, got)) {
					return false
				}
			}
			return updated.Len() <= s.Len()
		},
		GopterGenSnapshot(),
		GopterGenSnapshot(),
	))

	properties.TestingRun(t)
}

func Test_ContentEqualityIgnoresModTime(t *testing.T) {
	properties := gopter.NewProperties(nil)
	properties.Property("Same hash with a different mtime is content equal only", prop.ForAll(
		func(f FileSnapshot) bool {
			later := *f.ModTime + 1
			g := Hashed(append([]byte(nil), f.Hash...), &later)
			return f.ContentEquals(g) && !f.ContentAndMetadataEquals(g) && f.ContentAndMetadataEquals(f)
		},
		GopterGenHashedFile(),
	))
	properties.TestingRun(t)
}
