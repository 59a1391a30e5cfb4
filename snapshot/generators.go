package snapshot

import (
	"fmt"
	"math/rand"

	"github.com/leanovate/gopter"
)

// Random snapshots for property based tests. Paths are drawn from a small
// space so that independently generated snapshots overlap.

func GenRandomFile(rng *rand.Rand) FileSnapshot {
	switch rng.Intn(4) {
	case 0:
		return Directory()
	case 1:
		return Missing()
	default:
		hash := make([]byte, 1+rng.Intn(32))
		rng.Read(hash)
		return Hashed(hash, nil)
	}
}

func GenRandomPath(rng *rand.Rand) string {
	return fmt.Sprintf("/proj/%c/%d.txt", 'a'+rune(rng.Intn(4)), rng.Intn(50))
}

func GenRandomSnapshot(numFiles int, rng *rand.Rand) *FileCollectionSnapshot {
	files := make(map[string]FileSnapshot, numFiles)
	for i := 0; i < numFiles; i++ {
		files[GenRandomPath(rng)] = GenRandomFile(rng)
	}
	return NewFileCollectionSnapshot(files)
}

func GenRandomOutputSnapshot(numFiles int, rng *rand.Rand) *OutputFilesSnapshot {
	roots := map[string]*int64{}
	for _, r := range []string{"/proj/a", "/proj/b", "/proj/c"} {
		switch rng.Intn(3) {
		case 0:
		case 1:
			roots[r] = nil
		default:
			id := rng.Int63n(5)
			roots[r] = &id
		}
	}
	return NewOutputFilesSnapshot(roots, GenRandomSnapshot(numFiles, rng))
}

// Wrapper function that generates a FileCollectionSnapshot for property based tests.
func GopterGenSnapshot() gopter.Gen {
	return func(genParams *gopter.GenParameters) *gopter.GenResult {
		s := GenRandomSnapshot(genParams.Rng.Intn(40), genParams.Rng)
		return gopter.NewGenResult(s, gopter.NoShrinker)
	}
}

// Wrapper function that generates an OutputFilesSnapshot for property based tests.
func GopterGenOutputSnapshot() gopter.Gen {
	return func(genParams *gopter.GenParameters) *gopter.GenResult {
		s := GenRandomOutputSnapshot(genParams.Rng.Intn(40), genParams.Rng)
		return gopter.NewGenResult(s, gopter.NoShrinker)
	}
}

// Wrapper function that generates a hashed FileSnapshot with a modification time.
func GopterGenHashedFile() gopter.Gen {
	return func(genParams *gopter.GenParameters) *gopter.GenResult {
		hash := make([]byte, 1+genParams.Rng.Intn(32))
		genParams.Rng.Read(hash)
		modTime := genParams.Rng.Int63()
		return gopter.NewGenResult(Hashed(hash, &modTime), gopter.NoShrinker)
	}
}
