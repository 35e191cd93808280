package crypto

// Zeroize overwrites b in place. Secrets live in mutable byte slices
// precisely so this can purge them before release; callers must not
// alias key material into immutable storage.
func Zeroize(b []byte) {
	for i := range b {
		b[i] = 0
	}
}
