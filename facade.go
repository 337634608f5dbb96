package simplefs

// defaultVolume backs the package-level functions below. Per spec §9
// ("Process-wide state... the API is a thin facade over a singleton whose
// presence encodes mounted = true"), this gives callers the exact
// C-shaped, no-receiver surface spec §6.1 describes, while *Volume itself
// remains the idiomatic, instantiable Go type underneath. Like the rest of
// this package, the singleton has no internal locking: callers sharing it
// across goroutines are responsible for their own serialization, exactly
// as spec §5 mandates for any single Volume.
var defaultVolume = New()

func current() *Volume {
	return defaultVolume
}

// Format is the package-level equivalent of spec §6.1's format(). It
// formats diskName for at least inodeCount inodes using the default
// volume singleton.
func Format(diskName string, inodeCount int) error {
	return current().Format(diskName, inodeCount)
}

// Mount is the package-level equivalent of spec §6.1's mount().
func Mount(diskName string) error {
	return current().Mount(diskName)
}

// Unmount is the package-level equivalent of spec §6.1's unmount().
func Unmount() error {
	return current().Unmount()
}

// CreateFile is the package-level equivalent of spec §6.1's create().
// Named CreateFile, not Create, to avoid shadowing the conventional Go
// meaning of a bare "Create" (opening-for-write semantics); it still
// returns exactly what spec.md's create() returns: the new inode index.
func CreateFile() (int, error) {
	return current().Create()
}

// DeleteFile is the package-level equivalent of spec §6.1's delete().
func DeleteFile(inodeIndex int) error {
	return current().Delete(inodeIndex)
}

// StatFile is the package-level equivalent of spec §6.1's stat().
func StatFile(inodeIndex int) (int, error) {
	return current().Stat(inodeIndex)
}

// ReadFile is the package-level equivalent of spec §6.1's read().
func ReadFile(inodeIndex int, buf []byte, offset int64) (int, error) {
	return current().Read(inodeIndex, buf, offset)
}

// WriteFile is the package-level equivalent of spec §6.1's write().
func WriteFile(inodeIndex int, buf []byte, offset int64) (int, error) {
	return current().Write(inodeIndex, buf, offset)
}
