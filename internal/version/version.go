package version

// Version is the current version of the settlement engine.
// This value is set at build time using ldflags:
// -ldflags "-X github.com/rxtech-lab/argo-settlement/internal/version.Version=1.2.3"
// The default value "main" indicates a development build.
var Version = "v1.0.0"

// LedgerSnapshotVersion is the format version stamped on ledger snapshots.
// Restoring requires the same major and minor version.
const LedgerSnapshotVersion = "1.0.0"

// GetVersion returns the current version of the engine.
func GetVersion() string {
	return Version
}
