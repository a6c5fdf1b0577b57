package version

import (
	"fmt"
	"strings"

	"github.com/Masterminds/semver/v3"
)

// CheckSnapshotCompatibility checks whether a ledger snapshot written with
// snapshotVersion can be restored by a ledger that writes currentVersion.
//
// Compatibility Rules:
//   - If either version is "main" (development build), the check is skipped
//   - Major versions must match exactly
//   - Minor versions must match exactly
//   - Patch versions can differ (e.g., 1.2.0 can restore 1.2.5)
func CheckSnapshotCompatibility(currentVersion, snapshotVersion string) error {
	currentVersion = strings.TrimPrefix(currentVersion, "v")
	snapshotVersion = strings.TrimPrefix(snapshotVersion, "v")

	if currentVersion == "main" || snapshotVersion == "main" {
		return nil
	}

	current, err := semver.NewVersion(currentVersion)
	if err != nil {
		return fmt.Errorf("invalid ledger version '%s': %w", currentVersion, err)
	}

	snapshot, err := semver.NewVersion(snapshotVersion)
	if err != nil {
		return fmt.Errorf("invalid snapshot version '%s': %w", snapshotVersion, err)
	}

	if current.Major() != snapshot.Major() {
		return fmt.Errorf("major version mismatch: ledger is %d.x.x but snapshot was written by %d.x.x",
			current.Major(), snapshot.Major())
	}

	if current.Minor() != snapshot.Minor() {
		return fmt.Errorf("minor version mismatch: ledger is %d.%d.x but snapshot was written by %d.%d.x",
			current.Major(), current.Minor(),
			snapshot.Major(), snapshot.Minor())
	}

	return nil
}
