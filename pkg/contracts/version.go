package contracts

import (
	"fmt"

	"github.com/Masterminds/semver/v3"
)

// SchemaVersion is stamped on every persisted record. Readers accept
// records from the same major version; anything else is skipped the way
// a malformed record would be.
const SchemaVersion = "1.0.0"

var schemaConstraint = mustConstraint("^1")

func mustConstraint(spec string) *semver.Constraints {
	c, err := semver.NewConstraint(spec)
	if err != nil {
		panic(fmt.Sprintf("invalid schema constraint %q: %v", spec, err))
	}
	return c
}

// CompatibleSchema reports whether a record written at the given schema
// version can be interpreted by this build. An empty version is a
// legacy record and is accepted.
func CompatibleSchema(version string) error {
	if version == "" {
		return nil
	}
	v, err := semver.NewVersion(version)
	if err != nil {
		return fmt.Errorf("invalid record schema version %q: %w", version, err)
	}
	if !schemaConstraint.Check(v) {
		return fmt.Errorf("record schema version %s is outside supported range ^1", version)
	}
	return nil
}
