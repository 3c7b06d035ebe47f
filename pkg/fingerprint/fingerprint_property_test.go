//go:build property
// +build property

package fingerprint_test

import (
	"strings"
	"testing"

	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"

	"github.com/Mindburn-Labs/rudder/pkg/fingerprint"
)

// TestFingerprintNormalizationInvariance verifies the digest ignores
// surrounding whitespace and letter case for arbitrary field content.
func TestFingerprintNormalizationInvariance(t *testing.T) {
	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 200
	properties := gopter.NewProperties(parameters)

	properties.Property("whitespace and case do not change the digest", prop.ForAll(
		func(title, action, desc string) bool {
			base := fingerprint.Compute(title, action, desc)
			padded := fingerprint.Compute("  "+title+"\t", action+"\n", " "+desc+" ")
			upper := fingerprint.Compute(strings.ToUpper(title), strings.ToUpper(action), strings.ToUpper(desc))
			return base == padded && base == upper
		},
		gen.AlphaString(),
		gen.AlphaString(),
		gen.AlphaString(),
	))

	properties.TestingRun(t)
}

// TestFingerprintContentSensitivity verifies appending content to any
// field changes the digest.
func TestFingerprintContentSensitivity(t *testing.T) {
	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 200
	properties := gopter.NewProperties(parameters)

	properties.Property("appended content changes the digest", prop.ForAll(
		func(title, action, desc string) bool {
			base := fingerprint.Compute(title, action, desc)
			return base != fingerprint.Compute(title+"x", action, desc) &&
				base != fingerprint.Compute(title, action+"x", desc) &&
				base != fingerprint.Compute(title, action, desc+"x")
		},
		gen.AlphaString(),
		gen.AlphaString(),
		gen.AlphaString(),
	))

	properties.TestingRun(t)
}

// TestFingerprintDeterminism verifies repeated computation is stable.
func TestFingerprintDeterminism(t *testing.T) {
	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 100
	properties := gopter.NewProperties(parameters)

	properties.Property("repeated computation yields the same digest", prop.ForAll(
		func(title, action, desc string) bool {
			return fingerprint.Compute(title, action, desc) == fingerprint.Compute(title, action, desc)
		},
		gen.AnyString(),
		gen.AnyString(),
		gen.AnyString(),
	))

	properties.TestingRun(t)
}
