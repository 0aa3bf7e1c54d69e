package auth

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestRejectTakesPrecedenceOverAllow(t *testing.T) {
	allow := ParseRules("*")
	reject := ParseRules("10.0.0.5")

	require.Equal(t, Reject, Evaluate("/", "10.0.0.5", allow, reject))
	require.Equal(t, Accept, Evaluate("/", "10.0.0.6", allow, reject))
}

func TestNoMatchIsDontCare(t *testing.T) {
	allow := ParseRules("10.0.0.1")
	reject := ParseRules("10.0.0.2")
	require.Equal(t, DontCare, Evaluate("/", "192.168.1.1", allow, reject))
}

func TestNegationInverts(t *testing.T) {
	allow := ParseRules("!10.0.0.5")
	require.Equal(t, Accept, Evaluate("/", "10.0.0.6", allow, nil))
	require.Equal(t, DontCare, Evaluate("/", "10.0.0.5", allow, nil))
}

func TestDottedQuadGlob(t *testing.T) {
	allow := ParseRules("10.0.0.*")
	require.Equal(t, Accept, Evaluate("/", "10.0.0.42", allow, nil))
	require.Equal(t, DontCare, Evaluate("/", "10.0.1.42", allow, nil))
}

func TestSubdirQualifiedClause(t *testing.T) {
	rules := ParseRules("/archive(10.0.0.1,10.0.0.2),/scratch(*)")
	require.Len(t, rules, 2)
	require.Equal(t, "/archive", rules[0].Subdir)
	require.Equal(t, []string{"10.0.0.1", "10.0.0.2"}, rules[0].Patterns)
	require.Equal(t, "/scratch", rules[1].Subdir)

	require.Equal(t, Accept, Evaluate("/archive", "10.0.0.1", rules, nil))
	require.Equal(t, DontCare, Evaluate("/archive", "10.0.0.9", rules, nil))
	require.Equal(t, Accept, Evaluate("/scratch", "10.0.0.9", rules, nil))
}

func TestBarePatternAppliesToDefaultSubdir(t *testing.T) {
	rules := ParseRules("192.168.*.*")
	require.Equal(t, "/", rules[0].Subdir)
}

func TestCheckInsecurePort(t *testing.T) {
	require.True(t, CheckInsecurePort(1020, false, false), "privileged port always accepted")
	require.False(t, CheckInsecurePort(4000, false, false), "non-privileged rejected by default")
	require.True(t, CheckInsecurePort(4000, false, true), "allow-insecure permits non-privileged")
	require.True(t, CheckInsecurePort(4000, true, false), "AF_UNIX bypasses the port check")
}
