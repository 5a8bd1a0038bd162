package cmd

const (
	// InstallRootFlag Flag to add an install root to scan. Repeatable; later roots have lower precedence.
	InstallRootFlag = "install-root"
	// ScopeFlag Flag to set the scope directory whose configuration file and pin apply.
	ScopeFlag = "scope"
	// VersionFloorFlag Flag to set the requested minimum version, overriding file and environment.
	VersionFloorFlag = "version-floor"
	// RollForwardFlag Flag to set the roll-forward policy, overriding file and environment.
	RollForwardFlag = "roll-forward"
	// LegacyCandidateFlag Legacy spelling of the roll-forward policy (0 disable, 1 minor, 2 major). Mutually exclusive with RollForwardFlag.
	LegacyCandidateFlag = "roll-forward-on-no-candidate"
	// AllowPrereleaseFlag Flag to control whether prerelease versions are candidates.
	AllowPrereleaseFlag = "allow-prerelease"
	// OutputFlag Flag to select the output format.
	OutputFlag = "output"
)
