package config

// NewCLILayer builds the highest-precedence layer from already-extracted
// flag values. Empty strings and nil pointers mean "flag not set".
func NewCLILayer(versionFlag, rollForwardFlag string, legacyCandidate *int, allowPrerelease *bool) (Layer, error) {
	layer := Layer{Name: LayerCLI, AllowPrerelease: allowPrerelease}

	v, err := version(LayerCLI, versionFlag)
	if err != nil {
		return layer, err
	}
	layer.Version = v

	m, err := mode(LayerCLI, rollForwardFlag, legacyCandidate)
	if err != nil {
		return layer, err
	}
	layer.Mode = m
	return layer, nil
}
