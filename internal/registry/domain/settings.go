package registry

// DefaultSavePath is the output root used when settings do not name one.
const DefaultSavePath = "Реестры по абонентам"

// Settings are the operator-maintained registry options.
type Settings struct {
	SavePath   string           `json:"save_path" yaml:"save_path"`
	Signatures []SignatureBlock `json:"signatures" yaml:"signatures"`
}

// OutputRoot resolves the root directory, preferring override when set.
func (s Settings) OutputRoot(override string) string {
	if override != "" {
		return override
	}
	if s.SavePath != "" {
		return s.SavePath
	}
	return DefaultSavePath
}
