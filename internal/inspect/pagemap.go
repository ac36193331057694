package inspect

// PageReport is a snapshot of the readiness markers on a page
type PageReport struct {
	URL     string       `json:"url,omitempty"`
	Scripts []ScriptInfo `json:"scripts"`
	Flags   []FlagInfo   `json:"flags"`
	Modals  []ModalInfo  `json:"modals"`
}

// ScriptInfo describes one tracked script
type ScriptInfo struct {
	Src    string `json:"src,omitempty"`
	Inline bool   `json:"inline,omitempty"`
	Loaded bool   `json:"loaded"`
}

// FlagInfo reports a readiness flag on <body>
type FlagInfo struct {
	Name string `json:"name"`
	Set  bool   `json:"set"`
}

// ModalInfo describes a modal overlay
type ModalInfo struct {
	ID      string `json:"id,omitempty"`
	Visible bool   `json:"visible"`
}

// Pending returns the scripts not yet marked loaded
func (r *PageReport) Pending() []ScriptInfo {
	var out []ScriptInfo
	for _, s := range r.Scripts {
		if !s.Loaded {
			out = append(out, s)
		}
	}
	return out
}

// Ready reports whether the readiness gate would pass right now, ignoring
// the load event.
func (r *PageReport) Ready() bool {
	for _, f := range r.Flags {
		if !f.Set {
			return false
		}
	}
	return len(r.Pending()) == 0
}
