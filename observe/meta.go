package observe

// CallMeta identifies an intercepted call site for telemetry purposes.
type CallMeta struct {
	Component string   // Owning component, e.g. "jikan" (optional)
	Name      string   // Call site name, e.g. "anime" (required)
	Version   string   // Component version (optional)
	Tags      []string // Free-form tags (optional)
}

// SpanName returns the deterministic span name for this call site.
// Format: call.<component>.<name> or call.<name>
func (m CallMeta) SpanName() string {
	if m.Component != "" {
		return "call." + m.Component + "." + m.Name
	}
	return "call." + m.Name
}

// CallID returns the fully qualified call site identifier.
func (m CallMeta) CallID() string {
	if m.Component != "" {
		return m.Component + "." + m.Name
	}
	return m.Name
}

// Validate reports whether the metadata is usable.
func (m CallMeta) Validate() error {
	if m.Name == "" {
		return ErrMissingCallName
	}
	return nil
}
