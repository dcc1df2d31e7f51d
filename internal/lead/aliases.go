package lead

// Vendor payloads are inconsistent about which key carries a concept, so
// every lookup goes through an ordered alias list. The first non-empty value
// wins.
var (
	// AgentFields names the assigned agent: the latest broker first, then the
	// generic owner fields.
	AgentFields = []string{"corretor_ultimo", "corretor", "responsavel", "gestor", "vendedor"}

	// SourceFields names the acquisition channel.
	SourceFields = []string{"origem_nome", "origem"}

	StatusFields    = []string{"situacao"}
	CreatedAtFields = []string{"data_cad"}
	NameFields      = []string{"nome"}
)

// Resolve returns the first non-empty value among aliases.
func (l Lead) Resolve(aliases []string) string {
	for _, key := range aliases {
		if v := l.Get(key); v != "" {
			return v
		}
	}
	return ""
}

// ResolveKey is Resolve but also reports which alias matched.
func (l Lead) ResolveKey(aliases []string) (key, value string) {
	for _, k := range aliases {
		if v := l.Get(k); v != "" {
			return k, v
		}
	}
	return "", ""
}

func (l Lead) Agent() string     { return l.Resolve(AgentFields) }
func (l Lead) Source() string    { return l.Resolve(SourceFields) }
func (l Lead) Status() string    { return l.Resolve(StatusFields) }
func (l Lead) CreatedAt() string { return l.Resolve(CreatedAtFields) }
func (l Lead) Name() string      { return l.Resolve(NameFields) }
