package casregistry

// Usage restricts which programs accept a backend.
type Usage uint8

const (
	// UsageCLI marks backends available to the xdao-shard command.
	UsageCLI Usage = 1 << iota
	// UsageDaemon marks backends a storage daemon (xdao-casgrpcd) may serve.
	UsageDaemon
)

func (u Usage) allows(want Usage) bool { return u&want != 0 }
