package dicebot

// Result is the engine's reply to one command.
type Result struct {
	Text string
	// Secret results go only to the sender; the channel is told a secret roll happened.
	Secret bool
}

// Engine evaluates chat lines under a rule set.
type Engine interface {
	// Roll returns ok=false when line is not a command of the rule set.
	Roll(ruleSetID, line string) (result Result, ok bool)
	Version() string
}

// NullEngine is used when no dice engine is attached. It recognizes no commands.
type NullEngine struct {
	EngineVersion string
}

func (NullEngine) Roll(string, string) (Result, bool) {
	return Result{}, false
}

func (e NullEngine) Version() string {
	if e.EngineVersion == "" {
		return "unavailable"
	}
	return e.EngineVersion
}
