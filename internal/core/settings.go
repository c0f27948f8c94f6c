package core

const (
	MinDescriptionSeconds     = 10
	MaxDescriptionSeconds     = 120
	MinVotingSeconds          = 15
	MaxVotingSeconds          = 300
	DefaultDescriptionSeconds = 30
	DefaultVotingSeconds      = 60
)

// Settings are the per-room round durations.
type Settings struct {
	DescriptionSeconds int `json:"descriptionSeconds"`
	VotingSeconds      int `json:"votingSeconds"`
}

func DefaultSettings() Settings {
	return Settings{
		DescriptionSeconds: DefaultDescriptionSeconds,
		VotingSeconds:      DefaultVotingSeconds,
	}
}

func (s Settings) Validate() error {
	if s.DescriptionSeconds < MinDescriptionSeconds || s.DescriptionSeconds > MaxDescriptionSeconds {
		return errSettings("descriptionSeconds", MinDescriptionSeconds, MaxDescriptionSeconds)
	}
	if s.VotingSeconds < MinVotingSeconds || s.VotingSeconds > MaxVotingSeconds {
		return errSettings("votingSeconds", MinVotingSeconds, MaxVotingSeconds)
	}
	return nil
}

// Clamp forces both durations into their allowed ranges.
func (s Settings) Clamp() Settings {
	return Settings{
		DescriptionSeconds: min(max(s.DescriptionSeconds, MinDescriptionSeconds), MaxDescriptionSeconds),
		VotingSeconds:      min(max(s.VotingSeconds, MinVotingSeconds), MaxVotingSeconds),
	}
}
