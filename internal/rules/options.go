package rules

// Options are the game option flags the resolvers consult. They are read-only
// during play.
type Options struct {
	FriendlyFire           bool `json:"friendly_fire" mapstructure:"friendlyFire" msgpack:"friendly_fire"`
	DoubleBlind            bool `json:"double_blind" mapstructure:"doubleBlind" msgpack:"double_blind"`
	TeamVision             bool `json:"team_vision" mapstructure:"teamVision" msgpack:"team_vision"`
	TeamInitiative         bool `json:"team_initiative" mapstructure:"teamInitiative" msgpack:"team_initiative"`
	InfantryMoveLater      bool `json:"infantry_move_later" mapstructure:"infantryMoveLater" msgpack:"infantry_move_later"`
	InfantryMoveMulti      bool `json:"infantry_move_multi" mapstructure:"infantryMoveMulti" msgpack:"infantry_move_multi"`
	FireEnabled            bool `json:"fire_enabled" mapstructure:"fireEnabled" msgpack:"fire_enabled"`
	PushOffBoard           bool `json:"push_off_board" mapstructure:"pushOffBoard" msgpack:"push_off_board"`
	SkipIneligiblePhysical bool `json:"skip_ineligible_physical" mapstructure:"skipIneligiblePhysical" msgpack:"skip_ineligible_physical"`
	CheckVictory           bool `json:"check_victory" mapstructure:"checkVictory" msgpack:"check_victory"`
	VisualRange            int  `json:"visual_range" mapstructure:"visualRange" msgpack:"visual_range"`
}

// MultiMoveGroup is how many infantry units one multi-move turn may move.
const MultiMoveGroup = 3

// DefaultOptions returns the options used when nothing is configured.
func DefaultOptions() Options {
	return Options{
		TeamVision:             true,
		FireEnabled:            true,
		PushOffBoard:           true,
		SkipIneligiblePhysical: true,
		CheckVictory:           true,
		VisualRange:            17,
	}
}
