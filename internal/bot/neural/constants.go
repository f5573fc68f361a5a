package neural

// NumSideFeatures is the number of features describing one side of a battle.
const NumSideFeatures = 12

// NumFeatures is the length of an encoded battle: both sides, the
// territory and the battle context.
const NumFeatures = 2*NumSideFeatures + 5

// Per-side feature offsets.
const (
	FeatCount      = 0
	FeatHitPoints  = 1
	FeatPower      = 2 // attack or defense power, normalized to six-sided dice
	FeatRolls      = 3
	FeatLand       = 4
	FeatSea        = 5
	FeatAir        = 6
	FeatSubs       = 7
	FeatDestroyers = 8
	FeatAA         = 9
	FeatBombard    = 10
	FeatTUV        = 11
)

// Battle feature offsets, after both sides.
const (
	FeatWater      = 2 * NumSideFeatures
	FeatProduction = FeatWater + 1
	FeatCapital    = FeatWater + 2
	FeatAttacking  = FeatWater + 3
	FeatDice       = FeatWater + 4
)

// Model input and output names.
const (
	InputFeatures  = "features"
	OutputStrength = "strength"
)
