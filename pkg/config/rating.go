package config

// RatingConfig controls the Elo engine's K-factor schedule and floor.
type RatingConfig struct {
	// KNew applies for the first NewGamesThreshold games.
	KNew int `yaml:"k_new"`

	// KEstablished applies after NewGamesThreshold games.
	KEstablished int `yaml:"k_established"`

	// KPlateau applies above PlateauRating regardless of game count.
	KPlateau int `yaml:"k_plateau"`

	// NewGamesThreshold is the games-played boundary between KNew and KEstablished.
	NewGamesThreshold int `yaml:"new_games_threshold"`

	// PlateauRating is the rating above which KPlateau applies.
	PlateauRating int `yaml:"plateau_rating"`

	// Floor guards against integer underflow; ratings never drop below it.
	Floor int `yaml:"floor"`
}

// DefaultRatingConfig returns the built-in rating defaults.
func DefaultRatingConfig() *RatingConfig {
	return &RatingConfig{
		KNew:              40,
		KEstablished:      20,
		KPlateau:          10,
		NewGamesThreshold: 30,
		PlateauRating:     2400,
		Floor:             100,
	}
}
