package bot

import (
	"golang.org/x/text/language"

	"github.com/jwebster45206/dicebot/internal/config"
	"github.com/jwebster45206/dicebot/internal/replies"
	"github.com/jwebster45206/dicebot/pkg/textfilter"
)

// OptionsFromConfig maps service configuration onto bot options.
// DICE_MAX_COUNT=0 disables the dice limit.
func OptionsFromConfig(cfg *config.Config) Options {
	opts := Options{
		Prefix:  cfg.CommandPrefix,
		Rating:  textfilter.ParseRating(cfg.ContentRating),
		Locale:  replies.Match(cfg.DefaultLocale, language.AmericanEnglish),
		MaxDice: cfg.DiceMaxCount,
	}
	if opts.MaxDice == 0 {
		opts.MaxDice = -1
	}
	return opts
}
