package actor

import (
	"encoding/json"
	"errors"
	"fmt"
	"maps"
	"os"
	"path/filepath"
	"slices"
	"strconv"
	"strings"

	"github.com/jwebster45206/d20"

	"github.com/jwebster45206/dicebot/pkg/dice"
)

// ErrUnknownAttribute is returned when a check names neither an ability
// score nor a skill on the sheet.
var ErrUnknownAttribute = errors.New("unknown attribute")

// ErrUnknownAttack is returned when an attack name is not on the sheet.
var ErrUnknownAttack = errors.New("unknown attack")

// Abilities holds the six 5e ability scores.
type Abilities struct {
	Strength     int `json:"strength"`
	Dexterity    int `json:"dexterity"`
	Constitution int `json:"constitution"`
	Intelligence int `json:"intelligence"`
	Wisdom       int `json:"wisdom"`
	Charisma     int `json:"charisma"`
}

// AbilityNames lists ability keys in sheet order.
var AbilityNames = []string{"strength", "dexterity", "constitution", "intelligence", "wisdom", "charisma"}

// abbreviations accepted by checks, e.g. "~check mira dex"
var abilityAbbrev = map[string]string{
	"str": "strength",
	"dex": "dexterity",
	"con": "constitution",
	"int": "intelligence",
	"wis": "wisdom",
	"cha": "charisma",
}

// ToAttributes converts Abilities to a map for d20.Actor
func (a *Abilities) ToAttributes() map[string]int {
	return map[string]int{
		"strength":     a.Strength,
		"dexterity":    a.Dexterity,
		"constitution": a.Constitution,
		"intelligence": a.Intelligence,
		"wisdom":       a.Wisdom,
		"charisma":     a.Charisma,
	}
}

// CharacterSpec is the serializable character sheet, as stored in
// DATA_DIR/characters/<id>.json.
type CharacterSpec struct {
	ID              string            `json:"id"`
	Name            string            `json:"name"`
	Class           string            `json:"class,omitempty"`
	Level           int               `json:"level,omitempty"`
	Race            string            `json:"race,omitempty"`
	Pronouns        string            `json:"pronouns,omitempty"`
	Description     string            `json:"description,omitempty"`
	Abilities       Abilities         `json:"abilities"`
	HP              int               `json:"hp,omitempty"`
	MaxHP           int               `json:"max_hp"`
	AC              int               `json:"ac"`
	CombatModifiers map[string]int    `json:"combat_modifiers,omitempty"`
	Skills          map[string]int    `json:"skills,omitempty"`  // skill name -> total bonus
	Attacks         map[string]string `json:"attacks,omitempty"` // attack name -> dice expression
}

// Validate checks the sheet for problems that would make it unusable by
// the bot. Every attack expression must tokenize.
func (s *CharacterSpec) Validate() error {
	if s.ID == "" {
		return fmt.Errorf("id is required")
	}
	if strings.TrimSpace(s.Name) == "" {
		return fmt.Errorf("name is required")
	}
	if s.MaxHP <= 0 {
		return fmt.Errorf("max_hp must be positive")
	}
	for _, name := range slices.Sorted(maps.Keys(s.Attacks)) {
		expr := s.Attacks[name]
		if strings.TrimSpace(expr) == "" {
			return fmt.Errorf("attack %q has no expression", name)
		}
		if _, err := dice.ToPostfix(expr); err != nil {
			return fmt.Errorf("attack %q: %w", name, err)
		}
	}
	for skill := range s.Skills {
		if isAbility(skill) {
			return fmt.Errorf("skill %q shadows an ability score", skill)
		}
	}
	return nil
}

// Character is the runtime form of a sheet.
type Character struct {
	Spec  *CharacterSpec
	Actor *d20.Actor // built from Spec
}

// NewCharacterFromSpec builds the d20.Actor for a sheet. Ability scores and
// skills both become actor attributes.
func NewCharacterFromSpec(spec *CharacterSpec) (*Character, error) {
	if spec == nil {
		return nil, fmt.Errorf("spec cannot be nil")
	}

	attrs := spec.Abilities.ToAttributes()
	for k, v := range spec.Skills {
		attrs[strings.ToLower(k)] = v
	}

	a, err := d20.NewActor(spec.ID).
		WithHP(spec.MaxHP).
		WithAC(spec.AC).
		WithAttributes(attrs).
		WithCombatModifiers(spec.CombatModifiers).
		Build()
	if err != nil {
		return nil, fmt.Errorf("failed to build actor: %w", err)
	}

	if spec.HP != spec.MaxHP && spec.HP > 0 {
		if err := a.SetHP(spec.HP); err != nil {
			return nil, fmt.Errorf("failed to set HP: %w", err)
		}
	}

	return &Character{Spec: spec, Actor: a}, nil
}

// ParseSpec decodes a sheet. id, when not empty, overrides the id in the
// JSON so that files are addressed by name.
func ParseSpec(data []byte, id string) (*CharacterSpec, error) {
	var spec CharacterSpec
	if err := json.Unmarshal(data, &spec); err != nil {
		return nil, fmt.Errorf("failed to unmarshal character spec: %w", err)
	}
	if id != "" {
		spec.ID = id
	}
	return &spec, nil
}

// LoadSpec reads a sheet file. The filename (without .json) is the id.
func LoadSpec(path string) (*CharacterSpec, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read character file: %w", err)
	}
	return ParseSpec(data, strings.TrimSuffix(filepath.Base(path), ".json"))
}

// AbilityModifier is the 5e modifier for a score: floor((score-10)/2).
func AbilityModifier(score int) int {
	d := score - 10
	if d < 0 {
		return (d - 1) / 2
	}
	return d / 2
}

func isAbility(name string) bool {
	return slices.Contains(AbilityNames, strings.ToLower(name))
}

// CheckModifier returns the bonus for a check on attr. Ability scores
// (full name or three-letter abbreviation) give their ability modifier,
// skills give their stored bonus.
func (c *Character) CheckModifier(attr string) (int, error) {
	key := strings.ToLower(strings.TrimSpace(attr))
	if full, ok := abilityAbbrev[key]; ok {
		key = full
	}

	v, ok := c.Actor.Attribute(key)
	if !ok {
		return 0, fmt.Errorf("%w: %s", ErrUnknownAttribute, attr)
	}
	if isAbility(key) {
		return AbilityModifier(v), nil
	}
	return v, nil
}

// CheckExpression returns the dice expression for a d20 check on attr.
func (c *Character) CheckExpression(attr string) (string, error) {
	mod, err := c.CheckModifier(attr)
	if err != nil {
		return "", err
	}
	return withModifier("1d20", mod), nil
}

// AttackExpression returns the dice expression stored for the named attack.
// Names match case-insensitively.
func (c *Character) AttackExpression(name string) (string, error) {
	for k, expr := range c.Spec.Attacks {
		if strings.EqualFold(k, strings.TrimSpace(name)) {
			return expr, nil
		}
	}
	return "", fmt.Errorf("%w: %s", ErrUnknownAttack, name)
}

// AttackNames returns the sheet's attack names, sorted.
func (c *Character) AttackNames() []string {
	return slices.Sorted(maps.Keys(c.Spec.Attacks))
}

func withModifier(base string, mod int) string {
	switch {
	case mod > 0:
		return base + "+" + strconv.Itoa(mod)
	case mod < 0:
		return base + "-" + strconv.Itoa(-mod)
	default:
		return base
	}
}

// MarshalJSON renders the sheet with live HP/AC from the Actor and the
// computed ability modifiers.
func (c *Character) MarshalJSON() ([]byte, error) {
	if c == nil {
		return []byte("null"), nil
	}
	if c.Actor == nil {
		return json.Marshal(c.Spec)
	}

	type characterResponse struct {
		*CharacterSpec
		HP        int            `json:"hp"`
		MaxHP     int            `json:"max_hp"`
		AC        int            `json:"ac"`
		Modifiers map[string]int `json:"modifiers"`
	}

	resp := characterResponse{
		CharacterSpec: c.Spec,
		HP:            c.Actor.HP(),
		MaxHP:         c.Actor.MaxHP(),
		AC:            c.Actor.AC(),
		Modifiers:     make(map[string]int, len(AbilityNames)),
	}
	for _, name := range AbilityNames {
		if v, ok := c.Actor.Attribute(name); ok {
			resp.Modifiers[name] = AbilityModifier(v)
		}
	}
	return json.Marshal(resp)
}
