package actor

import (
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"testing"
)

func testSpec() *CharacterSpec {
	return &CharacterSpec{
		ID:    "mira",
		Name:  "Mira Thorne",
		Class: "Rogue",
		Level: 3,
		Abilities: Abilities{
			Strength:     8,
			Dexterity:    17,
			Constitution: 14,
			Intelligence: 12,
			Wisdom:       10,
			Charisma:     13,
		},
		HP:    18,
		MaxHP: 21,
		AC:    15,
		Skills: map[string]int{
			"Stealth":    7,
			"perception": 2,
		},
		Attacks: map[string]string{
			"Shortsword": "1d6+3",
			"sneak":      "1d6+3+2d6",
		},
	}
}

func TestAbilityModifier(t *testing.T) {
	tests := []struct {
		score int
		want  int
	}{
		{1, -5},
		{3, -4},
		{7, -2},
		{8, -1},
		{9, -1},
		{10, 0},
		{11, 0},
		{12, 1},
		{17, 3},
		{20, 5},
		{30, 10},
	}
	for _, tt := range tests {
		if got := AbilityModifier(tt.score); got != tt.want {
			t.Errorf("AbilityModifier(%d) = %d, want %d", tt.score, got, tt.want)
		}
	}
}

func TestNewCharacterFromSpec(t *testing.T) {
	c, err := NewCharacterFromSpec(testSpec())
	if err != nil {
		t.Fatalf("NewCharacterFromSpec() error = %v", err)
	}
	if c.Actor.HP() != 18 {
		t.Errorf("Actor.HP() = %d, want 18", c.Actor.HP())
	}
	if c.Actor.MaxHP() != 21 {
		t.Errorf("Actor.MaxHP() = %d, want 21", c.Actor.MaxHP())
	}
	if c.Actor.AC() != 15 {
		t.Errorf("Actor.AC() = %d, want 15", c.Actor.AC())
	}
	if v, ok := c.Actor.Attribute("stealth"); !ok || v != 7 {
		t.Errorf("Actor.Attribute(stealth) = %d, %v; want 7, true", v, ok)
	}
}

func TestNewCharacterFromSpec_Invalid(t *testing.T) {
	if _, err := NewCharacterFromSpec(nil); err == nil {
		t.Error("expected error for nil spec")
	}

	spec := testSpec()
	spec.MaxHP = 0
	if _, err := NewCharacterFromSpec(spec); err == nil {
		t.Error("expected error for zero max HP")
	}
}

func TestCharacter_CheckExpression(t *testing.T) {
	c, err := NewCharacterFromSpec(testSpec())
	if err != nil {
		t.Fatalf("NewCharacterFromSpec() error = %v", err)
	}

	tests := []struct {
		attr string
		want string
	}{
		{"dexterity", "1d20+3"},
		{"DEX", "1d20+3"},
		{"str", "1d20-1"},
		{"wisdom", "1d20"},
		{"stealth", "1d20+7"},
		{"Perception", "1d20+2"},
	}
	for _, tt := range tests {
		t.Run(tt.attr, func(t *testing.T) {
			got, err := c.CheckExpression(tt.attr)
			if err != nil {
				t.Fatalf("CheckExpression(%q) error = %v", tt.attr, err)
			}
			if got != tt.want {
				t.Errorf("CheckExpression(%q) = %q, want %q", tt.attr, got, tt.want)
			}
		})
	}

	if _, err := c.CheckExpression("arcana"); !errors.Is(err, ErrUnknownAttribute) {
		t.Errorf("CheckExpression(arcana) error = %v, want ErrUnknownAttribute", err)
	}
}

func TestCharacter_AttackExpression(t *testing.T) {
	c, err := NewCharacterFromSpec(testSpec())
	if err != nil {
		t.Fatalf("NewCharacterFromSpec() error = %v", err)
	}

	got, err := c.AttackExpression("shortsword")
	if err != nil {
		t.Fatalf("AttackExpression error = %v", err)
	}
	if got != "1d6+3" {
		t.Errorf("AttackExpression(shortsword) = %q, want 1d6+3", got)
	}

	if _, err := c.AttackExpression("fireball"); !errors.Is(err, ErrUnknownAttack) {
		t.Errorf("AttackExpression(fireball) error = %v, want ErrUnknownAttack", err)
	}

	names := c.AttackNames()
	if len(names) != 2 || names[0] != "Shortsword" || names[1] != "sneak" {
		t.Errorf("AttackNames() = %v", names)
	}
}

func TestCharacterSpec_Validate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*CharacterSpec)
		wantErr bool
	}{
		{"valid", func(*CharacterSpec) {}, false},
		{"missing id", func(s *CharacterSpec) { s.ID = "" }, true},
		{"missing name", func(s *CharacterSpec) { s.Name = " " }, true},
		{"no max hp", func(s *CharacterSpec) { s.MaxHP = 0 }, true},
		{"bad attack token", func(s *CharacterSpec) { s.Attacks["club"] = "1d4+x" }, true},
		{"empty attack", func(s *CharacterSpec) { s.Attacks["club"] = "" }, true},
		{"skill named like ability", func(s *CharacterSpec) { s.Skills["Strength"] = 2 }, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			spec := testSpec()
			tt.mutate(spec)
			err := spec.Validate()
			if (err != nil) != tt.wantErr {
				t.Errorf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestLoadSpec_FilenameIsID(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "bram.json")
	data := []byte(`{"id":"ignored","name":"Bram","max_hp":12,"ac":16,"abilities":{"strength":16}}`)
	if err := os.WriteFile(path, data, 0644); err != nil {
		t.Fatalf("failed to write sheet: %v", err)
	}

	spec, err := LoadSpec(path)
	if err != nil {
		t.Fatalf("LoadSpec() error = %v", err)
	}
	if spec.ID != "bram" {
		t.Errorf("ID = %q, want bram", spec.ID)
	}
	if spec.Abilities.Strength != 16 {
		t.Errorf("Strength = %d, want 16", spec.Abilities.Strength)
	}

	if _, err := LoadSpec(filepath.Join(dir, "missing.json")); err == nil {
		t.Error("expected error for missing file")
	}
}

func TestCharacter_MarshalJSON(t *testing.T) {
	c, err := NewCharacterFromSpec(testSpec())
	if err != nil {
		t.Fatalf("NewCharacterFromSpec() error = %v", err)
	}

	data, err := json.Marshal(c)
	if err != nil {
		t.Fatalf("Marshal error = %v", err)
	}

	var got struct {
		ID        string         `json:"id"`
		HP        int            `json:"hp"`
		MaxHP     int            `json:"max_hp"`
		Modifiers map[string]int `json:"modifiers"`
	}
	if err := json.Unmarshal(data, &got); err != nil {
		t.Fatalf("Unmarshal error = %v", err)
	}
	if got.ID != "mira" || got.HP != 18 || got.MaxHP != 21 {
		t.Errorf("unexpected sheet: %+v", got)
	}
	if got.Modifiers["dexterity"] != 3 || got.Modifiers["strength"] != -1 {
		t.Errorf("Modifiers = %v", got.Modifiers)
	}

	var nilChar *Character
	if data, _ := json.Marshal(nilChar); string(data) != "null" {
		t.Errorf("nil character marshaled to %s", data)
	}
}
