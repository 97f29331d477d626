package main

import (
	"bytes"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"slices"
	"strings"

	"github.com/jwebster45206/dicebot/pkg/actor"
)

func main() {
	if len(os.Args) < 2 {
		fmt.Fprintf(os.Stderr, "Usage: %s <character.json|characters-dir>...\n", os.Args[0])
		os.Exit(1)
	}

	files, err := collectFiles(os.Args[1:])
	if err != nil {
		fmt.Fprintf(os.Stderr, "Validation failed: %v\n", err)
		os.Exit(1)
	}

	failed := 0
	for _, filename := range files {
		v := &CharacterValidator{}
		if err := v.validateFile(filename); err != nil {
			fmt.Fprintf(os.Stderr, "Validation failed: %v\n", err)
			failed++
		}
	}
	if failed > 0 {
		os.Exit(1)
	}

	fmt.Printf("%d character file(s) valid!\n", len(files))
}

// collectFiles expands directory arguments to the .json files they contain.
func collectFiles(args []string) ([]string, error) {
	var files []string
	for _, arg := range args {
		info, err := os.Stat(arg)
		if err != nil {
			return nil, err
		}
		if !info.IsDir() {
			files = append(files, arg)
			continue
		}
		matches, err := filepath.Glob(filepath.Join(arg, "*.json"))
		if err != nil {
			return nil, err
		}
		files = append(files, matches...)
	}
	slices.Sort(files)
	return files, nil
}

type CharacterValidator struct {
	errors []string
}

func (v *CharacterValidator) validateFile(filename string) error {
	fmt.Printf("Validating %s...\n", filename)

	baseName := filepath.Base(filename)
	if !strings.HasSuffix(baseName, ".json") {
		return fmt.Errorf("character file must have .json extension: %s", baseName)
	}

	id := strings.TrimSuffix(baseName, ".json")
	if !isValidID(id) {
		return fmt.Errorf("character filename '%s' must be lowercase (e.g., mira.json, not Mira.json); the filename is the id typed in chat", baseName)
	}

	data, err := os.ReadFile(filename)
	if err != nil {
		return fmt.Errorf("failed to read file %s: %w", filename, err)
	}

	v.errors = nil

	if !json.Valid(data) {
		return fmt.Errorf("file %s contains invalid JSON", filename)
	}

	var spec actor.CharacterSpec
	decoder := json.NewDecoder(bytes.NewReader(data))
	decoder.DisallowUnknownFields()
	if err := decoder.Decode(&spec); err != nil {
		return fmt.Errorf("file %s failed strict JSON unmarshaling: %w", filename, err)
	}
	if spec.ID != "" && spec.ID != id {
		v.addError(fmt.Sprintf("id '%s' does not match filename; the filename wins", spec.ID))
	}
	spec.ID = id

	v.validateCharacter(&spec)

	if len(v.errors) > 0 {
		return fmt.Errorf("validation errors in %s:\n%s", filename, strings.Join(v.errors, "\n"))
	}
	return nil
}

func (v *CharacterValidator) validateCharacter(spec *actor.CharacterSpec) {
	if err := spec.Validate(); err != nil {
		v.addError(err.Error())
		return
	}

	for skill := range spec.Skills {
		if !isValidSkillName(skill) {
			v.addError(fmt.Sprintf("skill '%s' must be a single word so it can be typed in chat", skill))
		}
	}
	for name := range spec.Attacks {
		if strings.TrimSpace(name) == "" {
			v.addError("attack with an empty name")
		}
	}

	if spec.HP > spec.MaxHP {
		v.addError(fmt.Sprintf("hp %d exceeds max_hp %d", spec.HP, spec.MaxHP))
	}

	if _, err := actor.NewCharacterFromSpec(spec); err != nil {
		v.addError(err.Error())
	}
}

func (v *CharacterValidator) addError(msg string) {
	v.errors = append(v.errors, "  - "+msg)
}

var (
	validIDRegex    = regexp.MustCompile(`^[a-z0-9][a-z0-9_-]*$`)
	validSkillRegex = regexp.MustCompile(`^[A-Za-z][A-Za-z_-]*$`)
)

func isValidID(id string) bool {
	return validIDRegex.MatchString(id)
}

func isValidSkillName(name string) bool {
	return validSkillRegex.MatchString(name)
}
