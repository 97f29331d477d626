package replies

import (
	"golang.org/x/text/language"
	"golang.org/x/text/message"
)

// Message keys. Every key is registered for every supported locale.
const (
	KeyInvalidToken          = "dice.invalid_token"
	KeyInsufficientOperands  = "dice.insufficient_operands"
	KeyNotAnOperand          = "dice.not_an_operand"
	KeyNotAnOperator         = "dice.not_an_operator"
	KeyInvalidRollParameters = "dice.invalid_roll_parameters"
	KeyMalformedExpression   = "dice.malformed_expression"
	KeyInternal              = "core.internal"

	KeyUnknownCommand    = "bot.unknown_command"
	KeyHelp              = "bot.help"
	KeyUsageRoll         = "bot.usage.roll"
	KeyUsageCheck        = "bot.usage.check"
	KeyUsageAttack       = "bot.usage.attack"
	KeyCharacterNotFound = "bot.character_not_found"
	KeyUnknownAttribute  = "bot.unknown_attribute"
	KeyUnknownAttack     = "bot.unknown_attack"
	KeyCheckResult       = "bot.check_result"
	KeyAttackResult      = "bot.attack_result"
)

var catalogs = map[language.Tag]map[string]string{
	language.AmericanEnglish: {
		KeyInvalidToken:          "I can't read that expression: it has a character or token I don't know.",
		KeyInsufficientOperands:  "An operator in that expression is missing a number.",
		KeyNotAnOperand:          "Keep-highest and keep-lowest only work on a dice roll, like 4d6kh3.",
		KeyNotAnOperator:         "That expression has an unmatched parenthesis.",
		KeyInvalidRollParameters: "Those dice can't be rolled: counts and sides must be positive and not too large.",
		KeyMalformedExpression:   "That doesn't look like a complete expression.",
		KeyInternal:              "Something went wrong, please try again.",

		KeyUnknownCommand: "Unknown command %s. Try %shelp.",
		KeyHelp: "Commands:\n" +
			"%[1]sroll <expr>  roll dice, e.g. %[1]sroll 4d6kh3+2\n" +
			"%[1]scheck <character> <attribute>  d20 ability or skill check\n" +
			"%[1]sattack <character> <attack>  roll a named attack\n" +
			"%[1]s8ball [question]  ask the magic 8-ball\n" +
			"%[1]sping  check that I'm awake",
		KeyUsageRoll:         "Usage: %sroll <expression>",
		KeyUsageCheck:        "Usage: %scheck <character> <attribute>",
		KeyUsageAttack:       "Usage: %sattack <character> <attack>",
		KeyCharacterNotFound: "I don't know a character called %s.",
		KeyUnknownAttribute:  "%s has no ability or skill called %s.",
		KeyUnknownAttack:     "%s has no attack called %s. Known attacks: %s.",
		KeyCheckResult:       "%s rolls %s (%s): %s",
		KeyAttackResult:      "%s attacks with %s (%s): %s",
	},
	language.BrazilianPortuguese: {
		KeyInvalidToken:          "Não consigo ler essa expressão: ela tem um caractere ou símbolo desconhecido.",
		KeyInsufficientOperands:  "Falta um número para um dos operadores dessa expressão.",
		KeyNotAnOperand:          "Manter maiores e manter menores só funcionam em rolagens de dados, como 4d6kh3.",
		KeyNotAnOperator:         "Essa expressão tem um parêntese sem par.",
		KeyInvalidRollParameters: "Esses dados não podem ser rolados: quantidade e faces devem ser positivas e não muito grandes.",
		KeyMalformedExpression:   "Isso não parece uma expressão completa.",
		KeyInternal:              "Algo deu errado, tente novamente.",

		KeyUnknownCommand: "Comando desconhecido %s. Tente %shelp.",
		KeyHelp: "Comandos:\n" +
			"%[1]sroll <expr>  rola dados, ex. %[1]sroll 4d6kh3+2\n" +
			"%[1]scheck <personagem> <atributo>  teste de d20 de atributo ou perícia\n" +
			"%[1]sattack <personagem> <ataque>  rola um ataque pelo nome\n" +
			"%[1]s8ball [pergunta]  consulta a bola 8 mágica\n" +
			"%[1]sping  verifica se estou acordado",
		KeyUsageRoll:         "Uso: %sroll <expressão>",
		KeyUsageCheck:        "Uso: %scheck <personagem> <atributo>",
		KeyUsageAttack:       "Uso: %sattack <personagem> <ataque>",
		KeyCharacterNotFound: "Não conheço nenhum personagem chamado %s.",
		KeyUnknownAttribute:  "%s não tem atributo ou perícia chamado %s.",
		KeyUnknownAttack:     "%s não tem ataque chamado %s. Ataques conhecidos: %s.",
		KeyCheckResult:       "%s rola %s (%s): %s",
		KeyAttackResult:      "%s ataca com %s (%s): %s",
	},
}

func init() {
	for tag, msgs := range catalogs {
		tags := []language.Tag{tag}
		if base, conf := tag.Base(); conf != language.No {
			if baseTag, err := language.Parse(base.String()); err == nil && baseTag != tag {
				tags = append(tags, baseTag)
			}
		}
		for key, msg := range msgs {
			for _, t := range tags {
				if err := message.SetString(t, key, msg); err != nil {
					panic("register " + key + ": " + err.Error())
				}
			}
		}
	}
}
