// Package bot parses chat commands and produces the bot's replies.
package bot

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"golang.org/x/text/language"

	"github.com/jwebster45206/dicebot/internal/replies"
	"github.com/jwebster45206/dicebot/pkg/actor"
	"github.com/jwebster45206/dicebot/pkg/command"
	"github.com/jwebster45206/dicebot/pkg/dice"
	"github.com/jwebster45206/dicebot/pkg/storage"
	"github.com/jwebster45206/dicebot/pkg/textfilter"
)

type commandType string

const (
	cmdPing   commandType = "ping"
	cmdRoll   commandType = "roll"
	cmd8Ball  commandType = "8ball"
	cmdCheck  commandType = "check"
	cmdAttack commandType = "attack"
	cmdHelp   commandType = "help"
)

// Codes set on replies that report a problem with the command itself.
const (
	CodeUnknownCommand = "UNKNOWN_COMMAND"
	CodeUsage          = "USAGE"
	CodeNotFound       = "NOT_FOUND"
	CodeInternal       = "INTERNAL"
)

// Options configures a Bot. Zero values fall back to defaults.
type Options struct {
	Prefix  string            // default "~"
	Rating  textfilter.Rating // default R (unfiltered)
	Locale  language.Tag      // default en-US
	Source  dice.Source       // default crypto-seeded generator
	MaxDice int64             // default dice.DefaultMaxDice; negative disables
	Now     func() time.Time  // default time.Now
}

// Bot answers chat commands. It is safe for concurrent use.
type Bot struct {
	prefix  string
	rating  textfilter.Rating
	locale  language.Tag
	src     dice.Source
	eval    *dice.Evaluator
	filter  *textfilter.Filter
	storage storage.Storage
	now     func() time.Time
	log     *slog.Logger
}

// Response is the outcome of handling one message.
type Response struct {
	Content string
	Code    string // empty on success
	Ignored bool   // message was not a command; nothing should be sent
}

func New(store storage.Storage, opts Options, log *slog.Logger) *Bot {
	if opts.Prefix == "" {
		opts.Prefix = "~"
	}
	if opts.Rating == "" {
		opts.Rating = textfilter.RatingR
	}
	if opts.Locale == language.Und {
		opts.Locale = language.AmericanEnglish
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	if log == nil {
		log = slog.Default()
	}
	if opts.Source == nil {
		src, err := dice.NewRandomSource()
		if err != nil {
			log.Warn("Random seed unavailable, seeding from clock", "error", err)
			src = dice.NewSource(uint64(opts.Now().UnixNano()))
		}
		opts.Source = src
	}

	var evalOpts []dice.Option
	switch {
	case opts.MaxDice > 0:
		evalOpts = append(evalOpts, dice.WithMaxDice(opts.MaxDice))
	case opts.MaxDice < 0:
		evalOpts = append(evalOpts, dice.WithMaxDice(0))
	}

	return &Bot{
		prefix:  opts.Prefix,
		rating:  opts.Rating,
		locale:  opts.Locale,
		src:     opts.Source,
		eval:    dice.NewEvaluator(opts.Source, evalOpts...),
		filter:  textfilter.New(),
		storage: store,
		now:     opts.Now,
		log:     log,
	}
}

// Prefix returns the command prefix the bot listens for.
func (b *Bot) Prefix() string {
	return b.prefix
}

// parseCommand splits "~roll 2d6 + 1" into the lowercased command name and
// the trimmed remainder. ok is false when content lacks the prefix.
func parseCommand(prefix, content string) (cmd commandType, args string, ok bool) {
	content = strings.TrimSpace(content)
	rest, found := strings.CutPrefix(content, prefix)
	if !found {
		return "", "", false
	}
	name, args, _ := strings.Cut(strings.TrimLeft(rest, " \t"), " ")
	return commandType(strings.ToLower(name)), strings.TrimSpace(args), true
}

// Handle produces the reply for req. A non-nil error means the reply
// reports an infrastructure failure; the Response is still sendable.
func (b *Bot) Handle(ctx context.Context, req *command.Request) (*Response, error) {
	cmd, args, ok := parseCommand(b.prefix, req.Content)
	if !ok {
		return &Response{Ignored: true}, nil
	}
	tag := replies.Match(req.Locale, b.locale)

	log := b.log.With("command", string(cmd), "channel_id", req.ChannelID)
	log.Debug("Handling command", "args", args)

	switch cmd {
	case cmdPing:
		return &Response{Content: "pong!"}, nil
	case cmdHelp:
		return &Response{Content: replies.Sprintf(tag, replies.KeyHelp, b.prefix)}, nil
	case cmd8Ball:
		return &Response{Content: b.eightBall(args)}, nil
	case cmdRoll:
		if args == "" {
			return b.usage(tag, replies.KeyUsageRoll), nil
		}
		return b.roll(ctx, tag, req, args, func(result string) string { return result })
	case cmdCheck:
		return b.check(ctx, tag, req, args)
	case cmdAttack:
		return b.attack(ctx, tag, req, args)
	default:
		return &Response{
			Content: replies.Sprintf(tag, replies.KeyUnknownCommand, b.prefix+string(cmd), b.prefix),
			Code:    CodeUnknownCommand,
		}, nil
	}
}

func (b *Bot) usage(tag language.Tag, key string) *Response {
	return &Response{Content: replies.Sprintf(tag, key, b.prefix), Code: CodeUsage}
}

// roll evaluates expr, records it in the channel history and formats the
// rendered result with format.
func (b *Bot) roll(ctx context.Context, tag language.Tag, req *command.Request, expr string, format func(string) string) (*Response, error) {
	result, err := b.eval.Eval(expr)
	if err != nil {
		msg, code := replies.Translate(tag, err)
		return &Response{Content: msg, Code: code}, nil
	}

	rec := command.RollRecord{
		Expression: expr,
		Result:     result,
		User:       req.User,
		ChannelID:  req.ChannelID,
		RolledAt:   b.now().UTC(),
	}
	if err := b.storage.AppendRoll(ctx, rec); err != nil {
		// the roll already happened; losing history should not lose the reply
		b.log.Warn("Failed to record roll", "error", err, "channel_id", req.ChannelID)
	}
	return &Response{Content: format(result)}, nil
}

func (b *Bot) eightBall(question string) string {
	answer := eightBallAnswers[b.src.Int64N(int64(len(eightBallAnswers)))]
	if question == "" {
		return answer
	}
	question = b.filter.ForRating(b.rating, question)
	question = strings.ReplaceAll(question, "`", "'")
	return fmt.Sprintf("```%s```\n%s", question, answer)
}

// loadCharacter resolves a character id typed in chat. A nil Response
// with nil error means the character was found.
func (b *Bot) loadCharacter(ctx context.Context, tag language.Tag, id string) (*actor.Character, *Response, error) {
	spec, err := b.storage.GetCharacterSpec(ctx, strings.ToLower(id))
	if errors.Is(err, storage.ErrNotFound) {
		return nil, &Response{Content: replies.Sprintf(tag, replies.KeyCharacterNotFound, id), Code: CodeNotFound}, nil
	}
	if err != nil {
		return nil, b.internal(tag), fmt.Errorf("failed to load character %s: %w", id, err)
	}
	c, err := actor.NewCharacterFromSpec(spec)
	if err != nil {
		return nil, b.internal(tag), fmt.Errorf("failed to build character %s: %w", id, err)
	}
	return c, nil, nil
}

func (b *Bot) internal(tag language.Tag) *Response {
	return &Response{Content: replies.Sprintf(tag, replies.KeyInternal), Code: CodeInternal}
}

func (b *Bot) check(ctx context.Context, tag language.Tag, req *command.Request, args string) (*Response, error) {
	fields := strings.Fields(args)
	if len(fields) != 2 {
		return b.usage(tag, replies.KeyUsageCheck), nil
	}
	c, resp, err := b.loadCharacter(ctx, tag, fields[0])
	if resp != nil {
		return resp, err
	}

	attr := strings.ToLower(fields[1])
	expr, err := c.CheckExpression(attr)
	if errors.Is(err, actor.ErrUnknownAttribute) {
		return &Response{
			Content: replies.Sprintf(tag, replies.KeyUnknownAttribute, c.Spec.Name, fields[1]),
			Code:    CodeNotFound,
		}, nil
	}
	if err != nil {
		return b.internal(tag), err
	}

	return b.roll(ctx, tag, req, expr, func(result string) string {
		return replies.Sprintf(tag, replies.KeyCheckResult, c.Spec.Name, attr, expr, result)
	})
}

func (b *Bot) attack(ctx context.Context, tag language.Tag, req *command.Request, args string) (*Response, error) {
	id, name, _ := strings.Cut(args, " ")
	name = strings.TrimSpace(name)
	if id == "" || name == "" {
		return b.usage(tag, replies.KeyUsageAttack), nil
	}
	c, resp, err := b.loadCharacter(ctx, tag, id)
	if resp != nil {
		return resp, err
	}

	expr, err := c.AttackExpression(name)
	if errors.Is(err, actor.ErrUnknownAttack) {
		return &Response{
			Content: replies.Sprintf(tag, replies.KeyUnknownAttack, c.Spec.Name, name, strings.Join(c.AttackNames(), ", ")),
			Code:    CodeNotFound,
		}, nil
	}
	if err != nil {
		return b.internal(tag), err
	}

	return b.roll(ctx, tag, req, expr, func(result string) string {
		return replies.Sprintf(tag, replies.KeyAttackResult, c.Spec.Name, name, expr, result)
	})
}
