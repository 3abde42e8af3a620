package autoreact

import (
	"context"
	"errors"
	"math/rand"
	"time"

	"github.com/bwmarrin/discordgo"
	"github.com/cenkalti/backoff/v4"
	"github.com/disgoorg/snowflake/v2"
	"go.uber.org/zap"

	"github.com/irydacea/tessa/internal/emoji"
	"github.com/irydacea/tessa/internal/policy"
)

// Attempts per emoji when the API keeps rate limiting us.
const maxAddAttempts = 3

// API is the slice of the chat client the module needs.
type API interface {
	BotUserID() string
	AddReaction(ctx context.Context, channelID, messageID, emojiName string) error
}

type Module struct {
	api      API
	policies *policy.Store
	logger   *zap.Logger
}

func New(api API, policies *policy.Store, logger *zap.Logger) *Module {
	return &Module{api: api, policies: policies, logger: logger}
}

// HandleMessage appends the channel's configured reactions to a freshly
// posted message, one at a time, in configured or shuffled order.
func (m *Module) HandleMessage(ctx context.Context, msg *discordgo.MessageCreate) {
	if msg.GuildID == "" {
		return
	}
	if msg.Author != nil && msg.Author.ID == m.api.BotUserID() {
		return
	}
	guildID, err := snowflake.Parse(msg.GuildID)
	if err != nil {
		return
	}
	channelID, err := snowflake.Parse(msg.ChannelID)
	if err != nil {
		return
	}

	pol, ok := m.policies.Channel(guildID, channelID)
	if !ok {
		return
	}
	refs := pol.AutoReactions()
	if len(refs) == 0 {
		return
	}
	if pol.Shuffle {
		rand.Shuffle(len(refs), func(i, j int) { refs[i], refs[j] = refs[j], refs[i] })
	}

	logger := m.logger.With(
		zap.String("channel_id", msg.ChannelID), zap.String("message_id", msg.ID))
	for _, ref := range refs {
		err := m.addWithRetry(ctx, msg.ChannelID, msg.ID, ref)
		if err == nil {
			continue
		}
		if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
			return
		}
		if unknownMessage(err) {
			logger.Debug("message gone before reacting, skipping", zap.String("emoji", ref.String()))
			continue
		}
		if unknownEmoji(err) {
			logger.Debug("emoji not usable here, skipping", zap.String("emoji", ref.String()))
			continue
		}
		var limited *discordgo.RateLimitError
		if errors.As(err, &limited) {
			logger.Warn("gave up on rate limited reaction",
				zap.String("emoji", ref.String()), zap.Int("attempts", maxAddAttempts))
			continue
		}
		logger.Warn("adding reaction failed",
			zap.String("emoji", ref.String()), zap.Error(err))
	}
}

// addWithRetry performs one reaction add, retrying on rate limits with the
// delay the server asked for, up to maxAddAttempts total tries.
func (m *Module) addWithRetry(ctx context.Context, channelID, messageID string, ref emoji.Ref) error {
	delay := &serverDelayBackOff{fallback: time.Second}
	attempt := 0

	operation := func() error {
		attempt++
		err := m.api.AddReaction(ctx, channelID, messageID, ref.APIName())
		if err == nil {
			return nil
		}
		var limited *discordgo.RateLimitError
		if errors.As(err, &limited) {
			delay.next = limited.RetryAfter
			return err
		}
		return backoff.Permanent(err)
	}
	notify := func(_ error, wait time.Duration) {
		m.logger.Info("rate limited while reacting, waiting",
			zap.String("channel_id", channelID), zap.String("message_id", messageID),
			zap.String("emoji", ref.String()),
			zap.Int("attempt", attempt), zap.Duration("wait", wait))
	}

	return backoff.RetryNotify(operation,
		backoff.WithContext(backoff.WithMaxRetries(delay, maxAddAttempts-1), ctx), notify)
}

// serverDelayBackOff replays the delay advertised by the last rate limit
// response, falling back to a constant when none was given.
type serverDelayBackOff struct {
	next     time.Duration
	fallback time.Duration
}

func (b *serverDelayBackOff) NextBackOff() time.Duration {
	if b.next > 0 {
		next := b.next
		b.next = 0
		return next
	}
	return b.fallback
}

func (b *serverDelayBackOff) Reset() {}

func unknownMessage(err error) bool {
	var rest *discordgo.RESTError
	return errors.As(err, &rest) && rest.Message != nil &&
		rest.Message.Code == discordgo.ErrCodeUnknownMessage
}

func unknownEmoji(err error) bool {
	var rest *discordgo.RESTError
	return errors.As(err, &rest) && rest.Message != nil &&
		rest.Message.Code == discordgo.ErrCodeUnknownEmoji
}
