package reactmod

import (
	"context"
	"errors"
	"net/http"

	"github.com/bwmarrin/discordgo"
	"github.com/disgoorg/snowflake/v2"
	"go.uber.org/zap"

	"github.com/irydacea/tessa/internal/emoji"
	"github.com/irydacea/tessa/internal/modules/audit"
	"github.com/irydacea/tessa/internal/policy"
)

const reactorPageSize = 100

// API is the slice of the chat client the module needs.
type API interface {
	BotUserID() string
	CachedMessage(channelID, messageID string) (*discordgo.Message, bool)
	FetchMessage(ctx context.Context, channelID, messageID string) (*discordgo.Message, error)
	ReactionUsers(ctx context.Context, channelID, messageID, emojiName string, limit int, afterID string) ([]*discordgo.User, error)
	RemoveEmojiReactions(ctx context.Context, channelID, messageID, emojiName string) error
	FetchUser(ctx context.Context, userID string) (*discordgo.User, error)
}

type Module struct {
	api      API
	policies *policy.Store
	audit    *audit.Logger
	logger   *zap.Logger
}

func New(api API, policies *policy.Store, auditLogger *audit.Logger, logger *zap.Logger) *Module {
	return &Module{api: api, policies: policies, audit: auditLogger, logger: logger}
}

// HandleReactionAdd checks a freshly added reaction against the channel's
// banned list and, when it matches, audits and removes every instance of
// that emoji. The audit entry goes out first so it cites the pre-removal
// state of the message.
func (m *Module) HandleReactionAdd(ctx context.Context, event *discordgo.MessageReactionAdd) {
	if event.GuildID == "" || event.UserID == m.api.BotUserID() {
		return
	}
	guildID, err := snowflake.Parse(event.GuildID)
	if err != nil {
		return
	}
	channelID, err := snowflake.Parse(event.ChannelID)
	if err != nil {
		return
	}

	pol, ok := m.policies.Channel(guildID, channelID)
	if !ok || !pol.Moderated() {
		return
	}
	ref := emoji.FromComponent(&event.Emoji)
	if !pol.Banned(ref) {
		return
	}

	logger := m.logger.With(
		zap.String("guild_id", event.GuildID),
		zap.String("channel_id", event.ChannelID),
		zap.String("message_id", event.MessageID),
		zap.String("user_id", event.UserID),
		zap.String("emoji", ref.String()))

	msg, err := m.resolveMessage(ctx, event.ChannelID, event.MessageID)
	if err != nil {
		if notFound(err) {
			logger.Debug("message gone before moderation")
		} else {
			logger.Warn("fetching message failed", zap.Error(err))
		}
		return
	}

	entry := findReaction(msg, ref)
	if entry == nil {
		// Someone else, or the platform, already cleared it.
		logger.Debug("reaction already absent")
		return
	}
	canonical := emoji.FromComponent(entry.Emoji)
	reactors, ok := m.collectReactors(ctx, event.ChannelID, event.MessageID, canonical, logger)
	if !ok {
		reactors = m.fallbackReactor(ctx, event.UserID, logger)
	}

	m.audit.Removal(ctx, audit.RemovalRecord{
		GuildID:   guildID,
		ChannelID: channelID,
		MessageID: event.MessageID,
		Message:   msg,
		Emoji:     canonical,
		Reactors:  reactors,
	})

	if err := m.api.RemoveEmojiReactions(ctx, event.ChannelID, event.MessageID, canonical.APIName()); err != nil {
		if notFound(err) {
			logger.Debug("reaction vanished before removal")
			return
		}
		logger.Warn("removing banned reaction failed", zap.Error(err))
		return
	}
	logger.Info("removed banned reaction", zap.Int("reactors", len(reactors)))
}

// resolveMessage prefers the session cache and makes at most one REST call.
func (m *Module) resolveMessage(ctx context.Context, channelID, messageID string) (*discordgo.Message, error) {
	if msg, ok := m.api.CachedMessage(channelID, messageID); ok {
		return msg, nil
	}
	return m.api.FetchMessage(ctx, channelID, messageID)
}

// findReaction locates the reaction entry matching the event emoji, by ID
// for custom emoji and by exact literal otherwise.
func findReaction(msg *discordgo.Message, ref emoji.Ref) *discordgo.MessageReactions {
	for _, entry := range msg.Reactions {
		if entry == nil || entry.Emoji == nil {
			continue
		}
		found := emoji.FromComponent(entry.Emoji)
		if ref.IsCustom() {
			if found.ID == ref.ID {
				return entry
			}
			continue
		}
		if !found.IsCustom() && found.Name == ref.Name {
			return entry
		}
	}
	return nil
}

func (m *Module) collectReactors(ctx context.Context, channelID, messageID string, ref emoji.Ref, logger *zap.Logger) ([]*discordgo.User, bool) {
	var users []*discordgo.User
	afterID := ""
	for {
		page, err := m.api.ReactionUsers(ctx, channelID, messageID, ref.APIName(), reactorPageSize, afterID)
		if err != nil {
			logger.Warn("listing reactors failed", zap.Error(err))
			return nil, false
		}
		if len(page) == 0 {
			return users, true
		}
		users = append(users, page...)
		if len(page) < reactorPageSize {
			return users, true
		}
		afterID = page[len(page)-1].ID
	}
}

// fallbackReactor degrades to the single user carried by the gateway event
// when enumeration is unavailable.
func (m *Module) fallbackReactor(ctx context.Context, userID string, logger *zap.Logger) []*discordgo.User {
	user, err := m.api.FetchUser(ctx, userID)
	if err != nil {
		logger.Warn("resolving reacting user failed", zap.Error(err))
		return nil
	}
	return []*discordgo.User{user}
}

func notFound(err error) bool {
	var rest *discordgo.RESTError
	if !errors.As(err, &rest) {
		return false
	}
	if rest.Message != nil {
		switch rest.Message.Code {
		case discordgo.ErrCodeUnknownMessage, discordgo.ErrCodeUnknownEmoji, discordgo.ErrCodeUnknownChannel:
			return true
		}
	}
	return rest.Response != nil && rest.Response.StatusCode == http.StatusNotFound
}
