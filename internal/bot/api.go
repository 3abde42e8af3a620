package bot

import (
	"context"

	"github.com/bwmarrin/discordgo"
)

// sessionAPI adapts a discordgo session to the capability interfaces the
// modules declare, threading the caller's context into every REST call.
type sessionAPI struct {
	session *discordgo.Session
}

func (a *sessionAPI) BotUserID() string {
	if a.session.State == nil || a.session.State.User == nil {
		return ""
	}
	return a.session.State.User.ID
}

func (a *sessionAPI) CachedMessage(channelID, messageID string) (*discordgo.Message, bool) {
	msg, err := a.session.State.Message(channelID, messageID)
	if err != nil {
		return nil, false
	}
	return msg, true
}

func (a *sessionAPI) AddReaction(ctx context.Context, channelID, messageID, emojiName string) error {
	return a.session.MessageReactionAdd(channelID, messageID, emojiName, discordgo.WithContext(ctx))
}

func (a *sessionAPI) RemoveEmojiReactions(ctx context.Context, channelID, messageID, emojiName string) error {
	return a.session.MessageReactionsRemoveEmoji(channelID, messageID, emojiName, discordgo.WithContext(ctx))
}

func (a *sessionAPI) FetchMessage(ctx context.Context, channelID, messageID string) (*discordgo.Message, error) {
	return a.session.ChannelMessage(channelID, messageID, discordgo.WithContext(ctx))
}

func (a *sessionAPI) FetchChannel(ctx context.Context, channelID string) (*discordgo.Channel, error) {
	return a.session.Channel(channelID, discordgo.WithContext(ctx))
}

func (a *sessionAPI) ReactionUsers(ctx context.Context, channelID, messageID, emojiName string, limit int, afterID string) ([]*discordgo.User, error) {
	return a.session.MessageReactions(channelID, messageID, emojiName, limit, "", afterID, discordgo.WithContext(ctx))
}

func (a *sessionAPI) FetchUser(ctx context.Context, userID string) (*discordgo.User, error) {
	return a.session.User(userID, discordgo.WithContext(ctx))
}

func (a *sessionAPI) SendEmbed(ctx context.Context, channelID string, embed *discordgo.MessageEmbed) (*discordgo.Message, error) {
	return a.session.ChannelMessageSendEmbed(channelID, embed, discordgo.WithContext(ctx))
}
