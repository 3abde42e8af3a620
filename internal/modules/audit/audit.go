package audit

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/bwmarrin/discordgo"
	"github.com/disgoorg/snowflake/v2"
	"go.uber.org/zap"

	"github.com/irydacea/tessa/internal/emoji"
	"github.com/irydacea/tessa/internal/policy"
)

const removalColor = 0xED4245

// API is the slice of the chat client the audit logger needs.
type API interface {
	FetchChannel(ctx context.Context, channelID string) (*discordgo.Channel, error)
	SendEmbed(ctx context.Context, channelID string, embed *discordgo.MessageEmbed) (*discordgo.Message, error)
}

type Logger struct {
	api      API
	policies *policy.Store
	logger   *zap.Logger
}

// RemovalRecord describes one banned reaction about to be removed. Message
// may be nil when the target could not be resolved; Reactors may be empty
// when nobody could be identified.
type RemovalRecord struct {
	GuildID   snowflake.ID
	ChannelID snowflake.ID
	MessageID string
	Message   *discordgo.Message
	Emoji     emoji.Ref
	Reactors  []*discordgo.User
}

func New(api API, policies *policy.Store, logger *zap.Logger) *Logger {
	return &Logger{api: api, policies: policies, logger: logger}
}

// Removal posts an audit embed to the guild's event log channel. Guilds
// without an event log are skipped; delivery problems are logged and
// swallowed so moderation never stalls on auditing.
func (l *Logger) Removal(ctx context.Context, rec RemovalRecord) {
	logChannelID, ok := l.policies.EventLog(rec.GuildID)
	if !ok {
		return
	}
	logger := l.logger.With(
		zap.String("guild_id", rec.GuildID.String()),
		zap.String("event_log", logChannelID.String()))

	channel, err := l.api.FetchChannel(ctx, logChannelID.String())
	if err != nil {
		logger.Warn("audit channel unavailable", zap.Error(err))
		return
	}

	if _, err := l.api.SendEmbed(ctx, channel.ID, removalEmbed(rec)); err != nil {
		logger.Warn("audit entry send failed", zap.Error(err))
		return
	}
	logger.Info("audit entry recorded",
		zap.String("emoji", rec.Emoji.String()), zap.Int("reactors", len(rec.Reactors)))
}

func removalEmbed(rec RemovalRecord) *discordgo.MessageEmbed {
	reactedBy := "*unidentified*"
	mentions := make([]string, 0, len(rec.Reactors))
	for _, user := range rec.Reactors {
		if user == nil || user.ID == "" {
			continue
		}
		mentions = append(mentions, user.Mention())
	}
	if len(mentions) > 0 {
		reactedBy = strings.Join(mentions, " ")
	}

	fields := []*discordgo.MessageEmbedField{
		{Name: "Channel", Value: fmt.Sprintf("<#%s>", rec.ChannelID), Inline: true},
		{Name: "Message", Value: messageLink(rec.GuildID, rec.ChannelID, rec.MessageID), Inline: true},
	}
	if rec.Message != nil && rec.Message.Author != nil {
		fields = append(fields, &discordgo.MessageEmbedField{
			Name: "Author", Value: rec.Message.Author.Mention(), Inline: true,
		})
	}
	fields = append(fields, &discordgo.MessageEmbedField{
		Name: "Reacted by", Value: reactedBy, Inline: false,
	})

	return &discordgo.MessageEmbed{
		Title:       "Reaction removed",
		Description: fmt.Sprintf("Removed %s from a message.", rec.Emoji),
		Color:       removalColor,
		Fields:      fields,
		Footer:      &discordgo.MessageEmbedFooter{Text: "Guild " + rec.GuildID.String()},
		Timestamp:   time.Now().Format(time.RFC3339),
	}
}

func messageLink(guildID, channelID snowflake.ID, messageID string) string {
	return fmt.Sprintf("https://discord.com/channels/%s/%s/%s", guildID, channelID, messageID)
}
