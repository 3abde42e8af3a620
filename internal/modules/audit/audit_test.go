package audit_test

import (
	"context"
	"errors"
	"testing"

	"github.com/bwmarrin/discordgo"
	"github.com/disgoorg/snowflake/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/irydacea/tessa/internal/config"
	"github.com/irydacea/tessa/internal/emoji"
	"github.com/irydacea/tessa/internal/modules/audit"
	"github.com/irydacea/tessa/internal/policy"
)

type fakeAPI struct {
	fetchErr error
	sendErr  error

	fetched []string
	sentTo  []string
	embeds  []*discordgo.MessageEmbed
}

func (f *fakeAPI) FetchChannel(_ context.Context, channelID string) (*discordgo.Channel, error) {
	f.fetched = append(f.fetched, channelID)
	if f.fetchErr != nil {
		return nil, f.fetchErr
	}
	return &discordgo.Channel{ID: channelID, Type: discordgo.ChannelTypeGuildText}, nil
}

func (f *fakeAPI) SendEmbed(_ context.Context, channelID string, embed *discordgo.MessageEmbed) (*discordgo.Message, error) {
	if f.sendErr != nil {
		return nil, f.sendErr
	}
	f.sentTo = append(f.sentTo, channelID)
	f.embeds = append(f.embeds, embed)
	return &discordgo.Message{ID: "900"}, nil
}

func testStore(t *testing.T) *policy.Store {
	t.Helper()
	cfg, err := config.Parse([]byte(`{
		"token": "x",
		"guilds": {
			"10": {"event_log": "30", "20": {"moderate_reactions": ["💩"]}},
			"11": {"21": {"moderate_reactions": ["💩"]}}
		}
	}`))
	require.NoError(t, err)
	store := policy.Compile(cfg, zap.NewNop())
	return store
}

func fieldValue(t *testing.T, embed *discordgo.MessageEmbed, name string) string {
	t.Helper()
	for _, field := range embed.Fields {
		if field.Name == name {
			return field.Value
		}
	}
	t.Fatalf("embed is missing field %q", name)
	return ""
}

func hasField(embed *discordgo.MessageEmbed, name string) bool {
	for _, field := range embed.Fields {
		if field.Name == name {
			return true
		}
	}
	return false
}

func TestRemovalPostsEmbed(t *testing.T) {
	t.Parallel()

	api := &fakeAPI{}
	logger := audit.New(api, testStore(t), zap.NewNop())

	logger.Removal(context.Background(), audit.RemovalRecord{
		GuildID:   snowflake.ID(10),
		ChannelID: snowflake.ID(20),
		MessageID: "500",
		Message: &discordgo.Message{
			ID:     "500",
			Author: &discordgo.User{ID: "1"},
		},
		Emoji:    emoji.Ref{Name: "bad", ID: snowflake.ID(42)},
		Reactors: []*discordgo.User{{ID: "2"}, {ID: "3"}},
	})

	assert.Equal(t, []string{"30"}, api.fetched)
	require.Equal(t, []string{"30"}, api.sentTo)

	embed := api.embeds[0]
	assert.Equal(t, "Reaction removed", embed.Title)
	assert.Contains(t, embed.Description, "<:bad:42>")
	assert.Equal(t, "<#20>", fieldValue(t, embed, "Channel"))
	assert.Equal(t, "https://discord.com/channels/10/20/500", fieldValue(t, embed, "Message"))
	assert.Equal(t, "<@1>", fieldValue(t, embed, "Author"))
	assert.Equal(t, "<@2> <@3>", fieldValue(t, embed, "Reacted by"))
}

func TestRemovalSkipsGuildWithoutEventLog(t *testing.T) {
	t.Parallel()

	api := &fakeAPI{}
	logger := audit.New(api, testStore(t), zap.NewNop())

	logger.Removal(context.Background(), audit.RemovalRecord{
		GuildID:   snowflake.ID(11),
		ChannelID: snowflake.ID(21),
		MessageID: "500",
		Emoji:     emoji.Ref{Name: "💩"},
	})

	assert.Empty(t, api.fetched)
	assert.Empty(t, api.sentTo)
}

func TestRemovalUnidentifiedReactors(t *testing.T) {
	t.Parallel()

	api := &fakeAPI{}
	logger := audit.New(api, testStore(t), zap.NewNop())

	logger.Removal(context.Background(), audit.RemovalRecord{
		GuildID:   snowflake.ID(10),
		ChannelID: snowflake.ID(20),
		MessageID: "500",
		Emoji:     emoji.Ref{Name: "💩"},
	})

	require.Len(t, api.embeds, 1)
	embed := api.embeds[0]
	assert.Equal(t, "*unidentified*", fieldValue(t, embed, "Reacted by"))
	assert.False(t, hasField(embed, "Author"))
}

func TestRemovalChannelUnavailable(t *testing.T) {
	t.Parallel()

	api := &fakeAPI{fetchErr: errors.New("missing access")}
	logger := audit.New(api, testStore(t), zap.NewNop())

	logger.Removal(context.Background(), audit.RemovalRecord{
		GuildID:   snowflake.ID(10),
		ChannelID: snowflake.ID(20),
		MessageID: "500",
		Emoji:     emoji.Ref{Name: "💩"},
	})

	assert.Empty(t, api.sentTo)
}

func TestRemovalSendFailureTolerated(t *testing.T) {
	t.Parallel()

	api := &fakeAPI{sendErr: errors.New("boom")}
	logger := audit.New(api, testStore(t), zap.NewNop())

	logger.Removal(context.Background(), audit.RemovalRecord{
		GuildID:   snowflake.ID(10),
		ChannelID: snowflake.ID(20),
		MessageID: "500",
		Emoji:     emoji.Ref{Name: "💩"},
	})

	assert.Equal(t, []string{"30"}, api.fetched)
	assert.Empty(t, api.sentTo)
}
