package bot

import (
	"context"
	"fmt"

	"github.com/bwmarrin/discordgo"
	"go.uber.org/zap"

	"github.com/irydacea/tessa/internal/config"
	"github.com/irydacea/tessa/internal/modules/audit"
	"github.com/irydacea/tessa/internal/modules/autoreact"
	"github.com/irydacea/tessa/internal/modules/reactmod"
	"github.com/irydacea/tessa/internal/policy"
)

// Messages kept in the state cache so reaction moderation can usually
// resolve its target without a REST round trip.
const messageCacheSize = 2048

// Options tunes session behavior from the CLI flags.
type Options struct {
	Debug   bool
	Verbose bool
}

type Bot struct {
	session   *discordgo.Session
	policies  *policy.Store
	logger    *zap.Logger
	autoreact *autoreact.Module
	reactmod  *reactmod.Module
}

func New(cfg *config.Config, policies *policy.Store, logger *zap.Logger, opts Options) (*Bot, error) {
	session, err := discordgo.New("Bot " + cfg.Token)
	if err != nil {
		return nil, fmt.Errorf("creating session: %w", err)
	}

	// Reaction policy never reads message text, so the privileged
	// message-content intent is not requested.
	session.Identify.Intents = discordgo.IntentsGuilds |
		discordgo.IntentsGuildMessages |
		discordgo.IntentsGuildMessageReactions

	session.State.MaxMessageCount = messageCacheSize

	// The auto-react module owns the rate limit retry budget; letting the
	// library sleep internally would hide the 429s it needs to observe.
	session.ShouldRetryOnRateLimit = false

	switch {
	case opts.Debug:
		session.LogLevel = discordgo.LogDebug
	case opts.Verbose:
		session.LogLevel = discordgo.LogInformational
	default:
		session.LogLevel = discordgo.LogWarning
	}

	api := &sessionAPI{session: session}
	auditLogger := audit.New(api, policies, logger.Named("audit"))

	return &Bot{
		session:   session,
		policies:  policies,
		logger:    logger,
		autoreact: autoreact.New(api, policies, logger.Named("autoreact")),
		reactmod:  reactmod.New(api, policies, auditLogger, logger.Named("reactmod")),
	}, nil
}

// Start registers the event handlers and opens the gateway connection.
func (b *Bot) Start(ctx context.Context) error {
	b.session.AddHandlerOnce(b.onReady)
	b.session.AddHandler(func(_ *discordgo.Session, m *discordgo.MessageCreate) {
		b.autoreact.HandleMessage(ctx, m)
	})
	b.session.AddHandler(func(_ *discordgo.Session, r *discordgo.MessageReactionAdd) {
		b.reactmod.HandleReactionAdd(ctx, r)
	})

	if err := b.session.Open(); err != nil {
		return fmt.Errorf("opening gateway: %w", err)
	}
	return nil
}

func (b *Bot) Stop() {
	if err := b.session.Close(); err != nil {
		b.logger.Warn("closing session failed", zap.Error(err))
	}
}

func (b *Bot) onReady(session *discordgo.Session, _ *discordgo.Ready) {
	b.logger.Info("gateway ready",
		zap.String("user", session.State.User.Username),
		zap.Int("guilds", len(b.policies.Guilds())),
		zap.Int("channels", b.policies.ChannelCount()))
}
