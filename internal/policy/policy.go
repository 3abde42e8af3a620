package policy

import (
	"sort"

	"github.com/disgoorg/snowflake/v2"
	"go.uber.org/zap"

	"github.com/irydacea/tessa/internal/config"
	"github.com/irydacea/tessa/internal/emoji"
)

// Distinct reactions a single message can carry.
const maxReactionsPerMessage = 20

// Store is the compiled reaction policy. It is built once at startup and
// never mutated afterwards, so event handlers may read it concurrently.
type Store struct {
	guilds map[snowflake.ID]*guildPolicy
}

type guildPolicy struct {
	eventLog snowflake.ID
	channels map[snowflake.ID]ChannelPolicy
}

type ChannelPolicy struct {
	Shuffle bool

	autoReactions []emoji.Ref
	bannedIDs     map[snowflake.ID]struct{}
	bannedNames   map[string]struct{}
	neutralTone   bool
}

// Compile builds the immutable store from a validated configuration.
// Benign configuration problems (unknown presets, oversized or empty
// lists) degrade with a warning; nothing here aborts startup.
func Compile(cfg *config.Config, logger *zap.Logger) *Store {
	inherit := cfg.InheritDefaults()
	neutral := cfg.SkinToneInsensitive()

	store := &Store{guilds: make(map[snowflake.ID]*guildPolicy, len(cfg.Guilds))}
	for rawGuildID, guildCfg := range cfg.Guilds {
		guildID := rawGuildID.ID()
		guildLog := logger.With(zap.String("guild_id", guildID.String()))

		if !guildCfg.IsEnabled() {
			guildLog.Info("guild disabled, skipping")
			continue
		}
		for _, key := range guildCfg.Skipped {
			guildLog.Warn("ignoring non-snowflake channel key", zap.String("key", key))
		}

		compiled := &guildPolicy{
			eventLog: guildCfg.EventLog.ID(),
			channels: make(map[snowflake.ID]ChannelPolicy, len(guildCfg.Channels)),
		}
		for rawChannelID, channelCfg := range guildCfg.Channels {
			channelID := rawChannelID.ID()
			resolved := channelCfg
			if inherit {
				resolved = merge(channelCfg, guildCfg.Default)
			}
			compiled.channels[channelID] = compileChannel(cfg, resolved, neutral,
				guildLog.With(zap.String("channel_id", channelID.String())))
		}
		store.guilds[guildID] = compiled
	}
	return store
}

// merge fills channel fields that were left unset from the guild defaults.
func merge(channel, defaults config.ChannelConfig) config.ChannelConfig {
	if channel.Preset == nil {
		channel.Preset = defaults.Preset
	}
	if channel.AutoReactions == nil {
		channel.AutoReactions = defaults.AutoReactions
	}
	if channel.ModerateReactions == nil {
		channel.ModerateReactions = defaults.ModerateReactions
	}
	if channel.ShuffleReactions == nil {
		channel.ShuffleReactions = defaults.ShuffleReactions
	}
	return channel
}

func compileChannel(cfg *config.Config, resolved config.ChannelConfig, neutral bool, logger *zap.Logger) ChannelPolicy {
	var presetAuto, presetBanned []string
	shuffle := false

	if resolved.Preset != nil {
		preset, ok := cfg.Presets[*resolved.Preset]
		if !ok {
			// A bad preset reference disables the channel rather than
			// failing the whole load.
			logger.Warn("unknown preset, channel left without active policy",
				zap.String("preset", *resolved.Preset))
			return ChannelPolicy{neutralTone: neutral}
		}
		presetAuto = preset.Reactions
		presetBanned = preset.BannedReactions
		shuffle = preset.ShuffleReactions
	}

	auto := resolveList(resolved.AutoReactions, presetAuto)
	banned := resolveList(resolved.ModerateReactions, presetBanned)
	if resolved.ShuffleReactions != nil {
		shuffle = *resolved.ShuffleReactions
	}

	autoRefs := parseList(auto, "auto_reactions", logger)
	if len(autoRefs) > maxReactionsPerMessage {
		logger.Warn("auto reaction list exceeds the per-message cap, truncating",
			zap.Int("configured", len(autoRefs)), zap.Int("cap", maxReactionsPerMessage))
		autoRefs = autoRefs[:maxReactionsPerMessage]
	}

	pol := ChannelPolicy{
		Shuffle:       shuffle,
		autoReactions: autoRefs,
		bannedIDs:     make(map[snowflake.ID]struct{}),
		bannedNames:   make(map[string]struct{}),
		neutralTone:   neutral,
	}
	for _, ref := range parseList(banned, "moderate_reactions", logger) {
		if ref.IsCustom() {
			pol.bannedIDs[ref.ID] = struct{}{}
			continue
		}
		name := ref.Name
		if neutral {
			name = emoji.NeutralSkinTone(name)
		}
		pol.bannedNames[name] = struct{}{}
	}

	if len(pol.autoReactions) == 0 && !pol.Moderated() {
		logger.Warn("channel has nothing to do, neither reactions nor a banned list")
	}
	return pol
}

// resolveList applies one action setting. An absent key or an explicit
// false disables the action; true enables the named preset's list; an
// inline emoji list replaces it.
func resolveList(setting *config.ReactionSetting, presetList []string) []string {
	switch {
	case setting == nil || !setting.Enabled:
		return nil
	case setting.List != nil:
		return setting.List
	default:
		return presetList
	}
}

func parseList(values []string, field string, logger *zap.Logger) []emoji.Ref {
	refs := make([]emoji.Ref, 0, len(values))
	for _, value := range values {
		ref, err := emoji.Parse(value)
		if err != nil {
			logger.Warn("skipping unparseable emoji",
				zap.String("field", field), zap.String("value", value), zap.Error(err))
			continue
		}
		refs = append(refs, ref)
	}
	return refs
}

// Channel returns the effective policy for a channel, or false when the
// guild or channel is not monitored.
func (s *Store) Channel(guildID, channelID snowflake.ID) (ChannelPolicy, bool) {
	guild := s.guilds[guildID]
	if guild == nil {
		return ChannelPolicy{}, false
	}
	pol, ok := guild.channels[channelID]
	return pol, ok
}

// EventLog returns the audit channel configured for a guild.
func (s *Store) EventLog(guildID snowflake.ID) (snowflake.ID, bool) {
	guild := s.guilds[guildID]
	if guild == nil || guild.eventLog == 0 {
		return 0, false
	}
	return guild.eventLog, true
}

func (s *Store) Guilds() []snowflake.ID {
	ids := make([]snowflake.ID, 0, len(s.guilds))
	for id := range s.guilds {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return ids
}

func (s *Store) ChannelCount() int {
	count := 0
	for _, guild := range s.guilds {
		count += len(guild.channels)
	}
	return count
}

// AutoReactions returns a copy of the configured reaction sequence.
func (p ChannelPolicy) AutoReactions() []emoji.Ref {
	out := make([]emoji.Ref, len(p.autoReactions))
	copy(out, p.autoReactions)
	return out
}

// Banned reports whether a reaction emoji is disallowed in this channel.
// Custom emoji match by ID; unicode emoji match by literal, with skin tone
// modifiers ignored when the store was compiled that way.
func (p ChannelPolicy) Banned(ref emoji.Ref) bool {
	if ref.IsCustom() {
		_, ok := p.bannedIDs[ref.ID]
		return ok
	}
	name := ref.Name
	if p.neutralTone {
		name = emoji.NeutralSkinTone(name)
	}
	_, ok := p.bannedNames[name]
	return ok
}

func (p ChannelPolicy) Moderated() bool {
	return len(p.bannedIDs)+len(p.bannedNames) > 0
}
