package discord

import (
	"context"
	"time"

	"github.com/disgoorg/disgo/events"
	"github.com/robalyx/sentinel/internal/database/types"
	"github.com/robalyx/sentinel/internal/pipeline"
	"go.uber.org/zap"
)

// EventSink accepts platform events for ordered processing.
type EventSink interface {
	SubmitMessage(ctx context.Context, msg *types.Message) error
	SubmitReaction(ctx context.Context, event pipeline.ReactionEvent) error
	SubmitVoice(ctx context.Context, event pipeline.VoiceEvent) error
	SubmitJoin(ctx context.Context, event pipeline.JoinEvent) error
}

// Listener converts gateway events and submits them to the sink.
// Bot accounts and events outside the configured guild are ignored.
type Listener struct {
	ctx      context.Context
	sink     EventSink
	guildID  uint64
	sessions *VoiceSessions
	logger   *zap.Logger
}

// NewListener creates a Listener. The context bounds every submission.
func NewListener(ctx context.Context, sink EventSink, guildID uint64, logger *zap.Logger) *Listener {
	return &Listener{
		ctx:      ctx,
		sink:     sink,
		guildID:  guildID,
		sessions: NewVoiceSessions(),
		logger:   logger.Named("discord_listener"),
	}
}

func (l *Listener) inGuild(guildID uint64) bool {
	return l.guildID == 0 || l.guildID == guildID
}

// OnGuildMessageCreate submits a guild message.
func (l *Listener) OnGuildMessageCreate(event *events.GuildMessageCreate) {
	if event.Message.Author.Bot || !l.inGuild(uint64(event.GuildID)) {
		return
	}

	var roleNames []string
	if event.Message.Member != nil {
		roleNames = RoleNames(event.Client().Caches(), event.GuildID, event.Message.Member.RoleIDs)
	}

	l.submit("message", l.sink.SubmitMessage(l.ctx, ToMessage(event.Message, roleNames)))
}

// OnGuildMessageReactionAdd submits an added reaction.
func (l *Listener) OnGuildMessageReactionAdd(event *events.GuildMessageReactionAdd) {
	if event.Member.User.Bot || !l.inGuild(uint64(event.GuildID)) {
		return
	}

	reactor := ToProfile(event.Member.User)
	reactor.UserID = uint64(event.UserID)

	l.submit("reaction", l.sink.SubmitReaction(l.ctx, pipeline.ReactionEvent{
		MessageID: uint64(event.MessageID),
		ChannelID: uint64(event.ChannelID),
		Reactor:   reactor,
		Added:     true,
		At:        time.Now(),
	}))
}

// OnGuildMessageReactionRemove submits a removed reaction.
func (l *Listener) OnGuildMessageReactionRemove(event *events.GuildMessageReactionRemove) {
	if !l.inGuild(uint64(event.GuildID)) {
		return
	}

	l.submit("reaction", l.sink.SubmitReaction(l.ctx, pipeline.ReactionEvent{
		MessageID: uint64(event.MessageID),
		ChannelID: uint64(event.ChannelID),
		Reactor:   types.Profile{UserID: uint64(event.UserID)},
		Added:     false,
		At:        time.Now(),
	}))
}

// OnGuildVoiceJoin opens a voice session.
func (l *Listener) OnGuildVoiceJoin(event *events.GuildVoiceJoin) {
	if event.Member.User.Bot || !l.inGuild(uint64(event.VoiceState.GuildID)) {
		return
	}

	l.sessions.Join(uint64(event.VoiceState.UserID), time.Now())
}

// OnGuildVoiceLeave closes a voice session and submits its minutes.
func (l *Listener) OnGuildVoiceLeave(event *events.GuildVoiceLeave) {
	if event.Member.User.Bot || !l.inGuild(uint64(event.VoiceState.GuildID)) {
		return
	}

	now := time.Now()
	minutes, ok := l.sessions.Leave(uint64(event.VoiceState.UserID), now)
	if !ok {
		return
	}

	var channelID uint64
	if event.OldVoiceState.ChannelID != nil {
		channelID = uint64(*event.OldVoiceState.ChannelID)
	}

	l.submit("voice", l.sink.SubmitVoice(l.ctx, pipeline.VoiceEvent{
		User:      ToProfile(event.Member.User),
		ChannelID: channelID,
		Minutes:   minutes,
		At:        now,
	}))
}

// OnGuildMemberJoin submits a join. The join time is the time of the event.
func (l *Listener) OnGuildMemberJoin(event *events.GuildMemberJoin) {
	if event.Member.User.Bot || !l.inGuild(uint64(event.GuildID)) {
		return
	}

	now := time.Now()
	member := ToProfile(event.Member.User)
	member.JoinedAt = now

	l.submit("join", l.sink.SubmitJoin(l.ctx, pipeline.JoinEvent{
		GuildID: uint64(event.GuildID),
		Member:  member,
		At:      now,
	}))
}

func (l *Listener) submit(kind string, err error) {
	if err != nil {
		l.logger.Warn("Failed to submit event", zap.String("event", kind), zap.Error(err))
	}
}
