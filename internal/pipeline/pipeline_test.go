package pipeline_test

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/robalyx/sentinel/internal/database/types"
	"github.com/robalyx/sentinel/internal/database/types/enum"
	"github.com/robalyx/sentinel/internal/detector"
	"github.com/robalyx/sentinel/internal/pipeline"
	"github.com/robalyx/sentinel/internal/punishment"
	"github.com/robalyx/sentinel/internal/raid"
	"github.com/robalyx/sentinel/internal/setup/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

var base = time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

// recorder implements every collaborator and logs calls in order.
type recorder struct {
	mu       sync.Mutex
	calls    []string
	seen     []uint64 // Message IDs in handling order
	users    map[uint64]*types.User
	authors  map[uint64]uint64 // Message ID to author ID
	abusive  map[string]bool   // Content that is classified as abusive
	panicOn  string
	alert    *raid.Alert
	alerts   []*raid.Alert
	unlocked []config.Achievement
	scoreErr error
}

func newRecorder() *recorder {
	return &recorder{
		users:   make(map[uint64]*types.User),
		authors: make(map[uint64]uint64),
		abusive: make(map[string]bool),
	}
}

func (r *recorder) log(call string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.calls = append(r.calls, call)
}

func (r *recorder) Calls() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]string(nil), r.calls...)
}

func (r *recorder) Check(_ context.Context, msg *types.Message) (detector.Verdict, error) {
	if msg.Content == r.panicOn {
		panic("boom")
	}

	r.mu.Lock()
	r.seen = append(r.seen, msg.ID)
	r.authors[msg.ID] = msg.Author.UserID
	r.mu.Unlock()
	r.log("check")

	if r.abusive[msg.Content] {
		return detector.Verdict{Abusive: true, Category: enum.CategoryScam, Reason: "Scam pattern detected"}, nil
	}
	return detector.Verdict{}, nil
}

func (r *recorder) Punish(_ context.Context, _ *types.Message, verdict detector.Verdict) (*punishment.Outcome, error) {
	r.log("punish")
	return &punishment.Outcome{Case: &types.Case{Reason: verdict.Reason}}, nil
}

func (r *recorder) Touch(_ context.Context, profile types.Profile, _ time.Time) (*types.User, error) {
	r.log("touch")
	r.mu.Lock()
	defer r.mu.Unlock()

	user, ok := r.users[profile.UserID]
	if !ok {
		user = &types.User{ID: profile.UserID, Username: profile.Username}
		r.users[profile.UserID] = user
	}
	copied := *user
	return &copied, nil
}

func (r *recorder) GetUser(_ context.Context, userID uint64) (*types.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	user, ok := r.users[userID]
	if !ok {
		return nil, types.ErrUserNotFound
	}
	copied := *user
	return &copied, nil
}

func (r *recorder) AddReactions(_ context.Context, giverID, receiverID uint64, delta int64) error {
	r.log("reactions")
	r.mu.Lock()
	defer r.mu.Unlock()

	if giver, ok := r.users[giverID]; ok {
		giver.ReactionsGiven += delta
	}
	if receiver, ok := r.users[receiverID]; ok {
		receiver.ReactionsReceived += delta
	}
	return nil
}

func (r *recorder) AddVoiceMinutes(_ context.Context, userID uint64, minutes int64) error {
	r.log("voice")
	r.mu.Lock()
	defer r.mu.Unlock()

	r.users[userID].VoiceMinutes += minutes
	return nil
}

func (r *recorder) RecordMessage(_ context.Context, userID, _ uint64, _ time.Time) error {
	r.log("activity")
	r.mu.Lock()
	defer r.mu.Unlock()

	r.users[userID].TotalMessages++
	return nil
}

func (r *recorder) AdjustReactions(_ context.Context, messageID uint64, delta int) (uint64, error) {
	if delta > 0 {
		r.log("adjust+")
	} else {
		r.log("adjust-")
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	return r.authors[messageID], nil
}

func (r *recorder) RecordActivity(context.Context, *types.User, time.Time) error {
	r.log("streak")
	return nil
}

func (r *recorder) Evaluate(context.Context, *types.User, time.Time) ([]config.Achievement, error) {
	r.log("evaluate")
	return r.unlocked, nil
}

func (r *recorder) RecordJoin(context.Context, uint64, uint64, time.Time) (*raid.Alert, error) {
	r.log("join")
	return r.alert, nil
}

func (r *recorder) Recalculate(_ context.Context, userID uint64) (*types.TrustScore, error) {
	r.log("score")
	if r.scoreErr != nil {
		return nil, r.scoreErr
	}
	return &types.TrustScore{UserID: userID}, nil
}

func (r *recorder) RaidAlert(_ context.Context, alert *raid.Alert) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.alerts = append(r.alerts, alert)
}

func newPipeline(r *recorder, shards int) *pipeline.Pipeline {
	return pipeline.New(pipeline.Deps{
		Detector:     r,
		Punisher:     r,
		Users:        r,
		Activity:     r,
		Events:       r,
		Gamification: r,
		Raid:         r,
		Alerter:      r,
		Trust:        r,
	}, config.Pipeline{Shards: shards, QueueSize: 4, EventTimeout: 1000}, zap.NewNop())
}

func message(id, user uint64, content string) *types.Message {
	return &types.Message{
		ID:        id,
		ChannelID: 10,
		Author:    types.Profile{UserID: user, Username: "user"},
		Content:   content,
		CreatedAt: base.Add(time.Duration(id) * time.Second),
	}
}

func TestHandleMessage(t *testing.T) {
	t.Parallel()

	t.Run("clean message credits activity", func(t *testing.T) {
		t.Parallel()

		r := newRecorder()
		r.unlocked = []config.Achievement{{ID: "first_message"}}
		p := newPipeline(r, 1)

		result, err := p.HandleMessage(t.Context(), message(1, 7, "hello"))
		require.NoError(t, err)

		assert.False(t, result.Abusive)
		assert.Nil(t, result.Outcome)
		require.Len(t, result.Achievements, 1)
		assert.Equal(t, "first_message", result.Achievements[0].ID)
		assert.Equal(t, []string{"touch", "check", "activity", "streak", "evaluate"}, r.Calls())
		assert.Equal(t, int64(1), r.users[7].TotalMessages)
	})

	t.Run("abusive message is punished only", func(t *testing.T) {
		t.Parallel()

		r := newRecorder()
		r.abusive["free nitro"] = true
		p := newPipeline(r, 1)

		result, err := p.HandleMessage(t.Context(), message(1, 7, "free nitro"))
		require.NoError(t, err)

		assert.True(t, result.Abusive)
		assert.Equal(t, "scam", result.Category)
		require.NotNil(t, result.Outcome)
		assert.Equal(t, "Scam pattern detected", result.Outcome.Case.Reason)
		assert.Equal(t, []string{"touch", "check", "punish"}, r.Calls())
		assert.Zero(t, r.users[7].TotalMessages)
	})
}

func TestHandleReaction(t *testing.T) {
	t.Parallel()

	r := newRecorder()
	p := newPipeline(r, 1)
	ctx := t.Context()

	_, err := p.HandleMessage(ctx, message(1, 7, "hello"))
	require.NoError(t, err)

	reactor := types.Profile{UserID: 8, Username: "reactor"}
	require.NoError(t, p.HandleReaction(ctx, pipeline.ReactionEvent{MessageID: 1, Reactor: reactor, Added: true, At: base}))

	assert.Equal(t, int64(1), r.users[8].ReactionsGiven)
	assert.Equal(t, int64(1), r.users[7].ReactionsReceived)

	require.NoError(t, p.HandleReaction(ctx, pipeline.ReactionEvent{MessageID: 1, Reactor: reactor, Added: false, At: base}))

	calls := r.Calls()
	assert.Equal(t, "adjust-", calls[len(calls)-1])
	assert.Equal(t, int64(1), r.users[7].ReactionsReceived, "removals do not lower user counters")
}

func TestHandleVoice(t *testing.T) {
	t.Parallel()

	r := newRecorder()
	p := newPipeline(r, 1)
	ctx := t.Context()
	member := types.Profile{UserID: 9}

	require.NoError(t, p.HandleVoice(ctx, pipeline.VoiceEvent{User: member, Minutes: 0, At: base}))
	assert.Empty(t, r.Calls())

	require.NoError(t, p.HandleVoice(ctx, pipeline.VoiceEvent{User: member, Minutes: 25, At: base}))
	assert.Equal(t, int64(25), r.users[9].VoiceMinutes)
	assert.Equal(t, []string{"touch", "voice", "evaluate"}, r.Calls())
}

func TestHandleJoin(t *testing.T) {
	t.Parallel()

	r := newRecorder()
	p := newPipeline(r, 1)
	ctx := t.Context()
	event := pipeline.JoinEvent{GuildID: 1, Member: types.Profile{UserID: 9}, At: base}

	require.NoError(t, p.HandleJoin(ctx, event))
	assert.Empty(t, r.alerts)
	assert.Equal(t, []string{"touch", "score", "join"}, r.Calls())

	r.alert = &raid.Alert{GuildID: 1, Joins: 10, Window: time.Minute, At: base}
	require.NoError(t, p.HandleJoin(ctx, event))
	require.Len(t, r.alerts, 1)
	assert.Equal(t, 10, r.alerts[0].Joins)

	// Scoring failures do not block raid tracking
	r.scoreErr = errors.New("scores unavailable")
	require.NoError(t, p.HandleJoin(ctx, event))
	assert.Len(t, r.alerts, 2)
}

func TestSubmitKeepsPerUserOrder(t *testing.T) {
	t.Parallel()

	r := newRecorder()
	p := newPipeline(r, 4)
	ctx := context.Background()
	p.Start(ctx)

	const perUser = 20
	for i := range perUser {
		for _, user := range []uint64{1, 2, 3} {
			id := user*1000 + uint64(i)
			require.NoError(t, p.SubmitMessage(ctx, message(id, user, "hello")))
		}
	}

	p.Stop()

	last := make(map[uint64]uint64)
	count := make(map[uint64]int)
	for _, id := range r.seen {
		user := id / 1000
		assert.Greater(t, id, last[user], "messages of user %d out of order", user)
		last[user] = id
		count[user]++
	}

	for _, user := range []uint64{1, 2, 3} {
		assert.Equal(t, perUser, count[user])
		assert.Equal(t, int64(perUser), r.users[user].TotalMessages)
	}
}

func TestSubmitRecoversPanics(t *testing.T) {
	t.Parallel()

	r := newRecorder()
	r.panicOn = "explode"
	p := newPipeline(r, 1)
	ctx := context.Background()
	p.Start(ctx)

	require.NoError(t, p.SubmitMessage(ctx, message(1, 7, "explode")))
	require.NoError(t, p.SubmitMessage(ctx, message(2, 7, "hello")))
	p.Stop()

	assert.Equal(t, []uint64{2}, r.seen)
}

func TestSubmitAfterStop(t *testing.T) {
	t.Parallel()

	r := newRecorder()
	p := newPipeline(r, 2)
	p.Start(context.Background())
	p.Stop()
	p.Stop()

	err := p.SubmitJoin(context.Background(), pipeline.JoinEvent{Member: types.Profile{UserID: 1}})
	assert.True(t, errors.Is(err, pipeline.ErrStopped))
}
