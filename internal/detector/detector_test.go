package detector_test

import (
	"bytes"
	"context"
	"errors"
	"image"
	"image/color"
	"image/png"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/robalyx/sentinel/internal/database/types"
	"github.com/robalyx/sentinel/internal/database/types/enum"
	"github.com/robalyx/sentinel/internal/detector"
	"github.com/robalyx/sentinel/internal/fetcher"
	"github.com/robalyx/sentinel/internal/settings"
	"github.com/robalyx/sentinel/internal/setup/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type memoryEvents struct {
	mu     sync.Mutex
	events map[uint64]*types.MessageEvent
}

func (m *memoryEvents) Record(_ context.Context, event *types.MessageEvent) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.events[event.ID]; !ok {
		copied := *event
		m.events[event.ID] = &copied
	}
	return nil
}

func (m *memoryEvents) count(match func(*types.MessageEvent) bool) int {
	m.mu.Lock()
	defer m.mu.Unlock()

	n := 0
	for _, e := range m.events {
		if !e.Deleted && match(e) {
			n++
		}
	}
	return n
}

func (m *memoryEvents) CountSince(_ context.Context, userID uint64, since time.Time) (int, error) {
	return m.count(func(e *types.MessageEvent) bool {
		return e.UserID == userID && !e.CreatedAt.Before(since)
	}), nil
}

func (m *memoryEvents) CountByHashSince(_ context.Context, userID uint64, hash string, since time.Time) (int, error) {
	return m.count(func(e *types.MessageEvent) bool {
		return e.UserID == userID && e.ContentHash == hash && !e.CreatedAt.Before(since)
	}), nil
}

func (m *memoryEvents) CountChannelsByHashSince(
	_ context.Context, userID uint64, hash string, since time.Time, exclude uint64,
) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	channels := make(map[uint64]struct{})
	for _, e := range m.events {
		if !e.Deleted && e.UserID == userID && e.ContentHash == hash &&
			!e.CreatedAt.Before(since) && e.ChannelID != exclude {
			channels[e.ChannelID] = struct{}{}
		}
	}
	return len(channels), nil
}

func (m *memoryEvents) markDeleted(id uint64) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.events[id].Deleted = true
}

type fixedTrust map[uint64]float64

func (f fixedTrust) Get(_ context.Context, userID uint64) (*types.TrustScore, error) {
	return &types.TrustScore{UserID: userID, Overall: f[userID]}, nil
}

type memoryFingerprints struct {
	mu      sync.Mutex
	fps     map[string]*types.ImageFingerprint
	nearest *types.ImageFingerprint // Returned for every lookup when set
}

func (m *memoryFingerprints) FindMatch(_ context.Context, phash string, _ int) (*types.ImageFingerprint, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.nearest != nil {
		copied := *m.nearest
		return &copied, nil
	}

	fp, ok := m.fps[phash]
	if !ok {
		return nil, types.ErrFingerprintNotFound
	}
	copied := *fp
	return &copied, nil
}

func (m *memoryFingerprints) Insert(_ context.Context, fp *types.ImageFingerprint) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.fps[fp.PHash]; ok {
		return false, nil
	}
	copied := *fp
	m.fps[fp.PHash] = &copied
	return true, nil
}

func (m *memoryFingerprints) IncrementPosted(_ context.Context, phash string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.fps[phash].TimesPosted++
	return nil
}

type mapFetcher map[string]any

func (f mapFetcher) Fetch(_ context.Context, url string) ([]byte, error) {
	switch v := f[url].(type) {
	case []byte:
		return v, nil
	case error:
		return nil, v
	}
	return nil, errors.New("not found")
}

type harness struct {
	detector     *detector.Detector
	events       *memoryEvents
	fingerprints *memoryFingerprints
	cfg          *config.Moderation
}

func newHarness(trust fixedTrust, files mapFetcher) *harness {
	cfg := config.WithListDefaults()
	events := &memoryEvents{events: make(map[uint64]*types.MessageEvent)}
	fps := &memoryFingerprints{fps: make(map[string]*types.ImageFingerprint)}

	if trust == nil {
		trust = fixedTrust{}
	}

	return &harness{
		detector:     detector.New(events, trust, fps, files, settings.Static(cfg), zap.NewNop()),
		events:       events,
		fingerprints: fps,
		cfg:          cfg,
	}
}

var base = time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

func message(id, userID, channelID uint64, content string, offset time.Duration) *types.Message {
	return &types.Message{
		ID:        id,
		ChannelID: channelID,
		Author:    types.Profile{UserID: userID, Username: "user"},
		Content:   content,
		CreatedAt: base.Add(offset),
	}
}

func TestClassifyTextChecks(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name     string
		content  string
		mentions int
		trust    float64
		roles    []string
		want     enum.Category
		reason   string
	}{
		{name: "clean", content: "hello there, how is everyone doing"},
		{name: "scam", content: "get FREE   nitro now", want: enum.CategoryScam, reason: "Scam pattern detected: free\\s+nitro"},
		{name: "everyone with url", content: "@everyone look http://x.io", want: enum.CategoryScam},
		{name: "foreign invite", content: "join discord.gg/abcdef", want: enum.CategoryLinkSpam, reason: "Unauthorized Discord invite"},
		{name: "foreign invite trusted", content: "join discord.gg/abcdef", trust: 90, want: enum.CategoryLinkSpam},
		{name: "whitelisted invite", content: "join discord.gg/your-server"},
		{name: "foreign domain", content: "see https://evil.example/page", want: enum.CategoryLinkSpam, reason: "Non-whitelisted link: evil.example"},
		{name: "foreign domain trusted", content: "see https://evil.example/page", trust: 60},
		{name: "foreign domain trusted role", content: "see https://evil.example/page", roles: []string{"moderator"}},
		{name: "whitelisted domain", content: "watch https://www.youtube.com/watch?v=1"},
		{name: "mentions", content: "hi", mentions: 6, want: enum.CategoryMentionSpam, reason: "Excessive mentions (6)"},
		{name: "mentions at limit", content: "hi", mentions: 5},
		{name: "caps", content: "THISISALLSHOUTINGTEXT", want: enum.CategoryContentSpam, reason: "Excessive caps (100%)"},
		{name: "short caps", content: "OK FINE"},
		{name: "caps trusted", content: "THISISALLSHOUTINGTEXT", trust: 70},
		{name: "repeated", content: "no" + strings.Repeat("o", 10), want: enum.CategoryContentSpam, reason: "Repeated character spam"},
		{name: "repeated below", content: strings.Repeat("a", 9)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			h := newHarness(fixedTrust{7: tt.trust}, nil)
			msg := message(1, 7, 100, tt.content, 0)
			msg.Mentions = tt.mentions
			msg.RoleNames = tt.roles

			verdict, err := h.detector.Classify(t.Context(), msg)
			require.NoError(t, err)

			assert.Equal(t, tt.want != enum.CategoryNone, verdict.Abusive)
			assert.Equal(t, tt.want, verdict.Category)
			if tt.reason != "" {
				assert.Equal(t, tt.reason, verdict.Reason)
			}
		})
	}
}

func TestClassifyLinksNotAllowed(t *testing.T) {
	t.Parallel()

	h := newHarness(nil, nil)
	h.cfg.Detector.AllowLinks = false

	verdict, err := h.detector.Classify(t.Context(), message(1, 7, 100, "https://github.com", 0))
	require.NoError(t, err)
	assert.Equal(t, enum.CategoryLinkSpam, verdict.Category)
	assert.Equal(t, "Links not allowed", verdict.Reason)
}

func TestClassifyInviteBlockingDisabled(t *testing.T) {
	t.Parallel()

	h := newHarness(fixedTrust{7: 80}, nil)
	h.cfg.Detector.BlockAllInvites = false

	verdict, err := h.detector.Classify(t.Context(), message(1, 7, 100, "discord.gg/abcdef", 0))
	require.NoError(t, err)
	assert.False(t, verdict.Abusive)
}

func TestClassifyDuplicateScenario(t *testing.T) {
	t.Parallel()

	h := newHarness(nil, nil)

	for i := range 4 {
		verdict, err := h.detector.Classify(t.Context(),
			message(uint64(i+1), 7, 100, "same message!!!", time.Duration(i)*3*time.Second))
		require.NoError(t, err)

		if i < 3 {
			assert.False(t, verdict.Abusive, "message %d", i+1)
			continue
		}

		assert.True(t, verdict.Abusive)
		assert.Equal(t, enum.CategoryDuplicate, verdict.Category)
		assert.Equal(t, "Duplicate messages (4 identical messages)", verdict.Reason)
	}
}

func TestClassifyDuplicateNormalization(t *testing.T) {
	t.Parallel()

	h := newHarness(nil, nil)
	variants := []string{"Hello  World", "hello world", "HELLO\tworld", " hello world "}

	var last detector.Verdict
	for i, content := range variants {
		var err error
		last, err = h.detector.Classify(t.Context(), message(uint64(i+1), 7, 100, content, time.Duration(i)*3*time.Second))
		require.NoError(t, err)
	}

	assert.Equal(t, enum.CategoryDuplicate, last.Category)
}

func TestClassifyRapidMessaging(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name      string
		trust     float64
		triggerAt int
	}{
		{name: "untrusted", trust: 0, triggerAt: 5},
		{name: "trusted", trust: 60, triggerAt: 7},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			h := newHarness(fixedTrust{7: tt.trust}, nil)

			for i := 1; i <= tt.triggerAt; i++ {
				verdict, err := h.detector.Classify(t.Context(),
					message(uint64(i), 7, 100, "message number "+strings.Repeat("x", i), time.Duration(i)*time.Second))
				require.NoError(t, err)

				if i < tt.triggerAt {
					assert.False(t, verdict.Abusive, "message %d", i)
					continue
				}

				assert.Equal(t, enum.CategoryRapidMessaging, verdict.Category)
			}
		})
	}
}

func TestClassifyRapidIgnoresDeletedEvents(t *testing.T) {
	t.Parallel()

	h := newHarness(nil, nil)

	for i := 1; i <= 4; i++ {
		_, err := h.detector.Classify(t.Context(), message(uint64(i), 7, 100, strings.Repeat("y", i), time.Duration(i)*time.Second))
		require.NoError(t, err)
		h.events.markDeleted(uint64(i))
	}

	verdict, err := h.detector.Classify(t.Context(), message(5, 7, 100, "fifth", 5*time.Second))
	require.NoError(t, err)
	assert.False(t, verdict.Abusive)
}

func TestClassifyCrossChannel(t *testing.T) {
	t.Parallel()

	h := newHarness(nil, nil)

	// Spread out enough to avoid the duplicate and rapid windows
	for i := range 3 {
		verdict, err := h.detector.Classify(t.Context(),
			message(uint64(i+1), 7, uint64(200+i), "buy my stuff", time.Duration(i)*70*time.Second))
		require.NoError(t, err)
		assert.False(t, verdict.Abusive)
	}

	verdict, err := h.detector.Classify(t.Context(), message(4, 7, 203, "buy my stuff", 210*time.Second))
	require.NoError(t, err)
	assert.Equal(t, enum.CategoryCrossChannel, verdict.Category)
	assert.Equal(t, "Cross-channel spam (4 channels)", verdict.Reason)
}

func TestClassifyScamBeatsRapid(t *testing.T) {
	t.Parallel()

	h := newHarness(nil, nil)

	for i := 1; i <= 4; i++ {
		_, err := h.detector.Classify(t.Context(), message(uint64(i), 7, 100, strings.Repeat("z", i), time.Duration(i)*time.Second))
		require.NoError(t, err)
	}

	verdict, err := h.detector.Classify(t.Context(), message(5, 7, 100, "free nitro here", 5*time.Second))
	require.NoError(t, err)
	assert.Equal(t, enum.CategoryScam, verdict.Category)
}

func TestClassifyIsIdempotent(t *testing.T) {
	t.Parallel()

	h := newHarness(nil, nil)

	for i := 1; i <= 3; i++ {
		_, err := h.detector.Classify(t.Context(), message(uint64(i), 7, 100, "repeat", time.Duration(i)*time.Second))
		require.NoError(t, err)
	}

	replay := message(4, 7, 100, "repeat", 4*time.Second)

	first, err := h.detector.Classify(t.Context(), replay)
	require.NoError(t, err)
	second, err := h.detector.Classify(t.Context(), replay)
	require.NoError(t, err)

	assert.Equal(t, first, second)
}

func pngBytes(t *testing.T, seed uint8) []byte {
	t.Helper()

	img := image.NewNRGBA(image.Rect(0, 0, 32, 32))
	for y := range 32 {
		for x := range 32 {
			v := uint8(x*8) ^ seed
			if (x/4+y/4)%2 == int(seed%2) {
				v = 255 - v
			}
			img.Set(x, y, color.NRGBA{R: v, G: v, B: v, A: 255})
		}
	}

	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, img))
	return buf.Bytes()
}

func TestClassifyImageDedup(t *testing.T) {
	t.Parallel()

	h := newHarness(nil, nil)
	data := pngBytes(t, 1)
	att := types.Attachment{Filename: "a.png", URL: "https://cdn/a.png"}

	first, err := h.detector.ClassifyImage(t.Context(), data, att, message(1, 7, 100, "", 0))
	require.NoError(t, err)
	require.NotNil(t, first.Fingerprint)
	assert.False(t, first.Abusive)

	second, err := h.detector.ClassifyImage(t.Context(), data, att, message(2, 8, 101, "", time.Second))
	require.NoError(t, err)
	require.NotNil(t, second.Fingerprint)
	assert.Equal(t, first.Fingerprint.PHash, second.Fingerprint.PHash)

	require.Len(t, h.fingerprints.fps, 1)
	stored := h.fingerprints.fps[first.Fingerprint.PHash]
	assert.Equal(t, 2, stored.TimesPosted)
	assert.Equal(t, uint64(1), stored.FirstSeenMessageID)
}

func TestClassifyImageKnownSpam(t *testing.T) {
	t.Parallel()

	h := newHarness(nil, nil)
	data := pngBytes(t, 2)
	att := types.Attachment{Filename: "a.png"}

	first, err := h.detector.ClassifyImage(t.Context(), data, att, message(1, 7, 100, "", 0))
	require.NoError(t, err)

	h.fingerprints.fps[first.Fingerprint.PHash].IsSpam = true

	verdict, err := h.detector.ClassifyImage(t.Context(), data, att, message(2, 7, 100, "", 0))
	require.NoError(t, err)
	assert.True(t, verdict.Abusive)
	assert.Equal(t, enum.CategorySpam, verdict.Category)

	h.fingerprints.fps[first.Fingerprint.PHash].SpamCategory = "community_reported"

	verdict, err = h.detector.ClassifyImage(t.Context(), data, att, message(3, 7, 100, "", 0))
	require.NoError(t, err)
	assert.Equal(t, enum.CategoryCommunityReported, verdict.Category)
}

func TestClassifyImageChecksMatchDistance(t *testing.T) {
	t.Parallel()

	data := pngBytes(t, 5)
	att := types.Attachment{Filename: "a.png"}
	far := &types.ImageFingerprint{PHash: "ffffffffffffffff", IsSpam: true, SpamCategory: "manual"}

	tests := []struct {
		name     string
		distance int
		abusive  bool
	}{
		{name: "outside distance", distance: 0, abusive: false},
		{name: "inside distance", distance: 64, abusive: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			h := newHarness(nil, nil)
			h.cfg.Images.HammingDistance = tt.distance
			h.fingerprints.nearest = far

			verdict, err := h.detector.ClassifyImage(t.Context(), data, att, message(1, 7, 100, "", 0))
			require.NoError(t, err)
			assert.Equal(t, tt.abusive, verdict.Abusive)

			if !tt.abusive {
				assert.Len(t, h.fingerprints.fps, 1)
			}
		})
	}
}

func TestClassifyImageInputErrors(t *testing.T) {
	t.Parallel()

	h := newHarness(nil, nil)
	h.cfg.Images.MaxSizeMB = 1

	oversized, err := h.detector.ClassifyImage(t.Context(), make([]byte, 2*1024*1024), types.Attachment{}, message(1, 7, 100, "", 0))
	require.NoError(t, err)
	assert.True(t, oversized.Abusive)
	assert.Equal(t, enum.CategoryImageSpam, oversized.Category)

	garbage, err := h.detector.ClassifyImage(t.Context(), []byte("not an image"), types.Attachment{}, message(2, 7, 100, "", 0))
	require.NoError(t, err)
	assert.False(t, garbage.Abusive)
	assert.Nil(t, garbage.Fingerprint)
}

func TestCheckAttachments(t *testing.T) {
	t.Parallel()

	spam := pngBytes(t, 3)
	clean := pngBytes(t, 4)

	h := newHarness(nil, mapFetcher{
		"https://cdn/clean.png": clean,
		"https://cdn/spam.png":  spam,
		"https://cdn/down.png":  errors.New("connection reset"),
		"https://cdn/huge.png":  fetcher.ErrTooLarge,
	})

	seed, err := h.detector.ClassifyImage(t.Context(), spam, types.Attachment{Filename: "spam.png"}, message(99, 1, 1, "", 0))
	require.NoError(t, err)
	h.fingerprints.fps[seed.Fingerprint.PHash].IsSpam = true
	h.fingerprints.fps[seed.Fingerprint.PHash].SpamCategory = "manual"

	tests := []struct {
		name        string
		attachments []types.Attachment
		want        enum.Category
	}{
		{
			name: "clean image",
			attachments: []types.Attachment{
				{Filename: "clean.png", URL: "https://cdn/clean.png"},
			},
		},
		{
			name: "any spam image",
			attachments: []types.Attachment{
				{Filename: "clean.png", URL: "https://cdn/clean.png"},
				{Filename: "spam.png", URL: "https://cdn/spam.png"},
			},
			want: enum.CategoryManual,
		},
		{
			name: "skipped extension",
			attachments: []types.Attachment{
				{Filename: "spam.txt", URL: "https://cdn/spam.png"},
			},
		},
		{
			name: "download failure fails open",
			attachments: []types.Attachment{
				{Filename: "down.png", URL: "https://cdn/down.png"},
			},
		},
		{
			name: "too large download",
			attachments: []types.Attachment{
				{Filename: "huge.png", URL: "https://cdn/huge.png"},
			},
			want: enum.CategoryImageSpam,
		},
		{
			name: "too large declared size",
			attachments: []types.Attachment{
				{Filename: "clean.png", URL: "https://cdn/clean.png", Size: 11 * 1024 * 1024},
			},
			want: enum.CategoryImageSpam,
		},
	}

	for i, tt := range tests {
		msg := message(uint64(1000+i), uint64(50+i), 100, "", time.Duration(i)*time.Minute)
		msg.Attachments = tt.attachments

		verdict, err := h.detector.Check(t.Context(), msg)
		require.NoError(t, err, tt.name)
		assert.Equal(t, tt.want, verdict.Category, tt.name)
		assert.Equal(t, tt.want != enum.CategoryNone, verdict.Abusive, tt.name)
	}
}
