package services

import (
	"context"
	"encoding/json"
	stderrors "errors"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"

	"github.com/google/uuid"
	"github.com/quillpost/apiserver/config"
	"github.com/quillpost/apiserver/internal/errors"
	"github.com/quillpost/apiserver/internal/llm"
	"github.com/quillpost/apiserver/internal/mq"
	"github.com/quillpost/apiserver/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type contentFixture struct {
	store     *memStore
	llm       *fakeLLM
	publisher *fakePublisher
	svc       *ContentService
}

func newContentFixture() contentFixture {
	st := newMemStore()
	model := &fakeLLM{text: "generated text"}
	pub := &fakePublisher{}
	svc := NewContentService(st, st, model, pub, nil)
	svc.now = tickingClock()
	return contentFixture{store: st, llm: model, publisher: pub, svc: svc}
}

func TestContentService_GenerateAppliesDefaults(t *testing.T) {
	f := newContentFixture()
	user := f.store.addUser("a@example.com")

	content, err := f.svc.Generate(context.Background(), user.ID, GenerateRequest{Type: "blog", Topic: "  Go generics "})
	require.NoError(t, err)

	assert.Equal(t, types.ContentTypeBlog, content.Type)
	assert.Equal(t, "Go generics", content.Topic)
	assert.Equal(t, "professional", content.Tone)
	assert.Equal(t, types.LengthMedium, content.Length)
	assert.Equal(t, "generated text", content.Content)
	assert.Equal(t, user.ID, content.UserID)

	require.Len(t, f.llm.prompts, 1)
	assert.Contains(t, f.llm.prompts[0], `Topic: "Go generics"`)
	assert.Contains(t, f.llm.prompts[0], "Tone: professional")
	assert.Contains(t, f.llm.prompts[0], "Length: medium")

	stored, err := f.store.GetByID(context.Background(), user.ID)
	require.NoError(t, err)
	assert.Equal(t, 1, stored.ContentStats.TotalGenerated)
	assert.Equal(t, "blog", stored.ContentStats.LastUsedType)
	assert.Equal(t, "professional", stored.ContentStats.MostUsedTone)
}

func TestContentService_GenerateNormalizesXToTweet(t *testing.T) {
	f := newContentFixture()
	user := f.store.addUser("a@example.com")

	content, err := f.svc.Generate(context.Background(), user.ID, GenerateRequest{Type: "x", Topic: "launch", Tone: "witty"})
	require.NoError(t, err)

	assert.Equal(t, types.ContentTypeTweet, content.Type)
	assert.Contains(t, f.llm.prompts[0], "X/Twitter Content Guidelines")
}

func TestContentService_GenerateRejectsInvalidInput(t *testing.T) {
	tests := []struct {
		name string
		req  GenerateRequest
	}{
		{name: "unknown type", req: GenerateRequest{Type: "poem", Topic: "rain"}},
		{name: "blank topic", req: GenerateRequest{Type: "blog", Topic: "   "}},
		{name: "unknown length", req: GenerateRequest{Type: "blog", Topic: "rain", Length: "epic"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newContentFixture()
			user := f.store.addUser("a@example.com")

			_, err := f.svc.Generate(context.Background(), user.ID, tt.req)
			assert.True(t, errors.Is(err, errors.ErrValidation))
			assert.Empty(t, f.llm.prompts)
		})
	}
}

func TestContentService_GenerateUpstreamFailurePersistsNothing(t *testing.T) {
	f := newContentFixture()
	f.llm.err = stderrors.New("status 503")
	user := f.store.addUser("a@example.com")

	_, err := f.svc.Generate(context.Background(), user.ID, GenerateRequest{Type: "tweet", Topic: "rain"})
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrGenerationFailed)

	var domainErr *errors.Error
	require.True(t, errors.As(err, &domainErr))
	assert.Equal(t, errors.CodeUpstream, domainErr.Code)
	assert.Equal(t, "Failed to generate content.", domainErr.Message)

	history, err := f.svc.History(context.Background(), user.ID)
	require.NoError(t, err)
	assert.Empty(t, history)

	stored, _ := f.store.GetByID(context.Background(), user.ID)
	assert.Equal(t, 0, stored.ContentStats.TotalGenerated)
	assert.Empty(t, f.publisher.events)
}

func TestContentService_GenerateEmptyCompletionPersistsNothing(t *testing.T) {
	upstream := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"choices":[{"message":{"role":"assistant","content":null}}]}`))
	}))
	t.Cleanup(upstream.Close)

	client, err := llm.NewChatCompletionClient(config.LLMConfig{BaseURL: upstream.URL, APIKey: "k", Model: "m"})
	require.NoError(t, err)

	st := newMemStore()
	pub := &fakePublisher{}
	svc := NewContentService(st, st, client, pub, nil)
	user := st.addUser("a@example.com")

	_, err = svc.Generate(context.Background(), user.ID, GenerateRequest{Type: "blog", Topic: "rain"})
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrGenerationFailed)
	assert.ErrorIs(t, err, llm.ErrEmptyCompletion)

	history, err := svc.History(context.Background(), user.ID)
	require.NoError(t, err)
	assert.Empty(t, history)

	stored, err := st.GetByID(context.Background(), user.ID)
	require.NoError(t, err)
	assert.Equal(t, 0, stored.ContentStats.TotalGenerated)
	assert.Equal(t, 0, stored.ContentStats.ToneCounts.Get("professional"))
	assert.Empty(t, pub.events)
}

func TestContentService_GenerateBlankTextIsUpstreamFailure(t *testing.T) {
	f := newContentFixture()
	f.llm.text = "   "
	user := f.store.addUser("a@example.com")

	_, err := f.svc.Generate(context.Background(), user.ID, GenerateRequest{Type: "tweet", Topic: "rain"})
	assert.ErrorIs(t, err, ErrGenerationFailed)

	stored, _ := f.store.GetByID(context.Background(), user.ID)
	assert.Equal(t, 0, stored.ContentStats.TotalGenerated)
}

func TestContentService_GenerateUnknownUser(t *testing.T) {
	f := newContentFixture()

	_, err := f.svc.Generate(context.Background(), uuid.New(), GenerateRequest{Type: "blog", Topic: "rain"})
	assert.True(t, errors.Is(err, errors.ErrNotFound))
}

func TestContentService_GeneratePublishesEvent(t *testing.T) {
	f := newContentFixture()
	user := f.store.addUser("a@example.com")

	content, err := f.svc.Generate(context.Background(), user.ID, GenerateRequest{Type: "linkedin", Topic: "hiring", Tone: "warm"})
	require.NoError(t, err)

	require.Len(t, f.publisher.events, 1)
	event := f.publisher.events[0]
	assert.Equal(t, mq.ChannelContentGenerated, event.channel)
	assert.Equal(t, mq.ChannelContentGenerated, event.attrs[mq.AttrEventType])

	var decoded mq.ContentGenerated
	require.NoError(t, json.Unmarshal(event.data, &decoded))
	assert.Equal(t, content.ID, decoded.ContentID)
	assert.Equal(t, "linkedin", decoded.Type)
	assert.Equal(t, "warm", decoded.Tone)
}

func TestContentService_PublishFailureDoesNotFailGeneration(t *testing.T) {
	f := newContentFixture()
	f.publisher.err = stderrors.New("broker down")
	user := f.store.addUser("a@example.com")

	_, err := f.svc.Generate(context.Background(), user.ID, GenerateRequest{Type: "blog", Topic: "rain"})
	require.NoError(t, err)

	history, err := f.svc.History(context.Background(), user.ID)
	require.NoError(t, err)
	assert.Len(t, history, 1)
}

func TestContentService_StatsTrackGenerations(t *testing.T) {
	f := newContentFixture()
	user := f.store.addUser("a@example.com")
	ctx := context.Background()

	for _, req := range []GenerateRequest{
		{Type: "blog", Topic: "a", Tone: "calm"},
		{Type: "tweet", Topic: "b", Tone: "bold"},
		{Type: "linkedin", Topic: "c", Tone: "bold"},
	} {
		_, err := f.svc.Generate(ctx, user.ID, req)
		require.NoError(t, err)
	}

	stored, err := f.store.GetByID(ctx, user.ID)
	require.NoError(t, err)
	assert.Equal(t, 3, stored.ContentStats.TotalGenerated)
	assert.Equal(t, "linkedin", stored.ContentStats.LastUsedType)
	assert.Equal(t, "bold", stored.ContentStats.MostUsedTone)
	assert.Equal(t, 1, stored.ContentStats.ToneCounts.Get("calm"))
	assert.Equal(t, 2, stored.ContentStats.ToneCounts.Get("bold"))
}

func TestContentService_ConcurrentGenerationsAreAllCounted(t *testing.T) {
	f := newContentFixture()
	user := f.store.addUser("a@example.com")
	ctx := context.Background()

	const n = 20
	var wg sync.WaitGroup
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := f.svc.Generate(ctx, user.ID, GenerateRequest{Type: "tweet", Topic: "race"})
			assert.NoError(t, err)
		}()
	}
	wg.Wait()

	stored, err := f.store.GetByID(ctx, user.ID)
	require.NoError(t, err)
	assert.Equal(t, n, stored.ContentStats.TotalGenerated)

	history, err := f.svc.History(ctx, user.ID)
	require.NoError(t, err)
	assert.Len(t, history, n)
}

func TestContentService_HistoryNewestFirstAndScoped(t *testing.T) {
	f := newContentFixture()
	alice := f.store.addUser("alice@example.com")
	bob := f.store.addUser("bob@example.com")
	ctx := context.Background()

	first, err := f.svc.Generate(ctx, alice.ID, GenerateRequest{Type: "blog", Topic: "first"})
	require.NoError(t, err)
	second, err := f.svc.Generate(ctx, alice.ID, GenerateRequest{Type: "blog", Topic: "second"})
	require.NoError(t, err)
	_, err = f.svc.Generate(ctx, bob.ID, GenerateRequest{Type: "blog", Topic: "other"})
	require.NoError(t, err)

	history, err := f.svc.History(ctx, alice.ID)
	require.NoError(t, err)
	require.Len(t, history, 2)
	assert.Equal(t, second.ID, history[0].ID)
	assert.Equal(t, first.ID, history[1].ID)
}

func TestContentService_DeleteIsOwnerScoped(t *testing.T) {
	f := newContentFixture()
	alice := f.store.addUser("alice@example.com")
	bob := f.store.addUser("bob@example.com")
	ctx := context.Background()

	content, err := f.svc.Generate(ctx, alice.ID, GenerateRequest{Type: "blog", Topic: "mine"})
	require.NoError(t, err)

	err = f.svc.Delete(ctx, bob.ID, content.ID)
	require.Error(t, err)
	assert.True(t, errors.Is(err, errors.ErrNotFound))
	assert.Equal(t, "Content not found or unauthorized.", err.Error())

	require.NoError(t, f.svc.Delete(ctx, alice.ID, content.ID))
	history, err := f.svc.History(ctx, alice.ID)
	require.NoError(t, err)
	assert.Empty(t, history)

	last := f.publisher.events[len(f.publisher.events)-1]
	assert.Equal(t, mq.ChannelContentDeleted, last.channel)

	stored, _ := f.store.GetByID(ctx, alice.ID)
	assert.Equal(t, 1, stored.ContentStats.TotalGenerated)
}

func TestContentService_DeleteAll(t *testing.T) {
	f := newContentFixture()
	alice := f.store.addUser("alice@example.com")
	bob := f.store.addUser("bob@example.com")
	ctx := context.Background()

	for _, topic := range []string{"a", "b", "c"} {
		_, err := f.svc.Generate(ctx, alice.ID, GenerateRequest{Type: "tweet", Topic: topic})
		require.NoError(t, err)
	}
	_, err := f.svc.Generate(ctx, bob.ID, GenerateRequest{Type: "tweet", Topic: "keep"})
	require.NoError(t, err)

	deleted, err := f.svc.DeleteAll(ctx, alice.ID)
	require.NoError(t, err)
	assert.Equal(t, 3, deleted)

	_, err = f.svc.DeleteAll(ctx, alice.ID)
	assert.True(t, errors.Is(err, errors.ErrNotFound))

	remaining, err := f.svc.History(ctx, bob.ID)
	require.NoError(t, err)
	assert.Len(t, remaining, 1)

	last := f.publisher.events[len(f.publisher.events)-1]
	var decoded mq.ContentDeleted
	require.NoError(t, json.Unmarshal(last.data, &decoded))
	assert.Len(t, decoded.ContentIDs, 3)
}

func TestContentService_NilPublisher(t *testing.T) {
	st := newMemStore()
	svc := NewContentService(st, st, &fakeLLM{text: "ok"}, nil, nil)
	user := st.addUser("a@example.com")

	_, err := svc.Generate(context.Background(), user.ID, GenerateRequest{Type: "blog", Topic: "rain"})
	assert.NoError(t, err)
}
