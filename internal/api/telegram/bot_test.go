package telegram

import (
	"context"
	"image"
	"sync"
	"testing"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/stretchr/testify/require"

	app "equipment-guard/internal/application"
	"equipment-guard/internal/container"
	"equipment-guard/internal/domain/entity"
	"equipment-guard/internal/infrastructure/camera"
	"equipment-guard/internal/infrastructure/storage"
)

type fakeAPI struct {
	mu      sync.Mutex
	sent    []tgbotapi.Chattable
	updates chan tgbotapi.Update
	stopped bool
}

func newFakeAPI() *fakeAPI {
	return &fakeAPI{updates: make(chan tgbotapi.Update, 8)}
}

func (a *fakeAPI) Send(c tgbotapi.Chattable) (tgbotapi.Message, error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.sent = append(a.sent, c)
	return tgbotapi.Message{}, nil
}

func (a *fakeAPI) GetUpdatesChan(tgbotapi.UpdateConfig) tgbotapi.UpdatesChannel {
	return a.updates
}

func (a *fakeAPI) StopReceivingUpdates() {
	a.mu.Lock()
	a.stopped = true
	a.mu.Unlock()
}

func (a *fakeAPI) Sent() []tgbotapi.Chattable {
	a.mu.Lock()
	defer a.mu.Unlock()
	return append([]tgbotapi.Chattable(nil), a.sent...)
}

func (a *fakeAPI) Texts() []string {
	var out []string
	for _, c := range a.Sent() {
		if m, ok := c.(tgbotapi.MessageConfig); ok {
			out = append(out, m.Text)
		}
	}
	return out
}

type fixedClassifier struct{ pred *entity.Prediction }

func (c fixedClassifier) Predict(image.Image) (*entity.Prediction, error) { return c.pred, nil }

type echoLLM struct{ prompts []string }

func (l *echoLLM) Generate(_ context.Context, prompt string, _ []byte) (string, error) {
	l.prompts = append(l.prompts, prompt)
	return "answer: " + prompt, nil
}

func faultPrediction() *entity.Prediction {
	return &entity.Prediction{
		Label:            "overheating",
		Confidence:       0.5,
		IsFault:          true,
		NormalConfidence: 0.2,
		DefectConfidence: 0.5,
	}
}

func newTestBot(pred *entity.Prediction, llm *echoLLM) (*Bot, *fakeAPI, *container.Container) {
	c := container.New(container.Deps{
		UserRepo:   storage.NewMemoryUserRepository(),
		Camera:     camera.NewPlaceholderCamera(64, 48),
		Classifier: fixedClassifier{pred: pred},
		LLM:        llm,
		Monitor:    app.DefaultMonitorOptions(),
	})
	api := newFakeAPI()
	return newBot(api, c, nil), api, c
}

func command(userID int64, text string) *tgbotapi.Message {
	return &tgbotapi.Message{
		From: &tgbotapi.User{ID: userID},
		Chat: &tgbotapi.Chat{ID: userID * 10},
		Text: text,
		Entities: []tgbotapi.MessageEntity{
			{Type: "bot_command", Offset: 0, Length: len(text)},
		},
	}
}

func text(userID int64, s string) *tgbotapi.Message {
	return &tgbotapi.Message{
		From: &tgbotapi.User{ID: userID},
		Chat: &tgbotapi.Chat{ID: userID * 10},
		Text: s,
	}
}

func TestBot_StatusBeforeFirstTick(t *testing.T) {
	bot, api, _ := newTestBot(faultPrediction(), &echoLLM{})

	bot.handleMessage(context.Background(), command(1, "/status"))
	require.Equal(t, []string{"⏳ Инициализация, решений ещё нет."}, api.Texts())
}

func TestBot_StatusWithEvidenceSendsPhoto(t *testing.T) {
	bot, api, c := newTestBot(faultPrediction(), &echoLLM{})
	require.NoError(t, c.InspectionService.Tick(context.Background()))

	bot.handleMessage(context.Background(), command(1, "/status"))

	sent := api.Sent()
	require.Len(t, sent, 1)
	photo, ok := sent[0].(tgbotapi.PhotoConfig)
	require.True(t, ok)
	require.Contains(t, photo.Caption, "Неисправность: overheating (50.0%)")
	require.Equal(t, int64(10), photo.ChatID)
}

func TestBot_AskForwardsQuestion(t *testing.T) {
	llm := &echoLLM{}
	bot, api, c := newTestBot(faultPrediction(), llm)
	ctx := context.Background()

	bot.handleMessage(ctx, command(2, "/ask"))
	bot.handleMessage(ctx, text(2, "why does the motor overheat?"))

	require.Equal(t, []string{"Expert advice: why does the motor overheat?"}, llm.prompts)
	texts := api.Texts()
	require.Equal(t, msgAwaitingQuestion, texts[0])
	require.Equal(t, "answer: Expert advice: why does the motor overheat?", texts[1])

	user, err := c.UserService.Get(ctx, 2, 20)
	require.NoError(t, err)
	require.Equal(t, entity.StateMainMenu, user.State)

	// Вне режима вопроса текст не уходит в модель.
	bot.handleMessage(ctx, text(2, "hello"))
	require.Len(t, llm.prompts, 1)
	require.Equal(t, msgUnknownText, api.Texts()[2])
}

func TestBot_FixSendsEvidenceAndSolution(t *testing.T) {
	llm := &echoLLM{}
	bot, api, c := newTestBot(faultPrediction(), llm)
	require.NoError(t, c.InspectionService.Tick(context.Background()))

	bot.handleMessage(context.Background(), command(3, "/fix"))

	require.Equal(t, []string{"Identify repair for overheating"}, llm.prompts)
	sent := api.Sent()
	require.Len(t, sent, 3)
	_, isPhoto := sent[1].(tgbotapi.PhotoConfig)
	require.True(t, isPhoto)
	require.Equal(t, "answer: Identify repair for overheating", sent[2].(tgbotapi.MessageConfig).Text)
}

func TestBot_PublishNotifiesSubscribers(t *testing.T) {
	bot, api, c := newTestBot(faultPrediction(), &echoLLM{})
	ctx := context.Background()

	bot.handleMessage(ctx, command(1, "/subscribe"))
	bot.handleMessage(ctx, command(2, "/subscribe"))
	bot.handleMessage(ctx, command(2, "/unsubscribe"))
	before := len(api.Sent())

	change, err := c.Monitor.Observe(faultPrediction(), camera.Placeholder(64, 48))
	require.NoError(t, err)
	require.NotNil(t, change)
	require.NoError(t, bot.Publish(ctx, *change))

	sent := api.Sent()[before:]
	require.Len(t, sent, 1)
	photo, ok := sent[0].(tgbotapi.PhotoConfig)
	require.True(t, ok)
	require.Equal(t, int64(10), photo.ChatID)
	require.Contains(t, photo.Caption, "Обнаружена неисправность: overheating (50.0%)")

	recovered := entity.StateChange{
		EpisodeID: change.EpisodeID,
		Previous:  change.Current,
		Current:   entity.Verdict{Label: entity.LabelNormal, Confidence: 91.5},
		At:        time.Now(),
	}
	require.NoError(t, bot.Publish(ctx, recovered))
	last := api.Sent()[len(api.Sent())-1].(tgbotapi.MessageConfig)
	require.Contains(t, last.Text, "вернулось в норму (91.5%)")
}

func TestBot_RunStopsOnCancel(t *testing.T) {
	bot, api, _ := newTestBot(faultPrediction(), &echoLLM{})
	ctx, cancel := context.WithCancel(context.Background())

	done := make(chan error, 1)
	go func() { done <- bot.Run(ctx) }()

	api.updates <- tgbotapi.Update{Message: command(1, "/help")}
	require.Eventually(t, func() bool { return len(api.Texts()) == 1 }, time.Second, 5*time.Millisecond)

	cancel()
	select {
	case err := <-done:
		require.NoError(t, err)
	case <-time.After(time.Second):
		t.Fatal("bot did not stop")
	}
	api.mu.Lock()
	defer api.mu.Unlock()
	require.True(t, api.stopped)
}

func TestBot_PublishSkipsEvidenceFromEarlierEpisode(t *testing.T) {
	bot, api, c := newTestBot(faultPrediction(), &echoLLM{})
	ctx := context.Background()
	bot.handleMessage(ctx, command(1, "/subscribe"))

	_, err := c.Monitor.Observe(faultPrediction(), camera.Placeholder(64, 48))
	require.NoError(t, err)
	ev := c.Monitor.Evidence()
	require.NotNil(t, ev)
	before := len(api.Sent())

	next := entity.StateChange{
		Previous: entity.Verdict{Label: entity.LabelNormal, Confidence: 90},
		Current:  entity.Verdict{Label: "bearing_failure", Confidence: 70, IsFault: true},
		At:       ev.CapturedAt.Add(time.Second),
	}
	require.NoError(t, bot.Publish(ctx, next))

	sent := api.Sent()[before:]
	require.Len(t, sent, 1)
	msg, ok := sent[0].(tgbotapi.MessageConfig)
	require.True(t, ok)
	require.Contains(t, msg.Text, "Обнаружена неисправность: bearing_failure (70.0%)")
}

func TestBot_StatusListsClassProbabilities(t *testing.T) {
	pred := &entity.Prediction{
		Label:            entity.LabelNormal,
		Confidence:       0.8,
		NormalConfidence: 0.8,
		DefectConfidence: 0.15,
		Probabilities:    entity.NewClassProbabilities([]string{"normal", "overheating"}, []float64{0.8, 0.15}),
	}
	bot, api, c := newTestBot(pred, &echoLLM{})
	require.NoError(t, c.InspectionService.Tick(context.Background()))

	bot.handleMessage(context.Background(), command(1, "/status"))

	texts := api.Texts()
	require.Len(t, texts, 1)
	require.Equal(t, "✅ Норма (80.0%)\n📊 normal 80.0%, overheating 15.0%", texts[0])
}
