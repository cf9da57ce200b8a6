package bot

import (
	"context"
	"strings"
	"testing"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/rs/zerolog"

	"leet-tracker-bot/internal/domain"
)

type stubGroups struct {
	registered map[int64]domain.Group
}

func newStubGroups() *stubGroups {
	return &stubGroups{registered: make(map[int64]domain.Group)}
}

func (s *stubGroups) UpsertGroup(_ context.Context, chatID int64, title string) (domain.Group, error) {
	group, ok := s.registered[chatID]
	if !ok {
		group = domain.Group{ID: int64(len(s.registered) + 1), ChatID: chatID}
	}
	group.Title = title
	s.registered[chatID] = group
	return group, nil
}

func (s *stubGroups) GetGroupByChatID(_ context.Context, chatID int64) (domain.Group, error) {
	group, ok := s.registered[chatID]
	if !ok {
		return domain.Group{}, domain.ErrGroupNotFound
	}
	return group, nil
}

func (s *stubGroups) ListGroups(context.Context) ([]domain.Group, error) { return nil, nil }

type stubIdentities struct {
	added []domain.TrackedIdentity
}

func (s *stubIdentities) AddIdentity(_ context.Context, groupID int64, username, displayName string) (domain.TrackedIdentity, bool, error) {
	ident := domain.TrackedIdentity{GroupID: groupID, Username: username, DisplayName: displayName}
	s.added = append(s.added, ident)
	return ident, true, nil
}

func (s *stubIdentities) RemoveIdentity(context.Context, int64, string) (bool, error) {
	return true, nil
}

func (s *stubIdentities) ListIdentities(context.Context, int64) ([]domain.TrackedIdentity, error) {
	return s.added, nil
}

type stubNotifier struct {
	sent []string
}

func (s *stubNotifier) Send(_ context.Context, _ int64, text string) error {
	s.sent = append(s.sent, text)
	return nil
}

func command(chatType, text string) *tgbotapi.Message {
	cmd := strings.Fields(text)[0]
	return &tgbotapi.Message{
		Chat:     &tgbotapi.Chat{ID: -100, Type: chatType, Title: "интервальная"},
		Text:     text,
		Entities: []tgbotapi.MessageEntity{{Type: "bot_command", Offset: 0, Length: len(cmd)}},
	}
}

func newTestHandler(groups *stubGroups, idents *stubIdentities, notifier *stubNotifier) *Handler {
	return NewHandler(nil, groups, idents, nil, notifier, zerolog.Nop())
}

func TestRegisterGroupRejectsPrivateChat(t *testing.T) {
	groups := newStubGroups()
	notifier := &stubNotifier{}
	h := newTestHandler(groups, &stubIdentities{}, notifier)

	h.handleMessage(context.Background(), command("private", "/register_group"))

	if len(groups.registered) != 0 {
		t.Fatalf("личный чат не должен регистрироваться")
	}
	if len(notifier.sent) != 1 || !strings.Contains(notifier.sent[0], "групповых чатах") {
		t.Fatalf("ожидали отказ для личного чата: %v", notifier.sent)
	}
}

func TestRegisterGroupThenAdd(t *testing.T) {
	groups := newStubGroups()
	idents := &stubIdentities{}
	notifier := &stubNotifier{}
	h := newTestHandler(groups, idents, notifier)

	h.handleMessage(context.Background(), command("supergroup", "/register_group"))
	if _, ok := groups.registered[-100]; !ok {
		t.Fatalf("группа должна зарегистрироваться")
	}

	h.handleMessage(context.Background(), command("supergroup", "/add @alice Алиса В."))
	if len(idents.added) != 1 {
		t.Fatalf("ожидали 1 добавленный профиль, получили %d", len(idents.added))
	}
	if idents.added[0].Username != "alice" {
		t.Fatalf("собачка должна срезаться: %q", idents.added[0].Username)
	}
	if idents.added[0].DisplayName != "Алиса В." {
		t.Fatalf("отображаемое имя должно сохранять пробелы: %q", idents.added[0].DisplayName)
	}
}

func TestAddRequiresRegisteredGroup(t *testing.T) {
	idents := &stubIdentities{}
	notifier := &stubNotifier{}
	h := newTestHandler(newStubGroups(), idents, notifier)

	h.handleMessage(context.Background(), command("supergroup", "/add alice"))

	if len(idents.added) != 0 {
		t.Fatalf("без регистрации профиль не добавляется")
	}
	if len(notifier.sent) != 1 || !strings.Contains(notifier.sent[0], "/register_group") {
		t.Fatalf("ожидали подсказку про регистрацию: %v", notifier.sent)
	}
}

func TestAddWithoutUsernameShowsUsage(t *testing.T) {
	groups := newStubGroups()
	idents := &stubIdentities{}
	notifier := &stubNotifier{}
	h := newTestHandler(groups, idents, notifier)

	h.handleMessage(context.Background(), command("supergroup", "/register_group"))
	h.handleMessage(context.Background(), command("supergroup", "/add"))

	if len(idents.added) != 0 {
		t.Fatalf("без username профиль не добавляется")
	}
	last := notifier.sent[len(notifier.sent)-1]
	if !strings.Contains(last, "/add username") {
		t.Fatalf("ожидали подсказку по формату: %q", last)
	}
}

func TestListShowsTrackedIdentities(t *testing.T) {
	groups := newStubGroups()
	idents := &stubIdentities{}
	notifier := &stubNotifier{}
	h := newTestHandler(groups, idents, notifier)

	h.handleMessage(context.Background(), command("supergroup", "/register_group"))
	h.handleMessage(context.Background(), command("supergroup", "/add alice Алиса"))
	h.handleMessage(context.Background(), command("supergroup", "/list"))

	last := notifier.sent[len(notifier.sent)-1]
	if !strings.Contains(last, "Алиса") || !strings.Contains(last, "alice") {
		t.Fatalf("в списке нет добавленного профиля: %q", last)
	}
}

func TestSplitArgs(t *testing.T) {
	username, rest := splitArgs("  @alice  Алиса В. ")
	if username != "alice" {
		t.Fatalf("ожидали alice, получили %q", username)
	}
	if rest != "Алиса В." {
		t.Fatalf("ожидали остаток без краевых пробелов, получили %q", rest)
	}

	if username, rest = splitArgs("   "); username != "" || rest != "" {
		t.Fatalf("пустые аргументы должны давать пустые значения")
	}
}
