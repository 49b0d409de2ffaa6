package karma

import (
	"context"
	"strings"
	"testing"

	"github.com/mymmrac/telego"
	"github.com/stretchr/testify/assert"

	"serotonyl.ru/karma-bot/internal/features/members"
)

type fakeUsernames map[string]*members.Member

func (f fakeUsernames) ResolveUsername(_ context.Context, username string) (*members.Member, error) {
	return f[strings.ToLower(strings.TrimPrefix(username, "@"))], nil
}

func TestExtractMentionsUTF16Offsets(t *testing.T) {
	resolver := fakeUsernames{
		"alice": {UserID: 1, Username: "alice", FirstName: "Alice"},
	}
	// «👋» занимает две UTF-16 единицы
	msg := &telego.Message{
		Text: "Привет 👋 @alice ++",
		Entities: []telego.MessageEntity{
			{Type: "mention", Offset: 10, Length: 6},
		},
	}

	got := ExtractMentions(context.Background(), msg, resolver)
	assert.Equal(t, []Mention{{ID: 1, DisplayName: "Alice", Primary: "@alice"}}, got)
}

func TestExtractMentionsTextMentionAndDedup(t *testing.T) {
	resolver := fakeUsernames{
		"bob": {UserID: 2, Username: "bob", FirstName: "Bob"},
	}
	msg := &telego.Message{
		Text: "@bob ++ Боб ++ @ghost --",
		Entities: []telego.MessageEntity{
			{Type: "mention", Offset: 0, Length: 4},
			{Type: "text_mention", Offset: 8, Length: 3, User: &telego.User{ID: 2, FirstName: "Bob", Username: "bob"}},
			{Type: "mention", Offset: 15, Length: 6},
			{Type: "bold", Offset: 0, Length: 4},
		},
	}

	got := ExtractMentions(context.Background(), msg, resolver)
	assert.Equal(t, []Mention{{ID: 2, DisplayName: "Bob", Primary: "@bob", Nickname: "Боб"}}, got)
}

func TestExtractMentionsBadOffsets(t *testing.T) {
	msg := &telego.Message{
		Text:     "@a",
		Entities: []telego.MessageEntity{{Type: "mention", Offset: 1, Length: 10}},
	}
	assert.Empty(t, ExtractMentions(context.Background(), msg, fakeUsernames{}))
	assert.Empty(t, ExtractMentions(context.Background(), nil, fakeUsernames{}))
}

func TestExtractMentionsFromCaption(t *testing.T) {
	resolver := fakeUsernames{
		"bob": {UserID: 2, Username: "bob", FirstName: "Bob"},
	}
	msg := &telego.Message{
		Caption:         "@bob ++ за фото",
		CaptionEntities: []telego.MessageEntity{{Type: "mention", Offset: 0, Length: 4}},
	}

	got := ExtractMentions(context.Background(), msg, resolver)
	assert.Equal(t, []Mention{{ID: 2, DisplayName: "Bob", Primary: "@bob"}}, got)
}
