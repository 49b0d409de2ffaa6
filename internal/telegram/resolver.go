package telegram

import (
	"context"
	"fmt"

	"github.com/mymmrac/telego"
	tu "github.com/mymmrac/telego/telegoutil"
	log "github.com/sirupsen/logrus"

	"serotonyl.ru/karma-bot/internal/common"
	"serotonyl.ru/karma-bot/internal/features/members"
)

// MemberResolver находит пользователя в чате через getChatMember.
// Попутно обновляет таблицу members: username мог смениться.
type MemberResolver struct {
	bot     *telego.Bot
	members *members.Service
}

func NewMemberResolver(bot *telego.Bot, memberService *members.Service) *MemberResolver {
	return &MemberResolver{bot: bot, members: memberService}
}

// ResolveMember возвращает отображаемое имя участника чата scope.
// Вышедшие и забаненные пользователи — common.ErrMemberUnresolved.
func (r *MemberResolver) ResolveMember(ctx context.Context, scope int64, userID int64) (string, error) {
	cm, err := r.bot.GetChatMember(ctx, &telego.GetChatMemberParams{
		ChatID: tu.ID(scope),
		UserID: userID,
	})
	if err != nil {
		return "", fmt.Errorf("getChatMember user_id=%d: %w", userID, err)
	}

	switch cm.MemberStatus() {
	case "left", "kicked":
		return "", fmt.Errorf("user_id=%d статус %s: %w", userID, cm.MemberStatus(), common.ErrMemberUnresolved)
	}

	user := cm.MemberUser()
	if err := r.members.Remember(ctx, user.ID, user.Username, user.FirstName, user.LastName); err != nil {
		log.WithError(err).WithField("user_id", user.ID).Warn("Не удалось обновить участника")
	}

	if name := DisplayName(&user); name != "" {
		return name, nil
	}
	return r.members.DisplayName(ctx, userID, fmt.Sprintf("id%d", userID)), nil
}
