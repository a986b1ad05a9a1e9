package app

import (
	"context"
	"fmt"
	"strings"

	"duelbot/internal/bridge"
	"duelbot/internal/kit"
	"duelbot/pkg/logx"
)

const welcomeText = "Привет, <b>%s</b>! Добро пожаловать в 🎉 <b>Desks Duels</b> 🎉 \n" +
	"Это захватывающая игра, где ты можешь наконец-то занять место в классе\n" +
	"\n👇 <b>Нажми на кнопку ниже, чтобы начать игру</b> 👇"

func (a *App) commandLoop(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case up := <-a.updates:
			a.handleUpdate(ctx, up)
		}
	}
}

func (a *App) handleUpdate(ctx context.Context, up kit.Update) {
	if up.Kind != kit.UpdateMessage || up.Message == nil {
		return
	}
	m := up.Message

	fields := strings.Fields(m.Text)
	if len(fields) == 0 {
		return
	}
	cmd := strings.ToLower(fields[0])
	// Strip the @botname suffix used in group chats.
	if i := strings.IndexByte(cmd, '@'); i > 0 {
		cmd = cmd[:i]
	}

	switch cmd {
	case "/start":
		a.cmdStart(ctx, m)
	case "/notify":
		a.cmdNotify(ctx, m)
	case "/restart":
		a.cmdRestart(ctx, m)
	case "/status":
		a.cmdStatus(ctx, m)
	default:
		a.reply(ctx, m.From,
			"Не понимаю, что вы хотите сделать. Воспользуйтесь командой /start для начала работы с ботом.", nil)
	}
}

// cmdStart registers the player with the game backend, or greets them
// again if the backend already knows the id.
func (a *App) cmdStart(ctx context.Context, m *kit.Message) {
	registered, err := a.dir.Check(ctx, m.From)
	if err != nil {
		// A failed check falls through to registration; the backend
		// tolerates duplicate register calls.
		a.log.Warn("auth check failed", logx.String("recipient", string(m.From)), logx.Err(err))
	}
	if registered {
		a.reply(ctx, m.From,
			"Вы уже зарегистрированы! Нажмите на кнопку ниже, чтобы перейти в приложение.",
			bridge.NotifyOptions(a.webAppURL))
		return
	}

	err = a.dir.Register(ctx, kit.User{
		TelegramID: m.From,
		Username:   m.Username,
		FirstName:  m.FirstName,
	})
	if err != nil {
		a.log.Warn("registration failed", logx.String("recipient", string(m.From)), logx.Err(err))
		a.reply(ctx, m.From, "Произошла ошибка при регистрации. Попробуйте позже.", nil)
		return
	}
	a.log.Info("player registered", logx.String("recipient", string(m.From)))
	a.reply(ctx, m.From, fmt.Sprintf(welcomeText, m.FirstName), bridge.NotifyOptions(a.webAppURL))
}

// cmdNotify flips the per-player mute flag.
func (a *App) cmdNotify(ctx context.Context, m *kit.Message) {
	muted := a.mute.Toggle(m.From)
	var text string
	if muted {
		text = "🔕 Уведомления отключены!\n\n" +
			"Теперь вы не будете получать уведомления о дуэлях.\n" +
			"Используйте /notify чтобы включить уведомления."
	} else {
		text = "🔔 Уведомления включены!\n\n" +
			"Теперь вы будете получать уведомления о дуэлях.\n" +
			"Используйте /notify чтобы отключить уведомления."
	}
	a.log.Info("mute flag toggled", logx.String("recipient", string(m.From)), logx.Bool("muted", muted))
	a.reply(ctx, m.From, text, nil)
}

// cmdRestart deletes the player's backend account so /start can
// register them from scratch.
func (a *App) cmdRestart(ctx context.Context, m *kit.Message) {
	if err := a.dir.Delete(ctx, m.From); err != nil {
		a.log.Warn("account delete failed", logx.String("recipient", string(m.From)), logx.Err(err))
		a.reply(ctx, m.From,
			"Сервер не отвечает.\n<b>Не удалось удалить аккаунт, попробуйте позже.</b>",
			&kit.SendOptions{ParseMode: "HTML"})
		return
	}
	a.log.Info("account deleted", logx.String("recipient", string(m.From)))
	a.reply(ctx, m.From,
		"Ваш аккаунт успешно удалён!\n<b>Чтобы зарегистрироваться снова, нажмите /start</b>",
		&kit.SendOptions{ParseMode: "HTML"})
}

// cmdStatus reports the duel feed connection state.
func (a *App) cmdStatus(ctx context.Context, m *kit.Message) {
	st := a.feed.Status()
	state := "🔴 Отключено"
	url := "Нет соединения"
	if st.Connected {
		state = "🟢 Подключено"
		url = st.URL
	}
	a.reply(ctx, m.From, fmt.Sprintf("Статус сокет-соединения: %s\nURL: %s", state, url), nil)
}

func (a *App) reply(ctx context.Context, to kit.Recipient, text string, opt *kit.SendOptions) {
	if err := a.adapter.Send(ctx, to, text, opt); err != nil {
		a.log.Warn("reply failed", logx.String("recipient", string(to)), logx.Err(err))
	}
}
