package tgbot

import (
	"fmt"
	"log/slog"

	"github.com/KotFed0t/invest_advice_bot/config"
	"github.com/KotFed0t/invest_advice_bot/internal/converter/telebotConverter"
	"github.com/KotFed0t/invest_advice_bot/internal/transport/telegram"
	customMW "github.com/KotFed0t/invest_advice_bot/internal/transport/telegram/middleware"
	tele "gopkg.in/telebot.v4"
	"gopkg.in/telebot.v4/middleware"
)

type TGBot struct {
	bot  *tele.Bot
	ctrl *telegram.Controller
}

func New(cfg *config.Config, ctrl *telegram.Controller) (*TGBot, error) {
	settings := tele.Settings{
		Token:  cfg.Telegram.Token,
		Poller: &tele.LongPoller{Timeout: cfg.Telegram.UpdTimeout},
	}

	b, err := tele.NewBot(settings)
	if err != nil {
		return nil, fmt.Errorf("create telegram bot: %w", err)
	}

	return &TGBot{bot: b, ctrl: ctrl}, nil
}

func (b *TGBot) Start() {
	b.bot.Use(middleware.Recover(), customMW.Logger())

	b.setupRoutes()

	go b.bot.Start()
	slog.Info("tgbot started!")
}

func (b *TGBot) Stop() {
	slog.Info("start stopping tgbot")
	b.bot.Stop()
	slog.Info("tgbot stopped")
}

func (b *TGBot) setupRoutes() {
	// the chat state decides what a plain message means
	b.bot.Handle(tele.OnText, b.ctrl.Text)

	b.bot.Handle("/start", b.ctrl.Start)
	b.bot.Handle("/analyze", b.ctrl.Analyze)
	b.bot.Handle("/reanalyze", b.ctrl.Reanalyze)
	b.bot.Handle("/usage", b.ctrl.Usage)
	b.bot.Handle("/quote", b.ctrl.Quote)
	b.bot.Handle("/report", b.ctrl.Report)

	b.bot.Handle(&tele.Btn{Unique: telebotConverter.ReportBtnUnique}, b.ctrl.Report)
	b.bot.Handle(&tele.Btn{Unique: telebotConverter.UsageBtnUnique}, b.ctrl.Usage)
}
